package igdb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"gameboxr/internal/config"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"
)

// RefreshBuffer is how long before expiry a cached token stops being served.
// It absorbs clock skew and the latency of requests already in flight.
const RefreshBuffer = 60 * time.Second

// the cache owns exactly one credential slot
const credentialSlot = "igdb-access-token"

// TokenSource performs one credential exchange per call
type TokenSource interface {
	Token(ctx context.Context) (*oauth2.Token, error)
}

// ClientCredentialsSource exchanges Twitch client credentials for an app access token
type ClientCredentialsSource struct {
	config     *clientcredentials.Config
	httpClient *http.Client
}

// NewClientCredentialsSource creates a token source for the IGDB credentials.
// client_id, client_secret and grant_type are sent as request parameters.
func NewClientCredentialsSource(cfg config.IGDBConfig, httpClient *http.Client) *ClientCredentialsSource {
	return &ClientCredentialsSource{
		config: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		httpClient: httpClient,
	}
}

// Token performs the exchange
func (s *ClientCredentialsSource) Token(ctx context.Context) (*oauth2.Token, error) {
	if s.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	}
	return s.config.Token(ctx)
}

type credential struct {
	token     string
	expiresAt time.Time
}

// TokenCache holds the single upstream access token and refreshes it on demand.
// Concurrent callers that find the token stale share one exchange.
type TokenCache struct {
	source TokenSource
	logger *zap.Logger
	now    func() time.Time

	current atomic.Pointer[credential]
	group   singleflight.Group
}

// NewTokenCache creates an empty cache backed by source
func NewTokenCache(source TokenSource, logger *zap.Logger) *TokenCache {
	return &TokenCache{
		source: source,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the cache's time source
func (c *TokenCache) WithClock(now func() time.Time) *TokenCache {
	c.now = now
	return c
}

// Token returns the cached token while now < expiresAt-RefreshBuffer,
// otherwise it exchanges credentials and caches the result.
// A failed exchange leaves the previous value in place.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	if token, ok := c.cached(); ok {
		return token, nil
	}

	// The exchange outlives any single caller so one cancelled request
	// does not fail everyone waiting on the same flight.
	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(credentialSlot, func() (interface{}, error) {
		if token, ok := c.cached(); ok {
			return token, nil
		}
		return c.refresh(flightCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Invalidate drops the cached token so the next call exchanges again
func (c *TokenCache) Invalidate() {
	c.current.Store(nil)
}

// Set seeds the cache with a known token
func (c *TokenCache) Set(token string, expiresAt time.Time) {
	c.current.Store(&credential{token: token, expiresAt: expiresAt})
}

func (c *TokenCache) cached() (string, bool) {
	cred := c.current.Load()
	if cred == nil || cred.token == "" {
		return "", false
	}
	if !c.now().Before(cred.expiresAt.Add(-RefreshBuffer)) {
		return "", false
	}
	return cred.token, true
}

func (c *TokenCache) refresh(ctx context.Context) (string, error) {
	start := c.now()

	tok, err := c.source.Token(ctx)
	if err != nil {
		fields := []zap.Field{zap.Error(err)}
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			fields = append(fields,
				zap.Int("status", retrieveErr.Response.StatusCode),
				zap.ByteString("body", retrieveErr.Body))
		}
		c.logger.Error("Failed to get IGDB access token", fields...)
		return "", fmt.Errorf("%w: %v", ErrUpstreamAuth, err)
	}
	if tok.AccessToken == "" {
		c.logger.Error("IGDB token response had no access token")
		return "", fmt.Errorf("%w: empty access token", ErrUpstreamAuth)
	}

	// A response without expires_in is usable once and never served from cache.
	expiresAt := tok.Expiry
	if expiresAt.IsZero() {
		expiresAt = start
	}

	c.current.Store(&credential{token: tok.AccessToken, expiresAt: expiresAt})
	c.logger.Info("Refreshed IGDB access token",
		zap.Time("expires_at", expiresAt),
		zap.String("token_type", tok.TokenType))

	return tok.AccessToken, nil
}
