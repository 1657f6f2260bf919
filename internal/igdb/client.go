package igdb

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"gameboxr/internal/config"

	"go.uber.org/zap"
)

// maxErrorBody bounds how much of a failed response is kept for diagnostics
const maxErrorBody = 64 << 10

// Client queries the IGDB catalog. It holds no credential state; callers
// pass the access token obtained from a TokenCache.
type Client struct {
	baseURL    string
	clientID   string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new catalog client
func NewClient(cfg config.IGDBConfig, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.APIURL, "/"),
		clientID:   cfg.ClientID,
		httpClient: httpClient,
		logger:     logger,
	}
}

// FetchPage returns one page of the discovery listing.
// The request is made once; failures are returned, never retried.
func (c *Client) FetchPage(ctx context.Context, accessToken string, page, pageSize int) ([]RawGame, error) {
	if page < 0 {
		return nil, fmt.Errorf("page must be non-negative, got %d", page)
	}
	if pageSize <= 0 {
		return nil, fmt.Errorf("page size must be positive, got %d", pageSize)
	}
	return c.Games(ctx, accessToken, DiscoverQuery(page, pageSize))
}

// Games runs an arbitrary query against the /games endpoint
func (c *Client) Games(ctx context.Context, accessToken string, query *Query) ([]RawGame, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/games", strings.NewReader(query.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to build igdb request: %w", err)
	}
	req.Header.Set("Client-ID", c.clientID)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Error("IGDB error",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body))
		return nil, &CatalogFetchError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	games, err := DecodeGames(resp.Body)
	if err != nil {
		c.logger.Error("Unexpected IGDB response", zap.Error(err))
		return nil, err
	}
	return games, nil
}
