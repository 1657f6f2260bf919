package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"gameboxr/internal/config"
	"gameboxr/pkg/models"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const stateTTL = 5 * time.Minute

// OAuth2Provider represents an OAuth2 provider
type OAuth2Provider interface {
	GetAuthURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error)
	GetUserInfo(ctx context.Context, token *oauth2.Token) (*UserInfo, error)
}

// StateStore persists one-time OAuth2 state values
type StateStore interface {
	SetOAuth2State(ctx context.Context, state string, expiration time.Duration) error
	ValidateOAuth2State(ctx context.Context, state string) bool
}

// UserInfo represents user information from OAuth2 provider
type UserInfo struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar_url"`
	Provider string `json:"provider"`
}

// LoginService issues the app's identity tokens after an OAuth2 login.
// It is the only place users obtain a bearer token for /rate and /me.
type LoginService struct {
	tokens   *TokenIssuer
	provider OAuth2Provider
	store    StateStore
	logger   *zap.Logger

	// Fallback for when Redis is not available
	mu     sync.Mutex
	states map[string]time.Time
}

// NewLoginService creates a login service. store may be nil.
func NewLoginService(provider OAuth2Provider, tokens *TokenIssuer, store StateStore, logger *zap.Logger) *LoginService {
	return &LoginService{
		tokens:   tokens,
		provider: provider,
		store:    store,
		logger:   logger,
		states:   make(map[string]time.Time),
	}
}

// GetAuthURL generates an OAuth2 authorization URL
func (l *LoginService) GetAuthURL(ctx context.Context) (string, error) {
	state, err := generateState()
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}

	stored := false
	if l.store != nil {
		if err := l.store.SetOAuth2State(ctx, state, stateTTL); err != nil {
			l.logger.Warn("Failed to store OAuth2 state in Redis, using memory", zap.Error(err))
		} else {
			stored = true
		}
	}
	if !stored {
		l.mu.Lock()
		l.states[state] = time.Now().Add(stateTTL)
		l.mu.Unlock()
	}

	return l.provider.GetAuthURL(state), nil
}

// HandleCallback exchanges the code and returns the provider's view of the user.
// The caller persists the user and then calls IssueToken with the stored ID.
func (l *LoginService) HandleCallback(ctx context.Context, code, state string) (*models.User, error) {
	if !l.validateState(ctx, state) {
		return nil, fmt.Errorf("invalid state parameter")
	}

	token, err := l.provider.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	userInfo, err := l.provider.GetUserInfo(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}

	return &models.User{
		ID:         uuid.New().String(),
		Email:      userInfo.Email,
		Name:       userInfo.Name,
		Avatar:     userInfo.Avatar,
		Provider:   userInfo.Provider,
		ProviderID: userInfo.ID,
	}, nil
}

// IssueToken signs an identity token for a stored user
func (l *LoginService) IssueToken(userID string) (string, error) {
	return l.tokens.GenerateJWT(userID)
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func (l *LoginService) validateState(ctx context.Context, state string) bool {
	if state == "" {
		return false
	}
	if l.store != nil && l.store.ValidateOAuth2State(ctx, state) {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	expiration, exists := l.states[state]
	if !exists {
		return false
	}
	delete(l.states, state)
	return time.Now().Before(expiration)
}

// CustomProvider implements OAuth2Provider for custom OAuth2 services
type CustomProvider struct {
	config *oauth2.Config
	cfg    config.OAuth2Config
}

// NewCustomProvider creates a new custom OAuth2 provider
func NewCustomProvider(cfg config.OAuth2Config) (*CustomProvider, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("OAuth2 client ID and secret must be configured")
	}

	if cfg.AuthURL == "" || cfg.TokenURL == "" {
		return nil, fmt.Errorf("OAuth2 auth URL and token URL must be configured")
	}

	return &CustomProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		cfg: cfg,
	}, nil
}

// GetAuthURL returns the custom OAuth2 authorization URL
func (c *CustomProvider) GetAuthURL(state string) string {
	return c.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// ExchangeCode exchanges the authorization code for a token
func (c *CustomProvider) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	return c.config.Exchange(ctx, code)
}

// GetUserInfo gets user information from custom OAuth2 provider
func (c *CustomProvider) GetUserInfo(ctx context.Context, token *oauth2.Token) (*UserInfo, error) {
	if c.cfg.UserInfoURL == "" {
		return nil, fmt.Errorf("user info URL not configured")
	}

	client := c.config.Client(ctx, token)
	resp, err := client.Get(c.cfg.UserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to get user info: %s", resp.Status)
	}

	var userResponse map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&userResponse); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}

	return c.mapUserInfo(userResponse)
}

func (c *CustomProvider) mapUserInfo(data map[string]interface{}) (*UserInfo, error) {
	userInfo := &UserInfo{Provider: c.cfg.Provider}

	id, ok := extractField(data, c.cfg.UserIDField)
	if !ok {
		return nil, fmt.Errorf("user ID field '%s' not found in response", c.cfg.UserIDField)
	}
	userInfo.ID = fmt.Sprintf("%v", id)

	if email, ok := extractField(data, c.cfg.UserEmailField); ok {
		userInfo.Email = fmt.Sprintf("%v", email)
	}

	if name, ok := extractField(data, c.cfg.UserNameField); ok {
		userInfo.Name = fmt.Sprintf("%v", name)
	} else if userInfo.Email != "" {
		userInfo.Name = userInfo.Email
	} else {
		userInfo.Name = userInfo.ID
	}

	if avatar, ok := extractField(data, c.cfg.UserAvatarField); ok {
		userInfo.Avatar = fmt.Sprintf("%v", avatar)
	}

	return userInfo, nil
}

// extractField reads a possibly nested field using dot notation ("user.profile.name")
func extractField(data map[string]interface{}, fieldPath string) (interface{}, bool) {
	if fieldPath == "" {
		return nil, false
	}

	fields := strings.Split(fieldPath, ".")
	current := data
	for _, field := range fields[:len(fields)-1] {
		next, ok := current[field].(map[string]interface{})
		if !ok {
			return nil, false
		}
		current = next
	}

	value, exists := current[fields[len(fields)-1]]
	return value, exists
}
