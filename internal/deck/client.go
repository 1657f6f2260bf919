package deck

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gameboxr/pkg/models"

	"github.com/goccy/go-json"
)

// APIError is a non-success response from the discovery API
type APIError struct {
	StatusCode int
	Message    string
	Details    string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("api error %d: %s: %s", e.StatusCode, e.Message, e.Details)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// APIClient talks to the discovery API. It implements Feed and RatingWriter.
type APIClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var (
	_ Feed         = (*APIClient)(nil)
	_ RatingWriter = (*APIClient)(nil)
)

// NewAPIClient creates a client for baseURL (for example http://localhost:3000/api).
// token may be empty for anonymous browsing.
func NewAPIClient(baseURL, token string, httpClient *http.Client) *APIClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
	}
}

// Discover fetches one feed page
func (c *APIClient) Discover(ctx context.Context, page int) ([]models.GameSummary, error) {
	q := url.Values{"page": {strconv.Itoa(page)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/games/discover?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build discover request: %w", err)
	}

	var games []models.GameSummary
	if err := c.do(req, &games); err != nil {
		return nil, err
	}
	return games, nil
}

// Rate stores a rating or wishlist entry
func (c *APIClient) Rate(ctx context.Context, rate models.RateRequest) error {
	body, err := json.Marshal(rate)
	if err != nil {
		return fmt.Errorf("failed to encode rating: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rate", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build rate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, nil)
}

// Ratings lists the caller's stored ratings
func (c *APIClient) Ratings(ctx context.Context) ([]models.Rating, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/me/ratings", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build ratings request: %w", err)
	}

	var ratings []models.Rating
	if err := c.do(req, &ratings); err != nil {
		return nil, err
	}
	return ratings, nil
}

func (c *APIClient) do(req *http.Request, out interface{}) error {
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
		var body models.ErrorResponse
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(raw, &body) == nil && body.Error != "" {
			apiErr.Message = body.Error
			apiErr.Details = body.Details
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
