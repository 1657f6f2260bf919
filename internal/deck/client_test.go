package deck

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"gameboxr/pkg/models"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIClientDiscover(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/games/discover", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[{"gameId": 7, "title": "Celeste", "cover": null, "released": "2018-01-25",
			"rating": 91.5, "totalRating": 90.1, "platforms": ["PC"], "genres": []}]`))
	}))
	defer srv.Close()

	client := NewAPIClient(srv.URL+"/api/", "tok", srv.Client())
	games, err := client.Discover(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, int64(7), games[0].GameID)
	assert.Nil(t, games[0].Cover)
	require.NotNil(t, games[0].Released)
	assert.Equal(t, "2018-01-25", *games[0].Released)
}

func TestAPIClientAnonymous(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	games, err := NewAPIClient(srv.URL, "", srv.Client()).Discover(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, games)
}

func TestAPIClientRate(t *testing.T) {
	var got models.RateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rate", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(`{"id": "r1"}`))
	}))
	defer srv.Close()

	stars := 5
	released := "2018-01-25"
	req := models.NewRateRequest(models.GameSummary{GameID: 7, Title: "Celeste", Released: &released}, models.StatusRated, &stars)

	require.NoError(t, NewAPIClient(srv.URL, "tok", srv.Client()).Rate(context.Background(), req))
	assert.Equal(t, int64(7), got.GameID)
	require.NotNil(t, got.Stars)
	assert.Equal(t, 5, *got.Stars)
	require.NotNil(t, got.ReleaseYear)
	assert.Equal(t, 2018, *got.ReleaseYear)
}

func TestAPIClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": "Failed to fetch games from IGDB", "details": "rate limited"}`))
	}))
	defer srv.Close()

	_, err := NewAPIClient(srv.URL, "", srv.Client()).Discover(context.Background(), 0)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "Failed to fetch games from IGDB", apiErr.Message)
	assert.Equal(t, "rate limited", apiErr.Details)
}

func TestAPIClientRatings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error": "Missing Authorization header"}`))
			return
		}
		_, _ = w.Write([]byte(`[{"id": "r1", "gameId": 7, "title": "Celeste", "status": "wishlist"}]`))
	}))
	defer srv.Close()

	ratings, err := NewAPIClient(srv.URL, "tok", srv.Client()).Ratings(context.Background())
	require.NoError(t, err)
	require.Len(t, ratings, 1)
	assert.Equal(t, models.StatusWishlist, ratings[0].Status)

	_, err = NewAPIClient(srv.URL, "", srv.Client()).Ratings(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}
