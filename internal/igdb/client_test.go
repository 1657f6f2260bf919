package igdb

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"gameboxr/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.IGDBConfig{
		ClientID: "client-123",
		APIURL:   srv.URL + "/v4/",
	}, srv.Client(), zap.NewNop())
}

func TestClientFetchPage(t *testing.T) {
	var gotBody string
	var gotHeaders http.Header
	var gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		gotHeaders = r.Header.Clone()
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id": 1, "name": "A"}, {"id": 2, "name": "B"}]`))
	})

	games, err := client.FetchPage(context.Background(), "tok", 2, 40)
	require.NoError(t, err)
	require.Len(t, games, 2)
	assert.Equal(t, "A", games[0].Name)

	assert.Equal(t, "/v4/games", gotPath)
	assert.Contains(t, gotBody, "offset 80;")
	assert.Contains(t, gotBody, "limit 40;")
	assert.Contains(t, gotBody, "sort total_rating desc;")
	assert.Equal(t, "client-123", gotHeaders.Get("Client-ID"))
	assert.Equal(t, "Bearer tok", gotHeaders.Get("Authorization"))
	assert.Equal(t, "text/plain", gotHeaders.Get("Content-Type"))
	assert.Equal(t, "application/json", gotHeaders.Get("Accept"))
}

func TestClientFetchPageUpstreamError(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message":"Too Many Requests"}`))
	})

	_, err := client.FetchPage(context.Background(), "tok", 0, 40)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCatalogFetch)

	var fetchErr *CatalogFetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusTooManyRequests, fetchErr.StatusCode)
	assert.Equal(t, `{"message":"Too Many Requests"}`, fetchErr.Body)
	assert.Equal(t, 1, calls, "no retries")
}

func TestClientFetchPageMalformed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"unexpected": true}`))
	})

	_, err := client.FetchPage(context.Background(), "tok", 0, 40)
	assert.ErrorIs(t, err, ErrMalformedUpstreamResponse)
}

func TestClientFetchPageRejectsBadArguments(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("upstream must not be called")
	})

	_, err := client.FetchPage(context.Background(), "tok", -1, 40)
	assert.Error(t, err)
	_, err = client.FetchPage(context.Background(), "tok", 0, 0)
	assert.Error(t, err)
}
