package igdb

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstreamAuth means the Twitch client-credentials exchange failed.
	ErrUpstreamAuth = errors.New("igdb auth failed")

	// ErrCatalogFetch means the catalog endpoint answered with a non-success status.
	ErrCatalogFetch = errors.New("failed to fetch games from igdb")

	// ErrMalformedUpstreamResponse means the catalog body was not a list of game records.
	ErrMalformedUpstreamResponse = errors.New("unexpected igdb response")
)

// CatalogFetchError carries the upstream status and body for diagnostics
type CatalogFetchError struct {
	StatusCode int
	Body       string
}

func (e *CatalogFetchError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", ErrCatalogFetch, e.StatusCode, e.Body)
}

// Is lets errors.Is(err, ErrCatalogFetch) match
func (e *CatalogFetchError) Is(target error) bool {
	return target == ErrCatalogFetch
}
