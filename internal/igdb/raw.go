package igdb

import (
	"fmt"
	"io"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

// RawGame is one record of the /games endpoint as selected by DiscoverQuery.
// Nested lists stay raw so a malformed list degrades to empty instead of
// failing the whole page.
type RawGame struct {
	ID               int64           `json:"id" validate:"required,gt=0"`
	Name             string          `json:"name"`
	Rating           *float64        `json:"rating"`
	TotalRating      *float64        `json:"total_rating"`
	FirstReleaseDate *float64        `json:"first_release_date"`
	Cover            *RawCover       `json:"cover"`
	ReleaseDates     json.RawMessage `json:"release_dates"`
	Platforms        json.RawMessage `json:"platforms"`
	Genres           json.RawMessage `json:"genres"`
}

// RawCover is the expanded cover sub-record
type RawCover struct {
	URL string `json:"url"`
}

type namedRecord struct {
	Name string `json:"name"`
}

type releaseDateRecord struct {
	Date *float64 `json:"date"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func recordValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// DecodeGames decodes a catalog response body. Anything other than a JSON
// array of records with a positive id is ErrMalformedUpstreamResponse.
func DecodeGames(r io.Reader) ([]RawGame, error) {
	var games []RawGame
	if err := json.NewDecoder(r).Decode(&games); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedUpstreamResponse, err)
	}
	if games == nil {
		return nil, fmt.Errorf("%w: body is not a list", ErrMalformedUpstreamResponse)
	}

	v := recordValidator()
	for i := range games {
		if err := v.Struct(&games[i]); err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrMalformedUpstreamResponse, i, err)
		}
	}
	return games, nil
}

// names flattens a list of name-bearing sub-records, dropping empty names.
// A missing or non-list value yields an empty slice.
func names(raw json.RawMessage) []string {
	out := []string{}
	var items []json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &items) != nil {
		return out
	}
	for _, item := range items {
		var rec namedRecord
		if json.Unmarshal(item, &rec) != nil || rec.Name == "" {
			continue
		}
		out = append(out, rec.Name)
	}
	return out
}

// releaseDates returns every numeric date in a release_dates list.
// listed reports whether release_dates decoded as a non-empty list.
func releaseDates(raw json.RawMessage) (dates []float64, listed bool) {
	var items []json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &items) != nil || len(items) == 0 {
		return nil, false
	}
	for _, item := range items {
		var rec releaseDateRecord
		if json.Unmarshal(item, &rec) != nil || rec.Date == nil {
			continue
		}
		dates = append(dates, *rec.Date)
	}
	return dates, true
}
