package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestGameSummaryReleaseYear(t *testing.T) {
	assert.Nil(t, GameSummary{}.ReleaseYear())
	assert.Nil(t, GameSummary{Released: strPtr("unknown")}.ReleaseYear())

	year := GameSummary{Released: strPtr("2017-03-03")}.ReleaseYear()
	require.NotNil(t, year)
	assert.Equal(t, 2017, *year)
}

func TestRatingStatusValid(t *testing.T) {
	assert.True(t, StatusRated.Valid())
	assert.True(t, StatusWishlist.Valid())
	assert.False(t, RatingStatus("hated").Valid())
	assert.False(t, RatingStatus("").Valid())
}

func TestRateRequestToRating(t *testing.T) {
	stars := 4
	req := RateRequest{
		GameID:    7,
		Stars:     &stars,
		Status:    StatusRated,
		Platforms: []string{"PC", "PS5", "Switch"},
		Genres:    []string{"RPG"},
	}

	row := req.ToRating("user-1")
	assert.Equal(t, "user-1", row.UserID)
	assert.Equal(t, int64(7), row.GameID)
	assert.Equal(t, "Unknown", row.Title)
	require.NotNil(t, row.Platforms)
	assert.Equal(t, "PC,PS5,Switch", *row.Platforms)
	assert.Equal(t, "RPG", *row.Genres)
	assert.Equal(t, 4, *row.Stars)

	game := req.ToGame()
	assert.Equal(t, int64(7), game.ID)
	assert.Equal(t, "Unknown", game.Title)
	assert.Equal(t, "PC,PS5,Switch", *game.Platforms)
}

func TestNewRateRequest(t *testing.T) {
	g := GameSummary{
		GameID:    42,
		Title:     "Outer Wilds",
		Cover:     strPtr("https://images.igdb.com/igdb/image/upload/t_1080p/co1.jpg"),
		Released:  strPtr("2019-05-28"),
		Platforms: []string{"PC"},
		Genres:    []string{"Adventure"},
	}

	req := NewRateRequest(g, StatusWishlist, nil)
	assert.Equal(t, int64(42), req.GameID)
	assert.Equal(t, StatusWishlist, req.Status)
	assert.Nil(t, req.Stars)
	assert.Equal(t, g.Cover, req.CoverImage)
	require.NotNil(t, req.ReleaseYear)
	assert.Equal(t, 2019, *req.ReleaseYear)
}
