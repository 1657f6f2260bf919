package models

import (
	"strconv"
	"strings"
	"time"
)

// SwipeDirection is the direction a card leaves the deck.
// Right is an affirmative action (rate or wishlist), left is a skip.
type SwipeDirection string

const (
	SwipeLeft  SwipeDirection = "left"
	SwipeRight SwipeDirection = "right"
)

// RatingStatus is the kind of judgement a user stored for a game
type RatingStatus string

const (
	StatusRated    RatingStatus = "rated"
	StatusWishlist RatingStatus = "wishlist"
)

// Valid reports whether s is a known rating status
func (s RatingStatus) Valid() bool {
	return s == StatusRated || s == StatusWishlist
}

// GameSummary is the canonical catalog item served by the discovery feed.
// It is never mutated after normalization.
type GameSummary struct {
	GameID      int64    `json:"gameId"`
	Title       string   `json:"title"`
	Cover       *string  `json:"cover"`
	Released    *string  `json:"released"`
	Rating      *float64 `json:"rating"`
	TotalRating *float64 `json:"totalRating"`
	Platforms   []string `json:"platforms"`
	Genres      []string `json:"genres"`
}

// ReleaseYear returns the year component of Released, if any
func (g GameSummary) ReleaseYear() *int {
	if g.Released == nil {
		return nil
	}
	year, err := strconv.Atoi(strings.SplitN(*g.Released, "-", 2)[0])
	if err != nil {
		return nil
	}
	return &year
}

// User represents a user in the system
type User struct {
	ID         string    `json:"id" db:"id"`
	Email      string    `json:"email" db:"email"`
	Name       string    `json:"name" db:"name"`
	Avatar     string    `json:"avatar" db:"avatar"`
	Provider   string    `json:"provider" db:"provider"`
	ProviderID string    `json:"provider_id" db:"provider_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// Game is the local copy of a catalog entry, written the first time anyone rates it
type Game struct {
	ID          int64   `json:"id" db:"id"`
	Title       string  `json:"title" db:"title"`
	CoverImage  *string `json:"coverImage" db:"cover_image"`
	Platforms   *string `json:"platforms" db:"platforms"`
	Genres      *string `json:"genres" db:"genres"`
	ReleaseYear *int    `json:"releaseYear" db:"release_year"`
}

// Rating is a stored rating or wishlist row, unique per (UserID, GameID)
type Rating struct {
	ID          string       `json:"id" db:"id"`
	UserID      string       `json:"userId" db:"user_id"`
	GameID      int64        `json:"gameId" db:"game_id"`
	Title       string       `json:"title" db:"title"`
	CoverImage  *string      `json:"coverImage" db:"cover_image"`
	Platforms   *string      `json:"platforms" db:"platforms"`
	Genres      *string      `json:"genres" db:"genres"`
	ReleaseYear *int         `json:"releaseYear" db:"release_year"`
	Stars       *int         `json:"stars" db:"stars"`
	Status      RatingStatus `json:"status" db:"status"`
	CreatedAt   time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time    `json:"updatedAt" db:"updated_at"`
}

// RateRequest is the body of POST /rate
type RateRequest struct {
	GameID      int64        `json:"gameId" binding:"required"`
	Stars       *int         `json:"stars" binding:"omitempty,min=0,max=5"`
	Status      RatingStatus `json:"status" binding:"required"`
	Title       string       `json:"title"`
	CoverImage  *string      `json:"coverImage"`
	Platforms   []string     `json:"platforms"`
	Genres      []string     `json:"genres"`
	ReleaseYear *int         `json:"releaseYear"`
}

// NewRateRequest builds the request the deck sends for a judged game
func NewRateRequest(g GameSummary, status RatingStatus, stars *int) RateRequest {
	return RateRequest{
		GameID:      g.GameID,
		Stars:       stars,
		Status:      status,
		Title:       g.Title,
		CoverImage:  g.Cover,
		Platforms:   g.Platforms,
		Genres:      g.Genres,
		ReleaseYear: g.ReleaseYear(),
	}
}

// ToRating converts the request into the row stored for userID.
// Platforms and genres are stored comma-joined.
func (r RateRequest) ToRating(userID string) *Rating {
	title := r.Title
	if title == "" {
		title = "Unknown"
	}
	return &Rating{
		UserID:      userID,
		GameID:      r.GameID,
		Title:       title,
		CoverImage:  r.CoverImage,
		Platforms:   joinList(r.Platforms),
		Genres:      joinList(r.Genres),
		ReleaseYear: r.ReleaseYear,
		Stars:       r.Stars,
		Status:      r.Status,
	}
}

// ToGame converts the request into the local catalog row
func (r RateRequest) ToGame() *Game {
	rating := r.ToRating("")
	return &Game{
		ID:          r.GameID,
		Title:       rating.Title,
		CoverImage:  rating.CoverImage,
		Platforms:   rating.Platforms,
		Genres:      rating.Genres,
		ReleaseYear: rating.ReleaseYear,
	}
}

func joinList(items []string) *string {
	if items == nil {
		return nil
	}
	joined := strings.Join(items, ",")
	return &joined
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
