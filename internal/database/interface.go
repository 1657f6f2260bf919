package database

import (
	"context"
	"errors"

	"gameboxr/pkg/models"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

// Database defines the interface for database operations
type Database interface {
	// User operations
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, userID string) (*models.User, error)
	GetUserByProvider(ctx context.Context, provider, providerID string) (*models.User, error)

	// Catalog cache. An existing row is left untouched.
	UpsertGame(ctx context.Context, game *models.Game) error

	// Rating operations, unique per (user, game)
	UpsertRating(ctx context.Context, rating *models.Rating) error
	ListRatings(ctx context.Context, userID string) ([]models.Rating, error)
	JudgedGameIDs(ctx context.Context, userID string) ([]int64, error)

	// Connection management
	Close() error
}
