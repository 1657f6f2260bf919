package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gameboxr/pkg/models"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// PostgresDB wraps the database connection and implements Database interface
type PostgresDB struct {
	db *sql.DB
}

// Ensure PostgresDB implements Database interface
var _ Database = (*PostgresDB)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id          VARCHAR(255) PRIMARY KEY,
	email       VARCHAR(255) NOT NULL,
	name        VARCHAR(255) NOT NULL,
	avatar      VARCHAR(500),
	provider    VARCHAR(50)  NOT NULL,
	provider_id VARCHAR(255) NOT NULL,
	created_at  TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
	updated_at  TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
	UNIQUE (provider, provider_id)
);

CREATE TABLE IF NOT EXISTS games (
	id           BIGINT PRIMARY KEY,
	title        VARCHAR(500) NOT NULL,
	cover_image  VARCHAR(1000),
	platforms    TEXT,
	genres       TEXT,
	release_year INTEGER,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS game_ratings (
	id           UUID PRIMARY KEY,
	user_id      VARCHAR(255) NOT NULL REFERENCES users(id),
	game_id      BIGINT NOT NULL,
	title        VARCHAR(500) NOT NULL,
	cover_image  VARCHAR(1000),
	platforms    TEXT,
	genres       TEXT,
	release_year INTEGER,
	stars        INTEGER,
	status       VARCHAR(20) NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_ratings_user_game ON game_ratings (user_id, game_id);
CREATE INDEX IF NOT EXISTS idx_ratings_user_created ON game_ratings (user_id, created_at);
`

// NewPostgresDB creates a new PostgreSQL database connection
func NewPostgresDB(ctx context.Context, dsn string, logger *zap.Logger) (*PostgresDB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	logger.Info("Successfully connected to PostgreSQL database")

	p := NewPostgresDBFromConn(db)
	if err := p.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return p, nil
}

// NewPostgresDBFromConn wraps an open connection
func NewPostgresDBFromConn(db *sql.DB) *PostgresDB {
	return &PostgresDB{db: db}
}

// Migrate creates the schema if it does not exist
func (p *PostgresDB) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (p *PostgresDB) Close() error {
	return p.db.Close()
}

// CreateUser creates a user, or refreshes the profile of an existing provider identity
func (p *PostgresDB) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, name, avatar, provider, provider_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (provider, provider_id)
		DO UPDATE SET
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			avatar = EXCLUDED.avatar,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at`

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	err := p.db.QueryRowContext(ctx, query, user.ID, user.Email, user.Name, user.Avatar,
		user.Provider, user.ProviderID, user.CreatedAt, user.UpdatedAt).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUser retrieves a user by ID
func (p *PostgresDB) GetUser(ctx context.Context, userID string) (*models.User, error) {
	query := `
		SELECT id, email, name, avatar, provider, provider_id, created_at, updated_at
		FROM users WHERE id = $1`

	return p.scanUser(p.db.QueryRowContext(ctx, query, userID))
}

// GetUserByProvider retrieves a user by provider and provider ID
func (p *PostgresDB) GetUserByProvider(ctx context.Context, provider, providerID string) (*models.User, error) {
	query := `
		SELECT id, email, name, avatar, provider, provider_id, created_at, updated_at
		FROM users WHERE provider = $1 AND provider_id = $2`

	return p.scanUser(p.db.QueryRowContext(ctx, query, provider, providerID))
}

func (p *PostgresDB) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var avatar sql.NullString
	err := row.Scan(
		&user.ID, &user.Email, &user.Name, &avatar,
		&user.Provider, &user.ProviderID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	user.Avatar = avatar.String

	return user, nil
}

// UpsertGame inserts the catalog row unless one already exists
func (p *PostgresDB) UpsertGame(ctx context.Context, game *models.Game) error {
	query := `
		INSERT INTO games (id, title, cover_image, platforms, genres, release_year)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`

	_, err := p.db.ExecContext(ctx, query, game.ID, game.Title, game.CoverImage,
		game.Platforms, game.Genres, game.ReleaseYear)
	if err != nil {
		return fmt.Errorf("failed to upsert game: %w", err)
	}
	return nil
}

const ratingColumns = `id, user_id, game_id, title, cover_image, platforms, genres,
		release_year, stars, status, created_at, updated_at`

// UpsertRating creates or replaces the user's rating for a game.
// created_at is kept on update.
func (p *PostgresDB) UpsertRating(ctx context.Context, rating *models.Rating) error {
	query := `
		INSERT INTO game_ratings (id, user_id, game_id, title, cover_image, platforms, genres,
			release_year, stars, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		ON CONFLICT (user_id, game_id)
		DO UPDATE SET
			title = EXCLUDED.title,
			cover_image = EXCLUDED.cover_image,
			platforms = EXCLUDED.platforms,
			genres = EXCLUDED.genres,
			release_year = EXCLUDED.release_year,
			stars = EXCLUDED.stars,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + ratingColumns

	id := rating.ID
	if id == "" {
		id = uuid.New().String()
	}

	row := p.db.QueryRowContext(ctx, query, id, rating.UserID, rating.GameID, rating.Title,
		rating.CoverImage, rating.Platforms, rating.Genres, rating.ReleaseYear,
		rating.Stars, string(rating.Status), time.Now())

	stored, err := scanRating(row)
	if err != nil {
		return fmt.Errorf("failed to upsert rating: %w", err)
	}
	*rating = *stored
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRating(s scanner) (*models.Rating, error) {
	r := &models.Rating{}
	var (
		cover, platforms, genres sql.NullString
		year, stars              sql.NullInt64
		status                   string
	)
	err := s.Scan(&r.ID, &r.UserID, &r.GameID, &r.Title, &cover, &platforms, &genres,
		&year, &stars, &status, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.CoverImage = nullString(cover)
	r.Platforms = nullString(platforms)
	r.Genres = nullString(genres)
	r.ReleaseYear = nullInt(year)
	r.Stars = nullInt(stars)
	r.Status = models.RatingStatus(status)
	return r, nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

// ListRatings returns the user's ratings, newest first
func (p *PostgresDB) ListRatings(ctx context.Context, userID string) ([]models.Rating, error) {
	query := `SELECT ` + ratingColumns + `
		FROM game_ratings WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := p.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ratings: %w", err)
	}
	defer rows.Close()

	ratings := make([]models.Rating, 0)
	for rows.Next() {
		r, err := scanRating(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		ratings = append(ratings, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ratings: %w", err)
	}
	return ratings, nil
}

// JudgedGameIDs returns the ids of every game the user rated or wishlisted
func (p *PostgresDB) JudgedGameIDs(ctx context.Context, userID string) ([]int64, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT game_id FROM game_ratings WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load judged games: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan game id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate judged games: %w", err)
	}
	return ids, nil
}
