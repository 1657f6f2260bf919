package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gameboxr/pkg/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// GormDB wraps the GORM database connection and implements Database interface
type GormDB struct {
	db *gorm.DB
}

// Ensure GormDB implements Database interface
var _ Database = (*GormDB)(nil)

// NewGormDB creates a new GORM database connection
func NewGormDB(dsn string, zl *zap.Logger) (*GormDB, error) {
	// Configure GORM logger
	gormLogger := logger.New(
		zap.NewStdLog(zl.Named("gorm")),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	gormDB, err := NewGormDBFromConn(db)
	if err != nil {
		return nil, err
	}

	zl.Info("Successfully connected to PostgreSQL database with GORM")

	// Auto-migrate the schema
	if err := gormDB.AutoMigrate(); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate: %w", err)
	}

	return gormDB, nil
}

// NewGormDBFromConn wraps an open GORM connection and configures its pool
func NewGormDBFromConn(db *gorm.DB) (*GormDB, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Set connection pool settings
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &GormDB{db: db}, nil
}

// AutoMigrate runs database migrations
func (g *GormDB) AutoMigrate() error {
	return g.db.AutoMigrate(
		&models.GormUser{},
		&models.GormGame{},
		&models.GormGameRating{},
	)
}

// Close closes the database connection
func (g *GormDB) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateUser creates a user, or refreshes the profile of an existing provider identity
func (g *GormDB) CreateUser(ctx context.Context, user *models.User) error {
	gormUser := &models.GormUser{}
	gormUser.FromUser(user)

	result := g.db.WithContext(ctx).
		Where("provider = ? AND provider_id = ?", user.Provider, user.ProviderID).
		Assign(models.GormUser{
			Email:     user.Email,
			Name:      user.Name,
			Avatar:    user.Avatar,
			UpdatedAt: time.Now(),
		}).
		FirstOrCreate(gormUser)

	if result.Error != nil {
		return fmt.Errorf("failed to create user: %w", result.Error)
	}

	// Update the original user with the database values
	*user = *gormUser.ToUser()
	return nil
}

// GetUser retrieves a user by ID
func (g *GormDB) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var gormUser models.GormUser
	result := g.db.WithContext(ctx).Where("id = ?", userID).First(&gormUser)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", result.Error)
	}

	return gormUser.ToUser(), nil
}

// GetUserByProvider retrieves a user by provider and provider ID
func (g *GormDB) GetUserByProvider(ctx context.Context, provider, providerID string) (*models.User, error) {
	var gormUser models.GormUser
	result := g.db.WithContext(ctx).
		Where("provider = ? AND provider_id = ?", provider, providerID).
		First(&gormUser)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by provider: %w", result.Error)
	}

	return gormUser.ToUser(), nil
}

// UpsertGame inserts the catalog row unless one already exists
func (g *GormDB) UpsertGame(ctx context.Context, game *models.Game) error {
	gormGame := &models.GormGame{}
	gormGame.FromGame(game)

	result := g.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(gormGame)
	if result.Error != nil {
		return fmt.Errorf("failed to upsert game: %w", result.Error)
	}
	return nil
}

// UpsertRating creates or replaces the user's rating for a game.
// created_at is kept on update.
func (g *GormDB) UpsertRating(ctx context.Context, rating *models.Rating) error {
	row := &models.GormGameRating{}
	row.FromRating(rating)
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	now := time.Now()
	row.CreatedAt = now
	row.UpdatedAt = now

	result := g.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "game_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title", "cover_image", "platforms", "genres",
				"release_year", "stars", "status", "updated_at",
			}),
		}).
		Create(row)
	if result.Error != nil {
		return fmt.Errorf("failed to upsert rating: %w", result.Error)
	}

	var stored models.GormGameRating
	if err := g.db.WithContext(ctx).
		Where("user_id = ? AND game_id = ?", rating.UserID, rating.GameID).
		First(&stored).Error; err != nil {
		return fmt.Errorf("failed to reload rating: %w", err)
	}

	*rating = *stored.ToRating()
	return nil
}

// ListRatings returns the user's ratings, newest first
func (g *GormDB) ListRatings(ctx context.Context, userID string) ([]models.Rating, error) {
	var rows []models.GormGameRating
	result := g.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list ratings: %w", result.Error)
	}

	ratings := make([]models.Rating, 0, len(rows))
	for i := range rows {
		ratings = append(ratings, *rows[i].ToRating())
	}
	return ratings, nil
}

// JudgedGameIDs returns the ids of every game the user rated or wishlisted
func (g *GormDB) JudgedGameIDs(ctx context.Context, userID string) ([]int64, error) {
	var ids []int64
	result := g.db.WithContext(ctx).
		Model(&models.GormGameRating{}).
		Where("user_id = ?", userID).
		Pluck("game_id", &ids)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to load judged games: %w", result.Error)
	}
	return ids, nil
}

// GetDB returns the underlying GORM database instance
func (g *GormDB) GetDB() *gorm.DB {
	return g.db
}
