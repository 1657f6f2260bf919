package models

import (
	"time"

	"github.com/google/uuid"
)

// GormUser represents a user in the system using GORM
type GormUser struct {
	ID         string    `gorm:"primaryKey;type:varchar(255)" json:"id"`
	Email      string    `gorm:"type:varchar(255);not null" json:"email"`
	Name       string    `gorm:"type:varchar(255);not null" json:"name"`
	Avatar     string    `gorm:"type:varchar(500)" json:"avatar"`
	Provider   string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_users_provider" json:"provider"`
	ProviderID string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_users_provider" json:"provider_id"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Ratings []GormGameRating `gorm:"foreignKey:UserID" json:"ratings,omitempty"`
}

// TableName specifies the table name for GormUser
func (GormUser) TableName() string {
	return "users"
}

// ToUser converts GormUser to User
func (gu *GormUser) ToUser() *User {
	return &User{
		ID:         gu.ID,
		Email:      gu.Email,
		Name:       gu.Name,
		Avatar:     gu.Avatar,
		Provider:   gu.Provider,
		ProviderID: gu.ProviderID,
		CreatedAt:  gu.CreatedAt,
		UpdatedAt:  gu.UpdatedAt,
	}
}

// FromUser converts User to GormUser
func (gu *GormUser) FromUser(u *User) {
	gu.ID = u.ID
	gu.Email = u.Email
	gu.Name = u.Name
	gu.Avatar = u.Avatar
	gu.Provider = u.Provider
	gu.ProviderID = u.ProviderID
	gu.CreatedAt = u.CreatedAt
	gu.UpdatedAt = u.UpdatedAt
}

// GormGame is the local catalog cache row. The ID is the upstream game id.
type GormGame struct {
	ID          int64     `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Title       string    `gorm:"type:varchar(500);not null" json:"title"`
	CoverImage  *string   `gorm:"type:varchar(1000)" json:"cover_image"`
	Platforms   *string   `gorm:"type:text" json:"platforms"`
	Genres      *string   `gorm:"type:text" json:"genres"`
	ReleaseYear *int      `json:"release_year"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for GormGame
func (GormGame) TableName() string {
	return "games"
}

// ToGame converts GormGame to Game
func (gg *GormGame) ToGame() *Game {
	return &Game{
		ID:          gg.ID,
		Title:       gg.Title,
		CoverImage:  gg.CoverImage,
		Platforms:   gg.Platforms,
		Genres:      gg.Genres,
		ReleaseYear: gg.ReleaseYear,
	}
}

// FromGame converts Game to GormGame
func (gg *GormGame) FromGame(g *Game) {
	gg.ID = g.ID
	gg.Title = g.Title
	gg.CoverImage = g.CoverImage
	gg.Platforms = g.Platforms
	gg.Genres = g.Genres
	gg.ReleaseYear = g.ReleaseYear
}

// GormGameRating is a user's rating or wishlist entry for one game
type GormGameRating struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID      string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_ratings_user_game;index:idx_ratings_user_created,priority:1" json:"user_id"`
	GameID      int64     `gorm:"not null;uniqueIndex:idx_ratings_user_game" json:"game_id"`
	Title       string    `gorm:"type:varchar(500);not null" json:"title"`
	CoverImage  *string   `gorm:"type:varchar(1000)" json:"cover_image"`
	Platforms   *string   `gorm:"type:text" json:"platforms"`
	Genres      *string   `gorm:"type:text" json:"genres"`
	ReleaseYear *int      `json:"release_year"`
	Stars       *int      `json:"stars"`
	Status      string    `gorm:"type:varchar(20);not null" json:"status"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index:idx_ratings_user_created,priority:2" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	User GormUser `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
}

// TableName specifies the table name for GormGameRating
func (GormGameRating) TableName() string {
	return "game_ratings"
}

// ToRating converts GormGameRating to Rating
func (gr *GormGameRating) ToRating() *Rating {
	return &Rating{
		ID:          gr.ID.String(),
		UserID:      gr.UserID,
		GameID:      gr.GameID,
		Title:       gr.Title,
		CoverImage:  gr.CoverImage,
		Platforms:   gr.Platforms,
		Genres:      gr.Genres,
		ReleaseYear: gr.ReleaseYear,
		Stars:       gr.Stars,
		Status:      RatingStatus(gr.Status),
		CreatedAt:   gr.CreatedAt,
		UpdatedAt:   gr.UpdatedAt,
	}
}

// FromRating converts Rating to GormGameRating
func (gr *GormGameRating) FromRating(r *Rating) {
	if id, err := uuid.Parse(r.ID); err == nil {
		gr.ID = id
	}
	gr.UserID = r.UserID
	gr.GameID = r.GameID
	gr.Title = r.Title
	gr.CoverImage = r.CoverImage
	gr.Platforms = r.Platforms
	gr.Genres = r.Genres
	gr.ReleaseYear = r.ReleaseYear
	gr.Stars = r.Stars
	gr.Status = string(r.Status)
	gr.CreatedAt = r.CreatedAt
	gr.UpdatedAt = r.UpdatedAt
}
