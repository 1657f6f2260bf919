package handlers

import (
	"context"
	"fmt"
	"net/http"

	"gameboxr/internal/database"
	"gameboxr/pkg/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CatalogInvalidator drops cached upstream pages
type CatalogInvalidator interface {
	InvalidateCatalog(ctx context.Context) error
}

// RatingsHandler handles rating and wishlist requests
type RatingsHandler struct {
	db     database.Database
	cache  CatalogInvalidator
	admins map[string]struct{}
	logger *zap.Logger
}

// NewRatingsHandler creates a new ratings handler. cache may be nil.
func NewRatingsHandler(db database.Database, cache CatalogInvalidator, adminIDs []string, logger *zap.Logger) *RatingsHandler {
	admins := make(map[string]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &RatingsHandler{
		db:     db,
		cache:  cache,
		admins: admins,
		logger: logger,
	}
}

// Rate stores a rating or wishlist entry for the authenticated user
func (h *RatingsHandler) Rate(c *gin.Context) {
	v := VerificationFrom(c)

	var req models.RateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Missing gameId or status",
			Details: err.Error(),
		})
		return
	}

	if !req.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Invalid status. Must be one of: %s, %s", models.StatusRated, models.StatusWishlist),
		})
		return
	}

	ctx := c.Request.Context()

	// Cache the game locally
	if err := h.db.UpsertGame(ctx, req.ToGame()); err != nil {
		h.logger.Error("Failed to cache game", zap.Int64("game_id", req.GameID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to save rating",
		})
		return
	}

	rating := req.ToRating(v.UserID)
	if err := h.db.UpsertRating(ctx, rating); err != nil {
		h.logger.Error("Failed to save rating",
			zap.String("user_id", v.UserID), zap.Int64("game_id", req.GameID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to save rating",
		})
		return
	}

	c.JSON(http.StatusOK, rating)
}

// MyRatings lists the authenticated user's ratings, newest first
func (h *RatingsHandler) MyRatings(c *gin.Context) {
	v := VerificationFrom(c)

	ratings, err := h.db.ListRatings(c.Request.Context(), v.UserID)
	if err != nil {
		h.logger.Error("Failed to fetch ratings", zap.String("user_id", v.UserID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to fetch ratings",
		})
		return
	}

	if ratings == nil {
		ratings = []models.Rating{}
	}
	c.JSON(http.StatusOK, ratings)
}

// RefreshCatalog drops every cached upstream page.
// Only accessible by configured admin users.
func (h *RatingsHandler) RefreshCatalog(c *gin.Context) {
	v := VerificationFrom(c)
	if _, ok := h.admins[v.UserID]; !ok {
		c.JSON(http.StatusForbidden, gin.H{
			"error": "Access denied. Admin privileges required.",
		})
		return
	}

	if h.cache == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Cache service not available",
		})
		return
	}

	if err := h.cache.InvalidateCatalog(c.Request.Context()); err != nil {
		h.logger.Error("Failed to invalidate catalog cache", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to refresh catalog cache",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Catalog cache refreshed",
	})
}
