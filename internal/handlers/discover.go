package handlers

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"

	"gameboxr/internal/auth"
	"gameboxr/internal/igdb"
	"gameboxr/pkg/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Discoverer assembles feed pages
type Discoverer interface {
	Discover(ctx context.Context, page int, v auth.Verification) ([]models.GameSummary, error)
	PageSize() int
}

// DiscoverHandler serves the discovery feed
type DiscoverHandler struct {
	feed   Discoverer
	logger *zap.Logger
}

// NewDiscoverHandler creates a new discovery handler
func NewDiscoverHandler(feed Discoverer, logger *zap.Logger) *DiscoverHandler {
	return &DiscoverHandler{
		feed:   feed,
		logger: logger,
	}
}

// GetDiscover returns one shuffled page of games the caller has not judged.
// Authentication is optional; a bad token is treated as anonymous.
func (h *DiscoverHandler) GetDiscover(c *gin.Context) {
	page := 0
	if raw := c.Query("page"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil || p < 0 || p > h.maxPage() {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid page. Must be a non-negative integer",
			})
			return
		}
		page = p
	}

	games, err := h.feed.Discover(c.Request.Context(), page, VerificationFrom(c))
	if err != nil {
		h.writeFeedError(c, page, err)
		return
	}

	c.JSON(http.StatusOK, games)
}

// maxPage is the largest page whose upstream offset fits in an int
func (h *DiscoverHandler) maxPage() int {
	size := h.feed.PageSize()
	if size <= 0 {
		return math.MaxInt
	}
	return math.MaxInt / size
}

func (h *DiscoverHandler) writeFeedError(c *gin.Context, page int, err error) {
	var fetchErr *igdb.CatalogFetchError
	switch {
	case errors.As(err, &fetchErr):
		h.logger.Error("IGDB error", zap.Int("page", page),
			zap.Int("status", fetchErr.StatusCode), zap.String("body", fetchErr.Body))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "Failed to fetch games from IGDB",
			Details: fetchErr.Body,
		})
	case errors.Is(err, igdb.ErrMalformedUpstreamResponse):
		h.logger.Error("Unexpected IGDB response", zap.Int("page", page), zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: "Unexpected IGDB response",
		})
	default:
		h.logger.Error("Failed to fetch games", zap.Int("page", page), zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "Failed to fetch games",
			Details: err.Error(),
		})
	}
}
