package discover

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"time"

	"gameboxr/internal/auth"
	"gameboxr/internal/cache"
	"gameboxr/internal/config"
	"gameboxr/internal/igdb"
	"gameboxr/pkg/models"

	"go.uber.org/zap"
)

// TokenProvider hands out the upstream access token
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
	Invalidate()
}

// Catalog fetches raw upstream pages
type Catalog interface {
	FetchPage(ctx context.Context, accessToken string, page, pageSize int) ([]igdb.RawGame, error)
}

// JudgedStore returns the ids a user already judged
type JudgedStore interface {
	JudgedGameIDs(ctx context.Context, userID string) ([]int64, error)
}

// PageCache stores normalized upstream pages
type PageCache interface {
	GetCatalogPage(ctx context.Context, page, pageSize int) ([]models.GameSummary, error)
	SetCatalogPage(ctx context.Context, page, pageSize int, games []models.GameSummary, expiration time.Duration) error
}

// Service assembles discovery pages
type Service struct {
	tokens   TokenProvider
	catalog  Catalog
	judged   JudgedStore
	pageSize int
	shuffled bool
	logger   *zap.Logger

	pages    PageCache
	pagesTTL time.Duration

	shuffle func(n int, swap func(i, j int))
}

// NewService creates a discovery service
func NewService(tokens TokenProvider, catalog Catalog, judged JudgedStore, cfg config.DiscoverConfig, logger *zap.Logger) *Service {
	return &Service{
		tokens:   tokens,
		catalog:  catalog,
		judged:   judged,
		pageSize: cfg.PageSize,
		shuffled: !cfg.ShuffleDisabled,
		logger:   logger,
		shuffle:  rand.Shuffle,
	}
}

// WithPageCache enables caching of normalized upstream pages for ttl
func (s *Service) WithPageCache(pages PageCache, ttl time.Duration) *Service {
	if pages != nil && ttl > 0 {
		s.pages = pages
		s.pagesTTL = ttl
	}
	return s
}

// WithRand makes the shuffle deterministic. The source must not be shared.
func (s *Service) WithRand(r *rand.Rand) *Service {
	s.shuffle = r.Shuffle
	return s
}

// PageSize returns the number of upstream records requested per page
func (s *Service) PageSize() int {
	return s.pageSize
}

// Discover returns one page of the feed for the caller.
// Verified callers never see games they already judged.
func (s *Service) Discover(ctx context.Context, page int, v auth.Verification) ([]models.GameSummary, error) {
	if page < 0 {
		return nil, fmt.Errorf("page must be non-negative, got %d", page)
	}
	if s.pageSize > 0 && page > math.MaxInt/s.pageSize {
		return nil, fmt.Errorf("page %d out of range for page size %d", page, s.pageSize)
	}

	games, err := s.page(ctx, page)
	if err != nil {
		return nil, err
	}

	if v.Verified {
		judged, err := s.judgedSet(ctx, v.UserID)
		if err != nil {
			return nil, err
		}
		games = Exclude(games, judged)
	}

	if s.shuffled {
		// shuffle a copy so a cached page keeps its upstream order
		out := make([]models.GameSummary, len(games))
		copy(out, games)
		s.shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
		games = out
	}

	if games == nil {
		games = []models.GameSummary{}
	}
	return games, nil
}

func (s *Service) page(ctx context.Context, page int) ([]models.GameSummary, error) {
	if s.pages != nil {
		games, err := s.pages.GetCatalogPage(ctx, page, s.pageSize)
		if err == nil {
			return games, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("Failed to read cached catalog page", zap.Int("page", page), zap.Error(err))
		}
	}

	token, err := s.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	raws, err := s.catalog.FetchPage(ctx, token, page, s.pageSize)
	if err != nil {
		var fetchErr *igdb.CatalogFetchError
		if errors.As(err, &fetchErr) && fetchErr.StatusCode == http.StatusUnauthorized {
			s.tokens.Invalidate()
		}
		return nil, err
	}

	games := igdb.NormalizeAll(raws)

	if s.pages != nil {
		if err := s.pages.SetCatalogPage(ctx, page, s.pageSize, games, s.pagesTTL); err != nil {
			s.logger.Warn("Failed to cache catalog page", zap.Int("page", page), zap.Error(err))
		}
	}
	return games, nil
}

func (s *Service) judgedSet(ctx context.Context, userID string) (JudgedSet, error) {
	if s.judged == nil {
		return nil, nil
	}
	ids, err := s.judged.JudgedGameIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load judged games: %w", err)
	}
	return NewJudgedSet(ids), nil
}
