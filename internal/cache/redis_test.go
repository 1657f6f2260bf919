package cache

import (
	"context"
	"testing"
	"time"

	"gameboxr/pkg/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTest(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewRedisCacheFromClient(client, zap.NewNop())

	t.Cleanup(func() {
		_ = c.Close()
		mr.Close()
	})
	return c, mr
}

func TestOAuth2StateIsOneTime(t *testing.T) {
	c, _ := setupTest(t)
	ctx := context.Background()

	require.NoError(t, c.SetOAuth2State(ctx, "abc", time.Minute))
	assert.True(t, c.ValidateOAuth2State(ctx, "abc"))
	assert.False(t, c.ValidateOAuth2State(ctx, "abc"))
	assert.False(t, c.ValidateOAuth2State(ctx, "never-set"))
}

func TestOAuth2StateExpires(t *testing.T) {
	c, mr := setupTest(t)
	ctx := context.Background()

	require.NoError(t, c.SetOAuth2State(ctx, "abc", time.Minute))
	mr.FastForward(2 * time.Minute)
	assert.False(t, c.ValidateOAuth2State(ctx, "abc"))
}

func TestCatalogPageRoundTrip(t *testing.T) {
	c, mr := setupTest(t)
	ctx := context.Background()

	cover := "https://images.igdb.com/igdb/image/upload/t_1080p/a.jpg"
	page := []models.GameSummary{
		{GameID: 1, Title: "A", Cover: &cover, Platforms: []string{"PC"}, Genres: []string{}},
		{GameID: 2, Title: "B", Platforms: []string{}, Genres: []string{"Indie"}},
	}

	_, err := c.GetCatalogPage(ctx, 0, 40)
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.SetCatalogPage(ctx, 0, 40, page, time.Minute))
	got, err := c.GetCatalogPage(ctx, 0, 40)
	require.NoError(t, err)
	assert.Equal(t, page, got)

	// page size is part of the key
	_, err = c.GetCatalogPage(ctx, 0, 20)
	assert.ErrorIs(t, err, ErrCacheMiss)

	mr.FastForward(2 * time.Minute)
	_, err = c.GetCatalogPage(ctx, 0, 40)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestInvalidateCatalog(t *testing.T) {
	c, mr := setupTest(t)
	ctx := context.Background()

	require.NoError(t, c.SetCatalogPage(ctx, 0, 40, []models.GameSummary{{GameID: 1}}, time.Minute))
	require.NoError(t, c.SetCatalogPage(ctx, 1, 40, []models.GameSummary{{GameID: 2}}, time.Minute))
	require.NoError(t, c.Set(ctx, "other", "kept", time.Minute))

	require.NoError(t, c.InvalidateCatalog(ctx))
	assert.False(t, mr.Exists(catalogKey(0, 40)))
	assert.False(t, mr.Exists(catalogKey(1, 40)))
	assert.True(t, mr.Exists("other"))

	// empty keyspace is fine
	require.NoError(t, c.InvalidateCatalog(ctx))
}

func TestCorruptCatalogPageIsDropped(t *testing.T) {
	c, mr := setupTest(t)
	ctx := context.Background()

	require.NoError(t, mr.Set(catalogKey(3, 40), `{"not": "a list"`))

	_, err := c.GetCatalogPage(ctx, 3, 40)
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.False(t, mr.Exists(catalogKey(3, 40)))
}

func TestGenericOperations(t *testing.T) {
	c, mr := setupTest(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", map[string]int{"a": 1}, 0))
	var out map[string]int
	require.NoError(t, c.Get(ctx, "k", &out))
	assert.Equal(t, 1, out["a"])

	require.NoError(t, c.Set(ctx, "bad", "text", 0))
	assert.ErrorIs(t, c.Get(ctx, "bad", &out), ErrCorruptValue)

	require.NoError(t, c.Delete(ctx, "k"))
	assert.False(t, mr.Exists("k"))
	assert.ErrorIs(t, c.Get(ctx, "k", &out), ErrCacheMiss)
}
