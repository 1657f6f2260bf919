package deck

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gameboxr/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFeed struct {
	mu      sync.Mutex
	pages   map[int][]models.GameSummary
	errs    map[int]error
	calls   []int
	release chan struct{}
	started chan int
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{
		pages:   map[int][]models.GameSummary{},
		errs:    map[int]error{},
		started: make(chan int, 16),
	}
}

func (f *fakeFeed) Discover(ctx context.Context, page int) ([]models.GameSummary, error) {
	f.mu.Lock()
	f.calls = append(f.calls, page)
	release := f.release
	games, err := f.pages[page], f.errs[page]
	f.mu.Unlock()

	if page > 0 {
		f.started <- page
		if release != nil {
			<-release
		}
	}
	return games, err
}

func (f *fakeFeed) Calls() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.calls...)
}

type fakeWriter struct {
	mu   sync.Mutex
	err  error
	reqs []models.RateRequest
}

func (w *fakeWriter) Rate(ctx context.Context, req models.RateRequest) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reqs = append(w.reqs, req)
	return w.err
}

func (w *fakeWriter) setErr(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.err = err
}

func (w *fakeWriter) Requests() []models.RateRequest {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]models.RateRequest(nil), w.reqs...)
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) record(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) Types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]EventType, 0, len(r.events))
	for _, e := range r.events {
		types = append(types, e.Type)
	}
	return types
}

func (r *recorder) Last() Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

func cards(from, n int) []models.GameSummary {
	out := make([]models.GameSummary, 0, n)
	for i := 0; i < n; i++ {
		released := "2020-06-01"
		out = append(out, models.GameSummary{
			GameID:    int64(from + i),
			Title:     "game",
			Released:  &released,
			Platforms: []string{"PC"},
			Genres:    []string{},
		})
	}
	return out
}

func newTestDeck(t *testing.T, feed *fakeFeed, writer *fakeWriter) (*Deck, *recorder) {
	t.Helper()
	rec := &recorder{}
	d := New(feed, writer, Options{OnEvent: rec.record})
	require.NoError(t, d.Load(context.Background()))
	return d, rec
}

func advance(t *testing.T, d *Deck) {
	t.Helper()
	require.NoError(t, d.Skip())
	require.NoError(t, d.ExitComplete(context.Background()))
}

func waitStarted(t *testing.T, feed *fakeFeed, page int) {
	t.Helper()
	select {
	case got := <-feed.started:
		require.Equal(t, page, got)
	case <-time.After(2 * time.Second):
		t.Fatalf("fetch for page %d never started", page)
	}
}

func TestLoad(t *testing.T) {
	feed := newFakeFeed()
	feed.pages[0] = cards(1, 10)
	d, _ := newTestDeck(t, feed, &fakeWriter{})

	snap := d.Snapshot()
	assert.Equal(t, 10, snap.Len)
	assert.Equal(t, 0, snap.Cursor)
	assert.Equal(t, 0, snap.Page)
	assert.Equal(t, StateIdle, snap.State)

	head, ok := d.Current()
	require.True(t, ok)
	assert.Equal(t, int64(1), head.GameID)
}

func TestLoadFailure(t *testing.T) {
	feed := newFakeFeed()
	feed.errs[0] = errors.New("offline")
	d := New(feed, &fakeWriter{}, Options{})

	assert.Error(t, d.Load(context.Background()))
	_, ok := d.Current()
	assert.False(t, ok)
}

func TestPrefetchTriggersOncePerFlight(t *testing.T) {
	feed := newFakeFeed()
	feed.pages[0] = cards(1, 10)
	feed.pages[1] = cards(11, 5)
	feed.release = make(chan struct{})
	d, rec := newTestDeck(t, feed, &fakeWriter{})

	for i := 0; i < 6; i++ {
		advance(t, d)
	}
	assert.Equal(t, 6, d.Snapshot().Cursor)
	assert.Equal(t, []int{0}, feed.Calls())

	// 10 - 7 = 3 remaining
	advance(t, d)
	waitStarted(t, feed, 1)
	assert.Equal(t, []int{0, 1}, feed.Calls())
	assert.True(t, d.Snapshot().FetchInFlight)

	// coalesced, not queued
	advance(t, d)
	assert.Equal(t, []int{0, 1}, feed.Calls())

	close(feed.release)
	d.Wait()

	snap := d.Snapshot()
	assert.Equal(t, 15, snap.Len)
	assert.Equal(t, 8, snap.Cursor)
	assert.Equal(t, 1, snap.Page)
	assert.False(t, snap.FetchInFlight)
	assert.Equal(t, []EventType{EventFetchSucceeded}, rec.Types())
	assert.Equal(t, 5, rec.Last().Added)
}

func TestPrefetchFailureKeepsLastGoodState(t *testing.T) {
	feed := newFakeFeed()
	feed.pages[0] = cards(1, 10)
	feed.errs[1] = errors.New("upstream down")
	d, rec := newTestDeck(t, feed, &fakeWriter{})

	for i := 0; i < 7; i++ {
		advance(t, d)
	}
	d.Wait()

	snap := d.Snapshot()
	assert.Equal(t, 10, snap.Len)
	assert.Equal(t, 7, snap.Cursor)
	assert.Equal(t, 0, snap.Page)
	assert.False(t, snap.FetchInFlight)
	assert.Equal(t, []EventType{EventFetchFailed}, rec.Types())
	assert.Equal(t, 1, rec.Last().Page)

	// the next advance asks for the same page again
	feed.mu.Lock()
	delete(feed.errs, 1)
	feed.pages[1] = cards(11, 2)
	feed.mu.Unlock()

	advance(t, d)
	d.Wait()
	assert.Equal(t, []int{0, 1, 1}, feed.Calls())
	assert.Equal(t, 1, d.Snapshot().Page)
	assert.Equal(t, 12, d.Snapshot().Len)
}

func TestStateMachine(t *testing.T) {
	feed := newFakeFeed()
	feed.pages[0] = cards(1, 10)
	d, _ := newTestDeck(t, feed, &fakeWriter{})
	ctx := context.Background()

	assert.ErrorIs(t, d.ExitComplete(ctx), ErrNotExiting)

	require.NoError(t, d.Skip())
	snap := d.Snapshot()
	assert.Equal(t, StateExiting, snap.State)
	assert.Equal(t, models.SwipeLeft, snap.Direction)

	assert.ErrorIs(t, d.Skip(), ErrBusy)
	assert.ErrorIs(t, d.Wishlist(ctx), ErrBusy)
	assert.ErrorIs(t, d.Rate(ctx, 3), ErrBusy)

	require.NoError(t, d.ExitComplete(ctx))
	snap = d.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Equal(t, 1, snap.Cursor)

	require.NoError(t, d.Wishlist(ctx))
	assert.Equal(t, models.SwipeRight, d.Snapshot().Direction)
	require.NoError(t, d.ExitComplete(ctx))
	d.Wait()

	assert.Error(t, d.Rate(ctx, 6))
	assert.Error(t, d.Rate(ctx, -1))
}

func TestWritesAreAsyncWithRetry(t *testing.T) {
	feed := newFakeFeed()
	feed.pages[0] = cards(1, 10)
	writer := &fakeWriter{err: errors.New("503")}
	d, rec := newTestDeck(t, feed, writer)
	ctx := context.Background()

	require.NoError(t, d.Rate(ctx, 4))
	require.NoError(t, d.ExitComplete(ctx))
	d.Wait()

	// the deck moved on regardless of the failed write
	assert.Equal(t, 1, d.Snapshot().Cursor)
	assert.Equal(t, 1, d.Snapshot().FailedWrites)
	assert.Equal(t, []EventType{EventWriteFailed}, rec.Types())

	failed := rec.Last()
	assert.Equal(t, int64(1), failed.Request.GameID)
	assert.Equal(t, models.StatusRated, failed.Request.Status)
	require.NotNil(t, failed.Request.Stars)
	assert.Equal(t, 4, *failed.Request.Stars)
	require.NotNil(t, failed.Request.ReleaseYear)
	assert.Equal(t, 2020, *failed.Request.ReleaseYear)

	writer.setErr(nil)
	assert.Equal(t, 1, d.RetryFailed(ctx))
	d.Wait()

	assert.Equal(t, 0, d.Snapshot().FailedWrites)
	assert.Equal(t, []EventType{EventWriteFailed, EventWriteSucceeded}, rec.Types())
	assert.Len(t, writer.Requests(), 2)
	assert.Equal(t, 0, d.RetryFailed(ctx))
}

func TestSkipWritesNothing(t *testing.T) {
	feed := newFakeFeed()
	feed.pages[0] = cards(1, 10)
	writer := &fakeWriter{}
	d, rec := newTestDeck(t, feed, writer)

	advance(t, d)
	d.Wait()
	assert.Empty(t, writer.Requests())
	assert.Empty(t, rec.Types())
}

func TestWishlistRequest(t *testing.T) {
	feed := newFakeFeed()
	feed.pages[0] = cards(1, 10)
	writer := &fakeWriter{}
	d, _ := newTestDeck(t, feed, writer)

	require.NoError(t, d.Wishlist(context.Background()))
	d.Wait()

	reqs := writer.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, models.StatusWishlist, reqs[0].Status)
	assert.Nil(t, reqs[0].Stars)
	assert.Equal(t, []string{"PC"}, reqs[0].Platforms)
}

func TestNoMoreItems(t *testing.T) {
	feed := newFakeFeed()
	feed.pages[0] = cards(1, 2)
	feed.release = make(chan struct{})
	d, _ := newTestDeck(t, feed, &fakeWriter{})

	assert.False(t, d.NoMoreItems())

	advance(t, d)
	waitStarted(t, feed, 1)
	assert.False(t, d.NoMoreItems(), "a pending fetch may still add cards")

	close(feed.release)
	d.Wait()
	assert.True(t, d.NoMoreItems())

	advance(t, d)
	d.Wait()
	_, ok := d.Current()
	assert.False(t, ok)
	assert.ErrorIs(t, d.Skip(), ErrEmpty)
	assert.True(t, d.NoMoreItems())
	assert.Equal(t, 2, d.Snapshot().Cursor)
}

func TestReloadDiscardsStaleFetch(t *testing.T) {
	feed := newFakeFeed()
	feed.pages[0] = cards(1, 4)
	feed.pages[1] = cards(11, 5)
	feed.release = make(chan struct{})
	d, _ := newTestDeck(t, feed, &fakeWriter{})

	advance(t, d)
	waitStarted(t, feed, 1)

	require.NoError(t, d.Load(context.Background()))
	close(feed.release)
	d.Wait()

	snap := d.Snapshot()
	assert.Equal(t, 4, snap.Len)
	assert.Equal(t, 0, snap.Page)
	assert.False(t, snap.FetchInFlight)
}
