// Package deck is the client-side queue of discovery cards. It owns the read
// cursor, the swipe state machine and the next-page prefetch policy.
package deck

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gameboxr/pkg/models"

	"go.uber.org/zap"
)

// DefaultPrefetchThreshold is the number of remaining cards at which the next page is requested
const DefaultPrefetchThreshold = 3

var (
	// ErrBusy is returned when an action arrives while a card is still leaving
	ErrBusy = errors.New("deck is mid-transition")

	// ErrEmpty is returned when there is no card to act on
	ErrEmpty = errors.New("no card to act on")

	// ErrNotExiting is returned by ExitComplete outside of an exit transition
	ErrNotExiting = errors.New("no card is exiting")
)

// State is the swipe state machine position
type State int

const (
	StateIdle State = iota
	StateExiting
	StateAdvancing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateExiting:
		return "exiting"
	case StateAdvancing:
		return "advancing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Feed returns discovery pages
type Feed interface {
	Discover(ctx context.Context, page int) ([]models.GameSummary, error)
}

// RatingWriter persists ratings and wishlist entries
type RatingWriter interface {
	Rate(ctx context.Context, req models.RateRequest) error
}

// EventType identifies an asynchronous outcome
type EventType int

const (
	EventWriteSucceeded EventType = iota
	EventWriteFailed
	EventFetchSucceeded
	EventFetchFailed
)

func (t EventType) String() string {
	switch t {
	case EventWriteSucceeded:
		return "write succeeded"
	case EventWriteFailed:
		return "write failed"
	case EventFetchSucceeded:
		return "fetch succeeded"
	case EventFetchFailed:
		return "fetch failed"
	default:
		return fmt.Sprintf("event(%d)", int(t))
	}
}

// Event reports the completion of a background write or fetch.
// Request is set for write events, Page and Added for fetch events.
type Event struct {
	Type    EventType
	Request models.RateRequest
	Page    int
	Added   int
	Err     error
}

// Options configures a Deck
type Options struct {
	Threshold int
	OnEvent   func(Event)
	Logger    *zap.Logger
}

// Snapshot is a point-in-time view of the deck
type Snapshot struct {
	Len           int
	Cursor        int
	Page          int
	FetchInFlight bool
	State         State
	Direction     models.SwipeDirection
	FailedWrites  int
}

// Deck is safe for concurrent use. Writes and prefetches run in the
// background; their outcomes are delivered through Options.OnEvent.
type Deck struct {
	feed   Feed
	writer RatingWriter
	opts   Options
	logger *zap.Logger

	mu            sync.Mutex
	items         []models.GameSummary
	cursor        int
	page          int
	fetchInFlight bool
	state         State
	direction     models.SwipeDirection
	generation    int
	failed        []models.RateRequest

	wg sync.WaitGroup
}

// New creates an empty deck
func New(feed Feed, writer RatingWriter, opts Options) *Deck {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultPrefetchThreshold
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Deck{
		feed:   feed,
		writer: writer,
		opts:   opts,
		logger: logger,
	}
}

// Load replaces the deck with page 0
func (d *Deck) Load(ctx context.Context) error {
	games, err := d.feed.Discover(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to load first page: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.generation++
	d.items = append([]models.GameSummary(nil), games...)
	d.cursor = 0
	d.page = 0
	d.fetchInFlight = false
	d.state = StateIdle
	d.direction = ""
	return nil
}

// Current returns the head card
func (d *Deck) Current() (models.GameSummary, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cursor >= len(d.items) {
		return models.GameSummary{}, false
	}
	return d.items[d.cursor], true
}

// NoMoreItems reports the terminal condition: the cursor is on or past the
// last card and no fetch is pending.
func (d *Deck) NoMoreItems() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cursor >= len(d.items)-1 && !d.fetchInFlight
}

// Snapshot returns the current deck state
func (d *Deck) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Snapshot{
		Len:           len(d.items),
		Cursor:        d.cursor,
		Page:          d.page,
		FetchInFlight: d.fetchInFlight,
		State:         d.state,
		Direction:     d.direction,
		FailedWrites:  len(d.failed),
	}
}

// Rate stores stars for the head card and starts its exit to the right
func (d *Deck) Rate(ctx context.Context, stars int) error {
	if stars < 0 || stars > 5 {
		return fmt.Errorf("stars must be between 0 and 5, got %d", stars)
	}
	return d.judge(ctx, models.StatusRated, &stars)
}

// Wishlist stores the head card on the wishlist and starts its exit to the right
func (d *Deck) Wishlist(ctx context.Context) error {
	return d.judge(ctx, models.StatusWishlist, nil)
}

// Skip starts the head card's exit to the left without writing anything
func (d *Deck) Skip() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.headLocked(); err != nil {
		return err
	}
	d.state = StateExiting
	d.direction = models.SwipeLeft
	return nil
}

func (d *Deck) judge(ctx context.Context, status models.RatingStatus, stars *int) error {
	d.mu.Lock()
	head, err := d.headLocked()
	if err != nil {
		d.mu.Unlock()
		return err
	}
	d.state = StateExiting
	d.direction = models.SwipeRight
	d.mu.Unlock()

	d.write(ctx, models.NewRateRequest(head, status, stars))
	return nil
}

func (d *Deck) headLocked() (models.GameSummary, error) {
	if d.state != StateIdle {
		return models.GameSummary{}, ErrBusy
	}
	if d.cursor >= len(d.items) {
		return models.GameSummary{}, ErrEmpty
	}
	return d.items[d.cursor], nil
}

// ExitComplete finishes the exit transition: the cursor advances, the
// prefetch policy runs and the deck returns to idle.
func (d *Deck) ExitComplete(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != StateExiting {
		return ErrNotExiting
	}

	d.state = StateAdvancing
	if d.cursor < len(d.items) {
		d.cursor++
	}
	d.maybePrefetchLocked(ctx)

	d.state = StateIdle
	d.direction = ""
	return nil
}

func (d *Deck) maybePrefetchLocked(ctx context.Context) {
	if d.fetchInFlight || len(d.items)-d.cursor > d.opts.Threshold {
		return
	}
	d.fetchInFlight = true
	next := d.page + 1
	gen := d.generation

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.fetch(ctx, gen, next)
	}()
}

func (d *Deck) fetch(ctx context.Context, gen, page int) {
	games, err := d.feed.Discover(ctx, page)

	d.mu.Lock()
	if gen != d.generation {
		d.mu.Unlock()
		return
	}
	d.fetchInFlight = false
	if err == nil {
		d.items = append(d.items, games...)
		d.page = page
	}
	d.mu.Unlock()

	if err != nil {
		d.logger.Warn("Failed to prefetch next page", zap.Int("page", page), zap.Error(err))
		d.emit(Event{Type: EventFetchFailed, Page: page, Err: err})
		return
	}
	d.emit(Event{Type: EventFetchSucceeded, Page: page, Added: len(games)})
}

func (d *Deck) write(ctx context.Context, req models.RateRequest) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.writer.Rate(ctx, req); err != nil {
			d.logger.Warn("Failed to save rating",
				zap.Int64("game_id", req.GameID), zap.String("status", string(req.Status)), zap.Error(err))
			d.mu.Lock()
			d.failed = append(d.failed, req)
			d.mu.Unlock()
			d.emit(Event{Type: EventWriteFailed, Request: req, Err: err})
			return
		}
		d.emit(Event{Type: EventWriteSucceeded, Request: req})
	}()
}

// RetryFailed re-issues every write that failed so far and returns how many were sent
func (d *Deck) RetryFailed(ctx context.Context) int {
	d.mu.Lock()
	pending := d.failed
	d.failed = nil
	d.mu.Unlock()

	for _, req := range pending {
		d.write(ctx, req)
	}
	return len(pending)
}

// Wait blocks until background writes and fetches have finished
func (d *Deck) Wait() {
	d.wg.Wait()
}

func (d *Deck) emit(e Event) {
	if d.opts.OnEvent != nil {
		d.opts.OnEvent(e)
	}
}
