// Package queue holds the session-local presentation queue: an ordered
// working set drawn from the feed selector, a cursor, and a refill policy.
// Nothing here is durable; a session that walks away leaves no residue.
package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/swipe4care/opportunity-feed/internal/db"
	apperr "github.com/swipe4care/opportunity-feed/internal/errors"
)

// ErrDrained is returned by Decide and Current when the queue has no
// unpresented items left. The caller may trigger ingestion and Load again.
var ErrDrained = errors.New("queue drained")

// Selector is the read port to the feed.
type Selector interface {
	SelectUndecided(ctx context.Context, userID string, limit int) ([]db.Opportunity, error)
}

// Ledger is the write port to the swipe ledger.
type Ledger interface {
	RecordDecision(ctx context.Context, userID string, opportunityID uint64, direction db.Direction) error
}

const (
	// DefaultBatchSize is how many opportunities a Load or refill requests.
	DefaultBatchSize = 10
	// DefaultLowWater triggers a refill when this few unpresented items remain.
	DefaultLowWater = 2
)

// Controller is the per-session state machine. All entry points are safe for
// concurrent use, but the session contract is a single logical actor:
// overlapping Decide/Load calls are rejected with ErrBusy rather than queued.
type Controller struct {
	selector Selector
	ledger   Ledger
	userID   string
	batch    int
	lowWater int
	log      *slog.Logger

	mu        sync.Mutex
	queue     []db.Opportunity
	seen      map[uint64]struct{}
	cursor    int
	busy      bool // a Decide or Load is outstanding
	refilling bool // an async refill is outstanding

	refillWG sync.WaitGroup
}

// Option customizes a Controller.
type Option func(*Controller)

// WithBatchSize sets how many items each selector fetch requests.
func WithBatchSize(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.batch = n
		}
	}
}

// WithLowWater sets the refill trigger threshold.
func WithLowWater(n int) Option {
	return func(c *Controller) {
		if n >= 0 {
			c.lowWater = n
		}
	}
}

// WithLogger attaches a logger for refill failures, which happen off the
// calling goroutine and otherwise have nowhere to surface.
func WithLogger(log *slog.Logger) Option {
	return func(c *Controller) { c.log = log }
}

// New creates a Controller for one user session.
func New(selector Selector, ledger Ledger, userID string, opts ...Option) *Controller {
	c := &Controller{
		selector: selector,
		ledger:   ledger,
		userID:   userID,
		batch:    DefaultBatchSize,
		lowWater: DefaultLowWater,
		seen:     make(map[uint64]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load replaces the queue with a fresh selector read and resets the cursor.
// Used for the initial fill and for explicit refresh after exhaustion.
// Any in-flight refill is waited out first so it cannot append stale items
// into the fresh queue.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return apperr.ErrBusy
	}
	c.busy = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.busy = false
		c.mu.Unlock()
	}()

	c.refillWG.Wait()

	opportunities, err := c.selector.SelectUndecided(ctx, c.userID, c.batch)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.queue = opportunities
	c.cursor = 0
	c.seen = make(map[uint64]struct{}, len(opportunities))
	for _, o := range opportunities {
		c.seen[o.ID] = struct{}{}
	}
	c.mu.Unlock()
	return nil
}

// Current returns the opportunity the cursor points at without deciding on
// it. Returns ErrDrained in the empty state.
func (c *Controller) Current() (db.Opportunity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cursor >= len(c.queue) {
		return db.Opportunity{}, ErrDrained
	}
	return c.queue[c.cursor], nil
}

// Decide records a decision on the current item and advances the cursor.
//
// The ledger write and the cursor advance are coupled: on failure the cursor
// stays put, so the same item remains next and the caller may retry safely
// (RecordDecision is idempotent for the pair). Advancing anyway would skip
// the item without it ever reaching the ledger.
//
// Returns the decided opportunity; ErrBusy while another Decide or Load is
// outstanding; ErrDrained in the empty state.
func (c *Controller) Decide(ctx context.Context, direction db.Direction) (db.Opportunity, error) {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return db.Opportunity{}, apperr.ErrBusy
	}
	if c.cursor >= len(c.queue) {
		c.mu.Unlock()
		return db.Opportunity{}, ErrDrained
	}
	current := c.queue[c.cursor]
	c.busy = true
	c.mu.Unlock()

	err := c.ledger.RecordDecision(ctx, c.userID, current.ID, direction)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false
	if err != nil {
		return current, err
	}

	c.cursor++
	c.maybeRefillLocked()
	return current, nil
}

// Remaining reports how many unpresented items the queue holds.
func (c *Controller) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue) - c.cursor
}

// Drained reports the empty state: no unpresented items and no refill that
// could still produce some.
func (c *Controller) Drained() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor >= len(c.queue) && !c.refilling
}

// WaitRefill blocks until no background refill is in flight.
func (c *Controller) WaitRefill() {
	c.refillWG.Wait()
}

// maybeRefillLocked starts an async refill when the unpresented remainder
// has hit the low-water mark. Caller must hold c.mu.
func (c *Controller) maybeRefillLocked() {
	if c.refilling || len(c.queue)-c.cursor > c.lowWater {
		return
	}
	c.refilling = true
	c.refillWG.Add(1)
	go c.refill()
}

// refill fetches a fresh selector read and merges it into the queue,
// appending only ids not already present. A wholesale replace would either
// drop presented-but-pending items or reset the cursor into already-seen
// territory, so the merge never touches existing entries or the cursor.
//
// The fetch runs on context.Background(): the session has no cancellation
// model, and the Decide that triggered the refill has long returned.
func (c *Controller) refill() {
	defer c.refillWG.Done()

	opportunities, err := c.selector.SelectUndecided(context.Background(), c.userID, c.batch)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.refilling = false
	if err != nil {
		if c.log != nil {
			c.log.Warn("queue refill failed", "user", c.userID, "err", err)
		}
		return
	}

	for _, o := range opportunities {
		if _, ok := c.seen[o.ID]; ok {
			continue
		}
		c.seen[o.ID] = struct{}{}
		c.queue = append(c.queue, o)
	}
}
