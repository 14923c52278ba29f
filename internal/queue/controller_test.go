package queue_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swipe4care/opportunity-feed/internal/db"
	apperr "github.com/swipe4care/opportunity-feed/internal/errors"
	"github.com/swipe4care/opportunity-feed/internal/queue"
)

func opp(id uint64) db.Opportunity {
	return db.Opportunity{ID: id, Title: fmt.Sprintf("opportunity %d", id)}
}

// scriptedSelector returns one scripted batch per call, repeating the last.
type scriptedSelector struct {
	mu      sync.Mutex
	batches [][]db.Opportunity
	calls   int
	err     error
}

func (s *scriptedSelector) SelectUndecided(_ context.Context, _ string, _ int) ([]db.Opportunity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	idx := s.calls
	if idx >= len(s.batches) {
		idx = len(s.batches) - 1
	}
	s.calls++
	if idx < 0 {
		return nil, nil
	}
	return s.batches[idx], nil
}

func (s *scriptedSelector) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type recorded struct {
	opportunityID uint64
	direction     db.Direction
}

// fakeLedger records decisions; it can fail once or block until released.
type fakeLedger struct {
	mu       sync.Mutex
	records  []recorded
	failNext error
	entered  chan struct{} // closed-on-use signal that a call started
	release  chan struct{} // when set, calls block until it closes
}

func (l *fakeLedger) RecordDecision(_ context.Context, _ string, opportunityID uint64, direction db.Direction) error {
	if l.entered != nil {
		l.entered <- struct{}{}
	}
	if l.release != nil {
		<-l.release
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failNext != nil {
		err := l.failNext
		l.failNext = nil
		return err
	}
	l.records = append(l.records, recorded{opportunityID, direction})
	return nil
}

func (l *fakeLedger) decisions() []recorded {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]recorded, len(l.records))
	copy(out, l.records)
	return out
}

func TestLoadFillsQueue(t *testing.T) {
	sel := &scriptedSelector{batches: [][]db.Opportunity{{opp(1), opp(2), opp(3)}}}
	c := queue.New(sel, &fakeLedger{}, "alice")

	require.NoError(t, c.Load(context.Background()))
	assert.Equal(t, 3, c.Remaining())

	current, err := c.Current()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), current.ID)
}

func TestDecideAdvancesAndRecords(t *testing.T) {
	sel := &scriptedSelector{batches: [][]db.Opportunity{{opp(1), opp(2), opp(3)}}}
	ledger := &fakeLedger{}
	// high low-water disabled so refill does not interfere
	c := queue.New(sel, ledger, "alice", queue.WithLowWater(0))

	require.NoError(t, c.Load(context.Background()))

	decided, err := c.Decide(context.Background(), db.DirectionAccept)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), decided.ID)

	decided, err = c.Decide(context.Background(), db.DirectionReject)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), decided.ID)

	assert.Equal(t, []recorded{
		{1, db.DirectionAccept},
		{2, db.DirectionReject},
	}, ledger.decisions())
	assert.Equal(t, 1, c.Remaining())
}

func TestDecideFailureKeepsCursor(t *testing.T) {
	sel := &scriptedSelector{batches: [][]db.Opportunity{{opp(1), opp(2), opp(3)}}}
	ledger := &fakeLedger{failNext: apperr.Persistence("record decision", fmt.Errorf("disk full"))}
	c := queue.New(sel, ledger, "alice", queue.WithLowWater(0))

	require.NoError(t, c.Load(context.Background()))

	_, err := c.Decide(context.Background(), db.DirectionReject)
	require.ErrorIs(t, err, apperr.ErrPersistence)

	// cursor did not move: the same item is still next
	current, err := c.Current()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), current.ID)

	// retry succeeds against the same item
	decided, err := c.Decide(context.Background(), db.DirectionReject)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), decided.ID)
}

func TestDecideOnEmptyQueue(t *testing.T) {
	sel := &scriptedSelector{batches: [][]db.Opportunity{nil}}
	c := queue.New(sel, &fakeLedger{}, "alice")

	require.NoError(t, c.Load(context.Background()))

	_, err := c.Decide(context.Background(), db.DirectionAccept)
	assert.ErrorIs(t, err, queue.ErrDrained)

	_, err = c.Current()
	assert.ErrorIs(t, err, queue.ErrDrained)
}

func TestDecideBusyGuard(t *testing.T) {
	sel := &scriptedSelector{batches: [][]db.Opportunity{{opp(1), opp(2), opp(3)}}}
	ledger := &fakeLedger{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	c := queue.New(sel, ledger, "alice", queue.WithLowWater(0))
	require.NoError(t, c.Load(context.Background()))

	done := make(chan error, 1)
	go func() {
		_, err := c.Decide(context.Background(), db.DirectionAccept)
		done <- err
	}()

	<-ledger.entered // first Decide is now mid-write

	_, err := c.Decide(context.Background(), db.DirectionAccept)
	assert.ErrorIs(t, err, apperr.ErrBusy)

	err = c.Load(context.Background())
	assert.ErrorIs(t, err, apperr.ErrBusy)

	close(ledger.release)
	require.NoError(t, <-done)

	// session is free again
	decided, err := c.Decide(context.Background(), db.DirectionReject)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), decided.ID)
}

func TestRefillMergesWithoutDuplicates(t *testing.T) {
	sel := &scriptedSelector{batches: [][]db.Opportunity{
		{opp(1), opp(2), opp(3)},
		{opp(2), opp(3), opp(4), opp(5)}, // overlaps the working set
	}}
	c := queue.New(sel, &fakeLedger{}, "alice")

	require.NoError(t, c.Load(context.Background()))

	// deciding 1 leaves 2 unpresented items → low-water refill fires
	_, err := c.Decide(context.Background(), db.DirectionAccept)
	require.NoError(t, err)
	c.WaitRefill()

	// only 4 and 5 were appended; 2 and 3 kept their positions
	assert.Equal(t, 4, c.Remaining())
	var order []uint64
	for {
		decided, err := c.Decide(context.Background(), db.DirectionReject)
		if err != nil {
			break
		}
		order = append(order, decided.ID)
		c.WaitRefill()
	}
	assert.Equal(t, []uint64{2, 3, 4, 5}, order)
}

func TestRefillNotRetriggeredWhileInFlight(t *testing.T) {
	sel := &scriptedSelector{batches: [][]db.Opportunity{
		{opp(1), opp(2), opp(3), opp(4)},
		nil,
	}}
	c := queue.New(sel, &fakeLedger{}, "alice")

	require.NoError(t, c.Load(context.Background()))
	_, err := c.Decide(context.Background(), db.DirectionAccept)
	require.NoError(t, err)
	_, err = c.Decide(context.Background(), db.DirectionAccept)
	require.NoError(t, err)
	c.WaitRefill()

	// one Load plus at most two refills, never one per decide beyond the mark
	assert.LessOrEqual(t, sel.callCount(), 3)
}

func TestDrainedAfterEmptyRefill(t *testing.T) {
	sel := &scriptedSelector{batches: [][]db.Opportunity{
		{opp(1)},
		nil, // refill finds nothing new
	}}
	c := queue.New(sel, &fakeLedger{}, "alice")

	require.NoError(t, c.Load(context.Background()))
	assert.False(t, c.Drained())

	_, err := c.Decide(context.Background(), db.DirectionAccept)
	require.NoError(t, err)
	c.WaitRefill()

	assert.True(t, c.Drained())

	// a later Load can repopulate after ingestion produced new records
	sel.mu.Lock()
	sel.batches = append(sel.batches, []db.Opportunity{opp(9)})
	sel.calls = len(sel.batches) - 1
	sel.mu.Unlock()

	require.NoError(t, c.Load(context.Background()))
	assert.False(t, c.Drained())
	current, err := c.Current()
	require.NoError(t, err)
	assert.Equal(t, uint64(9), current.ID)
}

func TestRefillFailureLeavesQueueIntact(t *testing.T) {
	sel := &scriptedSelector{batches: [][]db.Opportunity{{opp(1), opp(2)}}}
	c := queue.New(sel, &fakeLedger{}, "alice")
	require.NoError(t, c.Load(context.Background()))

	sel.mu.Lock()
	sel.err = apperr.Persistence("select undecided", fmt.Errorf("connection reset"))
	sel.mu.Unlock()

	_, err := c.Decide(context.Background(), db.DirectionAccept)
	require.NoError(t, err)
	c.WaitRefill()

	// the failed refill changed nothing; the remaining item is still next
	current, err := c.Current()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), current.ID)
}
