// Package journal persists applied store batches in the background. The
// store never waits on the database: batches are appended to an unbounded
// backlog and a single writer applies them in order.
package journal

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rl1809/bizdesk/internal/core/store"
	"github.com/rl1809/bizdesk/internal/obs"
	"github.com/rl1809/bizdesk/internal/port"
)

const (
	DefaultApplyTimeout  = 5 * time.Second
	DefaultHighWatermark = 1000

	pollInterval = 50 * time.Millisecond
)

type Option func(*Journal)

// WithApplyTimeout bounds a single Apply call.
func WithApplyTimeout(d time.Duration) Option {
	return func(j *Journal) {
		if d > 0 {
			j.applyTimeout = d
		}
	}
}

// WithHighWatermark sets the backlog size above which the writer warns.
func WithHighWatermark(n int) Option {
	return func(j *Journal) { j.highWatermark = n }
}

type Journal struct {
	repo    port.DatabaseRepository
	metrics *obs.Metrics

	applyTimeout  time.Duration
	highWatermark int

	mu           sync.Mutex
	backlog      [][]store.Action
	notify       chan struct{}
	shuttingDown atomic.Bool

	enqueued  atomic.Uint64
	processed atomic.Uint64
	failed    atomic.Uint64
}

func New(repo port.DatabaseRepository, metrics *obs.Metrics, opts ...Option) *Journal {
	j := &Journal{
		repo:          repo,
		metrics:       metrics,
		applyTimeout:  DefaultApplyTimeout,
		highWatermark: DefaultHighWatermark,
		notify:        make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Attach subscribes the journal to st and returns the unsubscribe func.
func (j *Journal) Attach(st *store.Store) func() {
	return st.Subscribe(func(batch []store.Action) {
		j.Enqueue(batch)
	})
}

// Enqueue appends a copy of batch to the backlog. It never blocks and returns
// false once intake is closed.
func (j *Journal) Enqueue(batch []store.Action) bool {
	if len(batch) == 0 {
		return true
	}
	if j.shuttingDown.Load() {
		j.metrics.JournalEntry("dropped")
		obs.Logger.Warn("journal_batch_dropped", "actions", len(batch))
		return false
	}
	owned := make([]store.Action, len(batch))
	copy(owned, batch)

	j.enqueued.Add(1)
	j.mu.Lock()
	j.backlog = append(j.backlog, owned)
	j.mu.Unlock()
	select {
	case j.notify <- struct{}{}:
	default:
	}
	return true
}

// Start runs the writer until ctx is done.
func (j *Journal) Start(ctx context.Context) {
	go j.writer(ctx)
}

func (j *Journal) writer(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		for {
			batch, ok := j.next()
			if !ok {
				break
			}
			j.apply(ctx, batch)
			if ctx.Err() != nil {
				return
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-j.notify:
		case <-ticker.C:
		}
	}
}

func (j *Journal) next() ([]store.Action, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.backlog) == 0 {
		return nil, false
	}
	if j.highWatermark > 0 && len(j.backlog) > j.highWatermark {
		obs.Logger.Warn("journal backlog exceeds high watermark", "backlog_size", len(j.backlog), "high_watermark", j.highWatermark)
	}
	batch := j.backlog[0]
	j.backlog[0] = nil
	j.backlog = j.backlog[1:]
	return batch, true
}

func (j *Journal) apply(ctx context.Context, batch []store.Action) {
	defer j.processed.Add(1)

	applyCtx, cancel := context.WithTimeout(ctx, j.applyTimeout)
	defer cancel()

	if err := j.repo.Apply(applyCtx, batch); err != nil {
		j.failed.Add(1)
		j.metrics.JournalEntry("failed")
		obs.Logger.Error("journal_apply_failed", "first_action", batch[0].Type(), "actions", len(batch), "error", err)
		return
	}
	j.metrics.JournalEntry("applied")
}

// BacklogSize returns the batches not yet picked up by the writer.
func (j *Journal) BacklogSize() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.backlog)
}

// Stats returns enqueued, processed and failed batch counts.
func (j *Journal) Stats() (enq, proc, failed uint64) {
	return j.enqueued.Load(), j.processed.Load(), j.failed.Load()
}

// CloseIntake rejects future batches. Batches already queued are still written.
func (j *Journal) CloseIntake() { j.shuttingDown.Store(true) }

// DrainUntil blocks until every enqueued batch was processed or ctx is done.
func (j *Journal) DrainUntil(ctx context.Context) bool {
	for {
		enq, proc, _ := j.Stats()
		if enq == proc && j.BacklogSize() == 0 {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(pollInterval):
		}
	}
}

// SnapshotActions returns the actions that rebuild st from an empty state, in
// the order the writer must apply them.
func SnapshotActions(st store.State) []store.Action {
	actions := make([]store.Action, 0, len(st.Inventory)+len(st.Sales)+len(st.Contacts)+len(st.Reminders)+1)
	for _, item := range st.Inventory {
		actions = append(actions, store.AddInventoryItem{Item: item})
	}
	for _, sale := range st.Sales {
		actions = append(actions, store.AddSale{Sale: sale})
	}
	for _, contact := range st.Contacts {
		actions = append(actions, store.AddContact{Contact: contact})
	}
	for _, reminder := range st.Reminders {
		actions = append(actions, store.AddReminder{Reminder: reminder})
	}
	if st.UserTier.IsPro() {
		actions = append(actions, store.UpgradeToPro{})
	}
	return actions
}
