package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/beanbrew/queueboard/internal/auth"
	"github.com/beanbrew/queueboard/internal/domain"
	"github.com/beanbrew/queueboard/internal/events"
	"github.com/beanbrew/queueboard/internal/observability"
	apperrors "github.com/beanbrew/queueboard/pkg/util"
)

// DefaultSyncInterval is used when Start is given a non-positive interval.
const DefaultSyncInterval = 3 * time.Second

// ErrSyncRunning is returned by Start when the engine is already polling.
var ErrSyncRunning = errors.New("order sync already running")

// OrderFetcher reads the full order list.
type OrderFetcher interface {
	Orders(ctx context.Context, rc auth.RequestContext) ([]domain.Order, error)
}

// BoardView is what the display layer reads: the classified buckets of the
// last applied snapshot plus sync status.
type BoardView struct {
	Board     domain.Board `json:"board"`
	Seq       uint64       `json:"seq"`
	SyncedAt  *time.Time   `json:"synced_at,omitempty"`
	LastError string       `json:"last_error,omitempty"`
	// Stale is set when the latest fetch failed and the board shows older data.
	Stale   bool `json:"stale"`
	Running bool `json:"running"`
}

// fetchTicket identifies one issued fetch.
type fetchTicket struct {
	ctx        context.Context
	generation uint64
	seq        uint64
	rc         auth.RequestContext
}

// OrderSyncEngine polls the order list on a fixed cadence and on demand.
// At most one fetch is in flight; ticks that arrive meanwhile are dropped.
// Results are applied only if no Stop happened since they were issued.
type OrderSyncEngine struct {
	fetcher    OrderFetcher
	sessions   CredentialSource
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        func() time.Time

	mu         sync.Mutex
	running    bool
	generation uint64
	runCtx     context.Context
	cancel     context.CancelFunc
	done       chan struct{}
	inFlight   bool
	issued     uint64
	applied    uint64
	snapshot   *domain.Snapshot
	board      domain.Board
	lastErr    error
}

// NewOrderSyncEngine wires the engine; it does nothing until Start.
func NewOrderSyncEngine(fetcher OrderFetcher, sessions CredentialSource, dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) *OrderSyncEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderSyncEngine{
		fetcher:    fetcher,
		sessions:   sessions,
		dispatcher: dispatcher,
		logger:     logger.Named("sync"),
		metrics:    metrics,
		now:        time.Now,
		board:      Classify(domain.Snapshot{}),
	}
}

// Start polls immediately and then every interval until Stop or ctx ends.
func (e *OrderSyncEngine) Start(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultSyncInterval
	}

	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return ErrSyncRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	e.generation++
	e.running = true
	e.runCtx = runCtx
	e.cancel = cancel
	e.done = make(chan struct{})
	done := e.done
	generation := e.generation
	e.mu.Unlock()

	e.logger.Info("order sync started", zap.Duration("interval", interval))
	go e.loop(runCtx, generation, interval, done)
	return nil
}

// Restart ends the current run, if any, and starts a new one. Fetches issued
// before the restart are discarded when they complete.
func (e *OrderSyncEngine) Restart(ctx context.Context, interval time.Duration) error {
	e.Stop()
	return e.Start(ctx, interval)
}

// Stop cancels the timer and any outstanding fetch. A fetch that completes
// afterwards is discarded. Stop is idempotent.
func (e *OrderSyncEngine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	e.generation++
	e.cancel()
	done := e.done
	e.mu.Unlock()

	<-done
	e.logger.Info("order sync stopped")
}

// RefreshNow issues an out-of-band fetch. It reports false when the engine is
// stopped, a fetch is already in flight, or there is no session.
func (e *OrderSyncEngine) RefreshNow() bool {
	return e.trigger()
}

// Running reports whether Start is in effect.
func (e *OrderSyncEngine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Snapshot returns a copy of the last applied snapshot.
func (e *OrderSyncEngine) Snapshot() (domain.Snapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.snapshot == nil {
		return domain.Snapshot{}, false
	}
	return e.snapshot.Clone(), true
}

// Board returns the classified views of the last applied snapshot.
func (e *OrderSyncEngine) Board() BoardView {
	e.mu.Lock()
	defer e.mu.Unlock()

	view := BoardView{
		Board:   e.board.Clone(),
		Seq:     e.applied,
		Running: e.running,
	}
	if e.snapshot != nil {
		syncedAt := e.snapshot.FetchedAt
		view.SyncedAt = &syncedAt
	}
	if e.lastErr != nil {
		view.LastError = e.lastErr.Error()
		view.Stale = true
	}
	return view
}

func (e *OrderSyncEngine) loop(ctx context.Context, generation uint64, interval time.Duration, done chan struct{}) {
	defer close(done)

	e.trigger()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			e.expire(generation)
			return
		case <-ticker.C:
			e.trigger()
		}
	}
}

// expire ends a run whose parent context was cancelled without Stop.
func (e *OrderSyncEngine) expire(generation uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running || e.generation != generation {
		return
	}
	e.running = false
	e.generation++
	e.cancel()
	e.logger.Info("order sync stopped; context ended")
}

func (e *OrderSyncEngine) trigger() bool {
	ticket, ok := e.claim()
	if !ok {
		return false
	}
	go e.fetch(ticket)
	return true
}

// claim reserves the single in-flight slot.
func (e *OrderSyncEngine) claim() (fetchTicket, bool) {
	rc, authenticated := e.sessions.RequestContext()

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return fetchTicket{}, false
	}
	if e.inFlight {
		e.metrics.RecordSync(observability.SyncSkipped)
		e.logger.Debug("poll skipped; fetch in flight")
		return fetchTicket{}, false
	}
	if !authenticated {
		e.metrics.RecordSync(observability.SyncSkipped)
		e.logger.Debug("poll skipped; no session")
		return fetchTicket{}, false
	}

	e.inFlight = true
	e.issued++
	e.metrics.RecordSync(observability.SyncIssued)
	return fetchTicket{ctx: e.runCtx, generation: e.generation, seq: e.issued, rc: rc}, true
}

func (e *OrderSyncEngine) fetch(t fetchTicket) {
	orders, err := e.fetcher.Orders(t.ctx, t.rc)
	if payload, ok := e.complete(t, orders, err); ok {
		e.publish(t.ctx, payload)
		return
	}
	// A newer run may have skipped its first poll while this fetch held the slot.
	if e.superseded(t) {
		e.trigger()
	}
}

func (e *OrderSyncEngine) superseded(t fetchTicket) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running && e.generation != t.generation && !e.inFlight
}

// complete releases the in-flight slot and applies the result if still current.
func (e *OrderSyncEngine) complete(t fetchTicket, orders []domain.Order, err error) (events.SnapshotAppliedPayload, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.inFlight = false

	if t.generation != e.generation || !e.running || t.ctx.Err() != nil || t.seq <= e.applied {
		e.metrics.RecordSync(observability.SyncDiscarded)
		e.logger.Debug("discarding fetch result", zap.Uint64("seq", t.seq))
		return events.SnapshotAppliedPayload{}, false
	}

	if err != nil {
		e.lastErr = apperrors.NewNetworkError("fetch orders", err)
		e.metrics.RecordSync(observability.SyncFailed)
		e.logger.Warn("order poll failed; keeping previous snapshot", zap.Uint64("seq", t.seq), zap.Error(err))
		return events.SnapshotAppliedPayload{}, false
	}

	snapshot := domain.Snapshot{Orders: orders, FetchedAt: e.now(), Seq: t.seq}
	board := Classify(snapshot)
	e.snapshot = &snapshot
	e.board = board
	e.applied = t.seq
	e.lastErr = nil
	e.metrics.RecordSync(observability.SyncApplied)

	return events.SnapshotAppliedPayload{
		Seq:       t.seq,
		FetchedAt: snapshot.FetchedAt,
		Total:     len(orders),
		Waiting:   len(board.Waiting),
		Preparing: len(board.Preparing),
		Ready:     len(board.Ready),
	}, true
}

func (e *OrderSyncEngine) publish(ctx context.Context, payload events.SnapshotAppliedPayload) {
	if e.dispatcher == nil {
		return
	}
	if err := e.dispatcher.Publish(ctx, events.New(events.EventSnapshotApplied, payload)); err != nil {
		e.logger.Warn("snapshot event handler failed", zap.Error(err))
	}
}
