package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/beanbrew/queueboard/internal/auth"
	"github.com/beanbrew/queueboard/internal/domain"
	"github.com/beanbrew/queueboard/internal/events"
	"github.com/beanbrew/queueboard/internal/observability"
)

type fetchResult struct {
	orders []domain.Order
	err    error
}

// blockingFetcher holds every call until the test sends a result.
type blockingFetcher struct {
	mu          sync.Mutex
	calls       int
	inFlight    int
	maxInFlight int
	creds       []string
	ignoreCtx   bool

	started   chan struct{}
	responses chan fetchResult
}

func newBlockingFetcher() *blockingFetcher {
	return &blockingFetcher{
		started:   make(chan struct{}, 16),
		responses: make(chan fetchResult),
	}
}

func (f *blockingFetcher) Orders(ctx context.Context, rc auth.RequestContext) ([]domain.Order, error) {
	f.mu.Lock()
	f.calls++
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.creds = append(f.creds, rc.Credential)
	ignoreCtx := f.ignoreCtx
	f.mu.Unlock()

	f.started <- struct{}{}

	var res fetchResult
	if ignoreCtx {
		res = <-f.responses
	} else {
		select {
		case res = <-f.responses:
		case <-ctx.Done():
			res = fetchResult{err: ctx.Err()}
		}
	}

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()
	return res.orders, res.err
}

func (f *blockingFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type staticSessions struct {
	rc auth.RequestContext
	ok bool
}

func (s staticSessions) RequestContext() (auth.RequestContext, bool) { return s.rc, s.ok }

var aliceRC = auth.RequestContext{Username: "alice", Credential: auth.DeriveCredential("alice", "correct")}

func newTestEngine(t *testing.T, fetcher OrderFetcher, sessions CredentialSource) (*OrderSyncEngine, *observability.Metrics, events.Dispatcher) {
	t.Helper()
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	e := NewOrderSyncEngine(fetcher, sessions, dispatcher, nil, metrics)
	t.Cleanup(e.Stop)
	return e, metrics, dispatcher
}

func waitStarted(t *testing.T, f *blockingFetcher) {
	t.Helper()
	select {
	case <-f.started:
	case <-time.After(2 * time.Second):
		t.Fatal("fetch was not issued")
	}
}

func waitSeq(t *testing.T, e *OrderSyncEngine, seq uint64) {
	t.Helper()
	require.Eventually(t, func() bool { return e.Board().Seq == seq }, 2*time.Second, 5*time.Millisecond)
}

func TestSync_FirstPollIsImmediateAndCarriesCredential(t *testing.T) {
	t.Parallel()

	f := newBlockingFetcher()
	e, _, _ := newTestEngine(t, f, staticSessions{rc: aliceRC, ok: true})

	require.NoError(t, e.Start(context.Background(), time.Hour))
	waitStarted(t, f)
	f.responses <- fetchResult{orders: []domain.Order{
		{ID: 1, Status: domain.OrderStatusWaiting, PriorityScore: 10},
		{ID: 2, Status: domain.OrderStatusWaiting, PriorityScore: 50},
	}}
	waitSeq(t, e, 1)

	view := e.Board()
	require.Equal(t, []int64{2, 1}, ids(view.Board.Waiting))
	require.NotNil(t, view.SyncedAt)
	require.False(t, view.Stale)
	require.Equal(t, []string{aliceRC.Credential}, f.creds)
}

func TestSync_TicksDuringFetchAreSkipped(t *testing.T) {
	t.Parallel()

	f := newBlockingFetcher()
	e, metrics, _ := newTestEngine(t, f, staticSessions{rc: aliceRC, ok: true})

	require.NoError(t, e.Start(context.Background(), time.Hour))
	waitStarted(t, f)

	require.False(t, e.trigger())
	require.False(t, e.trigger())
	require.False(t, e.RefreshNow())
	require.Equal(t, 1, f.Calls())
	require.Equal(t, int64(3), metrics.SyncCount(observability.SyncSkipped))

	f.responses <- fetchResult{orders: []domain.Order{}}
	waitSeq(t, e, 1)

	require.True(t, e.RefreshNow())
	waitStarted(t, f)
	f.responses <- fetchResult{orders: []domain.Order{}}
	waitSeq(t, e, 2)

	f.mu.Lock()
	defer f.mu.Unlock()
	require.Equal(t, 1, f.maxInFlight)
	require.Equal(t, 2, f.calls)
}

func TestSync_FailureKeepsPreviousSnapshot(t *testing.T) {
	t.Parallel()

	f := newBlockingFetcher()
	e, metrics, _ := newTestEngine(t, f, staticSessions{rc: aliceRC, ok: true})

	require.NoError(t, e.Start(context.Background(), time.Hour))
	waitStarted(t, f)
	f.responses <- fetchResult{orders: []domain.Order{{ID: 7, Status: domain.OrderStatusReadyToPickup}}}
	waitSeq(t, e, 1)

	require.True(t, e.RefreshNow())
	waitStarted(t, f)
	f.responses <- fetchResult{err: errors.New("connection reset")}
	require.Eventually(t, func() bool { return e.Board().Stale }, 2*time.Second, 5*time.Millisecond)

	view := e.Board()
	require.Equal(t, []int64{7}, ids(view.Board.Ready))
	require.Equal(t, uint64(1), view.Seq)
	require.Contains(t, view.LastError, "connection reset")
	require.Equal(t, int64(1), metrics.SyncCount(observability.SyncFailed))

	snap, ok := e.Snapshot()
	require.True(t, ok)
	require.Len(t, snap.Orders, 1)

	require.True(t, e.RefreshNow())
	waitStarted(t, f)
	f.responses <- fetchResult{orders: []domain.Order{}}
	waitSeq(t, e, 3)
	require.False(t, e.Board().Stale)
	require.Empty(t, e.Board().Board.Ready)
}

func TestSync_StopDiscardsInFlightFetch(t *testing.T) {
	t.Parallel()

	f := newBlockingFetcher()
	f.ignoreCtx = true
	e, metrics, _ := newTestEngine(t, f, staticSessions{rc: aliceRC, ok: true})

	require.NoError(t, e.Start(context.Background(), time.Hour))
	waitStarted(t, f)
	e.Stop()
	require.False(t, e.Running())

	f.responses <- fetchResult{orders: []domain.Order{{ID: 1, Status: domain.OrderStatusWaiting}}}
	require.Eventually(t, func() bool {
		return metrics.SyncCount(observability.SyncDiscarded) == 1
	}, 2*time.Second, 5*time.Millisecond)

	_, ok := e.Snapshot()
	require.False(t, ok)
	require.Zero(t, e.Board().Seq)
	require.False(t, e.RefreshNow())
}

func TestSync_StaleResultAfterRestartIsDiscarded(t *testing.T) {
	t.Parallel()

	f := newBlockingFetcher()
	f.ignoreCtx = true
	e, metrics, _ := newTestEngine(t, f, staticSessions{rc: aliceRC, ok: true})

	require.NoError(t, e.Start(context.Background(), time.Hour))
	waitStarted(t, f)
	e.Stop()
	require.NoError(t, e.Start(context.Background(), time.Hour))

	// The old fetch still holds the slot, so the restart's first poll is skipped.
	require.Eventually(t, func() bool {
		return metrics.SyncCount(observability.SyncSkipped) == 1
	}, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, 1, f.Calls())

	f.responses <- fetchResult{orders: []domain.Order{{ID: 1, Status: domain.OrderStatusWaiting}}}
	require.Eventually(t, func() bool {
		return metrics.SyncCount(observability.SyncDiscarded) == 1
	}, 2*time.Second, 5*time.Millisecond)
	require.Zero(t, e.Board().Seq)

	// Releasing the slot issues the poll the new run missed.
	waitStarted(t, f)
	require.Equal(t, 2, f.Calls())
	f.responses <- fetchResult{orders: []domain.Order{{ID: 2, Status: domain.OrderStatusWaiting}}}
	waitSeq(t, e, 2)
	require.Equal(t, []int64{2}, ids(e.Board().Board.Waiting))
}

// switchableSessions hands out whichever credential is current.
type switchableSessions struct {
	mu sync.Mutex
	rc auth.RequestContext
}

func (s *switchableSessions) set(rc auth.RequestContext) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rc = rc
}

func (s *switchableSessions) RequestContext() (auth.RequestContext, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rc, true
}

func TestSync_RestartDropsFetchFromPreviousSession(t *testing.T) {
	t.Parallel()

	f := newBlockingFetcher()
	f.ignoreCtx = true
	sessions := &switchableSessions{rc: aliceRC}
	e, metrics, _ := newTestEngine(t, f, sessions)

	require.NoError(t, e.Start(context.Background(), time.Hour))
	waitStarted(t, f)

	bobRC := auth.RequestContext{Username: "bob", Credential: auth.DeriveCredential("bob", "secret")}
	sessions.set(bobRC)
	require.NoError(t, e.Restart(context.Background(), time.Hour))
	require.True(t, e.Running())

	f.responses <- fetchResult{orders: []domain.Order{{ID: 1, CustomerName: "alice", Status: domain.OrderStatusWaiting}}}
	require.Eventually(t, func() bool {
		return metrics.SyncCount(observability.SyncDiscarded) == 1
	}, 2*time.Second, 5*time.Millisecond)
	_, ok := e.Snapshot()
	require.False(t, ok)

	waitStarted(t, f)
	f.responses <- fetchResult{orders: []domain.Order{{ID: 2, CustomerName: "bob", Status: domain.OrderStatusWaiting}}}
	waitSeq(t, e, 2)
	require.Equal(t, []int64{2}, ids(e.Board().Board.Waiting))

	f.mu.Lock()
	defer f.mu.Unlock()
	require.Equal(t, []string{aliceRC.Credential, bobRC.Credential}, f.creds)
}

func TestSync_CancelledParentContextEndsRun(t *testing.T) {
	t.Parallel()

	f := newBlockingFetcher()
	e, metrics, _ := newTestEngine(t, f, staticSessions{rc: aliceRC, ok: true})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, e.Start(ctx, time.Hour))
	waitStarted(t, f)
	cancel()

	require.Eventually(t, func() bool { return !e.Running() }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return metrics.SyncCount(observability.SyncDiscarded) == 1
	}, 2*time.Second, 5*time.Millisecond)
	require.False(t, e.RefreshNow())

	require.NoError(t, e.Start(context.Background(), time.Hour))
	require.True(t, e.Running())
	waitStarted(t, f)
	f.responses <- fetchResult{orders: []domain.Order{{ID: 3, Status: domain.OrderStatusWaiting}}}
	waitSeq(t, e, 2)
}

func TestSync_NoSessionMeansNoNetworkCall(t *testing.T) {
	t.Parallel()

	f := newBlockingFetcher()
	e, metrics, _ := newTestEngine(t, f, staticSessions{})

	require.NoError(t, e.Start(context.Background(), time.Hour))
	require.Eventually(t, func() bool {
		return metrics.SyncCount(observability.SyncSkipped) >= 1
	}, 2*time.Second, 5*time.Millisecond)
	require.False(t, e.RefreshNow())
	require.Zero(t, f.Calls())
}

func TestSync_StartTwiceFails(t *testing.T) {
	t.Parallel()

	f := newBlockingFetcher()
	e, _, _ := newTestEngine(t, f, staticSessions{rc: aliceRC, ok: true})

	require.NoError(t, e.Start(context.Background(), time.Hour))
	require.ErrorIs(t, e.Start(context.Background(), time.Hour), ErrSyncRunning)
	waitStarted(t, f)
	e.Stop()
	e.Stop()
}

func TestSync_CompleteNeverAppliesOutOfIssueOrder(t *testing.T) {
	t.Parallel()

	e, metrics, _ := newTestEngine(t, newBlockingFetcher(), staticSessions{rc: aliceRC, ok: true})
	ctx := context.Background()
	e.running = true
	e.generation = 1
	e.runCtx = ctx

	_, ok := e.complete(fetchTicket{ctx: ctx, generation: 1, seq: 2}, []domain.Order{{ID: 2, Status: domain.OrderStatusWaiting}}, nil)
	require.True(t, ok)

	_, ok = e.complete(fetchTicket{ctx: ctx, generation: 1, seq: 1}, []domain.Order{{ID: 1, Status: domain.OrderStatusWaiting}}, nil)
	require.False(t, ok)

	require.Equal(t, uint64(2), e.applied)
	require.Equal(t, []int64{2}, ids(e.board.Waiting))
	require.Equal(t, int64(1), metrics.SyncCount(observability.SyncDiscarded))
	e.running = false
}

func TestSync_PublishesSnapshotApplied(t *testing.T) {
	t.Parallel()

	f := newBlockingFetcher()
	e, _, dispatcher := newTestEngine(t, f, staticSessions{rc: aliceRC, ok: true})

	got := make(chan events.SnapshotAppliedPayload, 1)
	dispatcher.Subscribe(events.EventSnapshotApplied, func(_ context.Context, ev events.Event) error {
		got <- ev.Payload.(events.SnapshotAppliedPayload)
		return nil
	})

	require.NoError(t, e.Start(context.Background(), time.Hour))
	waitStarted(t, f)
	f.responses <- fetchResult{orders: []domain.Order{
		{ID: 1, Status: domain.OrderStatusWaiting},
		{ID: 2, Status: domain.OrderStatusPreparing},
		{ID: 3, Status: domain.OrderStatusReadyToPickup},
		{ID: 4, Status: domain.OrderStatusCompleted},
	}}

	select {
	case p := <-got:
		require.Equal(t, uint64(1), p.Seq)
		require.Equal(t, 4, p.Total)
		require.Equal(t, 1, p.Waiting)
		require.Equal(t, 1, p.Preparing)
		require.Equal(t, 1, p.Ready)
	case <-time.After(2 * time.Second):
		t.Fatal("snapshot.applied not published")
	}
}

func TestSync_PeriodicTicksRepoll(t *testing.T) {
	t.Parallel()

	f := newBlockingFetcher()
	e, _, _ := newTestEngine(t, f, staticSessions{rc: aliceRC, ok: true})

	require.NoError(t, e.Start(context.Background(), 10*time.Millisecond))
	for i := 1; i <= 3; i++ {
		waitStarted(t, f)
		f.responses <- fetchResult{orders: []domain.Order{}}
		waitSeq(t, e, uint64(i))
	}
}
