package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDispatcher_PublishRunsAllHandlers(t *testing.T) {
	t.Parallel()

	d := NewInMemoryDispatcher()
	var calls []string
	boom := errors.New("boom")

	d.Subscribe(EventSessionEnded, func(_ context.Context, e Event) error {
		calls = append(calls, "first")
		return boom
	})
	d.Subscribe(EventSessionEnded, func(_ context.Context, e Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(EventSessionStarted, func(_ context.Context, e Event) error {
		calls = append(calls, "other")
		return nil
	})

	err := d.Publish(context.Background(), New(EventSessionEnded, SessionPayload{Username: "alice"}))
	require.ErrorIs(t, err, boom)
	require.Equal(t, []string{"first", "second"}, calls)
}

func TestNew_StampsIDAndTime(t *testing.T) {
	t.Parallel()

	a := New(EventOrderPlaced, OrderPayload{OrderID: 1})
	b := New(EventOrderPlaced, OrderPayload{OrderID: 1})
	require.NotEqual(t, a.ID, b.ID)
	require.False(t, a.Timestamp.IsZero())
}

func TestDispatcher_Unsubscribe(t *testing.T) {
	t.Parallel()

	d := NewInMemoryDispatcher()
	var calls int
	cancel := d.Subscribe(EventOrderPlaced, func(context.Context, Event) error {
		calls++
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), New(EventOrderPlaced, OrderPayload{OrderID: 1})))
	cancel()
	cancel()
	require.NoError(t, d.Publish(context.Background(), New(EventOrderPlaced, OrderPayload{OrderID: 2})))
	require.Equal(t, 1, calls)
}

func TestDispatcher_PanickingHandlerBecomesError(t *testing.T) {
	t.Parallel()

	d := NewInMemoryDispatcher()
	reached := false
	d.Subscribe(EventSnapshotApplied, func(context.Context, Event) error {
		panic("bad payload")
	})
	d.Subscribe(EventSnapshotApplied, func(context.Context, Event) error {
		reached = true
		return nil
	})

	err := d.Publish(context.Background(), New(EventSnapshotApplied, SnapshotAppliedPayload{Seq: 1}))
	require.ErrorContains(t, err, "bad payload")
	require.ErrorContains(t, err, "snapshot.applied handler")
	require.True(t, reached)
}
