package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/beanbrew/queueboard/internal/domain"
	"github.com/beanbrew/queueboard/internal/events"
)

// NotificationService writes board and order activity to the log.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	board      func() BoardView
}

// NewNotificationService creates the service. board may be nil, in which case
// snapshot lines carry counts only.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, board func() BoardView) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger.Named("notify"),
		board:      board,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventSessionStarted, n.handleSession)
	n.dispatcher.Subscribe(events.EventSessionEnded, n.handleSession)
	n.dispatcher.Subscribe(events.EventSnapshotApplied, n.handleSnapshotApplied)
	n.dispatcher.Subscribe(events.EventOrderPlaced, n.handleOrder)
	n.dispatcher.Subscribe(events.EventOrderPickedUp, n.handleOrder)
}

func (n *NotificationService) handleSession(_ context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.SessionPayload)
	n.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.String("username", payload.Username),
		zap.String("role", string(payload.Role)),
		zap.Bool("restored", payload.Restored))
	return nil
}

func (n *NotificationService) handleSnapshotApplied(_ context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.SnapshotAppliedPayload)
	fields := []zap.Field{
		zap.Uint64("seq", payload.Seq),
		zap.Int("total", payload.Total),
		zap.Int("waiting", payload.Waiting),
		zap.Int("preparing", payload.Preparing),
		zap.Int("ready", payload.Ready),
	}
	if n.board != nil {
		view := n.board()
		if view.Seq == payload.Seq {
			fields = append(fields, zap.Int64s("ready_ids", orderIDs(view.Board.Ready)))
		}
	}
	n.logger.Debug("board updated", fields...)
	return nil
}

func (n *NotificationService) handleOrder(_ context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.OrderPayload)
	n.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.Int64("order_id", payload.OrderID),
		zap.String("customer", payload.CustomerName),
		zap.String("status", string(payload.Status)))
	return nil
}

func orderIDs(orders []domain.Order) []int64 {
	out := make([]int64, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.ID)
	}
	return out
}
