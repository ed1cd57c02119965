package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/beanbrew/queueboard/internal/auth"
	"github.com/beanbrew/queueboard/internal/coffeeapi"
	"github.com/beanbrew/queueboard/internal/domain"
	"github.com/beanbrew/queueboard/internal/events"
	apperrors "github.com/beanbrew/queueboard/pkg/util"
)

const (
	defaultOrderFailure  = "Failed to place order"
	defaultPickupFailure = "Failed to pick up order"
)

// OrderAPI is the slice of the coffee API that changes or reads order data.
type OrderAPI interface {
	Menu(ctx context.Context, rc auth.RequestContext) ([]domain.Drink, error)
	PlaceOrder(ctx context.Context, rc auth.RequestContext, req coffeeapi.PlaceOrderRequest) (*domain.Order, error)
	Pickup(ctx context.Context, rc auth.RequestContext, orderID int64) (*domain.Order, error)
}

// Refresher asks for an immediate resync.
type Refresher interface {
	RefreshNow() bool
}

// OrderOptions are passed through to the server untouched.
type OrderOptions struct {
	Size  string
	Sugar string
	Loyal bool
}

// ActionHandler performs the state-changing order calls. It never edits the
// board itself; a successful call only requests a refresh.
type ActionHandler struct {
	api        OrderAPI
	sessions   CredentialSource
	refresher  Refresher
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewActionHandler wires the handler.
func NewActionHandler(api OrderAPI, sessions CredentialSource, refresher Refresher, dispatcher events.Dispatcher, logger *zap.Logger) *ActionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActionHandler{
		api:        api,
		sessions:   sessions,
		refresher:  refresher,
		dispatcher: dispatcher,
		logger:     logger.Named("actions"),
	}
}

// PlaceOrder creates an order for the logged-in user.
func (h *ActionHandler) PlaceOrder(ctx context.Context, drinkID int64, opts OrderOptions) (*domain.Order, error) {
	rc, ok := h.sessions.RequestContext()
	if !ok {
		return nil, apperrors.NewUnauthenticated("login required")
	}
	if drinkID <= 0 {
		return nil, apperrors.NewValidationError("drink is required", map[string]any{"field": "drinkId"})
	}
	if strings.TrimSpace(opts.Size) == "" {
		return nil, apperrors.NewValidationError("size is required", map[string]any{"field": "size"})
	}
	if strings.TrimSpace(opts.Sugar) == "" {
		return nil, apperrors.NewValidationError("sugar is required", map[string]any{"field": "sugar"})
	}

	order, err := h.api.PlaceOrder(ctx, rc, coffeeapi.PlaceOrderRequest{
		CustomerName: rc.Username,
		DrinkID:      drinkID,
		IsLoyal:      opts.Loyal,
		Size:         opts.Size,
		Sugar:        opts.Sugar,
	})
	if err != nil {
		h.logger.Warn("place order failed", zap.Int64("drink_id", drinkID), zap.Error(err))
		return nil, apperrors.NewOrderError(serverMessage(err, defaultOrderFailure), err)
	}

	h.logger.Info("order placed", zap.Int64("order_id", order.ID), zap.Int64("drink_id", drinkID))
	h.publish(ctx, events.EventOrderPlaced, events.OrderPayload{
		OrderID:      order.ID,
		CustomerName: order.CustomerName,
		DrinkID:      drinkID,
		Status:       order.Status,
	})
	h.refresh()
	return order, nil
}

// Pickup marks a ready order as collected. On failure the order stays on the
// board until a later snapshot says otherwise.
func (h *ActionHandler) Pickup(ctx context.Context, orderID int64) (*domain.Order, error) {
	rc, ok := h.sessions.RequestContext()
	if !ok {
		return nil, apperrors.NewUnauthenticated("login required")
	}
	if orderID <= 0 {
		return nil, apperrors.NewValidationError("invalid order id", map[string]any{"order_id": orderID})
	}

	order, err := h.api.Pickup(ctx, rc, orderID)
	if err != nil {
		h.logger.Warn("pickup failed", zap.Int64("order_id", orderID), zap.Error(err))
		details := map[string]any{"order_id": orderID}
		if se, ok := coffeeapi.AsStatusError(err); ok {
			details["status"] = se.StatusCode
		}
		return nil, apperrors.NewActionError(serverMessage(err, defaultPickupFailure), details, err)
	}

	h.logger.Info("order picked up", zap.Int64("order_id", orderID))
	h.publish(ctx, events.EventOrderPickedUp, events.OrderPayload{
		OrderID:      orderID,
		CustomerName: order.CustomerName,
		Status:       order.Status,
	})
	h.refresh()
	return order, nil
}

// Menu lists the drinks that can be ordered.
func (h *ActionHandler) Menu(ctx context.Context) ([]domain.Drink, error) {
	rc, ok := h.sessions.RequestContext()
	if !ok {
		return nil, apperrors.NewUnauthenticated("login required")
	}
	drinks, err := h.api.Menu(ctx, rc)
	if err != nil {
		return nil, apperrors.NewNetworkError("fetch menu", err)
	}
	return drinks, nil
}

func (h *ActionHandler) refresh() {
	if h.refresher == nil {
		return
	}
	if !h.refresher.RefreshNow() {
		h.logger.Debug("refresh not issued; next tick will resync")
	}
}

func (h *ActionHandler) publish(ctx context.Context, eventType events.EventType, payload events.OrderPayload) {
	if h.dispatcher == nil {
		return
	}
	if err := h.dispatcher.Publish(ctx, events.New(eventType, payload)); err != nil {
		h.logger.Warn("order event handler failed", zap.String("event", string(eventType)), zap.Error(err))
	}
}

func serverMessage(err error, fallback string) string {
	if se, ok := coffeeapi.AsStatusError(err); ok && se.Message != "" {
		return se.Message
	}
	return fallback
}
