package coffeeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/beanbrew/queueboard/internal/auth"
	"github.com/beanbrew/queueboard/internal/domain"
	"github.com/beanbrew/queueboard/internal/observability"
)

// Endpoint paths on the coffee API.
const (
	PathLogin  = "/api/auth/login"
	PathSignup = "/api/auth/signup"
	PathMenu   = "/api/menu"
	PathOrders = "/api/orders"
)

// RequestIDHeader tags every outbound call for server-side correlation.
const RequestIDHeader = "X-Request-ID"

// maxErrorBody bounds how much of a failed response is read for its message.
const maxErrorBody = 64 << 10

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	Token    string      `json:"token"`
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`
}

// SignupRequest is the body of POST /api/auth/signup.
type SignupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

// PlaceOrderRequest is the body of POST /api/orders.
type PlaceOrderRequest struct {
	CustomerName string `json:"customerName"`
	DrinkID      int64  `json:"drinkId"`
	IsLoyal      bool   `json:"isLoyal"`
	Size         string `json:"size"`
	Sugar        string `json:"sugar"`
}

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	// Message is the server-provided message, empty when none was sent.
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("coffee api returned status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("coffee api returned status %d", e.StatusCode)
}

// AsStatusError extracts a StatusError from err.
func AsStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// Client calls the coffee API over JSON/HTTP. Transport timeouts are owned by
// the underlying http.Client.
type Client struct {
	client  *http.Client
	base    string
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewClient builds a client for baseURL.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger, metrics *observability.Metrics) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		client:  &http.Client{Timeout: timeout},
		base:    baseURL,
		logger:  logger,
		metrics: metrics,
	}
}

// Login verifies credentials. It never carries an Authorization header.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.do(ctx, http.MethodPost, PathLogin, auth.RequestContext{}, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Signup registers an account. It does not establish a session.
func (c *Client) Signup(ctx context.Context, req SignupRequest) error {
	return c.do(ctx, http.MethodPost, PathSignup, auth.RequestContext{}, req, nil)
}

// Menu lists drinks in server order.
func (c *Client) Menu(ctx context.Context, rc auth.RequestContext) ([]domain.Drink, error) {
	var out []domain.Drink
	if err := c.do(ctx, http.MethodGet, PathMenu, rc, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Orders fetches the full order list.
func (c *Client) Orders(ctx context.Context, rc auth.RequestContext) ([]domain.Order, error) {
	var out []domain.Order
	if err := c.do(ctx, http.MethodGet, PathOrders, rc, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PlaceOrder creates an order.
func (c *Client) PlaceOrder(ctx context.Context, rc auth.RequestContext, req PlaceOrderRequest) (*domain.Order, error) {
	var out domain.Order
	if err := c.do(ctx, http.MethodPost, PathOrders, rc, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Pickup marks a ready order as collected.
func (c *Client) Pickup(ctx context.Context, rc auth.RequestContext, orderID int64) (*domain.Order, error) {
	var out domain.Order
	path := PathOrders + "/" + strconv.FormatInt(orderID, 10) + "/pickup"
	if err := c.do(ctx, http.MethodPut, path, rc, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, rc auth.RequestContext, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)
	rc.Apply(req)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.metrics.RecordError(path, method, "transport")
		return err
	}
	defer resp.Body.Close()
	c.metrics.RecordRequest(path, method, resp.StatusCode, time.Since(start))

	c.logger.Debug("coffee api call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", requestID))

	if resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Message: readMessage(resp.Body)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// readMessage pulls "message" out of an error body, tolerating non-JSON bodies.
func readMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	return payload.Message
}
