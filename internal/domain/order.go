package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// OrderStatus enumerates lifecycle states reported by the coffee API.
type OrderStatus string

const (
	OrderStatusPlaced        OrderStatus = "PLACED"
	OrderStatusWaiting       OrderStatus = "WAITING"
	OrderStatusPreparing     OrderStatus = "PREPARING"
	OrderStatusReadyToPickup OrderStatus = "READY_TO_PICKUP"
	OrderStatusCompleted     OrderStatus = "COMPLETED"
	OrderStatusCancelled     OrderStatus = "CANCELLED"
)

// Drink is a menu item. Read-only reference data.
type Drink struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	Price           float64 `json:"price"`
	PrepTimeMinutes int     `json:"prepTimeMinutes"`
}

// Barista is the staff member an order was assigned to while preparing.
type Barista struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
}

// Order mirrors one entry of GET /api/orders. The client never edits it.
type Order struct {
	ID                      int64       `json:"id"`
	CustomerName            string      `json:"customerName"`
	Drink                   Drink       `json:"drink"`
	Status                  OrderStatus `json:"status"`
	PriorityScore           float64     `json:"priorityScore"`
	Loyal                   bool        `json:"loyal"`
	AssignedBarista         *Barista    `json:"assignedBarista,omitempty"`
	EstimatedCompletionTime *Timestamp  `json:"estimatedCompletionTime,omitempty"`
}

// Clone returns a copy that shares no pointers with o.
func (o Order) Clone() Order {
	out := o
	if o.AssignedBarista != nil {
		b := *o.AssignedBarista
		out.AssignedBarista = &b
	}
	if o.EstimatedCompletionTime != nil {
		ts := *o.EstimatedCompletionTime
		out.EstimatedCompletionTime = &ts
	}
	return out
}

// Timestamp accepts both RFC 3339 values and the zone-less local date-times the
// server emits. Zone-less values are read as UTC.
type Timestamp struct {
	time.Time
}

var zonelessLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) *Timestamp {
	return &Timestamp{Time: t}
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	raw = strings.TrimSpace(raw)
	if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		t.Time = parsed
		return nil
	}
	for _, layout := range zonelessLayouts {
		if parsed, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("timestamp: unsupported format %q", raw)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}
