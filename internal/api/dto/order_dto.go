package dto

// Defaults applied when the dashboard omits order options.
const (
	DefaultSize  = "Medium"
	DefaultSugar = "50%"
)

// PlaceOrderRequest payload for POST /api/orders.
type PlaceOrderRequest struct {
	DrinkID int64  `json:"drink_id"`
	Size    string `json:"size"`
	Sugar   string `json:"sugar"`
	Loyal   bool   `json:"loyal"`
}

// WithDefaults fills blank size and sugar.
func (r PlaceOrderRequest) WithDefaults() PlaceOrderRequest {
	if r.Size == "" {
		r.Size = DefaultSize
	}
	if r.Sugar == "" {
		r.Sugar = DefaultSugar
	}
	return r
}

// RefreshResponse reports whether an out-of-band poll was issued.
type RefreshResponse struct {
	Issued bool `json:"issued"`
}
