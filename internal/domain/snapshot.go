package domain

import "time"

// Snapshot is the full order list returned by one poll, treated as an atomic unit.
type Snapshot struct {
	Orders    []Order
	FetchedAt time.Time
	// Seq is the issue sequence of the fetch that produced the snapshot.
	Seq uint64
}

// Clone deep-copies the snapshot so callers cannot observe later mutation.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{FetchedAt: s.FetchedAt, Seq: s.Seq}
	if s.Orders != nil {
		out.Orders = make([]Order, len(s.Orders))
		for i, o := range s.Orders {
			out.Orders[i] = o.Clone()
		}
	}
	return out
}

// Board holds the three display buckets derived from one Snapshot.
type Board struct {
	Waiting   []Order `json:"waiting"`
	Preparing []Order `json:"preparing"`
	Ready     []Order `json:"ready"`
}

// Clone deep-copies every bucket.
func (b Board) Clone() Board {
	return Board{
		Waiting:   cloneOrders(b.Waiting),
		Preparing: cloneOrders(b.Preparing),
		Ready:     cloneOrders(b.Ready),
	}
}

// Len is the number of displayed orders across buckets.
func (b Board) Len() int {
	return len(b.Waiting) + len(b.Preparing) + len(b.Ready)
}

func cloneOrders(in []Order) []Order {
	out := make([]Order, len(in))
	for i, o := range in {
		out[i] = o.Clone()
	}
	return out
}
