package service

import (
	"cmp"
	"slices"

	"github.com/beanbrew/queueboard/internal/domain"
)

// Classify partitions one snapshot into the Waiting, Preparing and Ready
// buckets. It has no side effects and always recomputes the whole board.
//
// Waiting is ordered by priority score, highest first; Preparing by estimated
// completion time, earliest first, with unknown times last; Ready keeps
// snapshot order. All sorts are stable, so ties keep snapshot order.
// Orders in any other status are left out.
func Classify(snapshot domain.Snapshot) domain.Board {
	board := domain.Board{
		Waiting:   []domain.Order{},
		Preparing: []domain.Order{},
		Ready:     []domain.Order{},
	}

	for _, order := range snapshot.Orders {
		switch order.Status {
		case domain.OrderStatusPlaced, domain.OrderStatusWaiting:
			board.Waiting = append(board.Waiting, order.Clone())
		case domain.OrderStatusPreparing:
			board.Preparing = append(board.Preparing, order.Clone())
		case domain.OrderStatusReadyToPickup:
			board.Ready = append(board.Ready, order.Clone())
		}
	}

	slices.SortStableFunc(board.Waiting, func(a, b domain.Order) int {
		return cmp.Compare(b.PriorityScore, a.PriorityScore)
	})
	slices.SortStableFunc(board.Preparing, compareCompletion)

	return board
}

func compareCompletion(a, b domain.Order) int {
	switch {
	case a.EstimatedCompletionTime == nil && b.EstimatedCompletionTime == nil:
		return 0
	case a.EstimatedCompletionTime == nil:
		return 1
	case b.EstimatedCompletionTime == nil:
		return -1
	}
	return a.EstimatedCompletionTime.Time.Compare(b.EstimatedCompletionTime.Time)
}
