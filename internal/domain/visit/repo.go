package visit

import (
	"context"
)

// HistoryRepository stores accepted status transitions.
type HistoryRepository interface {
	Create(ctx context.Context, sc *StatusChange) error
	ListByVisit(ctx context.Context, visitID string) ([]*StatusChange, error)
}
