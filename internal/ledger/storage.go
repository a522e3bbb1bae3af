package ledger

import (
	"context"

	"ledgerscope/internal/model"
)

// Storage defines a sink for classified history events.
type Storage interface {
	PutEventBatch(ctx context.Context, events []model.HistoryEvent) error
}
