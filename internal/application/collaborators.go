package application

import (
	"context"

	"github.com/retail-platform/inventory-service/internal/domain"
)

// Settings supplies operational parameters owned by an external system.
// Values are queried per operation, not cached, so parameter changes take
// effect without a restart.
type Settings interface {
	// LeaseSeconds returns the reservation lease for an operation type.
	// ADJUSTMENT operations conventionally get 0 (no hold time).
	LeaseSeconds(operationType domain.OperationType) int

	// LowStockThreshold returns the available quantity at or below which
	// a low-stock alert is raised.
	LowStockThreshold() int

	// SweepInterval returns the reservation sweeper interval in seconds
	SweepInterval() int

	// SweepBatchSize returns the maximum reservations reclaimed per sweep
	SweepBatchSize() int
}

// ItemLinkChecker reports whether catalog items still reference an inventory
// record. Owned by the catalog service; consulted before soft deletes.
type ItemLinkChecker interface {
	HasLinkedItems(ctx context.Context, itemType, itemID string) (bool, error)
}
