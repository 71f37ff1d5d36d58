package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MovementType classifies an audit movement
type MovementType string

const (
	MovementTypeInitialEntry     MovementType = "INITIAL_ENTRY"
	MovementTypeSaleExit         MovementType = "SALE_EXIT"
	MovementTypeRelease          MovementType = "RELEASE"
	MovementTypeManualAdjustment MovementType = "MANUAL_ADJUSTMENT"
)

// Movement is an immutable audit record of a quantity change. INITIAL_ENTRY,
// MANUAL_ADJUSTMENT and RELEASE track the available counter before/after;
// SALE_EXIT tracks the reserved counter before/after.
type Movement struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	MovementID  string             `bson:"movementId"`
	InventoryID primitive.ObjectID `bson:"inventoryId"`

	MovementType   MovementType `bson:"movementType"`
	Quantity       int          `bson:"quantity"`
	QuantityBefore int          `bson:"quantityBefore"`
	QuantityAfter  int          `bson:"quantityAfter"`

	SourceOperationType OperationType `bson:"sourceOperationType,omitempty"`
	SourceOperationID   string        `bson:"sourceOperationId,omitempty"`

	EmployeeID string `bson:"employeeId,omitempty"`
	Intent     string `bson:"intent,omitempty"`
	Notes      string `bson:"notes,omitempty"`

	OccurredAt time.Time `bson:"occurredAt"`
}

// IsInitialEntry reports whether this movement is the bootstrap entry that
// does not count against soft-delete dependency checks
func (m *Movement) IsInitialEntry() bool {
	return m.MovementType == MovementTypeInitialEntry
}
