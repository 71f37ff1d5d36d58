package application

// CreateInventoryCommand represents the command to create an inventory record
type CreateInventoryCommand struct {
	ItemType        string
	ItemID          string
	Location        string
	InitialQuantity int
}

// ReserveCommand represents the command to reserve stock
type ReserveCommand struct {
	ItemType      string
	ItemID        string
	Quantity      int
	OperationID   string
	OperationType string
	ActorType     string
	ActorID       string
	// LeaseSeconds of 0 falls back to the configured lease for the
	// operation type
	LeaseSeconds int
}

// ConsolidateByOperationCommand consolidates every ACTIVE reservation that
// shares an operation ID
type ConsolidateByOperationCommand struct {
	OperationID string
}

// ReleaseReservationCommand represents the command to release one reservation
type ReleaseReservationCommand struct {
	ReservationID string
}

// AdjustCommand represents the command to apply a signed stock correction
type AdjustCommand struct {
	ItemType   string
	ItemID     string
	Delta      int
	EmployeeID string
	Intent     string
	Notes      string
}

// DeleteInventoryCommand soft deletes an inventory record
type DeleteInventoryCommand struct {
	ItemType string
	ItemID   string
}

// RestoreInventoryCommand restores a soft deleted inventory record
type RestoreInventoryCommand struct {
	ItemType string
	ItemID   string
}

// GetByItemQuery retrieves an inventory record by its item pair
type GetByItemQuery struct {
	ItemType       string
	ItemID         string
	IncludeDeleted bool
}

// GetByIDQuery retrieves an inventory record by its ID
type GetByIDQuery struct {
	InventoryID string
}

// CheckAvailabilityQuery asks whether a quantity can be reserved
type CheckAvailabilityQuery struct {
	ItemType string
	ItemID   string
	Quantity int
}

// ListMovementsQuery lists the audit trail of an inventory record
type ListMovementsQuery struct {
	ItemType string
	ItemID   string
	Limit    int
	Offset   int
}

// DetectLowStockQuery lists records at or below the low-stock threshold
type DetectLowStockQuery struct {
	Limit int
}

// ListInventoriesQuery pages through active inventory records
type ListInventoriesQuery struct {
	Limit  int
	Offset int
}
