package application

import "time"

// InventoryDTO represents an inventory record in responses
type InventoryDTO struct {
	ID                 string     `json:"id"`
	ItemType           string     `json:"itemType"`
	ItemID             string     `json:"itemId"`
	AvailableQuantity  int        `json:"availableQuantity"`
	ReservedQuantity   int        `json:"reservedQuantity"`
	WrittenOffQuantity int        `json:"writtenOffQuantity"`
	Location           string     `json:"location,omitempty"`
	Version            int64      `json:"version"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
	DeletedAt          *time.Time `json:"deletedAt,omitempty"`
}

// ReservationDTO represents a stock reservation
type ReservationDTO struct {
	ReservationID string     `json:"reservationId"`
	InventoryID   string     `json:"inventoryId"`
	OperationType string     `json:"operationType"`
	OperationID   string     `json:"operationId"`
	Quantity      int        `json:"quantity"`
	ActorType     string     `json:"actorType"`
	ActorID       string     `json:"actorId"`
	State         string     `json:"state"`
	CreatedAt     time.Time  `json:"createdAt"`
	ExpiresAt     time.Time  `json:"expiresAt"`
	ResolvedAt    *time.Time `json:"resolvedAt,omitempty"`
}

// MovementDTO represents one audit trail entry
type MovementDTO struct {
	MovementID          string    `json:"movementId"`
	InventoryID         string    `json:"inventoryId"`
	MovementType        string    `json:"movementType"`
	Quantity            int       `json:"quantity"`
	QuantityBefore      int       `json:"quantityBefore"`
	QuantityAfter       int       `json:"quantityAfter"`
	SourceOperationType string    `json:"sourceOperationType,omitempty"`
	SourceOperationID   string    `json:"sourceOperationId,omitempty"`
	EmployeeID          string    `json:"employeeId,omitempty"`
	Intent              string    `json:"intent,omitempty"`
	Notes               string    `json:"notes,omitempty"`
	OccurredAt          time.Time `json:"occurredAt"`
}

// AvailabilityDTO answers an availability check
type AvailabilityDTO struct {
	ItemType          string `json:"itemType"`
	ItemID            string `json:"itemId"`
	RequestedQuantity int    `json:"requestedQuantity"`
	AvailableQuantity int    `json:"availableQuantity"`
	Available         bool   `json:"available"`
}

// ConsolidationResultDTO summarizes a consolidation by operation ID
type ConsolidationResultDTO struct {
	OperationID  string           `json:"operationId"`
	Consolidated int              `json:"consolidated"`
	Reservations []ReservationDTO `json:"reservations"`
}
