package domain

import "time"

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// InventoryCreatedEvent is published when an inventory record is created
type InventoryCreatedEvent struct {
	InventoryID     string    `json:"inventoryId"`
	ItemType        string    `json:"itemType"`
	ItemID          string    `json:"itemId"`
	InitialQuantity int       `json:"initialQuantity"`
	Location        string    `json:"location,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

func (e *InventoryCreatedEvent) EventType() string     { return "retail.inventory.created" }
func (e *InventoryCreatedEvent) OccurredAt() time.Time { return e.CreatedAt }

// InventoryReservedEvent is published when stock is reserved
type InventoryReservedEvent struct {
	InventoryID   string    `json:"inventoryId"`
	ReservationID string    `json:"reservationId"`
	ItemType      string    `json:"itemType"`
	ItemID        string    `json:"itemId"`
	OperationType string    `json:"operationType"`
	OperationID   string    `json:"operationId"`
	Quantity      int       `json:"quantity"`
	Available     int       `json:"available"`
	Reserved      int       `json:"reserved"`
	ExpiresAt     time.Time `json:"expiresAt"`
	ReservedAt    time.Time `json:"reservedAt"`
}

func (e *InventoryReservedEvent) EventType() string     { return "retail.inventory.reserved" }
func (e *InventoryReservedEvent) OccurredAt() time.Time { return e.ReservedAt }

// InventoryDecrementedEvent is published when a reservation is consolidated
// and the reserved stock leaves the inventory
type InventoryDecrementedEvent struct {
	InventoryID   string    `json:"inventoryId"`
	ReservationID string    `json:"reservationId"`
	ItemType      string    `json:"itemType"`
	ItemID        string    `json:"itemId"`
	OperationType string    `json:"operationType"`
	OperationID   string    `json:"operationId"`
	Quantity      int       `json:"quantity"`
	Available     int       `json:"available"`
	Reserved      int       `json:"reserved"`
	DecrementedAt time.Time `json:"decrementedAt"`
}

func (e *InventoryDecrementedEvent) EventType() string     { return "retail.inventory.decremented" }
func (e *InventoryDecrementedEvent) OccurredAt() time.Time { return e.DecrementedAt }

// InventoryReleasedEvent is published when a reservation is released or expired
// and its stock returns to the available pool
type InventoryReleasedEvent struct {
	InventoryID   string    `json:"inventoryId"`
	ReservationID string    `json:"reservationId"`
	ItemType      string    `json:"itemType"`
	ItemID        string    `json:"itemId"`
	OperationType string    `json:"operationType"`
	OperationID   string    `json:"operationId"`
	Quantity      int       `json:"quantity"`
	Available     int       `json:"available"`
	Reserved      int       `json:"reserved"`
	Expired       bool      `json:"expired"`
	ReleasedAt    time.Time `json:"releasedAt"`
}

func (e *InventoryReleasedEvent) EventType() string     { return "retail.inventory.released" }
func (e *InventoryReleasedEvent) OccurredAt() time.Time { return e.ReleasedAt }

// InventoryAdjustedEvent is published on manual stock adjustment
type InventoryAdjustedEvent struct {
	InventoryID string    `json:"inventoryId"`
	ItemType    string    `json:"itemType"`
	ItemID      string    `json:"itemId"`
	Delta       int       `json:"delta"`
	OldQuantity int       `json:"oldQuantity"`
	NewQuantity int       `json:"newQuantity"`
	EmployeeID  string    `json:"employeeId,omitempty"`
	Intent      string    `json:"intent,omitempty"`
	AdjustedAt  time.Time `json:"adjustedAt"`
}

func (e *InventoryAdjustedEvent) EventType() string     { return "retail.inventory.adjusted" }
func (e *InventoryAdjustedEvent) OccurredAt() time.Time { return e.AdjustedAt }

// InventoryDeletedEvent is published when an inventory record is soft deleted
type InventoryDeletedEvent struct {
	InventoryID string    `json:"inventoryId"`
	ItemType    string    `json:"itemType"`
	ItemID      string    `json:"itemId"`
	DeletedAt   time.Time `json:"deletedAt"`
}

func (e *InventoryDeletedEvent) EventType() string     { return "retail.inventory.deleted" }
func (e *InventoryDeletedEvent) OccurredAt() time.Time { return e.DeletedAt }

// InventoryRestoredEvent is published when a soft deleted record is restored
type InventoryRestoredEvent struct {
	InventoryID string    `json:"inventoryId"`
	ItemType    string    `json:"itemType"`
	ItemID      string    `json:"itemId"`
	RestoredAt  time.Time `json:"restoredAt"`
}

func (e *InventoryRestoredEvent) EventType() string     { return "retail.inventory.restored" }
func (e *InventoryRestoredEvent) OccurredAt() time.Time { return e.RestoredAt }

// LowStockAlertEvent is published when available stock falls to or below the threshold
type LowStockAlertEvent struct {
	InventoryID     string    `json:"inventoryId"`
	ItemType        string    `json:"itemType"`
	ItemID          string    `json:"itemId"`
	CurrentQuantity int       `json:"currentQuantity"`
	Threshold       int       `json:"threshold"`
	AlertedAt       time.Time `json:"alertedAt"`
}

func (e *LowStockAlertEvent) EventType() string     { return "retail.inventory.low-stock-alert" }
func (e *LowStockAlertEvent) OccurredAt() time.Time { return e.AlertedAt }

// ReservationExpiredEvent is published when the sweeper reclaims an expired reservation
type ReservationExpiredEvent struct {
	InventoryID   string    `json:"inventoryId"`
	ReservationID string    `json:"reservationId"`
	OperationType string    `json:"operationType"`
	OperationID   string    `json:"operationId"`
	Quantity      int       `json:"quantity"`
	ExpiredAt     time.Time `json:"expiredAt"`
}

func (e *ReservationExpiredEvent) EventType() string     { return "retail.reservation.expired" }
func (e *ReservationExpiredEvent) OccurredAt() time.Time { return e.ExpiredAt }
