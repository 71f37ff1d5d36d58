package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OperationType classifies the business operation behind a reservation
type OperationType string

const (
	OperationTypeSale       OperationType = "SALE"
	OperationTypeExchange   OperationType = "EXCHANGE"
	OperationTypeAdjustment OperationType = "ADJUSTMENT"
)

// IsValid reports whether the operation type is a known value
func (t OperationType) IsValid() bool {
	switch t {
	case OperationTypeSale, OperationTypeExchange, OperationTypeAdjustment:
		return true
	}
	return false
}

// ActorType identifies who requested a reservation
type ActorType string

const (
	ActorTypeUser    ActorType = "USER"
	ActorTypeSystem  ActorType = "SYSTEM"
	ActorTypeService ActorType = "SERVICE"
)

// ReservationState represents the lifecycle state of a reservation
type ReservationState string

const (
	ReservationStateActive       ReservationState = "ACTIVE"
	ReservationStateConsolidated ReservationState = "CONSOLIDATED"
	ReservationStateReleased     ReservationState = "RELEASED"
	ReservationStateExpired      ReservationState = "EXPIRED"
)

// Reservation is a child entity of Inventory holding stock for a business
// operation. Quantity and ExpiresAt never change after creation; state moves
// one way out of ACTIVE and ResolvedAt is set exactly once.
type Reservation struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	ReservationID string             `bson:"reservationId"`
	InventoryID   primitive.ObjectID `bson:"inventoryId"`

	OperationType OperationType `bson:"operationType"`
	OperationID   string        `bson:"operationId"`
	Quantity      int           `bson:"quantity"`

	ActorType ActorType `bson:"actorType"`
	ActorID   string    `bson:"actorId"`

	State      ReservationState `bson:"state"`
	CreatedAt  time.Time        `bson:"createdAt"`
	ExpiresAt  time.Time        `bson:"expiresAt"`
	ResolvedAt *time.Time       `bson:"resolvedAt,omitempty"`
}

// IsActive returns true while the reservation still holds stock
func (r *Reservation) IsActive() bool {
	return r.State == ReservationStateActive
}

// IsExpired compares the lease deadline to now, regardless of state.
// A zero-length lease (ExpiresAt == CreatedAt) counts as expired only
// once the clock has moved past it.
func (r *Reservation) IsExpired() bool {
	return time.Now().After(r.ExpiresAt)
}

// Consolidate transitions ACTIVE -> CONSOLIDATED
func (r *Reservation) Consolidate() error {
	return r.resolve(ReservationStateConsolidated, "consolidate")
}

// Release transitions ACTIVE -> RELEASED
func (r *Reservation) Release() error {
	return r.resolve(ReservationStateReleased, "release")
}

// Expire transitions ACTIVE -> EXPIRED
func (r *Reservation) Expire() error {
	return r.resolve(ReservationStateExpired, "expire")
}

func (r *Reservation) resolve(target ReservationState, action string) error {
	if r.State != ReservationStateActive {
		return &InvalidStateError{Entity: "reservation", Current: string(r.State), Action: action}
	}

	now := time.Now().UTC()
	r.State = target
	r.ResolvedAt = &now

	return nil
}
