package domain

import (
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Inventory is the aggregate root for stock bookkeeping of a single item.
// All quantity changes go through its methods; every mutation bumps Version
// and produces a Movement so the audit trail never has gaps.
type Inventory struct {
	ID       primitive.ObjectID `bson:"_id,omitempty"`
	ItemType string             `bson:"itemType"`
	ItemID   string             `bson:"itemId"`

	AvailableQuantity  int `bson:"availableQuantity"`
	ReservedQuantity   int `bson:"reservedQuantity"`
	WrittenOffQuantity int `bson:"writtenOffQuantity"`

	Location string `bson:"location,omitempty"`

	Version int64 `bson:"version"`
	// BaseVersion is the version the record held when it was loaded, zero
	// when it has never been persisted. Conditional updates compare against
	// it, so an operation may bump Version more than once between load and
	// persist (multi-reservation consolidation does) and still write with a
	// single version check.
	BaseVersion int64 `bson:"-"`

	CreatedAt time.Time  `bson:"createdAt"`
	UpdatedAt time.Time  `bson:"updatedAt"`
	DeletedAt *time.Time `bson:"deletedAt,omitempty"`

	DomainEvents []DomainEvent `bson:"-"`
}

// NewInventory creates an inventory record at version 1. A positive initial
// quantity produces the bootstrap INITIAL_ENTRY movement alongside the record.
func NewInventory(itemType, itemID, location string, initialQuantity int) (*Inventory, *Movement, error) {
	initial, err := NewQuantity(initialQuantity)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	inv := &Inventory{
		ID:                primitive.NewObjectID(),
		ItemType:          itemType,
		ItemID:            itemID,
		AvailableQuantity: initial.Value(),
		Location:          location,
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
		DomainEvents:      make([]DomainEvent, 0),
	}

	inv.AddDomainEvent(&InventoryCreatedEvent{
		InventoryID:     inv.ID.Hex(),
		ItemType:        itemType,
		ItemID:          itemID,
		InitialQuantity: initial.Value(),
		Location:        location,
		CreatedAt:       now,
	})

	var movement *Movement
	if initial.Value() > 0 {
		movement = inv.newMovement(MovementTypeInitialEntry, initial.Value(), 0, initial.Value())
	}

	return inv, movement, nil
}

// IsDeleted returns true if the record has been soft deleted
func (i *Inventory) IsDeleted() bool {
	return i.DeletedAt != nil
}

// Reserve claims quantity for a business operation. The available counter
// drops, the reserved counter grows, and an ACTIVE reservation is returned.
// A leaseSeconds of 0 is valid and produces an immediately expirable lease,
// used by ADJUSTMENT operations that need no hold time.
func (i *Inventory) Reserve(
	quantity int,
	operationID string,
	operationType OperationType,
	actorType ActorType,
	actorID string,
	leaseSeconds int,
) (*Reservation, error) {
	if i.IsDeleted() {
		return nil, &InvalidStateError{Entity: "inventory", Current: "deleted", Action: "reserve"}
	}

	qty, err := NewPositiveQuantity(quantity)
	if err != nil {
		return nil, err
	}

	if !operationType.IsValid() {
		return nil, &InvalidStateError{Entity: "reservation", Current: string(operationType), Action: "create"}
	}

	if i.AvailableQuantity < qty.Value() {
		return nil, &InsufficientStockError{Available: i.AvailableQuantity, Requested: qty.Value()}
	}

	now := time.Now().UTC()
	reservation := &Reservation{
		ID:            primitive.NewObjectID(),
		ReservationID: uuid.New().String(),
		InventoryID:   i.ID,
		OperationType: operationType,
		OperationID:   operationID,
		Quantity:      qty.Value(),
		ActorType:     actorType,
		ActorID:       actorID,
		State:         ReservationStateActive,
		CreatedAt:     now,
		ExpiresAt:     now.Add(time.Duration(leaseSeconds) * time.Second),
	}

	i.AvailableQuantity -= qty.Value()
	i.ReservedQuantity += qty.Value()
	i.touch()

	i.AddDomainEvent(&InventoryReservedEvent{
		InventoryID:   i.ID.Hex(),
		ReservationID: reservation.ReservationID,
		ItemType:      i.ItemType,
		ItemID:        i.ItemID,
		OperationType: string(operationType),
		OperationID:   operationID,
		Quantity:      qty.Value(),
		Available:     i.AvailableQuantity,
		Reserved:      i.ReservedQuantity,
		ExpiresAt:     reservation.ExpiresAt,
		ReservedAt:    now,
	})

	return reservation, nil
}

// ConsolidateReservation confirms a claim: the reserved stock leaves the
// system for good. The reservation transitions to CONSOLIDATED in the same
// call so the quantity effect and the state change always persist together.
func (i *Inventory) ConsolidateReservation(reservation *Reservation) (*Movement, error) {
	if reservation.InventoryID != i.ID {
		return nil, &InvalidStateError{Entity: "reservation", Current: "foreign", Action: "consolidate"}
	}

	if reservation.IsActive() && i.ReservedQuantity < reservation.Quantity {
		return nil, &InsufficientStockError{Available: i.ReservedQuantity, Requested: reservation.Quantity}
	}

	if err := reservation.Consolidate(); err != nil {
		return nil, err
	}

	before := i.ReservedQuantity
	i.ReservedQuantity -= reservation.Quantity
	i.WrittenOffQuantity += reservation.Quantity
	i.touch()

	movement := i.newMovement(MovementTypeSaleExit, reservation.Quantity, before, i.ReservedQuantity)
	movement.SourceOperationType = reservation.OperationType
	movement.SourceOperationID = reservation.OperationID

	i.AddDomainEvent(&InventoryDecrementedEvent{
		InventoryID:   i.ID.Hex(),
		ReservationID: reservation.ReservationID,
		ItemType:      i.ItemType,
		ItemID:        i.ItemID,
		OperationType: string(reservation.OperationType),
		OperationID:   reservation.OperationID,
		Quantity:      reservation.Quantity,
		Available:     i.AvailableQuantity,
		Reserved:      i.ReservedQuantity,
		DecrementedAt: i.UpdatedAt,
	})

	return movement, nil
}

// ReleaseReservation cancels a claim and returns its stock to the available pool
func (i *Inventory) ReleaseReservation(reservation *Reservation) (*Movement, error) {
	return i.returnStock(reservation, false)
}

// ExpireReservation reclaims a timed-out claim. Same quantity effect as a
// release, but the reservation ends in EXPIRED and an expiry event is emitted.
func (i *Inventory) ExpireReservation(reservation *Reservation) (*Movement, error) {
	return i.returnStock(reservation, true)
}

func (i *Inventory) returnStock(reservation *Reservation, expired bool) (*Movement, error) {
	if reservation.InventoryID != i.ID {
		return nil, &InvalidStateError{Entity: "reservation", Current: "foreign", Action: "release"}
	}

	if reservation.IsActive() && i.ReservedQuantity < reservation.Quantity {
		return nil, &InsufficientStockError{Available: i.ReservedQuantity, Requested: reservation.Quantity}
	}

	var err error
	if expired {
		err = reservation.Expire()
	} else {
		err = reservation.Release()
	}
	if err != nil {
		return nil, err
	}

	before := i.AvailableQuantity
	i.AvailableQuantity += reservation.Quantity
	i.ReservedQuantity -= reservation.Quantity
	i.touch()

	movement := i.newMovement(MovementTypeRelease, reservation.Quantity, before, i.AvailableQuantity)
	movement.SourceOperationType = reservation.OperationType
	movement.SourceOperationID = reservation.OperationID

	i.AddDomainEvent(&InventoryReleasedEvent{
		InventoryID:   i.ID.Hex(),
		ReservationID: reservation.ReservationID,
		ItemType:      i.ItemType,
		ItemID:        i.ItemID,
		OperationType: string(reservation.OperationType),
		OperationID:   reservation.OperationID,
		Quantity:      reservation.Quantity,
		Available:     i.AvailableQuantity,
		Reserved:      i.ReservedQuantity,
		Expired:       expired,
		ReleasedAt:    i.UpdatedAt,
	})

	if expired {
		i.AddDomainEvent(&ReservationExpiredEvent{
			InventoryID:   i.ID.Hex(),
			ReservationID: reservation.ReservationID,
			OperationType: string(reservation.OperationType),
			OperationID:   reservation.OperationID,
			Quantity:      reservation.Quantity,
			ExpiredAt:     i.UpdatedAt,
		})
	}

	return movement, nil
}

// Adjust applies a signed correction to the available counter. The bootstrap
// flag marks the first stock entry on a fresh record, which is recorded as
// INITIAL_ENTRY instead of MANUAL_ADJUSTMENT.
func (i *Inventory) Adjust(delta int, employeeID, intent, notes string, bootstrap bool) (*Movement, error) {
	if i.IsDeleted() {
		return nil, &InvalidStateError{Entity: "inventory", Current: "deleted", Action: "adjust"}
	}

	if delta == 0 {
		return nil, ErrZeroQuantity
	}

	if delta < 0 && i.AvailableQuantity < -delta {
		return nil, &InsufficientStockError{Available: i.AvailableQuantity, Requested: -delta}
	}

	before := i.AvailableQuantity
	i.AvailableQuantity += delta
	i.touch()

	movementType := MovementTypeManualAdjustment
	if bootstrap && delta > 0 {
		movementType = MovementTypeInitialEntry
	}

	magnitude := delta
	if magnitude < 0 {
		magnitude = -magnitude
	}

	movement := i.newMovement(movementType, magnitude, before, i.AvailableQuantity)
	movement.EmployeeID = employeeID
	movement.Intent = intent
	movement.Notes = notes

	i.AddDomainEvent(&InventoryAdjustedEvent{
		InventoryID: i.ID.Hex(),
		ItemType:    i.ItemType,
		ItemID:      i.ItemID,
		Delta:       delta,
		OldQuantity: before,
		NewQuantity: i.AvailableQuantity,
		EmployeeID:  employeeID,
		Intent:      intent,
		AdjustedAt:  i.UpdatedAt,
	})

	return movement, nil
}

// VerifyAvailability reports whether the requested quantity can be reserved
func (i *Inventory) VerifyAvailability(quantity int) bool {
	return quantity > 0 && i.AvailableQuantity >= quantity && !i.IsDeleted()
}

// IsBelowThreshold reports whether available stock is at or below the threshold
func (i *Inventory) IsBelowThreshold(threshold int) bool {
	return i.AvailableQuantity <= threshold
}

// CheckLowStock emits a low-stock alert when available stock is at or below
// the threshold. Called after mutations that decrease available quantity.
func (i *Inventory) CheckLowStock(threshold int) {
	if !i.IsBelowThreshold(threshold) {
		return
	}

	i.AddDomainEvent(&LowStockAlertEvent{
		InventoryID:     i.ID.Hex(),
		ItemType:        i.ItemType,
		ItemID:          i.ItemID,
		CurrentQuantity: i.AvailableQuantity,
		Threshold:       threshold,
		AlertedAt:       time.Now().UTC(),
	})
}

// MarkDeleted soft deletes the record. Blocked while any reservation is open,
// any non-initialization movement exists, or items still link to the record.
func (i *Inventory) MarkDeleted(hasReservations, hasMovements, hasItems bool) error {
	if i.IsDeleted() {
		return &InvalidStateError{Entity: "inventory", Current: "deleted", Action: "delete"}
	}

	switch {
	case hasReservations:
		return &DependencyError{Entity: "inventory", Reason: "open reservations exist"}
	case hasMovements:
		return &DependencyError{Entity: "inventory", Reason: "movements have been recorded"}
	case hasItems:
		return &DependencyError{Entity: "inventory", Reason: "items are linked to this record"}
	}

	now := time.Now().UTC()
	i.DeletedAt = &now
	i.touch()

	i.AddDomainEvent(&InventoryDeletedEvent{
		InventoryID: i.ID.Hex(),
		ItemType:    i.ItemType,
		ItemID:      i.ItemID,
		DeletedAt:   now,
	})

	return nil
}

// Restore clears a soft delete
func (i *Inventory) Restore() error {
	if !i.IsDeleted() {
		return &InvalidStateError{Entity: "inventory", Current: "active", Action: "restore"}
	}

	i.DeletedAt = nil
	i.touch()

	i.AddDomainEvent(&InventoryRestoredEvent{
		InventoryID: i.ID.Hex(),
		ItemType:    i.ItemType,
		ItemID:      i.ItemID,
		RestoredAt:  i.UpdatedAt,
	})

	return nil
}

func (i *Inventory) newMovement(movementType MovementType, quantity, before, after int) *Movement {
	return &Movement{
		ID:             primitive.NewObjectID(),
		MovementID:     uuid.New().String(),
		InventoryID:    i.ID,
		MovementType:   movementType,
		Quantity:       quantity,
		QuantityBefore: before,
		QuantityAfter:  after,
		OccurredAt:     time.Now().UTC(),
	}
}

func (i *Inventory) touch() {
	i.Version++
	i.UpdatedAt = time.Now().UTC()
}

// AddDomainEvent adds a domain event to the buffer
func (i *Inventory) AddDomainEvent(event DomainEvent) {
	i.DomainEvents = append(i.DomainEvents, event)
}

// ClearDomainEvents clears all buffered domain events
func (i *Inventory) ClearDomainEvents() {
	i.DomainEvents = make([]DomainEvent, 0)
}

// GetDomainEvents returns all buffered domain events
func (i *Inventory) GetDomainEvents() []DomainEvent {
	return i.DomainEvents
}
