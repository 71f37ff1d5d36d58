package domain

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InventoryRepository defines the interface for inventory persistence
type InventoryRepository interface {
	Insert(ctx context.Context, inventory *Inventory) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*Inventory, error)
	FindByItem(ctx context.Context, itemType, itemID string) (*Inventory, error)
	// UpdateVersioned persists the aggregate with a compare-and-swap on the
	// previous version. Returns OptimisticLockError when no document matched.
	UpdateVersioned(ctx context.Context, inventory *Inventory) error
	FindLowStock(ctx context.Context, threshold int, limit int) ([]*Inventory, error)
	FindAll(ctx context.Context, limit, offset int) ([]*Inventory, error)
}

// ReservationRepository defines the interface for reservation persistence
type ReservationRepository interface {
	Insert(ctx context.Context, reservation *Reservation) error
	FindByReservationID(ctx context.Context, reservationID string) (*Reservation, error)
	FindActiveByOperation(ctx context.Context, operationID string) ([]*Reservation, error)
	FindExpired(ctx context.Context, asOf time.Time, limit int) ([]*Reservation, error)
	FindByInventory(ctx context.Context, inventoryID primitive.ObjectID) ([]*Reservation, error)
	CountActiveByInventory(ctx context.Context, inventoryID primitive.ObjectID) (int64, error)
	Update(ctx context.Context, reservation *Reservation) error
}

// MovementRepository defines the interface for the append-only movement audit
type MovementRepository interface {
	Insert(ctx context.Context, movement *Movement) error
	InsertAll(ctx context.Context, movements []*Movement) error
	FindByInventory(ctx context.Context, inventoryID primitive.ObjectID, limit, offset int) ([]*Movement, error)
	// CountNonInitial counts movements excluding INITIAL_ENTRY, the
	// dependency check used before soft deletes.
	CountNonInitial(ctx context.Context, inventoryID primitive.ObjectID) (int64, error)
}

// UnitOfWork gathers everything one aggregate operation produced so it can
// be persisted atomically: the mutated root, reservation inserts and updates,
// and audit movements. Buffered domain events travel on the Inventory itself.
type UnitOfWork struct {
	Inventory           *Inventory
	NewReservations     []*Reservation
	UpdatedReservations []*Reservation
	Movements           []*Movement
}

// Store applies a unit of work plus its outbox events against the current
// transaction context. It never opens its own transaction; a
// TransactionManager supplies one, which lets several units of work from
// different inventories commit together.
type Store interface {
	Apply(ctx context.Context, uow *UnitOfWork) error
}

// TransactionManager runs a function inside a single database transaction
type TransactionManager interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
