package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for quick classification with errors.Is
var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrNotFound          = errors.New("not found")
	ErrInvalidState      = errors.New("invalid state transition")
	ErrDuplicate         = errors.New("duplicate entity")
	ErrOptimisticLock    = errors.New("optimistic lock conflict")
	ErrHasDependencies   = errors.New("entity has dependencies")
)

// InsufficientStockError is returned when a reservation or negative adjustment
// asks for more than the available quantity
type InsufficientStockError struct {
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: available %d, requested %d", e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// NotFoundError is returned when an entity cannot be located
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InvalidStateError is returned when a state transition is not allowed
type InvalidStateError struct {
	Entity  string
	Current string
	Action  string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s %s in state %s", e.Action, e.Entity, e.Current)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// DuplicateError is returned when a uniqueness constraint is violated
type DuplicateError struct {
	Entity string
	Key    string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.Entity, e.Key)
}

func (e *DuplicateError) Unwrap() error { return ErrDuplicate }

// OptimisticLockError is returned when a versioned update matched no document.
// The caller may retry the whole operation with a fresh aggregate.
type OptimisticLockError struct {
	Entity  string
	ID      string
	Version int64
}

func (e *OptimisticLockError) Error() string {
	return fmt.Sprintf("concurrent modification of %s %s at version %d", e.Entity, e.ID, e.Version)
}

func (e *OptimisticLockError) Unwrap() error { return ErrOptimisticLock }

// DependencyError is returned when a soft delete is blocked by open
// reservations, recorded movements, or linked items
type DependencyError struct {
	Entity string
	Reason string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("cannot delete %s: %s", e.Entity, e.Reason)
}

func (e *DependencyError) Unwrap() error { return ErrHasDependencies }
