package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestInventory(t *testing.T, initial int) *Inventory {
	t.Helper()
	inv, _, err := NewInventory("PRODUCT", "sku-100", "aisle-7", initial)
	require.NoError(t, err)
	inv.ClearDomainEvents()
	return inv
}

func lastEvent(t *testing.T, inv *Inventory) DomainEvent {
	t.Helper()
	events := inv.GetDomainEvents()
	require.NotEmpty(t, events)
	return events[len(events)-1]
}

func TestNewInventory(t *testing.T) {
	inv, movement, err := NewInventory("PRODUCT", "sku-1", "aisle-1", 50)
	require.NoError(t, err)

	assert.Equal(t, 50, inv.AvailableQuantity)
	assert.Equal(t, 0, inv.ReservedQuantity)
	assert.Equal(t, 0, inv.WrittenOffQuantity)
	assert.Equal(t, int64(1), inv.Version)
	assert.False(t, inv.IsDeleted())

	require.NotNil(t, movement)
	assert.Equal(t, MovementTypeInitialEntry, movement.MovementType)
	assert.Equal(t, 50, movement.Quantity)
	assert.Equal(t, 0, movement.QuantityBefore)
	assert.Equal(t, 50, movement.QuantityAfter)
	assert.Equal(t, inv.ID, movement.InventoryID)

	require.Len(t, inv.GetDomainEvents(), 1)
	created, ok := inv.GetDomainEvents()[0].(*InventoryCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, 50, created.InitialQuantity)
}

func TestNewInventory_ZeroInitial(t *testing.T) {
	inv, movement, err := NewInventory("PRODUCT", "sku-2", "", 0)
	require.NoError(t, err)
	assert.Nil(t, movement)
	assert.Equal(t, 0, inv.AvailableQuantity)
}

func TestNewInventory_NegativeInitial(t *testing.T) {
	_, _, err := NewInventory("PRODUCT", "sku-3", "", -5)
	assert.ErrorIs(t, err, ErrNegativeQuantity)
}

func TestInventory_Reserve(t *testing.T) {
	inv := newTestInventory(t, 10)

	reservation, err := inv.Reserve(4, "order-1", OperationTypeSale, ActorTypeUser, "user-1", 1200)
	require.NoError(t, err)

	assert.Equal(t, 6, inv.AvailableQuantity)
	assert.Equal(t, 4, inv.ReservedQuantity)
	assert.Equal(t, int64(2), inv.Version)

	assert.Equal(t, ReservationStateActive, reservation.State)
	assert.Equal(t, 4, reservation.Quantity)
	assert.Equal(t, "order-1", reservation.OperationID)
	assert.Equal(t, inv.ID, reservation.InventoryID)
	assert.Nil(t, reservation.ResolvedAt)
	assert.NotEmpty(t, reservation.ReservationID)
	assert.WithinDuration(t, reservation.CreatedAt.Add(1200*time.Second), reservation.ExpiresAt, time.Second)

	event, ok := lastEvent(t, inv).(*InventoryReservedEvent)
	require.True(t, ok)
	assert.Equal(t, 6, event.Available)
	assert.Equal(t, 4, event.Reserved)
}

func TestInventory_Reserve_ZeroLease(t *testing.T) {
	inv := newTestInventory(t, 10)

	reservation, err := inv.Reserve(2, "adj-1", OperationTypeAdjustment, ActorTypeSystem, "svc", 0)
	require.NoError(t, err)
	assert.Equal(t, reservation.CreatedAt, reservation.ExpiresAt)
}

func TestInventory_Reserve_Errors(t *testing.T) {
	tests := []struct {
		name          string
		quantity      int
		operationType OperationType
		wantErr       error
	}{
		{
			name:          "insufficient stock",
			quantity:      11,
			operationType: OperationTypeSale,
			wantErr:       ErrInsufficientStock,
		},
		{
			name:          "zero quantity",
			quantity:      0,
			operationType: OperationTypeSale,
			wantErr:       ErrZeroQuantity,
		},
		{
			name:          "negative quantity",
			quantity:      -1,
			operationType: OperationTypeSale,
			wantErr:       ErrZeroQuantity,
		},
		{
			name:          "unknown operation type",
			quantity:      1,
			operationType: OperationType("REFUND"),
			wantErr:       ErrInvalidState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := newTestInventory(t, 10)

			_, err := inv.Reserve(tt.quantity, "order-1", tt.operationType, ActorTypeUser, "user-1", 60)
			assert.ErrorIs(t, err, tt.wantErr)

			// Failed reserve leaves the aggregate untouched
			assert.Equal(t, 10, inv.AvailableQuantity)
			assert.Equal(t, 0, inv.ReservedQuantity)
			assert.Equal(t, int64(1), inv.Version)
			assert.Empty(t, inv.GetDomainEvents())
		})
	}
}

func TestInventory_Reserve_InsufficientStockPayload(t *testing.T) {
	inv := newTestInventory(t, 3)

	_, err := inv.Reserve(7, "order-1", OperationTypeSale, ActorTypeUser, "user-1", 60)

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 3, stockErr.Available)
	assert.Equal(t, 7, stockErr.Requested)
}

func TestInventory_Reserve_Deleted(t *testing.T) {
	inv := newTestInventory(t, 10)
	require.NoError(t, inv.MarkDeleted(false, false, false))

	_, err := inv.Reserve(1, "order-1", OperationTypeSale, ActorTypeUser, "user-1", 60)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestInventory_ConsolidateReservation(t *testing.T) {
	inv := newTestInventory(t, 10)
	reservation, err := inv.Reserve(4, "order-1", OperationTypeSale, ActorTypeUser, "user-1", 1200)
	require.NoError(t, err)

	movement, err := inv.ConsolidateReservation(reservation)
	require.NoError(t, err)

	// Available is untouched, the stock has left the system
	assert.Equal(t, 6, inv.AvailableQuantity)
	assert.Equal(t, 0, inv.ReservedQuantity)
	assert.Equal(t, 4, inv.WrittenOffQuantity)
	assert.Equal(t, int64(3), inv.Version)

	assert.Equal(t, ReservationStateConsolidated, reservation.State)
	require.NotNil(t, reservation.ResolvedAt)

	// SALE_EXIT tracks the reserved counter
	assert.Equal(t, MovementTypeSaleExit, movement.MovementType)
	assert.Equal(t, 4, movement.Quantity)
	assert.Equal(t, 4, movement.QuantityBefore)
	assert.Equal(t, 0, movement.QuantityAfter)
	assert.Equal(t, OperationTypeSale, movement.SourceOperationType)
	assert.Equal(t, "order-1", movement.SourceOperationID)

	event, ok := lastEvent(t, inv).(*InventoryDecrementedEvent)
	require.True(t, ok)
	assert.Equal(t, 4, event.Quantity)
}

func TestInventory_ConsolidateReservation_NotActive(t *testing.T) {
	inv := newTestInventory(t, 10)
	reservation, err := inv.Reserve(4, "order-1", OperationTypeSale, ActorTypeUser, "user-1", 1200)
	require.NoError(t, err)

	_, err = inv.ConsolidateReservation(reservation)
	require.NoError(t, err)

	versionAfterFirst := inv.Version

	_, err = inv.ConsolidateReservation(reservation)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, versionAfterFirst, inv.Version)
	assert.Equal(t, 0, inv.ReservedQuantity)
}

func TestInventory_ConsolidateReservation_ForeignReservation(t *testing.T) {
	inv := newTestInventory(t, 10)
	foreign := newActiveReservation(60)
	foreign.InventoryID = primitive.NewObjectID()

	_, err := inv.ConsolidateReservation(foreign)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, ReservationStateActive, foreign.State)
}

func TestInventory_ReleaseReservation(t *testing.T) {
	inv := newTestInventory(t, 10)
	reservation, err := inv.Reserve(4, "order-1", OperationTypeSale, ActorTypeUser, "user-1", 1200)
	require.NoError(t, err)

	movement, err := inv.ReleaseReservation(reservation)
	require.NoError(t, err)

	assert.Equal(t, 10, inv.AvailableQuantity)
	assert.Equal(t, 0, inv.ReservedQuantity)
	assert.Equal(t, 0, inv.WrittenOffQuantity)
	assert.Equal(t, ReservationStateReleased, reservation.State)

	// RELEASE tracks the available counter
	assert.Equal(t, MovementTypeRelease, movement.MovementType)
	assert.Equal(t, 6, movement.QuantityBefore)
	assert.Equal(t, 10, movement.QuantityAfter)

	event, ok := lastEvent(t, inv).(*InventoryReleasedEvent)
	require.True(t, ok)
	assert.False(t, event.Expired)
}

func TestInventory_ExpireReservation(t *testing.T) {
	inv := newTestInventory(t, 10)
	reservation, err := inv.Reserve(4, "order-1", OperationTypeSale, ActorTypeUser, "user-1", 0)
	require.NoError(t, err)

	_, err = inv.ExpireReservation(reservation)
	require.NoError(t, err)

	assert.Equal(t, 10, inv.AvailableQuantity)
	assert.Equal(t, ReservationStateExpired, reservation.State)

	events := inv.GetDomainEvents()
	expired, ok := events[len(events)-1].(*ReservationExpiredEvent)
	require.True(t, ok)
	assert.Equal(t, 4, expired.Quantity)

	released, ok := events[len(events)-2].(*InventoryReleasedEvent)
	require.True(t, ok)
	assert.True(t, released.Expired)
}

func TestInventory_ReleaseReservation_AlreadyResolved(t *testing.T) {
	inv := newTestInventory(t, 10)
	reservation, err := inv.Reserve(4, "order-1", OperationTypeSale, ActorTypeUser, "user-1", 60)
	require.NoError(t, err)

	_, err = inv.ReleaseReservation(reservation)
	require.NoError(t, err)

	// Releasing again must fail without double-crediting stock
	_, err = inv.ReleaseReservation(reservation)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, 10, inv.AvailableQuantity)
	assert.Equal(t, 0, inv.ReservedQuantity)
}

func TestInventory_Adjust(t *testing.T) {
	tests := []struct {
		name          string
		initial       int
		delta         int
		bootstrap     bool
		wantAvailable int
		wantType      MovementType
		wantErr       error
	}{
		{
			name:          "positive adjustment",
			initial:       10,
			delta:         5,
			wantAvailable: 15,
			wantType:      MovementTypeManualAdjustment,
		},
		{
			name:          "negative adjustment",
			initial:       10,
			delta:         -3,
			wantAvailable: 7,
			wantType:      MovementTypeManualAdjustment,
		},
		{
			name:          "bootstrap entry on fresh record",
			initial:       0,
			delta:         20,
			bootstrap:     true,
			wantAvailable: 20,
			wantType:      MovementTypeInitialEntry,
		},
		{
			name:    "negative beyond available",
			initial: 2,
			delta:   -5,
			wantErr: ErrInsufficientStock,
		},
		{
			name:    "zero delta",
			initial: 10,
			delta:   0,
			wantErr: ErrZeroQuantity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := newTestInventory(t, tt.initial)

			movement, err := inv.Adjust(tt.delta, "emp-1", "recount", "cycle count", tt.bootstrap)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.initial, inv.AvailableQuantity)
				assert.Equal(t, int64(1), inv.Version)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantAvailable, inv.AvailableQuantity)
			assert.Equal(t, int64(2), inv.Version)

			assert.Equal(t, tt.wantType, movement.MovementType)
			assert.Equal(t, tt.initial, movement.QuantityBefore)
			assert.Equal(t, tt.wantAvailable, movement.QuantityAfter)
			assert.Equal(t, "emp-1", movement.EmployeeID)
			assert.Equal(t, "recount", movement.Intent)

			// Movement quantity is the magnitude of the delta
			wantMagnitude := tt.delta
			if wantMagnitude < 0 {
				wantMagnitude = -wantMagnitude
			}
			assert.Equal(t, wantMagnitude, movement.Quantity)
		})
	}
}

func TestInventory_VerifyAvailability(t *testing.T) {
	inv := newTestInventory(t, 5)

	assert.True(t, inv.VerifyAvailability(5))
	assert.True(t, inv.VerifyAvailability(1))
	assert.False(t, inv.VerifyAvailability(6))
	assert.False(t, inv.VerifyAvailability(0))

	require.NoError(t, inv.MarkDeleted(false, false, false))
	assert.False(t, inv.VerifyAvailability(1))
}

func TestInventory_CheckLowStock(t *testing.T) {
	inv := newTestInventory(t, 10)

	inv.CheckLowStock(5)
	assert.Empty(t, inv.GetDomainEvents())

	_, err := inv.Reserve(6, "order-1", OperationTypeSale, ActorTypeUser, "user-1", 60)
	require.NoError(t, err)
	inv.ClearDomainEvents()

	inv.CheckLowStock(5)
	event, ok := lastEvent(t, inv).(*LowStockAlertEvent)
	require.True(t, ok)
	assert.Equal(t, 4, event.CurrentQuantity)
	assert.Equal(t, 5, event.Threshold)

	assert.True(t, inv.IsBelowThreshold(5))
	assert.False(t, inv.IsBelowThreshold(3))
}

func TestInventory_MarkDeleted(t *testing.T) {
	tests := []struct {
		name            string
		hasReservations bool
		hasMovements    bool
		hasItems        bool
		expectError     bool
	}{
		{
			name: "no dependencies",
		},
		{
			name:            "open reservations",
			hasReservations: true,
			expectError:     true,
		},
		{
			name:         "recorded movements",
			hasMovements: true,
			expectError:  true,
		},
		{
			name:        "linked items",
			hasItems:    true,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := newTestInventory(t, 10)

			err := inv.MarkDeleted(tt.hasReservations, tt.hasMovements, tt.hasItems)

			if tt.expectError {
				assert.ErrorIs(t, err, ErrHasDependencies)
				assert.False(t, inv.IsDeleted())
				return
			}

			require.NoError(t, err)
			assert.True(t, inv.IsDeleted())
			assert.Equal(t, int64(2), inv.Version)

			_, ok := lastEvent(t, inv).(*InventoryDeletedEvent)
			assert.True(t, ok)
		})
	}
}

func TestInventory_Restore(t *testing.T) {
	inv := newTestInventory(t, 10)

	assert.ErrorIs(t, inv.Restore(), ErrInvalidState)

	require.NoError(t, inv.MarkDeleted(false, false, false))
	require.NoError(t, inv.Restore())
	assert.False(t, inv.IsDeleted())
	assert.Equal(t, int64(3), inv.Version)

	_, ok := lastEvent(t, inv).(*InventoryRestoredEvent)
	assert.True(t, ok)
}

func TestInventory_VersionIncrementsOnEveryMutation(t *testing.T) {
	inv := newTestInventory(t, 100)
	require.Equal(t, int64(1), inv.Version)

	reservation, err := inv.Reserve(10, "order-1", OperationTypeSale, ActorTypeUser, "user-1", 60)
	require.NoError(t, err)
	assert.Equal(t, int64(2), inv.Version)

	_, err = inv.ConsolidateReservation(reservation)
	require.NoError(t, err)
	assert.Equal(t, int64(3), inv.Version)

	_, err = inv.Adjust(5, "emp-1", "recount", "", false)
	require.NoError(t, err)
	assert.Equal(t, int64(4), inv.Version)

	require.NoError(t, inv.MarkDeleted(false, false, false))
	assert.Equal(t, int64(5), inv.Version)

	require.NoError(t, inv.Restore())
	assert.Equal(t, int64(6), inv.Version)
}
