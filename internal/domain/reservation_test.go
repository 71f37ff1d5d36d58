package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newActiveReservation(leaseSeconds int) *Reservation {
	now := time.Now().UTC()
	return &Reservation{
		ID:            primitive.NewObjectID(),
		ReservationID: "res-1",
		InventoryID:   primitive.NewObjectID(),
		OperationType: OperationTypeSale,
		OperationID:   "order-1",
		Quantity:      5,
		ActorType:     ActorTypeUser,
		ActorID:       "user-1",
		State:         ReservationStateActive,
		CreatedAt:     now,
		ExpiresAt:     now.Add(time.Duration(leaseSeconds) * time.Second),
	}
}

func TestReservation_TerminalTransitions(t *testing.T) {
	tests := []struct {
		name       string
		transition func(*Reservation) error
		wantState  ReservationState
	}{
		{
			name:       "consolidate",
			transition: (*Reservation).Consolidate,
			wantState:  ReservationStateConsolidated,
		},
		{
			name:       "release",
			transition: (*Reservation).Release,
			wantState:  ReservationStateReleased,
		},
		{
			name:       "expire",
			transition: (*Reservation).Expire,
			wantState:  ReservationStateExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reservation := newActiveReservation(600)

			require.NoError(t, tt.transition(reservation))
			assert.Equal(t, tt.wantState, reservation.State)
			require.NotNil(t, reservation.ResolvedAt)
		})
	}
}

func TestReservation_NoReturnFromTerminalState(t *testing.T) {
	reservation := newActiveReservation(600)
	require.NoError(t, reservation.Consolidate())

	firstResolvedAt := *reservation.ResolvedAt

	assert.ErrorIs(t, reservation.Release(), ErrInvalidState)
	assert.ErrorIs(t, reservation.Expire(), ErrInvalidState)
	assert.ErrorIs(t, reservation.Consolidate(), ErrInvalidState)

	// Failed transitions must not touch resolvedAt
	assert.Equal(t, firstResolvedAt, *reservation.ResolvedAt)
	assert.Equal(t, ReservationStateConsolidated, reservation.State)
}

func TestReservation_IsExpiredIndependentOfState(t *testing.T) {
	reservation := newActiveReservation(600)
	assert.False(t, reservation.IsExpired())

	reservation.ExpiresAt = time.Now().Add(-1 * time.Minute)
	assert.True(t, reservation.IsExpired())

	// A consolidated reservation past its lease still reads as expired
	require.NoError(t, reservation.Consolidate())
	assert.True(t, reservation.IsExpired())
	assert.False(t, reservation.IsActive())
}

func TestOperationType_IsValid(t *testing.T) {
	assert.True(t, OperationTypeSale.IsValid())
	assert.True(t, OperationTypeExchange.IsValid())
	assert.True(t, OperationTypeAdjustment.IsValid())
	assert.False(t, OperationType("REFUND").IsValid())
}
