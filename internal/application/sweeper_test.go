package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retail-platform/inventory-service/internal/domain"
	"github.com/retail-platform/inventory-service/pkg/logging"
)

func newSweeperFixture(fx *serviceFixture) *ReservationSweeper {
	return NewReservationSweeper(
		fx.inventories,
		fx.reservations,
		fx.store,
		fx.tx,
		logging.New(logging.DefaultConfig("sweeper-test")),
		nil,
		&SweeperConfig{Interval: time.Hour, BatchSize: 100},
	)
}

func expireReservation(t *testing.T, fx *serviceFixture, reservationID string) {
	t.Helper()
	res := fx.reservations.reservations[reservationID]
	require.NotNil(t, res)
	res.ExpiresAt = time.Now().UTC().Add(-time.Minute)
}

func TestSweep_ReclaimsExpiredReservations(t *testing.T) {
	fx := newServiceFixture()
	inv := fx.seedInventory(t, 10)
	created := reserveForTest(t, fx, "sku-1", "order-1", 4)
	expireReservation(t, fx, created.ReservationID)

	sweeper := newSweeperFixture(fx)
	sweeper.Sweep(context.Background())

	res := fx.reservations.reservations[created.ReservationID]
	assert.Equal(t, domain.ReservationStateExpired, res.State)
	assert.NotNil(t, res.ResolvedAt)

	assert.Equal(t, 10, inv.AvailableQuantity)
	assert.Equal(t, 0, inv.ReservedQuantity)
	assert.Equal(t, map[string]int{"reclaimed": 1, "failed": 0}, sweeper.Stats())
}

func TestSweep_SkipsUnexpiredReservations(t *testing.T) {
	fx := newServiceFixture()
	inv := fx.seedInventory(t, 10)
	created := reserveForTest(t, fx, "sku-1", "order-1", 4)

	sweeper := newSweeperFixture(fx)
	sweeper.Sweep(context.Background())

	res := fx.reservations.reservations[created.ReservationID]
	assert.Equal(t, domain.ReservationStateActive, res.State)
	assert.Equal(t, 6, inv.AvailableQuantity)
	assert.Equal(t, map[string]int{"reclaimed": 0, "failed": 0}, sweeper.Stats())
}

func TestSweep_SkipsReservationResolvedAfterBatchQuery(t *testing.T) {
	fx := newServiceFixture()
	inv := fx.seedInventory(t, 10)
	created := reserveForTest(t, fx, "sku-1", "order-1", 4)
	expireReservation(t, fx, created.ReservationID)

	// Another writer consolidates between the batch query and the
	// per-reservation transaction; the reload inside expireOne must turn
	// the entry into a no-op
	res := fx.reservations.reservations[created.ReservationID]
	_, err := inv.ConsolidateReservation(res)
	require.NoError(t, err)
	versionAfterConsolidate := inv.Version

	sweeper := newSweeperFixture(fx)
	require.NoError(t, sweeper.expireOne(context.Background(), res))

	assert.Equal(t, domain.ReservationStateConsolidated, res.State)
	assert.Equal(t, 4, inv.WrittenOffQuantity)
	assert.Equal(t, versionAfterConsolidate, inv.Version)
}

func TestSweep_SecondPassProducesNoNewMovements(t *testing.T) {
	fx := newServiceFixture()
	inv := fx.seedInventory(t, 10)
	created := reserveForTest(t, fx, "sku-1", "order-1", 4)
	expireReservation(t, fx, created.ReservationID)

	sweeper := newSweeperFixture(fx)
	sweeper.Sweep(context.Background())

	movementsAfterFirst := len(fx.movements.movements)
	versionAfterFirst := inv.Version

	sweeper.Sweep(context.Background())

	assert.Len(t, fx.movements.movements, movementsAfterFirst)
	assert.Equal(t, versionAfterFirst, inv.Version)
	assert.Equal(t, map[string]int{"reclaimed": 1, "failed": 0}, sweeper.Stats())
}

func TestSweep_ContinuesPastFailures(t *testing.T) {
	fx := newServiceFixture()
	fx.seedInventory(t, 10)
	first := reserveForTest(t, fx, "sku-1", "order-1", 2)
	second := reserveForTest(t, fx, "sku-1", "order-2", 3)
	expireReservation(t, fx, first.ReservationID)
	expireReservation(t, fx, second.ReservationID)

	// Fail the first reservation reload; the other reservation must still
	// be reclaimed in its own transaction
	fx.reservations.findErrOnce = assert.AnError

	sweeper := newSweeperFixture(fx)
	sweeper.Sweep(context.Background())

	stats := sweeper.Stats()
	assert.Equal(t, 1, stats["reclaimed"])
	assert.Equal(t, 1, stats["failed"])

	states := []domain.ReservationState{
		fx.reservations.reservations[first.ReservationID].State,
		fx.reservations.reservations[second.ReservationID].State,
	}
	assert.Contains(t, states, domain.ReservationStateExpired)
	assert.Contains(t, states, domain.ReservationStateActive)
}

func TestSweeper_StartStop(t *testing.T) {
	fx := newServiceFixture()
	sweeper := newSweeperFixture(fx)

	require.NoError(t, sweeper.Start(context.Background()))
	assert.True(t, sweeper.IsRunning())
	assert.Error(t, sweeper.Start(context.Background()))

	require.NoError(t, sweeper.Stop())
	assert.False(t, sweeper.IsRunning())
	assert.Error(t, sweeper.Stop())
}

func TestSweeper_Restart(t *testing.T) {
	fx := newServiceFixture()
	sweeper := newSweeperFixture(fx)

	require.NoError(t, sweeper.Start(context.Background()))
	require.NoError(t, sweeper.Stop())

	require.NoError(t, sweeper.Start(context.Background()))
	assert.True(t, sweeper.IsRunning())
	require.NoError(t, sweeper.Stop())
	assert.False(t, sweeper.IsRunning())
}

func TestSweeper_StatsDuringSweep(t *testing.T) {
	fx := newServiceFixture()
	fx.seedInventory(t, 10)
	created := reserveForTest(t, fx, "sku-1", "order-1", 4)
	expireReservation(t, fx, created.ReservationID)

	sweeper := newSweeperFixture(fx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 20; i++ {
			sweeper.Sweep(context.Background())
		}
	}()

	// Stats must be readable while a sweep is running
	for {
		select {
		case <-done:
			assert.Equal(t, map[string]int{"reclaimed": 1, "failed": 0}, sweeper.Stats())
			return
		default:
			sweeper.Stats()
		}
	}
}
