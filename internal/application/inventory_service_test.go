package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/retail-platform/inventory-service/internal/domain"
	"github.com/retail-platform/inventory-service/pkg/logging"
)

// Fakes

// fakeInventoryRepo tracks the persisted version per record separately from
// the aggregate pointer so UpdateVersioned enforces the same compare-and-swap
// contract as the Mongo repository
type fakeInventoryRepo struct {
	byID          map[primitive.ObjectID]*domain.Inventory
	storedVersion map[primitive.ObjectID]int64
	insertErr     error
	findErr       error
	updateErr     error
}

func newFakeInventoryRepo() *fakeInventoryRepo {
	return &fakeInventoryRepo{
		byID:          make(map[primitive.ObjectID]*domain.Inventory),
		storedVersion: make(map[primitive.ObjectID]int64),
	}
}

func (f *fakeInventoryRepo) add(inv *domain.Inventory) {
	f.byID[inv.ID] = inv
	f.storedVersion[inv.ID] = inv.Version
	inv.BaseVersion = inv.Version
}

func (f *fakeInventoryRepo) Insert(ctx context.Context, inv *domain.Inventory) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	for _, existing := range f.byID {
		if existing.ItemType == inv.ItemType && existing.ItemID == inv.ItemID {
			return &domain.DuplicateError{Entity: "inventory", Key: inv.ItemType + "/" + inv.ItemID}
		}
	}
	f.byID[inv.ID] = inv
	f.storedVersion[inv.ID] = inv.Version
	inv.BaseVersion = inv.Version
	return nil
}

func (f *fakeInventoryRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*domain.Inventory, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	inv := f.byID[id]
	if inv != nil {
		inv.BaseVersion = f.storedVersion[id]
	}
	return inv, nil
}

func (f *fakeInventoryRepo) FindByItem(ctx context.Context, itemType, itemID string) (*domain.Inventory, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, inv := range f.byID {
		if inv.ItemType == itemType && inv.ItemID == itemID {
			inv.BaseVersion = f.storedVersion[inv.ID]
			return inv, nil
		}
	}
	return nil, nil
}

func (f *fakeInventoryRepo) UpdateVersioned(ctx context.Context, inv *domain.Inventory) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if f.storedVersion[inv.ID] != inv.BaseVersion {
		return &domain.OptimisticLockError{Entity: "inventory", ID: inv.ID.Hex(), Version: inv.BaseVersion}
	}
	f.byID[inv.ID] = inv
	f.storedVersion[inv.ID] = inv.Version
	inv.BaseVersion = inv.Version
	return nil
}

func (f *fakeInventoryRepo) FindLowStock(ctx context.Context, threshold int, limit int) ([]*domain.Inventory, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	results := make([]*domain.Inventory, 0)
	for _, inv := range f.byID {
		if !inv.IsDeleted() && inv.AvailableQuantity <= threshold {
			results = append(results, inv)
		}
	}
	return results, nil
}

func (f *fakeInventoryRepo) FindAll(ctx context.Context, limit, offset int) ([]*domain.Inventory, error) {
	results := make([]*domain.Inventory, 0, len(f.byID))
	for _, inv := range f.byID {
		if !inv.IsDeleted() {
			results = append(results, inv)
		}
	}
	return results, nil
}

type fakeReservationRepo struct {
	reservations map[string]*domain.Reservation
	findErr      error
	findErrOnce  error
}

func newFakeReservationRepo() *fakeReservationRepo {
	return &fakeReservationRepo{reservations: make(map[string]*domain.Reservation)}
}

func (f *fakeReservationRepo) add(res *domain.Reservation) {
	f.reservations[res.ReservationID] = res
}

func (f *fakeReservationRepo) Insert(ctx context.Context, res *domain.Reservation) error {
	f.reservations[res.ReservationID] = res
	return nil
}

func (f *fakeReservationRepo) FindByReservationID(ctx context.Context, reservationID string) (*domain.Reservation, error) {
	if f.findErrOnce != nil {
		err := f.findErrOnce
		f.findErrOnce = nil
		return nil, err
	}
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.reservations[reservationID], nil
}

func (f *fakeReservationRepo) FindActiveByOperation(ctx context.Context, operationID string) ([]*domain.Reservation, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	results := make([]*domain.Reservation, 0)
	for _, res := range f.reservations {
		if res.OperationID == operationID && res.IsActive() {
			results = append(results, res)
		}
	}
	return results, nil
}

func (f *fakeReservationRepo) FindExpired(ctx context.Context, asOf time.Time, limit int) ([]*domain.Reservation, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	results := make([]*domain.Reservation, 0)
	for _, res := range f.reservations {
		if res.IsActive() && res.ExpiresAt.Before(asOf) {
			results = append(results, res)
		}
		if len(results) == limit {
			break
		}
	}
	return results, nil
}

func (f *fakeReservationRepo) FindByInventory(ctx context.Context, inventoryID primitive.ObjectID) ([]*domain.Reservation, error) {
	results := make([]*domain.Reservation, 0)
	for _, res := range f.reservations {
		if res.InventoryID == inventoryID {
			results = append(results, res)
		}
	}
	return results, nil
}

func (f *fakeReservationRepo) CountActiveByInventory(ctx context.Context, inventoryID primitive.ObjectID) (int64, error) {
	var count int64
	for _, res := range f.reservations {
		if res.InventoryID == inventoryID && res.IsActive() {
			count++
		}
	}
	return count, nil
}

func (f *fakeReservationRepo) Update(ctx context.Context, res *domain.Reservation) error {
	f.reservations[res.ReservationID] = res
	return nil
}

type fakeMovementRepo struct {
	movements []*domain.Movement
}

func (f *fakeMovementRepo) Insert(ctx context.Context, m *domain.Movement) error {
	f.movements = append(f.movements, m)
	return nil
}

func (f *fakeMovementRepo) InsertAll(ctx context.Context, movements []*domain.Movement) error {
	f.movements = append(f.movements, movements...)
	return nil
}

func (f *fakeMovementRepo) FindByInventory(ctx context.Context, inventoryID primitive.ObjectID, limit, offset int) ([]*domain.Movement, error) {
	results := make([]*domain.Movement, 0)
	for _, m := range f.movements {
		if m.InventoryID == inventoryID {
			results = append(results, m)
		}
	}
	return results, nil
}

func (f *fakeMovementRepo) CountNonInitial(ctx context.Context, inventoryID primitive.ObjectID) (int64, error) {
	var count int64
	for _, m := range f.movements {
		if m.InventoryID == inventoryID && !m.IsInitialEntry() {
			count++
		}
	}
	return count, nil
}

// fakeStore applies units of work against the fake repositories so the
// state visible to subsequent calls matches what the Mongo store would do
type fakeStore struct {
	inventories  *fakeInventoryRepo
	reservations *fakeReservationRepo
	movements    *fakeMovementRepo
	applied      []*domain.UnitOfWork
	applyErr     error
}

func (f *fakeStore) Apply(ctx context.Context, uow *domain.UnitOfWork) error {
	if f.applyErr != nil {
		return f.applyErr
	}

	f.applied = append(f.applied, uow)

	if uow.Inventory.BaseVersion == 0 {
		if err := f.inventories.Insert(ctx, uow.Inventory); err != nil {
			return err
		}
	} else if err := f.inventories.UpdateVersioned(ctx, uow.Inventory); err != nil {
		return err
	}
	for _, res := range uow.NewReservations {
		_ = f.reservations.Insert(ctx, res)
	}
	for _, res := range uow.UpdatedReservations {
		_ = f.reservations.Update(ctx, res)
	}
	_ = f.movements.InsertAll(ctx, uow.Movements)

	uow.Inventory.ClearDomainEvents()
	return nil
}

type fakeTxManager struct {
	calls int
}

func (f *fakeTxManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

type fakeSettings struct {
	saleLease       int
	exchangeLease   int
	adjustmentLease int
	threshold       int
}

func (f *fakeSettings) LeaseSeconds(operationType domain.OperationType) int {
	switch operationType {
	case domain.OperationTypeSale:
		return f.saleLease
	case domain.OperationTypeExchange:
		return f.exchangeLease
	default:
		return f.adjustmentLease
	}
}

func (f *fakeSettings) LowStockThreshold() int { return f.threshold }
func (f *fakeSettings) SweepInterval() int     { return 60 }
func (f *fakeSettings) SweepBatchSize() int    { return 100 }

type fakeItemLinkChecker struct {
	linked bool
	err    error
}

func (f *fakeItemLinkChecker) HasLinkedItems(ctx context.Context, itemType, itemID string) (bool, error) {
	return f.linked, f.err
}

type serviceFixture struct {
	service      *InventoryService
	inventories  *fakeInventoryRepo
	reservations *fakeReservationRepo
	movements    *fakeMovementRepo
	store        *fakeStore
	tx           *fakeTxManager
	itemLinks    *fakeItemLinkChecker
}

func newServiceFixture() *serviceFixture {
	inventories := newFakeInventoryRepo()
	reservations := newFakeReservationRepo()
	movements := &fakeMovementRepo{}
	store := &fakeStore{inventories: inventories, reservations: reservations, movements: movements}
	tx := &fakeTxManager{}
	itemLinks := &fakeItemLinkChecker{}
	settings := &fakeSettings{saleLease: 1200, exchangeLease: 1200, adjustmentLease: 0, threshold: 5}
	logger := logging.New(logging.DefaultConfig("inventory-service-test"))

	service := NewInventoryService(inventories, reservations, movements, store, tx, settings, itemLinks, logger, nil)

	return &serviceFixture{
		service:      service,
		inventories:  inventories,
		reservations: reservations,
		movements:    movements,
		store:        store,
		tx:           tx,
		itemLinks:    itemLinks,
	}
}

func (fx *serviceFixture) seedInventory(t *testing.T, available int) *domain.Inventory {
	t.Helper()
	inv, movement, err := domain.NewInventory("PRODUCT", "sku-1", "aisle-1", available)
	require.NoError(t, err)
	inv.ClearDomainEvents()
	fx.inventories.add(inv)
	if movement != nil {
		_ = fx.movements.Insert(context.Background(), movement)
	}
	return inv
}

// Tests

func TestInventoryService_CreateInventory(t *testing.T) {
	fx := newServiceFixture()

	dto, err := fx.service.CreateInventory(context.Background(), CreateInventoryCommand{
		ItemType:        "PRODUCT",
		ItemID:          "sku-1",
		Location:        "aisle-1",
		InitialQuantity: 25,
	})
	require.NoError(t, err)

	assert.Equal(t, 25, dto.AvailableQuantity)
	assert.Equal(t, int64(1), dto.Version)
	assert.Equal(t, 1, fx.tx.calls)

	require.Len(t, fx.store.applied, 1)
	require.Len(t, fx.store.applied[0].Movements, 1)
	assert.Equal(t, domain.MovementTypeInitialEntry, fx.store.applied[0].Movements[0].MovementType)
}

func TestInventoryService_CreateInventory_Duplicate(t *testing.T) {
	fx := newServiceFixture()
	fx.seedInventory(t, 10)

	_, err := fx.service.CreateInventory(context.Background(), CreateInventoryCommand{
		ItemType: "PRODUCT",
		ItemID:   "sku-1",
	})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestInventoryService_Reserve(t *testing.T) {
	fx := newServiceFixture()
	inv := fx.seedInventory(t, 10)

	dto, err := fx.service.Reserve(context.Background(), ReserveCommand{
		ItemType:      "PRODUCT",
		ItemID:        "sku-1",
		Quantity:      4,
		OperationID:   "order-1",
		OperationType: "SALE",
		ActorType:     "USER",
		ActorID:       "user-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "ACTIVE", dto.State)
	assert.Equal(t, 4, dto.Quantity)

	// Lease falls back to the configured SALE lease
	assert.WithinDuration(t, dto.CreatedAt.Add(1200*time.Second), dto.ExpiresAt, time.Second)

	assert.Equal(t, 6, inv.AvailableQuantity)
	assert.Equal(t, 4, inv.ReservedQuantity)

	require.Len(t, fx.store.applied, 1)
	require.Len(t, fx.store.applied[0].NewReservations, 1)
}

func TestInventoryService_Reserve_ExplicitLease(t *testing.T) {
	fx := newServiceFixture()
	fx.seedInventory(t, 10)

	dto, err := fx.service.Reserve(context.Background(), ReserveCommand{
		ItemType:      "PRODUCT",
		ItemID:        "sku-1",
		Quantity:      1,
		OperationID:   "order-1",
		OperationType: "SALE",
		ActorType:     "USER",
		ActorID:       "user-1",
		LeaseSeconds:  30,
	})
	require.NoError(t, err)
	assert.WithinDuration(t, dto.CreatedAt.Add(30*time.Second), dto.ExpiresAt, time.Second)
}

func TestInventoryService_Reserve_InsufficientStock(t *testing.T) {
	fx := newServiceFixture()
	fx.seedInventory(t, 3)

	_, err := fx.service.Reserve(context.Background(), ReserveCommand{
		ItemType:      "PRODUCT",
		ItemID:        "sku-1",
		Quantity:      5,
		OperationID:   "order-1",
		OperationType: "SALE",
		ActorType:     "USER",
		ActorID:       "user-1",
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Empty(t, fx.store.applied)
}

func TestInventoryService_Reserve_UnknownItem(t *testing.T) {
	fx := newServiceFixture()

	_, err := fx.service.Reserve(context.Background(), ReserveCommand{
		ItemType:      "PRODUCT",
		ItemID:        "missing",
		Quantity:      1,
		OperationID:   "order-1",
		OperationType: "SALE",
		ActorType:     "USER",
		ActorID:       "user-1",
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInventoryService_Reserve_OptimisticLockPassesThrough(t *testing.T) {
	fx := newServiceFixture()
	fx.seedInventory(t, 10)
	fx.store.applyErr = &domain.OptimisticLockError{Entity: "inventory", ID: "x", Version: 2}

	_, err := fx.service.Reserve(context.Background(), ReserveCommand{
		ItemType:      "PRODUCT",
		ItemID:        "sku-1",
		Quantity:      1,
		OperationID:   "order-1",
		OperationType: "SALE",
		ActorType:     "USER",
		ActorID:       "user-1",
	})

	// The service does not retry; the conflict surfaces to the caller
	assert.ErrorIs(t, err, domain.ErrOptimisticLock)
}

func TestInventoryService_Adjust_BootstrapRecordsInitialEntry(t *testing.T) {
	fx := newServiceFixture()
	inv, _, err := domain.NewInventory("PRODUCT", "sku-1", "", 0)
	require.NoError(t, err)
	inv.ClearDomainEvents()
	fx.inventories.add(inv)

	dto, err := fx.service.Adjust(context.Background(), AdjustCommand{
		ItemType:   "PRODUCT",
		ItemID:     "sku-1",
		Delta:      30,
		EmployeeID: "emp-1",
		Intent:     "initial stock",
	})
	require.NoError(t, err)
	assert.Equal(t, string(domain.MovementTypeInitialEntry), dto.MovementType)
	assert.Equal(t, 30, inv.AvailableQuantity)
}

func TestInventoryService_Adjust_ManualAfterMovements(t *testing.T) {
	fx := newServiceFixture()
	inv := fx.seedInventory(t, 20)

	dto, err := fx.service.Adjust(context.Background(), AdjustCommand{
		ItemType:   "PRODUCT",
		ItemID:     "sku-1",
		Delta:      -5,
		EmployeeID: "emp-1",
		Intent:     "damage",
		Notes:      "water damage in aisle",
	})
	require.NoError(t, err)
	assert.Equal(t, string(domain.MovementTypeManualAdjustment), dto.MovementType)
	assert.Equal(t, 15, inv.AvailableQuantity)
}

func TestInventoryService_CheckAvailability(t *testing.T) {
	fx := newServiceFixture()
	fx.seedInventory(t, 10)

	dto, err := fx.service.CheckAvailability(context.Background(), CheckAvailabilityQuery{
		ItemType: "PRODUCT",
		ItemID:   "sku-1",
		Quantity: 10,
	})
	require.NoError(t, err)
	assert.True(t, dto.Available)
	assert.Equal(t, 10, dto.AvailableQuantity)

	dto, err = fx.service.CheckAvailability(context.Background(), CheckAvailabilityQuery{
		ItemType: "PRODUCT",
		ItemID:   "sku-1",
		Quantity: 11,
	})
	require.NoError(t, err)
	assert.False(t, dto.Available)
}

func TestInventoryService_Delete(t *testing.T) {
	fx := newServiceFixture()
	inv := fx.seedInventory(t, 0)

	require.NoError(t, fx.service.Delete(context.Background(), DeleteInventoryCommand{
		ItemType: "PRODUCT",
		ItemID:   "sku-1",
	}))
	assert.True(t, inv.IsDeleted())

	// Deleted records are invisible to reads by default
	_, err := fx.service.GetByItem(context.Background(), GetByItemQuery{ItemType: "PRODUCT", ItemID: "sku-1"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	dto, err := fx.service.GetByItem(context.Background(), GetByItemQuery{ItemType: "PRODUCT", ItemID: "sku-1", IncludeDeleted: true})
	require.NoError(t, err)
	assert.NotNil(t, dto.DeletedAt)
}

func TestInventoryService_Delete_BlockedByDependencies(t *testing.T) {
	tests := []struct {
		name  string
		setup func(fx *serviceFixture, inv *domain.Inventory)
	}{
		{
			name: "open reservation",
			setup: func(fx *serviceFixture, inv *domain.Inventory) {
				res, err := inv.Reserve(1, "order-1", domain.OperationTypeSale, domain.ActorTypeUser, "u", 600)
				require.NoError(t, err)
				fx.reservations.add(res)
			},
		},
		{
			name: "non-initialization movement",
			setup: func(fx *serviceFixture, inv *domain.Inventory) {
				m, err := inv.Adjust(-1, "emp-1", "damage", "", false)
				require.NoError(t, err)
				_ = fx.movements.Insert(context.Background(), m)
			},
		},
		{
			name: "linked items",
			setup: func(fx *serviceFixture, inv *domain.Inventory) {
				fx.itemLinks.linked = true
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newServiceFixture()
			inv := fx.seedInventory(t, 10)
			tt.setup(fx, inv)

			err := fx.service.Delete(context.Background(), DeleteInventoryCommand{
				ItemType: "PRODUCT",
				ItemID:   "sku-1",
			})
			assert.ErrorIs(t, err, domain.ErrHasDependencies)
			assert.False(t, inv.IsDeleted())
		})
	}
}

func TestInventoryService_Restore(t *testing.T) {
	fx := newServiceFixture()
	inv := fx.seedInventory(t, 0)
	require.NoError(t, fx.service.Delete(context.Background(), DeleteInventoryCommand{ItemType: "PRODUCT", ItemID: "sku-1"}))

	dto, err := fx.service.Restore(context.Background(), RestoreInventoryCommand{ItemType: "PRODUCT", ItemID: "sku-1"})
	require.NoError(t, err)
	assert.Nil(t, dto.DeletedAt)
	assert.False(t, inv.IsDeleted())
}

func TestInventoryService_DetectLowStock(t *testing.T) {
	fx := newServiceFixture()
	fx.seedInventory(t, 3) // threshold is 5

	dtos, err := fx.service.DetectLowStock(context.Background(), DetectLowStockQuery{})
	require.NoError(t, err)
	require.Len(t, dtos, 1)
	assert.Equal(t, 3, dtos[0].AvailableQuantity)
}

func TestInventoryService_ListInventories(t *testing.T) {
	fx := newServiceFixture()
	fx.seedInventory(t, 10)

	deleted, _, err := domain.NewInventory("PRODUCT", "sku-2", "aisle-2", 0)
	require.NoError(t, err)
	deleted.ClearDomainEvents()
	require.NoError(t, deleted.MarkDeleted(false, false, false))
	fx.inventories.add(deleted)

	dtos, err := fx.service.ListInventories(context.Background(), ListInventoriesQuery{})
	require.NoError(t, err)
	require.Len(t, dtos, 1)
	assert.Equal(t, "sku-1", dtos[0].ItemID)
}

func TestInventoryService_ListMovements(t *testing.T) {
	fx := newServiceFixture()
	fx.seedInventory(t, 10)

	_, err := fx.service.Adjust(context.Background(), AdjustCommand{
		ItemType: "PRODUCT", ItemID: "sku-1", Delta: 5, EmployeeID: "emp-1", Intent: "recount",
	})
	require.NoError(t, err)

	movements, err := fx.service.ListMovements(context.Background(), ListMovementsQuery{
		ItemType: "PRODUCT", ItemID: "sku-1",
	})
	require.NoError(t, err)
	assert.Len(t, movements, 2) // initial entry plus the adjustment
}
