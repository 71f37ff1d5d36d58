package application

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/retail-platform/inventory-service/internal/domain"
	"github.com/retail-platform/inventory-service/pkg/logging"
	"github.com/retail-platform/inventory-service/pkg/metrics"
)

// InventoryService handles inventory use cases. It loads aggregates, runs
// domain logic, and persists each operation's unit of work in one
// transaction. Domain errors pass through untranslated; the HTTP layer maps
// them to API errors.
type InventoryService struct {
	inventories  domain.InventoryRepository
	reservations domain.ReservationRepository
	movements    domain.MovementRepository
	store        domain.Store
	tx           domain.TransactionManager
	settings     Settings
	itemLinks    ItemLinkChecker
	logger       *logging.Logger
	metrics      *metrics.Metrics
}

// NewInventoryService creates a new InventoryService
func NewInventoryService(
	inventories domain.InventoryRepository,
	reservations domain.ReservationRepository,
	movements domain.MovementRepository,
	store domain.Store,
	tx domain.TransactionManager,
	settings Settings,
	itemLinks ItemLinkChecker,
	logger *logging.Logger,
	m *metrics.Metrics,
) *InventoryService {
	return &InventoryService{
		inventories:  inventories,
		reservations: reservations,
		movements:    movements,
		store:        store,
		tx:           tx,
		settings:     settings,
		itemLinks:    itemLinks,
		logger:       logger,
		metrics:      m,
	}
}

// CreateInventory creates an inventory record. The (itemType, itemId) pair is
// unique; a second create for the same pair fails with a duplicate error.
func (s *InventoryService) CreateInventory(ctx context.Context, cmd CreateInventoryCommand) (*InventoryDTO, error) {
	inv, movement, err := domain.NewInventory(cmd.ItemType, cmd.ItemID, cmd.Location, cmd.InitialQuantity)
	if err != nil {
		return nil, err
	}

	uow := &domain.UnitOfWork{Inventory: inv}
	if movement != nil {
		uow.Movements = append(uow.Movements, movement)
	}

	if err := s.apply(ctx, uow); err != nil {
		s.logger.WithError(err).Error("Failed to create inventory", "itemType", cmd.ItemType, "itemId", cmd.ItemID)
		return nil, err
	}

	s.recordMovements(uow.Movements)

	s.logger.Info("Created inventory",
		"inventoryId", inv.ID.Hex(),
		"itemType", cmd.ItemType,
		"itemId", cmd.ItemID,
		"initialQuantity", cmd.InitialQuantity,
	)
	return ToInventoryDTO(inv), nil
}

// Reserve claims stock for a business operation and returns the reservation
func (s *InventoryService) Reserve(ctx context.Context, cmd ReserveCommand) (*ReservationDTO, error) {
	inv, err := s.findActive(ctx, cmd.ItemType, cmd.ItemID)
	if err != nil {
		return nil, err
	}

	operationType := domain.OperationType(cmd.OperationType)

	lease := cmd.LeaseSeconds
	if lease <= 0 {
		lease = s.settings.LeaseSeconds(operationType)
	}

	reservation, err := inv.Reserve(
		cmd.Quantity,
		cmd.OperationID,
		operationType,
		domain.ActorType(cmd.ActorType),
		cmd.ActorID,
		lease,
	)
	if err != nil {
		if s.metrics != nil && errors.Is(err, domain.ErrInsufficientStock) {
			s.metrics.RecordInsufficientStock()
		}
		return nil, err
	}

	inv.CheckLowStock(s.settings.LowStockThreshold())

	uow := &domain.UnitOfWork{
		Inventory:       inv,
		NewReservations: []*domain.Reservation{reservation},
	}

	if err := s.apply(ctx, uow); err != nil {
		s.logger.WithError(err).Error("Failed to persist reservation",
			"itemType", cmd.ItemType, "itemId", cmd.ItemID, "operationId", cmd.OperationID)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordReservationCreated(string(operationType))
	}

	s.logger.Info("Reserved stock",
		"reservationId", reservation.ReservationID,
		"itemType", cmd.ItemType,
		"itemId", cmd.ItemID,
		"operationId", cmd.OperationID,
		"quantity", cmd.Quantity,
		"expiresAt", reservation.ExpiresAt,
	)
	return ToReservationDTO(reservation), nil
}

// Adjust applies a signed correction to available stock. The first positive
// adjustment on a record without movements is recorded as the initial entry.
func (s *InventoryService) Adjust(ctx context.Context, cmd AdjustCommand) (*MovementDTO, error) {
	inv, err := s.findActive(ctx, cmd.ItemType, cmd.ItemID)
	if err != nil {
		return nil, err
	}

	existing, err := s.movements.FindByInventory(ctx, inv.ID, 1, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect movements: %w", err)
	}
	bootstrap := len(existing) == 0

	movement, err := inv.Adjust(cmd.Delta, cmd.EmployeeID, cmd.Intent, cmd.Notes, bootstrap)
	if err != nil {
		return nil, err
	}

	inv.CheckLowStock(s.settings.LowStockThreshold())

	uow := &domain.UnitOfWork{
		Inventory: inv,
		Movements: []*domain.Movement{movement},
	}

	if err := s.apply(ctx, uow); err != nil {
		s.logger.WithError(err).Error("Failed to persist adjustment",
			"itemType", cmd.ItemType, "itemId", cmd.ItemID, "delta", cmd.Delta)
		return nil, err
	}

	s.recordMovements(uow.Movements)

	s.logger.Info("Adjusted inventory",
		"inventoryId", inv.ID.Hex(),
		"delta", cmd.Delta,
		"movementType", movement.MovementType,
		"employeeId", cmd.EmployeeID,
	)
	return ToMovementDTO(movement), nil
}

// CheckAvailability answers whether a quantity can currently be reserved
func (s *InventoryService) CheckAvailability(ctx context.Context, query CheckAvailabilityQuery) (*AvailabilityDTO, error) {
	inv, err := s.findActive(ctx, query.ItemType, query.ItemID)
	if err != nil {
		return nil, err
	}

	return &AvailabilityDTO{
		ItemType:          query.ItemType,
		ItemID:            query.ItemID,
		RequestedQuantity: query.Quantity,
		AvailableQuantity: inv.AvailableQuantity,
		Available:         inv.VerifyAvailability(query.Quantity),
	}, nil
}

// GetByItem retrieves an inventory record by its item pair
func (s *InventoryService) GetByItem(ctx context.Context, query GetByItemQuery) (*InventoryDTO, error) {
	inv, err := s.inventories.FindByItem(ctx, query.ItemType, query.ItemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory: %w", err)
	}

	if inv == nil || (inv.IsDeleted() && !query.IncludeDeleted) {
		return nil, &domain.NotFoundError{Entity: "inventory", ID: query.ItemType + "/" + query.ItemID}
	}

	return ToInventoryDTO(inv), nil
}

// GetByID retrieves an inventory record by its ID
func (s *InventoryService) GetByID(ctx context.Context, query GetByIDQuery) (*InventoryDTO, error) {
	id, err := primitive.ObjectIDFromHex(query.InventoryID)
	if err != nil {
		return nil, &domain.NotFoundError{Entity: "inventory", ID: query.InventoryID}
	}

	inv, err := s.inventories.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory: %w", err)
	}

	if inv == nil {
		return nil, &domain.NotFoundError{Entity: "inventory", ID: query.InventoryID}
	}

	return ToInventoryDTO(inv), nil
}

// ListMovements returns the audit trail of an inventory record, newest first
func (s *InventoryService) ListMovements(ctx context.Context, query ListMovementsQuery) ([]MovementDTO, error) {
	inv, err := s.inventories.FindByItem(ctx, query.ItemType, query.ItemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory: %w", err)
	}

	if inv == nil {
		return nil, &domain.NotFoundError{Entity: "inventory", ID: query.ItemType + "/" + query.ItemID}
	}

	limit := query.Limit
	if limit <= 0 {
		limit = 50
	}

	movements, err := s.movements.FindByInventory(ctx, inv.ID, limit, query.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list movements: %w", err)
	}

	return ToMovementDTOs(movements), nil
}

// Delete soft deletes an inventory record. Blocked while open reservations,
// non-initialization movements, or linked catalog items exist.
func (s *InventoryService) Delete(ctx context.Context, cmd DeleteInventoryCommand) error {
	inv, err := s.findActive(ctx, cmd.ItemType, cmd.ItemID)
	if err != nil {
		return err
	}

	activeReservations, err := s.reservations.CountActiveByInventory(ctx, inv.ID)
	if err != nil {
		return fmt.Errorf("failed to count reservations: %w", err)
	}

	movementCount, err := s.movements.CountNonInitial(ctx, inv.ID)
	if err != nil {
		return fmt.Errorf("failed to count movements: %w", err)
	}

	hasItems := false
	if s.itemLinks != nil {
		hasItems, err = s.itemLinks.HasLinkedItems(ctx, cmd.ItemType, cmd.ItemID)
		if err != nil {
			return fmt.Errorf("failed to check linked items: %w", err)
		}
	}

	if err := inv.MarkDeleted(activeReservations > 0, movementCount > 0, hasItems); err != nil {
		return err
	}

	if err := s.apply(ctx, &domain.UnitOfWork{Inventory: inv}); err != nil {
		s.logger.WithError(err).Error("Failed to delete inventory", "itemType", cmd.ItemType, "itemId", cmd.ItemID)
		return err
	}

	s.logger.Info("Deleted inventory", "inventoryId", inv.ID.Hex(), "itemType", cmd.ItemType, "itemId", cmd.ItemID)
	return nil
}

// Restore clears a soft delete
func (s *InventoryService) Restore(ctx context.Context, cmd RestoreInventoryCommand) (*InventoryDTO, error) {
	inv, err := s.inventories.FindByItem(ctx, cmd.ItemType, cmd.ItemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory: %w", err)
	}

	if inv == nil {
		return nil, &domain.NotFoundError{Entity: "inventory", ID: cmd.ItemType + "/" + cmd.ItemID}
	}

	if err := inv.Restore(); err != nil {
		return nil, err
	}

	if err := s.apply(ctx, &domain.UnitOfWork{Inventory: inv}); err != nil {
		s.logger.WithError(err).Error("Failed to restore inventory", "itemType", cmd.ItemType, "itemId", cmd.ItemID)
		return nil, err
	}

	s.logger.Info("Restored inventory", "inventoryId", inv.ID.Hex(), "itemType", cmd.ItemType, "itemId", cmd.ItemID)
	return ToInventoryDTO(inv), nil
}

// ListInventories pages through active inventory records
func (s *InventoryService) ListInventories(ctx context.Context, query ListInventoriesQuery) ([]InventoryDTO, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = 50
	}

	invs, err := s.inventories.FindAll(ctx, limit, query.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventories: %w", err)
	}

	return ToInventoryDTOs(invs), nil
}

// DetectLowStock lists records at or below the configured threshold
func (s *InventoryService) DetectLowStock(ctx context.Context, query DetectLowStockQuery) ([]InventoryDTO, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = 100
	}

	invs, err := s.inventories.FindLowStock(ctx, s.settings.LowStockThreshold(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to detect low stock: %w", err)
	}

	return ToInventoryDTOs(invs), nil
}

// findActive loads a non-deleted inventory by item pair
func (s *InventoryService) findActive(ctx context.Context, itemType, itemID string) (*domain.Inventory, error) {
	inv, err := s.inventories.FindByItem(ctx, itemType, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory: %w", err)
	}

	if inv == nil || inv.IsDeleted() {
		return nil, &domain.NotFoundError{Entity: "inventory", ID: itemType + "/" + itemID}
	}

	return inv, nil
}

// apply persists a unit of work in one transaction
func (s *InventoryService) apply(ctx context.Context, uow *domain.UnitOfWork) error {
	return s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		return s.store.Apply(txCtx, uow)
	})
}

func (s *InventoryService) recordMovements(movements []*domain.Movement) {
	if s.metrics == nil {
		return
	}
	for _, m := range movements {
		s.metrics.RecordMovement(string(m.MovementType))
	}
}
