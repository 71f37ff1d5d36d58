package application

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/retail-platform/inventory-service/internal/domain"
)

// ConsolidateByOperation confirms every ACTIVE reservation sharing an
// operation ID. All affected inventories commit in ONE transaction: either
// the whole operation's stock leaves the system or none of it does.
func (s *InventoryService) ConsolidateByOperation(ctx context.Context, cmd ConsolidateByOperationCommand) (*ConsolidationResultDTO, error) {
	reservations, err := s.reservations.FindActiveByOperation(ctx, cmd.OperationID)
	if err != nil {
		return nil, fmt.Errorf("failed to find reservations: %w", err)
	}

	if len(reservations) == 0 {
		return nil, &domain.NotFoundError{Entity: "active reservations for operation", ID: cmd.OperationID}
	}

	// Group by inventory so each aggregate is loaded and persisted once
	byInventory := make(map[primitive.ObjectID][]*domain.Reservation)
	order := make([]primitive.ObjectID, 0)
	for _, res := range reservations {
		if _, seen := byInventory[res.InventoryID]; !seen {
			order = append(order, res.InventoryID)
		}
		byInventory[res.InventoryID] = append(byInventory[res.InventoryID], res)
	}

	err = s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		for _, inventoryID := range order {
			inv, err := s.inventories.FindByID(txCtx, inventoryID)
			if err != nil {
				return fmt.Errorf("failed to load inventory %s: %w", inventoryID.Hex(), err)
			}
			if inv == nil {
				return &domain.NotFoundError{Entity: "inventory", ID: inventoryID.Hex()}
			}

			uow := &domain.UnitOfWork{Inventory: inv}
			for _, res := range byInventory[inventoryID] {
				movement, err := inv.ConsolidateReservation(res)
				if err != nil {
					return err
				}
				uow.UpdatedReservations = append(uow.UpdatedReservations, res)
				uow.Movements = append(uow.Movements, movement)
			}

			if err := s.store.Apply(txCtx, uow); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.WithError(err).Error("Consolidation failed", "operationId", cmd.OperationID)
		return nil, err
	}

	if s.metrics != nil {
		for range reservations {
			s.metrics.RecordReservationResolved(string(domain.ReservationStateConsolidated))
		}
		s.recordMovementsByType(domain.MovementTypeSaleExit, len(reservations))
	}

	s.logger.Info("Consolidated reservations",
		"operationId", cmd.OperationID,
		"count", len(reservations),
		"inventories", len(byInventory),
	)

	return &ConsolidationResultDTO{
		OperationID:  cmd.OperationID,
		Consolidated: len(reservations),
		Reservations: ToReservationDTOs(reservations),
	}, nil
}

// ReleaseReservation cancels one reservation and returns its stock
func (s *InventoryService) ReleaseReservation(ctx context.Context, cmd ReleaseReservationCommand) (*ReservationDTO, error) {
	reservation, err := s.reservations.FindByReservationID(ctx, cmd.ReservationID)
	if err != nil {
		return nil, fmt.Errorf("failed to find reservation: %w", err)
	}

	if reservation == nil {
		return nil, &domain.NotFoundError{Entity: "reservation", ID: cmd.ReservationID}
	}

	inv, err := s.inventories.FindByID(ctx, reservation.InventoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to load inventory: %w", err)
	}
	if inv == nil {
		return nil, &domain.NotFoundError{Entity: "inventory", ID: reservation.InventoryID.Hex()}
	}

	movement, err := inv.ReleaseReservation(reservation)
	if err != nil {
		return nil, err
	}

	uow := &domain.UnitOfWork{
		Inventory:           inv,
		UpdatedReservations: []*domain.Reservation{reservation},
		Movements:           []*domain.Movement{movement},
	}

	if err := s.apply(ctx, uow); err != nil {
		s.logger.WithError(err).Error("Failed to release reservation", "reservationId", cmd.ReservationID)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordReservationResolved(string(domain.ReservationStateReleased))
	}
	s.recordMovements(uow.Movements)

	s.logger.Info("Released reservation",
		"reservationId", cmd.ReservationID,
		"inventoryId", inv.ID.Hex(),
		"quantity", reservation.Quantity,
	)
	return ToReservationDTO(reservation), nil
}

func (s *InventoryService) recordMovementsByType(movementType domain.MovementType, count int) {
	if s.metrics == nil {
		return
	}
	for i := 0; i < count; i++ {
		s.metrics.RecordMovement(string(movementType))
	}
}
