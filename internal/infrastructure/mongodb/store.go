package mongodb

import (
	"context"
	"fmt"

	"github.com/retail-platform/inventory-service/internal/domain"
	"github.com/retail-platform/inventory-service/pkg/cloudevents"
	"github.com/retail-platform/inventory-service/pkg/kafka"
	"github.com/retail-platform/inventory-service/pkg/outbox"
)

// Store applies a unit of work against the repositories and writes the
// aggregate's buffered domain events to the outbox. Everything runs on the
// caller's context; when that context belongs to a Mongo transaction the
// state change and its events commit or roll back together.
type Store struct {
	inventories  *InventoryRepository
	reservations *ReservationRepository
	movements    *MovementRepository
	outboxRepo   outbox.Repository
	eventFactory *cloudevents.EventFactory
}

func NewStore(
	inventories *InventoryRepository,
	reservations *ReservationRepository,
	movements *MovementRepository,
	outboxRepo outbox.Repository,
	eventFactory *cloudevents.EventFactory,
) *Store {
	return &Store{
		inventories:  inventories,
		reservations: reservations,
		movements:    movements,
		outboxRepo:   outboxRepo,
		eventFactory: eventFactory,
	}
}

func (s *Store) Apply(ctx context.Context, uow *domain.UnitOfWork) error {
	inv := uow.Inventory

	// BaseVersion zero means the aggregate has never been persisted;
	// everything after the first persist goes through the versioned update
	if inv.BaseVersion == 0 {
		if err := s.inventories.Insert(ctx, inv); err != nil {
			return err
		}
	} else {
		if err := s.inventories.UpdateVersioned(ctx, inv); err != nil {
			return err
		}
	}

	for _, reservation := range uow.NewReservations {
		if err := s.reservations.Insert(ctx, reservation); err != nil {
			return err
		}
	}

	for _, reservation := range uow.UpdatedReservations {
		if err := s.reservations.Update(ctx, reservation); err != nil {
			return err
		}
	}

	if err := s.movements.InsertAll(ctx, uow.Movements); err != nil {
		return err
	}

	if err := s.saveEvents(ctx, inv); err != nil {
		return err
	}

	inv.ClearDomainEvents()
	return nil
}

func (s *Store) saveEvents(ctx context.Context, inv *domain.Inventory) error {
	domainEvents := inv.GetDomainEvents()
	if len(domainEvents) == 0 {
		return nil
	}

	subject := "inventory/" + inv.ItemType + "/" + inv.ItemID

	outboxEvents := make([]*outbox.OutboxEvent, 0, len(domainEvents))
	for _, event := range domainEvents {
		cloudEvent := s.eventFactory.CreateEvent(ctx, event.EventType(), subject, event)
		cloudEvent.OperationID = operationID(event)

		outboxEvent, err := outbox.NewOutboxEventFromCloudEvent(
			inv.ID.Hex(),
			"Inventory",
			topicFor(event),
			cloudEvent,
		)
		if err != nil {
			return fmt.Errorf("failed to create outbox event: %w", err)
		}
		outboxEvents = append(outboxEvents, outboxEvent)
	}

	if err := s.outboxRepo.SaveAll(ctx, outboxEvents); err != nil {
		return fmt.Errorf("failed to save outbox events: %w", err)
	}
	return nil
}

// topicFor routes reservation lifecycle events to the reservation topic and
// everything else to the inventory topic
func topicFor(event domain.DomainEvent) string {
	if _, ok := event.(*domain.ReservationExpiredEvent); ok {
		return kafka.Topics.ReservationEvents
	}
	return kafka.Topics.InventoryEvents
}

func operationID(event domain.DomainEvent) string {
	switch e := event.(type) {
	case *domain.InventoryReservedEvent:
		return e.OperationID
	case *domain.InventoryDecrementedEvent:
		return e.OperationID
	case *domain.InventoryReleasedEvent:
		return e.OperationID
	case *domain.ReservationExpiredEvent:
		return e.OperationID
	default:
		return ""
	}
}
