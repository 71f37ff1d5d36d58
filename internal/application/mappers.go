package application

import "github.com/retail-platform/inventory-service/internal/domain"

// ToInventoryDTO converts a domain Inventory to InventoryDTO
func ToInventoryDTO(inv *domain.Inventory) *InventoryDTO {
	if inv == nil {
		return nil
	}

	return &InventoryDTO{
		ID:                 inv.ID.Hex(),
		ItemType:           inv.ItemType,
		ItemID:             inv.ItemID,
		AvailableQuantity:  inv.AvailableQuantity,
		ReservedQuantity:   inv.ReservedQuantity,
		WrittenOffQuantity: inv.WrittenOffQuantity,
		Location:           inv.Location,
		Version:            inv.Version,
		CreatedAt:          inv.CreatedAt,
		UpdatedAt:          inv.UpdatedAt,
		DeletedAt:          inv.DeletedAt,
	}
}

// ToInventoryDTOs converts a slice of domain Inventory to DTOs
func ToInventoryDTOs(invs []*domain.Inventory) []InventoryDTO {
	dtos := make([]InventoryDTO, 0, len(invs))
	for _, inv := range invs {
		dtos = append(dtos, *ToInventoryDTO(inv))
	}
	return dtos
}

// ToReservationDTO converts a domain Reservation to ReservationDTO
func ToReservationDTO(res *domain.Reservation) *ReservationDTO {
	if res == nil {
		return nil
	}

	return &ReservationDTO{
		ReservationID: res.ReservationID,
		InventoryID:   res.InventoryID.Hex(),
		OperationType: string(res.OperationType),
		OperationID:   res.OperationID,
		Quantity:      res.Quantity,
		ActorType:     string(res.ActorType),
		ActorID:       res.ActorID,
		State:         string(res.State),
		CreatedAt:     res.CreatedAt,
		ExpiresAt:     res.ExpiresAt,
		ResolvedAt:    res.ResolvedAt,
	}
}

// ToReservationDTOs converts a slice of domain Reservation to DTOs
func ToReservationDTOs(reservations []*domain.Reservation) []ReservationDTO {
	dtos := make([]ReservationDTO, 0, len(reservations))
	for _, res := range reservations {
		dtos = append(dtos, *ToReservationDTO(res))
	}
	return dtos
}

// ToMovementDTO converts a domain Movement to MovementDTO
func ToMovementDTO(m *domain.Movement) *MovementDTO {
	if m == nil {
		return nil
	}

	return &MovementDTO{
		MovementID:          m.MovementID,
		InventoryID:         m.InventoryID.Hex(),
		MovementType:        string(m.MovementType),
		Quantity:            m.Quantity,
		QuantityBefore:      m.QuantityBefore,
		QuantityAfter:       m.QuantityAfter,
		SourceOperationType: string(m.SourceOperationType),
		SourceOperationID:   m.SourceOperationID,
		EmployeeID:          m.EmployeeID,
		Intent:              m.Intent,
		Notes:               m.Notes,
		OccurredAt:          m.OccurredAt,
	}
}

// ToMovementDTOs converts a slice of domain Movement to DTOs
func ToMovementDTOs(movements []*domain.Movement) []MovementDTO {
	dtos := make([]MovementDTO, 0, len(movements))
	for _, m := range movements {
		dtos = append(dtos, *ToMovementDTO(m))
	}
	return dtos
}
