package cloudevents

import (
	"time"
)

// EventType constants for inventory domain events
const (
	InventoryCreated     = "retail.inventory.created"
	InventoryReserved    = "retail.inventory.reserved"
	InventoryDecremented = "retail.inventory.decremented"
	InventoryReleased    = "retail.inventory.released"
	InventoryAdjusted    = "retail.inventory.adjusted"
	InventoryDeleted     = "retail.inventory.deleted"
	InventoryRestored    = "retail.inventory.restored"
	LowStockAlert        = "retail.inventory.low-stock-alert"

	ReservationExpired = "retail.reservation.expired"
)

// Source constants for event sources
const (
	SourceInventory = "/retail/inventory-service"
)

// Extension attribute names carried as message headers
const (
	ExtCorrelationID = "correlationid"
	ExtOperationID   = "operationid"
)

// CloudEvent represents a CloudEvents v1.0 compliant event
type CloudEvent struct {
	SpecVersion     string                 `json:"specversion"`
	Type            string                 `json:"type"`
	Source          string                 `json:"source"`
	Subject         string                 `json:"subject,omitempty"`
	ID              string                 `json:"id"`
	Time            time.Time              `json:"time"`
	DataContentType string                 `json:"datacontenttype"`
	Data            interface{}            `json:"data"`
	Extensions      map[string]interface{} `json:"-"`

	// Business context extensions
	CorrelationID string `json:"correlationid,omitempty"`
	OperationID   string `json:"operationid,omitempty"`
}
