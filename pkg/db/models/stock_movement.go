package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/odyomed/clinic-backend/pkg/enums"
)

// StockMovement is one append-only ledger entry for a signed inventory
// quantity change. Corrections are new offsetting entries; rows are never
// updated or deleted.
type StockMovement struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	TenantID      uuid.UUID          `gorm:"column:tenant_id;type:uuid;not null"`
	InventoryID   uuid.UUID          `gorm:"column:inventory_id;type:uuid;not null;index:idx_movement_inventory"`
	Type          enums.MovementType `gorm:"column:movement_type;type:text;not null"`
	Quantity      int                `gorm:"column:quantity;not null"`
	SerialNumber  *string            `gorm:"column:serial_number"`
	TransactionID uuid.UUID          `gorm:"column:transaction_id;type:uuid;not null;index:idx_movement_transaction"`
	ActorID       uuid.UUID          `gorm:"column:actor_id;type:uuid;not null"`
	Note          *string            `gorm:"column:note"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
}

func (m *StockMovement) BeforeCreate(_ *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// CursorKey anchors keyset pagination for the movement ledger.
func (m StockMovement) CursorKey() (time.Time, uuid.UUID) {
	return m.CreatedAt, m.ID
}
