package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InventoryAccount is the current-state projection of one inventory item per
// tenant/branch. Counts are mutated only through stock-movement-producing
// operations; the movement ledger is the source of truth.
type InventoryAccount struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	TenantID     uuid.UUID `gorm:"column:tenant_id;type:uuid;not null;index:idx_inventory_tenant_branch"`
	BranchID     uuid.UUID `gorm:"column:branch_id;type:uuid;not null;index:idx_inventory_tenant_branch"`
	Name         string    `gorm:"column:name;not null"`
	Brand        string    `gorm:"column:brand"`
	Model        string    `gorm:"column:model"`
	Serialized   bool      `gorm:"column:serialized;not null;default:false"`
	Available    int       `gorm:"column:available;not null;default:0"`
	Used         int       `gorm:"column:used;not null;default:0"`
	OnLoan       int       `gorm:"column:on_loan;not null;default:0"`
	ReorderLevel int       `gorm:"column:reorder_level;not null;default:0"`
	Active       bool      `gorm:"column:active;not null;default:true"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (a *InventoryAccount) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// CursorKey anchors keyset pagination for account listings.
func (a InventoryAccount) CursorKey() (time.Time, uuid.UUID) {
	return a.CreatedAt, a.ID
}
