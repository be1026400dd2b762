package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/odyomed/clinic-backend/pkg/enums"
)

// InventorySerial is one tracked serial number of a serialized inventory item.
// The set of rows with status in_stock is the item's serial pool.
type InventorySerial struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	InventoryID  uuid.UUID          `gorm:"column:inventory_id;type:uuid;not null;uniqueIndex:uniq_serial_per_item"`
	SerialNumber string             `gorm:"column:serial_number;not null;uniqueIndex:uniq_serial_per_item"`
	Status       enums.SerialStatus `gorm:"column:status;type:text;not null;default:'in_stock'"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *InventorySerial) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
