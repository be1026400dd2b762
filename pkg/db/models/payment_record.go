package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/odyomed/clinic-backend/pkg/enums"
)

// PaymentRecord is one down payment collected toward a sale. Void records stay
// on file and stop counting toward the paid total.
type PaymentRecord struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	TenantID uuid.UUID `gorm:"column:tenant_id;type:uuid;not null"`
	SaleID   uuid.UUID `gorm:"column:sale_id;type:uuid;not null;index:idx_payment_sale"`

	Amount decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Method string              `gorm:"column:method"`
	Status enums.PaymentStatus `gorm:"column:status;type:text;not null;default:'active'"`

	ActorID   uuid.UUID `gorm:"column:actor_id;type:uuid;not null"`
	PaidAt    time.Time `gorm:"column:paid_at;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *PaymentRecord) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
