package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/odyomed/clinic-backend/pkg/enums"
)

// Sale is the financial aggregate over a patient's device assignments and
// down payments. Totals and status are derived by the aggregator, never
// edited independently.
type Sale struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	TenantID  uuid.UUID `gorm:"column:tenant_id;type:uuid;not null;index:idx_sale_tenant"`
	BranchID  uuid.UUID `gorm:"column:branch_id;type:uuid;not null"`
	PatientID uuid.UUID `gorm:"column:patient_id;type:uuid;not null;index:idx_sale_patient"`

	ListPriceTotal decimal.Decimal `gorm:"column:list_price_total;type:numeric(12,2);not null;default:0"`
	DiscountAmount decimal.Decimal `gorm:"column:discount_amount;type:numeric(12,2);not null;default:0"`
	SGKCoverage    decimal.Decimal `gorm:"column:sgk_coverage;type:numeric(12,2);not null;default:0"`
	FinalAmount    decimal.Decimal `gorm:"column:final_amount;type:numeric(12,2);not null;default:0"`
	PaidAmount     decimal.Decimal `gorm:"column:paid_amount;type:numeric(12,2);not null;default:0"`

	Status enums.SaleStatus `gorm:"column:status;type:text;not null;default:'pending'"`

	Assignments []DeviceAssignment `gorm:"foreignKey:SaleID"`
	Payments    []PaymentRecord    `gorm:"foreignKey:SaleID"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Sale) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
