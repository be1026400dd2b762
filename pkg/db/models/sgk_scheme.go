package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SGKScheme is one payer reimbursement scheme configured per tenant. Read-only
// to the engine; maintained by the settings surface.
type SGKScheme struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	TenantID       uuid.UUID       `gorm:"column:tenant_id;type:uuid;not null;uniqueIndex:uniq_scheme_per_tenant"`
	Code           string          `gorm:"column:code;not null;uniqueIndex:uniq_scheme_per_tenant"`
	CoverageAmount decimal.Decimal `gorm:"column:coverage_amount;type:numeric(12,2);not null"`
	MaxAmount      decimal.Decimal `gorm:"column:max_amount;type:numeric(12,2);not null"`
	IsDefault      bool            `gorm:"column:is_default;not null;default:false"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *SGKScheme) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
