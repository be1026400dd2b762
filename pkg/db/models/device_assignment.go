package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/odyomed/clinic-backend/pkg/enums"
)

// DeviceAssignment records one device fitted to a patient within a sale,
// together with the pricing snapshot taken when the assignment was last
// calculated. InventoryID is nil for manual entries that bypass stock.
type DeviceAssignment struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	TenantID    uuid.UUID  `gorm:"column:tenant_id;type:uuid;not null;index:idx_assignment_tenant"`
	BranchID    uuid.UUID  `gorm:"column:branch_id;type:uuid;not null"`
	PatientID   uuid.UUID  `gorm:"column:patient_id;type:uuid;not null;index:idx_assignment_patient"`
	SaleID      uuid.UUID  `gorm:"column:sale_id;type:uuid;not null;index:idx_assignment_sale"`
	InventoryID *uuid.UUID `gorm:"column:inventory_id;type:uuid"`
	DeviceID    *uuid.UUID `gorm:"column:device_id;type:uuid"`
	Brand       string     `gorm:"column:brand"`
	Model       string     `gorm:"column:model"`

	Ear enums.EarSide `gorm:"column:ear;type:text;not null;default:'left'"`

	ListPrice     decimal.Decimal    `gorm:"column:list_price;type:numeric(12,2);not null"`
	DiscountType  enums.DiscountType `gorm:"column:discount_type;type:text;not null;default:'none'"`
	DiscountValue decimal.Decimal    `gorm:"column:discount_value;type:numeric(12,2);not null;default:0"`
	SGKScheme     string             `gorm:"column:sgk_scheme"`
	SGKSupport    decimal.Decimal    `gorm:"column:sgk_support;type:numeric(12,2);not null;default:0"`
	SalePrice     decimal.Decimal    `gorm:"column:sale_price;type:numeric(12,2);not null"`
	NetPayable    decimal.Decimal    `gorm:"column:net_payable;type:numeric(12,2);not null"`

	SerialNumber      *string `gorm:"column:serial_number"`
	SerialNumberLeft  *string `gorm:"column:serial_number_left"`
	SerialNumberRight *string `gorm:"column:serial_number_right"`

	DeliveryStatus enums.DeliveryStatus   `gorm:"column:delivery_status;type:text;not null;default:'pending'"`
	ReportStatus   string                 `gorm:"column:report_status"`
	Status         enums.AssignmentStatus `gorm:"column:status;type:text;not null;default:'active'"`

	IsLoaner                bool       `gorm:"column:is_loaner;not null;default:false"`
	LoanerInventoryID       *uuid.UUID `gorm:"column:loaner_inventory_id;type:uuid"`
	LoanerSerialNumber      *string    `gorm:"column:loaner_serial_number"`
	LoanerSerialNumberLeft  *string    `gorm:"column:loaner_serial_number_left"`
	LoanerSerialNumberRight *string    `gorm:"column:loaner_serial_number_right"`
	LoanerBrand             string     `gorm:"column:loaner_brand"`
	LoanerModel             string     `gorm:"column:loaner_model"`

	DeliveredAt *time.Time `gorm:"column:delivered_at"`
	CancelledAt *time.Time `gorm:"column:cancelled_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (a *DeviceAssignment) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// CursorKey anchors keyset pagination for patient listings.
func (a DeviceAssignment) CursorKey() (time.Time, uuid.UUID) {
	return a.CreatedAt, a.ID
}

// StockQuantity is how many physical units the assignment consumes.
func (a *DeviceAssignment) StockQuantity() int {
	return a.Ear.Units()
}

// Serials returns the non-empty serial numbers attached to the purchased
// device, ear-aware.
func (a *DeviceAssignment) Serials() []string {
	return collectSerials(a.Ear, a.SerialNumber, a.SerialNumberLeft, a.SerialNumberRight)
}

// LoanerSerials returns the non-empty serials attached to the loaner device.
func (a *DeviceAssignment) LoanerSerials() []string {
	return collectSerials(a.Ear, a.LoanerSerialNumber, a.LoanerSerialNumberLeft, a.LoanerSerialNumberRight)
}

func collectSerials(ear enums.EarSide, single, left, right *string) []string {
	var out []string
	if ear == enums.EarSideBoth {
		for _, s := range []*string{left, right} {
			if s != nil && *s != "" {
				out = append(out, *s)
			}
		}
		return out
	}
	if single != nil && *single != "" {
		out = append(out, *single)
	}
	return out
}
