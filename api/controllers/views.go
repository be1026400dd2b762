package controllers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyomed/clinic-backend/pkg/db/models"
	"github.com/odyomed/clinic-backend/pkg/enums"
)

type assignmentView struct {
	ID        uuid.UUID  `json:"id"`
	SaleID    uuid.UUID  `json:"sale_id"`
	PatientID uuid.UUID  `json:"patient_id"`
	BranchID  uuid.UUID  `json:"branch_id"`

	InventoryID *uuid.UUID `json:"inventory_id,omitempty"`
	DeviceID    *uuid.UUID `json:"device_id,omitempty"`
	Brand       string     `json:"brand,omitempty"`
	Model       string     `json:"model,omitempty"`

	Ear enums.EarSide `json:"ear"`

	ListPrice     decimal.Decimal    `json:"list_price"`
	DiscountType  enums.DiscountType `json:"discount_type"`
	DiscountValue decimal.Decimal    `json:"discount_value"`
	SGKScheme     string             `json:"sgk_scheme,omitempty"`
	SGKSupport    decimal.Decimal    `json:"sgk_support"`
	SalePrice     decimal.Decimal    `json:"sale_price"`
	NetPayable    decimal.Decimal    `json:"net_payable"`

	SerialNumber      *string `json:"serial_number,omitempty"`
	SerialNumberLeft  *string `json:"serial_number_left,omitempty"`
	SerialNumberRight *string `json:"serial_number_right,omitempty"`

	DeliveryStatus enums.DeliveryStatus   `json:"delivery_status"`
	ReportStatus   string                 `json:"report_status,omitempty"`
	Status         enums.AssignmentStatus `json:"status"`

	IsLoaner                bool       `json:"is_loaner"`
	LoanerInventoryID       *uuid.UUID `json:"loaner_inventory_id,omitempty"`
	LoanerSerialNumber      *string    `json:"loaner_serial_number,omitempty"`
	LoanerSerialNumberLeft  *string    `json:"loaner_serial_number_left,omitempty"`
	LoanerSerialNumberRight *string    `json:"loaner_serial_number_right,omitempty"`
	LoanerBrand             string     `json:"loaner_brand,omitempty"`
	LoanerModel             string     `json:"loaner_model,omitempty"`

	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func toAssignmentView(a *models.DeviceAssignment) assignmentView {
	return assignmentView{
		ID:                      a.ID,
		SaleID:                  a.SaleID,
		PatientID:               a.PatientID,
		BranchID:                a.BranchID,
		InventoryID:             a.InventoryID,
		DeviceID:                a.DeviceID,
		Brand:                   a.Brand,
		Model:                   a.Model,
		Ear:                     a.Ear,
		ListPrice:               a.ListPrice,
		DiscountType:            a.DiscountType,
		DiscountValue:           a.DiscountValue,
		SGKScheme:               a.SGKScheme,
		SGKSupport:              a.SGKSupport,
		SalePrice:               a.SalePrice,
		NetPayable:              a.NetPayable,
		SerialNumber:            a.SerialNumber,
		SerialNumberLeft:        a.SerialNumberLeft,
		SerialNumberRight:       a.SerialNumberRight,
		DeliveryStatus:          a.DeliveryStatus,
		ReportStatus:            a.ReportStatus,
		Status:                  a.Status,
		IsLoaner:                a.IsLoaner,
		LoanerInventoryID:       a.LoanerInventoryID,
		LoanerSerialNumber:      a.LoanerSerialNumber,
		LoanerSerialNumberLeft:  a.LoanerSerialNumberLeft,
		LoanerSerialNumberRight: a.LoanerSerialNumberRight,
		LoanerBrand:             a.LoanerBrand,
		LoanerModel:             a.LoanerModel,
		DeliveredAt:             a.DeliveredAt,
		CancelledAt:             a.CancelledAt,
		CreatedAt:               a.CreatedAt,
		UpdatedAt:               a.UpdatedAt,
	}
}

type saleView struct {
	ID        uuid.UUID `json:"id"`
	PatientID uuid.UUID `json:"patient_id"`
	BranchID  uuid.UUID `json:"branch_id"`

	ListPriceTotal decimal.Decimal `json:"list_price_total"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	SGKCoverage    decimal.Decimal `json:"sgk_coverage"`
	FinalAmount    decimal.Decimal `json:"final_amount"`
	PaidAmount     decimal.Decimal `json:"paid_amount"`

	Status enums.SaleStatus `json:"status"`

	Assignments []assignmentView `json:"assignments,omitempty"`
	Payments    []paymentView    `json:"payments,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toSaleView(s *models.Sale) saleView {
	view := saleView{
		ID:             s.ID,
		PatientID:      s.PatientID,
		BranchID:       s.BranchID,
		ListPriceTotal: s.ListPriceTotal,
		DiscountAmount: s.DiscountAmount,
		SGKCoverage:    s.SGKCoverage,
		FinalAmount:    s.FinalAmount,
		PaidAmount:     s.PaidAmount,
		Status:         s.Status,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
	for i := range s.Assignments {
		view.Assignments = append(view.Assignments, toAssignmentView(&s.Assignments[i]))
	}
	for i := range s.Payments {
		view.Payments = append(view.Payments, toPaymentView(&s.Payments[i]))
	}
	return view
}

type paymentView struct {
	ID     uuid.UUID           `json:"id"`
	SaleID uuid.UUID           `json:"sale_id"`
	Amount decimal.Decimal     `json:"amount"`
	Method string              `json:"method,omitempty"`
	Status enums.PaymentStatus `json:"status"`
	PaidAt time.Time           `json:"paid_at"`
}

func toPaymentView(p *models.PaymentRecord) paymentView {
	return paymentView{
		ID:     p.ID,
		SaleID: p.SaleID,
		Amount: p.Amount,
		Method: p.Method,
		Status: p.Status,
		PaidAt: p.PaidAt,
	}
}

type accountView struct {
	ID           uuid.UUID `json:"id"`
	BranchID     uuid.UUID `json:"branch_id"`
	Name         string    `json:"name"`
	Brand        string    `json:"brand,omitempty"`
	Model        string    `json:"model,omitempty"`
	Serialized   bool      `json:"serialized"`
	Available    int       `json:"available"`
	Used         int       `json:"used"`
	OnLoan       int       `json:"on_loan"`
	ReorderLevel int       `json:"reorder_level"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toAccountView(a *models.InventoryAccount) accountView {
	return accountView{
		ID:           a.ID,
		BranchID:     a.BranchID,
		Name:         a.Name,
		Brand:        a.Brand,
		Model:        a.Model,
		Serialized:   a.Serialized,
		Available:    a.Available,
		Used:         a.Used,
		OnLoan:       a.OnLoan,
		ReorderLevel: a.ReorderLevel,
		Active:       a.Active,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

type movementView struct {
	ID            uuid.UUID          `json:"id"`
	InventoryID   uuid.UUID          `json:"inventory_id"`
	Type          enums.MovementType `json:"type"`
	Quantity      int                `json:"quantity"`
	SerialNumber  *string            `json:"serial_number,omitempty"`
	TransactionID uuid.UUID          `json:"transaction_id"`
	ActorID       uuid.UUID          `json:"actor_id"`
	Note          *string            `json:"note,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}

func toMovementView(m *models.StockMovement) movementView {
	return movementView{
		ID:            m.ID,
		InventoryID:   m.InventoryID,
		Type:          m.Type,
		Quantity:      m.Quantity,
		SerialNumber:  m.SerialNumber,
		TransactionID: m.TransactionID,
		ActorID:       m.ActorID,
		Note:          m.Note,
		CreatedAt:     m.CreatedAt,
	}
}
