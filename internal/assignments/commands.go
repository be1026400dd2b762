package assignments

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyomed/clinic-backend/pkg/db/models"
	"github.com/odyomed/clinic-backend/pkg/enums"
)

// PricingOverride pins explicit amounts instead of engine-computed ones. When
// present, the engine is not consulted for that call.
type PricingOverride struct {
	SalePrice  decimal.Decimal
	SGKSupport decimal.Decimal
	NetPayable decimal.Decimal
}

// CreateAssignmentCommand opens a new assignment, optionally within an
// existing sale, optionally delivering stock immediately.
type CreateAssignmentCommand struct {
	TenantID  uuid.UUID
	BranchID  uuid.UUID
	PatientID uuid.UUID
	ActorID   uuid.UUID

	// SaleID joins an existing sale; nil opens a new one.
	SaleID *uuid.UUID

	InventoryID *uuid.UUID
	DeviceID    *uuid.UUID
	Brand       string
	Model       string

	Ear enums.EarSide

	ListPrice     decimal.Decimal
	DiscountType  enums.DiscountType
	DiscountValue decimal.Decimal
	SGKScheme     string
	Override      *PricingOverride

	SerialNumber      *string
	SerialNumberLeft  *string
	SerialNumberRight *string

	ReportStatus string

	// DeliverNow deducts stock as part of creation, the in-branch
	// hand-over path.
	DeliverNow    bool
	AllowNegative bool
}

// UpdateAssignmentCommand edits a pending or delivered assignment. Pricing is
// recalculated when a pricing input changes, unless Override pins the result.
type UpdateAssignmentCommand struct {
	TenantID     uuid.UUID
	AssignmentID uuid.UUID
	ActorID      uuid.UUID

	Brand *string
	Model *string

	ListPrice     *decimal.Decimal
	DiscountType  *enums.DiscountType
	DiscountValue *decimal.Decimal
	SGKScheme     *string
	Override      *PricingOverride

	ReportStatus *string
}

// DeliverCommand hands the device over, deducting stock exactly once.
type DeliverCommand struct {
	TenantID      uuid.UUID
	AssignmentID  uuid.UUID
	ActorID       uuid.UUID
	AllowNegative bool
}

// CloseCommand cancels or returns an assignment, restoring any stock that was
// deducted.
type CloseCommand struct {
	TenantID     uuid.UUID
	AssignmentID uuid.UUID
	ActorID      uuid.UUID
	Note         string
}

// AttachLoanerCommand hands out a loaner device alongside the assignment.
// Attaching while a loaner is already out swaps it atomically.
type AttachLoanerCommand struct {
	TenantID     uuid.UUID
	AssignmentID uuid.UUID
	ActorID      uuid.UUID

	LoanerInventoryID uuid.UUID
	LoanerBrand       string
	LoanerModel       string

	LoanerSerialNumber      *string
	LoanerSerialNumberLeft  *string
	LoanerSerialNumberRight *string

	AllowNegative bool
}

// DetachLoanerCommand takes the loaner back and clears the loaner sub-state.
type DetachLoanerCommand struct {
	TenantID     uuid.UUID
	AssignmentID uuid.UUID
	ActorID      uuid.UUID
}

// Result carries the assignment, its re-synced sale, and non-fatal warnings.
type Result struct {
	Assignment *models.DeviceAssignment
	Sale       *models.Sale
	Warnings   []string
}
