package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyomed/clinic-backend/api/responses"
	"github.com/odyomed/clinic-backend/api/validators"
	"github.com/odyomed/clinic-backend/internal/assignments"
	"github.com/odyomed/clinic-backend/pkg/enums"
	pkgerrors "github.com/odyomed/clinic-backend/pkg/errors"
	"github.com/odyomed/clinic-backend/pkg/logger"
)

type pricingOverridePayload struct {
	SalePrice  decimal.Decimal `json:"sale_price"`
	SGKSupport decimal.Decimal `json:"sgk_support"`
	NetPayable decimal.Decimal `json:"net_payable"`
}

func (p *pricingOverridePayload) toOverride() *assignments.PricingOverride {
	if p == nil {
		return nil
	}
	return &assignments.PricingOverride{
		SalePrice:  p.SalePrice,
		SGKSupport: p.SGKSupport,
		NetPayable: p.NetPayable,
	}
}

type assignmentCreateRequest struct {
	PatientID string  `json:"patient_id" validate:"required,uuid4"`
	BranchID  *string `json:"branch_id,omitempty" validate:"omitempty,uuid4"`
	SaleID    *string `json:"sale_id,omitempty" validate:"omitempty,uuid4"`

	InventoryID *string `json:"inventory_id,omitempty" validate:"omitempty,uuid4"`
	DeviceID    *string `json:"device_id,omitempty" validate:"omitempty,uuid4"`
	Brand       string  `json:"brand,omitempty"`
	Model       string  `json:"model,omitempty"`

	Ear string `json:"ear" validate:"required"`

	ListPrice     decimal.Decimal         `json:"list_price"`
	DiscountType  string                  `json:"discount_type,omitempty"`
	DiscountValue decimal.Decimal         `json:"discount_value"`
	SGKScheme     string                  `json:"sgk_scheme,omitempty"`
	Override      *pricingOverridePayload `json:"pricing_override,omitempty"`

	SerialNumber      *string `json:"serial_number,omitempty"`
	SerialNumberLeft  *string `json:"serial_number_left,omitempty"`
	SerialNumberRight *string `json:"serial_number_right,omitempty"`

	ReportStatus  string `json:"report_status,omitempty"`
	DeliverNow    bool   `json:"deliver_now"`
	AllowNegative bool   `json:"allow_negative"`
}

// AssignmentCreate opens an assignment, optionally delivering stock in the
// same transaction.
func AssignmentCreate(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
			return
		}

		actor, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload assignmentCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cmd, err := payload.toCommand(actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Create(r.Context(), cmd)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessWarnings(w, http.StatusCreated, map[string]any{
			"assignment": toAssignmentView(result.Assignment),
			"sale":       toSaleView(result.Sale),
		}, result.Warnings)
	}
}

func (p assignmentCreateRequest) toCommand(actor identity) (assignments.CreateAssignmentCommand, error) {
	patientID, err := uuid.Parse(p.PatientID)
	if err != nil {
		return assignments.CreateAssignmentCommand{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid patient id")
	}

	branchID := uuid.Nil
	switch {
	case p.BranchID != nil:
		branchID, err = uuid.Parse(*p.BranchID)
		if err != nil {
			return assignments.CreateAssignmentCommand{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid branch id")
		}
	case actor.BranchID != nil:
		branchID = *actor.BranchID
	default:
		return assignments.CreateAssignmentCommand{}, pkgerrors.New(pkgerrors.CodeValidation, "branch id is required")
	}

	ear, err := enums.ParseEarSideLegacy(p.Ear)
	if err != nil {
		return assignments.CreateAssignmentCommand{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid ear side")
	}

	cmd := assignments.CreateAssignmentCommand{
		TenantID:          actor.TenantID,
		BranchID:          branchID,
		PatientID:         patientID,
		ActorID:           actor.UserID,
		Brand:             p.Brand,
		Model:             p.Model,
		Ear:               ear,
		ListPrice:         p.ListPrice,
		DiscountValue:     p.DiscountValue,
		SGKScheme:         p.SGKScheme,
		Override:          p.Override.toOverride(),
		SerialNumber:      p.SerialNumber,
		SerialNumberLeft:  p.SerialNumberLeft,
		SerialNumberRight: p.SerialNumberRight,
		ReportStatus:      p.ReportStatus,
		DeliverNow:        p.DeliverNow,
		AllowNegative:     p.AllowNegative,
	}

	if p.DiscountType != "" {
		discountType, err := enums.ParseDiscountTypeLegacy(p.DiscountType)
		if err != nil {
			return assignments.CreateAssignmentCommand{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discount type")
		}
		cmd.DiscountType = discountType
	}
	if p.SaleID != nil {
		saleID, err := uuid.Parse(*p.SaleID)
		if err != nil {
			return assignments.CreateAssignmentCommand{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sale id")
		}
		cmd.SaleID = &saleID
	}
	if p.InventoryID != nil {
		inventoryID, err := uuid.Parse(*p.InventoryID)
		if err != nil {
			return assignments.CreateAssignmentCommand{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid inventory id")
		}
		cmd.InventoryID = &inventoryID
	}
	if p.DeviceID != nil {
		deviceID, err := uuid.Parse(*p.DeviceID)
		if err != nil {
			return assignments.CreateAssignmentCommand{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid device id")
		}
		cmd.DeviceID = &deviceID
	}
	return cmd, nil
}

type assignmentUpdateRequest struct {
	Brand         *string                 `json:"brand,omitempty"`
	Model         *string                 `json:"model,omitempty"`
	ListPrice     *decimal.Decimal        `json:"list_price,omitempty"`
	DiscountType  *string                 `json:"discount_type,omitempty"`
	DiscountValue *decimal.Decimal        `json:"discount_value,omitempty"`
	SGKScheme     *string                 `json:"sgk_scheme,omitempty"`
	ReportStatus  *string                 `json:"report_status,omitempty"`
	Override      *pricingOverridePayload `json:"pricing_override,omitempty"`
}

// AssignmentUpdate edits an active assignment, re-snapshotting the price when
// a pricing field changed.
func AssignmentUpdate(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
			return
		}

		actor, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assignmentID, err := parseIDParam(r, "assignmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload assignmentUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cmd := assignments.UpdateAssignmentCommand{
			TenantID:      actor.TenantID,
			AssignmentID:  assignmentID,
			ActorID:       actor.UserID,
			Brand:         payload.Brand,
			Model:         payload.Model,
			ListPrice:     payload.ListPrice,
			DiscountValue: payload.DiscountValue,
			SGKScheme:     payload.SGKScheme,
			ReportStatus:  payload.ReportStatus,
			Override:      payload.Override.toOverride(),
		}
		if payload.DiscountType != nil {
			discountType, err := enums.ParseDiscountTypeLegacy(*payload.DiscountType)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discount type"))
				return
			}
			cmd.DiscountType = &discountType
		}

		result, err := svc.Update(r.Context(), cmd)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessWarnings(w, http.StatusOK, map[string]any{
			"assignment": toAssignmentView(result.Assignment),
			"sale":       toSaleView(result.Sale),
		}, result.Warnings)
	}
}

type assignmentDeliverRequest struct {
	AllowNegative bool `json:"allow_negative"`
}

// AssignmentDeliver hands over a pending assignment and deducts its stock.
func AssignmentDeliver(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
			return
		}

		actor, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assignmentID, err := parseIDParam(r, "assignmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload := assignmentDeliverRequest{}
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		result, err := svc.Deliver(r.Context(), assignments.DeliverCommand{
			TenantID:      actor.TenantID,
			AssignmentID:  assignmentID,
			ActorID:       actor.UserID,
			AllowNegative: payload.AllowNegative,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessWarnings(w, http.StatusOK, map[string]any{
			"assignment": toAssignmentView(result.Assignment),
			"sale":       toSaleView(result.Sale),
		}, result.Warnings)
	}
}

type assignmentCloseRequest struct {
	Note string `json:"note,omitempty"`
}

// AssignmentCancel cancels an assignment, compensating delivered stock.
func AssignmentCancel(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return closeAssignment(svc, logg, func(svc assignments.Service, r *http.Request, cmd assignments.CloseCommand) (*assignments.Result, error) {
		return svc.Cancel(r.Context(), cmd)
	})
}

// AssignmentReturn books a patient return, restoring delivered stock.
func AssignmentReturn(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return closeAssignment(svc, logg, func(svc assignments.Service, r *http.Request, cmd assignments.CloseCommand) (*assignments.Result, error) {
		return svc.Return(r.Context(), cmd)
	})
}

func closeAssignment(
	svc assignments.Service,
	logg *logger.Logger,
	run func(assignments.Service, *http.Request, assignments.CloseCommand) (*assignments.Result, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
			return
		}

		actor, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assignmentID, err := parseIDParam(r, "assignmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload := assignmentCloseRequest{}
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		result, err := run(svc, r, assignments.CloseCommand{
			TenantID:     actor.TenantID,
			AssignmentID: assignmentID,
			ActorID:      actor.UserID,
			Note:         payload.Note,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessWarnings(w, http.StatusOK, map[string]any{
			"assignment": toAssignmentView(result.Assignment),
			"sale":       toSaleView(result.Sale),
		}, result.Warnings)
	}
}

type loanerAttachRequest struct {
	LoanerInventoryID string  `json:"loaner_inventory_id" validate:"required,uuid4"`
	LoanerBrand       string  `json:"loaner_brand,omitempty"`
	LoanerModel       string  `json:"loaner_model,omitempty"`
	SerialNumber      *string `json:"serial_number,omitempty"`
	SerialNumberLeft  *string `json:"serial_number_left,omitempty"`
	SerialNumberRight *string `json:"serial_number_right,omitempty"`
	AllowNegative     bool    `json:"allow_negative"`
}

// AssignmentLoanerAttach hands out a loaner device, swapping atomically when
// one is already attached.
func AssignmentLoanerAttach(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
			return
		}

		actor, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assignmentID, err := parseIDParam(r, "assignmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload loanerAttachRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		loanerID, err := uuid.Parse(payload.LoanerInventoryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid loaner inventory id"))
			return
		}

		result, err := svc.AttachLoaner(r.Context(), assignments.AttachLoanerCommand{
			TenantID:                actor.TenantID,
			AssignmentID:            assignmentID,
			ActorID:                 actor.UserID,
			LoanerInventoryID:       loanerID,
			LoanerBrand:             payload.LoanerBrand,
			LoanerModel:             payload.LoanerModel,
			LoanerSerialNumber:      payload.SerialNumber,
			LoanerSerialNumberLeft:  payload.SerialNumberLeft,
			LoanerSerialNumberRight: payload.SerialNumberRight,
			AllowNegative:           payload.AllowNegative,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessWarnings(w, http.StatusOK, map[string]any{
			"assignment": toAssignmentView(result.Assignment),
			"sale":       toSaleView(result.Sale),
		}, result.Warnings)
	}
}

// AssignmentLoanerDetach takes the loaner back without closing the
// assignment.
func AssignmentLoanerDetach(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
			return
		}

		actor, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assignmentID, err := parseIDParam(r, "assignmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.DetachLoaner(r.Context(), assignments.DetachLoanerCommand{
			TenantID:     actor.TenantID,
			AssignmentID: assignmentID,
			ActorID:      actor.UserID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessWarnings(w, http.StatusOK, map[string]any{
			"assignment": toAssignmentView(result.Assignment),
			"sale":       toSaleView(result.Sale),
		}, result.Warnings)
	}
}

// AssignmentDetail fetches one assignment.
func AssignmentDetail(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
			return
		}

		actor, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assignmentID, err := parseIDParam(r, "assignmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assignment, err := svc.Get(r.Context(), actor.TenantID, assignmentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toAssignmentView(assignment))
	}
}

// PatientAssignments pages one patient's assignment history.
func PatientAssignments(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
			return
		}

		actor, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		patientID, err := parseIDParam(r, "patientId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 25, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListByPatient(r.Context(), assignments.ListByPatientInput{
			TenantID:  actor.TenantID,
			PatientID: patientID,
			Limit:     limit,
			Cursor:    r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views := make([]assignmentView, 0, len(page.Assignments))
		for i := range page.Assignments {
			views = append(views, toAssignmentView(&page.Assignments[i]))
		}
		responses.WriteSuccess(w, map[string]any{
			"assignments": views,
			"next_cursor": page.NextCursor,
		})
	}
}
