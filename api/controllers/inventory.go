package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/odyomed/clinic-backend/api/responses"
	"github.com/odyomed/clinic-backend/api/validators"
	"github.com/odyomed/clinic-backend/internal/inventory"
	pkgerrors "github.com/odyomed/clinic-backend/pkg/errors"
	"github.com/odyomed/clinic-backend/pkg/logger"
)

type inventoryCreateRequest struct {
	BranchID     string   `json:"branch_id" validate:"required,uuid4"`
	Name         string   `json:"name" validate:"required,min=1"`
	Brand        string   `json:"brand,omitempty"`
	Model        string   `json:"model,omitempty"`
	Serialized   bool     `json:"serialized"`
	Serials      []string `json:"serials,omitempty"`
	InitialQty   int      `json:"initial_qty" validate:"min=0"`
	ReorderLevel int      `json:"reorder_level" validate:"min=0"`
}

// InventoryCreate opens an inventory account, booking any initial stock as an
// adjustment movement.
func InventoryCreate(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		actor, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload inventoryCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		branchID, err := uuid.Parse(payload.BranchID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid branch id"))
			return
		}

		account, err := svc.CreateAccount(r.Context(), inventory.CreateAccountInput{
			TenantID:     actor.TenantID,
			BranchID:     branchID,
			Name:         payload.Name,
			Brand:        payload.Brand,
			Model:        payload.Model,
			Serialized:   payload.Serialized,
			Serials:      payload.Serials,
			InitialQty:   payload.InitialQty,
			ReorderLevel: payload.ReorderLevel,
			ActorID:      actor.UserID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toAccountView(account))
	}
}

// InventoryDetail returns one account plus its serial pool size.
func InventoryDetail(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		actor, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		inventoryID, err := parseIDParam(r, "inventoryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.GetAccount(r.Context(), actor.TenantID, inventoryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"account":         toAccountView(detail.Account),
			"serials_in_pool": detail.SerialsInPool,
		})
	}
}

// InventoryList pages the tenant's accounts, optionally scoped to one branch.
func InventoryList(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		actor, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 25, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := inventory.ListAccountsInput{
			TenantID: actor.TenantID,
			Limit:    limit,
			Cursor:   r.URL.Query().Get("cursor"),
		}
		if rawBranch := r.URL.Query().Get("branch_id"); rawBranch != "" {
			branchID, err := uuid.Parse(rawBranch)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid branch id"))
				return
			}
			input.BranchID = branchID
		}

		page, err := svc.ListAccounts(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		accounts := make([]accountView, 0, len(page.Accounts))
		for i := range page.Accounts {
			accounts = append(accounts, toAccountView(&page.Accounts[i]))
		}
		responses.WriteSuccess(w, map[string]any{
			"accounts":    accounts,
			"next_cursor": page.NextCursor,
		})
	}
}

// InventoryMovements pages the append-only movement ledger of one account.
func InventoryMovements(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		actor, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		inventoryID, err := parseIDParam(r, "inventoryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListMovements(r.Context(), inventory.ListMovementsInput{
			TenantID:    actor.TenantID,
			InventoryID: inventoryID,
			Limit:       limit,
			Cursor:      r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		movements := make([]movementView, 0, len(page.Movements))
		for i := range page.Movements {
			movements = append(movements, toMovementView(&page.Movements[i]))
		}
		responses.WriteSuccess(w, map[string]any{
			"movements":   movements,
			"next_cursor": page.NextCursor,
		})
	}
}

type inventoryAdjustRequest struct {
	Quantity int      `json:"quantity" validate:"required"`
	Serials  []string `json:"serials,omitempty"`
	Note     string   `json:"note,omitempty"`
}

// InventoryAdjust books a manual correction as an adjustment movement.
func InventoryAdjust(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		actor, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		inventoryID, err := parseIDParam(r, "inventoryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload inventoryAdjustRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Adjust(r.Context(), inventory.AdjustInput{
			TenantID:    actor.TenantID,
			InventoryID: inventoryID,
			Quantity:    payload.Quantity,
			Serials:     payload.Serials,
			ActorID:     actor.UserID,
			Note:        payload.Note,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessWarnings(w, http.StatusOK, toAccountView(result.Account), result.Warnings)
	}
}
