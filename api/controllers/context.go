package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/odyomed/clinic-backend/api/middleware"
	pkgerrors "github.com/odyomed/clinic-backend/pkg/errors"
)

// identity is the authenticated actor resolved from the request context.
type identity struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
	BranchID *uuid.UUID
	Role     string
}

func requestIdentity(r *http.Request) (identity, error) {
	ctx := r.Context()

	rawTenant := middleware.TenantIDFromContext(ctx)
	if rawTenant == "" {
		return identity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "tenant context missing")
	}
	tenantID, err := uuid.Parse(rawTenant)
	if err != nil {
		return identity{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid tenant id")
	}

	rawUser := middleware.UserIDFromContext(ctx)
	if rawUser == "" {
		return identity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	userID, err := uuid.Parse(rawUser)
	if err != nil {
		return identity{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}

	id := identity{TenantID: tenantID, UserID: userID, Role: middleware.RoleFromContext(ctx)}
	if rawBranch := middleware.BranchIDFromContext(ctx); rawBranch != "" {
		branchID, err := uuid.Parse(rawBranch)
		if err != nil {
			return identity{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid branch id")
		}
		id.BranchID = &branchID
	}
	return id, nil
}

func parseIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, name+" is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return id, nil
}
