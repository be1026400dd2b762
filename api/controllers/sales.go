package controllers

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyomed/clinic-backend/api/responses"
	"github.com/odyomed/clinic-backend/api/validators"
	"github.com/odyomed/clinic-backend/internal/payments"
	"github.com/odyomed/clinic-backend/internal/sales"
	pkgerrors "github.com/odyomed/clinic-backend/pkg/errors"
	"github.com/odyomed/clinic-backend/pkg/logger"
)

// SaleDetail returns the sale with its assignments and payment history.
func SaleDetail(agg sales.Aggregator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if agg == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}

		actor, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		saleID, err := parseIDParam(r, "saleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sale, err := agg.Get(r.Context(), actor.TenantID, saleID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toSaleView(sale))
	}
}

type paymentRecordRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method,omitempty"`
	PaidAt *time.Time      `json:"paid_at,omitempty"`
}

// PaymentRecord books a down payment against the sale and returns the
// re-synced balance.
func PaymentRecord(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		actor, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		saleID, err := parseIDParam(r, "saleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload paymentRecordRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		paidAt := time.Now().UTC()
		if payload.PaidAt != nil {
			paidAt = *payload.PaidAt
		}

		result, err := svc.Record(r.Context(), payments.RecordInput{
			TenantID: actor.TenantID,
			SaleID:   saleID,
			Amount:   payload.Amount,
			Method:   payload.Method,
			ActorID:  actor.UserID,
			PaidAt:   paidAt,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"payment": toPaymentView(result.Payment),
			"sale":    toSaleView(result.Sale),
		})
	}
}

// PaymentVoid voids a recorded payment, restoring the sale balance.
func PaymentVoid(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		actor, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		paymentID, err := parseIDParam(r, "paymentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sale, err := svc.Void(r.Context(), payments.VoidInput{
			TenantID:  actor.TenantID,
			PaymentID: paymentID,
			ActorID:   actor.UserID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toSaleView(sale))
	}
}
