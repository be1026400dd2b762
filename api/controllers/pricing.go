package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/odyomed/clinic-backend/api/responses"
	"github.com/odyomed/clinic-backend/api/validators"
	"github.com/odyomed/clinic-backend/internal/pricing"
	"github.com/odyomed/clinic-backend/pkg/enums"
	pkgerrors "github.com/odyomed/clinic-backend/pkg/errors"
	"github.com/odyomed/clinic-backend/pkg/logger"
)

type pricingPreviewItem struct {
	Ref           string          `json:"ref,omitempty"`
	Category      string          `json:"category" validate:"required"`
	BasePrice     decimal.Decimal `json:"base_price"`
	DiscountType  string          `json:"discount_type,omitempty"`
	DiscountValue decimal.Decimal `json:"discount_value"`
}

type pricingPreviewRequest struct {
	Scheme string               `json:"scheme,omitempty"`
	Items  []pricingPreviewItem `json:"items" validate:"required,min=1,dive"`
}

// PricingPreview runs the calculation without persisting anything, so the
// front desk can quote before committing an assignment.
func PricingPreview(engine *pricing.Engine, settings pricing.SettingsProvider, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil || settings == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing service unavailable"))
			return
		}

		actor, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload pricingPreviewRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := pricing.CalculationInput{Scheme: payload.Scheme}
		for _, item := range payload.Items {
			category, err := enums.ParseItemCategory(item.Category)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item category"))
				return
			}
			line := pricing.LineItem{
				Ref:           item.Ref,
				Category:      category,
				BasePrice:     item.BasePrice,
				DiscountValue: item.DiscountValue,
			}
			if item.DiscountType != "" {
				discountType, err := enums.ParseDiscountTypeLegacy(item.DiscountType)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discount type"))
					return
				}
				line.DiscountType = discountType
			}
			input.Items = append(input.Items, line)
		}

		tenantSettings, err := settings.SettingsFor(r.Context(), actor.TenantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := engine.Calculate(input, tenantSettings)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessWarnings(w, http.StatusOK, toPreviewView(result), result.Warnings)
	}
}

type previewItemView struct {
	Ref        string             `json:"ref,omitempty"`
	Category   enums.ItemCategory `json:"category"`
	BasePrice  decimal.Decimal    `json:"base_price"`
	Discount   decimal.Decimal    `json:"discount"`
	SalePrice  decimal.Decimal    `json:"sale_price"`
	SGKSupport decimal.Decimal    `json:"sgk_support"`
	NetPayable decimal.Decimal    `json:"net_payable"`
}

type previewView struct {
	Scheme          string            `json:"scheme"`
	Items           []previewItemView `json:"items"`
	ListPriceTotal  decimal.Decimal   `json:"list_price_total"`
	DiscountTotal   decimal.Decimal   `json:"discount_total"`
	CoverageTotal   decimal.Decimal   `json:"coverage_total"`
	SalePriceTotal  decimal.Decimal   `json:"sale_price_total"`
	NetPayableTotal decimal.Decimal   `json:"net_payable_total"`
}

func toPreviewView(result *pricing.Result) previewView {
	view := previewView{
		Scheme:          result.SchemeCode,
		ListPriceTotal:  result.ListPriceTotal,
		DiscountTotal:   result.DiscountTotal,
		CoverageTotal:   result.CoverageTotal,
		SalePriceTotal:  result.SalePriceTotal,
		NetPayableTotal: result.NetPayableTotal,
	}
	for _, item := range result.Items {
		view.Items = append(view.Items, previewItemView{
			Ref:        item.Ref,
			Category:   item.Category,
			BasePrice:  item.BasePrice,
			Discount:   item.Discount,
			SalePrice:  item.SalePrice,
			SGKSupport: item.SGKSupport,
			NetPayable: item.NetPayable,
		})
	}
	return view
}
