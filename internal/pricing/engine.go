package pricing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyomed/clinic-backend/pkg/enums"
	pkgerrors "github.com/odyomed/clinic-backend/pkg/errors"
	"github.com/odyomed/clinic-backend/pkg/metrics"
)

var hundred = decimal.NewFromInt(100)

// LineItem is one priced entry: a device, accessory, or service.
type LineItem struct {
	Ref           string
	Category      enums.ItemCategory
	BasePrice     decimal.Decimal
	DiscountType  enums.DiscountType
	DiscountValue decimal.Decimal
}

// CalculationInput is everything Calculate needs besides settings.
type CalculationInput struct {
	Items  []LineItem
	Scheme string
}

// ItemResult is the priced outcome for one line item.
type ItemResult struct {
	Ref        string
	Category   enums.ItemCategory
	BasePrice  decimal.Decimal
	Discount   decimal.Decimal
	SalePrice  decimal.Decimal
	SGKSupport decimal.Decimal
	NetPayable decimal.Decimal
}

// Result aggregates the per-item outcomes.
type Result struct {
	SchemeCode      string
	Items           []ItemResult
	ListPriceTotal  decimal.Decimal
	DiscountTotal   decimal.Decimal
	CoverageTotal   decimal.Decimal
	SalePriceTotal  decimal.Decimal
	NetPayableTotal decimal.Decimal
	Warnings        []string
}

// Engine computes prices. Calculate is pure: identical inputs always produce
// identical results, so controllers may call it speculatively for previews.
type Engine struct {
	metrics *metrics.EngineMetrics
}

// NewEngine wires a pricing engine. Metrics may be nil.
func NewEngine(m *metrics.EngineMetrics) *Engine {
	return &Engine{metrics: m}
}

// Calculate prices every line item under the requested SGK scheme. An unknown
// scheme code falls back to the settings default with a warning rather than
// failing the request.
func (e *Engine) Calculate(input CalculationInput, settings Settings) (*Result, error) {
	start := time.Now()

	result := &Result{
		ListPriceTotal:  decimal.Zero,
		DiscountTotal:   decimal.Zero,
		CoverageTotal:   decimal.Zero,
		SalePriceTotal:  decimal.Zero,
		NetPayableTotal: decimal.Zero,
	}

	schemeCode := input.Scheme
	if schemeCode == "" {
		schemeCode = settings.DefaultScheme
	}
	scheme, found := settings.Resolve(schemeCode)
	if !found && schemeCode != settings.DefaultScheme {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"unknown sgk scheme %q, using default %q", schemeCode, settings.DefaultScheme))
		schemeCode = settings.DefaultScheme
		scheme, found = settings.Resolve(schemeCode)
	}
	if !found {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"sgk scheme %q not configured, no coverage applied", schemeCode))
	}
	result.SchemeCode = schemeCode

	for i, item := range input.Items {
		priced, err := priceItem(item, scheme, found)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err,
				fmt.Sprintf("line item %d", i))
		}
		result.Items = append(result.Items, priced)
		result.ListPriceTotal = result.ListPriceTotal.Add(priced.BasePrice)
		result.DiscountTotal = result.DiscountTotal.Add(priced.Discount)
		result.CoverageTotal = result.CoverageTotal.Add(priced.SGKSupport)
		result.SalePriceTotal = result.SalePriceTotal.Add(priced.SalePrice)
		result.NetPayableTotal = result.NetPayableTotal.Add(priced.NetPayable)
	}

	if e.metrics != nil {
		e.metrics.ObservePricing(schemeCode, time.Since(start))
	}
	return result, nil
}

func priceItem(item LineItem, scheme Scheme, schemeFound bool) (ItemResult, error) {
	if item.BasePrice.IsNegative() {
		return ItemResult{}, fmt.Errorf("base price must not be negative, got %s", item.BasePrice)
	}
	if item.Category != "" && !item.Category.IsValid() {
		return ItemResult{}, fmt.Errorf("invalid item category %q", item.Category)
	}

	discount, err := discountFor(item)
	if err != nil {
		return ItemResult{}, err
	}

	salePrice := item.BasePrice.Sub(discount).Round(2)
	if salePrice.IsNegative() {
		salePrice = decimal.Zero
	}
	// Discount reported is what was actually taken off, post clamp.
	discount = item.BasePrice.Sub(salePrice)

	support := decimal.Zero
	if schemeFound && item.Category.Covered() {
		support = scheme.CoverageAmount
		if support.GreaterThan(salePrice) {
			support = salePrice
		}
		if scheme.MaxAmount != nil && support.GreaterThan(*scheme.MaxAmount) {
			support = *scheme.MaxAmount
		}
		if support.IsNegative() {
			support = decimal.Zero
		}
		support = support.Round(2)
	}

	netPayable := salePrice.Sub(support)
	if netPayable.IsNegative() {
		netPayable = decimal.Zero
	}

	return ItemResult{
		Ref:        item.Ref,
		Category:   item.Category,
		BasePrice:  item.BasePrice.Round(2),
		Discount:   discount.Round(2),
		SalePrice:  salePrice,
		SGKSupport: support,
		NetPayable: netPayable.Round(2),
	}, nil
}

func discountFor(item LineItem) (decimal.Decimal, error) {
	switch item.DiscountType {
	case enums.DiscountTypeNone, "":
		return decimal.Zero, nil
	case enums.DiscountTypePercentage:
		if item.DiscountValue.IsNegative() {
			return decimal.Zero, fmt.Errorf("discount value must not be negative")
		}
		return item.BasePrice.Mul(item.DiscountValue).Div(hundred).Round(2), nil
	case enums.DiscountTypeFixed:
		if item.DiscountValue.IsNegative() {
			return decimal.Zero, fmt.Errorf("discount value must not be negative")
		}
		return item.DiscountValue.Round(2), nil
	default:
		return decimal.Zero, fmt.Errorf("unknown discount type %q", item.DiscountType)
	}
}
