package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/odyomed/clinic-backend/pkg/config"
)

// Scheme is one SGK payer scheme: the flat coverage it contributes and an
// optional cap on that contribution.
type Scheme struct {
	Code           string
	CoverageAmount decimal.Decimal
	MaxAmount      *decimal.Decimal
}

// Settings is the read-only pricing configuration for one tenant. The engine
// never mutates it.
type Settings struct {
	DefaultScheme string
	Tolerance     decimal.Decimal
	Schemes       map[string]Scheme
}

// Resolve looks up a scheme by code. The second return reports whether the
// code was found.
func (s Settings) Resolve(code string) (Scheme, bool) {
	scheme, ok := s.Schemes[code]
	return scheme, ok
}

// SettingsFromConfig builds the backstop settings used for tenants that have
// no scheme rows of their own.
func SettingsFromConfig(cfg config.PricingConfig) Settings {
	tolerance, err := decimal.NewFromString(cfg.Tolerance)
	if err != nil {
		tolerance = decimal.NewFromFloat(0.01)
	}
	return Settings{
		DefaultScheme: cfg.DefaultScheme,
		Tolerance:     tolerance,
		Schemes: map[string]Scheme{
			cfg.DefaultScheme: {Code: cfg.DefaultScheme},
		},
	}
}
