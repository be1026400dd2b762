package pricing

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/odyomed/clinic-backend/pkg/config"
	"github.com/odyomed/clinic-backend/pkg/db/models"
	"github.com/odyomed/clinic-backend/pkg/logger"
	"github.com/odyomed/clinic-backend/pkg/redis"
)

// Repository exposes the per-tenant scheme rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListSchemes(ctx context.Context, tenantID uuid.UUID) ([]models.SGKScheme, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a scheme repository backed by the provided DB.
func NewRepository(db *gorm.DB) Repository {
	if db == nil {
		return nil
	}
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListSchemes(ctx context.Context, tenantID uuid.UUID) ([]models.SGKScheme, error) {
	var schemes []models.SGKScheme
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("code ASC").
		Find(&schemes).Error
	if err != nil {
		return nil, err
	}
	return schemes, nil
}

// SettingsProvider resolves the pricing settings for a tenant.
type SettingsProvider interface {
	SettingsFor(ctx context.Context, tenantID uuid.UUID) (Settings, error)
	Invalidate(ctx context.Context, tenantID uuid.UUID)
}

type settingsProvider struct {
	repo     Repository
	cache    *redis.Client
	log      *logger.Logger
	ttl      time.Duration
	defaults config.PricingConfig
}

// NewSettingsProvider wires a provider that reads scheme rows and caches the
// assembled settings. Cache may be nil; lookups then always hit the database.
func NewSettingsProvider(repo Repository, cache *redis.Client, log *logger.Logger, cfg config.PricingConfig) SettingsProvider {
	return &settingsProvider{
		repo:     repo,
		cache:    cache,
		log:      log,
		ttl:      cfg.SettingsCacheTTL,
		defaults: cfg,
	}
}

func (p *settingsProvider) warn(ctx context.Context, msg string, err error) {
	if p.log == nil {
		return
	}
	p.log.Warn(p.log.WithField(ctx, "error", err.Error()), msg)
}

// cachedSettings is the redis representation of Settings.
type cachedSettings struct {
	DefaultScheme string                  `json:"default_scheme"`
	Tolerance     decimal.Decimal         `json:"tolerance"`
	Schemes       map[string]cachedScheme `json:"schemes"`
}

type cachedScheme struct {
	Code           string           `json:"code"`
	CoverageAmount decimal.Decimal  `json:"coverage_amount"`
	MaxAmount      *decimal.Decimal `json:"max_amount,omitempty"`
}

func (p *settingsProvider) SettingsFor(ctx context.Context, tenantID uuid.UUID) (Settings, error) {
	if cached, ok := p.fromCache(ctx, tenantID); ok {
		return cached, nil
	}

	rows, err := p.repo.ListSchemes(ctx, tenantID)
	if err != nil {
		return Settings{}, err
	}
	settings := p.assemble(rows)
	p.toCache(ctx, tenantID, settings)
	return settings, nil
}

func (p *settingsProvider) Invalidate(ctx context.Context, tenantID uuid.UUID) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Del(ctx, p.cache.SettingsKey(tenantID.String())); err != nil {
		p.warn(ctx, "pricing settings cache invalidate failed", err)
	}
}

func (p *settingsProvider) assemble(rows []models.SGKScheme) Settings {
	settings := SettingsFromConfig(p.defaults)
	for _, row := range rows {
		scheme := Scheme{
			Code:           row.Code,
			CoverageAmount: row.CoverageAmount,
		}
		// A zero max means the scheme carries no cap.
		if !row.MaxAmount.IsZero() {
			maxAmount := row.MaxAmount
			scheme.MaxAmount = &maxAmount
		}
		settings.Schemes[row.Code] = scheme
		if row.IsDefault {
			settings.DefaultScheme = row.Code
		}
	}
	return settings
}

func (p *settingsProvider) fromCache(ctx context.Context, tenantID uuid.UUID) (Settings, bool) {
	if p.cache == nil || p.ttl <= 0 {
		return Settings{}, false
	}
	raw, err := p.cache.Get(ctx, p.cache.SettingsKey(tenantID.String()))
	if err != nil {
		if !redis.IsNil(err) {
			p.warn(ctx, "pricing settings cache read failed", err)
		}
		return Settings{}, false
	}
	var payload cachedSettings
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		p.warn(ctx, "pricing settings cache decode failed", err)
		return Settings{}, false
	}
	settings := Settings{
		DefaultScheme: payload.DefaultScheme,
		Tolerance:     payload.Tolerance,
		Schemes:       make(map[string]Scheme, len(payload.Schemes)),
	}
	for code, scheme := range payload.Schemes {
		settings.Schemes[code] = Scheme{
			Code:           scheme.Code,
			CoverageAmount: scheme.CoverageAmount,
			MaxAmount:      scheme.MaxAmount,
		}
	}
	return settings, true
}

func (p *settingsProvider) toCache(ctx context.Context, tenantID uuid.UUID, settings Settings) {
	if p.cache == nil || p.ttl <= 0 {
		return
	}
	payload := cachedSettings{
		DefaultScheme: settings.DefaultScheme,
		Tolerance:     settings.Tolerance,
		Schemes:       make(map[string]cachedScheme, len(settings.Schemes)),
	}
	for code, scheme := range settings.Schemes {
		payload.Schemes[code] = cachedScheme{
			Code:           scheme.Code,
			CoverageAmount: scheme.CoverageAmount,
			MaxAmount:      scheme.MaxAmount,
		}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := p.cache.Set(ctx, p.cache.SettingsKey(tenantID.String()), raw, p.ttl); err != nil {
		p.warn(ctx, "pricing settings cache write failed", err)
	}
}
