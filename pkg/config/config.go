package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Pricing      PricingConfig
	Stock        StockConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"ODYOMED_APP_ENV" required:"true"`
	Port         string   `envconfig:"ODYOMED_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"ODYOMED_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"ODYOMED_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"ODYOMED_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"ODYOMED_DB_DSN"`
	Driver string `envconfig:"ODYOMED_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ODYOMED_DB_HOST"`
	LegacyPort     int    `envconfig:"ODYOMED_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ODYOMED_DB_USER"`
	LegacyPassword string `envconfig:"ODYOMED_DB_PASSWORD"`
	LegacyName     string `envconfig:"ODYOMED_DB_NAME"`
	LegacySSLMode  string `envconfig:"ODYOMED_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ODYOMED_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ODYOMED_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ODYOMED_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ODYOMED_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ODYOMED_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ODYOMED_REDIS_ADDR"`
	Password     string        `envconfig:"ODYOMED_REDIS_PASSWORD"`
	DB           int           `envconfig:"ODYOMED_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ODYOMED_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ODYOMED_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ODYOMED_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ODYOMED_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ODYOMED_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"ODYOMED_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"ODYOMED_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"ODYOMED_JWT_EXPIRATION_MINUTES" default:"60"`
}

// PricingConfig holds the tenant-independent pricing defaults. Per-tenant SGK
// schemes live in the database; these values backstop tenants with no rows.
type PricingConfig struct {
	DefaultScheme    string        `envconfig:"ODYOMED_PRICING_DEFAULT_SCHEME" default:"standard"`
	Tolerance        string        `envconfig:"ODYOMED_PRICING_TOLERANCE" default:"0.01"`
	SettingsCacheTTL time.Duration `envconfig:"ODYOMED_PRICING_SETTINGS_CACHE_TTL" default:"5m"`
}

// StockConfig bounds the internal retry loop around inventory row conflicts.
type StockConfig struct {
	ConflictRetries    int           `envconfig:"ODYOMED_STOCK_CONFLICT_RETRIES" default:"3"`
	ConflictRetryDelay time.Duration `envconfig:"ODYOMED_STOCK_CONFLICT_RETRY_DELAY" default:"25ms"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"ODYOMED_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"ODYOMED_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
