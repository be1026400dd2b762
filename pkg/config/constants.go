package config

// EnvPrefix is the envconfig prefix for every variable the service reads.
const EnvPrefix = "ODYOMED"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv     = "ODYOMED_APP_ENV"
	EnvPort       = "ODYOMED_APP_PORT"
	EnvDBDSN      = "ODYOMED_DB_DSN"
	EnvDBHost     = "ODYOMED_DB_HOST"
	EnvDBUser     = "ODYOMED_DB_USER"
	EnvDBName     = "ODYOMED_DB_NAME"
	EnvRedisURL   = "ODYOMED_REDIS_URL"
	EnvJWTSecret  = "ODYOMED_JWT_SECRET"
	EnvJWTIssuer  = "ODYOMED_JWT_ISSUER"
	EnvJWTExpMins = "ODYOMED_JWT_EXPIRATION_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
