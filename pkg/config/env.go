package config

const EnvPrefix = "TABLEBOOK"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	PaymentModeManual  = "manual"
	PaymentModeGateway = "gateway"
)

const (
	EnvAppEnv   = "TABLEBOOK_APP_ENV"
	EnvPort     = "TABLEBOOK_APP_PORT"
	EnvLogLevel = "TABLEBOOK_LOG_LEVEL"

	EnvDBDSN     = "TABLEBOOK_DB_DSN"
	EnvDBDriver  = "TABLEBOOK_DB_DRIVER"
	EnvDBHost    = "TABLEBOOK_DB_HOST"
	EnvDBUser    = "TABLEBOOK_DB_USER"
	EnvDBName    = "TABLEBOOK_DB_NAME"
	EnvUseSQLite = "TABLEBOOK_USE_SQLITE"

	EnvRedisURL = "TABLEBOOK_REDIS_URL"

	EnvJWTSecret              = "TABLEBOOK_JWT_SECRET"
	EnvJWTIssuer              = "TABLEBOOK_JWT_ISSUER"
	EnvJWTExpMins             = "TABLEBOOK_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "TABLEBOOK_REFRESH_TOKEN_TTL_MINUTES"

	EnvAPIKey                = "TABLEBOOK_API_KEY"
	EnvAdminRegistrationCode = "TABLEBOOK_ADMIN_REGISTRATION_CODE"
	EnvCORSAllowedOrigins    = "TABLEBOOK_CORS_ALLOWED_ORIGINS"

	EnvPaymentMode            = "TABLEBOOK_PAYMENT_MODE"
	EnvReservationPendingTTL  = "TABLEBOOK_RESERVATION_PENDING_TTL"
	EnvTicketExpiryBuffer     = "TABLEBOOK_TICKET_EXPIRY_BUFFER"
	EnvManualOperatorPhone    = "TABLEBOOK_MANUAL_OPERATOR_PHONE"
	EnvGatewayCallbackToken   = "TABLEBOOK_GATEWAY_CALLBACK_TOKEN"
	EnvGatewaySecretKey       = "TABLEBOOK_GATEWAY_SECRET_KEY"
	EnvGCPProjectID           = "TABLEBOOK_GCP_PROJECT_ID"
	EnvPubSubReservationTopic = "TABLEBOOK_PUBSUB_RESERVATIONS_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
