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
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	Security     SecurityConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	Reservation  ReservationConfig
	Manual       ManualSettlementConfig
	Gateway      GatewayConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	BigQuery     BigQueryConfig
	Sendgrid     SendgridConfig
	Outbox       OutboxConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Reservation.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TABLEBOOK_APP_ENV" required:"true"`
	Port         string `envconfig:"TABLEBOOK_APP_PORT" required:"true"`
	PublicURL    string `envconfig:"TABLEBOOK_APP_PUBLIC_URL" default:"http://localhost:8080"`
	LogLevel     string `envconfig:"TABLEBOOK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TABLEBOOK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"TABLEBOOK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"TABLEBOOK_DB_DSN"`
	Driver string `envconfig:"TABLEBOOK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TABLEBOOK_DB_HOST"`
	LegacyPort     int    `envconfig:"TABLEBOOK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TABLEBOOK_DB_USER"`
	LegacyPassword string `envconfig:"TABLEBOOK_DB_PASSWORD"`
	LegacyName     string `envconfig:"TABLEBOOK_DB_NAME"`
	LegacySSLMode  string `envconfig:"TABLEBOOK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TABLEBOOK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TABLEBOOK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TABLEBOOK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TABLEBOOK_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"TABLEBOOK_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TABLEBOOK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TABLEBOOK_REDIS_ADDR"`
	Password     string        `envconfig:"TABLEBOOK_REDIS_PASSWORD"`
	DB           int           `envconfig:"TABLEBOOK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TABLEBOOK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TABLEBOOK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TABLEBOOK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TABLEBOOK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TABLEBOOK_REDIS_WRITE_TIMEOUT" default:"5s"`
	KeyPrefix    string        `envconfig:"TABLEBOOK_REDIS_KEY_PREFIX" default:"tb"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"TABLEBOOK_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"TABLEBOOK_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"TABLEBOOK_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"TABLEBOOK_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"TABLEBOOK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"TABLEBOOK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"TABLEBOOK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"TABLEBOOK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"TABLEBOOK_ARGON_KEY_LEN" default:"32"`
}

// SecurityConfig holds the shared secrets checked by HTTP middleware.
type SecurityConfig struct {
	APIKey                string        `envconfig:"TABLEBOOK_API_KEY" required:"true"`
	AdminRegistrationCode string        `envconfig:"TABLEBOOK_ADMIN_REGISTRATION_CODE"`
	PasswordResetTTL      time.Duration `envconfig:"TABLEBOOK_PASSWORD_RESET_TTL" default:"1h"`
	CORSAllowedOrigins    []string      `envconfig:"TABLEBOOK_CORS_ALLOWED_ORIGINS" default:"*"`
}

type RateLimitConfig struct {
	LoginWindow             time.Duration `envconfig:"TABLEBOOK_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit         int           `envconfig:"TABLEBOOK_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit            int           `envconfig:"TABLEBOOK_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow          time.Duration `envconfig:"TABLEBOOK_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit      int           `envconfig:"TABLEBOOK_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit         int           `envconfig:"TABLEBOOK_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
	PasswordResetWindow     time.Duration `envconfig:"TABLEBOOK_RATE_LIMIT_PASSWORD_RESET_WINDOW" default:"15m"`
	PasswordResetEmailLimit int           `envconfig:"TABLEBOOK_RATE_LIMIT_PASSWORD_RESET_EMAIL_LIMIT" default:"3"`
	PasswordResetIPLimit    int           `envconfig:"TABLEBOOK_RATE_LIMIT_PASSWORD_RESET_IP_LIMIT" default:"10"`
	ReservationWindow       time.Duration `envconfig:"TABLEBOOK_RATE_LIMIT_RESERVATION_WINDOW" default:"10m"`
	ReservationUserLimit    int           `envconfig:"TABLEBOOK_RATE_LIMIT_RESERVATION_USER_LIMIT" default:"10"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"TABLEBOOK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"TABLEBOOK_AUTO_MIGRATE" default:"false"`
}

// ReservationConfig drives the reservation engine.
type ReservationConfig struct {
	PaymentMode        string        `envconfig:"TABLEBOOK_PAYMENT_MODE" default:"manual"`
	PendingTTL         time.Duration `envconfig:"TABLEBOOK_RESERVATION_PENDING_TTL" default:"24h"`
	TicketExpiryBuffer time.Duration `envconfig:"TABLEBOOK_TICKET_EXPIRY_BUFFER" default:"24h"`
	Currency           string        `envconfig:"TABLEBOOK_CURRENCY" default:"IDR"`
}

func (r ReservationConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(r.PaymentMode)) {
	case PaymentModeManual, PaymentModeGateway:
	default:
		return fmt.Errorf("%s must be one of %s, %s", EnvPaymentMode, PaymentModeManual, PaymentModeGateway)
	}
	if r.PendingTTL <= 0 {
		return fmt.Errorf("%s must be positive", EnvReservationPendingTTL)
	}
	return nil
}

// ManualSettlementConfig points the operator payment-request message at a chat channel.
type ManualSettlementConfig struct {
	OperatorPhone string `envconfig:"TABLEBOOK_MANUAL_OPERATOR_PHONE"`
	ChatBaseURL   string `envconfig:"TABLEBOOK_MANUAL_CHAT_BASE_URL" default:"https://wa.me"`
}

// GatewayConfig configures the invoice-based payment provider.
type GatewayConfig struct {
	BaseURL         string        `envconfig:"TABLEBOOK_GATEWAY_BASE_URL" default:"https://api.xendit.co"`
	SecretKey       string        `envconfig:"TABLEBOOK_GATEWAY_SECRET_KEY"`
	CallbackToken   string        `envconfig:"TABLEBOOK_GATEWAY_CALLBACK_TOKEN"`
	InvoiceDuration time.Duration `envconfig:"TABLEBOOK_GATEWAY_INVOICE_DURATION" default:"24h"`
	SuccessURL      string        `envconfig:"TABLEBOOK_GATEWAY_SUCCESS_URL"`
	FailureURL      string        `envconfig:"TABLEBOOK_GATEWAY_FAILURE_URL"`
	Timeout         time.Duration `envconfig:"TABLEBOOK_GATEWAY_TIMEOUT" default:"10s"`
	MaxRetries      int           `envconfig:"TABLEBOOK_GATEWAY_MAX_RETRIES" default:"2"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"TABLEBOOK_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
	WebhookReplayTTL     time.Duration `envconfig:"TABLEBOOK_WEBHOOK_REPLAY_TTL" default:"24h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"TABLEBOOK_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"TABLEBOOK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"TABLEBOOK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	ReservationsTopic        string `envconfig:"TABLEBOOK_PUBSUB_RESERVATIONS_TOPIC" default:"tb-reservation-events"`
	NotificationTopic        string `envconfig:"TABLEBOOK_PUBSUB_NOTIFICATION_TOPIC" default:"tb-notification-events"`
	NotificationSubscription string `envconfig:"TABLEBOOK_PUBSUB_NOTIFICATION_SUBSCRIPTION" default:"tb-notification-worker"`
	AnalyticsSubscription    string `envconfig:"TABLEBOOK_PUBSUB_ANALYTICS_SUBSCRIPTION" default:"tb-analytics-worker"`
}

type BigQueryConfig struct {
	Dataset                string `envconfig:"TABLEBOOK_BIGQUERY_DATASET" default:"tablebook"`
	ReservationEventsTable string `envconfig:"TABLEBOOK_BIGQUERY_RESERVATION_TABLE" default:"reservation_events"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"TABLEBOOK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"TABLEBOOK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"TABLEBOOK_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"TABLEBOOK_OUTBOX_RETENTION" default:"720h"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"TABLEBOOK_CRON_INTERVAL" default:"1m"`
	LockTTL  time.Duration `envconfig:"TABLEBOOK_CRON_LOCK_TTL" default:"5m"`
	// RetentionEvery is the cadence of the outbox retention sweep; expiry runs every cycle.
	RetentionEvery time.Duration `envconfig:"TABLEBOOK_CRON_RETENTION_EVERY" default:"1h"`
}

type SendgridConfig struct {
	APIKey      string `envconfig:"TABLEBOOK_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"TABLEBOOK_SENDGRID_FROM_EMAIL"`
	FromName    string `envconfig:"TABLEBOOK_SENDGRID_FROM_NAME" default:"Tablebook"`
}

// Mode returns the normalized payment mode.
func (r ReservationConfig) Mode() string {
	return strings.ToLower(strings.TrimSpace(r.PaymentMode))
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		db.Driver = DBDriverSQLite
		if db.DSN == "" {
			db.DSN = "file:tablebook.db?_foreign_keys=on"
		}
		return nil
	}
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
