package config

import "time"

type Config struct {
	Environment    Environment
	Log            Log
	HTTP           HTTPServer
	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"sqlite"`
	DatabaseURL    string `env:"DATABASE_URL" envDefault:"storefront.db"`

	Redis    Redis    `envPrefix:"REDIS_"`
	Events   Events   `envPrefix:"EVENTS_"`
	Auth     Auth     `envPrefix:"AUTH_"`
	Checkout Checkout `envPrefix:"CHECKOUT_"`
	PhonePe  PhonePe  `envPrefix:"PHONEPE_"`
	Paypal   Paypal   `envPrefix:"PAYPAL_"`
}

type PhonePe struct {
	BaseApiURL    string `env:"BASE_API_URL" envDefault:"https://api-preprod.phonepe.com/apis/pg-sandbox"`
	ClientID      string `env:"CLIENT_ID"`
	ClientSecret  string `env:"CLIENT_SECRET"`
	ClientVersion string `env:"CLIENT_VERSION" envDefault:"1"`
	MerchantID    string `env:"MERCHANT_ID"`
	// UAT or PRODUCTION. UAT merchant ids are sent with the TEST- prefix.
	Environment      string        `env:"ENVIRONMENT" envDefault:"UAT"`
	RedirectURL      string        `env:"REDIRECT_URL" envDefault:"http://localhost:8080/payment-status"`
	CallbackUsername string        `env:"CALLBACK_USERNAME"`
	CallbackPassword string        `env:"CALLBACK_PASSWORD"`
	Timeout          time.Duration `env:"TIMEOUT" envDefault:"15s"`
}

type Paypal struct {
	BaseApiURL   string        `env:"BASE_API_URL" envDefault:"https://api-m.sandbox.paypal.com"`
	ClientID     string        `env:"CLIENT_ID"`
	ClientSecret string        `env:"CLIENT_SECRET"`
	Timeout      time.Duration `env:"TIMEOUT" envDefault:"15s"`
}

type Redis struct {
	Addr           string        `env:"ADDR"`
	Password       string        `env:"PASSWORD"`
	DB             int           `env:"DB" envDefault:"0"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`
}

type Events struct {
	// log, rabbitmq or kafka
	Broker       string   `env:"BROKER" envDefault:"log"`
	RabbitURL    string   `env:"RABBIT_URL"`
	Exchange     string   `env:"EXCHANGE" envDefault:"storefront.payments"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"storefront-payment-status"`
}

type Auth struct {
	JWTSecret string `env:"JWT_SECRET"`
}

type Checkout struct {
	MinimumPurchase float64       `env:"MINIMUM_PURCHASE" envDefault:"1000"`
	PollInterval    time.Duration `env:"POLL_INTERVAL" envDefault:"3s"`
	PollMaxAttempts int           `env:"POLL_MAX_ATTEMPTS" envDefault:"20"`
	PollMaxElapsed  time.Duration `env:"POLL_MAX_ELAPSED" envDefault:"2m"`
	SweepInterval   time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
	SweepMinAge     time.Duration `env:"SWEEP_MIN_AGE" envDefault:"2m"`
	SweepMaxAge     time.Duration `env:"SWEEP_MAX_AGE" envDefault:"24h"`
	SweepBatch      int           `env:"SWEEP_BATCH" envDefault:"25"`
	PersistRetries  int           `env:"PERSIST_RETRIES" envDefault:"5"`
	SeedCatalog     bool          `env:"SEED_CATALOG" envDefault:"true"`
	DefaultCurrency string        `env:"DEFAULT_CURRENCY" envDefault:"INR"`

	// IN_FLIGHT idempotency rows older than this can be claimed again (database store)
	IdempotencyInFlightTTL time.Duration `env:"IDEMPOTENCY_INFLIGHT_TTL" envDefault:"20m"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host      string  `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port      string  `env:"HTTP_PORT" envDefault:"8080"`
	RateLimit float64 `env:"HTTP_RATE_LIMIT" envDefault:"5"`
	RateBurst int     `env:"HTTP_RATE_BURST" envDefault:"10"`
}
