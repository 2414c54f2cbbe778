package config

import (
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/flexprice/debitsync/internal/types"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment     DeploymentConfig     `mapstructure:"deployment" validate:"required"`
	Server         ServerConfig         `mapstructure:"server" validate:"required"`
	Logging        LoggingConfig        `mapstructure:"logging" validate:"required"`
	Postgres       PostgresConfig       `mapstructure:"postgres" validate:"required"`
	ClickHouse     ClickHouseConfig     `mapstructure:"clickhouse"`
	Kafka          KafkaConfig          `mapstructure:"kafka"`
	Stripe         StripeConfig         `mapstructure:"stripe" validate:"required"`
	Ledger         LedgerConfig         `mapstructure:"ledger"`
	Reconciliation ReconciliationConfig `mapstructure:"reconciliation" validate:"required"`
	Outbox         OutboxConfig         `mapstructure:"outbox" validate:"required"`
	DeadLetter     DeadLetterConfig     `mapstructure:"deadletter" validate:"required"`
	Cache          CacheConfig          `mapstructure:"cache"`
	Sentry         SentryConfig         `mapstructure:"sentry"`
	Metrics        MetricsConfig        `mapstructure:"metrics"`
}

type DeploymentConfig struct {
	Mode        types.RunMode     `mapstructure:"mode" validate:"required,oneof=local api consumer aws_lambda_api"`
	Environment types.Environment `mapstructure:"environment" validate:"required,oneof=development production"`
}

type ServerConfig struct {
	Address string `mapstructure:"address" validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

type PostgresConfig struct {
	Host                   string `mapstructure:"host"`
	Port                   int    `mapstructure:"port"`
	User                   string `mapstructure:"user"`
	Password               string `mapstructure:"password"`
	DBName                 string `mapstructure:"dbname"`
	SSLMode                string `mapstructure:"sslmode"`
	MaxOpenConns           int    `mapstructure:"max_open_conns"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes"`
	// ConnectTimeout bounds the startup retry loop
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type ClickHouseConfig struct {
	Address  string `mapstructure:"address"`
	TLS      bool   `mapstructure:"tls"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

type KafkaConfig struct {
	Brokers       []string `mapstructure:"brokers"`
	ConsumerGroup string   `mapstructure:"consumer_group"`
	ClientID      string   `mapstructure:"client_id"`
	TLS           bool     `mapstructure:"tls"`
}

type StripeConfig struct {
	SecretKey     string             `mapstructure:"secret_key"`
	WebhookSecret string             `mapstructure:"webhook_secret"`
	Currency      string             `mapstructure:"currency" validate:"required"`
	ProductPrefix string             `mapstructure:"product_prefix"`
	Verifier      types.VerifierMode `mapstructure:"verifier" validate:"required,oneof=retrieve signature trust"`
	// TestCustomerID replaces the payload customer in trust mode, for harness runs
	TestCustomerID    string  `mapstructure:"test_customer_id"`
	MaxNetworkRetries int64   `mapstructure:"max_network_retries"`
	RateLimit         float64 `mapstructure:"rate_limit"`
	RateBurst         int     `mapstructure:"rate_burst"`
}

type LedgerConfig struct {
	DebitStore types.DebitStoreType `mapstructure:"debit_store"`
	AmountUnit types.AmountUnit     `mapstructure:"amount_unit" validate:"omitempty,oneof=minor major"`
}

type ReconciliationConfig struct {
	Topic              string        `mapstructure:"topic" validate:"required"`
	RetrievalTimeout   time.Duration `mapstructure:"retrieval_timeout"`
	PersistenceTimeout time.Duration `mapstructure:"persistence_timeout"`
	EmissionTimeout    time.Duration `mapstructure:"emission_timeout"`
}

type OutboxConfig struct {
	Mode       types.EmissionMode `mapstructure:"mode" validate:"required,oneof=outbox inline"`
	PubSub     types.PubSubType   `mapstructure:"pubsub" validate:"required,oneof=memory kafka"`
	Topic      string             `mapstructure:"topic" validate:"required"`
	MaxRetries int                `mapstructure:"max_retries"`
	// InitialInterval is the first retry delay; it doubles up to MaxInterval
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
}

type DeadLetterConfig struct {
	Path   string `mapstructure:"path" validate:"required"`
	Bucket string `mapstructure:"bucket" validate:"required"`
}

type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

func NewConfig() (*Configuration, error) {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/debitsync")

	v.SetEnvPrefix("DEBITSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Error reading config file: %v\n", err)
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	} else {
		fmt.Printf("Using config file: %s\n", v.ConfigFileUsed())
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults registers every key so AutomaticEnv can override values that are absent from the file
func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", types.ModeLocal)
	v.SetDefault("deployment.environment", types.EnvironmentDevelopment)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("logging.level", types.LogLevelInfo)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "debitsync")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.dbname", "debitsync")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_open_conns", 10)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("postgres.conn_max_lifetime_minutes", 60)
	v.SetDefault("postgres.connect_timeout", 30*time.Second)

	v.SetDefault("clickhouse.address", "localhost:9000")
	v.SetDefault("clickhouse.tls", false)
	v.SetDefault("clickhouse.username", "default")
	v.SetDefault("clickhouse.password", "")
	v.SetDefault("clickhouse.database", "debitsync")

	v.SetDefault("kafka.brokers", []string{"localhost:29092"})
	v.SetDefault("kafka.consumer_group", "debitsync")
	v.SetDefault("kafka.client_id", "debitsync")
	v.SetDefault("kafka.tls", false)

	v.SetDefault("stripe.secret_key", "")
	v.SetDefault("stripe.webhook_secret", "")
	v.SetDefault("stripe.currency", "usd")
	v.SetDefault("stripe.product_prefix", "")
	v.SetDefault("stripe.verifier", types.VerifierModeRetrieve)
	v.SetDefault("stripe.test_customer_id", "")
	v.SetDefault("stripe.max_network_retries", 2)
	v.SetDefault("stripe.rate_limit", 20)
	v.SetDefault("stripe.rate_burst", 5)

	v.SetDefault("ledger.debit_store", types.DebitStorePostgres)
	v.SetDefault("ledger.amount_unit", types.AmountUnitMinor)

	v.SetDefault("reconciliation.topic", "debitsync.reconciliation")
	v.SetDefault("reconciliation.retrieval_timeout", 10*time.Second)
	v.SetDefault("reconciliation.persistence_timeout", 5*time.Second)
	v.SetDefault("reconciliation.emission_timeout", 15*time.Second)

	v.SetDefault("outbox.mode", types.EmissionModeOutbox)
	v.SetDefault("outbox.pubsub", types.MemoryPubSub)
	v.SetDefault("outbox.topic", "debitsync.emission")
	v.SetDefault("outbox.max_retries", 5)
	v.SetDefault("outbox.initial_interval", time.Second)
	v.SetDefault("outbox.max_interval", time.Minute)

	v.SetDefault("deadletter.path", "./data/deadletter.db")
	v.SetDefault("deadletter.bucket", "deadletters")

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", 5*time.Minute)

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "")
	v.SetDefault("sentry.sample_rate", 1.0)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "debitsync")
}

func (c Configuration) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}

	if c.Stripe.Verifier == types.VerifierModeTrust && c.IsProduction() {
		return fmt.Errorf("stripe.verifier %q is not allowed in production", c.Stripe.Verifier)
	}
	if c.Stripe.Verifier == types.VerifierModeSignature && c.Stripe.WebhookSecret == "" {
		return fmt.Errorf("stripe.webhook_secret is required for the signature verifier")
	}
	if c.Ledger.DebitStore == types.DebitStoreClickHouse && c.ClickHouse.Address == "" {
		return fmt.Errorf("clickhouse.address is required when ledger.debit_store is clickhouse")
	}
	if c.Outbox.PubSub == types.KafkaPubSub && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when outbox.pubsub is kafka")
	}
	return nil
}

func (c Configuration) IsProduction() bool {
	return c.Deployment.Environment == types.EnvironmentProduction
}

// GetDefaultConfig returns a default configuration for local development
// This is useful for running scripts or tests
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal, Environment: types.EnvironmentDevelopment},
		Server:     ServerConfig{Address: ":8080"},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Stripe: StripeConfig{
			Currency:          "usd",
			Verifier:          types.VerifierModeTrust,
			MaxNetworkRetries: 2,
			RateLimit:         20,
			RateBurst:         5,
		},
		Ledger: LedgerConfig{DebitStore: types.DebitStorePostgres, AmountUnit: types.AmountUnitMinor},
		Reconciliation: ReconciliationConfig{
			Topic:              "debitsync.reconciliation",
			RetrievalTimeout:   10 * time.Second,
			PersistenceTimeout: 5 * time.Second,
			EmissionTimeout:    15 * time.Second,
		},
		Outbox: OutboxConfig{
			Mode:            types.EmissionModeOutbox,
			PubSub:          types.MemoryPubSub,
			Topic:           "debitsync.emission",
			MaxRetries:      5,
			InitialInterval: time.Second,
			MaxInterval:     time.Minute,
		},
		DeadLetter: DeadLetterConfig{Path: "./data/deadletter.db", Bucket: "deadletters"},
		Cache:      CacheConfig{Enabled: true, TTL: 5 * time.Minute},
		Metrics:    MetricsConfig{Enabled: true, Namespace: "debitsync"},
	}
}

func (c ClickHouseConfig) GetClientOptions() *clickhouse.Options {
	options := &clickhouse.Options{
		Addr: []string{c.Address},
		Auth: clickhouse.Auth{
			Database: c.Database,
			Username: c.Username,
			Password: c.Password,
		},
		ConnOpenStrategy: clickhouse.ConnOpenInOrder,
	}
	if c.TLS {
		options.TLS = &tls.Config{}
	}
	return options
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User,
		c.Password,
		c.DBName,
		c.Host,
		c.Port,
		c.SSLMode,
	)
}

// GetMigrateURL returns the postgres URL form expected by golang-migrate
func (c PostgresConfig) GetMigrateURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.DBName,
		c.SSLMode,
	)
}
