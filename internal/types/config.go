package types

type RunMode string

const (
	// ModeLocal runs the API server and both pubsub consumers in one process
	ModeLocal RunMode = "local"
	// ModeAPI runs just the API server; reconciliation happens in consumers
	ModeAPI RunMode = "api"
	// ModeConsumer runs the sync and emission consumers without the HTTP surface
	ModeConsumer RunMode = "consumer"
	// ModeAWSLambdaAPI is the mode for running the API server in AWS Lambda
	ModeAWSLambdaAPI RunMode = "aws_lambda_api"
)

// Environment controls behaviour that must differ between production and test deployments
type Environment string

const (
	EnvironmentDevelopment Environment = "development"
	EnvironmentProduction  Environment = "production"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// PubSubType defines the type of pubsub implementation
type PubSubType string

const (
	// MemoryPubSub uses in-memory implementation
	MemoryPubSub PubSubType = "memory"

	// KafkaPubSub uses Kafka implementation
	KafkaPubSub PubSubType = "kafka"
)

// DebitStoreType selects where usage debits are read from
type DebitStoreType string

const (
	DebitStorePostgres   DebitStoreType = "postgres"
	DebitStoreClickHouse DebitStoreType = "clickhouse"
)

// AmountUnit is the unit ledger amounts are recorded in
type AmountUnit string

const (
	// AmountUnitMinor amounts are whole cents and go to the processor unchanged
	AmountUnitMinor AmountUnit = "minor"
	// AmountUnitMajor amounts are currency units with up to two decimals
	AmountUnitMajor AmountUnit = "major"
)
