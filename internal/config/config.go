package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Store backends.
const (
	BackendDynamoDB = "dynamodb"
	BackendMemory   = "memory"
)

// Config holds process configuration read from the environment.
type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// AWS
	AWSRegion        string `envconfig:"AWS_REGION" default:"us-east-1"`
	EndpointOverride string `envconfig:"AWS_ENDPOINT_OVERRIDE"`

	// Store
	TableName      string        `envconfig:"DYNAMODB_TABLE_NAME" default:"todo-app-data"`
	StoreBackend   string        `envconfig:"STORE_BACKEND" default:"dynamodb"`
	IdempotencyTTL time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`
	RetryAttempts  uint          `envconfig:"STORE_RETRY_MAX_ATTEMPTS" default:"4"`
	RetryBaseDelay time.Duration `envconfig:"STORE_RETRY_BASE_DELAY" default:"50ms"`

	// HTTP
	RunLocal   bool   `envconfig:"RUN_LOCAL" default:"false"`
	ListenAddr string `envconfig:"LISTEN_ADDR" default:":8080"`

	// Local identity stand-ins, ignored behind API Gateway
	LocalUser bool   `envconfig:"LOCAL_USER" default:"false"`
	JWTSecret string `envconfig:"JWT_SECRET"`

	// Metrics
	MetricsEnabled   bool   `envconfig:"METRICS_ENABLED" default:"false"`
	MetricsNamespace string `envconfig:"METRICS_NAMESPACE" default:"TodoApi"`

	// Worker
	CDCQueueURL string `envconfig:"CDC_QUEUE_URL"`
}

// Load reads a .env file when one exists, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load() // .env is optional

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings shared by every process.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendDynamoDB:
		if c.TableName == "" {
			return fmt.Errorf("DYNAMODB_TABLE_NAME is required for the %s backend", BackendDynamoDB)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unsupported STORE_BACKEND: %s", c.StoreBackend)
	}
	if c.IdempotencyTTL <= 0 {
		return fmt.Errorf("IDEMPOTENCY_TTL must be positive")
	}
	if c.RetryAttempts == 0 {
		return fmt.Errorf("STORE_RETRY_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}

// ValidateWorker checks settings the change-stream worker needs.
func (c *Config) ValidateWorker() error {
	if c.CDCQueueURL == "" {
		return fmt.Errorf("CDC_QUEUE_URL is required")
	}
	return nil
}

func (c *Config) IsProduction() bool { return c.Environment == "production" }
