package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	AWS       AWSConfig
	Pipeline  PipelineConfig
	Ledger    LedgerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Telemetry TelemetryConfig
}

type ServerConfig struct {
	Port string
}

type AWSConfig struct {
	Region          string
	QueueURL        string
	SpilloverBucket string
	AccountID       string
	ProductArn      string
}

type PipelineConfig struct {
	ChunkSize      int
	HubBatchLimit  int
	PollWaitSecs   int
	ReplaySchedule string
}

type LedgerConfig struct {
	Table      string
	WriteScope string // "accepted" or "all"
	RedisAddr  string // optional read-through cache
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
}

type AuthConfig struct {
	Enabled  bool
	SecretID string
}

type TelemetryConfig struct {
	CallHomeURL string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			QueueURL:        getEnv("SQS_QUEUE_URL", ""),
			SpilloverBucket: getEnv("SPILLOVER_BUCKET", ""),
			AccountID:       getEnv("ACCOUNT_ID", ""),
			ProductArn:      getEnv("PRODUCT_ARN", ""),
		},
		Pipeline: PipelineConfig{
			ChunkSize:      getEnvAsInt("CHUNK_SIZE", 10),
			HubBatchLimit:  getEnvAsInt("HUB_BATCH_LIMIT", 100),
			PollWaitSecs:   getEnvAsInt("POLL_WAIT_SECONDS", 20),
			ReplaySchedule: getEnv("REPLAY_SCHEDULE", ""),
		},
		Ledger: LedgerConfig{
			Table:      getEnv("LEDGER_TABLE", "xray-findings"),
			WriteScope: getEnv("LEDGER_WRITE_SCOPE", "accepted"),
			RedisAddr:  getEnv("REDIS_ADDR", ""),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", ""),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "xraysync"),
		},
		Auth: AuthConfig{
			Enabled:  getEnv("AUTH_ENABLED", "true") == "true",
			SecretID: getEnv("AUTH_SECRET_ID", ""),
		},
		Telemetry: TelemetryConfig{
			CallHomeURL: getEnv("CALLHOME_URL", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Pipeline.ChunkSize < 1 {
		return fmt.Errorf("CHUNK_SIZE must be at least 1")
	}

	if c.Pipeline.HubBatchLimit < 1 {
		return fmt.Errorf("HUB_BATCH_LIMIT must be at least 1")
	}

	if c.Ledger.WriteScope != "accepted" && c.Ledger.WriteScope != "all" {
		return fmt.Errorf("LEDGER_WRITE_SCOPE must be \"accepted\" or \"all\", got %q", c.Ledger.WriteScope)
	}

	if c.Auth.Enabled && c.Auth.SecretID == "" {
		return fmt.Errorf("AUTH_SECRET_ID is required when AUTH_ENABLED=true")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}
