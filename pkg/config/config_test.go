package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Uploads: UploadConfig{MaxSizeBytes: 10485760},
		Pipeline: PipelineConfig{
			OCRConfidenceThreshold: 0.5,
			AIConfidenceThreshold:  0.15,
			ReportedAccuracy:       97.3,
		},
	}
}

func TestValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, validConfig().validate())
	})

	t.Run("non-positive upload limit", func(t *testing.T) {
		cfg := validConfig()
		cfg.Uploads.MaxSizeBytes = 0
		assert.Error(t, cfg.validate())
	})

	t.Run("threshold out of range", func(t *testing.T) {
		cfg := validConfig()
		cfg.Pipeline.OCRConfidenceThreshold = 1.5
		assert.Error(t, cfg.validate())

		cfg = validConfig()
		cfg.Pipeline.AIConfidenceThreshold = -0.1
		assert.Error(t, cfg.validate())
	})

	t.Run("verification without JWKS URL", func(t *testing.T) {
		cfg := validConfig()
		cfg.Auth.EnableVerification = true
		assert.Error(t, cfg.validate())
	})
}

func TestLoad(t *testing.T) {
	yaml := `
env: test
port: "9090"
auth:
  enable_verification: false
uploads:
  dir: /tmp/cards
  max_size_bytes: 5242880
pipeline:
  ocr_confidence_threshold: 0.6
  ai_confidence_threshold: 0.2
  reported_accuracy: 95.0
`
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))
	oldWD, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(oldWD) })

	cfg, err := Load("test-version")
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Env)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "test-version", cfg.Version)
	assert.Equal(t, int64(5242880), cfg.Uploads.MaxSizeBytes)
	assert.InDelta(t, 0.6, cfg.Pipeline.OCRConfidenceThreshold, 0.0001)

	// env-default values fill in what the file omits
	assert.Equal(t, "eng", cfg.OCR.Languages)
	assert.Equal(t, "openai", cfg.AI.Provider)
}

func TestConnectionString(t *testing.T) {
	db := DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "cardfolio",
		Password: "hunter2",
		Database: "cardfolio_engine",
		SSLMode:  "require",
	}
	assert.Equal(t,
		"host=db.internal port=5433 user=cardfolio password=hunter2 dbname=cardfolio_engine sslmode=require",
		db.ConnectionString())
}
