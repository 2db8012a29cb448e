package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DATABASE_URL", "MAX_CONNECTIONS", "INGEST_BACKEND",
		"KAFKA_USERNAME", "KAFKA_PASSWORD", "KAFKA_SECURITY_PROTOCOL", "KAFKA_SASL_MECHANISM",
	} {
		os.Unsetenv(key)
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	clearEnv(t)
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadAppliesDefaults(t *testing.T) {
	clearEnv(t)
	os.Setenv("DATABASE_URL", "postgres://localhost/scouter")
	defer os.Unsetenv("DATABASE_URL")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.MaxConns)
	assert.Equal(t, "kafka", cfg.IngestBackend)
	assert.Equal(t, 1, cfg.RabbitMQConsumers)
}

func TestLoadRejectsPartialSASL(t *testing.T) {
	clearEnv(t)
	os.Setenv("DATABASE_URL", "postgres://localhost/scouter")
	os.Setenv("KAFKA_USERNAME", "user")
	defer clearEnv(t)

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsUnknownIngestBackend(t *testing.T) {
	clearEnv(t)
	os.Setenv("DATABASE_URL", "postgres://localhost/scouter")
	os.Setenv("INGEST_BACKEND", "sqs")
	defer clearEnv(t)

	_, err := Load()
	assert.Error(t, err)
}
