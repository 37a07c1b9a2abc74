package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ENV", "test")

	cfg := LoadConfig()

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.False(t, cfg.Database.UseSSL)
	assert.Equal(t, 5, cfg.Auth.PasswordMinLength)
	assert.Equal(t, 24*time.Hour, cfg.Media.URLTTL)
	assert.Equal(t, int64(10<<20), cfg.Media.MaxUploadBytes)
	assert.Equal(t, "minio", cfg.Storage.Backend)
	assert.Empty(t, cfg.MQ.Backend)
	assert.Equal(t, []string{"localhost:9092"}, cfg.MQ.Kafka.Brokers)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_USE_SSL", "true")
	t.Setenv("AUTH_PASSWORD_MIN_LENGTH", "8")
	t.Setenv("MEDIA_URL_TTL", "15m")
	t.Setenv("MEDIA_BASE_URL", "https://api.example.com/")
	t.Setenv("STORAGE_BACKEND", "GCS")
	t.Setenv("MQ_BACKEND", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg := LoadConfig()

	require.Equal(t, 9090, cfg.ServerPort)
	assert.True(t, cfg.Database.UseSSL)
	assert.Equal(t, 8, cfg.Auth.PasswordMinLength)
	assert.Equal(t, 15*time.Minute, cfg.Media.URLTTL)
	assert.Equal(t, "https://api.example.com", cfg.Media.BaseURL)
	assert.Equal(t, "gcs", cfg.Storage.Backend)
	assert.Equal(t, "kafka", cfg.MQ.Backend)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.MQ.Kafka.Brokers)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
}

func TestEnvHelpersFallBackOnGarbage(t *testing.T) {
	t.Setenv("X_INT", "abc")
	t.Setenv("X_BOOL", "maybe")
	t.Setenv("X_DURATION", "soon")

	assert.Equal(t, 7, getEnvInt("X_INT", 7))
	assert.Equal(t, int64(7), getEnvInt64("X_INT", 7))
	assert.True(t, getEnvBool("X_BOOL", true))
	assert.Equal(t, time.Second, getEnvDuration("X_DURATION", time.Second))
}
