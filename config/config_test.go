package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("DB_NAME", "coldpipe_test")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadWithOptions(LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, "mongodb://localhost:27017", cfg.Mongo.URI)
	assert.Equal(t, "coldpipe_test", cfg.Mongo.DBName)
	assert.True(t, cfg.SMTP.StartTLS)
	assert.Equal(t, 30, cfg.Worker.ReservationLockSeconds)
	assert.Equal(t, 20, cfg.Worker.BatchSize)
	assert.Equal(t, 15, cfg.Dispatcher.TickSeconds)
	assert.Equal(t, "UTC", cfg.DayBoundaryTZ)
	assert.Equal(t, "INFO", cfg.LogLevel)
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SMTP_STARTTLS", "false")
	t.Setenv("DEFAULT_RESERVATION_LOCK_SECONDS", "45")
	t.Setenv("DEFAULT_WORKER_BATCH_SIZE", "5")
	t.Setenv("DISPATCHER_TICK_SECONDS", "60")
	t.Setenv("DAY_BOUNDARY_TZ", "Asia/Kolkata")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadWithOptions(LoadOptions{})
	require.NoError(t, err)

	assert.False(t, cfg.SMTP.StartTLS)
	assert.Equal(t, 45, cfg.Worker.ReservationLockSeconds)
	assert.Equal(t, 5, cfg.Worker.BatchSize)
	assert.Equal(t, 60, cfg.Dispatcher.TickSeconds)
	assert.Equal(t, "Asia/Kolkata", cfg.DayBoundaryTZ)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadMissingMongoURI(t *testing.T) {
	t.Setenv("MONGO_URI", "")
	t.Setenv("DB_NAME", "coldpipe_test")

	_, err := LoadWithOptions(LoadOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MONGO_URI")
}

func TestLoadMissingDBName(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("DB_NAME", "")

	_, err := LoadWithOptions(LoadOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_NAME")
}
