package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()
	require.NotNil(t, cfg)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "mera_events", cfg.Database.DBName)
	assert.Equal(t, 0, cfg.Redis.DB)

	// 登録エンジンのデフォルト値
	assert.Equal(t, 5*time.Second, cfg.Registration.OperationTimeout)
	assert.Equal(t, 3, cfg.Registration.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, cfg.Registration.RetryBackoff)
	assert.Equal(t, 10*time.Second, cfg.Registration.LockTTL)
}

func TestLoad_FromEnv(t *testing.T) {
	os.Setenv("PORT", "9090")
	os.Setenv("DB_NAME", "testdb")
	os.Setenv("REGISTRATION_MAX_RETRIES", "5")
	os.Setenv("REGISTRATION_OPERATION_TIMEOUT", "2s")
	defer func() {
		os.Unsetenv("PORT")
		os.Unsetenv("DB_NAME")
		os.Unsetenv("REGISTRATION_MAX_RETRIES")
		os.Unsetenv("REGISTRATION_OPERATION_TIMEOUT")
	}()

	cfg := Load()

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "testdb", cfg.Database.DBName)
	assert.Equal(t, 5, cfg.Registration.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.Registration.OperationTimeout)
}

func TestLoad_InvalidEnvFallsBackToDefault(t *testing.T) {
	os.Setenv("REGISTRATION_MAX_RETRIES", "not-a-number")
	os.Setenv("REGISTRATION_RETRY_BACKOFF", "not-a-duration")
	defer func() {
		os.Unsetenv("REGISTRATION_MAX_RETRIES")
		os.Unsetenv("REGISTRATION_RETRY_BACKOFF")
	}()

	cfg := Load()

	assert.Equal(t, 3, cfg.Registration.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, cfg.Registration.RetryBackoff)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host: "db", Port: "5432", User: "app", Password: "secret",
		DBName: "mera_events", SSLMode: "disable",
	}
	dsn := cfg.DSN()
	assert.Contains(t, dsn, "host=db")
	assert.Contains(t, dsn, "dbname=mera_events")
	assert.Contains(t, dsn, "sslmode=disable")
}

func TestRedisConfig_Addr(t *testing.T) {
	cfg := RedisConfig{Host: "redis", Port: "6379"}
	assert.Equal(t, "redis:6379", cfg.Addr())
}
