package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper to set env vars and clean up after
func setEnv(t *testing.T, key, value string) {
	t.Helper()
	old := os.Getenv(key)
	os.Setenv(key, value)
	t.Cleanup(func() {
		if old == "" {
			os.Unsetenv(key)
		} else {
			os.Setenv(key, old)
		}
	})
}

func TestLoad_WithValidConfig(t *testing.T) {
	setEnv(t, "BACKEND_URL", "http://backend.internal:5000")
	setEnv(t, "PORT", "9090")
	setEnv(t, "SESSION_TTL", "2h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "http://backend.internal:5000", cfg.BackendURL)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, DefaultCookieName, cfg.SessionCookieName)
	assert.Equal(t, DefaultPaymentRPM, cfg.PaymentRateLimitRPM)
}

func TestLoad_Defaults(t *testing.T) {
	setEnv(t, "BACKEND_URL", "")
	setEnv(t, "PORT", "")
	setEnv(t, "SESSION_TTL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultBackendURL, cfg.BackendURL)
	assert.Equal(t, time.Duration(DefaultSessionTTL), cfg.SessionTTL)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{
			name: "valid config",
			config: Config{
				BackendURL:          "http://localhost:5000",
				SessionTTL:          time.Hour,
				PaymentRateLimitRPM: 30,
			},
			wantErr: "",
		},
		{
			name: "missing backend URL",
			config: Config{
				SessionTTL:          time.Hour,
				PaymentRateLimitRPM: 30,
			},
			wantErr: "BACKEND_URL is required",
		},
		{
			name: "relative backend URL",
			config: Config{
				BackendURL:          "/api",
				SessionTTL:          time.Hour,
				PaymentRateLimitRPM: 30,
			},
			wantErr: "absolute URL",
		},
		{
			name: "zero session TTL",
			config: Config{
				BackendURL:          "http://localhost:5000",
				PaymentRateLimitRPM: 30,
			},
			wantErr: "SESSION_TTL",
		},
		{
			name: "zero rate limit",
			config: Config{
				BackendURL: "http://localhost:5000",
				SessionTTL: time.Hour,
			},
			wantErr: "PAYMENT_RATE_LIMIT_RPM",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	cfg := &Config{Env: "development"}
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())

	cfg.Env = "production"
	assert.False(t, cfg.IsDevelopment())
	assert.True(t, cfg.IsProduction())
}

func TestGetEnvDuration(t *testing.T) {
	setEnv(t, "TEST_DUR", "90s")
	setEnv(t, "TEST_INVALID", "ninety seconds")

	assert.Equal(t, 90*time.Second, getEnvDuration("TEST_DUR", time.Minute))
	assert.Equal(t, time.Minute, getEnvDuration("NONEXISTENT_VAR", time.Minute))
	assert.Equal(t, time.Minute, getEnvDuration("TEST_INVALID", time.Minute)) // Falls back on parse error
}

func TestGetEnvInt64(t *testing.T) {
	setEnv(t, "TEST_INT", "42")
	setEnv(t, "TEST_INVALID", "not_a_number")

	assert.Equal(t, int64(42), getEnvInt64("TEST_INT", 0))
	assert.Equal(t, int64(99), getEnvInt64("NONEXISTENT_VAR", 99))
	assert.Equal(t, int64(99), getEnvInt64("TEST_INVALID", 99)) // Falls back on parse error
}
