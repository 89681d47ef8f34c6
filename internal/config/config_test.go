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

func TestLoad_Defaults(t *testing.T) {
	setEnv(t, "PORT", "")
	setEnv(t, "FRAUD_THRESHOLD", "")
	setEnv(t, "HOME_COUNTRY", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultFraudThreshold, cfg.FraudThreshold)
	assert.Equal(t, DefaultHomeCountry, cfg.HomeCountry)
	assert.Equal(t, DefaultMLTimeoutMS*time.Millisecond, cfg.MLTimeout)
}

func TestLoad_Overrides(t *testing.T) {
	setEnv(t, "PORT", "9090")
	setEnv(t, "FRAUD_THRESHOLD", "80")
	setEnv(t, "HOME_COUNTRY", "GB")
	setEnv(t, "ML_SERVICE_URL", "http://localhost:5001")
	setEnv(t, "ML_TIMEOUT_MS", "1500")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 80, cfg.FraudThreshold)
	assert.Equal(t, "GB", cfg.HomeCountry)
	assert.Equal(t, "http://localhost:5001", cfg.MLServiceURL)
	assert.Equal(t, 1500*time.Millisecond, cfg.MLTimeout)
}

func TestLoad_InvalidThreshold(t *testing.T) {
	setEnv(t, "FRAUD_THRESHOLD", "150")

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "FRAUD_THRESHOLD")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name: "valid",
			config: Config{
				FraudThreshold: 70,
				MLTimeout:      time.Second,
				HomeCountry:    "US",
			},
			wantErr: false,
		},
		{
			name: "negative threshold",
			config: Config{
				FraudThreshold: -1,
				MLTimeout:      time.Second,
				HomeCountry:    "US",
			},
			wantErr: true,
		},
		{
			name: "zero timeout",
			config: Config{
				FraudThreshold: 70,
				HomeCountry:    "US",
			},
			wantErr: true,
		},
		{
			name: "empty home country",
			config: Config{
				FraudThreshold: 70,
				MLTimeout:      time.Second,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
