package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setCredentials(t *testing.T) {
	t.Helper()
	t.Setenv("SUPABASE_URL", "https://project.supabase.co")
	t.Setenv("SUPABASE_KEY", "service-key")
	t.Setenv("REPLICATE_API_TOKEN", "r8-token")
}

func TestLoadDefaults(t *testing.T) {
	setCredentials(t)

	cfg := Load()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "imagegen-service", cfg.Service.Name)
	assert.Equal(t, "8080", cfg.Service.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 50, cfg.Replicate.InferenceSteps)
	assert.Equal(t, 9.0, cfg.Replicate.GuidanceScale)
	assert.Equal(t, "ugly, blurry, poor quality, deformed", cfg.Replicate.NegativePrompt)
	assert.Equal(t, 15*time.Second, cfg.GetShutdownTimeoutDuration())
	assert.Equal(t, time.Duration(0), cfg.GetReadinessDrainDelayDuration())
}

func TestValidateFailsFastOnMissingCredentials(t *testing.T) {
	for _, tc := range []struct {
		name  string
		unset string
	}{
		{"missing store URL", "SUPABASE_URL"},
		{"missing store key", "SUPABASE_KEY"},
		{"missing generation token", "REPLICATE_API_TOKEN"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			setCredentials(t)
			t.Setenv(tc.unset, "")

			cfg := Load()
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.unset)
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	setCredentials(t)
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("GENERATION_INFERENCE_STEPS", "30")
	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "5")

	cfg := Load()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "9090", cfg.Service.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 30, cfg.Replicate.InferenceSteps)
	assert.Equal(t, 5*time.Second, cfg.GetShutdownTimeoutDuration())
}

func TestValidateRejectsBadGenerationParams(t *testing.T) {
	setCredentials(t)
	t.Setenv("GENERATION_INFERENCE_STEPS", "-1")

	cfg := Load()
	assert.Error(t, cfg.Validate())
}
