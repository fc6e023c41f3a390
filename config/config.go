// Package config loads service configuration from the environment.
//
// A .env file is honored in development (via godotenv); real deployments
// inject the same variables directly. Validate must be called at startup:
// the service refuses to boot without the record-store and generation-service
// credentials rather than limping along with nil clients.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full service configuration.
type Config struct {
	Service   ServiceConfig
	Logging   LoggingConfig
	Tracing   TracingConfig
	Profiling ProfilingConfig
	Supabase  SupabaseConfig
	Replicate ReplicateConfig
	Shutdown  ShutdownConfig
}

// ServiceConfig identifies the service instance.
type ServiceConfig struct {
	Name    string
	Version string
	Env     string
	Port    string
}

// LoggingConfig controls zerolog output.
type LoggingConfig struct {
	Level string
}

// TracingConfig controls OpenTelemetry export.
type TracingConfig struct {
	Enabled    bool
	Endpoint   string
	SampleRate float64
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	Enabled  bool
	Endpoint string
}

// SupabaseConfig holds record-store credentials.
type SupabaseConfig struct {
	URL string
	Key string
}

// ReplicateConfig holds generation-service credentials and the fixed
// generation parameters. The model and parameters are deployment constants,
// never user input.
type ReplicateConfig struct {
	Token          string
	BaseURL        string
	ModelVersion   string
	InferenceSteps int
	GuidanceScale  float64
	NegativePrompt string
}

// ShutdownConfig controls the graceful-shutdown sequence.
type ShutdownConfig struct {
	TimeoutSeconds    int
	DrainDelaySeconds int
}

const (
	defaultModelVersion = "7225de281f5dccad89df7c31d01857a41e6c0960431885d350c6ceb706582d31"
	defaultReplicateURL = "https://api.replicate.com"
)

// Load reads configuration from the environment, applying defaults for
// everything except credentials.
func Load() *Config {
	// Best-effort: absence of a .env file is normal outside development.
	_ = godotenv.Load()

	return &Config{
		Service: ServiceConfig{
			Name:    getEnv("SERVICE_NAME", "imagegen-service"),
			Version: getEnv("SERVICE_VERSION", "dev"),
			Env:     getEnv("SERVICE_ENV", "development"),
			Port:    getEnv("PORT", "8080"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Tracing: TracingConfig{
			Enabled:    getEnvBool("TRACING_ENABLED", false),
			Endpoint:   getEnv("TRACING_ENDPOINT", "localhost:4318"),
			SampleRate: getEnvFloat("TRACING_SAMPLE_RATE", 1.0),
		},
		Profiling: ProfilingConfig{
			Enabled:  getEnvBool("PROFILING_ENABLED", false),
			Endpoint: getEnv("PROFILING_ENDPOINT", "http://localhost:4040"),
		},
		Supabase: SupabaseConfig{
			URL: os.Getenv("SUPABASE_URL"),
			Key: os.Getenv("SUPABASE_KEY"),
		},
		Replicate: ReplicateConfig{
			Token:          os.Getenv("REPLICATE_API_TOKEN"),
			BaseURL:        getEnv("REPLICATE_BASE_URL", defaultReplicateURL),
			ModelVersion:   getEnv("REPLICATE_MODEL_VERSION", defaultModelVersion),
			InferenceSteps: getEnvInt("GENERATION_INFERENCE_STEPS", 50),
			GuidanceScale:  getEnvFloat("GENERATION_GUIDANCE_SCALE", 9.0),
			NegativePrompt: getEnv("GENERATION_NEGATIVE_PROMPT", "ugly, blurry, poor quality, deformed"),
		},
		Shutdown: ShutdownConfig{
			TimeoutSeconds:    getEnvInt("SHUTDOWN_TIMEOUT_SECONDS", 15),
			DrainDelaySeconds: getEnvInt("READINESS_DRAIN_DELAY_SECONDS", 0),
		},
	}
}

// Validate fails fast on missing credentials so the service never starts
// with null external-service clients.
func (c *Config) Validate() error {
	if c.Supabase.URL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	if c.Supabase.Key == "" {
		return fmt.Errorf("SUPABASE_KEY is required")
	}
	if c.Replicate.Token == "" {
		return fmt.Errorf("REPLICATE_API_TOKEN is required")
	}
	if c.Replicate.ModelVersion == "" {
		return fmt.Errorf("REPLICATE_MODEL_VERSION must not be empty")
	}
	if c.Replicate.InferenceSteps <= 0 {
		return fmt.Errorf("GENERATION_INFERENCE_STEPS must be positive, got %d", c.Replicate.InferenceSteps)
	}
	return nil
}

// GetShutdownTimeoutDuration returns the HTTP shutdown timeout.
func (c *Config) GetShutdownTimeoutDuration() time.Duration {
	return time.Duration(c.Shutdown.TimeoutSeconds) * time.Second
}

// GetReadinessDrainDelayDuration returns the delay between failing the
// readiness probe and starting the HTTP shutdown.
func (c *Config) GetReadinessDrainDelayDuration() time.Duration {
	return time.Duration(c.Shutdown.DrainDelaySeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
