// Package config loads service configuration from the environment.
//
// A .env file in the working directory is read first (if present) so local
// development does not need exported variables. Real environment variables
// always win over .env values.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the root configuration for the service.
type Config struct {
	Service   ServiceConfig
	Logging   LoggingConfig
	Tracing   TracingConfig
	Profiling ProfilingConfig
	Secrets   SecretsConfig
	Warehouse WarehouseConfig
	Shutdown  ShutdownConfig
}

type ServiceConfig struct {
	Name    string
	Version string
	Env     string
	Port    string
}

type LoggingConfig struct {
	Level  string
	Format string // json | console
}

type TracingConfig struct {
	Enabled    bool
	Endpoint   string
	SampleRate float64
}

type ProfilingConfig struct {
	Enabled  bool
	Endpoint string
}

// SecretsConfig selects where warehouse credentials come from.
type SecretsConfig struct {
	Backend    string // aws | env
	Region     string
	SecretName string
}

// WarehouseConfig selects the warehouse driver. Static is only consulted by
// the env secrets backend.
type WarehouseConfig struct {
	Driver       string // snowflake | postgres
	LoginTimeout string
	Static       map[string]string
}

type ShutdownConfig struct {
	Timeout             string
	ReadinessDrainDelay string
}

const (
	SecretsBackendAWS = "aws"
	SecretsBackendEnv = "env"

	DriverSnowflake = "snowflake"
	DriverPostgres  = "postgres"
)

// staticCredentialKeys maps credential keys to the env vars the env secrets
// backend reads them from.
var staticCredentialKeys = map[string]string{
	"account":   "SNOWFLAKE_ACCOUNT",
	"user":      "SNOWFLAKE_USER",
	"password":  "SNOWFLAKE_PASSWORD",
	"warehouse": "SNOWFLAKE_WAREHOUSE",
	"database":  "SNOWFLAKE_DATABASE",
	"schema":    "SNOWFLAKE_SCHEMA",
	"role":      "SNOWFLAKE_ROLE",
	"dsn":       "WAREHOUSE_DSN",
}

// Load reads configuration from .env and the environment, applying defaults.
func Load() *Config {
	// Missing .env is the normal case outside local development.
	_ = godotenv.Load()

	static := make(map[string]string)
	for key, env := range staticCredentialKeys {
		if v := os.Getenv(env); v != "" {
			static[key] = v
		}
	}

	return &Config{
		Service: ServiceConfig{
			Name:    getEnv("SERVICE_NAME", "warehouse-user-service"),
			Version: getEnv("VERSION", "1.0.0"),
			Env:     getEnv("ENV", "development"),
			Port:    getEnv("PORT", "8080"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Tracing: TracingConfig{
			Enabled:    getEnvBool("TRACING_ENABLED", false),
			Endpoint:   getEnv("OTEL_COLLECTOR_ENDPOINT", "localhost:4318"),
			SampleRate: getEnvFloat("OTEL_SAMPLE_RATE", 0.1),
		},
		Profiling: ProfilingConfig{
			Enabled:  getEnvBool("PROFILING_ENABLED", false),
			Endpoint: getEnv("PYROSCOPE_ENDPOINT", "http://localhost:4040"),
		},
		Secrets: SecretsConfig{
			Backend:    getEnv("SECRETS_BACKEND", SecretsBackendAWS),
			Region:     getEnv("AWS_REGION", "us-east-1"),
			SecretName: getEnv("AWS_SECRET_NAME", "snowflake-credentials"),
		},
		Warehouse: WarehouseConfig{
			Driver:       getEnv("WAREHOUSE_DRIVER", DriverSnowflake),
			LoginTimeout: getEnv("WAREHOUSE_LOGIN_TIMEOUT", "30s"),
			Static:       static,
		},
		Shutdown: ShutdownConfig{
			Timeout:             getEnv("SHUTDOWN_TIMEOUT", "10s"),
			ReadinessDrainDelay: getEnv("READINESS_DRAIN_DELAY", "5s"),
		},
	}
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Service.Name == "" {
		errs = append(errs, errors.New("SERVICE_NAME is required"))
	}
	if c.Service.Port == "" {
		errs = append(errs, errors.New("PORT is required"))
	} else if _, err := strconv.Atoi(c.Service.Port); err != nil {
		errs = append(errs, fmt.Errorf("PORT must be numeric, got %q", c.Service.Port))
	}

	switch c.Secrets.Backend {
	case SecretsBackendAWS:
		if c.Secrets.Region == "" {
			errs = append(errs, errors.New("AWS_REGION is required for the aws secrets backend"))
		}
		if c.Secrets.SecretName == "" {
			errs = append(errs, errors.New("AWS_SECRET_NAME is required for the aws secrets backend"))
		}
	case SecretsBackendEnv:
	default:
		errs = append(errs, fmt.Errorf("SECRETS_BACKEND must be %q or %q, got %q",
			SecretsBackendAWS, SecretsBackendEnv, c.Secrets.Backend))
	}

	switch c.Warehouse.Driver {
	case DriverSnowflake, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("WAREHOUSE_DRIVER must be %q or %q, got %q",
			DriverSnowflake, DriverPostgres, c.Warehouse.Driver))
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("OTEL_SAMPLE_RATE must be within [0,1], got %v", c.Tracing.SampleRate))
	}

	for name, value := range map[string]string{
		"WAREHOUSE_LOGIN_TIMEOUT": c.Warehouse.LoginTimeout,
		"SHUTDOWN_TIMEOUT":        c.Shutdown.Timeout,
		"READINESS_DRAIN_DELAY":   c.Shutdown.ReadinessDrainDelay,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			errs = append(errs, fmt.Errorf("%s is not a valid duration: %q", name, value))
		}
	}

	return errors.Join(errs...)
}

// GetShutdownTimeoutDuration returns the HTTP shutdown timeout.
func (c *Config) GetShutdownTimeoutDuration() time.Duration {
	return parseDurationOr(c.Shutdown.Timeout, 10*time.Second)
}

// GetReadinessDrainDelayDuration returns how long /ready reports 503 before the
// HTTP server starts shutting down.
func (c *Config) GetReadinessDrainDelayDuration() time.Duration {
	return parseDurationOr(c.Shutdown.ReadinessDrainDelay, 5*time.Second)
}

// GetWarehouseLoginTimeoutDuration returns the warehouse login timeout.
func (c *Config) GetWarehouseLoginTimeoutDuration() time.Duration {
	return parseDurationOr(c.Warehouse.LoginTimeout, 30*time.Second)
}

func parseDurationOr(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return fallback
	}
	return v
}
