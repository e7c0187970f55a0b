package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Load_Defaults(t *testing.T) {
	t.Setenv("SECRETS_BACKEND", "")
	t.Setenv("WAREHOUSE_DRIVER", "")
	t.Setenv("AWS_SECRET_NAME", "")

	cfg := Load()

	assert.Equal(t, "warehouse-user-service", cfg.Service.Name)
	assert.Equal(t, SecretsBackendAWS, cfg.Secrets.Backend)
	assert.Equal(t, "us-east-1", cfg.Secrets.Region)
	assert.Equal(t, "snowflake-credentials", cfg.Secrets.SecretName)
	assert.Equal(t, DriverSnowflake, cfg.Warehouse.Driver)
	assert.Equal(t, 10*time.Second, cfg.GetShutdownTimeoutDuration())
	require.NoError(t, cfg.Validate())
}

func Test_Load_StaticCredentialsFromEnv(t *testing.T) {
	t.Setenv("SNOWFLAKE_ACCOUNT", "acme-xy12345")
	t.Setenv("SNOWFLAKE_USER", "svc_api")
	t.Setenv("SNOWFLAKE_PASSWORD", "hunter2")

	cfg := Load()

	assert.Equal(t, "acme-xy12345", cfg.Warehouse.Static["account"])
	assert.Equal(t, "svc_api", cfg.Warehouse.Static["user"])
	assert.Equal(t, "hunter2", cfg.Warehouse.Static["password"])
	assert.NotContains(t, cfg.Warehouse.Static, "role")
}

func Test_Validate_ReportsAllErrors(t *testing.T) {
	cfg := Load()
	cfg.Service.Port = "http"
	cfg.Secrets.Backend = "vault"
	cfg.Warehouse.Driver = "oracle"
	cfg.Shutdown.Timeout = "soon"

	err := cfg.Validate()
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "PORT must be numeric")
	assert.Contains(t, msg, "SECRETS_BACKEND")
	assert.Contains(t, msg, "WAREHOUSE_DRIVER")
	assert.Contains(t, msg, "SHUTDOWN_TIMEOUT")
}

func Test_DurationGetters_FallBackOnGarbage(t *testing.T) {
	cfg := &Config{}
	cfg.Shutdown.ReadinessDrainDelay = "nope"
	cfg.Warehouse.LoginTimeout = "2m"

	assert.Equal(t, 5*time.Second, cfg.GetReadinessDrainDelayDuration())
	assert.Equal(t, 2*time.Minute, cfg.GetWarehouseLoginTimeoutDuration())
}
