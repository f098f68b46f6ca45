package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	// 清除环境变量
	os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	// 验证默认值
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "postgres", cfg.Database.User)
	assert.Equal(t, "postgres", cfg.Database.Password)
	assert.Equal(t, "sentinel", cfg.Database.Database)
	assert.Equal(t, "disable", cfg.Database.SSLMode)

	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "", cfg.Redis.Password)
	assert.Equal(t, 0, cfg.Redis.DB)

	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker)
	assert.Equal(t, "sentinel-pipeline", cfg.MQTT.ClientID)
	assert.Equal(t, byte(1), cfg.MQTT.QoS)

	assert.Equal(t, "sentinel/+/device/+/telemetry", cfg.Pipeline.TopicFilter)
	assert.Equal(t, "sentinel:telemetry:stream", cfg.Pipeline.TelemetryStream)
	assert.Equal(t, 30*time.Second, cfg.Pipeline.LivenessInterval)
	assert.Equal(t, time.Minute, cfg.Pipeline.HealthSweepInterval)
	assert.Equal(t, 5, cfg.Pipeline.OfflineThresholdMinutes)
	assert.Equal(t, 10*time.Second, cfg.Pipeline.SimulationInterval)
	assert.Equal(t, 3, cfg.Pipeline.SimulationDeviceLimit)
	assert.Equal(t, 10*time.Second, cfg.Pipeline.ShutdownGrace)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	// 设置环境变量
	os.Setenv("DB_HOST", "test-host")
	os.Setenv("DB_PORT", "15432")
	os.Setenv("DB_NAME", "test-db")
	os.Setenv("REDIS_ADDR", "test-redis:6380")
	os.Setenv("MQTT_BROKER", "tcp://broker:1883")
	os.Setenv("MQTT_CLIENT_ID", "test-client")
	os.Setenv("HEALTH_SWEEP_INTERVAL", "30s")
	os.Setenv("OFFLINE_THRESHOLD_MINUTES", "10")
	os.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	// 验证环境变量覆盖
	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 15432, cfg.Database.Port)
	assert.Equal(t, "test-db", cfg.Database.Database)
	assert.Equal(t, "test-redis:6380", cfg.Redis.Addr)
	assert.Equal(t, "tcp://broker:1883", cfg.MQTT.Broker)
	assert.Equal(t, "test-client", cfg.MQTT.ClientID)
	assert.Equal(t, 30*time.Second, cfg.Pipeline.HealthSweepInterval)
	assert.Equal(t, 10, cfg.Pipeline.OfflineThresholdMinutes)
	assert.Equal(t, "debug", cfg.Log.Level)

	// 清理环境变量
	os.Clearenv()
}

func TestGetDSN(t *testing.T) {
	cfg := &DatabaseConfig{
		Host:     "db",
		Port:     5432,
		User:     "u",
		Password: "p",
		Database: "sentinel",
		SSLMode:  "disable",
	}

	dsn := cfg.GetDSN()
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=sentinel sslmode=disable", dsn)
}

func TestGetEnvDuration_Invalid(t *testing.T) {
	os.Clearenv()
	os.Setenv("TEST_DURATION", "not-a-duration")
	defer os.Clearenv()

	value := getEnvDuration("TEST_DURATION", 5*time.Second)
	assert.Equal(t, 5*time.Second, value)
}
