package config

import (
	"fmt"
	"os"
	"time"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig MQTT配置
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	QoS      byte
}

// Config 遥测接入与告警服务配置
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	MQTT     MQTTConfig

	// 管道特定配置
	Pipeline struct {
		TopicFilter             string        // 遥测订阅过滤器，如 "sentinel/+/device/+/telemetry"
		TelemetryStream         string        // Redis Streams 输出流，如 "sentinel:telemetry:stream"
		LivenessInterval        time.Duration // 订阅状态下的连接存活检查间隔
		HealthSweepInterval     time.Duration // 设备健康巡检间隔
		OfflineThresholdMinutes int           // 超过该分钟数未上报则判定离线
		SimulationInterval      time.Duration // 模拟模式生成间隔
		SimulationDeviceLimit   int           // 模拟模式每轮处理的设备数
		ShutdownGrace           time.Duration // 关闭时等待在途消息处理的宽限时间
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	// 从环境变量加载（默认值）
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "sentinel")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 10)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "sentinel-pipeline")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = 1

	// 管道配置
	cfg.Pipeline.TopicFilter = getEnv("TELEMETRY_TOPIC_FILTER", "sentinel/+/device/+/telemetry")
	cfg.Pipeline.TelemetryStream = getEnv("TELEMETRY_STREAM", "sentinel:telemetry:stream")
	cfg.Pipeline.LivenessInterval = getEnvDuration("MQTT_LIVENESS_INTERVAL", 30*time.Second)
	cfg.Pipeline.HealthSweepInterval = getEnvDuration("HEALTH_SWEEP_INTERVAL", time.Minute)
	cfg.Pipeline.OfflineThresholdMinutes = getEnvInt("OFFLINE_THRESHOLD_MINUTES", 5)
	cfg.Pipeline.SimulationInterval = getEnvDuration("SIMULATION_INTERVAL", 10*time.Second)
	cfg.Pipeline.SimulationDeviceLimit = getEnvInt("SIMULATION_DEVICE_LIMIT", 3)
	cfg.Pipeline.ShutdownGrace = getEnvDuration("SHUTDOWN_GRACE", 10*time.Second)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var parsed int
		if _, err := fmt.Sscanf(value, "%d", &parsed); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
