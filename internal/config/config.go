// Package config loads settings for the survey API and aggregation worker.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	commoncfg "eldercare-survey/internal/common/config"
)

// Config survey service settings.
type Config struct {
	HTTP struct {
		Addr string
	}
	DBEnabled bool
	Database  commoncfg.DatabaseConfig
	Redis     commoncfg.RedisConfig
	Log       struct {
		Level  string
		Format string
	}

	Survey struct {
		// TriggerMode "polling" recomputes the latest month on a timer,
		// "events" recomputes the month named by each stream event.
		TriggerMode   string
		EventStream   string
		ConsumerGroup string
		ConsumerName  string
		BatchSize     int
		PollInterval  time.Duration
		SnapshotTTL   time.Duration
	}

	Population struct {
		File   string
		APIURL string
		APIKey string
	}

	MQTT struct {
		commoncfg.MQTTConfig
		Enabled    bool
		AlertTopic string
	}
}

// Load reads the environment, after a local .env file unless
// SURVEY_SKIP_DOTENV=true. A missing .env file is not an error.
func Load() *Config {
	if os.Getenv("SURVEY_SKIP_DOTENV") != "true" {
		_ = godotenv.Load()
	}

	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "eldercare_survey")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "10"), 10)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.Survey.TriggerMode = getEnv("SURVEY_TRIGGER_MODE", "events")
	cfg.Survey.EventStream = getEnv("SURVEY_EVENT_STREAM", "survey:events")
	cfg.Survey.ConsumerGroup = getEnv("SURVEY_CONSUMER_GROUP", "survey-aggregator-group")
	cfg.Survey.ConsumerName = getEnv("SURVEY_CONSUMER_NAME", "survey-aggregator-1")
	cfg.Survey.BatchSize = parseInt(getEnv("SURVEY_BATCH_SIZE", "10"), 10)
	cfg.Survey.PollInterval = time.Duration(parseInt(getEnv("SURVEY_POLL_INTERVAL", "60"), 60)) * time.Second
	cfg.Survey.SnapshotTTL = time.Duration(parseInt(getEnv("SURVEY_SNAPSHOT_TTL", "600"), 600)) * time.Second

	cfg.Population.File = getEnv("POPULATION_FILE", "")
	cfg.Population.APIURL = getEnv("POPULATION_API_URL", "")
	cfg.Population.APIKey = getEnv("POPULATION_API_KEY", "")

	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "eldercare-survey")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = 1
	cfg.MQTT.AlertTopic = getEnv("MQTT_ALERT_TOPIC", "survey/alerts/care-burden")

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseInt falls back to def for unparseable or non-positive values.
func parseInt(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return def
	}
	return v
}
