package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/arlebowski/Tiny-Time-sub002/common/config"
	"github.com/arlebowski/Tiny-Time-sub002/internal/controller"
	"github.com/arlebowski/Tiny-Time-sub002/internal/proposer"
	"github.com/arlebowski/Tiny-Time-sub002/internal/schedule"
)

// Config is the schedule service configuration.
type Config struct {
	Database config.DatabaseConfig
	Redis    config.RedisConfig
	MQTT     config.MQTTConfig

	// ProfileID pins the baby profile. Empty means the most recently
	// updated active profile.
	ProfileID string
	// Migrate applies the table DDL at startup.
	Migrate bool
	// Location is the family's zone. Days, patterns and midnight are
	// computed in it regardless of the process or database zone.
	Location *time.Location

	Schedule struct {
		InstallationID string
		KeyPrefix      string
		TTL            time.Duration
		Engine         schedule.Settings
	}

	Controller controller.Settings

	Triggers struct {
		Stream struct {
			Enabled  bool
			Name     string
			Group    string
			Consumer string
			Batch    int64
		}
		MQTT struct {
			Enabled      bool
			InputTopic   string
			FocusTopic   string
			VisibleTopic string
		}
	}

	AI struct {
		Enabled       bool
		Provider      string
		Model         string
		APIKey        string
		OllamaHost    string
		Cooldown      time.Duration
		QuotaCooldown time.Duration
	}

	Notify struct {
		Channel        string
		MQTTTopic      string
		WebhookURL     string
		WebhookTimeout time.Duration
	}

	HTTP struct {
		Addr string
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = 5432
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "tinytime")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.LoadFromEnv("DB")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.LoadFromEnv("REDIS")

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "tinytime-schedule")
	cfg.MQTT.LoadFromEnv("MQTT")

	cfg.ProfileID = getEnv("PROFILE_ID", "")
	cfg.Migrate = getEnvBool("DB_MIGRATE", false)

	loc, err := time.LoadLocation(getEnv("TIMEZONE", "Local"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	cfg.Location = loc

	cfg.Schedule.InstallationID = getEnv("INSTALLATION_ID", "default")
	cfg.Schedule.KeyPrefix = getEnv("SCHEDULE_KEY_PREFIX", "tt")
	cfg.Schedule.TTL = getEnvDuration("SCHEDULE_TTL", 48*time.Hour)

	engine := schedule.DefaultSettings()
	engine.LookbackDays = getEnvInt("SCHEDULE_LOOKBACK_DAYS", engine.LookbackDays)
	engine.MinPatternCount = getEnvInt("SCHEDULE_MIN_PATTERN_COUNT", engine.MinPatternCount)
	engine.DefaultFeedIntervalHours = getEnvFloat("SCHEDULE_DEFAULT_INTERVAL_HOURS", engine.DefaultFeedIntervalHours)
	engine.MatchWindowMinutes = getEnvInt("SCHEDULE_MATCH_WINDOW_MINUTES", engine.MatchWindowMinutes)
	engine.NewbornMonths = getEnvFloat("SCHEDULE_NEWBORN_MONTHS", engine.NewbornMonths)
	cfg.Schedule.Engine = engine

	ctl := controller.DefaultSettings()
	ctl.Debounce = getEnvDuration("REBUILD_DEBOUNCE", ctl.Debounce)
	ctl.MinInterval = getEnvDuration("REBUILD_MIN_INTERVAL", ctl.MinInterval)
	ctl.Retry = getEnvDuration("REBUILD_RETRY", ctl.Retry)
	ctl.HistoryDays = getEnvInt("REBUILD_HISTORY_DAYS", ctl.HistoryDays)
	cfg.Controller = ctl

	cfg.Triggers.Stream.Enabled = getEnvBool("TRIGGER_STREAM_ENABLED", true)
	cfg.Triggers.Stream.Name = getEnv("TRIGGER_STREAM", "tt:triggers")
	cfg.Triggers.Stream.Group = getEnv("TRIGGER_CONSUMER_GROUP", "tinytime-schedule-group")
	cfg.Triggers.Stream.Consumer = getEnv("TRIGGER_CONSUMER_NAME", "tinytime-schedule-1")
	cfg.Triggers.Stream.Batch = int64(getEnvInt("TRIGGER_BATCH_SIZE", 10))

	cfg.Triggers.MQTT.Enabled = getEnvBool("TRIGGER_MQTT_ENABLED", false)
	cfg.Triggers.MQTT.InputTopic = getEnv("TRIGGER_MQTT_INPUT_TOPIC", "tinytime/input")
	cfg.Triggers.MQTT.FocusTopic = getEnv("TRIGGER_MQTT_FOCUS_TOPIC", "tinytime/focus")
	cfg.Triggers.MQTT.VisibleTopic = getEnv("TRIGGER_MQTT_VISIBLE_TOPIC", "tinytime/visible")

	ai := proposer.DefaultOptions()
	cfg.AI.Enabled = getEnvBool("AI_ENABLED", false)
	cfg.AI.Provider = strings.ToLower(getEnv("LLM_PROVIDER", proposer.ProviderOpenAI))
	cfg.AI.Model = getEnv("LLM_MODEL", "")
	cfg.AI.APIKey = getEnv("LLM_API_KEY", "")
	cfg.AI.OllamaHost = getEnv("OLLAMA_HOST", "http://localhost:11434")
	cfg.AI.Cooldown = getEnvDuration("AI_COOLDOWN", ai.Cooldown)
	cfg.AI.QuotaCooldown = getEnvDuration("AI_QUOTA_COOLDOWN", ai.QuotaCooldown)

	cfg.Notify.Channel = getEnv("NOTIFY_CHANNEL", "tt:schedule:updated")
	cfg.Notify.MQTTTopic = getEnv("NOTIFY_MQTT_TOPIC", "tinytime/schedule")
	cfg.Notify.WebhookURL = getEnv("NOTIFY_WEBHOOK_URL", "")
	cfg.Notify.WebhookTimeout = getEnvDuration("NOTIFY_WEBHOOK_TIMEOUT", 5*time.Second)

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	if c.Schedule.InstallationID == "" {
		return fmt.Errorf("INSTALLATION_ID must not be empty")
	}
	if c.Schedule.TTL <= 0 {
		return fmt.Errorf("SCHEDULE_TTL must be positive, got %s", c.Schedule.TTL)
	}
	if c.Controller.HistoryDays < 1 {
		return fmt.Errorf("REBUILD_HISTORY_DAYS must be at least 1, got %d", c.Controller.HistoryDays)
	}
	if c.Schedule.Engine.LookbackDays < 1 {
		return fmt.Errorf("SCHEDULE_LOOKBACK_DAYS must be at least 1, got %d", c.Schedule.Engine.LookbackDays)
	}
	if c.Schedule.Engine.DefaultFeedIntervalHours <= 0 {
		return fmt.Errorf("SCHEDULE_DEFAULT_INTERVAL_HOURS must be positive, got %g", c.Schedule.Engine.DefaultFeedIntervalHours)
	}
	if c.Schedule.Engine.MinPatternCount < 1 {
		return fmt.Errorf("SCHEDULE_MIN_PATTERN_COUNT must be at least 1, got %d", c.Schedule.Engine.MinPatternCount)
	}
	if c.Schedule.Engine.MatchWindowMinutes < 0 {
		return fmt.Errorf("SCHEDULE_MATCH_WINDOW_MINUTES must not be negative, got %d", c.Schedule.Engine.MatchWindowMinutes)
	}
	if c.AI.Enabled {
		switch c.AI.Provider {
		case proposer.ProviderOpenAI, proposer.ProviderAnthropic:
			if c.AI.APIKey == "" {
				return fmt.Errorf("LLM_API_KEY required for provider %s", c.AI.Provider)
			}
		case proposer.ProviderOllama:
		default:
			return fmt.Errorf("unsupported LLM provider: %s", c.AI.Provider)
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}
