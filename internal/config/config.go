// Package config handles loading and validating the vocero configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config is the root configuration for the vocero daemon.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Carrier      CarrierConfig      `mapstructure:"carrier"`
	Speech       SpeechConfig       `mapstructure:"speech"`
	Agent        AgentConfig        `mapstructure:"agent"`
	Scheduler    SchedulerConfig    `mapstructure:"scheduler"`
	Ledger       LedgerConfig       `mapstructure:"ledger"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
	CallStore    CallStoreConfig    `mapstructure:"call_store"`
	AudioCache   AudioCacheConfig   `mapstructure:"audio_cache"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig holds the HTTP and health server settings. BaseURL is the
// public URL the carrier reaches this service at; webhook and audio URLs
// are built from it.
type ServerConfig struct {
	Port       int    `mapstructure:"port"`
	HealthPort int    `mapstructure:"health_port"`
	BaseURL    string `mapstructure:"base_url"`
}

// CarrierConfig selects and configures the telephony carrier backend.
type CarrierConfig struct {
	Backend string       `mapstructure:"backend"` // "twilio"
	Twilio  TwilioConfig `mapstructure:"twilio"`
}

// TwilioConfig holds Twilio API settings.
type TwilioConfig struct {
	AccountSID string `mapstructure:"account_sid"`
	AuthToken  string `mapstructure:"auth_token"`
	FromNumber string `mapstructure:"from_number"`
}

// SpeechConfig selects the default synthesizer backend and holds the
// audio-token settings shared by all backends.
type SpeechConfig struct {
	Backend         string           `mapstructure:"backend"` // "azure" or "elevenlabs"
	TokenSecret     string           `mapstructure:"token_secret"`
	TokenTTLSeconds int              `mapstructure:"token_ttl_seconds"`
	Azure           AzureConfig      `mapstructure:"azure"`
	ElevenLabs      ElevenLabsConfig `mapstructure:"elevenlabs"`
}

// AzureConfig holds Azure Cognitive Services TTS settings.
type AzureConfig struct {
	SubscriptionKey string `mapstructure:"subscription_key"`
	Region          string `mapstructure:"region"`
	Voice           string `mapstructure:"voice"`
}

// ElevenLabsConfig holds ElevenLabs TTS settings.
type ElevenLabsConfig struct {
	APIKey  string `mapstructure:"api_key"`
	VoiceID string `mapstructure:"voice_id"`
	ModelID string `mapstructure:"model_id"`
}

// AgentConfig holds the conversational agent settings.
type AgentConfig struct {
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	Greeting       string `mapstructure:"greeting"`
	MaxToolRounds  int    `mapstructure:"max_tool_rounds"`
}

// SchedulerConfig selects and configures the calendar backend.
type SchedulerConfig struct {
	Backend   string          `mapstructure:"backend"` // "hours" or "googlecal"
	Hours     HoursConfig     `mapstructure:"hours"`
	GoogleCal GoogleCalConfig `mapstructure:"googlecal"`
}

// HoursConfig holds the working-hours slot generator settings.
type HoursConfig struct {
	OpenHour    int      `mapstructure:"open_hour"`
	CloseHour   int      `mapstructure:"close_hour"`
	CloseMinute int      `mapstructure:"close_minute"`
	SlotMinutes int      `mapstructure:"slot_minutes"`
	Doctors     []string `mapstructure:"doctors"`
	Timezone    string   `mapstructure:"timezone"`
}

// GoogleCalConfig holds Google Calendar API settings.
type GoogleCalConfig struct {
	CalendarID string `mapstructure:"calendar_id"`
	Token      string `mapstructure:"token"`
	Endpoint   string `mapstructure:"endpoint"`
}

// LedgerConfig selects and configures the appointment ledger backend.
type LedgerConfig struct {
	Backend  string         `mapstructure:"backend"` // memory, redis, supabase, disabled
	Redis    RedisConfig    `mapstructure:"redis"`
	Supabase SupabaseConfig `mapstructure:"supabase"`
}

// RedisConfig holds Redis ledger settings.
type RedisConfig struct {
	Addr       string `mapstructure:"addr"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	KeyPrefix  string `mapstructure:"key_prefix"`
	TTLSeconds int    `mapstructure:"ttl_seconds"` // 0 keeps records forever
}

// SupabaseConfig holds Supabase ledger settings.
type SupabaseConfig struct {
	URL    string `mapstructure:"url"`
	APIKey string `mapstructure:"api_key"`
	Table  string `mapstructure:"table"`
}

// OrchestratorConfig holds turn-handling knobs.
type OrchestratorConfig struct {
	MaxSilentTurns int `mapstructure:"max_silent_turns"`
}

// CallStoreConfig bounds per-call state retention.
type CallStoreConfig struct {
	MaxAgeMinutes int `mapstructure:"max_age_minutes"`
}

// AudioCacheConfig bounds synthesized artifact retention.
type AudioCacheConfig struct {
	MaxAgeMinutes int `mapstructure:"max_age_minutes"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// Load reads the configuration from file, environment variables, and defaults.
// If configFile is non-empty it is used directly; otherwise the standard
// search order applies: ./vocero.yaml, ./configs/vocero.yaml, /etc/vocero/vocero.yaml.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("server.base_url", "")
	v.SetDefault("carrier.backend", "twilio")
	v.SetDefault("speech.backend", "azure")
	v.SetDefault("speech.token_ttl_seconds", 300)
	v.SetDefault("speech.azure.voice", "es-CO-SalomeNeural")
	v.SetDefault("speech.elevenlabs.model_id", "eleven_multilingual_v2")
	v.SetDefault("agent.model", "gpt-4o-mini")
	v.SetDefault("agent.timeout_seconds", 20)
	v.SetDefault("agent.greeting", "")
	v.SetDefault("agent.max_tool_rounds", 3)
	v.SetDefault("scheduler.backend", "hours")
	v.SetDefault("scheduler.hours.open_hour", 9)
	v.SetDefault("scheduler.hours.close_hour", 16)
	v.SetDefault("scheduler.hours.close_minute", 30)
	v.SetDefault("scheduler.hours.slot_minutes", 30)
	v.SetDefault("scheduler.hours.timezone", "America/Bogota")
	v.SetDefault("ledger.backend", "memory")
	v.SetDefault("ledger.redis.addr", "localhost:6379")
	v.SetDefault("ledger.redis.key_prefix", "vocero:appointment:")
	v.SetDefault("ledger.redis.ttl_seconds", 0)
	v.SetDefault("ledger.supabase.table", "appointments")
	v.SetDefault("orchestrator.max_silent_turns", 3)
	v.SetDefault("call_store.max_age_minutes", 60)
	v.SetDefault("audio_cache.max_age_minutes", 10)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("vocero")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/vocero")
	}

	// Environment variables: VOCERO_SERVER_PORT, VOCERO_AGENT_API_KEY, etc.
	v.SetEnvPrefix("VOCERO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional; env vars and defaults are sufficient)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Info("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Resolve env var references in sensitive fields (e.g., "${OPENAI_API_KEY}")
	cfg.Carrier.Twilio.AccountSID = resolveEnvRef(cfg.Carrier.Twilio.AccountSID)
	cfg.Carrier.Twilio.AuthToken = resolveEnvRef(cfg.Carrier.Twilio.AuthToken)
	cfg.Speech.TokenSecret = resolveEnvRef(cfg.Speech.TokenSecret)
	cfg.Speech.Azure.SubscriptionKey = resolveEnvRef(cfg.Speech.Azure.SubscriptionKey)
	cfg.Speech.ElevenLabs.APIKey = resolveEnvRef(cfg.Speech.ElevenLabs.APIKey)
	cfg.Agent.APIKey = resolveEnvRef(cfg.Agent.APIKey)
	cfg.Scheduler.GoogleCal.Token = resolveEnvRef(cfg.Scheduler.GoogleCal.Token)
	cfg.Ledger.Redis.Password = resolveEnvRef(cfg.Ledger.Redis.Password)
	cfg.Ledger.Supabase.APIKey = resolveEnvRef(cfg.Ledger.Supabase.APIKey)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Carrier.Backend {
	case "twilio":
	default:
		return fmt.Errorf("unknown carrier backend %q", c.Carrier.Backend)
	}
	switch c.Speech.Backend {
	case "azure", "elevenlabs":
	default:
		return fmt.Errorf("unknown speech backend %q", c.Speech.Backend)
	}
	switch c.Scheduler.Backend {
	case "hours", "googlecal":
	default:
		return fmt.Errorf("unknown scheduler backend %q", c.Scheduler.Backend)
	}
	switch c.Ledger.Backend {
	case "memory", "redis", "supabase", "disabled":
	default:
		return fmt.Errorf("unknown ledger backend %q", c.Ledger.Backend)
	}
	return nil
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		envKey := val[2 : len(val)-1]
		if envVal := os.Getenv(envKey); envVal != "" {
			return envVal
		}
	}
	return val
}

// SetupLogging configures the global slog logger based on config.
func SetupLogging(cfg LoggingConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
