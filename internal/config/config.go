package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type SecurityConfig struct {
	JWTAccessSecret string
}

// PresenceConfig holds every threshold the presence engine keys on. All of
// them are tunable; the defaults mirror the product behavior.
type PresenceConfig struct {
	// OnlineThreshold bounds how stale last-seen activity may be for a user
	// to still count as online in auto mode.
	OnlineThreshold time.Duration
	// PushActivityThreshold is the tighter recency window used by the push
	// eligibility cascade.
	PushActivityThreshold time.Duration
	// ConnTimeout is how long after the last ping a session still counts as
	// connected.
	ConnTimeout time.Duration
	// HeartbeatInterval is the shared heartbeat ticker period.
	HeartbeatInterval time.Duration
	// ViewportHiddenGrace holds the hidden viewport state steady after a
	// hide so rapid tab flips don't flap push decisions.
	ViewportHiddenGrace time.Duration
	// ViewportPollInterval is the fallback visibility poll period.
	ViewportPollInterval time.Duration
	// SweepInterval drives the stale-session and auto-offline cron sweeps.
	SweepInterval time.Duration
	// AutoOfflineEnabled toggles the background mirror that flips stale
	// persisted flags to offline.
	AutoOfflineEnabled bool
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Security         SecurityConfig
	Presence         PresenceConfig
	AllowCORSOrigins []string
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("PRESENCE")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 10)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("presence.onlinethreshold", "5m")
	v.SetDefault("presence.pushactivitythreshold", "2m")
	v.SetDefault("presence.conntimeout", "30s")
	v.SetDefault("presence.heartbeatinterval", "30s")
	v.SetDefault("presence.viewporthiddengrace", "10s")
	v.SetDefault("presence.viewportpollinterval", "5s")
	v.SetDefault("presence.sweepinterval", "1m")
	v.SetDefault("presence.autoofflineenabled", true)
}
