package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/hatsuboshi/lesson-engine/internal/engine"
)

// ServerConfig holds the websocket server settings.
type ServerConfig struct {
	Address     string `mapstructure:"address"`
	MaxSessions int    `mapstructure:"max_sessions"`
}

// LoggingConfig holds the zap logger settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SessionConfig is the default battle setup applied when a client does not
// supply its own.
type SessionConfig struct {
	InitialGenki   int                `mapstructure:"initial_genki"`
	MaxGenki       int                `mapstructure:"max_genki"`
	InitialStamina int                `mapstructure:"initial_stamina"`
	MaxStamina     int                `mapstructure:"max_stamina"`
	MaxTurns       int                `mapstructure:"max_turns"`
	HandSize       int                `mapstructure:"hand_size"`
	PlayLimit      int                `mapstructure:"play_limit"`
	Deck           []engine.DeckEntry `mapstructure:"deck"`
}

// Config is the full application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	CardSet string        `mapstructure:"card_set"`
	Session SessionConfig `mapstructure:"session"`
}

// Engine converts the default session setup into an engine config.
func (s SessionConfig) Engine(seed int64) engine.Config {
	return engine.Config{
		InitialGenki:   s.InitialGenki,
		MaxGenki:       s.MaxGenki,
		InitialStamina: s.InitialStamina,
		MaxStamina:     s.MaxStamina,
		MaxTurns:       s.MaxTurns,
		HandSize:       s.HandSize,
		PlayLimit:      s.PlayLimit,
		Seed:           seed,
		Deck:           s.Deck,
	}
}

// Load reads configuration from the given yaml file, with LESSON_-prefixed
// environment variables overriding file values.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.max_sessions", 256)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("card_set", "data/cards.yaml")
	v.SetDefault("session.max_turns", 8)
	v.SetDefault("session.hand_size", 3)
	v.SetDefault("session.play_limit", 1)
	v.SetDefault("session.max_genki", 50)
	v.SetDefault("session.max_stamina", 30)
	v.SetDefault("session.initial_stamina", 30)

	v.SetEnvPrefix("LESSON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}
