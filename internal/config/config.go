package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type AppConfig struct {
	Host     string     `mapstructure:"host"`
	Port     int        `mapstructure:"port"`
	LogLevel string     `mapstructure:"log_level"`
	Game     GameConfig `mapstructure:"game"`
}

// GameConfig carries the rule knobs the room machines read at creation time.
type GameConfig struct {
	// Hard cap on members per room; per-room options may lower it.
	MaxPlayers int `mapstructure:"max_players"`
	// Minimum members required to start a round.
	MinPlayers int `mapstructure:"min_players"`
	// Voting closes automatically after this many seconds.
	VoteTimeoutSecs int `mapstructure:"vote_timeout_secs"`
	// Advisory turn countdown shown to clients; never enforced server-side.
	TurnSecs int `mapstructure:"turn_secs"`
	// "scaled" derives the impostor count from room size,
	// "fixed" uses the room's impostors option as-is (still clamped).
	ImpostorRule string `mapstructure:"impostor_rule"`
	// Default impostor count for rooms created without an explicit option.
	Impostors int `mapstructure:"impostors"`
}

var cfg *AppConfig

func GetConfig() *AppConfig {
	if cfg == nil {
		cfg = InitConfig()
	}

	return cfg
}

func InitConfig() *AppConfig {
	v := viper.New()

	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 3000)
	v.SetDefault("log_level", "info")
	v.SetDefault("game.max_players", 15)
	v.SetDefault("game.min_players", 3)
	v.SetDefault("game.vote_timeout_secs", 180)
	v.SetDefault("game.turn_secs", 40)
	v.SetDefault("game.impostor_rule", "scaled")
	v.SetDefault("game.impostors", 1)

	v.SetConfigFile("app_config.json")
	v.SetConfigType("json")
	v.AddConfigPath(".")

	// The config file is optional, env vars and defaults are enough to boot.
	_ = v.ReadInConfig()

	v.SetEnvPrefix("arcane")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config AppConfig

	if err := v.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("failed to parse config: %w", err))
	}

	return &config
}
