// Package config loads coordinator and client settings. All keys have
// defaults so a missing config file is not an error.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Coordinator CoordinatorConfig `mapstructure:"coordinator"`
	Client      ClientConfig      `mapstructure:"client"`
}

type CoordinatorConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
	HTTPAddr   string `mapstructure:"http_addr"`
	// PublicURL is the base used when building room share links.
	PublicURL string `mapstructure:"public_url"`

	RoomSweepInterval      time.Duration `mapstructure:"room_sweep_interval"`
	ChallengeSweepInterval time.Duration `mapstructure:"challenge_sweep_interval"`
	ChallengeTimeout       time.Duration `mapstructure:"challenge_timeout"`
}

type ClientConfig struct {
	CoordinatorAddr string `mapstructure:"coordinator_addr"`
	DBPath          string `mapstructure:"db_path"`

	// Transfer scheduler knobs.
	GateLimit       int           `mapstructure:"gate_limit"`
	JumpThreshold   int           `mapstructure:"jump_threshold"`
	TransferTimeout time.Duration `mapstructure:"transfer_timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("coordinator.listen_addr", ":9350")
	v.SetDefault("coordinator.http_addr", ":9351")
	v.SetDefault("coordinator.public_url", "http://localhost:9351")
	v.SetDefault("coordinator.room_sweep_interval", 5*time.Minute)
	v.SetDefault("coordinator.challenge_sweep_interval", time.Minute)
	v.SetDefault("coordinator.challenge_timeout", 5*time.Minute)

	v.SetDefault("client.coordinator_addr", "localhost:9350")
	v.SetDefault("client.db_path", "peer-drop.sqlite3")
	v.SetDefault("client.gate_limit", 3)
	v.SetDefault("client.jump_threshold", 10)
	v.SetDefault("client.transfer_timeout", 2*time.Minute)
}

// Load reads config.yaml from the given directory, falling back to
// defaults when the file is absent.
func Load(dir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return &cfg, nil
}

func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(err)
	}
	return &cfg
}
