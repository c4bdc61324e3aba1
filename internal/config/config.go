// Package config loads layered settings for the gammon commands: built-in
// defaults, an optional gammon.yaml (or any format viper reads), then
// GAMMON_* environment variables. Command-line flags are applied last by
// each command.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/yourusername/gammon/pkg/api"
	"github.com/yourusername/gammon/pkg/peer"
	"github.com/yourusername/gammon/pkg/policy"
)

// EnvPrefix prefixes every environment override, e.g. GAMMON_SERVER_PORT.
const EnvPrefix = "GAMMON"

// PeerConfig configures bgpeer.
type PeerConfig struct {
	Host   string `mapstructure:"host"`
	Port   int    `mapstructure:"port"`
	Policy string `mapstructure:"policy"`
}

// SelfPlayConfig configures self-play batches.
type SelfPlayConfig struct {
	Games    int    `mapstructure:"games"`
	Workers  int    `mapstructure:"workers"`
	Seed     int64  `mapstructure:"seed"`
	MaxTurns int    `mapstructure:"max_turns"`
	X        string `mapstructure:"x"`
	O        string `mapstructure:"o"`
}

// Options converts c to self-play options.
func (c SelfPlayConfig) Options() policy.SelfPlayOptions {
	return policy.SelfPlayOptions{
		Games:    c.Games,
		Workers:  c.Workers,
		Seed:     c.Seed,
		MaxTurns: c.MaxTurns,
		X:        c.X,
		O:        c.O,
	}
}

// Config is the complete configuration.
type Config struct {
	LogLevel string           `mapstructure:"log_level"`
	Server   api.ServerConfig `mapstructure:"server"`
	Peer     PeerConfig       `mapstructure:"peer"`
	SelfPlay SelfPlayConfig   `mapstructure:"selfplay"`
}

// setDefaults registers every key so environment overrides apply even when
// no config file exists.
func setDefaults(v *viper.Viper) {
	srv := api.DefaultConfig()
	sp := policy.DefaultSelfPlayOptions()

	v.SetDefault("log_level", "info")

	v.SetDefault("server.host", srv.Host)
	v.SetDefault("server.port", srv.Port)
	v.SetDefault("server.read_timeout", srv.ReadTimeout)
	v.SetDefault("server.write_timeout", srv.WriteTimeout)
	v.SetDefault("server.idle_timeout", srv.IdleTimeout)
	v.SetDefault("server.max_fast_workers", srv.MaxFastWorkers)
	v.SetDefault("server.max_slow_workers", srv.MaxSlowWorkers)
	v.SetDefault("server.max_games", srv.MaxGames)

	v.SetDefault("peer.host", "localhost")
	v.SetDefault("peer.port", peer.DefaultPort)
	v.SetDefault("peer.policy", "heuristic")

	v.SetDefault("selfplay.games", sp.Games)
	v.SetDefault("selfplay.workers", sp.Workers)
	v.SetDefault("selfplay.seed", sp.Seed)
	v.SetDefault("selfplay.max_turns", sp.MaxTurns)
	v.SetDefault("selfplay.x", sp.X)
	v.SetDefault("selfplay.o", sp.O)
}

// New returns a viper instance with defaults and environment bindings.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the configuration. path names a config file; when empty,
// gammon.* is looked up in the working directory and $HOME/.config/gammon,
// and a missing file is not an error.
func Load(path string) (*Config, error) {
	v := New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("gammon")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/gammon")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	return Decode(v)
}

// Decode unmarshals v into a Config and checks it.
func Decode(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks ranges and names.
func (c *Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Peer.Port <= 0 || c.Peer.Port > 65535 {
		return fmt.Errorf("peer.port %d out of range", c.Peer.Port)
	}
	for key, name := range map[string]string{
		"peer.policy": c.Peer.Policy,
		"selfplay.x":  c.SelfPlay.X,
		"selfplay.o":  c.SelfPlay.O,
	} {
		if _, err := policy.ByName(name, 0); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	if c.Server.ReadTimeout < 0 || c.Server.IdleTimeout < 0 || c.Server.WriteTimeout < 0 {
		return errors.New("server timeouts must not be negative")
	}
	return nil
}

// ApplyLogLevel sets the global zerolog level from c.
func (c *Config) ApplyLogLevel() {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// PeerAddr is the host:port of the peer settings.
func (c *Config) PeerAddr() string {
	return fmt.Sprintf("%s:%d", c.Peer.Host, c.Peer.Port)
}
