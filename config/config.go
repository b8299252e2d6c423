// Package config provides configuration management for framesync using Viper.
// It supports configuration from files, environment variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultWidth           = 640
	defaultHeight          = 360
	defaultBufferSize      = 10
	defaultAudioSamples    = 512
	defaultUnderrunBackoff = 10 * time.Millisecond
	defaultMaxPullFailures = 25
)

// Config is the full application configuration.
type Config struct {
	Player  PlayerConfig  `mapstructure:"player"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// PlayerConfig configures the playback pipeline.
type PlayerConfig struct {
	Width     int  `mapstructure:"width"`
	Height    int  `mapstructure:"height"`
	HFill     bool `mapstructure:"hfill"`
	VFill     bool `mapstructure:"vfill"`
	KeepRatio bool `mapstructure:"keep_ratio"`
	Overlay   bool `mapstructure:"overlay"`
	NoAudio   bool `mapstructure:"no_audio"`

	AudioBufferSize int           `mapstructure:"audio_buffer_size"`
	VideoBufferSize int           `mapstructure:"video_buffer_size"`
	AudioSamples    int           `mapstructure:"audio_samples"`
	UnderrunBackoff time.Duration `mapstructure:"underrun_backoff"`
	MaxPullFailures int           `mapstructure:"max_pull_failures"`
}

// LoggingConfig configures the slog logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// File receives log output; empty discards it while the TUI owns the screen
	File string `mapstructure:"file"`
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
// Environment variables are prefixed with FRAMESYNC_ and use underscores for nesting.
// Example: FRAMESYNC_PLAYER_KEEP_RATIO=true.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	return LoadWith(v, configPath)
}

// LoadWith is Load on a caller-supplied viper instance, so flags bound to v
// take precedence over the file.
func LoadWith(v *viper.Viper, configPath string) (*Config, error) {
	SetDefaults(v)

	// Config file settings
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(".framesync")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}

	// Environment variable settings
	v.SetEnvPrefix("FRAMESYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values for all configuration options.
func SetDefaults(v *viper.Viper) {
	// Player defaults
	v.SetDefault("player.width", defaultWidth)
	v.SetDefault("player.height", defaultHeight)
	v.SetDefault("player.hfill", true)
	v.SetDefault("player.vfill", true)
	v.SetDefault("player.keep_ratio", true)
	v.SetDefault("player.overlay", false)
	v.SetDefault("player.no_audio", false)
	v.SetDefault("player.audio_buffer_size", defaultBufferSize)
	v.SetDefault("player.video_buffer_size", defaultBufferSize)
	v.SetDefault("player.audio_samples", defaultAudioSamples)
	v.SetDefault("player.underrun_backoff", defaultUnderrunBackoff)
	v.SetDefault("player.max_pull_failures", defaultMaxPullFailures)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "")
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Player.Width < 1 || c.Player.Height < 1 {
		return errors.New("player.width and player.height must be positive")
	}
	if c.Player.AudioBufferSize < 1 {
		return errors.New("player.audio_buffer_size must be at least 1")
	}
	if c.Player.VideoBufferSize < 1 {
		return errors.New("player.video_buffer_size must be at least 1")
	}
	if c.Player.AudioSamples < 1 {
		return errors.New("player.audio_samples must be at least 1")
	}
	if c.Player.UnderrunBackoff <= 0 {
		return errors.New("player.underrun_backoff must be positive")
	}
	if c.Player.MaxPullFailures < 1 {
		return errors.New("player.max_pull_failures must be at least 1")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
