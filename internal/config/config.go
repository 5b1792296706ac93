// Package config handles viewer configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/Faultbox/midgard-city/internal/engine/model"
)

// Transport values for ServerConfig.Transport.
const (
	TransportPoll   = "poll"
	TransportStream = "stream"
)

// Config holds all viewer settings.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Map       MapConfig       `yaml:"map"`
	Assets    AssetsConfig    `yaml:"assets"`
	Animation AnimationConfig `yaml:"animation"`
	Viewer    ViewerConfig    `yaml:"viewer"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds simulation server settings.
type ServerConfig struct {
	URL          string        `yaml:"url"`
	Transport    string        `yaml:"transport"` // "poll" or "stream"
	PollInterval time.Duration `yaml:"poll_interval"`
	HTTPTimeout  time.Duration `yaml:"http_timeout"`
	Agents       int           `yaml:"agents"` // NAgents sent on init
}

// MapConfig holds the city map location.
type MapConfig struct {
	Path string `yaml:"path"`
}

// AssetsConfig holds mesh asset settings.
type AssetsConfig struct {
	Root        string `yaml:"root"`    // directory or http(s) URL
	Normals     string `yaml:"normals"` // "zero" or "require"
	Concurrency int    `yaml:"concurrency"`
	Seed        uint64 `yaml:"seed"` // 0 picks a random seed
}

// AnimationConfig holds agent interpolation settings.
type AnimationConfig struct {
	Interpolation time.Duration `yaml:"interpolation"`
}

// ViewerConfig holds terminal viewer settings.
type ViewerConfig struct {
	FrameInterval time.Duration `yaml:"frame_interval"`
	ShowHelp      bool          `yaml:"show_help"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			URL:          "http://localhost:8585/",
			Transport:    TransportPoll,
			PollInterval: time.Second,
			HTTPTimeout:  5 * time.Second,
			Agents:       10,
		},
		Map: MapConfig{
			Path: "map.txt",
		},
		Assets: AssetsConfig{
			Root:        "obj",
			Normals:     "zero",
			Concurrency: 8,
		},
		Animation: AnimationConfig{
			Interpolation: time.Second,
		},
		Viewer: ViewerConfig{
			FrameInterval: 33 * time.Millisecond,
			ShowHelp:      true,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// NormalsPolicy returns the parsed assets.normals value.
func (c *Config) NormalsPolicy() (model.NormalsPolicy, error) {
	return model.ParseNormalsPolicy(c.Assets.Normals)
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.URL == "" {
		errs = append(errs, errors.New("server.url is empty"))
	}
	if c.Server.Transport != TransportPoll && c.Server.Transport != TransportStream {
		errs = append(errs, fmt.Errorf("server.transport %q: want %s or %s", c.Server.Transport, TransportPoll, TransportStream))
	}
	if c.Server.PollInterval <= 0 {
		errs = append(errs, errors.New("server.poll_interval must be positive"))
	}
	if c.Animation.Interpolation < 0 {
		errs = append(errs, errors.New("animation.interpolation must not be negative"))
	}
	if c.Viewer.FrameInterval <= 0 {
		errs = append(errs, errors.New("viewer.frame_interval must be positive"))
	}
	if c.Assets.Concurrency < 1 {
		errs = append(errs, errors.New("assets.concurrency must be at least 1"))
	}
	if _, err := c.NormalsPolicy(); err != nil {
		errs = append(errs, fmt.Errorf("assets.normals: %w", err))
	}
	return errors.Join(errs...)
}
