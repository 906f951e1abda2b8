// Package config loads server settings from an optional YAML file with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvPort   = "PORT"
	EnvConfig = "CERTAPP_CONFIG"
)

type Config struct {
	Port      string        `yaml:"port"`
	LogLevel  string        `yaml:"log_level"`
	OutputDir string        `yaml:"output_dir"`
	Render    RenderConfig  `yaml:"render"`
	Upload    UploadConfig  `yaml:"upload"`
	Session   SessionConfig `yaml:"session"`
}

type RenderConfig struct {
	DefaultMultiplier int `yaml:"default_multiplier"`
	MaxMultiplier     int `yaml:"max_multiplier"`
	// FontPath optionally registers an extra TrueType font under FontFamily.
	FontPath   string `yaml:"font_path"`
	FontFamily string `yaml:"font_family"`
}

type UploadConfig struct {
	MaxBytes int64 `yaml:"max_bytes"`
	MaxNames int   `yaml:"max_names"`
}

type SessionConfig struct {
	TTL           time.Duration `yaml:"ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

func DefaultConfig() Config {
	return Config{
		Port:     "8080",
		LogLevel: "info",
		Render: RenderConfig{
			DefaultMultiplier: 1,
			MaxMultiplier:     4,
		},
		Upload: UploadConfig{
			MaxBytes: 20 << 20,
			MaxNames: 5000,
		},
		Session: SessionConfig{
			TTL:           2 * time.Hour,
			SweepInterval: 5 * time.Minute,
		},
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Port == "" {
		c.Port = d.Port
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.Render.DefaultMultiplier <= 0 {
		c.Render.DefaultMultiplier = d.Render.DefaultMultiplier
	}
	if c.Render.MaxMultiplier <= 0 {
		c.Render.MaxMultiplier = d.Render.MaxMultiplier
	}
	if c.Upload.MaxBytes <= 0 {
		c.Upload.MaxBytes = d.Upload.MaxBytes
	}
	if c.Upload.MaxNames <= 0 {
		c.Upload.MaxNames = d.Upload.MaxNames
	}
	if c.Session.TTL <= 0 {
		c.Session.TTL = d.Session.TTL
	}
	if c.Session.SweepInterval <= 0 {
		c.Session.SweepInterval = d.Session.SweepInterval
	}
	return c
}

func (c Config) Validate() error {
	if c.Render.DefaultMultiplier > c.Render.MaxMultiplier {
		return fmt.Errorf("render.default_multiplier %d exceeds render.max_multiplier %d",
			c.Render.DefaultMultiplier, c.Render.MaxMultiplier)
	}
	if c.Render.FontPath != "" && c.Render.FontFamily == "" {
		return fmt.Errorf("render.font_family is required when render.font_path is set")
	}
	return nil
}

// Load reads path (when non-empty) over the defaults and applies environment
// overrides.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if port := os.Getenv(EnvPort); port != "" {
		cfg.Port = port
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv loads the file named by CERTAPP_CONFIG, if any.
func FromEnv() (Config, error) {
	return Load(os.Getenv(EnvConfig))
}
