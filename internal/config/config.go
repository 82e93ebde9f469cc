// Package config loads daemon and CLI settings from a YAML file with
// LXFU_* environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Device         string  `yaml:"device"`          // V4L2 device path
	ModelPath      string  `yaml:"model_path"`      // ONNX embedding model
	CascadePath    string  `yaml:"cascade_path"`    // pigo face cascade
	DBPath         string  `yaml:"db_path"`         // profile store directory
	MatchThreshold float64 `yaml:"match_threshold"` // remapped similarity in [0,1]
	HTTPAddr       string  `yaml:"http_addr"`       // introspection server listen address

	// Verification timing, in seconds.
	ServiceWarmupDelay     float64 `yaml:"service_warmup_delay"`
	ServiceCaptureDuration float64 `yaml:"service_capture_duration"`
	ServiceFrameInterval   float64 `yaml:"service_frame_interval"`
}

// Default returns the built-in configuration.
func Default() *Config {
	db := ".lxfu"
	if home, err := os.UserHomeDir(); err == nil {
		db = filepath.Join(home, ".lxfu")
	}
	return &Config{
		Device:                 "/dev/video0",
		ModelPath:              "/usr/share/lxfu/dinov2.onnx",
		CascadePath:            "/usr/share/lxfu/facefinder",
		DBPath:                 db,
		MatchThreshold:         0.90,
		HTTPAddr:               "127.0.0.1:8080",
		ServiceWarmupDelay:     1.0,
		ServiceCaptureDuration: 2.0,
		ServiceFrameInterval:   0.1,
	}
}

// searchPaths lists config file locations in precedence order.
func searchPaths() []string {
	paths := []string{"/etc/lxfu/lxfu.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "lxfu", "lxfu.yaml"))
	}
	return append(paths, "lxfu.yaml")
}

// Load builds the configuration from defaults, an optional YAML file and
// environment overrides. When path is empty the standard locations are
// searched and a missing file is not an error; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	} else {
		for _, p := range searchPaths() {
			if _, err := os.Stat(p); err != nil {
				continue
			}
			if err := cfg.loadFile(p); err != nil {
				return nil, err
			}
			break
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Device = envString("LXFU_DEVICE", c.Device)
	c.ModelPath = envString("LXFU_MODEL_PATH", c.ModelPath)
	c.CascadePath = envString("LXFU_CASCADE_PATH", c.CascadePath)
	c.DBPath = envString("LXFU_DB_PATH", c.DBPath)
	c.HTTPAddr = envString("LXFU_HTTP_ADDR", c.HTTPAddr)
	c.MatchThreshold = envFloat("LXFU_MATCH_THRESHOLD", c.MatchThreshold)
	c.ServiceWarmupDelay = envFloat("LXFU_WARMUP_DELAY", c.ServiceWarmupDelay)
	c.ServiceCaptureDuration = envFloat("LXFU_CAPTURE_DURATION", c.ServiceCaptureDuration)
	c.ServiceFrameInterval = envFloat("LXFU_FRAME_INTERVAL", c.ServiceFrameInterval)
}

// WarmupDelay returns the camera warmup delay as a duration.
func (c *Config) WarmupDelay() time.Duration {
	return secondsToDuration(c.ServiceWarmupDelay)
}

// CaptureDuration returns the verification capture window as a duration.
func (c *Config) CaptureDuration() time.Duration {
	return secondsToDuration(c.ServiceCaptureDuration)
}

// FrameInterval returns the delay between sampled frames as a duration.
func (c *Config) FrameInterval() time.Duration {
	return secondsToDuration(c.ServiceFrameInterval)
}

func secondsToDuration(s float64) time.Duration {
	if s <= 0 {
		return 0
	}
	return time.Duration(s * float64(time.Second))
}

// envString reads an environment variable, falling back to the default
// when unset or empty.
func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a non-negative
// float. Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 {
		return f
	}
	return defaultVal
}
