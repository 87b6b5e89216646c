package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type PoolConfig struct {
	// Size is the number of frames.
	Size int `yaml:"size"`
	// Replacer is "clock" or "lru".
	Replacer string `yaml:"replacer"`
}

type DiskConfig struct {
	// Path of the database file. Empty keeps pages in memory.
	Path     string `yaml:"path"`
	DirectIO bool   `yaml:"direct_io"`
	// MaxPages caps the number of allocated pages, 0 means unbounded.
	MaxPages int `yaml:"max_pages"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// Output is "stdout", "stderr" or a file path.
	Output string `yaml:"output"`
}

type FlusherConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Interval       time.Duration `yaml:"interval"`
	PagesPerSecond int           `yaml:"pages_per_second"`
}

type InspectorConfig struct {
	Addr string `yaml:"addr"`
}

type Config struct {
	Pool      PoolConfig      `yaml:"pool"`
	Disk      DiskConfig      `yaml:"disk"`
	Log       LogConfig       `yaml:"log"`
	Flusher   FlusherConfig   `yaml:"flusher"`
	Inspector InspectorConfig `yaml:"inspector"`
}

func Default() Config {
	return Config{
		Pool: PoolConfig{
			Size:     64,
			Replacer: "clock",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Flusher: FlusherConfig{
			Interval:       time.Second,
			PagesPerSecond: 100,
		},
		Inspector: InspectorConfig{
			Addr: "127.0.0.1:8080",
		},
	}
}

// Load reads a yaml file on top of Default. Keys missing from the file keep
// their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Pool.Size <= 0 {
		errs = append(errs, fmt.Errorf("pool.size must be positive, got %d", c.Pool.Size))
	}
	switch strings.ToLower(c.Pool.Replacer) {
	case "", "clock", "lru":
	default:
		errs = append(errs, fmt.Errorf("pool.replacer must be clock or lru, got %q", c.Pool.Replacer))
	}
	if c.Disk.MaxPages < 0 {
		errs = append(errs, fmt.Errorf("disk.max_pages must not be negative, got %d", c.Disk.MaxPages))
	}
	if c.Disk.DirectIO && c.Disk.Path == "" {
		errs = append(errs, errors.New("disk.direct_io needs disk.path"))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	if c.Flusher.Enabled && c.Flusher.Interval <= 0 {
		errs = append(errs, fmt.Errorf("flusher.interval must be positive, got %v", c.Flusher.Interval))
	}
	return errors.Join(errs...)
}
