// Package config loads gluvib settings in layers: struct defaults, then an
// optional YAML file, then GLUVIB_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/ecology747-sudo/gluvib/internal/app"
	"github.com/ecology747-sudo/gluvib/internal/logging"
	"github.com/ecology747-sudo/gluvib/internal/service"
)

const (
	EnvPrefix     = "GLUVIB_"
	ConfigPathEnv = "GLUVIB_CONFIG"
	localFileName = "gluvib.yaml"
)

type Config struct {
	Database   DatabaseConfig      `koanf:"database"`
	Logging    LoggingConfig       `koanf:"logging"`
	Server     ServerConfig        `koanf:"server"`
	Scheduler  SchedulerConfig     `koanf:"scheduler"`
	Pipeline   PipelineConfig      `koanf:"pipeline"`
	Score      service.ScoreConfig `koanf:"score"`
	Nightscout NightscoutConfig    `koanf:"nightscout"`
}

type DatabaseConfig struct {
	// Path is empty for the per-user default location.
	Path string `koanf:"path"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type SchedulerConfig struct {
	SettleDelay time.Duration `koanf:"settle_delay"`
}

type PipelineConfig struct {
	LookbackDays   int `koanf:"lookback_days"`
	DailyChartDays int `koanf:"daily_chart_days"`
}

type NightscoutConfig struct {
	URL         string        `koanf:"url"`
	Token       string        `koanf:"token"`
	Timeout     time.Duration `koanf:"timeout"`
	RefreshDays int           `koanf:"refresh_days"`
}

func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "warn", Format: "console"},
		Server: ServerConfig{
			Addr:            "127.0.0.1:8787",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Scheduler: SchedulerConfig{SettleDelay: 250 * time.Millisecond},
		Pipeline:  PipelineConfig{LookbackDays: 365, DailyChartDays: 90},
		Score:     service.DefaultScoreConfig(),
		Nightscout: NightscoutConfig{
			Timeout:     12 * time.Second,
			RefreshDays: 14,
		},
	}
}

// Load builds the configuration. path may be empty, in which case
// GLUVIB_CONFIG, ./gluvib.yaml and the user config dir are tried in order.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	if strings.TrimSpace(path) == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	known := envKeys(k.Keys())
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return known[strings.ToLower(strings.TrimPrefix(s, EnvPrefix))]
	}), nil); err != nil {
		return nil, fmt.Errorf("load config environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// envKeys maps score_carbs_band_min style names to their koanf paths.
func envKeys(paths []string) map[string]string {
	out := make(map[string]string, len(paths))
	for _, p := range paths {
		out[strings.ReplaceAll(p, ".", "_")] = p
	}
	return out
}

func findConfigFile() string {
	if p := strings.TrimSpace(os.Getenv(ConfigPathEnv)); p != "" {
		return p
	}
	if _, err := os.Stat(localFileName); err == nil {
		return localFileName
	}
	if p, err := app.DefaultConfigPath(); err == nil {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func (c *Config) Validate() error {
	if _, err := logging.ParseLevelStrict(c.Logging.Level); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	if strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Scheduler.SettleDelay < 0 {
		return fmt.Errorf("scheduler.settle_delay must be >= 0")
	}
	if c.Pipeline.LookbackDays < 1 {
		return fmt.Errorf("pipeline.lookback_days must be >= 1")
	}
	if c.Pipeline.DailyChartDays < 1 || c.Pipeline.DailyChartDays > c.Pipeline.LookbackDays {
		return fmt.Errorf("pipeline.daily_chart_days must be between 1 and lookback_days")
	}
	if c.Nightscout.RefreshDays < 1 {
		return fmt.Errorf("nightscout.refresh_days must be >= 1")
	}
	if err := c.Score.Validate(); err != nil {
		return err
	}
	return nil
}
