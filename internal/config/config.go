package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

type AppConfig struct {
	RedisURL    string
	DatabaseURL string

	GameTTL        time.Duration
	SweepInterval  time.Duration
	OutcomeChannel string
	MessagesDir    string

	DefaultTimer     time.Duration
	DefaultIncrement time.Duration
}

// fileConfig is the optional YAML layer named by CHESS_CONFIG_FILE.
// Environment variables win over file values.
type fileConfig struct {
	RedisURL         string `yaml:"redis_url"`
	DatabaseURL      string `yaml:"database_url"`
	GameTTL          string `yaml:"game_ttl"`
	SweepInterval    string `yaml:"sweep_interval"`
	OutcomeChannel   string `yaml:"outcome_channel"`
	MessagesDir      string `yaml:"messages_dir"`
	DefaultTimer     string `yaml:"default_timer"`
	DefaultIncrement string `yaml:"default_increment"`
}

func defaults() *AppConfig {
	return &AppConfig{
		GameTTL:        24 * time.Hour,
		SweepInterval:  time.Second,
		OutcomeChannel: "chess:outcome",
	}
}

func Load() (*AppConfig, error) {
	cfg := defaults()

	fc := fileConfig{}
	if path := strings.TrimSpace(os.Getenv("CHESS_CONFIG_FILE")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &fc); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.RedisURL = pick("REDIS_URL", fc.RedisURL, "")
	cfg.DatabaseURL = pick("DATABASE_URL", fc.DatabaseURL, "")
	cfg.OutcomeChannel = pick("CHESS_OUTCOME_CHANNEL", fc.OutcomeChannel, cfg.OutcomeChannel)
	cfg.MessagesDir = pick("CHESS_MESSAGES_DIR", fc.MessagesDir, "")

	var err error
	if cfg.GameTTL, err = pickDuration("CHESS_GAME_TTL", fc.GameTTL, cfg.GameTTL); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = pickDuration("CHESS_SWEEP_INTERVAL", fc.SweepInterval, cfg.SweepInterval); err != nil {
		return nil, err
	}
	if cfg.DefaultTimer, err = pickDuration("CHESS_DEFAULT_TIMER", fc.DefaultTimer, 0); err != nil {
		return nil, err
	}
	if cfg.DefaultIncrement, err = pickDuration("CHESS_DEFAULT_INCREMENT", fc.DefaultIncrement, 0); err != nil {
		return nil, err
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.GameTTL <= 0 || cfg.SweepInterval <= 0 {
		return nil, errors.New("CHESS_GAME_TTL and CHESS_SWEEP_INTERVAL must be positive")
	}
	if cfg.DefaultTimer < 0 || cfg.DefaultIncrement < 0 {
		return nil, errors.New("default timer and increment must not be negative")
	}
	return cfg, nil
}

func pick(env, file, def string) string {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		return v
	}
	if v := strings.TrimSpace(file); v != "" {
		return v
	}
	return def
}

// pickDuration accepts Go durations ("90s", "1h") or bare seconds ("90").
func pickDuration(env, file string, def time.Duration) (time.Duration, error) {
	v := pick(env, file, "")
	if v == "" {
		return def, nil
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", env, err)
	}
	return d, nil
}
