package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the runtime configuration for the scheduling service. Values
// come from an optional YAML file and can be overridden per field through the
// process environment.
type Config struct {
	HTTPPort           int           `yaml:"http_port"`
	SQLiteDSN          string        `yaml:"sqlite_dsn"`
	RateLimitPerSecond float64       `yaml:"rate_limit_per_second"`
	RateLimitBurst     int           `yaml:"rate_limit_burst"`
	EventRetention     time.Duration `yaml:"event_retention"`
	ReadinessRetention time.Duration `yaml:"readiness_retention"`
	MaintenanceCron    string        `yaml:"maintenance_cron"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout"`
}

func defaults() Config {
	return Config{
		HTTPPort:           8080,
		SQLiteDSN:          "file:fitness-scheduler.db?_foreign_keys=on",
		RateLimitPerSecond: 10,
		RateLimitBurst:     20,
		EventRetention:     90 * 24 * time.Hour,
		ReadinessRetention: 30 * 24 * time.Hour,
		MaintenanceCron:    "0 3 * * *",
		ShutdownTimeout:    10 * time.Second,
	}
}

// Load resolves the configuration. When SCHEDULER_CONFIG_FILE points at a
// YAML file its values replace the defaults, then individual environment
// variables override both.
func Load() (Config, error) {
	cfg := defaults()

	if path := strings.TrimSpace(os.Getenv("SCHEDULER_CONFIG_FILE")); path != "" {
		loaded, err := loadFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg = loaded
	}

	if err := applyEnvironment(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func loadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

func applyEnvironment(cfg *Config) error {
	invalid := make([]string, 0, 2)

	if value := strings.TrimSpace(os.Getenv("SCHEDULER_HTTP_PORT")); value != "" {
		port, err := strconv.Atoi(value)
		if err != nil || port <= 0 {
			invalid = append(invalid, "SCHEDULER_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("SCHEDULER_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if value := strings.TrimSpace(os.Getenv("SCHEDULER_RATE_LIMIT_PER_SECOND")); value != "" {
		limit, err := strconv.ParseFloat(value, 64)
		if err != nil || limit <= 0 {
			invalid = append(invalid, "SCHEDULER_RATE_LIMIT_PER_SECOND")
		} else {
			cfg.RateLimitPerSecond = limit
		}
	}

	if value := strings.TrimSpace(os.Getenv("SCHEDULER_RATE_LIMIT_BURST")); value != "" {
		burst, err := strconv.Atoi(value)
		if err != nil || burst <= 0 {
			invalid = append(invalid, "SCHEDULER_RATE_LIMIT_BURST")
		} else {
			cfg.RateLimitBurst = burst
		}
	}

	if value := strings.TrimSpace(os.Getenv("SCHEDULER_EVENT_RETENTION")); value != "" {
		retention, err := time.ParseDuration(value)
		if err != nil || retention <= 0 {
			invalid = append(invalid, "SCHEDULER_EVENT_RETENTION")
		} else {
			cfg.EventRetention = retention
		}
	}

	if value := strings.TrimSpace(os.Getenv("SCHEDULER_READINESS_RETENTION")); value != "" {
		retention, err := time.ParseDuration(value)
		if err != nil || retention <= 0 {
			invalid = append(invalid, "SCHEDULER_READINESS_RETENTION")
		} else {
			cfg.ReadinessRetention = retention
		}
	}

	if value := strings.TrimSpace(os.Getenv("SCHEDULER_MAINTENANCE_CRON")); value != "" {
		cfg.MaintenanceCron = value
	}

	if value := strings.TrimSpace(os.Getenv("SCHEDULER_SHUTDOWN_TIMEOUT")); value != "" {
		timeout, err := time.ParseDuration(value)
		if err != nil || timeout <= 0 {
			invalid = append(invalid, "SCHEDULER_SHUTDOWN_TIMEOUT")
		} else {
			cfg.ShutdownTimeout = timeout
		}
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid environment values: %s", strings.Join(invalid, ", "))
	}
	return nil
}

func (c Config) validate() error {
	if c.HTTPPort <= 0 {
		return fmt.Errorf("http_port must be positive, got %d", c.HTTPPort)
	}
	if strings.TrimSpace(c.SQLiteDSN) == "" {
		return fmt.Errorf("sqlite_dsn must not be empty")
	}
	if len(strings.Fields(c.MaintenanceCron)) != 5 {
		return fmt.Errorf("maintenance_cron must be a five field cron expression, got %q", c.MaintenanceCron)
	}
	return nil
}
