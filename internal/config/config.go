package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Rule sources.
const (
	RulesFromDB   = "db"
	RulesFromFile = "file"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"taxres"`
		Port int    `envconfig:"PORT" default:"8080"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"taxres"`
	}

	Server struct {
		Timeout        time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
		AllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	}

	Rules struct {
		// Source is "db" for the rule tables in Postgres or "file" for a YAML
		// file overlaid on the built-in defaults.
		Source string `envconfig:"RULES_SOURCE" default:"db"`
		Path   string `envconfig:"RULES_PATH"`
	}

	Engine struct {
		Workers int `envconfig:"ENGINE_WORKERS" default:"4"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

func (c *Config) Validate() error {
	switch c.Rules.Source {
	case RulesFromDB:
	case RulesFromFile:
		if c.Rules.Path == "" {
			return fmt.Errorf("RULES_PATH is required when RULES_SOURCE is %q", RulesFromFile)
		}
	default:
		return fmt.Errorf("unknown RULES_SOURCE %q", c.Rules.Source)
	}

	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
