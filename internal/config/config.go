// Package config reads tool settings from the environment, after loading an
// optional .env file.
package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

type Config struct {
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	DataDir string `env:"CATALOG_DATA_DIR" envDefault:"."`

	ScrapeUserAgent string        `env:"SCRAPE_USER_AGENT" envDefault:"catalogrecon-scraper/1.0"`
	ScrapeTimeout   time.Duration `env:"SCRAPE_TIMEOUT" envDefault:"30s"`
	ScrapeDelay     time.Duration `env:"SCRAPE_DELAY" envDefault:"2s"`

	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"postgres"`
	DatabaseURL    string `env:"DATABASE_URL"`
}

// Load reads envFile when it exists (".env" when empty) and then parses the
// process environment. Variables already set in the environment win over the file.
func Load(envFile string) (Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, errors.Wrapf(err, "load %s", envFile)
		}
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "parse environment")
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return Config{}, errors.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}
	return cfg, nil
}
