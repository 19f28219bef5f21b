package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

const (
	DriverPostGIS = "postgis"
	DriverSQLite  = "sqlite"
)

type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Server struct {
		Port        int      `env:"PORT" envDefault:"5250"`
		GinMode     string   `env:"GIN_MODE" envDefault:"release"`
		CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	} `envPrefix:"SERVER_"`

	Database struct {
		// postgis or sqlite
		Driver       string        `env:"DRIVER" envDefault:"sqlite"`
		URL          string        `env:"URL"`
		Path         string        `env:"PATH" envDefault:"data/transactions.db"`
		Schema       string        `env:"SCHEMA" envDefault:"valuation"`
		MaxConns     int32         `env:"MAX_CONNS" envDefault:"10"`
		QueryTimeout time.Duration `env:"QUERY_TIMEOUT" envDefault:"15s"`
	} `envPrefix:"DB_"`

	Search struct {
		RadiusKm            float64 `env:"RADIUS_KM" envDefault:"3"`
		YearsBack           int     `env:"YEARS_BACK" envDefault:"3"`
		SurfaceTolerancePct float64 `env:"SURFACE_TOLERANCE_PCT" envDefault:"20"`
		Limit               int     `env:"LIMIT" envDefault:"100"`
		TopN                int     `env:"TOP_N" envDefault:"30"`
	} `envPrefix:"SEARCH_"`

	Finance struct {
		// Optional JSON rate table replacing the built-in one
		RatesFile string `env:"RATES_FILE"`
	} `envPrefix:"FINANCE_"`

	Listings struct {
		APIKey      string        `env:"API_KEY"`
		BaseURL     string        `env:"BASE_URL" envDefault:"https://api.perplexity.ai"`
		Model       string        `env:"MODEL" envDefault:"sonar"`
		MaxAttempts int           `env:"MAX_ATTEMPTS" envDefault:"3"`
		RetryDelay  time.Duration `env:"RETRY_DELAY" envDefault:"1s"`
		Timeout     time.Duration `env:"TIMEOUT" envDefault:"30s"`
		MaxResults  int           `env:"MAX_RESULTS" envDefault:"20"`
	} `envPrefix:"LISTINGS_"`

	Ingest struct {
		BatchSize   int           `env:"BATCH_SIZE" envDefault:"500"`
		Workers     int           `env:"WORKERS" envDefault:"1"`
		MaxAttempts int           `env:"MAX_ATTEMPTS" envDefault:"3"`
		RetryDelay  time.Duration `env:"RETRY_DELAY" envDefault:"500ms"`
	} `envPrefix:"INGEST_"`

	Geocoder struct {
		BaseURL      string        `env:"BASE_URL" envDefault:"https://nominatim.openstreetmap.org"`
		UserAgent    string        `env:"USER_AGENT" envDefault:"Estimation-immo/1.0"`
		CountryCodes []string      `env:"COUNTRY_CODES" envSeparator:"," envDefault:"fr"`
		CacheDir     string        `env:"CACHE_DIR" envDefault:"cache"`
		Limit        int           `env:"LIMIT" envDefault:"5"`
		MinInterval  time.Duration `env:"MIN_INTERVAL" envDefault:"1s"`
	} `envPrefix:"GEOCODER_"`
}

// LoadConfig reads an optional .env file then parses the environment.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings no component could run with.
func (c *Config) Validate() error {
	c.Database.Driver = strings.ToLower(c.Database.Driver)
	switch c.Database.Driver {
	case DriverPostGIS:
		if c.Database.URL == "" {
			return fmt.Errorf("DB_URL is required for the %s driver", DriverPostGIS)
		}
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("DB_PATH is required for the %s driver", DriverSQLite)
		}
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.Database.Driver)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid SERVER_PORT: %d", c.Server.Port)
	}
	if c.Search.RadiusKm <= 0 {
		return fmt.Errorf("SEARCH_RADIUS_KM must be positive")
	}
	if c.Search.YearsBack < 1 {
		return fmt.Errorf("SEARCH_YEARS_BACK must be at least 1")
	}
	if c.Search.SurfaceTolerancePct < 0 || c.Search.SurfaceTolerancePct >= 100 {
		return fmt.Errorf("SEARCH_SURFACE_TOLERANCE_PCT must be within [0, 100)")
	}
	if c.Search.Limit < 1 || c.Search.TopN < 1 {
		return fmt.Errorf("SEARCH_LIMIT and SEARCH_TOP_N must be at least 1")
	}
	if c.Listings.MaxAttempts < 1 {
		return fmt.Errorf("LISTINGS_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}

// ListenAddr returns the host:port string for the HTTP server.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
