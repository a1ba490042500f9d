package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config holds everything the server reads from the environment.
type Config struct {
	Port            int           `env:"PORT" envDefault:"8080"`
	DatabaseURL     string        `env:"DATABASE_URL" envDefault:"sqlite://polls.db"`
	CORSOrigin      string        `env:"CORS_ORIGIN" envDefault:"*"`
	AdminToken      string        `env:"X_ADMIN_TOKEN"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"production"`
	VoteRateRPS     float64       `env:"VOTE_RATE_RPS" envDefault:"1"`
	VoteRateBurst   int           `env:"VOTE_RATE_BURST" envDefault:"5"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`

	// TrustedProxies lists the proxy IPs or CIDRs allowed to set
	// X-Forwarded-For. Empty trusts none.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`
}

func (c Config) IsDevEnvironment() bool {
	return c.Environment == "dev"
}

// AdminEnabled reports whether the admin API should be mounted.
func (c Config) AdminEnabled() bool {
	return c.AdminToken != ""
}

// Load reads an optional .env file and then parses the environment.
// A missing .env file is not an error; production sets variables directly.
func Load() (Config, bool, error) {
	dotenv := godotenv.Load() == nil

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, dotenv, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, dotenv, err
	}
	return cfg, dotenv, nil
}

func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if !strings.HasPrefix(c.DatabaseURL, "postgres://") && !strings.HasPrefix(c.DatabaseURL, "sqlite://") {
		return fmt.Errorf("invalid DATABASE_URL prefix: must start with 'postgres://' or 'sqlite://'")
	}
	for _, p := range c.TrustedProxies {
		if net.ParseIP(p) == nil {
			if _, _, err := net.ParseCIDR(p); err != nil {
				return fmt.Errorf("invalid TRUSTED_PROXIES entry %q", p)
			}
		}
	}
	if c.VoteRateRPS <= 0 || c.VoteRateBurst <= 0 {
		return fmt.Errorf("vote rate limit must be positive (rps=%v, burst=%d)", c.VoteRateRPS, c.VoteRateBurst)
	}
	return nil
}
