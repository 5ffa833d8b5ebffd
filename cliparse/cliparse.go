package cliparse

import (
	"errors"
	"flag"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environments
const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

const defaultDatabaseURL = "sqlite:///skillstown.db"

type Config struct {
	Port         int
	DatabaseURL  string
	DatabaseType string
	Environment  string
	Migrate      bool
	SeqURL       string
	LogLevel     string
}

// Production reports whether startup should reconcile the schema.
func (c Config) Production() bool {
	return c.Environment == EnvProduction
}

// ParseFlags validates flags and sets port number
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	// Missing .env files are fine; real env vars take precedence over it.
	_ = godotenv.Load()

	fs := flag.NewFlagSet("skillstown", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite, postgres or mysql)")

	fs.StringVar(&cfg.Environment, "env", "", "Environment (production or development)")
	fs.BoolVar(&cfg.Migrate, "migrate", false, "Reconcile the schema and exit")
	fs.StringVar(&cfg.SeqURL, "seq", "", "Seq server URL for log shipping")
	fs.StringVar(&cfg.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 3318 // default
		}
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = defaultDatabaseURL
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
	}

	if cfg.Environment == "" {
		cfg.Environment = os.Getenv("APP_ENV")
	}
	if cfg.Environment == "" {
		cfg.Environment = detectEnvironment(cfg.DatabaseURL)
	}
	cfg.Environment = strings.ToLower(cfg.Environment)
	if cfg.Environment != EnvProduction && cfg.Environment != EnvDevelopment {
		return Config{}, errors.New("environment must be production or development")
	}

	if cfg.SeqURL == "" {
		cfg.SeqURL = os.Getenv("SEQ_URL")
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = os.Getenv("LOG_LEVEL")
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

// detectEnvironment applies the hosting heuristics: a Render host,
// FLASK_ENV=production or a Postgres database mean production.
func detectEnvironment(databaseURL string) string {
	if os.Getenv("RENDER") != "" || os.Getenv("FLASK_ENV") == EnvProduction {
		return EnvProduction
	}
	if strings.HasPrefix(databaseURL, "postgres") {
		return EnvProduction
	}
	return EnvDevelopment
}
