// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Config Fields

  - Port: Server listen port (default: 3318)
  - DatabaseURL: Database connection URL (default: sqlite:///skillstown.db)
  - DatabaseType: sqlite, postgres or mysql (default: inferred from the URL)
  - Environment: production or development
  - Migrate: reconcile the schema and exit
  - SeqURL: optional Seq server for log shipping
  - LogLevel: debug, info, warn or error (default: info)

# CLI Flags

	-p          Server port
	-d          Database URL
	-t          Database type
	-env        Environment
	-migrate    Reconcile the schema and exit
	-seq        Seq server URL
	-log-level  Log level

# Environment Variables

Flags fall back to environment variables, which may come from a .env file:

	PORT          → -p
	DATABASE_URL  → -d
	DATABASE_TYPE → -t
	APP_ENV       → -env
	SEQ_URL       → -seq
	LOG_LEVEL     → -log-level

CLI flags take precedence over environment variables.

# Environment Detection

When neither -env nor APP_ENV is set, the environment is production if
RENDER is set, FLASK_ENV is production, or DATABASE_URL points at
Postgres. Production startup reconciles the schema; development startup
only creates missing tables.
*/
package cliparse
