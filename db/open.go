// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// DetectType infers the database type from a connection URL.
func DetectType(databaseURL string) string {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return DialectPostgres
	case strings.HasPrefix(databaseURL, "mysql://"):
		return DialectMySQL
	default:
		return DialectSQLite
	}
}

// DataSourceName converts a database URL into the DSN its driver expects.
//
//	postgres://u:p@host/db   -> unchanged (lib/pq accepts URLs)
//	mysql://u:p@host:3306/db -> u:p@tcp(host:3306)/db?parseTime=true
//	sqlite:///path/app.db    -> /path/app.db
//	sqlite:///app.db         -> app.db (relative, as in SQLAlchemy)
func DataSourceName(dbType, databaseURL string) (string, error) {
	switch dbType {
	case DialectPostgres:
		return databaseURL, nil
	case DialectMySQL:
		return mysqlDSN(databaseURL)
	case DialectSQLite:
		dsn := databaseURL
		switch {
		case strings.HasPrefix(dsn, "sqlite:////"):
			dsn = "/" + strings.TrimPrefix(dsn, "sqlite:////")
		case strings.HasPrefix(dsn, "sqlite:///"):
			dsn = strings.TrimPrefix(dsn, "sqlite:///")
		case strings.HasPrefix(dsn, "sqlite://"):
			dsn = strings.TrimPrefix(dsn, "sqlite://")
		}
		if dsn == "" {
			return "", fmt.Errorf("empty sqlite path in %q", databaseURL)
		}
		return dsn, nil
	}
	return "", fmt.Errorf("unsupported database type %q", dbType)
}

func mysqlDSN(databaseURL string) (string, error) {
	if !strings.HasPrefix(databaseURL, "mysql://") {
		// Already a driver DSN.
		if _, err := mysql.ParseDSN(databaseURL); err != nil {
			return "", fmt.Errorf("invalid mysql DSN: %w", err)
		}
		return databaseURL, nil
	}

	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid mysql URL: %w", err)
	}

	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = u.Host
	if u.Port() == "" {
		cfg.Addr = u.Hostname() + ":3306"
	}
	cfg.DBName = strings.TrimPrefix(u.Path, "/")
	cfg.ParseTime = true
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
	}
	for k, v := range u.Query() {
		if len(v) > 0 {
			if cfg.Params == nil {
				cfg.Params = map[string]string{}
			}
			cfg.Params[k] = v[0]
		}
	}

	return cfg.FormatDSN(), nil
}

// Open opens a connection pool for the given database type and URL. An
// empty dbType is inferred from the URL. Open does not ping.
func Open(dbType, databaseURL string) (*sql.DB, Dialect, error) {
	if dbType == "" {
		dbType = DetectType(databaseURL)
	}

	d, err := DialectFor(dbType)
	if err != nil {
		return nil, nil, err
	}

	dsn, err := DataSourceName(d.Name(), databaseURL)
	if err != nil {
		return nil, nil, err
	}

	conn, err := sql.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	if d.Name() == DialectSQLite {
		// One writer at a time; avoids SQLITE_BUSY between pool connections.
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetConnMaxLifetime(5 * time.Minute)
		conn.SetConnMaxIdleTime(3 * time.Minute)
	}

	return conn, d, nil
}
