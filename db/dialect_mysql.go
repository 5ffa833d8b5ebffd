// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// lockTimeoutSeconds bounds how long GET_LOCK waits for another run.
const lockTimeoutSeconds = 30

// MySQL is the MySQL/TiDB dialect (github.com/go-sql-driver/mysql).
// DDL auto-commits on these engines, so a failed run can leave the
// statements executed before the failure in place.
type MySQL struct{}

var mysqlStyle = columnStyle{
	typeName: func(c Column) string {
		switch c.Type {
		case TypeSerial:
			return "INT NOT NULL AUTO_INCREMENT PRIMARY KEY"
		case TypeInteger:
			return "INT"
		case TypeTimestamp:
			return "TIMESTAMP NULL"
		}
		return baseType(c)
	},
	wrapTextDefault: true,
}

func (MySQL) Name() string           { return DialectMySQL }
func (MySQL) DriverName() string     { return "mysql" }
func (MySQL) TransactionalDDL() bool { return false }
func (MySQL) Bind(int) string        { return "?" }

func (MySQL) CreateTable(t Table) string {
	var fks []string
	for _, c := range t.Columns {
		if c.References != nil {
			fks = append(fks, fmt.Sprintf("CONSTRAINT %s FOREIGN KEY (%s) %s",
				foreignKeyName(t.Name, c.Name), c.Name, referenceClause(c.References)))
		}
	}
	return createTable(mysqlStyle, t, fks) + " ENGINE=InnoDB DEFAULT CHARSET=utf8mb4"
}

// AddColumn leaves the reference out; AddForeignKey adds it once the
// column exists.
func (MySQL) AddColumn(t Table, c Column) []string {
	return []string{fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", t.Name, columnClause(mysqlStyle, c, true))}
}

func (MySQL) AddForeignKey(t Table, c Column) string {
	return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) %s",
		t.Name, foreignKeyName(t.Name, c.Name), c.Name, referenceClause(c.References))
}

// CreateIndex omits IF NOT EXISTS, which MySQL does not support; the
// reconciler checks index presence first.
func (MySQL) CreateIndex(t Table, idx Index) string {
	return createIndex(t, idx, false)
}

func (MySQL) TableNames(ctx context.Context, q Querier) (map[string]bool, error) {
	return queryNames(ctx, q, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
	`)
}

func (MySQL) ColumnNames(ctx context.Context, q Querier, table string) (map[string]bool, error) {
	return queryNames(ctx, q, `
		SELECT column_name FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ?
	`, table)
}

func (MySQL) IndexNames(ctx context.Context, q Querier, table string) (map[string]bool, error) {
	return queryNames(ctx, q, `
		SELECT DISTINCT index_name FROM information_schema.statistics
		WHERE table_schema = DATABASE() AND table_name = ?
	`, table)
}

func (MySQL) UniqueColumns(ctx context.Context, q Querier, table string) (map[string]bool, error) {
	return queryNames(ctx, q, `
		SELECT MIN(column_name) FROM information_schema.statistics
		WHERE table_schema = DATABASE() AND table_name = ?
		  AND non_unique = 0 AND column_name IS NOT NULL
		GROUP BY index_name
		HAVING COUNT(*) = 1
	`, table)
}

func (MySQL) ForeignKeyColumns(ctx context.Context, q Querier, table string) (map[string]bool, error) {
	return queryNames(ctx, q, `
		SELECT column_name FROM information_schema.key_column_usage
		WHERE table_schema = DATABASE() AND table_name = ?
		  AND referenced_table_name IS NOT NULL
	`, table)
}

// Lock takes a named session lock. q must be pinned to one connection
// (a *sql.Conn) since GET_LOCK belongs to the session that took it.
func (MySQL) Lock(ctx context.Context, q Querier) (func(context.Context) error, error) {
	var got sql.NullInt64
	if err := q.QueryRowContext(ctx, "SELECT GET_LOCK(?, ?)", migrationLockName, lockTimeoutSeconds).Scan(&got); err != nil {
		return noRelease, fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	if !got.Valid || got.Int64 != 1 {
		return noRelease, errors.New("timed out waiting for migration lock")
	}

	release := func(ctx context.Context) error {
		var released sql.NullInt64
		return q.QueryRowContext(ctx, "SELECT RELEASE_LOCK(?)", migrationLockName).Scan(&released)
	}
	return release, nil
}
