// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"fmt"
)

// advisoryLockKey is the pg_advisory_xact_lock key for reconciliation runs.
const advisoryLockKey int64 = 0x736b696c6c73

// Postgres is the PostgreSQL dialect (github.com/lib/pq).
type Postgres struct{}

var postgresStyle = columnStyle{
	typeName: func(c Column) string {
		if c.Type == TypeSerial {
			return "SERIAL PRIMARY KEY"
		}
		return baseType(c)
	},
	inlineRefs: true,
}

func (Postgres) Name() string           { return DialectPostgres }
func (Postgres) DriverName() string     { return "postgres" }
func (Postgres) TransactionalDDL() bool { return true }
func (Postgres) Bind(n int) string      { return fmt.Sprintf("$%d", n) }

func (Postgres) CreateTable(t Table) string {
	return createTable(postgresStyle, t, nil)
}

func (Postgres) AddColumn(t Table, c Column) []string {
	return []string{fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", t.Name, columnClause(postgresStyle, c, true))}
}

func (Postgres) CreateIndex(t Table, idx Index) string {
	return createIndex(t, idx, true)
}

func (Postgres) TableNames(ctx context.Context, q Querier) (map[string]bool, error) {
	return queryNames(ctx, q, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
	`)
}

func (Postgres) ColumnNames(ctx context.Context, q Querier, table string) (map[string]bool, error) {
	return queryNames(ctx, q, `
		SELECT column_name FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
	`, table)
}

func (Postgres) IndexNames(ctx context.Context, q Querier, table string) (map[string]bool, error) {
	return queryNames(ctx, q, `
		SELECT indexname FROM pg_indexes
		WHERE schemaname = current_schema() AND tablename = $1
	`, table)
}

func (Postgres) UniqueColumns(ctx context.Context, q Querier, table string) (map[string]bool, error) {
	return queryNames(ctx, q, `
		SELECT a.attname
		FROM pg_index i
		JOIN pg_class c ON c.oid = i.indrelid
		JOIN pg_namespace n ON n.oid = c.relnamespace
		JOIN pg_attribute a ON a.attrelid = c.oid AND a.attnum = i.indkey[0]
		WHERE n.nspname = current_schema() AND c.relname = $1
		  AND i.indisunique AND i.indnatts = 1
	`, table)
}

// Lock takes a transaction-scoped advisory lock; it is released on commit
// or rollback.
func (Postgres) Lock(ctx context.Context, q Querier) (func(context.Context) error, error) {
	if _, err := q.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", advisoryLockKey); err != nil {
		return noRelease, fmt.Errorf("failed to acquire advisory lock: %w", err)
	}
	return noRelease, nil
}
