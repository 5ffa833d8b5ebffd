// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"fmt"
)

// SQLite is the SQLite dialect (modernc.org/sqlite).
type SQLite struct{}

var sqliteStyle = columnStyle{
	typeName: func(c Column) string {
		if c.Type == TypeSerial {
			return "INTEGER PRIMARY KEY AUTOINCREMENT"
		}
		return baseType(c)
	},
	inlineRefs: true,
}

func (SQLite) Name() string           { return DialectSQLite }
func (SQLite) DriverName() string     { return "sqlite" }
func (SQLite) TransactionalDDL() bool { return true }
func (SQLite) Bind(int) string        { return "?" }

func (SQLite) CreateTable(t Table) string {
	return createTable(sqliteStyle, t, nil)
}

// AddColumn works around ALTER TABLE refusing a non-constant default on an
// added column: the column is added bare and existing rows are filled.
func (SQLite) AddColumn(t Table, c Column) []string {
	bare := c
	bare.DefaultNow = false

	stmts := []string{fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", t.Name, columnClause(sqliteStyle, bare, true))}
	if c.DefaultNow {
		stmts = append(stmts, fmt.Sprintf("UPDATE %s SET %s = CURRENT_TIMESTAMP WHERE %s IS NULL", t.Name, c.Name, c.Name))
	}
	return stmts
}

func (SQLite) CreateIndex(t Table, idx Index) string {
	return createIndex(t, idx, true)
}

func (SQLite) TableNames(ctx context.Context, q Querier) (map[string]bool, error) {
	return queryNames(ctx, q, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
	`)
}

func (SQLite) ColumnNames(ctx context.Context, q Querier, table string) (map[string]bool, error) {
	return queryNames(ctx, q, "SELECT name FROM pragma_table_info(?)", table)
}

func (SQLite) IndexNames(ctx context.Context, q Querier, table string) (map[string]bool, error) {
	return queryNames(ctx, q, `
		SELECT name FROM sqlite_master
		WHERE type = 'index' AND tbl_name = ?
	`, table)
}

func (SQLite) UniqueColumns(ctx context.Context, q Querier, table string) (map[string]bool, error) {
	return queryNames(ctx, q, `
		SELECT ii.name
		FROM pragma_index_list(?) AS il
		JOIN pragma_index_info(il.name) AS ii
		WHERE il."unique" = 1 AND ii.name IS NOT NULL
		  AND (SELECT COUNT(*) FROM pragma_index_info(il.name)) = 1
	`, table)
}

// Lock is a no-op: the write transaction already excludes other writers.
func (SQLite) Lock(context.Context, Querier) (func(context.Context) error, error) {
	return noRelease, nil
}
