// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Querier is satisfied by *sql.DB, *sql.Tx and *sql.Conn.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Dialect renders descriptors to SQL and introspects a live schema for one
// database engine.
type Dialect interface {
	Name() string
	// DriverName is the database/sql driver registered for this dialect.
	DriverName() string
	// TransactionalDDL reports whether CREATE/ALTER can be rolled back.
	TransactionalDDL() bool
	// Bind returns the placeholder for the n-th (1-based) query argument.
	Bind(n int) string

	CreateTable(t Table) string
	// AddColumn returns the statements that add c to an existing table t.
	// A column-level UNIQUE is not part of it; see UniqueColumns.
	AddColumn(t Table, c Column) []string
	CreateIndex(t Table, idx Index) string

	TableNames(ctx context.Context, q Querier) (map[string]bool, error)
	ColumnNames(ctx context.Context, q Querier, table string) (map[string]bool, error)
	IndexNames(ctx context.Context, q Querier, table string) (map[string]bool, error)
	// UniqueColumns returns the columns that a single-column unique index
	// or constraint covers on its own.
	UniqueColumns(ctx context.Context, q Querier, table string) (map[string]bool, error)

	// Lock serializes concurrent reconciliation runs. The returned release
	// func is always non-nil.
	Lock(ctx context.Context, q Querier) (release func(context.Context) error, err error)
}

// ForeignKeyAdder is implemented by dialects whose ADD COLUMN cannot carry
// a reference, so the foreign key is added and checked on its own.
type ForeignKeyAdder interface {
	AddForeignKey(t Table, c Column) string
	// ForeignKeyColumns returns the columns of table that already reference
	// another table.
	ForeignKeyColumns(ctx context.Context, q Querier, table string) (map[string]bool, error)
}

// Dialect names, also accepted as DATABASE_TYPE values.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
	DialectMySQL    = "mysql"
)

// DialectFor returns the dialect registered under name.
func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case DialectPostgres, "postgresql":
		return Postgres{}, nil
	case DialectSQLite, "sqlite3":
		return SQLite{}, nil
	case DialectMySQL:
		return MySQL{}, nil
	}
	return nil, fmt.Errorf("unsupported database type %q", name)
}

// migrationLockName identifies the reconciler's lock on engines with named locks.
const migrationLockName = "skillstown_schema_reconcile"

func noRelease(context.Context) error { return nil }

// columnStyle captures the per-engine differences in a column clause.
type columnStyle struct {
	typeName func(c Column) string
	// inlineRefs renders REFERENCES inside the column clause. MySQL parses
	// but ignores inline references, so it uses table-level constraints.
	inlineRefs bool
	// wrapTextDefault renders TEXT defaults as expressions, e.g. DEFAULT ('[]').
	wrapTextDefault bool
}

// columnClause renders "name TYPE [constraints] [DEFAULT ...]".
//
// For added columns (adding == true) UNIQUE is left to a separate unique
// index named by uniqueIndexName, and NOT NULL is kept only with a constant default so that existing
// rows stay valid.
func columnClause(s columnStyle, c Column, adding bool) string {
	var b strings.Builder
	b.WriteString(c.Name)
	b.WriteString(" ")
	b.WriteString(s.typeName(c))

	if c.Type != TypeSerial {
		if c.PrimaryKey {
			b.WriteString(" PRIMARY KEY")
		}
		if c.NotNull && !c.PrimaryKey && (!adding || c.Default != "") {
			b.WriteString(" NOT NULL")
		}
		if c.Unique && !adding {
			b.WriteString(" UNIQUE")
		}
	}

	switch {
	case c.DefaultNow:
		b.WriteString(" DEFAULT CURRENT_TIMESTAMP")
	case c.Default != "" && c.Type == TypeText && s.wrapTextDefault:
		b.WriteString(" DEFAULT (" + c.Default + ")")
	case c.Default != "":
		b.WriteString(" DEFAULT " + c.Default)
	}

	if s.inlineRefs && c.References != nil {
		b.WriteString(" " + referenceClause(c.References))
	}

	return b.String()
}

func referenceClause(ref *Reference) string {
	clause := fmt.Sprintf("REFERENCES %s(%s)", ref.Table, ref.Column)
	if ref.OnDelete != "" {
		clause += " ON DELETE " + ref.OnDelete
	}
	return clause
}

func foreignKeyName(table, column string) string {
	return fmt.Sprintf("fk_%s_%s", table, column)
}

// createTable renders an idempotent CREATE TABLE statement. extra holds
// table-level clauses appended after the columns and unique constraints.
func createTable(s columnStyle, t Table, extra []string) string {
	lines := make([]string, 0, len(t.Columns)+len(t.Uniques)+len(extra))
	for _, c := range t.Columns {
		lines = append(lines, columnClause(s, c, false))
	}
	for _, u := range t.Uniques {
		lines = append(lines, fmt.Sprintf("CONSTRAINT %s UNIQUE (%s)", u.Name, strings.Join(u.Columns, ", ")))
	}
	lines = append(lines, extra...)

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n    %s\n)", t.Name, strings.Join(lines, ",\n    "))
}

func createIndex(t Table, idx Index, ifNotExists bool) string {
	var b strings.Builder
	b.WriteString("CREATE ")
	if idx.Unique {
		b.WriteString("UNIQUE ")
	}
	b.WriteString("INDEX ")
	if ifNotExists {
		b.WriteString("IF NOT EXISTS ")
	}
	fmt.Fprintf(&b, "%s ON %s (%s)", idx.Name, t.Name, strings.Join(idx.Columns, ", "))
	return b.String()
}

// queryNames runs a single-column query and collects the values as a set.
func queryNames(ctx context.Context, q Querier, query string, args ...any) (map[string]bool, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return names, nil
}

func baseType(c Column) string {
	switch c.Type {
	case TypeVarchar:
		return fmt.Sprintf("VARCHAR(%d)", c.Size)
	case TypeText:
		return "TEXT"
	case TypeInteger:
		return "INTEGER"
	case TypeTimestamp:
		return "TIMESTAMP"
	}
	return strings.ToUpper(string(c.Type))
}
