// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"fmt"
	"regexp"
)

// ColumnType is the dialect-neutral type of a column. Each Dialect renders
// it to its own SQL spelling.
type ColumnType string

const (
	TypeSerial    ColumnType = "serial" // auto-increment integer primary key
	TypeVarchar   ColumnType = "varchar"
	TypeText      ColumnType = "text"
	TypeInteger   ColumnType = "integer"
	TypeTimestamp ColumnType = "timestamp"
)

// Foreign key ON DELETE actions
const (
	OnDeleteCascade  = "CASCADE"
	OnDeleteSetNull  = "SET NULL"
	OnDeleteRestrict = "RESTRICT"
)

// Reference is a foreign key from a column to another table's column.
type Reference struct {
	Table    string
	Column   string
	OnDelete string
}

// Column describes the desired shape of a single column.
type Column struct {
	Name       string
	Type       ColumnType
	Size       int // varchar length
	PrimaryKey bool
	NotNull    bool
	Unique     bool

	// Default is a SQL literal, e.g. `0` or `'enrolled'`.
	Default string
	// DefaultNow sets the column default to the current timestamp.
	DefaultNow bool

	References *Reference

	// Backfill fills NULL values of the column. It runs on every
	// reconciliation, so rows left NULL by an interrupted run are filled
	// by the next one.
	Backfill Backfill
}

// UniqueConstraint is a named table-level UNIQUE constraint.
type UniqueConstraint struct {
	Name    string
	Columns []string
}

// Index is a secondary index reconciled by name.
type Index struct {
	Name    string
	Columns []string
	Unique  bool
}

// Table describes the desired shape of a table.
type Table struct {
	Name    string
	Columns []Column
	Uniques []UniqueConstraint
	Indexes []Index
}

// Column returns the column descriptor with the given name.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// PrimaryKey returns the table's primary key column name, or "".
func (t Table) PrimaryKey() string {
	for _, c := range t.Columns {
		if c.PrimaryKey {
			return c.Name
		}
	}
	return ""
}

var validName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Validate checks a list of table descriptors before any DDL is built from
// them. Names are interpolated into statements, so they must be plain
// snake_case. A reference must point at the table itself or at a table
// declared earlier in the list.
func Validate(tables []Table) error {
	declared := make(map[string]Table, len(tables))

	for _, t := range tables {
		if !validName.MatchString(t.Name) {
			return fmt.Errorf("invalid table name '%s': must be snake_case", t.Name)
		}
		if _, dup := declared[t.Name]; dup {
			return fmt.Errorf("table '%s' declared twice", t.Name)
		}
		if len(t.Columns) == 0 {
			return fmt.Errorf("table '%s' has no columns", t.Name)
		}

		seen := make(map[string]bool, len(t.Columns))
		for _, c := range t.Columns {
			if !validName.MatchString(c.Name) {
				return fmt.Errorf("invalid column name '%s.%s': must be snake_case", t.Name, c.Name)
			}
			if seen[c.Name] {
				return fmt.Errorf("column '%s.%s' declared twice", t.Name, c.Name)
			}
			seen[c.Name] = true

			switch c.Type {
			case TypeSerial, TypeText, TypeInteger, TypeTimestamp:
			case TypeVarchar:
				if c.Size <= 0 {
					return fmt.Errorf("column '%s.%s': varchar needs a size", t.Name, c.Name)
				}
			default:
				return fmt.Errorf("column '%s.%s': unknown type %q", t.Name, c.Name, c.Type)
			}

			if c.Default != "" && c.DefaultNow {
				return fmt.Errorf("column '%s.%s': both Default and DefaultNow set", t.Name, c.Name)
			}

			if ref := c.References; ref != nil {
				target, ok := declared[ref.Table]
				if ref.Table == t.Name {
					target, ok = t, true
				}
				if !ok {
					return fmt.Errorf("column '%s.%s' references '%s', which is not declared before it", t.Name, c.Name, ref.Table)
				}
				if _, ok := target.Column(ref.Column); !ok {
					return fmt.Errorf("column '%s.%s' references unknown column '%s.%s'", t.Name, c.Name, ref.Table, ref.Column)
				}
			}
		}

		for _, u := range t.Uniques {
			if !validName.MatchString(u.Name) {
				return fmt.Errorf("invalid constraint name '%s' on '%s'", u.Name, t.Name)
			}
			if err := checkColumns(t, u.Columns); err != nil {
				return fmt.Errorf("constraint '%s': %w", u.Name, err)
			}
		}
		for _, idx := range t.Indexes {
			if !validName.MatchString(idx.Name) {
				return fmt.Errorf("invalid index name '%s' on '%s'", idx.Name, t.Name)
			}
			if err := checkColumns(t, idx.Columns); err != nil {
				return fmt.Errorf("index '%s': %w", idx.Name, err)
			}
		}

		declared[t.Name] = t
	}

	return nil
}

func checkColumns(t Table, cols []string) error {
	if len(cols) == 0 {
		return fmt.Errorf("no columns on table '%s'", t.Name)
	}
	for _, name := range cols {
		if _, ok := t.Column(name); !ok {
			return fmt.Errorf("unknown column '%s.%s'", t.Name, name)
		}
	}
	return nil
}

// uniqueIndexName is the index used to enforce a column-level UNIQUE on a
// column added after the table was created.
func uniqueIndexName(table, column string) string {
	return fmt.Sprintf("uq_%s_%s", table, column)
}
