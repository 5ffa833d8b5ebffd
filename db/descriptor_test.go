// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"strings"
	"testing"
)

func TestValidate_ManagedSchema(t *testing.T) {
	if err := Validate(Tables()); err != nil {
		t.Fatalf("Managed schema should be valid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	idCol := Column{Name: "id", Type: TypeSerial, PrimaryKey: true}
	parent := Table{Name: "parent", Columns: []Column{idCol}}

	tests := []struct {
		name    string
		tables  []Table
		wantErr string
	}{
		{
			name: "reference to earlier table",
			tables: []Table{parent, {
				Name: "child",
				Columns: []Column{idCol,
					{Name: "parent_id", Type: TypeInteger, References: &Reference{Table: "parent", Column: "id"}}},
			}},
		},
		{
			name: "self reference",
			tables: []Table{{
				Name: "node",
				Columns: []Column{idCol,
					{Name: "parent_id", Type: TypeInteger, References: &Reference{Table: "node", Column: "id"}}},
			}},
		},
		{
			name: "reference to later table",
			tables: []Table{{
				Name: "child",
				Columns: []Column{idCol,
					{Name: "parent_id", Type: TypeInteger, References: &Reference{Table: "parent", Column: "id"}}},
			}, parent},
			wantErr: "not declared before it",
		},
		{
			name: "reference to unknown column",
			tables: []Table{parent, {
				Name: "child",
				Columns: []Column{idCol,
					{Name: "parent_id", Type: TypeInteger, References: &Reference{Table: "parent", Column: "uuid"}}},
			}},
			wantErr: "unknown column 'parent.uuid'",
		},
		{
			name:    "invalid table name",
			tables:  []Table{{Name: "Users; DROP", Columns: []Column{idCol}}},
			wantErr: "invalid table name",
		},
		{
			name:    "invalid column name",
			tables:  []Table{{Name: "users", Columns: []Column{{Name: "First Name", Type: TypeText}}}},
			wantErr: "invalid column name",
		},
		{
			name:    "duplicate table",
			tables:  []Table{parent, parent},
			wantErr: "declared twice",
		},
		{
			name:    "duplicate column",
			tables:  []Table{{Name: "users", Columns: []Column{idCol, idCol}}},
			wantErr: "declared twice",
		},
		{
			name:    "no columns",
			tables:  []Table{{Name: "empty"}},
			wantErr: "has no columns",
		},
		{
			name:    "varchar without size",
			tables:  []Table{{Name: "users", Columns: []Column{{Name: "name", Type: TypeVarchar}}}},
			wantErr: "varchar needs a size",
		},
		{
			name:    "unknown type",
			tables:  []Table{{Name: "users", Columns: []Column{{Name: "data", Type: "jsonb"}}}},
			wantErr: "unknown type",
		},
		{
			name: "conflicting defaults",
			tables: []Table{{Name: "users", Columns: []Column{
				{Name: "created_at", Type: TypeTimestamp, Default: "'2020-01-01'", DefaultNow: true}}}},
			wantErr: "both Default and DefaultNow",
		},
		{
			name: "unique constraint on unknown column",
			tables: []Table{{Name: "users", Columns: []Column{idCol},
				Uniques: []UniqueConstraint{{Name: "users_email_unique", Columns: []string{"email"}}}}},
			wantErr: "unknown column 'users.email'",
		},
		{
			name: "index without columns",
			tables: []Table{{Name: "users", Columns: []Column{idCol},
				Indexes: []Index{{Name: "idx_users"}}}},
			wantErr: "no columns",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.tables)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestTablesDependencyOrder(t *testing.T) {
	seen := map[string]bool{}
	for _, tbl := range Tables() {
		for _, c := range tbl.Columns {
			if c.References != nil && c.References.Table != tbl.Name && !seen[c.References.Table] {
				t.Errorf("%s.%s references %s before it is declared", tbl.Name, c.Name, c.References.Table)
			}
		}
		seen[tbl.Name] = true
	}
}

func TestTable_PrimaryKey(t *testing.T) {
	tables := Tables()
	if pk := tables[0].PrimaryKey(); pk != "id" {
		t.Errorf("Expected students primary key id, got %q", pk)
	}

	noPK := Table{Name: "log", Columns: []Column{{Name: "line", Type: TypeText}}}
	if pk := noPK.PrimaryKey(); pk != "" {
		t.Errorf("Expected no primary key, got %q", pk)
	}
}

func TestPlaceholderUUID(t *testing.T) {
	a := PlaceholderUUID("students", "u1")
	if a != PlaceholderUUID("students", "u1") {
		t.Error("Expected PlaceholderUUID to be deterministic")
	}
	if a == PlaceholderUUID("students", "u2") {
		t.Error("Expected distinct ids to give distinct UUIDs")
	}
	if len(a) != 36 {
		t.Errorf("Expected a 36 character UUID, got %q", a)
	}
}
