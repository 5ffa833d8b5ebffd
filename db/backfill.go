// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Backfill fills NULL values of column c on existing rows of table t and
// returns the number of rows updated.
type Backfill func(ctx context.Context, q Querier, d Dialect, t Table, c Column) (int64, error)

// PlaceholderUUID derives a stable UUID for a row of table from its id.
// Distinct rows get distinct values, so a later UNIQUE constraint holds.
func PlaceholderUUID(table, id string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("skillstown:"+table+"/"+id)).String()
}

// BackfillUUIDFromID sets c to PlaceholderUUID(t, primary key) on every row
// where c is NULL.
func BackfillUUIDFromID(ctx context.Context, q Querier, d Dialect, t Table, c Column) (int64, error) {
	pk := t.PrimaryKey()
	if pk == "" {
		return 0, fmt.Errorf("table %s has no primary key to derive %s from", t.Name, c.Name)
	}

	// Collect ids before updating; some drivers cannot run a statement while
	// a result set is open on the same connection.
	rows, err := q.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %s WHERE %s IS NULL", pk, t.Name, c.Name))
	if err != nil {
		return 0, fmt.Errorf("failed to select rows to backfill: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to read rows to backfill: %w", err)
	}

	update := fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s = %s", t.Name, c.Name, d.Bind(1), pk, d.Bind(2))
	var n int64
	for _, id := range ids {
		res, err := q.ExecContext(ctx, update, PlaceholderUUID(t.Name, id), id)
		if err != nil {
			return n, fmt.Errorf("failed to backfill %s.%s for id %s: %w", t.Name, c.Name, id, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return n, fmt.Errorf("failed to read rows affected: %w", err)
		}
		n += affected
	}

	return n, nil
}
