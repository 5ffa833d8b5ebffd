// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Result describes one reconciliation run.
type Result struct {
	RunID     string
	Dialect   string
	StartedAt time.Time
	Duration  time.Duration

	TablesCreated    []string
	ColumnsAdded     []string // "table.column"
	IndexesCreated   []string
	ForeignKeysAdded []string
	RowsBackfilled   int64

	Success bool
	Err     error
}

// Changed reports whether the run modified the schema.
func (r Result) Changed() bool {
	return len(r.TablesCreated) > 0 || len(r.ColumnsAdded) > 0 ||
		len(r.IndexesCreated) > 0 || len(r.ForeignKeysAdded) > 0
}

// Reconciler brings a live schema up to a list of table descriptors by
// creating missing tables, columns and indexes. It never drops or alters
// what already exists.
type Reconciler struct {
	db      *sql.DB
	dialect Dialect
	tables  []Table
	logger  *slog.Logger
}

type Option func(*Reconciler)

// WithTables replaces the managed schema returned by Tables.
func WithTables(tables []Table) Option {
	return func(r *Reconciler) { r.tables = tables }
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) { r.logger = logger }
}

func NewReconciler(conn *sql.DB, d Dialect, opts ...Option) *Reconciler {
	r := &Reconciler{
		db:      conn,
		dialect: d,
		tables:  Tables(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile runs the reconciler for the managed schema.
func Reconcile(ctx context.Context, conn *sql.DB, d Dialect) Result {
	return NewReconciler(conn, d).Reconcile(ctx)
}

// Reconcile runs one pass. It never panics on database errors; failures are
// logged and returned in Result.Err as an *Error. When the dialect supports
// transactional DDL a failed run leaves the schema as it found it.
func (r *Reconciler) Reconcile(ctx context.Context) Result {
	res := Result{
		RunID:     uuid.NewString(),
		Dialect:   r.dialect.Name(),
		StartedAt: time.Now(),
	}
	log := r.logger.With("run_id", res.RunID, "dialect", res.Dialect)

	log.Info("schema reconciliation started", "tables", len(r.tables))

	err := r.run(ctx, log, &res)
	res.Duration = time.Since(res.StartedAt)

	if err != nil {
		res.Err = err
		log.Error("schema reconciliation failed",
			"error", err,
			"duration_ms", res.Duration.Milliseconds(),
		)
		return res
	}

	res.Success = true
	if res.Changed() {
		log.Info("schema reconciliation completed",
			"tables_created", res.TablesCreated,
			"columns_added", res.ColumnsAdded,
			"indexes_created", res.IndexesCreated,
			"foreign_keys_added", res.ForeignKeysAdded,
			"rows_backfilled", res.RowsBackfilled,
			"duration_ms", res.Duration.Milliseconds(),
		)
	} else {
		log.Info("schema is up to date", "duration_ms", res.Duration.Milliseconds())
	}
	return res
}

func (r *Reconciler) run(ctx context.Context, log *slog.Logger, res *Result) (err error) {
	if vErr := Validate(r.tables); vErr != nil {
		return &Error{Kind: KindDescriptor, Err: vErr}
	}

	if pingErr := r.db.PingContext(ctx); pingErr != nil {
		return connectionError(pingErr)
	}

	var q Querier
	var commit func() error

	if r.dialect.TransactionalDDL() {
		tx, beginErr := r.db.BeginTx(ctx, nil)
		if beginErr != nil {
			return connectionError(fmt.Errorf("failed to begin transaction: %w", beginErr))
		}
		defer func() {
			if err == nil {
				return
			}
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				log.Error("rollback failed", "error", rbErr)
			}
			// Nothing recorded so far survived the rollback.
			res.TablesCreated = nil
			res.ColumnsAdded = nil
			res.IndexesCreated = nil
			res.ForeignKeysAdded = nil
			res.RowsBackfilled = 0
		}()
		q = tx
		commit = tx.Commit
	} else {
		conn, connErr := r.db.Conn(ctx)
		if connErr != nil {
			return connectionError(fmt.Errorf("failed to get connection: %w", connErr))
		}
		defer func() { _ = conn.Close() }()

		log.Warn("dialect has no transactional DDL; a failure can leave partial changes")
		q = conn
		commit = func() error { return nil }
	}

	release, lockErr := r.dialect.Lock(ctx, q)
	if lockErr != nil {
		return connectionError(lockErr)
	}
	defer func() {
		if relErr := release(context.WithoutCancel(ctx)); relErr != nil {
			log.Warn("failed to release migration lock", "error", relErr)
		}
	}()

	if err = r.createTables(ctx, q, log, res); err != nil {
		return err
	}

	if err = r.addColumns(ctx, q, log, res); err != nil {
		return err
	}

	if err = r.createIndexes(ctx, q, log, res); err != nil {
		return err
	}

	if err = r.backfill(ctx, q, log, res); err != nil {
		return err
	}

	if commitErr := commit(); commitErr != nil {
		err = ddlError("", "", "COMMIT", commitErr)
		return err
	}

	return nil
}

func (r *Reconciler) createTables(ctx context.Context, q Querier, log *slog.Logger, res *Result) error {
	existing, err := r.dialect.TableNames(ctx, q)
	if err != nil {
		return introspectionError("", err)
	}

	for _, t := range r.tables {
		if existing[t.Name] {
			log.Debug("table exists", "table", t.Name)
			continue
		}

		stmt := r.dialect.CreateTable(t)
		if _, err := q.ExecContext(ctx, stmt); err != nil {
			return ddlError(t.Name, "", stmt, err)
		}
		existing[t.Name] = true

		log.Info("created table", "table", t.Name)
		res.TablesCreated = append(res.TablesCreated, t.Name)
	}

	return nil
}

// addColumns adds missing columns, then the unique indexes and foreign keys
// of each table that did not come with the column. Every step is checked
// against the live schema, so a run that stopped midway on a dialect
// without transactional DDL is completed by the next one.
func (r *Reconciler) addColumns(ctx context.Context, q Querier, log *slog.Logger, res *Result) error {
	for _, t := range r.tables {
		existing, err := r.dialect.ColumnNames(ctx, q, t.Name)
		if err != nil {
			return introspectionError(t.Name, err)
		}

		for _, c := range t.Columns {
			if existing[c.Name] {
				continue
			}

			for _, stmt := range r.dialect.AddColumn(t, c) {
				if _, err := q.ExecContext(ctx, stmt); err != nil {
					return ddlError(t.Name, c.Name, stmt, err)
				}
			}

			log.Info("added column", "table", t.Name, "column", c.Name)
			res.ColumnsAdded = append(res.ColumnsAdded, t.Name+"."+c.Name)
		}

		if err := r.ensureUnique(ctx, q, log, res, t); err != nil {
			return err
		}
		if err := r.ensureForeignKeys(ctx, q, log, res, t); err != nil {
			return err
		}
	}

	return nil
}

// ensureUnique creates uniqueIndexName for every UNIQUE column that no
// single-column unique index covers yet.
func (r *Reconciler) ensureUnique(ctx context.Context, q Querier, log *slog.Logger, res *Result, t Table) error {
	var unique []Column
	for _, c := range t.Columns {
		if c.Unique && !c.PrimaryKey && c.Type != TypeSerial {
			unique = append(unique, c)
		}
	}
	if len(unique) == 0 {
		return nil
	}

	covered, err := r.dialect.UniqueColumns(ctx, q, t.Name)
	if err != nil {
		return introspectionError(t.Name, err)
	}

	for _, c := range unique {
		if covered[c.Name] {
			continue
		}

		idx := Index{Name: uniqueIndexName(t.Name, c.Name), Columns: []string{c.Name}, Unique: true}
		stmt := r.dialect.CreateIndex(t, idx)
		if _, err := q.ExecContext(ctx, stmt); err != nil {
			return ddlError(t.Name, c.Name, stmt, err)
		}

		log.Info("created index", "table", t.Name, "index", idx.Name)
		res.IndexesCreated = append(res.IndexesCreated, idx.Name)
	}

	return nil
}

// ensureForeignKeys adds missing references on dialects that cannot declare
// them inside ADD COLUMN. Elsewhere the reference is part of the column.
func (r *Reconciler) ensureForeignKeys(ctx context.Context, q Querier, log *slog.Logger, res *Result, t Table) error {
	adder, ok := r.dialect.(ForeignKeyAdder)
	if !ok {
		return nil
	}

	var refs []Column
	for _, c := range t.Columns {
		if c.References != nil {
			refs = append(refs, c)
		}
	}
	if len(refs) == 0 {
		return nil
	}

	present, err := adder.ForeignKeyColumns(ctx, q, t.Name)
	if err != nil {
		return introspectionError(t.Name, err)
	}

	for _, c := range refs {
		if present[c.Name] {
			continue
		}

		stmt := adder.AddForeignKey(t, c)
		if _, err := q.ExecContext(ctx, stmt); err != nil {
			return ddlError(t.Name, c.Name, stmt, err)
		}

		name := foreignKeyName(t.Name, c.Name)
		log.Info("added foreign key", "table", t.Name, "column", c.Name, "constraint", name)
		res.ForeignKeysAdded = append(res.ForeignKeysAdded, name)
	}

	return nil
}

func (r *Reconciler) createIndexes(ctx context.Context, q Querier, log *slog.Logger, res *Result) error {
	for _, t := range r.tables {
		if len(t.Indexes) == 0 {
			continue
		}

		existing, err := r.dialect.IndexNames(ctx, q, t.Name)
		if err != nil {
			return introspectionError(t.Name, err)
		}

		for _, idx := range t.Indexes {
			if existing[idx.Name] {
				continue
			}

			stmt := r.dialect.CreateIndex(t, idx)
			if _, err := q.ExecContext(ctx, stmt); err != nil {
				return ddlError(t.Name, "", stmt, err)
			}

			log.Info("created index", "table", t.Name, "index", idx.Name)
			res.IndexesCreated = append(res.IndexesCreated, idx.Name)
		}
	}

	return nil
}

// backfill runs the fix-up of every column that declares one. A Backfill
// only touches NULL values, so it is a no-op once a column is filled.
func (r *Reconciler) backfill(ctx context.Context, q Querier, log *slog.Logger, res *Result) error {
	for _, t := range r.tables {
		for _, c := range t.Columns {
			if c.Backfill == nil {
				continue
			}

			n, err := c.Backfill(ctx, q, r.dialect, t, c)
			if err != nil {
				return ddlError(t.Name, c.Name, "", err)
			}
			if n > 0 {
				log.Info("backfilled column", "table", t.Name, "column", c.Name, "rows", n)
			}
			res.RowsBackfilled += n
		}
	}

	return nil
}
