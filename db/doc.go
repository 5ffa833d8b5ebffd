// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db owns the database schema: a declarative list of table
descriptors and the reconciler that brings a live database up to it.

# Reconciliation

Reconcile compares the descriptors with the live schema and applies only
what is missing:

	res := db.Reconcile(ctx, conn, dialect)
	if !res.Success {
		slog.Error("schema reconciliation failed", "error", res.Err)
	}

A run creates missing tables in declared order, adds missing columns with
ALTER TABLE ... ADD COLUMN, creates missing indexes, and backfills NULL
values of columns that declare a Backfill. It never drops or alters an
existing table or column, even when its type differs from the descriptor. A
second run on an unchanged database reports no changes.

A UNIQUE column added to an existing table gets its own unique index,
uq_<table>_<column>, created whenever no single-column unique index covers
the column. On MySQL a reference on an added column becomes a separate
fk_<table>_<column> constraint, added whenever the column has none.

On PostgreSQL and SQLite the whole run is one transaction and a failure
rolls everything back. MySQL commits DDL implicitly, so statements executed
before a failure stay applied; since every step is checked against the live
schema first, the next run picks up where the failed one stopped.

# Plain Creation

CreateSchema only executes the CREATE TABLE IF NOT EXISTS statements and
missing indexes. Safe to call multiple times.

# Tables

	students 1──* skillstown_user_courses
	skillstown_user_courses 1──* skillstown_course_details
	students 1──* skillstown_user_profiles
	skillstown_user_courses 1──* skillstown_course_quizzes
	skillstown_course_quizzes 1──* skillstown_quiz_attempts
	students 1──* skillstown_quiz_attempts
	students 1──* skillstown_user_learning_progress

Validate rejects a descriptor list where a table references one declared
after it.

# Dialects

  - Postgres: github.com/lib/pq, advisory lock per run
  - SQLite: modernc.org/sqlite
  - MySQL: github.com/go-sql-driver/mysql, GET_LOCK per run

Open picks the dialect from DATABASE_TYPE or the URL scheme.
*/
package db
