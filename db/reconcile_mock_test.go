// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcile_PingFailure(t *testing.T) {
	conn, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	res := NewReconciler(conn, Postgres{}, WithLogger(quietLogger)).Reconcile(context.Background())

	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, ErrConnection)
	assert.Contains(t, res.Err.Error(), "connection refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcile_PostgresIntrospectionFailure(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock($1)")).
		WithArgs(advisoryLockKey).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM information_schema.tables").
		WillReturnError(errors.New("permission denied for schema public"))
	mock.ExpectRollback()

	res := NewReconciler(conn, Postgres{}, WithLogger(quietLogger)).Reconcile(context.Background())

	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, ErrIntrospection)

	var rerr *Error
	require.ErrorAs(t, res.Err, &rerr)
	assert.Equal(t, KindIntrospection, rerr.Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcile_PostgresLockFailure(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock($1)")).
		WithArgs(advisoryLockKey).
		WillReturnError(errors.New("canceling statement due to lock timeout"))
	mock.ExpectRollback()

	res := NewReconciler(conn, Postgres{}, WithLogger(quietLogger)).Reconcile(context.Background())

	assert.ErrorIs(t, res.Err, ErrConnection)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcile_PostgresCreatesMissingTable(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	tables := []Table{{
		Name: "students",
		Columns: []Column{
			{Name: "id", Type: TypeVarchar, Size: 36, PrimaryKey: true},
			{Name: "username", Type: TypeVarchar, Size: 80, NotNull: true},
		},
	}}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock($1)")).
		WithArgs(advisoryLockKey).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM information_schema.tables").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}))
	mock.ExpectExec(regexp.QuoteMeta(Postgres{}.CreateTable(tables[0]))).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs("students").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}).AddRow("id").AddRow("username"))
	mock.ExpectCommit()

	res := NewReconciler(conn, Postgres{}, WithTables(tables), WithLogger(quietLogger)).Reconcile(context.Background())

	require.NoError(t, res.Err)
	assert.True(t, res.Success)
	assert.Equal(t, []string{"students"}, res.TablesCreated)
	assert.Empty(t, res.ColumnsAdded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcile_PostgresCommitFailure(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	tables := []Table{{
		Name:    "students",
		Columns: []Column{{Name: "id", Type: TypeVarchar, Size: 36, PrimaryKey: true}},
	}}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock($1)")).
		WithArgs(advisoryLockKey).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM information_schema.tables").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("students"))
	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs("students").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}).AddRow("id"))
	mock.ExpectCommit().WillReturnError(errors.New("could not serialize access"))

	res := NewReconciler(conn, Postgres{}, WithTables(tables), WithLogger(quietLogger)).Reconcile(context.Background())

	assert.ErrorIs(t, res.Err, ErrDDL)

	var rerr *Error
	require.ErrorAs(t, res.Err, &rerr)
	assert.Equal(t, "COMMIT", rerr.Statement)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcile_MySQLLockTimeout(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT GET_LOCK(?, ?)")).
		WithArgs(migrationLockName, lockTimeoutSeconds).
		WillReturnRows(sqlmock.NewRows([]string{"GET_LOCK"}).AddRow(0))

	res := NewReconciler(conn, MySQL{}, WithLogger(quietLogger)).Reconcile(context.Background())

	assert.ErrorIs(t, res.Err, ErrConnection)
	assert.Contains(t, res.Err.Error(), "timed out")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcile_MySQLReleasesLockOnFailure(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT GET_LOCK(?, ?)")).
		WithArgs(migrationLockName, lockTimeoutSeconds).
		WillReturnRows(sqlmock.NewRows([]string{"GET_LOCK"}).AddRow(1))
	mock.ExpectQuery("FROM information_schema.tables").
		WillReturnError(errors.New("Access denied"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT RELEASE_LOCK(?)")).
		WithArgs(migrationLockName).
		WillReturnRows(sqlmock.NewRows([]string{"RELEASE_LOCK"}).AddRow(1))

	res := NewReconciler(conn, MySQL{}, WithLogger(quietLogger)).Reconcile(context.Background())

	assert.ErrorIs(t, res.Err, ErrIntrospection)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// mysqlTables is a two-table schema with a UNIQUE backfilled column and a
// reference, the two column shapes MySQL adds with extra statements.
func mysqlTables() []Table {
	return []Table{
		{
			Name: "students",
			Columns: []Column{
				{Name: "id", Type: TypeVarchar, Size: 36, PrimaryKey: true},
				{Name: "quiz_user_uuid", Type: TypeVarchar, Size: 36, Unique: true, Backfill: BackfillUUIDFromID},
			},
		},
		{
			Name: "courses",
			Columns: []Column{
				{Name: "id", Type: TypeSerial, PrimaryKey: true},
				{Name: "user_id", Type: TypeVarchar, Size: 36, NotNull: true,
					References: &Reference{Table: "students", Column: "id", OnDelete: OnDeleteCascade}},
			},
		},
	}
}

func expectMySQLLock(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT GET_LOCK(?, ?)")).
		WithArgs(migrationLockName, lockTimeoutSeconds).
		WillReturnRows(sqlmock.NewRows([]string{"GET_LOCK"}).AddRow(1))
}

func expectMySQLRelease(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT RELEASE_LOCK(?)")).
		WithArgs(migrationLockName).
		WillReturnRows(sqlmock.NewRows([]string{"RELEASE_LOCK"}).AddRow(1))
}

func TestReconcile_MySQLAddsColumnsWithConstraints(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	expectMySQLLock(mock)
	mock.ExpectQuery("FROM information_schema.tables").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("students").AddRow("courses"))

	// students: add the column, then its unique index.
	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs("students").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}).AddRow("id"))
	mock.ExpectExec(regexp.QuoteMeta("ALTER TABLE students ADD COLUMN quiz_user_uuid VARCHAR(36)")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM information_schema.statistics").
		WithArgs("students").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}).AddRow("id"))
	mock.ExpectExec(regexp.QuoteMeta("CREATE UNIQUE INDEX uq_students_quiz_user_uuid ON students (quiz_user_uuid)")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	// courses: add the column, then its foreign key.
	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs("courses").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}).AddRow("id"))
	mock.ExpectExec(regexp.QuoteMeta("ALTER TABLE courses ADD COLUMN user_id VARCHAR(36)")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM information_schema.key_column_usage").
		WithArgs("courses").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}))
	mock.ExpectExec(regexp.QuoteMeta("ALTER TABLE courses ADD CONSTRAINT fk_courses_user_id FOREIGN KEY (user_id) REFERENCES students(id) ON DELETE CASCADE")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	// backfill of existing students
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM students WHERE quiz_user_uuid IS NULL")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("u1"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET quiz_user_uuid = ? WHERE id = ?")).
		WithArgs(PlaceholderUUID("students", "u1"), "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	expectMySQLRelease(mock)

	res := NewReconciler(conn, MySQL{}, WithTables(mysqlTables()), WithLogger(quietLogger)).Reconcile(context.Background())

	require.NoError(t, res.Err)
	assert.True(t, res.Success)
	assert.Equal(t, []string{"students.quiz_user_uuid", "courses.user_id"}, res.ColumnsAdded)
	assert.Equal(t, []string{"uq_students_quiz_user_uuid"}, res.IndexesCreated)
	assert.Equal(t, []string{"fk_courses_user_id"}, res.ForeignKeysAdded)
	assert.Equal(t, int64(1), res.RowsBackfilled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A MySQL run that added the columns and then stopped leaves the index, the
// foreign key and the backfill undone; the next run finishes them.
func TestReconcile_MySQLCompletesInterruptedRun(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	expectMySQLLock(mock)
	mock.ExpectQuery("FROM information_schema.tables").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("students").AddRow("courses"))

	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs("students").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}).AddRow("id").AddRow("quiz_user_uuid"))
	mock.ExpectQuery("FROM information_schema.statistics").
		WithArgs("students").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}).AddRow("id"))
	mock.ExpectExec(regexp.QuoteMeta("CREATE UNIQUE INDEX uq_students_quiz_user_uuid ON students (quiz_user_uuid)")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs("courses").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}).AddRow("id").AddRow("user_id"))
	mock.ExpectQuery("FROM information_schema.key_column_usage").
		WithArgs("courses").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}))
	mock.ExpectExec(regexp.QuoteMeta("ALTER TABLE courses ADD CONSTRAINT fk_courses_user_id")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM students WHERE quiz_user_uuid IS NULL")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("u1").AddRow("u2"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET quiz_user_uuid = ? WHERE id = ?")).
		WithArgs(PlaceholderUUID("students", "u1"), "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET quiz_user_uuid = ? WHERE id = ?")).
		WithArgs(PlaceholderUUID("students", "u2"), "u2").
		WillReturnResult(sqlmock.NewResult(0, 1))

	expectMySQLRelease(mock)

	res := NewReconciler(conn, MySQL{}, WithTables(mysqlTables()), WithLogger(quietLogger)).Reconcile(context.Background())

	require.NoError(t, res.Err)
	assert.True(t, res.Changed())
	assert.Empty(t, res.ColumnsAdded)
	assert.Equal(t, []string{"uq_students_quiz_user_uuid"}, res.IndexesCreated)
	assert.Equal(t, []string{"fk_courses_user_id"}, res.ForeignKeysAdded)
	assert.Equal(t, int64(2), res.RowsBackfilled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcile_MySQLUpToDate(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	expectMySQLLock(mock)
	mock.ExpectQuery("FROM information_schema.tables").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("students").AddRow("courses"))
	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs("students").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}).AddRow("id").AddRow("quiz_user_uuid"))
	mock.ExpectQuery("FROM information_schema.statistics").
		WithArgs("students").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}).AddRow("id").AddRow("quiz_user_uuid"))
	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs("courses").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}).AddRow("id").AddRow("user_id"))
	mock.ExpectQuery("FROM information_schema.key_column_usage").
		WithArgs("courses").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}).AddRow("user_id"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM students WHERE quiz_user_uuid IS NULL")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	expectMySQLRelease(mock)

	res := NewReconciler(conn, MySQL{}, WithTables(mysqlTables()), WithLogger(quietLogger)).Reconcile(context.Background())

	require.NoError(t, res.Err)
	assert.False(t, res.Changed())
	assert.Zero(t, res.RowsBackfilled)
	assert.NoError(t, mock.ExpectationsWereMet())
}
