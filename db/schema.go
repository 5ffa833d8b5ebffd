// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// CreateSchema creates all tables and indexes needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS and skips indexes that
// already exist. Unlike Reconcile it never patches columns of existing tables.
func CreateSchema(ctx context.Context, conn *sql.DB, d Dialect) error {
	tables := Tables()
	if err := Validate(tables); err != nil {
		return fmt.Errorf("failed to validate schema: %w", err)
	}

	for _, t := range tables {
		if _, err := conn.ExecContext(ctx, d.CreateTable(t)); err != nil {
			return fmt.Errorf("failed to create table %s: %w", t.Name, err)
		}

		if len(t.Indexes) == 0 {
			continue
		}
		existing, err := d.IndexNames(ctx, conn, t.Name)
		if err != nil {
			return fmt.Errorf("failed to list indexes of %s: %w", t.Name, err)
		}
		for _, idx := range t.Indexes {
			if existing[idx.Name] {
				continue
			}
			if _, err := conn.ExecContext(ctx, d.CreateIndex(t, idx)); err != nil {
				return fmt.Errorf("failed to create index %s: %w", idx.Name, err)
			}
		}
	}

	slog.Debug("schema created", "dialect", d.Name(), "tables", len(tables))
	return nil
}

// Tables returns the managed schema in dependency order: a table is always
// declared after every table it references.
func Tables() []Table {
	return []Table{
		{
			Name: "students",
			Columns: []Column{
				{Name: "id", Type: TypeVarchar, Size: 36, PrimaryKey: true},
				{Name: "username", Type: TypeVarchar, Size: 80, NotNull: true, Unique: true},
				{Name: "email", Type: TypeVarchar, Size: 120, NotNull: true, Unique: true},
				{Name: "password_hash", Type: TypeVarchar, Size: 255, NotNull: true},
				{Name: "created_at", Type: TypeTimestamp, DefaultNow: true},
				{Name: "quiz_user_uuid", Type: TypeVarchar, Size: 36, Unique: true, Backfill: BackfillUUIDFromID},
			},
		},
		{
			Name: "skillstown_user_courses",
			Columns: []Column{
				{Name: "id", Type: TypeSerial, PrimaryKey: true},
				{Name: "user_id", Type: TypeVarchar, Size: 36, NotNull: true,
					References: &Reference{Table: "students", Column: "id", OnDelete: OnDeleteCascade}},
				{Name: "category", Type: TypeVarchar, Size: 100, NotNull: true},
				{Name: "course_name", Type: TypeVarchar, Size: 255, NotNull: true},
				{Name: "status", Type: TypeVarchar, Size: 50, Default: "'enrolled'"},
				{Name: "created_at", Type: TypeTimestamp, DefaultNow: true},
			},
			Uniques: []UniqueConstraint{
				{Name: "skillstown_user_course_unique", Columns: []string{"user_id", "course_name"}},
			},
		},
		{
			Name: "skillstown_course_details",
			Columns: []Column{
				{Name: "id", Type: TypeSerial, PrimaryKey: true},
				{Name: "user_course_id", Type: TypeInteger, NotNull: true,
					References: &Reference{Table: "skillstown_user_courses", Column: "id", OnDelete: OnDeleteCascade}},
				{Name: "description", Type: TypeText},
				{Name: "progress_percentage", Type: TypeInteger, Default: "0"},
				{Name: "completed_at", Type: TypeTimestamp},
				{Name: "materials", Type: TypeText},
				{Name: "quiz_results", Type: TypeText},
				{Name: "created_at", Type: TypeTimestamp, DefaultNow: true},
			},
		},
		{
			Name: "skillstown_user_profiles",
			Columns: []Column{
				{Name: "id", Type: TypeSerial, PrimaryKey: true},
				{Name: "user_id", Type: TypeVarchar, Size: 36, NotNull: true,
					References: &Reference{Table: "students", Column: "id"}},
				{Name: "cv_text", Type: TypeText},
				{Name: "job_description", Type: TypeText},
				{Name: "skills", Type: TypeText},
				{Name: "skill_analysis", Type: TypeText},
				{Name: "uploaded_at", Type: TypeTimestamp, DefaultNow: true},
			},
		},
		{
			Name: "skillstown_course_quizzes",
			Columns: []Column{
				{Name: "id", Type: TypeSerial, PrimaryKey: true},
				{Name: "user_course_id", Type: TypeInteger, NotNull: true,
					References: &Reference{Table: "skillstown_user_courses", Column: "id", OnDelete: OnDeleteCascade}},
				{Name: "quiz_api_id", Type: TypeVarchar, Size: 100, NotNull: true},
				{Name: "quiz_title", Type: TypeVarchar, Size: 255},
				{Name: "quiz_description", Type: TypeText},
				{Name: "questions_count", Type: TypeInteger},
				{Name: "created_at", Type: TypeTimestamp, DefaultNow: true},
			},
		},
		{
			Name: "skillstown_quiz_attempts",
			Columns: []Column{
				{Name: "id", Type: TypeSerial, PrimaryKey: true},
				{Name: "user_id", Type: TypeVarchar, Size: 36, NotNull: true,
					References: &Reference{Table: "students", Column: "id", OnDelete: OnDeleteCascade}},
				// NotNull is dropped when this is added to a legacy table.
				{Name: "course_quiz_id", Type: TypeInteger, NotNull: true,
					References: &Reference{Table: "skillstown_course_quizzes", Column: "id", OnDelete: OnDeleteCascade}},
				{Name: "attempt_api_id", Type: TypeVarchar, Size: 100, NotNull: true},
				{Name: "score", Type: TypeInteger},
				{Name: "total_questions", Type: TypeInteger},
				{Name: "correct_answers", Type: TypeInteger},
				{Name: "feedback_strengths", Type: TypeText},
				{Name: "feedback_improvements", Type: TypeText},
				{Name: "user_answers", Type: TypeText},
				{Name: "completed_at", Type: TypeTimestamp, DefaultNow: true},
			},
		},
		{
			Name: "skillstown_user_learning_progress",
			Columns: []Column{
				{Name: "id", Type: TypeSerial, PrimaryKey: true},
				{Name: "user_id", Type: TypeVarchar, Size: 36, NotNull: true,
					References: &Reference{Table: "students", Column: "id"}},
				{Name: "course_id", Type: TypeVarchar, Size: 50, NotNull: true},
				{Name: "knowledge_areas", Type: TypeText, Default: "'{}'"},
				{Name: "weak_areas", Type: TypeText, Default: "'[]'"},
				{Name: "strong_areas", Type: TypeText, Default: "'[]'"},
				{Name: "recommended_topics", Type: TypeText, Default: "'[]'"},
				{Name: "learning_curve", Type: TypeText, Default: "'[]'"},
				{Name: "overall_progress", Type: TypeInteger, Default: "0"},
				{Name: "mastery_level", Type: TypeVarchar, Size: 20, Default: "'beginner'"},
				{Name: "last_updated", Type: TypeTimestamp, DefaultNow: true},
			},
			Uniques: []UniqueConstraint{
				{Name: "unique_user_course_progress", Columns: []string{"user_id", "course_id"}},
			},
			Indexes: []Index{
				{Name: "idx_user_course_progress", Columns: []string{"user_id", "course_id"}},
			},
		},
	}
}
