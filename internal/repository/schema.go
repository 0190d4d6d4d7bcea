package repository

import (
	"context"
	"database/sql"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS survey_institutions (
		institution_code TEXT PRIMARY KEY,
		institution_name TEXT NOT NULL DEFAULT '',
		region           TEXT NOT NULL DEFAULT '',
		address          TEXT NOT NULL DEFAULT '',
		is_hub           BOOLEAN NOT NULL DEFAULT FALSE,
		expected         BOOLEAN NOT NULL DEFAULT TRUE,
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS survey_submissions (
		submission_id    UUID PRIMARY KEY,
		month            TEXT NOT NULL,
		institution_code TEXT NOT NULL,
		institution_name TEXT NOT NULL DEFAULT '',
		region           TEXT NOT NULL DEFAULT '',
		submitted_at     TIMESTAMPTZ NOT NULL,
		is_hub           BOOLEAN NOT NULL DEFAULT FALSE,
		counts           JSONB NOT NULL DEFAULT '{}'::jsonb,
		change_record    JSONB,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_survey_submissions_month
		ON survey_submissions (month, submitted_at)`,
}

// EnsureSchema creates the survey tables when missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
