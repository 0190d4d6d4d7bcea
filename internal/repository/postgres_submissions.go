package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"eldercare-survey/internal/domain"
)

// PostgresSubmissionsRepository counts and change records live in JSONB
// columns; identity columns are plain for filtering.
type PostgresSubmissionsRepository struct {
	db *sql.DB
}

func NewPostgresSubmissionsRepository(db *sql.DB) *PostgresSubmissionsRepository {
	return &PostgresSubmissionsRepository{db: db}
}

var _ SubmissionsRepository = (*PostgresSubmissionsRepository)(nil)

const submissionColumns = `
	submission_id::text,
	month,
	institution_code,
	institution_name,
	region,
	submitted_at,
	is_hub,
	counts,
	change_record`

func (r *PostgresSubmissionsRepository) CreateSubmission(ctx context.Context, s domain.Submission) (string, error) {
	if s.Month == "" {
		return "", fmt.Errorf("month is required")
	}
	if s.InstitutionCode == "" {
		return "", fmt.Errorf("institution_code is required")
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}

	counts, err := json.Marshal(s.Counts)
	if err != nil {
		return "", fmt.Errorf("failed to marshal counts: %w", err)
	}
	var change []byte
	if s.Change != nil {
		if change, err = json.Marshal(s.Change); err != nil {
			return "", fmt.Errorf("failed to marshal change record: %w", err)
		}
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO survey_submissions (
			submission_id, month, institution_code, institution_name, region,
			submitted_at, is_hub, counts, change_record
		) VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8::jsonb, $9::jsonb)`,
		s.ID, s.Month, s.InstitutionCode, s.InstitutionName, s.Region,
		s.SubmittedAt, s.IsHub, string(counts), nullableJSON(change),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create submission: %w", err)
	}
	return s.ID, nil
}

func (r *PostgresSubmissionsRepository) GetSubmission(ctx context.Context, id string) (*domain.Submission, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+submissionColumns+`
		FROM survey_submissions
		WHERE submission_id = $1::uuid`, id)
	s, err := scanSubmission(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return &s, nil
}

func (r *PostgresSubmissionsRepository) ListSubmissionsByMonth(ctx context.Context, month string) ([]domain.Submission, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+submissionColumns+`
		FROM survey_submissions
		WHERE month = $1
		ORDER BY submitted_at, created_at`, month)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	var out []domain.Submission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate submissions: %w", err)
	}
	return out, nil
}

func (r *PostgresSubmissionsRepository) ListMonths(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT month FROM survey_submissions`)
	if err != nil {
		return nil, fmt.Errorf("failed to list months: %w", err)
	}
	defer rows.Close()

	var labels []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("failed to scan month: %w", err)
		}
		labels = append(labels, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate months: %w", err)
	}
	return domain.SortMonthLabels(labels), nil
}

func (r *PostgresSubmissionsRepository) DeleteSubmission(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM survey_submissions WHERE submission_id = $1::uuid`, id)
	if err != nil {
		return fmt.Errorf("failed to delete submission: %w", err)
	}
	return requireAffected(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row rowScanner) (domain.Submission, error) {
	var (
		s         domain.Submission
		countsRaw []byte
		changeRaw []byte
	)
	if err := row.Scan(
		&s.ID,
		&s.Month,
		&s.InstitutionCode,
		&s.InstitutionName,
		&s.Region,
		&s.SubmittedAt,
		&s.IsHub,
		&countsRaw,
		&changeRaw,
	); err != nil {
		return domain.Submission{}, err
	}
	if len(countsRaw) > 0 {
		if err := json.Unmarshal(countsRaw, &s.Counts); err != nil {
			return domain.Submission{}, fmt.Errorf("failed to decode counts: %w", err)
		}
	}
	if len(changeRaw) > 0 {
		var c domain.ChangeRecord
		if err := json.Unmarshal(changeRaw, &c); err != nil {
			return domain.Submission{}, fmt.Errorf("failed to decode change record: %w", err)
		}
		s.Change = &c
	}
	return s, nil
}

func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
