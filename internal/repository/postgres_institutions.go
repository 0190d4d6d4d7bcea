package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"eldercare-survey/internal/domain"
)

type PostgresInstitutionsRepository struct {
	db *sql.DB
}

func NewPostgresInstitutionsRepository(db *sql.DB) *PostgresInstitutionsRepository {
	return &PostgresInstitutionsRepository{db: db}
}

var _ InstitutionsRepository = (*PostgresInstitutionsRepository)(nil)

func (r *PostgresInstitutionsRepository) UpsertInstitution(ctx context.Context, inst domain.Institution) error {
	if inst.Code == "" {
		return fmt.Errorf("institution_code is required")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO survey_institutions (
			institution_code, institution_name, region, address, is_hub, expected
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (institution_code) DO UPDATE SET
			institution_name = EXCLUDED.institution_name,
			region           = EXCLUDED.region,
			address          = EXCLUDED.address,
			is_hub           = EXCLUDED.is_hub,
			expected         = EXCLUDED.expected,
			updated_at       = NOW()`,
		inst.Code, inst.Name, inst.Region, inst.Address, inst.IsHub, inst.Expected,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert institution: %w", err)
	}
	return nil
}

func (r *PostgresInstitutionsRepository) GetInstitution(ctx context.Context, code string) (*domain.Institution, error) {
	var inst domain.Institution
	err := r.db.QueryRowContext(ctx, `
		SELECT institution_code, institution_name, region, address, is_hub, expected
		FROM survey_institutions
		WHERE institution_code = $1`, code,
	).Scan(&inst.Code, &inst.Name, &inst.Region, &inst.Address, &inst.IsHub, &inst.Expected)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get institution: %w", err)
	}
	return &inst, nil
}

func (r *PostgresInstitutionsRepository) ListInstitutions(ctx context.Context) ([]domain.Institution, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT institution_code, institution_name, region, address, is_hub, expected
		FROM survey_institutions
		ORDER BY institution_code`)
	if err != nil {
		return nil, fmt.Errorf("failed to list institutions: %w", err)
	}
	defer rows.Close()

	var out []domain.Institution
	for rows.Next() {
		var inst domain.Institution
		if err := rows.Scan(&inst.Code, &inst.Name, &inst.Region, &inst.Address, &inst.IsHub, &inst.Expected); err != nil {
			return nil, fmt.Errorf("failed to scan institution: %w", err)
		}
		out = append(out, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate institutions: %w", err)
	}
	return out, nil
}

func (r *PostgresInstitutionsRepository) DeleteInstitution(ctx context.Context, code string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM survey_institutions WHERE institution_code = $1`, code)
	if err != nil {
		return fmt.Errorf("failed to delete institution: %w", err)
	}
	return requireAffected(res)
}
