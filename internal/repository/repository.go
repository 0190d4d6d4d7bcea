// Package repository persists survey submissions and the institution
// directory. The reconciliation core never sees these types; services load
// a month through them and hand plain domain batches onwards.
package repository

import (
	"context"
	"errors"

	"eldercare-survey/internal/domain"
)

// ErrNotFound the requested record does not exist.
var ErrNotFound = errors.New("not found")

// SubmissionsRepository stores immutable submission records. A correction
// is stored as a new record; nothing is updated in place.
type SubmissionsRepository interface {
	// CreateSubmission stores s and returns its ID. An empty s.ID is assigned.
	CreateSubmission(ctx context.Context, s domain.Submission) (string, error)
	GetSubmission(ctx context.Context, id string) (*domain.Submission, error)
	// ListSubmissionsByMonth returns the month's records ordered by submission time.
	ListSubmissionsByMonth(ctx context.Context, month string) ([]domain.Submission, error)
	// ListMonths returns every month label with at least one record, most recent first.
	ListMonths(ctx context.Context) ([]string, error)
	DeleteSubmission(ctx context.Context, id string) error
}

// InstitutionsRepository stores the institution directory keyed by code.
type InstitutionsRepository interface {
	UpsertInstitution(ctx context.Context, inst domain.Institution) error
	GetInstitution(ctx context.Context, code string) (*domain.Institution, error)
	// ListInstitutions returns the whole directory ordered by code.
	ListInstitutions(ctx context.Context) ([]domain.Institution, error)
	DeleteInstitution(ctx context.Context, code string) error
}
