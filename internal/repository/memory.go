package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"eldercare-survey/internal/domain"
)

// MemorySubmissionsRepo backs the service when the database is disabled.
type MemorySubmissionsRepo struct {
	mu      sync.RWMutex
	records []domain.Submission // insertion order
}

func NewMemorySubmissionsRepo() *MemorySubmissionsRepo {
	return &MemorySubmissionsRepo{}
}

var _ SubmissionsRepository = (*MemorySubmissionsRepo)(nil)

func (r *MemorySubmissionsRepo) CreateSubmission(_ context.Context, s domain.Submission) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	r.records = append(r.records, copySubmission(s))
	return s.ID, nil
}

func (r *MemorySubmissionsRepo) GetSubmission(_ context.Context, id string) (*domain.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.records {
		if s.ID == id {
			out := copySubmission(s)
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemorySubmissionsRepo) ListSubmissionsByMonth(_ context.Context, month string) ([]domain.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Submission
	for _, s := range r.records {
		if s.Month == month {
			out = append(out, copySubmission(s))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SubmittedAt.Before(out[j].SubmittedAt)
	})
	return out, nil
}

func (r *MemorySubmissionsRepo) ListMonths(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	labels := make([]string, 0, len(r.records))
	for _, s := range r.records {
		labels = append(labels, s.Month)
	}
	return domain.SortMonthLabels(labels), nil
}

func (r *MemorySubmissionsRepo) DeleteSubmission(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, s := range r.records {
		if s.ID == id {
			r.records = append(r.records[:i], r.records[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func copySubmission(s domain.Submission) domain.Submission {
	if s.Change != nil {
		c := *s.Change
		s.Change = &c
	}
	return s
}

// MemoryInstitutionsRepo in-memory directory.
type MemoryInstitutionsRepo struct {
	mu    sync.RWMutex
	items map[string]domain.Institution
}

func NewMemoryInstitutionsRepo(seed ...domain.Institution) *MemoryInstitutionsRepo {
	r := &MemoryInstitutionsRepo{items: make(map[string]domain.Institution, len(seed))}
	for _, inst := range seed {
		r.items[inst.Code] = inst
	}
	return r
}

var _ InstitutionsRepository = (*MemoryInstitutionsRepo)(nil)

func (r *MemoryInstitutionsRepo) UpsertInstitution(_ context.Context, inst domain.Institution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[inst.Code] = inst
	return nil
}

func (r *MemoryInstitutionsRepo) GetInstitution(_ context.Context, code string) (*domain.Institution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.items[code]
	if !ok {
		return nil, ErrNotFound
	}
	return &inst, nil
}

func (r *MemoryInstitutionsRepo) ListInstitutions(_ context.Context) ([]domain.Institution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Institution, 0, len(r.items))
	for _, inst := range r.items {
		out = append(out, inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *MemoryInstitutionsRepo) DeleteInstitution(_ context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[code]; !ok {
		return ErrNotFound
	}
	delete(r.items, code)
	return nil
}
