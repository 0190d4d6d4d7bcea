// Package service wires repositories, the reconciliation core and the
// outbound publishers into the operations the API and worker expose.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"eldercare-survey/internal/aggregator"
	"eldercare-survey/internal/alert"
	"eldercare-survey/internal/careburden"
	"eldercare-survey/internal/domain"
	"eldercare-survey/internal/events"
	"eldercare-survey/internal/ingest"
	"eldercare-survey/internal/metrics"
	"eldercare-survey/internal/repository"
	"eldercare-survey/internal/validation"
)

var (
	// ErrUnknownMonth the month label is malformed, or no month exists yet
	// when the default month was requested.
	ErrUnknownMonth = errors.New("unknown reporting month")

	// ErrValidationFailed the submission has consistency violations and was
	// not stored.
	ErrValidationFailed = errors.New("submission failed validation")

	ErrInvalidInput = errors.New("invalid input")
)

// Deps collaborators of SurveyService. Population, Events, Alerts and
// Metrics may be nil.
type Deps struct {
	Submissions  repository.SubmissionsRepository
	Institutions repository.InstitutionsRepository
	Population   careburden.PopulationSource
	Events       events.Publisher
	Alerts       alert.Publisher
	Metrics      *metrics.Metrics
	Logger       *zap.Logger
}

type SurveyService struct {
	submissions  repository.SubmissionsRepository
	institutions repository.InstitutionsRepository
	population   careburden.PopulationSource
	events       events.Publisher
	alerts       alert.Publisher
	metrics      *metrics.Metrics
	logger       *zap.Logger
	now          func() time.Time
}

func NewSurveyService(d Deps) *SurveyService {
	s := &SurveyService{
		submissions:  d.Submissions,
		institutions: d.Institutions,
		population:   d.Population,
		events:       d.Events,
		alerts:       d.Alerts,
		metrics:      d.Metrics,
		logger:       d.Logger,
		now:          time.Now,
	}
	if s.population == nil {
		s.population = careburden.StaticSource{}
	}
	if s.events == nil {
		s.events = events.NopPublisher{}
	}
	if s.alerts == nil {
		s.alerts = alert.NopPublisher{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// MonthSnapshot a month's submissions and the directory, read together.
// Treat it as immutable.
type MonthSnapshot struct {
	Month       string
	Submissions []domain.Submission
	Directory   *domain.Directory
}

// LoadSnapshot reads the month's submissions and the directory concurrently
// and returns them only when both reads succeeded.
func (s *SurveyService) LoadSnapshot(ctx context.Context, month string) (*MonthSnapshot, error) {
	var (
		subs  []domain.Submission
		insts []domain.Institution
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		subs, err = s.submissions.ListSubmissionsByMonth(gctx, month)
		if err != nil {
			return fmt.Errorf("failed to load submissions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		insts, err = s.institutions.ListInstitutions(gctx)
		if err != nil {
			return fmt.Errorf("failed to load directory: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &MonthSnapshot{Month: month, Submissions: subs, Directory: domain.NewDirectory(insts)}, nil
}

// MonthsResult known month labels, most recent first.
type MonthsResult struct {
	Months  []string `json:"months"`
	Default string   `json:"default"`
}

func (s *SurveyService) Months(ctx context.Context) (MonthsResult, error) {
	months, err := s.submissions.ListMonths(ctx)
	if err != nil {
		return MonthsResult{}, err
	}
	months = domain.SortMonthLabels(months)
	def, _ := domain.DefaultMonth(months)
	return MonthsResult{Months: months, Default: def}, nil
}

// ResolveMonth validates an explicit label or picks the most recent month
// when label is empty.
func (s *SurveyService) ResolveMonth(ctx context.Context, label string) (string, error) {
	if label != "" {
		m, err := domain.ParseMonthLabel(label)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnknownMonth, err)
		}
		return m.Label, nil
	}
	res, err := s.Months(ctx)
	if err != nil {
		return "", err
	}
	if res.Default == "" {
		return "", ErrUnknownMonth
	}
	return res.Default, nil
}

// ValidateDraft checks a submission without storing it.
func (s *SurveyService) ValidateDraft(sub domain.Submission) validation.Result {
	res := validation.Validate(sub)
	s.metrics.ObserveValidation(res.Fields())
	return res
}

// SubmitResult outcome of Submit. Violations is set when err is
// ErrValidationFailed.
type SubmitResult struct {
	ID         string            `json:"id,omitempty"`
	Corrected  bool              `json:"corrected"`
	Violations validation.Result `json:"violations,omitempty"`
}

// Submit validates and stores a new record for month. A record for an
// institution that already reported this month is stored as a correction;
// the earlier record is kept. Identity fields left blank are filled from the
// directory. SubmittedAt is always the time of storage.
func (s *SurveyService) Submit(ctx context.Context, month string, sub domain.Submission) (SubmitResult, error) {
	month, err := s.ResolveMonth(ctx, month)
	if err != nil {
		return SubmitResult{}, err
	}
	if sub.InstitutionCode == "" {
		return SubmitResult{}, fmt.Errorf("%w: institution code is required", ErrInvalidInput)
	}

	if res := s.ValidateDraft(sub); !res.Valid() {
		return SubmitResult{Violations: res}, ErrValidationFailed
	}

	if inst, err := s.institutions.GetInstitution(ctx, sub.InstitutionCode); err == nil {
		if sub.InstitutionName == "" {
			sub.InstitutionName = inst.Name
		}
		if sub.Region == "" {
			sub.Region = inst.Region
		}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return SubmitResult{}, fmt.Errorf("failed to look up institution: %w", err)
	}

	existing, err := s.submissions.ListSubmissionsByMonth(ctx, month)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("failed to load month: %w", err)
	}
	corrected := false
	for _, e := range existing {
		if e.InstitutionCode == sub.InstitutionCode {
			corrected = true
			break
		}
	}

	// the storage time orders corrections; a client-supplied 제출일시 is ignored
	sub.ID = ""
	sub.Month = month
	sub.SubmittedAt = s.now().UTC()
	id, err := s.submissions.CreateSubmission(ctx, sub)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("failed to store submission: %w", err)
	}

	eventType := events.SubmissionCreated
	if corrected {
		eventType = events.SubmissionCorrected
	}
	if err := s.events.Publish(ctx, events.SurveyEvent{
		EventType:       eventType,
		Month:           month,
		InstitutionCode: sub.InstitutionCode,
		SubmissionID:    id,
		Timestamp:       s.now().Unix(),
	}); err != nil {
		// the record is stored; the worker's poll picks it up later
		s.logger.Warn("Failed to publish survey event",
			zap.String("event_type", eventType),
			zap.String("submission_id", id),
			zap.Error(err),
		)
	}

	s.logger.Info("Stored submission",
		zap.String("month", month),
		zap.String("institution_code", sub.InstitutionCode),
		zap.String("submission_id", id),
		zap.Bool("corrected", corrected),
	)
	return SubmitResult{ID: id, Corrected: corrected}, nil
}

func (s *SurveyService) ListSubmissions(ctx context.Context, month string) ([]domain.Submission, error) {
	month, err := s.ResolveMonth(ctx, month)
	if err != nil {
		return nil, err
	}
	return s.submissions.ListSubmissionsByMonth(ctx, month)
}

// SubmissionValidation re-runs the validator on a stored record.
func (s *SurveyService) SubmissionValidation(ctx context.Context, month, id string) (validation.Result, error) {
	sub, err := s.submissions.GetSubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	if month != "" && sub.Month != month {
		return nil, repository.ErrNotFound
	}
	return validation.Validate(*sub), nil
}

// Rollup recomputes the month from a fresh snapshot.
func (s *SurveyService) Rollup(ctx context.Context, month string) (domain.AggregateResult, error) {
	month, err := s.ResolveMonth(ctx, month)
	if err != nil {
		return domain.AggregateResult{}, err
	}
	start := time.Now()
	snap, err := s.LoadSnapshot(ctx, month)
	if err != nil {
		return domain.AggregateResult{}, err
	}
	result := aggregator.Aggregate(snap.Month, snap.Submissions, snap.Directory)
	elapsed := time.Since(start)
	s.metrics.ObserveAggregation(month, elapsed, len(result.Unmatched))

	if len(result.Unmatched) > 0 {
		codes := make([]string, 0, len(result.Unmatched))
		reasons := make([]string, 0, len(result.Unmatched))
		for _, u := range result.Unmatched {
			codes = append(codes, u.InstitutionCode)
			reasons = append(reasons, u.Reason)
		}
		s.logger.Warn("Submissions excluded from rollup without a directory region",
			zap.String("month", month),
			zap.Strings("institution_codes", codes),
			zap.Strings("reasons", reasons),
		)
	}
	s.logger.Debug("Aggregated month",
		zap.String("month", month),
		zap.Int("submissions", len(snap.Submissions)),
		zap.Int("submitted", result.SubmittedCount),
		zap.Int("expected", result.ExpectedCount),
		zap.Duration("duration", elapsed),
	)
	return result, nil
}

// estimates population estimates; a failing source degrades to none.
func (s *SurveyService) estimates(ctx context.Context) map[string]int {
	pop, err := s.population.Estimates(ctx)
	if err != nil {
		s.logger.Warn("Population estimates unavailable", zap.Error(err))
		return map[string]int{}
	}
	return pop
}

// CareBurden estimates every region of the month, or only regions when given.
func (s *SurveyService) CareBurden(ctx context.Context, month string, regions []string) ([]domain.CareBurdenStatus, error) {
	_, statuses, err := s.careBurden(ctx, month, regions)
	return statuses, err
}

func (s *SurveyService) careBurden(ctx context.Context, month string, regions []string) (string, []domain.CareBurdenStatus, error) {
	result, err := s.Rollup(ctx, month)
	if err != nil {
		return "", nil, err
	}
	statuses := careburden.EstimateAll(result, s.estimates(ctx), regions)
	if len(regions) == 0 {
		s.metrics.SetOverloadedRegions(result.Month, len(careburden.Overloaded(statuses)))
	}
	return result.Month, statuses, nil
}

// BriefingResult care-burden view of the regions under a weather alert.
type BriefingResult struct {
	Month      string                    `json:"month"`
	AlertType  string                    `json:"alert_type"`
	Statuses   []domain.CareBurdenStatus `json:"statuses"`
	Overloaded []string                  `json:"overloaded"`
	Published  int                       `json:"published"`
}

// AlertBriefing estimates the alert regions and publishes one briefing per
// overloaded region. Publish failures are logged and not counted.
func (s *SurveyService) AlertBriefing(ctx context.Context, month, alertType string, regions []string) (BriefingResult, error) {
	month, statuses, err := s.careBurden(ctx, month, regions)
	if err != nil {
		return BriefingResult{}, err
	}

	out := BriefingResult{Month: month, AlertType: alertType, Statuses: statuses, Overloaded: []string{}}
	issued := s.now().UTC()
	for _, st := range careburden.Overloaded(statuses) {
		out.Overloaded = append(out.Overloaded, st.Region)
		err := s.alerts.Publish(ctx, alert.Briefing{Month: month, AlertType: alertType, Status: st, IssuedAt: issued})
		if err != nil {
			s.logger.Error("Failed to publish care-burden alert",
				zap.String("region", st.Region),
				zap.Error(err),
			)
			continue
		}
		out.Published++
	}
	return out, nil
}

// ExportRollup renders the month's rollup and care-burden columns as xlsx.
func (s *SurveyService) ExportRollup(ctx context.Context, month string) ([]byte, string, error) {
	result, err := s.Rollup(ctx, month)
	if err != nil {
		return nil, "", err
	}
	statuses := careburden.EstimateAll(result, s.estimates(ctx), nil)
	data, err := ingest.WriteRollupSheet(result, statuses)
	if err != nil {
		return nil, "", err
	}
	return data, result.Month, nil
}

func (s *SurveyService) ListInstitutions(ctx context.Context) ([]domain.Institution, error) {
	return s.institutions.ListInstitutions(ctx)
}

// UpsertInstitution stores one directory entry. The region is normalized and
// must resolve to a known region.
func (s *SurveyService) UpsertInstitution(ctx context.Context, inst domain.Institution) (domain.Institution, error) {
	if inst.Code == "" {
		return domain.Institution{}, fmt.Errorf("%w: institution code is required", ErrInvalidInput)
	}
	region, ok := domain.NormalizeRegion(inst.Region)
	if !ok {
		region, ok = domain.NormalizeRegion(inst.Address)
	}
	if !ok {
		return domain.Institution{}, fmt.Errorf("%w: unknown region %q", ErrInvalidInput, inst.Region)
	}
	inst.Region = region
	if err := s.institutions.UpsertInstitution(ctx, inst); err != nil {
		return domain.Institution{}, err
	}
	s.publishDirectoryChanged(ctx, inst.Code)
	return inst, nil
}

// ImportDirectory upserts every resolvable roster row. Unresolved rows are
// returned for review and not stored.
func (s *SurveyService) ImportDirectory(ctx context.Context, r io.Reader) (ingest.DirectoryImport, error) {
	imp, err := ingest.ReadDirectorySheet(r)
	if err != nil {
		return ingest.DirectoryImport{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	for _, inst := range imp.Institutions {
		if err := s.institutions.UpsertInstitution(ctx, inst); err != nil {
			return ingest.DirectoryImport{}, fmt.Errorf("failed to store institution %s: %w", inst.Code, err)
		}
	}
	s.logger.Info("Imported institution roster",
		zap.Int("imported", len(imp.Institutions)),
		zap.Int("unresolved", len(imp.Unresolved)),
	)
	if len(imp.Institutions) > 0 {
		s.publishDirectoryChanged(ctx, "")
	}
	return imp, nil
}

func (s *SurveyService) publishDirectoryChanged(ctx context.Context, code string) {
	err := s.events.Publish(ctx, events.SurveyEvent{
		EventType:       events.DirectoryChanged,
		InstitutionCode: code,
		Timestamp:       s.now().Unix(),
	})
	if err != nil {
		s.logger.Warn("Failed to publish directory event", zap.Error(err))
	}
}
