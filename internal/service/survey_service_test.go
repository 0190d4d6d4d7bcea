package service

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"eldercare-survey/internal/alert"
	"eldercare-survey/internal/careburden"
	"eldercare-survey/internal/domain"
	"eldercare-survey/internal/events"
	"eldercare-survey/internal/repository"
)

type recordingEvents struct {
	mu     sync.Mutex
	events []events.SurveyEvent
	err    error
}

func (r *recordingEvents) Publish(_ context.Context, ev events.SurveyEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, ev)
	return nil
}

type recordingAlerts struct {
	mu        sync.Mutex
	briefings []alert.Briefing
	failFor   string
}

func (r *recordingAlerts) Publish(_ context.Context, b alert.Briefing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b.Status.Region == r.failFor {
		return errors.New("broker unavailable")
	}
	r.briefings = append(r.briefings, b)
	return nil
}

type failingPopulation struct{}

func (failingPopulation) Estimates(context.Context) (map[string]int, error) {
	return nil, errors.New("population api down")
}

type fixture struct {
	svc    *SurveyService
	subs   *repository.MemorySubmissionsRepo
	events *recordingEvents
	alerts *recordingAlerts
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	subs := repository.NewMemorySubmissionsRepo()
	insts := repository.NewMemoryInstitutionsRepo(
		domain.Institution{Code: "C01", Name: "창원노인복지관", Region: "창원시", IsHub: true, Expected: true},
		domain.Institution{Code: "C02", Name: "마산재가센터", Region: "창원시", Expected: true},
		domain.Institution{Code: "J01", Name: "진주복지관", Region: "진주시", Expected: true},
		domain.Institution{Code: "H01", Name: "합천노인회", Region: "합천군", Expected: true},
	)
	f := &fixture{subs: subs, events: &recordingEvents{}, alerts: &recordingAlerts{}}
	f.svc = NewSurveyService(Deps{
		Submissions:  subs,
		Institutions: insts,
		Population:   careburden.StaticSource{"창원시": 12000, "진주시": 8000},
		Events:       f.events,
		Alerts:       f.alerts,
		Logger:       zap.NewNop(),
	})
	clock := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return f
}

func draft(code string, values map[string]int) domain.Submission {
	s := domain.Submission{InstitutionCode: code}
	for k, v := range values {
		s.Counts.Set(k, v)
	}
	return s
}

func TestSubmit_StoresAndFillsIdentityFromDirectory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Submit(ctx, "2025_3월", draft("J01", map[string]int{domain.FieldCareProviderFemale: 4}))
	require.NoError(t, err)
	assert.NotEmpty(t, res.ID)
	assert.False(t, res.Corrected)

	stored, err := f.subs.GetSubmission(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, "진주복지관", stored.InstitutionName)
	assert.Equal(t, "진주시", stored.Region)
	assert.Equal(t, "2025_3월", stored.Month)
	assert.False(t, stored.SubmittedAt.IsZero())

	require.Len(t, f.events.events, 1)
	assert.Equal(t, events.SubmissionCreated, f.events.events[0].EventType)
	assert.Equal(t, "2025_3월", f.events.events[0].Month)
	assert.Equal(t, res.ID, f.events.events[0].SubmissionID)
}

func TestSubmit_SecondRecordIsCorrection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, "2025_3월", draft("C02", map[string]int{domain.FieldCareProviderMale: 3}))
	require.NoError(t, err)
	res, err := f.svc.Submit(ctx, "2025_3월", draft("C02", map[string]int{domain.FieldCareProviderMale: 5}))
	require.NoError(t, err)
	assert.True(t, res.Corrected)

	all, err := f.svc.ListSubmissions(ctx, "2025_3월")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	rollup, err := f.svc.Rollup(ctx, "2025_3월")
	require.NoError(t, err)
	changwon, ok := rollup.Region("창원시")
	require.True(t, ok)
	assert.Equal(t, 5, changwon.Sums.CareProviders.Male)
	assert.Equal(t, 1, rollup.Superseded)
	assert.Equal(t, events.SubmissionCorrected, f.events.events[1].EventType)
}

func TestSubmit_CorrectionWithOlderClientTimeWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, "2025_3월", draft("J01", map[string]int{domain.FieldCareProviderFemale: 4}))
	require.NoError(t, err)

	correction := draft("J01", map[string]int{domain.FieldCareProviderFemale: 9})
	correction.SubmittedAt = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	res, err := f.svc.Submit(ctx, "2025_3월", correction)
	require.NoError(t, err)
	assert.True(t, res.Corrected)

	stored, err := f.subs.GetSubmission(ctx, res.ID)
	require.NoError(t, err)
	assert.True(t, stored.SubmittedAt.After(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)))

	rollup, err := f.svc.Rollup(ctx, "2025_3월")
	require.NoError(t, err)
	jinju, ok := rollup.Region("진주시")
	require.True(t, ok)
	assert.Equal(t, 9, jinju.Sums.CareProviders.Female)
	assert.Equal(t, 1, rollup.Superseded)
}

func TestSubmit_ZeroPaddedMonthSharesCanonicalMonth(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, "2025_03월", draft("J01", map[string]int{domain.FieldCareProviderMale: 1}))
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, "2025_3월", draft("C01", nil))
	require.NoError(t, err)

	rollup, err := f.svc.Rollup(ctx, "2025_3월")
	require.NoError(t, err)
	assert.Equal(t, 2, rollup.SubmittedCount)
	assert.Equal(t, "2025_3월", rollup.Month)

	months, err := f.svc.Months(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025_3월"}, months.Months)

	padded, err := f.svc.ListSubmissions(ctx, "2025_03월")
	require.NoError(t, err)
	assert.Len(t, padded, 2)
}

func TestSubmit_RejectsInvalidRecord(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Submit(context.Background(), "2025_3월", draft("C01", map[string]int{
		domain.FieldSocialWorkerMale:       3,
		domain.FieldSocialWorkerFemale:     3,
		domain.FieldAllocatedSocialWorkers: 5,
	}))

	require.ErrorIs(t, err, ErrValidationFailed)
	assert.Empty(t, res.ID)
	assert.Contains(t, res.Violations, domain.FieldSocialWorkerMale)
	assert.Contains(t, res.Violations, domain.FieldSocialWorkerFemale)
	assert.Empty(t, f.events.events)

	months, err := f.svc.Months(context.Background())
	require.NoError(t, err)
	assert.Empty(t, months.Months)
}

func TestSubmit_RejectsMalformedMonth(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Submit(context.Background(), "March 2025", draft("C01", nil))
	assert.ErrorIs(t, err, ErrUnknownMonth)
}

func TestSubmit_EventFailureDoesNotFailSubmit(t *testing.T) {
	f := newFixture(t)
	f.events.err = errors.New("redis down")

	res, err := f.svc.Submit(context.Background(), "2025_3월", draft("C01", nil))
	require.NoError(t, err)
	assert.NotEmpty(t, res.ID)
}

func TestMonths_MostRecentFirstWithDefault(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, m := range []string{"2024_12월", "2025_3월", "2025_1월"} {
		_, err := f.svc.Submit(ctx, m, draft("C01", nil))
		require.NoError(t, err)
	}

	res, err := f.svc.Months(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025_3월", "2025_1월", "2024_12월"}, res.Months)
	assert.Equal(t, "2025_3월", res.Default)

	month, err := f.svc.ResolveMonth(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "2025_3월", month)
}

func TestResolveMonth_NoMonthsYet(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ResolveMonth(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnknownMonth)
}

func TestRollup_ReportsUnmatchedAndRate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Submit(ctx, "2025_3월", draft("C01", map[string]int{domain.FieldGeneralFemale: 30}))
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, "2025_3월", draft("X99", map[string]int{domain.FieldGeneralFemale: 500}))
	require.NoError(t, err)

	res, err := f.svc.Rollup(ctx, "2025_3월")
	require.NoError(t, err)

	require.Len(t, res.Unmatched, 1)
	assert.Equal(t, "X99", res.Unmatched[0].InstitutionCode)
	assert.Equal(t, 30, res.Province.Sums.General.Female)
	assert.Equal(t, 25, res.SubmissionRate)
	assert.Len(t, res.Regions, len(domain.Regions))
}

func TestSubmissionValidation_RerunsRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id, err := f.subs.CreateSubmission(ctx, domain.Submission{
		Month:           "2025_3월",
		InstitutionCode: "J01",
		Counts: domain.Counts{
			General:     domain.GenderCount{Male: 2, Female: 3},
			Specialized: domain.GenderCount{Male: 4},
		},
	})
	require.NoError(t, err)

	res, err := f.svc.SubmissionValidation(ctx, "2025_3월", id)
	require.NoError(t, err)
	assert.Contains(t, res, domain.FieldSpecializedMale)

	_, err = f.svc.SubmissionValidation(ctx, "2025_2월", id)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCareBurden_FiltersAndNormalizesRegions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Submit(ctx, "2025_3월", draft("C01", map[string]int{
		domain.FieldSocialWorkerMale:   1,
		domain.FieldCareProviderFemale: 4,
		domain.FieldGeneralMale:        30,
		domain.FieldFocusedFemale:      30,
	}))
	require.NoError(t, err)

	statuses, err := f.svc.CareBurden(ctx, "2025_3월", []string{"창원", "진주시"})
	require.NoError(t, err)
	require.Len(t, statuses, 2)

	assert.Equal(t, "창원시", statuses[0].Region)
	assert.Equal(t, 12000, statuses[0].EstimatedSolitaryElders)
	assert.Equal(t, 5, statuses[0].TotalStaff)
	assert.Equal(t, 12.0, statuses[0].Ratio)
	assert.True(t, statuses[0].Overloaded)

	assert.Equal(t, "진주시", statuses[1].Region)
	assert.Zero(t, statuses[1].Ratio)
	assert.False(t, statuses[1].Overloaded)
}

func TestCareBurden_PopulationFailureDegrades(t *testing.T) {
	f := newFixture(t)
	f.svc.population = failingPopulation{}
	ctx := context.Background()
	_, err := f.svc.Submit(ctx, "2025_3월", draft("J01", nil))
	require.NoError(t, err)

	statuses, err := f.svc.CareBurden(ctx, "", nil)
	require.NoError(t, err)
	require.Len(t, statuses, len(domain.Regions))
	for _, st := range statuses {
		assert.Zero(t, st.EstimatedSolitaryElders)
	}
}

func TestAlertBriefing_PublishesOverloadedRegions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Submit(ctx, "2025_3월", draft("C01", map[string]int{
		domain.FieldCareProviderFemale: 2,
		domain.FieldGeneralFemale:      50,
	}))
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, "2025_3월", draft("J01", map[string]int{
		domain.FieldCareProviderFemale: 1,
		domain.FieldGeneralMale:        40,
	}))
	require.NoError(t, err)
	f.alerts.failFor = "진주시"

	res, err := f.svc.AlertBriefing(ctx, "2025_3월", "heatwave", []string{"창원시", "진주시", "합천군"})
	require.NoError(t, err)

	assert.Equal(t, "2025_3월", res.Month)
	assert.Len(t, res.Statuses, 3)
	assert.Equal(t, []string{"창원시", "진주시"}, res.Overloaded)
	assert.Equal(t, 1, res.Published)
	require.Len(t, f.alerts.briefings, 1)
	assert.Equal(t, "heatwave", f.alerts.briefings[0].AlertType)
	assert.Equal(t, "창원시", f.alerts.briefings[0].Status.Region)
}

func TestExportRollup_WritesWorkbook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Submit(ctx, "2025_3월", draft("C01", map[string]int{domain.FieldGeneralFemale: 5}))
	require.NoError(t, err)

	data, month, err := f.svc.ExportRollup(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "2025_3월", month)

	wb, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer wb.Close()
	assert.Equal(t, []string{"시군별집계 2025_3월"}, wb.GetSheetList())
}

func TestUpsertInstitution_NormalizesRegion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inst, err := f.svc.UpsertInstitution(ctx, domain.Institution{Code: "K01", Name: "김해복지관", Region: "경남 김해"})
	require.NoError(t, err)
	assert.Equal(t, "김해시", inst.Region)

	inst, err = f.svc.UpsertInstitution(ctx, domain.Institution{Code: "K02", Address: "경상남도 거제시 옥포동 1"})
	require.NoError(t, err)
	assert.Equal(t, "거제시", inst.Region)

	_, err = f.svc.UpsertInstitution(ctx, domain.Institution{Code: "K03", Region: "서울특별시"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	require.Len(t, f.events.events, 2)
	assert.Equal(t, events.DirectoryChanged, f.events.events[0].EventType)
}
