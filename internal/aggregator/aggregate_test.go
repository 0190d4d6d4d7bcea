package aggregator_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	agg "eldercare-survey/internal/aggregator"
	"eldercare-survey/internal/domain"
)

func testDirectory() *domain.Directory {
	return domain.NewDirectory([]domain.Institution{
		{Code: "C01", Name: "창원노인복지관", Region: "창원시", IsHub: true, Expected: true},
		{Code: "C02", Name: "마산재가센터", Region: "창원시", Expected: true},
		{Code: "J01", Name: "진주복지관", Region: "진주시", Expected: true},
		{Code: "H01", Name: "합천노인회", Region: "합천군", Expected: false},
	})
}

func sub(code string, at time.Time, values map[string]int) domain.Submission {
	s := domain.Submission{InstitutionCode: code, SubmittedAt: at}
	for k, v := range values {
		s.Counts.Set(k, v)
	}
	return s
}

func TestAggregate_EveryRegionPresentInCanonicalOrder(t *testing.T) {
	res := agg.Aggregate("2025_3월", nil, testDirectory())

	require.Len(t, res.Regions, len(domain.Regions))
	for i, r := range res.Regions {
		assert.Equal(t, domain.Regions[i], r.Region)
		assert.Zero(t, r.SubmittedCount)
		assert.Equal(t, domain.Counts{}, r.Sums)
	}
	assert.Equal(t, 3, res.ExpectedCount)
	assert.Zero(t, res.SubmissionRate)
}

func TestAggregate_ZeroSubmissionDistinguishableFromZeroData(t *testing.T) {
	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	res := agg.Aggregate("2025_3월", []domain.Submission{sub("J01", at, nil)}, testDirectory())

	jinju, ok := res.Region("진주시")
	require.True(t, ok)
	hapcheon, ok := res.Region("합천군")
	require.True(t, ok)

	assert.Equal(t, domain.Counts{}, jinju.Sums)
	assert.Equal(t, domain.Counts{}, hapcheon.Sums)
	assert.Equal(t, 1, jinju.SubmittedCount)
	assert.Equal(t, 0, hapcheon.SubmittedCount)
}

func TestAggregate_SingleInstitutionIdentity(t *testing.T) {
	values := map[string]int{}
	for i, k := range domain.NumericFieldKeys() {
		values[k] = i + 1
	}
	s := sub("C02", time.Now(), values)

	res := agg.Aggregate("2025_3월", []domain.Submission{s}, testDirectory())

	changwon, ok := res.Region("창원시")
	require.True(t, ok)
	assert.Equal(t, s.Counts, changwon.Sums)
	assert.Equal(t, s.Counts, res.Province.Sums)
	assert.Equal(t, domain.ProvinceTotalRegion, res.Province.Region)
}

func TestAggregate_SumsAndRate(t *testing.T) {
	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	subs := []domain.Submission{
		sub("C01", at, map[string]int{domain.FieldSocialWorkerMale: 2, domain.FieldCareProviderFemale: 10, domain.FieldGeneralFemale: 100}),
		sub("C02", at, map[string]int{domain.FieldSocialWorkerFemale: 1, domain.FieldCareProviderFemale: 5, domain.FieldFocusedMale: 20}),
		sub("H01", at, map[string]int{domain.FieldCareProviderMale: 1}),
	}
	subs[0].IsHub = true
	subs[1].Change = &domain.ChangeRecord{Users: 3}

	res := agg.Aggregate("2025_3월", subs, testDirectory())

	changwon, _ := res.Region("창원시")
	assert.Equal(t, 2, changwon.SubmittedCount)
	assert.Equal(t, 2, changwon.ExpectedCount)
	assert.Equal(t, 1, changwon.HubCount)
	assert.Equal(t, 1, changwon.ChangedCount)
	assert.Equal(t, 3, changwon.SocialWorkers())
	assert.Equal(t, 15, changwon.CareProviders())
	assert.Equal(t, 120, changwon.ServedUsers())

	assert.Equal(t, 3, res.SubmittedCount)
	assert.Equal(t, 3, res.ExpectedCount)
	// H01 is not expected this month: 2 of 3 expected submitted.
	assert.Equal(t, 67, res.SubmissionRate)
	assert.Equal(t, 16, res.Province.CareProviders())
}

func TestAggregate_UnmatchedSurfaced(t *testing.T) {
	s := sub("ZZ9", time.Now(), map[string]int{domain.FieldSocialWorkerMale: 7})
	s.InstitutionName = "미등록기관"
	s.Region = "창원시"

	res := agg.Aggregate("2025_3월", []domain.Submission{s}, testDirectory())

	require.Len(t, res.Unmatched, 1)
	assert.Equal(t, "ZZ9", res.Unmatched[0].InstitutionCode)
	assert.Equal(t, domain.UnmatchedUnknownInstitution, res.Unmatched[0].Reason)
	assert.Zero(t, res.Province.SocialWorkers())
	assert.Zero(t, res.SubmittedCount)
}

func TestAggregate_DirectoryEntryWithoutRegion(t *testing.T) {
	dir := domain.NewDirectory([]domain.Institution{
		{Code: "C01", Name: "창원노인복지관", Region: "창원시", Expected: true},
		{Code: "N01", Name: "지역미상기관", Expected: true},
	})
	subs := []domain.Submission{
		sub("N01", time.Now(), map[string]int{domain.FieldCareProviderMale: 3}),
		sub("ZZ9", time.Now(), nil),
	}

	res := agg.Aggregate("2025_3월", subs, dir)

	require.Len(t, res.Unmatched, 2)
	assert.Equal(t, "N01", res.Unmatched[0].InstitutionCode)
	assert.Equal(t, domain.UnmatchedNoDirectoryRegion, res.Unmatched[0].Reason)
	assert.Equal(t, domain.UnmatchedUnknownInstitution, res.Unmatched[1].Reason)
	assert.Zero(t, res.Province.CareProviders())
}

func TestAggregate_LatestCorrectionWins(t *testing.T) {
	first := time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC)
	later := first.Add(48 * time.Hour)
	subs := []domain.Submission{
		sub("J01", later, map[string]int{domain.FieldSocialWorkerMale: 4}),
		sub("J01", first, map[string]int{domain.FieldSocialWorkerMale: 9}),
		sub("C01", first, map[string]int{domain.FieldSocialWorkerMale: 1}),
		sub("C01", first, map[string]int{domain.FieldSocialWorkerMale: 2}),
	}

	res := agg.Aggregate("2025_3월", subs, testDirectory())

	jinju, _ := res.Region("진주시")
	changwon, _ := res.Region("창원시")
	assert.Equal(t, 4, jinju.SocialWorkers())
	assert.Equal(t, 2, changwon.SocialWorkers())
	assert.Equal(t, 2, res.Superseded)
	assert.Equal(t, 2, res.SubmittedCount)
}

func TestAggregate_MemberSummaries(t *testing.T) {
	s := sub("C01", time.Now(), map[string]int{
		domain.FieldSocialWorkerMale:       1,
		domain.FieldAllocatedSocialWorkers: 3,
		domain.FieldCareProviderMale:       6,
		domain.FieldAllocatedCareProviders: 5,
		domain.FieldSpecializedMale:        2,
	})

	res := agg.Aggregate("2025_3월", []domain.Submission{s}, testDirectory())

	changwon, _ := res.Region("창원시")
	require.Len(t, changwon.Members, 2)
	m := changwon.Members[0]
	assert.Equal(t, "C01", m.InstitutionCode)
	assert.True(t, m.Submitted)
	assert.Equal(t, 2, m.SocialWorkerShortfall)
	assert.Zero(t, m.CareProviderShortfall)
	// care provider ceiling (2 fields) and specialized male (1 field)
	assert.Equal(t, 3, m.ViolationCount)
	assert.False(t, changwon.Members[1].Submitted)
}

func TestAggregate_NonCanonicalDirectoryRegionKeptAfterCanonical(t *testing.T) {
	dir := domain.NewDirectory([]domain.Institution{
		{Code: "X1", Region: "부산광역시", Expected: true},
	})
	res := agg.Aggregate("2025_3월", []domain.Submission{sub("X1", time.Now(), nil)}, dir)

	last := res.Regions[len(res.Regions)-1]
	assert.Equal(t, "부산광역시", last.Region)
	assert.Equal(t, 1, last.SubmittedCount)
	assert.Equal(t, 100, res.SubmissionRate)
}

func TestSubmissionRate(t *testing.T) {
	assert.Equal(t, 0, agg.SubmissionRate(3, 0))
	assert.Equal(t, 33, agg.SubmissionRate(1, 3))
	assert.Equal(t, 100, agg.SubmissionRate(4, 4))
}
