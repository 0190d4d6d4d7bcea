// Package careburden derives the staff load of a region from its rollup.
package careburden

import (
	"math"

	"eldercare-survey/internal/domain"
)

// OverloadThreshold users per staff member above which a region is overloaded.
const OverloadThreshold = 10.0

// Estimate computes the care-burden status of one region rollup. population
// is the estimated solitary-elder population of the region, passed through
// for display. The result depends on its arguments only.
func Estimate(r domain.RegionRollup, population int) domain.CareBurdenStatus {
	st := domain.CareBurdenStatus{
		Region:                  r.Region,
		EstimatedSolitaryElders: population,
		SocialWorkers:           r.SocialWorkers(),
		CareProviders:           r.CareProviders(),
		ServedUsers:             r.ServedUsers(),
	}
	st.TotalStaff = st.SocialWorkers + st.CareProviders
	st.Ratio = Ratio(st.ServedUsers, st.TotalStaff)
	st.Overloaded = st.Ratio > OverloadThreshold
	st.Severity = Severity(st.Ratio)
	return st
}

// Ratio users per staff member rounded to one decimal; 0 when either side is 0.
func Ratio(users, staff int) float64 {
	if users <= 0 || staff <= 0 {
		return 0
	}
	return round1(float64(users) / float64(staff))
}

// Severity gauge percentage in [0, 100]; 0 unless ratio exceeds the threshold.
func Severity(ratio float64) float64 {
	if ratio <= OverloadThreshold {
		return 0
	}
	pct := (ratio - OverloadThreshold) / OverloadThreshold * 100
	return round1(math.Min(math.Max(pct, 0), 100))
}

// EstimateAll estimates every region of result in rollup order. When regions
// is non-empty only those regions are returned, still in rollup order.
// Region names in regions are normalized before matching.
func EstimateAll(result domain.AggregateResult, population map[string]int, regions []string) []domain.CareBurdenStatus {
	var want map[string]bool
	if len(regions) > 0 {
		want = make(map[string]bool, len(regions))
		for _, name := range regions {
			if canonical, ok := domain.NormalizeRegion(name); ok {
				want[canonical] = true
			} else {
				want[name] = true
			}
		}
	}

	out := make([]domain.CareBurdenStatus, 0, len(result.Regions))
	for _, r := range result.Regions {
		if want != nil && !want[r.Region] {
			continue
		}
		out = append(out, Estimate(r, population[r.Region]))
	}
	return out
}

// Overloaded filters statuses down to the overloaded ones.
func Overloaded(statuses []domain.CareBurdenStatus) []domain.CareBurdenStatus {
	var out []domain.CareBurdenStatus
	for _, s := range statuses {
		if s.Overloaded {
			out = append(out, s)
		}
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
