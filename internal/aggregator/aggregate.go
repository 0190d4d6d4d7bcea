// Package aggregator rolls a month of submissions up into per-region sums
// and keeps the derived rollup snapshot in a key-value cache.
//
// The aggregation worker is the only writer of the snapshot. Its key,
// survey:rollup:{month} (see SnapshotKey), holds the JSON encoding of
// domain.AggregateResult and expires after the configured TTL. Dashboards and
// other external readers consume that key; the survey API itself recomputes
// from storage on every request.
package aggregator

import (
	"math"

	"eldercare-survey/internal/domain"
	"eldercare-survey/internal/validation"
)

// regionAccumulator running state of one region during a pass.
type regionAccumulator struct {
	rollup  domain.RegionRollup
	members map[string]int // institution code -> index in rollup.Members
}

// Aggregate rolls subs up by the directory region of each institution.
//
// Every region known to the directory gets a rollup, including regions with
// no submission. When an institution appears more than once, the record
// submitted last replaces the earlier ones; ties keep input order. Codes the
// directory does not know, and directory entries without a region, are listed
// in Unmatched with a reason and excluded from sums.
func Aggregate(month string, subs []domain.Submission, dir *domain.Directory) domain.AggregateResult {
	result := domain.AggregateResult{Month: month}

	regions := dir.Regions()
	accs := make(map[string]*regionAccumulator, len(regions))
	for _, name := range regions {
		accs[name] = &regionAccumulator{
			rollup:  domain.RegionRollup{Region: name},
			members: map[string]int{},
		}
	}

	for _, inst := range dir.Institutions() {
		acc, ok := accs[inst.Region]
		if !ok {
			continue
		}
		acc.members[inst.Code] = len(acc.rollup.Members)
		acc.rollup.Members = append(acc.rollup.Members, domain.MemberSummary{
			InstitutionCode: inst.Code,
			InstitutionName: inst.Name,
			IsHub:           inst.IsHub,
			Expected:        inst.Expected,
		})
		if inst.Expected {
			acc.rollup.ExpectedCount++
		}
	}

	latest, superseded := latestPerInstitution(subs)
	result.Superseded = superseded

	submittedExpected := 0
	for _, s := range latest {
		inst, ok := dir.Lookup(s.InstitutionCode)
		acc := accs[inst.Region]
		if !ok || acc == nil {
			reason := domain.UnmatchedUnknownInstitution
			if ok {
				reason = domain.UnmatchedNoDirectoryRegion
			}
			result.Unmatched = append(result.Unmatched, domain.UnmatchedSubmission{
				InstitutionCode: s.InstitutionCode,
				InstitutionName: s.InstitutionName,
				Region:          s.Region,
				Reason:          reason,
			})
			continue
		}

		r := &acc.rollup
		r.SubmittedCount++
		r.Sums.Add(s.Counts)
		if s.IsHub {
			r.HubCount++
		}
		if s.Change != nil {
			r.ChangedCount++
		}
		if inst.Expected {
			submittedExpected++
		}

		m := &r.Members[acc.members[inst.Code]]
		m.Submitted = true
		m.SocialWorkerShortfall = shortfall(s.Counts.Allocation.SocialWorkers, s.Counts.SocialWorkers.Total())
		m.CareProviderShortfall = shortfall(s.Counts.Allocation.CareProviders, s.Counts.CareProviders.Total())
		m.UserShortfall = shortfall(s.Counts.Allocation.Users, s.Counts.ServedUsers())
		m.ViolationCount = len(validation.Validate(s))
	}

	province := domain.RegionRollup{Region: domain.ProvinceTotalRegion}
	result.Regions = make([]domain.RegionRollup, 0, len(regions))
	for _, name := range regions {
		r := accs[name].rollup
		result.Regions = append(result.Regions, r)

		province.SubmittedCount += r.SubmittedCount
		province.ExpectedCount += r.ExpectedCount
		province.HubCount += r.HubCount
		province.ChangedCount += r.ChangedCount
		province.Sums.Add(r.Sums)
	}
	result.Province = province
	result.SubmittedCount = province.SubmittedCount
	result.ExpectedCount = dir.ExpectedCount()
	result.SubmissionRate = SubmissionRate(submittedExpected, result.ExpectedCount)

	return result
}

// latestPerInstitution keeps one submission per institution code, preferring
// the later SubmittedAt and, on ties, the later position. Output follows the
// position of each institution's first appearance.
func latestPerInstitution(subs []domain.Submission) ([]domain.Submission, int) {
	index := make(map[string]int, len(subs))
	out := make([]domain.Submission, 0, len(subs))
	superseded := 0
	for _, s := range subs {
		i, seen := index[s.InstitutionCode]
		if !seen {
			index[s.InstitutionCode] = len(out)
			out = append(out, s)
			continue
		}
		superseded++
		if !s.SubmittedAt.Before(out[i].SubmittedAt) {
			out[i] = s
		}
	}
	return out, superseded
}

// SubmissionRate submitted/expected as a rounded percentage; 0 when nothing
// is expected.
func SubmissionRate(submitted, expected int) int {
	if expected <= 0 {
		return 0
	}
	return int(math.Round(float64(submitted) / float64(expected) * 100))
}

func shortfall(allocated, actual int) int {
	if allocated <= 0 || actual >= allocated {
		return 0
	}
	return allocated - actual
}
