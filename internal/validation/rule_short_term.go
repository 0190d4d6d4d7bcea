package validation

import (
	"fmt"

	"eldercare-survey/internal/domain"
)

const msgShortTermStaffHubOnly = "short-term staffing not permitted for non-hub institutions"

var shortTermStaffFields = []string{
	domain.FieldShortTermSocialWorkerMale,
	domain.FieldShortTermSocialWorkerFemale,
	domain.FieldShortTermCareProviderMale,
	domain.FieldShortTermCareProviderFemale,
}

// checkHubOnlyShortTermStaff flags all four short-term staffing fields
// together when a non-hub institution reports any of them.
func checkHubOnlyShortTermStaff(s domain.Submission, r Result) {
	if s.IsHub {
		return
	}
	c := s.Counts
	if c.ShortTermSocialWorkers.Total() == 0 && c.ShortTermCareProviders.Total() == 0 {
		return
	}
	r.flag(msgShortTermStaffHubOnly, shortTermStaffFields...)
}

// checkShortTermTotals requires the gender split and the duration split of
// the short-term population to add up to the same total.
func checkShortTermTotals(s domain.Submission, r Result) {
	byGender := s.Counts.ShortTermUsers.Total()
	byDuration := s.Counts.ShortTermDuration.Total()
	if byGender == byDuration {
		return
	}
	r.flag(fmt.Sprintf("short-term total by gender %d does not match total by duration %d", byGender, byDuration),
		domain.FieldShortTermMale,
		domain.FieldShortTermFemale,
		domain.FieldShortTermBase1Month,
		domain.FieldShortTermExtended2Month,
		domain.FieldShortTermOther,
	)
}

func checkShortTermNewEnrolleeSubset(s domain.Submission, r Result) {
	c := s.Counts
	checkShortTermNew(r, c.ShortTermNewEnrollees.Male, c.ShortTermUsers.Male, domain.FieldShortTermNewEnrolleeMale)
	checkShortTermNew(r, c.ShortTermNewEnrollees.Female, c.ShortTermUsers.Female, domain.FieldShortTermNewEnrolleeFemale)
}

func checkShortTermNew(r Result, newCount, population int, field string) {
	if newCount > population {
		r.flag(fmt.Sprintf("short-term new-enrollee count %d exceeds short-term count %d", newCount, population), field)
	}
}
