package validation

import (
	"fmt"

	"eldercare-survey/internal/domain"
)

// An allocation of 0 means no ceiling was set, so the check is skipped.
// This follows current reporting practice and is a policy assumption.

func checkSocialWorkerAllocation(s domain.Submission, r Result) {
	checkAllocation(r, s.Counts.Allocation.SocialWorkers, s.Counts.SocialWorkers,
		domain.FieldSocialWorkerMale, domain.FieldSocialWorkerFemale)
}

func checkCareProviderAllocation(s domain.Submission, r Result) {
	checkAllocation(r, s.Counts.Allocation.CareProviders, s.Counts.CareProviders,
		domain.FieldCareProviderMale, domain.FieldCareProviderFemale)
}

func checkAllocation(r Result, allocated int, current domain.GenderCount, maleField, femaleField string) {
	if allocated <= 0 {
		return
	}
	if total := current.Total(); total > allocated {
		r.flag(fmt.Sprintf("exceeds allocation of %d (current %d)", allocated, total), maleField, femaleField)
	}
}
