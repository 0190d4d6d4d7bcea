package validation

import (
	"fmt"

	"eldercare-survey/internal/domain"
)

// Specialized and new-enrollee users are gendered subsets of the
// general+focused population of the same gender.

func checkSpecializedSubset(s domain.Submission, r Result) {
	c := s.Counts
	checkSubset(r, "specialized", c.Specialized.Male, c.GeneralFocusedMale(), domain.FieldSpecializedMale)
	checkSubset(r, "specialized", c.Specialized.Female, c.GeneralFocusedFemale(), domain.FieldSpecializedFemale)
}

func checkNewEnrolleeSubset(s domain.Submission, r Result) {
	c := s.Counts
	checkSubset(r, "new-enrollee", c.NewEnrollees.Male, c.GeneralFocusedMale(), domain.FieldNewEnrolleeMale)
	checkSubset(r, "new-enrollee", c.NewEnrollees.Female, c.GeneralFocusedFemale(), domain.FieldNewEnrolleeFemale)
}

func checkSubset(r Result, label string, sub, parent int, field string) {
	if sub > parent {
		r.flag(fmt.Sprintf("%s count %d exceeds general+focused count %d", label, sub, parent), field)
	}
}
