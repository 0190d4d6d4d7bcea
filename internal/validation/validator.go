// Package validation checks a single monthly submission against the
// cross-field consistency rules of the survey form.
package validation

import (
	"sort"

	"eldercare-survey/internal/domain"
)

// Result maps a form field key to the violation message for that field.
// A field without an entry passed every rule that applies to it.
type Result map[string]string

// Valid reports whether no rule fired.
func (r Result) Valid() bool { return len(r) == 0 }

// Fields flagged field keys, sorted.
func (r Result) Fields() []string {
	out := make([]string, 0, len(r))
	for k := range r {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// flag records msg on every field that has no message yet.
func (r Result) flag(msg string, fields ...string) {
	for _, f := range fields {
		if _, exists := r[f]; !exists {
			r[f] = msg
		}
	}
}

// Rule one named consistency check.
type Rule struct {
	Name  string
	check func(s domain.Submission, r Result)
}

// rules in evaluation order. Each reads the raw submission only.
var rules = []Rule{
	{Name: "allocation_social_worker", check: checkSocialWorkerAllocation},
	{Name: "allocation_care_provider", check: checkCareProviderAllocation},
	{Name: "specialized_subset", check: checkSpecializedSubset},
	{Name: "new_enrollee_subset", check: checkNewEnrolleeSubset},
	{Name: "hub_only_short_term_staff", check: checkHubOnlyShortTermStaff},
	{Name: "short_term_total", check: checkShortTermTotals},
	{Name: "short_term_new_enrollee_subset", check: checkShortTermNewEnrolleeSubset},
}

// RuleNames names of the rules in evaluation order.
func RuleNames() []string {
	out := make([]string, len(rules))
	for i, r := range rules {
		out[i] = r.Name
	}
	return out
}

// Validate runs every rule against s. It has no side effects; calling it
// twice on the same submission yields equal results.
func Validate(s domain.Submission) Result {
	r := Result{}
	for _, rule := range rules {
		rule.check(s, r)
	}
	return r
}
