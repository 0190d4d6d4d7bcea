package domain

import "time"

// GenderCount a headcount split by gender.
type GenderCount struct {
	Male   int `json:"male"`
	Female int `json:"female"`
}

func (g GenderCount) Total() int { return g.Male + g.Female }

// DurationCount short-term users split by program duration.
type DurationCount struct {
	Base1Month     int `json:"base_1_month"`
	Extended2Month int `json:"extended_2_month"`
	Other          int `json:"other"`
}

func (d DurationCount) Total() int { return d.Base1Month + d.Extended2Month + d.Other }

// Allocation budgeted ceilings. Zero means no ceiling.
type Allocation struct {
	SocialWorkers int `json:"social_workers"`
	CareProviders int `json:"care_providers"`
	Users         int `json:"users"`
}

// Counts every numeric field of a submission. Also used as the running sums
// of a region rollup.
type Counts struct {
	SocialWorkers          GenderCount   `json:"social_workers"`
	CareProviders          GenderCount   `json:"care_providers"`
	ShortTermSocialWorkers GenderCount   `json:"short_term_social_workers"`
	ShortTermCareProviders GenderCount   `json:"short_term_care_providers"`
	General                GenderCount   `json:"general"`
	Focused                GenderCount   `json:"focused"`
	Specialized            GenderCount   `json:"specialized"`
	NewEnrollees           GenderCount   `json:"new_enrollees"`
	ShortTermUsers         GenderCount   `json:"short_term_users"`
	ShortTermDuration      DurationCount `json:"short_term_duration"`
	ShortTermNewEnrollees  GenderCount   `json:"short_term_new_enrollees"`
	Allocation             Allocation    `json:"allocation"`
}

// GeneralFocusedMale general+focused population, male.
func (c Counts) GeneralFocusedMale() int { return c.General.Male + c.Focused.Male }

// GeneralFocusedFemale general+focused population, female.
func (c Counts) GeneralFocusedFemale() int { return c.General.Female + c.Focused.Female }

// ServedUsers the standard service population (general+focused, both genders).
// Specialized and new enrollees are subsets of it and are not added again.
func (c Counts) ServedUsers() int { return c.General.Total() + c.Focused.Total() }

// Get reads a count by form key; unknown keys read as zero.
func (c *Counts) Get(key string) int {
	i, ok := numericFieldIndex[key]
	if !ok {
		return 0
	}
	return *numericFields[i].ptr(c)
}

// Set writes a count by form key and reports whether the key is known.
func (c *Counts) Set(key string, v int) bool {
	i, ok := numericFieldIndex[key]
	if !ok {
		return false
	}
	*numericFields[i].ptr(c) = v
	return true
}

// Add accumulates every field of o into c.
func (c *Counts) Add(o Counts) {
	for _, f := range numericFields {
		*f.ptr(c) += *f.ptr(&o)
	}
}

// Flatten returns the counts keyed by form field name.
func (c Counts) Flatten() map[string]int {
	out := make(map[string]int, len(numericFields))
	for _, f := range numericFields {
		out[f.key] = *f.ptr(&c)
	}
	return out
}

// ChangeRecord change-of-assignment delta. Informational only.
type ChangeRecord struct {
	SocialWorkers int    `json:"social_workers"`
	CareProviders int    `json:"care_providers"`
	Users         int    `json:"users"`
	Date          string `json:"date"`
}

// Submission one institution's report for one reporting month.
// Records are immutable once stored; a correction is a new record.
type Submission struct {
	ID              string        `json:"id,omitempty"`
	Month           string        `json:"month"`
	InstitutionCode string        `json:"institution_code"`
	InstitutionName string        `json:"institution_name"`
	Region          string        `json:"region"`
	SubmittedAt     time.Time     `json:"submitted_at"`
	IsHub           bool          `json:"is_hub"`
	Counts          Counts        `json:"counts"`
	Change          *ChangeRecord `json:"change,omitempty"`
}
