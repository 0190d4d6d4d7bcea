package domain

// MemberSummary per-institution line inside a region rollup.
type MemberSummary struct {
	InstitutionCode       string `json:"institution_code"`
	InstitutionName       string `json:"institution_name"`
	IsHub                 bool   `json:"is_hub"`
	Expected              bool   `json:"expected"`
	Submitted             bool   `json:"submitted"`
	SocialWorkerShortfall int    `json:"social_worker_shortfall"`
	CareProviderShortfall int    `json:"care_provider_shortfall"`
	UserShortfall         int    `json:"user_shortfall"`
	ViolationCount        int    `json:"violation_count"`
}

// RegionRollup sums of one region for one month. Derived, never stored as
// mutable state.
type RegionRollup struct {
	Region         string          `json:"region"`
	SubmittedCount int             `json:"submitted_count"`
	ExpectedCount  int             `json:"expected_count"`
	HubCount       int             `json:"hub_count"`
	ChangedCount   int             `json:"changed_count"`
	Sums           Counts          `json:"sums"`
	Members        []MemberSummary `json:"members"`
}

func (r RegionRollup) SocialWorkers() int { return r.Sums.SocialWorkers.Total() }
func (r RegionRollup) CareProviders() int { return r.Sums.CareProviders.Total() }
func (r RegionRollup) ServedUsers() int   { return r.Sums.ServedUsers() }

// Reasons a submission is left out of every region rollup.
const (
	UnmatchedUnknownInstitution = "unknown_institution"        // code absent from the directory
	UnmatchedNoDirectoryRegion  = "institution_without_region" // directory entry has no region
)

// UnmatchedSubmission a submission that could not be placed in a region.
// Excluded from rollups, surfaced for diagnostics.
type UnmatchedSubmission struct {
	InstitutionCode string `json:"institution_code"`
	InstitutionName string `json:"institution_name"`
	Region          string `json:"region"`
	Reason          string `json:"reason"`
}

// AggregateResult output of one aggregation pass over a month.
type AggregateResult struct {
	Month          string                `json:"month"`
	Regions        []RegionRollup        `json:"regions"`
	Province       RegionRollup          `json:"province"`
	SubmittedCount int                   `json:"submitted_count"`
	ExpectedCount  int                   `json:"expected_count"`
	SubmissionRate int                   `json:"submission_rate"` // percent
	Unmatched      []UnmatchedSubmission `json:"unmatched"`
	Superseded     int                   `json:"superseded"` // earlier records replaced by a later correction
}

// Region finds a rollup by region name.
func (a AggregateResult) Region(name string) (RegionRollup, bool) {
	for _, r := range a.Regions {
		if r.Region == name {
			return r, true
		}
	}
	return RegionRollup{}, false
}

// CareBurdenStatus derived staffing load indicator of one region.
type CareBurdenStatus struct {
	Region                  string  `json:"region"`
	EstimatedSolitaryElders int     `json:"estimated_solitary_elders"`
	SocialWorkers           int     `json:"social_workers"`
	CareProviders           int     `json:"care_providers"`
	TotalStaff              int     `json:"total_staff"`
	ServedUsers             int     `json:"served_users"`
	Ratio                   float64 `json:"ratio"`
	Overloaded              bool    `json:"overloaded"`
	Severity                float64 `json:"severity"`
}
