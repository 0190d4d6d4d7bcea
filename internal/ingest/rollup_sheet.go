package ingest

import "eldercare-survey/internal/domain"

// RollupColumns header of the exported rollup sheet.
var RollupColumns = []string{
	"시군",
	"제출기관",
	"대상기관",
	"거점기관",
	"변경기관",
	"전담사회복지사",
	"생활지원사",
	"일반중점",
	"특화",
	"신규대상자",
	"단기이용자",
	domain.FieldAllocatedSocialWorkers,
	domain.FieldAllocatedCareProviders,
	domain.FieldAllocatedUsers,
	"추정독거노인",
	"인력당이용자",
	"과부하",
	"심각도",
}

var unmatchedColumns = []string{
	domain.FieldInstitutionCode,
	domain.FieldInstitutionName,
	domain.FieldRegion,
	"사유",
}

// WriteRollupSheet exports the rollup in region order followed by the
// province total. statuses may cover a subset of regions; missing regions
// leave the care-burden columns blank. Unmatched submissions, when present,
// go to a second sheet.
func WriteRollupSheet(result domain.AggregateResult, statuses []domain.CareBurdenStatus) ([]byte, error) {
	byRegion := make(map[string]domain.CareBurdenStatus, len(statuses))
	for _, s := range statuses {
		byRegion[s.Region] = s
	}

	rows := make([][]any, 0, len(result.Regions)+1)
	for _, r := range result.Regions {
		row := rollupRow(r)
		if st, ok := byRegion[r.Region]; ok {
			row = append(row, st.EstimatedSolitaryElders, st.Ratio, yesNo(st.Overloaded), st.Severity)
		}
		rows = append(rows, row)
	}
	rows = append(rows, rollupRow(result.Province))

	sheets := []sheet{{name: "시군별집계 " + result.Month, header: RollupColumns, rows: rows}}
	if len(result.Unmatched) > 0 {
		um := make([][]any, 0, len(result.Unmatched))
		for _, u := range result.Unmatched {
			um = append(um, []any{u.InstitutionCode, u.InstitutionName, u.Region, u.Reason})
		}
		sheets = append(sheets, sheet{name: "미매칭기관", header: unmatchedColumns, rows: um})
	}
	return writeWorkbook(sheets)
}

func rollupRow(r domain.RegionRollup) []any {
	c := r.Sums
	return []any{
		r.Region,
		r.SubmittedCount,
		r.ExpectedCount,
		r.HubCount,
		r.ChangedCount,
		c.SocialWorkers.Total(),
		c.CareProviders.Total(),
		c.ServedUsers(),
		c.Specialized.Total(),
		c.NewEnrollees.Total(),
		c.ShortTermUsers.Total(),
		c.Allocation.SocialWorkers,
		c.Allocation.CareProviders,
		c.Allocation.Users,
	}
}
