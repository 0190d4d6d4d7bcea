package domain

// Field keys of the monthly survey form. Validation results, spreadsheet
// headers and raw JSON records all use these names.
const (
	FieldInstitutionCode = "기관코드"
	FieldInstitutionName = "기관명"
	FieldRegion          = "시군"
	FieldSubmittedAt     = "제출일시"
	FieldIsHub           = "거점수행기관여부"

	FieldSocialWorkerMale   = "전담사회복지사_남"
	FieldSocialWorkerFemale = "전담사회복지사_여"
	FieldCareProviderMale   = "생활지원사_남"
	FieldCareProviderFemale = "생활지원사_여"

	FieldShortTermSocialWorkerMale   = "단기_전담인력_사회복지사_남"
	FieldShortTermSocialWorkerFemale = "단기_전담인력_사회복지사_여"
	FieldShortTermCareProviderMale   = "단기_전담인력_생활지원사_남"
	FieldShortTermCareProviderFemale = "단기_전담인력_생활지원사_여"

	FieldGeneralMale   = "일반중점_남_일반"
	FieldFocusedMale   = "일반중점_남_중점"
	FieldGeneralFemale = "일반중점_여_일반"
	FieldFocusedFemale = "일반중점_여_중점"

	FieldSpecializedMale   = "특화_남"
	FieldSpecializedFemale = "특화_여"

	FieldNewEnrolleeMale   = "신규대상자_남"
	FieldNewEnrolleeFemale = "신규대상자_여"

	FieldShortTermMale           = "단기_남"
	FieldShortTermFemale         = "단기_여"
	FieldShortTermBase1Month     = "단기_기본_1개월"
	FieldShortTermExtended2Month = "단기_연장_2개월"
	FieldShortTermOther          = "단기_기타"

	FieldShortTermNewEnrolleeMale   = "단기_신규대상자_남"
	FieldShortTermNewEnrolleeFemale = "단기_신규대상자_여"

	FieldAllocatedSocialWorkers = "배정_전담사회복지사"
	FieldAllocatedCareProviders = "배정_생활지원사"
	FieldAllocatedUsers         = "배정_이용자"

	FieldChangedSocialWorkers = "변경_전담사회복지사"
	FieldChangedCareProviders = "변경_생활지원사"
	FieldChangedUsers         = "변경_이용자"
	FieldChangeDate           = "변경일자"
)

type numericField struct {
	key string
	ptr func(c *Counts) *int
}

// numericFields is the single mapping between form keys and Counts slots.
// Order matches the paper form and is used for spreadsheet columns.
var numericFields = []numericField{
	{FieldSocialWorkerMale, func(c *Counts) *int { return &c.SocialWorkers.Male }},
	{FieldSocialWorkerFemale, func(c *Counts) *int { return &c.SocialWorkers.Female }},
	{FieldCareProviderMale, func(c *Counts) *int { return &c.CareProviders.Male }},
	{FieldCareProviderFemale, func(c *Counts) *int { return &c.CareProviders.Female }},
	{FieldShortTermSocialWorkerMale, func(c *Counts) *int { return &c.ShortTermSocialWorkers.Male }},
	{FieldShortTermSocialWorkerFemale, func(c *Counts) *int { return &c.ShortTermSocialWorkers.Female }},
	{FieldShortTermCareProviderMale, func(c *Counts) *int { return &c.ShortTermCareProviders.Male }},
	{FieldShortTermCareProviderFemale, func(c *Counts) *int { return &c.ShortTermCareProviders.Female }},
	{FieldGeneralMale, func(c *Counts) *int { return &c.General.Male }},
	{FieldFocusedMale, func(c *Counts) *int { return &c.Focused.Male }},
	{FieldGeneralFemale, func(c *Counts) *int { return &c.General.Female }},
	{FieldFocusedFemale, func(c *Counts) *int { return &c.Focused.Female }},
	{FieldSpecializedMale, func(c *Counts) *int { return &c.Specialized.Male }},
	{FieldSpecializedFemale, func(c *Counts) *int { return &c.Specialized.Female }},
	{FieldNewEnrolleeMale, func(c *Counts) *int { return &c.NewEnrollees.Male }},
	{FieldNewEnrolleeFemale, func(c *Counts) *int { return &c.NewEnrollees.Female }},
	{FieldShortTermMale, func(c *Counts) *int { return &c.ShortTermUsers.Male }},
	{FieldShortTermFemale, func(c *Counts) *int { return &c.ShortTermUsers.Female }},
	{FieldShortTermBase1Month, func(c *Counts) *int { return &c.ShortTermDuration.Base1Month }},
	{FieldShortTermExtended2Month, func(c *Counts) *int { return &c.ShortTermDuration.Extended2Month }},
	{FieldShortTermOther, func(c *Counts) *int { return &c.ShortTermDuration.Other }},
	{FieldShortTermNewEnrolleeMale, func(c *Counts) *int { return &c.ShortTermNewEnrollees.Male }},
	{FieldShortTermNewEnrolleeFemale, func(c *Counts) *int { return &c.ShortTermNewEnrollees.Female }},
	{FieldAllocatedSocialWorkers, func(c *Counts) *int { return &c.Allocation.SocialWorkers }},
	{FieldAllocatedCareProviders, func(c *Counts) *int { return &c.Allocation.CareProviders }},
	{FieldAllocatedUsers, func(c *Counts) *int { return &c.Allocation.Users }},
}

var numericFieldIndex = func() map[string]int {
	m := make(map[string]int, len(numericFields))
	for i, f := range numericFields {
		m[f.key] = i
	}
	return m
}()

// NumericFieldKeys returns every count field key in form order.
func NumericFieldKeys() []string {
	keys := make([]string, len(numericFields))
	for i, f := range numericFields {
		keys[i] = f.key
	}
	return keys
}

// IsNumericField reports whether key names a count field.
func IsNumericField(key string) bool {
	_, ok := numericFieldIndex[key]
	return ok
}
