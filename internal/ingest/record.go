// Package ingest turns raw survey records and roster spreadsheets into typed
// domain values. Missing or malformed numbers become zero here, so nothing
// downstream has to repeat the coercion.
package ingest

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"eldercare-survey/internal/domain"
)

// ParseSubmission builds a submission from a raw record keyed by form field
// names. It never fails: absent or unreadable numeric fields are zero and an
// unresolvable region keeps its trimmed text.
func ParseSubmission(raw map[string]any) domain.Submission {
	s := domain.Submission{
		InstitutionCode: StringField(raw, domain.FieldInstitutionCode),
		InstitutionName: StringField(raw, domain.FieldInstitutionName),
		Region:          ResolveRegion(StringField(raw, domain.FieldRegion)),
		SubmittedAt:     TimeField(raw, domain.FieldSubmittedAt),
		IsHub:           BoolField(raw, domain.FieldIsHub),
	}
	for _, key := range domain.NumericFieldKeys() {
		s.Counts.Set(key, CountField(raw, key))
	}

	change := domain.ChangeRecord{
		SocialWorkers: IntField(raw, domain.FieldChangedSocialWorkers),
		CareProviders: IntField(raw, domain.FieldChangedCareProviders),
		Users:         IntField(raw, domain.FieldChangedUsers),
		Date:          StringField(raw, domain.FieldChangeDate),
	}
	if change != (domain.ChangeRecord{}) {
		s.Change = &change
	}
	return s
}

// ResolveRegion canonical region for free text, or the trimmed text itself.
func ResolveRegion(text string) string {
	if canonical, ok := domain.NormalizeRegion(text); ok {
		return canonical
	}
	return strings.TrimSpace(text)
}

// IntField parse-with-default(key, 0).
func IntField(raw map[string]any, key string) int {
	v, ok := raw[key]
	if !ok || v == nil {
		return 0
	}
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	case string:
		return parseIntText(n)
	case fmt.Stringer:
		return parseIntText(n.String())
	}
	return 0
}

// CountField IntField for headcounts. A negative count is malformed input and
// reads as zero. Change deltas keep their sign and use IntField.
func CountField(raw map[string]any, key string) int {
	if n := IntField(raw, key); n > 0 {
		return n
	}
	return 0
}

func floatToInt(f float64) int {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(math.Round(f))
}

func parseIntText(s string) int {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return floatToInt(f)
	}
	return 0
}

// BoolField accepts bools, numbers and the usual yes markers.
func BoolField(raw map[string]any, key string) bool {
	switch v := raw[key].(type) {
	case bool:
		return v
	case int:
		return v != 0
	case float64:
		return v != 0
	case string:
		return parseBoolText(v)
	}
	return false
}

func parseBoolText(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "true", "1", "예", "o", "○", "거점":
		return true
	}
	return false
}

// StringField trimmed text; numbers are formatted without decimals.
func StringField(raw map[string]any, key string) string {
	switch v := raw[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	}
	return ""
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006.01.02",
	"2006/01/02",
}

// TimeField zero time when absent or unparseable. Local layouts are read in UTC.
func TimeField(raw map[string]any, key string) time.Time {
	switch v := raw[key].(type) {
	case time.Time:
		return v
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

// FormatSubmission inverse of ParseSubmission, used for exports and draft
// echoes.
func FormatSubmission(s domain.Submission) map[string]any {
	out := map[string]any{
		domain.FieldInstitutionCode: s.InstitutionCode,
		domain.FieldInstitutionName: s.InstitutionName,
		domain.FieldRegion:          s.Region,
		domain.FieldIsHub:           s.IsHub,
	}
	if !s.SubmittedAt.IsZero() {
		out[domain.FieldSubmittedAt] = s.SubmittedAt.Format(time.RFC3339)
	}
	for k, v := range s.Counts.Flatten() {
		out[k] = v
	}
	if s.Change != nil {
		out[domain.FieldChangedSocialWorkers] = s.Change.SocialWorkers
		out[domain.FieldChangedCareProviders] = s.Change.CareProviders
		out[domain.FieldChangedUsers] = s.Change.Users
		out[domain.FieldChangeDate] = s.Change.Date
	}
	return out
}
