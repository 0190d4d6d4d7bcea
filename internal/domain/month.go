package domain

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ReportingMonth parsed "YYYY_M월" label.
type ReportingMonth struct {
	Year  int
	Month int
	Label string
}

var monthLabelPattern = regexp.MustCompile(`^(\d{4})_(\d{1,2})월$`)

// ParseMonthLabel parses labels such as "2025_3월" or "2024_12월". Label is
// always canonical: "2025_03월" parses to "2025_3월".
func ParseMonthLabel(label string) (ReportingMonth, error) {
	trimmed := strings.TrimSpace(label)
	m := monthLabelPattern.FindStringSubmatch(trimmed)
	if m == nil {
		return ReportingMonth{}, fmt.Errorf("invalid reporting month label %q", label)
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	if month < 1 || month > 12 {
		return ReportingMonth{}, fmt.Errorf("invalid month %d in label %q", month, label)
	}
	return ReportingMonth{Year: year, Month: month, Label: FormatMonthLabel(year, month)}, nil
}

// FormatMonthLabel inverse of ParseMonthLabel.
func FormatMonthLabel(year, month int) string {
	return fmt.Sprintf("%d_%d월", year, month)
}

// After reports whether m is later than o.
func (m ReportingMonth) After(o ReportingMonth) bool {
	if m.Year != o.Year {
		return m.Year > o.Year
	}
	return m.Month > o.Month
}

// SortMonthLabels returns the parseable labels in canonical form, most recent
// first, without duplicates. Unparseable labels are dropped.
func SortMonthLabels(labels []string) []string {
	seen := map[string]bool{}
	months := make([]ReportingMonth, 0, len(labels))
	for _, l := range labels {
		rm, err := ParseMonthLabel(l)
		if err != nil || seen[rm.Label] {
			continue
		}
		seen[rm.Label] = true
		months = append(months, rm)
	}
	sort.SliceStable(months, func(i, j int) bool { return months[i].After(months[j]) })

	out := make([]string, len(months))
	for i, m := range months {
		out[i] = m.Label
	}
	return out
}

// DefaultMonth most recent parseable label.
func DefaultMonth(labels []string) (string, bool) {
	sorted := SortMonthLabels(labels)
	if len(sorted) == 0 {
		return "", false
	}
	return sorted[0], true
}
