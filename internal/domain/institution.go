package domain

import "sort"

// Institution one entry of the institution directory.
type Institution struct {
	Code     string `json:"institution_code"`
	Name     string `json:"institution_name"`
	Region   string `json:"region"`
	Address  string `json:"address,omitempty"`
	IsHub    bool   `json:"is_hub"`
	Expected bool   `json:"expected"` // expected to submit this month
}

// Directory read-only lookup of institutions by code.
type Directory struct {
	byCode map[string]Institution
	codes  []string
}

// NewDirectory indexes institutions by code; a later duplicate code wins.
func NewDirectory(institutions []Institution) *Directory {
	d := &Directory{byCode: make(map[string]Institution, len(institutions))}
	for _, inst := range institutions {
		if _, seen := d.byCode[inst.Code]; !seen {
			d.codes = append(d.codes, inst.Code)
		}
		d.byCode[inst.Code] = inst
	}
	return d
}

// Lookup resolves an institution code.
func (d *Directory) Lookup(code string) (Institution, bool) {
	if d == nil {
		return Institution{}, false
	}
	inst, ok := d.byCode[code]
	return inst, ok
}

// Institutions in insertion order.
func (d *Directory) Institutions() []Institution {
	if d == nil {
		return nil
	}
	out := make([]Institution, 0, len(d.codes))
	for _, c := range d.codes {
		out = append(out, d.byCode[c])
	}
	return out
}

// ExpectedCount number of institutions expected to submit this month.
func (d *Directory) ExpectedCount() int {
	n := 0
	for _, inst := range d.Institutions() {
		if inst.Expected {
			n++
		}
	}
	return n
}

// Regions every canonical region followed by any non-canonical region used by
// a directory entry (sorted), so output order is stable across calls.
func (d *Directory) Regions() []string {
	out := append([]string(nil), Regions...)
	var extra []string
	seen := map[string]bool{}
	for _, inst := range d.Institutions() {
		if inst.Region == "" || IsCanonicalRegion(inst.Region) || seen[inst.Region] {
			continue
		}
		seen[inst.Region] = true
		extra = append(extra, inst.Region)
	}
	sort.Strings(extra)
	return append(out, extra...)
}
