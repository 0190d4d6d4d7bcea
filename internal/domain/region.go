package domain

import "strings"

// ProvinceTotalRegion label of the province-wide total row.
const ProvinceTotalRegion = "경상남도"

// Regions canonical city/county enumeration of the province. Every ordered
// list of regions follows this order.
var Regions = []string{
	"창원시", "진주시", "통영시", "사천시", "김해시", "밀양시",
	"거제시", "양산시", "의령군", "함안군", "창녕군", "고성군",
	"남해군", "하동군", "산청군", "함양군", "거창군", "합천군",
}

var regionOrder = func() map[string]int {
	m := make(map[string]int, len(Regions))
	for i, r := range Regions {
		m[r] = i
	}
	return m
}()

var provincePrefixes = []string{"경상남도", "경남"}

var adminSuffixes = []string{"특례시", "시", "군", "구"}

// IsCanonicalRegion reports whether name is one of Regions.
func IsCanonicalRegion(name string) bool {
	_, ok := regionOrder[name]
	return ok
}

// RegionOrder position of region in the canonical enumeration; unknown
// regions sort after every canonical one.
func RegionOrder(name string) int {
	if i, ok := regionOrder[name]; ok {
		return i
	}
	return len(Regions)
}

// NormalizeRegion maps free-text region or address input ("경남 창원시 의창구",
// "창원", "경상남도김해시") to a canonical region name. Exact base-name matches
// win over prefix matches; the first token that matches decides.
func NormalizeRegion(text string) (string, bool) {
	tokens := strings.Fields(strings.TrimSpace(text))
	if len(tokens) == 0 {
		return "", false
	}

	bases := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		tok = stripProvince(tok)
		if tok == "" {
			continue
		}
		bases = append(bases, tok)
	}

	for _, tok := range bases {
		b := stripAdminSuffix(tok)
		for _, r := range Regions {
			if stripAdminSuffix(r) == b {
				return r, true
			}
		}
	}
	for _, tok := range bases {
		for _, r := range Regions {
			if strings.HasPrefix(tok, stripAdminSuffix(r)) {
				return r, true
			}
		}
	}
	return "", false
}

func stripProvince(tok string) string {
	for _, p := range provincePrefixes {
		if strings.HasPrefix(tok, p) {
			return strings.TrimPrefix(tok, p)
		}
	}
	return tok
}

func stripAdminSuffix(tok string) string {
	for _, s := range adminSuffixes {
		// a bare suffix ("시") is kept as is
		if strings.HasSuffix(tok, s) && len(tok) > len(s) {
			return strings.TrimSuffix(tok, s)
		}
	}
	return tok
}
