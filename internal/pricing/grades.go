// Package pricing maintains the TTL-bounded market price cache and the
// condition-grade vocabulary used to look prices up by media condition.
package pricing

import "strings"

// Grade is one canonical record-condition grade.
type Grade struct {
	Label string
	Code  string
}

// Grades lists the canonical grades, best to worst. Order matters: callers
// walk it when picking the nearest grade with a known price.
var Grades = []Grade{
	{Label: "Mint", Code: "M"},
	{Label: "Near Mint", Code: "NM"},
	{Label: "Very Good Plus", Code: "VG+"},
	{Label: "Very Good", Code: "VG"},
	{Label: "Good Plus", Code: "G+"},
	{Label: "Good", Code: "G"},
	{Label: "Fair", Code: "F"},
	{Label: "Poor", Code: "P"},
}

// NormalizeCondition maps a free-text condition string to a canonical grade
// label. It tries exact label equality, then short-code equality, then a
// prefix/parenthetical heuristic ("Near Mint (NM or M-)" matches Near Mint).
// Unrecognized strings yield ok=false.
func NormalizeCondition(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}

	for _, g := range Grades {
		if strings.EqualFold(s, g.Label) {
			return g.Label, true
		}
	}

	// Short codes are case-sensitive where it matters: "M-" is Near Mint in
	// the wild, not Mint, so check the longer codes before the bare letters.
	code := strings.ToUpper(s)
	if code == "M-" || code == "NM" {
		return "Near Mint", true
	}
	for _, g := range Grades {
		if code == g.Code {
			return g.Label, true
		}
	}

	// Parenthetical or prefixed forms: "Near Mint (NM or M-)", "Very Good
	// Plus (VG+)". Strip the parenthetical and retry the label match; failing
	// that, accept a label prefix as long as it does not shadow a longer
	// grade ("Very Good Plus" must not collapse to "Very Good").
	if i := strings.Index(s, "("); i > 0 {
		return NormalizeCondition(s[:i])
	}
	lower := strings.ToLower(s)
	for _, g := range Grades {
		if strings.HasPrefix(lower, strings.ToLower(g.Label)+" ") {
			return g.Label, true
		}
	}

	return "", false
}
