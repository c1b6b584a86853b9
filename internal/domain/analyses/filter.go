package analyses

import "strings"

// SeverityAll disables the severity filter.
const SeverityAll = "all"

// Filter is the in-memory search applied to an already fetched snapshot.
type Filter struct {
	Search   string
	Severity string
}

// Match reports whether a passes both the text search and the severity filter.
// The search is a case-insensitive substring over file name, patient id and condition.
func (f Filter) Match(a *Analysis) bool {
	return f.matchSearch(a) && f.matchSeverity(a)
}

func (f Filter) matchSearch(a *Analysis) bool {
	term := strings.ToLower(f.Search)
	if strings.Contains(strings.ToLower(a.FileName), term) {
		return true
	}
	if a.PatientID != nil && strings.Contains(strings.ToLower(*a.PatientID), term) {
		return true
	}
	return a.Condition != nil && strings.Contains(strings.ToLower(*a.Condition), term)
}

func (f Filter) matchSeverity(a *Analysis) bool {
	sev := strings.ToLower(strings.TrimSpace(f.Severity))
	if sev == "" || sev == SeverityAll {
		return true
	}
	return a.Severity != nil && string(*a.Severity) == sev
}

// Active is true when either criterion narrows the result set.
func (f Filter) Active() bool {
	sev := strings.ToLower(strings.TrimSpace(f.Severity))
	return f.Search != "" || (sev != "" && sev != SeverityAll)
}

// Apply keeps the order of list and returns the matching analyses.
func (f Filter) Apply(list []*Analysis) []*Analysis {
	out := make([]*Analysis, 0, len(list))
	for _, a := range list {
		if f.Match(a) {
			out = append(out, a)
		}
	}
	return out
}
