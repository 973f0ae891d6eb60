package suggest

import "sort"

// rank orders severities from most to least urgent.
var rank = map[Severity]int{
	SeverityHigh:     1,
	SeverityMedium:   2,
	SeverityLow:      3,
	SeverityPositive: 4,
}

// Rank returns the urgency of s; lower is more urgent. Unknown severities
// rank after positive.
func (s Severity) Rank() int {
	if r, ok := rank[s]; ok {
		return r
	}
	return len(rank) + 1
}

// MostSevere returns the most urgent severity in recs, or SeverityPositive
// when recs is empty.
func MostSevere(recs []Recommendation) Severity {
	worst := SeverityPositive
	for _, r := range recs {
		if r.Severity.Rank() < worst.Rank() {
			worst = r.Severity
		}
	}
	return worst
}

// Actionable returns the recommendations that are not positive.
func Actionable(recs []Recommendation) []Recommendation {
	var out []Recommendation
	for _, r := range recs {
		if r.Severity != SeverityPositive {
			out = append(out, r)
		}
	}
	return out
}

// BySeverity returns a copy of recs ordered most urgent first. Equal
// severities keep their rule order. recs itself is not modified.
func BySeverity(recs []Recommendation) []Recommendation {
	out := make([]Recommendation, len(recs))
	copy(out, recs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Severity.Rank() < out[j].Severity.Rank()
	})
	return out
}
