package specmatch

// Rule names the option-matching rule that decided a comparison.
type Rule int

// Rules in evaluation order. NoMatch and GradeMismatch are negative
// outcomes; every other rule is a match.
const (
	NoMatch Rule = iota
	ExactMatch
	GradeMatch
	GradeMismatch
	TermMatch
	MeasurementMatch
	RangeOverlap
	RangeContainment
)

var ruleNames = map[Rule]string{
	NoMatch:          "no_match",
	ExactMatch:       "exact",
	GradeMatch:       "grade",
	GradeMismatch:    "grade_mismatch",
	TermMatch:        "term",
	MeasurementMatch: "measurement",
	RangeOverlap:     "range_overlap",
	RangeContainment: "range_containment",
}

func (r Rule) String() string {
	if s, ok := ruleNames[r]; ok {
		return s
	}
	return "unknown"
}

// Matched reports whether the rule is a positive outcome.
func (r Rule) Matched() bool {
	return r != NoMatch && r != GradeMismatch
}

// Matcher compares option values under a fixed Policy. The zero value is
// not usable; construct with NewMatcher.
type Matcher struct {
	policy Policy
}

// NewMatcher creates a Matcher. Non-positive policy fields take defaults.
func NewMatcher(p Policy) *Matcher {
	return &Matcher{policy: p.withDefaults()}
}

// Policy returns the effective policy.
func (m *Matcher) Policy() Policy {
	return m.policy
}

// Match reports whether two option values denote the same real-world value.
func (m *Matcher) Match(a, b string) bool {
	return m.Explain(a, b).Matched()
}

// Explain runs the matching rules in order and returns the first that
// decides:
//  1. exact: equal after lowercasing and removing whitespace
//  2. grade: both carry a grade token; differing grades are a hard reject
//  3. measurement: both are lengths; single values within tolerance,
//     two ranges on overlap
//  4. containment: a single value inside the other side's range
//
// Two whole-value material or shape aliases ("MS", "Mild Steel") also match
// after the grade rule.
func (m *Matcher) Explain(a, b string) Rule {
	sa, sb := squash(a), squash(b)
	if sa == "" || sb == "" {
		return NoMatch
	}
	if sa == sb {
		return ExactMatch
	}

	na, nb := m.policy.NormalizeOption(a), m.policy.NormalizeOption(b)

	if na.Grade != "" && nb.Grade != "" {
		if na.Grade == nb.Grade {
			return GradeMatch
		}
		return GradeMismatch
	}

	if na.Term && nb.Term && na.Text == nb.Text {
		return TermMatch
	}

	if na.Measurement == nil || nb.Measurement == nil {
		return NoMatch
	}
	ma, mb := *na.Measurement, *nb.Measurement

	switch {
	case !ma.Range && !mb.Range:
		if abs(ma.MinMM-mb.MinMM) <= m.policy.tolerance(ma.MinMM, mb.MinMM) {
			return MeasurementMatch
		}
	case ma.Range && mb.Range:
		if ma.Overlaps(mb) {
			return RangeOverlap
		}
	case ma.Range:
		if ma.Contains(mb.MinMM) {
			return RangeContainment
		}
	default:
		if mb.Contains(ma.MinMM) {
			return RangeContainment
		}
	}
	return NoMatch
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

var defaultMatcher = NewMatcher(DefaultPolicy())

// OptionsMatch reports whether two option values match under the default
// policy.
func OptionsMatch(a, b string) bool {
	return defaultMatcher.Match(a, b)
}
