// Package audit reviews a seller's uploaded specifications: deterministic
// option hygiene (duplicates, overlapping units, empty values) plus an LLM
// relevance review.
package audit

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/sells-group/isq-cli/internal/model"
	"github.com/sells-group/isq-cli/internal/specmatch"
)

// Output is the audit of one upload.
type Output struct {
	Results []model.AuditResult `json:"results"`
	Source  string              `json:"source"`
	Tokens  int64               `json:"tokens"`
	Cost    float64             `json:"cost"`
}

// Auditor audits a seller upload.
type Auditor interface {
	Audit(ctx context.Context, in model.AuditInput) (*Output, error)
}

// Checker runs the deterministic checks. It satisfies Auditor.
type Checker struct {
	matcher *specmatch.Matcher
}

// NewChecker creates a Checker. A nil matcher uses the default policy.
func NewChecker(m *specmatch.Matcher) *Checker {
	if m == nil {
		m = specmatch.NewMatcher(specmatch.DefaultPolicy())
	}
	return &Checker{matcher: m}
}

// Audit checks every specification in the upload.
func (c *Checker) Audit(_ context.Context, in model.AuditInput) (*Output, error) {
	return &Output{Results: c.Check(in), Source: "rules"}, nil
}

// Check returns one result per specification, in upload order.
func (c *Checker) Check(in model.AuditInput) []model.AuditResult {
	fixed := mcatGrade(in.MCATName)
	out := make([]model.AuditResult, 0, len(in.Specifications))
	for _, spec := range in.Specifications {
		res := c.CheckSpec(spec)
		if fixed != "" && isGradeSpec(spec.Name) && len(spec.Options) > 0 {
			res = Merge(res, model.AuditResult{
				Specification:      spec.Name,
				Status:             model.AuditIncorrect,
				Explanation:        fmt.Sprintf("grade %s is already fixed by the product name %q", fixed, in.MCATName),
				ProblematicOptions: spec.Options,
			})
		}
		out = append(out, res)
	}
	return out
}

// CheckSpec flags duplicate options (equal after case and spacing folding),
// overlapping options (the same grade, material or measurement written two
// ways, such as "1219 mm" and "4 ft") and empty options.
func (c *Checker) CheckSpec(spec model.SpecEntry) model.AuditResult {
	res := model.AuditResult{Specification: spec.Name, Status: model.AuditCorrect}

	var (
		findings []string
		flagged  []string
		empty    int
	)
	flag := func(o string) {
		if !slices.Contains(flagged, o) {
			flagged = append(flagged, o)
		}
	}

	for i, a := range spec.Options {
		if strings.TrimSpace(a) == "" {
			empty++
			continue
		}
		for _, b := range spec.Options[i+1:] {
			switch c.matcher.Explain(a, b) {
			case specmatch.ExactMatch:
				findings = append(findings, fmt.Sprintf("%q and %q are duplicates", a, b))
			case specmatch.GradeMatch, specmatch.TermMatch, specmatch.MeasurementMatch:
				findings = append(findings, fmt.Sprintf("%q and %q are the same value", a, b))
			default:
				continue
			}
			flag(a)
			flag(b)
		}
	}
	if empty > 0 {
		findings = append(findings, fmt.Sprintf("%d empty option(s)", empty))
	}

	if len(findings) > 0 {
		res.Status = model.AuditIncorrect
		res.Explanation = strings.Join(findings, "; ")
		res.ProblematicOptions = flagged
	}
	return res
}

var defaultChecker = NewChecker(nil)

// CheckSpec runs the deterministic checks under the default policy.
func CheckSpec(spec model.SpecEntry) model.AuditResult {
	return defaultChecker.CheckSpec(spec)
}

// Merge combines two verdicts for the same specification. The result is
// incorrect if either is, explanations are joined and problematic options
// are unioned in first-seen order.
func Merge(a, b model.AuditResult) model.AuditResult {
	out := model.AuditResult{Specification: a.Specification, Status: model.AuditCorrect}
	if out.Specification == "" {
		out.Specification = b.Specification
	}
	if a.Status == model.AuditIncorrect || b.Status == model.AuditIncorrect {
		out.Status = model.AuditIncorrect
	}

	var notes []string
	for _, e := range []string{a.Explanation, b.Explanation} {
		if e = strings.TrimSpace(e); e != "" && !slices.Contains(notes, e) {
			notes = append(notes, e)
		}
	}
	out.Explanation = strings.Join(notes, "; ")

	for _, o := range slices.Concat(a.ProblematicOptions, b.ProblematicOptions) {
		if !slices.Contains(out.ProblematicOptions, o) {
			out.ProblematicOptions = append(out.ProblematicOptions, o)
		}
	}
	return out
}

// mcatGrade returns the material grade written in a product name, such as
// "304" in "SS 304 Sheet", or "".
func mcatGrade(name string) string {
	fields := strings.Fields(name)
	for i := range fields {
		if g := specmatch.Grade(strings.Join(fields[i:], " ")); g != "" {
			return g
		}
	}
	return ""
}

func isGradeSpec(name string) bool {
	return slices.Contains(strings.Fields(specmatch.NormalizeName(name)), "grade")
}
