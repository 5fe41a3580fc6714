package model

// AuditStatus is the verdict for one audited specification.
type AuditStatus string

const (
	AuditCorrect   AuditStatus = "correct"
	AuditIncorrect AuditStatus = "incorrect"
)

// AuditInput is a seller upload: the product category and its specs.
type AuditInput struct {
	MCATName       string      `json:"mcat_name" yaml:"mcat_name"`
	Specifications []SpecEntry `json:"specifications" yaml:"specifications"`
}

// AuditResult is the audit verdict for one specification.
type AuditResult struct {
	Specification      string      `json:"specification"`
	Status             AuditStatus `json:"status"`
	Explanation        string      `json:"explanation,omitempty"`
	ProblematicOptions []string    `json:"problematic_options,omitempty"`
}
