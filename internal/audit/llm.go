package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/isq-cli/internal/model"
	"github.com/sells-group/isq-cli/internal/resilience"
	"github.com/sells-group/isq-cli/pkg/anthropic"
)

// Config controls the audit LLM call.
type Config struct {
	Model       string  `mapstructure:"model" json:"model"`
	MaxTokens   int64   `mapstructure:"max_tokens" json:"max_tokens"`
	Temperature float64 `mapstructure:"temperature" json:"temperature"`
}

// Audit call defaults.
const (
	DefaultModel       = "claude-haiku-4-5-20251001"
	DefaultMaxTokens   = 4096
	DefaultTemperature = 0.3
)

// LLMAuditor asks the LLM whether each specification and option is relevant
// to the product, then merges in the deterministic findings.
type LLMAuditor struct {
	client  anthropic.Client
	checker *Checker
	cfg     Config
	retry   resilience.RetryConfig
}

// NewLLMAuditor creates an LLMAuditor. A nil checker uses the default
// policy.
func NewLLMAuditor(client anthropic.Client, checker *Checker, cfg Config, retry resilience.RetryConfig) *LLMAuditor {
	if checker == nil {
		checker = NewChecker(nil)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = DefaultTemperature
	}
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("anthropic", "audit")
	}
	return &LLMAuditor{client: client, checker: checker, cfg: cfg, retry: retry}
}

// Audit returns one result per uploaded specification, in upload order. When
// the LLM answer cannot be parsed the deterministic results are returned
// alone. LLM failures that survive retries are returned as errors.
func (a *LLMAuditor) Audit(ctx context.Context, in model.AuditInput) (*Output, error) {
	rules := a.checker.Check(in)
	if len(in.Specifications) == 0 {
		return &Output{Results: rules, Source: "rules"}, nil
	}

	temp := a.cfg.Temperature
	req := anthropic.MessageRequest{
		Model:       a.cfg.Model,
		MaxTokens:   a.cfg.MaxTokens,
		System:      anthropic.CachedSystem(auditSystemPrompt),
		Messages:    anthropic.UserMessage(buildAuditPrompt(in)),
		Temperature: &temp,
	}
	resp, err := resilience.DoVal(ctx, a.retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		resp, err := a.client.CreateMessage(ctx, req)
		if err != nil {
			return nil, anthropic.Retryable(err)
		}
		return resp, nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "audit: llm call for %q", in.MCATName)
	}
	resp.Usage.LogCost(a.cfg.Model, "audit")

	out := &Output{
		Tokens: resp.Usage.Total(),
		Cost:   resp.Usage.EstimateCost(a.cfg.Model),
	}

	llm, ok := parseAuditResults(resp.Text())
	if !ok {
		zap.L().Warn("audit: unparseable llm response, using rule checks only",
			zap.String("mcat", in.MCATName),
		)
		out.Results, out.Source = rules, "rules"
		return out, nil
	}

	out.Results, out.Source = mergeResults(in, rules, llm), "llm"
	return out, nil
}

// mergeResults aligns LLM verdicts with the upload by specification name.
// Specs the LLM skipped keep their rule verdict; verdicts for specs not in
// the upload are dropped.
func mergeResults(in model.AuditInput, rules, llm []model.AuditResult) []model.AuditResult {
	out := make([]model.AuditResult, len(in.Specifications))
	for i, spec := range in.Specifications {
		out[i] = rules[i]
		for _, r := range llm {
			if strings.EqualFold(strings.TrimSpace(r.Specification), strings.TrimSpace(spec.Name)) {
				r.Specification = spec.Name
				out[i] = Merge(r, rules[i])
				break
			}
		}
	}
	return out
}

var trailingCommaRe = regexp.MustCompile(`,\s*([\]}])`)

type rawAudit struct {
	Specification      string   `json:"specification"`
	Status             string   `json:"status"`
	Explanation        string   `json:"explanation"`
	ProblematicOptions []string `json:"problematic_options"`
}

// parseAuditResults reads the JSON array of verdicts from an LLM answer,
// tolerating code fences, surrounding text and trailing commas.
func parseAuditResults(text string) ([]model.AuditResult, bool) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil, false
	}
	body := text[start : end+1]

	var raw []rawAudit
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		if err := json.Unmarshal([]byte(trailingCommaRe.ReplaceAllString(body, "$1")), &raw); err != nil {
			return nil, false
		}
	}

	out := make([]model.AuditResult, 0, len(raw))
	for _, r := range raw {
		name := strings.TrimSpace(r.Specification)
		if name == "" {
			continue
		}
		status := model.AuditCorrect
		if strings.EqualFold(strings.TrimSpace(r.Status), string(model.AuditIncorrect)) {
			status = model.AuditIncorrect
		}
		res := model.AuditResult{Specification: name, Status: status}
		if status == model.AuditIncorrect {
			res.Explanation = strings.TrimSpace(r.Explanation)
			res.ProblematicOptions = r.ProblematicOptions
		}
		out = append(out, res)
	}
	return out, len(out) > 0
}

const auditSystemPrompt = `You are a strict industrial specification auditor for a B2B marketplace. Find real problems only.

For each specification check that it is relevant to the product. For each option check for:
- irrelevance to the specification or the product
- duplicates: the same value listed more than once ("SS304" and "ss304"; "2mm", "2 mm" and "2.0mm")
- overlapping values: the same measurement as separate options ("1219 mm" and "4 ft")

If the product name already fixes a specification (product "304 Stainless Steel Sheet" with a Grade specification), the whole specification is incorrect.

Rules:
- Do not invent specifications, options or corrections.
- Different units inside ONE option ("1219 mm (4 ft)") are correct.
- Return "correct", or "incorrect" with an explanation and the problematic options.

Return ONLY a JSON array, with no markdown and no text around it:
[{"specification":"Grade","status":"correct"},{"specification":"Width","status":"incorrect","explanation":"1219 mm and 4 ft are the same width","problematic_options":["1219 mm","4 ft"]}]`

func buildAuditPrompt(in model.AuditInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Product: %s\n\nSpecifications:\n", in.MCATName)
	for i, spec := range in.Specifications {
		quoted := make([]string, len(spec.Options))
		for j, o := range spec.Options {
			quoted[j] = fmt.Sprintf("%q", o)
		}
		fmt.Fprintf(&b, "%d. %q\n   Options: %s\n", i+1, spec.Name, strings.Join(quoted, ", "))
		if spec.InputType != "" {
			fmt.Fprintf(&b, "   Input type: %s\n", spec.InputType)
		}
		if spec.Tier != "" {
			fmt.Fprintf(&b, "   Tier: %s\n", spec.Tier)
		}
	}
	return b.String()
}
