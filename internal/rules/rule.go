// Package rules evaluates clinical pattern rules over a normalized dataset.
//
// Every rule is a pure function of a *core.PatientDataset: no rule keeps state
// between calls, so an Engine may be shared across goroutines.
package rules

import "github.com/JonMunkholm/trutrend/internal/core"

// Rule detects one clinical pattern. Evaluate returns no findings when the
// pattern is absent or there is nothing to evaluate.
type Rule interface {
	Name() string
	Evaluate(ds *core.PatientDataset) []core.Finding
}

// Engine runs rules in a fixed order.
type Engine struct {
	rules []Rule
}

// NewEngine returns the standard engine: postprandial hyperglycemia,
// mistimed bolus, carb ratio mismatch, in that order.
func NewEngine(cfg Config) *Engine {
	return NewEngineWith(
		NewPostprandial(cfg),
		NewMistimedBolus(cfg),
		NewCarbRatio(cfg),
	)
}

// NewEngineWith builds an engine over an explicit rule list.
func NewEngineWith(rules ...Rule) *Engine {
	cp := make([]Rule, len(rules))
	copy(cp, rules)
	return &Engine{rules: cp}
}

// Names returns the rule names in evaluation order.
func (e *Engine) Names() []string {
	names := make([]string, len(e.rules))
	for i, r := range e.rules {
		names[i] = r.Name()
	}
	return names
}

// Evaluate runs every rule and concatenates the findings in rule order.
// The result is never nil; an empty slice is a valid outcome.
func (e *Engine) Evaluate(ds *core.PatientDataset) []core.Finding {
	findings := make([]core.Finding, 0, len(e.rules))
	if ds == nil {
		return findings
	}
	for _, r := range e.rules {
		findings = append(findings, r.Evaluate(ds)...)
	}
	return findings
}
