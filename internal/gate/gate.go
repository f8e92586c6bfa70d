// Package gate decides whether a scan passes. The policy comes from config,
// optionally overridden per workspace by .antislop/config.yml.
package gate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rohunvora/anti-slop-lib-sub000/internal/engine"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/support"
	"gopkg.in/Knetic/govaluate.v3"
	"gopkg.in/yaml.v3"
)

// OverridesFile is the per-workspace gating file, relative to the workspace.
const OverridesFile = ".antislop/config.yml"

// Policy is the resolved gate. MaxCritical below zero disables the limit.
type Policy struct {
	Threshold   engine.Grade `json:"threshold"`
	MaxCritical int          `json:"maxCritical"`
	FailWhen    string       `json:"failWhen,omitempty"`
}

// Overrides mirrors .antislop/config.yml. Nil fields were not set and leave
// the configured value alone.
type Overrides struct {
	Threshold   *string  `yaml:"threshold"`
	MaxCritical *int     `yaml:"max_critical"`
	FailWhen    *string  `yaml:"fail_when"`
	Severity    *string  `yaml:"severity"`
	Ignore      []string `yaml:"ignore"`
}

// LoadOverrides reads the workspace overrides. A missing file is not an
// error; found reports whether one was read.
func LoadOverrides(workspace string) (o Overrides, found bool, err error) {
	path := filepath.Join(workspace, OverridesFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Overrides{}, false, nil
	}
	if err != nil {
		return Overrides{}, false, err
	}
	if err := yaml.Unmarshal(support.StripBOM(data), &o); err != nil {
		return Overrides{}, true, fmt.Errorf("parse %s: %w", path, err)
	}
	return o, true, nil
}

// Apply returns p with every set override applied.
func (o Overrides) Apply(p Policy) (Policy, error) {
	if o.Threshold != nil {
		g, err := engine.ParseGrade(*o.Threshold)
		if err != nil {
			return p, fmt.Errorf("threshold: %w", err)
		}
		p.Threshold = g
	}
	if o.MaxCritical != nil {
		p.MaxCritical = *o.MaxCritical
	}
	if o.FailWhen != nil {
		p.FailWhen = *o.FailWhen
	}
	return p, nil
}

// ExprError is a fail_when expression that does not compile or does not
// evaluate to a boolean.
type ExprError struct {
	Expr string
	Err  error
}

func (e *ExprError) Error() string {
	return fmt.Sprintf("fail_when %q: %v", e.Expr, e.Err)
}

func (e *ExprError) Unwrap() error { return e.Err }

// Variables lists the names a fail_when expression can use.
var Variables = []string{"score", "max_score", "grade_rank", "critical", "warning", "info", "files", "graded", "errors"}

// Params exposes an aggregate to fail_when expressions. grade_rank is 0 for
// A through 4 for F and reflects the worst file.
func Params(agg engine.Aggregate) map[string]interface{} {
	return map[string]interface{}{
		"score":      float64(agg.MeanScore),
		"max_score":  float64(agg.MaxScore),
		"grade_rank": float64(agg.WorstGrade.Rank()),
		"critical":   float64(agg.Summary.Critical),
		"warning":    float64(agg.Summary.Warning),
		"info":       float64(agg.Summary.Info),
		"files":      float64(agg.Files),
		"graded":     float64(agg.Graded),
		"errors":     float64(agg.Errors),
	}
}

// Compile checks an expression without evaluating it, for config
// validation before a long scan starts.
func Compile(expr string) (*govaluate.EvaluableExpression, error) {
	e, err := govaluate.NewEvaluableExpression(expr)
	if err != nil {
		return nil, &ExprError{Expr: expr, Err: err}
	}
	known := map[string]bool{}
	for _, v := range Variables {
		known[v] = true
	}
	var unknown []string
	for _, v := range e.Vars() {
		if !known[v] {
			unknown = append(unknown, v)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, &ExprError{Expr: expr, Err: fmt.Errorf("unknown variables %s (valid: %s)",
			strings.Join(unknown, ", "), strings.Join(Variables, ", "))}
	}
	return e, nil
}

// Verdict is the outcome of a gate. Reasons lists every rule that failed.
type Verdict struct {
	Pass    bool     `json:"pass"`
	Message string   `json:"message"`
	Reasons []string `json:"reasons,omitempty"`
}

// Evaluate applies p to agg. Only a broken fail_when expression returns an
// error; that is a configuration problem, not a failed gate.
func Evaluate(p Policy, agg engine.Aggregate) (Verdict, error) {
	var reasons []string
	if p.Threshold != "" && agg.WorstGrade.Worse(p.Threshold) {
		reasons = append(reasons, fmt.Sprintf("grade %s in %s is below threshold %s", agg.WorstGrade, agg.WorstFile, p.Threshold))
	}
	if p.MaxCritical >= 0 && agg.Summary.Critical > p.MaxCritical {
		reasons = append(reasons, fmt.Sprintf("%d critical signals exceed max_critical %d", agg.Summary.Critical, p.MaxCritical))
	}
	if strings.TrimSpace(p.FailWhen) != "" {
		e, err := Compile(p.FailWhen)
		if err != nil {
			return Verdict{}, err
		}
		out, err := e.Evaluate(Params(agg))
		if err != nil {
			return Verdict{}, &ExprError{Expr: p.FailWhen, Err: err}
		}
		fail, ok := out.(bool)
		if !ok {
			return Verdict{}, &ExprError{Expr: p.FailWhen, Err: fmt.Errorf("evaluates to %v, not a boolean", out)}
		}
		if fail {
			reasons = append(reasons, "fail_when matched: "+p.FailWhen)
		}
	}

	if len(reasons) == 0 {
		return Verdict{Pass: true, Message: fmt.Sprintf("PASSED: grade %s (mean score %d, worst %s)", agg.Grade, agg.MeanScore, agg.WorstGrade)}, nil
	}
	return Verdict{
		Pass:    false,
		Message: fmt.Sprintf("FAILED: %s", reasons[0]),
		Reasons: reasons,
	}, nil
}
