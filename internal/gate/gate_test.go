package gate

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rohunvora/anti-slop-lib-sub000/internal/engine"
)

func aggregate(mean int, worst engine.Grade, critical int) engine.Aggregate {
	return engine.Aggregate{
		Files:      3,
		Graded:     3,
		MeanScore:  mean,
		MaxScore:   mean + 10,
		Grade:      engine.GradeFor(mean),
		WorstGrade: worst,
		WorstFile:  "landing.html",
		Summary:    engine.Summary{Critical: critical, Warning: 2, Info: 1},
	}
}

func TestEvaluate(t *testing.T) {
	cases := []struct {
		name    string
		policy  Policy
		agg     engine.Aggregate
		pass    bool
		reasons int
	}{
		{"clean", Policy{Threshold: engine.GradeC, MaxCritical: -1}, aggregate(5, engine.GradeA, 0), true, 0},
		{"at threshold", Policy{Threshold: engine.GradeC, MaxCritical: -1}, aggregate(30, engine.GradeC, 1), true, 0},
		{"worst file below threshold", Policy{Threshold: engine.GradeC, MaxCritical: -1}, aggregate(20, engine.GradeD, 0), false, 1},
		{"critical limit", Policy{Threshold: engine.GradeF, MaxCritical: 0}, aggregate(20, engine.GradeB, 1), false, 1},
		{"expression", Policy{Threshold: engine.GradeF, MaxCritical: -1, FailWhen: "warning >= 2 && files > 1"}, aggregate(20, engine.GradeB, 0), false, 1},
		{"expression false", Policy{Threshold: engine.GradeF, MaxCritical: -1, FailWhen: "score > 50 || grade_rank >= 3"}, aggregate(20, engine.GradeB, 0), true, 0},
		{"every reason", Policy{Threshold: engine.GradeA, MaxCritical: 0, FailWhen: "critical > 0"}, aggregate(70, engine.GradeF, 4), false, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v, err := Evaluate(tc.policy, tc.agg)
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if v.Pass != tc.pass || len(v.Reasons) != tc.reasons {
				t.Fatalf("verdict = %+v", v)
			}
			prefix := "FAILED"
			if tc.pass {
				prefix = "PASSED"
			}
			if !strings.HasPrefix(v.Message, prefix) {
				t.Fatalf("message = %q", v.Message)
			}
		})
	}
}

func TestEvaluateBadExpression(t *testing.T) {
	for _, expr := range []string{"score >", "colour > 2", "score + 1"} {
		_, err := Evaluate(Policy{Threshold: engine.GradeF, MaxCritical: -1, FailWhen: expr}, aggregate(10, engine.GradeA, 0))
		var ee *ExprError
		if !errors.As(err, &ee) {
			t.Fatalf("%q: expected ExprError, got %v", expr, err)
		}
	}
}

func TestOverrides(t *testing.T) {
	dir := t.TempDir()
	if _, found, err := LoadOverrides(dir); err != nil || found {
		t.Fatalf("missing file: found=%v err=%v", found, err)
	}

	if err := os.MkdirAll(filepath.Join(dir, ".antislop"), 0o755); err != nil {
		t.Fatal(err)
	}
	doc := "threshold: b\nmax_critical: 0\nignore:\n  - legacy/**\n"
	if err := os.WriteFile(filepath.Join(dir, OverridesFile), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	o, found, err := LoadOverrides(dir)
	if err != nil || !found {
		t.Fatalf("LoadOverrides: found=%v err=%v", found, err)
	}
	if o.FailWhen != nil || o.Severity != nil {
		t.Fatalf("unset fields should stay nil: %+v", o)
	}
	p, err := o.Apply(Policy{Threshold: engine.GradeD, MaxCritical: -1, FailWhen: "errors > 0"})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if p.Threshold != engine.GradeB || p.MaxCritical != 0 || p.FailWhen != "errors > 0" {
		t.Fatalf("policy = %+v", p)
	}
	if len(o.Ignore) != 1 || o.Ignore[0] != "legacy/**" {
		t.Fatalf("ignore = %v", o.Ignore)
	}

	bad := "Q"
	if _, err := (Overrides{Threshold: &bad}).Apply(Policy{}); err == nil {
		t.Fatalf("expected invalid threshold error")
	}
}
