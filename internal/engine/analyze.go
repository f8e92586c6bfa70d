package engine

import (
	"fmt"

	"github.com/rohunvora/anti-slop-lib-sub000/internal/signals"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/view"
)

type Summary struct {
	Critical  int `json:"critical"`
	Warning   int `json:"warning"`
	Info      int `json:"info"`
	Total     int `json:"total"`
	Instances int `json:"instances"`
}

// AnalysisResult is the shape every surface emits: CLI JSON, MCP tool
// results and the HTTP API.
type AnalysisResult struct {
	Source     string                   `json:"source,omitempty"`
	Score      int                      `json:"score"`
	Grade      Grade                    `json:"grade"`
	Detections []Detection              `json:"detections"`
	Summary    Summary                  `json:"summary"`
	Categories map[signals.Category]int `json:"categories"`
}

// QuickCheckResult is an AnalysisResult with its top fixes and a one-line
// verdict.
type QuickCheckResult struct {
	AnalysisResult
	Fixes   []RankedFix `json:"fixes"`
	Verdict string      `json:"verdict"`
}

// Analyzer wires a catalog, a policy and a matcher together.
type Analyzer struct {
	Catalog *signals.Catalog
	Policy  Policy
	Matcher Matcher
	// MinSeverity, when set, skips signals below it.
	MinSeverity signals.Severity
}

// NewAnalyzer returns an analyzer over cat with the default policy.
// A nil catalog means the built-in one.
func NewAnalyzer(cat *signals.Catalog) *Analyzer {
	if cat == nil {
		cat = signals.Default()
	}
	return &Analyzer{Catalog: cat, Policy: DefaultPolicy}
}

func (a *Analyzer) policy() Policy {
	if a.Policy == (Policy{}) {
		return DefaultPolicy
	}
	return a.Policy
}

func (a *Analyzer) active() []signals.Signal {
	if a.MinSeverity != "" {
		return a.Catalog.AtLeast(a.MinSeverity)
	}
	return a.Catalog.List()
}

// Analyze runs the full pipeline over v. It never fails: an empty or
// malformed document yields score 0, grade A and no detections.
func (a *Analyzer) Analyze(v view.DocumentView) AnalysisResult {
	source := ""
	if v != nil {
		source = v.Source()
	}
	return a.Result(source, a.Matcher.Match(v, a.active()))
}

// AnalyzeString parses text as a document named source and analyzes it.
func (a *Analyzer) AnalyzeString(source, text string) AnalysisResult {
	return a.Analyze(view.ParseString(source, text))
}

// Result scores and grades a detection set. Detection points are filled in.
func (a *Analyzer) Result(source string, dets []Detection) AnalysisResult {
	p := a.policy()
	out := make([]Detection, len(dets))
	var sum Summary
	for i, d := range dets {
		d.Points = p.Contribution(d)
		out[i] = d
		switch d.Severity {
		case signals.Critical:
			sum.Critical++
		case signals.Warning:
			sum.Warning++
		case signals.Info:
			sum.Info++
		}
		sum.Instances += d.Count
	}
	sum.Total = len(out)
	score, cats := p.Score(out)
	return AnalysisResult{
		Source:     source,
		Score:      score,
		Grade:      GradeFor(score),
		Detections: out,
		Summary:    sum,
		Categories: cats,
	}
}

// Recommend ranks fixes for dets against this analyzer's catalog.
func (a *Analyzer) Recommend(dets []Detection, limit int) []RankedFix {
	return Recommend(a.Catalog, dets, limit)
}

// QuickCheck analyzes v and returns the top limit fixes with a verdict.
func (a *Analyzer) QuickCheck(v view.DocumentView, limit int) QuickCheckResult {
	res := a.Analyze(v)
	return QuickCheckResult{
		AnalysisResult: res,
		Fixes:          a.Recommend(res.Detections, limit),
		Verdict:        Verdict(res),
	}
}

// Filter drops detections below min and rescores what remains.
func (a *Analyzer) Filter(res AnalysisResult, min signals.Severity) AnalysisResult {
	if min == "" {
		return res
	}
	var kept []Detection
	for _, d := range res.Detections {
		if d.Severity.AtLeast(min) {
			kept = append(kept, d)
		}
	}
	if kept == nil {
		kept = []Detection{}
	}
	return a.Result(res.Source, kept)
}

// Verdict summarises a result in one line.
func Verdict(res AnalysisResult) string {
	if res.Summary.Total == 0 {
		return fmt.Sprintf("Grade %s (score %d): no template patterns detected", res.Grade, res.Score)
	}
	return fmt.Sprintf("Grade %s (score %d): %d signals (%d critical, %d warning, %d info) across %d matches",
		res.Grade, res.Score, res.Summary.Total, res.Summary.Critical, res.Summary.Warning, res.Summary.Info, res.Summary.Instances)
}
