package engine

import "github.com/rohunvora/anti-slop-lib-sub000/internal/signals"

// Policy holds the scoring weights. Only the ordering critical > warning >
// info and the saturating cap are structural; the numbers are tuned with
// `antislop calibrate`.
type Policy struct {
	Critical     int `json:"critical" yaml:"critical" mapstructure:"critical"`
	Warning      int `json:"warning" yaml:"warning" mapstructure:"warning"`
	Info         int `json:"info" yaml:"info" mapstructure:"info"`
	CapPerSignal int `json:"capPerSignal" yaml:"cap_per_signal" mapstructure:"cap_per_signal"`
}

const MaxScore = 100

// DefaultPolicy is the shipped weighting.
var DefaultPolicy = Policy{Critical: 15, Warning: 8, Info: 3, CapPerSignal: 3}

// Valid reports whether the policy keeps severities strictly ordered with
// positive weights and a positive cap.
func (p Policy) Valid() bool {
	return p.Info > 0 && p.Warning > p.Info && p.Critical > p.Warning && p.CapPerSignal > 0
}

// BasePoints returns the weight for one occurrence at sev.
func (p Policy) BasePoints(sev signals.Severity) int {
	switch sev {
	case signals.Critical:
		return p.Critical
	case signals.Warning:
		return p.Warning
	case signals.Info:
		return p.Info
	}
	return 0
}

// Contribution is BasePoints × min(count, CapPerSignal).
func (p Policy) Contribution(d Detection) int {
	n := d.Count
	if n > p.CapPerSignal {
		n = p.CapPerSignal
	}
	if n < 0 {
		n = 0
	}
	return p.BasePoints(d.Severity) * n
}

// Score sums contributions per category and clamps the total to
// [0, MaxScore]. Every category appears in the breakdown, zero or not.
func (p Policy) Score(dets []Detection) (int, map[signals.Category]int) {
	cats := make(map[signals.Category]int, len(signals.Categories))
	for _, c := range signals.Categories {
		cats[c] = 0
	}
	total := 0
	for _, d := range dets {
		pts := p.Contribution(d)
		cats[d.Category] += pts
		total += pts
	}
	return clamp(total), cats
}

// Score applies DefaultPolicy.
func Score(dets []Detection) (int, map[signals.Category]int) {
	return DefaultPolicy.Score(dets)
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	if n > MaxScore {
		return MaxScore
	}
	return n
}
