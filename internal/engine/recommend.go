package engine

import (
	"sort"

	"github.com/rohunvora/anti-slop-lib-sub000/internal/signals"
)

// RankedFix is one recommendation: a signal, how often it occurred, and the
// first quick fix that applies to what was matched.
type RankedFix struct {
	SignalID    string           `json:"signalId"`
	Name        string           `json:"name"`
	Category    signals.Category `json:"category"`
	Severity    signals.Severity `json:"severity"`
	Salience    signals.Salience `json:"salience"`
	Instances   int              `json:"instances"`
	Points      int              `json:"points"`
	Effort      signals.Effort   `json:"effort,omitempty"`
	Fix         string           `json:"fix,omitempty"`
	Replacement string           `json:"replacement,omitempty"`
	Examples    []string         `json:"examples,omitempty"`
}

const maxExamples = 3

// Recommend merges detections by signal ID and orders them by severity,
// then salience, then instance count, then ID. limit <= 0 returns all.
// Nothing is applied; the caller decides what to do with the fixes.
func Recommend(cat *signals.Catalog, dets []Detection, limit int) []RankedFix {
	byID := map[string]*RankedFix{}
	literals := map[string][]string{}
	var order []string

	for _, d := range dets {
		rf, ok := byID[d.SignalID]
		if !ok {
			rf = &RankedFix{
				SignalID: d.SignalID,
				Name:     d.Name,
				Category: d.Category,
				Severity: d.Severity,
				Salience: d.Salience,
			}
			byID[d.SignalID] = rf
			order = append(order, d.SignalID)
		}
		rf.Instances += d.Count
		rf.Points += d.Points
		literals[d.SignalID] = appendUnique(literals[d.SignalID], d.Literals()...)
	}

	out := make([]RankedFix, 0, len(order))
	for _, id := range order {
		rf := byID[id]
		lits := literals[id]
		if len(lits) > maxExamples {
			rf.Examples = append([]string(nil), lits[:maxExamples]...)
		} else {
			rf.Examples = lits
		}
		if cat != nil {
			if sig, ok := cat.Lookup(id); ok {
				for _, f := range sig.QuickFixes {
					if f.AppliesTo(lits) {
						rf.Effort = f.Effort
						rf.Fix = f.Description
						rf.Replacement = f.Replacement
						break
					}
				}
			}
		}
		out = append(out, *rf)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() < b.Severity.Rank()
		}
		if a.Salience.Rank() != b.Salience.Rank() {
			return a.Salience.Rank() < b.Salience.Rank()
		}
		if a.Instances != b.Instances {
			return a.Instances > b.Instances
		}
		return a.SignalID < b.SignalID
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func appendUnique(dst []string, items ...string) []string {
	for _, it := range items {
		dup := false
		for _, have := range dst {
			if have == it {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, it)
		}
	}
	return dst
}
