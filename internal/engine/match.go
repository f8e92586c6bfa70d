// Package engine runs the analysis pipeline: match a document against the
// catalog, score and grade the detections, and rank fixes.
package engine

import (
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/rohunvora/anti-slop-lib-sub000/internal/signals"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/view"
)

// Occurrence is one literal occurrence behind a detection.
type Occurrence struct {
	Literal  string        `json:"literal"`
	Location view.Location `json:"location"`
}

// Detection is every occurrence of one signal in one document.
type Detection struct {
	SignalID string           `json:"signalId"`
	Name     string           `json:"name"`
	Category signals.Category `json:"category"`
	Severity signals.Severity `json:"severity"`
	Salience signals.Salience `json:"salience"`
	Matches  []Occurrence     `json:"matches"`
	Count    int              `json:"count"`
	Points   int              `json:"points"`
}

// Literals returns the distinct matched strings in first-seen order.
func (d Detection) Literals() []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range d.Matches {
		if !seen[m.Literal] {
			seen[m.Literal] = true
			out = append(out, m.Literal)
		}
	}
	return out
}

// Matcher evaluates signals against a view. Signals are independent, so they
// are spread over Concurrency goroutines; results are always returned in
// catalog order.
type Matcher struct {
	Concurrency int
}

// Match runs each signal's rules against v and returns one Detection per
// signal that hit. An empty view yields an empty, non-nil slice.
func (m Matcher) Match(v view.DocumentView, sigs []signals.Signal) []Detection {
	if v == nil || view.IsEmpty(v) || len(sigs) == 0 {
		return []Detection{}
	}

	slots := make([]*Detection, len(sigs))
	limit := m.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i := range sigs {
		i := i
		g.Go(func() error {
			slots[i] = matchSignal(v, sigs[i])
			return nil
		})
	}
	_ = g.Wait()

	out := []Detection{}
	for _, d := range slots {
		if d != nil {
			out = append(out, *d)
		}
	}
	return out
}

func matchSignal(v view.DocumentView, s signals.Signal) *Detection {
	type key struct {
		literal string
		loc     view.Location
	}
	seen := map[key]bool{}
	var matches []Occurrence
	for _, r := range s.Rules {
		for _, h := range r.Find(v) {
			k := key{h.Literal, h.Loc}
			if seen[k] {
				continue
			}
			seen[k] = true
			matches = append(matches, Occurrence{Literal: h.Literal, Location: h.Loc})
		}
	}
	if len(matches) == 0 {
		return nil
	}
	return &Detection{
		SignalID: s.ID,
		Name:     s.Name,
		Category: s.Category,
		Severity: s.Severity,
		Salience: s.Salience,
		Matches:  matches,
		Count:    len(matches),
	}
}
