// Package overlay builds the in-browser bookmarklet and the server-side
// rendition of its result panel.
package overlay

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/rohunvora/anti-slop-lib-sub000/internal/engine"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/signals"
)

//go:embed bookmarklet.js
var scriptTemplate string

const dataPlaceholder = "__ANTISLOP_DATA__"

type band struct {
	Max   int          `json:"max"`
	Grade engine.Grade `json:"grade"`
}

type ruleSet struct {
	ID       string             `json:"id"`
	Name     string             `json:"name"`
	Severity signals.Severity   `json:"severity"`
	Salience signals.Salience   `json:"salience"`
	Fix      string             `json:"fix,omitempty"`
	Rules    []signals.RuleSpec `json:"rules"`
}

type payload struct {
	Catalog  string         `json:"catalog"`
	Policy   map[string]int `json:"policy"`
	MaxScore int            `json:"maxScore"`
	Bands    []band         `json:"bands"`
	Signals  []ruleSet      `json:"signals"`
}

// Payload is the data the script embeds: every rule in wire form, the
// weights and the grade bands. The browser scores with the same numbers as
// the engine.
func Payload(cat *signals.Catalog, p engine.Policy) ([]byte, error) {
	if cat == nil {
		cat = signals.Default()
	}
	if !p.Valid() {
		p = engine.DefaultPolicy
	}
	out := payload{
		Catalog: cat.Version(),
		Policy: map[string]int{
			string(signals.Critical): p.Critical,
			string(signals.Warning):  p.Warning,
			string(signals.Info):     p.Info,
			"capPerSignal":           p.CapPerSignal,
		},
		MaxScore: engine.MaxScore,
		Bands: []band{
			{engine.MaxA, engine.GradeA},
			{engine.MaxB, engine.GradeB},
			{engine.MaxC, engine.GradeC},
			{engine.MaxD, engine.GradeD},
		},
	}
	for _, s := range cat.List() {
		rs := ruleSet{ID: s.ID, Name: s.Name, Severity: s.Severity, Salience: s.Salience}
		for _, f := range s.QuickFixes {
			if f.When == "" {
				rs.Fix = f.Description
				break
			}
		}
		for _, r := range s.Rules {
			if r.Err() != nil {
				continue
			}
			rs.Rules = append(rs.Rules, r.Spec())
		}
		out.Signals = append(out.Signals, rs)
	}
	return json.Marshal(out)
}

// Script returns the bookmarklet source with the catalog embedded.
func Script(cat *signals.Catalog, p engine.Policy) (string, error) {
	data, err := Payload(cat, p)
	if err != nil {
		return "", fmt.Errorf("encode bookmarklet payload: %w", err)
	}
	return strings.Replace(scriptTemplate, dataPlaceholder, string(data), 1), nil
}

// Bookmarklet returns the script as a javascript: URL.
func Bookmarklet(cat *signals.Catalog, p engine.Policy) (string, error) {
	src, err := Script(cat, p)
	if err != nil {
		return "", err
	}
	return "javascript:" + url.PathEscape(compact(src)), nil
}

// compact drops indentation and blank lines. Statements keep their own
// lines so semicolon insertion behaves as in the source.
func compact(src string) string {
	var b strings.Builder
	for _, line := range strings.Split(src, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}
