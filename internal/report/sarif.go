package report

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/rohunvora/anti-slop-lib-sub000/internal/engine"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/signals"
)

const sarifSchema = "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json"

type sarifDocument struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	InformationURI string      `json:"informationUri,omitempty"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	ShortDescription sarifMessage `json:"shortDescription"`
	Help             sarifMessage `json:"help"`
	Properties       sarifProps   `json:"properties"`
}

type sarifProps struct {
	Category string `json:"category"`
	Severity string `json:"severity"`
}

type sarifResult struct {
	RuleID  string          `json:"ruleId"`
	Level   string          `json:"level"`
	Message sarifMessage    `json:"message"`
	Locs    []sarifLocation `json:"locations,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysical `json:"physicalLocation"`
}

type sarifPhysical struct {
	ArtifactLocation sarifArtifact `json:"artifactLocation"`
	Region           *sarifRegion  `json:"region,omitempty"`
}

type sarifArtifact struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   int `json:"startLine"`
	StartColumn int `json:"startColumn,omitempty"`
}

func sarifLevel(s signals.Severity) string {
	switch s {
	case signals.Critical:
		return "error"
	case signals.Warning:
		return "warning"
	}
	return "note"
}

// SARIF renders one result per match, so code scanning can annotate the
// exact line. A failed gate adds a final antislop-gate result.
func SARIF(r Report) ([]byte, error) {
	cat := r.rules()
	var rules []sarifRule
	for _, s := range cat.List() {
		help := s.Description
		if len(s.QuickFixes) > 0 {
			help = s.QuickFixes[len(s.QuickFixes)-1].Description
		}
		rules = append(rules, sarifRule{
			ID:               s.ID,
			Name:             s.Name,
			ShortDescription: sarifMessage{Text: s.Description},
			Help:             sarifMessage{Text: help},
			Properties:       sarifProps{Category: string(s.Category), Severity: string(s.Severity)},
		})
	}

	results := []sarifResult{}
	for _, f := range r.Files {
		if f.Status != engine.StatusGraded || f.Result == nil {
			continue
		}
		uri := filepath.ToSlash(f.Path)
		for _, d := range f.Result.Detections {
			for _, m := range d.Matches {
				res := sarifResult{
					RuleID:  d.SignalID,
					Level:   sarifLevel(d.Severity),
					Message: sarifMessage{Text: fmt.Sprintf("%s: %s", d.Name, m.Literal)},
				}
				loc := sarifLocation{PhysicalLocation: sarifPhysical{ArtifactLocation: sarifArtifact{URI: uri}}}
				if m.Location.Line > 0 {
					loc.PhysicalLocation.Region = &sarifRegion{StartLine: m.Location.Line, StartColumn: m.Location.Col}
				}
				res.Locs = append(res.Locs, loc)
				results = append(results, res)
			}
		}
	}

	if r.Verdict.Message != "" && !r.Verdict.Pass {
		results = append(results, sarifResult{
			RuleID:  "antislop-gate",
			Level:   "error",
			Message: sarifMessage{Text: r.Verdict.Message},
		})
	}

	doc := sarifDocument{
		Schema:  sarifSchema,
		Version: "2.1.0",
		Runs: []sarifRun{{
			Tool:    sarifTool{Driver: sarifDriver{Name: r.Tool, Version: r.Version, Rules: rules}},
			Results: results,
		}},
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
