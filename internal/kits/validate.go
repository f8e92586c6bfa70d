package kits

import (
	"sort"
	"strings"

	"github.com/rohunvora/anti-slop-lib-sub000/internal/engine"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/view"
)

// KitValidationResult is an AnalysisResult computed over a kit's tokens,
// plus the structural checks a shipped kit has to satisfy.
type KitValidationResult struct {
	engine.AnalysisResult
	Kit               string   `json:"kit"`
	UniqueFontSizes   int      `json:"uniqueFontSizes"`
	HasAllComponents  bool     `json:"hasAllComponents"`
	MissingComponents []string `json:"missingComponents,omitempty"`
	DarkModeComplete  bool     `json:"darkModeComplete"`
	MissingDarkTokens []string `json:"missingDarkTokens,omitempty"`
	Passed            bool     `json:"passed"`
	Problems          []string `json:"problems,omitempty"`
}

// Tokens flattens a kit into a document view. Every literal the kit declares
// becomes a token named after its path in the kit.
func Tokens(k Kit) *view.Tokens {
	tv := view.NewTokens("kit:" + k.Name)
	tv.AddDeclaration("fonts.heading", "font-family", k.Fonts.Heading)
	tv.AddDeclaration("fonts.body", "font-family", k.Fonts.Body)
	tv.AddDeclaration("fonts.mono", "font-family", k.Fonts.Mono)

	for _, mode := range []struct {
		name   string
		tokens map[string]string
	}{{"light", k.Colors.Light}, {"dark", k.Colors.Dark}} {
		for _, key := range sortedKeys(mode.tokens) {
			tv.AddDeclaration("colors."+mode.name+"."+key, "--color-"+key, mode.tokens[key])
		}
	}
	for _, size := range k.TypeScale {
		tv.AddDeclaration("typeScale", "font-size", size)
	}

	names := make([]string, 0, len(k.Components))
	for name := range k.Components {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		r := k.Components[name]
		node := "components." + name
		tv.AddClasses(node, r.Classes)
		for _, d := range view.ParseInlineStyle(r.Style, view.Location{}) {
			tv.AddDeclaration(node, d.Property, d.Value)
		}
		tv.AddText(node, r.Sample)
	}
	for _, l := range k.Layouts {
		tv.AddText("layouts."+l.Name, l.Description)
	}
	return tv
}

// Validate scores k with a and runs the structural checks. A kit passes only
// with score 0 and every check satisfied; grade A is not enough.
func Validate(k Kit, a *engine.Analyzer) KitValidationResult {
	if a == nil {
		a = engine.NewAnalyzer(nil)
	}
	tv := Tokens(k)
	res := KitValidationResult{
		AnalysisResult: a.Analyze(tv),
		Kit:            k.Name,
	}

	res.UniqueFontSizes = uniqueFontSizes(tv)
	if res.UniqueFontSizes > MaxFontSizes {
		res.Problems = append(res.Problems, "type scale has more than 8 distinct sizes")
	}

	for _, name := range RequiredComponents {
		if _, ok := k.Components[name]; !ok {
			res.MissingComponents = append(res.MissingComponents, name)
		}
	}
	res.HasAllComponents = len(res.MissingComponents) == 0
	if !res.HasAllComponents {
		res.Problems = append(res.Problems, "missing components: "+strings.Join(res.MissingComponents, ", "))
	}

	for _, key := range sortedKeys(k.Colors.Light) {
		if strings.TrimSpace(k.Colors.Dark[key]) == "" {
			res.MissingDarkTokens = append(res.MissingDarkTokens, key)
		}
	}
	res.DarkModeComplete = len(k.Colors.Dark) > 0 && len(res.MissingDarkTokens) == 0
	if !res.DarkModeComplete {
		res.Problems = append(res.Problems, "dark mode tokens incomplete")
	}

	if res.Score > 0 {
		res.Problems = append(res.Problems, engine.Verdict(res.AnalysisResult))
	}
	res.Passed = res.Score == 0 && res.UniqueFontSizes <= MaxFontSizes && res.HasAllComponents && res.DarkModeComplete
	return res
}

// uniqueFontSizes counts distinct font-size values, from the type scale and
// any component styles.
func uniqueFontSizes(tv *view.Tokens) int {
	seen := map[string]bool{}
	for _, d := range tv.Declarations() {
		if d.Property != "font-size" {
			continue
		}
		seen[strings.ToLower(strings.Join(strings.Fields(d.Value), ""))] = true
	}
	return len(seen)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
