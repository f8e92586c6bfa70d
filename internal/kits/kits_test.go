package kits

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func detectionIDs(res KitValidationResult) []string {
	var ids []string
	for _, d := range res.Detections {
		ids = append(ids, d.SignalID)
	}
	return ids
}

func TestBuiltinKitsPass(t *testing.T) {
	all := All()
	if len(all) < 3 {
		t.Fatalf("expected at least 3 built-in kits, got %d", len(all))
	}
	for _, k := range all {
		t.Run(k.Name, func(t *testing.T) {
			res := Validate(k, nil)
			if res.Score != 0 || !res.Passed {
				t.Fatalf("kit %s: score=%d passed=%v detections=%v problems=%v",
					k.Name, res.Score, res.Passed, detectionIDs(res), res.Problems)
			}
			if res.UniqueFontSizes == 0 || res.UniqueFontSizes > MaxFontSizes {
				t.Fatalf("unique font sizes = %d", res.UniqueFontSizes)
			}
		})
	}
}

func TestValidateIsIdempotent(t *testing.T) {
	k, err := Lookup("paper")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	first := Validate(k, nil)
	second := Validate(k, nil)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("validation differs between runs")
	}
}

func TestBannedFontFails(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Kit)
		signal string
	}{
		{"inter in body stack", func(k *Kit) { k.Fonts.Body = "'Acme Text', Inter, sans-serif" }, "typo-inter-everywhere"},
		{"poppins heading", func(k *Kit) { k.Fonts.Heading = "Poppins" }, "typo-starter-sans"},
		{"purple accent", func(k *Kit) { k.Colors.Dark["accent"] = "#8b5cf6" }, "color-ai-purple"},
		{"soft card", func(k *Kit) {
			r := k.Components["card"]
			r.Classes += " rounded-2xl"
			k.Components["card"] = r
		}, "comp-soft-cards"},
		{"buzzword copy", func(k *Kit) {
			r := k.Components["hero"]
			r.Sample = "Unlock your invoices"
			k.Components["hero"] = r
		}, "copy-ai-buzzwords"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			k, err := Lookup("studio")
			if err != nil {
				t.Fatalf("Lookup: %v", err)
			}
			tc.mutate(&k)
			res := Validate(k, nil)
			if res.Passed || res.Score == 0 {
				t.Fatalf("expected failure, got score=%d passed=%v", res.Score, res.Passed)
			}
			found := false
			for _, id := range detectionIDs(res) {
				if id == tc.signal {
					found = true
				}
			}
			if !found {
				t.Fatalf("detections %v missing %s", detectionIDs(res), tc.signal)
			}
		})
	}
}

func TestLookupDoesNotShareState(t *testing.T) {
	k, _ := Lookup("ledger")
	k.Colors.Light["accent"] = "#8b5cf6"
	again, _ := Lookup("ledger")
	if again.Colors.Light["accent"] == "#8b5cf6" {
		t.Fatalf("Lookup returned shared maps")
	}
}

func TestLookupUnknown(t *testing.T) {
	_, err := Lookup("neon")
	var uk *UnknownKitError
	if !errors.As(err, &uk) {
		t.Fatalf("expected UnknownKitError, got %v", err)
	}
	if uk.Name != "neon" || !reflect.DeepEqual(uk.Available, Names()) {
		t.Fatalf("unexpected error fields: %+v", uk)
	}
	if k, err := Lookup(" Paper "); err != nil || k.Name != "paper" {
		t.Fatalf("case-insensitive lookup failed: %v", err)
	}
}

func TestStructuralChecks(t *testing.T) {
	t.Run("missing component", func(t *testing.T) {
		k, _ := Lookup("paper")
		delete(k.Components, "footer")
		res := Validate(k, nil)
		if res.HasAllComponents || res.Passed {
			t.Fatalf("expected missing component failure")
		}
		if !reflect.DeepEqual(res.MissingComponents, []string{"footer"}) {
			t.Fatalf("missing = %v", res.MissingComponents)
		}
		if res.Score != 0 {
			t.Fatalf("structural gaps do not affect score, got %d", res.Score)
		}
	})
	t.Run("dark mode gap", func(t *testing.T) {
		k, _ := Lookup("paper")
		delete(k.Colors.Dark, "accent")
		res := Validate(k, nil)
		if res.DarkModeComplete || res.Passed {
			t.Fatalf("expected dark mode failure")
		}
		if !reflect.DeepEqual(res.MissingDarkTokens, []string{"accent"}) {
			t.Fatalf("missing dark = %v", res.MissingDarkTokens)
		}
	})
	t.Run("no dark tokens", func(t *testing.T) {
		k, _ := Lookup("paper")
		k.Colors.Dark = nil
		if res := Validate(k, nil); res.DarkModeComplete {
			t.Fatalf("expected dark mode failure")
		}
	})
	t.Run("too many sizes", func(t *testing.T) {
		k, _ := Lookup("studio")
		k.TypeScale = []string{"10px", "11px", "12px", "13px", "14px", "16px", "18px", "20px", "24px"}
		res := Validate(k, nil)
		if res.UniqueFontSizes != 9 || res.Passed {
			t.Fatalf("sizes=%d passed=%v", res.UniqueFontSizes, res.Passed)
		}
	})
	t.Run("duplicate sizes count once", func(t *testing.T) {
		k, _ := Lookup("ledger")
		k.TypeScale = []string{"1rem", "1rem", " 1rem"}
		// the input recipe declares 0.875rem
		if res := Validate(k, nil); res.UniqueFontSizes != 2 {
			t.Fatalf("sizes = %d", res.UniqueFontSizes)
		}
	})
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mine.yaml")
	doc := "\ufeffname: mine\n" +
		"fonts:\n  heading: \"'Literata', serif\"\n  body: \"'Atkinson Hyperlegible', sans-serif\"\n" +
		"colors:\n  light: {bg: \"#fdfcf9\", ink: \"#202020\"}\n  dark: {bg: \"#1b1b1b\", ink: \"#ececec\"}\n" +
		"typeScale: [\"1rem\", \"1.5rem\"]\n" +
		"components:\n" +
		"  button: {classes: \"border px-3 py-1\", sample: \"Save draft\"}\n" +
		"  card: {classes: \"border p-4\"}\n" +
		"  input: {classes: \"border px-2\"}\n" +
		"  nav: {classes: \"flex gap-4\"}\n" +
		"  hero: {classes: \"py-12\"}\n" +
		"  footer: {classes: \"py-6 text-sm\"}\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	k, err := Resolve(path)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res := Validate(k, nil); !res.Passed {
		t.Fatalf("user kit failed: %v %v", detectionIDs(res), res.Problems)
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("description: no name\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(bad); err == nil {
		t.Fatalf("expected missing name error")
	}
}
