package overlay

import (
	"encoding/json"
	"net/url"
	"strings"
	"testing"

	"github.com/rohunvora/anti-slop-lib-sub000/internal/engine"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/signals"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/view"
)

func TestPayloadCarriesCatalogAndPolicy(t *testing.T) {
	data, err := Payload(nil, engine.Policy{})
	if err != nil {
		t.Fatalf("Payload: %v", err)
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	cat := signals.Default()
	if len(p.Signals) != cat.Len() || p.Catalog != cat.Version() {
		t.Fatalf("signals=%d catalog=%s", len(p.Signals), p.Catalog)
	}
	if p.Policy["critical"] != engine.DefaultPolicy.Critical || p.Policy["capPerSignal"] != engine.DefaultPolicy.CapPerSignal {
		t.Fatalf("policy = %v", p.Policy)
	}
	if len(p.Bands) != 4 || p.Bands[0].Max != engine.MaxA || p.MaxScore != engine.MaxScore {
		t.Fatalf("bands = %+v", p.Bands)
	}
	for _, s := range p.Signals {
		if len(s.Rules) == 0 {
			t.Errorf("%s shipped without rules", s.ID)
		}
		sig, _ := cat.Lookup(s.ID)
		if s.Salience == "" || s.Salience != sig.Salience {
			t.Errorf("%s salience = %q, want %q", s.ID, s.Salience, sig.Salience)
		}
	}
}

func TestScriptRanksAndMatchesLikeEngine(t *testing.T) {
	src, err := Script(nil, engine.DefaultPolicy)
	if err != nil {
		t.Fatalf("Script: %v", err)
	}
	for _, want := range []string{
		"sal[a.s.salience] - sal[b.s.salience]",
		`d.p !== "font"`,
		`d.p.indexOf("--font") !== 0`,
		"shorthand(d.v)",
		`new RegExp(quoted.join("|"), "gi")`,
	} {
		if !strings.Contains(src, want) {
			t.Errorf("script missing %q", want)
		}
	}
}

func TestScriptIsSelfContained(t *testing.T) {
	src, err := Script(nil, engine.DefaultPolicy)
	if err != nil {
		t.Fatalf("Script: %v", err)
	}
	if strings.Contains(src, dataPlaceholder) {
		t.Fatalf("placeholder not replaced")
	}
	for _, banned := range []string{"fetch(", "XMLHttpRequest", "sendBeacon", "WebSocket", "localStorage", "<script"} {
		if strings.Contains(src, banned) {
			t.Errorf("script contains %q", banned)
		}
	}
	for _, want := range []string{"No template patterns detected", "color-ai-purple", "antislop-panel"} {
		if !strings.Contains(src, want) {
			t.Errorf("script missing %q", want)
		}
	}
}

func TestBookmarkletURL(t *testing.T) {
	bm, err := Bookmarklet(nil, engine.DefaultPolicy)
	if err != nil {
		t.Fatalf("Bookmarklet: %v", err)
	}
	if !strings.HasPrefix(bm, "javascript:") {
		t.Fatalf("prefix = %q", bm[:20])
	}
	if strings.ContainsAny(bm, " \"") {
		t.Fatalf("bookmarklet not escaped")
	}
	decoded, err := url.PathUnescape(strings.TrimPrefix(bm, "javascript:"))
	if err != nil {
		t.Fatalf("unescape: %v", err)
	}
	if !strings.HasPrefix(decoded, "(function () {") {
		t.Fatalf("decoded script starts with %q", decoded[:20])
	}
}

func TestRenderPanel(t *testing.T) {
	a := engine.NewAnalyzer(nil)

	clean, err := RenderPanel(a.QuickCheck(view.ParseString("a.html", "<p>Invoices, sent.</p>"), 3), "v1")
	if err != nil {
		t.Fatalf("RenderPanel: %v", err)
	}
	if !strings.Contains(clean, "No template patterns detected") || !strings.Contains(clean, "Grade A, score 0") {
		t.Fatalf("clean panel:\n%s", clean)
	}

	res := a.QuickCheck(view.ParseString("b.html", `<div class="rounded-2xl">Unlock it</div>`), 3)
	res.Detections = append(res.Detections, engine.Detection{
		SignalID: "x", Name: "Injected", Severity: signals.Info, Count: 1,
		Matches: []engine.Occurrence{{Literal: `<img src=x onerror=alert(1)>`}},
	})
	out, err := RenderPanel(res, "v1")
	if err != nil {
		t.Fatalf("RenderPanel: %v", err)
	}
	if strings.Contains(out, "<img") || strings.Contains(out, "onerror=alert(1)>") && !strings.Contains(out, "&lt;img") {
		t.Fatalf("unsanitized literal:\n%s", out)
	}
	for _, want := range []string{`class="antislop-critical"`, "Generated-copy vocabulary", "<code>rounded-2xl</code>", "antislop-fix"} {
		if !strings.Contains(out, want) {
			t.Errorf("panel missing %q:\n%s", want, out)
		}
	}
}
