package overlay

import (
	"bytes"
	"fmt"
	"html/template"
	"regexp"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/engine"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/signals"
)

var severityColors = map[signals.Severity]string{
	signals.Critical: "#b91c1c",
	signals.Warning:  "#b45309",
	signals.Info:     "#475569",
}

var panelTemplate = template.Must(template.New("panel").Funcs(template.FuncMap{
	"color": func(s signals.Severity) string { return severityColors[s] },
	"first": func(n int, lits []string) []string {
		if len(lits) > n {
			return lits[:n]
		}
		return lits
	},
}).Parse(`<div class="antislop-panel">
<p class="antislop-meta">antislop {{.Catalog}}{{with .Source}} / {{.}}{{end}}</p>
<h2 class="antislop-grade">Grade {{.Grade}}, score {{.Score}}</h2>
{{- if eq .Score 0}}
<p class="antislop-empty">No template patterns detected</p>
{{- else}}
<ul class="antislop-detections">
{{- range .Detections}}
<li class="antislop-{{.Severity}}" style="color: {{color .Severity}}">[{{.Severity}}] {{.Name}} x{{.Count}} (+{{.Points}}){{range first 3 .Literals}} <code>{{.}}</code>{{end}}</li>
{{- end}}
</ul>
{{- range .Fixes}}
<p class="antislop-fix"><strong>{{.Name}}</strong>: {{.Fix}}</p>
{{- end}}
{{- end}}
</div>`))

var panelPolicy = newPanelPolicy()

func newPanelPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("div", "p", "h2", "ul", "li", "code", "strong")
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^antislop-[a-z-]+$`)).Globally()
	p.AllowStyles("color").Matching(regexp.MustCompile(`^#[0-9a-f]{6}$`)).OnElements("li")
	return p
}

type panelData struct {
	engine.QuickCheckResult
	Catalog string
}

// RenderPanel renders the overlay panel for res as a sanitized HTML
// fragment. Matched literals come from untrusted pages, so the output goes
// through an allowlist even though the template already escapes.
func RenderPanel(res engine.QuickCheckResult, catalogVersion string) (string, error) {
	var buf bytes.Buffer
	if err := panelTemplate.Execute(&buf, panelData{QuickCheckResult: res, Catalog: catalogVersion}); err != nil {
		return "", fmt.Errorf("render panel: %w", err)
	}
	return panelPolicy.Sanitize(buf.String()), nil
}
