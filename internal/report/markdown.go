package report

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/rohunvora/anti-slop-lib-sub000/internal/engine"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Markdown renders a PR-comment sized summary.
func Markdown(r Report) []byte {
	var b bytes.Buffer
	agg := r.Aggregate

	status := "passed"
	if r.Verdict.Message != "" && !r.Verdict.Pass {
		status = "failed"
	}
	fmt.Fprintf(&b, "# antislop report: grade %s\n\n", agg.Grade)
	fmt.Fprintf(&b, "Gate **%s**. Mean score %d across %d graded files", status, agg.MeanScore, agg.Graded)
	if agg.WorstFile != "" {
		fmt.Fprintf(&b, "; worst is `%s` at %s (%d)", agg.WorstFile, agg.WorstGrade, agg.MaxScore)
	}
	b.WriteString(".\n\n")
	for _, reason := range r.Verdict.Reasons {
		fmt.Fprintf(&b, "- %s\n", mdEscape(reason))
	}
	if len(r.Verdict.Reasons) > 0 {
		b.WriteString("\n")
	}

	b.WriteString("| Grade | Score | File | Critical | Warning | Info |\n")
	b.WriteString("|---|---:|---|---:|---:|---:|\n")
	for _, f := range r.Files {
		switch {
		case f.Status == engine.StatusError:
			fmt.Fprintf(&b, "| ! | - | `%s` | error: %s | | |\n", f.Path, mdEscape(f.Error))
		case f.Status == engine.StatusSkipped:
			fmt.Fprintf(&b, "| - | - | `%s` | skipped | | |\n", f.Path)
		case f.Result != nil:
			s := f.Result.Summary
			fmt.Fprintf(&b, "| %s | %d | `%s` | %d | %d | %d |\n", f.Result.Grade, f.Result.Score, f.Path, s.Critical, s.Warning, s.Info)
		}
	}

	if len(agg.Fixes) > 0 {
		b.WriteString("\n## Top fixes\n\n")
		for i, f := range agg.Fixes {
			fmt.Fprintf(&b, "%d. **%s** (%s, %d instances)", i+1, mdEscape(f.Name), f.Severity, f.Instances)
			if f.Fix != "" {
				fmt.Fprintf(&b, ": %s", mdEscape(f.Fix))
			}
			b.WriteString("\n")
			if f.Replacement != "" {
				fmt.Fprintf(&b, "   `%s`\n", strings.ReplaceAll(f.Replacement, "`", "'"))
			}
		}
	}
	fmt.Fprintf(&b, "\n<sub>%s %s, catalog %s, %s</sub>\n", r.Tool, r.Version, r.Catalog, r.GeneratedAt)
	return b.Bytes()
}

func mdEscape(s string) string {
	return strings.NewReplacer("|", `\|`, "*", `\*`, "_", `\_`, "<", "&lt;", ">", "&gt;").Replace(s)
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

const htmlHead = `<!doctype html>
<html lang="en"><head><meta charset="utf-8"><title>%s</title>
<style>
body{font:15px/1.5 Georgia,serif;max-width:60rem;margin:2rem auto;padding:0 1rem;color:#222}
table{border-collapse:collapse}td,th{border-bottom:1px solid #ddd;padding:.25rem .6rem;text-align:left}
code{font-size:.9em}
</style></head><body>
`

// HTML renders the Markdown report as a standalone page.
func HTML(r Report) ([]byte, error) {
	var body bytes.Buffer
	if err := markdown.Convert(Markdown(r), &body); err != nil {
		return nil, fmt.Errorf("render html report: %w", err)
	}
	var out bytes.Buffer
	fmt.Fprintf(&out, htmlHead, html.EscapeString("antislop report: grade "+string(r.Aggregate.Grade)))
	out.Write(body.Bytes())
	out.WriteString("</body></html>\n")
	return out.Bytes(), nil
}
