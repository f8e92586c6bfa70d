package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/engine"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/signals"
)

type TextOptions struct {
	NoColor bool
	// Top limits the fixes printed; 0 prints all the aggregate carries.
	Top int
	// Verbose lists every detection under its file.
	Verbose bool
}

type palette struct {
	red, yellow, green, cyan, bold, dim *color.Color
}

func newPalette(noColor bool) palette {
	p := palette{
		red:    color.New(color.FgRed, color.Bold),
		yellow: color.New(color.FgYellow),
		green:  color.New(color.FgGreen, color.Bold),
		cyan:   color.New(color.FgCyan),
		bold:   color.New(color.Bold),
		dim:    color.New(color.Faint),
	}
	if noColor {
		for _, c := range []*color.Color{p.red, p.yellow, p.green, p.cyan, p.bold, p.dim} {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) grade(g engine.Grade) *color.Color {
	switch g {
	case engine.GradeA, engine.GradeB:
		return p.green
	case engine.GradeC:
		return p.yellow
	}
	return p.red
}

func (p palette) severity(s signals.Severity) *color.Color {
	switch s {
	case signals.Critical:
		return p.red
	case signals.Warning:
		return p.yellow
	}
	return p.cyan
}

// WriteText prints the human summary: one line per file, the aggregate, the
// top fixes and the gate verdict.
func WriteText(w io.Writer, r Report, opts TextOptions) error {
	p := newPalette(opts.NoColor)
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s  %s\n\n", p.bold.Sprint(r.Tool), r.Version, p.dim.Sprintf("catalog %s", r.Catalog))

	for _, f := range r.Files {
		switch f.Status {
		case engine.StatusError:
			fmt.Fprintf(&b, "  %s    -  %s  %s\n", p.red.Sprint("[!]"), f.Path, p.red.Sprint("error: "+f.Error))
			continue
		case engine.StatusSkipped:
			fmt.Fprintf(&b, "  %s    -  %s  %s\n", p.dim.Sprint("[-]"), f.Path, p.dim.Sprint("skipped: "+f.Error))
			continue
		}
		if f.Result == nil {
			continue
		}
		res := f.Result
		fmt.Fprintf(&b, "  %s  %3d  %s  %s\n",
			p.grade(res.Grade).Sprintf("[%s]", res.Grade), res.Score, f.Path, countLine(res.Summary))
		if opts.Verbose {
			for _, d := range res.Detections {
				fmt.Fprintf(&b, "        %s  %-26s %s (x%d, +%d)\n",
					p.severity(d.Severity).Sprintf("%-8s", d.Severity), d.SignalID, d.Name, d.Count, d.Points)
				for i, m := range d.Matches {
					if i == 3 {
						fmt.Fprintf(&b, "            %s\n", p.dim.Sprintf("... %d more", len(d.Matches)-3))
						break
					}
					fmt.Fprintf(&b, "            %s  %s\n", p.dim.Sprint(m.Location.String()), m.Literal)
				}
			}
		}
	}

	agg := r.Aggregate
	fmt.Fprintf(&b, "\nFiles:  %d graded, %d errors, %d skipped\n", agg.Graded, agg.Errors, agg.Skipped)
	fmt.Fprintf(&b, "Grade:  %s (mean score %d)", p.grade(agg.Grade).Sprint(agg.Grade), agg.MeanScore)
	if agg.WorstFile != "" {
		fmt.Fprintf(&b, ", worst %s %s (%d)", p.grade(agg.WorstGrade).Sprint(agg.WorstGrade), agg.WorstFile, agg.MaxScore)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Signals: %s\n", countLine(agg.Summary))

	fixes := agg.Fixes
	if opts.Top > 0 && len(fixes) > opts.Top {
		fixes = fixes[:opts.Top]
	}
	if len(fixes) > 0 {
		fmt.Fprintf(&b, "\n%s\n", p.bold.Sprint("Top fixes"))
		for i, f := range fixes {
			fmt.Fprintf(&b, "  %d. %s %s (%d instances", i+1, p.severity(f.Severity).Sprintf("[%s]", f.Severity), f.Name, f.Instances)
			if f.Effort != "" {
				fmt.Fprintf(&b, ", %s effort", f.Effort)
			}
			b.WriteString(")\n")
			if f.Fix != "" {
				fmt.Fprintf(&b, "     %s\n", f.Fix)
			}
			if f.Replacement != "" {
				fmt.Fprintf(&b, "     %s %s\n", p.dim.Sprint("try:"), f.Replacement)
			}
		}
	}

	if r.Verdict.Message != "" {
		c := p.green
		if !r.Verdict.Pass {
			c = p.red
		}
		fmt.Fprintf(&b, "\n%s\n", c.Sprint(r.Verdict.Message))
		for _, reason := range r.Verdict.Reasons[min(1, len(r.Verdict.Reasons)):] {
			fmt.Fprintf(&b, "  %s\n", reason)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func countLine(s engine.Summary) string {
	if s.Total == 0 {
		return "no template patterns detected"
	}
	return fmt.Sprintf("%d critical, %d warning, %d info", s.Critical, s.Warning, s.Info)
}
