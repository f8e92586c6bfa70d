// Package report renders scan results for people and CI systems.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/rohunvora/anti-slop-lib-sub000/internal/config"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/engine"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/gate"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/signals"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/support"
)

// Report is everything one scan produced. It is the JSON written to
// report.json and the input of every renderer.
type Report struct {
	Tool        string              `json:"tool"`
	Version     string              `json:"version"`
	Catalog     string              `json:"catalogVersion"`
	GeneratedAt string              `json:"generatedAt"`
	Policy      gate.Policy         `json:"policy"`
	Verdict     gate.Verdict        `json:"verdict"`
	Aggregate   engine.Aggregate    `json:"aggregate"`
	Files       []engine.FileResult `json:"files"`

	catalog *signals.Catalog
}

// New assembles a report. cat supplies rule metadata for SARIF; nil means the
// built-in catalog.
func New(version string, cat *signals.Catalog, policy gate.Policy, verdict gate.Verdict, agg engine.Aggregate, files []engine.FileResult) Report {
	if cat == nil {
		cat = signals.Default()
	}
	if files == nil {
		files = []engine.FileResult{}
	}
	return Report{
		Tool:        "antislop",
		Version:     version,
		Catalog:     cat.Version(),
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Policy:      policy,
		Verdict:     verdict,
		Aggregate:   agg,
		Files:       files,
		catalog:     cat,
	}
}

func (r Report) rules() *signals.Catalog {
	if r.catalog == nil {
		return signals.Default()
	}
	return r.catalog
}

type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatSARIF    Format = "sarif"
	FormatJUnit    Format = "junit"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

var Formats = []Format{FormatText, FormatJSON, FormatSARIF, FormatJUnit, FormatMarkdown, FormatHTML}

func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case "md":
		return FormatMarkdown, nil
	case "":
		return FormatText, nil
	}
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	names := make([]string, len(Formats))
	for i, known := range Formats {
		names[i] = string(known)
	}
	return "", fmt.Errorf("unknown format %q (valid: %s)", s, strings.Join(names, ", "))
}

// Render writes r to w in format f.
func Render(w io.Writer, f Format, r Report, opts TextOptions) error {
	var (
		data []byte
		err  error
	)
	switch f {
	case FormatText, "":
		return WriteText(w, r, opts)
	case FormatJSON:
		data, err = JSON(r)
	case FormatSARIF:
		data, err = SARIF(r)
	case FormatJUnit:
		data, err = JUnit(r)
	case FormatMarkdown:
		data = Markdown(r)
	case FormatHTML:
		data, err = HTML(r)
	default:
		return fmt.Errorf("unknown format %q", f)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func JSON(r Report) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// WriteFiles writes every report enabled in cfg, atomically, and returns the
// paths written. Paths are taken relative to root. A failing writer does not
// stop the others; all errors are returned together.
func WriteFiles(root string, cfg config.ReportsConfig, r Report) ([]string, error) {
	type target struct {
		rc     config.ReportConfig
		render func(Report) ([]byte, error)
	}
	targets := []target{
		{cfg.JSON, JSON},
		{cfg.SARIF, SARIF},
		{cfg.JUnit, JUnit},
		{cfg.Markdown, func(r Report) ([]byte, error) { return Markdown(r), nil }},
		{cfg.HTML, HTML},
	}
	var written []string
	var errs []string
	for _, t := range targets {
		if !t.rc.Enabled || t.rc.Path == "" {
			continue
		}
		path := joinRoot(root, t.rc.Path)
		data, err := t.render(r)
		if err == nil {
			err = support.WriteFileAtomic(path, data)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", path, err))
			continue
		}
		written = append(written, path)
	}
	if len(errs) > 0 {
		return written, fmt.Errorf("write reports: %s", strings.Join(errs, "; "))
	}
	return written, nil
}

func joinRoot(root, path string) string {
	if root == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}
