package main

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/rohunvora/anti-slop-lib-sub000/internal/support"
)

type bundleEntry struct {
	Name   string `json:"name"`
	Source string `json:"source"`
	Bytes  int    `json:"bytes"`
	SHA256 string `json:"sha256"`
}

type bundleManifest struct {
	GeneratedAtUtc string        `json:"generatedAtUtc"`
	Version        string        `json:"version"`
	Workspace      string        `json:"workspace"`
	Files          []bundleEntry `json:"files"`
}

func newSupportBundleCmd(a *app) *cobra.Command {
	var withHistory bool
	cmd := &cobra.Command{
		Use:   "support-bundle",
		Short: "Zip reports, logs and config for a bug report",
		Long: `Support-bundle collects whatever reports, plans, audit log and config the
workspace currently has into support-bundle_<timestamp>.zip in the output
directory, with a manifest of sha256 sums. Missing files are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, manifest, err := a.writeSupportBundle(time.Now().UTC(), withHistory)
			if err != nil {
				return failed(err)
			}
			fmt.Fprintf(a.stdout, "Support bundle: %s (%d files)\n", path, len(manifest.Files))
			a.audit(support.AuditEntry{Command: "support-bundle", Files: len(manifest.Files), Result: "OK", Detail: path})
			return nil
		},
	}
	cmd.Flags().BoolVar(&withHistory, "with-history", false, "include the history database")
	return cmd
}

// bundleCandidates maps archive names to absolute source paths.
func (a *app) bundleCandidates(withHistory bool) map[string]string {
	c := map[string]string{}
	for _, name := range []string{
		"audit.log",
		"doctor.json",
		"fix-plan.json",
		"fix.patch",
		"calibration-report.json",
		"config.yml",
	} {
		c[name] = a.output(name)
	}
	r := a.cfg.Reports
	for _, rc := range []string{r.JSON.Path, r.SARIF.Path, r.JUnit.Path, r.Markdown.Path, r.HTML.Path} {
		if rc != "" {
			c["reports/"+filepath.Base(rc)] = a.resolve(rc)
		}
	}
	if a.cfg.Harvest.OutputPath != "" {
		c["harvest.json"] = a.resolve(a.cfg.Harvest.OutputPath)
	}
	if a.cfgPath != "" {
		c["config/"+filepath.Base(a.cfgPath)] = a.cfgPath
	}
	if withHistory && a.cfg.History.Path != "" {
		c["history/"+filepath.Base(a.cfg.History.Path)] = a.resolve(a.cfg.History.Path)
	}
	return c
}

func (a *app) writeSupportBundle(now time.Time, withHistory bool) (string, bundleManifest, error) {
	manifest := bundleManifest{
		GeneratedAtUtc: now.Format(time.RFC3339),
		Version:        Version,
		Workspace:      a.root(),
		Files:          []bundleEntry{},
	}
	outPath := a.output(fmt.Sprintf("support-bundle_%s.zip", now.Format("20060102_150405")))
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", manifest, err
	}

	tmpPath := fmt.Sprintf("%s.tmp.%d", outPath, os.Getpid())
	f, err := os.Create(tmpPath)
	if err != nil {
		return "", manifest, err
	}
	zipw := zip.NewWriter(f)
	abort := func(err error) (string, bundleManifest, error) {
		_ = zipw.Close()
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return "", manifest, err
	}

	candidates := a.bundleCandidates(withHistory)
	names := make([]string, 0, len(candidates))
	for name := range candidates {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		src := candidates[name]
		data, err := os.ReadFile(src)
		if err != nil {
			continue
		}
		if err := addBytesToZip(zipw, name, data); err != nil {
			return abort(err)
		}
		manifest.Files = append(manifest.Files, bundleEntry{
			Name:   name,
			Source: src,
			Bytes:  len(data),
			SHA256: support.HashBytes(data),
		})
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return abort(err)
	}
	if err := addBytesToZip(zipw, "manifest.json", data); err != nil {
		return abort(err)
	}
	if err := zipw.Close(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return "", manifest, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", manifest, err
	}
	_ = os.Remove(outPath)
	if err := os.Rename(tmpPath, outPath); err != nil {
		return "", manifest, err
	}
	return outPath, manifest, nil
}

func addBytesToZip(zipw *zip.Writer, name string, data []byte) error {
	w, err := zipw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
