package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rohunvora/anti-slop-lib-sub000/internal/engine"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/support"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/view"
)

// calibrationVector is one document with the grade product intent expects.
// Path is relative to the vectors file; HTML is inline markup.
type calibrationVector struct {
	Name        string `yaml:"name"`
	Path        string `yaml:"path"`
	HTML        string `yaml:"html"`
	Source      string `yaml:"source"`
	ExpectGrade string `yaml:"expectGrade"`
	MaxScore    *int   `yaml:"maxScore"`
	MinScore    *int   `yaml:"minScore"`
}

// calibrationFile is either a bare list of vectors or a document with a
// policy to try.
type calibrationFile struct {
	Policy  *engine.Policy      `yaml:"policy"`
	Vectors []calibrationVector `yaml:"vectors"`
}

type calibrationReport struct {
	Policy        engine.Policy    `json:"policy"`
	TotalVectors  int              `json:"totalVectors"`
	PassedVectors int              `json:"passedVectors"`
	FailedVectors int              `json:"failedVectors"`
	PassRatePct   float64          `json:"passRatePct"`
	Confidence    string           `json:"confidence"`
	Results       []calibrationRun `json:"results"`
}

type calibrationRun struct {
	Vector      string       `json:"vector"`
	Score       int          `json:"score"`
	Grade       engine.Grade `json:"grade"`
	ExpectGrade engine.Grade `json:"expectGrade,omitempty"`
	Pass        bool         `json:"pass"`
	Reason      string       `json:"reason,omitempty"`
}

func newCalibrateCmd(a *app) *cobra.Command {
	var (
		vectorsPath    string
		failOnMismatch bool
	)
	cmd := &cobra.Command{
		Use:   "calibrate --vectors vectors.yml",
		Short: "Check the scoring policy against calibration vectors",
		Long: `Calibrate grades each vector (a file or inline markup) and compares the
result with the expected grade and score bounds. A vectors file may carry a
policy block to try other weights before changing the defaults.

  policy: {critical: 15, warning: 8, info: 3, cap_per_signal: 3}
  vectors:
    - name: purple hero
      path: fixtures/hero.html
      expectGrade: D
      minScore: 46`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if vectorsPath == "" {
				return usagef("--vectors is required")
			}
			path := a.resolveArg(vectorsPath)
			file, err := loadVectors(path)
			if err != nil {
				return usageError(err)
			}
			rep, err := calibrate(file, filepath.Dir(path))
			if err != nil {
				return usageError(err)
			}
			out := a.output("calibration-report.json")
			if err := support.WriteJSONAtomic(out, rep); err != nil {
				return failed(fmt.Errorf("cannot write calibration report: %w", err))
			}
			a.printCalibration(rep)
			fmt.Fprintf(a.stdout, "Report: %s\n", out)
			a.audit(support.AuditEntry{
				Command: "calibrate",
				Files:   rep.TotalVectors,
				Errors:  rep.FailedVectors,
				Result:  rep.Confidence,
			})
			if failOnMismatch && rep.FailedVectors > 0 {
				return failed(nil)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&vectorsPath, "vectors", "", "calibration vectors (YAML)")
	cmd.Flags().BoolVar(&failOnMismatch, "fail-on-mismatch", true, "exit 1 when any vector misses")
	return cmd
}

func loadVectors(path string) (calibrationFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return calibrationFile{}, err
	}
	data = support.StripBOM(data)

	var file calibrationFile
	trimmed := bytes.TrimSpace(data)
	if bytes.HasPrefix(trimmed, []byte("-")) {
		err = yaml.Unmarshal(data, &file.Vectors)
	} else {
		err = yaml.Unmarshal(data, &file)
	}
	if err != nil {
		return calibrationFile{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(file.Vectors) == 0 {
		return calibrationFile{}, fmt.Errorf("%s: no vectors", path)
	}
	return file, nil
}

func calibrate(file calibrationFile, baseDir string) (calibrationReport, error) {
	an := engine.NewAnalyzer(nil)
	if file.Policy != nil {
		if !file.Policy.Valid() {
			return calibrationReport{}, fmt.Errorf("policy %+v: weights must be positive and ordered critical > warning > info", *file.Policy)
		}
		an.Policy = *file.Policy
	}

	rep := calibrationReport{Policy: an.Policy, TotalVectors: len(file.Vectors), Results: []calibrationRun{}}
	for i, v := range file.Vectors {
		name := v.Name
		if name == "" {
			name = fmt.Sprintf("vector %d", i+1)
		}
		run := calibrationRun{Vector: name}

		doc, err := vectorDocument(v, baseDir)
		if err != nil {
			run.Reason = err.Error()
			rep.FailedVectors++
			rep.Results = append(rep.Results, run)
			continue
		}
		res := an.Analyze(doc)
		run.Score, run.Grade, run.Pass = res.Score, res.Grade, true

		if v.ExpectGrade != "" {
			want, err := engine.ParseGrade(v.ExpectGrade)
			if err != nil {
				return calibrationReport{}, fmt.Errorf("%s: %w", name, err)
			}
			run.ExpectGrade = want
			if res.Grade != want {
				run.Pass, run.Reason = false, fmt.Sprintf("grade %s, expected %s", res.Grade, want)
			}
		}
		if v.MaxScore != nil && res.Score > *v.MaxScore {
			run.Pass, run.Reason = false, fmt.Sprintf("score %d above max %d", res.Score, *v.MaxScore)
		}
		if v.MinScore != nil && res.Score < *v.MinScore {
			run.Pass, run.Reason = false, fmt.Sprintf("score %d below min %d", res.Score, *v.MinScore)
		}
		if run.Pass {
			rep.PassedVectors++
		} else {
			rep.FailedVectors++
		}
		rep.Results = append(rep.Results, run)
	}

	if rep.TotalVectors > 0 {
		rep.PassRatePct = float64(rep.PassedVectors) / float64(rep.TotalVectors) * 100
	}
	switch {
	case rep.FailedVectors == 0:
		rep.Confidence = "HIGH"
	case rep.PassRatePct >= 95 && rep.FailedVectors <= 1:
		rep.Confidence = "MEDIUM"
	default:
		rep.Confidence = "LOW"
	}
	return rep, nil
}

func vectorDocument(v calibrationVector, baseDir string) (view.DocumentView, error) {
	if v.Path != "" {
		path := v.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return view.ParseString(v.Path, view.Decode(data, "")), nil
	}
	source := v.Source
	if source == "" {
		source = "vector.html"
	}
	return view.ParseString(source, v.HTML), nil
}

func (a *app) printCalibration(rep calibrationReport) {
	for _, r := range rep.Results {
		status := colorGreen.Sprint("[OK]  ")
		if !r.Pass {
			status = colorRed.Sprint("[FAIL]")
		}
		fmt.Fprintf(a.stdout, "%s %-28s grade %s score %3d", status, r.Vector, r.Grade, r.Score)
		if r.Reason != "" {
			fmt.Fprintf(a.stdout, "  %s", r.Reason)
		}
		fmt.Fprintln(a.stdout)
	}
	fmt.Fprintf(a.stdout, "\n%d/%d vectors match (%.0f%%), confidence %s\n", rep.PassedVectors, rep.TotalVectors, rep.PassRatePct, rep.Confidence)
}
