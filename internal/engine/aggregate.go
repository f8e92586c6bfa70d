package engine

import (
	"sort"

	"github.com/rohunvora/anti-slop-lib-sub000/internal/signals"
)

type FileStatus string

const (
	StatusGraded  FileStatus = "graded"
	StatusError   FileStatus = "error"
	StatusSkipped FileStatus = "skipped"
)

// FileResult is one file of a batch. Result is nil unless Status is graded.
type FileResult struct {
	Path   string          `json:"path"`
	Status FileStatus      `json:"status"`
	Error  string          `json:"error,omitempty"`
	Result *AnalysisResult `json:"result,omitempty"`
}

// Aggregate summarises a batch. Grade is taken from the mean score of the
// graded files; WorstGrade from the single worst file.
type Aggregate struct {
	Files      int                      `json:"files"`
	Graded     int                      `json:"graded"`
	Errors     int                      `json:"errors"`
	Skipped    int                      `json:"skipped"`
	MeanScore  int                      `json:"meanScore"`
	MaxScore   int                      `json:"maxScore"`
	Grade      Grade                    `json:"grade"`
	WorstGrade Grade                    `json:"worstGrade"`
	WorstFile  string                   `json:"worstFile,omitempty"`
	Summary    Summary                  `json:"summary"`
	Categories map[signals.Category]int `json:"categories"`
	Fixes      []RankedFix              `json:"fixes"`
}

// Aggregate folds file results into batch totals. Files are ordered by path
// first so the outcome does not depend on completion order.
func (a *Analyzer) Aggregate(files []FileResult, fixLimit int) Aggregate {
	sorted := append([]FileResult(nil), files...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	agg := Aggregate{
		Files:      len(sorted),
		Grade:      GradeA,
		WorstGrade: GradeA,
		Categories: map[signals.Category]int{},
	}
	for _, c := range signals.Categories {
		agg.Categories[c] = 0
	}

	var all []Detection
	total := 0
	for _, f := range sorted {
		switch f.Status {
		case StatusError:
			agg.Errors++
			continue
		case StatusSkipped:
			agg.Skipped++
			continue
		}
		if f.Result == nil {
			continue
		}
		r := f.Result
		agg.Graded++
		total += r.Score
		if agg.WorstFile == "" || r.Score > agg.MaxScore {
			agg.MaxScore = r.Score
			agg.WorstFile = f.Path
		}
		if r.Grade.Worse(agg.WorstGrade) {
			agg.WorstGrade = r.Grade
		}
		agg.Summary.Critical += r.Summary.Critical
		agg.Summary.Warning += r.Summary.Warning
		agg.Summary.Info += r.Summary.Info
		agg.Summary.Total += r.Summary.Total
		agg.Summary.Instances += r.Summary.Instances
		for c, pts := range r.Categories {
			agg.Categories[c] += pts
		}
		all = append(all, r.Detections...)
	}

	if agg.Graded > 0 {
		agg.MeanScore = (total + agg.Graded/2) / agg.Graded
		agg.Grade = GradeFor(agg.MeanScore)
	}
	agg.Fixes = a.Recommend(all, fixLimit)
	return agg
}
