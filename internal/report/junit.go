package report

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/rohunvora/anti-slop-lib-sub000/internal/engine"
)

type junitTestsuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Testsuites []junitTestsuite `xml:"testsuite"`
}

type junitTestsuite struct {
	Name     string          `xml:"name,attr"`
	Tests    int             `xml:"tests,attr"`
	Failures int             `xml:"failures,attr"`
	Errors   int             `xml:"errors,attr"`
	Skipped  int             `xml:"skipped,attr"`
	Time     string          `xml:"time,attr"`
	Cases    []junitTestcase `xml:"testcase"`
}

type junitTestcase struct {
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      string        `xml:"time,attr"`
	Failure   *junitFailure `xml:"failure,omitempty"`
	Error     *junitFailure `xml:"error,omitempty"`
	Skipped   *junitSkipped `xml:"skipped,omitempty"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

type junitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// JUnit renders one test case per file. A file fails when its grade is below
// the policy threshold; unreadable files are errors. The gate verdict is the
// last case.
func JUnit(r Report) ([]byte, error) {
	suite := junitTestsuite{Name: "antislop", Time: "0"}
	for _, f := range r.Files {
		tc := junitTestcase{Name: f.Path, Classname: "antislop.scan", Time: "0"}
		switch {
		case f.Status == engine.StatusError:
			tc.Error = &junitFailure{Message: f.Error, Type: "READ", Body: f.Error}
			suite.Errors++
		case f.Status == engine.StatusSkipped:
			tc.Skipped = &junitSkipped{Message: f.Error}
			suite.Skipped++
		case f.Result != nil && r.Policy.Threshold != "" && f.Result.Grade.Worse(r.Policy.Threshold):
			res := f.Result
			tc.Failure = &junitFailure{
				Message: fmt.Sprintf("grade %s (score %d) below threshold %s", res.Grade, res.Score, r.Policy.Threshold),
				Type:    "GRADE",
				Body:    detectionLines(res),
			}
			suite.Failures++
		}
		suite.Cases = append(suite.Cases, tc)
	}

	gateCase := junitTestcase{Name: "antislop-gate", Classname: "antislop.gate", Time: "0"}
	if r.Verdict.Message != "" && !r.Verdict.Pass {
		gateCase.Failure = &junitFailure{
			Message: r.Verdict.Message,
			Type:    "GATE",
			Body:    strings.Join(r.Verdict.Reasons, "\n"),
		}
		suite.Failures++
	}
	suite.Cases = append(suite.Cases, gateCase)
	suite.Tests = len(suite.Cases)

	data, err := xml.MarshalIndent(junitTestsuites{Testsuites: []junitTestsuite{suite}}, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), append(data, '\n')...), nil
}

func detectionLines(res *engine.AnalysisResult) string {
	var b strings.Builder
	for _, d := range res.Detections {
		fmt.Fprintf(&b, "[%s] %s: %s x%d\n", d.Severity, d.SignalID, d.Name, d.Count)
	}
	return b.String()
}
