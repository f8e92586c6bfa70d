// Package signals holds the catalog of template signals: the tells that mark
// a page as assembled from defaults rather than designed.
package signals

import (
	"fmt"
	"strings"
)

// Version identifies the catalog revision. Signal IDs are unique within a
// version and never reused for a different tell.
const Version = "2026.10"

type Category string

const (
	Typography Category = "typography"
	Color      Category = "color"
	Layout     Category = "layout"
	Components Category = "components"
	Imagery    Category = "imagery"
	Copy       Category = "copy"
	Effects    Category = "effects"
)

// Categories lists every category in display order.
var Categories = []Category{Typography, Color, Layout, Components, Imagery, Copy, Effects}

type Severity string

const (
	Critical Severity = "critical"
	Warning  Severity = "warning"
	Info     Severity = "info"
)

// Severities lists severities from most to least severe.
var Severities = []Severity{Critical, Warning, Info}

// Rank orders severities; lower is more severe. Unknown values rank last.
func (s Severity) Rank() int {
	switch s {
	case Critical:
		return 0
	case Warning:
		return 1
	case Info:
		return 2
	}
	return 3
}

// AtLeast reports whether s is as severe as min or more.
func (s Severity) AtLeast(min Severity) bool {
	return s.Rank() <= min.Rank()
}

// Salience is how obvious a tell is to someone looking at the page.
type Salience string

const (
	High   Salience = "high"
	Medium Salience = "medium"
	Low    Salience = "low"
)

func (s Salience) Rank() int {
	switch s {
	case High:
		return 0
	case Medium:
		return 1
	case Low:
		return 2
	}
	return 3
}

type Effort string

const (
	EffortLow    Effort = "low"
	EffortMedium Effort = "medium"
	EffortHigh   Effort = "high"
)

// QuickFix is a suggested change. When, if set, limits the fix to
// detections whose matched literals include it (case-insensitive).
type QuickFix struct {
	Effort      Effort `json:"effort"`
	Description string `json:"description"`
	Replacement string `json:"replacement,omitempty"`
	When        string `json:"when,omitempty"`
}

// AppliesTo reports whether the fix fits a detection with these literals.
func (f QuickFix) AppliesTo(literals []string) bool {
	if f.When == "" {
		return true
	}
	for _, l := range literals {
		if strings.EqualFold(l, f.When) {
			return true
		}
	}
	return false
}

// Signal is one catalog entry. A document matches the signal when any of its
// rules produces a hit.
type Signal struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Category    Category   `json:"category"`
	Severity    Severity   `json:"severity"`
	Salience    Salience   `json:"salience"`
	Description string     `json:"description"`
	Rules       []Rule     `json:"-"`
	QuickFixes  []QuickFix `json:"quickFixes"`
}

// UnknownValueError is returned when a category or severity name is not
// recognised. It lists the accepted values.
type UnknownValueError struct {
	Kind  string
	Value string
	Valid []string
}

func (e *UnknownValueError) Error() string {
	return fmt.Sprintf("unknown %s %q (valid: %s)", e.Kind, e.Value, strings.Join(e.Valid, ", "))
}

func ParseCategory(s string) (Category, error) {
	want := Category(strings.ToLower(strings.TrimSpace(s)))
	valid := make([]string, 0, len(Categories))
	for _, c := range Categories {
		if c == want {
			return c, nil
		}
		valid = append(valid, string(c))
	}
	return "", &UnknownValueError{Kind: "category", Value: s, Valid: valid}
}

func ParseSeverity(s string) (Severity, error) {
	want := Severity(strings.ToLower(strings.TrimSpace(s)))
	valid := make([]string, 0, len(Severities))
	for _, sev := range Severities {
		if sev == want {
			return sev, nil
		}
		valid = append(valid, string(sev))
	}
	return "", &UnknownValueError{Kind: "severity", Value: s, Valid: valid}
}

func validCategory(c Category) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}
