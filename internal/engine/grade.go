package engine

import (
	"fmt"
	"strings"
)

type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// Upper bounds (inclusive) of each passing band.
const (
	MaxA = 10
	MaxB = 25
	MaxC = 45
	MaxD = 65
)

var grades = []Grade{GradeA, GradeB, GradeC, GradeD, GradeF}

// GradeFor maps a score to a letter. Scores outside [0,100] are clamped.
func GradeFor(score int) Grade {
	switch s := clamp(score); {
	case s <= MaxA:
		return GradeA
	case s <= MaxB:
		return GradeB
	case s <= MaxC:
		return GradeC
	case s <= MaxD:
		return GradeD
	default:
		return GradeF
	}
}

// Rank is 0 for A through 4 for F.
func (g Grade) Rank() int {
	for i, known := range grades {
		if g == known {
			return i
		}
	}
	return len(grades)
}

// Worse reports whether g is a lower grade than other.
func (g Grade) Worse(other Grade) bool {
	return g.Rank() > other.Rank()
}

func ParseGrade(s string) (Grade, error) {
	g := Grade(strings.ToUpper(strings.TrimSpace(s)))
	if g.Rank() < len(grades) {
		return g, nil
	}
	return "", fmt.Errorf("unknown grade %q (valid: A, B, C, D, F)", s)
}
