package signals

import (
	"fmt"
	"sync"
)

// Catalog is an immutable, ordered set of signals. Accessors return copies of
// the internal slices, never the slices themselves.
type Catalog struct {
	version string
	signals []Signal
	byID    map[string]int
}

// New builds a catalog from signals in the given order. Duplicate IDs are not
// rejected here; Check reports them.
func New(version string, sigs []Signal) *Catalog {
	c := &Catalog{version: version, signals: append([]Signal(nil), sigs...), byID: map[string]int{}}
	for i, s := range c.signals {
		if _, dup := c.byID[s.ID]; !dup {
			c.byID[s.ID] = i
		}
	}
	return c
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the built-in catalog. It is built once per process.
func Default() *Catalog {
	defaultOnce.Do(func() {
		defaultCatalog = New(Version, builtin())
	})
	return defaultCatalog
}

func (c *Catalog) Version() string { return c.version }
func (c *Catalog) Len() int        { return len(c.signals) }

// List returns every signal in catalog order.
func (c *Catalog) List() []Signal {
	return append([]Signal(nil), c.signals...)
}

func (c *Catalog) ByCategory(cat Category) []Signal {
	return c.filter(func(s Signal) bool { return s.Category == cat })
}

func (c *Catalog) BySeverity(sev Severity) []Signal {
	return c.filter(func(s Signal) bool { return s.Severity == sev })
}

// Critical returns the signals that fail a page on their own.
func (c *Catalog) Critical() []Signal {
	return c.BySeverity(Critical)
}

// AtLeast returns signals at or above min severity.
func (c *Catalog) AtLeast(min Severity) []Signal {
	return c.filter(func(s Signal) bool { return s.Severity.AtLeast(min) })
}

func (c *Catalog) Lookup(id string) (Signal, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Signal{}, false
	}
	return c.signals[i], true
}

func (c *Catalog) filter(keep func(Signal) bool) []Signal {
	out := []Signal{}
	for _, s := range c.signals {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}

// Problem is one malformed catalog entry.
type Problem struct {
	SignalID string
	Message  string
}

func (p Problem) String() string {
	return fmt.Sprintf("%s: %s", p.SignalID, p.Message)
}

// Check validates catalog structure: unique IDs, known enum values, at least
// one rule and one quick fix per signal, and rules that constructed cleanly.
func (c *Catalog) Check() []Problem {
	var problems []Problem
	seen := map[string]bool{}
	for _, s := range c.signals {
		add := func(format string, args ...interface{}) {
			problems = append(problems, Problem{SignalID: s.ID, Message: fmt.Sprintf(format, args...)})
		}
		if s.ID == "" {
			add("empty id")
		}
		if seen[s.ID] {
			add("duplicate id")
		}
		seen[s.ID] = true
		if s.Name == "" {
			add("empty name")
		}
		if !validCategory(s.Category) {
			add("unknown category %q", s.Category)
		}
		if s.Severity.Rank() > Info.Rank() {
			add("unknown severity %q", s.Severity)
		}
		if s.Salience.Rank() > Low.Rank() {
			add("unknown salience %q", s.Salience)
		}
		if len(s.Rules) == 0 {
			add("no detection rules")
		}
		for i, r := range s.Rules {
			if err := r.Err(); err != nil {
				add("rule %d (%s): %v", i, r.Kind(), err)
			}
		}
		if len(s.QuickFixes) == 0 {
			add("no quick fixes")
		}
		hasDefault := false
		for _, f := range s.QuickFixes {
			if f.When == "" {
				hasDefault = true
			}
			switch f.Effort {
			case EffortLow, EffortMedium, EffortHigh:
			default:
				add("quick fix %q has unknown effort %q", f.Description, f.Effort)
			}
		}
		if len(s.QuickFixes) > 0 && !hasDefault {
			add("every quick fix is conditional; add one without a when clause")
		}
	}
	return problems
}
