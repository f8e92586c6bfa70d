// Package view exposes documents to the matcher through one read-only
// interface, whatever the document came from: a file on disk, a DOM snapshot
// captured in a browser, or a bundle of design tokens.
package view

import (
	"fmt"
	"sort"
)

// Location identifies where a token was read from. File/Line/Col are set for
// markup sources, Node for live DOM sources.
type Location struct {
	File string `json:"file,omitempty"`
	Line int    `json:"line,omitempty"`
	Col  int    `json:"col,omitempty"`
	Node string `json:"node,omitempty"`
}

func (l Location) String() string {
	switch {
	case l.Node != "" && l.File != "":
		return fmt.Sprintf("%s %s", l.File, l.Node)
	case l.Node != "":
		return l.Node
	case l.Line > 0 && l.Col > 0:
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Col)
	case l.Line > 0:
		return fmt.Sprintf("%s:%d", l.File, l.Line)
	default:
		return l.File
	}
}

// Offset returns the location shifted n bytes to the right on the same line.
func (l Location) Offset(n int) Location {
	if l.Line > 0 {
		if l.Col == 0 {
			l.Col = 1
		}
		l.Col += n
	}
	return l
}

// Token is one string read from a document.
type Token struct {
	Value string
	Loc   Location
}

// Declaration is one CSS property/value pair.
type Declaration struct {
	Property string
	Value    string
	Loc      Location
}

// DocumentView is the matcher's only window onto a document.
type DocumentView interface {
	// Source names the document (path, URL or kit name).
	Source() string
	// ClassNames returns every individual class name in document order.
	ClassNames() []Token
	// Declarations returns stylesheet declarations (not inline styles).
	Declarations() []Declaration
	// InlineStyles returns raw style attribute strings.
	InlineStyles() []Token
	// Text returns visible text runs.
	Text() []Token
	// Markup returns raw markup lines, for substring rules.
	Markup() []Token
}

// AllDeclarations returns stylesheet declarations followed by declarations
// parsed out of inline styles.
func AllDeclarations(v DocumentView) []Declaration {
	decls := append([]Declaration(nil), v.Declarations()...)
	for _, style := range v.InlineStyles() {
		decls = append(decls, ParseInlineStyle(style.Value, style.Loc)...)
	}
	return decls
}

// IsEmpty reports whether the view yields no tokens at all.
func IsEmpty(v DocumentView) bool {
	return len(v.ClassNames()) == 0 && len(v.Declarations()) == 0 &&
		len(v.InlineStyles()) == 0 && len(v.Text()) == 0 && len(v.Markup()) == 0
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
