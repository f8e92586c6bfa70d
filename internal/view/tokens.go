package view

import "strings"

// Tokens is a DocumentView over structured design tokens. The kit validator
// fills one in from a kit definition; nodes are named after the token path
// (e.g. "fonts.heading", "components.button").
type Tokens struct {
	source  string
	classes []Token
	decls   []Declaration
	text    []Token
	markup  []Token
}

func NewTokens(source string) *Tokens {
	return &Tokens{source: source}
}

// AddDeclaration records a token as a CSS declaration. The value is also
// exposed as a markup string so substring rules see it.
func (t *Tokens) AddDeclaration(node, property, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	loc := Location{File: t.source, Node: node}
	t.decls = append(t.decls, Declaration{Property: property, Value: value, Loc: loc})
	t.markup = append(t.markup, Token{Value: value, Loc: loc})
}

// AddClasses records a space separated class list.
func (t *Tokens) AddClasses(node, classes string) {
	loc := Location{File: t.source, Node: node}
	for i, c := range strings.Fields(classes) {
		l := loc
		l.Col = i + 1
		t.classes = append(t.classes, Token{Value: c, Loc: l})
	}
}

// AddText records human-facing copy.
func (t *Tokens) AddText(node, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	loc := Location{File: t.source, Node: node}
	t.text = append(t.text, Token{Value: text, Loc: loc})
	t.markup = append(t.markup, Token{Value: text, Loc: loc})
}

func (t *Tokens) Source() string              { return t.source }
func (t *Tokens) ClassNames() []Token         { return t.classes }
func (t *Tokens) Declarations() []Declaration { return t.decls }
func (t *Tokens) InlineStyles() []Token       { return nil }
func (t *Tokens) Text() []Token               { return t.text }
func (t *Tokens) Markup() []Token             { return t.markup }
