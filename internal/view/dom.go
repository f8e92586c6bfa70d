package view

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Snapshot is what the bookmarklet captures from a live page. It is the
// serialized form of the DOM view; the bookmarklet itself matches against the
// same fields in the browser.
type Snapshot struct {
	URL         string         `json:"url"`
	Title       string         `json:"title,omitempty"`
	Nodes       []SnapshotNode `json:"nodes"`
	Stylesheets []string       `json:"stylesheets,omitempty"`
	Links       []string       `json:"links,omitempty"`
}

// SnapshotNode is one element with its own (not inherited) text.
type SnapshotNode struct {
	Selector string            `json:"selector"`
	Classes  []string          `json:"classes,omitempty"`
	Style    string            `json:"style,omitempty"`
	Computed map[string]string `json:"computed,omitempty"`
	Text     string            `json:"text,omitempty"`
	Src      string            `json:"src,omitempty"`
}

// DOM is a DocumentView over a Snapshot.
type DOM struct {
	snap    Snapshot
	classes []Token
	decls   []Declaration
	inline  []Token
	text    []Token
	markup  []Token
}

// ParseSnapshot decodes bookmarklet JSON.
func ParseSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

// NewDOM indexes a snapshot. Computed styles are emitted in property order so
// repeated runs see identical token streams.
func NewDOM(snap Snapshot) *DOM {
	d := &DOM{snap: snap}
	for i, n := range snap.Nodes {
		sel := n.Selector
		if sel == "" {
			sel = fmt.Sprintf("node[%d]", i)
		}
		loc := Location{Node: sel}
		for _, c := range n.Classes {
			if c = strings.TrimSpace(c); c != "" {
				d.classes = append(d.classes, Token{Value: c, Loc: loc})
			}
		}
		if strings.TrimSpace(n.Style) != "" {
			d.inline = append(d.inline, Token{Value: n.Style, Loc: loc})
		}
		for _, prop := range sortedKeys(n.Computed) {
			v := strings.TrimSpace(n.Computed[prop])
			if v == "" {
				continue
			}
			d.decls = append(d.decls, Declaration{Property: strings.ToLower(prop), Value: v, Loc: loc})
		}
		if t := strings.Join(strings.Fields(n.Text), " "); t != "" {
			d.text = append(d.text, Token{Value: t, Loc: loc})
		}
		if n.Src != "" {
			d.markup = append(d.markup, Token{Value: n.Src, Loc: loc})
		}
	}
	for i, sheet := range snap.Stylesheets {
		d.decls = append(d.decls, ParseCSS(sheet, Location{Node: fmt.Sprintf("stylesheet[%d]", i)})...)
	}
	for _, href := range snap.Links {
		d.markup = append(d.markup, Token{Value: href, Loc: Location{Node: "link"}})
	}
	return d
}

func (d *DOM) Source() string {
	if d.snap.URL != "" {
		return d.snap.URL
	}
	return "snapshot"
}

func (d *DOM) ClassNames() []Token         { return d.classes }
func (d *DOM) Declarations() []Declaration { return d.decls }
func (d *DOM) InlineStyles() []Token       { return d.inline }
func (d *DOM) Text() []Token               { return d.text }
func (d *DOM) Markup() []Token             { return d.markup }
