package signals

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rohunvora/anti-slop-lib-sub000/internal/view"
)

// Hit is one literal a rule found, with where it was found.
type Hit struct {
	Literal string        `json:"literal"`
	Loc     view.Location `json:"location"`
}

// RuleKind names how a rule reads a document.
type RuleKind string

const (
	KindClass       RuleKind = "class"
	KindDeclaration RuleKind = "declaration"
	KindColor       RuleKind = "color"
	KindFont        RuleKind = "font"
	KindText        RuleKind = "text"
	KindMarkup      RuleKind = "markup"
)

// Rule is a pure matcher over a DocumentView.
type Rule interface {
	Kind() RuleKind
	Find(v view.DocumentView) []Hit
	// Spec is the serializable form, used to ship rules to the browser.
	Spec() RuleSpec
	// Err reports a construction problem, such as a pattern that failed to
	// compile. A rule with an error never hits.
	Err() error
}

// RuleSpec is the wire form of a rule. Patterns are written in the common
// subset of RE2 and ECMAScript syntax and are matched case-insensitively
// when Fold is set.
type RuleSpec struct {
	Kind       RuleKind `json:"kind"`
	Exact      []string `json:"exact,omitempty"`
	Pattern    string   `json:"pattern,omitempty"`
	Fold       bool     `json:"fold,omitempty"`
	Properties []string `json:"properties,omitempty"`
	Contains   []string `json:"contains,omitempty"`
}

type pattern struct {
	src  string
	fold bool
	re   *regexp.Regexp
	err  error
}

func compile(src string, fold bool) pattern {
	if src == "" {
		return pattern{}
	}
	expr := src
	if fold {
		expr = "(?i)" + src
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		err = fmt.Errorf("pattern %q: %w", src, err)
	}
	return pattern{src: src, fold: fold, re: re, err: err}
}

func (p pattern) findAll(s string) [][]int {
	if p.re == nil {
		return nil
	}
	return p.re.FindAllStringIndex(s, -1)
}

// ---------------------------------------------------------------------------
// Class rules

// ClassRule matches utility class names. Variant prefixes (hover:, md:,
// dark:) and the important marker are stripped before comparison.
type ClassRule struct {
	Exact []string
	pat   pattern
}

// Classes builds a class rule from exact names and an optional pattern.
func Classes(pat string, exact ...string) ClassRule {
	return ClassRule{Exact: exact, pat: compile(pat, false)}
}

func (r ClassRule) Kind() RuleKind { return KindClass }
func (r ClassRule) Err() error     { return r.pat.err }

func (r ClassRule) Spec() RuleSpec {
	return RuleSpec{Kind: KindClass, Exact: r.Exact, Pattern: r.pat.src}
}

func (r ClassRule) Find(v view.DocumentView) []Hit {
	var hits []Hit
	for _, tok := range v.ClassNames() {
		base := BaseClass(tok.Value)
		if base == "" {
			continue
		}
		if r.matches(base) {
			hits = append(hits, Hit{Literal: tok.Value, Loc: tok.Loc})
		}
	}
	return hits
}

func (r ClassRule) matches(base string) bool {
	for _, e := range r.Exact {
		if base == e {
			return true
		}
	}
	return r.pat.re != nil && r.pat.re.MatchString(base)
}

// BaseClass strips responsive and state variants from a utility class:
// "md:hover:!rounded-2xl" becomes "rounded-2xl". Colons inside arbitrary
// value brackets are kept.
func BaseClass(class string) string {
	depth := 0
	cut := -1
	for i, r := range class {
		switch r {
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		case ':':
			if depth == 0 {
				cut = i
			}
		}
	}
	base := class[cut+1:]
	return strings.TrimPrefix(base, "!")
}

// ---------------------------------------------------------------------------
// Declaration rules

// DeclarationRule matches CSS declarations by property and value. Values are
// compared lower-cased; a value matches if it contains any of Contains or
// matches the pattern. Declarations from stylesheets and inline styles are
// both considered.
type DeclarationRule struct {
	Properties []string
	Contains   []string
	pat        pattern
}

func Declarations(props []string, pat string, contains ...string) DeclarationRule {
	return DeclarationRule{Properties: props, Contains: contains, pat: compile(pat, true)}
}

func (r DeclarationRule) Kind() RuleKind { return KindDeclaration }
func (r DeclarationRule) Err() error     { return r.pat.err }

func (r DeclarationRule) Spec() RuleSpec {
	return RuleSpec{Kind: KindDeclaration, Properties: r.Properties, Contains: r.Contains, Pattern: r.pat.src, Fold: true}
}

func (r DeclarationRule) Find(v view.DocumentView) []Hit {
	var hits []Hit
	for _, d := range view.AllDeclarations(v) {
		if !r.property(d.Property) {
			continue
		}
		if r.value(strings.ToLower(d.Value)) {
			hits = append(hits, Hit{Literal: d.Property + ": " + d.Value, Loc: d.Loc})
		}
	}
	return hits
}

func (r DeclarationRule) property(p string) bool {
	if len(r.Properties) == 0 {
		return true
	}
	for _, want := range r.Properties {
		if p == want {
			return true
		}
	}
	return false
}

func (r DeclarationRule) value(v string) bool {
	for _, c := range r.Contains {
		if strings.Contains(v, c) {
			return true
		}
	}
	return r.pat.re != nil && r.pat.re.MatchString(v)
}

// ---------------------------------------------------------------------------
// Color rules

var (
	hexColor      = regexp.MustCompile(`#[0-9a-fA-F]{3,8}\b`)
	rgbColor      = regexp.MustCompile(`rgba?\(\s*(\d{1,3})[\s,]+(\d{1,3})[\s,]+(\d{1,3})`)
	bracketColor  = regexp.MustCompile(`\[(#[0-9a-fA-F]{3,8})\]`)
	keywordColors = regexp.MustCompile(`(?i)[a-z]+`)
)

// ColorRule matches specific colors in CSS values, inline styles and
// arbitrary-value utility classes. Hex and rgb() notations are normalised
// to lower-case six digit hex, so #8B5CF6 and rgb(139, 92, 246) are the
// same literal.
type ColorRule struct {
	Hexes    []string
	Keywords []string
	set      map[string]bool
}

func Colors(hexes ...string) ColorRule {
	r := ColorRule{Hexes: hexes, set: map[string]bool{}}
	for _, h := range hexes {
		r.set[NormalizeHex(h)] = true
	}
	return r
}

// WithKeywords adds named CSS colors.
func (r ColorRule) WithKeywords(kw ...string) ColorRule {
	r.Keywords = append(append([]string(nil), r.Keywords...), kw...)
	return r
}

func (r ColorRule) Kind() RuleKind { return KindColor }

func (r ColorRule) Err() error {
	for _, h := range r.Hexes {
		if NormalizeHex(h) == "" {
			return fmt.Errorf("color %q is not a hex color", h)
		}
	}
	return nil
}

func (r ColorRule) Spec() RuleSpec {
	exact := make([]string, 0, len(r.Hexes))
	for _, h := range r.Hexes {
		exact = append(exact, NormalizeHex(h))
	}
	return RuleSpec{Kind: KindColor, Exact: exact, Contains: r.Keywords}
}

func (r ColorRule) Find(v view.DocumentView) []Hit {
	var hits []Hit
	for _, d := range view.AllDeclarations(v) {
		hits = append(hits, r.scan(d.Value, d.Loc)...)
	}
	for _, tok := range v.ClassNames() {
		for _, m := range bracketColor.FindAllStringSubmatchIndex(tok.Value, -1) {
			hex := NormalizeHex(tok.Value[m[2]:m[3]])
			if r.set[hex] {
				hits = append(hits, Hit{Literal: hex, Loc: tok.Loc.Offset(m[2])})
			}
		}
	}
	return hits
}

func (r ColorRule) scan(value string, loc view.Location) []Hit {
	var hits []Hit
	for _, m := range hexColor.FindAllStringIndex(value, -1) {
		hex := NormalizeHex(value[m[0]:m[1]])
		if r.set[hex] {
			hits = append(hits, Hit{Literal: hex, Loc: loc.Offset(m[0])})
		}
	}
	for _, m := range rgbColor.FindAllStringSubmatchIndex(value, -1) {
		hex := rgbToHex(value[m[2]:m[3]], value[m[4]:m[5]], value[m[6]:m[7]])
		if r.set[hex] {
			hits = append(hits, Hit{Literal: hex, Loc: loc.Offset(m[0])})
		}
	}
	if len(r.Keywords) > 0 {
		for _, m := range keywordColors.FindAllStringIndex(value, -1) {
			word := strings.ToLower(value[m[0]:m[1]])
			for _, kw := range r.Keywords {
				if word == kw {
					hits = append(hits, Hit{Literal: kw, Loc: loc.Offset(m[0])})
				}
			}
		}
	}
	return hits
}

// NormalizeHex returns s as "#rrggbb" lower-case, dropping any alpha
// channel, or "" when s is not a hex color.
func NormalizeHex(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if !strings.HasPrefix(s, "#") {
		return ""
	}
	digits := s[1:]
	for _, r := range digits {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return ""
		}
	}
	switch len(digits) {
	case 3, 4:
		return "#" + string([]byte{digits[0], digits[0], digits[1], digits[1], digits[2], digits[2]})
	case 6:
		return "#" + digits
	case 8:
		return "#" + digits[:6]
	}
	return ""
}

func rgbToHex(r, g, b string) string {
	var out strings.Builder
	out.WriteByte('#')
	for _, c := range []string{r, g, b} {
		n, err := strconv.Atoi(c)
		if err != nil || n > 255 {
			return ""
		}
		fmt.Fprintf(&out, "%02x", n)
	}
	return out.String()
}

// ---------------------------------------------------------------------------
// Font rules

var (
	googleFamily = regexp.MustCompile(`family=([^&"'\s)]+)`)
	nextFont     = regexp.MustCompile(`import\s*\{([^}]*)\}\s*from\s*["']next/font/google["']`)
)

// FontRule matches font families anywhere in a font stack: font-family and
// font declarations, font-* utility classes, Google Fonts URLs and
// next/font imports.
type FontRule struct {
	Families []string
	set      map[string]bool
}

func Fonts(families ...string) FontRule {
	r := FontRule{Families: families, set: map[string]bool{}}
	for _, f := range families {
		r.set[normalizeFamily(f)] = true
	}
	return r
}

func (r FontRule) Kind() RuleKind { return KindFont }
func (r FontRule) Err() error     { return nil }

func (r FontRule) Spec() RuleSpec {
	exact := make([]string, 0, len(r.Families))
	for _, f := range r.Families {
		exact = append(exact, normalizeFamily(f))
	}
	return RuleSpec{Kind: KindFont, Exact: exact}
}

func (r FontRule) Find(v view.DocumentView) []Hit {
	var hits []Hit
	for _, d := range view.AllDeclarations(v) {
		if d.Property != "font-family" && d.Property != "font" && !strings.HasPrefix(d.Property, "--font") {
			continue
		}
		value := d.Value
		if d.Property == "font" {
			value = shorthandFamilies(value)
		}
		for _, fam := range FontStack(value) {
			if r.set[normalizeFamily(fam)] {
				hits = append(hits, Hit{Literal: fam, Loc: d.Loc})
			}
		}
	}
	for _, tok := range v.ClassNames() {
		base := BaseClass(tok.Value)
		if !strings.HasPrefix(base, "font-") {
			continue
		}
		name := strings.NewReplacer("[", "", "]", "", "'", "", "\"", "", "_", " ", "-", " ").Replace(base[len("font-"):])
		if r.set[normalizeFamily(name)] {
			hits = append(hits, Hit{Literal: tok.Value, Loc: tok.Loc})
		}
	}
	for _, tok := range v.Markup() {
		for _, m := range googleFamily.FindAllStringSubmatchIndex(tok.Value, -1) {
			for _, fam := range strings.Split(tok.Value[m[2]:m[3]], "|") {
				fam = strings.ReplaceAll(strings.SplitN(fam, ":", 2)[0], "+", " ")
				if r.set[normalizeFamily(fam)] {
					hits = append(hits, Hit{Literal: fam, Loc: tok.Loc.Offset(m[2])})
				}
			}
		}
		for _, m := range nextFont.FindAllStringSubmatchIndex(tok.Value, -1) {
			for _, name := range strings.Split(tok.Value[m[2]:m[3]], ",") {
				fam := strings.ReplaceAll(strings.TrimSpace(name), "_", " ")
				if r.set[normalizeFamily(fam)] {
					hits = append(hits, Hit{Literal: fam, Loc: tok.Loc.Offset(m[2])})
				}
			}
		}
	}
	return hits
}

// FontStack splits a font-family value into family names.
func FontStack(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.Trim(strings.TrimSpace(part), `'" `)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// shorthandFamilies drops the style, weight and size tokens that precede the
// family list in a font shorthand.
func shorthandFamilies(value string) string {
	parts := strings.SplitN(value, ",", 2)
	fields := strings.Fields(parts[0])
	for j, f := range fields {
		if strings.ContainsAny(f, "0123456789") {
			parts[0] = strings.Join(fields[j+1:], " ")
		}
	}
	return strings.Join(parts, ",")
}

func normalizeFamily(s string) string {
	s = strings.ToLower(strings.Trim(strings.TrimSpace(s), `'"`))
	return strings.Join(strings.Fields(s), " ")
}

// ---------------------------------------------------------------------------
// Text and markup rules

// TextRule matches visible copy against a pattern and literal terms.
type TextRule struct {
	Terms []string
	pat   pattern
	terms pattern
}

// Text builds a case-insensitive copy rule.
func Text(pat string, terms ...string) TextRule {
	return TextRule{Terms: terms, pat: compile(pat, true), terms: compileTerms(terms)}
}

func (r TextRule) Kind() RuleKind { return KindText }
func (r TextRule) Err() error     { return r.pat.err }

func (r TextRule) Spec() RuleSpec {
	return RuleSpec{Kind: KindText, Pattern: r.pat.src, Fold: true, Contains: r.Terms}
}

func (r TextRule) Find(v view.DocumentView) []Hit {
	return findStrings(v.Text(), r.pat, r.terms)
}

// MarkupRule matches raw markup lines, for tells that live outside classes
// and styles: asset hosts, component library fingerprints.
type MarkupRule struct {
	Substrings []string
	pat        pattern
	subs       pattern
}

func Markup(pat string, substrings ...string) MarkupRule {
	return MarkupRule{Substrings: substrings, pat: compile(pat, true), subs: compileTerms(substrings)}
}

func (r MarkupRule) Kind() RuleKind { return KindMarkup }
func (r MarkupRule) Err() error     { return r.pat.err }

func (r MarkupRule) Spec() RuleSpec {
	return RuleSpec{Kind: KindMarkup, Pattern: r.pat.src, Fold: true, Contains: r.Substrings}
}

func (r MarkupRule) Find(v view.DocumentView) []Hit {
	return findStrings(v.Markup(), r.pat, r.subs)
}

func findStrings(tokens []view.Token, pats ...pattern) []Hit {
	var hits []Hit
	for _, tok := range tokens {
		for _, p := range pats {
			for _, m := range p.findAll(tok.Value) {
				hits = append(hits, Hit{Literal: tok.Value[m[0]:m[1]], Loc: tok.Loc.Offset(m[0])})
			}
		}
	}
	return hits
}

// compileTerms folds literal terms into one case-insensitive alternation so
// offsets always index the original string.
func compileTerms(terms []string) pattern {
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		if t != "" {
			quoted = append(quoted, regexp.QuoteMeta(t))
		}
	}
	if len(quoted) == 0 {
		return pattern{}
	}
	p := compile(strings.Join(quoted, "|"), true)
	p.src = ""
	return p
}
