package view

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

type markupKind int

const (
	kindHTML markupKind = iota
	kindJSX
	kindCSS
)

// Markup is a DocumentView over a source file: HTML, JSX/TSX, Vue, Svelte,
// Astro, Markdown or a stylesheet.
type Markup struct {
	source  string
	classes []Token
	decls   []Declaration
	inline  []Token
	text    []Token
	lines   []Token
}

var (
	jsxClassAttr   = regexp.MustCompile(`\bclass(?:Name)?\s*=\s*(?:\{\s*)?["'\x60]([^"'\x60]*)["'\x60]`)
	jsxClassHelper = regexp.MustCompile(`\b(?:cn|clsx|cva|twMerge|classNames)\(([^)]*)\)`)
	quotedString   = regexp.MustCompile(`["'\x60]([^"'\x60]*)["'\x60]`)
	jsxStyleObject = regexp.MustCompile(`\bstyle\s*=\s*\{\{([^}]*)\}\}`)
	jsxStyleEntry  = regexp.MustCompile(`([A-Za-z]+)\s*:\s*["'\x60]([^"'\x60]*)["'\x60]`)
	cssApply       = regexp.MustCompile(`@apply\s+([^;]+);`)
	upperRune      = regexp.MustCompile(`[A-Z]`)
)

// ParseString builds a Markup view from already-decoded text. The kind of
// document is taken from the extension of source; unknown extensions are
// treated as HTML.
func ParseString(source, text string) *Markup {
	m := &Markup{source: source}
	text = strings.TrimPrefix(text, "\ufeff")
	if strings.TrimSpace(text) == "" {
		return m
	}

	for i, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		m.lines = append(m.lines, Token{Value: strings.TrimRight(line, "\r"), Loc: Location{File: source, Line: i + 1, Col: 1}})
	}

	switch kindOf(source) {
	case kindCSS:
		m.decls = ParseCSS(text, Location{File: source, Line: 1, Col: 1})
		m.scanApply()
	case kindJSX:
		m.tokenize(text, true)
		m.scanJSX()
	default:
		m.tokenize(text, false)
		m.scanApply()
	}
	return m
}

// Parse decodes data and builds a Markup view from it.
func Parse(source string, data []byte) *Markup {
	return ParseString(source, Decode(data, ""))
}

func kindOf(source string) markupKind {
	switch strings.ToLower(filepath.Ext(source)) {
	case ".css", ".scss", ".sass", ".less", ".pcss":
		return kindCSS
	case ".jsx", ".tsx", ".js", ".ts", ".mjs":
		return kindJSX
	default:
		return kindHTML
	}
}

func (m *Markup) Source() string              { return m.source }
func (m *Markup) ClassNames() []Token         { return m.classes }
func (m *Markup) Declarations() []Declaration { return m.decls }
func (m *Markup) InlineStyles() []Token       { return m.inline }
func (m *Markup) Text() []Token               { return m.text }
func (m *Markup) Markup() []Token             { return m.lines }

// tokenize walks the document with the HTML tokenizer, tracking line and
// column from the raw bytes of each token. In JSX mode only visible text is
// taken from the tokenizer; attributes are read by scanJSX.
func (m *Markup) tokenize(text string, jsx bool) {
	z := html.NewTokenizer(strings.NewReader(text))
	pos := Location{File: m.source, Line: 1, Col: 1}
	rawTag := ""

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return
		}
		raw := string(z.Raw())
		tok := z.Token()
		start := pos

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			if !jsx {
				m.collectAttrs(tok.Attr, raw, start)
			}
			if tt == html.StartTagToken {
				switch tok.Data {
				case "script", "style", "noscript":
					rawTag = tok.Data
				}
			}
		case html.EndTagToken:
			if tok.Data == rawTag {
				rawTag = ""
			}
		case html.TextToken:
			switch rawTag {
			case "style":
				m.decls = append(m.decls, ParseCSS(raw, start)...)
			case "":
				m.collectText(tok.Data, start, jsx)
			}
		}
		pos = advance(pos, raw)
	}
}

func (m *Markup) collectAttrs(attrs []html.Attribute, raw string, start Location) {
	for _, a := range attrs {
		switch a.Key {
		case "class", "classname":
			m.addClasses(a.Val, raw, start)
		case "style":
			if strings.TrimSpace(a.Val) == "" {
				continue
			}
			loc := start
			if idx := strings.Index(raw, a.Val); idx >= 0 {
				loc = advance(start, raw[:idx])
			}
			m.inline = append(m.inline, Token{Value: a.Val, Loc: loc})
		}
	}
}

// addClasses splits a class attribute into individual class tokens. within
// is the raw text the attribute was found in, used for column offsets.
func (m *Markup) addClasses(value, within string, start Location) {
	base := 0
	if idx := strings.Index(within, value); idx >= 0 {
		base = idx
	}
	cursor := 0
	for _, class := range strings.Fields(value) {
		idx := strings.Index(value[cursor:], class)
		if idx < 0 {
			continue
		}
		offset := cursor + idx
		cursor = offset + len(class)
		if !plausibleClass(class) {
			continue
		}
		m.classes = append(m.classes, Token{Value: class, Loc: advance(start, within[:min(base+offset, len(within))])})
	}
}

func plausibleClass(class string) bool {
	if strings.ContainsAny(class, "{}$") {
		return false
	}
	switch class[0] {
	case '"', '\'', '`', ',':
		return false
	}
	return true
}

func (m *Markup) collectText(data string, start Location, jsx bool) {
	lines := strings.Split(data, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if jsx && looksLikeCode(trimmed) {
			continue
		}
		loc := start
		if i > 0 {
			loc.Line = start.Line + i
			loc.Col = 1
		}
		lead := len(line) - len(strings.TrimLeftFunc(line, unicode.IsSpace))
		m.text = append(m.text, Token{Value: trimmed, Loc: loc.Offset(lead)})
	}
}

func looksLikeCode(s string) bool {
	if strings.ContainsAny(s, "{};") || strings.Contains(s, "=>") {
		return true
	}
	if strings.IndexFunc(s, func(r rune) bool { return !unicode.IsPunct(r) && !unicode.IsSpace(r) }) < 0 {
		return true
	}
	for _, kw := range []string{"import ", "export ", "const ", "return ", "function "} {
		if strings.HasPrefix(s, kw) {
			return true
		}
	}
	return false
}

// scanJSX picks class strings and style objects out of JSX source line by
// line. Multi-line helper calls are not followed.
func (m *Markup) scanJSX() {
	for _, line := range m.lines {
		for _, match := range jsxClassAttr.FindAllStringSubmatchIndex(line.Value, -1) {
			m.addClasses(line.Value[match[2]:match[3]], line.Value, line.Loc)
		}
		for _, match := range jsxClassHelper.FindAllStringSubmatchIndex(line.Value, -1) {
			args := line.Value[match[2]:match[3]]
			for _, q := range quotedString.FindAllStringSubmatchIndex(args, -1) {
				inner := args[q[2]:q[3]]
				m.addClasses(inner, line.Value, line.Loc)
			}
		}
		for _, match := range jsxStyleObject.FindAllStringSubmatchIndex(line.Value, -1) {
			css := jsxStyleToCSS(line.Value[match[2]:match[3]])
			if css != "" {
				m.inline = append(m.inline, Token{Value: css, Loc: line.Loc.Offset(match[0])})
			}
		}
	}
}

// jsxStyleToCSS rewrites `{ backgroundColor: '#fff' }` bodies as CSS text.
func jsxStyleToCSS(body string) string {
	var parts []string
	for _, e := range jsxStyleEntry.FindAllStringSubmatch(body, -1) {
		prop := upperRune.ReplaceAllStringFunc(e[1], func(s string) string {
			return "-" + strings.ToLower(s)
		})
		parts = append(parts, prop+": "+e[2])
	}
	return strings.Join(parts, "; ")
}

func (m *Markup) scanApply() {
	for _, line := range m.lines {
		for _, match := range cssApply.FindAllStringSubmatchIndex(line.Value, -1) {
			m.addClasses(line.Value[match[2]:match[3]], line.Value, line.Loc)
		}
	}
}

// advance moves loc past s, counting newlines.
func advance(loc Location, s string) Location {
	for _, r := range s {
		if r == '\n' {
			loc.Line++
			loc.Col = 1
			continue
		}
		loc.Col++
	}
	return loc
}
