package view

import (
	"strings"

	"github.com/gorilla/css/scanner"
)

// ParseCSS extracts property/value declarations from stylesheet text.
// Selectors and at-rule preludes are skipped. base locates the first byte of
// text inside its document.
func ParseCSS(text string, base Location) []Declaration {
	return parseCSS(text, base, false)
}

// ParseInlineStyle extracts declarations from a style attribute value.
func ParseInlineStyle(text string, base Location) []Declaration {
	return parseCSS(text, base, true)
}

func parseCSS(text string, base Location, inline bool) []Declaration {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	const (
		idle = iota
		sawProperty
		inValue
	)

	var (
		out     []Declaration
		state   = idle
		depth   = 0
		atStart = inline
		dash    bool
		prop    string
		propLoc Location
		value   strings.Builder
	)
	if inline {
		depth = 1
	}

	reset := func() {
		state = idle
		dash = false
		prop = ""
		value.Reset()
	}
	flush := func() {
		if state == inValue && prop != "" {
			v := strings.Join(strings.Fields(value.String()), " ")
			if v != "" {
				out = append(out, Declaration{Property: strings.ToLower(prop), Value: v, Loc: propLoc})
			}
		}
		reset()
	}

	s := scanner.New(text)
	for {
		tok := s.Next()
		if tok.Type == scanner.TokenEOF || tok.Type == scanner.TokenError {
			flush()
			break
		}

		switch tok.Type {
		case scanner.TokenComment:
			continue
		case scanner.TokenS:
			if state == inValue {
				value.WriteByte(' ')
			}
			continue
		case scanner.TokenChar:
			switch tok.Value {
			case "{":
				// "a:hover {" inside an at-rule looked like a declaration.
				reset()
				depth++
				atStart = true
				continue
			case "}":
				flush()
				if depth > 0 {
					depth--
				}
				atStart = true
				continue
			case ";":
				flush()
				atStart = true
				continue
			case ":":
				if state == sawProperty {
					state = inValue
					continue
				}
			case "-":
				// The scanner splits "--name" into "-" and the ident "-name".
				if state == idle && atStart && depth > 0 && !dash {
					dash = true
					propLoc = tokenLocation(base, tok)
					continue
				}
			}
		case scanner.TokenIdent:
			if state == idle && atStart && depth > 0 {
				if dash && strings.HasPrefix(tok.Value, "-") {
					prop = "-" + tok.Value
				} else {
					prop = tok.Value
					propLoc = tokenLocation(base, tok)
				}
				dash = false
				state = sawProperty
				atStart = false
				continue
			}
		}
		dash = false

		switch state {
		case inValue:
			value.WriteString(tok.Value)
		case sawProperty:
			reset()
		}
		atStart = false
	}
	return out
}

func tokenLocation(base Location, tok *scanner.Token) Location {
	if base.Line == 0 {
		return base
	}
	loc := base
	loc.Line = base.Line + tok.Line - 1
	if tok.Line == 1 {
		col := base.Col
		if col == 0 {
			col = 1
		}
		loc.Col = col + tok.Column - 1
	} else {
		loc.Col = tok.Column
	}
	return loc
}
