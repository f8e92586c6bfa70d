package view

import (
	"reflect"
	"testing"
)

func values(toks []Token) []string {
	out := make([]string, 0, len(toks))
	for _, t := range toks {
		out = append(out, t.Value)
	}
	return out
}

func TestMarkupHTML(t *testing.T) {
	doc := `<html>
<head><style>
h1 { color: #111; font-family: Fraunces, serif; }
</style><script>var x = "Unlock";</script></head>
<body class="bg-white  text-stone-900">
  <h1 style="letter-spacing: -0.02em">Invoices, sent.</h1>
  <p>Two lines
  of copy</p>
</body>
</html>`
	m := ParseString("index.html", doc)

	if got, want := values(m.ClassNames()), []string{"bg-white", "text-stone-900"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("classes = %v, want %v", got, want)
	}
	if loc := m.ClassNames()[1].Loc; loc.Line != 5 || loc.Col != 24 {
		t.Fatalf("class location = %+v", loc)
	}
	if got, want := values(m.Text()), []string{"Invoices, sent.", "Two lines", "of copy"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("text = %v, want %v", got, want)
	}
	if m.Text()[2].Loc.Line != 8 {
		t.Fatalf("second text line location = %+v", m.Text()[2].Loc)
	}
	decls := m.Declarations()
	if len(decls) != 2 || decls[1].Property != "font-family" || decls[1].Value != "Fraunces, serif" {
		t.Fatalf("declarations = %+v", decls)
	}
	if decls[0].Loc.Line != 3 {
		t.Fatalf("declaration location = %+v", decls[0].Loc)
	}
	inline := AllDeclarations(m)
	if len(inline) != 3 || inline[2].Property != "letter-spacing" || inline[2].Loc.Line != 6 {
		t.Fatalf("all declarations = %+v", inline)
	}
}

func TestParseCSSSkipsSelectors(t *testing.T) {
	css := `@media (min-width: 640px) {
  a:hover { color: red }
  .x{border-radius:16px;backdrop-filter:blur(8px)}
}
/* color: blue */
body{background:linear-gradient(90deg, #fff, #000)!important}`
	decls := ParseCSS(css, Location{File: "a.css", Line: 1, Col: 1})
	var got []string
	for _, d := range decls {
		got = append(got, d.Property+"="+d.Value)
	}
	want := []string{
		"color=red",
		"border-radius=16px",
		"backdrop-filter=blur(8px)",
		"background=linear-gradient(90deg, #fff, #000)!important",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("declarations = %q, want %q", got, want)
	}
	if decls[1].Loc.Line != 3 {
		t.Fatalf("location = %+v", decls[1].Loc)
	}
}

func TestMarkupJSX(t *testing.T) {
	src := `import { cn } from "@/lib/utils"

export function Hero() {
  return (
    <section className="min-h-screen px-6">
      <div className={cn("rounded-2xl", active && "ring-2")} style={{ backgroundColor: '#8B5CF6' }}>
        Ship invoices today
      </div>
    </section>
  )
}`
	m := ParseString("Hero.tsx", src)
	want := []string{"min-h-screen", "px-6", "rounded-2xl", "ring-2"}
	if got := values(m.ClassNames()); !reflect.DeepEqual(got, want) {
		t.Fatalf("classes = %v, want %v", got, want)
	}
	if got := values(m.Text()); !reflect.DeepEqual(got, []string{"Ship invoices today"}) {
		t.Fatalf("text = %v", got)
	}
	if got := values(m.InlineStyles()); !reflect.DeepEqual(got, []string{"background-color: #8B5CF6"}) {
		t.Fatalf("inline = %v", got)
	}
}

func TestMarkupCSSApply(t *testing.T) {
	m := ParseString("app.css", ".btn { @apply rounded-2xl shadow-2xl; color: #fff; }")
	if got := values(m.ClassNames()); !reflect.DeepEqual(got, []string{"rounded-2xl", "shadow-2xl"}) {
		t.Fatalf("classes = %v", got)
	}
	if len(m.Text()) != 0 {
		t.Fatalf("stylesheets have no visible text: %v", values(m.Text()))
	}
}

func TestEmptyMarkup(t *testing.T) {
	for _, src := range []string{"", "\n\n  ", "\ufeff"} {
		if m := ParseString("x.html", src); !IsEmpty(m) {
			t.Fatalf("%q produced tokens", src)
		}
	}
}

func TestDOMView(t *testing.T) {
	snap, err := ParseSnapshot([]byte(`{
  "url": "https://example.com/",
  "nodes": [
    {"selector": "section.hero", "classes": ["min-h-screen", "bg-gradient-to-br"], "style": "color: #8B5CF6",
     "computed": {"font-family": "Inter, sans-serif", "border-radius": "16px"}, "text": "  Unlock   growth "},
    {"selector": "img", "src": "https://images.unsplash.com/x.jpg"}
  ],
  "links": ["https://fonts.googleapis.com/css2?family=Inter"]
}`))
	if err != nil {
		t.Fatalf("ParseSnapshot: %v", err)
	}
	d := NewDOM(snap)
	if d.Source() != "https://example.com/" {
		t.Fatalf("source = %q", d.Source())
	}
	if got := values(d.ClassNames()); len(got) != 2 || d.ClassNames()[0].Loc.Node != "section.hero" {
		t.Fatalf("classes = %v", got)
	}
	if got := values(d.Text()); !reflect.DeepEqual(got, []string{"Unlock growth"}) {
		t.Fatalf("text = %v", got)
	}
	decls := d.Declarations()
	if len(decls) != 2 || decls[0].Property != "border-radius" {
		t.Fatalf("computed declarations not sorted: %+v", decls)
	}
	if got := values(d.Markup()); len(got) != 2 {
		t.Fatalf("markup = %v", got)
	}
	if len(AllDeclarations(d)) != 3 {
		t.Fatalf("inline style not parsed")
	}
	if _, err := ParseSnapshot([]byte("{")); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestTokensView(t *testing.T) {
	tv := NewTokens("kit:paper")
	tv.AddDeclaration("fonts.heading", "font-family", "Fraunces, serif")
	tv.AddDeclaration("colors.light.bg", "color", "")
	tv.AddClasses("components.button", "rounded-md px-4")
	tv.AddText("layouts.docs", "Two column docs layout")
	if len(tv.Declarations()) != 1 || len(tv.ClassNames()) != 2 || len(tv.Text()) != 1 {
		t.Fatalf("unexpected token counts")
	}
	if len(tv.Markup()) != 2 {
		t.Fatalf("markup = %v", values(tv.Markup()))
	}
	if tv.ClassNames()[1].Loc.Node != "components.button" {
		t.Fatalf("loc = %+v", tv.ClassNames()[1].Loc)
	}
}

func TestDecodeLatin1(t *testing.T) {
	data := []byte("<meta charset=\"iso-8859-1\"><p>caf\xe9</p>")
	got := Decode(data, "")
	if want := "<meta charset=\"iso-8859-1\"><p>café</p>"; got != want {
		t.Fatalf("Decode = %q, want %q", got, want)
	}
	if Decode([]byte("\xef\xbb\xbfok"), "") != "ok" {
		t.Fatalf("BOM not stripped")
	}
}

func TestLocationString(t *testing.T) {
	cases := []struct {
		loc  Location
		want string
	}{
		{Location{File: "a.html", Line: 3, Col: 7}, "a.html:3:7"},
		{Location{File: "a.html", Line: 3}, "a.html:3"},
		{Location{Node: "div.card"}, "div.card"},
		{Location{File: "kit:paper", Node: "fonts.body"}, "kit:paper fonts.body"},
	}
	for _, tc := range cases {
		if got := tc.loc.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}

func TestCustomPropertiesAreDeclarations(t *testing.T) {
	cases := []struct {
		name   string
		source string
		doc    string
		line   int
	}{
		{"stylesheet", "theme.css", ":root {\n  --primary: #8B5CF6;\n  --font-sans: Inter;\n}", 2},
		{"style block", "index.html", "<style>\n:root { --primary: #8B5CF6; --font-sans: Inter }\n</style><p>Hi</p>", 2},
		{"inline", "index.html", `<div style="--primary: #8B5CF6; --font-sans: Inter">Hi</div>`, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decls := AllDeclarations(ParseString(tc.source, tc.doc))
			var got []string
			for _, d := range decls {
				got = append(got, d.Property+"="+d.Value)
			}
			want := []string{"--primary=#8B5CF6", "--font-sans=Inter"}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("declarations = %q, want %q", got, want)
			}
			if decls[0].Loc.Line != tc.line {
				t.Fatalf("location = %+v, want line %d", decls[0].Loc, tc.line)
			}
		})
	}
}

func TestCustomPropertyReferencesStayInValue(t *testing.T) {
	decls := ParseCSS("a { color: var(--primary); -webkit-font-smoothing: auto }", Location{File: "a.css", Line: 1, Col: 1})
	var got []string
	for _, d := range decls {
		got = append(got, d.Property+"="+d.Value)
	}
	want := []string{"color=var(--primary)", "-webkit-font-smoothing=auto"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("declarations = %q, want %q", got, want)
	}
}
