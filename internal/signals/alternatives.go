package signals

// Alternative is a replacement token printed by `suggest`.
type Alternative struct {
	Name    string `json:"name"`
	Value   string `json:"value"`
	Replace string `json:"replaces,omitempty"`
}

var alternatives = map[Category][]Alternative{
	Typography: {
		{Name: "Source Serif 4", Value: "'Source Serif 4', Georgia, serif", Replace: "Inter headings"},
		{Name: "IBM Plex Sans", Value: "'IBM Plex Sans', system-ui, sans-serif", Replace: "Poppins, Montserrat"},
		{Name: "Public Sans", Value: "'Public Sans', system-ui, sans-serif", Replace: "Roboto, Open Sans"},
		{Name: "Fraunces", Value: "Fraunces, 'Times New Roman', serif", Replace: "gradient display headlines"},
		{Name: "Familjen Grotesk", Value: "'Familjen Grotesk', system-ui, sans-serif", Replace: "Space Grotesk"},
		{Name: "JetBrains Mono", Value: "'JetBrains Mono', ui-monospace, monospace"},
	},
	Color: {
		{Name: "Rust accent", Value: "#c2410c", Replace: "violet-500"},
		{Name: "Ink", Value: "#1c1917", Replace: "slate-900"},
		{Name: "Paper", Value: "#faf7f2", Replace: "white card on gray-50"},
		{Name: "Moss", Value: "#3f6212", Replace: "emerald-500"},
		{Name: "Signal yellow", Value: "#eab308", Replace: "cyan-400 highlights"},
	},
	Layout: {
		{Name: "Asymmetric split", Value: "grid-template-columns: 2fr 1fr", Replace: "three-up feature grid"},
		{Name: "Reading measure", Value: "max-width: 68ch", Replace: "max-w-7xl"},
		{Name: "Content-height hero", Value: "padding-block: 6rem 3rem", Replace: "min-h-screen hero"},
		{Name: "Single column index", Value: "a numbered list of features with one screenshot each", Replace: "bento grid"},
	},
	Components: {
		{Name: "Hairline card", Value: "border: 1px solid var(--rule); border-radius: 4px", Replace: "rounded-2xl shadow card"},
		{Name: "Opaque panel", Value: "background: var(--surface)", Replace: "glassmorphism"},
		{Name: "Text link button", Value: "text-decoration: underline; text-underline-offset: 3px", Replace: "pill button"},
	},
	Imagery: {
		{Name: "Product screenshot", Value: "annotated screenshot of the real interface", Replace: "stock photo"},
		{Name: "Diagram", Value: "a drawn diagram of the workflow", Replace: "3D blob"},
		{Name: "Customer photo", Value: "a named customer at work", Replace: "avatar stack"},
	},
	Copy: {
		{Name: "Concrete verb", Value: "Send invoices in two clicks", Replace: "Unlock seamless billing"},
		{Name: "Specific proof", Value: "Acme cut close time from 9 days to 2", Replace: "Trusted by 10,000+ teams"},
		{Name: "Named action", Value: "Create your first invoice", Replace: "Get started"},
	},
	Effects: {
		{Name: "Short neutral shadow", Value: "box-shadow: 0 1px 2px rgb(0 0 0 / 0.08)", Replace: "colored glow"},
		{Name: "Color-change hover", Value: "transition: color 150ms ease", Replace: "hover scale"},
		{Name: "Flat backdrop", Value: "background: var(--paper)", Replace: "dot grid backdrop"},
	},
}

// Alternatives returns replacement tokens for a category.
func Alternatives(cat Category) ([]Alternative, error) {
	if !validCategory(cat) {
		_, err := ParseCategory(string(cat))
		return nil, err
	}
	return append([]Alternative(nil), alternatives[cat]...), nil
}
