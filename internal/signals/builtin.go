package signals

// Tailwind palette values that ship as defaults in most starter templates.
var (
	aiPurples = []string{
		"#8B5CF6", "#7C3AED", "#6D28D9", "#A78BFA", // violet 500/600/700/400
		"#A855F7", "#9333EA", "#7E22CE", "#C084FC", // purple
		"#6366F1", "#4F46E5", "#4338CA", "#818CF8", // indigo
		"#D946EF", "#C026D3", // fuchsia
	}
	neonAccents = []string{
		"#22D3EE", "#06B6D4", // cyan
		"#EC4899", "#F472B6", "#DB2777", // pink
		"#10B981", "#34D399", // emerald
	}
	defaultDarks = []string{"#0F172A", "#020617", "#111827", "#030712", "#18181B", "#09090B"}
)

func builtin() []Signal {
	return []Signal{
		// Typography
		{
			ID:          "typo-inter-everywhere",
			Name:        "Inter as the only typeface",
			Category:    Typography,
			Severity:    Critical,
			Salience:    High,
			Description: "Inter is the default of nearly every starter kit and component library.",
			Rules:       []Rule{Fonts("Inter", "Inter var", "Inter Variable")},
			QuickFixes: []QuickFix{
				{Effort: EffortLow, Description: "Pair an editorial serif for headings with a humanist sans for body text.", Replacement: "font-family: 'Source Serif 4', Georgia, serif;"},
			},
		},
		{
			ID:          "typo-starter-sans",
			Name:        "Starter-template sans serif",
			Category:    Typography,
			Severity:    Warning,
			Salience:    High,
			Description: "Roboto, Open Sans, Poppins, Montserrat and Lato read as unstyled defaults.",
			Rules:       []Rule{Fonts("Roboto", "Open Sans", "Poppins", "Montserrat", "Lato", "Nunito", "Raleway")},
			QuickFixes: []QuickFix{
				{Effort: EffortMedium, Description: "Replace the geometric display face with one picked for the brand voice.", Replacement: "font-family: 'IBM Plex Sans', system-ui, sans-serif;", When: "Poppins"},
				{Effort: EffortLow, Description: "Choose a typeface with a distinct voice and set it as the body font.", Replacement: "font-family: 'Public Sans', system-ui, sans-serif;"},
			},
		},
		{
			ID:          "typo-trend-grotesk",
			Name:        "Trend grotesk",
			Category:    Typography,
			Severity:    Warning,
			Salience:    Medium,
			Description: "Space Grotesk, DM Sans and Plus Jakarta Sans are the current AI landing page defaults.",
			Rules:       []Rule{Fonts("Space Grotesk", "DM Sans", "Plus Jakarta Sans", "Outfit", "Manrope", "Sora")},
			QuickFixes: []QuickFix{
				{Effort: EffortLow, Description: "Swap for a grotesk with less recent exposure or a serif display face.", Replacement: "font-family: 'Familjen Grotesk', system-ui, sans-serif;"},
			},
		},
		{
			ID:          "typo-gradient-headline",
			Name:        "Gradient-filled headline text",
			Category:    Typography,
			Severity:    Critical,
			Salience:    High,
			Description: "Headline text clipped to a gradient background.",
			Rules: []Rule{
				Classes("", "bg-clip-text"),
				Declarations([]string{"background-clip", "-webkit-background-clip"}, "", "text"),
			},
			QuickFixes: []QuickFix{
				{Effort: EffortLow, Description: "Set headlines in a solid ink color and carry emphasis with weight or size.", Replacement: "color: var(--ink);"},
			},
		},
		{
			ID:          "typo-hero-giant",
			Name:        "Oversized hero type",
			Category:    Typography,
			Severity:    Info,
			Salience:    Medium,
			Description: "text-6xl and above on hero headlines.",
			Rules:       []Rule{Classes("", "text-6xl", "text-7xl", "text-8xl", "text-9xl")},
			QuickFixes: []QuickFix{
				{Effort: EffortLow, Description: "Size the headline from a modular scale rather than the largest utility.", Replacement: "font-size: clamp(2.25rem, 4vw, 3.5rem);"},
			},
		},
		{
			ID:          "typo-tight-tracking",
			Name:        "Tight tracking on every heading",
			Category:    Typography,
			Severity:    Info,
			Salience:    Low,
			Description: "tracking-tight applied as a reflex.",
			Rules: []Rule{
				Classes("", "tracking-tight", "tracking-tighter"),
				Declarations([]string{"letter-spacing"}, `^-0\.0[2-5]em$`),
			},
			QuickFixes: []QuickFix{
				{Effort: EffortLow, Description: "Leave tracking at the typeface default unless the display size needs it."},
			},
		},

		// Color
		{
			ID:          "color-ai-purple",
			Name:        "AI purple",
			Category:    Color,
			Severity:    Critical,
			Salience:    High,
			Description: "Violet, purple and indigo from the Tailwind palette used as the brand color.",
			Rules: []Rule{
				Colors(aiPurples...).WithKeywords("blueviolet", "mediumpurple", "rebeccapurple"),
				Classes(`^(bg|text|from|via|to|border|ring|fill|stroke|decoration|outline|accent)-(violet|purple|indigo|fuchsia)-(300|400|500|600|700)(/\d+)?$`),
			},
			QuickFixes: []QuickFix{
				{Effort: EffortMedium, Description: "Derive the accent from the product's own material: a photo, a logo, a print reference.", Replacement: "--accent: #c2410c;"},
			},
		},
		{
			ID:          "color-gradient-wash",
			Name:        "Gradient background wash",
			Category:    Color,
			Severity:    Warning,
			Salience:    High,
			Description: "Multi-stop gradients behind heroes, buttons and cards.",
			Rules: []Rule{
				Classes(`^bg-gradient-to-(t|tr|r|br|b|bl|l|tl)$`, "bg-linear-to-r", "bg-linear-to-br"),
				Declarations([]string{"background", "background-image"}, "", "linear-gradient(", "conic-gradient("),
			},
			QuickFixes: []QuickFix{
				{Effort: EffortLow, Description: "Use a flat surface color and let photography or type provide depth.", Replacement: "background: var(--surface);"},
			},
		},
		{
			ID:          "color-neon-accent",
			Name:        "Neon accent",
			Category:    Color,
			Severity:    Warning,
			Salience:    Medium,
			Description: "Cyan, hot pink and emerald highlights straight from the default palette.",
			Rules: []Rule{
				Colors(neonAccents...),
				Classes(`^(text|bg|from|via|to|border|ring)-(cyan|pink|emerald)-(400|500)(/\d+)?$`),
			},
			QuickFixes: []QuickFix{
				{Effort: EffortLow, Description: "Mute the accent toward the brand hue and reserve saturation for one element."},
			},
		},
		{
			ID:          "color-default-dark",
			Name:        "Default dark surface",
			Category:    Color,
			Severity:    Info,
			Salience:    Medium,
			Description: "slate-900 and gray-950 backgrounds that every dark template ships with.",
			Rules: []Rule{
				Colors(defaultDarks...),
				Classes(`^bg-(slate|gray|zinc|neutral)-(900|950)(/\d+)?$`),
			},
			QuickFixes: []QuickFix{
				{Effort: EffortLow, Description: "Tint the dark surface toward the brand hue instead of neutral slate.", Replacement: "--surface-dark: #1c1917;"},
			},
		},

		// Layout
		{
			ID:          "layout-fullscreen-hero",
			Name:        "Full-viewport centered hero",
			Category:    Layout,
			Severity:    Warning,
			Salience:    High,
			Description: "A min-h-screen hero with a centered headline, subline and two buttons.",
			Rules: []Rule{
				Classes("", "min-h-screen", "h-screen", "min-h-dvh", "h-dvh"),
				Declarations([]string{"min-height", "height"}, "", "100vh", "100dvh"),
			},
			QuickFixes: []QuickFix{
				{Effort: EffortMedium, Description: "Let the hero take its content height and show the product above the fold."},
			},
		},
		{
			ID:          "layout-three-up-features",
			Name:        "Three-up feature grid",
			Category:    Layout,
			Severity:    Warning,
			Salience:    High,
			Description: "Three equal columns of icon, title and two-line blurb.",
			Rules: []Rule{
				Classes("", "grid-cols-3"),
				Declarations([]string{"grid-template-columns"}, `repeat\(\s*3\s*,`),
			},
			QuickFixes: []QuickFix{
				{Effort: EffortMedium, Description: "Lead with the one feature that matters and demote the rest to a list."},
			},
		},
		{
			ID:          "layout-bento",
			Name:        "Bento grid",
			Category:    Layout,
			Severity:    Warning,
			Salience:    Medium,
			Description: "Uneven tile grids built from col-span and row-span utilities.",
			Rules: []Rule{
				Classes(`^(col|row)-span-2$`),
				Declarations([]string{"grid-column", "grid-row"}, `^span 2$`),
			},
			QuickFixes: []QuickFix{
				{Effort: EffortHigh, Description: "Replace the tile mosaic with a layout that follows the content's hierarchy."},
			},
		},
		{
			ID:          "layout-stock-container",
			Name:        "Stock container width",
			Category:    Layout,
			Severity:    Info,
			Salience:    Low,
			Description: "max-w-7xl mx-auto on every section.",
			Rules:       []Rule{Classes("", "max-w-7xl", "max-w-6xl", "max-w-screen-xl")},
			QuickFixes: []QuickFix{
				{Effort: EffortLow, Description: "Set a measure from the body text length instead of the container preset.", Replacement: "max-width: 68ch;"},
			},
		},
		{
			ID:          "layout-uniform-padding",
			Name:        "Uniform section padding",
			Category:    Layout,
			Severity:    Info,
			Salience:    Low,
			Description: "py-20 or py-24 repeated on every section.",
			Rules:       []Rule{Classes("", "py-20", "py-24", "py-32")},
			QuickFixes: []QuickFix{
				{Effort: EffortLow, Description: "Vary vertical rhythm by section weight."},
			},
		},

		// Components
		{
			ID:          "comp-soft-cards",
			Name:        "Rounded-2xl cards",
			Category:    Components,
			Severity:    Warning,
			Salience:    High,
			Description: "Large uniform corner radius on every card and button.",
			Rules: []Rule{
				Classes("", "rounded-2xl", "rounded-3xl"),
				Declarations([]string{"border-radius"}, `^(16|20|24|32)px$|^(1|1\.25|1\.5|2)rem$`),
			},
			QuickFixes: []QuickFix{
				{Effort: EffortLow, Description: "Drop the radius to a small fixed value shared by all surfaces.", Replacement: "border-radius: 4px;"},
			},
		},
		{
			ID:          "comp-glassmorphism",
			Name:        "Glassmorphism panels",
			Category:    Components,
			Severity:    Critical,
			Salience:    High,
			Description: "Frosted translucent panels with backdrop blur.",
			Rules: []Rule{
				Classes(`^backdrop-blur(-(sm|md|lg|xl|2xl|3xl))?$`, "bg-white/5", "bg-white/10", "bg-white/20", "bg-black/20"),
				Declarations([]string{"backdrop-filter", "-webkit-backdrop-filter"}, "", "blur("),
			},
			QuickFixes: []QuickFix{
				{Effort: EffortLow, Description: "Use an opaque surface with a hairline border.", Replacement: "background: var(--surface); border: 1px solid var(--rule);"},
			},
		},
		{
			ID:          "comp-shadcn-fingerprint",
			Name:        "Unmodified component library",
			Category:    Components,
			Severity:    Warning,
			Salience:    Medium,
			Description: "shadcn/ui primitives dropped in without restyling.",
			Rules: []Rule{
				Markup("", `data-slot="`, `@/components/ui/`, `ring-offset-background`, `bg-primary text-primary-foreground`),
			},
			QuickFixes: []QuickFix{
				{Effort: EffortMedium, Description: "Restyle the primitives against your own tokens before shipping."},
			},
		},
		{
			ID:          "comp-icon-tiles",
			Name:        "Icon-in-a-tile feature cards",
			Category:    Components,
			Severity:    Info,
			Salience:    Medium,
			Description: "Lucide icons in tinted squares above every feature title.",
			Rules: []Rule{
				Markup("", "lucide-react", `class="lucide`, "heroicons"),
			},
			QuickFixes: []QuickFix{
				{Effort: EffortMedium, Description: "Replace generic icons with product screenshots or remove them."},
			},
		},
		{
			ID:          "comp-hover-lift",
			Name:        "Hover lift and scale",
			Category:    Components,
			Severity:    Info,
			Salience:    Low,
			Description: "Cards that scale up and float on hover.",
			Rules: []Rule{
				Classes(`^-translate-y-(0\.5|1|2)$`, "scale-105", "scale-110", "scale-[1.02]"),
			},
			QuickFixes: []QuickFix{
				{Effort: EffortLow, Description: "Signal interactivity with a color or underline change instead of motion."},
			},
		},

		// Imagery
		{
			ID:          "img-stock-placeholder",
			Name:        "Stock and placeholder imagery",
			Category:    Imagery,
			Severity:    Warning,
			Salience:    High,
			Description: "Images served from stock or placeholder hosts.",
			Rules: []Rule{
				Markup("", "images.unsplash.com", "placehold.co", "via.placeholder.com", "picsum.photos", "undraw.co", "placeholder.svg"),
			},
			QuickFixes: []QuickFix{
				{Effort: EffortHigh, Description: "Shoot or render real product imagery."},
			},
		},
		{
			ID:          "img-blur-blobs",
			Name:        "Blurred color blobs",
			Category:    Imagery,
			Severity:    Warning,
			Salience:    Medium,
			Description: "Huge blurred circles floating behind the hero.",
			Rules: []Rule{
				Classes(`^blur-(2xl|3xl|\[\d{2,3}px\])$`),
				Declarations([]string{"filter"}, `blur\(\s*([4-9]\d|\d{3})px`),
			},
			QuickFixes: []QuickFix{
				{Effort: EffortLow, Description: "Remove the decorative blobs."},
			},
		},
		{
			ID:          "img-emoji-bullets",
			Name:        "Emoji as icons",
			Category:    Imagery,
			Severity:    Info,
			Salience:    Medium,
			Description: "Rocket, sparkles and lightning emoji standing in for iconography.",
			Rules: []Rule{
				Text("", "🚀", "✨", "⚡", "🔥", "💡", "🎯", "🤖"),
			},
			QuickFixes: []QuickFix{
				{Effort: EffortLow, Description: "Remove the emoji or replace them with drawn marks."},
			},
		},
		{
			ID:          "img-avatar-stack",
			Name:        "Overlapping avatar stack",
			Category:    Imagery,
			Severity:    Info,
			Salience:    Low,
			Description: "A row of overlapping avatars next to a user count.",
			Rules:       []Rule{Classes(`^-space-x-[234]$`)},
			QuickFixes: []QuickFix{
				{Effort: EffortMedium, Description: "Quote one named customer instead of a faceless avatar row."},
			},
		},

		// Copy
		{
			ID:          "copy-ai-buzzwords",
			Name:        "Generated-copy vocabulary",
			Category:    Copy,
			Severity:    Critical,
			Salience:    High,
			Description: "Unlock, elevate, seamless, supercharge and their relatives.",
			Rules: []Rule{
				Text(`\b(unlock|unleash|elevate|supercharge|revolutioni[sz]e|seamless(ly)?|game[- ]chang(er|ing)|cutting[- ]edge|next[- ]gen(eration)?|empower(s|ing)?|effortless(ly)?|harness)\b`),
			},
			QuickFixes: []QuickFix{
				{Effort: EffortLow, Description: "Say what the product does in concrete nouns and numbers."},
			},
		},
		{
			ID:          "copy-lorem-ipsum",
			Name:        "Placeholder text",
			Category:    Copy,
			Severity:    Critical,
			Salience:    High,
			Description: "Lorem ipsum left in shipped pages.",
			Rules:       []Rule{Text(`lorem ipsum|dolor sit amet`)},
			QuickFixes: []QuickFix{
				{Effort: EffortMedium, Description: "Write the real copy."},
			},
		},
		{
			ID:          "copy-generic-cta",
			Name:        "Generic call to action",
			Category:    Copy,
			Severity:    Warning,
			Salience:    Medium,
			Description: "Get started, Learn more, Start your free trial.",
			Rules: []Rule{
				Text(`\b(get started( for free| today| now)?|learn more|start your (free )?trial|sign up (for )?free|try it free)\b`),
			},
			QuickFixes: []QuickFix{
				{Effort: EffortLow, Description: "Name the action the user is taking.", Replacement: "Create your first invoice"},
			},
		},
		{
			ID:          "copy-social-proof-filler",
			Name:        "Social proof filler",
			Category:    Copy,
			Severity:    Warning,
			Salience:    Medium,
			Description: "Trusted by 10,000+ teams and similar unverifiable counts.",
			Rules: []Rule{
				Text(`(trusted by|loved by|join) [\d,.]+k?\+? ?(teams|users|developers|companies|creators|customers)?|loved by (thousands|developers|teams)`),
			},
			QuickFixes: []QuickFix{
				{Effort: EffortMedium, Description: "Replace the count with a named customer and a specific result."},
			},
		},
		{
			ID:          "copy-tagline-formula",
			Name:        "Formula tagline",
			Category:    Copy,
			Severity:    Info,
			Salience:    Medium,
			Description: "The future of X, built for modern teams, all-in-one platform.",
			Rules: []Rule{
				Text(`\b(the (future|new way) of|built for (the )?(modern|next)|all[- ]in[- ]one|in one place|at scale)\b`),
			},
			QuickFixes: []QuickFix{
				{Effort: EffortLow, Description: "Rewrite the tagline around the customer's problem."},
			},
		},
		{
			ID:          "copy-em-dash-cadence",
			Name:        "Em dash cadence",
			Category:    Copy,
			Severity:    Info,
			Salience:    Low,
			Description: "Em dashes used as the default clause separator.",
			Rules:       []Rule{Text("", "—")},
			QuickFixes: []QuickFix{
				{Effort: EffortLow, Description: "Split the sentence or use a comma."},
			},
		},

		// Effects
		{
			ID:          "fx-glow-shadow",
			Name:        "Colored glow shadow",
			Category:    Effects,
			Severity:    Warning,
			Salience:    High,
			Description: "Purple or blue glows under buttons and cards.",
			Rules: []Rule{
				Classes(`^shadow-(violet|purple|indigo|fuchsia|blue|cyan)-(400|500|600)(/\d+)?$`, "shadow-2xl"),
				Declarations([]string{"box-shadow"}, `0 0 \d{2,}px`),
			},
			QuickFixes: []QuickFix{
				{Effort: EffortLow, Description: "Use a neutral, short shadow or a border.", Replacement: "box-shadow: 0 1px 2px rgb(0 0 0 / 0.08);"},
			},
		},
		{
			ID:          "fx-pulse-animation",
			Name:        "Attention animations",
			Category:    Effects,
			Severity:    Info,
			Salience:    Medium,
			Description: "animate-pulse and animate-bounce on static content.",
			Rules:       []Rule{Classes("", "animate-pulse", "animate-bounce", "animate-ping")},
			QuickFixes: []QuickFix{
				{Effort: EffortLow, Description: "Remove decorative animation from content that is not loading."},
			},
		},
		{
			ID:          "fx-transition-all",
			Name:        "transition-all",
			Category:    Effects,
			Severity:    Info,
			Salience:    Low,
			Description: "Transitions on every property, by default.",
			Rules: []Rule{
				Classes("", "transition-all"),
				Declarations([]string{"transition", "transition-property"}, `^all\b`),
			},
			QuickFixes: []QuickFix{
				{Effort: EffortLow, Description: "Transition only the properties that change.", Replacement: "transition: color 150ms ease, background-color 150ms ease;"},
			},
		},
		{
			ID:          "fx-grid-backdrop",
			Name:        "Dot or grid backdrop",
			Category:    Effects,
			Severity:    Warning,
			Salience:    Medium,
			Description: "Radial dot patterns and faded grid lines behind the hero.",
			Rules: []Rule{
				Classes(`^bg-\[radial-gradient`, "bg-grid", "bg-dot", "bg-grid-white/5"),
				Declarations([]string{"background", "background-image"}, `radial-gradient\([^)]*1px`),
				Markup("", "grid.svg", "noise.png", "grain.png"),
			},
			QuickFixes: []QuickFix{
				{Effort: EffortLow, Description: "Remove the backdrop pattern."},
			},
		},
	}
}
