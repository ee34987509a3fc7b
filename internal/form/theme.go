package form

// Theme is the visual description attached to a form.
// The engine passes it through untouched; see package theme for rendering.
type Theme struct {
	PrimaryColor    string `json:"primary_color,omitempty"`
	BackgroundColor string `json:"background_color,omitempty"`
	TextColor       string `json:"text_color,omitempty"`
	BorderRadius    string `json:"border_radius,omitempty"`
	Spacing         string `json:"spacing,omitempty"`
	QuestionSpacing string `json:"question_spacing,omitempty"`
	ButtonStyle     string `json:"button_style,omitempty"` // "solid" | "outline"
	Layout          string `json:"layout,omitempty"`       // "default" | "compact" | "spacious"
	Alignment       string `json:"alignment,omitempty"`    // "left" | "center"
	Logo            *Logo  `json:"logo,omitempty"`
	CustomCSS       string `json:"custom_css,omitempty"`
}

// Logo is an optional image shown above the form title.
type Logo struct {
	Type     string `json:"type,omitempty"` // "url" | "upload"
	Src      string `json:"src"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	Position string `json:"position,omitempty"` // "left" | "center" | "right"
}

// DefaultTheme returns the theme new forms start with.
func DefaultTheme() Theme {
	return Theme{
		PrimaryColor:    "#3B82F6",
		BackgroundColor: "#FFFFFF",
		TextColor:       "#1F2937",
		BorderRadius:    "0.5rem",
		Spacing:         "1.5rem",
		QuestionSpacing: "2rem",
		ButtonStyle:     "solid",
		Layout:          "default",
		Alignment:       "left",
	}
}

// WithDefaults returns a copy with every unset field taken from DefaultTheme.
// Explicit values always win.
func (t Theme) WithDefaults() Theme {
	d := DefaultTheme()
	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&t.PrimaryColor, d.PrimaryColor)
	fill(&t.BackgroundColor, d.BackgroundColor)
	fill(&t.TextColor, d.TextColor)
	fill(&t.BorderRadius, d.BorderRadius)
	fill(&t.Spacing, d.Spacing)
	fill(&t.QuestionSpacing, d.QuestionSpacing)
	fill(&t.ButtonStyle, d.ButtonStyle)
	fill(&t.Layout, d.Layout)
	fill(&t.Alignment, d.Alignment)
	if t.Logo != nil {
		logo := *t.Logo
		fill(&logo.Type, "url")
		fill(&logo.Position, "left")
		t.Logo = &logo
	}
	return t
}
