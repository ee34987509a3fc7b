// Package theme turns a form theme into a style descriptor.
//
// Resolve is pure. It never touches shared rendering state; the caller
// decides where the stylesheet and inline styles go (an HTML page, a
// terminal renderer, a JSON response).
package theme

import (
	"bytes"
	"sort"
	"strings"
	"text/template"

	"github.com/roach88/formstep/internal/form"
)

// Default logo size in pixels when the theme leaves it unset.
const (
	DefaultLogoWidth  = 200
	DefaultLogoHeight = 60
)

// Descriptor is everything needed to apply a theme.
type Descriptor struct {
	// Variables are CSS custom properties for the form container.
	Variables map[string]string `json:"variables"`

	// Container is the inline style of the form container.
	Container map[string]string `json:"container"`

	MaxWidth    string `json:"max_width"`
	TextAlign   string `json:"text_align"`
	ButtonClass string `json:"button_class"`

	Logo *LogoPlacement `json:"logo,omitempty"`

	// Stylesheet is the theme's custom CSS verbatim when set, otherwise
	// generated from the theme values.
	Stylesheet string `json:"stylesheet"`
	Custom     bool   `json:"custom"`
}

// LogoPlacement positions the logo above the form title.
type LogoPlacement struct {
	Src     string `json:"src"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Justify string `json:"justify"` // flex-start | center | flex-end
}

// Resolve computes the descriptor for t. Unset theme fields take the
// defaults of form.DefaultTheme.
func Resolve(t form.Theme) Descriptor {
	t = t.WithDefaults()

	d := Descriptor{
		Variables: map[string]string{
			"--primary-color":    t.PrimaryColor,
			"--background-color": t.BackgroundColor,
			"--text-color":       t.TextColor,
			"--border-radius":    t.BorderRadius,
			"--spacing":          t.Spacing,
			"--question-spacing": t.QuestionSpacing,
		},
		Container: map[string]string{
			"background-color": t.BackgroundColor,
			"color":            t.TextColor,
			"border-radius":    t.BorderRadius,
			"padding":          t.Spacing,
		},
		MaxWidth:    maxWidth(t.Layout),
		TextAlign:   textAlign(t.Alignment),
		ButtonClass: buttonClass(t.ButtonStyle),
		Logo:        placeLogo(t.Logo),
	}

	if strings.TrimSpace(t.CustomCSS) != "" {
		d.Stylesheet = t.CustomCSS
		d.Custom = true
	} else {
		d.Stylesheet = defaultStylesheet(t)
	}
	return d
}

// InlineStyle renders the variables and container style as one style
// attribute value, properties sorted by name.
func (d Descriptor) InlineStyle() string {
	decls := make([]string, 0, len(d.Variables)+len(d.Container))
	for _, m := range []map[string]string{d.Variables, d.Container} {
		for _, k := range sortedKeys(m) {
			decls = append(decls, k+": "+m[k])
		}
	}
	return strings.Join(decls, "; ")
}

func maxWidth(layout string) string {
	switch layout {
	case "compact":
		return "36rem"
	case "spacious":
		return "48rem"
	default:
		return "42rem"
	}
}

func textAlign(alignment string) string {
	if alignment == "center" {
		return "center"
	}
	return "left"
}

func buttonClass(style string) string {
	if style == "outline" {
		return "outline"
	}
	return "solid"
}

func placeLogo(l *form.Logo) *LogoPlacement {
	if l == nil || l.Src == "" {
		return nil
	}

	p := &LogoPlacement{Src: l.Src, Width: l.Width, Height: l.Height}
	if p.Width <= 0 {
		p.Width = DefaultLogoWidth
	}
	if p.Height <= 0 {
		p.Height = DefaultLogoHeight
	}
	switch l.Position {
	case "center":
		p.Justify = "center"
	case "right":
		p.Justify = "flex-end"
	default:
		p.Justify = "flex-start"
	}
	return p
}

var stylesheet = template.Must(template.New("stylesheet").Parse(`.form-container {
  background-color: {{.BackgroundColor}};
  color: {{.TextColor}};
  border-radius: {{.BorderRadius}};
  padding: {{.Spacing}};
}

.form-title {
  color: {{.TextColor}};
  text-align: {{.Alignment}};
  margin-bottom: 1rem;
}

.form-description {
  color: {{.TextColor}};
  opacity: 0.7;
  text-align: {{.Alignment}};
}

.question-container {
  margin-bottom: {{.QuestionSpacing}};
}

.question-label {
  color: {{.TextColor}};
  text-align: {{.Alignment}};
  margin-bottom: 0.5rem;
}

.form-input, .form-select {
  background-color: {{.BackgroundColor}};
  color: {{.TextColor}};
  border-color: {{.PrimaryColor}};
  border-radius: {{.BorderRadius}};
  padding: {{.Spacing}};
}

.form-input {
  width: 100%;
}

.form-button {
{{- if eq .ButtonStyle "outline"}}
  border: 2px solid {{.PrimaryColor}};
  color: {{.PrimaryColor}};
  background: transparent;
{{- else}}
  background-color: {{.PrimaryColor}};
  color: white;
{{- end}}
  border-radius: {{.BorderRadius}};
  padding: 0.5rem 1rem;
  transition: opacity 0.2s;
}
`))

func defaultStylesheet(t form.Theme) string {
	var buf bytes.Buffer
	// Theme fields are plain strings; execution cannot fail.
	_ = stylesheet.Execute(&buf, t)
	return buf.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
