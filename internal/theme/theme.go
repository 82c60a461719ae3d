// Package theme holds the design tokens shared by the web shell and the
// terminal view. Colours are declared once in HSL and rendered either as
// CSS custom properties or as hex colours for lipgloss.
package theme

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// HSL is a colour in hue (degrees), saturation and lightness (percent).
type HSL struct {
	H, S, L float64
}

func (c HSL) CSS() string {
	return fmt.Sprintf("hsl(%s, %s%%, %s%%)", trim(c.H), trim(c.S), trim(c.L))
}

// Hex converts through go-colorful, which takes saturation and lightness
// as fractions.
func (c HSL) Hex() string {
	return colorful.Hsl(c.H, c.S/100, c.L/100).Clamped().Hex()
}

func (c HSL) Lipgloss() lipgloss.Color {
	return lipgloss.Color(c.Hex())
}

// Pair is a surface colour and the text colour drawn on it.
type Pair struct {
	Default    HSL
	Foreground HSL
}

type Tokens struct {
	Background HSL
	Foreground HSL
	Primary    Pair
	Muted      Pair

	// Radii in rem.
	Radius map[string]float64
}

var Default = Tokens{
	Background: HSL{210, 40, 98},
	Foreground: HSL{222.2, 47.4, 11.2},
	Primary: Pair{
		Default:    HSL{222.2, 47.4, 11.2},
		Foreground: HSL{210, 40, 98},
	},
	Muted: Pair{
		Default:    HSL{210, 40, 96},
		Foreground: HSL{215.4, 16.3, 46.9},
	},
	Radius: map[string]float64{
		"lg": 0.5,
		"md": 0.375,
		"sm": 0.25,
	},
}

// CSSVariables renders the tokens as a :root block.
func (t Tokens) CSSVariables() string {
	var b strings.Builder
	b.WriteString(":root {\n")
	writeVar(&b, "background", t.Background.CSS())
	writeVar(&b, "foreground", t.Foreground.CSS())
	writeVar(&b, "primary", t.Primary.Default.CSS())
	writeVar(&b, "primary-foreground", t.Primary.Foreground.CSS())
	writeVar(&b, "muted", t.Muted.Default.CSS())
	writeVar(&b, "muted-foreground", t.Muted.Foreground.CSS())

	names := make([]string, 0, len(t.Radius))
	for name := range t.Radius {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		writeVar(&b, "radius-"+name, trim(t.Radius[name])+"rem")
	}
	b.WriteString("}\n")
	return b.String()
}

func writeVar(b *strings.Builder, name, value string) {
	fmt.Fprintf(b, "  --%s: %s;\n", name, value)
}

func trim(f float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.3f", f), "0"), ".")
}
