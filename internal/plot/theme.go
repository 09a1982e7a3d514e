package plot

import (
	"fmt"
	"image/color"
	"sort"

	"github.com/lucasb-eyer/go-colorful"
)

// Role names a themed color.
type Role int

const (
	RoleBackground Role = iota
	RoleGraphBackground
	RoleGridLine
	RoleGridMarker
	RoleGridText
	RoleAccent
	RoleDisabled
	RoleNode1
	RoleNode2
	RoleNode3
	RoleNode4
	RoleCrosshair
)

const nodeColorCount = 4

// NodeRole returns the rotating palette role for the filter at index.
func NodeRole(index int) Role {
	if index < 0 {
		index = -index
	}
	return RoleNode1 + Role(index%nodeColorCount)
}

// Palette is the color capability passed into every draw call.
type Palette interface {
	ColorFor(role Role) color.Color
}

// Theme is a named palette of hex colors.
type Theme struct {
	Name   string
	colors map[Role]colorful.Color
}

// NewTheme parses hex colors for every role. Missing roles are an error.
func NewTheme(name string, hex map[Role]string) (*Theme, error) {
	t := &Theme{Name: name, colors: make(map[Role]colorful.Color, len(hex))}
	for role := RoleBackground; role <= RoleCrosshair; role++ {
		h, ok := hex[role]
		if !ok {
			return nil, fmt.Errorf("theme %s: missing color for role %d", name, role)
		}
		c, err := colorful.Hex(h)
		if err != nil {
			return nil, fmt.Errorf("theme %s: role %d: %w", name, role, err)
		}
		t.colors[role] = c
	}
	return t, nil
}

func (t *Theme) ColorFor(role Role) color.Color {
	c, ok := t.colors[role]
	if !ok {
		return color.Transparent
	}
	return c
}

var themes = map[string]map[Role]string{
	"dark": {
		RoleBackground:      "#1b2636",
		RoleGraphBackground: "#121a26",
		RoleGridLine:        "#25324a",
		RoleGridMarker:      "#3e5275",
		RoleGridText:        "#7f8da8",
		RoleAccent:          "#f0c94a",
		RoleDisabled:        "#5a6272",
		RoleNode1:           "#4ac3f0",
		RoleNode2:           "#f05a7e",
		RoleNode3:           "#7ef05a",
		RoleNode4:           "#b47ef0",
		RoleCrosshair:       "#ffffff",
	},
	"light": {
		RoleBackground:      "#f4f5f7",
		RoleGraphBackground: "#ffffff",
		RoleGridLine:        "#e1e4ea",
		RoleGridMarker:      "#b8bfcc",
		RoleGridText:        "#5f6b80",
		RoleAccent:          "#d9480f",
		RoleDisabled:        "#adb5bd",
		RoleNode1:           "#1c7ed6",
		RoleNode2:           "#e64980",
		RoleNode3:           "#37b24d",
		RoleNode4:           "#7048e8",
		RoleCrosshair:       "#212529",
	},
}

// ThemeNames lists the built-in themes.
func ThemeNames() []string {
	names := make([]string, 0, len(themes))
	for n := range themes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// LoadTheme returns a built-in theme by name.
func LoadTheme(name string) (*Theme, error) {
	hex, ok := themes[name]
	if !ok {
		return nil, fmt.Errorf("unknown theme %q", name)
	}
	return NewTheme(name, hex)
}

// DefaultTheme is the dark theme.
func DefaultTheme() *Theme {
	t, err := LoadTheme("dark")
	if err != nil {
		panic(err)
	}
	return t
}

// Darken lowers HSL lightness by amount (0..1).
func Darken(c color.Color, amount float64) color.Color {
	cf, ok := colorful.MakeColor(c)
	if !ok {
		return c
	}
	h, s, l := cf.Hsl()
	_, _, _, a := c.RGBA()
	out := colorful.Hsl(h, s, clamp(l-amount, 0, 1)).Clamped()
	return withAlpha(out, float64(a)/0xffff)
}

// Transparentize lowers alpha by amount (0..1).
func Transparentize(c color.Color, amount float64) color.Color {
	cf, ok := colorful.MakeColor(c)
	if !ok {
		return c
	}
	_, _, _, a := c.RGBA()
	return withAlpha(cf, clamp(float64(a)/0xffff-amount, 0, 1))
}

// Opacify raises alpha by amount (0..1).
func Opacify(c color.Color, amount float64) color.Color {
	cf, ok := colorful.MakeColor(c)
	if !ok {
		return c
	}
	_, _, _, a := c.RGBA()
	return withAlpha(cf, clamp(float64(a)/0xffff+amount, 0, 1))
}

func withAlpha(c colorful.Color, alpha float64) color.NRGBA {
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: uint8(alpha*255 + 0.5)}
}
