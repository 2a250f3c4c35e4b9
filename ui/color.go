package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// UserColor returns the color for a login: the Twitch-provided hex when
// present, otherwise a deterministic color hashed from the login and
// mapped through the configured palette. The same login always gets the
// same color for a given palette.
func UserColor(login, twitchColor, palette string) lipgloss.Color {
	if twitchColor != "" {
		return lipgloss.Color(twitchColor)
	}
	var sum int
	for _, b := range []byte(login) {
		sum += int(b)
	}

	var h, s, l float64
	switch strings.ToLower(palette) {
	case "vibrant":
		h, s, l = float64(sum%360+1), 1.0, 0.6
	case "warm":
		h, s, l = float64(sum%100+1)*1.2, 0.8, 0.7
	case "cool":
		h, s, l = float64(sum%100+1)*1.2+180, 0.6, 0.7
	default: // pastel
		h, s, l = float64(sum%360+1), 0.5, 0.75
	}
	return lipgloss.Color(hslToHex(h, s, l))
}

// hslToHex converts h in degrees, s and l in [0,1] to a #rrggbb string.
func hslToHex(h, s, l float64) string {
	c := (1 - math.Abs(2*l-1)) * s
	hp := math.Mod(h, 360) / 60
	x := c * (1 - math.Abs(math.Mod(hp, 2)-1))

	var r, g, b float64
	switch {
	case hp < 1:
		r, g, b = c, x, 0
	case hp < 2:
		r, g, b = x, c, 0
	case hp < 3:
		r, g, b = 0, c, x
	case hp < 4:
		r, g, b = 0, x, c
	case hp < 5:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	m := l - c/2
	return fmt.Sprintf("#%02x%02x%02x",
		int(math.Round((r+m)*255)),
		int(math.Round((g+m)*255)),
		int(math.Round((b+m)*255)))
}
