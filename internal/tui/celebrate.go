package tui

import (
	"image/color"
	"math/rand"
	"strings"

	"charm.land/lipgloss/v2"
)

// celebrationFrames is how many ticks the win celebration stays on screen.
const celebrationFrames = 20

var sparkleGlyphs = []rune{'✦', '✧', '*', '·', '˚'}

var sparkleColors = []color.Color{
	lipgloss.Color("205"),
	lipgloss.Color("220"),
	lipgloss.Color("82"),
	lipgloss.Color("39"),
	lipgloss.Color("213"),
}

// renderSparkles draws one frame of the win celebration banner.
func renderSparkles(rng *rand.Rand, width int, label string) string {
	if width < 8 {
		width = 8
	}
	var row strings.Builder
	for i := 0; i < width; i++ {
		if rng.Intn(4) != 0 {
			row.WriteByte(' ')
			continue
		}
		glyph := sparkleGlyphs[rng.Intn(len(sparkleGlyphs))]
		style := lipgloss.NewStyle().Foreground(sparkleColors[rng.Intn(len(sparkleColors))])
		row.WriteString(style.Render(string(glyph)))
	}
	banner := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220")).Render(label)
	return row.String() + "\n" + lipgloss.PlaceHorizontal(width, lipgloss.Center, banner)
}
