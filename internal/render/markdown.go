package render

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

const defaultWidth = 100

// Markdown renders a markdown document for the terminal when enabled.
// It falls back to the plain trimmed text if rendering fails.
func Markdown(text string, width int, enabled bool) string {
	clean := strings.TrimSpace(text)
	if clean == "" || !enabled {
		return clean
	}
	if width <= 0 {
		width = defaultWidth
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return clean
	}
	out, err := renderer.Render(clean)
	if err != nil {
		return clean
	}
	return strings.TrimRight(out, "\n")
}
