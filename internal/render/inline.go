package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles are the lipgloss styles applied to streamed text.
type Styles struct {
	Paragraph  lipgloss.Style
	Bold       lipgloss.Style
	Italic     lipgloss.Style
	BoldItalic lipgloss.Style
}

// DefaultStyles returns the tell colour scheme for output rendered through r:
// magenta on a dark background, yellow bold, underlined italics.
func DefaultStyles(r *lipgloss.Renderer) Styles {
	paragraph := r.NewStyle().
		Foreground(lipgloss.Color("5")).
		Background(lipgloss.Color("#1e1e28")).
		TabWidth(lipgloss.NoTabConversion)
	bold := paragraph.Foreground(lipgloss.Color("3")).Bold(true)
	return Styles{
		Paragraph:  paragraph,
		Bold:       bold,
		Italic:     paragraph.Italic(true).Underline(true),
		BoldItalic: bold.Italic(true).Underline(true),
	}
}

// Inline styles **bold** and *italic* spans in text that arrives in pieces.
// Emphasis state carries across calls to Render. Asterisks at the very end
// of a piece are held back until the next piece shows whether they open,
// close, or are literal.
type Inline struct {
	styles Styles
	bold   bool
	italic bool
	held   int
}

// NewInline returns an Inline with no open spans.
func NewInline(styles Styles) *Inline {
	return &Inline{styles: styles}
}

// Render returns the styled form of the next piece of text.
func (in *Inline) Render(text string) string {
	src := strings.Repeat("*", in.held) + text
	in.held = 0
	return in.render(src, false)
}

// Finish resolves held asterisks and resets emphasis state.
func (in *Inline) Finish() string {
	src := strings.Repeat("*", in.held)
	in.held = 0
	out := in.render(src, true)
	in.bold, in.italic = false, false
	return out
}

func (in *Inline) render(src string, final bool) string {
	var out, seg strings.Builder
	flush := func() {
		if seg.Len() == 0 {
			return
		}
		out.WriteString(in.paint(seg.String()))
		seg.Reset()
	}

	for i := 0; i < len(src); {
		if src[i] != '*' {
			seg.WriteByte(src[i])
			i++
			continue
		}

		run := 1
		for i+run < len(src) && src[i+run] == '*' {
			run++
		}
		next := byte(' ')
		if i+run < len(src) {
			next = src[i+run]
		} else if !final {
			in.held = run
			break
		}

		width := min(run, 2)
		if in.isMarker(width, isSpace(next)) {
			flush()
			in.flip(width)
		} else {
			seg.WriteString(src[i : i+width])
		}
		i += width
	}
	flush()
	return out.String()
}

// A marker that is followed by whitespace only counts when it closes a span.
func (in *Inline) isMarker(width int, beforeSpace bool) bool {
	if width == 2 {
		return in.bold || !beforeSpace
	}
	return in.italic || !beforeSpace
}

func (in *Inline) flip(width int) {
	if width == 2 {
		in.bold = !in.bold
		return
	}
	in.italic = !in.italic
}

func (in *Inline) style() lipgloss.Style {
	switch {
	case in.bold && in.italic:
		return in.styles.BoldItalic
	case in.bold:
		return in.styles.Bold
	case in.italic:
		return in.styles.Italic
	default:
		return in.styles.Paragraph
	}
}

// paint styles each line on its own; lipgloss pads multi-line blocks to a
// common width.
func (in *Inline) paint(text string) string {
	st := in.style()
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = st.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r':
		return true
	}
	return false
}
