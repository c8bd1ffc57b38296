package cli

import (
	"io"

	"golang.org/x/term"
)

const fallbackWidth = 100

func isTerminalWriter(w io.Writer) bool {
	fdw, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return term.IsTerminal(int(fdw.Fd()))
}

func terminalWidth(w io.Writer) int {
	fdw, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return fallbackWidth
	}
	fd := int(fdw.Fd())
	if !term.IsTerminal(fd) {
		return fallbackWidth
	}
	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		return fallbackWidth
	}
	return width
}
