package ui

import (
	"os"

	"github.com/charmbracelet/glamour"
)

// RenderMarkdown renders markdown for the terminal. Output that is not going
// to a terminal, or that glamour fails to render, is returned unchanged.
func RenderMarkdown(md string, width int) string {
	if !IsTerminal(os.Stdout) {
		return md
	}
	if width <= 0 {
		width = 100
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}
