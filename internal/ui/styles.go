// Package ui provides the terminal pieces of the CLI: styles, prompts,
// the executor spinner and markdown rendering.
package ui

import (
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// unicodeSupported caches whether the terminal supports Unicode.
var (
	unicodeSupported     bool
	unicodeSupportedOnce sync.Once
)

// SupportsUnicode returns true if the terminal likely supports Unicode characters.
// It checks LANG, LC_ALL, and LC_CTYPE environment variables for UTF-8 indicators.
func SupportsUnicode() bool {
	unicodeSupportedOnce.Do(func() {
		for _, envVar := range []string{"LC_ALL", "LC_CTYPE", "LANG"} {
			val := strings.ToLower(os.Getenv(envVar))
			if strings.Contains(val, "utf-8") || strings.Contains(val, "utf8") {
				unicodeSupported = true
				return
			}
		}
	})
	return unicodeSupported
}

// Icon returns the appropriate icon based on terminal Unicode support.
func Icon(unicodeIcon, asciiIcon string) string {
	if SupportsUnicode() {
		return unicodeIcon
	}
	return asciiIcon
}

// Colors
var (
	ColorPrimary   = lipgloss.Color("#61AFEF") // Soft blue
	ColorSecondary = lipgloss.Color("#56B6C2") // Cyan
	ColorSuccess   = lipgloss.Color("#98C379") // Green
	ColorWarning   = lipgloss.Color("#E5C07B") // Yellow
	ColorError     = lipgloss.Color("#E06C75") // Red
	ColorMuted     = lipgloss.Color("#5C6370") // Gray

	ColorInProgress = lipgloss.Color("#D19A66") // Orange
)

// Text styles
var (
	Bold     = lipgloss.NewStyle().Bold(true)
	Dim      = lipgloss.NewStyle().Foreground(ColorMuted)
	Title    = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	Subtitle = lipgloss.NewStyle().Foreground(ColorSecondary)
	Success  = lipgloss.NewStyle().Foreground(ColorSuccess)
	Warning  = lipgloss.NewStyle().Foreground(ColorWarning)
	Error    = lipgloss.NewStyle().Foreground(ColorError)
)

// StatusStyle returns the style used to print a note status.
func StatusStyle(status string) lipgloss.Style {
	switch status {
	case "done":
		return Success
	case "in-progress":
		return lipgloss.NewStyle().Foreground(ColorInProgress)
	case "blocked":
		return Error
	case "":
		return Dim
	default:
		return Subtitle
	}
}

// Check renders a success line prefixed with a check mark.
func Check(msg string) string {
	return Success.Render(Icon("✓", "*")) + " " + msg
}

// Cross renders a failure line prefixed with a cross.
func Cross(msg string) string {
	return Error.Render(Icon("✗", "x")) + " " + msg
}
