package flowgate

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	menuHeader      = "< Pipeline Step Gate >"
	errorMenuHeader = "< (!) Action required >"
)

var (
	headerStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	errorHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	keyStyle         = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
)

// renderMenu prints the header followed by one "    [key] description" line
// per control.
func renderMenu(w io.Writer, prompt Prompt, styled bool) {
	header := menuHeader
	style := headerStyle
	if prompt.OnError {
		header = errorMenuHeader
		style = errorHeaderStyle
	}
	var b strings.Builder
	if styled {
		b.WriteString(style.Render(header))
	} else {
		b.WriteString(header)
	}
	b.WriteByte('\n')
	for _, c := range prompt.Controls {
		key := "[" + string(c) + "]"
		if styled {
			key = keyStyle.Render(key)
		}
		fmt.Fprintf(&b, "    %s %s\n", key, c.Description())
	}
	_, _ = io.WriteString(w, b.String())
}
