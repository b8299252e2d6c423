package tui

import "fmt"

// viewError names the file that could not be played and the reason
func (m Model) viewError() string {
	return fmt.Sprintf("\n\n   %s\n   %s\n\n   %s\n",
		titleStyle.Render("Cannot play "+m.path),
		errorStyle.Render(m.err.Error()),
		navStyle.Render("r: retry • q: quit"),
	)
}
