package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) viewLoading() string {
	if m.width == 0 || m.height == 0 {
		return fmt.Sprintf("\n\n   %s %s\n\n", m.spinner.View(), m.status)
	}

	return renderLoadingScreen(m.width, m.height, m.spinner.View()+" "+m.status)
}

func renderLoadingScreen(width, height int, status string) string {
	logo := []string{
		" _____                        ____",
		"|  ___| __ __ _ _ __ ___   ___/ ___| _   _ _ __   ___",
		"| |_ | '__/ _` | '_ ` _ \\ / _ \\___ \\| | | | '_ \\ / __|",
		"|  _|| | | (_| | | | | | |  __/___) | |_| | | | | (__",
		"|_|  |_|  \\__,_|_| |_| |_|\\___|____/ \\__, |_| |_|\\___|",
		"                                      |___/",
	}

	logoWidth := 0
	for _, l := range logo {
		logoWidth = max(logoWidth, len(l))
	}

	// logo, a blank line, then the status
	blockHeight := len(logo) + 2
	startRow := max((height-blockHeight)/2, 0)
	statusRow := startRow + len(logo) + 1

	var b strings.Builder
	for y := range height {
		var line string
		switch {
		case y >= startRow && y < startRow+len(logo):
			text := logo[y-startRow]
			text += strings.Repeat(" ", logoWidth-len(text))
			pad := width - len(text)
			if pad < 0 {
				pad = 0
				text = text[:width]
			}
			left := pad / 2
			right := pad - left
			leftPad := strings.Repeat(" ", left)
			rightPad := strings.Repeat(" ", right)
			line = leftPad + titleStyle.Render(text) + rightPad
		case y == statusRow:
			line = centerLine(status, width)
		default:
			line = strings.Repeat(" ", width)
		}
		b.WriteString(line)
		if y < height-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func centerLine(text string, width int) string {
	pad := max(width-lipgloss.Width(text), 0)
	left := pad / 2
	return strings.Repeat(" ", left) + text + strings.Repeat(" ", pad-left)
}
