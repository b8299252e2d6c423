package tui

import (
	"fmt"
	"strings"
)

func (m Model) viewPlaying() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	var b strings.Builder

	// Video area (empty space where kitty graphics will render)
	for range max(m.height-chromeRows, 0) {
		b.WriteString("\n")
	}

	icon := "❚❚"
	label := "Paused"
	if m.playing {
		icon = "▶ "
		label = "Playing"
	}

	st := m.stats
	stats := fmt.Sprintf("%s  shown %d  skipped %d  underruns v%d a%d  buffered v%d a%d",
		formatPTS(st.Sync), st.Presented, st.Skipped, st.VideoUnderruns, st.AudioUnderruns)
	if st.PullFailures > 0 {
		stats += fmt.Sprintf("  errors %d", st.PullFailures)
	}

	b.WriteString(stateStyle.Render(icon+" "+label) + "  " + statsStyle.Render(stats) + "\n")
	b.WriteString(navStyle.Render(m.keys.helpLine()))

	return b.String()
}
