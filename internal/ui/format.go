package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/soundscout/soundscout/api"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	rowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	selectedRowStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212")).
				Background(lipgloss.Color("236"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	messageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
)

// renderResults draws the current page as a numbered table. The selected
// row, when any, is highlighted.
func renderResults(page *api.ResultPage, selected int) string {
	if page == nil {
		return dimStyle.Render("No results yet. Type a query to search.")
	}

	var sb strings.Builder
	sb.WriteString(headerStyle.Render(fmt.Sprintf(
		"%q — page %d/%d (%d sounds)",
		page.Query, page.Number, page.TotalPages, page.TotalResults,
	)))
	sb.WriteString("\n")

	for i, sound := range page.Sounds {
		num := i + 1
		line := fmt.Sprintf("%3d. %-44s %8s  %s",
			num,
			truncate(sound.Name, 44),
			formatDuration(time.Duration(sound.Duration*float64(time.Second))),
			truncate(sound.Username, 16),
		)
		if num == selected {
			sb.WriteString(selectedRowStyle.Render(line))
		} else {
			sb.WriteString(rowStyle.Render(line))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// renderDetail draws the full metadata panel for one sound.
func renderDetail(sound *api.SoundSummary) string {
	if sound == nil {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(headerStyle.Render(sound.Name))
	sb.WriteString("\n")

	field := func(label, value string) {
		if value == "" {
			return
		}
		sb.WriteString(labelStyle.Render(fmt.Sprintf("%-12s", label)))
		sb.WriteString(value)
		sb.WriteString("\n")
	}

	field("ID", fmt.Sprintf("%d", sound.ID))
	field("By", sound.Username)
	field("Created", sound.Created)
	field("License", sound.License)
	field("Type", sound.Type)
	field("Duration", formatDuration(time.Duration(sound.Duration*float64(time.Second))))
	if sound.Filesize > 0 {
		field("Size", fmt.Sprintf("%.1f KiB", float64(sound.Filesize)/1024))
	}
	if sound.Samplerate > 0 {
		field("Sample rate", fmt.Sprintf("%.0f Hz", sound.Samplerate))
	}
	if sound.Channels > 0 {
		field("Channels", fmt.Sprintf("%d", sound.Channels))
	}
	if sound.NumRatings > 0 {
		field("Rating", fmt.Sprintf("%.1f (%d votes)", sound.AvgRating, sound.NumRatings))
	}
	if sound.NumDownloads > 0 {
		field("Downloads", fmt.Sprintf("%d", sound.NumDownloads))
	}
	if len(sound.Tags) > 0 {
		field("Tags", truncate(strings.Join(sound.Tags, ", "), 70))
	}
	if desc := strings.TrimSpace(sound.Description); desc != "" {
		sb.WriteString(dimStyle.Render(truncate(desc, 300)))
		sb.WriteString("\n")
	}

	return panelStyle.Render(sb.String())
}

// renderPlayback draws the one-line playback status with a progress bar.
func renderPlayback(state api.PlaybackState, width int) string {
	switch state.Status {
	case api.StatusIdle:
		return dimStyle.Render("⏹ nothing playing")
	case api.StatusLoading:
		name := ""
		if state.Sound != nil {
			name = state.Sound.Name
		}
		return statusStyle.Render("… loading ") + rowStyle.Render(name)
	case api.StatusError:
		msg := "playback error"
		if state.Err != nil {
			msg = state.Err.Error()
		}
		return errorStyle.Render("✗ " + msg)
	}

	icon := "▶"
	if state.Status == api.StatusPaused {
		icon = "⏸"
	}

	name := ""
	if state.Sound != nil {
		name = state.Sound.Name
	}

	barWidth := width - 40
	if barWidth < 10 {
		barWidth = 10
	}

	return fmt.Sprintf("%s %s %s %s/%s  vol %d%%",
		statusStyle.Render(icon),
		rowStyle.Render(truncate(name, 24)),
		renderProgress(state.Position, state.Duration, barWidth),
		formatDuration(state.Position),
		formatDuration(state.Duration),
		int(state.Volume*100),
	)
}

// renderProgress draws a fixed-width progress bar.
func renderProgress(pos, total time.Duration, width int) string {
	filled := 0
	if total > 0 {
		filled = int(int64(width) * int64(pos) / int64(total))
	}
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	return dimStyle.Render("[") +
		statusStyle.Render(strings.Repeat("█", filled)) +
		dimStyle.Render(strings.Repeat("░", width-filled)) +
		dimStyle.Render("]")
}

// formatDuration renders m:ss, or h:mm:ss past the hour.
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// truncate trims s to max runes, appending an ellipsis when cut.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 1 {
		return string(runes[:max])
	}
	return string(runes[:max-1]) + "…"
}
