package styles

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/soundcheck/internal/diag"
	"github.com/zjrosen/soundcheck/internal/soundboard"
)

// Colors
var (
	BorderDefaultColor = lipgloss.AdaptiveColor{Light: "#8C8C8C", Dark: "#666666"}
	TitleColor         = lipgloss.AdaptiveColor{Light: "#1E88E5", Dark: "#64B5F6"}

	StatusReadyColor     = lipgloss.Color("#4CAF50")
	StatusLoadingColor   = lipgloss.Color("#FFA500")
	StatusErrorColor     = lipgloss.Color("#F44336")
	StatusFailedColor    = lipgloss.Color("#9E9E9E")
	StatusNotLoadedColor = lipgloss.Color("#666666")

	SeverityInfoColor    = lipgloss.Color("#666666")
	SeveritySuccessColor = lipgloss.Color("#4CAF50")
	SeverityWarningColor = lipgloss.Color("#FFA500")
	SeverityErrorColor   = lipgloss.Color("#F44336")
)

// Styles
var (
	MutedStyle   = lipgloss.NewStyle().Foreground(BorderDefaultColor)
	PlayingStyle = lipgloss.NewStyle().Foreground(StatusReadyColor).Bold(true)
	ErrorStyle   = lipgloss.NewStyle().Foreground(StatusErrorColor).Bold(true)
)

// StatusColor returns the color for a load state.
func StatusColor(s soundboard.LoadState) lipgloss.Color {
	switch s {
	case soundboard.Loaded:
		return StatusReadyColor
	case soundboard.Loading:
		return StatusLoadingColor
	case soundboard.LoadError:
		return StatusErrorColor
	case soundboard.LoadFailed:
		return StatusFailedColor
	default:
		return StatusNotLoadedColor
	}
}

// StatusLabel returns the human label for a load state.
func StatusLabel(s soundboard.LoadState) string {
	switch s {
	case soundboard.Loaded:
		return "✓ Ready"
	case soundboard.Loading:
		return "⏳ Loading"
	case soundboard.LoadError:
		return "❌ Error"
	case soundboard.LoadFailed:
		return "❌ Failed"
	default:
		return "⭕ Not loaded"
	}
}

// RenderStatus renders the colored status label.
func RenderStatus(s soundboard.LoadState) string {
	return lipgloss.NewStyle().Foreground(StatusColor(s)).Render(StatusLabel(s))
}

// SeverityColor returns the color for a diagnostic severity.
func SeverityColor(s diag.Severity) lipgloss.Color {
	switch s {
	case diag.Success:
		return SeveritySuccessColor
	case diag.Warning:
		return SeverityWarningColor
	case diag.Error:
		return SeverityErrorColor
	default:
		return SeverityInfoColor
	}
}

// FormatEntry formats a diagnostic entry as "[15:04:05] message".
func FormatEntry(e diag.Entry) string {
	return fmt.Sprintf("[%s] %s", e.Time.Format("15:04:05"), e.Message)
}

// RenderEntry renders a diagnostic entry in its severity color.
func RenderEntry(e diag.Entry) string {
	return lipgloss.NewStyle().Foreground(SeverityColor(e.Severity)).Render(FormatEntry(e))
}

// FormatVolume formats a linear volume as a whole percentage.
func FormatVolume(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}

// RenderAssetRow renders one asset line for the status table.
// keyWidth pads the key column so rows line up.
func RenderAssetRow(a soundboard.AssetView, keyWidth int) string {
	var b strings.Builder
	key := a.Descriptor.Key
	b.WriteString(key)
	if pad := keyWidth - lipgloss.Width(key); pad > 0 {
		b.WriteString(strings.Repeat(" ", pad))
	}
	b.WriteString("  ")
	b.WriteString(RenderStatus(a.LoadState))

	if a.LoadState == soundboard.Loaded {
		b.WriteString(MutedStyle.Render(fmt.Sprintf("  %.2fs  vol %s", a.Duration.Seconds(), FormatVolume(a.Playback.Volume))))
		if a.Playback.Playing {
			b.WriteString("  ")
			b.WriteString(PlayingStyle.Render("▶ playing"))
		}
	}
	return b.String()
}
