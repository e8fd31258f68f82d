// Package styles contains Lip Gloss style definitions for soundcheck output.
package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Border characters (rounded)
const (
	borderTopLeft     = "╭"
	borderTopRight    = "╮"
	borderBottomLeft  = "╰"
	borderBottomRight = "╯"
	borderHorizontal  = "─"
	borderVertical    = "│"
)

// RenderSection renders content inside a rounded box sized to the content.
// title appears on the left of the top border and summary on the right.
// Pass "" to omit either. Lines wider than the box are truncated.
func RenderSection(content, title, summary string, width int, titleColor lipgloss.TerminalColor) string {
	borderStyle := lipgloss.NewStyle().Foreground(BorderDefaultColor)
	titleStyle := lipgloss.NewStyle().Foreground(titleColor).Bold(true)

	innerWidth := max(width-2, 1)

	// Format: ╭─ Title ─────────────── 3/6 ─╮
	top := buildDualTitleTopBorder(title, summary, innerWidth, borderStyle, titleStyle)
	bottom := borderStyle.Render(borderBottomLeft + strings.Repeat(borderHorizontal, innerWidth) + borderBottomRight)

	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")

	var b strings.Builder
	b.WriteString(top)
	b.WriteString("\n")
	for _, line := range lines {
		if lipgloss.Width(line) > innerWidth {
			line = TruncateString(line, innerWidth)
		}
		if w := lipgloss.Width(line); w < innerWidth {
			line += strings.Repeat(" ", innerWidth-w)
		}
		b.WriteString(borderStyle.Render(borderVertical))
		b.WriteString(line)
		b.WriteString(borderStyle.Render(borderVertical))
		b.WriteString("\n")
	}
	b.WriteString(bottom)
	return b.String()
}

// buildTopBorder creates a top border with a single embedded title.
func buildTopBorder(title string, innerWidth int, borderStyle, titleStyle lipgloss.Style) string {
	if innerWidth < 1 {
		return borderStyle.Render(borderTopLeft + borderTopRight)
	}

	// "─ " + title + " " needs at least four cells.
	if title == "" || innerWidth < 4 {
		return borderStyle.Render(borderTopLeft + strings.Repeat(borderHorizontal, innerWidth) + borderTopRight)
	}

	displayTitle := title
	if lipgloss.Width(displayTitle) > innerWidth-4 {
		displayTitle = TruncateString(displayTitle, innerWidth-4)
	}
	trailing := max(innerWidth-3-lipgloss.Width(displayTitle), 0)

	return borderStyle.Render(borderTopLeft+borderHorizontal+" ") +
		titleStyle.Render(displayTitle) +
		borderStyle.Render(" "+strings.Repeat(borderHorizontal, trailing)+borderTopRight)
}

// buildDualTitleTopBorder creates a top border with titles on both sides.
// Format: ╭─ Left ───────── Right ─╮
func buildDualTitleTopBorder(left, right string, innerWidth int, borderStyle, titleStyle lipgloss.Style) string {
	if right == "" {
		return buildTopBorder(left, innerWidth, borderStyle, titleStyle)
	}
	if innerWidth < 1 {
		return borderStyle.Render(borderTopLeft + borderTopRight)
	}

	leftWidth := lipgloss.Width(left)
	rightWidth := lipgloss.Width(right)

	// "─ " + left + " " + dashes + " " + right + " ─"
	fixed := rightWidth + 3
	if left != "" {
		fixed += leftWidth + 3
	}
	if innerWidth < fixed+1 {
		// Too narrow for both; the left title wins.
		return buildTopBorder(left, innerWidth, borderStyle, titleStyle)
	}
	middle := innerWidth - fixed

	var b strings.Builder
	b.WriteString(borderStyle.Render(borderTopLeft))
	if left != "" {
		b.WriteString(borderStyle.Render(borderHorizontal + " "))
		b.WriteString(titleStyle.Render(left))
		b.WriteString(borderStyle.Render(" "))
	}
	b.WriteString(borderStyle.Render(strings.Repeat(borderHorizontal, middle) + " "))
	b.WriteString(titleStyle.Render(right))
	b.WriteString(borderStyle.Render(" " + borderHorizontal + borderTopRight))
	return b.String()
}

// TruncateString truncates a string to fit within maxWidth, adding ellipsis if needed.
func TruncateString(s string, maxWidth int) string {
	if maxWidth < 1 {
		return ""
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return strings.Repeat(".", maxWidth)
	}

	return ansi.Truncate(s, maxWidth, "...")
}
