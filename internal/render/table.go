package render

import (
	"fmt"
	"strings"
	"unicode/utf8"

	humanize "github.com/dustin/go-humanize"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/guildkeep/guildkeep/internal/db"
)

const maxNameWidth = 40

// StyledText applies a lipgloss style to text when colors are enabled.
// When colors are disabled, it returns the plain text unchanged.
func StyledText(text string, style lipgloss.Style) string {
	if ColorsEnabled() {
		return style.Render(text)
	}
	return text
}

// truncate shortens a string to maxLen runes, appending an ellipsis if truncated.
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// EmptyState renders a styled empty-state message with an optional contextual hint.
// When colors are enabled the message is rendered in dim gray and the hint is italic.
// When quiet is true the hint is suppressed.
func EmptyState(message, hint string, quiet bool) string {
	if !ColorsEnabled() {
		if quiet || hint == "" {
			return message
		}
		return message + "\n" + hint
	}

	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	hintStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)

	result := dimStyle.Render(message)
	if !quiet && hint != "" {
		result += "\n" + hintStyle.Render(hint)
	}
	return result
}

// RenderSnapshotTable renders stored snapshot metadata as a formatted table.
func RenderSnapshotTable(metas []db.SnapshotMeta) string {
	if len(metas) == 0 {
		return EmptyState("No snapshots found.", "Create one with: guildkeep create <guild-id>", false)
	}

	if !ColorsEnabled() {
		return renderPlainTable(metas)
	}

	headers := []string{"ID", "Source Guild", "Roles", "Categories", "Channels", "Created"}

	rows := make([][]string, 0, len(metas))
	for _, m := range metas {
		rows = append(rows, snapshotToRow(m))
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1)

			if row == table.HeaderRow {
				return s.Bold(true).Foreground(lipgloss.Color("15"))
			}

			switch col {
			case 0: // ID
				return s.Bold(true).Foreground(lipgloss.Color("15"))
			case 5: // Created
				return s.Foreground(lipgloss.Color("8"))
			default:
				return s
			}
		})

	return t.Render()
}

func snapshotToRow(m db.SnapshotMeta) []string {
	return []string{
		m.ID,
		m.SourceGuildID,
		fmt.Sprintf("%d", m.Roles),
		fmt.Sprintf("%d", m.Categories),
		fmt.Sprintf("%d", m.Channels),
		humanize.Time(m.CreatedAt),
	}
}

func renderPlainTable(metas []db.SnapshotMeta) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%-8s %-20s %6s %11s %9s  %s\n",
		"ID", "Source Guild", "Roles", "Categories", "Channels", "Created")
	fmt.Fprintf(&b, "%s\n", strings.Repeat("-", 80))

	for _, m := range metas {
		fmt.Fprintf(&b, "%-8s %-20s %6d %11d %9d  %s\n",
			m.ID,
			m.SourceGuildID,
			m.Roles,
			m.Categories,
			m.Channels,
			humanize.Time(m.CreatedAt),
		)
	}

	return b.String()
}
