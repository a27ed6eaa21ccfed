package render

import (
	"fmt"
	"strings"

	humanize "github.com/dustin/go-humanize"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"

	"github.com/guildkeep/guildkeep/internal/backup"
	"github.com/guildkeep/guildkeep/internal/model"
)

// RenderSnapshotDetail renders a full snapshot view: identity, entity
// counts, the role list, and the channel layout grouped under its
// categories.
func RenderSnapshotDetail(snap *model.Snapshot) string {
	if !ColorsEnabled() {
		return renderPlainDetail(snap)
	}

	var sections []string

	sections = append(sections, renderHeader(snap))
	sections = append(sections, renderMetadata(snap))

	if len(snap.Roles) > 0 {
		sections = append(sections, renderRoles(snap.Roles))
	}

	sections = append(sections, renderStructure(snap))

	return strings.Join(sections, "\n\n")
}

func renderHeader(snap *model.Snapshot) string {
	idStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	guildStyle := lipgloss.NewStyle().Bold(true)

	return fmt.Sprintf("%s  %s",
		idStyle.Render(snap.ID),
		guildStyle.Render("guild "+snap.SourceGuildID),
	)
}

func renderMetadata(snap *model.Snapshot) string {
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	lines := []string{
		fmt.Sprintf("%s %s", labelStyle.Render("Created:"), humanize.Time(snap.CreatedAt)),
		fmt.Sprintf("%s %d roles, %d categories, %d channels",
			labelStyle.Render("Contains:"),
			len(snap.Roles), len(snap.Categories), len(snap.Channels)),
	}

	return strings.Join(lines, "\n")
}

func renderRoles(roles []model.RoleRecord) string {
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	header := sectionStyle.Render("Roles")

	var lines []string
	for _, role := range roles {
		lines = append(lines, "  "+formatRole(role))
	}

	return header + "\n" + strings.Join(lines, "\n")
}

func formatRole(role model.RoleRecord) string {
	name := truncate(role.Name, maxNameWidth)
	if ColorsEnabled() && role.Color != 0 {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(fmt.Sprintf("#%06X", role.Color)))
		name = style.Render(name)
	}
	var badges []string
	if role.Hoist {
		badges = append(badges, "hoist")
	}
	if role.Mentionable {
		badges = append(badges, "mentionable")
	}
	if len(badges) == 0 {
		return name
	}
	return fmt.Sprintf("%s (%s)", name, strings.Join(badges, ", "))
}

// renderStructure shows the channel layout the way the guild displays
// it: categories as branches holding their channels, uncategorized
// channels at the root.
func renderStructure(snap *model.Snapshot) string {
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))

	byParent := channelsByParent(snap.Channels)

	t := tree.New().Root(sectionStyle.Render("Structure"))
	for _, ch := range byParent[-1] {
		t.Child(formatChannelNode(ch))
	}
	for _, cat := range snap.Categories {
		catStyle := lipgloss.NewStyle().Bold(true)
		node := tree.Root(catStyle.Render(strings.ToUpper(truncate(cat.Name, maxNameWidth))))
		for _, ch := range byParent[cat.LocalID] {
			node.Child(formatChannelNode(ch))
		}
		t.Child(node)
	}

	return t.String()
}

func formatChannelNode(ch model.ChannelRecord) string {
	label := fmt.Sprintf("%s %s", kindMarker(ch.Kind), truncate(ch.Name, maxNameWidth))
	if n := len(ch.Overwrites); n > 0 {
		dim := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
		suffix := fmt.Sprintf("(%d overwrites)", n)
		if ColorsEnabled() {
			suffix = dim.Render(suffix)
		}
		label += " " + suffix
	}
	return label
}

// kindMarker returns the channel's list marker.
func kindMarker(kind model.ChannelKind) string {
	if kind == model.KindVoice {
		return "♪"
	}
	return "#"
}

// channelsByParent groups channels by parent category local ID; the
// key -1 holds uncategorized channels. Order within a group follows
// the input order.
func channelsByParent(channels []model.ChannelRecord) map[int][]model.ChannelRecord {
	byParent := make(map[int][]model.ChannelRecord)
	for _, ch := range channels {
		key := -1
		if ch.ParentLocalID != nil {
			key = *ch.ParentLocalID
		}
		byParent[key] = append(byParent[key], ch)
	}
	return byParent
}

func renderPlainDetail(snap *model.Snapshot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s  guild %s\n", snap.ID, snap.SourceGuildID)
	fmt.Fprintf(&b, "\nCreated: %s\n", humanize.Time(snap.CreatedAt))
	fmt.Fprintf(&b, "Contains: %d roles, %d categories, %d channels\n",
		len(snap.Roles), len(snap.Categories), len(snap.Channels))

	if len(snap.Roles) > 0 {
		b.WriteString("\nRoles\n")
		for _, role := range snap.Roles {
			fmt.Fprintf(&b, "  %s\n", formatRole(role))
		}
	}

	byParent := channelsByParent(snap.Channels)

	b.WriteString("\nStructure\n")
	for _, ch := range byParent[-1] {
		fmt.Fprintf(&b, "  %s %s\n", kindMarker(ch.Kind), truncate(ch.Name, maxNameWidth))
	}
	for _, cat := range snap.Categories {
		fmt.Fprintf(&b, "  %s\n", strings.ToUpper(truncate(cat.Name, maxNameWidth)))
		for _, ch := range byParent[cat.LocalID] {
			fmt.Fprintf(&b, "    %s %s\n", kindMarker(ch.Kind), truncate(ch.Name, maxNameWidth))
		}
	}

	return b.String()
}

// RenderReport renders a restore outcome: created counts per entity
// class and any warnings collected along the way. The report is
// composed as markdown and rendered for the terminal when colors are
// enabled.
func RenderReport(report *backup.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "**%s**\n\n", report.Summary())
	fmt.Fprintf(&b, "- roles: %d created, %d skipped\n", report.RolesCreated, report.RolesSkipped)
	fmt.Fprintf(&b, "- categories: %d created, %d skipped\n", report.CategoriesCreated, report.CategoriesSkipped)
	fmt.Fprintf(&b, "- channels: %d created, %d skipped\n", report.ChannelsCreated, report.ChannelsSkipped)

	if len(report.Warnings) > 0 {
		b.WriteString("\n## Warnings\n\n")
		for _, w := range report.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}

	rendered, err := RenderMarkdown(b.String())
	if err != nil {
		return strings.TrimRight(b.String(), "\n")
	}
	return strings.TrimRight(rendered, "\n")
}
