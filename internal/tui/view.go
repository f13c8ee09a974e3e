package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Iron-Ham/cvcollab/internal/editlock"
	"github.com/Iron-Ham/cvcollab/internal/errors"
	"github.com/Iron-Ham/cvcollab/internal/session"
)

// View renders the dashboard.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	if !m.cc.Active() {
		b.WriteString(mutedStyle.Render("No active session."))
		b.WriteString("\n\n")
		b.WriteString(m.help.View(m.keys))
		return b.String()
	}

	b.WriteString(m.renderRoster())
	b.WriteString("\n")

	left := lipgloss.JoinVertical(lipgloss.Left,
		headingStyle.Render("Sections"),
		m.renderSections(),
		headingStyle.Render("Comments: "+m.Section()),
		m.renderThread(),
	)
	right := lipgloss.JoinVertical(lipgloss.Left,
		headingStyle.Render("Live changes"),
		m.renderLiveChanges(),
		headingStyle.Render("Recent activity"),
		m.renderActivity(),
	)
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		panelStyle.Render(left), " ", panelStyle.Render(right)))
	b.WriteString("\n")

	if m.commenting {
		b.WriteString(m.input.View())
		b.WriteString("\n")
		b.WriteString(m.help.View(inputKeys{m.keys}))
		return b.String()
	}

	if m.errorMessage != "" {
		style := errorStyle
		if m.errorSeverity <= errors.SeverityWarning {
			style = warningStyle
		}
		b.WriteString(style.Render(m.errorMessage))
		b.WriteString("\n")
	} else if m.infoMessage != "" {
		b.WriteString(mutedStyle.Render(m.infoMessage))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) renderHeader() string {
	title := titleStyle.Render("CV Collaboration")
	s, ok := m.cc.Session()
	if !ok {
		return title
	}
	header := title + mutedStyle.Render("  ·  Session ") + s.Code
	if link, ok := m.cc.InviteLink(); ok {
		header += mutedStyle.Render("  ·  Invite " + link)
	}
	return header
}

func (m Model) renderRoster() string {
	self, _ := m.cc.Self()

	var chips []string
	for _, p := range m.cc.Roster() {
		label := "● " + p.Name
		var tags []string
		if p.ID == self.ID {
			tags = append(tags, "you")
		}
		if p.IsOwner {
			tags = append(tags, "owner")
		}
		if len(tags) > 0 {
			label += " (" + strings.Join(tags, ", ") + ")"
		}
		chips = append(chips, participantStyle(p.Color).Render(label))
	}
	return "Participants: " + strings.Join(chips, "  ")
}

func (m Model) renderSections() string {
	self, _ := m.cc.Self()
	locks := m.cc.Locks()

	var lines []string
	for i, section := range m.sections {
		name := sectionStyle.Render(section)
		if i == m.selected {
			name = selectedStyle.Render(section)
		}
		line := name
		if n := m.cc.UnresolvedCount(section); n > 0 {
			line += " " + badgeStyle.Render(fmt.Sprintf("%d", n))
		}
		if banner := editingBanner(locks, section, self); banner != "" {
			line += " " + banner
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// editingBanner describes the locks other participants hold in section.
func editingBanner(locks []editlock.Lock, section string, self session.Participant) string {
	var parts []string
	for _, l := range locks {
		if l.Section != section || l.Holder.ID == self.ID {
			continue
		}
		parts = append(parts, participantStyle(l.Holder.Color).Render(l.Holder.Name)+
			warningStyle.Render(" is editing "+l.Field))
	}
	return strings.Join(parts, ", ")
}

func (m Model) renderThread() string {
	thread := m.cc.Thread(m.Section())
	if len(thread) == 0 {
		return mutedStyle.Render("No comments yet.")
	}

	now := m.cc.Clock().Now()
	var lines []string
	for _, c := range thread {
		mark := "[ ]"
		text := c.Text
		if c.Resolved {
			mark = "[x]"
			text = mutedStyle.Render(text)
		}
		lines = append(lines, fmt.Sprintf("%s %s %s: %s", mark,
			participantStyle(c.Author.Color).Render(c.Author.Name),
			mutedStyle.Render(relativeTime(now, c.Timestamp)), text))
	}
	return strings.Join(lines, "\n")
}

// relativeTime renders t as an age ("Just now", "5m ago", "3h ago"), or as
// a date once it is a day old.
func relativeTime(now, t time.Time) string {
	age := now.Sub(t)
	switch {
	case age < time.Minute:
		return "Just now"
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age/time.Minute))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(age/time.Hour))
	}
	return t.Format("Jan 2, 2006")
}

func (m Model) renderLiveChanges() string {
	var lines []string
	for _, lc := range m.cc.LiveChanges() {
		lines = append(lines, fmt.Sprintf("%s typing in %s.%s",
			participantStyle(lc.Participant.Color).Render(lc.Participant.Name), lc.Section, lc.Field))
	}
	for _, key := range m.cc.Pending() {
		lines = append(lines, warningStyle.Render("syncing "+key))
	}
	if len(lines) == 0 {
		return mutedStyle.Render("Nobody is typing.")
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderActivity() string {
	entries := m.cc.Activity()
	if len(entries) == 0 {
		return mutedStyle.Render("No activity yet.")
	}
	if len(entries) > m.activityLines {
		entries = entries[:m.activityLines]
	}

	var lines []string
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("%s %s %s %s",
			mutedStyle.Render(e.Timestamp.Format("15:04:05")),
			participantStyle(e.ActorColor).Render(e.ActorName), e.Action, e.Target))
	}
	return strings.Join(lines, "\n")
}
