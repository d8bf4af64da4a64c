package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/claimgraph/internal/core/domain"
)

const helpLine = "↑/↓ select • enter open • backspace back • q quit"

// View renders the current level, the status line and recent activity.
func (m *Model) View() string {
	var s strings.Builder

	loc := m.nav.Current()
	if loc.IsZero() {
		return "No location.\n"
	}

	s.WriteString(titleStyle.Render(strings.ToUpper(loc.Level.String())))
	s.WriteString(" " + pathStyle.Render(loc.Path()) + "\n\n")

	v := m.nav.View(loc.Level)
	switch {
	case v.Key != loc.Key() || v.Status == domain.StatusLoading || v.Status == domain.StatusEmpty:
		s.WriteString(m.spinner.View() + " " + loadingStyle.Render("Loading "+loc.Level.String()+"…") + "\n")
	case v.Status == domain.StatusFailed:
		s.WriteString(errorStyle.Render("✗ "+errorText(v.Err)) + "\n")
	default:
		m.writeNodes(&s, OrderedNodes(v.Snapshot))
	}

	if m.status != "" {
		style := doneStyle
		if m.failed {
			style = errorStyle
		}
		s.WriteString("\n" + style.Render(m.status) + "\n")
	}

	if len(m.activity) > 0 {
		s.WriteString("\n")
		for _, a := range m.activity {
			s.WriteString(m.renderActivity(a) + "\n")
		}
	}

	s.WriteString("\n" + helpStyle.Render(helpLine) + "\n")
	return s.String()
}

func (m *Model) writeNodes(s *strings.Builder, nodes []domain.PositionedNode) {
	if len(nodes) == 0 {
		s.WriteString(pathStyle.Render("(no nodes)") + "\n")
		return
	}

	start := 0
	if limit := m.height - 8; limit > 0 && len(nodes) > limit && m.cursor >= limit {
		start = m.cursor - limit + 1
	}
	for i := start; i < len(nodes); i++ {
		line := "  " + Label(nodes[i])
		if i == m.cursor {
			line = selectedStyle.Render("> " + Label(nodes[i]))
		}
		if m.width > 0 {
			line = lipgloss.NewStyle().MaxWidth(m.width).Render(line)
		}
		s.WriteString(line + "\n")
	}
}

func (m *Model) renderActivity(a Activity) string {
	switch {
	case a.Running:
		return m.spinner.View() + " " + a.Name
	case a.Failed:
		return errorStyle.Render("✗") + " " + a.Name + pathStyle.Render(" "+a.Duration.String())
	default:
		return doneStyle.Render("✓") + " " + a.Name + pathStyle.Render(" "+a.Duration.String())
	}
}

// Label renders a node's payload as a single line.
func Label(n domain.PositionedNode) string {
	switch p := n.Payload.(type) {
	case domain.Claim:
		return fmt.Sprintf("%s [severity %.0f]", p.Title, p.Severity)
	case domain.Statement:
		if ts := p.Timestamp.String(); ts != "" {
			return "[" + ts + "] " + p.Text
		}
		return p.Text
	case domain.Source:
		if p.URL != "" {
			return p.Name + " (" + p.URL + ")"
		}
		return p.Name
	default:
		return string(n.ID)
	}
}

func errorText(err error) string {
	if err == nil {
		return "failed"
	}
	return err.Error()
}
