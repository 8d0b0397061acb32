package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/picatz/bato"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	phaseStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	doneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	faintStyle = lipgloss.NewStyle().Faint(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// RenderMarkdown renders s for a terminal of the given width.
func RenderMarkdown(s string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath("dark"),
		glamour.WithWordWrap(width),
		glamour.WithPreservedNewLines(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create markdown renderer: %w", err)
	}

	out, err := r.Render(s)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}

	return out, nil
}

// RenderRoadmap draws r as a tree of phases and topics. Topics and phases completed in
// p are checked off; p may be nil.
func RenderRoadmap(r *bato.Roadmap, p *bato.Progress) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(r.DisplayTitle()) + "\n")

	summary := fmt.Sprintf("%d phases · %d topics · %s", len(r.Phases), r.TotalTopics(), hours(r.EstimatedHours()))
	if r.Proficiency != "" {
		summary = r.Proficiency + " · " + summary
	}
	if p != nil {
		summary += fmt.Sprintf(" · %.0f%% complete", p.Completion(r))
	}
	b.WriteString(faintStyle.Render(summary) + "\n")

	if len(r.KeyTechnologies) > 0 {
		b.WriteString(faintStyle.Render(strings.Join(r.KeyTechnologies, ", ")) + "\n")
	}

	for i, phase := range r.Phases {
		mark := " "
		if p != nil && p.PhaseDone(i) {
			mark = doneStyle.Render("✓")
		}
		b.WriteString(fmt.Sprintf("\n%s %s %s\n", mark, phaseStyle.Render(fmt.Sprintf("%d. %s", i+1, phase.Title)), faintStyle.Render(hours(phase.EstimatedHours))))

		for j, topic := range phase.Topics {
			branch := "├─"
			if j == len(phase.Topics)-1 {
				branch = "└─"
			}

			path := bato.TopicPath(i, j)
			label := path + " " + topic.Title
			if p != nil && p.TopicDone(path) {
				label = doneStyle.Render("✓ " + label)
			}
			b.WriteString(fmt.Sprintf("  %s %s %s\n", faintStyle.Render(branch), label, faintStyle.Render(hours(topic.EstimatedHours))))

			for _, sub := range topic.Subtopics {
				indent := "│ "
				if j == len(phase.Topics)-1 {
					indent = "  "
				}
				b.WriteString(faintStyle.Render(fmt.Sprintf("  %s  · %s", indent, sub.Title)) + "\n")
			}
		}
	}

	return b.String()
}

func hours(h float64) string {
	if h <= 0 {
		return ""
	}
	return fmt.Sprintf("%gh", h)
}
