package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/picatz/bato"
	"github.com/picatz/bato/internal/chat"
	"github.com/spf13/cobra"
)

var topicCommand = &cobra.Command{
	Use:   "topic <roadmap-id> <topic-path>",
	Short: "Show the deep-dive of a roadmap topic",
	Long: `Show the deep-dive of a roadmap topic: an overview, key concepts, learning
resources and practice exercises. The topic is addressed by its path as shown by
'bato roadmaps get', for example 0.1 for the second topic of the first phase.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		stored, err := client.GetRoadmap(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		r, err := stored.Roadmap()
		if err != nil {
			return fmt.Errorf("roadmap %s: %w", args[0], err)
		}

		phaseIndex, topicIndex, err := resolveTopic(r, args[1])
		if err != nil {
			return err
		}
		phase := r.Phases[phaseIndex]

		detail, err := client.GetTopicDetail(cmd.Context(), &bato.GetTopicDetailRequest{
			PhaseNumber: phaseIndex + 1,
			TopicTitle:  phase.Topics[topicIndex].Title,
			PhaseTitle:  phase.Title,
			Goal:        r.Goal,
			RoadmapID:   stored.ID,
		})
		if err != nil {
			return err
		}

		rendered, err := chat.RenderMarkdown(topicMarkdown(detail), termWidth())
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), rendered)

		return nil
	},
}

// resolveTopic parses a topic path and checks that it exists in r.
func resolveTopic(r *bato.Roadmap, path string) (phaseIndex, topicIndex int, err error) {
	p, t, ok := strings.Cut(path, ".")
	if !ok {
		return 0, 0, fmt.Errorf("invalid topic path %q: want <phase>.<topic>", path)
	}

	phaseIndex, err = strconv.Atoi(p)
	if err != nil || phaseIndex < 0 || phaseIndex >= len(r.Phases) {
		return 0, 0, fmt.Errorf("invalid topic path %q: no such phase", path)
	}

	topicIndex, err = strconv.Atoi(t)
	if err != nil || topicIndex < 0 || topicIndex >= len(r.Phases[phaseIndex].Topics) {
		return 0, 0, fmt.Errorf("invalid topic path %q: no such topic", path)
	}

	return phaseIndex, topicIndex, nil
}

// topicMarkdown lays out a topic deep-dive as a markdown document.
func topicMarkdown(d *bato.TopicDetail) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", d.Title)

	var meta []string
	if d.PhaseTitle != "" {
		meta = append(meta, fmt.Sprintf("Phase %d: %s", d.PhaseNumber, d.PhaseTitle))
	}
	if d.DifficultyLevel != "" {
		meta = append(meta, d.DifficultyLevel)
	}
	if d.EstimatedHours > 0 {
		meta = append(meta, fmt.Sprintf("%gh", d.EstimatedHours))
	}
	if len(meta) > 0 {
		fmt.Fprintf(&b, "*%s*\n\n", strings.Join(meta, " · "))
	}

	if d.Overview != "" {
		fmt.Fprintf(&b, "%s\n\n", d.Overview)
	}
	if d.WhyImportant != "" {
		fmt.Fprintf(&b, "## Why it matters\n\n%s\n\n", d.WhyImportant)
	}

	list := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(&b, "## %s\n\n", title)
		for _, item := range items {
			fmt.Fprintf(&b, "- %s\n", item)
		}
		b.WriteString("\n")
	}

	list("Prerequisites", d.Prerequisites)
	list("Key concepts", d.KeyConcepts)
	list("Learning objectives", d.LearningObjectives)

	if len(d.LearningResources) > 0 {
		b.WriteString("## Resources\n\n")
		for _, res := range d.LearningResources {
			title := res.Title
			if res.URL != "" {
				title = fmt.Sprintf("[%s](%s)", res.Title, res.URL)
			}
			fmt.Fprintf(&b, "- %s (%s", title, res.Type)
			if res.EstimatedTime != "" {
				fmt.Fprintf(&b, ", %s", res.EstimatedTime)
			}
			b.WriteString(")\n")
		}
		b.WriteString("\n")
	}

	if len(d.PracticeExercises) > 0 {
		b.WriteString("## Practice\n\n")
		for _, ex := range d.PracticeExercises {
			fmt.Fprintf(&b, "### %s\n\n%s\n\n*%s · %s*\n\n", ex.Title, ex.Description, ex.Difficulty, ex.EstimatedTime)
		}
	}

	list("Related topics", d.RelatedTopics)
	list("Documentation", d.DocLinks)

	if d.NextTopic != "" {
		fmt.Fprintf(&b, "Next up: **%s**\n", d.NextTopic)
	}

	return b.String()
}

func init() {
	rootCmd.AddCommand(topicCommand)
}
