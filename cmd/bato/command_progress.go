package main

import (
	"fmt"
	"strconv"

	"github.com/picatz/bato"
	"github.com/spf13/cobra"
)

var progressCommand = &cobra.Command{
	Use:   "progress <roadmap-id>",
	Short: "Show and update progress through a roadmap",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, p, err := roadmapWithProgress(cmd, args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if p == nil {
			fmt.Fprintln(out, styleFaint.Render("No progress yet."))
			return nil
		}

		fmt.Fprintf(out, "%s %s\n", styleBold.Render(r.DisplayTitle()), numberColor.Render(fmt.Sprintf("%.0f%%", p.Completion(r))))
		fmt.Fprintf(out, "Phases done: %d of %d\n", len(p.CompletedPhases), len(r.Phases))
		fmt.Fprintf(out, "Topics done: %d of %d\n", len(p.CompletedTopics), r.TotalTopics())
		if p.CurrentTopic != nil {
			fmt.Fprintf(out, "Current topic: %s\n", *p.CurrentTopic)
		}
		if !p.LastAccessedAt.IsZero() {
			fmt.Fprintln(out, styleFaint.Render("Last accessed "+p.LastAccessedAt.Local().Format("2006-01-02 15:04")))
		}

		return nil
	},
}

var progressCompletePhaseCommand = &cobra.Command{
	Use:   "complete-phase <roadmap-id> <phase>",
	Short: "Mark a phase as completed, by its number as shown by 'roadmaps get'",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		number, err := strconv.Atoi(args[1])
		if err != nil || number < 1 {
			return fmt.Errorf("invalid phase number %q", args[1])
		}

		p, err := client.CompletePhase(cmd.Context(), args[0], number-1)
		if err != nil {
			return err
		}

		printCompletion(cmd, p)
		return nil
	},
}

var progressCompleteTopicCommand = &cobra.Command{
	Use:   "complete-topic <roadmap-id> <topic-path>",
	Short: "Mark a topic as completed, by its path as shown by 'roadmaps get'",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, path := args[0], args[1]
		undo, _ := cmd.Flags().GetBool("undo")

		var (
			p   *bato.Progress
			err error
		)

		if undo {
			p, err = client.GetProgress(ctx, id)
			if err != nil {
				return err
			}
			p, err = client.UncompleteTopic(ctx, p, path)
		} else {
			p, err = client.CompleteTopic(ctx, id, path)
		}
		if err != nil {
			return err
		}

		printCompletion(cmd, p)
		return nil
	},
}

var progressResetCommand = &cobra.Command{
	Use:   "reset <roadmap-id>",
	Short: "Clear all progress of a roadmap",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := client.ResetProgress(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		printCompletion(cmd, p)
		return nil
	},
}

func printCompletion(cmd *cobra.Command, p *bato.Progress) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s %d phases, %d topics done\n",
		styleOK.Render("Saved."), len(p.CompletedPhases), len(p.CompletedTopics))
}

func init() {
	progressCompleteTopicCommand.Flags().Bool("undo", false, "mark the topic as not completed")

	progressCommand.AddCommand(
		progressCompletePhaseCommand,
		progressCompleteTopicCommand,
		progressResetCommand,
	)

	rootCmd.AddCommand(progressCommand)
}
