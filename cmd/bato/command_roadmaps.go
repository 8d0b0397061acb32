package main

import (
	"fmt"
	"time"

	"github.com/picatz/bato"
	"github.com/picatz/bato/internal/chat"
	"github.com/spf13/cobra"
)

var roadmapsCommand = &cobra.Command{
	Use:     "roadmaps",
	Aliases: []string{"roadmap"},
	Short:   "List the stored roadmaps",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		roadmaps, err := client.ListRoadmaps(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(roadmaps) == 0 {
			fmt.Fprintln(out, styleFaint.Render("No roadmaps yet. Start one with 'bato chat'."))
			return nil
		}

		for _, r := range roadmaps {
			mark := " "
			if r.IsSelected {
				mark = styleOK.Render("●")
			}

			title := r.Title
			if title == "" {
				title = r.Goal
			}

			fmt.Fprintf(out, "%s %s %s %s\n",
				mark,
				numberColor.Render(r.ID),
				styleBold.Render(title),
				styleFaint.Render(r.CreatedAt.Local().Format(time.DateOnly)),
			)
		}

		return nil
	},
}

var roadmapsGetCommand = &cobra.Command{
	Use:   "get <roadmap-id>",
	Short: "Show a roadmap with its progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, p, err := roadmapWithProgress(cmd, args[0])
		if err != nil {
			return err
		}

		fmt.Fprint(cmd.OutOrStdout(), chat.RenderRoadmap(r, p))
		return nil
	},
}

var roadmapsSelectCommand = &cobra.Command{
	Use:   "select <roadmap-id>",
	Short: "Mark a roadmap as the one being followed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stored, err := client.SelectRoadmap(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), styleOK.Render("Selected ")+stored.ID)
		return nil
	},
}

// roadmapWithProgress fetches a roadmap and its progress. A roadmap without any
// progress yet is returned with a nil Progress.
func roadmapWithProgress(cmd *cobra.Command, id string) (*bato.Roadmap, *bato.Progress, error) {
	stored, err := client.GetRoadmap(cmd.Context(), id)
	if err != nil {
		return nil, nil, err
	}

	r, err := stored.Roadmap()
	if err != nil {
		return nil, nil, fmt.Errorf("roadmap %s: %w", id, err)
	}

	p, err := client.GetProgress(cmd.Context(), id)
	switch {
	case bato.IsNotFound(err):
		return r, nil, nil
	case err != nil:
		return nil, nil, err
	}

	return r, p, nil
}

func init() {
	roadmapsCommand.AddCommand(
		roadmapsGetCommand,
		roadmapsSelectCommand,
	)

	rootCmd.AddCommand(roadmapsCommand)
}
