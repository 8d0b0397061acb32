package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/picatz/bato"
	"github.com/picatz/bato/internal/chat"
	"github.com/spf13/cobra"
)

var historyCommand = &cobra.Command{
	Use:   "history [n]",
	Short: "Show the most recent exchanges from the local chat history",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n := 10
		if len(args) == 1 {
			v, err := strconv.Atoi(args[0])
			if err != nil || v <= 0 {
				return fmt.Errorf("invalid number of exchanges %q", args[0])
			}
			n = v
		}

		chatID, _ := cmd.Flags().GetString("chat")

		history, err := openHistory(false)
		if err != nil {
			return err
		}
		defer history.Close(cmd.Context())

		entries, err := chat.Recent(cmd.Context(), history, chatID, n)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(entries) == 0 {
			fmt.Fprintln(out, styleFaint.Render("No history yet."))
			return nil
		}

		for _, entry := range entries {
			t := entry.Value

			fmt.Fprintln(out, styleFaint.Render(entry.Key+" · "+t.CreatedAt.Local().Format(time.DateTime)))
			fmt.Fprintln(out, styleBold.Render("you: ")+t.Request)

			switch r, err := bato.ParseRoadmap(t.Response); {
			case err == nil:
				fmt.Fprintln(out, chat.RenderRoadmap(r, nil))
			case t.Response != "":
				rendered, err := chat.RenderMarkdown(t.Response, termWidth())
				if err != nil {
					return err
				}
				fmt.Fprint(out, rendered)
			}

			if t.RoadmapID != "" {
				fmt.Fprintln(out, styleFaint.Render("roadmap "+t.RoadmapID))
			}
			if t.Cancelled {
				fmt.Fprintln(out, styleWarning.Render("(cancelled)"))
			}
			fmt.Fprintln(out, "---")
		}

		return nil
	},
}

func init() {
	historyCommand.Flags().String("chat", "", "only show exchanges of this backend chat session")

	rootCmd.AddCommand(historyCommand)
}
