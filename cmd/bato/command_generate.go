package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/picatz/bato"
	"github.com/picatz/bato/internal/chat"
	"github.com/picatz/bato/stream"
	"github.com/spf13/cobra"
)

var generateCommand = &cobra.Command{
	Use:   "generate <message>",
	Short: "Send a single message and stream the reply",
	Long: `Send a single message to the assistant and stream the reply.

Status changes and errors are written to stderr. The reply is rendered once the
stream ends: a roadmap as a tree, anything else as markdown. Press Ctrl-C to stop
the stream early and keep what arrived so far.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		chatID, _ := cmd.Flags().GetString("chat")
		strict, _ := cmd.Flags().GetBool("strict")
		raw, _ := cmd.Flags().GetBool("raw")
		asJSON, _ := cmd.Flags().GetBool("json")

		var (
			out, diag  = cmd.OutOrStdout(), cmd.ErrOrStderr()
			encoder    = json.NewEncoder(out)
			acc        stream.Accumulator
			midContent bool
		)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		s, err := client.StreamRoadmap(ctx, &bato.GenerateRoadmapRequest{
			Message:       strings.Join(args, " "),
			ChatSessionID: chatID,
			StrictMode:    cfg.StrictMode || strict,
		}, stream.WithPrefixMode(cfg.GetPrefixMode()), stream.WithOnCreated(acc.OnCreated))
		if err != nil {
			return err
		}

		for ev, err := range s.Events() {
			if err != nil {
				return err
			}
			acc.Add(ev)

			switch {
			case asJSON:
				if err := encoder.Encode(ev); err != nil {
					return err
				}
			case ev.IsStatus():
				fmt.Fprintln(diag, styleFaint.Render("· "+ev.Data))
			case ev.IsError():
				fmt.Fprintln(diag, styleWarning.Render("error: "+ev.Data))
			case raw && ev.IsContent():
				fmt.Fprint(out, ev.Data)
				midContent = !strings.HasSuffix(ev.Data, "\n")
			}
		}

		if ctx.Err() != nil {
			fmt.Fprintln(diag, styleWarning.Render("generation cancelled"))
		}
		if id := acc.RoadmapID(); id != "" {
			fmt.Fprintln(diag, styleOK.Render("roadmap created: ")+id)
		}

		switch {
		case asJSON:
			return nil
		case raw:
			if midContent {
				fmt.Fprintln(out)
			}
			return nil
		}

		if r, err := bato.ParseRoadmap(acc.Text()); err == nil {
			fmt.Fprint(out, chat.RenderRoadmap(r, nil))
			return nil
		}

		rendered, err := chat.RenderMarkdown(acc.Text(), termWidth())
		if err != nil {
			return err
		}
		fmt.Fprint(out, rendered)

		return nil
	},
}

func init() {
	generateCommand.Flags().String("chat", "", "backend chat session the message belongs to")
	generateCommand.Flags().Bool("strict", false, "keep the assistant on the roadmap's subject")
	generateCommand.Flags().Bool("raw", false, "print content as it arrives, without rendering")
	generateCommand.Flags().Bool("json", false, "print every event as a JSON line")

	rootCmd.AddCommand(generateCommand)
}
