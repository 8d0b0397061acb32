package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/picatz/bato"
	"github.com/picatz/bato/internal/chat"
	"github.com/spf13/cobra"
)

var chatCommand = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant to build a learning roadmap",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd)
	},
}

func init() {
	chatCommand.Flags().BoolP("temporary", "t", false, "use a temporary in-memory chat history")
	chatCommand.Flags().String("chat", "", "continue a chat session stored by the backend")
	chatCommand.Flags().Bool("new", false, "start a new chat session on the backend for the configured user")
	chatCommand.Flags().Bool("strict", false, "start in strict mode")

	rootCmd.AddCommand(
		chatCommand,
	)
}

// runChat runs an interactive session. Flags missing from cmd, as on the root
// command, keep their defaults.
func runChat(cmd *cobra.Command) error {
	ctx := cmd.Context()

	temporary, _ := cmd.Flags().GetBool("temporary")
	chatID, _ := cmd.Flags().GetString("chat")
	newChat, _ := cmd.Flags().GetBool("new")
	strict, _ := cmd.Flags().GetBool("strict")

	if newChat {
		if cfg.UserID == "" {
			return errors.New("starting a backend chat session needs user_id in the config file")
		}

		created, err := client.CreateChat(ctx, &bato.CreateChatRequest{UserID: cfg.UserID})
		if err != nil {
			return fmt.Errorf("failed to create chat session: %w", err)
		}
		chatID = created.ID
		log.Info("created chat session", "chat", chatID)
	}

	history, err := openHistory(temporary)
	if err != nil {
		return err
	}
	defer history.Close(ctx)

	session, restore, err := chat.NewSession(ctx, client, cmd.InOrStdin(), cmd.OutOrStdout(), history,
		chat.WithChatSessionID(chatID),
		chat.WithStrictMode(cfg.StrictMode || strict),
		chat.WithPrefixMode(cfg.GetPrefixMode()),
		chat.WithLogger(log),
	)
	if err != nil {
		return fmt.Errorf("failed to create chat session: %w", err)
	}
	defer restore()

	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)

	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			select {
			case <-interrupts:
				session.Interrupt()
			case <-done:
				return
			}
		}
	}()

	session.Run(ctx)

	return nil
}
