package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/picatz/bato"
	"github.com/spf13/cobra"
)

var chatsCommand = &cobra.Command{
	Use:   "chats",
	Short: "List the chat sessions stored by the backend",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := resolveUserID(cmd)
		if err != nil {
			return err
		}

		chats, err := client.ListChats(cmd.Context(), userID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(chats) == 0 {
			fmt.Fprintln(out, styleFaint.Render("No chat sessions yet."))
			return nil
		}

		for _, c := range chats {
			title := c.Title
			if title == "" {
				title = styleFaint.Render("(untitled)")
			}
			fmt.Fprintf(out, "%s %s %s\n",
				numberColor.Render(c.ID),
				title,
				styleFaint.Render(c.UpdatedAt.Local().Format(time.DateTime)),
			)
		}

		return nil
	},
}

var chatsNewCommand = &cobra.Command{
	Use:   "new [initial message]",
	Short: "Start a chat session",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := resolveUserID(cmd)
		if err != nil {
			return err
		}

		req := &bato.CreateChatRequest{UserID: userID}
		if len(args) == 1 {
			req.InitialMessage = args[0]
		}

		created, err := client.CreateChat(cmd.Context(), req)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), created.ID)
		return nil
	},
}

var chatsMessagesCommand = &cobra.Command{
	Use:   "messages <chat-id>",
	Short: "Show the messages of a chat session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		msgs, err := client.GetChatMessages(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, m := range msgs {
			fmt.Fprintf(out, "%s %s\n", styleBold.Render(string(m.Role)+":"), styleFaint.Render(m.CreatedAt.Local().Format(time.DateTime)))

			content := m.Content
			if r, err := bato.ParseRoadmap(content); err == nil {
				content = fmt.Sprintf("(roadmap) %s · %d phases · %d topics", r.DisplayTitle(), len(r.Phases), r.TotalTopics())
			}
			fmt.Fprintln(out, content)

			if m.RoadmapID != "" {
				fmt.Fprintln(out, styleFaint.Render("roadmap "+m.RoadmapID))
			}
			fmt.Fprintln(out)
		}

		return nil
	},
}

var chatsRenameCommand = &cobra.Command{
	Use:   "rename <chat-id> <title>",
	Short: "Rename a chat session",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		updated, err := client.UpdateChatTitle(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), styleOK.Render("Renamed ")+updated.ID)
		return nil
	},
}

var chatsDeleteCommand = &cobra.Command{
	Use:   "delete <chat-id>",
	Short: "Delete a chat session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := client.DeleteChat(cmd.Context(), args[0]); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), styleOK.Render("Deleted ")+args[0])
		return nil
	},
}

// resolveUserID returns the --user flag, falling back to the configured user.
func resolveUserID(cmd *cobra.Command) (string, error) {
	if id, _ := cmd.Flags().GetString("user"); id != "" {
		return id, nil
	}
	if cfg.UserID != "" {
		return cfg.UserID, nil
	}
	return "", errors.New("no user: pass --user or set user_id in the config file")
}

func init() {
	chatsCommand.PersistentFlags().String("user", "", "user owning the chat sessions, overrides the config file")

	chatsCommand.AddCommand(
		chatsNewCommand,
		chatsMessagesCommand,
		chatsRenameCommand,
		chatsDeleteCommand,
	)

	rootCmd.AddCommand(chatsCommand)
}
