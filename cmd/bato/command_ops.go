package main

import (
	"fmt"
	"maps"
	"slices"

	"github.com/picatz/bato"
	"github.com/spf13/cobra"
)

var healthCommand = &cobra.Command{
	Use:   "health",
	Short: "Check that the backend is reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		status, health, err := client.Health(cmd.Context())

		out := cmd.OutOrStdout()
		switch status {
		case bato.HealthConnected:
			fmt.Fprintln(out, styleOK.Render(string(status)))
		default:
			fmt.Fprintln(out, styleWarning.Render(string(status)))
		}

		if err != nil {
			return err
		}

		for _, key := range slices.Sorted(maps.Keys(health.Details)) {
			if key == "status" {
				continue
			}
			fmt.Fprintf(out, "%s %v\n", styleFaint.Render(key+":"), health.Details[key])
		}

		return nil
	},
}

var ingestCommand = &cobra.Command{
	Use:   "ingest",
	Short: "Ask the backend to re-ingest its documentation sources",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := client.TriggerIngestion(cmd.Context())
		if err != nil {
			return err
		}

		msg := result.Message
		if msg == "" {
			msg = result.Status
		}
		fmt.Fprintln(cmd.OutOrStdout(), styleOK.Render("Ingestion triggered.")+" "+msg)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(
		healthCommand,
		ingestCommand,
	)
}
