package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/picatz/bato"
	"github.com/picatz/bato/internal/config"
	"github.com/picatz/bato/internal/logger"
	"github.com/spf13/cobra"
)

var (
	cfg    *config.Config
	client *bato.Client
	log    *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "bato",
	Short: "Learning roadmaps from the terminal",
	Long: `bato talks to the learning-roadmap backend.

Run without a command to start a chat, describe what you want to learn, and the
assistant streams back a roadmap. Roadmaps, progress and topic deep-dives can then
be managed with the other commands.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", config.DefaultPath(), "path to the config file")
	flags.String("api-url", "", "backend address, overrides the config file")
	flags.String("token", "", "bearer token sent to the backend")
	flags.BoolP("debug", "d", false, "enable debug logging")
	flags.Bool("no-cache", false, "disable the response cache")
}

// setup loads the configuration and builds the logger and client used by every command.
func setup(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()

	path, _ := flags.GetString("config")
	c, err := config.Load(path)
	if err != nil {
		return err
	}

	if v, _ := flags.GetString("api-url"); v != "" {
		c.APIURL = v
	}
	if v, _ := flags.GetString("token"); v != "" {
		c.Token = v
	}
	if debug, _ := flags.GetBool("debug"); debug {
		c.Log.Debug = true
	}
	if err := c.Validate(); err != nil {
		return err
	}

	log = logger.New(
		logger.WithDebug(c.Log.Debug),
		logger.WithPretty(true),
		logger.WithJSON(c.Log.JSON),
		logger.WithSource(c.Log.Source),
		logger.WithWriter(cmd.ErrOrStderr()),
	)
	if c.Log.File != "" {
		f, err := os.OpenFile(c.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		log = logger.Multi(log, logger.New(
			logger.WithDebug(true),
			logger.WithJSON(true),
			logger.WithSource(c.Log.Source),
			logger.WithWriter(f),
		))
	}

	noCache, _ := flags.GetBool("no-cache")

	opts := []bato.ClientOption{
		bato.WithToken(c.Token),
		bato.WithLogger(log),
		bato.WithCache(!noCache),
		bato.WithCacheTTL(c.GetCacheTTL()),
		bato.WithRetries(c.GetRetries()),
		bato.WithBackoff(c.GetBackoff()),
	}
	if c.RateLimit.Enabled() {
		opts = append(opts, bato.WithRateLimiters(bato.NewRateLimiters(
			c.RateLimit.StreamPerMinute,
			c.RateLimit.RESTPerSecond,
			c.RateLimit.GetBurst(),
		)))
	}

	cfg = c
	client = bato.NewClient(c.GetAPIURL(), opts...)

	log.Debug("configured", "api", c.GetAPIURL(), "cache", !noCache, "retries", c.GetRetries())

	return nil
}
