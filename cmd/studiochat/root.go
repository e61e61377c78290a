package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/phucnh/studiochat-client/internal/app"
	"github.com/phucnh/studiochat-client/internal/config"
	"github.com/phucnh/studiochat-client/internal/log"
)

var (
	flagConfig   string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:   "studiochat",
	Short: "Messaging client for the studio rental platform",
	Long: `studiochat talks to the studio rental backend's messaging API and
realtime channel: browse conversations, read history, send messages and
watch incoming traffic live.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI.
func Execute(ctx context.Context) error {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(conversationsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(watchCmd)
}

// buildApp loads configuration and assembles the client.
func buildApp() (*app.App, error) {
	bootstrap := log.New("warn")
	cfg, _, err := config.Load(bootstrap, flagConfig)
	if err != nil {
		return nil, err
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}

	logger := log.New(cfg.LogLevel)
	return app.New(cfg, logger)
}
