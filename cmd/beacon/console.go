package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/beacon/internal/console"
)

var (
	consoleServer  string
	consoleRefresh time.Duration
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Open the dispatcher dashboard",
	Long: `Console renders the most recent incident from a running Beacon server:
severity banner, dispatch recommendation, and live transcript.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return console.Run(console.Options{
			BaseURL: consoleServer,
			Refresh: consoleRefresh,
		})
	},
}

func init() {
	consoleCmd.Flags().StringVar(&consoleServer, "server", "http://localhost:8080", "Beacon server URL")
	consoleCmd.Flags().DurationVar(&consoleRefresh, "refresh", time.Second, "Poll interval")
}
