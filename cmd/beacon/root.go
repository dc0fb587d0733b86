package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "beacon",
	Short: "Severity-adaptive emergency call triage",
	Long: `Beacon answers emergency calls over a websocket telephony gateway,
classifies each call's severity in real time, and routes it to the right
depth of analysis: tactical triage for life-threatening calls, lightweight
handling for everything else.

Incident records accumulate per call and stream to a dashboard read API;
terminal records are archived to SQLite.

With no arguments, starts the server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd, args)
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(consoleCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
