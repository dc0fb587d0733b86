package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ShayCichocki/beacon/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config [key]",
	Short: "Show configuration",
	Long: `Display the effective Beacon configuration after merging defaults,
user config, project overrides, and environment variables.

Without arguments, displays all values. With one argument, displays the
value for that key.

Configuration is read from ~/.config/beacon/config.yaml; project overrides
go in .beacon.yaml. ANTHROPIC_API_KEY and BEACON_ADDR are honored from the
environment.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		if len(args) == 0 {
			displayAllConfig(cfg)
			return
		}
		value, err := getConfigValue(cfg, args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(value)
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	// Mask API key if set
	apiKeyDisplay := "(not set)"
	if cfg.Anthropic.APIKey != "" {
		apiKeyDisplay = "****"
	}

	fmt.Printf("anthropic.api_key: %s\n", apiKeyDisplay)
	fmt.Printf("anthropic.use_bedrock: %t\n", cfg.Anthropic.UseBedrock)
	fmt.Printf("server.addr: %s\n", cfg.Server.Addr)
	fmt.Printf("server.greeting: %s\n", cfg.Server.Greeting)
	fmt.Printf("agents.router_model: %s\n", cfg.Agents.RouterModel)
	fmt.Printf("agents.triage_model: %s\n", cfg.Agents.TriageModel)
	fmt.Printf("agents.info_model: %s\n", cfg.Agents.InfoModel)
	fmt.Printf("agents.classify_timeout: %s\n", cfg.Agents.ClassifyTimeout)
	fmt.Printf("agents.analysis_timeout: %s\n", cfg.Agents.AnalysisTimeout)
	fmt.Printf("agents.max_retries: %d\n", cfg.Agents.MaxRetries)
	fmt.Printf("agents.retry_backoff: %s\n", cfg.Agents.RetryBackoff)
	fmt.Printf("session.min_classify_tokens: %d\n", cfg.Session.MinClassifyTokens)
	fmt.Printf("session.reclassify_runes: %d\n", cfg.Session.ReclassifyRunes)
	fmt.Printf("session.inactivity_timeout: %s\n", cfg.Session.InactivityTimeout)
	fmt.Printf("session.reorder_window: %d\n", cfg.Session.ReorderWindow)
	fmt.Printf("storage.db_path: %s\n", displayPath(cfg.Storage.DBPath))
}

func displayPath(p string) string {
	if p == "" {
		return "(default)"
	}
	return p
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		if cfg.Anthropic.APIKey == "" {
			return "(not set)", nil
		}
		return "****", nil
	case "anthropic.use_bedrock":
		return strconv.FormatBool(cfg.Anthropic.UseBedrock), nil
	case "server.addr":
		return cfg.Server.Addr, nil
	case "server.greeting":
		return cfg.Server.Greeting, nil
	case "agents.router_model":
		return cfg.Agents.RouterModel, nil
	case "agents.triage_model":
		return cfg.Agents.TriageModel, nil
	case "agents.info_model":
		return cfg.Agents.InfoModel, nil
	case "agents.classify_timeout":
		return cfg.Agents.ClassifyTimeout.String(), nil
	case "agents.analysis_timeout":
		return cfg.Agents.AnalysisTimeout.String(), nil
	case "agents.max_retries":
		return strconv.Itoa(cfg.Agents.MaxRetries), nil
	case "agents.retry_backoff":
		return cfg.Agents.RetryBackoff.String(), nil
	case "session.min_classify_tokens":
		return strconv.Itoa(cfg.Session.MinClassifyTokens), nil
	case "session.reclassify_runes":
		return strconv.Itoa(cfg.Session.ReclassifyRunes), nil
	case "session.inactivity_timeout":
		return cfg.Session.InactivityTimeout.String(), nil
	case "session.reorder_window":
		return strconv.Itoa(cfg.Session.ReorderWindow), nil
	case "storage.db_path":
		return displayPath(cfg.Storage.DBPath), nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}
