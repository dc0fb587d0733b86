package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/beacon/internal/agents"
	"github.com/ShayCichocki/beacon/internal/api"
	"github.com/ShayCichocki/beacon/internal/config"
	"github.com/ShayCichocki/beacon/internal/publisher"
	"github.com/ShayCichocki/beacon/internal/replay"
	"github.com/ShayCichocki/beacon/internal/session"
	"github.com/ShayCichocki/beacon/internal/state"
)

var (
	replayPace    bool
	replayArchive bool
)

var replayCmd = &cobra.Command{
	Use:   "replay <scenario.yaml | directory>",
	Short: "Run recorded call scenarios through the pipeline",
	Long: `Replay feeds scripted calls through the full triage pipeline using the
real agent models, without a telephony gateway. Point it at a single
scenario file or a directory of them.

Scenario format:

  name: kitchen-fire
  description: critical fire call
  turns:
    - speaker: caller
      text: "my kitchen is on fire"
      delay_ms: 500`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().BoolVar(&replayPace, "pace", false, "Play turn delays in real time")
	replayCmd.Flags().BoolVar(&replayArchive, "archive", false, "Persist replayed incidents to the archive")
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	scenarios, err := loadScenarios(args[0])
	if err != nil {
		return err
	}

	client, err := api.NewClient(api.ClientConfig{
		APIKey:        cfg.Anthropic.APIKey,
		UseAWSBedrock: cfg.Anthropic.UseBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
	})
	if err != nil {
		return err
	}
	invoker := agents.NewSet(client, agents.Models{
		Router: cfg.Agents.RouterModel,
		Triage: cfg.Agents.TriageModel,
		Info:   cfg.Agents.InfoModel,
	})

	var archive session.Archiver
	if replayArchive {
		dbPath := cfg.Storage.DBPath
		if dbPath == "" {
			dbPath = state.DefaultDBPath()
		}
		db, err := state.Open(dbPath)
		if err != nil {
			return fmt.Errorf("opening archive: %w", err)
		}
		defer db.Close()
		if err := db.Migrate(); err != nil {
			return fmt.Errorf("migrating archive: %w", err)
		}
		archive = db
	}

	store := session.NewStore(sessionConfig(cfg), invoker, publisher.New(), archive)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		store.Close(ctx)
	}()

	runner := replay.NewRunner(store, os.Stdout)
	runner.Pace = replayPace

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := runner.RunAll(ctx, scenarios); err != nil {
		return err
	}

	tracker := client.Tracker()
	in, out := tracker.Total()
	fmt.Printf("\n%d scenario(s), %d API calls, %d in / %d out tokens ($%.4f)\n",
		len(scenarios), tracker.Calls(), in, out, tracker.Cost())
	return nil
}

func loadScenarios(path string) ([]*replay.Scenario, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		scenarios, err := replay.LoadDir(path)
		if err != nil {
			return nil, err
		}
		if len(scenarios) == 0 {
			return nil, fmt.Errorf("no scenarios found in %s", path)
		}
		return scenarios, nil
	}
	sc, err := replay.LoadScenario(path)
	if err != nil {
		return nil, err
	}
	return []*replay.Scenario{sc}, nil
}
