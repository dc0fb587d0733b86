package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/beacon/internal/agents"
	"github.com/ShayCichocki/beacon/internal/api"
	"github.com/ShayCichocki/beacon/internal/config"
	"github.com/ShayCichocki/beacon/internal/control"
	"github.com/ShayCichocki/beacon/internal/publisher"
	"github.com/ShayCichocki/beacon/internal/session"
	"github.com/ShayCichocki/beacon/internal/state"
	"github.com/ShayCichocki/beacon/internal/transport"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the triage server",
	Long: `Start the Beacon server: the call websocket endpoint, the incident
read API, and the session pipeline behind them.

Operator signals are read from the data directory: touch signals/drain to
stop accepting new calls, signals/stop to shut down.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
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

	signals, err := control.NewManager(filepath.Dir(dbPath))
	if err != nil {
		return fmt.Errorf("setting up control signals: %w", err)
	}
	defer signals.Close()
	signals.ClearSignals()

	pub := publisher.New()
	store := session.NewStore(sessionConfig(cfg), invoker, pub, db)

	srv := transport.NewServer(transport.Config{
		Addr:     cfg.Server.Addr,
		Greeting: cfg.Server.Greeting,
	}, store, pub, db)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	draining := false
	for {
		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server: %w", err)
			}
			if !draining {
				return nil
			}

		case sig := <-sigCh:
			log.Printf("[beacon] received %s, shutting down", sig)
			return shutdown(srv, store)

		case <-ticker.C:
			if signals.ShouldStop() {
				log.Printf("[beacon] stop signal received, shutting down")
				return shutdown(srv, store)
			}
			if signals.ShouldDrain() && !draining {
				// Stop the listener; hijacked websockets stay up so live
				// calls finish naturally.
				log.Printf("[beacon] drain signal received, refusing new calls")
				draining = true
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				srv.Shutdown(ctx)
				cancel()
			}
			if draining && store.Len() == 0 {
				log.Printf("[beacon] drained, exiting")
				return nil
			}
		}
	}
}

func shutdown(srv *transport.Server, store *session.Store) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[beacon] shutting down server: %v", err)
	}
	if err := store.Close(ctx); err != nil {
		return fmt.Errorf("flushing sessions: %w", err)
	}
	return nil
}

// sessionConfig maps loaded configuration onto the session controller knobs.
func sessionConfig(cfg *config.Config) session.Config {
	sc := session.DefaultConfig()
	if cfg.Session.MinClassifyTokens > 0 {
		sc.MinClassifyTokens = cfg.Session.MinClassifyTokens
	}
	if cfg.Session.ReclassifyRunes > 0 {
		sc.ReclassifyRunes = cfg.Session.ReclassifyRunes
	}
	if cfg.Session.ReorderWindow > 0 {
		sc.ReorderWindow = cfg.Session.ReorderWindow
	}
	if cfg.Session.InactivityTimeout > 0 {
		sc.InactivityTimeout = cfg.Session.InactivityTimeout
	}
	if cfg.Agents.ClassifyTimeout > 0 {
		sc.ClassifyTimeout = cfg.Agents.ClassifyTimeout
	}
	if cfg.Agents.AnalysisTimeout > 0 {
		sc.AnalysisTimeout = cfg.Agents.AnalysisTimeout
	}
	if cfg.Agents.MaxRetries >= 0 {
		sc.MaxRetries = cfg.Agents.MaxRetries
	}
	if cfg.Agents.RetryBackoff > 0 {
		sc.RetryBackoff = cfg.Agents.RetryBackoff
	}
	return sc
}
