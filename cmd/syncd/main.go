package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	retry "github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/apigrid/catalogsync/internal/catalogsync/config"
	"github.com/apigrid/catalogsync/internal/catalogsync/connection"
	"github.com/apigrid/catalogsync/internal/catalogsync/persistence"
	"github.com/apigrid/catalogsync/internal/catalogsync/router"
	"github.com/apigrid/catalogsync/internal/catalogsync/store"
	"github.com/apigrid/catalogsync/internal/common/httpclient"
	"github.com/apigrid/catalogsync/internal/common/logtrace"
	"github.com/apigrid/catalogsync/pkg/api"
)

func init() {
	logtrace.InitLogger()
}

var (
	configFile string
	debugLog   bool
)

var rootCmd = &cobra.Command{
	Use:   "syncd [flags]",
	Short: "syncd keeps a local mirror of the catalog in sync with the server",
	Long: `syncd maintains a local, durable mirror of the catalog. It connects to
the server's sync channel, applies incremental sync messages in arrival
order, and falls back to a full refresh after each reconnect.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if debugLog {
			logtrace.InitConsoleLogger()
		}
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		return run(ctx)
	},
}

func main() {
	rootCmd.SilenceUsage = true
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("syncd failed")
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringVar(&configFile, "config", "", "Path to configuration file")
	rootCmd.Flags().BoolVar(&debugLog, "debug", false, "Log human-readable output to the console")
	rootCmd.MarkFlagRequired("config")
}

func run(ctx context.Context) error {
	slog := log.With().Str("state", "init").Logger()

	slog.Info().Str("config_file", configFile).Msg("loading config file")
	if err := config.LoadConfig(configFile); err != nil {
		return fmt.Errorf("loading config file: %w", err)
	}
	cfg := config.Config()

	adapter, err := persistence.Open(cfg.Sync.SnapshotPath)
	if err != nil {
		return fmt.Errorf("opening snapshot store: %w", err)
	}
	defer adapter.Close()

	client := api.NewClient(httpclient.NewClient(cfg, httpclient.ClientOptions{
		Timeout: 30 * time.Second,
	}), nil)

	st := store.New(store.Options{
		Fetcher:     client,
		Persistence: adapter,
	})

	rt := router.New(st)

	header := http.Header{}
	if token := cfg.GetToken(); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	mgr := connection.NewManager(connection.Options{
		Handler:           rt.HandleFrame,
		Status:            st,
		Header:            header,
		HeartbeatInterval: cfg.Sync.GetHeartbeatInterval(),
		DialTimeout:       cfg.Sync.GetDialTimeout(),
	})

	states, unsubscribe := st.Subscribe(cfg.Sync.GetSubscriberBuffer())
	defer unsubscribe()
	go logSyncStatus(states)

	// Channel to listen for an interrupt or terminate signal from the OS.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	supervisorErrors := make(chan error, 1)
	go func() {
		supervisorErrors <- supervise(ctx, mgr, st, cfg.Server.SyncURL)
	}()

	select {
	case err := <-supervisorErrors:
		if err != nil {
			return fmt.Errorf("sync supervisor: %w", err)
		}
	case sig := <-shutdown:
		slog.Info().Str("signal", sig.String()).Msg("shutdown signal received")
		mgr.Close()
	}

	slog.Info().Msg("syncd stopped")
	return nil
}

// logSyncStatus reports sync health transitions so operators can follow
// the mirror's state from the daemon log.
func logSyncStatus(states <-chan store.State) {
	slog := log.With().Str("component", "sync-status").Logger()

	var last store.State
	seen := false
	for state := range states {
		if !seen || state.IsConnected != last.IsConnected {
			slog.Info().Bool("connected", state.IsConnected).Msg("sync connection state changed")
		}
		if state.Error != "" && state.Error != last.Error {
			slog.Warn().Str("error", state.Error).Msg("sync error recorded")
		}
		if len(state.Conflicts) > len(last.Conflicts) {
			entry := state.Conflicts[len(state.Conflicts)-1]
			slog.Warn().
				Str("resource_type", string(entry.ResourceType)).
				Str("resource_id", entry.ResourceID).
				Int("conflicts", len(state.Conflicts)).
				Msg("sync conflict recorded")
		}
		last = state
		seen = true
	}
}

// supervise owns the reconnect policy the connection manager deliberately
// does not: dial with exponential backoff, refresh the full catalog after
// each (re)connect to cover messages missed while offline, then wait for
// the transport to end and start over.
func supervise(ctx context.Context, mgr *connection.Manager, st *store.Store, syncURL string) error {
	slog := log.With().Str("component", "sync-supervisor").Logger()

	for {
		err := retry.Do(
			func() error {
				return mgr.Connect(ctx, syncURL)
			},
			retry.Context(ctx),
			retry.Attempts(0),
			retry.Delay(time.Second),
			retry.MaxDelay(time.Minute),
			retry.DelayType(retry.BackOffDelay),
			retry.OnRetry(func(n uint, err error) {
				slog.Warn().Uint("attempt", n).Err(err).Msg("sync connection attempt failed")
			}),
		)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if rerr := st.RefreshFromServer(ctx); rerr != nil {
			slog.Warn().Err(rerr).Msg("catalog refresh after connect failed")
		}

		select {
		case <-ctx.Done():
			mgr.Close()
			return nil
		case <-mgr.Done():
			slog.Info().Msg("sync connection ended, reconnecting")
		}
	}
}
