package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"shellhost/internal/events"
	"shellhost/internal/watcher"
	"shellhost/pkg/logging"
)

var serveWatch bool

// serveCmd starts the host: it loads the settings document, builds every
// configured shell and keeps them alive until interrupted.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Build all configured shells and keep them running",
	Long: `Loads the settings document, builds a service container for every
configured shell and keeps the host alive until interrupted.

With --watch the settings document is observed for changes; edits trigger a
reload that applies only the delta (shells added, removed or changed) while
untouched shells keep their containers.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	publisher := events.NewPublisher()
	publisher.Subscribe(events.HandlerFunc(func(ctx context.Context, n events.Notification) error {
		if n.Failed() {
			logging.Warn("Serve", "%s", n.Message)
		} else {
			logging.Info("Serve", "%s", n.Message)
		}
		return nil
	}))

	manager, err := newManager(cfg, publisher)
	if err != nil {
		return fmt.Errorf("initializing host: %w", err)
	}
	defer manager.Close()

	if err := manager.ReloadAll(ctx); err != nil {
		// Per-shell failures are isolated: keep serving what did build.
		logging.Error("Serve", err, "Initial shell load completed with errors")
	}
	logging.Info("Serve", "Serving %d shells from %s", len(manager.AllShells()), cfg.Settings)

	if serveWatch || cfg.Watch {
		w := watcher.New(cfg.Settings, manager, 0)
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("starting settings watcher: %w", err)
		}
		defer w.Stop()
	}

	<-ctx.Done()
	logging.Info("Serve", "Shutting down")
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveWatch, "watch", false,
		"reload shells when the settings document changes")
	_ = viper.BindPFlag("watch", serveCmd.Flags().Lookup("watch"))
}
