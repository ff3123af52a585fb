// Package serve implements the long-running API server command.
package serve

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/boxlens/boxlens-go/internal/analysis"
	"github.com/boxlens/boxlens-go/internal/api"
	"github.com/boxlens/boxlens-go/internal/broadcast"
	"github.com/boxlens/boxlens-go/internal/conf"
	"github.com/boxlens/boxlens-go/internal/datastore"
	"github.com/boxlens/boxlens-go/internal/errors"
	"github.com/boxlens/boxlens-go/internal/logging"
	"github.com/boxlens/boxlens-go/internal/notifier"
	"github.com/boxlens/boxlens-go/internal/observability"
	"github.com/boxlens/boxlens-go/internal/telemetry"
	"github.com/boxlens/boxlens-go/internal/vision"
)

const shutdownTimeout = 10 * time.Second

// Command creates the serve command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the analysis API server",
		Long:  "Serve the capture analysis API: async analysis runs, live status streams and the polling fallback.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVar(&settings.WebServer.Port, "port", viper.GetString("webserver.port"), "Port to listen on")
	cmd.Flags().Int64Var(&settings.Pipeline.MaxConcurrent, "maxconcurrent", viper.GetInt64("pipeline.maxconcurrent"), "Maximum concurrent analysis runs")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}
	return nil
}

func runServer(settings *conf.Settings) error {
	logger := logging.ForService("serve")

	if err := telemetry.Init(&settings.Sentry); err != nil {
		return err
	}
	defer telemetry.Flush()

	store := datastore.New(settings)
	if store == nil {
		return errors.Newf("no database backend enabled").
			Component("serve").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if err := store.Open(); err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close datastore", "error", err)
		}
	}()

	metrics, err := observability.NewMetrics()
	if err != nil {
		return err
	}

	broadcaster := broadcast.New(&settings.Broadcast)
	defer broadcaster.Shutdown()

	pushNotifier, err := notifier.New(&settings.Push)
	if err != nil {
		return err
	}

	pipeline := analysis.New(settings, store, vision.NewClient(&settings.Vision, metrics.Vision),
		broadcaster, pushNotifier, metrics)

	controller := api.New(settings, store, pipeline, broadcaster, metrics)

	errCh := make(chan error, 1)
	go func() {
		if err := controller.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	logger.Info("server started", "port", settings.WebServer.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return controller.Shutdown(shutdownCtx)
}
