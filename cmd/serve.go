// File: cmd/serve.go
package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tinkertool/tinker/api/schemas"
	"github.com/tinkertool/tinker/internal/api"
	"github.com/tinkertool/tinker/internal/bus"
	"github.com/tinkertool/tinker/internal/config"
	"github.com/tinkertool/tinker/internal/engine"
	"github.com/tinkertool/tinker/internal/events"
	"github.com/tinkertool/tinker/internal/nav"
	"github.com/tinkertool/tinker/internal/netmon"
	"github.com/tinkertool/tinker/internal/observability"
	"github.com/tinkertool/tinker/internal/tabs"
	"github.com/tinkertool/tinker/internal/visual"
	"github.com/tinkertool/tinker/internal/webview"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the automation control plane and remote API.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}
}

// runServe composes the control plane and blocks until the context ends.
func runServe(ctx context.Context, cfg *config.Config) error {
	logger := observability.GetLogger()
	defer observability.Sync()

	urls, err := nav.NewURLManager(cfg.Navigation.SearchEngine)
	if err != nil {
		return err
	}
	tester, err := visual.NewTester(logger, cfg.Visual.BaselineDir)
	if err != nil {
		return err
	}

	commands := bus.New[schemas.Command](logger, cfg.Bus.SubscriberBuffer)
	eventBus := bus.New[schemas.Event](logger, cfg.Bus.SubscriberBuffer)
	registry := tabs.NewRegistry(cfg.Navigation.HistoryCapacity)
	monitor := netmon.NewMonitor(logger, cfg.Network.MaxHistory)
	recorder := engine.NewRecorder(logger)

	publisher := events.NewPublisher(logger, cfg.Events)
	if err := publisher.Connect(); err != nil {
		return err
	}
	defer publisher.Close()

	// The stub host stands in until a platform WebView backend is attached.
	host := webview.NewStubHost()

	// One tab exists from the start, mirroring the initial window.
	registry.Create("about:blank")

	dispatcher := engine.NewDispatcher(logger, engine.Deps{
		Commands: commands,
		Events:   eventBus,
		Tabs:     registry,
		URLs:     urls,
		Network:  monitor,
		Visual:   tester,
		Host:     host,
		Sink:     publisher,
		Recorder: recorder,
	})

	server := api.NewServer(logger, cfg.Server, api.Deps{
		Commands: commands,
		Events:   eventBus,
		Tabs:     registry,
		Network:  monitor,
		Recorder: recorder,
	})

	if cfg.Recording.Enabled {
		recorder.Start()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return dispatcher.Run(gctx)
	})

	g.Go(func() error {
		return server.Start()
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("API server shutdown failed", zap.Error(err))
		}

		commands.Close()
		eventBus.Close()

		if cfg.Recording.Enabled {
			recorder.Stop()
			if err := recorder.Save(cfg.Recording.File); err != nil {
				logger.Error("Failed to save session recording", zap.Error(err))
			}
		}
		return nil
	})

	logger.Info("Control plane running", zap.String("address", cfg.Server.Addr()))
	if err := g.Wait(); err != nil && !isShutdownErr(err) {
		return err
	}
	logger.Info("Control plane stopped")
	return nil
}

func isShutdownErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
