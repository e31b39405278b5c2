package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/kubescape/go-logger"
	"github.com/kubescape/go-logger/helpers"
	"github.com/spf13/cobra"

	"github.com/EricSciullo/POE-Core-Manager/pkg/lib/affinity"
	"github.com/EricSciullo/POE-Core-Manager/pkg/lib/config"
	"github.com/EricSciullo/POE-Core-Manager/pkg/lib/events"
	"github.com/EricSciullo/POE-Core-Manager/pkg/lib/metrics"
	"github.com/EricSciullo/POE-Core-Manager/pkg/lib/process"
	"github.com/EricSciullo/POE-Core-Manager/pkg/lib/session"
)

func runSession(cmd *cobra.Command, configDir string) error {
	cfg, err := config.LoadConfig(configDir, cmd.Flags())
	if err != nil {
		return err
	}

	logger.InitLogger(cfg.LoggerName)
	log := logger.L()
	if err := log.SetLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}

	source, err := process.NewProcfsSource(cfg.ProcfsPath)
	if err != nil {
		return err
	}
	sched, err := affinity.NewOSScheduler(cfg.ProcfsPath)
	if err != nil {
		return err
	}

	locator := process.NewLocator(source, cfg.Matcher(), log)
	controller := affinity.NewController(sched, cfg.ReservedCores, log)

	var opts []session.Option

	if cfg.MetricsAddress != "" {
		recorder := metrics.NewRecorder()
		srv := startMetricsServer(cfg.MetricsAddress, recorder.Handler(), log)
		defer srv.Close()
		opts = append(opts, session.WithMetrics(recorder))
	}

	if cfg.HealthAddress != "" {
		broadcaster := events.RunNewBroadcaster[session.Event]()
		defer broadcaster.Stop()

		sub, err := broadcaster.Subscribe()
		if err != nil {
			return err
		}
		srv, err := NewGRPCServer(cfg.HealthAddress)
		if err != nil {
			return fmt.Errorf("failed to initialize health server: %w", err)
		}
		defer srv.Stop()

		go srv.Follow(sub)
		go func() {
			if err := srv.Serve(); err != nil {
				log.Error("health server stopped", helpers.Error(err))
			}
		}()
		log.Info("health server listening", helpers.String("address", srv.Addr().String()))
		opts = append(opts, session.WithEvents(broadcaster))
	}

	driver := session.NewDriver(cfg.Session(), locator, controller, log, opts...)
	err = driver.Run(cmd.Context())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
