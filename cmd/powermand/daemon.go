package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/YoYoZ/powerswitch-Klipper/internal/config"
	"github.com/YoYoZ/powerswitch-Klipper/internal/logger"
	"github.com/YoYoZ/powerswitch-Klipper/internal/metrics"
	"github.com/YoYoZ/powerswitch-Klipper/internal/outage"
	"github.com/YoYoZ/powerswitch-Klipper/internal/powerman"
	"github.com/YoYoZ/powerswitch-Klipper/pkg/moonraker"
)

const observeShutdownGrace = 3 * time.Second

// buildManager loads the configuration and assembles the daemon's
// collaborators. It installs the process-wide logger as a side effect.
func buildManager(configPath string) (*powerman.Manager, config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, cfg, err
	}
	logger.Setup(cfg.Log)
	log := slog.Default()

	outages := outage.New(outage.Config{
		APIURL: cfg.Outage.APIURL,
		Group:  cfg.Outage.Group,
		Logger: log.With("component", "outage"),
	})
	printer := moonraker.New(moonraker.Config{
		BaseURL:       cfg.Moonraker.BaseURL,
		ScriptTimeout: cfg.Moonraker.ScriptTimeout,
		HeatTimeout:   cfg.Moonraker.HeatTimeout,
		Logger:        log.With("component", "moonraker"),
	})
	m := powerman.New(powerman.Config{
		Outages: outages,
		Printer: printer,
		Temps: powerman.Temps{
			Extruder: cfg.Temps.Extruder,
			Bed:      cfg.Temps.Bed,
			Park:     cfg.Temps.Park,
		},
		CheckInterval: cfg.Outage.CheckInterval,
		WaitBefore:    cfg.Outage.WaitBefore,
		WaitAfter:     cfg.Outage.WaitAfter,
		Logger:        log.With("component", "powerman"),
	})
	return m, cfg, nil
}

// runDaemon runs the manager loop until ctx is cancelled. With observe
// configured, metrics and the read-only HTTP endpoint come up first.
func runDaemon(ctx context.Context, configPath string) error {
	m, cfg, err := buildManager(configPath)
	if err != nil {
		return err
	}

	if cfg.Observe.Listen != "" {
		stopObserve, err := startObserve(ctx, cfg.Observe.Listen, m)
		if err != nil {
			return err
		}
		defer stopObserve()
	}

	m.Run(ctx)
	return nil
}

// startObserve registers the collectors and brings up the observe endpoint.
// The returned function tears both down.
func startObserve(ctx context.Context, listen string, m *powerman.Manager) (func(), error) {
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return nil, err
	}

	self, err := metrics.NewSelfStats(0)
	if err != nil {
		slog.Warn("self statistics disabled", "error", err)
	} else if err := self.Register(prometheus.DefaultRegisterer); err != nil {
		return nil, err
	} else {
		self.Start(ctx)
	}

	srv := metrics.NewServer(metrics.ServerConfig{
		Listen:   listen,
		Schedule: func() any { return m.ScheduleSnapshot() },
	})
	srv.Start()

	return func() {
		if self != nil {
			self.Stop()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), observeShutdownGrace)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}, nil
}

// runOnce performs a single fetch-and-check pass, acting on the result
// exactly as a daemon tick would.
func runOnce(ctx context.Context, configPath string, w io.Writer) error {
	m, _, err := buildManager(configPath)
	if err != nil {
		return err
	}
	return m.RunOnce(ctx, w)
}

// runTestPause drives the pause/park/wait/resume cycle against the live
// printer so operators can verify the wiring end to end.
func runTestPause(ctx context.Context, configPath string, w io.Writer) error {
	m, _, err := buildManager(configPath)
	if err != nil {
		return err
	}
	return m.TestPause(ctx, w)
}
