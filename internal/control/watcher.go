package control

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lucasvrm/previso/internal/core/domain"
	"github.com/lucasvrm/previso/internal/dashboard/health"
	"github.com/lucasvrm/previso/internal/dashboard/stats"
	"github.com/lucasvrm/previso/internal/infra/metrics"
)

// Watcher polls the dashboard consumers on an interval and serves
// health and metrics while it runs.
type Watcher struct {
	app          *App
	interval     time.Duration
	patientID    string
	windowDays   int
	healthMon    *health.Monitor
	healthServer *health.Server
	log          *slog.Logger

	polls   atomic.Int64
	stopped chan struct{}
	cancel  context.CancelFunc
}

// NewWatcher creates a watcher over app.
func NewWatcher(app *App) *Watcher {
	cfg := app.Config

	mon := health.NewMonitor(10*time.Second,
		health.TransportCheck{Monitor: app.Transport.Monitor},
		health.SessionCheck{Expired: app.Guard.Fired},
	)
	if db := app.DB(); db != nil {
		mon.Register(health.PingCheck{Component: "database", Ping: db.Health})
	}
	if rc := app.Redis(); rc != nil {
		mon.Register(health.PingCheck{Component: "redis", Ping: rc.Ping})
	}

	return &Watcher{
		app:          app,
		interval:     cfg.Watch.Interval,
		patientID:    cfg.Watch.PatientID,
		windowDays:   cfg.Watch.WindowDays,
		healthMon:    mon,
		healthServer: health.NewServer(mon, cfg.Server.Port),
		log:          slog.Default().With("component", "watcher"),
		stopped:      make(chan struct{}),
	}
}

// Start starts the health server and the poll loop. It does not block.
func (w *Watcher) Start(ctx context.Context) error {
	ctx, w.cancel = context.WithCancel(ctx)

	go func() {
		if err := w.healthServer.Start(); err != nil {
			w.log.Error("Health server failed", "error", err)
		}
	}()

	if db := w.app.DB(); db != nil {
		db.StartMetricsCollector(ctx)
	}

	go w.run(ctx)
	w.log.Info("Watcher started", "interval", w.interval, "patient_id", w.patientID)
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.stopped)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.Poll(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Poll runs one round of dashboard fetches concurrently.
func (w *Watcher) Poll(ctx context.Context) {
	if w.app.Guard.Fired() {
		w.log.Debug("Session expired, skipping poll")
		return
	}
	w.polls.Add(1)

	var g errgroup.Group

	g.Go(func() error {
		st, fetched, err := w.app.Stats.Load(ctx)
		if err != nil {
			f := stats.Describe(err)
			metrics.WatchPollsTotal.WithLabelValues("stats", string(f.Type)).Inc()
			w.log.Warn("Stats poll failed", "type", f.Type, "message", f.Message)
			return err
		}
		if !fetched {
			metrics.WatchPollsTotal.WithLabelValues("stats", "suppressed").Inc()
			return nil
		}
		metrics.WatchPollsTotal.WithLabelValues("stats", "ok").Inc()
		w.log.Info("Admin stats", "total_users", st.TotalUsers, "total_checkins", st.TotalCheckins)
		return nil
	})

	if w.patientID != "" {
		g.Go(func() error {
			res, err := w.app.Predictions.List(ctx, w.patientID, nil, w.windowDays)
			metrics.WatchPollsTotal.WithLabelValues("predictions", string(res.State)).Inc()
			if err != nil {
				return err
			}
			if res.State == domain.PredictionStateOK {
				w.log.Info("Predictions", "patient_id", w.patientID, "count", len(res.Predictions))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		w.log.Debug("Poll finished with errors", "error", err)
	}
}

// Polls returns the number of poll rounds run.
func (w *Watcher) Polls() int64 {
	return w.polls.Load()
}

// Stop stops the poll loop and the health server.
func (w *Watcher) Stop(ctx context.Context) error {
	w.log.Info("Stopping Watcher...")

	if w.cancel != nil {
		w.cancel()
		select {
		case <-w.stopped:
		case <-ctx.Done():
		}
	}

	if err := w.healthServer.Stop(ctx); err != nil {
		w.log.Warn("Failed to stop health server", "error", err)
	}
	return w.app.Close()
}
