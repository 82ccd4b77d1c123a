package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lucasvrm/previso/internal/core/config"
	"github.com/lucasvrm/previso/internal/dashboard/prediction"
	"github.com/lucasvrm/previso/internal/dashboard/recency"
	"github.com/lucasvrm/previso/internal/dashboard/stats"
	"github.com/lucasvrm/previso/internal/infra/apiclient"
	"github.com/lucasvrm/previso/internal/infra/apiclient/transport"
	redisclient "github.com/lucasvrm/previso/internal/infra/redis"
	"github.com/lucasvrm/previso/internal/infra/session"
	"github.com/lucasvrm/previso/internal/infra/storage/postgres"
)

// App holds the process-wide client stack built from configuration.
type App struct {
	Config      *config.AppConfig
	Transport   *transport.HTTP
	Client      *apiclient.Client
	Guard       *session.ExpiryGuard
	Sessions    session.Provider
	SessionRepo *postgres.SessionRepo // nil without a database
	Suppressor  *recency.Suppressor
	Stats       *stats.Service
	Predictions *prediction.Service

	db    *postgres.DB
	redis *redisclient.Client
}

// NewApp wires storage, sessions, the API client and the dashboard
// consumers. nav is told when the session expires.
func NewApp(ctx context.Context, cfg *config.AppConfig, nav session.Navigator) (*App, error) {
	app := &App{Config: cfg}

	// 1. Session store
	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		app.db = db
		app.SessionRepo = postgres.NewSessionRepo(db, cfg.Session.Profile)
		slog.Debug("Using PostgreSQL session store", "profile", cfg.Session.Profile)
	}

	switch {
	case cfg.Session.Token != "":
		app.Sessions = session.Static{Token: cfg.Session.Token}
	case app.SessionRepo != nil:
		app.Sessions = app.SessionRepo
	default:
		app.Sessions = session.NewMemory("")
	}

	// 2. Recency store
	var store recency.Store
	if cfg.Redis.URL != "" {
		rc, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("Redis unavailable, using in-memory recency store", "error", err)
		} else {
			app.redis = rc
			store = redisclient.NewRecencyStore(rc, cfg.Recency.TTL)
		}
	}
	app.Suppressor = recency.NewSuppressor(store, cfg.Recency.Cooldown)

	// 3. API client
	app.Transport = transport.NewHTTP(cfg.API.Timeout)
	app.Guard = session.NewExpiryGuard(app.Sessions, nav)
	app.Client = apiclient.New(apiclient.Config{
		BaseURL:     cfg.API.BaseURL,
		Timeout:     cfg.API.Timeout,
		RequireAuth: cfg.API.AuthRequired(),
		Retry:       cfg.Retry,
	}, app.Transport, app.Sessions, app.Guard)

	// 4. Consumers
	app.Stats = stats.NewService(app.Client, app.Suppressor)
	app.Predictions = prediction.NewService(app.Client)

	return app, nil
}

// DB returns the session database, or nil.
func (a *App) DB() *postgres.DB {
	return a.db
}

// Redis returns the shared recency client, or nil.
func (a *App) Redis() *redisclient.Client {
	return a.redis
}

// Close releases connections.
func (a *App) Close() error {
	var errs []error
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close db: %w", err))
		}
	}
	if a.Transport != nil {
		a.Transport.Close()
	}
	return errors.Join(errs...)
}
