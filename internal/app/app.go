package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"gorm.io/gorm"

	"github.com/yungbote/moldindex-backend/internal/data/db"
	httpserver "github.com/yungbote/moldindex-backend/internal/http"
	"github.com/yungbote/moldindex-backend/internal/media"
	"github.com/yungbote/moldindex-backend/internal/observability"
	"github.com/yungbote/moldindex-backend/internal/platform/config"
	"github.com/yungbote/moldindex-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	Cfg      config.Config
	DB       *gorm.DB
	Store    media.Store
	Repos    Repos
	Services Services
	Server   *httpserver.Server

	database     *db.DatabaseService
	otelShutdown func(context.Context) error
}

// New loads configuration from the environment and builds the app.
func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	a, err := NewWithConfig(ctx, cfg, log)
	if err != nil {
		log.Sync()
		return nil, err
	}
	return a, nil
}

func NewWithConfig(ctx context.Context, cfg config.Config, log *logger.Logger) (*App, error) {
	a := &App{Log: log, Cfg: cfg}

	shutdown, err := observability.InitOTel(ctx, log, observability.OtelConfigFrom(cfg))
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.otelShutdown = shutdown

	database, err := db.NewDatabaseService(log, cfg.Database())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init database: %w", err)
	}
	a.database = database
	if err := database.AutoMigrateAll(); err != nil {
		a.Close()
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	a.DB = database.DB()

	store, local, err := resolveMediaStore(log, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Store = store

	processes, err := config.LoadProcessDefaults(cfg.ProcessDefaultsFile)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("process defaults: %w", err)
	}

	a.Repos = wireRepos(a.DB, log)
	a.Services = wireServices(a.DB, log, cfg, a.Repos, store, processes)

	sqlDB, err := a.DB.DB()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("sql db: %w", err)
	}
	handlers := wireHandlers(log, cfg, a.Services, local, sqlDB)
	a.Server = httpserver.NewServer(log, cfg.Addr(), wireRouterConfig(log, cfg, handlers, local))
	return a, nil
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Server.Run(ctx)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	var errs []error
	if a.otelShutdown != nil {
		errs = append(errs, a.otelShutdown(context.Background()))
	}
	if c, ok := a.Store.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	if a.database != nil {
		errs = append(errs, a.database.Close())
	}
	if err := errors.Join(errs...); err != nil && a.Log != nil {
		a.Log.Warn("Shutdown finished with errors", "error", err)
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
