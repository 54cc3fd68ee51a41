package main

import (
	"context"
	"sync"

	"github.com/yungbote/moldindex-backend/internal/app"
	"github.com/yungbote/moldindex-backend/internal/platform/config"
	"github.com/yungbote/moldindex-backend/internal/platform/logger"
)

// commandContext builds the app once per invocation; commands use its services
// directly, without the HTTP server.
type commandContext struct {
	jsonOutput bool

	appOnce sync.Once
	app     *app.App
	appErr  error
}

func (c *commandContext) ensureApp(ctx context.Context) (*app.App, error) {
	c.appOnce.Do(func() {
		cfg, err := config.Load()
		if err != nil {
			c.appErr = err
			return
		}
		log, err := logger.New(cfg.LogMode)
		if err != nil {
			c.appErr = err
			return
		}
		c.app, c.appErr = app.NewWithConfig(ctx, cfg, log.With("component", "moldctl"))
	})
	return c.app, c.appErr
}

// withApp runs fn against the app and closes it afterwards.
func (c *commandContext) withApp(ctx context.Context, fn func(*app.App) error) error {
	a, err := c.ensureApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
