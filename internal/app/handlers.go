package app

import (
	httpserver "github.com/yungbote/moldindex-backend/internal/http"
	httpH "github.com/yungbote/moldindex-backend/internal/http/handlers"
	"github.com/yungbote/moldindex-backend/internal/platform/config"
	"github.com/yungbote/moldindex-backend/internal/platform/localmedia"
	"github.com/yungbote/moldindex-backend/internal/platform/logger"
	"github.com/yungbote/moldindex-backend/internal/services"
)

type Handlers struct {
	Health *httpH.HealthHandler
	Mold   *httpH.MoldHandler
	Media  *httpH.MediaHandler
	Import *httpH.ImportHandler
}

func wireHandlers(log *logger.Logger, cfg config.Config, s Services, local *localmedia.Store, db httpH.Pinger) Handlers {
	log.Info("Wiring handlers...")
	var opener httpH.KeyOpener
	if local != nil {
		opener = local
	}
	return Handlers{
		Health: httpH.NewHealthHandler(db),
		Mold:   httpH.NewMoldHandler(log, s.Molds, cfg.MaxUploadBytes),
		Media:  httpH.NewMediaHandler(log, s.Molds, opener),
		Import: httpH.NewImportHandler(log, s.Imports, services.ImportPolicy(cfg.ImportPolicy), cfg.MaxUploadBytes),
	}
}

func wireRouterConfig(log *logger.Logger, cfg config.Config, h Handlers, local *localmedia.Store) httpserver.RouterConfig {
	rc := httpserver.RouterConfig{
		Log:           log,
		ServiceName:   cfg.ServiceName,
		CORSOrigins:   cfg.CORSAllowedOrigins,
		HealthHandler: h.Health,
		MoldHandler:   h.Mold,
		MediaHandler:  h.Media,
		ImportHandler: h.Import,
	}
	if local != nil {
		rc.UploadURLPrefix = local.URLPrefix()
	}
	return rc
}
