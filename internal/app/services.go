package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/moldindex-backend/internal/domain"
	"github.com/yungbote/moldindex-backend/internal/media"
	"github.com/yungbote/moldindex-backend/internal/platform/config"
	"github.com/yungbote/moldindex-backend/internal/platform/logger"
	"github.com/yungbote/moldindex-backend/internal/services"
)

type Services struct {
	Molds   services.MoldService
	Imports services.ImportService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg config.Config, r Repos, store media.Store, processes domain.ProcessDefaults) Services {
	log.Info("Wiring services...")
	return Services{
		Molds:   services.NewMoldService(db, log, r.MoldRecord, r.MediaAsset, store, media.NewPolicy(cfg.AllowedExtensions), processes),
		Imports: services.NewImportService(db, log, r.MoldRecord, processes),
	}
}
