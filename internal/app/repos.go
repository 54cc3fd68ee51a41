package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/moldindex-backend/internal/data/repos"
	"github.com/yungbote/moldindex-backend/internal/platform/logger"
)

type Repos struct {
	MoldRecord repos.MoldRecordRepo
	MediaAsset repos.MediaAssetRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		MoldRecord: repos.NewMoldRecordRepo(db, log),
		MediaAsset: repos.NewMediaAssetRepo(db, log),
	}
}
