package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/moldindex-backend/internal/data/repos/catalog"
	"github.com/yungbote/moldindex-backend/internal/platform/logger"
)

type MoldRecordRepo = catalog.MoldRecordRepo
type MediaAssetRepo = catalog.MediaAssetRepo

func NewMoldRecordRepo(db *gorm.DB, log *logger.Logger) MoldRecordRepo {
	return catalog.NewMoldRecordRepo(db, log)
}

func NewMediaAssetRepo(db *gorm.DB, log *logger.Logger) MediaAssetRepo {
	return catalog.NewMediaAssetRepo(db, log)
}
