package catalog

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yungbote/moldindex-backend/internal/domain"
	"github.com/yungbote/moldindex-backend/internal/platform/dbctx"
	"github.com/yungbote/moldindex-backend/internal/platform/logger"
)

type MediaAssetRepo interface {
	Create(dbc dbctx.Context, assets []*domain.MediaAsset) ([]*domain.MediaAsset, error)
	GetByID(dbc dbctx.Context, id uint) (*domain.MediaAsset, error)
	GetByMoldRecordID(dbc dbctx.Context, recordID uint) ([]*domain.MediaAsset, error)
	DeleteByIDs(dbc dbctx.Context, ids []uint) error
	DeleteByMoldRecordID(dbc dbctx.Context, recordID uint) error
}

type mediaAssetRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMediaAssetRepo(db *gorm.DB, baseLog *logger.Logger) MediaAssetRepo {
	repoLog := baseLog.With("repo", "MediaAssetRepo")
	return &mediaAssetRepo{db: db, log: repoLog}
}

func (r *mediaAssetRepo) Create(dbc dbctx.Context, assets []*domain.MediaAsset) ([]*domain.MediaAsset, error) {
	transaction := dbc.DB(r.db)

	if len(assets) == 0 {
		return []*domain.MediaAsset{}, nil
	}

	if err := transaction.WithContext(dbc.Ctx).Create(&assets).Error; err != nil {
		return nil, err
	}
	return assets, nil
}

func (r *mediaAssetRepo) GetByID(dbc dbctx.Context, id uint) (*domain.MediaAsset, error) {
	transaction := dbc.DB(r.db)
	if id == 0 {
		return nil, nil
	}

	var out domain.MediaAsset
	if err := transaction.WithContext(dbc.Ctx).First(&out, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func (r *mediaAssetRepo) GetByMoldRecordID(dbc dbctx.Context, recordID uint) ([]*domain.MediaAsset, error) {
	transaction := dbc.DB(r.db)

	var results []*domain.MediaAsset
	if err := transaction.WithContext(dbc.Ctx).
		Where("mold_record_id = ?", recordID).
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *mediaAssetRepo) DeleteByIDs(dbc dbctx.Context, ids []uint) error {
	transaction := dbc.DB(r.db)

	if len(ids) == 0 {
		return nil
	}

	return transaction.WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Delete(&domain.MediaAsset{}).Error
}

func (r *mediaAssetRepo) DeleteByMoldRecordID(dbc dbctx.Context, recordID uint) error {
	transaction := dbc.DB(r.db)

	return transaction.WithContext(dbc.Ctx).
		Where("mold_record_id = ?", recordID).
		Delete(&domain.MediaAsset{}).Error
}
