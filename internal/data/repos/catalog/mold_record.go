package catalog

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/moldindex-backend/internal/domain"
	"github.com/yungbote/moldindex-backend/internal/platform/dbctx"
	"github.com/yungbote/moldindex-backend/internal/platform/logger"
)

type MoldRecordRepo interface {
	Create(dbc dbctx.Context, records []*domain.MoldRecord) ([]*domain.MoldRecord, error)
	GetByID(dbc dbctx.Context, id uint) (*domain.MoldRecord, error)
	List(dbc dbctx.Context) ([]*domain.MoldRecord, error)
	SearchExact(dbc dbctx.Context, query string) ([]*domain.MoldRecord, error)
	FindConflicts(dbc dbctx.Context, partNumber, moldNumber string, excludeID uint) ([]*domain.MoldRecord, error)
	UpdateFields(dbc dbctx.Context, id uint, fields domain.MoldFields) error
	DeleteByID(dbc dbctx.Context, id uint) error
}

type moldRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMoldRecordRepo(db *gorm.DB, baseLog *logger.Logger) MoldRecordRepo {
	repoLog := baseLog.With("repo", "MoldRecordRepo")
	return &moldRecordRepo{db: db, log: repoLog}
}

func preloadMedia(db *gorm.DB) *gorm.DB {
	return db.Order("media_asset.id ASC")
}

func (r *moldRecordRepo) Create(dbc dbctx.Context, records []*domain.MoldRecord) ([]*domain.MoldRecord, error) {
	transaction := dbc.DB(r.db)

	if len(records) == 0 {
		return []*domain.MoldRecord{}, nil
	}

	if err := transaction.WithContext(dbc.Ctx).Omit("Media").Create(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *moldRecordRepo) GetByID(dbc dbctx.Context, id uint) (*domain.MoldRecord, error) {
	transaction := dbc.DB(r.db)
	if id == 0 {
		return nil, nil
	}

	var out domain.MoldRecord
	err := transaction.WithContext(dbc.Ctx).
		Preload("Media", preloadMedia).
		First(&out, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *moldRecordRepo) List(dbc dbctx.Context) ([]*domain.MoldRecord, error) {
	transaction := dbc.DB(r.db)

	var results []*domain.MoldRecord
	if err := transaction.WithContext(dbc.Ctx).
		Preload("Media", preloadMedia).
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// SearchExact matches query against part_number or mold_number exactly.
func (r *moldRecordRepo) SearchExact(dbc dbctx.Context, query string) ([]*domain.MoldRecord, error) {
	transaction := dbc.DB(r.db)

	var results []*domain.MoldRecord
	if query == "" {
		return results, nil
	}

	if err := transaction.WithContext(dbc.Ctx).
		Preload("Media", preloadMedia).
		Where("part_number = ? OR mold_number = ?", query, query).
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// FindConflicts returns the records, other than excludeID, already holding either number.
func (r *moldRecordRepo) FindConflicts(dbc dbctx.Context, partNumber, moldNumber string, excludeID uint) ([]*domain.MoldRecord, error) {
	transaction := dbc.DB(r.db)

	var results []*domain.MoldRecord
	q := transaction.WithContext(dbc.Ctx).
		Where("part_number = ? OR mold_number = ?", partNumber, moldNumber)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Order("id ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *moldRecordRepo) UpdateFields(dbc dbctx.Context, id uint, fields domain.MoldFields) error {
	transaction := dbc.DB(r.db)

	res := transaction.WithContext(dbc.Ctx).
		Model(&domain.MoldRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"part_number":   fields.PartNumber,
			"mold_number":   fields.MoldNumber,
			"cycle_time":    fields.CycleTime,
			"bom":           fields.BOM,
			"num_operators": fields.NumOperators,
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *moldRecordRepo) DeleteByID(dbc dbctx.Context, id uint) error {
	transaction := dbc.DB(r.db)

	res := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Delete(&domain.MoldRecord{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
