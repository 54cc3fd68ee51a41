package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/moldindex-backend/internal/data/repos"
	"github.com/yungbote/moldindex-backend/internal/domain"
	"github.com/yungbote/moldindex-backend/internal/media"
	"github.com/yungbote/moldindex-backend/internal/platform/apierr"
	"github.com/yungbote/moldindex-backend/internal/platform/ctxutil"
	"github.com/yungbote/moldindex-backend/internal/platform/dbctx"
	"github.com/yungbote/moldindex-backend/internal/platform/logger"
)

type MoldService interface {
	Search(dbc dbctx.Context, query string) ([]*domain.MoldRecord, error)
	List(dbc dbctx.Context) ([]*domain.MoldRecord, error)
	Get(dbc dbctx.Context, id uint) (*domain.MoldRecord, error)
	Create(dbc dbctx.Context, fields domain.MoldFields) (*domain.MoldRecord, error)
	Update(dbc dbctx.Context, id uint, fields domain.MoldFields) (*domain.MoldRecord, error)
	Delete(dbc dbctx.Context, id uint) ([]string, error)

	CreateWithMedia(dbc dbctx.Context, fields domain.MoldFields, files []UploadedFileInfo) (*domain.MoldRecord, []UploadResult, error)
	UpdateWithMedia(dbc dbctx.Context, id uint, fields domain.MoldFields, files []UploadedFileInfo) (*domain.MoldRecord, []UploadResult, error)
	AttachMedia(dbc dbctx.Context, id uint, assets []*domain.MediaAsset) ([]*domain.MediaAsset, error)
	UploadMedia(dbc dbctx.Context, id uint, files []UploadedFileInfo) ([]UploadResult, error)
	GetMedia(dbc dbctx.Context, mediaID uint) (*domain.MediaAsset, error)
	OpenMedia(dbc dbctx.Context, mediaID uint) (*domain.MediaAsset, io.ReadCloser, error)
	DeleteMedia(dbc dbctx.Context, mediaID uint) ([]string, error)
}

type moldService struct {
	db        *gorm.DB
	log       *logger.Logger
	molds     repos.MoldRecordRepo
	assets    repos.MediaAssetRepo
	store     media.Store
	policy    media.Policy
	processes domain.ProcessDefaults
}

func NewMoldService(
	db *gorm.DB,
	baseLog *logger.Logger,
	molds repos.MoldRecordRepo,
	assets repos.MediaAssetRepo,
	store media.Store,
	policy media.Policy,
	processes domain.ProcessDefaults,
) MoldService {
	return &moldService{
		db:        db,
		log:       baseLog.With("service", "MoldService"),
		molds:     molds,
		assets:    assets,
		store:     store,
		policy:    policy,
		processes: processes,
	}
}

func (s *moldService) reqLog(ctx context.Context) *logger.Logger {
	return s.log.With(ctxutil.LogFields(ctx)...)
}

func (s *moldService) Search(dbc dbctx.Context, query string) ([]*domain.MoldRecord, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return []*domain.MoldRecord{}, nil
	}
	rows, err := s.molds.SearchExact(dbc, q)
	if err != nil {
		return nil, fmt.Errorf("search mold records: %w", err)
	}
	return rows, nil
}

func (s *moldService) List(dbc dbctx.Context) ([]*domain.MoldRecord, error) {
	rows, err := s.molds.List(dbc)
	if err != nil {
		return nil, fmt.Errorf("list mold records: %w", err)
	}
	return rows, nil
}

func (s *moldService) Get(dbc dbctx.Context, id uint) (*domain.MoldRecord, error) {
	rec, err := s.molds.GetByID(dbc, id)
	if err != nil {
		return nil, fmt.Errorf("load mold record %d: %w", id, err)
	}
	if rec == nil {
		return nil, recordNotFoundErr(id)
	}
	return rec, nil
}

// checkUnique gives a precise message when another record already holds either number.
// The unique indexes remain the authority under concurrent writes.
func (s *moldService) checkUnique(dbc dbctx.Context, fields domain.MoldFields, excludeID uint) error {
	existing, err := s.molds.FindConflicts(dbc, fields.PartNumber, fields.MoldNumber, excludeID)
	if err != nil {
		return fmt.Errorf("check uniqueness: %w", err)
	}
	for _, rec := range existing {
		if rec.PartNumber == fields.PartNumber {
			return apierr.Conflict("duplicate_part_number", "part number %q already exists (record %d)", fields.PartNumber, rec.ID)
		}
		if rec.MoldNumber == fields.MoldNumber {
			return apierr.Conflict("duplicate_mold_number", "mold number %q already exists (record %d)", fields.MoldNumber, rec.ID)
		}
	}
	return nil
}

func (s *moldService) Create(dbc dbctx.Context, fields domain.MoldFields) (*domain.MoldRecord, error) {
	if err := fields.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkUnique(dbc, fields, 0); err != nil {
		return nil, err
	}

	rec := &domain.MoldRecord{ProcessData: datatypes.NewJSONType(s.processes.Seed())}
	rec.Apply(fields)
	if _, err := s.molds.Create(dbc, []*domain.MoldRecord{rec}); err != nil {
		if isUniqueViolation(err) {
			return nil, duplicateRecordErr(fields.PartNumber, fields.MoldNumber)
		}
		return nil, fmt.Errorf("create mold record: %w", err)
	}
	rec.Media = []domain.MediaAsset{}

	s.reqLog(dbc.Ctx).Info("Mold record created", "mold_record_id", rec.ID, "part_number", rec.PartNumber, "mold_number", rec.MoldNumber)
	return rec, nil
}

func (s *moldService) Update(dbc dbctx.Context, id uint, fields domain.MoldFields) (*domain.MoldRecord, error) {
	if _, err := s.Get(dbc, id); err != nil {
		return nil, err
	}
	if err := fields.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkUnique(dbc, fields, id); err != nil {
		return nil, err
	}

	if err := s.molds.UpdateFields(dbc, id, fields); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, recordNotFoundErr(id)
		case isUniqueViolation(err):
			return nil, duplicateRecordErr(fields.PartNumber, fields.MoldNumber)
		}
		return nil, fmt.Errorf("update mold record %d: %w", id, err)
	}

	s.reqLog(dbc.Ctx).Info("Mold record updated", "mold_record_id", id)
	return s.Get(dbc, id)
}

// Delete removes every media blob (best effort), then the media rows and the record in
// one transaction. Blob failures come back as warnings.
func (s *moldService) Delete(dbc dbctx.Context, id uint) ([]string, error) {
	// Media rows imply the record exists; a missing record surfaces from DeleteByID.
	assets, err := s.assets.GetByMoldRecordID(dbc, id)
	if err != nil {
		return nil, fmt.Errorf("load media of record %d: %w", id, err)
	}

	warnings := make([]string, 0)
	for _, asset := range assets {
		if err := s.store.Delete(dbc.Ctx, asset.URL); err != nil {
			s.reqLog(dbc.Ctx).Warn("Failed to delete media blob", "mold_record_id", id, "media_id", asset.ID, "url", asset.URL, "error", err)
			warnings = append(warnings, fmt.Sprintf("could not delete media file %s: %v", asset.OriginalName, err))
		}
	}

	err = dbc.InTx(s.db, func(inner dbctx.Context) error {
		if err := s.assets.DeleteByMoldRecordID(inner, id); err != nil {
			return fmt.Errorf("delete media rows: %w", err)
		}
		if err := s.molds.DeleteByID(inner, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return recordNotFoundErr(id)
			}
			return fmt.Errorf("delete mold record: %w", err)
		}
		return nil
	})
	if err != nil {
		return warnings, err
	}

	s.reqLog(dbc.Ctx).Info("Mold record deleted", "mold_record_id", id, "media_count", len(assets), "warnings", len(warnings))
	return warnings, nil
}

func (s *moldService) CreateWithMedia(dbc dbctx.Context, fields domain.MoldFields, files []UploadedFileInfo) (*domain.MoldRecord, []UploadResult, error) {
	rec, err := s.Create(dbc, fields)
	if err != nil {
		return nil, nil, err
	}
	return s.finishWithMedia(dbc, rec.ID, files)
}

func (s *moldService) UpdateWithMedia(dbc dbctx.Context, id uint, fields domain.MoldFields, files []UploadedFileInfo) (*domain.MoldRecord, []UploadResult, error) {
	if _, err := s.Update(dbc, id, fields); err != nil {
		return nil, nil, err
	}
	return s.finishWithMedia(dbc, id, files)
}

func (s *moldService) finishWithMedia(dbc dbctx.Context, id uint, files []UploadedFileInfo) (*domain.MoldRecord, []UploadResult, error) {
	results, err := s.UploadMedia(dbc, id, files)
	if err != nil {
		return nil, nil, err
	}
	rec, err := s.Get(dbc, id)
	if err != nil {
		return nil, nil, err
	}
	return rec, results, nil
}
