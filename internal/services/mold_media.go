package services

import (
	"fmt"
	"io"
	"strings"

	"github.com/yungbote/moldindex-backend/internal/domain"
	"github.com/yungbote/moldindex-backend/internal/media"
	"github.com/yungbote/moldindex-backend/internal/platform/apierr"
	"github.com/yungbote/moldindex-backend/internal/platform/dbctx"
)

// UploadedFileInfo is one file part of a multipart request.
type UploadedFileInfo struct {
	OriginalName string
	SizeBytes    int64
	Reader       io.Reader
}

type UploadStatus string

const (
	UploadStatusUploaded UploadStatus = "uploaded"
	UploadStatusSkipped  UploadStatus = "skipped"
	UploadStatusFailed   UploadStatus = "failed"
)

// UploadResult reports what happened to one uploaded file.
type UploadResult struct {
	Filename  string           `json:"filename"`
	Status    UploadStatus     `json:"status"`
	MediaID   uint             `json:"media_id,omitempty"`
	MediaType domain.MediaType `json:"media_type,omitempty"`
	URL       string           `json:"url,omitempty"`
	Code      string           `json:"code,omitempty"`
	Message   string           `json:"message,omitempty"`
}

func (s *moldService) AttachMedia(dbc dbctx.Context, id uint, assets []*domain.MediaAsset) ([]*domain.MediaAsset, error) {
	if _, err := s.Get(dbc, id); err != nil {
		return nil, err
	}
	for i, a := range assets {
		if a == nil {
			return nil, fmt.Errorf("AttachMedia: asset at index %d is nil", i)
		}
		if a.MediaType != domain.MediaTypeImage && a.MediaType != domain.MediaTypeVideo {
			return nil, apierr.Validation("invalid_media_type", "media type %q must be image or video", a.MediaType)
		}
		if strings.TrimSpace(a.URL) == "" {
			return nil, apierr.Validation("missing_media_url", "media url is required")
		}
		a.MoldRecordID = id
	}
	out, err := s.assets.Create(dbc, assets)
	if err != nil {
		return nil, fmt.Errorf("attach media to record %d: %w", id, err)
	}
	return out, nil
}

// UploadMedia stores each file and records it against the record. A file that cannot be
// classified or stored is reported and the rest continue. Re-uploading a filename the
// record already has replaces the blob and keeps the existing row.
func (s *moldService) UploadMedia(dbc dbctx.Context, id uint, files []UploadedFileInfo) ([]UploadResult, error) {
	rec, err := s.Get(dbc, id)
	if err != nil {
		return nil, err
	}
	names := newMediaNames(rec.Media)

	results := make([]UploadResult, 0, len(files))
	for _, f := range files {
		if strings.TrimSpace(f.OriginalName) == "" || f.Reader == nil {
			continue
		}
		results = append(results, s.uploadOne(dbc, id, f, names))
	}
	return results, nil
}

// mediaNames tracks a record's assets by the name the client uploaded and by the name
// the blob is stored under.
type mediaNames struct {
	byUpload map[string]domain.MediaAsset
	stored   map[string]struct{}
}

func newMediaNames(assets []domain.MediaAsset) *mediaNames {
	n := &mediaNames{
		byUpload: make(map[string]domain.MediaAsset, len(assets)),
		stored:   make(map[string]struct{}, len(assets)),
	}
	for _, a := range assets {
		n.add(a)
	}
	return n
}

func (n *mediaNames) add(a domain.MediaAsset) {
	upload := a.UploadName
	if upload == "" {
		upload = a.OriginalName
	}
	n.byUpload[upload] = a
	n.stored[a.OriginalName] = struct{}{}
}

// storageName picks the blob name for an upload. A repeat of an uploaded filename reuses
// its asset; a new filename that sanitizes onto a taken name gets a unique one.
func (n *mediaNames) storageName(upload string) (string, *domain.MediaAsset, error) {
	if existing, ok := n.byUpload[upload]; ok {
		return existing.OriginalName, &existing, nil
	}
	name, err := media.StoredName(upload)
	if err != nil {
		return "", nil, err
	}
	for {
		if _, taken := n.stored[name]; !taken {
			return name, nil, nil
		}
		name = media.UniqueName(name)
	}
}

func (s *moldService) uploadOne(dbc dbctx.Context, id uint, f UploadedFileInfo, names *mediaNames) UploadResult {
	res := UploadResult{Filename: f.OriginalName}

	mediaType, ok := s.policy.Classify(f.OriginalName)
	if !ok {
		res.Status = UploadStatusSkipped
		res.Code = "unsupported_file_type"
		res.Message = fmt.Sprintf("%s is not an allowed image or video type", f.OriginalName)
		return res
	}
	name, existing, err := names.storageName(f.OriginalName)
	if err != nil {
		res.Status = UploadStatusSkipped
		res.Code = apierr.CodeOf(err, "invalid_filename")
		res.Message = err.Error()
		return res
	}

	url, err := s.store.Put(dbc.Ctx, id, name, f.Reader)
	if err != nil {
		s.reqLog(dbc.Ctx).Warn("Media upload failed", "mold_record_id", id, "filename", f.OriginalName, "error", err)
		res.Status = UploadStatusFailed
		res.Code = apierr.CodeOf(err, "upload_failed")
		res.Message = fmt.Sprintf("error uploading %s: %v", f.OriginalName, err)
		return res
	}

	if existing != nil && existing.URL == url {
		res.Status = UploadStatusUploaded
		res.MediaID = existing.ID
		res.MediaType = existing.MediaType
		res.URL = url
		return res
	}

	asset := &domain.MediaAsset{URL: url, MediaType: mediaType, OriginalName: name, UploadName: f.OriginalName}
	if _, err := s.AttachMedia(dbc, id, []*domain.MediaAsset{asset}); err != nil {
		s.reqLog(dbc.Ctx).Error("Recording media failed", "mold_record_id", id, "url", url, "error", err)
		if delErr := s.store.Delete(dbc.Ctx, url); delErr != nil {
			s.reqLog(dbc.Ctx).Warn("Failed to remove orphaned media blob", "url", url, "error", delErr)
		}
		res.Status = UploadStatusFailed
		res.Code = "record_media_failed"
		res.Message = fmt.Sprintf("error uploading %s: %v", f.OriginalName, err)
		return res
	}

	names.add(*asset)
	s.reqLog(dbc.Ctx).Info("Media uploaded", "mold_record_id", id, "media_id", asset.ID, "url", url)
	res.Status = UploadStatusUploaded
	res.MediaID = asset.ID
	res.MediaType = mediaType
	res.URL = url
	return res
}

func (s *moldService) GetMedia(dbc dbctx.Context, mediaID uint) (*domain.MediaAsset, error) {
	asset, err := s.assets.GetByID(dbc, mediaID)
	if err != nil {
		return nil, fmt.Errorf("load media %d: %w", mediaID, err)
	}
	if asset == nil {
		return nil, mediaNotFoundErr(mediaID)
	}
	return asset, nil
}

func (s *moldService) OpenMedia(dbc dbctx.Context, mediaID uint) (*domain.MediaAsset, io.ReadCloser, error) {
	asset, err := s.GetMedia(dbc, mediaID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.store.Open(dbc.Ctx, asset.URL)
	if err != nil {
		return nil, nil, err
	}
	return asset, rc, nil
}

// DeleteMedia removes one asset: blob first (best effort), then the row.
func (s *moldService) DeleteMedia(dbc dbctx.Context, mediaID uint) ([]string, error) {
	asset, err := s.GetMedia(dbc, mediaID)
	if err != nil {
		return nil, err
	}

	warnings := make([]string, 0)
	if err := s.store.Delete(dbc.Ctx, asset.URL); err != nil {
		s.reqLog(dbc.Ctx).Warn("Failed to delete media blob", "media_id", mediaID, "url", asset.URL, "error", err)
		warnings = append(warnings, fmt.Sprintf("could not delete media file %s: %v", asset.OriginalName, err))
	}
	if err := s.assets.DeleteByIDs(dbc, []uint{mediaID}); err != nil {
		return warnings, fmt.Errorf("delete media %d: %w", mediaID, err)
	}

	s.reqLog(dbc.Ctx).Info("Media deleted", "media_id", mediaID, "mold_record_id", asset.MoldRecordID)
	return warnings, nil
}
