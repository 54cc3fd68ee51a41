package app

import (
	"errors"
	"fmt"

	"github.com/yungbote/moldindex-backend/internal/media"
	"github.com/yungbote/moldindex-backend/internal/platform/config"
	"github.com/yungbote/moldindex-backend/internal/platform/gcp"
	"github.com/yungbote/moldindex-backend/internal/platform/localmedia"
	"github.com/yungbote/moldindex-backend/internal/platform/logger"
)

var newBucketStore = func(log *logger.Logger, cfg gcp.ObjectStorageConfig) (media.Store, error) {
	return gcp.NewBucketStore(log, cfg)
}

type StorageProviderBootstrapErrorCode string

const (
	StorageProviderBootstrapErrorInvalidMode         StorageProviderBootstrapErrorCode = "invalid_mode"
	StorageProviderBootstrapErrorMissingBucket       StorageProviderBootstrapErrorCode = "missing_bucket"
	StorageProviderBootstrapErrorMissingEmulatorHost StorageProviderBootstrapErrorCode = "missing_emulator_host"
	StorageProviderBootstrapErrorInvalidEmulatorHost StorageProviderBootstrapErrorCode = "invalid_emulator_host"
	StorageProviderBootstrapErrorInvalidPublicURL    StorageProviderBootstrapErrorCode = "invalid_public_base_url"
	StorageProviderBootstrapErrorLocalRootFailed     StorageProviderBootstrapErrorCode = "local_root_failed"
	StorageProviderBootstrapErrorConnectFailed       StorageProviderBootstrapErrorCode = "connect_failed"
)

type StorageProviderBootstrapError struct {
	Code  StorageProviderBootstrapErrorCode
	Mode  config.MediaStorage
	Cause error
}

func (e *StorageProviderBootstrapError) Error() string {
	if e == nil {
		return "media storage bootstrap failed"
	}
	return fmt.Sprintf("media storage bootstrap failed (code=%s mode=%q): %v", e.Code, e.Mode, e.Cause)
}

func (e *StorageProviderBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// resolveMediaStore picks the media backend. The local store is also returned on its
// own so the router can serve its files.
func resolveMediaStore(log *logger.Logger, cfg config.Config) (media.Store, *localmedia.Store, error) {
	log.Info("Selecting media storage provider", "mode", cfg.MediaStorage)

	switch cfg.MediaStorage {
	case config.MediaStorageLocal:
		store, err := localmedia.New(log, cfg.UploadRoot, cfg.UploadURLPrefix)
		if err != nil {
			bootErr := &StorageProviderBootstrapError{Code: StorageProviderBootstrapErrorLocalRootFailed, Mode: cfg.MediaStorage, Cause: err}
			log.Error("Media storage bootstrap failed", "mode", cfg.MediaStorage, "upload_root", cfg.UploadRoot, "error_code", bootErr.Code, "error", err)
			return nil, nil, bootErr
		}
		return store, store, nil

	case config.MediaStorageGCS, config.MediaStorageGCSEmulator:
		storageCfg := cfg.ObjectStorage()
		store, err := newBucketStore(log, storageCfg)
		if err != nil {
			classified := classifyStorageProviderBootstrapError(cfg.MediaStorage, err)
			log.Error(
				"Media storage bootstrap failed",
				"mode", cfg.MediaStorage,
				"bucket", storageCfg.Bucket,
				"emulator_host", storageCfg.EmulatorHost,
				"error_code", classified.Code,
				"error", err,
			)
			return nil, nil, classified
		}
		return store, nil, nil

	default:
		return nil, nil, &StorageProviderBootstrapError{
			Code:  StorageProviderBootstrapErrorInvalidMode,
			Mode:  cfg.MediaStorage,
			Cause: fmt.Errorf("unsupported media storage %q", cfg.MediaStorage),
		}
	}
}

func classifyStorageProviderBootstrapError(mode config.MediaStorage, err error) *StorageProviderBootstrapError {
	code := StorageProviderBootstrapErrorConnectFailed
	var cfgErr *gcp.ObjectStorageConfigError
	if errors.As(err, &cfgErr) {
		switch cfgErr.Code {
		case gcp.ObjectStorageConfigErrorInvalidMode:
			code = StorageProviderBootstrapErrorInvalidMode
		case gcp.ObjectStorageConfigErrorMissingBucket:
			code = StorageProviderBootstrapErrorMissingBucket
		case gcp.ObjectStorageConfigErrorMissingEmulatorHost:
			code = StorageProviderBootstrapErrorMissingEmulatorHost
		case gcp.ObjectStorageConfigErrorInvalidEmulatorHost:
			code = StorageProviderBootstrapErrorInvalidEmulatorHost
		case gcp.ObjectStorageConfigErrorInvalidPublicBaseURL:
			code = StorageProviderBootstrapErrorInvalidPublicURL
		}
	}
	return &StorageProviderBootstrapError{Code: code, Mode: mode, Cause: err}
}
