package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/yungbote/moldindex-backend/internal/media"
	"github.com/yungbote/moldindex-backend/internal/platform/apierr"
	"github.com/yungbote/moldindex-backend/internal/platform/logger"
)

// objectBackend is the slice of the GCS API the bucket store needs.
type objectBackend interface {
	Write(ctx context.Context, key, contentType string, r io.Reader) error
	MakePublic(ctx context.Context, key string) error
	Delete(ctx context.Context, key string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// BucketStore is the cloud media.Store: one bucket, objects keyed record_{id}/{name}.
type BucketStore struct {
	log           *logger.Logger
	backend       objectBackend
	bucket        string
	mode          ObjectStorageMode
	emulatorHost  string
	publicBaseURL string
	publicRead    bool
	closeFn       func() error
}

var _ media.Store = (*BucketStore)(nil)

func NewBucketStore(log *logger.Logger, cfg ObjectStorageConfig) (*BucketStore, error) {
	if err := ValidateObjectStorageConfig(cfg); err != nil {
		return nil, fmt.Errorf("validate object storage config: %w", err)
	}
	client, err := newStorageClientForMode(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	store := newBucketStore(log, cfg, &gcsBackend{bucket: client.Bucket(strings.TrimSpace(cfg.Bucket))})
	store.closeFn = client.Close
	store.log.Info(
		"Object storage initialized",
		"mode", cfg.Mode,
		"bucket", store.bucket,
		"emulator_host", store.emulatorHost,
		"public_base_url", store.publicBaseURL,
		"public_read", store.publicRead,
	)
	return store, nil
}

func newBucketStore(log *logger.Logger, cfg ObjectStorageConfig, backend objectBackend) *BucketStore {
	return &BucketStore{
		log:           log.With("service", "BucketStore"),
		backend:       backend,
		bucket:        strings.TrimSpace(cfg.Bucket),
		mode:          cfg.Mode,
		emulatorHost:  strings.TrimRight(strings.TrimSpace(cfg.EmulatorHost), "/"),
		publicBaseURL: strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/"),
		publicRead:    cfg.PublicRead,
	}
}

func newStorageClientForMode(ctx context.Context, cfg ObjectStorageConfig) (*storage.Client, error) {
	switch cfg.Mode {
	case ObjectStorageModeGCS:
		return storage.NewClient(ctx, cfg.Credentials.clientOptions()...)
	case ObjectStorageModeGCSEmulator:
		_ = os.Setenv("STORAGE_EMULATOR_HOST", strings.TrimRight(strings.TrimSpace(cfg.EmulatorHost), "/"))
		return storage.NewClient(ctx, option.WithoutAuthentication())
	default:
		return nil, &ObjectStorageConfigError{Code: ObjectStorageConfigErrorInvalidMode, Value: string(cfg.Mode)}
	}
}

// Close releases the storage client.
func (bs *BucketStore) Close() error {
	if bs.closeFn == nil {
		return nil
	}
	return bs.closeFn()
}

func (bs *BucketStore) Put(ctx context.Context, ownerID uint, originalName string, blob io.Reader) (string, error) {
	name, err := media.SanitizeFilename(originalName)
	if err != nil {
		return "", err
	}
	key := media.Key(ownerID, name)

	if err := bs.backend.Write(ctx, key, media.ContentType(name), blob); err != nil {
		return "", apierr.Storage("upload_failed", fmt.Errorf("upload %q to bucket %q: %w", key, bs.bucket, err))
	}
	if bs.publicRead {
		if err := bs.backend.MakePublic(ctx, key); err != nil {
			// A private object behind a public URL is useless to the catalog.
			if delErr := bs.backend.Delete(ctx, key); delErr != nil && !isObjectMissing(delErr) {
				bs.log.Warn("Failed to remove object after public-read grant failed", "key", key, "error", delErr)
			}
			return "", apierr.Storage("make_public_failed", fmt.Errorf("grant public read on %q: %w", key, err))
		}
	}
	return bs.PublicURL(key), nil
}

func (bs *BucketStore) Delete(ctx context.Context, rawURL string) error {
	key, err := bs.KeyFromURL(rawURL)
	if err != nil {
		return err
	}
	if err := bs.backend.Delete(ctx, key); err != nil {
		if isObjectMissing(err) {
			return nil
		}
		return apierr.Storage("delete_failed", fmt.Errorf("delete %q in bucket %q: %w", key, bs.bucket, err))
	}
	return nil
}

func (bs *BucketStore) Open(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	key, err := bs.KeyFromURL(rawURL)
	if err != nil {
		return nil, err
	}
	rc, err := bs.backend.Open(ctx, key)
	if err != nil {
		if isObjectMissing(err) {
			return nil, apierr.NotFound("media_blob_not_found", "media %q not found", key)
		}
		return nil, apierr.Storage("open_failed", fmt.Errorf("open %q in bucket %q: %w", key, bs.bucket, err))
	}
	return rc, nil
}

// PublicURL is the address a browser can fetch key from.
func (bs *BucketStore) PublicURL(key string) string {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if bs.mode == ObjectStorageModeGCSEmulator {
		base := bs.publicBaseURL
		if base == "" {
			base = bs.emulatorHost
		}
		return fmt.Sprintf("%s/storage/v1/b/%s/o/%s?alt=media", base, url.PathEscape(bs.bucket), url.PathEscape(key))
	}
	if bs.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", bs.publicBaseURL, bs.bucket, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bs.bucket, key)
}

// KeyFromURL recovers the object key from any URL PublicURL can produce, or a gs:// URI.
func (bs *BucketStore) KeyFromURL(rawURL string) (string, error) {
	raw := strings.TrimSpace(rawURL)
	foreign := apierr.Validation("foreign_media_url", "url %q is not in bucket %q", rawURL, bs.bucket)

	if strings.HasPrefix(raw, "gs://") {
		rest := strings.TrimPrefix(raw, "gs://")
		if key, ok := strings.CutPrefix(rest, bs.bucket+"/"); ok && key != "" {
			return key, nil
		}
		return "", foreign
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", foreign
	}
	// Emulator / JSON API media links: /storage/v1/b/{bucket}/o/{key}
	if marker := "/storage/v1/b/" + url.PathEscape(bs.bucket) + "/o/"; strings.Contains(u.EscapedPath(), marker) {
		escaped := u.EscapedPath()[strings.Index(u.EscapedPath(), marker)+len(marker):]
		key, err := url.PathUnescape(escaped)
		if err != nil || key == "" {
			return "", foreign
		}
		return key, nil
	}
	if key, ok := strings.CutPrefix(u.Path, "/"+bs.bucket+"/"); ok && key != "" {
		return key, nil
	}
	return "", foreign
}

func isObjectMissing(err error) bool {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return true
	}
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}

type gcsBackend struct {
	bucket *storage.BucketHandle
}

func (g *gcsBackend) Write(ctx context.Context, key, contentType string, r io.Reader) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := g.bucket.Object(key).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return nil
}

func (g *gcsBackend) MakePublic(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return g.bucket.Object(key).ACL().Set(ctx, storage.AllUsers, storage.RoleReader)
}

func (g *gcsBackend) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return g.bucket.Object(key).Delete(ctx)
}

// readCloserWithCancel keeps the read context alive until the caller closes the body.
type readCloserWithCancel struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (r *readCloserWithCancel) Close() error {
	err := r.ReadCloser.Close()
	if r.cancel != nil {
		r.cancel()
	}
	return err
}

func (g *gcsBackend) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	ctx2, cancel := context.WithTimeout(ctx, 2*time.Minute)
	r, err := g.bucket.Object(key).NewReader(ctx2)
	if err != nil {
		cancel()
		return nil, err
	}
	return &readCloserWithCancel{ReadCloser: r, cancel: cancel}, nil
}
