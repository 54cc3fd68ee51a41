package localmedia

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/yungbote/moldindex-backend/internal/media"
	"github.com/yungbote/moldindex-backend/internal/platform/apierr"
	"github.com/yungbote/moldindex-backend/internal/platform/logger"
)

// Store keeps media blobs on the local filesystem under Root and hands out URLs
// under URLPrefix, which the router serves back from the same directory.
type Store struct {
	log       *logger.Logger
	root      string
	urlPrefix string
}

var _ media.Store = (*Store)(nil)

func New(log *logger.Logger, root, urlPrefix string) (*Store, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("local media root is empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve local media root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create local media root: %w", err)
	}
	prefix := "/" + strings.Trim(strings.TrimSpace(urlPrefix), "/")
	if prefix == "/" {
		prefix = "/static/uploads"
	}
	storeLog := log.With("service", "LocalMediaStore")
	storeLog.Info("Local media store initialized", "root", abs, "url_prefix", prefix)
	return &Store{log: storeLog, root: abs, urlPrefix: prefix}, nil
}

func (s *Store) Root() string      { return s.root }
func (s *Store) URLPrefix() string { return s.urlPrefix }

func (s *Store) Put(ctx context.Context, ownerID uint, originalName string, blob io.Reader) (string, error) {
	name, err := media.SanitizeFilename(originalName)
	if err != nil {
		return "", err
	}
	key := media.Key(ownerID, name)
	dst, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", apierr.Storage("upload_cancelled", err)
	}

	// Write to a temp file first so a failed copy never leaves a truncated blob behind.
	tmp, err := createTemp(filepath.Dir(dst))
	if err != nil {
		return "", apierr.Storage("upload_failed", fmt.Errorf("create temp file for %q: %w", key, err))
	}
	if _, err := io.Copy(tmp, blob); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", apierr.Storage("upload_failed", fmt.Errorf("write %q: %w", key, err))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", apierr.Storage("upload_failed", fmt.Errorf("close %q: %w", key, err))
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		_ = os.Remove(tmp.Name())
		return "", apierr.Storage("upload_failed", fmt.Errorf("move %q into place: %w", key, err))
	}

	s.log.Debug("Stored media blob", "key", key, "owner_id", ownerID)
	return s.urlPrefix + "/" + key, nil
}

// createTemp makes dir and a temp file in it. Delete removes emptied record directories,
// so a directory that vanishes between the two steps is created again.
func createTemp(dir string) (*os.File, error) {
	var err error
	for attempt := 0; attempt < 10; attempt++ {
		if err = os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		var f *os.File
		if f, err = os.CreateTemp(dir, ".upload-*"); err == nil {
			return f, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return nil, err
}

func (s *Store) Delete(ctx context.Context, url string) error {
	key, err := s.KeyFromURL(url)
	if err != nil {
		return err
	}
	p, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return apierr.Storage("delete_failed", fmt.Errorf("remove %q: %w", key, err))
	}
	// Drop the per-record directory once it is empty; a non-empty dir just stays.
	if dir := filepath.Dir(p); dir != s.root {
		_ = os.Remove(dir)
	}
	return nil
}

func (s *Store) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	key, err := s.KeyFromURL(url)
	if err != nil {
		return nil, err
	}
	return s.OpenKey(key)
}

// OpenKey opens a blob by its storage key.
func (s *Store) OpenKey(key string) (io.ReadCloser, error) {
	p, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apierr.NotFound("media_blob_not_found", "media %q not found", key)
		}
		return nil, apierr.Storage("open_failed", err)
	}
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		_ = f.Close()
		return nil, apierr.NotFound("media_blob_not_found", "media %q not found", key)
	}
	return f, nil
}

// KeyFromURL strips the URL prefix from a stored URL.
func (s *Store) KeyFromURL(url string) (string, error) {
	u := strings.TrimSpace(url)
	if !strings.HasPrefix(u, s.urlPrefix+"/") {
		return "", apierr.Validation("foreign_media_url", "url %q is not managed by the local media store", url)
	}
	return strings.TrimPrefix(u, s.urlPrefix+"/"), nil
}

// resolve maps a key to a path under root, refusing anything that escapes it.
func (s *Store) resolve(key string) (string, error) {
	clean := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	if clean == "/" {
		return "", apierr.Validation("invalid_media_key", "empty media key")
	}
	p := filepath.Join(s.root, filepath.FromSlash(clean))
	rel, err := filepath.Rel(s.root, p)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", apierr.Validation("invalid_media_key", "media key %q escapes the upload root", key)
	}
	return p, nil
}
