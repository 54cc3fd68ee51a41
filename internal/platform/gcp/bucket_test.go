package gcp

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	"github.com/yungbote/moldindex-backend/internal/platform/apierr"
	"github.com/yungbote/moldindex-backend/internal/platform/logger"
)

type fakeBackend struct {
	objects      map[string]string
	contentTypes map[string]string
	public       map[string]bool

	writeErr  error
	publicErr error
	deleteErr error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		objects:      map[string]string{},
		contentTypes: map[string]string{},
		public:       map[string]bool{},
	}
}

func (f *fakeBackend) Write(_ context.Context, key, contentType string, r io.Reader) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.objects[key] = string(b)
	f.contentTypes[key] = contentType
	return nil
}

func (f *fakeBackend) MakePublic(_ context.Context, key string) error {
	if f.publicErr != nil {
		return f.publicErr
	}
	f.public[key] = true
	return nil
}

func (f *fakeBackend) Delete(_ context.Context, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.objects[key]; !ok {
		return storage.ErrObjectNotExist
	}
	delete(f.objects, key)
	return nil
}

func (f *fakeBackend) Open(_ context.Context, key string) (io.ReadCloser, error) {
	body, ok := f.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotExist
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func testStore(backend objectBackend, publicRead bool) *BucketStore {
	return newBucketStore(logger.Nop(), ObjectStorageConfig{
		Mode:       ObjectStorageModeGCS,
		Bucket:     "mold-media",
		PublicRead: publicRead,
	}, backend)
}

func TestBucketStorePutOpenDelete(t *testing.T) {
	ctx := context.Background()
	fb := newFakeBackend()
	bs := testStore(fb, true)

	u, err := bs.Put(ctx, 5, "Side View.mov", strings.NewReader("video"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if u != "https://storage.googleapis.com/mold-media/record_5/Side_View.mov" {
		t.Fatalf("Put url: got=%q", u)
	}
	if !fb.public["record_5/Side_View.mov"] {
		t.Fatalf("object should be publicly readable")
	}
	if ct := fb.contentTypes["record_5/Side_View.mov"]; ct != "video/quicktime" {
		t.Fatalf("content type: got=%q", ct)
	}

	rc, err := bs.Open(ctx, u)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "video" {
		t.Fatalf("Open body: got=%q", body)
	}

	if err := bs.Delete(ctx, u); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := bs.Delete(ctx, u); err != nil {
		t.Fatalf("Delete of missing object must be a no-op: %v", err)
	}
	if _, err := bs.Open(ctx, u); apierr.KindOf(err) != apierr.KindNotFound {
		t.Fatalf("Open after delete: want not_found got=%v", err)
	}
}

func TestBucketStorePutWithoutPublicRead(t *testing.T) {
	fb := newFakeBackend()
	bs := testStore(fb, false)
	if _, err := bs.Put(context.Background(), 1, "a.png", strings.NewReader("x")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if fb.public["record_1/a.png"] {
		t.Fatalf("public read should not be granted")
	}
}

func TestBucketStorePutWriteFailure(t *testing.T) {
	fb := newFakeBackend()
	fb.writeErr = errors.New("quota exceeded")
	bs := testStore(fb, true)

	_, err := bs.Put(context.Background(), 1, "a.png", strings.NewReader("x"))
	if apierr.KindOf(err) != apierr.KindStorage {
		t.Fatalf("Put: want storage error got=%v", err)
	}
}

func TestBucketStorePutPublicFailureRemovesObject(t *testing.T) {
	fb := newFakeBackend()
	fb.publicErr = &googleapi.Error{Code: http.StatusBadRequest, Message: "uniform bucket-level access is enabled"}
	bs := testStore(fb, true)

	_, err := bs.Put(context.Background(), 1, "a.png", strings.NewReader("x"))
	if apierr.CodeOf(err, "") != "make_public_failed" {
		t.Fatalf("Put: want make_public_failed got=%v", err)
	}
	if _, ok := fb.objects["record_1/a.png"]; ok {
		t.Fatalf("object should be removed after public-read failure")
	}
}

func TestBucketStoreDeleteNotFoundAPIError(t *testing.T) {
	fb := newFakeBackend()
	fb.deleteErr = &googleapi.Error{Code: http.StatusNotFound}
	bs := testStore(fb, true)
	if err := bs.Delete(context.Background(), "https://storage.googleapis.com/mold-media/record_1/a.png"); err != nil {
		t.Fatalf("Delete: 404 should be a no-op, got=%v", err)
	}

	fb.deleteErr = &googleapi.Error{Code: http.StatusForbidden}
	err := bs.Delete(context.Background(), "https://storage.googleapis.com/mold-media/record_1/a.png")
	if apierr.KindOf(err) != apierr.KindStorage {
		t.Fatalf("Delete: want storage error got=%v", err)
	}
}
