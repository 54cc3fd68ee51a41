package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/yungbote/moldindex-backend/internal/data/repos"
	"github.com/yungbote/moldindex-backend/internal/data/repos/testutil"
	"github.com/yungbote/moldindex-backend/internal/domain"
	"github.com/yungbote/moldindex-backend/internal/media"
	"github.com/yungbote/moldindex-backend/internal/platform/apierr"
	"github.com/yungbote/moldindex-backend/internal/platform/dbctx"
	"github.com/yungbote/moldindex-backend/internal/platform/localmedia"
)

type stubStore struct {
	mu        sync.Mutex
	putErr    error
	deleteErr error
	blobs     map[string]string
	deletes   []string
}

func newStubStore() *stubStore { return &stubStore{blobs: map[string]string{}} }

func (s *stubStore) Put(_ context.Context, ownerID uint, name string, blob io.Reader) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return "", s.putErr
	}
	b, _ := io.ReadAll(blob)
	url := "stub://" + media.Key(ownerID, name)
	s.blobs[url] = string(b)
	return url, nil
}

func (s *stubStore) Delete(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, url)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.blobs, url)
	return nil
}

func (s *stubStore) Open(_ context.Context, url string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blobs[url]
	if !ok {
		return nil, apierr.NotFound("media_blob_not_found", "no blob at %s", url)
	}
	return io.NopCloser(strings.NewReader(b)), nil
}

func newMoldService(t *testing.T, store media.Store) (MoldService, *gorm.DB) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	defaults, err := domain.NewProcessDefaults(nil)
	if err != nil {
		t.Fatalf("NewProcessDefaults: %v", err)
	}
	svc := NewMoldService(
		db,
		log,
		repos.NewMoldRecordRepo(db, log),
		repos.NewMediaAssetRepo(db, log),
		store,
		media.NewPolicy(nil),
		defaults,
	)
	return svc, db
}

func pn1() domain.MoldFields {
	return domain.MoldFields{PartNumber: "PN-1", MoldNumber: "MN-1", CycleTime: 12.5, BOM: "resin\ngelcoat", NumOperators: 2}
}

func file(name, body string) UploadedFileInfo {
	return UploadedFileInfo{OriginalName: name, SizeBytes: int64(len(body)), Reader: strings.NewReader(body)}
}

func TestMoldServiceCreateGetRoundTrip(t *testing.T) {
	svc, _ := newMoldService(t, newStubStore())
	dbc := dbctx.Context{Ctx: context.Background()}

	created, err := svc.Create(dbc, pn1())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := svc.Get(dbc, created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Fields() != pn1() {
		t.Fatalf("fields: want=%+v got=%+v", pn1(), got.Fields())
	}
	if len(got.Media) != 0 {
		t.Fatalf("media: want none got=%d", len(got.Media))
	}
	pd := got.ProcessData.Data()
	for _, name := range domain.ProcessNames {
		timing, ok := pd[name]
		if !ok {
			t.Fatalf("process %q missing", name)
		}
		if timing.Standard != domain.DefaultStandardTimes[name] {
			t.Fatalf("process %q standard: want=%v got=%v", name, domain.DefaultStandardTimes[name], timing.Standard)
		}
		if timing.Actual != nil {
			t.Fatalf("process %q actual: want nil got=%v", name, *timing.Actual)
		}
	}

	if _, err := svc.Get(dbc, created.ID+1); apierr.KindOf(err) != apierr.KindNotFound {
		t.Fatalf("Get missing: want not_found got=%v", err)
	}
}

func TestMoldServiceCreateRejects(t *testing.T) {
	svc, _ := newMoldService(t, newStubStore())
	dbc := dbctx.Context{Ctx: context.Background()}
	if _, err := svc.Create(dbc, pn1()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	dupPart := pn1()
	dupPart.MoldNumber = "MN-2"
	if _, err := svc.Create(dbc, dupPart); apierr.CodeOf(err, "") != "duplicate_part_number" {
		t.Fatalf("duplicate part: got=%v", err)
	}
	dupMold := pn1()
	dupMold.PartNumber = "PN-2"
	if _, err := svc.Create(dbc, dupMold); apierr.CodeOf(err, "") != "duplicate_mold_number" {
		t.Fatalf("duplicate mold: got=%v", err)
	}
	invalid := pn1()
	invalid.PartNumber = "PN-3"
	invalid.MoldNumber = "MN-3"
	invalid.CycleTime = -4
	if _, err := svc.Create(dbc, invalid); apierr.KindOf(err) != apierr.KindValidation {
		t.Fatalf("invalid: want validation got=%v", err)
	}
}

func TestMoldServiceConcurrentDuplicateCreate(t *testing.T) {
	svc, _ := newMoldService(t, newStubStore())

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Create(dbctx.Context{Ctx: context.Background()}, pn1())
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case apierr.KindOf(err) != apierr.KindConflict:
			t.Fatalf("unexpected error kind: %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("successful creates: want=1 got=%d", ok)
	}
}

func TestMoldServiceSearch(t *testing.T) {
	svc, _ := newMoldService(t, newStubStore())
	dbc := dbctx.Context{Ctx: context.Background()}
	if _, err := svc.Create(dbc, pn1()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	cases := map[string]int{"": 0, "   ": 0, "PN-1": 1, "  MN-1 ": 1, "PN": 0, "pn-1": 0}
	for q, want := range cases {
		rows, err := svc.Search(dbc, q)
		if err != nil {
			t.Fatalf("Search(%q): %v", q, err)
		}
		if rows == nil || len(rows) != want {
			t.Fatalf("Search(%q): want=%d got=%v", q, want, rows)
		}
	}
}

func TestMoldServiceUpdate(t *testing.T) {
	svc, _ := newMoldService(t, newStubStore())
	dbc := dbctx.Context{Ctx: context.Background()}
	rec, _ := svc.Create(dbc, pn1())
	other, _ := svc.Create(dbc, domain.MoldFields{PartNumber: "PN-2", MoldNumber: "MN-2", CycleTime: 1, BOM: "x", NumOperators: 1})

	edit := pn1()
	edit.CycleTime = 20
	edit.NumOperators = 4
	got, err := svc.Update(dbc, rec.ID, edit)
	if err != nil {
		t.Fatalf("Update keeping own numbers: %v", err)
	}
	if got.CycleTime != 20 || got.NumOperators != 4 {
		t.Fatalf("Update: got=%+v", got.Fields())
	}
	if len(got.ProcessData.Data()) != len(domain.ProcessNames) {
		t.Fatalf("Update must not touch process data")
	}

	steal := edit
	steal.PartNumber = other.PartNumber
	if _, err := svc.Update(dbc, rec.ID, steal); apierr.KindOf(err) != apierr.KindConflict {
		t.Fatalf("Update to taken number: want conflict got=%v", err)
	}
	if _, err := svc.Update(dbc, 999, edit); apierr.KindOf(err) != apierr.KindNotFound {
		t.Fatalf("Update missing: want not_found got=%v", err)
	}
	bad := edit
	bad.BOM = ""
	if _, err := svc.Update(dbc, rec.ID, bad); apierr.CodeOf(err, "") != "missing_bom" {
		t.Fatalf("Update invalid: got=%v", err)
	}
}

func TestMoldServiceCreateWithMediaSkipsExe(t *testing.T) {
	store := newStubStore()
	svc, _ := newMoldService(t, store)
	dbc := dbctx.Context{Ctx: context.Background()}

	rec, results, err := svc.CreateWithMedia(dbc, pn1(), []UploadedFileInfo{
		file("front view.png", "img"),
		file("setup.exe", "MZ"),
		{OriginalName: ""},
	})
	if err != nil {
		t.Fatalf("CreateWithMedia: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results: want=2 got=%+v", results)
	}
	if results[0].Status != UploadStatusUploaded || results[0].MediaType != domain.MediaTypeImage {
		t.Fatalf("png: got=%+v", results[0])
	}
	if results[1].Status != UploadStatusSkipped || results[1].Code != "unsupported_file_type" {
		t.Fatalf("exe: got=%+v", results[1])
	}
	if len(rec.Media) != 1 || rec.Media[0].URL != "stub://record_"+itoa(rec.ID)+"/front_view.png" {
		t.Fatalf("media: got=%+v", rec.Media)
	}
	if len(store.blobs) != 1 {
		t.Fatalf("blobs: want=1 got=%d", len(store.blobs))
	}
}

func TestMoldServiceUploadFailureIsReported(t *testing.T) {
	store := newStubStore()
	store.putErr = apierr.Storage("upload_failed", errors.New("bucket unavailable"))
	svc, _ := newMoldService(t, store)
	dbc := dbctx.Context{Ctx: context.Background()}

	rec, results, err := svc.CreateWithMedia(dbc, pn1(), []UploadedFileInfo{file("a.jpg", "x")})
	if err != nil {
		t.Fatalf("CreateWithMedia: the record must survive a failed upload: %v", err)
	}
	if len(results) != 1 || results[0].Status != UploadStatusFailed || results[0].Code != "upload_failed" {
		t.Fatalf("results: got=%+v", results)
	}
	if !strings.Contains(results[0].Message, "a.jpg") {
		t.Fatalf("message should name the file: %q", results[0].Message)
	}
	if len(rec.Media) != 0 {
		t.Fatalf("no media row expected, got=%d", len(rec.Media))
	}
}

func TestMoldServiceReuploadKeepsOneRow(t *testing.T) {
	svc, _ := newMoldService(t, newStubStore())
	dbc := dbctx.Context{Ctx: context.Background()}
	rec, _ := svc.Create(dbc, pn1())

	for i := 0; i < 2; i++ {
		if _, err := svc.UploadMedia(dbc, rec.ID, []UploadedFileInfo{file("clip.mov", "v")}); err != nil {
			t.Fatalf("UploadMedia: %v", err)
		}
	}
	got, _ := svc.Get(dbc, rec.ID)
	if len(got.Media) != 1 || got.Media[0].MediaType != domain.MediaTypeVideo {
		t.Fatalf("media: got=%+v", got.Media)
	}
	if _, err := svc.UploadMedia(dbc, 999, []UploadedFileInfo{file("clip.mov", "v")}); apierr.KindOf(err) != apierr.KindNotFound {
		t.Fatalf("UploadMedia missing record: got=%v", err)
	}
}

func TestMoldServiceDeleteRemovesMediaAndBlobs(t *testing.T) {
	root := t.TempDir()
	store, err := localmedia.New(testutil.Logger(t), root, "/static/uploads")
	if err != nil {
		t.Fatalf("localmedia.New: %v", err)
	}
	svc, db := newMoldService(t, store)
	dbc := dbctx.Context{Ctx: context.Background()}

	rec, results, err := svc.CreateWithMedia(dbc, pn1(), []UploadedFileInfo{file("a.png", "1"), file("b.mp4", "2")})
	if err != nil {
		t.Fatalf("CreateWithMedia: %v", err)
	}
	for _, r := range results {
		if r.Status != UploadStatusUploaded {
			t.Fatalf("upload: got=%+v", r)
		}
	}
	blobPath := filepath.Join(root, "record_"+itoa(rec.ID), "a.png")
	if _, err := os.Stat(blobPath); err != nil {
		t.Fatalf("blob should exist: %v", err)
	}

	warnings, err := svc.Delete(dbc, rec.ID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("warnings: got=%v", warnings)
	}
	if _, err := os.Stat(blobPath); !os.IsNotExist(err) {
		t.Fatalf("blob should be gone: %v", err)
	}
	var count int64
	db.Model(&domain.MediaAsset{}).Where("mold_record_id = ?", rec.ID).Count(&count)
	if count != 0 {
		t.Fatalf("media rows: want=0 got=%d", count)
	}
	if _, err := svc.Get(dbc, rec.ID); apierr.KindOf(err) != apierr.KindNotFound {
		t.Fatalf("Get after delete: got=%v", err)
	}
}

func TestMoldServiceDeleteWithoutMedia(t *testing.T) {
	store := newStubStore()
	svc, _ := newMoldService(t, store)
	dbc := dbctx.Context{Ctx: context.Background()}
	rec, _ := svc.Create(dbc, pn1())

	if warnings, err := svc.Delete(dbc, rec.ID); err != nil || len(warnings) != 0 {
		t.Fatalf("Delete: warnings=%v err=%v", warnings, err)
	}
	if len(store.deletes) != 0 {
		t.Fatalf("no blob deletes expected, got=%v", store.deletes)
	}
	if _, err := svc.Delete(dbc, rec.ID); apierr.KindOf(err) != apierr.KindNotFound {
		t.Fatalf("Delete twice: got=%v", err)
	}
}

func TestMoldServiceDeleteReportsBlobFailures(t *testing.T) {
	store := newStubStore()
	svc, _ := newMoldService(t, store)
	dbc := dbctx.Context{Ctx: context.Background()}
	rec, _, err := svc.CreateWithMedia(dbc, pn1(), []UploadedFileInfo{file("a.png", "1"), file("b.gif", "2")})
	if err != nil {
		t.Fatalf("CreateWithMedia: %v", err)
	}

	store.deleteErr = apierr.Storage("delete_failed", errors.New("permission denied"))
	warnings, err := svc.Delete(dbc, rec.ID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(store.deletes) != 2 {
		t.Fatalf("every blob delete must be attempted: got=%v", store.deletes)
	}
	if len(warnings) != 2 {
		t.Fatalf("warnings: want=2 got=%v", warnings)
	}
	if _, err := svc.Get(dbc, rec.ID); apierr.KindOf(err) != apierr.KindNotFound {
		t.Fatalf("record should be deleted despite blob failures: %v", err)
	}
}

func TestMoldServiceMediaLifecycle(t *testing.T) {
	store := newStubStore()
	svc, _ := newMoldService(t, store)
	dbc := dbctx.Context{Ctx: context.Background()}
	rec, results, _ := svc.CreateWithMedia(dbc, pn1(), []UploadedFileInfo{file("a.png", "pixels")})
	mediaID := results[0].MediaID

	asset, rc, err := svc.OpenMedia(dbc, mediaID)
	if err != nil {
		t.Fatalf("OpenMedia: %v", err)
	}
	var buf bytes.Buffer
	_, _ = io.Copy(&buf, rc)
	_ = rc.Close()
	if buf.String() != "pixels" || asset.MoldRecordID != rec.ID {
		t.Fatalf("OpenMedia: body=%q asset=%+v", buf.String(), asset)
	}

	if warnings, err := svc.DeleteMedia(dbc, mediaID); err != nil || len(warnings) != 0 {
		t.Fatalf("DeleteMedia: warnings=%v err=%v", warnings, err)
	}
	if _, err := svc.GetMedia(dbc, mediaID); apierr.KindOf(err) != apierr.KindNotFound {
		t.Fatalf("GetMedia after delete: got=%v", err)
	}
	if _, err := svc.DeleteMedia(dbc, mediaID); apierr.KindOf(err) != apierr.KindNotFound {
		t.Fatalf("DeleteMedia twice: got=%v", err)
	}
	if got, _ := svc.Get(dbc, rec.ID); len(got.Media) != 0 {
		t.Fatalf("record media after delete: got=%+v", got.Media)
	}
}

func TestMoldServiceAttachMedia(t *testing.T) {
	svc, _ := newMoldService(t, newStubStore())
	dbc := dbctx.Context{Ctx: context.Background()}
	rec, _ := svc.Create(dbc, pn1())

	out, err := svc.AttachMedia(dbc, rec.ID, []*domain.MediaAsset{
		{URL: "https://cdn.example.com/a.png", MediaType: domain.MediaTypeImage, OriginalName: "a.png"},
	})
	if err != nil || len(out) != 1 || out[0].MoldRecordID != rec.ID {
		t.Fatalf("AttachMedia: out=%+v err=%v", out, err)
	}
	if out, err := svc.AttachMedia(dbc, rec.ID, nil); err != nil || len(out) != 0 {
		t.Fatalf("AttachMedia empty: out=%+v err=%v", out, err)
	}
	if _, err := svc.AttachMedia(dbc, 999, nil); apierr.KindOf(err) != apierr.KindNotFound {
		t.Fatalf("AttachMedia missing record: got=%v", err)
	}
	if _, err := svc.AttachMedia(dbc, rec.ID, []*domain.MediaAsset{{URL: "x", MediaType: "audio"}}); apierr.KindOf(err) != apierr.KindValidation {
		t.Fatalf("AttachMedia bad type: got=%v", err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{gorm.ErrDuplicatedKey, true},
		{fmt.Errorf("create: %w", gorm.ErrDuplicatedKey), true},
		{errors.New("UNIQUE constraint failed: mold_record.part_number"), true},
		{errors.New(`ERROR: duplicate key value violates unique constraint "idx_mold_record_part_number"`), true},
		{&pgconn.PgError{Code: "23505", ConstraintName: "idx_mold_record_mold_number"}, true},
		{&pgconn.PgError{Code: "23503"}, false},
		{errors.New("connection reset by peer"), false},
	}
	for _, tc := range cases {
		if got := isUniqueViolation(tc.err); got != tc.want {
			t.Fatalf("isUniqueViolation(%v): want=%v got=%v", tc.err, tc.want, got)
		}
	}
}

func itoa(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

func TestMoldServiceUploadNonLatinNamesKeepsEveryFile(t *testing.T) {
	store, err := localmedia.New(testutil.Logger(t), t.TempDir(), "/static/uploads")
	if err != nil {
		t.Fatalf("localmedia.New: %v", err)
	}
	svc, _ := newMoldService(t, store)
	dbc := dbctx.Context{Ctx: context.Background()}
	rec, err := svc.Create(dbc, pn1())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	results, err := svc.UploadMedia(dbc, rec.ID, []UploadedFileInfo{file("фото.png", "FIRST"), file("图片.png", "SECOND")})
	if err != nil {
		t.Fatalf("UploadMedia: %v", err)
	}
	if len(results) != 2 || results[0].MediaID == results[1].MediaID || results[0].URL == results[1].URL {
		t.Fatalf("results: got=%+v", results)
	}

	got, _ := svc.Get(dbc, rec.ID)
	if len(got.Media) != 2 {
		t.Fatalf("media rows: want=2 got=%d", len(got.Media))
	}
	bodies := map[string]string{}
	for _, a := range got.Media {
		if media.ContentType(a.URL) != "image/png" {
			t.Fatalf("content type of %s: want=%q got=%q", a.URL, "image/png", media.ContentType(a.URL))
		}
		_, rc, err := svc.OpenMedia(dbc, a.ID)
		if err != nil {
			t.Fatalf("OpenMedia(%d): %v", a.ID, err)
		}
		b, _ := io.ReadAll(rc)
		rc.Close()
		bodies[a.UploadName] = string(b)
	}
	if bodies["фото.png"] != "FIRST" || bodies["图片.png"] != "SECOND" {
		t.Fatalf("bodies: got=%v", bodies)
	}

	// Same client filename again replaces the blob in place.
	again, err := svc.UploadMedia(dbc, rec.ID, []UploadedFileInfo{file("фото.png", "THIRD")})
	if err != nil {
		t.Fatalf("UploadMedia again: %v", err)
	}
	if again[0].MediaID != results[0].MediaID {
		t.Fatalf("re-upload media id: want=%d got=%d", results[0].MediaID, again[0].MediaID)
	}
	got, _ = svc.Get(dbc, rec.ID)
	if len(got.Media) != 2 {
		t.Fatalf("media rows after re-upload: want=2 got=%d", len(got.Media))
	}
}

func TestMoldServiceUploadSanitizedCollisionGetsOwnBlob(t *testing.T) {
	store := newStubStore()
	svc, _ := newMoldService(t, store)
	dbc := dbctx.Context{Ctx: context.Background()}
	rec, _ := svc.Create(dbc, pn1())

	results, err := svc.UploadMedia(dbc, rec.ID, []UploadedFileInfo{file("shot 1.png", "a"), file("shot_1.png", "b")})
	if err != nil {
		t.Fatalf("UploadMedia: %v", err)
	}
	if results[0].URL == results[1].URL {
		t.Fatalf("urls should differ: got=%+v", results)
	}
	if store.blobs[results[0].URL] != "a" || store.blobs[results[1].URL] != "b" {
		t.Fatalf("blobs: got=%v", store.blobs)
	}
	if !strings.HasSuffix(results[1].URL, ".png") {
		t.Fatalf("unique name should keep extension: got=%q", results[1].URL)
	}
}
