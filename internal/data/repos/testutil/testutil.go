package testutil

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	dbpkg "github.com/yungbote/moldindex-backend/internal/data/db"
	"github.com/yungbote/moldindex-backend/internal/domain"
	"github.com/yungbote/moldindex-backend/internal/platform/config"
	"github.com/yungbote/moldindex-backend/internal/platform/logger"
)

var (
	logOnce sync.Once
	logg    *logger.Logger
	logErr  error

	dbSeq atomic.Int64
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	logOnce.Do(func() {
		logg, logErr = logger.New("test")
	})
	if logErr != nil {
		tb.Fatalf("failed to init logger: %v", logErr)
	}
	return logg
}

// DB returns a migrated database private to the test. It is an in-memory SQLite
// database unless TEST_POSTGRES_DSN points at a Postgres instance, in which case the
// tables are truncated on cleanup.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	cfg := config.Database{
		Driver: config.DriverSQLite,
		DSN:    fmt.Sprintf("file:moldtest_%d?mode=memory&cache=shared", dbSeq.Add(1)),
	}
	if dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN")); dsn != "" {
		cfg = config.Database{Driver: config.DriverPostgres, DSN: dsn}
	}

	db, err := dbpkg.Open(cfg, gormLogger.Default.LogMode(gormLogger.Silent))
	if err != nil {
		tb.Fatalf("failed to init test db: %v", err)
	}
	if err := dbpkg.AutoMigrateAll(db); err != nil {
		tb.Fatalf("failed to migrate test db: %v", err)
	}
	tb.Cleanup(func() {
		if cfg.Driver == config.DriverPostgres {
			_ = db.Exec("TRUNCATE media_asset, mold_record RESTART IDENTITY CASCADE").Error
		}
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func Tx(tb testing.TB, db *gorm.DB) *gorm.DB {
	tb.Helper()
	tx := db.Begin()
	if tx.Error != nil {
		tb.Fatalf("begin tx: %v", tx.Error)
	}
	tb.Cleanup(func() {
		_ = tx.Rollback().Error
	})
	return tx
}

func SeedMoldRecord(tb testing.TB, ctx context.Context, tx *gorm.DB, partNumber, moldNumber string) *domain.MoldRecord {
	tb.Helper()
	defaults, _ := domain.NewProcessDefaults(nil)
	rec := &domain.MoldRecord{
		PartNumber:   partNumber,
		MoldNumber:   moldNumber,
		CycleTime:    12.5,
		BOM:          "resin\ngelcoat",
		NumOperators: 2,
		ProcessData:  datatypes.NewJSONType(defaults.Seed()),
	}
	if err := tx.WithContext(ctx).Omit("Media").Create(rec).Error; err != nil {
		tb.Fatalf("seed mold record: %v", err)
	}
	return rec
}

func SeedMediaAsset(tb testing.TB, ctx context.Context, tx *gorm.DB, recordID uint, url string, mediaType domain.MediaType) *domain.MediaAsset {
	tb.Helper()
	a := &domain.MediaAsset{
		MoldRecordID: recordID,
		URL:          url,
		MediaType:    mediaType,
		OriginalName: url[strings.LastIndex(url, "/")+1:],
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed media asset: %v", err)
	}
	return a
}
