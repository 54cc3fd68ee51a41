package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/moldindex-backend/internal/platform/config"
	"github.com/yungbote/moldindex-backend/internal/platform/logger"
)

func TestNewWithConfigWiresLocalStack(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	t.Setenv("DATABASE_URL", "sqlite://"+filepath.Join(dir, "molds.db"))
	t.Setenv("UPLOAD_ROOT", filepath.Join(dir, "uploads"))
	cfg, err := config.FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}

	a, err := NewWithConfig(context.Background(), cfg, logger.Nop())
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}
	t.Cleanup(a.Close)

	if a.Services.Molds == nil || a.Services.Imports == nil {
		t.Fatalf("services not wired")
	}
	rec := httptest.NewRecorder()
	a.Server.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthcheck: got=%d", rec.Code)
	}
	rec = httptest.NewRecorder()
	a.Server.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/molds", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list: got=%d body=%s", rec.Code, rec.Body.String())
	}
}
