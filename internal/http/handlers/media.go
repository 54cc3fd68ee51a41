package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/moldindex-backend/internal/http/response"
	"github.com/yungbote/moldindex-backend/internal/media"
	"github.com/yungbote/moldindex-backend/internal/platform/dbctx"
	"github.com/yungbote/moldindex-backend/internal/platform/logger"
	"github.com/yungbote/moldindex-backend/internal/services"
)

// KeyOpener reads blobs by storage key. The local media store implements it.
type KeyOpener interface {
	OpenKey(key string) (io.ReadCloser, error)
}

type MediaHandler struct {
	log   *logger.Logger
	molds services.MoldService
	local KeyOpener
}

// NewMediaHandler builds the media handler. local may be nil when media lives in a bucket.
func NewMediaHandler(log *logger.Logger, molds services.MoldService, local KeyOpener) *MediaHandler {
	return &MediaHandler{
		log:   log.With("handler", "MediaHandler"),
		molds: molds,
		local: local,
	}
}

// GET /api/media/:id/raw
func (h *MediaHandler) Raw(c *gin.Context) {
	id, ok := parseID(c, "invalid_media_id")
	if !ok {
		return
	}
	asset, rc, err := h.molds.OpenMedia(dbctx.Context{Ctx: c.Request.Context()}, id)
	if err != nil {
		response.RespondAPIError(c, "open_media_failed", err)
		return
	}
	defer rc.Close()

	name := asset.OriginalName
	if name == "" {
		name = asset.URL[strings.LastIndex(asset.URL, "/")+1:]
	}
	c.DataFromReader(http.StatusOK, -1, media.ContentType(name), rc, map[string]string{
		"Cache-Control": "private, max-age=300",
	})
}

// DELETE /api/media/:id
func (h *MediaHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "invalid_media_id")
	if !ok {
		return
	}
	warnings, err := h.molds.DeleteMedia(dbctx.Context{Ctx: c.Request.Context()}, id)
	if err != nil {
		response.RespondAPIError(c, "delete_media_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": id, "warnings": warnings})
}

// GET {upload_url_prefix}/*path
func (h *MediaHandler) ServeLocal(c *gin.Context) {
	if h.local == nil {
		c.Status(http.StatusNotFound)
		return
	}
	key := strings.TrimPrefix(c.Param("path"), "/")
	rc, err := h.local.OpenKey(key)
	if err != nil {
		response.RespondAPIError(c, "open_media_failed", err)
		return
	}
	defer rc.Close()
	c.DataFromReader(http.StatusOK, -1, media.ContentType(key), rc, nil)
}
