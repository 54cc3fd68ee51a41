package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/moldindex-backend/internal/http/response"
	"github.com/yungbote/moldindex-backend/internal/platform/dbctx"
	"github.com/yungbote/moldindex-backend/internal/platform/logger"
	"github.com/yungbote/moldindex-backend/internal/services"
)

type MoldHandler struct {
	log            *logger.Logger
	molds          services.MoldService
	maxUploadBytes int64
}

func NewMoldHandler(log *logger.Logger, molds services.MoldService, maxUploadBytes int64) *MoldHandler {
	return &MoldHandler{
		log:            log.With("handler", "MoldHandler"),
		molds:          molds,
		maxUploadBytes: maxUploadBytes,
	}
}

// GET /api/molds/search?query=  and  POST /api/molds/search
func (h *MoldHandler) Search(c *gin.Context) {
	query := c.Query("query")
	if c.Request.Method == http.MethodPost {
		query = c.PostForm("query")
	}
	rows, err := h.molds.Search(dbctx.Context{Ctx: c.Request.Context()}, query)
	if err != nil {
		h.log.Error("Search failed", "query", query, "error", err)
		response.RespondAPIError(c, "search_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"query": strings.TrimSpace(query), "records": rows})
}

// GET /api/molds
func (h *MoldHandler) List(c *gin.Context) {
	rows, err := h.molds.List(dbctx.Context{Ctx: c.Request.Context()})
	if err != nil {
		h.log.Error("List failed", "error", err)
		response.RespondAPIError(c, "list_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"records": rows})
}

// GET /api/molds/:id
func (h *MoldHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "invalid_mold_record_id")
	if !ok {
		return
	}
	rec, err := h.molds.Get(dbctx.Context{Ctx: c.Request.Context()}, id)
	if err != nil {
		response.RespondAPIError(c, "load_mold_record_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"record": rec})
}

// POST /api/molds
func (h *MoldHandler) Create(c *gin.Context) {
	if !parseMultipart(c, h.maxUploadBytes) {
		return
	}
	fields, err := moldFieldsFromForm(c).Parse()
	if err != nil {
		response.RespondAPIError(c, "invalid_mold_record", err)
		return
	}
	files, closeFiles := h.openUploads(c.Request.MultipartForm, "media")
	defer closeFiles()

	rec, uploads, err := h.molds.CreateWithMedia(dbctx.Context{Ctx: c.Request.Context()}, fields, files)
	if err != nil {
		h.log.Warn("Create failed", "part_number", fields.PartNumber, "error", err)
		response.RespondAPIError(c, "create_mold_record_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"record": rec, "uploads": uploads})
}

// PUT /api/molds/:id
func (h *MoldHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "invalid_mold_record_id")
	if !ok {
		return
	}
	if !parseMultipart(c, h.maxUploadBytes) {
		return
	}
	fields, err := moldFieldsFromForm(c).Parse()
	if err != nil {
		response.RespondAPIError(c, "invalid_mold_record", err)
		return
	}
	files, closeFiles := h.openUploads(c.Request.MultipartForm, "media")
	defer closeFiles()

	rec, uploads, err := h.molds.UpdateWithMedia(dbctx.Context{Ctx: c.Request.Context()}, id, fields, files)
	if err != nil {
		response.RespondAPIError(c, "update_mold_record_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"record": rec, "uploads": uploads})
}

// POST /api/molds/:id/media
func (h *MoldHandler) UploadMedia(c *gin.Context) {
	id, ok := parseID(c, "invalid_mold_record_id")
	if !ok {
		return
	}
	if !parseMultipart(c, h.maxUploadBytes) {
		return
	}
	files, closeFiles := h.openUploads(c.Request.MultipartForm, "media")
	defer closeFiles()
	if len(files) == 0 {
		response.RespondError(c, http.StatusBadRequest, "no_files", errors.New("no media files in request"))
		return
	}

	uploads, err := h.molds.UploadMedia(dbctx.Context{Ctx: c.Request.Context()}, id, files)
	if err != nil {
		response.RespondAPIError(c, "upload_media_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"mold_record_id": id, "uploads": uploads})
}

// DELETE /api/molds/:id
func (h *MoldHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "invalid_mold_record_id")
	if !ok {
		return
	}
	warnings, err := h.molds.Delete(dbctx.Context{Ctx: c.Request.Context()}, id)
	if err != nil {
		h.log.Error("Delete failed", "mold_record_id", id, "error", err)
		response.RespondAPIError(c, "delete_mold_record_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": id, "warnings": warnings})
}
