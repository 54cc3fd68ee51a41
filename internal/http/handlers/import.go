package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/moldindex-backend/internal/http/response"
	"github.com/yungbote/moldindex-backend/internal/platform/apierr"
	"github.com/yungbote/moldindex-backend/internal/platform/dbctx"
	"github.com/yungbote/moldindex-backend/internal/platform/logger"
	"github.com/yungbote/moldindex-backend/internal/services"
)

type ImportHandler struct {
	log            *logger.Logger
	imports        services.ImportService
	defaultPolicy  services.ImportPolicy
	maxUploadBytes int64
}

func NewImportHandler(log *logger.Logger, imports services.ImportService, defaultPolicy services.ImportPolicy, maxUploadBytes int64) *ImportHandler {
	if defaultPolicy == "" {
		defaultPolicy = services.ImportPolicySkip
	}
	return &ImportHandler{
		log:            log.With("handler", "ImportHandler"),
		imports:        imports,
		defaultPolicy:  defaultPolicy,
		maxUploadBytes: maxUploadBytes,
	}
}

// POST /api/molds/import?policy=skip|abort
func (h *ImportHandler) Import(c *gin.Context) {
	policy := h.defaultPolicy
	if raw := strings.TrimSpace(c.Query("policy")); raw != "" {
		p, err := services.ParseImportPolicy(raw)
		if err != nil {
			response.RespondAPIError(c, "invalid_import_policy", err)
			return
		}
		policy = p
	}

	if !parseMultipart(c, h.maxUploadBytes) {
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		fh, err = c.FormFile("excel")
	}
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "missing_file", errors.New("multipart field \"file\" is required"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "unreadable_file", err)
		return
	}
	defer f.Close()

	res, err := h.imports.Import(dbctx.Context{Ctx: c.Request.Context()}, fh.Filename, f, policy)
	if err != nil {
		var rejected *services.ImportRejectedError
		if errors.As(err, &rejected) {
			c.JSON(apierr.HTTPStatus(apierr.KindOf(err)), gin.H{
				"error": response.APIError{Message: err.Error(), Code: apierr.CodeOf(err, "import_rejected")},
				"rows":  rejected.Rows,
			})
			return
		}
		h.log.Warn("Import failed", "filename", fh.Filename, "policy", policy, "error", err)
		if res != nil {
			c.JSON(apierr.HTTPStatus(apierr.KindOf(err)), gin.H{
				"error":  response.APIError{Message: err.Error(), Code: apierr.CodeOf(err, "import_incomplete")},
				"result": res,
			})
			return
		}
		response.RespondAPIError(c, "import_failed", err)
		return
	}
	response.RespondOK(c, res)
}
