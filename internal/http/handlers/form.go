package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/moldindex-backend/internal/domain"
	"github.com/yungbote/moldindex-backend/internal/http/response"
	"github.com/yungbote/moldindex-backend/internal/services"
)

const multipartMemory = 8 << 20

func parseID(c *gin.Context, code string) (uint, bool) {
	raw := strings.TrimSpace(c.Param("id"))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		response.RespondError(c, http.StatusBadRequest, code, errors.New("id must be a positive integer"))
		return 0, false
	}
	return uint(id), true
}

// parseMultipart caps the body at maxBytes before parsing.
func parseMultipart(c *gin.Context, maxBytes int64) bool {
	if maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	}
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.RespondError(c, http.StatusRequestEntityTooLarge, "upload_too_large", err)
			return false
		}
		response.RespondError(c, http.StatusBadRequest, "invalid_multipart_form", err)
		return false
	}
	return true
}

func moldFieldsFromForm(c *gin.Context) domain.RawMoldFields {
	return domain.RawMoldFields{
		PartNumber:   c.PostForm("part_number"),
		MoldNumber:   c.PostForm("mold_number"),
		CycleTime:    c.PostForm("cycle_time"),
		BOM:          c.PostForm("bom"),
		NumOperators: c.PostForm("num_operators"),
	}
}

// openUploads opens every file part under field. The caller must run the returned
// close func once the service is done with the readers.
func (h *MoldHandler) openUploads(form *multipart.Form, field string) ([]services.UploadedFileInfo, func()) {
	if form == nil {
		return nil, func() {}
	}
	headers := form.File[field]
	uploaded := make([]services.UploadedFileInfo, 0, len(headers))
	closers := make([]io.Closer, 0, len(headers))
	for _, fh := range headers {
		if strings.TrimSpace(fh.Filename) == "" {
			continue
		}
		f, err := fh.Open()
		if err != nil {
			h.log.Error("cannot open uploaded file", "filename", fh.Filename, "error", err)
			uploaded = append(uploaded, services.UploadedFileInfo{OriginalName: fh.Filename, SizeBytes: fh.Size, Reader: failedReader{err}})
			continue
		}
		closers = append(closers, f)
		uploaded = append(uploaded, services.UploadedFileInfo{
			OriginalName: fh.Filename,
			SizeBytes:    fh.Size,
			Reader:       f,
		})
	}
	return uploaded, func() {
		for _, cl := range closers {
			_ = cl.Close()
		}
	}
}

// failedReader lets a part that could not be opened surface as a failed upload.
type failedReader struct{ err error }

func (r failedReader) Read([]byte) (int, error) { return 0, r.err }
