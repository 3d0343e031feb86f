package handler

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	importapp "github.com/arqcashflow/backend/internal/application/import"
	"github.com/arqcashflow/backend/internal/domain/bulk"
	"github.com/arqcashflow/backend/internal/domain/shared"
	"github.com/arqcashflow/backend/internal/infrastructure/locale"
	"github.com/arqcashflow/backend/internal/interfaces/http/dto"
	"github.com/arqcashflow/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ImportUseCase is what the import endpoints need from the application layer
type ImportUseCase interface {
	ImportFile(ctx context.Context, scope shared.TeamScope, file importapp.FileUpload, sessionID string) (importapp.FileResult, error)
	ImportBatch(ctx context.Context, scope shared.TeamScope, files []importapp.FileUpload, sessionID string) (importapp.BatchResult, error)
	Preview(ctx context.Context, scope shared.TeamScope, file importapp.FileUpload) (importapp.PreviewResult, error)
	Progress(ctx context.Context, scope shared.TeamScope, sessionID string) (*bulk.ImportProgress, error)
	History(ctx context.Context, scope shared.TeamScope, filter importapp.ListHistoryFilter, page, pageSize int) (shared.Paginated[*bulk.ImportHistory], error)
	HistoryEntry(ctx context.Context, scope shared.TeamScope, id uuid.UUID) (*bulk.ImportHistory, error)
}

// ImportHandler serves the /imports endpoints
type ImportHandler struct {
	BaseHandler
	imports     ImportUseCase
	maxFileSize int64
}

// NewImportHandler creates a new ImportHandler. maxFileSize bounds how much
// of each upload is read; larger files are reported as failed by the service.
func NewImportHandler(imports ImportUseCase, maxFileSize int64) *ImportHandler {
	return &ImportHandler{imports: imports, maxFileSize: maxFileSize}
}

// RegisterRoutes mounts the import routes on rg
func (h *ImportHandler) RegisterRoutes(rg *gin.RouterGroup) {
	imports := rg.Group("/imports")
	imports.POST("/files", h.ImportFile)
	imports.POST("/batch", h.ImportBatch)
	imports.POST("/preview", h.Preview)
	imports.GET("/progress/:session_id", h.Progress)
	imports.GET("/history", h.History)
	imports.GET("/history/:id", h.HistoryEntry)
}

// ImportFile handles POST /imports/files: multipart "file", optional "hint"
// and "session_id".
func (h *ImportHandler) ImportFile(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	var form dto.ImportFileForm
	if err := c.ShouldBind(&form); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		h.BadRequest(c, "file is required")
		return
	}
	upload, err := h.readUpload(header, form.Hint)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.imports.ImportFile(c.Request.Context(), scope, upload, form.SessionID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ImportBatch handles POST /imports/batch: multipart "files[]" (or "files"),
// optional "hint" applied to every file and "session_id".
func (h *ImportHandler) ImportBatch(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	var form dto.ImportFileForm
	if err := c.ShouldBind(&form); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	mf, err := c.MultipartForm()
	if err != nil {
		h.BadRequest(c, "multipart form is required")
		return
	}
	headers := mf.File["files[]"]
	if len(headers) == 0 {
		headers = mf.File["files"]
	}
	if len(headers) == 0 {
		h.BadRequest(c, "at least one file is required")
		return
	}

	uploads := make([]importapp.FileUpload, 0, len(headers))
	for _, header := range headers {
		upload, err := h.readUpload(header, form.Hint)
		if err != nil {
			h.BadRequest(c, err.Error())
			return
		}
		uploads = append(uploads, upload)
	}

	result, err := h.imports.ImportBatch(c.Request.Context(), scope, uploads, form.SessionID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Preview handles POST /imports/preview: extraction only, nothing is written
func (h *ImportHandler) Preview(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	var form dto.PreviewForm
	if err := c.ShouldBind(&form); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		h.BadRequest(c, "file is required")
		return
	}
	upload, err := h.readUpload(header, form.Hint)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.imports.Preview(c.Request.Context(), scope, upload)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Progress handles GET /imports/progress/:session_id
func (h *ImportHandler) Progress(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	progress, err := h.imports.Progress(c.Request.Context(), scope, c.Param("session_id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, progress)
}

// History handles GET /imports/history
func (h *ImportHandler) History(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	query := dto.HistoryQuery{Page: 1, PageSize: 20}
	if err := c.ShouldBindQuery(&query); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	filter := importapp.ListHistoryFilter{
		Status:    query.Status,
		FileName:  query.FileName,
		SessionID: query.SessionID,
	}
	if from, ok := locale.ToTime(query.From); ok {
		filter.StartedFrom = &from
	}
	if to, ok := locale.ToTime(query.To); ok {
		end := to.Add(24*time.Hour - time.Nanosecond)
		filter.StartedTo = &end
	}

	page, err := h.imports.History(c.Request.Context(), scope, filter, query.Page, query.PageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPageResponse(page))
}

// HistoryEntry handles GET /imports/history/:id
func (h *ImportHandler) HistoryEntry(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "id must be a UUID")
		return
	}
	entry, err := h.imports.HistoryEntry(c.Request.Context(), scope, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// readUpload reads at most maxFileSize+1 bytes, so the service can tell an
// oversized file apart without the whole body being buffered.
func (h *ImportHandler) readUpload(header *multipart.FileHeader, hint string) (importapp.FileUpload, error) {
	f, err := header.Open()
	if err != nil {
		return importapp.FileUpload{}, fmt.Errorf("cannot open %s", header.Filename)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxFileSize+1))
	if err != nil {
		return importapp.FileUpload{}, fmt.Errorf("cannot read %s", header.Filename)
	}
	return importapp.FileUpload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
		Hint:        hint,
	}, nil
}
