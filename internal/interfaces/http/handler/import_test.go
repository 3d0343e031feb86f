package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	importapp "github.com/arqcashflow/backend/internal/application/import"
	"github.com/arqcashflow/backend/internal/domain/bulk"
	"github.com/arqcashflow/backend/internal/domain/shared"
	"github.com/arqcashflow/backend/internal/interfaces/http/dto"
	"github.com/arqcashflow/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockImportUseCase struct {
	mock.Mock
}

func (m *MockImportUseCase) ImportFile(ctx context.Context, scope shared.TeamScope, file importapp.FileUpload, sessionID string) (importapp.FileResult, error) {
	args := m.Called(ctx, scope, file, sessionID)
	return args.Get(0).(importapp.FileResult), args.Error(1)
}

func (m *MockImportUseCase) ImportBatch(ctx context.Context, scope shared.TeamScope, files []importapp.FileUpload, sessionID string) (importapp.BatchResult, error) {
	args := m.Called(ctx, scope, files, sessionID)
	return args.Get(0).(importapp.BatchResult), args.Error(1)
}

func (m *MockImportUseCase) Preview(ctx context.Context, scope shared.TeamScope, file importapp.FileUpload) (importapp.PreviewResult, error) {
	args := m.Called(ctx, scope, file)
	return args.Get(0).(importapp.PreviewResult), args.Error(1)
}

func (m *MockImportUseCase) Progress(ctx context.Context, scope shared.TeamScope, sessionID string) (*bulk.ImportProgress, error) {
	args := m.Called(ctx, scope, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bulk.ImportProgress), args.Error(1)
}

func (m *MockImportUseCase) History(ctx context.Context, scope shared.TeamScope, filter importapp.ListHistoryFilter, page, pageSize int) (shared.Paginated[*bulk.ImportHistory], error) {
	args := m.Called(ctx, scope, filter, page, pageSize)
	return args.Get(0).(shared.Paginated[*bulk.ImportHistory]), args.Error(1)
}

func (m *MockImportUseCase) HistoryEntry(ctx context.Context, scope shared.TeamScope, id uuid.UUID) (*bulk.ImportHistory, error) {
	args := m.Called(ctx, scope, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bulk.ImportHistory), args.Error(1)
}

var testScope = shared.TeamScope{TenantID: uuid.New(), UserID: uuid.New()}

func newTestEngine(t *testing.T, uc ImportUseCase, maxFileSize int64) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, middleware.SetupValidator())
	engine := gin.New()
	api := engine.Group("/api/v1")
	api.Use(middleware.Auth(middleware.AuthConfig{AllowHeaderAuth: true}))
	NewImportHandler(uc, maxFileSize).RegisterRoutes(api)
	return engine
}

type part struct {
	field, name string
	data        []byte
}

func multipartRequest(t *testing.T, path string, fields map[string]string, files ...part) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := w.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = fw.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	withScope(req)
	return req
}

func withScope(req *http.Request) {
	req.Header.Set(middleware.TenantIDHeader, testScope.TenantID.String())
	req.Header.Set(middleware.UserIDHeader, testScope.UserID.String())
}

func serve(engine *gin.Engine, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestImportHandler_ImportFile(t *testing.T) {
	uc := new(MockImportUseCase)
	csv := []byte("Projeto;Cliente;Valor\nCasa;Ana;R$ 1.000,00\n")
	uc.On("ImportFile", mock.Anything, testScope, mock.MatchedBy(func(f importapp.FileUpload) bool {
		return f.Name == "contratos.csv" && bytes.Equal(f.Data, csv) && f.Hint == "contratos de 2024"
	}), "s-1").Return(importapp.FileResult{
		Success:  true,
		FileName: "contratos.csv",
		Summary:  importapp.ImportSummary{ContractsCreated: 1, Errors: []string{}},
	}, nil)

	w, body := serve(newTestEngine(t, uc, 1<<20), multipartRequest(t, "/api/v1/imports/files",
		map[string]string{"hint": "contratos de 2024", "session_id": "s-1"},
		part{"file", "contratos.csv", csv},
	))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]any)
	assert.Equal(t, "contratos.csv", data["fileName"])
	assert.Equal(t, float64(1), data["summary"].(map[string]any)["contractsCreated"])
	uc.AssertExpectations(t)
}

func TestImportHandler_ImportFile_ReadsOneByteOverLimit(t *testing.T) {
	uc := new(MockImportUseCase)
	uc.On("ImportFile", mock.Anything, testScope, mock.MatchedBy(func(f importapp.FileUpload) bool {
		return len(f.Data) == 9
	}), "").Return(importapp.FileResult{FileName: "big.csv"}, nil)

	w, _ := serve(newTestEngine(t, uc, 8), multipartRequest(t, "/api/v1/imports/files", nil,
		part{"file", "big.csv", bytes.Repeat([]byte("x"), 64)},
	))

	assert.Equal(t, http.StatusOK, w.Code)
	uc.AssertExpectations(t)
}

func TestImportHandler_ImportFile_MissingFile(t *testing.T) {
	uc := new(MockImportUseCase)

	w, body := serve(newTestEngine(t, uc, 1<<20), multipartRequest(t, "/api/v1/imports/files", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeBadRequest, body["error"].(map[string]any)["code"])
	uc.AssertNotCalled(t, "ImportFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestImportHandler_ImportFile_Unauthenticated(t *testing.T) {
	uc := new(MockImportUseCase)
	req := multipartRequest(t, "/api/v1/imports/files", nil, part{"file", "a.csv", []byte("x")})
	req.Header.Del(middleware.TenantIDHeader)

	w, _ := serve(newTestEngine(t, uc, 1<<20), req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestImportHandler_ImportBatch(t *testing.T) {
	uc := new(MockImportUseCase)
	uc.On("ImportBatch", mock.Anything, testScope, mock.MatchedBy(func(files []importapp.FileUpload) bool {
		return len(files) == 2 && files[0].Name == "a.csv" && files[1].Name == "b.xlsx"
	}), "").Return(importapp.BatchResult{
		Success:         false,
		SessionID:       "generated",
		SuccessfulFiles: 1,
		FailedFiles:     1,
	}, nil)

	w, body := serve(newTestEngine(t, uc, 1<<20), multipartRequest(t, "/api/v1/imports/batch", nil,
		part{"files[]", "a.csv", []byte("a")},
		part{"files[]", "b.xlsx", []byte("b")},
	))

	assert.Equal(t, http.StatusOK, w.Code)
	data := body["data"].(map[string]any)
	assert.Equal(t, float64(1), data["successfulFiles"])
	assert.Equal(t, float64(1), data["failedFiles"])
	assert.Equal(t, "generated", data["sessionId"])
}

func TestImportHandler_ImportBatch_ServiceRejects(t *testing.T) {
	uc := new(MockImportUseCase)
	uc.On("ImportBatch", mock.Anything, testScope, mock.Anything, "").
		Return(importapp.BatchResult{}, shared.NewDomainError("INVALID_INPUT", "A batch cannot have more than 2 files"))

	w, body := serve(newTestEngine(t, uc, 1<<20), multipartRequest(t, "/api/v1/imports/batch", nil,
		part{"files", "a.csv", []byte("a")},
	))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	errInfo := body["error"].(map[string]any)
	assert.Equal(t, dto.ErrCodeInvalidInput, errInfo["code"])
	assert.Equal(t, "A batch cannot have more than 2 files", errInfo["message"])
}

func TestImportHandler_Preview(t *testing.T) {
	uc := new(MockImportUseCase)
	uc.On("Preview", mock.Anything, testScope, mock.MatchedBy(func(f importapp.FileUpload) bool {
		return f.Name == "nota.pdf"
	})).Return(importapp.PreviewResult{FileName: "nota.pdf", Errors: []string{}}, nil)

	w, body := serve(newTestEngine(t, uc, 1<<20), multipartRequest(t, "/api/v1/imports/preview", nil,
		part{"file", "nota.pdf", []byte("%PDF-1.4")},
	))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "nota.pdf", body["data"].(map[string]any)["fileName"])
}

func TestImportHandler_Progress(t *testing.T) {
	uc := new(MockImportUseCase)
	progress := bulk.NewImportProgress("s-9", 3)
	uc.On("Progress", mock.Anything, testScope, "s-9").Return(&progress, nil)
	uc.On("Progress", mock.Anything, testScope, "gone").Return(nil, shared.ErrNotFound)
	engine := newTestEngine(t, uc, 1<<20)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/imports/progress/s-9", nil)
	withScope(req)
	w, body := serve(engine, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "s-9", body["data"].(map[string]any)["sessionId"])

	req = httptest.NewRequest(http.MethodGet, "/api/v1/imports/progress/gone", nil)
	withScope(req)
	w, body = serve(engine, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, dto.ErrCodeNotFound, body["error"].(map[string]any)["code"])
}

func TestImportHandler_History(t *testing.T) {
	uc := new(MockImportUseCase)
	page := shared.NewPaginated([]*bulk.ImportHistory{{FileName: "a.csv", Status: bulk.ImportStatusPartial}}, 21, 2, 10)
	uc.On("History", mock.Anything, testScope, mock.MatchedBy(func(f importapp.ListHistoryFilter) bool {
		return f.Status == "partial" &&
			f.StartedFrom != nil && f.StartedFrom.Format("2006-01-02") == "2024-03-01" &&
			f.StartedTo != nil && f.StartedTo.Format("2006-01-02 15:04") == "2024-03-31 23:59"
	}), 2, 10).Return(page, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/imports/history?status=partial&from=2024-03-01&to=2024-03-31&page=2&page_size=10", nil)
	withScope(req)
	w, body := serve(newTestEngine(t, uc, 1<<20), req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["data"], 1)
	meta := body["meta"].(map[string]any)
	assert.Equal(t, float64(21), meta["total"])
	assert.Equal(t, float64(3), meta["total_pages"])
	uc.AssertExpectations(t)
}

func TestImportHandler_History_InvalidQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		field string
	}{
		{"unknown status", "status=archived", "status"},
		{"bad date", "from=01/03/2024", "from"},
		{"page size too large", "page_size=500", "page_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := new(MockImportUseCase)
			req := httptest.NewRequest(http.MethodGet, "/api/v1/imports/history?"+tt.query, nil)
			withScope(req)

			w, body := serve(newTestEngine(t, uc, 1<<20), req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			errInfo := body["error"].(map[string]any)
			assert.Equal(t, dto.ErrCodeValidation, errInfo["code"])
			details := errInfo["details"].([]any)
			require.Len(t, details, 1)
			assert.Equal(t, tt.field, details[0].(map[string]any)["field"])
		})
	}
}

func TestImportHandler_HistoryEntry(t *testing.T) {
	uc := new(MockImportUseCase)
	id := uuid.New()
	uc.On("HistoryEntry", mock.Anything, testScope, id).Return(&bulk.ImportHistory{FileName: "a.csv"}, nil)
	engine := newTestEngine(t, uc, 1<<20)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/imports/history/"+id.String(), nil)
	withScope(req)
	w, body := serve(engine, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a.csv", body["data"].(map[string]any)["file_name"])

	req = httptest.NewRequest(http.MethodGet, "/api/v1/imports/history/not-a-uuid", nil)
	withScope(req)
	w, _ = serve(engine, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
