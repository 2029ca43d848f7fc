package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/booking-admin-bulk-api/internal/api"
	"github.com/booking-admin-bulk-api/internal/config"
	"github.com/booking-admin-bulk-api/internal/mocks"
	"github.com/booking-admin-bulk-api/internal/models"
	"github.com/booking-admin-bulk-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func setupTestRouter() (*gin.Engine, *mocks.MockBulkService, *mocks.MockImportService, *mocks.MockOperationService) {
	gin.SetMode(gin.TestMode)

	mockBulk := mocks.NewMockBulkService()
	mockImport := mocks.NewMockImportService()
	mockOperation := mocks.NewMockOperationService()

	services := &service.Services{
		Bulk:      mockBulk,
		Import:    mockImport,
		Operation: mockOperation,
	}

	cfg := &config.Config{
		Server: config.ServerConfig{Port: "8080"},
		Bulk: config.BulkConfig{
			DefaultChunkSize: 50,
			MaxUploadSize:    10 * 1024 * 1024,
		},
	}

	log := zerolog.Nop()
	router := api.NewRouter(services, cfg, log)

	return router, mockBulk, mockImport, mockOperation
}

func TestHealthEndpoint(t *testing.T) {
	router, _, _, _ := setupTestRouter()

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)

	if response["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", response["status"])
	}
	if response["service"] != "booking-admin-bulk-api" {
		t.Errorf("Expected service name, got %v", response["service"])
	}
}

func TestExecuteMutation(t *testing.T) {
	router, mockBulk, _, _ := setupTestRouter()

	body := `{
		"operation": "create",
		"entity_type": "customers",
		"items": [{"email": "ada@example.com", "name": "Ada"}]
	}`
	req := httptest.NewRequest("POST", "/v1/bulk", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "admin-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var response models.OperationResult
	json.Unmarshal(w.Body.Bytes(), &response)
	if response.OperationID != "test-operation-id" {
		t.Errorf("Expected operation id in response, got %+v", response)
	}

	if len(mockBulk.Requests) != 1 {
		t.Fatalf("Expected 1 service call, got %d", len(mockBulk.Requests))
	}
	got := mockBulk.Requests[0]
	if got.OperationKind != models.OpCreate || got.EntityType != models.EntityCustomers {
		t.Errorf("Request not passed through: %+v", got)
	}
	if got.CreatedBy != "admin-1" {
		t.Errorf("X-User-ID header should populate created_by, got %q", got.CreatedBy)
	}
}

func TestExecuteMutation_InvalidBody(t *testing.T) {
	router, _, _, _ := setupTestRouter()

	req := httptest.NewRequest("POST", "/v1/bulk", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestExecuteMutation_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"unsupported operation", models.ErrUnsupportedOperation, http.StatusBadRequest},
		{"unsupported entity type", models.ErrUnsupportedEntityType, http.StatusBadRequest},
		{"empty request", models.ErrEmptyRequest, http.StatusBadRequest},
		{"internal failure", errors.New("store exploded"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, mockBulk, _, _ := setupTestRouter()
			mockBulk.ExecuteFunc = func(ctx context.Context, req *models.MutationRequest) (*models.OperationResult, error) {
				return nil, tt.err
			}

			body := `{"operation": "create", "entity_type": "customers", "items": [{}]}`
			req := httptest.NewRequest("POST", "/v1/bulk", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestCreateImport(t *testing.T) {
	router, _, mockImport, _ := setupTestRouter()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	writer.WriteField("entity_type", "customers")
	writer.WriteField("continue_on_error", "true")
	writer.WriteField("field_mapping", `{"ad":"name"}`)
	writer.WriteField("default_values", `{"source":"import"}`)
	part, _ := writer.CreateFormFile("file", "customers.csv")
	part.Write([]byte("email,ad\nada@example.com,Ada\n"))
	writer.Close()

	req := httptest.NewRequest("POST", "/v1/imports", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-User-ID", "admin-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	if len(mockImport.Requests) != 1 {
		t.Fatalf("Expected 1 service call, got %d", len(mockImport.Requests))
	}
	got := mockImport.Requests[0]
	if got.Format != models.FormatCSV {
		t.Errorf("Format should resolve from the filename, got %q", got.Format)
	}
	if got.EntityType != models.EntityCustomers {
		t.Errorf("Unexpected entity type: %q", got.EntityType)
	}
	if !got.Options.ContinueOnError {
		t.Error("continue_on_error form field not parsed")
	}
	if got.FieldMapping["ad"] != "name" {
		t.Errorf("field_mapping not parsed: %v", got.FieldMapping)
	}
	if got.DefaultValues["source"] != "import" {
		t.Errorf("default_values not parsed: %v", got.DefaultValues)
	}
	if got.CreatedBy != "admin-1" {
		t.Errorf("X-User-ID header should populate created_by, got %q", got.CreatedBy)
	}
	if string(got.FileBytes) != "email,ad\nada@example.com,Ada\n" {
		t.Error("File bytes not passed through")
	}
}

func TestCreateImport_Rejections(t *testing.T) {
	build := func(entityType, filename, format string) (*http.Request, *httptest.ResponseRecorder) {
		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)
		if entityType != "" {
			writer.WriteField("entity_type", entityType)
		}
		if format != "" {
			writer.WriteField("format", format)
		}
		if filename != "" {
			part, _ := writer.CreateFormFile("file", filename)
			part.Write([]byte("email\nada@example.com\n"))
		}
		writer.Close()

		req := httptest.NewRequest("POST", "/v1/imports", &buf)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		return req, httptest.NewRecorder()
	}

	tests := []struct {
		name       string
		entityType string
		filename   string
		format     string
	}{
		{"missing entity_type", "", "customers.csv", ""},
		{"unknown entity_type", "martians", "customers.csv", ""},
		{"missing file", "customers", "", ""},
		{"unknown format", "customers", "customers.dat", ""},
		{"bad explicit format", "customers", "customers.csv", "parquet"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _, _, _ := setupTestRouter()
			req, w := build(tt.entityType, tt.filename, tt.format)
			router.ServeHTTP(w, req)
			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestGetOperationStatus(t *testing.T) {
	router, _, _, mockOperation := setupTestRouter()

	mockOperation.Records["op-123"] = &models.OperationRecord{
		ID:             "op-123",
		Status:         models.OperationCompleted,
		OperationKind:  models.OpCreate,
		EntityType:     models.EntityCustomers,
		TotalItems:     100,
		ProcessedItems: 100,
		SuccessCount:   95,
		FailureCount:   5,
		StartTime:      time.Now().UTC(),
	}

	req := httptest.NewRequest("GET", "/v1/operations/op-123", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var response models.OperationRecord
	json.Unmarshal(w.Body.Bytes(), &response)
	if response.ID != "op-123" || response.SuccessCount != 95 {
		t.Errorf("Unexpected response: %+v", response)
	}
}

func TestGetOperationStatus_NotFound(t *testing.T) {
	router, _, _, _ := setupTestRouter()

	req := httptest.NewRequest("GET", "/v1/operations/nope", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestGetOperationErrors(t *testing.T) {
	router, _, _, mockOperation := setupTestRouter()

	mockOperation.Records["op-123"] = &models.OperationRecord{
		ID:     "op-123",
		Status: models.OperationFailed,
		Errors: []models.OperationError{
			{Index: 3, Message: "email is required", Code: "validation_failed"},
			{Index: 7, ItemID: "c7", Message: "write failed", Code: "write_failed"},
		},
		Warnings:  []string{"row 5: phone looks odd"},
		StartTime: time.Now().UTC(),
	}

	t.Run("json by default", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/v1/operations/op-123/errors", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		var response map[string]interface{}
		json.Unmarshal(w.Body.Bytes(), &response)
		if response["error_count"].(float64) != 2 {
			t.Errorf("Expected error_count 2, got %v", response["error_count"])
		}
	})

	t.Run("csv download", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/v1/operations/op-123/errors?format=csv", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
			t.Errorf("Expected text/csv, got %q", ct)
		}
		lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
		if len(lines) != 3 {
			t.Fatalf("Expected header plus 2 rows, got %d lines", len(lines))
		}
		if !strings.Contains(lines[1], "email is required") {
			t.Errorf("Unexpected first row: %q", lines[1])
		}
	})
}

// brokenResponseWriter fails every body write, like a client that hung up
// mid-download.
type brokenResponseWriter struct {
	header http.Header
}

func (w *brokenResponseWriter) Header() http.Header        { return w.header }
func (w *brokenResponseWriter) Write([]byte) (int, error)  { return 0, errors.New("client went away") }
func (w *brokenResponseWriter) WriteHeader(statusCode int) {}

func TestGetOperationErrors_CSVStreamFailureIsLogged(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mockOperation := mocks.NewMockOperationService()
	mockOperation.Records["op-123"] = &models.OperationRecord{
		ID:     "op-123",
		Status: models.OperationFailed,
		Errors: []models.OperationError{
			{Index: 1, Message: "email is required", Code: "validation_failed"},
		},
		StartTime: time.Now().UTC(),
	}
	services := &service.Services{Operation: mockOperation}

	var logBuf bytes.Buffer
	handler := api.NewOperationHandler(services, zerolog.New(&logBuf))

	c, _ := gin.CreateTestContext(&brokenResponseWriter{header: make(http.Header)})
	c.Request = httptest.NewRequest("GET", "/v1/operations/op-123/errors?format=csv", nil)
	c.Params = gin.Params{{Key: "operation_id", Value: "op-123"}}

	handler.GetErrors(c)

	if !strings.Contains(logBuf.String(), "Failed to stream error report") {
		t.Errorf("Expected the stream failure to be logged, got %q", logBuf.String())
	}
}

func TestCancelOperation(t *testing.T) {
	router, _, _, mockOperation := setupTestRouter()

	mockOperation.Records["op-run"] = &models.OperationRecord{
		ID: "op-run", Status: models.OperationRunning, StartTime: time.Now().UTC(),
	}
	mockOperation.Records["op-done"] = &models.OperationRecord{
		ID: "op-done", Status: models.OperationCompleted, StartTime: time.Now().UTC(),
	}

	t.Run("running operation", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/v1/operations/op-run/cancel", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		var response models.CancelResult
		json.Unmarshal(w.Body.Bytes(), &response)
		if !response.Cancelled {
			t.Errorf("Expected cancellation, got %+v", response)
		}
	})

	t.Run("terminal operation", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/v1/operations/op-done/cancel", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		var response models.CancelResult
		json.Unmarshal(w.Body.Bytes(), &response)
		if response.Cancelled {
			t.Errorf("Terminal operation must not cancel: %+v", response)
		}
	})

	t.Run("unknown operation", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/v1/operations/nope/cancel", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("Expected status 404, got %d", w.Code)
		}
	})
}

func TestListOperations(t *testing.T) {
	router, _, _, mockOperation := setupTestRouter()

	var gotFilters models.OperationFilters
	var gotPage, gotLimit int
	mockOperation.ListFunc = func(ctx context.Context, filters models.OperationFilters, page, limit int) (*models.OperationPage, error) {
		gotFilters, gotPage, gotLimit = filters, page, limit
		return &models.OperationPage{Operations: []*models.OperationRecord{}, Page: page, Limit: limit}, nil
	}

	req := httptest.NewRequest("GET", "/v1/operations?entity_type=customers&status=failed&user_id=admin-1&page=2&limit=5", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if gotFilters.EntityType != models.EntityCustomers || gotFilters.Status != models.OperationFailed {
		t.Errorf("Filters not passed through: %+v", gotFilters)
	}
	if gotFilters.CreatedBy != "admin-1" {
		t.Errorf("user_id not mapped to created_by filter: %+v", gotFilters)
	}
	if gotPage != 2 || gotLimit != 5 {
		t.Errorf("Pagination not passed through: page=%d limit=%d", gotPage, gotLimit)
	}
}
