package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spatial-studio/spatial-backend/internal/analysis"
	"github.com/spatial-studio/spatial-backend/internal/projects/domain"
	"github.com/spatial-studio/spatial-backend/internal/projects/service"
	"github.com/spatial-studio/spatial-backend/internal/storage"
	"github.com/spatial-studio/spatial-backend/internal/vision"
)

// memStore backs both the upload service and the analysis worker in tests.
type memStore struct {
	mu       sync.Mutex
	seq      int
	projects map[string]*domain.Project
}

func newMemStore() *memStore {
	return &memStore{projects: make(map[string]*domain.Project)}
}

func (s *memStore) Create(ctx context.Context, customerID, projectName, floorplanKey string) (*domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	p := &domain.Project{
		ID:           fmt.Sprintf("proj-%d", s.seq),
		CustomerID:   customerID,
		ProjectName:  projectName,
		FloorplanKey: floorplanKey,
		Status:       domain.StatusPending,
	}
	s.projects[p.ID] = p
	return p, nil
}

func (s *memStore) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memStore) MarkProcessing(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return domain.ErrNotFound
	}
	if domain.Terminal(p.Status) {
		return domain.ErrTerminalState
	}
	p.Status = domain.StatusProcessing
	return nil
}

func (s *memStore) MarkCompleted(ctx context.Context, id string, model, dimensions json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Status = domain.StatusCompleted
	p.Model = model
	p.Dimensions = dimensions
	return nil
}

func (s *memStore) MarkFailed(ctx context.Context, id, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Status = domain.StatusFailed
	p.Error = &message
	return nil
}

type memBlobs struct {
	mu    sync.Mutex
	blobs map[string][]byte
	err   error
}

func (m *memBlobs) Put(ctx context.Context, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.blobs == nil {
		m.blobs = make(map[string][]byte)
	}
	m.blobs[key] = data
	return nil
}

func (m *memBlobs) Get(ctx context.Context, key string) ([]byte, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[key]
	if !ok {
		return nil, "", errors.New("no such key")
	}
	return data, "image/png", nil
}

func (m *memBlobs) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blobs)
}

type stubVision struct {
	result *vision.Result
	err    error
}

func (v *stubVision) AnalyzeFloorplan(ctx context.Context, image []byte, contentType string) (*vision.Result, error) {
	if v.err != nil {
		return nil, v.err
	}
	return v.result, nil
}

type noopDispatcher struct{}

func (noopDispatcher) Dispatch(projectID string) {}

type fixture struct {
	router *gin.Engine
	store  *memStore
	blobs  *memBlobs
}

func newFixture(t *testing.T, opts ...func(*Config)) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := newMemStore()
	blobs := &memBlobs{}
	worker := analysis.NewWorker(store, blobs, &stubVision{result: &vision.Result{
		Model:      json.RawMessage(`{"walls":[]}`),
		Dimensions: json.RawMessage(`{"width":5}`),
	}})
	dispatcher := analysis.NewDispatcher(worker)
	uploads := service.NewUploadService(storage.NewIngestor(blobs), store, noopDispatcher{})

	cfg := Config{
		ServiceName:       "spatial-backend",
		PublicBaseURL:     "https://storage.example.com",
		Bucket:            "spatial-floorplans",
		StorageConfigured: true,
		VisionConfigured:  true,
	}
	for _, o := range opts {
		o(&cfg)
	}

	r := gin.New()
	New(uploads, dispatcher, cfg).Register(r.Group("/api/v1"))

	return &fixture{router: r, store: store, blobs: blobs}
}

func multipartUpload(t *testing.T, filename, contentType string, data []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	hdr.Set("Content-Type", contentType)
	part, err := w.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)

	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func (f *fixture) do(method, target, contentType string, body *bytes.Buffer) *httptest.ResponseRecorder {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestUpload_Created(t *testing.T) {
	f := newFixture(t)
	body, ct := multipartUpload(t, "plan.png", "image/png", []byte("png-bytes"), map[string]string{
		"customerId":  "acme",
		"projectName": "HQ Remodel",
	})

	w := f.do(http.MethodPost, "/api/v1/upload", ct, body)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp UploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, domain.StatusPending, resp.Status)
	assert.NotEmpty(t, resp.ProjectID)
	assert.Contains(t, resp.Message, "analysis in progress")

	p, err := f.store.GetByID(context.Background(), resp.ProjectID)
	require.NoError(t, err)
	assert.Equal(t, "acme", p.CustomerID)
	assert.Equal(t, "HQ Remodel", p.ProjectName)
	assert.Equal(t, 1, f.blobs.count())
}

func TestUpload_DefaultsApplied(t *testing.T) {
	f := newFixture(t)
	body, ct := multipartUpload(t, "plan.png", "image/png", []byte("png-bytes"), nil)

	w := f.do(http.MethodPost, "/api/v1/upload", ct, body)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp UploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	p, err := f.store.GetByID(context.Background(), resp.ProjectID)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultCustomerID, p.CustomerID)
	assert.Equal(t, domain.DefaultProjectName, p.ProjectName)
}

func TestUpload_MissingFile(t *testing.T) {
	f := newFixture(t)
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	require.NoError(t, w.WriteField("customerId", "acme"))
	require.NoError(t, w.Close())

	resp := f.do(http.MethodPost, "/api/v1/upload", w.FormDataContentType(), body)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Zero(t, f.blobs.count())
}

func TestUpload_UnsupportedType(t *testing.T) {
	f := newFixture(t)
	body, ct := multipartUpload(t, "plan.pdf", "application/pdf", []byte("%PDF-1.4"), nil)

	w := f.do(http.MethodPost, "/api/v1/upload", ct, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid file type")
	assert.Contains(t, w.Body.String(), "convert PDFs to images first")
	assert.Zero(t, f.blobs.count())
}

func TestUpload_StorageNotConfigured(t *testing.T) {
	f := newFixture(t, func(cfg *Config) { cfg.StorageConfigured = false })
	body, ct := multipartUpload(t, "plan.png", "image/png", []byte("png-bytes"), nil)

	w := f.do(http.MethodPost, "/api/v1/upload", ct, body)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "Configuration error")
}

func TestUpload_BucketMissing(t *testing.T) {
	f := newFixture(t)
	f.blobs.err = fmt.Errorf("bucket %q: %w", "spatial-floorplans", storage.ErrBucketNotFound)
	body, ct := multipartUpload(t, "plan.png", "image/png", []byte("png-bytes"), nil)

	w := f.do(http.MethodPost, "/api/v1/upload", ct, body)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "Configuration error")
}

func TestStatus_WithoutProjectIDServesHealth(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/api/v1/upload", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var payload HealthPayload
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Equal(t, "Spatial Studio - Floor Plan Upload", payload.Service)
	assert.Equal(t, "healthy", payload.Status)
	assert.True(t, payload.StorageConfigured)
	assert.True(t, payload.VisionConfigured)
}

func TestStatus_UnknownProject(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/api/v1/upload?projectId=missing", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Project not found"}`, w.Body.String())
}

func TestStatus_PendingProject(t *testing.T) {
	f := newFixture(t)
	p, err := f.store.Create(context.Background(), "acme", "HQ Remodel", "1700000000000_plan.png")
	require.NoError(t, err)

	w := f.do(http.MethodGet, "/api/v1/upload?projectId="+p.ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var payload service.StatusPayload
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Equal(t, domain.StatusPending, payload.Status)
	assert.Nil(t, payload.Model)
	assert.Nil(t, payload.Error)
	require.NotNil(t, payload.FloorplanPublicURL)
	assert.Equal(t,
		"https://storage.example.com/storage/v1/object/public/spatial-floorplans/1700000000000_plan.png",
		*payload.FloorplanPublicURL)
	require.NotNil(t, payload.FloorplanFilename)
	assert.Equal(t, "plan.png", *payload.FloorplanFilename)
}

func TestPreflight(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodOptions, "/api/v1/upload", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-Service-Key")
	assert.Contains(t, w.Body.String(), "Spatial Studio Upload API")
}

func TestRunAnalysis_MissingProjectID(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/v1/analysis/run", "application/json", bytes.NewBufferString(`{}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Missing projectId"}`, w.Body.String())
}

func TestRunAnalysis_Success(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.blobs.Put(context.Background(), "1700000000000_plan.png", []byte("png-bytes"), "image/png"))
	p, err := f.store.Create(context.Background(), "acme", "HQ Remodel", "1700000000000_plan.png")
	require.NoError(t, err)

	body := bytes.NewBufferString(fmt.Sprintf(`{"projectId":%q}`, p.ID))
	w := f.do(http.MethodPost, "/api/v1/analysis/run", "application/json", body)
	require.Equal(t, http.StatusOK, w.Code)

	var resp RunResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, p.ID, resp.ProjectID)
	assert.GreaterOrEqual(t, resp.ExecutionTime, int64(0))

	got, err := f.store.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
}

func TestRunAnalysis_UnknownProject(t *testing.T) {
	f := newFixture(t)

	body := bytes.NewBufferString(`{"projectId":"missing"}`)
	w := f.do(http.MethodPost, "/api/v1/analysis/run", "application/json", body)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Analysis failed")
	assert.Contains(t, w.Body.String(), "executionTime")
}

func TestAnalysisHealth(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/api/v1/analysis/run", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var payload HealthPayload
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Equal(t, "Spatial Studio - Analysis Worker", payload.Service)
}
