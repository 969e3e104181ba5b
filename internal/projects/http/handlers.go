package http

import (
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/spatial-studio/spatial-backend/internal/analysis"
	"github.com/spatial-studio/spatial-backend/internal/auth"
	"github.com/spatial-studio/spatial-backend/internal/projects/domain"
	"github.com/spatial-studio/spatial-backend/internal/projects/service"
	"github.com/spatial-studio/spatial-backend/internal/storage"
)

// Config carries the handler's static wiring: where public floor-plan URLs
// point and what the health payloads should report.
type Config struct {
	ServiceName       string
	PublicBaseURL     string
	Bucket            string
	StorageConfigured bool
	VisionConfigured  bool
}

type Handler struct {
	uploads    *service.UploadService
	dispatcher *analysis.Dispatcher
	cfg        Config
}

func New(uploads *service.UploadService, dispatcher *analysis.Dispatcher, cfg Config) *Handler {
	return &Handler{
		uploads:    uploads,
		dispatcher: dispatcher,
		cfg:        cfg,
	}
}

// Upload accepts a multipart floor plan, persists it and returns 201 with
// status='pending' before the analysis has done any work.
func (h *Handler) Upload(c *gin.Context) {
	if !h.cfg.StorageConfigured {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Configuration error",
			"details": "storage is not configured",
		})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": storage.ErrEmptyFile.Error()})
		return
	}

	if fileHeader.Size > storage.MaxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "File too large",
			"details": storage.ErrFileTooLarge.Error(),
		})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read uploaded file"})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read uploaded file"})
		return
	}

	p, err := h.uploads.Upload(c.Request.Context(), service.UploadInput{
		Data:        data,
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		CustomerID:  c.PostForm("customerId"),
		ProjectName: c.PostForm("projectName"),
	})
	if err != nil {
		h.writeUploadError(c, err)
		return
	}

	c.JSON(http.StatusCreated, UploadResponse{
		Success:   true,
		ProjectID: p.ID,
		Status:    p.Status,
		Message:   "Upload successful. AI analysis in progress.",
	})
}

func (h *Handler) writeUploadError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, storage.ErrEmptyFile):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, storage.ErrFileTooLarge):
		c.JSON(http.StatusBadRequest, gin.H{"error": "File too large", "details": err.Error()})
	case errors.Is(err, storage.ErrUnsupportedType):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid file type",
			"details": "Only PNG and JPG image files are supported. Please convert PDFs to images first.",
		})
	case errors.Is(err, storage.ErrBucketNotFound):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Configuration error", "details": err.Error()})
	default:
		log.Printf("[error] operation=upload error=%v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to process floor plan",
			"details": err.Error(),
		})
	}
}

// Status serves the polling endpoint. Without a projectId it degrades to a
// health payload so callers can probe the route.
func (h *Handler) Status(c *gin.Context) {
	projectID := c.Query("projectId")
	if projectID == "" {
		c.JSON(http.StatusOK, h.healthPayload("Spatial Studio - Floor Plan Upload"))
		return
	}

	p, err := h.uploads.Status(c.Request.Context(), projectID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
			return
		}
		log.Printf("[error] operation=status project_id=%s error=%v", projectID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load project"})
		return
	}

	c.JSON(http.StatusOK, service.ProjectStatus(p, h.cfg.PublicBaseURL, h.cfg.Bucket))
}

// Preflight acknowledges CORS preflights with the allowed methods and the
// service-key header. The CORS middleware answers real browser preflights;
// this keeps plain OPTIONS probes working too.
func (h *Handler) Preflight(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, "+auth.HeaderServiceKey)
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"methods": []string{"GET", "POST", "OPTIONS"},
		"service": "Spatial Studio Upload API",
	})
}

// RunAnalysis is the diagnostic synchronous trigger: it awaits the worker
// and reports the elapsed time, unlike the upload path's fire-and-forget.
func (h *Handler) RunAnalysis(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ProjectID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing projectId"})
		return
	}

	elapsed, err := h.dispatcher.ProcessSync(c.Request.Context(), req.ProjectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":         "Analysis failed",
			"details":       err.Error(),
			"executionTime": elapsed.Milliseconds(),
		})
		return
	}

	c.JSON(http.StatusOK, RunResponse{
		Success:       true,
		ProjectID:     req.ProjectID,
		ExecutionTime: elapsed.Milliseconds(),
		Message:       "Analysis completed successfully",
	})
}

// AnalysisHealth reports the worker route's health.
func (h *Handler) AnalysisHealth(c *gin.Context) {
	c.JSON(http.StatusOK, h.healthPayload("Spatial Studio - Analysis Worker"))
}

func (h *Handler) healthPayload(service string) HealthPayload {
	return HealthPayload{
		Service:           service,
		Status:            "healthy",
		StorageConfigured: h.cfg.StorageConfigured,
		VisionConfigured:  h.cfg.VisionConfigured,
		Timestamp:         time.Now().UTC().Format(time.RFC3339),
	}
}
