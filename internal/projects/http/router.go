package http

import "github.com/gin-gonic/gin"

// Register mounts the upload and analysis routes on the given group.
// Middleware (gate, rate limit) is applied by the caller.
func (h *Handler) Register(r gin.IRouter, uploadMiddleware ...gin.HandlerFunc) {
	upload := append([]gin.HandlerFunc{}, uploadMiddleware...)
	r.POST("/upload", append(upload, h.Upload)...)
	r.GET("/upload", h.Status)
	r.OPTIONS("/upload", h.Preflight)

	r.POST("/analysis/run", h.RunAnalysis)
	r.GET("/analysis/run", h.AnalysisHealth)
}
