package http

// UploadResponse is returned as soon as the project record exists; the
// analysis outcome is never part of it.
type UploadResponse struct {
	Success   bool   `json:"success"`
	ProjectID string `json:"projectId"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

// HealthPayload is served when the status endpoint is queried without a
// project id, mirroring the worker health endpoint.
type HealthPayload struct {
	Service           string `json:"service"`
	Status            string `json:"status"`
	StorageConfigured bool   `json:"storage_configured"`
	VisionConfigured  bool   `json:"vision_configured"`
	Timestamp         string `json:"timestamp"`
}

// RunRequest triggers a synchronous diagnostic analysis.
type RunRequest struct {
	ProjectID string `json:"projectId"`
}

// RunResponse reports a synchronous run's outcome and duration.
type RunResponse struct {
	Success       bool   `json:"success"`
	ProjectID     string `json:"projectId"`
	ExecutionTime int64  `json:"executionTime"` // milliseconds
	Message       string `json:"message"`
}
