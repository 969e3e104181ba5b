package service

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spatial-studio/spatial-backend/internal/projects/domain"
	"github.com/spatial-studio/spatial-backend/internal/storage"
)

// StatusPayload is the client-facing shape of a project's analysis state.
// Derived fields (public URL, display filename) are computed here and are
// null whenever no floor plan key is stored.
type StatusPayload struct {
	ProjectID          string          `json:"projectId"`
	Status             string          `json:"status"`
	Error              *string         `json:"error"`
	Model              json.RawMessage `json:"model"`
	Dimensions         json.RawMessage `json:"dimensions"`
	StartedAt          *time.Time      `json:"startedAt"`
	CompletedAt        *time.Time      `json:"completedAt"`
	FloorplanURL       *string         `json:"floorplanUrl"`
	FloorplanPublicURL *string         `json:"floorplanPublicUrl"`
	FloorplanFilename  *string         `json:"floorplanFilename"`
	ProjectName        string          `json:"projectName"`
}

// ProjectStatus shapes a stored project into its status payload. Pure and
// read-only; status, error, results and timestamps pass through unchanged.
func ProjectStatus(p *domain.Project, publicBaseURL, bucket string) StatusPayload {
	out := StatusPayload{
		ProjectID:   p.ID,
		Status:      p.Status,
		Error:       p.Error,
		Model:       p.Model,
		Dimensions:  p.Dimensions,
		StartedAt:   p.StartedAt,
		CompletedAt: p.CompletedAt,
		ProjectName: p.ProjectName,
	}

	if p.FloorplanKey != "" {
		key := p.FloorplanKey
		publicURL := fmt.Sprintf("%s/storage/v1/object/public/%s/%s", publicBaseURL, bucket, key)
		filename := storage.RecoverFilename(key)
		out.FloorplanURL = &key
		out.FloorplanPublicURL = &publicURL
		out.FloorplanFilename = &filename
	}

	return out
}
