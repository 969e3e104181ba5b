package domain

import (
	"encoding/json"
	"time"
)

// Project represents one floor-plan upload and its analysis outcome.
// It is intentionally storage-agnostic and used across repository, service
// and HTTP layers.
type Project struct {
	ID           string          `json:"id"`
	CustomerID   string          `json:"customer_id"`
	ProjectName  string          `json:"project_name"`
	FloorplanKey string          `json:"floorplan_key"` // set once at creation, immutable
	Status       string          `json:"analysis_status"`
	Error        *string         `json:"analysis_error,omitempty"`
	Model        json.RawMessage `json:"model,omitempty"`      // opaque 3D model payload
	Dimensions   json.RawMessage `json:"dimensions,omitempty"` // opaque dimension payload
	StartedAt    *time.Time      `json:"analysis_started_at,omitempty"`
	CompletedAt  *time.Time      `json:"analysis_completed_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Analysis status constants. Transitions are one-directional:
// pending -> processing -> completed | failed. The terminal states are
// never left.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Terminal reports whether the status admits no further transitions.
func Terminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}

// Boundary defaults for identity fields the caller may omit. Resolution
// happens exactly once, at the HTTP boundary, so internal code never has
// to guess whether a value is a sentinel or real.
const (
	DefaultCustomerID  = "demo"
	DefaultProjectName = "Untitled Project"
)

// ResolveCustomerID applies the documented default for a missing customer tag.
func ResolveCustomerID(v string) string {
	if v == "" {
		return DefaultCustomerID
	}
	return v
}

// ResolveProjectName applies the documented default for a missing display name.
func ResolveProjectName(v string) string {
	if v == "" {
		return DefaultProjectName
	}
	return v
}
