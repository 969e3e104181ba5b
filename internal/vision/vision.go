package vision

import (
	"context"
	"encoding/json"
)

// Result carries the two opaque payloads the analysis produces. Their
// internal schema belongs to the model, not to this service; they are
// stored and served verbatim.
type Result struct {
	Model      json.RawMessage
	Dimensions json.RawMessage
}

// Vision turns a floor-plan image into a 3D model description. The upload
// path never calls this directly; only the background analysis worker does.
type Vision interface {
	AnalyzeFloorplan(ctx context.Context, image []byte, contentType string) (*Result, error)
}
