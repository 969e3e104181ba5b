package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/spatial-studio/spatial-backend/internal/projects/domain"
	"github.com/spatial-studio/spatial-backend/internal/storage"
	"github.com/spatial-studio/spatial-backend/internal/vision"
)

// ProjectStore is the slice of the repository the worker mutates projects
// through. All status transitions run through these methods.
type ProjectStore interface {
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	MarkProcessing(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id string, model, dimensions json.RawMessage) error
	MarkFailed(ctx context.Context, id, message string) error
}

// Worker runs one project's analysis end to end: fetch the floor plan,
// call the vision model, persist the result or the failure.
type Worker struct {
	store  ProjectStore
	blobs  storage.BlobStore
	vision vision.Vision
}

func NewWorker(store ProjectStore, blobs storage.BlobStore, v vision.Vision) *Worker {
	return &Worker{store: store, blobs: blobs, vision: v}
}

// Process advances the project from pending through processing to a
// terminal state. Re-running against a terminal project is a no-op, so a
// late re-dispatch can never clobber a finished analysis.
func (w *Worker) Process(ctx context.Context, projectID string) error {
	p, err := w.store.GetByID(ctx, projectID)
	if err != nil {
		return fmt.Errorf("load project %s: %w", projectID, err)
	}
	if domain.Terminal(p.Status) {
		log.Printf("[info] operation=analysis project_id=%s status=%s message=already finished", projectID, p.Status)
		return nil
	}

	if err := w.store.MarkProcessing(ctx, projectID); err != nil {
		if errors.Is(err, domain.ErrTerminalState) {
			return nil
		}
		return fmt.Errorf("mark processing %s: %w", projectID, err)
	}

	image, contentType, err := w.blobs.Get(ctx, p.FloorplanKey)
	if err != nil {
		return w.fail(ctx, projectID, fmt.Errorf("fetch floor plan %s: %w", p.FloorplanKey, err))
	}

	result, err := w.vision.AnalyzeFloorplan(ctx, image, contentType)
	if err != nil {
		return w.fail(ctx, projectID, fmt.Errorf("analyze floor plan: %w", err))
	}

	if err := w.store.MarkCompleted(ctx, projectID, result.Model, result.Dimensions); err != nil {
		return fmt.Errorf("mark completed %s: %w", projectID, err)
	}

	log.Printf("[info] operation=analysis project_id=%s status=completed", projectID)
	return nil
}

// fail records the failure on the project and returns the original error.
func (w *Worker) fail(ctx context.Context, projectID string, cause error) error {
	if err := w.store.MarkFailed(ctx, projectID, cause.Error()); err != nil {
		log.Printf("[error] operation=analysis project_id=%s error=mark failed: %v", projectID, err)
	}
	return cause
}
