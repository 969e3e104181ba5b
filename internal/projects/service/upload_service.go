package service

import (
	"context"
	"fmt"
	"log"

	"github.com/spatial-studio/spatial-backend/internal/projects/domain"
	"github.com/spatial-studio/spatial-backend/internal/storage"
)

// ProjectStore is the slice of the repository the upload path needs.
type ProjectStore interface {
	Create(ctx context.Context, customerID, projectName, floorplanKey string) (*domain.Project, error)
	GetByID(ctx context.Context, id string) (*domain.Project, error)
}

// Dispatcher triggers background analysis for a project. Dispatch must
// return promptly; it never reports the analysis outcome.
type Dispatcher interface {
	Dispatch(projectID string)
}

// UploadInput carries one multipart upload across the service boundary.
type UploadInput struct {
	Data        []byte
	Filename    string
	ContentType string
	Size        int64
	CustomerID  string
	ProjectName string
}

// UploadService orchestrates the upload path: validate and persist the
// file, create the project record, then fire-and-forget the analysis.
type UploadService struct {
	ingestor *storage.Ingestor
	store    ProjectStore
	dispatch Dispatcher
}

func NewUploadService(ingestor *storage.Ingestor, store ProjectStore, dispatch Dispatcher) *UploadService {
	return &UploadService{
		ingestor: ingestor,
		store:    store,
		dispatch: dispatch,
	}
}

// Upload ingests the floor plan and creates the project with
// status='pending'. The upload is only successful once the record exists;
// analysis is dispatched afterwards and its outcome never affects the
// returned project.
func (s *UploadService) Upload(ctx context.Context, in UploadInput) (*domain.Project, error) {
	key, err := s.ingestor.Ingest(ctx, in.Data, in.Filename, in.ContentType, in.Size)
	if err != nil {
		return nil, err
	}

	p, err := s.store.Create(ctx,
		domain.ResolveCustomerID(in.CustomerID),
		domain.ResolveProjectName(in.ProjectName),
		key,
	)
	if err != nil {
		return nil, fmt.Errorf("create project record: %w", err)
	}

	log.Printf("[info] operation=upload project_id=%s key=%s size=%d", p.ID, key, in.Size)

	s.dispatch.Dispatch(p.ID)

	return p, nil
}

// Status loads the project for the polling endpoint.
func (s *UploadService) Status(ctx context.Context, projectID string) (*domain.Project, error) {
	return s.store.GetByID(ctx, projectID)
}
