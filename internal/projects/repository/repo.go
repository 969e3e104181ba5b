package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spatial-studio/spatial-backend/internal/projects/domain"
)

// ProjectRepository provides persistence operations for spatial projects.
// It is the single execution path for analysis-state mutations: the worker
// moves a project through its lifecycle exclusively through the Mark*
// methods, which refuse to leave terminal states.
type ProjectRepository struct {
	db *pgxpool.Pool
}

func NewProjectRepository(db *pgxpool.Pool) *ProjectRepository {
	return &ProjectRepository{db: db}
}

const projectColumns = `
id, customer_id, project_name, floorplan_key, analysis_status,
analysis_error, model, dimensions, analysis_started_at,
analysis_completed_at, created_at, updated_at`

// Create inserts a new project with analysis_status='pending'. The id is
// generated here rather than by the database so the caller can log it
// before the round trip completes. The floorplan key is written exactly
// once here and never updated afterwards.
func (r *ProjectRepository) Create(ctx context.Context, customerID, projectName, floorplanKey string) (*domain.Project, error) {
	if floorplanKey == "" {
		return nil, fmt.Errorf("floorplan key required")
	}

	const q = `
INSERT INTO spatial_projects (id, customer_id, project_name, floorplan_key, analysis_status)
VALUES ($1, $2, $3, $4, 'pending')
RETURNING` + projectColumns + `;
`
	row := r.db.QueryRow(ctx, q, uuid.NewString(), customerID, projectName, floorplanKey)
	return scanProject(row)
}

// GetByID returns the project or domain.ErrNotFound.
func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	const q = `
SELECT` + projectColumns + `
FROM spatial_projects
WHERE id = $1;
`
	row := r.db.QueryRow(ctx, q, id)
	p, err := scanProject(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// MarkProcessing moves a pending project to processing and stamps
// analysis_started_at. It is a no-op error for any other starting state.
func (r *ProjectRepository) MarkProcessing(ctx context.Context, id string) error {
	const q = `
UPDATE spatial_projects
SET analysis_status = 'processing', analysis_started_at = now(), updated_at = now()
WHERE id = $1 AND analysis_status = 'pending';
`
	return r.guardedUpdate(ctx, id, q)
}

// MarkCompleted stores the analysis result payloads and finalizes the
// project. Terminal states are never overwritten.
func (r *ProjectRepository) MarkCompleted(ctx context.Context, id string, model, dimensions json.RawMessage) error {
	const q = `
UPDATE spatial_projects
SET analysis_status = 'completed', model = $2, dimensions = $3,
    analysis_completed_at = now(), updated_at = now()
WHERE id = $1 AND analysis_status NOT IN ('completed', 'failed');
`
	return r.guardedUpdate(ctx, id, q, model, dimensions)
}

// MarkFailed records a human-readable failure message. Terminal states are
// never overwritten.
func (r *ProjectRepository) MarkFailed(ctx context.Context, id, message string) error {
	const q = `
UPDATE spatial_projects
SET analysis_status = 'failed', analysis_error = $2,
    analysis_completed_at = now(), updated_at = now()
WHERE id = $1 AND analysis_status NOT IN ('completed', 'failed');
`
	return r.guardedUpdate(ctx, id, q, message)
}

// ListStalePending returns ids of projects that have sat in 'pending' for
// longer than the given interval. The sweeper re-dispatches these.
func (r *ProjectRepository) ListStalePending(ctx context.Context, olderThan string) ([]string, error) {
	const q = `
SELECT id
FROM spatial_projects
WHERE analysis_status = 'pending' AND created_at < now() - $1::interval
ORDER BY created_at ASC;
`
	rows, err := r.db.Query(ctx, q, olderThan)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0, 8)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *ProjectRepository) guardedUpdate(ctx context.Context, id, q string, args ...any) error {
	tag, err := r.db.Exec(ctx, q, append([]any{id}, args...)...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Zero rows means the project is gone or the transition was refused.
	p, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if domain.Terminal(p.Status) {
		return domain.ErrTerminalState
	}
	return fmt.Errorf("%w: status is %q", domain.ErrInvalidTransition, p.Status)
}

func scanProject(row pgx.Row) (*domain.Project, error) {
	var (
		p                 domain.Project
		model, dimensions []byte
	)
	err := row.Scan(
		&p.ID,
		&p.CustomerID,
		&p.ProjectName,
		&p.FloorplanKey,
		&p.Status,
		&p.Error,
		&model,
		&dimensions,
		&p.StartedAt,
		&p.CompletedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Model = model
	p.Dimensions = dimensions
	return &p, nil
}
