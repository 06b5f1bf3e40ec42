package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/db"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/models"
)

// ProjectRepository handles database operations for projects.
type ProjectRepository struct {
	db *db.DB
}

// NewProjectRepository creates a new project repository.
func NewProjectRepository(database *db.DB) *ProjectRepository {
	return &ProjectRepository{db: database}
}

// Upsert inserts or updates the project identity fields. Workflow outputs
// (battle cards, outline, approval) are written by their own setters.
func (r *ProjectRepository) Upsert(ctx context.Context, p *models.Project) error {
	query := `
		INSERT INTO project (id, name, industry)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			industry = EXCLUDED.industry,
			updated_at = now()
	`

	_, err := r.db.Exec(ctx, query, p.ID, p.Name, p.Industry)
	if err != nil {
		return fmt.Errorf("failed to upsert project: %w", err)
	}
	return nil
}

// GetByID retrieves a project by its ID.
func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*models.Project, error) {
	query := `
		SELECT id, name, industry, battle_cards, proposal_outline, outline_approved, created_at, updated_at
		FROM project
		WHERE id = $1
	`

	p := &models.Project{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.Name,
		&p.Industry,
		&p.BattleCards,
		&p.ProposalOutline,
		&p.OutlineApproved,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: project %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return p, nil
}

// Industry returns just the industry field, used to filter retrieval.
func (r *ProjectRepository) Industry(ctx context.Context, id string) (string, error) {
	var industry string
	err := r.db.QueryRow(ctx, `SELECT industry FROM project WHERE id = $1`, id).Scan(&industry)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%w: project %s", ErrNotFound, id)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get project industry: %w", err)
	}
	return industry, nil
}

// SetOutlineApproved records an approval decision.
func (r *ProjectRepository) SetOutlineApproved(ctx context.Context, id string, approved bool) error {
	query := `
		UPDATE project
		SET outline_approved = $2, updated_at = now()
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, id, approved)
	if err != nil {
		return fmt.Errorf("failed to set outline approval: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: project %s", ErrNotFound, id)
	}
	return nil
}
