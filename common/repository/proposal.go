package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/db"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/models"
)

// ProposalRepository handles database operations for assembled proposals.
type ProposalRepository struct {
	db *db.DB
}

// NewProposalRepository creates a new proposal repository.
func NewProposalRepository(database *db.DB) *ProposalRepository {
	return &ProposalRepository{db: database}
}

// CreateIfAbsent inserts the proposal unless the project already has one.
// Returns true when a row was written.
func (r *ProposalRepository) CreateIfAbsent(ctx context.Context, p *models.Proposal) (bool, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	query := `
		INSERT INTO proposal (id, project_id, rfp_document_id, sections, critic_score)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (project_id) DO NOTHING
	`

	tag, err := r.db.Exec(ctx, query, p.ID, p.ProjectID, p.RFPDocumentID, p.Sections, p.CriticScore)
	if err != nil {
		return false, fmt.Errorf("failed to create proposal: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Upsert inserts or replaces the project's proposal.
func (r *ProposalRepository) Upsert(ctx context.Context, p *models.Proposal) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	query := `
		INSERT INTO proposal (id, project_id, rfp_document_id, sections, critic_score)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (project_id) DO UPDATE SET
			rfp_document_id = EXCLUDED.rfp_document_id,
			sections = EXCLUDED.sections,
			critic_score = EXCLUDED.critic_score,
			updated_at = now()
	`

	_, err := r.db.Exec(ctx, query, p.ID, p.ProjectID, p.RFPDocumentID, p.Sections, p.CriticScore)
	if err != nil {
		return fmt.Errorf("failed to upsert proposal: %w", err)
	}
	return nil
}

// GetByProject retrieves the project's proposal.
func (r *ProposalRepository) GetByProject(ctx context.Context, projectID string) (*models.Proposal, error) {
	query := `
		SELECT id, project_id, rfp_document_id, sections, critic_score, created_at, updated_at
		FROM proposal
		WHERE project_id = $1
	`

	p := &models.Proposal{}
	err := r.db.QueryRow(ctx, query, projectID).Scan(
		&p.ID,
		&p.ProjectID,
		&p.RFPDocumentID,
		&p.Sections,
		&p.CriticScore,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: proposal for project %s", ErrNotFound, projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get proposal: %w", err)
	}
	return p, nil
}
