package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/db"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/models"
)

// InsightsRepository handles database operations for run insights. One row
// per project; reruns overwrite it.
type InsightsRepository struct {
	db *db.DB
}

// NewInsightsRepository creates a new insights repository.
func NewInsightsRepository(database *db.DB) *InsightsRepository {
	return &InsightsRepository{db: database}
}

// Upsert inserts or replaces the project's insights.
func (r *InsightsRepository) Upsert(ctx context.Context, in *models.Insights) error {
	query := `
		INSERT INTO insights (
			project_id, rfp_document_id, summary, context_overview, project_scope,
			business_objectives, challenges, discovery_questions, value_propositions,
			matching_case_studies, competitors, proposal_draft, critic_score, model, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, now())
		ON CONFLICT (project_id) DO UPDATE SET
			rfp_document_id = EXCLUDED.rfp_document_id,
			summary = EXCLUDED.summary,
			context_overview = EXCLUDED.context_overview,
			project_scope = EXCLUDED.project_scope,
			business_objectives = EXCLUDED.business_objectives,
			challenges = EXCLUDED.challenges,
			discovery_questions = EXCLUDED.discovery_questions,
			value_propositions = EXCLUDED.value_propositions,
			matching_case_studies = EXCLUDED.matching_case_studies,
			competitors = EXCLUDED.competitors,
			proposal_draft = EXCLUDED.proposal_draft,
			critic_score = EXCLUDED.critic_score,
			model = EXCLUDED.model,
			updated_at = now()
	`

	_, err := r.db.Exec(ctx, query,
		in.ProjectID,
		in.RFPDocumentID,
		in.Summary,
		in.ContextOverview,
		in.ProjectScope,
		in.BusinessObjectives,
		in.Challenges,
		in.DiscoveryQuestions,
		in.ValuePropositions,
		in.MatchingCaseStudies,
		in.Competitors,
		in.ProposalDraft,
		in.CriticScore,
		in.Model,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert insights: %w", err)
	}
	return nil
}

// GetByProject retrieves the project's insights.
func (r *InsightsRepository) GetByProject(ctx context.Context, projectID string) (*models.Insights, error) {
	query := `
		SELECT project_id, rfp_document_id, summary, context_overview, project_scope,
		       business_objectives, challenges, discovery_questions, value_propositions,
		       matching_case_studies, competitors, proposal_draft, critic_score, model, updated_at
		FROM insights
		WHERE project_id = $1
	`

	in := &models.Insights{}
	err := r.db.QueryRow(ctx, query, projectID).Scan(
		&in.ProjectID,
		&in.RFPDocumentID,
		&in.Summary,
		&in.ContextOverview,
		&in.ProjectScope,
		&in.BusinessObjectives,
		&in.Challenges,
		&in.DiscoveryQuestions,
		&in.ValuePropositions,
		&in.MatchingCaseStudies,
		&in.Competitors,
		&in.ProposalDraft,
		&in.CriticScore,
		&in.Model,
		&in.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: insights for project %s", ErrNotFound, projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get insights: %w", err)
	}
	return in, nil
}

// ExistsForProject reports whether the project has persisted insights.
func (r *InsightsRepository) ExistsForProject(ctx context.Context, projectID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM insights WHERE project_id = $1)`, projectID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check insights: %w", err)
	}
	return exists, nil
}
