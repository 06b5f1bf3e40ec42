package repository

import (
	"context"
	"fmt"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/db"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/logger"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/models"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/workflow"
)

// Artifacts persists what a finished run produced. Implements the workflow
// artifact store: every write is a per-entity upsert, so reruns overwrite
// and partial failures leave earlier entities in place.
type Artifacts struct {
	insights  *InsightsRepository
	projects  *ProjectRepository
	proposals *ProposalRepository
	log       *logger.Logger

	// modelLabel records which configured provider produced the run.
	modelLabel string
}

// NewArtifacts wires the artifact store over the record repositories.
func NewArtifacts(database *db.DB, modelLabel string, log *logger.Logger) *Artifacts {
	return &Artifacts{
		insights:   NewInsightsRepository(database),
		projects:   NewProjectRepository(database),
		proposals:  NewProposalRepository(database),
		log:        log,
		modelLabel: modelLabel,
	}
}

// SaveRunArtifacts writes insights, project outputs and, when absent, the
// derived proposal record.
func (a *Artifacts) SaveRunArtifacts(ctx context.Context, st *workflow.State) error {
	snap := st.Copy()

	if err := a.insights.Upsert(ctx, insightsFromState(&snap, a.modelLabel)); err != nil {
		return err
	}

	if err := a.saveProjectOutputs(ctx, &snap); err != nil {
		return err
	}

	if len(snap.ProposalDraft) > 0 {
		p := models.ProposalFromDraft(snap.ProjectID, snap.RFPDocumentID, snap.ProposalDraft, snap.CriticScore)
		created, err := a.proposals.CreateIfAbsent(ctx, p)
		if err != nil {
			return err
		}
		if created {
			a.log.WithProject(snap.ProjectID).Info("proposal record derived from draft",
				"sections", len(p.Sections))
		}
	}

	return nil
}

// saveProjectOutputs upserts battle cards, outline and approval onto the
// project record.
func (a *Artifacts) saveProjectOutputs(ctx context.Context, snap *workflow.State) error {
	cards := snap.BattleCards
	if cards == nil {
		cards = []models.BattleCard{}
	}
	outline := snap.ProposalOutline
	if outline == nil {
		outline = []models.OutlineSection{}
	}

	query := `
		INSERT INTO project (id, battle_cards, proposal_outline, outline_approved)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			battle_cards = EXCLUDED.battle_cards,
			proposal_outline = EXCLUDED.proposal_outline,
			outline_approved = EXCLUDED.outline_approved,
			updated_at = now()
	`

	_, err := a.projects.db.Exec(ctx, query, snap.ProjectID, cards, outline, snap.OutlineApproved)
	if err != nil {
		return fmt.Errorf("failed to save project outputs: %w", err)
	}
	return nil
}

// HasInsights reports whether the project already has persisted results.
func (a *Artifacts) HasInsights(ctx context.Context, projectID string) (bool, error) {
	return a.insights.ExistsForProject(ctx, projectID)
}

// SetOutlineApproved persists an approval decision onto the project record.
func (a *Artifacts) SetOutlineApproved(ctx context.Context, projectID string, approved bool) error {
	return a.projects.SetOutlineApproved(ctx, projectID, approved)
}

// insightsFromState flattens the terminal state into the insights record.
// Nil collections become empty ones so the persisted JSON stays uniform.
func insightsFromState(snap *workflow.State, modelLabel string) *models.Insights {
	in := &models.Insights{
		ProjectID:           snap.ProjectID,
		RFPDocumentID:       snap.RFPDocumentID,
		Summary:             snap.RFPSummary,
		ContextOverview:     snap.ContextOverview,
		ProjectScope:        snap.ProjectScope,
		BusinessObjectives:  snap.BusinessObjectives,
		Challenges:          snap.Challenges,
		DiscoveryQuestions:  snap.DiscoveryQuestions,
		ValuePropositions:   snap.ValuePropositions,
		MatchingCaseStudies: snap.MatchingCaseStudies,
		Competitors:         snap.Competitors,
		ProposalDraft:       snap.ProposalDraft,
		CriticScore:         snap.CriticScore,
		Model:               modelLabel,
	}

	if in.BusinessObjectives == nil {
		in.BusinessObjectives = []string{}
	}
	if in.Challenges == nil {
		in.Challenges = []models.Challenge{}
	}
	if in.DiscoveryQuestions == nil {
		in.DiscoveryQuestions = map[string][]string{}
	}
	if in.ValuePropositions == nil {
		in.ValuePropositions = []string{}
	}
	if in.MatchingCaseStudies == nil {
		in.MatchingCaseStudies = []models.CaseStudy{}
	}
	if in.Competitors == nil {
		in.Competitors = []string{}
	}
	if in.ProposalDraft == nil {
		in.ProposalDraft = map[string]string{}
	}
	return in
}
