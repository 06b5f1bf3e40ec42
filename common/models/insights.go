package models

import (
	"strings"
	"time"
)

// Challenge is one extracted RFP challenge.
type Challenge struct {
	Text     string `json:"text"`
	Type     string `json:"type"`
	Impact   string `json:"impact"`
	Category string `json:"category"`
}

// CaseStudy is a reference engagement, persisted for graph and retrieval
// matching.
// Maps to: case_study table
type CaseStudy struct {
	ID                 string  `db:"id" json:"id"`
	Title              string  `db:"title" json:"title"`
	Industry           string  `db:"industry" json:"industry"`
	Description        string  `db:"description" json:"description"`
	ProjectDescription string  `db:"project_description" json:"project_description,omitempty"`
	Impact             string  `db:"impact" json:"impact"`
	Score              float64 `db:"-" json:"score,omitempty"`
	Source             string  `db:"-" json:"source,omitempty"` // "graph", "rag" or "db"
}

// SearchText concatenates the fields entity extraction and semantic search
// run over.
func (cs CaseStudy) SearchText() string {
	parts := make([]string, 0, 5)
	for _, p := range []string{cs.Title, cs.Industry, cs.Description, cs.ProjectDescription, cs.Impact} {
		if s := strings.TrimSpace(p); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

// BattleCard summarizes one competitor.
type BattleCard struct {
	Competitor      string   `json:"competitor"`
	Weaknesses      []string `json:"weaknesses"`
	Gaps            []string `json:"gaps"`
	Recommendations []string `json:"recommendations"`
}

// OutlineSection is one entry of the proposal skeleton.
type OutlineSection struct {
	Key         string `json:"key"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Order       int    `json:"order"`
}

// RefinementFeedback is the critic's structured review.
type RefinementFeedback struct {
	Overall         float64  `json:"overall"`
	Clarity         float64  `json:"clarity"`
	Completeness    float64  `json:"completeness"`
	Relevance       float64  `json:"relevance"`
	Professionalism float64  `json:"professionalism"`
	WeakSections    []string `json:"weak_sections"`
	Suggestions     []string `json:"suggestions"`
}

// Insights is the persisted analysis output of one workflow run.
// Maps to: insights table (one row per project/document pair)
type Insights struct {
	ProjectID     string `db:"project_id" json:"project_id"`
	RFPDocumentID string `db:"rfp_document_id" json:"rfp_document_id"`

	Summary            string   `db:"summary" json:"summary"`
	ContextOverview    string   `db:"context_overview" json:"context_overview"`
	ProjectScope       string   `db:"project_scope" json:"project_scope"`
	BusinessObjectives []string `db:"business_objectives" json:"business_objectives"`

	Challenges          []Challenge         `db:"challenges" json:"challenges"`
	DiscoveryQuestions  map[string][]string `db:"discovery_questions" json:"discovery_questions"`
	ValuePropositions   []string            `db:"value_propositions" json:"value_propositions"`
	MatchingCaseStudies []CaseStudy         `db:"matching_case_studies" json:"matching_case_studies"`
	Competitors         []string            `db:"competitors" json:"competitors"`

	// ProposalDraft keeps the 13-key section map from the last run.
	ProposalDraft map[string]string `db:"proposal_draft" json:"proposal_draft,omitempty"`
	CriticScore   float64           `db:"critic_score" json:"critic_score"`

	// Model records which provider/model produced the run.
	Model     string    `db:"model" json:"model,omitempty"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
