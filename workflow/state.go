package workflow

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/models"
)

// Step names for the proposal workflow graph.
const (
	StepAnalyzer           = "analyzer"
	StepChallengeExtractor = "challenge_extractor"
	StepDiscoveryQuestion  = "discovery_question"
	StepValueProposition   = "value_proposition"
	StepCaseStudyMatcher   = "case_study_matcher"
	StepCompetitorAnalyzer = "competitor_analyzer"
	StepOutlineGenerator   = "outline_generator"
	StepHumanApproval      = "human_approval"
	StepProposalBuilder    = "proposal_builder"
	StepCritic             = "critic"
	StepRefine             = "refine"
	StepEnd                = "end"
)

// Log entry statuses.
const (
	StatusSuccess   = "success"
	StatusWarning   = "warning"
	StatusError     = "error"
	StatusPending   = "pending"
	StatusSkipped   = "skipped"
	StatusCancelled = "cancelled"
)

// Record shapes shared with persistence and the knowledge graph live in
// common/models. The state embeds them directly.
type (
	Challenge          = models.Challenge
	CaseStudy          = models.CaseStudy
	BattleCard         = models.BattleCard
	OutlineSection     = models.OutlineSection
	RefinementFeedback = models.RefinementFeedback
)

// LogEntry records one node execution outcome.
type LogEntry struct {
	Step   string    `json:"step"`
	Status string    `json:"status"`
	Detail string    `json:"detail,omitempty"`
	At     time.Time `json:"at"`
}

// State is the shared record every node reads and patches. Mutation goes
// through Apply only; handlers receive value copies.
type State struct {
	StateID        string          `json:"state_id"`
	ProjectID      string          `json:"project_id"`
	RFPDocumentID  string          `json:"rfp_document_id"`
	RFPText        string          `json:"rfp_text"`
	SelectedTasks  map[string]bool `json:"selected_tasks,omitempty"`
	CurrentStep    string          `json:"current_step"`

	RFPSummary         string   `json:"rfp_summary"`
	ContextOverview    string   `json:"context_overview"`
	ProjectScope       string   `json:"project_scope"`
	BusinessObjectives []string `json:"business_objectives"`

	Challenges          []Challenge         `json:"challenges"`
	DiscoveryQuestions  map[string][]string `json:"discovery_questions"`
	ValuePropositions   []string            `json:"value_propositions"`
	MatchingCaseStudies []CaseStudy         `json:"matching_case_studies"`
	Competitors         []string            `json:"competitors"`
	BattleCards         []BattleCard        `json:"battle_cards"`

	ProposalOutline   []OutlineSection  `json:"proposal_outline"`
	OutlineApproved   *bool             `json:"outline_approved,omitempty"`
	OutlineApprovedAt *time.Time        `json:"outline_approved_at,omitempty"`
	ProposalDraft     map[string]string `json:"proposal_draft,omitempty"`

	CriticScore          float64             `json:"critic_score"`
	RefinementFeedback   *RefinementFeedback `json:"refinement_feedback,omitempty"`
	RefinementIterations int                 `json:"refinement_iterations"`
	CriticScoresHistory  []float64           `json:"critic_scores_history"`

	ExecutionLog []LogEntry `json:"execution_log"`
	Errors       []string   `json:"errors"`
	Warnings     []string   `json:"warnings"`

	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// TraceSeq counts trace records across park/resume. Not part of the
	// state document.
	TraceSeq int `json:"-"`

	// mu guards concurrent reads while the engine drives the run. Clones
	// drop it; only the live record is locked.
	mu *sync.RWMutex
}

// NewState seeds a run for one project/document pair.
func NewState(projectID, rfpDocumentID, rfpText string, selectedTasks map[string]bool) *State {
	return &State{
		StateID:       uuid.NewString(),
		ProjectID:     projectID,
		RFPDocumentID: rfpDocumentID,
		RFPText:       rfpText,
		SelectedTasks: selectedTasks,
		StartedAt:     time.Now().UTC(),
		mu:            &sync.RWMutex{},
	}
}

// Clone returns a deep copy. Handlers run on clones so parallel branches
// never share mutable structures.
func (s *State) Clone() State {
	out := *s
	out.mu = nil

	out.SelectedTasks = cloneBoolMap(s.SelectedTasks)
	out.BusinessObjectives = append([]string(nil), s.BusinessObjectives...)
	out.Challenges = append([]Challenge(nil), s.Challenges...)
	out.ValuePropositions = append([]string(nil), s.ValuePropositions...)
	out.MatchingCaseStudies = append([]CaseStudy(nil), s.MatchingCaseStudies...)
	out.Competitors = append([]string(nil), s.Competitors...)
	out.ProposalOutline = append([]OutlineSection(nil), s.ProposalOutline...)
	out.CriticScoresHistory = append([]float64(nil), s.CriticScoresHistory...)
	out.ExecutionLog = append([]LogEntry(nil), s.ExecutionLog...)
	out.Errors = append([]string(nil), s.Errors...)
	out.Warnings = append([]string(nil), s.Warnings...)

	if s.DiscoveryQuestions != nil {
		out.DiscoveryQuestions = make(map[string][]string, len(s.DiscoveryQuestions))
		for k, v := range s.DiscoveryQuestions {
			out.DiscoveryQuestions[k] = append([]string(nil), v...)
		}
	}
	if s.ProposalDraft != nil {
		out.ProposalDraft = make(map[string]string, len(s.ProposalDraft))
		for k, v := range s.ProposalDraft {
			out.ProposalDraft[k] = v
		}
	}
	if s.BattleCards != nil {
		out.BattleCards = make([]BattleCard, len(s.BattleCards))
		for i, bc := range s.BattleCards {
			out.BattleCards[i] = BattleCard{
				Competitor:      bc.Competitor,
				Weaknesses:      append([]string(nil), bc.Weaknesses...),
				Gaps:            append([]string(nil), bc.Gaps...),
				Recommendations: append([]string(nil), bc.Recommendations...),
			}
		}
	}
	if s.OutlineApproved != nil {
		v := *s.OutlineApproved
		out.OutlineApproved = &v
	}
	if s.OutlineApprovedAt != nil {
		v := *s.OutlineApprovedAt
		out.OutlineApprovedAt = &v
	}
	if s.RefinementFeedback != nil {
		fb := *s.RefinementFeedback
		fb.WeakSections = append([]string(nil), s.RefinementFeedback.WeakSections...)
		fb.Suggestions = append([]string(nil), s.RefinementFeedback.Suggestions...)
		out.RefinementFeedback = &fb
	}
	if s.FinishedAt != nil {
		v := *s.FinishedAt
		out.FinishedAt = &v
	}

	return out
}

// Copy returns a deep copy taken under the read lock. Readers outside the
// package use it instead of Clone, which leaves locking to the caller.
func (s *State) Copy() State {
	s.rlock()
	defer s.runlock()
	return s.Clone()
}

// ChallengesSelected reports whether the challenge branch is enabled. The
// branch runs unless selected_tasks explicitly disables it.
func (s *State) ChallengesSelected() bool {
	if s.SelectedTasks == nil {
		return true
	}
	enabled, ok := s.SelectedTasks["challenges"]
	if !ok {
		return true
	}
	return enabled
}

// lock helpers are nil-safe so handler copies stay inert.

func (s *State) lock() {
	if s.mu != nil {
		s.mu.Lock()
	}
}

func (s *State) unlock() {
	if s.mu != nil {
		s.mu.Unlock()
	}
}

func (s *State) rlock() {
	if s.mu != nil {
		s.mu.RLock()
	}
}

func (s *State) runlock() {
	if s.mu != nil {
		s.mu.RUnlock()
	}
}

func cloneBoolMap(in map[string]bool) map[string]bool {
	if in == nil {
		return nil
	}
	out := make(map[string]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
