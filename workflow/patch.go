package workflow

import (
	"encoding/json"
	"fmt"
	"time"

	jsonpatch "github.com/evanphx/json-patch/v5"
)

// Patch is the partial update a node hands back to the engine. Nil scalar
// pointers and nil collections mean "untouched"; list fields append and map
// fields merge key-wise, so patches from parallel branches over disjoint
// fields commute.
type Patch struct {
	CurrentStep *string

	RFPSummary         *string
	ContextOverview    *string
	ProjectScope       *string
	BusinessObjectives []string

	Challenges          []Challenge
	DiscoveryQuestions  map[string][]string
	ValuePropositions   []string
	MatchingCaseStudies []CaseStudy
	Competitors         []string
	BattleCards         []BattleCard

	ProposalOutline []OutlineSection
	OutlineApproved *bool
	ProposalDraft   map[string]string

	CriticScore          *float64
	RefinementFeedback   *RefinementFeedback
	RefinementIterations *int
	CriticScoresHistory  []float64

	Log      []LogEntry
	Errors   []string
	Warnings []string
}

// IsZero reports whether the patch carries no change at all.
func (p Patch) IsZero() bool {
	return p.CurrentStep == nil &&
		p.RFPSummary == nil && p.ContextOverview == nil && p.ProjectScope == nil &&
		len(p.BusinessObjectives) == 0 && len(p.Challenges) == 0 &&
		len(p.DiscoveryQuestions) == 0 && len(p.ValuePropositions) == 0 &&
		len(p.MatchingCaseStudies) == 0 && len(p.Competitors) == 0 &&
		len(p.BattleCards) == 0 && len(p.ProposalOutline) == 0 &&
		p.OutlineApproved == nil && len(p.ProposalDraft) == 0 &&
		p.CriticScore == nil && p.RefinementFeedback == nil &&
		p.RefinementIterations == nil && len(p.CriticScoresHistory) == 0 &&
		len(p.Log) == 0 && len(p.Errors) == 0 && len(p.Warnings) == 0
}

// Apply folds a patch into the state. This is the single write path for
// workflow state.
func Apply(s *State, p Patch) {
	if p.CurrentStep != nil {
		s.CurrentStep = *p.CurrentStep
	}
	if p.RFPSummary != nil {
		s.RFPSummary = *p.RFPSummary
	}
	if p.ContextOverview != nil {
		s.ContextOverview = *p.ContextOverview
	}
	if p.ProjectScope != nil {
		s.ProjectScope = *p.ProjectScope
	}
	s.BusinessObjectives = append(s.BusinessObjectives, p.BusinessObjectives...)
	s.Challenges = append(s.Challenges, p.Challenges...)
	s.ValuePropositions = append(s.ValuePropositions, p.ValuePropositions...)
	s.MatchingCaseStudies = append(s.MatchingCaseStudies, p.MatchingCaseStudies...)
	s.Competitors = append(s.Competitors, p.Competitors...)
	s.BattleCards = append(s.BattleCards, p.BattleCards...)
	s.ProposalOutline = append(s.ProposalOutline, p.ProposalOutline...)

	if len(p.DiscoveryQuestions) > 0 {
		if s.DiscoveryQuestions == nil {
			s.DiscoveryQuestions = make(map[string][]string, len(p.DiscoveryQuestions))
		}
		for k, v := range p.DiscoveryQuestions {
			s.DiscoveryQuestions[k] = v
		}
	}
	if len(p.ProposalDraft) > 0 {
		if s.ProposalDraft == nil {
			s.ProposalDraft = make(map[string]string, len(p.ProposalDraft))
		}
		for k, v := range p.ProposalDraft {
			s.ProposalDraft[k] = v
		}
	}

	if p.OutlineApproved != nil {
		v := *p.OutlineApproved
		s.OutlineApproved = &v
	}
	if p.CriticScore != nil {
		s.CriticScore = *p.CriticScore
	}
	if p.RefinementFeedback != nil {
		fb := *p.RefinementFeedback
		s.RefinementFeedback = &fb
	}
	if p.RefinementIterations != nil {
		s.RefinementIterations = *p.RefinementIterations
	}
	s.CriticScoresHistory = append(s.CriticScoresHistory, p.CriticScoresHistory...)

	s.ExecutionLog = append(s.ExecutionLog, p.Log...)
	s.Errors = append(s.Errors, p.Errors...)
	s.Warnings = append(s.Warnings, p.Warnings...)
}

// LogPatch builds a patch carrying a single execution log entry.
func LogPatch(step, status, detail string) Patch {
	return Patch{Log: []LogEntry{{Step: step, Status: status, Detail: detail, At: time.Now().UTC()}}}
}

// Snapshot renders the state as a generic JSON map for guard evaluation.
func Snapshot(s *State) (map[string]any, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state snapshot: %w", err)
	}
	return out, nil
}

// MergePatch computes the RFC 7386 merge patch that turns before into after.
// The engine records one per applied node patch for the run trace.
func MergePatch(before, after *State) ([]byte, error) {
	b, err := json.Marshal(before)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal before-state: %w", err)
	}
	a, err := json.Marshal(after)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal after-state: %w", err)
	}
	patch, err := jsonpatch.CreateMergePatch(b, a)
	if err != nil {
		return nil, fmt.Errorf("failed to create merge patch: %w", err)
	}
	return patch, nil
}
