package workflow

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/logger"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/metrics"
)

// DocumentSource loads the RFP text a run operates on.
type DocumentSource interface {
	RFPText(ctx context.Context, projectID, rfpDocumentID string) (string, error)
}

// ArtifactStore persists what a finished run produced.
type ArtifactStore interface {
	SaveRunArtifacts(ctx context.Context, st *State) error
	HasInsights(ctx context.Context, projectID string) (bool, error)
}

// ApprovalSink is notified when an outline approval decision lands.
type ApprovalSink interface {
	OutlineApproval(ctx context.Context, projectID string, approved bool)
}

// RunSummary is the synchronous answer to a run request.
type RunSummary struct {
	StateID        string `json:"state_id"`
	HasSummary     bool   `json:"has_summary"`
	NumChallenges  int    `json:"n_challenges"`
	NumValueProps  int    `json:"n_value_props"`
	NumCaseStudies int    `json:"n_case_studies"`
	HasProposal    bool   `json:"has_proposal"`
}

// ProjectStatus is the coarse per-project view.
type ProjectStatus struct {
	Status   string          `json:"status"` // not_started, pending, running, error, completed
	StateID  string          `json:"state_id,omitempty"`
	Progress map[string]bool `json:"progress"`
}

type activeRun struct {
	state  *State
	cancel context.CancelFunc
	ctx    context.Context
	parked bool
	done   bool
}

// Manager owns the run registry: one active run per project/document pair,
// terminal snapshots kept until process restart.
type Manager struct {
	engine    *Engine
	docs      DocumentSource
	artifacts ArtifactStore
	approvals ApprovalSink
	log       *logger.Logger
	metrics   *metrics.Metrics

	mu        sync.Mutex
	byPair    map[string]*activeRun // active runs only
	byState   map[string]*activeRun // every run since process start
	byProject map[string]string     // latest state per project
}

// NewManager wires the run registry.
func NewManager(engine *Engine, docs DocumentSource, artifacts ArtifactStore, approvals ApprovalSink, log *logger.Logger, m *metrics.Metrics) *Manager {
	return &Manager{
		engine:    engine,
		docs:      docs,
		artifacts: artifacts,
		approvals: approvals,
		log:       log,
		metrics:   m,
		byPair:    make(map[string]*activeRun),
		byState:   make(map[string]*activeRun),
		byProject: make(map[string]string),
	}
}

func pairKey(projectID, rfpDocumentID string) string {
	return projectID + "/" + rfpDocumentID
}

// StartRun loads the document, validates it, and drives the workflow
// synchronously. It returns once the run is terminal or parked at the
// approval gate. userID, when present, tags the run's log records.
func (m *Manager) StartRun(ctx context.Context, projectID, rfpDocumentID string, selectedTasks map[string]bool, userID string) (*RunSummary, error) {
	text, err := m.docs.RFPText(ctx, projectID, rfpDocumentID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoExtractedText
	}

	st := NewState(projectID, rfpDocumentID, text, selectedTasks)

	// One run per pair. The run context is detached from the request so a
	// dropped connection does not kill the workflow mid-flight.
	runCtx, cancel := context.WithCancel(context.Background())
	run := &activeRun{state: st, cancel: cancel, ctx: runCtx}

	key := pairKey(projectID, rfpDocumentID)
	m.mu.Lock()
	if existing, ok := m.byPair[key]; ok && !existing.done {
		m.mu.Unlock()
		cancel()
		return nil, ErrBusy
	}
	m.byPair[key] = run
	m.byState[st.StateID] = run
	m.byProject[projectID] = st.StateID
	m.mu.Unlock()

	runLog := m.log.WithState(st.StateID).WithProject(projectID)
	if userID != "" {
		runLog = runLog.WithFields(map[string]any{"requested_by": userID})
	}
	runLog.Info("workflow run starting", "rfp_document_id", rfpDocumentID)

	res, runErr := m.engine.Run(runCtx, st)

	if res != nil && res.Parked {
		m.mu.Lock()
		run.parked = true
		m.mu.Unlock()
		return m.summary(st), nil
	}

	return m.finishRun(ctx, run, runErr)
}

// finishRun closes out a terminal run: unregister the pair, persist what the
// run produced, and decide the caller-visible outcome.
func (m *Manager) finishRun(ctx context.Context, run *activeRun, runErr error) (*RunSummary, error) {
	st := run.state

	m.mu.Lock()
	run.done = true
	run.parked = false
	delete(m.byPair, pairKey(st.ProjectID, st.RFPDocumentID))
	m.mu.Unlock()

	st.rlock()
	analyzed := st.RFPSummary != ""
	st.runlock()

	if m.metrics != nil {
		status := StatusSuccess
		if runErr != nil {
			status = StatusError
		}
		m.metrics.WorkflowRuns.WithLabelValues(status).Inc()
	}

	if !analyzed {
		// Nothing usable was produced; surface the failure and persist
		// nothing.
		if runErr == nil {
			runErr = fmt.Errorf("workflow produced no analysis output")
		}
		m.log.WithState(st.StateID).Error("workflow run failed before analysis", "error", runErr)
		return nil, runErr
	}

	if err := m.artifacts.SaveRunArtifacts(ctx, st); err != nil {
		m.log.WithState(st.StateID).Error("failed to persist run artifacts", "error", err)
		st.lock()
		Apply(st, Patch{Warnings: []string{"artifact persistence failed: " + err.Error()}})
		st.unlock()
	}

	if runErr != nil {
		m.log.WithState(st.StateID).Warn("workflow run finished with failure", "error", runErr)
	}
	return m.summary(st), nil
}

func (m *Manager) summary(st *State) *RunSummary {
	st.rlock()
	defer st.runlock()
	return &RunSummary{
		StateID:        st.StateID,
		HasSummary:     st.RFPSummary != "",
		NumChallenges:  len(st.Challenges),
		NumValueProps:  len(st.ValuePropositions),
		NumCaseStudies: len(st.MatchingCaseStudies),
		HasProposal:    len(st.ProposalDraft) > 0,
	}
}

// GetState returns a deep copy of a run's state.
func (m *Manager) GetState(stateID string) (*State, error) {
	m.mu.Lock()
	run, ok := m.byState[stateID]
	m.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}

	run.state.rlock()
	snap := run.state.Clone()
	run.state.runlock()
	return &snap, nil
}

// ApproveOutline records an approval decision. Approving a parked run
// resumes it in the background; repeating the same decision is a no-op.
func (m *Manager) ApproveOutline(ctx context.Context, stateID string, approved bool, feedback string) (*State, error) {
	m.mu.Lock()
	run, ok := m.byState[stateID]
	if !ok {
		m.mu.Unlock()
		return nil, ErrNotFound
	}

	st := run.state
	st.lock()
	already := st.OutlineApproved != nil && *st.OutlineApproved == approved
	st.unlock()

	if already && !run.parked {
		m.mu.Unlock()
		return m.GetState(stateID)
	}

	st.lock()
	v := approved
	decidedAt := time.Now().UTC()
	st.OutlineApproved = &v
	st.OutlineApprovedAt = &decidedAt
	if !approved {
		detail := "outline rejected, awaiting revised approval"
		if feedback != "" {
			detail = detail + ": " + feedback
		}
		Apply(st, LogPatch(StepHumanApproval, StatusWarning, detail))
	}
	st.unlock()

	shouldResume := approved && run.parked && !run.done
	if shouldResume {
		run.parked = false
	}
	m.mu.Unlock()

	if m.approvals != nil {
		m.approvals.OutlineApproval(ctx, st.ProjectID, approved)
	}

	m.log.WithState(stateID).Info("outline approval recorded",
		"approved", approved, "resuming", shouldResume)

	if shouldResume {
		go func() {
			res, err := m.engine.RunFrom(run.ctx, st, StepHumanApproval)
			if res != nil && res.Parked {
				m.mu.Lock()
				run.parked = true
				m.mu.Unlock()
				return
			}
			if _, ferr := m.finishRun(context.Background(), run, err); ferr != nil {
				m.log.WithState(stateID).Error("resumed run failed", "error", ferr)
			}
		}()
	}

	return m.GetState(stateID)
}

// CancelRun stops an in-flight or parked run.
func (m *Manager) CancelRun(stateID string) error {
	m.mu.Lock()
	run, ok := m.byState[stateID]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	if run.done {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrFinished, stateID)
	}
	parked := run.parked
	m.mu.Unlock()

	run.cancel()

	if parked {
		// No goroutine is driving a parked run, so close it out here.
		st := run.state
		st.lock()
		Apply(st, LogPatch(StepHumanApproval, StatusCancelled, "run cancelled while awaiting approval"))
		now := time.Now().UTC()
		st.FinishedAt = &now
		st.unlock()

		m.mu.Lock()
		run.done = true
		run.parked = false
		delete(m.byPair, pairKey(st.ProjectID, st.RFPDocumentID))
		m.mu.Unlock()
	}

	m.log.WithState(stateID).Info("run cancellation requested", "was_parked", parked)
	return nil
}

// StatusByProject derives the coarse lifecycle status for a project's most
// recent run. Falls back to persisted artifacts when the process has no
// in-memory run.
func (m *Manager) StatusByProject(ctx context.Context, projectID string) (*ProjectStatus, error) {
	m.mu.Lock()
	stateID, ok := m.byProject[projectID]
	var run *activeRun
	if ok {
		run = m.byState[stateID]
	}
	m.mu.Unlock()

	if run == nil {
		done, err := m.artifacts.HasInsights(ctx, projectID)
		if err != nil {
			return nil, err
		}
		if done {
			return &ProjectStatus{Status: "completed", Progress: map[string]bool{}}, nil
		}
		return &ProjectStatus{Status: "not_started", Progress: map[string]bool{}}, nil
	}

	st := run.state
	st.rlock()
	defer st.runlock()

	status := "running"
	m.mu.Lock()
	switch {
	case run.parked:
		status = "pending"
	case run.done && len(st.Errors) > 0:
		status = "error"
	case run.done:
		status = "completed"
	}
	m.mu.Unlock()

	return &ProjectStatus{
		Status:  status,
		StateID: st.StateID,
		Progress: map[string]bool{
			"has_summary":             st.RFPSummary != "",
			"has_challenges":          len(st.Challenges) > 0,
			"has_discovery_questions": len(st.DiscoveryQuestions) > 0,
			"has_value_propositions":  len(st.ValuePropositions) > 0,
			"has_case_studies":        len(st.MatchingCaseStudies) > 0,
			"has_battle_cards":        len(st.BattleCards) > 0,
			"has_outline":             len(st.ProposalOutline) > 0,
			"has_proposal":            len(st.ProposalDraft) > 0,
		},
	}, nil
}
