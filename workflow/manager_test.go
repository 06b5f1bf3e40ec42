package workflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/logger"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/workflow/condition"
)

type fakeDocs struct {
	text string
	err  error
}

func (d fakeDocs) RFPText(context.Context, string, string) (string, error) {
	return d.text, d.err
}

type fakeArtifacts struct {
	mu          sync.Mutex
	saved       []*State
	hasInsights bool
}

func (a *fakeArtifacts) SaveRunArtifacts(_ context.Context, st *State) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.saved = append(a.saved, st)
	return nil
}

func (a *fakeArtifacts) HasInsights(context.Context, string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hasInsights, nil
}

func (a *fakeArtifacts) saveCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.saved)
}

type fakeApprovals struct {
	mu        sync.Mutex
	decisions []bool
}

func (f *fakeApprovals) OutlineApproval(_ context.Context, _ string, approved bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decisions = append(f.decisions, approved)
}

func (f *fakeApprovals) recorded() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.decisions...)
}

// managerDef is a minimal run: analyze, gate, build. The gate parks until an
// approval decision lands, mirroring the real approval node.
func managerDef(requireApproval bool) *Definition {
	return &Definition{
		Entry: StepAnalyzer,
		Nodes: []NodeSpec{
			{Name: StepAnalyzer, Critical: true, Handler: func(context.Context, State) (Patch, error) {
				s := "analyzed"
				return Patch{RFPSummary: &s, Log: []LogEntry{{Step: StepAnalyzer, Status: StatusSuccess, At: time.Now()}}}, nil
			}},
			{Name: StepHumanApproval, Handler: func(_ context.Context, st State) (Patch, error) {
				if !requireApproval {
					return LogPatch(StepHumanApproval, StatusSuccess, "approval not required"), nil
				}
				if st.OutlineApproved != nil && *st.OutlineApproved {
					return LogPatch(StepHumanApproval, StatusSuccess, "outline approved"), nil
				}
				return LogPatch(StepHumanApproval, StatusPending, "awaiting approval"), ErrAwaitingApproval
			}},
			{Name: StepProposalBuilder, Handler: func(context.Context, State) (Patch, error) {
				return Patch{ProposalDraft: map[string]string{"executive_summary": "draft"}}, nil
			}},
		},
		Edges: []EdgeSpec{
			{From: StepAnalyzer, To: StepHumanApproval},
			{From: StepHumanApproval, To: StepProposalBuilder},
		},
	}
}

func newTestManager(t *testing.T, requireApproval bool) (*Manager, *fakeArtifacts, *fakeApprovals) {
	t.Helper()
	g, err := Compile(managerDef(requireApproval))
	require.NoError(t, err)

	log := logger.New("error", "json")
	eng := NewEngine(g, condition.NewEvaluator(), log, EngineOptions{})
	arts := &fakeArtifacts{}
	apps := &fakeApprovals{}
	return NewManager(eng, fakeDocs{text: "We need a platform."}, arts, apps, log, nil), arts, apps
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestManagerStartRunCompletesAndPersists(t *testing.T) {
	m, arts, _ := newTestManager(t, false)

	sum, err := m.StartRun(context.Background(), "p1", "d1", nil, "u-1")
	require.NoError(t, err)
	require.True(t, sum.HasSummary)
	require.True(t, sum.HasProposal)
	require.Equal(t, 1, arts.saveCount())

	// A finished pair is free for the next run.
	_, err = m.StartRun(context.Background(), "p1", "d1", nil, "")
	require.NoError(t, err)
}

func TestManagerRejectsEmptyDocument(t *testing.T) {
	m, _, _ := newTestManager(t, false)
	mgr := NewManager(m.engine, fakeDocs{text: "   "}, &fakeArtifacts{}, nil, logger.New("error", "json"), nil)

	_, err := mgr.StartRun(context.Background(), "p1", "d1", nil, "")
	require.ErrorIs(t, err, ErrNoExtractedText)
}

func TestManagerRejectsConcurrentRunForSamePair(t *testing.T) {
	m, arts, _ := newTestManager(t, true)

	sum, err := m.StartRun(context.Background(), "p1", "d1", nil, "")
	require.NoError(t, err)
	require.NotEmpty(t, sum.StateID)
	require.Equal(t, 0, arts.saveCount(), "a parked run must not persist")

	_, err = m.StartRun(context.Background(), "p1", "d1", nil, "")
	require.ErrorIs(t, err, ErrBusy)
}

func TestManagerApprovalResumesParkedRun(t *testing.T) {
	m, arts, apps := newTestManager(t, true)

	sum, err := m.StartRun(context.Background(), "p1", "d1", nil, "")
	require.NoError(t, err)

	st, err := m.ApproveOutline(context.Background(), sum.StateID, true, "")
	require.NoError(t, err)
	require.NotNil(t, st.OutlineApproved)
	require.True(t, *st.OutlineApproved)
	require.NotNil(t, st.OutlineApprovedAt, "decisions carry their timestamp")

	waitFor(t, func() bool { return arts.saveCount() == 1 })
	waitFor(t, func() bool {
		got, err := m.GetState(sum.StateID)
		return err == nil && len(got.ProposalDraft) > 0 && got.FinishedAt != nil
	})
	require.Equal(t, []bool{true}, apps.recorded())

	status, err := m.StatusByProject(context.Background(), "p1")
	require.NoError(t, err)
	require.Equal(t, "completed", status.Status)
	require.True(t, status.Progress["has_proposal"])
}

func TestManagerRejectionKeepsRunParked(t *testing.T) {
	m, arts, apps := newTestManager(t, true)

	sum, err := m.StartRun(context.Background(), "p1", "d1", nil, "")
	require.NoError(t, err)

	st, err := m.ApproveOutline(context.Background(), sum.StateID, false, "needs a sharper summary")
	require.NoError(t, err)
	require.NotNil(t, st.OutlineApproved)
	require.False(t, *st.OutlineApproved)

	found := false
	for _, e := range st.ExecutionLog {
		if e.Status == StatusWarning && e.Step == StepHumanApproval {
			require.Contains(t, e.Detail, "needs a sharper summary")
			found = true
		}
	}
	require.True(t, found, "rejection must leave a warning entry")

	status, err := m.StatusByProject(context.Background(), "p1")
	require.NoError(t, err)
	require.Equal(t, "pending", status.Status)
	require.Equal(t, 0, arts.saveCount())
	require.Equal(t, []bool{false}, apps.recorded())

	// A later approval still resumes the run.
	_, err = m.ApproveOutline(context.Background(), sum.StateID, true, "")
	require.NoError(t, err)
	waitFor(t, func() bool { return arts.saveCount() == 1 })
}

func TestManagerCancelFreesParkedPair(t *testing.T) {
	m, _, _ := newTestManager(t, true)

	sum, err := m.StartRun(context.Background(), "p1", "d1", nil, "")
	require.NoError(t, err)

	require.NoError(t, m.CancelRun(sum.StateID))

	st, err := m.GetState(sum.StateID)
	require.NoError(t, err)
	require.NotNil(t, st.FinishedAt)
	last := st.ExecutionLog[len(st.ExecutionLog)-1]
	require.Equal(t, StatusCancelled, last.Status)

	// The pair is free again.
	_, err = m.StartRun(context.Background(), "p1", "d1", nil, "")
	require.NoError(t, err)

	require.ErrorIs(t, m.CancelRun(sum.StateID), ErrFinished, "a finished run cannot be cancelled")
}

func TestManagerStatusFallsBackToPersistence(t *testing.T) {
	m, arts, _ := newTestManager(t, false)

	status, err := m.StatusByProject(context.Background(), "p-unknown")
	require.NoError(t, err)
	require.Equal(t, "not_started", status.Status)

	arts.hasInsights = true
	status, err = m.StatusByProject(context.Background(), "p-unknown")
	require.NoError(t, err)
	require.Equal(t, "completed", status.Status)
}

func TestManagerUnknownStateIDs(t *testing.T) {
	m, _, _ := newTestManager(t, false)

	_, err := m.GetState("nope")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = m.ApproveOutline(context.Background(), "nope", true, "")
	require.ErrorIs(t, err, ErrNotFound)

	require.ErrorIs(t, m.CancelRun("nope"), ErrNotFound)
}
