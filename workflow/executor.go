package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/logger"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/metrics"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/workflow/condition"
)

// ErrAwaitingApproval is returned by the approval gate to park the run until
// a decision arrives. The engine stops scheduling and reports Parked.
var ErrAwaitingApproval = errors.New("awaiting outline approval")

// CriticalNodeError wraps a failure of a node marked Critical. The run
// terminates when one occurs.
type CriticalNodeError struct {
	Node string
	Err  error
}

func (e *CriticalNodeError) Error() string {
	return fmt.Sprintf("critical node %s failed: %v", e.Node, e.Err)
}

func (e *CriticalNodeError) Unwrap() error { return e.Err }

// TraceSink receives one merge patch per applied node patch.
type TraceSink interface {
	Record(ctx context.Context, stateID string, seq int, step string, patch []byte) error
}

// ProgressSink receives node lifecycle notifications.
type ProgressSink interface {
	Progress(ctx context.Context, st *State, step, status string, score *float64)
}

// RunResult is what a drive of the engine produced.
type RunResult struct {
	State  *State
	Parked bool // stopped at the approval gate
}

// EngineOptions tune a single engine instance.
type EngineOptions struct {
	NodeTimeout time.Duration  // soft per-node timeout, default 120s
	MaxParallel int            // fan-out width, default 4
	GuardConfig map[string]any // exposed to guards as "cfg"
	Trace       TraceSink
	Progress    ProgressSink
	Metrics     *metrics.Metrics
}

// Engine drives a compiled graph over a state record. One engine serves many
// concurrent runs; per-run data lives on the State.
type Engine struct {
	graph *Graph
	eval  *condition.Evaluator
	log   *logger.Logger
	opts  EngineOptions
}

// NewEngine creates an engine for a compiled graph.
func NewEngine(g *Graph, eval *condition.Evaluator, log *logger.Logger, opts EngineOptions) *Engine {
	if opts.NodeTimeout <= 0 {
		opts.NodeTimeout = 120 * time.Second
	}
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = 4
	}
	if opts.GuardConfig == nil {
		opts.GuardConfig = map[string]any{}
	}
	return &Engine{graph: g, eval: eval, log: log, opts: opts}
}

// Run drives the state from the graph entry to a terminal node, a parked
// approval gate, a critical failure, or cancellation.
func (e *Engine) Run(ctx context.Context, st *State) (*RunResult, error) {
	return e.RunFrom(ctx, st, e.graph.Entry)
}

// RunFrom drives the state starting at the given node. The manager uses it
// to resume a parked run at the approval gate.
func (e *Engine) RunFrom(ctx context.Context, st *State, start string) (*RunResult, error) {
	if _, ok := e.graph.Nodes[start]; !ok {
		return nil, fmt.Errorf("unknown start node: %s", start)
	}

	log := e.log.WithState(st.StateID).WithProject(st.ProjectID)
	frontier := []string{start}

	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			e.applyPatch(ctx, st, st.CurrentStep, LogPatch(st.CurrentStep, StatusCancelled, "run cancelled"))
			e.finish(st)
			log.Warn("run cancelled", "step", st.CurrentStep)
			return &RunResult{State: st}, err
		}

		next, parked, err := e.runWave(ctx, st, frontier, log)
		if err != nil {
			e.finish(st)
			return &RunResult{State: st}, err
		}
		if parked {
			log.Info("run parked at approval gate")
			return &RunResult{State: st, Parked: true}, nil
		}
		frontier = next
	}

	e.finish(st)
	log.Info("run complete", "steps", len(st.ExecutionLog), "errors", len(st.Errors))
	return &RunResult{State: st}, nil
}

// Step executes a single frontier wave and returns the next one. Exposed for
// tests that walk the graph tick by tick.
func (e *Engine) Step(ctx context.Context, st *State, frontier []string) ([]string, error) {
	next, parked, err := e.runWave(ctx, st, frontier, e.log.WithState(st.StateID))
	if parked {
		return nil, ErrAwaitingApproval
	}
	return next, err
}

// runWave executes all frontier nodes, merges their patches, and routes.
func (e *Engine) runWave(ctx context.Context, st *State, frontier []string, log *logger.Logger) (next []string, parked bool, err error) {
	type outcome struct {
		node  *Node
		patch Patch
		park  bool
		fatal error
	}

	outcomes := make([]outcome, len(frontier))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.MaxParallel)

	for i, name := range frontier {
		node, ok := e.graph.Nodes[name]
		if !ok {
			return nil, false, fmt.Errorf("frontier references unknown node: %s", name)
		}
		st.rlock()
		base := st.Clone()
		st.runlock()

		i, node := i, node
		g.Go(func() error {
			patch, runErr := e.runNode(gctx, base, node, log)
			switch {
			case errors.Is(runErr, ErrAwaitingApproval):
				outcomes[i] = outcome{node: node, patch: patch, park: true}
			case runErr != nil && node.Critical:
				p := LogPatch(node.Name, StatusError, runErr.Error())
				outcomes[i] = outcome{node: node, patch: p, fatal: runErr}
				return runErr // cancel sibling branches
			case runErr != nil:
				// Non-critical failure: error entry, empty domain patch,
				// siblings keep going.
				p := LogPatch(node.Name, StatusError, runErr.Error())
				outcomes[i] = outcome{node: node, patch: p}
			default:
				outcomes[i] = outcome{node: node, patch: patch}
			}
			return nil
		})
	}

	waitErr := g.Wait()

	// Merge in frontier order. Branch patches write disjoint fields, so the
	// order only decides log interleaving.
	for _, oc := range outcomes {
		if oc.node == nil {
			continue
		}
		e.applyPatch(ctx, st, oc.node.Name, oc.patch)
		if oc.park {
			parked = true
		}
		if oc.fatal != nil {
			err = &CriticalNodeError{Node: oc.node.Name, Err: oc.fatal}
		}
	}
	if err != nil {
		Apply(st, Patch{Errors: []string{err.Error()}})
		return nil, false, err
	}
	if waitErr != nil && !errors.Is(waitErr, context.Canceled) {
		// A goroutine returned an error that was not folded into an outcome.
		return nil, false, waitErr
	}
	if parked {
		return nil, true, nil
	}

	// Route every executed node against the merged state.
	st.rlock()
	snapshot, snapErr := Snapshot(st)
	st.runlock()
	if snapErr != nil {
		return nil, false, snapErr
	}

	seen := make(map[string]bool)
	for _, oc := range outcomes {
		targets, routeErr := e.graph.Route(oc.node.Name, e.eval, snapshot, e.opts.GuardConfig)
		if routeErr != nil {
			return nil, false, routeErr
		}
		e.logSkipped(st, oc.node.Name, targets)
		for _, t := range targets {
			if t == StepEnd || seen[t] {
				continue
			}
			seen[t] = true
			next = append(next, t)
		}
	}

	return next, false, nil
}

// runNode executes one handler against a private state copy.
func (e *Engine) runNode(ctx context.Context, base State, node *Node, log *logger.Logger) (Patch, error) {
	timeout := node.Timeout
	if timeout <= 0 {
		timeout = e.opts.NodeTimeout
	}
	nctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	log.Debug("node starting", "node", node.Name)

	patch, err := node.Handler(nctx, base)

	status := StatusSuccess
	switch {
	case errors.Is(err, ErrAwaitingApproval):
		status = StatusPending
	case errors.Is(err, context.DeadlineExceeded):
		status = StatusError
		err = fmt.Errorf("node timed out after %s", timeout)
	case err != nil:
		status = StatusError
	}

	if e.opts.Metrics != nil {
		e.opts.Metrics.ObserveNode(node.Name, status, start)
	}
	if e.opts.Progress != nil {
		e.opts.Progress.Progress(ctx, &base, node.Name, status, patch.CriticScore)
	}

	if status == StatusError {
		log.Error("node failed", "node", node.Name, "error", err, "duration", time.Since(start))
	} else {
		log.Debug("node finished", "node", node.Name, "status", status, "duration", time.Since(start))
	}

	return patch, err
}

// applyPatch folds one node patch into the state and records the trace.
func (e *Engine) applyPatch(ctx context.Context, st *State, step string, patch Patch) {
	if patch.IsZero() {
		return
	}
	if patch.CurrentStep == nil {
		patch.CurrentStep = &step
	}

	st.lock()
	before := st.Clone()
	Apply(st, patch)

	var raw []byte
	var traceErr error
	if e.opts.Trace != nil {
		raw, traceErr = MergePatch(&before, st)
		if traceErr == nil {
			st.TraceSeq++
		}
	}
	seq := st.TraceSeq
	st.unlock()

	if e.opts.Trace == nil {
		return
	}
	if traceErr != nil {
		e.log.Warn("failed to compute trace patch", "step", step, "error", traceErr)
		return
	}
	if err := e.opts.Trace.Record(ctx, st.StateID, seq, step, raw); err != nil {
		e.log.Warn("failed to record trace patch", "step", step, "error", err)
	}
}

// logSkipped records conditional targets whose guard rejected them and that
// cannot run via any other edge. Targets with more in-edges stay silent; a
// rejected shortcut does not mean the node is off this run.
func (e *Engine) logSkipped(st *State, node string, fired []string) {
	firedSet := make(map[string]bool, len(fired))
	for _, t := range fired {
		firedSet[t] = true
	}
	for _, edge := range e.graph.OutEdges(node) {
		if edge.When == "" || firedSet[edge.To] || edge.To == StepEnd {
			continue
		}
		if len(e.graph.Nodes[edge.To].Dependencies) > 1 {
			continue
		}
		st.lock()
		Apply(st, LogPatch(edge.To, StatusSkipped, "branch not selected"))
		st.unlock()
	}
}

func (e *Engine) finish(st *State) {
	st.lock()
	now := time.Now().UTC()
	st.FinishedAt = &now
	st.unlock()
}
