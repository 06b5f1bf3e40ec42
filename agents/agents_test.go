package agents

import (
	"context"
	"strings"
	"sync"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/config"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/events"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/logger"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/models"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/knowledge"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/llm"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/workflow"
)

// scriptedCompleter returns a canned response keyed by a substring of the
// user message. Unmatched messages get the fallback; an err schedule can
// fail calls whose user message contains errOn (or every call when errOn is
// empty). Safe for the engine's parallel waves.
type scriptedCompleter struct {
	responses map[string]string
	fallback  string
	errOn     string
	err       error

	mu    sync.Mutex
	calls int
}

func (s *scriptedCompleter) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	user := req.Messages[len(req.Messages)-1].Content
	if s.err != nil && (s.errOn == "" || strings.Contains(user, s.errOn)) {
		return nil, s.err
	}
	for needle, resp := range s.responses {
		if strings.Contains(user, needle) {
			return &llm.Response{Content: resp, Provider: "test", Model: "test"}, nil
		}
	}
	return &llm.Response{Content: s.fallback, Provider: "test", Model: "test"}, nil
}

// recordingEmitter captures events for assertions.
type recordingEmitter struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingEmitter) Emit(_ context.Context, ev events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingEmitter) byKind(kind events.Kind) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, ev := range r.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

type staticFinder struct {
	matches []models.CaseStudy
	err     error
}

func (f staticFinder) FindMatchingCaseStudies(context.Context, []knowledge.Entity, string, int) ([]models.CaseStudy, error) {
	return f.matches, f.err
}

type staticSearcher struct {
	matches []models.CaseStudy
	err     error
}

func (f staticSearcher) SearchCaseStudies(context.Context, string, string, int) ([]models.CaseStudy, error) {
	return f.matches, f.err
}

type staticLister struct {
	studies []models.CaseStudy
	err     error
}

func (f staticLister) ListByIndustry(context.Context, string, int) ([]models.CaseStudy, error) {
	return f.studies, f.err
}

type staticExtractor struct {
	extraction *knowledge.Extraction
	err        error
}

func (f staticExtractor) Extract(context.Context, string) (*knowledge.Extraction, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.extraction == nil {
		return &knowledge.Extraction{}, nil
	}
	return f.extraction, nil
}

type staticIndustry string

func (s staticIndustry) Industry(context.Context, string) (string, error) {
	return string(s), nil
}

func testLogger() *logger.Logger {
	return logger.New("error", "json")
}

func testConfig() config.WorkflowConfig {
	return config.WorkflowConfig{
		MaxRefinementIterations: 3,
		CriticThreshold:         0.9,
	}
}

// testToolkit builds a toolkit around the scripted gateway with every
// optional collaborator left nil.
func testToolkit(gw Completer) (*Toolkit, *recordingEmitter) {
	rec := &recordingEmitter{}
	tk, err := NewToolkit(Toolkit{
		Gateway: gw,
		Events:  rec,
		Config:  testConfig(),
		Log:     testLogger(),
	})
	if err != nil {
		panic(err)
	}
	return tk, rec
}

// analyzedState is a run state as it looks after the analyzer.
func analyzedState() workflow.State {
	st := workflow.NewState("proj-1", "doc-1", "We need a new claims platform.", nil)
	st.RFPSummary = "The client needs a modern claims platform."
	st.ContextOverview = "Legacy system at end of life."
	st.ProjectScope = "Replace intake and settlement."
	st.BusinessObjectives = []string{"Cut claim handling time in half"}
	st.Challenges = []workflow.Challenge{
		{Text: "manual claims intake", Type: "operational", Impact: "high", Category: "process"},
		{Text: "legacy system integration", Type: "technical", Impact: "medium", Category: "architecture"},
	}
	return *st
}
