package agents

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/events"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/retrieval"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/workflow"
)

const analyzerJSON = `{
  "summary": "The client needs a modern claims platform.",
  "context_overview": "Legacy system at end of life.",
  "project_scope": "Replace intake and settlement.",
  "business_objectives": ["Cut claim handling time in half", "Reduce leakage"]
}`

func TestAnalyzerParsesStructuredOutput(t *testing.T) {
	gw := &scriptedCompleter{fallback: analyzerJSON}
	tk, rec := testToolkit(gw)

	st := workflow.NewState("proj-1", "doc-1", "We need a new claims platform.", nil)
	patch, err := tk.Analyzer(context.Background(), *st)
	if err != nil {
		t.Fatalf("Analyzer() error = %v", err)
	}

	if patch.RFPSummary == nil || *patch.RFPSummary != "The client needs a modern claims platform." {
		t.Fatalf("unexpected summary: %v", patch.RFPSummary)
	}
	if len(patch.BusinessObjectives) != 2 {
		t.Fatalf("expected 2 objectives, got %d", len(patch.BusinessObjectives))
	}
	if len(patch.Log) != 1 || patch.Log[0].Status != workflow.StatusSuccess {
		t.Fatalf("expected one success log entry, got %+v", patch.Log)
	}
	if len(rec.byKind(events.KindThought)) == 0 {
		t.Fatal("expected thought events")
	}
}

func TestAnalyzerFallsBackToRawContent(t *testing.T) {
	gw := &scriptedCompleter{fallback: "The client, in plain prose, wants a claims platform."}
	tk, _ := testToolkit(gw)

	st := workflow.NewState("proj-1", "doc-1", "We need a platform.", nil)
	patch, err := tk.Analyzer(context.Background(), *st)
	if err != nil {
		t.Fatalf("Analyzer() error = %v", err)
	}
	if patch.RFPSummary == nil || !strings.Contains(*patch.RFPSummary, "claims platform") {
		t.Fatalf("expected raw content summary, got %v", patch.RFPSummary)
	}
	if len(patch.Warnings) != 1 {
		t.Fatalf("expected a parse warning, got %v", patch.Warnings)
	}
}

func TestAnalyzerPropagatesGatewayError(t *testing.T) {
	gw := &scriptedCompleter{err: errors.New("provider down")}
	tk, _ := testToolkit(gw)

	st := workflow.NewState("proj-1", "doc-1", "text", nil)
	if _, err := tk.Analyzer(context.Background(), *st); err == nil {
		t.Fatal("expected gateway error to propagate")
	}
}

type staticRetriever struct {
	results []retrieval.Result
	calls   int
}

func (r *staticRetriever) Retrieve(_ context.Context, _, _ string, _ int) ([]retrieval.Result, error) {
	r.calls++
	return r.results, nil
}

func TestAnalyzerUsesRetrievalForLongDocuments(t *testing.T) {
	gw := &scriptedCompleter{fallback: analyzerJSON}
	tk, _ := testToolkit(gw)
	retr := &staticRetriever{results: []retrieval.Result{{Text: "pinned excerpt about settlement flows"}}}
	tk.Retriever = retr

	long := strings.Repeat("claims platform requirements. ", 1000)
	st := workflow.NewState("proj-1", "doc-1", long, nil)
	if _, err := tk.Analyzer(context.Background(), *st); err != nil {
		t.Fatalf("Analyzer() error = %v", err)
	}
	if retr.calls != 1 {
		t.Fatalf("expected one retrieval call, got %d", retr.calls)
	}
}

func TestAnalyzerSkipsRetrievalInLongContextMode(t *testing.T) {
	gw := &scriptedCompleter{fallback: analyzerJSON}
	tk, _ := testToolkit(gw)
	retr := &staticRetriever{}
	tk.Retriever = retr
	tk.Config.UseLongContext = true

	long := strings.Repeat("claims platform requirements. ", 1000)
	st := workflow.NewState("proj-1", "doc-1", long, nil)
	if _, err := tk.Analyzer(context.Background(), *st); err != nil {
		t.Fatalf("Analyzer() error = %v", err)
	}
	if retr.calls != 0 {
		t.Fatalf("expected no retrieval calls in long-context mode, got %d", retr.calls)
	}
}
