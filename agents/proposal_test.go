package agents

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/workflow"
)

func fullDraftJSON() string {
	draft := make(map[string]string, len(SectionCatalog))
	for _, s := range SectionCatalog {
		draft[s.Key] = "Drafted content for " + s.Title + "."
	}
	raw, _ := json.Marshal(draft)
	return string(raw)
}

func TestProposalBuilderDraftsAllSections(t *testing.T) {
	gw := &scriptedCompleter{fallback: fullDraftJSON()}
	tk, _ := testToolkit(gw)

	patch, err := tk.ProposalBuilder(context.Background(), analyzedState())
	if err != nil {
		t.Fatalf("ProposalBuilder() error = %v", err)
	}
	if len(patch.ProposalDraft) != len(SectionCatalog) {
		t.Fatalf("expected %d sections, got %d", len(SectionCatalog), len(patch.ProposalDraft))
	}
	for key, content := range patch.ProposalDraft {
		if strings.TrimSpace(content) == "" {
			t.Fatalf("section %s is empty", key)
		}
	}
	if len(patch.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", patch.Warnings)
	}
}

func TestProposalBuilderFillsMissingSections(t *testing.T) {
	gw := &scriptedCompleter{fallback: `{"executive_summary": "Only this one.", "bogus_key": "dropped"}`}
	tk, _ := testToolkit(gw)

	patch, err := tk.ProposalBuilder(context.Background(), analyzedState())
	if err != nil {
		t.Fatalf("ProposalBuilder() error = %v", err)
	}
	if len(patch.ProposalDraft) != len(SectionCatalog) {
		t.Fatalf("expected %d sections, got %d", len(SectionCatalog), len(patch.ProposalDraft))
	}
	if patch.ProposalDraft["executive_summary"] != "Only this one." {
		t.Fatalf("model content lost: %q", patch.ProposalDraft["executive_summary"])
	}
	if _, ok := patch.ProposalDraft["bogus_key"]; ok {
		t.Fatal("keys outside the catalog must be dropped")
	}
	if !strings.HasPrefix(patch.ProposalDraft["technical_approach"], "To be completed.") {
		t.Fatalf("expected placeholder, got %q", patch.ProposalDraft["technical_approach"])
	}
}

func TestProposalBuilderGatewayFailureYieldsPlaceholders(t *testing.T) {
	gw := &scriptedCompleter{err: errors.New("provider down")}
	tk, _ := testToolkit(gw)

	patch, err := tk.ProposalBuilder(context.Background(), analyzedState())
	if err != nil {
		t.Fatalf("ProposalBuilder() error = %v", err)
	}
	if len(patch.ProposalDraft) != len(SectionCatalog) {
		t.Fatalf("expected full placeholder draft, got %d sections", len(patch.ProposalDraft))
	}
	if len(patch.Warnings) != 1 {
		t.Fatalf("expected a warning, got %v", patch.Warnings)
	}
	if patch.Log[0].Status != workflow.StatusWarning {
		t.Fatalf("expected warning status, got %s", patch.Log[0].Status)
	}
}

func TestProposalBuilderCancelledContextPropagates(t *testing.T) {
	gw := &scriptedCompleter{err: context.Canceled}
	tk, _ := testToolkit(gw)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := tk.ProposalBuilder(ctx, analyzedState()); err == nil {
		t.Fatal("expected cancellation to propagate")
	}
}
