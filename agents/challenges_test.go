package agents

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/workflow"
)

func TestChallengeExtractorParsesAndCaps(t *testing.T) {
	many := make([]workflow.Challenge, 0, 20)
	for i := 0; i < 20; i++ {
		many = append(many, workflow.Challenge{Text: "challenge", Type: "technical", Impact: "high", Category: "ops"})
	}
	raw, _ := json.Marshal(many)

	gw := &scriptedCompleter{fallback: string(raw)}
	tk, _ := testToolkit(gw)

	patch, err := tk.ChallengeExtractor(context.Background(), analyzedState())
	if err != nil {
		t.Fatalf("ChallengeExtractor() error = %v", err)
	}
	if len(patch.Challenges) != maxChallenges {
		t.Fatalf("expected cap at %d challenges, got %d", maxChallenges, len(patch.Challenges))
	}
}

func TestChallengeExtractorDropsEmptyText(t *testing.T) {
	gw := &scriptedCompleter{fallback: `[{"text": "", "type": "technical"}, {"text": "real one", "type": "operational", "impact": "high", "category": "process"}]`}
	tk, _ := testToolkit(gw)

	patch, err := tk.ChallengeExtractor(context.Background(), analyzedState())
	if err != nil {
		t.Fatalf("ChallengeExtractor() error = %v", err)
	}
	if len(patch.Challenges) != 1 || patch.Challenges[0].Text != "real one" {
		t.Fatalf("expected only the non-empty challenge, got %+v", patch.Challenges)
	}
}

func TestChallengeExtractorParseFailureDegrades(t *testing.T) {
	gw := &scriptedCompleter{fallback: "no json here"}
	tk, _ := testToolkit(gw)

	patch, err := tk.ChallengeExtractor(context.Background(), analyzedState())
	if err != nil {
		t.Fatalf("ChallengeExtractor() error = %v", err)
	}
	if len(patch.Challenges) != 0 {
		t.Fatalf("expected no challenges, got %+v", patch.Challenges)
	}
	if len(patch.Warnings) != 1 {
		t.Fatalf("expected a parse warning, got %v", patch.Warnings)
	}
	if len(patch.Log) != 1 || patch.Log[0].Status != workflow.StatusWarning {
		t.Fatalf("expected warning log entry, got %+v", patch.Log)
	}
}
