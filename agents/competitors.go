package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/llm"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/workflow"
)

// competitorKeywords is the closed list scanned for. Detection is
// case-insensitive substring matching over the raw RFP text.
var competitorKeywords = []string{
	"Accenture",
	"Deloitte",
	"Capgemini",
	"Cognizant",
	"Infosys",
	"TCS",
	"Wipro",
	"IBM Consulting",
	"McKinsey",
	"KPMG",
	"PwC",
	"EY",
}

const battleCardSystem = `You prepare competitive battle cards for proposal teams. Respond with strict JSON only: an array of objects
[{"competitor": "...", "weaknesses": ["..."], "gaps": ["..."], "recommendations": ["..."]}]`

const battleCardPrompt = `The following competitors are mentioned in an RFP. For each, produce a battle card with their known weaknesses, the gaps in their typical offering relative to this engagement, and how we should position against them.

Competitors: %s

Engagement summary:
%s`

// CompetitorAnalyzer scans the RFP for known competitors and builds a battle
// card per hit. The graph only routes here when the feature flag is on.
func (tk *Toolkit) CompetitorAnalyzer(ctx context.Context, st workflow.State) (workflow.Patch, error) {
	detected := detectCompetitors(st.RFPText)
	if len(detected) == 0 {
		return workflow.Patch{
			Log: entry(workflow.StepCompetitorAnalyzer, workflow.StatusSuccess, "no competitors detected"),
		}, nil
	}

	tk.thought(ctx, st.ProjectID, workflow.StepCompetitorAnalyzer, "Analyzing competitors",
		strings.Join(detected, ", "))

	prompt := fmt.Sprintf(battleCardPrompt, strings.Join(detected, ", "), st.RFPSummary)
	content, err := tk.complete(ctx, llm.TaskAnalysis, 0.3, 0, battleCardSystem, prompt)
	if err != nil {
		return workflow.Patch{}, fmt.Errorf("competitor analysis: %w", err)
	}

	var cards []workflow.BattleCard
	warnings := []string(nil)
	if perr := llm.ExtractAndUnmarshal(content, &cards); perr != nil {
		tk.Log.WithProject(st.ProjectID).Warn("battle cards did not parse", "error", perr)
		warnings = append(warnings, "battle card output did not parse as JSON")
		cards = nil
	}

	cards = alignBattleCards(cards, detected)

	status := workflow.StatusSuccess
	if len(warnings) > 0 {
		status = workflow.StatusWarning
	}
	return workflow.Patch{
		BattleCards: cards,
		Warnings:    warnings,
		Log:         entry(workflow.StepCompetitorAnalyzer, status, fmt.Sprintf("%d battle cards", len(cards))),
	}, nil
}

// detectCompetitors returns the keywords present in the text, in list order.
func detectCompetitors(text string) []string {
	lower := strings.ToLower(text)
	var hits []string
	for _, name := range competitorKeywords {
		if strings.Contains(lower, strings.ToLower(name)) {
			hits = append(hits, name)
		}
	}
	return hits
}

// alignBattleCards keeps one card per detected competitor: extra cards the
// model invented are dropped, missing ones get a minimal fallback card.
func alignBattleCards(cards []workflow.BattleCard, detected []string) []workflow.BattleCard {
	byName := make(map[string]workflow.BattleCard, len(cards))
	for _, c := range cards {
		byName[strings.ToLower(strings.TrimSpace(c.Competitor))] = c
	}

	out := make([]workflow.BattleCard, 0, len(detected))
	for _, name := range detected {
		if c, ok := byName[strings.ToLower(name)]; ok {
			c.Competitor = name
			out = append(out, c)
			continue
		}
		out = append(out, workflow.BattleCard{
			Competitor:      name,
			Recommendations: []string{fmt.Sprintf("Position against %s on delivery track record and domain depth.", name)},
		})
	}
	return out
}
