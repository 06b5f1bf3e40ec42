package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/llm"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/workflow"
)

// maxChallenges caps the list so downstream prompts stay bounded.
const maxChallenges = 12

const challengeSystem = `You extract client challenges from RFP analyses. Respond with strict JSON only: an array of objects
[{"text": "...", "type": "technical|operational|organizational|financial", "impact": "high|medium|low", "category": "..."}]`

const challengePrompt = `From the RFP summary and business objectives below, identify the client's key challenges (at most %d). For each give the challenge text, its type, its business impact and a short category label.

Summary:
%s

Business objectives:
%s`

// ChallengeExtractor turns the analysis into a typed challenge list.
func (tk *Toolkit) ChallengeExtractor(ctx context.Context, st workflow.State) (workflow.Patch, error) {
	tk.thought(ctx, st.ProjectID, workflow.StepChallengeExtractor, "Extracting client challenges", "")

	prompt := fmt.Sprintf(challengePrompt, maxChallenges, st.RFPSummary, strings.Join(st.BusinessObjectives, "\n"))
	content, err := tk.complete(ctx, llm.TaskStructuredOutput, 0.2, 0, challengeSystem, prompt)
	if err != nil {
		return workflow.Patch{}, fmt.Errorf("challenge extraction: %w", err)
	}

	var challenges []workflow.Challenge
	if perr := llm.ExtractAndUnmarshal(content, &challenges); perr != nil {
		tk.Log.WithProject(st.ProjectID).Warn("challenge extraction did not parse", "error", perr)
		return workflow.Patch{
			Warnings: []string{"challenge extraction output did not parse as JSON"},
			Log:      entry(workflow.StepChallengeExtractor, workflow.StatusWarning, "no challenges extracted"),
		}, nil
	}

	kept := challenges[:0]
	for _, c := range challenges {
		if strings.TrimSpace(c.Text) == "" {
			continue
		}
		kept = append(kept, c)
		if len(kept) == maxChallenges {
			break
		}
	}

	tk.thought(ctx, st.ProjectID, workflow.StepChallengeExtractor, "Challenges identified",
		fmt.Sprintf("%d challenges", len(kept)))

	return workflow.Patch{
		Challenges: kept,
		Log:        entry(workflow.StepChallengeExtractor, workflow.StatusSuccess, fmt.Sprintf("%d challenges extracted", len(kept))),
	}, nil
}
