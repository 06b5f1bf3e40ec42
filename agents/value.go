package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/llm"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/workflow"
)

const (
	minValueProps = 3
	maxValueProps = 7
)

const valueSystem = `You write value propositions for proposals. Respond with strict JSON only: an array of strings.`

const valuePrompt = `Write between %d and %d value propositions for our response to this RFP. Each must be a single sentence, name a measurable outcome, and map to one of the client's challenges.

Summary:
%s

Challenges:
%s`

// ValuePropositions maps the extracted challenges onto measurable value
// statements, padding deterministically when the model returns too few.
func (tk *Toolkit) ValuePropositions(ctx context.Context, st workflow.State) (workflow.Patch, error) {
	tk.thought(ctx, st.ProjectID, workflow.StepValueProposition, "Formulating value propositions", "")

	prompt := fmt.Sprintf(valuePrompt, minValueProps, maxValueProps, st.RFPSummary, challengeLines(st.Challenges))
	content, err := tk.complete(ctx, llm.TaskHighQuality, 0.4, 0, valueSystem, prompt)
	if err != nil {
		return workflow.Patch{}, fmt.Errorf("value propositions: %w", err)
	}

	var props []string
	warnings := []string(nil)
	if perr := llm.ExtractAndUnmarshal(content, &props); perr != nil {
		tk.Log.WithProject(st.ProjectID).Warn("value propositions did not parse", "error", perr)
		warnings = append(warnings, "value proposition output did not parse as JSON")
		props = nil
	}

	kept := make([]string, 0, maxValueProps)
	for _, p := range props {
		if strings.TrimSpace(p) == "" {
			continue
		}
		kept = append(kept, p)
		if len(kept) == maxValueProps {
			break
		}
	}
	kept = padValueProps(kept, st.Challenges)

	tk.thought(ctx, st.ProjectID, workflow.StepValueProposition, "Value propositions ready",
		fmt.Sprintf("%d statements", len(kept)))

	status := workflow.StatusSuccess
	if len(warnings) > 0 {
		status = workflow.StatusWarning
	}
	return workflow.Patch{
		ValuePropositions: kept,
		Warnings:          warnings,
		Log:               entry(workflow.StepValueProposition, status, fmt.Sprintf("%d value propositions", len(kept))),
	}, nil
}

// padValueProps tops the list up to the minimum with statements derived
// from the challenges, then with generic ones.
func padValueProps(props []string, challenges []workflow.Challenge) []string {
	for _, c := range challenges {
		if len(props) >= minValueProps {
			return props
		}
		props = append(props, fmt.Sprintf(
			"Reduce the impact of %q with a measurable improvement target agreed during discovery.", c.Text))
	}
	generic := []string{
		"Deliver the engagement against a milestone plan with measurable acceptance criteria.",
		"Provide full transparency on progress through agreed KPIs and regular reporting.",
		"Transfer knowledge to client teams so improvements outlast the engagement.",
	}
	for _, g := range generic {
		if len(props) >= minValueProps {
			break
		}
		props = append(props, g)
	}
	return props
}
