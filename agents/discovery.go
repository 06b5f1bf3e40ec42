package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/llm"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/workflow"
)

const minQuestionsPerDomain = 3

// questionDomains fixes the grouping of discovery questions.
var questionDomains = []string{"business", "technical", "kpi", "compliance"}

// defaultQuestions backfill a domain the LLM under-delivered on.
var defaultQuestions = map[string][]string{
	"business": {
		"Who are the primary stakeholders and who owns the final decision?",
		"What does success look like twelve months after go-live?",
		"Which current processes must remain untouched during the transition?",
	},
	"technical": {
		"Which systems must the solution integrate with, and over which interfaces?",
		"What are the current data volumes and expected growth?",
		"Are there constraints on hosting, regions or technology stack?",
	},
	"kpi": {
		"Which KPIs will be used to measure the engagement?",
		"What are the current baseline values for those KPIs?",
		"How frequently should progress against targets be reported?",
	},
	"compliance": {
		"Which regulatory frameworks apply to this engagement?",
		"Are there data residency or retention requirements?",
		"What security certifications are required of the vendor?",
	},
}

const discoverySystem = `You prepare discovery workshops for RFP responses. Respond with strict JSON only, an object keyed by domain:
{"business": ["..."], "technical": ["..."], "kpi": ["..."], "compliance": ["..."]}`

const discoveryPrompt = `Based on the RFP summary and challenges below, write discovery questions we should ask the client. Provide at least %d questions for each domain: business, technical, kpi, compliance.

Summary:
%s

Challenges:
%s`

// DiscoveryQuestions produces grouped questions for the discovery phase.
// Every domain ends up with at least the minimum, topped up from the
// defaults when the model under-delivers.
func (tk *Toolkit) DiscoveryQuestions(ctx context.Context, st workflow.State) (workflow.Patch, error) {
	tk.thought(ctx, st.ProjectID, workflow.StepDiscoveryQuestion, "Preparing discovery questions", "")

	prompt := fmt.Sprintf(discoveryPrompt, minQuestionsPerDomain, st.RFPSummary, challengeLines(st.Challenges))
	content, err := tk.complete(ctx, llm.TaskFastGeneration, 0.4, 0, discoverySystem, prompt)
	if err != nil {
		return workflow.Patch{}, fmt.Errorf("discovery questions: %w", err)
	}

	parsed := map[string][]string{}
	warnings := []string(nil)
	if perr := llm.ExtractAndUnmarshal(content, &parsed); perr != nil {
		tk.Log.WithProject(st.ProjectID).Warn("discovery questions did not parse, using defaults", "error", perr)
		warnings = append(warnings, "discovery question output did not parse as JSON")
		parsed = map[string][]string{}
	}

	questions := make(map[string][]string, len(questionDomains))
	total := 0
	for _, domain := range questionDomains {
		qs := cleanQuestions(parsed[domain])
		for _, dq := range defaultQuestions[domain] {
			if len(qs) >= minQuestionsPerDomain {
				break
			}
			qs = append(qs, dq)
		}
		questions[domain] = qs
		total += len(qs)
	}

	tk.thought(ctx, st.ProjectID, workflow.StepDiscoveryQuestion, "Discovery questions ready",
		fmt.Sprintf("%d questions across %d domains", total, len(questionDomains)))

	status := workflow.StatusSuccess
	if len(warnings) > 0 {
		status = workflow.StatusWarning
	}
	return workflow.Patch{
		DiscoveryQuestions: questions,
		Warnings:           warnings,
		Log:                entry(workflow.StepDiscoveryQuestion, status, fmt.Sprintf("%d questions generated", total)),
	}, nil
}

func cleanQuestions(qs []string) []string {
	out := qs[:0]
	for _, q := range qs {
		if strings.TrimSpace(q) != "" {
			out = append(out, q)
		}
	}
	return out
}

func challengeLines(challenges []workflow.Challenge) string {
	if len(challenges) == 0 {
		return "(none extracted)"
	}
	var b strings.Builder
	for _, c := range challenges {
		fmt.Fprintf(&b, "- %s (%s, impact %s)\n", c.Text, c.Type, c.Impact)
	}
	return b.String()
}
