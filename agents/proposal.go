package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/llm"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/workflow"
)

const builderMaxTokens = 4096

const builderSystem = `You write complete proposal drafts. Respond with strict JSON only: an object mapping every section key to its drafted content. Never omit a key.`

const builderPrompt = `Draft the proposal content for every section below. Write 2-4 paragraphs per section, grounded in the engagement context. Return an object {"section_key": "content", ...} covering all keys.

Sections:
%s

Engagement summary:
%s

Project scope:
%s

Client challenges:
%s

Value propositions:
%s

Reference case studies:
%s`

// ProposalBuilder drafts all 13 sections. A section the model failed to
// produce gets the deterministic placeholder, so the finished draft always
// carries every catalog key with non-empty content. Only a cancelled
// context escapes as an error.
func (tk *Toolkit) ProposalBuilder(ctx context.Context, st workflow.State) (workflow.Patch, error) {
	tk.thought(ctx, st.ProjectID, workflow.StepProposalBuilder, "Drafting the proposal", "")

	prompt := fmt.Sprintf(builderPrompt,
		outlinePromptBlock(st),
		st.RFPSummary,
		st.ProjectScope,
		challengeLines(st.Challenges),
		bulletLines(st.ValuePropositions),
		caseStudyLines(st.MatchingCaseStudies),
	)

	generated := map[string]string{}
	warnings := []string(nil)

	content, err := tk.complete(ctx, llm.TaskDrafting, 0.5, builderMaxTokens, builderSystem, prompt)
	switch {
	case err != nil && ctx.Err() != nil:
		return workflow.Patch{}, err
	case err != nil:
		tk.Log.WithProject(st.ProjectID).Warn("proposal drafting failed, using placeholders", "error", err)
		warnings = append(warnings, "proposal drafting failed: "+err.Error())
	default:
		if perr := llm.ExtractAndUnmarshal(content, &generated); perr != nil {
			tk.Log.WithProject(st.ProjectID).Warn("proposal draft did not parse, using placeholders", "error", perr)
			warnings = append(warnings, "proposal draft output did not parse as JSON")
		}
	}

	draft := make(map[string]string, len(SectionCatalog))
	placeholders := 0
	for _, spec := range SectionCatalog {
		text := strings.TrimSpace(generated[spec.Key])
		if text == "" {
			text = placeholderContent(spec)
			placeholders++
		}
		draft[spec.Key] = text
	}

	detail := fmt.Sprintf("%d sections drafted", len(draft))
	status := workflow.StatusSuccess
	if placeholders > 0 {
		detail = fmt.Sprintf("%d sections drafted, %d placeholders", len(draft), placeholders)
	}
	if len(warnings) > 0 {
		status = workflow.StatusWarning
	}

	tk.thought(ctx, st.ProjectID, workflow.StepProposalBuilder, "Proposal draft complete", detail)

	return workflow.Patch{
		ProposalDraft: draft,
		Warnings:      warnings,
		Log:           entry(workflow.StepProposalBuilder, status, detail),
	}, nil
}

// outlinePromptBlock prefers the customized outline over the stock catalog.
func outlinePromptBlock(st workflow.State) string {
	if len(st.ProposalOutline) == 0 {
		return catalogPromptBlock()
	}
	var b strings.Builder
	for _, s := range st.ProposalOutline {
		fmt.Fprintf(&b, "- %s: %s\n", s.Key, s.Description)
	}
	return b.String()
}

func bulletLines(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for _, it := range items {
		fmt.Fprintf(&b, "- %s\n", it)
	}
	return b.String()
}

func caseStudyLines(studies []workflow.CaseStudy) string {
	if len(studies) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for _, cs := range studies {
		fmt.Fprintf(&b, "- %s (%s): %s\n", cs.Title, cs.Industry, cs.Impact)
	}
	return b.String()
}
