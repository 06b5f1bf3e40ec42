package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/events"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/models"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/llm"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/workflow"
)

const outlineSystem = `You plan proposal documents. Respond with strict JSON only: an object mapping section keys to one-sentence descriptions tailored to this engagement.`

const outlinePrompt = `Customize the description of each proposal section for this engagement. Keep every key, return an object {"section_key": "tailored description", ...}.

Sections:
%s

Engagement summary:
%s

Client challenges:
%s`

// OutlineGenerator emits the fixed 13-section skeleton with descriptions
// tailored to the engagement. All catalog keys are always present; sections
// the model skipped keep their stock description. The skeleton event fires
// here, once, when the outline is ready.
func (tk *Toolkit) OutlineGenerator(ctx context.Context, st workflow.State) (workflow.Patch, error) {
	tk.thought(ctx, st.ProjectID, workflow.StepOutlineGenerator, "Generating proposal outline", "")

	prompt := fmt.Sprintf(outlinePrompt, catalogPromptBlock(), st.RFPSummary, challengeLines(st.Challenges))
	content, err := tk.complete(ctx, llm.TaskStructuredOutput, 0.3, 0, outlineSystem, prompt)

	descriptions := map[string]string{}
	warnings := []string(nil)
	switch {
	case err != nil:
		tk.Log.WithProject(st.ProjectID).Warn("outline generation failed, using default skeleton", "error", err)
		warnings = append(warnings, "outline generation failed: "+err.Error())
	default:
		if perr := llm.ExtractAndUnmarshal(content, &descriptions); perr != nil {
			tk.Log.WithProject(st.ProjectID).Warn("outline did not parse, using default skeleton", "error", perr)
			warnings = append(warnings, "outline output did not parse as JSON")
		}
	}

	outline := buildOutline(descriptions)
	tk.Events.Emit(ctx, events.Skeleton(st.ProjectID, outline))
	tk.thought(ctx, st.ProjectID, workflow.StepOutlineGenerator, "Outline ready",
		fmt.Sprintf("%d sections", len(outline)))

	status := workflow.StatusSuccess
	if len(warnings) > 0 {
		status = workflow.StatusWarning
	}
	return workflow.Patch{
		ProposalOutline: outline,
		Warnings:        warnings,
		Log:             entry(workflow.StepOutlineGenerator, status, fmt.Sprintf("%d section outline", len(outline))),
	}, nil
}

// buildOutline renders the catalog in order, overriding descriptions the
// model customized.
func buildOutline(descriptions map[string]string) []models.OutlineSection {
	outline := models.DefaultOutline()
	for i := range outline {
		if d := strings.TrimSpace(descriptions[outline[i].Key]); d != "" {
			outline[i].Description = d
		}
	}
	return outline
}

// HumanApproval gates the draft on an outline decision. It makes no LLM
// call: when approval is required and no decision has landed yet, it parks
// the run; the manager resumes it from this node once a decision arrives.
func (tk *Toolkit) HumanApproval(ctx context.Context, st workflow.State) (workflow.Patch, error) {
	if !tk.Config.RequireOutlineApproval {
		return workflow.Patch{
			Log: entry(workflow.StepHumanApproval, workflow.StatusSuccess, "outline approval not required"),
		}, nil
	}

	switch {
	case st.OutlineApproved == nil:
		tk.thought(ctx, st.ProjectID, workflow.StepHumanApproval, "Waiting for outline approval", "")
		return workflow.Patch{
			Log: entry(workflow.StepHumanApproval, workflow.StatusPending, "awaiting outline approval"),
		}, workflow.ErrAwaitingApproval
	case *st.OutlineApproved:
		return workflow.Patch{
			Log: entry(workflow.StepHumanApproval, workflow.StatusSuccess, "outline approved"),
		}, nil
	default:
		// Rejected. Park again until a revised decision arrives.
		return workflow.Patch{
			Log: entry(workflow.StepHumanApproval, workflow.StatusPending, "outline rejected, awaiting revised approval"),
		}, workflow.ErrAwaitingApproval
	}
}
