package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/models"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/llm"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/workflow"
)

// fallbackCriticScore keeps the refinement guard decidable when the critic
// itself fails: below any sensible threshold, so refinement still runs
// until the iteration cap ends the loop.
const fallbackCriticScore = 0.5

const criticSystem = `You review proposal drafts. Score 0-100 per dimension. Respond with strict JSON only:
{"overall": 0, "clarity": 0, "completeness": 0, "relevance": 0, "professionalism": 0, "weak_sections": ["section_key"], "suggestions": ["..."]}`

const criticPrompt = `Review this proposal draft against the RFP summary. Score clarity, completeness, relevance and professionalism from 0 to 100, give an overall score, list the keys of weak sections, and give concrete suggestions.

RFP summary:
%s

Draft sections:
%s`

type criticResult struct {
	Overall         float64  `json:"overall"`
	Clarity         float64  `json:"clarity"`
	Completeness    float64  `json:"completeness"`
	Relevance       float64  `json:"relevance"`
	Professionalism float64  `json:"professionalism"`
	WeakSections    []string `json:"weak_sections"`
	Suggestions     []string `json:"suggestions"`
}

// Critic scores the draft and names the weak sections. Scores arrive on the
// 0-100 scale and are normalized to [0,1] for the refinement guard. On any
// failure the score degrades to 0.5 with no feedback report.
func (tk *Toolkit) Critic(ctx context.Context, st workflow.State) (workflow.Patch, error) {
	tk.thought(ctx, st.ProjectID, workflow.StepCritic, "Reviewing the draft", "")

	prompt := fmt.Sprintf(criticPrompt, st.RFPSummary, draftPromptBlock(st.ProposalDraft))
	content, err := tk.complete(ctx, llm.TaskHighQuality, 0, 0, criticSystem, prompt)

	var res criticResult
	if err == nil {
		err = llm.ExtractAndUnmarshal(content, &res)
	}
	if err != nil {
		tk.Log.WithProject(st.ProjectID).Warn("critic failed, degrading to neutral score", "error", err)
		return workflow.Patch{
			CriticScore:         f64p(fallbackCriticScore),
			CriticScoresHistory: []float64{fallbackCriticScore},
			Warnings:            []string{"critic failed: " + err.Error()},
			Log:                 entry(workflow.StepCritic, workflow.StatusWarning, fmt.Sprintf("review failed, score %.2f assumed", fallbackCriticScore)),
		}, nil
	}

	score := normalizeScore(res.Overall)
	feedback := workflow.RefinementFeedback{
		Overall:         score,
		Clarity:         normalizeScore(res.Clarity),
		Completeness:    normalizeScore(res.Completeness),
		Relevance:       normalizeScore(res.Relevance),
		Professionalism: normalizeScore(res.Professionalism),
		WeakSections:    knownSectionKeys(res.WeakSections),
		Suggestions:     res.Suggestions,
	}

	tk.thought(ctx, st.ProjectID, workflow.StepCritic, "Draft reviewed",
		fmt.Sprintf("score %.2f, %d weak sections", score, len(feedback.WeakSections)))

	log := entry(workflow.StepCritic, workflow.StatusSuccess, fmt.Sprintf("draft scored %.2f", score))
	if score < tk.Config.CriticThreshold && st.RefinementIterations >= tk.Config.MaxRefinementIterations {
		log = entry(workflow.StepCritic, workflow.StatusWarning,
			fmt.Sprintf("max refinement iterations reached, accepting draft at %.2f", score))
	}

	return workflow.Patch{
		CriticScore:         f64p(score),
		RefinementFeedback:  &feedback,
		CriticScoresHistory: []float64{score},
		Log:                 log,
	}, nil
}

const refineSystem = `You rewrite weak proposal sections. Respond with strict JSON only: an object mapping each listed section key to its rewritten content.`

const refinePrompt = `Rewrite only the sections listed below, applying the reviewer's suggestions. Return an object {"section_key": "rewritten content", ...} restricted to these keys.

Reviewer suggestions:
%s

Sections to rewrite:
%s`

// Refine rewrites the weak sections and returns the full draft. The
// iteration counter advances on every visit, including failed ones, so the
// critic loop always reaches its cap.
func (tk *Toolkit) Refine(ctx context.Context, st workflow.State) (workflow.Patch, error) {
	iterations := intp(st.RefinementIterations + 1)

	weak := refinableSections(st)
	if len(weak) == 0 {
		return workflow.Patch{
			RefinementIterations: iterations,
			Log:                  entry(workflow.StepRefine, workflow.StatusSuccess, "no weak sections identified, draft unchanged"),
		}, nil
	}

	tk.thought(ctx, st.ProjectID, workflow.StepRefine, "Refining weak sections", strings.Join(weak, ", "))

	var suggestions []string
	if st.RefinementFeedback != nil {
		suggestions = st.RefinementFeedback.Suggestions
	}
	prompt := fmt.Sprintf(refinePrompt, bulletLines(suggestions), weakSectionBlock(st.ProposalDraft, weak))

	rewritten := map[string]string{}
	content, err := tk.complete(ctx, llm.TaskRefinement, 0.4, builderMaxTokens, refineSystem, prompt)
	if err == nil {
		err = llm.ExtractAndUnmarshal(content, &rewritten)
	}
	if err != nil {
		tk.Log.WithProject(st.ProjectID).Warn("refinement failed, draft unchanged", "error", err)
		return workflow.Patch{
			RefinementIterations: iterations,
			Warnings:             []string{"refinement failed: " + err.Error()},
			Log:                  entry(workflow.StepRefine, workflow.StatusWarning, "refinement failed, draft unchanged"),
		}, nil
	}

	draft := make(map[string]string, len(st.ProposalDraft))
	for k, v := range st.ProposalDraft {
		draft[k] = v
	}
	replaced := 0
	for _, key := range weak {
		if text := strings.TrimSpace(rewritten[key]); text != "" {
			draft[key] = text
			replaced++
		}
	}

	tk.thought(ctx, st.ProjectID, workflow.StepRefine, "Refinement complete",
		fmt.Sprintf("%d sections rewritten", replaced))

	return workflow.Patch{
		ProposalDraft:        draft,
		RefinementIterations: iterations,
		Log:                  entry(workflow.StepRefine, workflow.StatusSuccess, fmt.Sprintf("%d sections rewritten", replaced)),
	}, nil
}

// normalizeScore maps the critic's 0-100 scale into [0,1].
func normalizeScore(v float64) float64 {
	s := v / 100
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// knownSectionKeys drops weak-section names that are not catalog keys.
func knownSectionKeys(keys []string) []string {
	var out []string
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if _, ok := models.SectionByKey(k); ok {
			out = append(out, k)
		}
	}
	return out
}

// refinableSections are the weak sections that actually exist in the draft.
func refinableSections(st workflow.State) []string {
	if st.RefinementFeedback == nil || len(st.ProposalDraft) == 0 {
		return nil
	}
	var out []string
	for _, k := range knownSectionKeys(st.RefinementFeedback.WeakSections) {
		if _, ok := st.ProposalDraft[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

func draftPromptBlock(draft map[string]string) string {
	var b strings.Builder
	for _, spec := range SectionCatalog {
		if text, ok := draft[spec.Key]; ok {
			fmt.Fprintf(&b, "## %s\n%s\n\n", spec.Key, text)
		}
	}
	return b.String()
}

func weakSectionBlock(draft map[string]string, weak []string) string {
	var b strings.Builder
	for _, key := range weak {
		fmt.Fprintf(&b, "## %s\n%s\n\n", key, draft[key])
	}
	return b.String()
}
