package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/llm"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/workflow"
)

// analyzerContextChars bounds how much raw document text goes into the
// prompt when long-context mode is off.
const analyzerContextChars = 10000

const analyzerContextQuery = "What is this project about?"

const analyzerSystem = `You are a senior bid manager analyzing a request for proposal (RFP). Respond with strict JSON only, no markdown fences, matching:
{"summary": "...", "context_overview": "...", "project_scope": "...", "business_objectives": ["..."]}`

const analyzerPrompt = `Analyze the following RFP document. Produce:
- summary: a concise summary of what the client is asking for (3-6 sentences)
- context_overview: the client's situation and why they are issuing this RFP
- project_scope: what is in and out of scope
- business_objectives: the measurable outcomes the client wants

RFP document:
%s`

type analyzerResult struct {
	Summary            string   `json:"summary"`
	ContextOverview    string   `json:"context_overview"`
	ProjectScope       string   `json:"project_scope"`
	BusinessObjectives []string `json:"business_objectives"`
}

// Analyzer reads the RFP text and produces the summary fields every later
// node builds on. It is the only node whose failure aborts the run.
func (tk *Toolkit) Analyzer(ctx context.Context, st workflow.State) (workflow.Patch, error) {
	tk.thought(ctx, st.ProjectID, workflow.StepAnalyzer, "Analyzing the RFP document", "")

	doc := st.RFPText
	if !tk.Config.UseLongContext && len(doc) > analyzerContextChars {
		doc = tk.analyzerContext(ctx, st.ProjectID, doc)
	}

	content, err := tk.complete(ctx, llm.TaskAnalysis, 0.2, 0, analyzerSystem, fmt.Sprintf(analyzerPrompt, doc))
	if err != nil {
		return workflow.Patch{}, fmt.Errorf("analyzer completion: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		return workflow.Patch{}, fmt.Errorf("analyzer returned empty content")
	}

	var res analyzerResult
	if perr := llm.ExtractAndUnmarshal(content, &res); perr != nil {
		// The raw text is still an analysis. Keep it as the summary so the
		// run can proceed on degraded output.
		tk.Log.WithProject(st.ProjectID).Warn("analyzer response did not parse, using raw content", "error", perr)
		return workflow.Patch{
			RFPSummary: strp(truncate(strings.TrimSpace(content), 2000)),
			Warnings:   []string{"analyzer output did not parse as JSON"},
			Log:        entry(workflow.StepAnalyzer, workflow.StatusWarning, "summary recovered from unstructured output"),
		}, nil
	}
	if strings.TrimSpace(res.Summary) == "" {
		return workflow.Patch{}, fmt.Errorf("analyzer produced no summary")
	}

	tk.thought(ctx, st.ProjectID, workflow.StepAnalyzer, "RFP analysis complete",
		fmt.Sprintf("%d business objectives identified", len(res.BusinessObjectives)))

	return workflow.Patch{
		RFPSummary:         strp(res.Summary),
		ContextOverview:    strp(res.ContextOverview),
		ProjectScope:       strp(res.ProjectScope),
		BusinessObjectives: res.BusinessObjectives,
		Log:                entry(workflow.StepAnalyzer, workflow.StatusSuccess, "rfp analyzed"),
	}, nil
}

// analyzerContext assembles the head of the document plus retrieved
// passages. When no retriever is wired the head alone has to do.
func (tk *Toolkit) analyzerContext(ctx context.Context, projectID, doc string) string {
	head := truncate(doc, analyzerContextChars)
	if tk.Retriever == nil {
		return head
	}

	results, err := tk.Retriever.Retrieve(ctx, projectID, analyzerContextQuery, 5)
	if err != nil {
		tk.Log.WithProject(projectID).Warn("analyzer retrieval failed, using document head only", "error", err)
		return head
	}
	if len(results) == 0 {
		return head
	}

	var b strings.Builder
	b.WriteString(head)
	b.WriteString("\n\nRelevant excerpts from the full document:\n")
	for _, r := range results {
		b.WriteString("---\n")
		b.WriteString(r.Text)
		b.WriteString("\n")
	}
	return b.String()
}
