package agents

import (
	"context"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/config"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/workflow"
)

// Edge guards. They evaluate against the JSON state snapshot ("state") and
// the run configuration ("cfg").
const (
	// challenges run unless selected_tasks explicitly turns them off.
	guardChallengesSelected = `!has(state.selected_tasks) || !("challenges" in state.selected_tasks) || state.selected_tasks["challenges"] == true`
	guardChallengesSkipped  = `has(state.selected_tasks) && "challenges" in state.selected_tasks && state.selected_tasks["challenges"] == false`

	guardCompetitorsEnabled = `cfg.enable_competitor_analysis == true`

	guardApprovalContinue = `!cfg.require_outline_approval || (has(state.outline_approved) && state.outline_approved == true)`

	guardRefinementDone     = `!has(state.proposal_draft) || state.critic_score >= cfg.critic_threshold || state.refinement_iterations >= cfg.max_refinement_iterations`
	guardRefinementContinue = `has(state.proposal_draft) && state.critic_score < cfg.critic_threshold && state.refinement_iterations < cfg.max_refinement_iterations`
)

// ProposalDefinition declares the canonical proposal graph over the
// toolkit's handlers: analyzer, a four-way parallel insight fan-out joining
// at the outline, the approval gate, and the critic-refine cycle.
func ProposalDefinition(tk *Toolkit) *workflow.Definition {
	return &workflow.Definition{
		Entry: workflow.StepAnalyzer,
		Nodes: []workflow.NodeSpec{
			{Name: workflow.StepAnalyzer, Handler: tk.Analyzer, Critical: true},
			{Name: workflow.StepChallengeExtractor, Handler: tk.ChallengeExtractor},
			{Name: workflow.StepDiscoveryQuestion, Handler: tk.DiscoveryQuestions},
			{Name: workflow.StepValueProposition, Handler: tk.ValuePropositions},
			{Name: workflow.StepCaseStudyMatcher, Handler: tk.CaseStudyMatcher},
			{Name: workflow.StepCompetitorAnalyzer, Handler: tk.CompetitorAnalyzer},
			{Name: workflow.StepOutlineGenerator, Handler: tk.OutlineGenerator},
			{Name: workflow.StepHumanApproval, Handler: tk.HumanApproval},
			{Name: workflow.StepProposalBuilder, Handler: tk.ProposalBuilder, Critical: true},
			{Name: workflow.StepCritic, Handler: tk.Critic},
			{Name: workflow.StepRefine, Handler: tk.Refine},
			{Name: workflow.StepEnd, Handler: endNode},
		},
		Edges: []workflow.EdgeSpec{
			{From: workflow.StepAnalyzer, To: workflow.StepChallengeExtractor, When: guardChallengesSelected},
			{From: workflow.StepAnalyzer, To: workflow.StepProposalBuilder, When: guardChallengesSkipped},

			{From: workflow.StepChallengeExtractor, To: workflow.StepDiscoveryQuestion},
			{From: workflow.StepChallengeExtractor, To: workflow.StepValueProposition},
			{From: workflow.StepChallengeExtractor, To: workflow.StepCaseStudyMatcher},
			{From: workflow.StepChallengeExtractor, To: workflow.StepCompetitorAnalyzer, When: guardCompetitorsEnabled},

			{From: workflow.StepDiscoveryQuestion, To: workflow.StepOutlineGenerator},
			{From: workflow.StepValueProposition, To: workflow.StepOutlineGenerator},
			{From: workflow.StepCaseStudyMatcher, To: workflow.StepOutlineGenerator},
			{From: workflow.StepCompetitorAnalyzer, To: workflow.StepOutlineGenerator},

			{From: workflow.StepOutlineGenerator, To: workflow.StepHumanApproval},
			{From: workflow.StepHumanApproval, To: workflow.StepProposalBuilder, When: guardApprovalContinue},
			{From: workflow.StepProposalBuilder, To: workflow.StepCritic},

			{From: workflow.StepCritic, To: workflow.StepEnd, When: guardRefinementDone},
			{From: workflow.StepCritic, To: workflow.StepRefine, When: guardRefinementContinue},
			{From: workflow.StepRefine, To: workflow.StepCritic},
		},
	}
}

// BuildProposalGraph compiles the canonical graph.
func BuildProposalGraph(tk *Toolkit) (*workflow.Graph, error) {
	return workflow.Compile(ProposalDefinition(tk))
}

// GuardConfig renders the workflow settings as the "cfg" document the edge
// guards evaluate against. Numeric values are doubles because the state
// snapshot they are compared with decodes JSON numbers as doubles.
func GuardConfig(cfg config.WorkflowConfig) map[string]any {
	return map[string]any{
		"require_outline_approval":   cfg.RequireOutlineApproval,
		"enable_competitor_analysis": cfg.EnableCompetitorAnalysis,
		"critic_threshold":           cfg.CriticThreshold,
		"max_refinement_iterations":  float64(cfg.MaxRefinementIterations),
	}
}

// endNode terminates the graph. The engine never schedules it; it exists so
// the critic's terminal edge has a named target.
func endNode(context.Context, workflow.State) (workflow.Patch, error) {
	return workflow.Patch{}, nil
}
