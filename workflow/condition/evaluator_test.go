package condition

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEvaluateStateAndConfig(t *testing.T) {
	e := NewEvaluator()
	state := map[string]any{
		"critic_score":          0.75,
		"refinement_iterations": float64(2),
		"selected_tasks":        map[string]any{"challenges": false},
	}
	cfg := map[string]any{
		"critic_threshold":          0.9,
		"max_refinement_iterations": float64(3),
		"require_outline_approval":  true,
	}

	cases := []struct {
		expr string
		want bool
	}{
		{`state.critic_score >= cfg.critic_threshold`, false},
		{`state.critic_score < cfg.critic_threshold`, true},
		{`state.refinement_iterations >= cfg.max_refinement_iterations`, false},
		{`state.selected_tasks["challenges"] == false`, true},
		{`has(state.selected_tasks) && "challenges" in state.selected_tasks`, true},
		{`has(state.proposal_draft)`, false},
		{`!cfg.require_outline_approval || has(state.outline_approved)`, false},
	}
	for _, tc := range cases {
		got, err := e.Evaluate(tc.expr, state, cfg)
		require.NoError(t, err, tc.expr)
		require.Equal(t, tc.want, got, tc.expr)
	}
}

// Guards written against the raw state document use $.field; they must
// evaluate the same as state.field.
func TestEvaluateNormalizesJSONPath(t *testing.T) {
	e := NewEvaluator()
	got, err := e.Evaluate(`$.critic_score >= 0.5`, map[string]any{"critic_score": 0.8}, nil)
	require.NoError(t, err)
	require.True(t, got)
}

func TestEvaluateRejectsNonBoolean(t *testing.T) {
	e := NewEvaluator()
	_, err := e.Evaluate(`state.critic_score`, map[string]any{"critic_score": 0.8}, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "boolean")
}

func TestEvaluateRejectsEmptyExpression(t *testing.T) {
	e := NewEvaluator()
	_, err := e.Evaluate("  ", nil, nil)
	require.Error(t, err)
}

func TestEvaluateRejectsBadSyntax(t *testing.T) {
	e := NewEvaluator()
	_, err := e.Evaluate(`state.critic_score >=`, nil, nil)
	require.Error(t, err)
}

func TestEvaluatorCachesPrograms(t *testing.T) {
	e := NewEvaluator()
	state := map[string]any{"critic_score": 0.8}

	_, err := e.Evaluate(`state.critic_score >= 0.5`, state, nil)
	require.NoError(t, err)
	_, err = e.Evaluate(`state.critic_score >= 0.5`, state, nil)
	require.NoError(t, err)
	require.Equal(t, 1, e.CacheSize())

	_, err = e.Evaluate(`state.critic_score < 0.5`, state, nil)
	require.NoError(t, err)
	require.Equal(t, 2, e.CacheSize())

	e.ClearCache()
	require.Equal(t, 0, e.CacheSize())
}
