package retrieval

import "sort"

// rrfK dampens the contribution of lower ranks in reciprocal rank fusion.
const rrfK = 60

// rrfFuse combines semantic and lexical scores for the same candidate slice
// into fused scores. Fusion works on ranks, so the two score scales never
// need normalizing.
func rrfFuse(semantic, lexical []float64) []float64 {
	semRanks := ranksOf(semantic)
	lexRanks := ranksOf(lexical)

	fused := make([]float64, len(semantic))
	for i := range fused {
		fused[i] = 1.0/float64(rrfK+semRanks[i]) + 1.0/float64(rrfK+lexRanks[i])
	}
	return fused
}

// ranksOf returns 1-based ranks, highest score first. Ties keep input order.
func ranksOf(scores []float64) []int {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })

	ranks := make([]int, len(scores))
	for rank, i := range order {
		ranks[i] = rank + 1
	}
	return ranks
}
