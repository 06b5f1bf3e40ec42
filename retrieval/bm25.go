package retrieval

import (
	"math"
	"strings"
	"unicode"
)

// Okapi BM25 over the in-memory candidate set. Tuning follows the common
// defaults.
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// bm25Scores scores each document against the query. Scores are not
// normalized; they only feed rank fusion.
func bm25Scores(query string, docs []string) []float64 {
	queryTerms := tokenize(query)
	scores := make([]float64, len(docs))
	if len(queryTerms) == 0 || len(docs) == 0 {
		return scores
	}

	docTerms := make([]map[string]int, len(docs))
	var totalLen float64
	for i, doc := range docs {
		tf := map[string]int{}
		terms := tokenize(doc)
		for _, t := range terms {
			tf[t]++
		}
		docTerms[i] = tf
		totalLen += float64(len(terms))
	}
	avgLen := totalLen / float64(len(docs))
	if avgLen == 0 {
		return scores
	}

	df := map[string]int{}
	for _, term := range uniqueTerms(queryTerms) {
		for _, tf := range docTerms {
			if tf[term] > 0 {
				df[term]++
			}
		}
	}

	n := float64(len(docs))
	for i, tf := range docTerms {
		var docLen float64
		for _, c := range tf {
			docLen += float64(c)
		}
		for _, term := range queryTerms {
			f := float64(tf[term])
			if f == 0 {
				continue
			}
			idf := math.Log(1 + (n-float64(df[term])+0.5)/(float64(df[term])+0.5))
			scores[i] += idf * f * (bm25K1 + 1) / (f + bm25K1*(1-bm25B+bm25B*docLen/avgLen))
		}
	}
	return scores
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func uniqueTerms(terms []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
