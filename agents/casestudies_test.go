package agents

import (
	"context"
	"testing"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/models"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/knowledge"
)

func TestCaseStudyMatcherPrefersGraphAndDedupes(t *testing.T) {
	tk, _ := testToolkit(&scriptedCompleter{})
	tk.Extractor = staticExtractor{extraction: &knowledge.Extraction{
		Entities: []knowledge.Entity{{Name: "claims automation", Type: knowledge.EntityChallenge}},
	}}
	tk.Projects = staticIndustry("Insurance")
	tk.Graph = staticFinder{matches: []models.CaseStudy{
		{ID: "cs-1", Title: "Claims Automation", Score: 6.0, Source: "graph"},
	}}
	tk.Search = staticSearcher{matches: []models.CaseStudy{
		{ID: "cs-1", Title: "Claims Automation", Score: 0.9, Source: "rag"}, // duplicate of the graph hit
		{ID: "cs-2", Title: "Policy Portal", Score: 0.8, Source: "rag"},
	}}

	patch, err := tk.CaseStudyMatcher(context.Background(), analyzedState())
	if err != nil {
		t.Fatalf("CaseStudyMatcher() error = %v", err)
	}

	if len(patch.MatchingCaseStudies) != 2 {
		t.Fatalf("expected 2 deduplicated matches, got %d", len(patch.MatchingCaseStudies))
	}
	if patch.MatchingCaseStudies[0].ID != "cs-1" || patch.MatchingCaseStudies[0].Source != "graph" {
		t.Fatalf("graph match must win the duplicate: %+v", patch.MatchingCaseStudies[0])
	}
	if patch.MatchingCaseStudies[1].Source != "rag" {
		t.Fatalf("complement must keep its source tag: %+v", patch.MatchingCaseStudies[1])
	}
}

func TestCaseStudyMatcherSortsByScore(t *testing.T) {
	tk, _ := testToolkit(&scriptedCompleter{})
	tk.Extractor = staticExtractor{extraction: &knowledge.Extraction{
		Entities: []knowledge.Entity{{Name: "x", Type: knowledge.EntityChallenge}},
	}}
	tk.Graph = staticFinder{matches: []models.CaseStudy{
		{ID: "low", Score: 1.0, Source: "graph"},
	}}
	tk.Search = staticSearcher{matches: []models.CaseStudy{
		{ID: "high", Score: 2.5, Source: "rag"},
	}}

	patch, err := tk.CaseStudyMatcher(context.Background(), analyzedState())
	if err != nil {
		t.Fatalf("CaseStudyMatcher() error = %v", err)
	}
	if patch.MatchingCaseStudies[0].ID != "high" {
		t.Fatalf("expected score-descending order, got %+v", patch.MatchingCaseStudies)
	}
}

func TestCaseStudyMatcherFallsBackToDatabase(t *testing.T) {
	tk, _ := testToolkit(&scriptedCompleter{})
	tk.Projects = staticIndustry("Insurance")
	tk.Studies = staticLister{studies: []models.CaseStudy{
		{ID: "cs-db", Title: "Industry Reference", Industry: "Insurance"},
	}}

	patch, err := tk.CaseStudyMatcher(context.Background(), analyzedState())
	if err != nil {
		t.Fatalf("CaseStudyMatcher() error = %v", err)
	}
	if len(patch.MatchingCaseStudies) != 1 || patch.MatchingCaseStudies[0].Source != "db" {
		t.Fatalf("expected db-tagged fallback, got %+v", patch.MatchingCaseStudies)
	}
}

func TestCaseStudyMatcherNoSourcesYieldsEmpty(t *testing.T) {
	tk, _ := testToolkit(&scriptedCompleter{})

	patch, err := tk.CaseStudyMatcher(context.Background(), analyzedState())
	if err != nil {
		t.Fatalf("CaseStudyMatcher() error = %v", err)
	}
	if len(patch.MatchingCaseStudies) != 0 {
		t.Fatalf("expected no matches, got %+v", patch.MatchingCaseStudies)
	}
	if len(patch.Log) != 1 {
		t.Fatalf("expected a log entry, got %+v", patch.Log)
	}
}
