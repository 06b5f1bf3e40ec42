package agents

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/knowledge"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/workflow"
)

const caseStudyMatches = 3

// CaseStudyMatcher finds reference engagements for the extracted challenges.
// The knowledge graph answers first; semantic search over the corpus
// complements it; the plain industry listing is the last resort. Matches are
// deduplicated by case-study ID and carry the source that produced them.
func (tk *Toolkit) CaseStudyMatcher(ctx context.Context, st workflow.State) (workflow.Patch, error) {
	tk.thought(ctx, st.ProjectID, workflow.StepCaseStudyMatcher, "Matching case studies", "")

	query := challengeQuery(st)
	industry := tk.projectIndustry(ctx, st.ProjectID)

	var matches []workflow.CaseStudy

	if tk.Graph != nil {
		entities := tk.queryEntities(ctx, st.ProjectID, query)
		if len(entities) > 0 {
			found, err := tk.Graph.FindMatchingCaseStudies(ctx, entities, industry, caseStudyMatches)
			if err != nil {
				tk.Log.WithProject(st.ProjectID).Warn("graph matching failed", "error", err)
			} else {
				matches = append(matches, found...)
			}
		}
	}

	if len(matches) < caseStudyMatches && tk.Search != nil {
		found, err := tk.Search.SearchCaseStudies(ctx, query, industry, caseStudyMatches)
		if err != nil {
			tk.Log.WithProject(st.ProjectID).Warn("case study search failed", "error", err)
		} else {
			matches = append(matches, found...)
		}
	}

	if len(matches) == 0 && tk.Studies != nil {
		found, err := tk.Studies.ListByIndustry(ctx, industry, caseStudyMatches)
		if err != nil {
			tk.Log.WithProject(st.ProjectID).Warn("case study listing failed", "error", err)
		} else {
			for _, cs := range found {
				cs.Source = "db"
				matches = append(matches, cs)
			}
		}
	}

	matches = dedupeCaseStudies(matches)
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > caseStudyMatches {
		matches = matches[:caseStudyMatches]
	}

	tk.thought(ctx, st.ProjectID, workflow.StepCaseStudyMatcher, "Case studies matched",
		fmt.Sprintf("%d matches", len(matches)))

	return workflow.Patch{
		MatchingCaseStudies: matches,
		Log:                 entry(workflow.StepCaseStudyMatcher, workflow.StatusSuccess, fmt.Sprintf("%d case studies matched", len(matches))),
	}, nil
}

// challengeQuery concatenates the challenge texts; with none extracted the
// summary stands in.
func challengeQuery(st workflow.State) string {
	if len(st.Challenges) == 0 {
		return st.RFPSummary
	}
	texts := make([]string, 0, len(st.Challenges))
	for _, c := range st.Challenges {
		texts = append(texts, c.Text)
	}
	return strings.Join(texts, ". ")
}

// queryEntities extracts typed entities from the challenge text for graph
// matching. Extraction failure just disables the graph route.
func (tk *Toolkit) queryEntities(ctx context.Context, projectID, query string) []knowledge.Entity {
	if tk.Extractor == nil || strings.TrimSpace(query) == "" {
		return nil
	}
	ex, err := tk.Extractor.Extract(ctx, query)
	if err != nil {
		tk.Log.WithProject(projectID).Warn("query entity extraction failed", "error", err)
		return nil
	}
	return ex.Entities
}

func (tk *Toolkit) projectIndustry(ctx context.Context, projectID string) string {
	if tk.Projects == nil {
		return ""
	}
	industry, err := tk.Projects.Industry(ctx, projectID)
	if err != nil {
		tk.Log.WithProject(projectID).Warn("industry lookup failed", "error", err)
		return ""
	}
	return industry
}

// dedupeCaseStudies keeps the first occurrence of each ID, which after the
// graph-first ordering is the highest-confidence source.
func dedupeCaseStudies(matches []workflow.CaseStudy) []workflow.CaseStudy {
	seen := make(map[string]bool, len(matches))
	out := matches[:0]
	for _, m := range matches {
		if m.ID != "" && seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		out = append(out, m)
	}
	return out
}
