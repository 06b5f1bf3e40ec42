package retrieval

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/logger"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/models"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/vectorstore"
)

// CorpusSource lists the persisted reference corpus.
type CorpusSource interface {
	ListCaseStudies(ctx context.Context) ([]models.CaseStudy, error)
}

// CaseStudySearch answers semantic queries over the case-study corpus. The
// corpus is embedded into its own vector collection lazily on first use,
// mirroring the knowledge graph's lazy load of the same records. One point
// per case study, keyed by the study ID, so re-syncing is an overwrite.
type CaseStudySearch struct {
	source   CorpusSource
	embedder Embedder
	store    vectorstore.Store
	log      *logger.Logger

	mu     sync.Mutex
	synced bool
}

// NewCaseStudySearch wires the corpus search. The store must be a dedicated
// collection; RFP chunks and case studies never share one.
func NewCaseStudySearch(source CorpusSource, embedder Embedder, store vectorstore.Store, log *logger.Logger) *CaseStudySearch {
	return &CaseStudySearch{source: source, embedder: embedder, store: store, log: log}
}

// SearchCaseStudies returns the corpus entries closest to the query,
// optionally restricted to one industry. Matches carry the "rag" source tag.
func (s *CaseStudySearch) SearchCaseStudies(ctx context.Context, query, industry string, topK int) ([]models.CaseStudy, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	if topK <= 0 {
		topK = 3
	}
	if err := s.ensureSynced(ctx); err != nil {
		return nil, err
	}

	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed case study query: %w", err)
	}

	filter := vectorstore.Filter{}
	if industry != "" {
		filter["industry_key"] = strings.ToLower(strings.TrimSpace(industry))
	}

	matches, err := s.store.Query(ctx, vector, topK, filter)
	if err != nil {
		return nil, fmt.Errorf("case study query failed: %w", err)
	}

	out := make([]models.CaseStudy, 0, len(matches))
	for _, m := range matches {
		out = append(out, studyFromMatch(m))
	}
	return out, nil
}

// IndexCaseStudy adds or refreshes one corpus entry.
func (s *CaseStudySearch) IndexCaseStudy(ctx context.Context, study models.CaseStudy) error {
	if err := s.ensureSynced(ctx); err != nil {
		return err
	}
	vectors, err := s.embedder.EmbedTexts(ctx, []string{study.SearchText()})
	if err != nil {
		return fmt.Errorf("failed to embed case study: %w", err)
	}
	if err := s.store.Upsert(ctx, []vectorstore.Point{studyPoint(study, vectors[0])}); err != nil {
		return fmt.Errorf("failed to upsert case study: %w", err)
	}
	return nil
}

// ensureSynced embeds the whole corpus on first use. A failed sync is
// retried on the next call.
func (s *CaseStudySearch) ensureSynced(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.synced {
		return nil
	}

	studies, err := s.source.ListCaseStudies(ctx)
	if err != nil {
		return fmt.Errorf("failed to list case studies: %w", err)
	}
	if len(studies) == 0 {
		s.synced = true
		return nil
	}

	start := time.Now()
	texts := make([]string, len(studies))
	for i, cs := range studies {
		texts[i] = cs.SearchText()
	}
	vectors, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed case study corpus: %w", err)
	}

	dim, err := s.embedder.Dimension(ctx)
	if err != nil {
		return err
	}
	if err := ensureDimension(ctx, s.store, dim, s.log); err != nil {
		return err
	}

	points := make([]vectorstore.Point, len(studies))
	for i, cs := range studies {
		points[i] = studyPoint(cs, vectors[i])
	}
	if err := s.store.Upsert(ctx, points); err != nil {
		return fmt.Errorf("failed to index case study corpus: %w", err)
	}

	s.synced = true
	s.log.Info("case study corpus indexed", "studies", len(studies), "duration", time.Since(start))
	return nil
}

func studyPoint(study models.CaseStudy, vector []float32) vectorstore.Point {
	return vectorstore.Point{
		ID:     study.ID,
		Vector: vector,
		Text:   study.SearchText(),
		Metadata: map[string]any{
			"case_study_id": study.ID,
			"title":         study.Title,
			"industry":      study.Industry,
			"industry_key":  strings.ToLower(strings.TrimSpace(study.Industry)),
			"description":   study.Description,
			"impact":        study.Impact,
		},
	}
}

func studyFromMatch(m vectorstore.Match) models.CaseStudy {
	meta := func(key string) string {
		if v, ok := m.Metadata[key].(string); ok {
			return v
		}
		return ""
	}
	id := meta("case_study_id")
	if id == "" {
		id = m.ID
	}
	description := meta("description")
	if description == "" {
		description = m.Text
	}
	return models.CaseStudy{
		ID:          id,
		Title:       meta("title"),
		Industry:    meta("industry"),
		Description: description,
		Impact:      meta("impact"),
		Score:       m.Score,
		Source:      "rag",
	}
}
