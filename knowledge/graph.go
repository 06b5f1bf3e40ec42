package knowledge

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/logger"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/models"
)

// EntityType classifies a graph node.
type EntityType string

const (
	EntityCompany    EntityType = "company"
	EntityIndustry   EntityType = "industry"
	EntityTechnology EntityType = "technology"
	EntityChallenge  EntityType = "challenge"
	EntitySolution   EntityType = "solution"
	EntityMetric     EntityType = "metric"
	EntityUnknown    EntityType = "unknown"
)

// RelationKind classifies a graph edge.
type RelationKind string

const (
	KindUses       RelationKind = "uses"
	KindSolves     RelationKind = "solves"
	KindAddresses  RelationKind = "addresses"
	KindRelatedTo  RelationKind = "related_to"
	KindInIndustry RelationKind = "in_industry"
)

// reverseKind materializes the opposite direction of every edge so the
// walk never needs a backward index.
var reverseKind = map[RelationKind]RelationKind{
	KindUses:       "used_by",
	KindSolves:     "solved_by",
	KindAddresses:  "addressed_by",
	KindRelatedTo:  KindRelatedTo,
	KindInIndustry: "has_member",
}

// Entity is one graph node.
type Entity struct {
	Name string     `json:"name"`
	Type EntityType `json:"type"`
}

// Relationship is one directed edge between two entity names.
type Relationship struct {
	Source   string       `json:"source"`
	Target   string       `json:"target"`
	Kind     RelationKind `json:"kind"`
	Strength float64      `json:"strength"`
}

// Extraction is the structured result of entity extraction over one text.
type Extraction struct {
	Entities      []Entity       `json:"entities"`
	Relationships []Relationship `json:"relationships"`
}

type edge struct {
	target   string
	kind     RelationKind
	strength float64
}

// CaseStudySource lists persisted case studies for the lazy load.
type CaseStudySource interface {
	ListCaseStudies(ctx context.Context) ([]models.CaseStudy, error)
}

// Graph holds entities and relationships extracted from case studies.
// It loads lazily on first use and only grows afterwards: a single writer
// inserts under the write lock, matching runs under read locks.
type Graph struct {
	mu       sync.RWMutex
	entities map[string]Entity
	edges    map[string][]edge
	members  map[string]map[string]bool
	studies  map[string]models.CaseStudy
	loaded   bool

	source    CaseStudySource
	extractor *Extractor
	log       *logger.Logger
}

// NewGraph builds an empty graph. source may be nil, in which case the
// graph starts empty and grows through AddCaseStudy only.
func NewGraph(source CaseStudySource, extractor *Extractor, log *logger.Logger) *Graph {
	return &Graph{
		entities:  make(map[string]Entity),
		edges:     make(map[string][]edge),
		members:   make(map[string]map[string]bool),
		studies:   make(map[string]models.CaseStudy),
		source:    source,
		extractor: extractor,
		log:       log,
	}
}

// EnsureLoaded populates the graph from persisted case studies once.
// Subsequent calls return immediately.
func (g *Graph) EnsureLoaded(ctx context.Context) error {
	g.mu.RLock()
	loaded := g.loaded
	g.mu.RUnlock()
	if loaded {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.loaded {
		return nil
	}

	start := time.Now()
	var studies []models.CaseStudy
	if g.source != nil {
		var err error
		studies, err = g.source.ListCaseStudies(ctx)
		if err != nil {
			return err
		}
	}

	for _, study := range studies {
		g.insertLocked(ctx, study)
	}
	g.loaded = true

	g.log.Info("knowledge graph loaded",
		"case_studies", len(studies),
		"entities", len(g.entities),
		"duration", time.Since(start).String(),
	)
	return nil
}

// AddCaseStudy extracts entities from the study and grows the graph.
func (g *Graph) AddCaseStudy(ctx context.Context, study models.CaseStudy) error {
	if err := g.EnsureLoaded(ctx); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.insertLocked(ctx, study)
	return nil
}

// insertLocked runs extraction for one study and records the result.
// Callers hold the write lock.
func (g *Graph) insertLocked(ctx context.Context, study models.CaseStudy) {
	extraction, err := g.extractor.Extract(ctx, study.SearchText())
	if err != nil {
		g.log.Warn("entity extraction failed, using typed fallback",
			"case_study_id", study.ID,
			"error", err,
		)
		extraction = fallbackExtraction(study)
	}

	g.studies[study.ID] = study

	for _, ent := range extraction.Entities {
		g.ensureEntityLocked(ent.Name, ent.Type, study.ID)
	}
	for _, rel := range extraction.Relationships {
		src := g.ensureEntityLocked(rel.Source, EntityUnknown, study.ID)
		dst := g.ensureEntityLocked(rel.Target, EntityUnknown, study.ID)
		if src == "" || dst == "" || src == dst {
			continue
		}
		g.edges[src] = append(g.edges[src], edge{target: dst, kind: rel.Kind, strength: rel.Strength})
		g.edges[dst] = append(g.edges[dst], edge{target: src, kind: reverseKind[rel.Kind], strength: rel.Strength})
	}
}

// ensureEntityLocked inserts the entity if new and records the study as a
// member. Existing entities keep their type except when the stored type is
// unknown and the new one is specific.
func (g *Graph) ensureEntityLocked(name string, typ EntityType, studyID string) string {
	key := normalizeEntity(name)
	if key == "" {
		return ""
	}
	existing, ok := g.entities[key]
	if !ok {
		g.entities[key] = Entity{Name: strings.TrimSpace(name), Type: typ}
	} else if existing.Type == EntityUnknown && typ != EntityUnknown {
		existing.Type = typ
		g.entities[key] = existing
	}
	if studyID != "" {
		set, ok := g.members[key]
		if !ok {
			set = make(map[string]bool)
			g.members[key] = set
		}
		set[studyID] = true
	}
	return key
}

// FindRelated walks breadth-first from the named entity and returns every
// entity within maxDepth hops. maxDepth <= 0 means the default of 2.
func (g *Graph) FindRelated(ctx context.Context, name string, maxDepth int) ([]Entity, error) {
	if err := g.EnsureLoaded(ctx); err != nil {
		return nil, err
	}
	if maxDepth <= 0 {
		maxDepth = 2
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	keys := g.relatedKeysLocked(normalizeEntity(name), maxDepth)
	out := make([]Entity, 0, len(keys))
	for _, k := range keys {
		out = append(out, g.entities[k])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// relatedKeysLocked returns the keys reachable within maxDepth hops,
// excluding the start. Callers hold at least the read lock.
func (g *Graph) relatedKeysLocked(start string, maxDepth int) []string {
	if start == "" {
		return nil
	}
	if _, ok := g.entities[start]; !ok {
		return nil
	}

	visited := map[string]bool{start: true}
	frontier := []string{start}
	var out []string

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, key := range frontier {
			for _, e := range g.edges[key] {
				if visited[e.target] {
					continue
				}
				visited[e.target] = true
				next = append(next, e.target)
				out = append(out, e.target)
			}
		}
		frontier = next
	}
	return out
}

// FindMatchingCaseStudies scores persisted case studies against the query
// entities. Each query entity contributes its member studies and those of
// its neighborhood up to depth 2; challenge, solution and technology
// entities weigh 1.5, everything else 1.0, and a study in the query
// industry gets a 1.5 multiplier. Results come back sorted by descending
// score, at most topK of them, tagged Source "graph".
func (g *Graph) FindMatchingCaseStudies(ctx context.Context, queryEntities []Entity, queryIndustry string, topK int) ([]models.CaseStudy, error) {
	if err := g.EnsureLoaded(ctx); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = 3
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	scores := make(map[string]float64)
	for _, qe := range queryEntities {
		key := normalizeEntity(qe.Name)
		if key == "" {
			continue
		}
		weight := entityWeight(qe.Type)

		candidates := []string{key}
		candidates = append(candidates, g.relatedKeysLocked(key, 2)...)
		for _, c := range candidates {
			for studyID := range g.members[c] {
				scores[studyID] += weight
			}
		}
	}

	industry := strings.ToLower(strings.TrimSpace(queryIndustry))
	out := make([]models.CaseStudy, 0, len(scores))
	for studyID, score := range scores {
		study, ok := g.studies[studyID]
		if !ok {
			continue
		}
		if industry != "" && strings.ToLower(strings.TrimSpace(study.Industry)) == industry {
			score *= 1.5
		}
		study.Score = score
		study.Source = "graph"
		out = append(out, study)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

// Stats reports graph size for logging and health checks.
func (g *Graph) Stats() (entities, edges, studies int) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, es := range g.edges {
		edges += len(es)
	}
	return len(g.entities), edges, len(g.studies)
}

func entityWeight(t EntityType) float64 {
	switch t {
	case EntityChallenge, EntitySolution, EntityTechnology:
		return 1.5
	default:
		return 1.0
	}
}

func normalizeEntity(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// fallbackExtraction builds a minimal extraction from the record fields
// when the model output cannot be parsed.
func fallbackExtraction(study models.CaseStudy) *Extraction {
	ex := &Extraction{}
	title := strings.TrimSpace(study.Title)
	industry := strings.TrimSpace(study.Industry)
	if title != "" {
		ex.Entities = append(ex.Entities, Entity{Name: title, Type: EntitySolution})
	}
	if industry != "" {
		ex.Entities = append(ex.Entities, Entity{Name: industry, Type: EntityIndustry})
	}
	if title != "" && industry != "" {
		ex.Relationships = append(ex.Relationships, Relationship{
			Source:   title,
			Target:   industry,
			Kind:     KindInIndustry,
			Strength: 1,
		})
	}
	return ex
}
