package knowledge

import (
	"context"
	"fmt"
	"strings"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/logger"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/llm"
)

const extractionPrompt = `You extract entities and relationships from business case studies to build a knowledge graph.

Entity types: company, industry, technology, challenge, solution, metric.
Relationship kinds: uses, solves, addresses, related_to, in_industry.

Return strict JSON with exactly this shape and no other text:
{"entities": [{"name": "...", "type": "..."}], "relationships": [{"source": "...", "target": "...", "kind": "...", "strength": 0.8}]}

Entity names are short noun phrases. Strength is a confidence between 0 and 1. Relationship source and target must appear in the entities list.`

var validEntityTypes = map[EntityType]bool{
	EntityCompany:    true,
	EntityIndustry:   true,
	EntityTechnology: true,
	EntityChallenge:  true,
	EntitySolution:   true,
	EntityMetric:     true,
	EntityUnknown:    true,
}

var validKinds = map[RelationKind]bool{
	KindUses:       true,
	KindSolves:     true,
	KindAddresses:  true,
	KindRelatedTo:  true,
	KindInIndustry: true,
}

// Completer is the slice of the LLM gateway the extractor needs.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// Extractor turns free text into entities and relationships.
type Extractor struct {
	gateway Completer
	log     *logger.Logger
}

func NewExtractor(gateway Completer, log *logger.Logger) *Extractor {
	return &Extractor{gateway: gateway, log: log}
}

// Extract runs one structured-output completion over the text and parses
// the result. Unknown types and out-of-range strengths are coerced rather
// than rejected; a response that cannot be parsed at all is an error.
func (e *Extractor) Extract(ctx context.Context, text string) (*Extraction, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return &Extraction{}, nil
	}

	resp, err := e.gateway.Complete(ctx, llm.Request{
		TaskType:    llm.TaskStructuredOutput,
		Temperature: 0.1,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: extractionPrompt},
			{Role: llm.RoleUser, Content: text},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("entity extraction: %w", err)
	}

	var ex Extraction
	if err := llm.ExtractAndUnmarshal(resp.Content, &ex); err != nil {
		return nil, fmt.Errorf("entity extraction: parse response: %w", err)
	}
	sanitizeExtraction(&ex)
	return &ex, nil
}

// sanitizeExtraction enforces the schema in place: empty names drop out,
// unrecognized entity types become unknown, unrecognized kinds become
// related_to and strengths clamp to [0, 1].
func sanitizeExtraction(ex *Extraction) {
	entities := ex.Entities[:0]
	for _, ent := range ex.Entities {
		ent.Name = strings.TrimSpace(ent.Name)
		if ent.Name == "" {
			continue
		}
		ent.Type = EntityType(strings.ToLower(strings.TrimSpace(string(ent.Type))))
		if !validEntityTypes[ent.Type] {
			ent.Type = EntityUnknown
		}
		entities = append(entities, ent)
	}
	ex.Entities = entities

	rels := ex.Relationships[:0]
	for _, rel := range ex.Relationships {
		rel.Source = strings.TrimSpace(rel.Source)
		rel.Target = strings.TrimSpace(rel.Target)
		if rel.Source == "" || rel.Target == "" {
			continue
		}
		rel.Kind = RelationKind(strings.ToLower(strings.TrimSpace(string(rel.Kind))))
		if !validKinds[rel.Kind] {
			rel.Kind = KindRelatedTo
		}
		if rel.Strength < 0 {
			rel.Strength = 0
		}
		if rel.Strength > 1 {
			rel.Strength = 1
		}
		rels = append(rels, rel)
	}
	ex.Relationships = rels
}
