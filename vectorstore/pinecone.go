package vectorstore

import (
	"context"
	"fmt"
	"net/http"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/logger"
)

// Pinecone talks to a Pinecone index over its data-plane REST API. The index
// itself is provisioned out of band, so EnsureCollection only verifies the
// dimension and Recreate wipes the namespace rather than the index. The
// collection name becomes the namespace, and the source text rides along in
// metadata under _text.
type Pinecone struct {
	rest      *restClient
	namespace string
	log       *logger.Logger
}

// NewPinecone wires the REST client against the index host.
func NewPinecone(host, apiKey, namespace string, log *logger.Logger) *Pinecone {
	return &Pinecone{
		rest:      newRESTClient(host, map[string]string{"Api-Key": apiKey}, log),
		namespace: namespace,
		log:       log,
	}
}

type pineconeStats struct {
	Dimension int `json:"dimension"`
}

// EnsureCollection verifies the hosted index matches the wanted dimension.
func (p *Pinecone) EnsureCollection(ctx context.Context, dim int) error {
	existing, err := p.Dimension(ctx)
	if err != nil {
		return err
	}
	if existing != dim {
		return fmt.Errorf("pinecone index dimension is %d, want %d; recreate the index", existing, dim)
	}
	return nil
}

// Upsert writes vectors into the namespace.
func (p *Pinecone) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	vectors := make([]map[string]any, 0, len(points))
	for _, pt := range points {
		metadata := map[string]any{"_text": pt.Text}
		for k, v := range pt.Metadata {
			metadata[k] = v
		}
		vectors = append(vectors, map[string]any{
			"id":       pt.ID,
			"values":   pt.Vector,
			"metadata": metadata,
		})
	}

	body := map[string]any{"vectors": vectors, "namespace": p.namespace}
	if err := p.rest.doJSON(ctx, http.MethodPost, "/vectors/upsert", body, nil); err != nil {
		return fmt.Errorf("failed to upsert pinecone vectors: %w", err)
	}
	return nil
}

type pineconeQueryResponse struct {
	Matches []struct {
		ID       string         `json:"id"`
		Score    float64        `json:"score"`
		Metadata map[string]any `json:"metadata"`
	} `json:"matches"`
}

// Query runs a similarity search in the namespace.
func (p *Pinecone) Query(ctx context.Context, vector []float32, topK int, filter Filter) ([]Match, error) {
	body := map[string]any{
		"vector":          vector,
		"topK":            topK,
		"includeMetadata": true,
		"namespace":       p.namespace,
	}
	if cond := pineconeFilter(filter); cond != nil {
		body["filter"] = cond
	}

	var resp pineconeQueryResponse
	if err := p.rest.doJSON(ctx, http.MethodPost, "/query", body, &resp); err != nil {
		return nil, fmt.Errorf("pinecone query failed: %w", err)
	}

	matches := make([]Match, 0, len(resp.Matches))
	for _, r := range resp.Matches {
		m := Match{ID: r.ID, Score: r.Score, Metadata: map[string]any{}}
		for k, v := range r.Metadata {
			if k == "_text" {
				m.Text, _ = v.(string)
				continue
			}
			m.Metadata[k] = v
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// DeleteByFilter removes vectors matching the metadata filter.
func (p *Pinecone) DeleteByFilter(ctx context.Context, filter Filter) error {
	if len(filter) == 0 {
		return fmt.Errorf("refusing to delete without a filter")
	}

	body := map[string]any{"filter": pineconeFilter(filter), "namespace": p.namespace}
	if err := p.rest.doJSON(ctx, http.MethodPost, "/vectors/delete", body, nil); err != nil {
		return fmt.Errorf("failed to delete pinecone vectors: %w", err)
	}
	return nil
}

// Dimension reads the index dimension from the stats endpoint.
func (p *Pinecone) Dimension(ctx context.Context) (int, error) {
	var stats pineconeStats
	if err := p.rest.doJSON(ctx, http.MethodPost, "/describe_index_stats", map[string]any{}, &stats); err != nil {
		return 0, fmt.Errorf("failed to read pinecone index stats: %w", err)
	}
	return stats.Dimension, nil
}

// Recreate wipes the namespace and re-verifies the dimension. Changing the
// dimension of a hosted index is not possible from here.
func (p *Pinecone) Recreate(ctx context.Context, dim int) error {
	body := map[string]any{"deleteAll": true, "namespace": p.namespace}
	err := p.rest.doJSON(ctx, http.MethodPost, "/vectors/delete", body, nil)
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to clear pinecone namespace: %w", err)
	}
	p.log.Info("cleared vector namespace", "namespace", p.namespace, "dimension", dim)
	return p.EnsureCollection(ctx, dim)
}

func pineconeFilter(filter Filter) map[string]any {
	if len(filter) == 0 {
		return nil
	}
	cond := make(map[string]any, len(filter))
	for k, v := range filter {
		cond[k] = map[string]any{"$eq": v}
	}
	return cond
}
