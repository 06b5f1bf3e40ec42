package vectorstore

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/logger"
)

// Chroma talks to a Chroma server over its v1 REST API. Chroma addresses
// point operations by collection UUID, so the id is resolved once and
// cached. The embedding dimension is recorded in collection metadata since
// Chroma does not expose it otherwise.
type Chroma struct {
	rest *restClient
	name string
	log  *logger.Logger

	mu sync.Mutex
	id string
}

// NewChroma wires the REST client for one named collection.
func NewChroma(baseURL, collection string, log *logger.Logger) *Chroma {
	return &Chroma{
		rest: newRESTClient(baseURL, nil, log),
		name: collection,
		log:  log,
	}
}

type chromaCollection struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Metadata map[string]any `json:"metadata"`
}

// EnsureCollection creates or fetches the collection.
func (c *Chroma) EnsureCollection(ctx context.Context, dim int) error {
	body := map[string]any{
		"name":          c.name,
		"get_or_create": true,
		"metadata": map[string]any{
			"hnsw:space": "cosine",
			"dimension":  dim,
		},
	}

	var coll chromaCollection
	if err := c.rest.doJSON(ctx, http.MethodPost, "/api/v1/collections", body, &coll); err != nil {
		return fmt.Errorf("failed to ensure chroma collection %s: %w", c.name, err)
	}

	c.mu.Lock()
	c.id = coll.ID
	c.mu.Unlock()
	return nil
}

// Upsert writes points, replacing entries that share an id.
func (c *Chroma) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	id, err := c.collectionID(ctx)
	if err != nil {
		return err
	}

	ids := make([]string, len(points))
	embeddings := make([][]float32, len(points))
	metadatas := make([]map[string]any, len(points))
	documents := make([]string, len(points))
	for i, p := range points {
		ids[i] = p.ID
		embeddings[i] = p.Vector
		metadatas[i] = p.Metadata
		documents[i] = p.Text
	}

	body := map[string]any{
		"ids":        ids,
		"embeddings": embeddings,
		"metadatas":  metadatas,
		"documents":  documents,
	}
	path := fmt.Sprintf("/api/v1/collections/%s/upsert", id)
	if err := c.rest.doJSON(ctx, http.MethodPost, path, body, nil); err != nil {
		return fmt.Errorf("failed to upsert chroma points: %w", err)
	}
	return nil
}

type chromaQueryResponse struct {
	IDs       [][]string         `json:"ids"`
	Distances [][]float64        `json:"distances"`
	Metadatas [][]map[string]any `json:"metadatas"`
	Documents [][]string         `json:"documents"`
}

// Query runs a cosine search. Chroma reports cosine distance, so the score
// is 1 - distance.
func (c *Chroma) Query(ctx context.Context, vector []float32, topK int, filter Filter) ([]Match, error) {
	id, err := c.collectionID(ctx)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"query_embeddings": [][]float32{vector},
		"n_results":        topK,
		"include":          []string{"metadatas", "documents", "distances"},
	}
	if where := chromaWhere(filter); where != nil {
		body["where"] = where
	}

	var resp chromaQueryResponse
	path := fmt.Sprintf("/api/v1/collections/%s/query", id)
	if err := c.rest.doJSON(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, fmt.Errorf("chroma query failed: %w", err)
	}
	if len(resp.IDs) == 0 {
		return nil, nil
	}

	matches := make([]Match, 0, len(resp.IDs[0]))
	for i, matchID := range resp.IDs[0] {
		m := Match{ID: matchID}
		if len(resp.Distances) > 0 && i < len(resp.Distances[0]) {
			m.Score = 1 - resp.Distances[0][i]
		}
		if len(resp.Metadatas) > 0 && i < len(resp.Metadatas[0]) {
			m.Metadata = resp.Metadatas[0][i]
		}
		if len(resp.Documents) > 0 && i < len(resp.Documents[0]) {
			m.Text = resp.Documents[0][i]
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// DeleteByFilter removes every point matching the where clause.
func (c *Chroma) DeleteByFilter(ctx context.Context, filter Filter) error {
	if len(filter) == 0 {
		return fmt.Errorf("refusing to delete without a filter")
	}

	id, err := c.collectionID(ctx)
	if err != nil {
		return err
	}

	body := map[string]any{"where": chromaWhere(filter)}
	path := fmt.Sprintf("/api/v1/collections/%s/delete", id)
	if err := c.rest.doJSON(ctx, http.MethodPost, path, body, nil); err != nil {
		return fmt.Errorf("failed to delete chroma points: %w", err)
	}
	return nil
}

// Dimension reads the dimension recorded in collection metadata, 0 when the
// collection is missing.
func (c *Chroma) Dimension(ctx context.Context) (int, error) {
	var coll chromaCollection
	err := c.rest.doJSON(ctx, http.MethodGet, "/api/v1/collections/"+c.name, nil, &coll)
	if err != nil {
		if isNotFound(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read chroma collection: %w", err)
	}

	if dim, ok := coll.Metadata["dimension"].(float64); ok {
		return int(dim), nil
	}
	return 0, nil
}

// Recreate drops and recreates the collection.
func (c *Chroma) Recreate(ctx context.Context, dim int) error {
	err := c.rest.doJSON(ctx, http.MethodDelete, "/api/v1/collections/"+c.name, nil, nil)
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to drop chroma collection: %w", err)
	}

	c.mu.Lock()
	c.id = ""
	c.mu.Unlock()

	c.log.Info("recreating vector collection", "collection", c.name, "dimension", dim)
	return c.EnsureCollection(ctx, dim)
}

func (c *Chroma) collectionID(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.id != "" {
		return c.id, nil
	}

	var coll chromaCollection
	if err := c.rest.doJSON(ctx, http.MethodGet, "/api/v1/collections/"+c.name, nil, &coll); err != nil {
		return "", fmt.Errorf("chroma collection %s not found: %w", c.name, err)
	}
	c.id = coll.ID
	return c.id, nil
}

// chromaWhere builds the where clause. Chroma needs $and once there is more
// than one condition.
func chromaWhere(filter Filter) map[string]any {
	switch len(filter) {
	case 0:
		return nil
	case 1:
		for k, v := range filter {
			return map[string]any{k: v}
		}
		return nil
	default:
		conds := make([]map[string]any, 0, len(filter))
		for k, v := range filter {
			conds = append(conds, map[string]any{k: v})
		}
		return map[string]any{"$and": conds}
	}
}
