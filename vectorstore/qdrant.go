package vectorstore

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/logger"
)

// Qdrant talks to a Qdrant server over its REST API. Qdrant only accepts
// UUID or integer point ids, so the caller's id is mapped to a deterministic
// UUID and kept in the payload under _id.
type Qdrant struct {
	rest       *restClient
	collection string
	log        *logger.Logger
}

// NewQdrant wires the REST client for one collection.
func NewQdrant(baseURL, collection string, log *logger.Logger) *Qdrant {
	return &Qdrant{
		rest:       newRESTClient(baseURL, nil, log),
		collection: collection,
		log:        log,
	}
}

type qdrantCollectionInfo struct {
	Result struct {
		Config struct {
			Params struct {
				Vectors struct {
					Size int `json:"size"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	} `json:"result"`
}

// EnsureCollection creates the collection when it does not exist.
func (q *Qdrant) EnsureCollection(ctx context.Context, dim int) error {
	existing, err := q.Dimension(ctx)
	if err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}

	body := map[string]any{
		"vectors": map[string]any{"size": dim, "distance": "Cosine"},
	}
	if err := q.rest.doJSON(ctx, http.MethodPut, "/collections/"+q.collection, body, nil); err != nil {
		return fmt.Errorf("failed to create qdrant collection %s: %w", q.collection, err)
	}
	return nil
}

// Upsert writes points and waits for them to be persisted.
func (q *Qdrant) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	qPoints := make([]map[string]any, 0, len(points))
	for _, p := range points {
		payload := map[string]any{"_id": p.ID, "_text": p.Text}
		for k, v := range p.Metadata {
			payload[k] = v
		}
		qPoints = append(qPoints, map[string]any{
			"id":      pointUUID(p.ID),
			"vector":  p.Vector,
			"payload": payload,
		})
	}

	body := map[string]any{"points": qPoints}
	path := fmt.Sprintf("/collections/%s/points?wait=true", q.collection)
	if err := q.rest.doJSON(ctx, http.MethodPut, path, body, nil); err != nil {
		return fmt.Errorf("failed to upsert qdrant points: %w", err)
	}
	return nil
}

type qdrantSearchResponse struct {
	Result []struct {
		Score   float64        `json:"score"`
		Payload map[string]any `json:"payload"`
	} `json:"result"`
}

// Query runs a cosine search. Qdrant reports cosine scores as similarity.
func (q *Qdrant) Query(ctx context.Context, vector []float32, topK int, filter Filter) ([]Match, error) {
	body := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	if cond := qdrantFilter(filter); cond != nil {
		body["filter"] = cond
	}

	var resp qdrantSearchResponse
	path := fmt.Sprintf("/collections/%s/points/search", q.collection)
	if err := q.rest.doJSON(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, fmt.Errorf("qdrant search failed: %w", err)
	}

	matches := make([]Match, 0, len(resp.Result))
	for _, r := range resp.Result {
		m := Match{Score: r.Score, Metadata: map[string]any{}}
		for k, v := range r.Payload {
			switch k {
			case "_id":
				m.ID, _ = v.(string)
			case "_text":
				m.Text, _ = v.(string)
			default:
				m.Metadata[k] = v
			}
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// DeleteByFilter removes every point matching the payload filter.
func (q *Qdrant) DeleteByFilter(ctx context.Context, filter Filter) error {
	if len(filter) == 0 {
		return fmt.Errorf("refusing to delete without a filter")
	}

	body := map[string]any{"filter": qdrantFilter(filter)}
	path := fmt.Sprintf("/collections/%s/points/delete?wait=true", q.collection)
	if err := q.rest.doJSON(ctx, http.MethodPost, path, body, nil); err != nil {
		return fmt.Errorf("failed to delete qdrant points: %w", err)
	}
	return nil
}

// Dimension reads the configured vector size, 0 when the collection is
// missing.
func (q *Qdrant) Dimension(ctx context.Context) (int, error) {
	var info qdrantCollectionInfo
	err := q.rest.doJSON(ctx, http.MethodGet, "/collections/"+q.collection, nil, &info)
	if err != nil {
		if isNotFound(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read qdrant collection: %w", err)
	}
	return info.Result.Config.Params.Vectors.Size, nil
}

// Recreate drops and recreates the collection.
func (q *Qdrant) Recreate(ctx context.Context, dim int) error {
	err := q.rest.doJSON(ctx, http.MethodDelete, "/collections/"+q.collection, nil, nil)
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to drop qdrant collection: %w", err)
	}
	q.log.Info("recreating vector collection", "collection", q.collection, "dimension", dim)
	return q.EnsureCollection(ctx, dim)
}

func qdrantFilter(filter Filter) map[string]any {
	if len(filter) == 0 {
		return nil
	}
	must := make([]map[string]any, 0, len(filter))
	for k, v := range filter {
		must = append(must, map[string]any{
			"key":   k,
			"match": map[string]any{"value": v},
		})
	}
	return map[string]any{"must": must}
}

func pointUUID(id string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(id)).String()
}
