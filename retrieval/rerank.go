package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/logger"
)

// RerankClient calls a cross-encoder rerank endpoint that follows the
// common {query, documents} → {results: [{index, relevance_score}]} shape.
type RerankClient struct {
	url    string
	apiKey string
	http   *http.Client
	log    *logger.Logger
}

// NewRerankClient wires the client. apiKey may be empty for unauthenticated
// deployments.
func NewRerankClient(url, apiKey string, log *logger.Logger) *RerankClient {
	return &RerankClient{
		url:    url,
		apiKey: apiKey,
		http:   &http.Client{Timeout: 30 * time.Second},
		log:    log,
	}
}

type rerankRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n,omitempty"`
}

type rerankResponse struct {
	Results []struct {
		Index int     `json:"index"`
		Score float64 `json:"relevance_score"`
	} `json:"results"`
}

// Rerank scores documents against the query. The returned map is document
// index → relevance score; documents the endpoint omits keep no entry.
func (c *RerankClient) Rerank(ctx context.Context, query string, documents []string) (map[int]float64, error) {
	payload, err := json.Marshal(rerankRequest{Query: query, Documents: documents, TopN: len(documents)})
	if err != nil {
		return nil, fmt.Errorf("failed to encode rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("rerank request failed: status=%d, body=%s", resp.StatusCode, string(body))
	}

	var decoded rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode rerank response: %w", err)
	}

	scores := make(map[int]float64, len(decoded.Results))
	for _, r := range decoded.Results {
		if r.Index >= 0 && r.Index < len(documents) {
			scores[r.Index] = r.Score
		}
	}
	return scores, nil
}
