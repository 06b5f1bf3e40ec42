package vectorstore

import (
	"context"
	"fmt"
	"math"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/config"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/db"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/logger"
)

// Point is a vector with its source text and metadata.
type Point struct {
	ID       string
	Vector   []float32
	Text     string
	Metadata map[string]any
}

// Match is a query result. Score is cosine similarity, higher is better.
type Match struct {
	ID       string
	Score    float64
	Text     string
	Metadata map[string]any
}

// Filter is a conjunction of metadata equality conditions.
type Filter map[string]string

// Store is the backend-neutral vector index. Dimension returns 0 with a nil
// error when the collection does not exist yet.
type Store interface {
	EnsureCollection(ctx context.Context, dim int) error
	Upsert(ctx context.Context, points []Point) error
	Query(ctx context.Context, vector []float32, topK int, filter Filter) ([]Match, error)
	DeleteByFilter(ctx context.Context, filter Filter) error
	Dimension(ctx context.Context) (int, error)
	Recreate(ctx context.Context, dim int) error
}

// New builds the configured backend.
func New(cfg config.VectorConfig, database *db.DB, log *logger.Logger) (Store, error) {
	switch cfg.Backend {
	case "pgvector":
		if database == nil {
			return nil, fmt.Errorf("pgvector backend requires a database connection")
		}
		return NewPGStore(database, cfg.Collection, log)
	case "qdrant":
		return NewQdrant(cfg.QdrantURL, cfg.Collection, log), nil
	case "chroma":
		return NewChroma(cfg.ChromaURL, cfg.Collection, log), nil
	case "pinecone":
		if cfg.PineconeHost == "" || cfg.PineconeKey == "" {
			return nil, fmt.Errorf("pinecone backend requires host and api key")
		}
		return NewPinecone(cfg.PineconeHost, cfg.PineconeKey, cfg.Collection, log), nil
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown vector backend: %s", cfg.Backend)
	}
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched or zero-length inputs score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
