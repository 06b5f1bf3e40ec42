// Package retrieval owns the index and query paths between documents and
// the vector store.
package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/logger"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/metrics"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/document"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/vectorstore"
)

// Embedder is the slice of the embedding service retrieval needs.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Dimension(ctx context.Context) (int, error)
}

// Indexer builds the vector index for one document. Builds are idempotent
// per (project, document): prior vectors under that filter are deleted
// before the new set is written.
type Indexer struct {
	chunker  document.Chunker
	embedder Embedder
	store    vectorstore.Store
	log      *logger.Logger
	metrics  *metrics.Metrics
}

// NewIndexer wires the index path.
func NewIndexer(chunker document.Chunker, embedder Embedder, store vectorstore.Store, log *logger.Logger, m *metrics.Metrics) *Indexer {
	return &Indexer{chunker: chunker, embedder: embedder, store: store, log: log, metrics: m}
}

// BuildIndex chunks, embeds and upserts the document text, returning the
// number of chunks written. Embedding happens before the old vectors are
// deleted so a failed build never destroys a working index.
func (ix *Indexer) BuildIndex(ctx context.Context, projectID, rfpDocumentID, text string) (int, error) {
	filter := vectorstore.Filter{
		"project_id":      projectID,
		"rfp_document_id": rfpDocumentID,
	}

	chunks, err := ix.chunker.Chunk(ctx, text)
	if err != nil {
		return 0, fmt.Errorf("chunking failed: %w", err)
	}
	if len(chunks) == 0 {
		if err := ix.store.DeleteByFilter(ctx, filter); err != nil {
			return 0, err
		}
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := ix.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return 0, err
	}

	dim, err := ix.embedder.Dimension(ctx)
	if err != nil {
		return 0, err
	}
	if err := ensureDimension(ctx, ix.store, dim, ix.log); err != nil {
		return 0, err
	}

	if err := ix.store.DeleteByFilter(ctx, filter); err != nil {
		return 0, err
	}

	points := make([]vectorstore.Point, 0, len(chunks))
	var lastParentID string
	for i, c := range chunks {
		id := chunkID(projectID, rfpDocumentID, c.Level, c.Text)

		metadata := map[string]any{
			"project_id":      projectID,
			"rfp_document_id": rfpDocumentID,
			"chunk_index":     strconv.Itoa(c.Index),
		}
		if c.Section != "" {
			metadata["section"] = c.Section
		}
		switch c.Level {
		case document.LevelParent:
			metadata["chunk_level"] = c.Level
			lastParentID = id
		case document.LevelChild:
			metadata["chunk_level"] = c.Level
			if lastParentID != "" {
				metadata["parent_id"] = lastParentID
			}
		}

		points = append(points, vectorstore.Point{
			ID:       id,
			Vector:   vectors[i],
			Text:     c.Text,
			Metadata: metadata,
		})
	}

	if err := ix.store.Upsert(ctx, points); err != nil {
		return 0, err
	}

	if ix.metrics != nil {
		ix.metrics.ChunksIndexed.Add(float64(len(points)))
	}
	ix.log.Info("index built",
		"project_id", projectID,
		"rfp_document_id", rfpDocumentID,
		"chunks", len(points))
	return len(points), nil
}

// ensureDimension creates the collection on first use and recreates it when
// the stored width no longer matches the embedder. Recreation loses data;
// silently inserting wrong-sized vectors would be worse.
func ensureDimension(ctx context.Context, store vectorstore.Store, dim int, log *logger.Logger) error {
	stored, err := store.Dimension(ctx)
	if err != nil {
		return err
	}
	switch {
	case stored == 0:
		return store.EnsureCollection(ctx, dim)
	case stored != dim:
		log.Warn("vector dimension mismatch, recreating collection", "stored", stored, "want", dim)
		return store.Recreate(ctx, dim)
	default:
		return nil
	}
}

// chunkID derives a stable identifier from the chunk's owner and content.
func chunkID(projectID, rfpDocumentID, level, text string) string {
	h := sha256.New()
	for _, part := range []string{projectID, rfpDocumentID, level, text} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
