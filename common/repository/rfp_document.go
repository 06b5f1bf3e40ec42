package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/db"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/models"
)

// RFPDocumentRepository handles database operations for RFP documents.
type RFPDocumentRepository struct {
	db *db.DB
}

// NewRFPDocumentRepository creates a new RFP document repository.
func NewRFPDocumentRepository(database *db.DB) *RFPDocumentRepository {
	return &RFPDocumentRepository{db: database}
}

// Upsert inserts or replaces a document record.
func (r *RFPDocumentRepository) Upsert(ctx context.Context, doc *models.RFPDocument) error {
	query := `
		INSERT INTO rfp_document (id, project_id, filename, content_type, extracted_text, page_count)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			project_id = EXCLUDED.project_id,
			filename = EXCLUDED.filename,
			content_type = EXCLUDED.content_type,
			extracted_text = EXCLUDED.extracted_text,
			page_count = EXCLUDED.page_count,
			updated_at = now()
	`

	_, err := r.db.Exec(ctx, query,
		doc.ID,
		doc.ProjectID,
		doc.Filename,
		doc.ContentType,
		doc.ExtractedText,
		doc.PageCount,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert rfp document: %w", err)
	}
	return nil
}

// GetByID retrieves a document by its ID.
func (r *RFPDocumentRepository) GetByID(ctx context.Context, id string) (*models.RFPDocument, error) {
	query := `
		SELECT id, project_id, filename, content_type, extracted_text, page_count, created_at, updated_at
		FROM rfp_document
		WHERE id = $1
	`

	doc := &models.RFPDocument{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&doc.ID,
		&doc.ProjectID,
		&doc.Filename,
		&doc.ContentType,
		&doc.ExtractedText,
		&doc.PageCount,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: rfp document %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rfp document: %w", err)
	}
	return doc, nil
}

// RFPText returns the extracted text for a document owned by the project.
// Implements the workflow document source.
func (r *RFPDocumentRepository) RFPText(ctx context.Context, projectID, rfpDocumentID string) (string, error) {
	query := `
		SELECT extracted_text
		FROM rfp_document
		WHERE id = $1 AND project_id = $2
	`

	var text string
	err := r.db.QueryRow(ctx, query, rfpDocumentID, projectID).Scan(&text)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%w: rfp document %s for project %s", ErrNotFound, rfpDocumentID, projectID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to load rfp text: %w", err)
	}
	return text, nil
}

// UpdateExtractedText replaces the document text after (re-)extraction.
func (r *RFPDocumentRepository) UpdateExtractedText(ctx context.Context, id, text string, pageCount int) error {
	query := `
		UPDATE rfp_document
		SET extracted_text = $2, page_count = $3, updated_at = now()
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, id, text, pageCount)
	if err != nil {
		return fmt.Errorf("failed to update extracted text: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: rfp document %s", ErrNotFound, id)
	}
	return nil
}

// ListByProject retrieves all documents of a project, newest first.
func (r *RFPDocumentRepository) ListByProject(ctx context.Context, projectID string) ([]*models.RFPDocument, error) {
	query := `
		SELECT id, project_id, filename, content_type, extracted_text, page_count, created_at, updated_at
		FROM rfp_document
		WHERE project_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rfp documents: %w", err)
	}
	defer rows.Close()

	var docs []*models.RFPDocument
	for rows.Next() {
		doc := &models.RFPDocument{}
		err := rows.Scan(
			&doc.ID,
			&doc.ProjectID,
			&doc.Filename,
			&doc.ContentType,
			&doc.ExtractedText,
			&doc.PageCount,
			&doc.CreatedAt,
			&doc.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rfp document: %w", err)
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rfp documents: %w", err)
	}
	return docs, nil
}
