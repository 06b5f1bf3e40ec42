package models

import "time"

// RFPDocument is an uploaded RFP with its extracted text.
// Maps to: rfp_document table
type RFPDocument struct {
	ID          string `db:"id" json:"id"`
	ProjectID   string `db:"project_id" json:"project_id"`
	Filename    string `db:"filename" json:"filename"`
	ContentType string `db:"content_type" json:"content_type"`

	// ExtractedText holds the normalized full text (direct or vision path).
	ExtractedText string `db:"extracted_text" json:"extracted_text"`
	PageCount     int    `db:"page_count" json:"page_count"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// HasText reports whether extraction produced usable text.
func (d *RFPDocument) HasText() bool {
	return len(d.ExtractedText) > 0
}
