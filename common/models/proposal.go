package models

import (
	"sort"
	"time"
)

// ProposalSection is one rendered section of the final document.
type ProposalSection struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Order    int    `json:"order"`
	Required bool   `json:"required"`
}

// Proposal is the assembled document for a project.
// Maps to: proposal table
type Proposal struct {
	ID            string            `db:"id" json:"id"`
	ProjectID     string            `db:"project_id" json:"project_id"`
	RFPDocumentID string            `db:"rfp_document_id" json:"rfp_document_id"`
	Sections      []ProposalSection `db:"sections" json:"sections"`
	CriticScore   float64           `db:"critic_score" json:"critic_score"`
	CreatedAt     time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time         `db:"updated_at" json:"updated_at"`
}

// OrderedSections returns the sections sorted by Order. The slice is a copy.
func (p *Proposal) OrderedSections() []ProposalSection {
	out := make([]ProposalSection, len(p.Sections))
	copy(out, p.Sections)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}
