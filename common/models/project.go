package models

import "time"

// Project groups documents, insights and proposals for one pursuit.
// Maps to: project table
type Project struct {
	ID       string `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Industry string `db:"industry" json:"industry"`

	BattleCards     []BattleCard     `db:"battle_cards" json:"battle_cards,omitempty"`
	ProposalOutline []OutlineSection `db:"proposal_outline" json:"proposal_outline,omitempty"`
	OutlineApproved *bool            `db:"outline_approved" json:"outline_approved,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
