package repository

import (
	"context"
	"fmt"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/db"
)

// schema provisions the record tables. Vector collections are managed by
// the vectorstore package, not here.
const schema = `
CREATE TABLE IF NOT EXISTS project (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL DEFAULT '',
	industry         TEXT NOT NULL DEFAULT '',
	battle_cards     JSONB NOT NULL DEFAULT '[]',
	proposal_outline JSONB NOT NULL DEFAULT '[]',
	outline_approved BOOLEAN,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS rfp_document (
	id             TEXT PRIMARY KEY,
	project_id     TEXT NOT NULL,
	filename       TEXT NOT NULL DEFAULT '',
	content_type   TEXT NOT NULL DEFAULT '',
	extracted_text TEXT NOT NULL DEFAULT '',
	page_count     INTEGER NOT NULL DEFAULT 0,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS rfp_document_project_idx ON rfp_document (project_id);

CREATE TABLE IF NOT EXISTS insights (
	project_id            TEXT PRIMARY KEY,
	rfp_document_id       TEXT NOT NULL,
	summary               TEXT NOT NULL DEFAULT '',
	context_overview      TEXT NOT NULL DEFAULT '',
	project_scope         TEXT NOT NULL DEFAULT '',
	business_objectives   JSONB NOT NULL DEFAULT '[]',
	challenges            JSONB NOT NULL DEFAULT '[]',
	discovery_questions   JSONB NOT NULL DEFAULT '{}',
	value_propositions    JSONB NOT NULL DEFAULT '[]',
	matching_case_studies JSONB NOT NULL DEFAULT '[]',
	competitors           JSONB NOT NULL DEFAULT '[]',
	proposal_draft        JSONB NOT NULL DEFAULT '{}',
	critic_score          DOUBLE PRECISION NOT NULL DEFAULT 0,
	model                 TEXT NOT NULL DEFAULT '',
	updated_at            TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS proposal (
	id              TEXT PRIMARY KEY,
	project_id      TEXT NOT NULL UNIQUE,
	rfp_document_id TEXT NOT NULL,
	sections        JSONB NOT NULL DEFAULT '[]',
	critic_score    DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS case_study (
	id                  TEXT PRIMARY KEY,
	title               TEXT NOT NULL DEFAULT '',
	industry            TEXT NOT NULL DEFAULT '',
	description         TEXT NOT NULL DEFAULT '',
	project_description TEXT NOT NULL DEFAULT '',
	impact              TEXT NOT NULL DEFAULT '',
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS case_study_industry_idx ON case_study (lower(industry));

CREATE TABLE IF NOT EXISTS run_trace (
	state_id   TEXT NOT NULL,
	seq        INTEGER NOT NULL,
	node       TEXT NOT NULL,
	patch      JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (state_id, seq)
);
`

// EnsureSchema creates the record tables when they do not exist. Idempotent;
// the service runs it once at startup.
func EnsureSchema(ctx context.Context, database *db.DB) error {
	if _, err := database.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}
