package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/db"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/models"
)

// CaseStudyRepository handles database operations for the case study corpus.
type CaseStudyRepository struct {
	db *db.DB
}

// NewCaseStudyRepository creates a new case study repository.
func NewCaseStudyRepository(database *db.DB) *CaseStudyRepository {
	return &CaseStudyRepository{db: database}
}

// Upsert inserts or replaces a case study.
func (r *CaseStudyRepository) Upsert(ctx context.Context, cs *models.CaseStudy) error {
	if cs.ID == "" {
		cs.ID = uuid.NewString()
	}

	query := `
		INSERT INTO case_study (id, title, industry, description, project_description, impact)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			industry = EXCLUDED.industry,
			description = EXCLUDED.description,
			project_description = EXCLUDED.project_description,
			impact = EXCLUDED.impact
	`

	_, err := r.db.Exec(ctx, query,
		cs.ID,
		cs.Title,
		cs.Industry,
		cs.Description,
		cs.ProjectDescription,
		cs.Impact,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert case study: %w", err)
	}
	return nil
}

// GetByID retrieves a case study.
func (r *CaseStudyRepository) GetByID(ctx context.Context, id string) (*models.CaseStudy, error) {
	query := `
		SELECT id, title, industry, description, project_description, impact
		FROM case_study
		WHERE id = $1
	`

	cs := &models.CaseStudy{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&cs.ID,
		&cs.Title,
		&cs.Industry,
		&cs.Description,
		&cs.ProjectDescription,
		&cs.Impact,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: case study %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get case study: %w", err)
	}
	return cs, nil
}

// ListCaseStudies returns the whole corpus. Implements the knowledge graph
// load source.
func (r *CaseStudyRepository) ListCaseStudies(ctx context.Context) ([]models.CaseStudy, error) {
	query := `
		SELECT id, title, industry, description, project_description, impact
		FROM case_study
		ORDER BY created_at
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list case studies: %w", err)
	}
	defer rows.Close()

	return scanCaseStudies(rows)
}

// ListByIndustry returns case studies whose industry matches, newest first.
func (r *CaseStudyRepository) ListByIndustry(ctx context.Context, industry string, limit int) ([]models.CaseStudy, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT id, title, industry, description, project_description, impact
		FROM case_study
		WHERE lower(industry) = lower($1)
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, industry, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list case studies by industry: %w", err)
	}
	defer rows.Close()

	return scanCaseStudies(rows)
}

func scanCaseStudies(rows pgx.Rows) ([]models.CaseStudy, error) {
	var studies []models.CaseStudy
	for rows.Next() {
		var cs models.CaseStudy
		err := rows.Scan(
			&cs.ID,
			&cs.Title,
			&cs.Industry,
			&cs.Description,
			&cs.ProjectDescription,
			&cs.Impact,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan case study: %w", err)
		}
		studies = append(studies, cs)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating case studies: %w", err)
	}
	return studies, nil
}
