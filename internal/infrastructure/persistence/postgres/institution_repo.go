package postgres

import (
	"context"
	"fmt"

	"github.com/survival-hub/course-survival-hub/internal/domain/institution"
	"github.com/survival-hub/course-survival-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// INSTITUTION REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// InstitutionRepository implements institution.Repository for PostgreSQL.
type InstitutionRepository struct {
	conn *Connection
}

// NewInstitutionRepository creates a new InstitutionRepository.
func NewInstitutionRepository(conn *Connection) *InstitutionRepository {
	return &InstitutionRepository{conn: conn}
}

// GetInstitution returns the institution with the given id.
func (r *InstitutionRepository) GetInstitution(ctx context.Context, id int64) (*institution.Institution, error) {
	query := `
		SELECT id, name, state, provider_type
		FROM institutions
		WHERE id = $1
	`

	var inst institution.Institution
	err := r.conn.QueryRow(ctx, query, id).Scan(&inst.ID, &inst.Name, &inst.State, &inst.ProviderType)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get institution %d: %w", id, err)
	}

	return &inst, nil
}

// GetField returns the field of education with the given id.
func (r *InstitutionRepository) GetField(ctx context.Context, id int64) (*institution.FieldOfEducation, error) {
	query := `
		SELECT id, name
		FROM fields_of_education
		WHERE id = $1
	`

	var field institution.FieldOfEducation
	err := r.conn.QueryRow(ctx, query, id).Scan(&field.ID, &field.Name)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get field %d: %w", id, err)
	}

	return &field, nil
}

// ListInstitutionsWithAttrition returns institutions holding at least
// one domestic attrition observation, ordered by name.
func (r *InstitutionRepository) ListInstitutionsWithAttrition(ctx context.Context) ([]institution.Institution, error) {
	query := `
		SELECT DISTINCT i.id, i.name, i.state, i.provider_type
		FROM institutions i
		JOIN rate_observations o ON o.institution_id = i.id
		WHERE o.student_type = 'domestic' AND o.measure = 'attrition'
		ORDER BY i.name
	`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list institutions: %w", err)
	}
	defer rows.Close()

	var out []institution.Institution
	for rows.Next() {
		var inst institution.Institution
		if err := rows.Scan(&inst.ID, &inst.Name, &inst.State, &inst.ProviderType); err != nil {
			return nil, fmt.Errorf("failed to scan institution: %w", err)
		}
		out = append(out, inst)
	}

	return out, rows.Err()
}

// ListFields returns all broad fields of education ordered by name.
func (r *InstitutionRepository) ListFields(ctx context.Context) ([]institution.FieldOfEducation, error) {
	query := `
		SELECT id, name
		FROM fields_of_education
		ORDER BY name
	`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list fields: %w", err)
	}
	defer rows.Close()

	var out []institution.FieldOfEducation
	for rows.Next() {
		var field institution.FieldOfEducation
		if err := rows.Scan(&field.ID, &field.Name); err != nil {
			return nil, fmt.Errorf("failed to scan field: %w", err)
		}
		out = append(out, field)
	}

	return out, rows.Err()
}
