package postgres

import (
	"context"
	"fmt"

	"github.com/survival-hub/course-survival-hub/internal/domain/equity"
)

// ══════════════════════════════════════════════════════════════════════════════
// EQUITY REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// EquityRepository implements equity.Repository for PostgreSQL.
type EquityRepository struct {
	conn *Connection
}

// NewEquityRepository creates a new EquityRepository.
func NewEquityRepository(conn *Connection) *EquityRepository {
	return &EquityRepository{conn: conn}
}

// HasData reports whether the institution has any equity-group
// observation at all.
func (r *EquityRepository) HasData(ctx context.Context, institutionID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM equity_rates WHERE institution_id = $1
		)
	`

	var has bool
	if err := r.conn.QueryRow(ctx, query, institutionID).Scan(&has); err != nil {
		return false, fmt.Errorf("failed to check equity data: %w", err)
	}
	return has, nil
}

// LatestYear returns the institution's most recent year with a present
// rate for one measure, across all groups. Zero means never published.
func (r *EquityRepository) LatestYear(ctx context.Context, institutionID int64, m equity.Measure) (int, error) {
	query := `
		SELECT COALESCE(MAX(year), 0)
		FROM equity_rates
		WHERE institution_id = $1 AND measure = $2
	`

	var year int
	if err := r.conn.QueryRow(ctx, query, institutionID, string(m)).Scan(&year); err != nil {
		return 0, fmt.Errorf("failed to get latest equity year: %w", err)
	}
	return year, nil
}

// RateAt returns the institution's rate for one (group, measure, year),
// or nil.
func (r *EquityRepository) RateAt(ctx context.Context, institutionID int64, g equity.Group, m equity.Measure, year int) (*equity.RateRecord, error) {
	query := `
		SELECT year, rate
		FROM equity_rates
		WHERE institution_id = $1 AND group_code = $2 AND measure = $3 AND year = $4
	`

	var rec equity.RateRecord
	err := r.conn.QueryRow(ctx, query, institutionID, string(g), string(m), year).Scan(&rec.Year, &rec.Rate)
	if err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get equity rate: %w", err)
	}

	return &rec, nil
}

// RatesForYear returns every institution's rate for one
// (year, group, measure), names attached.
func (r *EquityRepository) RatesForYear(ctx context.Context, year int, g equity.Group, m equity.Measure) ([]equity.InstitutionRate, error) {
	query := `
		SELECT e.institution_id, i.name, e.rate
		FROM equity_rates e
		JOIN institutions i ON i.id = e.institution_id
		WHERE e.year = $1 AND e.group_code = $2 AND e.measure = $3
	`

	rows, err := r.conn.Query(ctx, query, year, string(g), string(m))
	if err != nil {
		return nil, fmt.Errorf("failed to get equity rates for year: %w", err)
	}
	defer rows.Close()

	var out []equity.InstitutionRate
	for rows.Next() {
		var rec equity.InstitutionRate
		if err := rows.Scan(&rec.InstitutionID, &rec.InstitutionName, &rec.Rate); err != nil {
			return nil, fmt.Errorf("failed to scan equity rate: %w", err)
		}
		out = append(out, rec)
	}

	return out, rows.Err()
}

// RateHistory returns up to limit observations for one
// (institution, group, measure) series, most recent first.
func (r *EquityRepository) RateHistory(ctx context.Context, institutionID int64, g equity.Group, m equity.Measure, limit int) ([]equity.RateRecord, error) {
	query := `
		SELECT year, rate
		FROM equity_rates
		WHERE institution_id = $1 AND group_code = $2 AND measure = $3
		ORDER BY year DESC
		LIMIT $4
	`

	rows, err := r.conn.Query(ctx, query, institutionID, string(g), string(m), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get equity history: %w", err)
	}
	defer rows.Close()

	var out []equity.RateRecord
	for rows.Next() {
		var rec equity.RateRecord
		if err := rows.Scan(&rec.Year, &rec.Rate); err != nil {
			return nil, fmt.Errorf("failed to scan equity rate: %w", err)
		}
		out = append(out, rec)
	}

	return out, rows.Err()
}
