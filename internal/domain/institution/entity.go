// Package institution contains the institution and field-of-education
// domain model shared by every report engine.
package institution

import (
	"strings"
	"unicode"
)

// Institution is a higher-education provider as recorded by the
// statistics collection. Read-only: the ETL pipeline owns the rows.
type Institution struct {
	// ID is the internal institution identifier.
	ID int64

	// Name is the official provider name.
	Name string

	// State is the state/territory code (may be empty).
	State string

	// ProviderType distinguishes universities from other providers.
	ProviderType string
}

// FieldOfEducation is a broad field in the fixed ASCED-like taxonomy.
type FieldOfEducation struct {
	ID   int64
	Name string
}

// ══════════════════════════════════════════════════════════════════════════════
// NOISE-NAME FILTER
// ══════════════════════════════════════════════════════════════════════════════

// NamePolicy decides which institution names take part in national
// averages, percentiles, and rankings. Source spreadsheets carry
// aggregate and note rows ("Total universities", numbered footnotes)
// alongside real providers; those must never dilute a population.
//
// The policy is configuration, not code: tokens and the length floor
// track the source data and are injected once, then reused by every
// engine instead of being re-stated per query.
type NamePolicy struct {
	// NoiseTokens are substrings that mark a name as an aggregate row.
	NoiseTokens []string

	// MinLength is the minimum length of a plausible provider name.
	MinLength int
}

// DefaultNamePolicy matches the national statistics collection as
// published: "Total" and "Provider" aggregate rows, footnote stubs
// shorter than five characters, and purely numeric note markers.
func DefaultNamePolicy() NamePolicy {
	return NamePolicy{
		NoiseTokens: []string{"Total", "Provider"},
		MinLength:   5,
	}
}

// IsReportable reports whether name belongs to a real provider that may
// participate in cross-institution statistics.
func (p NamePolicy) IsReportable(name string) bool {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return false
	}
	if len(trimmed) < p.MinLength {
		return false
	}
	for _, tok := range p.NoiseTokens {
		if strings.Contains(trimmed, tok) {
			return false
		}
	}
	// Note rows are numbered ("1.", "23"), so a leading digit is never a
	// provider name.
	r := []rune(trimmed)[0]
	return !unicode.IsDigit(r)
}
