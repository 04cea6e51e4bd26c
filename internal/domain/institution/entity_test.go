package institution

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNamePolicy_IsReportable(t *testing.T) {
	p := DefaultNamePolicy()

	cases := []struct {
		name string
		want bool
	}{
		{"University of Sydney", true},
		{"Monash University", true},
		{"Total universities", false},
		{"Non-University Higher Education Provider", false},
		{"UNE", false},        // below length floor
		{"1.", false},         // numeric note marker
		{"3 Providers", false},
		{"  ", false},
		{"2nd Chance College", false}, // leading digit still excluded
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, p.IsReportable(tc.name), "name %q", tc.name)
	}
}

func TestNamePolicy_CustomTokens(t *testing.T) {
	p := NamePolicy{NoiseTokens: []string{"Aggregate"}, MinLength: 3}
	assert.True(t, p.IsReportable("Total College"))
	assert.False(t, p.IsReportable("Sector Aggregate"))
}

func TestNamePolicy_EmptyNameWithZeroFloor(t *testing.T) {
	// A zero length floor must not let blank names through.
	p := NamePolicy{MinLength: 0}
	assert.False(t, p.IsReportable(""))
	assert.False(t, p.IsReportable("   "))
}
