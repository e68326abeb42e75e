package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampImportance(t *testing.T) {
	cases := []struct {
		in, want int
	}{
		{-3, 1},
		{0, 1},
		{1, 1},
		{3, 3},
		{5, 5},
		{9, 5},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ClampImportance(c.in), "ClampImportance(%d)", c.in)
	}
}

func TestNormalizeType(t *testing.T) {
	assert.Equal(t, TypePreference, NormalizeType("preference"))
	// Free-form labels pass through, lowercased.
	assert.Equal(t, "biographical", NormalizeType("Biographical"))
	assert.Equal(t, "project", NormalizeType("  project "))
	assert.Equal(t, TypeFact, NormalizeType(""))
	assert.Equal(t, TypeFact, NormalizeType("   "))
}
