package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBatchSizes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		items    int
		maxBatch int
		want     []int
	}{
		{"exact multiple", 10, 5, []int{5, 5}},
		{"remainder", 65, 30, []int{30, 30, 5}},
		{"single small batch", 3, 30, []int{3}},
		{"default bound", 31, 0, []int{30, 1}},
		{"nothing to do", 0, 30, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, BatchSizes(tc.items, tc.maxBatch))
		})
	}
}

func TestUnitClassifier(t *testing.T) {
	t.Parallel()

	c := NewUnitClassifier([]string{"Legal", "Tax "}, []string{"neurosurgery", "legal"})

	assert.Equal(t, UnitClassStandard, c.Classify("Fitness"))
	assert.Equal(t, UnitClassDifficult, c.Classify("tax"))
	assert.Equal(t, UnitClassSpecialist, c.Classify("Neurosurgery"))
	assert.Equal(t, UnitClassSpecialist, c.Classify("LEGAL"), "specialist wins over difficult")

	assert.Equal(t, Tier1, UnitClassStandard.StartTier())
	assert.Equal(t, Tier2, UnitClassDifficult.StartTier())
	assert.Equal(t, Tier3, UnitClassSpecialist.StartTier())
}

func TestTiersFrom(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []Tier{Tier1, Tier2, Tier3}, TiersFrom(Tier1))
	assert.Equal(t, []Tier{Tier2, Tier3}, TiersFrom(Tier2))
	assert.Equal(t, []Tier{Tier3}, TiersFrom(Tier3))
	assert.Equal(t, "tier-2", Tier2.String())
}
