package domain

import "strings"

// UnitClass is the static difficulty classification of a unit. It decides
// which capability tier generation starts at.
type UnitClass int

// Unit classes, in order of increasing difficulty
const (
	UnitClassStandard UnitClass = iota
	UnitClassDifficult
	UnitClassSpecialist
)

// String returns the name of the class.
func (c UnitClass) String() string {
	switch c {
	case UnitClassDifficult:
		return "difficult"
	case UnitClassSpecialist:
		return "specialist"
	default:
		return "standard"
	}
}

// StartTier returns the first tier generation should try for the class.
func (c UnitClass) StartTier() Tier {
	switch c {
	case UnitClassDifficult:
		return Tier2
	case UnitClassSpecialist:
		return Tier3
	default:
		return Tier1
	}
}

// UnitClassifier maps unit identifiers to classes using fixed lists.
// Matching is case-insensitive. A unit listed as both is specialist.
type UnitClassifier struct {
	difficult  map[string]struct{}
	specialist map[string]struct{}
}

// NewUnitClassifier builds a classifier from the configured unit lists.
func NewUnitClassifier(difficult, specialist []string) UnitClassifier {
	return UnitClassifier{
		difficult:  toKeySet(difficult),
		specialist: toKeySet(specialist),
	}
}

// Classify returns the class of unit.
func (c UnitClassifier) Classify(unit string) UnitClass {
	key := unitKey(unit)
	if _, ok := c.specialist[key]; ok {
		return UnitClassSpecialist
	}
	if _, ok := c.difficult[key]; ok {
		return UnitClassDifficult
	}
	return UnitClassStandard
}

func toKeySet(units []string) map[string]struct{} {
	set := make(map[string]struct{}, len(units))
	for _, u := range units {
		if k := unitKey(u); k != "" {
			set[k] = struct{}{}
		}
	}
	return set
}

func unitKey(unit string) string {
	return strings.ToLower(strings.TrimSpace(unit))
}

// BatchSizes splits a unit's target count into batches of at most maxBatch
// items. The number of batches is ceil(itemsPerUnit / maxBatch); every batch
// is full except possibly the last.
func BatchSizes(itemsPerUnit, maxBatch int) []int {
	if itemsPerUnit <= 0 {
		return nil
	}
	if maxBatch <= 0 {
		maxBatch = DefaultMaxBatchSize
	}

	count := (itemsPerUnit + maxBatch - 1) / maxBatch
	sizes := make([]int, count)
	remaining := itemsPerUnit
	for i := range sizes {
		n := min(maxBatch, remaining)
		sizes[i] = n
		remaining -= n
	}
	return sizes
}

// DefaultMaxBatchSize is the batch bound used when none is configured.
const DefaultMaxBatchSize = 30
