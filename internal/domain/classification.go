package domain

import (
	"fmt"
	"math"
	"time"
)

// MaterialClassification is one classified fraction of an entry's net weight,
// identified by its waste catalogue code (e.g. "17.01").
type MaterialClassification struct {
	MaterialCode string    `bson:"materialCode" json:"materialCode"`
	Description  string    `bson:"description,omitempty" json:"description,omitempty"`
	WeightKg     float64   `bson:"weightKg" json:"weightKg"`
	AddedBy      string    `bson:"addedBy" json:"addedBy"`
	AddedAt      time.Time `bson:"addedAt" json:"addedAt"`
}

// ValidateClassification checks that the lines are well-formed and that
// their weights sum to the net weight within the given tolerance.
func ValidateClassification(entryID string, lines []MaterialClassification, netWeightKg, toleranceKg float64) error {
	if len(lines) == 0 {
		return fmt.Errorf("entry %s: classification requires at least one material line", entryID)
	}

	seen := make(map[string]bool, len(lines))
	var sum float64
	for _, line := range lines {
		if line.MaterialCode == "" {
			return fmt.Errorf("entry %s: classification line has no material code", entryID)
		}
		if line.WeightKg <= 0 {
			return fmt.Errorf("entry %s: classification line %s must have positive weight", entryID, line.MaterialCode)
		}
		if seen[line.MaterialCode] {
			return fmt.Errorf("entry %s: duplicate classification line for material %s", entryID, line.MaterialCode)
		}
		seen[line.MaterialCode] = true
		sum += line.WeightKg
	}

	if math.Abs(sum-netWeightKg) > toleranceKg {
		return &ClassificationMismatchError{
			EntryID:     entryID,
			ExpectedKg:  netWeightKg,
			ActualKg:    sum,
			ToleranceKg: toleranceKg,
		}
	}
	return nil
}
