package domain

import (
	"fmt"
	"time"
)

// WeighingType identifies which side of the weighbridge pass a weighing
// belongs to.
type WeighingType string

const (
	WeighingTypeGross WeighingType = "gross"
	WeighingTypeTare  WeighingType = "tare"
	// WeighingTypeInternal is a weighing taken on a park-internal scale,
	// outside the gross/tare pair of an intake pass.
	WeighingTypeInternal WeighingType = "internal"
)

// DefaultMaxReadingAge is how old a scale reading may be before it is
// rejected as stale.
const DefaultMaxReadingAge = 5 * time.Minute

// ScaleReading is a raw sample from a weighbridge device.
type ScaleReading struct {
	DeviceID  string    `bson:"deviceId" json:"deviceId"`
	WeightKg  float64   `bson:"weightKg" json:"weightKg"`
	Stable    bool      `bson:"stable" json:"stable"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// Weighing is an accepted, official weight measurement attached to an entry.
type Weighing struct {
	Type       WeighingType `bson:"type" json:"type"`
	WeightKg   float64      `bson:"weightKg" json:"weightKg"`
	DeviceID   string       `bson:"deviceId" json:"deviceId"`
	MeasuredAt time.Time    `bson:"measuredAt" json:"measuredAt"`
	RecordedBy string       `bson:"recordedBy" json:"recordedBy"`
	RecordedAt time.Time    `bson:"recordedAt" json:"recordedAt"`
}

// NewWeighing validates a scale reading and promotes it to an official
// weighing. Unstable or aged readings are rejected with StaleWeighingError.
func NewWeighing(weighingType WeighingType, reading ScaleReading, maxAge time.Duration, recordedBy string) (*Weighing, error) {
	switch weighingType {
	case WeighingTypeGross, WeighingTypeTare, WeighingTypeInternal:
	default:
		return nil, fmt.Errorf("unknown weighing type: %s", weighingType)
	}
	if reading.DeviceID == "" {
		return nil, fmt.Errorf("scale reading has no device id")
	}
	if reading.WeightKg <= 0 {
		return nil, fmt.Errorf("scale reading weight must be positive, got %.2f", reading.WeightKg)
	}
	if !reading.Stable {
		return nil, &StaleWeighingError{DeviceID: reading.DeviceID, Stable: false}
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxReadingAge
	}
	if age := time.Since(reading.Timestamp); age > maxAge {
		return nil, &StaleWeighingError{DeviceID: reading.DeviceID, Stable: true, Age: age}
	}

	return &Weighing{
		Type:       weighingType,
		WeightKg:   reading.WeightKg,
		DeviceID:   reading.DeviceID,
		MeasuredAt: reading.Timestamp,
		RecordedBy: recordedBy,
		RecordedAt: time.Now(),
	}, nil
}
