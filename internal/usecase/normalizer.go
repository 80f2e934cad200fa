package usecase

import (
	"github.com/dailybelle/sizeadvisor/internal/domain"
)

// Measurement names reported by the scan provider
const (
	FieldChestCircumference  = "Chest Circumference"
	FieldUnderBustFrontBack  = "F Under Bust Circumference B"
	FieldUnderBust           = "Under Bust Circumference"
	FieldShoulderNippleLeft  = "NSP to Apex Length (Left)"
	FieldShoulderNippleRight = "NSP to Apex Length (Right)"
)

// Names reported in ResolvedMeasurement.DefaultedFields
const (
	defaultedUpperBust       = "upperBust"
	defaultedLowerBust       = "lowerBust"
	defaultedShoulderNippleL = "shoulderNippleLeft"
	defaultedShoulderNippleR = "shoulderNippleRight"
)

// MeasurementDefaults are substituted for readings the payload cannot supply
type MeasurementDefaults struct {
	UpperBust           float64
	LowerBust           float64
	ShoulderNippleLeft  float64
	ShoulderNippleRight float64
}

// DefaultMeasurementDefaults returns the fallback readings of the fitting room form
func DefaultMeasurementDefaults() MeasurementDefaults {
	return MeasurementDefaults{
		UpperBust:           82.0,
		LowerBust:           65.0,
		ShoulderNippleLeft:  20.0,
		ShoulderNippleRight: 20.0,
	}
}

// Normalizer extracts the four fitting readings from the pose payloads.
// Upper and lower bust come from pose I, shoulder-to-nipple lengths from pose A.
type Normalizer struct {
	defaults    MeasurementDefaults
	lowerFields []string
}

// NewNormalizer creates a normalizer with the given fallbacks
func NewNormalizer(defaults MeasurementDefaults) *Normalizer {
	return &Normalizer{
		defaults:    defaults,
		lowerFields: []string{FieldUnderBustFrontBack, FieldUnderBust},
	}
}

// Defaults returns the configured fallback readings
func (n *Normalizer) Defaults() MeasurementDefaults {
	return n.defaults
}

// Apply fills the readings of m. Every reading the payloads could not supply is
// set to its default, listed in DefaultedFields, and marks m as degraded.
// A nil payload counts as empty.
func (n *Normalizer) Apply(m *domain.ResolvedMeasurement, poseI, poseA domain.MeasurementPayload) {
	var ok bool

	m.UpperBust, ok = poseI.Float(FieldChestCircumference, n.defaults.UpperBust)
	n.track(m, defaultedUpperBust, ok)

	m.LowerBust, ok = FirstFloat(poseI, n.lowerFields, n.defaults.LowerBust)
	n.track(m, defaultedLowerBust, ok)

	m.ShoulderNippleLeft, ok = poseA.Float(FieldShoulderNippleLeft, n.defaults.ShoulderNippleLeft)
	n.track(m, defaultedShoulderNippleL, ok)

	m.ShoulderNippleRight, ok = poseA.Float(FieldShoulderNippleRight, n.defaults.ShoulderNippleRight)
	n.track(m, defaultedShoulderNippleR, ok)
}

func (n *Normalizer) track(m *domain.ResolvedMeasurement, field string, ok bool) {
	if ok {
		return
	}
	m.Degraded = true
	m.DefaultedFields = append(m.DefaultedFields, field)
}

// FirstFloat returns the first of names that resolves to a number in p, or def.
func FirstFloat(p domain.MeasurementPayload, names []string, def float64) (float64, bool) {
	for _, name := range names {
		if f, ok := p.Float(name, def); ok {
			return f, true
		}
	}
	return def, false
}
