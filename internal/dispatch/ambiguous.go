package dispatch

// AmbiguousFlagCeiling is the largest raw value read as a direction flag
// when a fallback-profile id is shared between a power reading and a
// direction flag across vendors. Direction flags are 0 or 1; a real power
// reading at 0.1 W resolution above 0.1 W exceeds it.
const AmbiguousFlagCeiling int64 = 1

// Interpretation is the outcome of classifying an ambiguous raw value.
type Interpretation uint8

// Interpretations.
const (
	InterpretMagnitude Interpretation = iota
	InterpretDirection
)

// String returns the interpretation name.
func (i Interpretation) String() string {
	if i == InterpretDirection {
		return "direction"
	}
	return "magnitude"
}

// ClassifyAmbiguous decides how a fallback profile reads an ambiguous raw
// value. This is a best-effort guess: values at or below
// AmbiguousFlagCeiling are direction flags, larger values are magnitudes.
func ClassifyAmbiguous(raw int64) Interpretation {
	if raw <= AmbiguousFlagCeiling {
		return InterpretDirection
	}
	return InterpretMagnitude
}
