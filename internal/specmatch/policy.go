package specmatch

// Policy holds the numeric thresholds used by measurement matching.
type Policy struct {
	// UnitInferenceMaxMM is the exclusive upper bound for reading a
	// unitless number as millimeters. Unitless values at or above it are
	// ambiguous and never treated as measurements.
	UnitInferenceMaxMM float64 `mapstructure:"unit_inference_max_mm" json:"unit_inference_max_mm"`
	// AbsToleranceMM is the absolute floor of the single-value tolerance.
	AbsToleranceMM float64 `mapstructure:"abs_tolerance_mm" json:"abs_tolerance_mm"`
	// RelTolerance is applied to the smaller of two compared values.
	RelTolerance float64 `mapstructure:"rel_tolerance" json:"rel_tolerance"`
}

// Default policy values.
const (
	DefaultUnitInferenceMaxMM = 100
	DefaultAbsToleranceMM     = 0.1
	DefaultRelTolerance       = 0.01
)

// DefaultPolicy returns the standard measurement policy.
func DefaultPolicy() Policy {
	return Policy{
		UnitInferenceMaxMM: DefaultUnitInferenceMaxMM,
		AbsToleranceMM:     DefaultAbsToleranceMM,
		RelTolerance:       DefaultRelTolerance,
	}
}

// withDefaults fills non-positive fields from DefaultPolicy.
func (p Policy) withDefaults() Policy {
	if p.UnitInferenceMaxMM <= 0 {
		p.UnitInferenceMaxMM = DefaultUnitInferenceMaxMM
	}
	if p.AbsToleranceMM <= 0 {
		p.AbsToleranceMM = DefaultAbsToleranceMM
	}
	if p.RelTolerance <= 0 {
		p.RelTolerance = DefaultRelTolerance
	}
	return p
}

// tolerance returns the allowed difference between two single values.
func (p Policy) tolerance(v1, v2 float64) float64 {
	return max(p.AbsToleranceMM, min(v1, v2)*p.RelTolerance)
}
