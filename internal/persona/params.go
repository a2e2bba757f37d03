// Package persona manages named voice presets: a reference audio handle plus
// the sampling parameters used to generate speech with that voice.
package persona

import (
	"errors"
	"fmt"
)

// Valid parameter ranges. These mirror the ranges the Chatterbox engine
// exposes on its own controls; the store does not invent its own.
const (
	TemperatureMin = 0.1
	TemperatureMax = 2.0

	RepetitionPenaltyMin = 1.0
	RepetitionPenaltyMax = 2.0

	MinPMin = 0.0
	MinPMax = 1.0

	TopPMin = 0.0
	TopPMax = 1.0

	ExaggerationMin = 0.0
	ExaggerationMax = 1.0

	CfgWeightMin = 0.0
	CfgWeightMax = 1.0
)

// Default parameter values, used when a stored record predates a field or when
// the UI is reset.
const (
	DefaultTemperature       = 0.8
	DefaultRepetitionPenalty = 1.2
	DefaultMinP              = 0.05
	DefaultTopP              = 1.0
	DefaultExaggeration      = 0.5
	DefaultCfgWeight         = 0.5
)

// Static validation errors.
var (
	// ErrNameEmpty indicates a blank persona name.
	ErrNameEmpty = errors.New("persona name cannot be empty")
	// ErrTemperatureRange indicates a temperature outside [0.1, 2.0].
	ErrTemperatureRange = errors.New("temperature must be between 0.1 and 2.0")
	// ErrRepetitionPenaltyRange indicates a repetition penalty outside [1.0, 2.0].
	ErrRepetitionPenaltyRange = errors.New(
		"repetition penalty must be between 1.0 and 2.0",
	)
	// ErrMinPRange indicates a min_p outside [0.0, 1.0].
	ErrMinPRange = errors.New("min_p must be between 0.0 and 1.0")
	// ErrTopPRange indicates a top_p outside [0.0, 1.0].
	ErrTopPRange = errors.New("top_p must be between 0.0 and 1.0")
	// ErrExaggerationRange indicates an exaggeration outside [0.0, 1.0].
	ErrExaggerationRange = errors.New("exaggeration must be between 0.0 and 1.0")
	// ErrCfgWeightRange indicates a cfg_weight outside [0.0, 1.0].
	ErrCfgWeightRange = errors.New("cfg_weight must be between 0.0 and 1.0")
)

// Params is the fixed set of sampling controls a persona carries. Every field
// is always present; pointers are used only at the storage boundary (see
// record) so that old records with missing fields can fall back to defaults.
type Params struct {
	Temperature       float64 `json:"temperature"`
	RepetitionPenalty float64 `json:"repetition_penalty"`
	MinP              float64 `json:"min_p"`
	TopP              float64 `json:"top_p"`
	Exaggeration      float64 `json:"exaggeration"`
	CfgWeight         float64 `json:"cfg_weight"`
}

// DefaultParams returns the engine's documented default controls.
func DefaultParams() Params {
	return Params{
		Temperature:       DefaultTemperature,
		RepetitionPenalty: DefaultRepetitionPenalty,
		MinP:              DefaultMinP,
		TopP:              DefaultTopP,
		Exaggeration:      DefaultExaggeration,
		CfgWeight:         DefaultCfgWeight,
	}
}

// Validate checks every control against its documented range. The first
// violation is returned wrapped around its static error so callers can match
// with errors.Is.
func (p Params) Validate() error {
	if p.Temperature < TemperatureMin || p.Temperature > TemperatureMax {
		return fmt.Errorf("%w: got %g", ErrTemperatureRange, p.Temperature)
	}

	if p.RepetitionPenalty < RepetitionPenaltyMin ||
		p.RepetitionPenalty > RepetitionPenaltyMax {
		return fmt.Errorf(
			"%w: got %g",
			ErrRepetitionPenaltyRange,
			p.RepetitionPenalty,
		)
	}

	if p.MinP < MinPMin || p.MinP > MinPMax {
		return fmt.Errorf("%w: got %g", ErrMinPRange, p.MinP)
	}

	if p.TopP < TopPMin || p.TopP > TopPMax {
		return fmt.Errorf("%w: got %g", ErrTopPRange, p.TopP)
	}

	if p.Exaggeration < ExaggerationMin || p.Exaggeration > ExaggerationMax {
		return fmt.Errorf("%w: got %g", ErrExaggerationRange, p.Exaggeration)
	}

	if p.CfgWeight < CfgWeightMin || p.CfgWeight > CfgWeightMax {
		return fmt.Errorf("%w: got %g", ErrCfgWeightRange, p.CfgWeight)
	}

	return nil
}

// IsValidation reports whether err is one of the parameter or name validation
// errors, as opposed to a storage or engine failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrNameEmpty) ||
		errors.Is(err, ErrTemperatureRange) ||
		errors.Is(err, ErrRepetitionPenaltyRange) ||
		errors.Is(err, ErrMinPRange) ||
		errors.Is(err, ErrTopPRange) ||
		errors.Is(err, ErrExaggerationRange) ||
		errors.Is(err, ErrCfgWeightRange)
}
