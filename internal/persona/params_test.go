// Package persona_test tests parameter validation and defaults.
package persona_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatterbox-studio/chatterbox-studio/internal/persona"
)

func TestDefaultParams_AreValid(t *testing.T) {
	t.Parallel()

	require.NoError(t, persona.DefaultParams().Validate())
}

func TestDefaultParams_Values(t *testing.T) {
	t.Parallel()

	params := persona.DefaultParams()

	assert.InEpsilon(t, 0.8, params.Temperature, 0.001)
	assert.InEpsilon(t, 1.2, params.RepetitionPenalty, 0.001)
	assert.InEpsilon(t, 0.05, params.MinP, 0.001)
	assert.InEpsilon(t, 1.0, params.TopP, 0.001)
	assert.InEpsilon(t, 0.5, params.Exaggeration, 0.001)
	assert.InEpsilon(t, 0.5, params.CfgWeight, 0.001)
}

func TestParamsValidate_RangeViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*persona.Params)
		wantErr error
	}{
		{
			name:    "temperature below range",
			mutate:  func(p *persona.Params) { p.Temperature = -1 },
			wantErr: persona.ErrTemperatureRange,
		},
		{
			name:    "temperature above range",
			mutate:  func(p *persona.Params) { p.Temperature = 2.5 },
			wantErr: persona.ErrTemperatureRange,
		},
		{
			name:    "repetition penalty below range",
			mutate:  func(p *persona.Params) { p.RepetitionPenalty = 0.9 },
			wantErr: persona.ErrRepetitionPenaltyRange,
		},
		{
			name:    "repetition penalty above range",
			mutate:  func(p *persona.Params) { p.RepetitionPenalty = 3 },
			wantErr: persona.ErrRepetitionPenaltyRange,
		},
		{
			name:    "min_p negative",
			mutate:  func(p *persona.Params) { p.MinP = -0.01 },
			wantErr: persona.ErrMinPRange,
		},
		{
			name:    "top_p above one",
			mutate:  func(p *persona.Params) { p.TopP = 1.01 },
			wantErr: persona.ErrTopPRange,
		},
		{
			name:    "exaggeration above one",
			mutate:  func(p *persona.Params) { p.Exaggeration = 1.5 },
			wantErr: persona.ErrExaggerationRange,
		},
		{
			name:    "cfg_weight negative",
			mutate:  func(p *persona.Params) { p.CfgWeight = -0.5 },
			wantErr: persona.ErrCfgWeightRange,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			params := persona.DefaultParams()
			tc.mutate(&params)

			err := params.Validate()
			require.ErrorIs(t, err, tc.wantErr)
			assert.True(t, persona.IsValidation(err))
		})
	}
}

func TestParamsValidate_BoundaryValuesAccepted(t *testing.T) {
	t.Parallel()

	low := persona.Params{
		Temperature:       persona.TemperatureMin,
		RepetitionPenalty: persona.RepetitionPenaltyMin,
		MinP:              persona.MinPMin,
		TopP:              persona.TopPMin,
		Exaggeration:      persona.ExaggerationMin,
		CfgWeight:         persona.CfgWeightMin,
	}
	require.NoError(t, low.Validate())

	high := persona.Params{
		Temperature:       persona.TemperatureMax,
		RepetitionPenalty: persona.RepetitionPenaltyMax,
		MinP:              persona.MinPMax,
		TopP:              persona.TopPMax,
		Exaggeration:      persona.ExaggerationMax,
		CfgWeight:         persona.CfgWeightMax,
	}
	require.NoError(t, high.Validate())
}

func TestIsValidation_NonValidationError(t *testing.T) {
	t.Parallel()

	assert.False(t, persona.IsValidation(persona.ErrPersonaNotFound))
}
