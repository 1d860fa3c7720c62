package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motorwatch/models"
)

func TestClassifyHigherIsWorse(t *testing.T) {
	table := DefaultThresholds()

	tests := []struct {
		name  string
		value float64
		want  models.StatusLevel
	}{
		{"well below warning", 1.0, models.StatusNormal},
		{"exactly warning limit", 2.8, models.StatusNormal},
		{"between warning and critical", 3.5, models.StatusWarning},
		{"exactly critical limit", 4.5, models.StatusWarning},
		{"above critical", 5.0, models.StatusCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, err := table.Classify(models.ParamVibrationRMS, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, status.Level)
		})
	}
}

func TestClassifyLowerIsWorse(t *testing.T) {
	table := DefaultThresholds()

	tests := []struct {
		name  string
		value float64
		want  models.StatusLevel
	}{
		{"healthy power factor", 0.95, models.StatusNormal},
		{"exactly warning limit", 0.85, models.StatusNormal},
		{"below warning", 0.80, models.StatusWarning},
		{"exactly critical limit", 0.70, models.StatusWarning},
		{"below critical", 0.60, models.StatusCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, err := table.Classify(models.ParamPowerFactor, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, status.Level)
		})
	}
}

func TestClassifyUnknownParameter(t *testing.T) {
	table := DefaultThresholds()

	_, err := table.Classify(models.ParameterID("flux_capacitance"), 1.21)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownParameter)
}

func TestClassifyColorTokens(t *testing.T) {
	table := DefaultThresholds()

	status, err := table.Classify(models.ParamVibrationRMS, 5.0)
	require.NoError(t, err)
	assert.Equal(t, "red", status.ColorToken)
	assert.Equal(t, "Critical", status.Label)

	status, err = table.Classify(models.ParamVibrationRMS, 3.0)
	require.NoError(t, err)
	assert.Equal(t, "yellow", status.ColorToken)

	status, err = table.Classify(models.ParamVibrationRMS, 1.0)
	require.NoError(t, err)
	assert.Equal(t, "green", status.ColorToken)
}

func TestNewThresholdTableRejectsInvertedLimits(t *testing.T) {
	_, err := NewThresholdTable([]ThresholdDefinition{
		{models.ParamVibrationRMS, 4.5, 2.8, HigherIsWorse, "mm/s", "Vibration RMS"},
	})
	require.Error(t, err)

	_, err = NewThresholdTable([]ThresholdDefinition{
		{models.ParamPowerFactor, 0.70, 0.85, LowerIsWorse, "", "Power Factor"},
	})
	require.Error(t, err)
}

func TestNewThresholdTableRejectsDuplicates(t *testing.T) {
	_, err := NewThresholdTable([]ThresholdDefinition{
		{models.ParamVibrationRMS, 2.8, 4.5, HigherIsWorse, "mm/s", "Vibration RMS"},
		{models.ParamVibrationRMS, 2.0, 4.0, HigherIsWorse, "mm/s", "Vibration RMS"},
	})
	require.Error(t, err)
}

func TestDefinitionsPreserveOrder(t *testing.T) {
	table := DefaultThresholds()

	defs := table.Definitions()
	require.Len(t, defs, 6)
	assert.Equal(t, models.ParamVibrationRMS, defs[0].Parameter)
	assert.Equal(t, models.ParamDustDensity, defs[5].Parameter)
}
