package services

import (
	"errors"
	"fmt"

	"motorwatch/config"
	"motorwatch/models"
)

// ErrUnknownParameter reports a parameter id with no threshold definition.
// This is a vocabulary mismatch between caller and table, not a data error.
var ErrUnknownParameter = errors.New("unknown parameter")

// Direction says which side of the limits is unhealthy.
type Direction string

const (
	HigherIsWorse Direction = "higher-is-worse"
	LowerIsWorse  Direction = "lower-is-worse"
)

// ThresholdDefinition describes the classification bands for one parameter.
type ThresholdDefinition struct {
	Parameter     models.ParameterID `json:"parameter"`
	WarningLimit  float64            `json:"warningLimit"`
	CriticalLimit float64            `json:"criticalLimit"`
	Direction     Direction          `json:"directionality"`
	Unit          string             `json:"unit"`
	Label         string             `json:"displayLabel"`
}

// ThresholdTable holds the immutable per-parameter threshold definitions.
// Built once at startup, safe for concurrent readers.
type ThresholdTable struct {
	defs  map[models.ParameterID]ThresholdDefinition
	order []models.ParameterID
}

// NewThresholdTable validates the definitions and builds the lookup table.
func NewThresholdTable(defs []ThresholdDefinition) (*ThresholdTable, error) {
	table := &ThresholdTable{
		defs:  make(map[models.ParameterID]ThresholdDefinition, len(defs)),
		order: make([]models.ParameterID, 0, len(defs)),
	}

	for _, def := range defs {
		if _, exists := table.defs[def.Parameter]; exists {
			return nil, fmt.Errorf("duplicate threshold definition for %s", def.Parameter)
		}
		switch def.Direction {
		case HigherIsWorse:
			if def.CriticalLimit <= def.WarningLimit {
				return nil, fmt.Errorf("parameter %s: critical limit %.2f must exceed warning limit %.2f",
					def.Parameter, def.CriticalLimit, def.WarningLimit)
			}
		case LowerIsWorse:
			if def.CriticalLimit >= def.WarningLimit {
				return nil, fmt.Errorf("parameter %s: critical limit %.2f must be below warning limit %.2f",
					def.Parameter, def.CriticalLimit, def.WarningLimit)
			}
		default:
			return nil, fmt.Errorf("parameter %s: unknown directionality %q", def.Parameter, def.Direction)
		}
		table.defs[def.Parameter] = def
		table.order = append(table.order, def.Parameter)
	}

	return table, nil
}

// ThresholdsFromConfig builds the table from the configured limits.
func ThresholdsFromConfig(cfg *config.Config) (*ThresholdTable, error) {
	return NewThresholdTable([]ThresholdDefinition{
		{models.ParamVibrationRMS, cfg.VibrationWarn, cfg.VibrationCrit, HigherIsWorse, "mm/s", "Vibration RMS"},
		{models.ParamMotorSurfaceTemp, cfg.MotorTempWarn, cfg.MotorTempCrit, HigherIsWorse, "°C", "Motor Surface Temperature"},
		{models.ParamBearingTemp, cfg.BearingTempWarn, cfg.BearingTempCrit, HigherIsWorse, "°C", "Bearing Temperature"},
		{models.ParamMotorCurrent, cfg.CurrentWarn, cfg.CurrentCrit, HigherIsWorse, "A", "Motor Current"},
		{models.ParamPowerFactor, cfg.PowerFactorWarn, cfg.PowerFactorCrit, LowerIsWorse, "", "Power Factor"},
		{models.ParamDustDensity, cfg.DustWarn, cfg.DustCrit, HigherIsWorse, "µg/m³", "Dust Density"},
	})
}

// DefaultThresholds returns the table built from the built-in limits,
// ignoring any environment overrides.
func DefaultThresholds() *ThresholdTable {
	table, err := NewThresholdTable([]ThresholdDefinition{
		{models.ParamVibrationRMS, 2.8, 4.5, HigherIsWorse, "mm/s", "Vibration RMS"},
		{models.ParamMotorSurfaceTemp, 70.0, 85.0, HigherIsWorse, "°C", "Motor Surface Temperature"},
		{models.ParamBearingTemp, 60.0, 80.0, HigherIsWorse, "°C", "Bearing Temperature"},
		{models.ParamMotorCurrent, 5.0, 6.5, HigherIsWorse, "A", "Motor Current"},
		{models.ParamPowerFactor, 0.85, 0.70, LowerIsWorse, "", "Power Factor"},
		{models.ParamDustDensity, 100.0, 150.0, HigherIsWorse, "µg/m³", "Dust Density"},
	})
	if err != nil {
		panic("invalid built-in threshold definitions: " + err.Error())
	}
	return table
}

// Classify maps a parameter value to its status band. Returns
// ErrUnknownParameter for parameters without a definition.
func (t *ThresholdTable) Classify(parameter models.ParameterID, value float64) (models.StatusClassification, error) {
	def, ok := t.defs[parameter]
	if !ok {
		return models.StatusClassification{}, fmt.Errorf("%w: %s", ErrUnknownParameter, parameter)
	}

	level := models.StatusNormal
	switch def.Direction {
	case HigherIsWorse:
		if value > def.CriticalLimit {
			level = models.StatusCritical
		} else if value > def.WarningLimit {
			level = models.StatusWarning
		}
	case LowerIsWorse:
		if value < def.CriticalLimit {
			level = models.StatusCritical
		} else if value < def.WarningLimit {
			level = models.StatusWarning
		}
	}

	return statusFor(level), nil
}

// Definition returns the threshold definition for a parameter.
func (t *ThresholdTable) Definition(parameter models.ParameterID) (ThresholdDefinition, bool) {
	def, ok := t.defs[parameter]
	return def, ok
}

// Definitions returns all definitions in declaration order, for the dashboard.
func (t *ThresholdTable) Definitions() []ThresholdDefinition {
	defs := make([]ThresholdDefinition, 0, len(t.order))
	for _, p := range t.order {
		defs = append(defs, t.defs[p])
	}
	return defs
}

func statusFor(level models.StatusLevel) models.StatusClassification {
	switch level {
	case models.StatusCritical:
		return models.StatusClassification{Level: level, Label: "Critical", ColorToken: "red"}
	case models.StatusWarning:
		return models.StatusClassification{Level: level, Label: "Warning", ColorToken: "yellow"}
	default:
		return models.StatusClassification{Level: models.StatusNormal, Label: "Normal", ColorToken: "green"}
	}
}
