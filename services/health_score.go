package services

import (
	"math"
	"sort"

	"motorwatch/models"
)

// Nominal grid values and deviation bands for the two bespoke checks.
const (
	nominalVoltage   = 220.0
	nominalFrequency = 50.0

	voltageCriticalDeviation = 0.15
	voltageWarningDeviation  = 0.10
	voltageCriticalPenalty   = 10.0
	voltageWarningPenalty    = 5.0

	frequencyCriticalDeviation = 0.02
	frequencyWarningDeviation  = 0.01
	frequencyCriticalPenalty   = 5.0
	frequencyWarningPenalty    = 2.0
)

// scoredParameter is one standard parameter with its maximum penalty.
// Warning costs half the maximum, critical the full amount.
type scoredParameter struct {
	param      models.ParameterID
	maxPenalty float64
}

// Evaluation order also breaks penalty ties in the factor ranking.
var scoredParameters = []scoredParameter{
	{models.ParamVibrationRMS, 25},
	{models.ParamMotorSurfaceTemp, 20},
	{models.ParamBearingTemp, 20},
	{models.ParamMotorCurrent, 15},
	{models.ParamPowerFactor, 15},
	{models.ParamDustDensity, 10},
}

// HealthScoreCalculator turns sensor snapshots into 0-100 health judgments.
type HealthScoreCalculator struct {
	thresholds *ThresholdTable
}

func NewHealthScoreCalculator(thresholds *ThresholdTable) *HealthScoreCalculator {
	return &HealthScoreCalculator{thresholds: thresholds}
}

// Compute applies the per-parameter penalty rules to a snapshot. Absent or
// non-numeric parameters contribute nothing; they are not evidence of a
// problem.
func (c *HealthScoreCalculator) Compute(snapshot *models.SensorSnapshot) models.HealthScoreResult {
	var factors []models.HealthFactor
	total := 0.0

	for _, sp := range scoredParameters {
		value, ok := snapshot.Value(sp.param)
		if !ok || math.IsNaN(value) {
			continue
		}

		status, err := c.thresholds.Classify(sp.param, value)
		if err != nil {
			// The scored parameter list and the threshold table ship together;
			// a miss here is a programming error, not bad sensor data.
			continue
		}

		penalty := 0.0
		switch status.Level {
		case models.StatusWarning:
			penalty = sp.maxPenalty * 0.5
		case models.StatusCritical:
			penalty = sp.maxPenalty
		}
		if penalty > 0 {
			total += penalty
			factors = append(factors, models.HealthFactor{
				Parameter: sp.param,
				Value:     value,
				Status:    status.Level,
				Penalty:   penalty,
			})
		}
	}

	if value, ok := snapshot.Value(models.ParamGridVoltage); ok && !math.IsNaN(value) {
		penalty, level := deviationPenalty(value, nominalVoltage,
			voltageCriticalDeviation, voltageWarningDeviation,
			voltageCriticalPenalty, voltageWarningPenalty)
		if penalty > 0 {
			total += penalty
			factors = append(factors, models.HealthFactor{
				Parameter: models.ParamGridVoltage,
				Value:     value,
				Status:    level,
				Penalty:   penalty,
			})
		}
	}

	if value, ok := snapshot.Value(models.ParamGridFrequency); ok && !math.IsNaN(value) {
		penalty, level := deviationPenalty(value, nominalFrequency,
			frequencyCriticalDeviation, frequencyWarningDeviation,
			frequencyCriticalPenalty, frequencyWarningPenalty)
		if penalty > 0 {
			total += penalty
			factors = append(factors, models.HealthFactor{
				Parameter: models.ParamGridFrequency,
				Value:     value,
				Status:    level,
				Penalty:   penalty,
			})
		}
	}

	// Stable sort keeps evaluation order for equal penalties.
	sort.SliceStable(factors, func(i, j int) bool {
		return factors[i].Penalty > factors[j].Penalty
	})

	score := int(math.Round(clamp(100-total, 0, 100)))

	return models.HealthScoreResult{
		Score:    score,
		Category: models.CategoryForScore(score),
		Factors:  factors,
	}
}

// deviationPenalty scores relative deviation from a nominal grid value.
func deviationPenalty(value, nominal, criticalDev, warningDev, criticalPenalty, warningPenalty float64) (float64, models.StatusLevel) {
	deviation := math.Abs(value-nominal) / nominal
	switch {
	case deviation > criticalDev:
		return criticalPenalty, models.StatusCritical
	case deviation > warningDev:
		return warningPenalty, models.StatusWarning
	default:
		return 0, models.StatusNormal
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
