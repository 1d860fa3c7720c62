package models

import (
	"encoding/json"
	"time"
)

// ParameterID identifies one monitored motor parameter.
type ParameterID string

const (
	ParamVibrationRMS     ParameterID = "vibrationRms"
	ParamMotorSurfaceTemp ParameterID = "motorSurfaceTemp"
	ParamBearingTemp      ParameterID = "bearingTemp"
	ParamMotorCurrent     ParameterID = "motorCurrent"
	ParamPowerFactor      ParameterID = "powerFactor"
	ParamDustDensity      ParameterID = "dustDensity"
	ParamGridVoltage      ParameterID = "gridVoltage"
	ParamGridFrequency    ParameterID = "gridFrequency"
)

// SensorSnapshot is a point-in-time reading from one motor. A nil field means
// the device did not report that parameter.
type SensorSnapshot struct {
	DeviceID      string    `json:"device_id,omitempty"`
	VibrationRMS  *float64  `json:"vibrationRms,omitempty"`
	MotorTemp     *float64  `json:"motorSurfaceTemp,omitempty"`
	BearingTemp   *float64  `json:"bearingTemp,omitempty"`
	MotorCurrent  *float64  `json:"motorCurrent,omitempty"`
	PowerFactor   *float64  `json:"powerFactor,omitempty"`
	DustDensity   *float64  `json:"dustDensity,omitempty"`
	GridVoltage   *float64  `json:"gridVoltage,omitempty"`
	GridFrequency *float64  `json:"gridFrequency,omitempty"`
	Timestamp     time.Time `json:"timestamp,omitempty"`
}

// Value returns the reading for the given parameter and whether it was
// reported at all.
func (s *SensorSnapshot) Value(p ParameterID) (float64, bool) {
	var v *float64
	switch p {
	case ParamVibrationRMS:
		v = s.VibrationRMS
	case ParamMotorSurfaceTemp:
		v = s.MotorTemp
	case ParamBearingTemp:
		v = s.BearingTemp
	case ParamMotorCurrent:
		v = s.MotorCurrent
	case ParamPowerFactor:
		v = s.PowerFactor
	case ParamDustDensity:
		v = s.DustDensity
	case ParamGridVoltage:
		v = s.GridVoltage
	case ParamGridFrequency:
		v = s.GridFrequency
	}
	if v == nil {
		return 0, false
	}
	return *v, true
}

// rawSnapshot accepts the field aliases seen from upstream producers. Canonical
// names win over aliases when both are present.
type rawSnapshot struct {
	DeviceID      string    `json:"device_id"`
	VibrationRMS  *float64  `json:"vibrationRms"`
	Vibration     *float64  `json:"vibration"`
	MotorTemp     *float64  `json:"motorSurfaceTemp"`
	MotorTempAlt  *float64  `json:"motorTemp"`
	BearingTemp   *float64  `json:"bearingTemp"`
	MotorCurrent  *float64  `json:"motorCurrent"`
	Current       *float64  `json:"current"`
	PowerFactor   *float64  `json:"powerFactor"`
	DustDensity   *float64  `json:"dustDensity"`
	Dust          *float64  `json:"dust"`
	GridVoltage   *float64  `json:"gridVoltage"`
	Voltage       *float64  `json:"voltage"`
	GridFrequency *float64  `json:"gridFrequency"`
	Frequency     *float64  `json:"frequency"`
	Timestamp     time.Time `json:"timestamp"`
}

func coalesce(canonical, alias *float64) *float64 {
	if canonical != nil {
		return canonical
	}
	return alias
}

// DecodeSnapshot parses a sensor payload into the canonical snapshot shape,
// resolving field aliases at the boundary so downstream code never sees them.
func DecodeSnapshot(payload []byte) (*SensorSnapshot, error) {
	var raw rawSnapshot
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, err
	}
	return raw.normalize(), nil
}

// NormalizeSnapshot resolves aliases on an already-decoded raw payload.
func NormalizeSnapshot(payload json.RawMessage) (*SensorSnapshot, error) {
	return DecodeSnapshot(payload)
}

func (r *rawSnapshot) normalize() *SensorSnapshot {
	return &SensorSnapshot{
		DeviceID:      r.DeviceID,
		VibrationRMS:  coalesce(r.VibrationRMS, r.Vibration),
		MotorTemp:     coalesce(r.MotorTemp, r.MotorTempAlt),
		BearingTemp:   r.BearingTemp,
		MotorCurrent:  coalesce(r.MotorCurrent, r.Current),
		PowerFactor:   r.PowerFactor,
		DustDensity:   coalesce(r.DustDensity, r.Dust),
		GridVoltage:   coalesce(r.GridVoltage, r.Voltage),
		GridFrequency: coalesce(r.GridFrequency, r.Frequency),
		Timestamp:     r.Timestamp,
	}
}

// StatusLevel is the classification band for one parameter value.
type StatusLevel string

const (
	StatusNormal   StatusLevel = "normal"
	StatusWarning  StatusLevel = "warning"
	StatusCritical StatusLevel = "critical"
)

// StatusClassification is the result of classifying one (parameter, value)
// pair. ColorToken is the dashboard color key, not a rendered color.
type StatusClassification struct {
	Level      StatusLevel `json:"level"`
	Label      string      `json:"label"`
	ColorToken string      `json:"colorToken"`
}

// HealthCategory buckets the aggregate score.
type HealthCategory string

const (
	CategoryHealthy  HealthCategory = "Healthy"
	CategoryAtRisk   HealthCategory = "At Risk"
	CategoryCritical HealthCategory = "Critical"
)

// CategoryForScore maps a 0-100 score to its category.
func CategoryForScore(score int) HealthCategory {
	switch {
	case score >= 80:
		return CategoryHealthy
	case score >= 60:
		return CategoryAtRisk
	default:
		return CategoryCritical
	}
}

// HealthFactor is one parameter's deduction contribution to the health score.
type HealthFactor struct {
	Parameter ParameterID `json:"parameter"`
	Value     float64     `json:"value"`
	Status    StatusLevel `json:"status"`
	Penalty   float64     `json:"penaltyPoints"`
}

// HealthScoreResult is the aggregate judgment for one snapshot. Factors are
// ordered by descending penalty.
type HealthScoreResult struct {
	Score    int            `json:"score"`
	Category HealthCategory `json:"category"`
	Factors  []HealthFactor `json:"factors"`
}

// ScoredReading pairs a snapshot with its computed health score for storage.
type ScoredReading struct {
	DeviceID  string            `json:"device_id"`
	Snapshot  *SensorSnapshot   `json:"snapshot"`
	Health    HealthScoreResult `json:"health"`
	Timestamp time.Time         `json:"timestamp"`
}
