package models

// VibrationReading is one point of the vibration series fed to the failure
// predictor.
type VibrationReading struct {
	VibrationRMS float64 `json:"vibration_rms"`
	Timestamp    int64   `json:"timestamp,omitempty"`
}

// PredictionSource distinguishes genuine model output from the band-based
// placeholder used when no predictor service is configured.
type PredictionSource string

const (
	SourceMLService PredictionSource = "ml-service"
	SourceHeuristic PredictionSource = "heuristic"
)

// FailureClassification is the will-it-fail-soon verdict.
type FailureClassification struct {
	WillFailSoon       bool    `json:"willFailSoon"`
	FailureProbability float64 `json:"failureProbability"`
	Confidence         string  `json:"confidence"`
	ThresholdMinutes   int     `json:"thresholdMinutes"`
}

// FailureRegression is the time-to-failure estimate.
type FailureRegression struct {
	MinutesToFailure float64 `json:"minutesToFailure"`
	HoursToFailure   float64 `json:"hoursToFailure"`
	Status           string  `json:"status"`
}

// MLPrediction is the combined predictor output returned to the dashboard.
type MLPrediction struct {
	Classification FailureClassification `json:"classification"`
	Regression     FailureRegression     `json:"regression"`
	ReadingsUsed   int                   `json:"readingsUsed"`
	Source         PredictionSource      `json:"source"`
}
