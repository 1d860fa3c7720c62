package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"motorwatch/models"
)

// ML service availability as reported to the dashboard.
const (
	MLStatusAvailable   = "available"
	MLStatusUnavailable = "unavailable"
	MLStatusDisabled    = "disabled"
)

// MLPredictorService calls the external bearing-failure predictor. The
// predictor is best-effort: every failure degrades to a status flag and an
// error string, never to a failed request.
type MLPredictorService struct {
	logger     *zap.Logger
	baseURL    string
	httpClient *http.Client
}

// NewMLPredictorService creates the predictor client. An empty baseURL means
// the service is not configured; predictions fall back to the vibration-band
// heuristic and are tagged as such.
func NewMLPredictorService(logger *zap.Logger, baseURL string) *MLPredictorService {
	return &MLPredictorService{
		logger:  logger,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Configured reports whether an external predictor URL is set.
func (s *MLPredictorService) Configured() bool {
	return s.baseURL != ""
}

// predictRequest is the wire shape the predictor sidecar expects.
type predictRequest struct {
	SensorData map[string]float64        `json:"sensorData"`
	Readings   []models.VibrationReading `json:"readings"`
}

// predictResponse mirrors the sidecar's snake_case response.
type predictResponse struct {
	Error          string `json:"error"`
	Classification struct {
		WillFailSoon       bool    `json:"will_fail_soon"`
		FailureProbability float64 `json:"failure_probability"`
		Confidence         string  `json:"confidence"`
		ThresholdMinutes   int     `json:"threshold_minutes"`
	} `json:"classification"`
	Regression struct {
		MinutesToFailure float64 `json:"minutes_to_failure"`
		HoursToFailure   float64 `json:"hours_to_failure"`
		Status           string  `json:"status"`
	} `json:"regression"`
	ReadingsUsed int `json:"readings_used"`
}

// Predict returns the failure prediction for a vibration series along with
// the service status and a human-readable error string (empty on success).
func (s *MLPredictorService) Predict(ctx context.Context, readings []models.VibrationReading) (*models.MLPrediction, string, string) {
	if len(readings) == 0 {
		status := MLStatusUnavailable
		if !s.Configured() {
			status = MLStatusDisabled
		}
		return nil, status, "no vibration readings provided"
	}

	if !s.Configured() {
		return s.heuristicPrediction(readings), MLStatusDisabled, ""
	}

	prediction, err := s.callService(ctx, readings)
	if err != nil {
		s.logger.Warn("ML predictor unavailable, returning formula score only",
			zap.String("url", s.baseURL),
			zap.Error(err))
		return nil, MLStatusUnavailable, err.Error()
	}

	return prediction, MLStatusAvailable, ""
}

func (s *MLPredictorService) callService(ctx context.Context, readings []models.VibrationReading) (*models.MLPrediction, error) {
	payload := predictRequest{
		SensorData: map[string]float64{
			"vibration_peak_g": meanVibration(readings),
		},
		Readings: readings,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal prediction request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/predict/both", s.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "motorwatch/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ML service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("ML service returned %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read ML service response: %w", err)
	}

	var wire predictResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("failed to parse ML service response: %w", err)
	}
	if wire.Error != "" {
		return nil, fmt.Errorf("ML service error: %s", wire.Error)
	}

	readingsUsed := wire.ReadingsUsed
	if readingsUsed == 0 {
		readingsUsed = len(readings)
	}

	return &models.MLPrediction{
		Classification: models.FailureClassification{
			WillFailSoon:       wire.Classification.WillFailSoon,
			FailureProbability: wire.Classification.FailureProbability,
			Confidence:         wire.Classification.Confidence,
			ThresholdMinutes:   wire.Classification.ThresholdMinutes,
		},
		Regression: models.FailureRegression{
			MinutesToFailure: wire.Regression.MinutesToFailure,
			HoursToFailure:   wire.Regression.HoursToFailure,
			Status:           wire.Regression.Status,
		},
		ReadingsUsed: readingsUsed,
		Source:       models.SourceMLService,
	}, nil
}

// heuristicPrediction is the documented placeholder used while no predictor
// service is configured. It maps the mean vibration magnitude to fixed bands
// aligned with the vibration classification limits. The Source tag keeps it
// distinguishable from real model output.
func (s *MLPredictorService) heuristicPrediction(readings []models.VibrationReading) *models.MLPrediction {
	mean := meanVibration(readings)

	var (
		classification models.FailureClassification
		regression     models.FailureRegression
	)

	switch {
	case mean > 4.5:
		classification = models.FailureClassification{WillFailSoon: true, FailureProbability: 0.85, Confidence: "Low", ThresholdMinutes: 60}
		regression = models.FailureRegression{MinutesToFailure: 1440, HoursToFailure: 24, Status: "Critical"}
	case mean > 2.8:
		classification = models.FailureClassification{WillFailSoon: false, FailureProbability: 0.45, Confidence: "Low", ThresholdMinutes: 60}
		regression = models.FailureRegression{MinutesToFailure: 10080, HoursToFailure: 168, Status: "Watch"}
	default:
		classification = models.FailureClassification{WillFailSoon: false, FailureProbability: 0.10, Confidence: "Low", ThresholdMinutes: 60}
		regression = models.FailureRegression{MinutesToFailure: 43200, HoursToFailure: 720, Status: "Normal"}
	}

	return &models.MLPrediction{
		Classification: classification,
		Regression:     regression,
		ReadingsUsed:   len(readings),
		Source:         models.SourceHeuristic,
	}
}

func meanVibration(readings []models.VibrationReading) float64 {
	if len(readings) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range readings {
		sum += r.VibrationRMS
	}
	return sum / float64(len(readings))
}
