package services

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"motorwatch/models"
)

func newTestServer(t *testing.T, predictorURL string) *APIServer {
	t.Helper()
	thresholds := DefaultThresholds()
	return NewAPIServer(
		zap.NewNop(),
		NewHealthScoreCalculator(thresholds),
		thresholds,
		DefaultCatalog(),
		NewMLPredictorService(zap.NewNop(), predictorURL),
	)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthPredictionEndpoint(t *testing.T) {
	server := newTestServer(t, "")
	router := server.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/v1/health-prediction", map[string]interface{}{
		"sensorData": map[string]float64{
			"vibrationRms":     5.0,
			"motorSurfaceTemp": 90,
			"bearingTemp":      50,
			"motorCurrent":     3,
			"powerFactor":      0.95,
			"gridVoltage":      220,
			"gridFrequency":    50,
			"dustDensity":      0,
		},
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp healthPredictionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.True(t, resp.Success)
	assert.Equal(t, 55, resp.HealthScore.Score)
	assert.Equal(t, models.CategoryCritical, resp.HealthScore.Category)

	// No predictor configured: heuristic prediction, tagged as such.
	assert.Equal(t, MLStatusDisabled, resp.MLServiceStatus)
	require.NotNil(t, resp.MLPrediction)
	assert.Equal(t, models.SourceHeuristic, resp.MLPrediction.Source)
	assert.True(t, resp.MLPrediction.Classification.WillFailSoon)
	assert.Nil(t, resp.MLServiceError)
	assert.NotEmpty(t, resp.Timestamp)
}

func TestHealthPredictionAcceptsFieldAliases(t *testing.T) {
	server := newTestServer(t, "")
	router := server.Router()

	canonical := doJSON(t, router, http.MethodPost, "/api/v1/health-prediction", map[string]interface{}{
		"sensorData": map[string]float64{"vibrationRms": 5.0, "motorSurfaceTemp": 90},
	})
	aliased := doJSON(t, router, http.MethodPost, "/api/v1/health-prediction", map[string]interface{}{
		"sensorData": map[string]float64{"vibration": 5.0, "motorTemp": 90},
	})

	require.Equal(t, http.StatusOK, canonical.Code)
	require.Equal(t, http.StatusOK, aliased.Code)

	var canonicalResp, aliasedResp healthPredictionResponse
	require.NoError(t, json.Unmarshal(canonical.Body.Bytes(), &canonicalResp))
	require.NoError(t, json.Unmarshal(aliased.Body.Bytes(), &aliasedResp))

	assert.Equal(t, canonicalResp.HealthScore, aliasedResp.HealthScore)
}

func TestHealthPredictionScoreUnaffectedByMLFailure(t *testing.T) {
	// Predictor points at a closed server, so the ML call fails; the
	// health score must match a direct calculation.
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	backend.Close()

	server := newTestServer(t, backend.URL)
	router := server.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/v1/health-prediction", map[string]interface{}{
		"sensorData": map[string]float64{"vibrationRms": 3.5, "dustDensity": 200},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp healthPredictionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	vib, dust := 3.5, 200.0
	direct := NewHealthScoreCalculator(DefaultThresholds()).Compute(&models.SensorSnapshot{
		VibrationRMS: &vib,
		DustDensity:  &dust,
	})

	assert.True(t, resp.Success)
	assert.Equal(t, direct.Score, resp.HealthScore.Score)
	assert.Equal(t, direct.Category, resp.HealthScore.Category)
	assert.Equal(t, MLStatusUnavailable, resp.MLServiceStatus)
	assert.Nil(t, resp.MLPrediction)
	require.NotNil(t, resp.MLServiceError)
	assert.NotEmpty(t, *resp.MLServiceError)
}

func TestHealthPredictionUsesExplicitReadings(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req predictRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Readings, 2)
		w.Write([]byte(`{"classification":{"failure_probability":0.2},"regression":{"status":"Normal"},"readings_used":2}`))
	}))
	defer backend.Close()

	server := newTestServer(t, backend.URL)
	router := server.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/v1/health-prediction", map[string]interface{}{
		"vibrationReadings": []map[string]float64{
			{"vibration_rms": 2.0},
			{"vibration_rms": 2.4},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp healthPredictionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, MLStatusAvailable, resp.MLServiceStatus)
	require.NotNil(t, resp.MLPrediction)
	assert.Equal(t, models.SourceMLService, resp.MLPrediction.Source)
	assert.Equal(t, 2, resp.MLPrediction.ReadingsUsed)

	// No sensor data at all: the formula score stays at its healthy default.
	assert.Equal(t, 100, resp.HealthScore.Score)
}

func TestHealthPredictionRejectsBadJSON(t *testing.T) {
	server := newTestServer(t, "")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/health-prediction", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDiagnosisEndpoint(t *testing.T) {
	server := newTestServer(t, "")
	router := server.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/v1/diagnosis", map[string]interface{}{
		"answers": map[string]string{"1": "Yes", "3": "Yes"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp diagnosisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	require.Len(t, resp.Results, 2)
	assert.Equal(t, 1, resp.Results[0].RuleID)
	assert.Equal(t, 0.8, resp.Results[0].CertaintyFactor)
	require.NotNil(t, resp.Conclusion)
	assert.Equal(t, 55.0, resp.Conclusion.SeverityPercent)
	assert.Equal(t, models.FaultModerate, resp.Conclusion.SeverityLabel)
}

func TestDiagnosisEndpointNoAnswers(t *testing.T) {
	server := newTestServer(t, "")
	rec := doJSON(t, server.Router(), http.MethodPost, "/api/v1/diagnosis", map[string]interface{}{
		"answers": map[string]string{},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp diagnosisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.NotNil(t, resp.Results)
	assert.Empty(t, resp.Results)
	assert.Nil(t, resp.Conclusion)
}

func TestDiagnosisEndpointRejectsInvalidAnswer(t *testing.T) {
	server := newTestServer(t, "")
	rec := doJSON(t, server.Router(), http.MethodPost, "/api/v1/diagnosis", map[string]interface{}{
		"answers": map[string]string{"1": "Maybe"},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "No, Sometimes, or Yes")
}

func TestDiagnosisEndpointRejectsNonIntegerKey(t *testing.T) {
	server := newTestServer(t, "")
	rec := doJSON(t, server.Router(), http.MethodPost, "/api/v1/diagnosis", map[string]interface{}{
		"answers": map[string]string{"one": "Yes"},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCatalogEndpoint(t *testing.T) {
	server := newTestServer(t, "")
	rec := doJSON(t, server.Router(), http.MethodGet, "/api/v1/catalog", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Symptoms []models.Symptom `json:"symptoms"`
		Rules    []models.Rule    `json:"rules"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Len(t, resp.Symptoms, 8)
	assert.Len(t, resp.Rules, 6)
}

func TestThresholdsEndpoint(t *testing.T) {
	server := newTestServer(t, "")
	rec := doJSON(t, server.Router(), http.MethodGet, "/api/v1/thresholds", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Thresholds []ThresholdDefinition `json:"thresholds"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Thresholds, 6)
}

func TestHealthzEndpoint(t *testing.T) {
	server := newTestServer(t, "")
	rec := doJSON(t, server.Router(), http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}
