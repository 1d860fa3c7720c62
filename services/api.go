package services

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"motorwatch/models"
)

// APIServer exposes the diagnostic core over HTTP for the dashboard.
type APIServer struct {
	logger     *zap.Logger
	calculator *HealthScoreCalculator
	thresholds *ThresholdTable
	catalog    *Catalog
	predictor  *MLPredictorService
}

func NewAPIServer(logger *zap.Logger, calculator *HealthScoreCalculator, thresholds *ThresholdTable, catalog *Catalog, predictor *MLPredictorService) *APIServer {
	return &APIServer{
		logger:     logger,
		calculator: calculator,
		thresholds: thresholds,
		catalog:    catalog,
		predictor:  predictor,
	}
}

// Router builds the chi router for the API.
func (s *APIServer) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/health-prediction", s.handleHealthPrediction)
		r.Post("/diagnosis", s.handleDiagnosis)
		r.Get("/catalog", s.handleCatalog)
		r.Get("/thresholds", s.handleThresholds)
	})

	return r
}

type healthPredictionRequest struct {
	VibrationReadings []models.VibrationReading `json:"vibrationReadings"`
	SensorData        json.RawMessage           `json:"sensorData"`
}

type healthPredictionResponse struct {
	Success         bool                     `json:"success"`
	HealthScore     models.HealthScoreResult `json:"healthScore"`
	MLPrediction    *models.MLPrediction     `json:"mlPrediction"`
	MLServiceStatus string                   `json:"mlServiceStatus"`
	MLServiceError  *string                  `json:"mlServiceError"`
	Timestamp       string                   `json:"timestamp"`
}

// handleHealthPrediction computes the formula-based health score and attaches
// the failure prediction. The ML portion never fails the request: it degrades
// to a status flag and error string with the health score intact.
func (s *APIServer) handleHealthPrediction(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "cannot read request body")
		return
	}
	defer r.Body.Close()

	var req healthPredictionRequest
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			s.writeError(w, http.StatusBadRequest, "cannot parse JSON body")
			return
		}
	}

	snapshot := &models.SensorSnapshot{}
	if len(req.SensorData) > 0 {
		snapshot, err = models.NormalizeSnapshot(req.SensorData)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "cannot parse sensorData")
			return
		}
	}

	healthScore := s.calculator.Compute(snapshot)

	readings := req.VibrationReadings
	if len(readings) == 0 {
		if v, ok := snapshot.Value(models.ParamVibrationRMS); ok {
			readings = []models.VibrationReading{{VibrationRMS: v}}
		}
	}

	prediction, status, errMsg := s.predictor.Predict(r.Context(), readings)

	resp := healthPredictionResponse{
		Success:         true,
		HealthScore:     healthScore,
		MLPrediction:    prediction,
		MLServiceStatus: status,
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
	}
	if errMsg != "" {
		resp.MLServiceError = &errMsg
	}

	s.writeJSON(w, http.StatusOK, resp)
}

type diagnosisRequest struct {
	Answers map[string]models.Answer `json:"answers"`
}

type diagnosisResponse struct {
	Results    []models.DiagnosisResult `json:"results"`
	Conclusion *models.Conclusion       `json:"conclusion"`
}

// handleDiagnosis runs the certainty-factor expert system over the answers.
func (s *APIServer) handleDiagnosis(w http.ResponseWriter, r *http.Request) {
	var req diagnosisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "cannot parse JSON body")
		return
	}
	defer r.Body.Close()

	answers := make(map[int]models.Answer, len(req.Answers))
	for key, answer := range req.Answers {
		id, err := strconv.Atoi(key)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "symptom ids must be integers")
			return
		}
		if _, ok := answer.CertaintyFactor(); !ok {
			s.writeError(w, http.StatusBadRequest, "answers must be No, Sometimes, or Yes")
			return
		}
		answers[id] = answer
	}

	results, conclusion := RunDiagnosis(answers, s.catalog)
	if results == nil {
		results = []models.DiagnosisResult{}
	}

	s.logger.Debug("Diagnosis completed",
		zap.Int("answers", len(answers)),
		zap.Int("fired_rules", len(results)))

	s.writeJSON(w, http.StatusOK, diagnosisResponse{Results: results, Conclusion: conclusion})
}

// handleCatalog returns the symptom and rule catalogs for the questionnaire.
func (s *APIServer) handleCatalog(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"symptoms": s.catalog.Symptoms,
		"rules":    s.catalog.Rules,
	})
}

// handleThresholds returns the threshold table for dashboard color-coding.
func (s *APIServer) handleThresholds(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"thresholds": s.thresholds.Definitions(),
	})
}

func (s *APIServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *APIServer) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *APIServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
