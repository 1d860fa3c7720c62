package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"motorwatch/config"
	"motorwatch/log"
	"motorwatch/models"
	"motorwatch/services"
)

func main() {
	// Initialize structured logger
	logger := log.GetInstance()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Threshold table and catalog are immutable after this point. A malformed
	// catalog is a startup failure, never a per-request one.
	thresholds, err := services.ThresholdsFromConfig(cfg)
	if err != nil {
		logger.Fatal("Invalid threshold configuration", zap.Error(err))
	}

	catalog := services.DefaultCatalog()
	if cfg.CatalogPath != "" {
		catalog, err = services.LoadCatalog(cfg.CatalogPath)
		if err != nil {
			logger.Fatal("Failed to load symptom/rule catalog",
				zap.String("path", cfg.CatalogPath),
				zap.Error(err))
		}
		logger.Info("Loaded symptom/rule catalog",
			zap.String("path", cfg.CatalogPath),
			zap.Int("symptoms", len(catalog.Symptoms)),
			zap.Int("rules", len(catalog.Rules)))
	}

	calculator := services.NewHealthScoreCalculator(thresholds)
	predictor := services.NewMLPredictorService(logger, cfg.MLServiceURL)
	if !predictor.Configured() {
		logger.Warn("ML_SERVICE_URL not set, failure predictions fall back to vibration-band heuristic")
	}

	// Telegram alerting is optional; the diagnostic core stays available
	// without it.
	var telegramService *services.TelegramService
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		telegramService, err = services.NewTelegramService(cfg, logger)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram service", zap.Error(err))
		}
		if err := telegramService.SendStartupMessage(); err != nil {
			logger.Warn("Failed to send startup message", zap.Error(err))
		}
	} else {
		logger.Warn("Telegram configuration missing, alerts disabled")
	}

	// Firebase persistence is optional as well.
	var firebaseService *services.FirebaseService
	if cfg.FirebaseDbUrl != "" && cfg.FirebaseServiceAccountJSON != "" {
		firebaseService, err = services.NewFirebaseService(cfg, logger)
		if err != nil {
			logger.Fatal("Failed to initialize Firebase service", zap.Error(err))
		}
		defer firebaseService.Close()
	} else {
		logger.Warn("Firebase configuration missing, reading persistence disabled")
	}

	logger.Info("motorwatch started",
		zap.Float64("vibration_warn", cfg.VibrationWarn),
		zap.Float64("vibration_crit", cfg.VibrationCrit),
		zap.Float64("motor_temp_warn", cfg.MotorTempWarn),
		zap.Float64("motor_temp_crit", cfg.MotorTempCrit),
		zap.Float64("bearing_temp_warn", cfg.BearingTempWarn),
		zap.Float64("bearing_temp_crit", cfg.BearingTempCrit),
		zap.Float64("current_warn", cfg.CurrentWarn),
		zap.Float64("current_crit", cfg.CurrentCrit),
		zap.Float64("power_factor_warn", cfg.PowerFactorWarn),
		zap.Float64("power_factor_crit", cfg.PowerFactorCrit),
		zap.Float64("dust_warn", cfg.DustWarn),
		zap.Float64("dust_crit", cfg.DustCrit),
	)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// HTTP API
	apiServer := services.NewAPIServer(logger, calculator, thresholds, catalog, predictor)
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: apiServer.Router(),
	}

	go func() {
		logger.Info("Starting HTTP API", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Ingestion pipeline over RabbitMQ.
	rabbitService, err := services.NewRabbitMQService(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize RabbitMQ service", zap.Error(err))
	}
	defer rabbitService.Close()

	snapshotChan := make(chan *models.SensorSnapshot, 100)
	heartbeatChan := make(chan *models.Heartbeat, 100)
	readingChan := make(chan *models.ScoredReading, 100)

	go func() {
		err := rabbitService.Consume(ctx, cfg.SensorQueue, func(body []byte) error {
			snapshot, err := models.DecodeSnapshot(body)
			if err != nil {
				return err
			}
			if snapshot.Timestamp.IsZero() {
				snapshot.Timestamp = time.Now()
			}
			select {
			case snapshotChan <- snapshot:
				return nil
			case <-ctx.Done():
				return nil
			}
		})
		if err != nil {
			logger.Error("Sensor consumer stopped", zap.Error(err))
		}
	}()

	go func() {
		err := rabbitService.Consume(ctx, cfg.HeartbeatQueue, func(body []byte) error {
			hb, err := decodeHeartbeat(body)
			if err != nil {
				return err
			}
			select {
			case heartbeatChan <- hb:
				return nil
			case <-ctx.Done():
				return nil
			}
		})
		if err != nil {
			logger.Error("Heartbeat consumer stopped", zap.Error(err))
		}
	}()

	livenessMonitor := services.NewLivenessMonitor(cfg, telegramService, logger)
	go livenessMonitor.Start(ctx, heartbeatChan)

	if firebaseService != nil {
		batchWriter := services.NewBatchWriterService(cfg, firebaseService, logger)
		go batchWriter.Start(ctx, readingChan)
	}

	// Processing loop: score each snapshot, alert on Critical, persist.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case snapshot, ok := <-snapshotChan:
				if !ok {
					return
				}
				processSnapshot(logger, calculator, telegramService, firebaseService, readingChan, snapshot)
			}
		}
	}()

	logger.Info("Monitoring started, waiting for sensor data")

	// Set up graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutdown signal received, stopping services")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown error", zap.Error(err))
	}

	logger.Info("motorwatch stopped")
}

func decodeHeartbeat(body []byte) (*models.Heartbeat, error) {
	var hb models.Heartbeat
	if err := json.Unmarshal(body, &hb); err != nil {
		return nil, fmt.Errorf("failed to unmarshal heartbeat: %w", err)
	}
	if hb.DeviceID == "" {
		return nil, fmt.Errorf("invalid heartbeat: missing device_id")
	}
	if hb.Timestamp.IsZero() {
		hb.Timestamp = time.Now()
	}
	return &hb, nil
}

func processSnapshot(
	logger *zap.Logger,
	calculator *services.HealthScoreCalculator,
	telegram *services.TelegramService,
	firebase *services.FirebaseService,
	readingChan chan<- *models.ScoredReading,
	snapshot *models.SensorSnapshot,
) {
	result := calculator.Compute(snapshot)

	logger.Info("Snapshot scored",
		zap.String("device_id", snapshot.DeviceID),
		zap.Int("score", result.Score),
		zap.String("category", string(result.Category)),
		zap.Int("factors", len(result.Factors)))

	if result.Category == models.CategoryCritical && telegram != nil {
		if err := telegram.SendHealthAlert(snapshot.DeviceID, result, snapshot); err != nil {
			logger.Error("Failed to send health alert",
				zap.String("device_id", snapshot.DeviceID),
				zap.Error(err))
		}
	}

	if firebase != nil {
		reading := &models.ScoredReading{
			DeviceID:  snapshot.DeviceID,
			Snapshot:  snapshot,
			Health:    result,
			Timestamp: snapshot.Timestamp,
		}
		select {
		case readingChan <- reading:
		default:
			logger.Warn("Reading channel full, dropping scored reading",
				zap.String("device_id", snapshot.DeviceID))
		}
	}
}
