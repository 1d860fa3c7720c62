package services

import (
	"context"
	"fmt"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"motorwatch/config"
	"motorwatch/models"
)

// FirebaseService persists scored readings to the Realtime Database the
// dashboard reads from.
type FirebaseService struct {
	client *db.Client
	config *config.Config
	logger *zap.Logger
}

func NewFirebaseService(cfg *config.Config, logger *zap.Logger) (*FirebaseService, error) {
	ctx := context.Background()

	// Parse the service account JSON from environment variable
	serviceAccountJSON := []byte(cfg.FirebaseServiceAccountJSON)

	conf := &firebase.Config{
		DatabaseURL: cfg.FirebaseDbUrl,
	}

	opt := option.WithCredentialsJSON(serviceAccountJSON)
	app, err := firebase.NewApp(ctx, conf, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	client, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting database client: %w", err)
	}

	fs := &FirebaseService{
		client: client,
		config: cfg,
		logger: logger,
	}

	if err := fs.testConnection(); err != nil {
		logger.Error("Firebase connection test failed", zap.Error(err))
		return nil, fmt.Errorf("firebase connection test failed: %w", err)
	}

	return fs, nil
}

// testConnection tests Firebase connection with retry logic
func (fs *FirebaseService) testConnection() error {
	ctx := context.Background()
	maxRetries := 3

	for attempt := 1; attempt <= maxRetries; attempt++ {
		fs.logger.Info("Testing Firebase connection",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", maxRetries))

		ref := fs.client.NewRef("/")
		var data interface{}
		err := ref.Get(ctx, &data)

		if err == nil {
			fs.logger.Info("Firebase connection successful")
			return nil
		}

		fs.logger.Warn("Firebase connection failed",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", maxRetries),
			zap.Error(err))

		if attempt < maxRetries {
			time.Sleep(time.Duration(attempt) * time.Second)
		}
	}

	return fmt.Errorf("failed to connect to Firebase after %d attempts", maxRetries)
}

// SaveReadings pushes a batch of scored readings under motor-readings/.
func (fs *FirebaseService) SaveReadings(ctx context.Context, readings []*models.ScoredReading) error {
	ref := fs.client.NewRef("motor-readings")

	for _, reading := range readings {
		if _, err := ref.Push(ctx, reading); err != nil {
			return fmt.Errorf("error saving reading for %s: %w", reading.DeviceID, err)
		}
	}

	fs.logger.Debug("Saved scored readings to Firebase",
		zap.Int("count", len(readings)))

	return nil
}

// GetLatestReading returns the most recent scored reading for a device.
func (fs *FirebaseService) GetLatestReading(ctx context.Context, deviceID string) (*models.ScoredReading, error) {
	ref := fs.client.NewRef("motor-readings")

	var data map[string]models.ScoredReading
	if err := ref.Get(ctx, &data); err != nil {
		return nil, fmt.Errorf("error getting readings: %w", err)
	}

	var latest *models.ScoredReading
	var latestTime time.Time

	for _, reading := range data {
		if reading.DeviceID != deviceID {
			continue
		}
		if latest == nil || reading.Timestamp.After(latestTime) {
			r := reading
			latest = &r
			latestTime = reading.Timestamp
		}
	}

	if latest == nil {
		return nil, fmt.Errorf("no readings found for device %s", deviceID)
	}

	return latest, nil
}

// Close closes the Firebase connection
func (fs *FirebaseService) Close() error {
	fs.logger.Info("Closing Firebase service")
	// Firebase client doesn't require explicit closing but we log it
	return nil
}
