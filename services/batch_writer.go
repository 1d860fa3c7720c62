package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"motorwatch/config"
	"motorwatch/models"
)

// BatchWriterService buffers scored readings and flushes them to Firebase by
// size or timeout, so a chatty device does not mean one write per message.
type BatchWriterService struct {
	config          *config.Config
	firebaseService *FirebaseService
	logger          *zap.Logger
	buffer          []*models.ScoredReading
	bufferMutex     sync.Mutex
	maxBatchSize    int
	batchTimeout    time.Duration
}

// NewBatchWriterService creates a new batch writer service
func NewBatchWriterService(cfg *config.Config, firebaseService *FirebaseService, logger *zap.Logger) *BatchWriterService {
	return &BatchWriterService{
		config:          cfg,
		firebaseService: firebaseService,
		logger:          logger,
		buffer:          make([]*models.ScoredReading, 0, cfg.FirebaseBatchSize),
		maxBatchSize:    cfg.FirebaseBatchSize,
		batchTimeout:    time.Duration(cfg.FirebaseBatchTimeout) * time.Second,
	}
}

// Start consumes scored readings until the context is cancelled or the
// channel closes, draining the buffer on the way out.
func (bw *BatchWriterService) Start(ctx context.Context, readingChan <-chan *models.ScoredReading) {
	bw.logger.Info("Starting batch writer service",
		zap.Int("max_batch_size", bw.maxBatchSize),
		zap.Duration("batch_timeout", bw.batchTimeout))

	ticker := time.NewTicker(bw.batchTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			bw.logger.Info("Batch writer received shutdown signal")
			bw.flushBuffer(context.Background())
			return

		case reading, ok := <-readingChan:
			if !ok {
				bw.logger.Warn("Reading channel closed")
				bw.flushBuffer(context.Background())
				return
			}

			bw.bufferMutex.Lock()
			bw.buffer = append(bw.buffer, reading)
			currentSize := len(bw.buffer)
			bw.bufferMutex.Unlock()

			bw.logger.Debug("Added scored reading to buffer",
				zap.String("device_id", reading.DeviceID),
				zap.Int("buffer_size", currentSize),
				zap.Int("max_batch_size", bw.maxBatchSize))

			if currentSize >= bw.maxBatchSize {
				bw.flushBuffer(ctx)
			}

		case <-ticker.C:
			bw.flushBuffer(ctx)
		}
	}
}

// flushBuffer writes the buffered readings to Firebase and clears the buffer.
func (bw *BatchWriterService) flushBuffer(ctx context.Context) {
	bw.bufferMutex.Lock()
	if len(bw.buffer) == 0 {
		bw.bufferMutex.Unlock()
		return
	}
	batch := bw.buffer
	bw.buffer = make([]*models.ScoredReading, 0, bw.maxBatchSize)
	bw.bufferMutex.Unlock()

	if err := bw.firebaseService.SaveReadings(ctx, batch); err != nil {
		bw.logger.Error("Failed to flush batch to Firebase",
			zap.Int("batch_size", len(batch)),
			zap.Error(err))
		return
	}

	bw.logger.Info("Flushed batch to Firebase", zap.Int("batch_size", len(batch)))
}
