package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"motorwatch/config"
	"motorwatch/models"
)

// LivenessMonitor tracks device heartbeats and raises timeout/recovery
// alerts when a motor node goes silent.
type LivenessMonitor struct {
	config          *config.Config
	telegramService *TelegramService
	logger          *zap.Logger
	devices         map[string]*models.DeviceState
	mu              sync.RWMutex
}

// NewLivenessMonitor creates a heartbeat monitoring service. telegram may be
// nil; alerts are then log-only.
func NewLivenessMonitor(cfg *config.Config, telegram *TelegramService, logger *zap.Logger) *LivenessMonitor {
	return &LivenessMonitor{
		config:          cfg,
		telegramService: telegram,
		logger:          logger,
		devices:         make(map[string]*models.DeviceState),
	}
}

// Start begins processing heartbeats and sweeping for timeouts.
func (m *LivenessMonitor) Start(ctx context.Context, heartbeatChan <-chan *models.Heartbeat) {
	m.logger.Info("Starting liveness monitor",
		zap.String("queue", m.config.HeartbeatQueue),
		zap.Int("timeout_seconds", m.config.HeartbeatTimeout))

	go m.runTimeoutChecker(ctx)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Liveness monitor stopped")
			return
		case heartbeat, ok := <-heartbeatChan:
			if !ok {
				m.logger.Info("Heartbeat channel closed")
				return
			}
			m.updateHeartbeat(heartbeat)
		}
	}
}

// updateHeartbeat records a heartbeat and handles recovery transitions.
func (m *LivenessMonitor) updateHeartbeat(hb *models.Heartbeat) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deviceID := hb.DeviceID
	now := time.Now()

	device, exists := m.devices[deviceID]
	if !exists {
		device = &models.DeviceState{
			DeviceID: deviceID,
			Status:   models.DeviceHealthy,
		}
		m.devices[deviceID] = device
		m.logger.Info("New device registered for liveness monitoring",
			zap.String("device_id", deviceID))
	}

	wasTimeout := device.Status == models.DeviceTimeout

	device.LastHeartbeat = hb
	device.LastSeen = now
	device.Status = models.DeviceHealthy

	m.logger.Debug("Heartbeat received",
		zap.String("device_id", deviceID),
		zap.Bool("wifi_connected", hb.WiFiConnected),
		zap.Bool("mqtt_connected", hb.MQTTConnected),
		zap.Int64("uptime_ms", hb.UptimeMs),
		zap.Any("sensors", hb.Sensors))

	if wasTimeout {
		downDuration := now.Sub(device.TimeoutAt)
		m.logger.Info("Device recovered from timeout",
			zap.String("device_id", deviceID),
			zap.Duration("down_duration", downDuration))

		if m.telegramService != nil {
			if err := m.telegramService.SendRecoveryAlert(deviceID, downDuration); err != nil {
				m.logger.Error("Failed to send recovery alert",
					zap.String("device_id", deviceID),
					zap.Error(err))
			}
		}
	}
}

// runTimeoutChecker periodically checks for device timeouts
func (m *LivenessMonitor) runTimeoutChecker(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	m.logger.Info("Liveness timeout checker started")

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Liveness timeout checker stopped")
			return
		case <-ticker.C:
			m.checkTimeouts()
		}
	}
}

// checkTimeouts flags devices whose heartbeats stopped arriving.
func (m *LivenessMonitor) checkTimeouts() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	timeoutDuration := time.Duration(m.config.HeartbeatTimeout) * time.Second

	for deviceID, device := range m.devices {
		if device.Status == models.DeviceTimeout {
			continue
		}

		sinceLastSeen := now.Sub(device.LastSeen)
		if sinceLastSeen <= timeoutDuration {
			continue
		}

		m.logger.Warn("Device heartbeat timeout detected",
			zap.String("device_id", deviceID),
			zap.Time("last_seen", device.LastSeen),
			zap.Duration("time_since_last_seen", sinceLastSeen))

		device.Status = models.DeviceTimeout
		device.TimeoutAt = now

		if m.telegramService != nil {
			if err := m.telegramService.SendTimeoutAlert(deviceID, device.LastSeen, sinceLastSeen); err != nil {
				m.logger.Error("Failed to send timeout alert",
					zap.String("device_id", deviceID),
					zap.Error(err))
			}
		}
	}
}

// GetDeviceState returns the current liveness state of a device.
func (m *LivenessMonitor) GetDeviceState(deviceID string) (*models.DeviceState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	device, exists := m.devices[deviceID]
	return device, exists
}
