package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"motorwatch/config"
	"motorwatch/models"
)

func newLivenessMonitor(timeoutSeconds int) *LivenessMonitor {
	cfg := &config.Config{
		HeartbeatQueue:   "heartbeat_queue",
		HeartbeatTimeout: timeoutSeconds,
	}
	return NewLivenessMonitor(cfg, nil, zap.NewNop())
}

func TestUpdateHeartbeatRegistersDevice(t *testing.T) {
	monitor := newLivenessMonitor(60)

	monitor.updateHeartbeat(&models.Heartbeat{
		DeviceID:      "MOTOR-001",
		Timestamp:     time.Now(),
		WiFiConnected: true,
		MQTTConnected: true,
	})

	state, ok := monitor.GetDeviceState("MOTOR-001")
	require.True(t, ok)
	assert.Equal(t, models.DeviceHealthy, state.Status)
	assert.NotNil(t, state.LastHeartbeat)

	_, ok = monitor.GetDeviceState("MOTOR-999")
	assert.False(t, ok)
}

func TestCheckTimeoutsFlagsSilentDevice(t *testing.T) {
	monitor := newLivenessMonitor(60)

	monitor.updateHeartbeat(&models.Heartbeat{DeviceID: "MOTOR-001"})

	// Backdate the last heartbeat past the timeout window.
	monitor.mu.Lock()
	monitor.devices["MOTOR-001"].LastSeen = time.Now().Add(-2 * time.Minute)
	monitor.mu.Unlock()

	monitor.checkTimeouts()

	state, ok := monitor.GetDeviceState("MOTOR-001")
	require.True(t, ok)
	assert.Equal(t, models.DeviceTimeout, state.Status)
	assert.False(t, state.TimeoutAt.IsZero())
}

func TestCheckTimeoutsIgnoresFreshDevice(t *testing.T) {
	monitor := newLivenessMonitor(60)

	monitor.updateHeartbeat(&models.Heartbeat{DeviceID: "MOTOR-001"})
	monitor.checkTimeouts()

	state, ok := monitor.GetDeviceState("MOTOR-001")
	require.True(t, ok)
	assert.Equal(t, models.DeviceHealthy, state.Status)
}

func TestHeartbeatAfterTimeoutMarksRecovery(t *testing.T) {
	monitor := newLivenessMonitor(60)

	monitor.updateHeartbeat(&models.Heartbeat{DeviceID: "MOTOR-001"})

	monitor.mu.Lock()
	monitor.devices["MOTOR-001"].LastSeen = time.Now().Add(-2 * time.Minute)
	monitor.mu.Unlock()
	monitor.checkTimeouts()

	state, _ := monitor.GetDeviceState("MOTOR-001")
	require.Equal(t, models.DeviceTimeout, state.Status)

	monitor.updateHeartbeat(&models.Heartbeat{DeviceID: "MOTOR-001"})

	state, ok := monitor.GetDeviceState("MOTOR-001")
	require.True(t, ok)
	assert.Equal(t, models.DeviceHealthy, state.Status)
}
