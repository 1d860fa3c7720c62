package models

import (
	"time"
)

// DeviceStatus represents the liveness state of a monitored motor node.
type DeviceStatus string

const (
	DeviceHealthy   DeviceStatus = "healthy"
	DeviceTimeout   DeviceStatus = "timeout"
	DeviceRecovered DeviceStatus = "recovered"
)

// SensorStatus reports which sensor heads on the device were responding when
// the heartbeat was sent.
type SensorStatus struct {
	Vibration   bool `json:"vibration"`
	Temperature bool `json:"temperature"`
	Current     bool `json:"current"`
	Dust        bool `json:"dust"`
}

// Heartbeat is the periodic liveness message from a motor node.
type Heartbeat struct {
	DeviceID      string       `json:"device_id"`
	Timestamp     time.Time    `json:"timestamp"`
	WiFiConnected bool         `json:"wifi_connected"`
	MQTTConnected bool         `json:"mqtt_connected"`
	UptimeMs      int64        `json:"uptime_ms"`
	Sensors       SensorStatus `json:"sensors"`
}

// DeviceState tracks the liveness of one device between heartbeats.
type DeviceState struct {
	DeviceID      string
	LastHeartbeat *Heartbeat
	LastSeen      time.Time
	Status        DeviceStatus
	TimeoutAt     time.Time // When the device timed out (if applicable)
}
