package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"motorwatch/models"
)

var (
	rps        = flag.Int("rps", 1, "Messages per second to publish")
	deviceID   = flag.String("device", "MOTOR-MOCK-001", "Device ID for mock data")
	anomaly    = flag.Float64("anomaly", 0.1, "Probability of anomaly (0.0-1.0)")
	mqttBroker = flag.String("broker", "localhost:1883", "MQTT broker address (host:port)")
	mqttUser   = flag.String("user", "motorwatch", "MQTT username")
	mqttPass   = flag.String("pass", "motorwatch2024", "MQTT password")
	mqttTopic  = flag.String("topic", "motor_data_queue", "MQTT topic to publish to")
)

type MockDataGenerator struct {
	deviceID         string
	anomalyProbility float64
	baseVibration    float64
	baseMotorTemp    float64
	baseBearingTemp  float64
	baseCurrent      float64
	logger           *zap.Logger
}

func NewMockDataGenerator(deviceID string, anomalyProb float64, logger *zap.Logger) *MockDataGenerator {
	return &MockDataGenerator{
		deviceID:         deviceID,
		anomalyProbility: anomalyProb,
		baseVibration:    1.6,  // Healthy induction motor ~1.6 mm/s RMS
		baseMotorTemp:    55.0, // Casing ~55°C under load
		baseBearingTemp:  45.0,
		baseCurrent:      3.2,
		logger:           logger,
	}
}

// GenerateSnapshot generates a realistic motor sensor snapshot.
func (m *MockDataGenerator) GenerateSnapshot() *models.SensorSnapshot {
	now := time.Now()

	// Determine if this should be an anomaly
	isAnomaly := rand.Float64() < m.anomalyProbility

	vibration := m.baseVibration + rand.Float64()*0.8 - 0.4
	if isAnomaly {
		if rand.Float64() < 0.5 {
			vibration = 4.6 + rand.Float64()*2.0 // critical band
		} else {
			vibration = 3.0 + rand.Float64()*1.2 // warning band
		}
	}

	motorTemp := m.baseMotorTemp + rand.Float64()*6.0 - 3.0
	if isAnomaly && rand.Float64() < 0.5 {
		motorTemp = 86.0 + rand.Float64()*8.0
	}

	bearingTemp := m.baseBearingTemp + rand.Float64()*6.0 - 3.0
	if isAnomaly && rand.Float64() < 0.3 {
		bearingTemp = 81.0 + rand.Float64()*6.0
	}

	current := m.baseCurrent + rand.Float64()*0.6 - 0.3
	if isAnomaly && rand.Float64() < 0.3 {
		current = 6.6 + rand.Float64()*1.0
	}

	powerFactor := 0.92 + rand.Float64()*0.04 - 0.02
	if isAnomaly && rand.Float64() < 0.2 {
		powerFactor = 0.60 + rand.Float64()*0.15
	}

	dust := 20.0 + rand.Float64()*15.0
	if isAnomaly && rand.Float64() < 0.2 {
		dust = 150.0 + rand.Float64()*60.0
	}

	voltage := 220.0 + rand.Float64()*6.0 - 3.0
	if isAnomaly && rand.Float64() < 0.2 {
		voltage = 185.0 + rand.Float64()*8.0
	}

	frequency := 50.0 + rand.Float64()*0.4 - 0.2
	if isAnomaly && rand.Float64() < 0.1 {
		frequency = 48.5 + rand.Float64()*0.4
	}

	return &models.SensorSnapshot{
		DeviceID:      m.deviceID,
		VibrationRMS:  ptr(round2(vibration)),
		MotorTemp:     ptr(round1(motorTemp)),
		BearingTemp:   ptr(round1(bearingTemp)),
		MotorCurrent:  ptr(round2(current)),
		PowerFactor:   ptr(round2(powerFactor)),
		DustDensity:   ptr(round1(dust)),
		GridVoltage:   ptr(round1(voltage)),
		GridFrequency: ptr(round2(frequency)),
		Timestamp:     now,
	}
}

func ptr(v float64) *float64 { return &v }

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }

func main() {
	flag.Parse()

	// Initialize logger
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	logger.Info("Motor mock data generator started",
		zap.String("device_id", *deviceID),
		zap.Int("rps", *rps),
		zap.Float64("anomaly_probability", *anomaly),
		zap.String("mqtt_broker", *mqttBroker),
		zap.String("mqtt_topic", *mqttTopic),
	)
	logger.Info("Press Ctrl+C to stop gracefully")

	// Initialize MQTT client (simulating the motor node firmware)
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", *mqttBroker))
	opts.SetClientID(fmt.Sprintf("%s-generator", *deviceID))
	opts.SetUsername(*mqttUser)
	opts.SetPassword(*mqttPass)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)

	opts.OnConnect = func(client mqtt.Client) {
		logger.Info("Connected to MQTT broker",
			zap.String("broker", *mqttBroker))
	}

	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		logger.Error("MQTT connection lost", zap.Error(err))
	}

	mqttClient := mqtt.NewClient(opts)
	if token := mqttClient.Connect(); token.Wait() && token.Error() != nil {
		logger.Fatal("Failed to connect to MQTT broker", zap.Error(token.Error()))
	}
	defer mqttClient.Disconnect(250)

	mockGen := NewMockDataGenerator(*deviceID, *anomaly, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, stopping generator")
		cancel()
	}()

	interval := time.Second / time.Duration(*rps)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("Starting to generate mock data",
		zap.Duration("interval", interval),
		zap.String("rate", fmt.Sprintf("%d msg/s", *rps)))

	messageCount := 0
	anomalyCount := 0
	startTime := time.Now()

	statsTicker := time.NewTicker(60 * time.Second)
	defer statsTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			elapsed := time.Since(startTime)
			avgRate := float64(messageCount) / elapsed.Seconds()

			logger.Info("Shutting down gracefully",
				zap.Int("total_messages", messageCount),
				zap.Int("anomalies_generated", anomalyCount),
				zap.Duration("total_uptime", elapsed),
				zap.Float64("avg_rate", avgRate),
			)

			mqttClient.Disconnect(250)
			logger.Info("Shutdown complete")
			return

		case <-ticker.C:
			snapshot := mockGen.GenerateSnapshot()

			// Track anomalies for the periodic statistics
			isAnomaly := *snapshot.VibrationRMS > 2.8 ||
				*snapshot.MotorTemp > 70 ||
				*snapshot.BearingTemp > 60 ||
				*snapshot.MotorCurrent > 5.0 ||
				*snapshot.PowerFactor < 0.85 ||
				*snapshot.DustDensity > 100

			if isAnomaly {
				anomalyCount++
			}

			payload, err := json.Marshal(snapshot)
			if err != nil {
				logger.Error("Failed to marshal snapshot", zap.Error(err))
				continue
			}

			token := mqttClient.Publish(*mqttTopic, 1, false, payload)
			if token.Wait() && token.Error() != nil {
				logger.Error("Failed to publish snapshot", zap.Error(token.Error()))
				continue
			}

			messageCount++
			logger.Debug("Published snapshot",
				zap.Int("count", messageCount),
				zap.Float64("vibration_rms", *snapshot.VibrationRMS),
				zap.Float64("motor_temp", *snapshot.MotorTemp))

		case <-statsTicker.C:
			elapsed := time.Since(startTime)
			logger.Info("Generator statistics",
				zap.Int("messages_sent", messageCount),
				zap.Int("anomalies_generated", anomalyCount),
				zap.Duration("uptime", elapsed),
				zap.Float64("avg_rate", float64(messageCount)/elapsed.Seconds()))
		}
	}
}
