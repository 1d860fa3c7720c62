package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"motorwatch/config"
	"motorwatch/models"
)

// TelegramService delivers health and liveness alerts to the operations chat.
type TelegramService struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	config         *config.Config
	lastAlertTimes map[string]time.Time // Track last health alert time per device
	throttle       time.Duration
	logger         *zap.Logger
}

func NewTelegramService(cfg *config.Config, logger *zap.Logger) (*TelegramService, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("error creating telegram bot: %w", err)
	}

	chatID, err := strconv.ParseInt(cfg.TelegramChatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("error parsing chat ID: %w", err)
	}

	logger.Info("Telegram bot authorized", zap.String("username", bot.Self.UserName))

	ts := &TelegramService{
		bot:            bot,
		chatID:         chatID,
		config:         cfg,
		lastAlertTimes: make(map[string]time.Time),
		throttle:       time.Duration(cfg.AlertThrottleSeconds) * time.Second,
		logger:         logger,
	}

	if err := ts.testConnection(); err != nil {
		logger.Error("Telegram connection test failed", zap.Error(err))
		return nil, fmt.Errorf("telegram connection test failed: %w", err)
	}

	return ts, nil
}

// testConnection tests Telegram connection with retry logic
func (ts *TelegramService) testConnection() error {
	maxRetries := 3

	for attempt := 1; attempt <= maxRetries; attempt++ {
		ts.logger.Info("Testing Telegram connection",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", maxRetries))

		_, err := ts.bot.GetMe()
		if err == nil {
			ts.logger.Info("Telegram connection successful")
			return nil
		}

		ts.logger.Warn("Telegram connection failed",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", maxRetries),
			zap.Error(err))

		if attempt < maxRetries {
			time.Sleep(time.Duration(attempt) * time.Second)
		}
	}

	return fmt.Errorf("failed to connect to Telegram after %d attempts", maxRetries)
}

// SendStartupMessage announces that the service is up.
func (ts *TelegramService) SendStartupMessage() error {
	message := fmt.Sprintf("🟢 <b>motorwatch started</b>\n<i>%s</i>",
		time.Now().Format("2006-01-02 15:04:05"))
	return ts.send(message)
}

// SendHealthAlert notifies the chat that a motor's health score dropped into
// the Critical category, throttled per device.
func (ts *TelegramService) SendHealthAlert(deviceID string, result models.HealthScoreResult, snapshot *models.SensorSnapshot) error {
	if ts.shouldThrottle(deviceID) {
		ts.logger.Debug("Throttling health alert", zap.String("device_id", deviceID))
		return nil
	}

	message := ts.formatHealthMessage(deviceID, result, snapshot)
	if err := ts.send(message); err != nil {
		return err
	}

	ts.lastAlertTimes[deviceID] = time.Now()
	return nil
}

// SendTimeoutAlert notifies the chat that a device stopped sending heartbeats.
func (ts *TelegramService) SendTimeoutAlert(deviceID string, lastSeen time.Time, downFor time.Duration) error {
	message := fmt.Sprintf(
		"🔌 <b>Device offline</b>\n\n<b>Device:</b> %s\n<b>Last seen:</b> %s\n<b>Silent for:</b> %s",
		deviceID,
		lastSeen.Format("2006-01-02 15:04:05"),
		downFor.Round(time.Second))
	return ts.send(message)
}

// SendRecoveryAlert notifies the chat that a device resumed heartbeats.
func (ts *TelegramService) SendRecoveryAlert(deviceID string, downDuration time.Duration) error {
	message := fmt.Sprintf(
		"✅ <b>Device recovered</b>\n\n<b>Device:</b> %s\n<b>Downtime:</b> %s",
		deviceID,
		downDuration.Round(time.Second))
	return ts.send(message)
}

func (ts *TelegramService) send(message string) error {
	msg := tgbotapi.NewMessage(ts.chatID, message)
	msg.ParseMode = "HTML"
	msg.DisableWebPagePreview = true

	if _, err := ts.bot.Send(msg); err != nil {
		return fmt.Errorf("error sending telegram message: %w", err)
	}
	return nil
}

// shouldThrottle reports whether a health alert for this device was sent
// within the throttle window.
func (ts *TelegramService) shouldThrottle(deviceID string) bool {
	last, ok := ts.lastAlertTimes[deviceID]
	if !ok {
		return false
	}
	return time.Since(last) < ts.throttle
}

func (ts *TelegramService) formatHealthMessage(deviceID string, result models.HealthScoreResult, snapshot *models.SensorSnapshot) string {
	var sb strings.Builder

	sb.WriteString("🔴 <b>Motor health critical</b>\n\n")
	sb.WriteString(fmt.Sprintf("<b>Device:</b> %s\n", deviceID))
	sb.WriteString(fmt.Sprintf("<b>Health score:</b> %d/100 (%s)\n", result.Score, result.Category))

	if len(result.Factors) > 0 {
		sb.WriteString("\n<b>Contributing factors:</b>\n")
		for _, f := range result.Factors {
			sb.WriteString(fmt.Sprintf("%s %s: %.2f (-%g points)\n",
				statusEmoji(f.Status), f.Parameter, f.Value, f.Penalty))
		}
	}

	if !snapshot.Timestamp.IsZero() {
		sb.WriteString(fmt.Sprintf("\n<i>%s</i>", snapshot.Timestamp.Format("2006-01-02 15:04:05")))
	}

	return sb.String()
}

func statusEmoji(level models.StatusLevel) string {
	switch level {
	case models.StatusCritical:
		return "🔴"
	case models.StatusWarning:
		return "🟡"
	default:
		return "🟢"
	}
}
