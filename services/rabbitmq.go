package services

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"motorwatch/config"
)

// RabbitMQService handles RabbitMQ connection and message consumption for the
// sensor snapshot and heartbeat queues.
type RabbitMQService struct {
	config    *config.Config
	conn      *amqp.Connection
	channel   *amqp.Channel
	logger    *zap.Logger
	reconnect chan bool
	isClosing bool
}

// NewRabbitMQService creates a new RabbitMQ service instance
func NewRabbitMQService(cfg *config.Config, logger *zap.Logger) (*RabbitMQService, error) {
	service := &RabbitMQService{
		config:    cfg,
		logger:    logger,
		reconnect: make(chan bool),
		isClosing: false,
	}

	if err := service.connect(); err != nil {
		return nil, err
	}

	return service, nil
}

// connect establishes the connection and declares the exchange and queues.
func (r *RabbitMQService) connect() error {
	var err error

	r.logger.Info("Connecting to RabbitMQ", zap.String("url", r.config.RabbitMQURL))

	maxRetries := 5
	for attempt := 1; attempt <= maxRetries; attempt++ {
		r.conn, err = amqp.Dial(r.config.RabbitMQURL)
		if err == nil {
			break
		}

		r.logger.Warn("Failed to connect to RabbitMQ",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", maxRetries),
			zap.Error(err))

		if attempt < maxRetries {
			time.Sleep(time.Duration(attempt) * 2 * time.Second)
		}
	}

	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", maxRetries, err)
	}

	r.logger.Info("Connected to RabbitMQ successfully")

	r.channel, err = r.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}

	// Prefetch 10 so a slow consumer does not hoard the queue.
	if err := r.channel.Qos(10, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	err = r.channel.ExchangeDeclare(
		r.config.RabbitMQExchange, // name
		"direct",                  // type
		true,                      // durable
		false,                     // auto-deleted
		false,                     // internal
		false,                     // no-wait
		nil,                       // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	for _, queueName := range []string{r.config.SensorQueue, r.config.HeartbeatQueue} {
		if err := r.declareAndBind(queueName); err != nil {
			return err
		}
	}

	// Setup connection close notification
	go r.handleReconnect()

	return nil
}

func (r *RabbitMQService) declareAndBind(queueName string) error {
	queue, err := r.channel.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", queueName, err)
	}

	// Routing key matches the queue name on both bindings.
	err = r.channel.QueueBind(queue.Name, queueName, r.config.RabbitMQExchange, false, nil)
	if err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", queueName, err)
	}

	// Bind to amq.topic as well so MQTT-bridged device messages land here.
	err = r.channel.QueueBind(queue.Name, queueName, "amq.topic", false, nil)
	if err != nil {
		return fmt.Errorf("failed to bind queue %s to MQTT exchange: %w", queueName, err)
	}

	r.logger.Info("Queue declared and bound",
		zap.String("queue", queue.Name),
		zap.String("exchange", r.config.RabbitMQExchange))

	return nil
}

// handleReconnect handles automatic reconnection when connection is lost
func (r *RabbitMQService) handleReconnect() {
	for {
		closeErr := <-r.conn.NotifyClose(make(chan *amqp.Error))
		if r.isClosing {
			r.logger.Info("RabbitMQ connection closed gracefully")
			return
		}

		r.logger.Error("RabbitMQ connection lost", zap.Error(closeErr))

		for {
			r.logger.Info("Attempting to reconnect to RabbitMQ...")
			err := r.connect()
			if err == nil {
				r.logger.Info("Successfully reconnected to RabbitMQ")
				r.reconnect <- true
				break
			}

			r.logger.Error("Failed to reconnect", zap.Error(err))
			time.Sleep(5 * time.Second)
		}
	}
}

// Consume reads messages from the named queue and passes each payload to the
// handler. A handler error nacks and requeues the message.
func (r *RabbitMQService) Consume(ctx context.Context, queueName string, handler func([]byte) error) error {
	for {
		msgs, err := r.channel.Consume(
			queueName,            // queue
			"motorwatch-service", // consumer tag
			false,                // auto-ack (false = manual ack)
			false,                // exclusive
			false,                // no-local
			false,                // no-wait
			nil,                  // args
		)
		if err != nil {
			return fmt.Errorf("failed to register consumer for %s: %w", queueName, err)
		}

		r.logger.Info("Started consuming messages from RabbitMQ",
			zap.String("queue", queueName))

	consumeLoop:
		for {
			select {
			case <-ctx.Done():
				r.logger.Info("Stopping RabbitMQ consumer", zap.String("queue", queueName))
				return nil

			case <-r.reconnect:
				r.logger.Info("Reconnection detected, restarting consumer",
					zap.String("queue", queueName))
				break consumeLoop

			case msg, ok := <-msgs:
				if !ok {
					r.logger.Warn("Message channel closed", zap.String("queue", queueName))
					time.Sleep(1 * time.Second)
					break consumeLoop
				}

				if err := handler(msg.Body); err != nil {
					r.logger.Error("Failed to process message",
						zap.String("queue", queueName),
						zap.Error(err),
						zap.String("message_id", msg.MessageId))

					// Negative acknowledgment - requeue the message
					msg.Nack(false, true)
				} else {
					msg.Ack(false)
				}
			}
		}
	}
}

// Publish publishes a message to the named queue (useful for testing).
func (r *RabbitMQService) Publish(queueName string, body []byte) error {
	err := r.channel.Publish(
		r.config.RabbitMQExchange, // exchange
		queueName,                 // routing key
		false,                     // mandatory
		false,                     // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	return nil
}

// Close gracefully closes RabbitMQ connection
func (r *RabbitMQService) Close() error {
	r.isClosing = true

	r.logger.Info("Closing RabbitMQ connection")

	if r.channel != nil {
		if err := r.channel.Close(); err != nil {
			r.logger.Error("Error closing channel", zap.Error(err))
		}
	}

	if r.conn != nil {
		if err := r.conn.Close(); err != nil {
			r.logger.Error("Error closing connection", zap.Error(err))
			return err
		}
	}

	r.logger.Info("RabbitMQ connection closed")
	return nil
}
