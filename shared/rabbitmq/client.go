package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publish outcome errors. Callers decide delivery semantics from these.
var (
	// ErrNotConfirmed means the broker nacked the message; it was not
	// enqueued and can be retried safely.
	ErrNotConfirmed = errors.New("broker rejected message")
	// ErrConfirmTimeout means the confirm never arrived; the message may
	// or may not have been enqueued.
	ErrConfirmTimeout = errors.New("timed out waiting for broker confirm")
	// ErrUnroutable means the broker returned the mandatory message; it
	// was definitively not delivered to any queue.
	ErrUnroutable = errors.New("message unroutable")
)

// Config holds RabbitMQ connection configuration
type Config struct {
	Host              string
	Port              int
	User              string
	Password          string
	VHost             string
	ExchangeName      string
	ExchangeType      string
	QueueName         string
	RoutingKey        string
	RetryAttempts     int
	RetryInterval     time.Duration
	Heartbeat         time.Duration
	ConfirmTimeout    time.Duration
}

// Client is a confirm-mode RabbitMQ publisher. Every publish is mandatory and
// waits for the broker's confirm, so the caller learns whether the message
// reached a queue.
type Client struct {
	config      *Config
	conn        *amqp.Connection
	channel     *amqp.Channel
	logger      *slog.Logger
	isConnected bool

	mu       sync.Mutex
	returned map[string]chan struct{}
}

// NewClient creates a new RabbitMQ client
func NewClient(config *Config, logger *slog.Logger) (*Client, error) {
	client := &Client{
		config:   config,
		logger:   logger,
		returned: make(map[string]chan struct{}),
	}

	if err := client.connect(); err != nil {
		return nil, fmt.Errorf("failed to create RabbitMQ client: %w", err)
	}

	return client, nil
}

// connect establishes connection to RabbitMQ with retry logic
func (c *Client) connect() error {
	var err error

	dsn := fmt.Sprintf("amqp://%s:%s@%s:%d%s",
		c.config.User,
		c.config.Password,
		c.config.Host,
		c.config.Port,
		c.config.VHost,
	)

	amqpConfig := amqp.Config{
		Heartbeat: c.config.Heartbeat,
		Locale:    "en_US",
	}

	for attempt := 1; attempt <= c.config.RetryAttempts; attempt++ {
		c.logger.Info("Connecting to RabbitMQ",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", c.config.RetryAttempts),
		)

		c.conn, err = amqp.DialConfig(dsn, amqpConfig)
		if err == nil {
			c.logger.Info("Successfully connected to RabbitMQ")
			break
		}

		c.logger.Error("Failed to connect to RabbitMQ",
			slog.Any("error", err),
			slog.Int("attempt", attempt),
		)

		if attempt < c.config.RetryAttempts {
			time.Sleep(c.config.RetryInterval)
		}
	}

	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", c.config.RetryAttempts, err)
	}

	c.channel, err = c.conn.Channel()
	if err != nil {
		c.conn.Close()
		return fmt.Errorf("failed to create channel: %w", err)
	}

	if err := c.channel.Confirm(false); err != nil {
		c.channel.Close()
		c.conn.Close()
		return fmt.Errorf("failed to put channel in confirm mode: %w", err)
	}

	if err := c.setup(); err != nil {
		c.channel.Close()
		c.conn.Close()
		return fmt.Errorf("failed to setup exchange and queue: %w", err)
	}

	go c.drainReturns(c.channel.NotifyReturn(make(chan amqp.Return)))
	c.isConnected = true

	c.logger.Info("RabbitMQ client initialized",
		slog.String("exchange", c.config.ExchangeName),
		slog.String("queue", c.config.QueueName),
	)

	return nil
}

// setup declares exchange, queue, and bindings
func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.config.ExchangeName, // name
		c.config.ExchangeType, // type
		true,                  // durable
		false,                 // auto-deleted
		false,                 // internal
		false,                 // no-wait
		nil,                   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.config.QueueName, // name
		true,               // durable
		false,              // auto-delete
		false,              // exclusive
		false,              // no-wait
		nil,                // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	err = c.channel.QueueBind(
		c.config.QueueName,    // queue name
		c.config.RoutingKey,   // routing key
		c.config.ExchangeName, // exchange
		false,                 // no-wait
		nil,                   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	return nil
}

// drainReturns records basic.return frames so PublishConfirmed can tell an
// acked-but-unroutable message apart from a delivered one.
func (c *Client) drainReturns(returns <-chan amqp.Return) {
	for ret := range returns {
		c.mu.Lock()
		if ch, ok := c.returned[ret.MessageId]; ok {
			close(ch)
			delete(c.returned, ret.MessageId)
		}
		c.mu.Unlock()

		c.logger.Warn("Message returned by broker",
			slog.String("message_id", ret.MessageId),
			slog.String("routing_key", ret.RoutingKey),
			slog.String("reply_text", ret.ReplyText),
		)
	}
}

// PublishConfirmed publishes a mandatory, persistent message and waits for
// the broker confirm. The error distinguishes the three outcomes that matter
// to delivery bookkeeping: nacked (retry), confirm timeout (unknown), and
// unroutable (definitely not delivered).
func (c *Client) PublishConfirmed(ctx context.Context, body []byte, contentType string) error {
	if !c.isConnected {
		return fmt.Errorf("not connected to RabbitMQ")
	}

	messageID := uuid.NewString()
	returnCh := make(chan struct{})
	c.mu.Lock()
	c.returned[messageID] = returnCh
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.returned, messageID)
		c.mu.Unlock()
	}()

	confirm, err := c.channel.PublishWithDeferredConfirmWithContext(
		ctx,
		c.config.ExchangeName, // exchange
		c.config.RoutingKey,   // routing key
		true,                  // mandatory
		false,                 // immediate
		amqp.Publishing{
			ContentType:  contentType,
			Body:         body,
			DeliveryMode: amqp.Persistent,
			MessageId:    messageID,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		c.logger.Error("Failed to publish message to RabbitMQ",
			slog.Any("error", err),
		)
		return fmt.Errorf("failed to publish message: %w", err)
	}

	confirmTimeout := c.config.ConfirmTimeout
	if confirmTimeout <= 0 {
		confirmTimeout = 5 * time.Second
	}
	waitCtx, cancel := context.WithTimeout(ctx, confirmTimeout)
	defer cancel()

	acked, err := confirm.WaitContext(waitCtx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfirmTimeout, err)
	}
	if !acked {
		return ErrNotConfirmed
	}

	// A return for a mandatory message arrives before its ack, so a brief
	// window is enough to observe it.
	select {
	case <-returnCh:
		return ErrUnroutable
	case <-time.After(20 * time.Millisecond):
	}

	c.logger.Debug("Message published to RabbitMQ",
		slog.Int("body_size", len(body)),
		slog.String("content_type", contentType),
	)
	return nil
}

// Close closes the RabbitMQ connection
func (c *Client) Close() error {
	c.logger.Info("Closing RabbitMQ connection")

	c.isConnected = false

	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			c.logger.Error("Failed to close RabbitMQ channel",
				slog.Any("error", err),
			)
		}
	}

	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.logger.Error("Failed to close RabbitMQ connection",
				slog.Any("error", err),
			)
			return err
		}
	}

	c.logger.Info("RabbitMQ connection closed successfully")
	return nil
}

// IsConnected returns the connection status
func (c *Client) IsConnected() bool {
	return c.isConnected && c.conn != nil && !c.conn.IsClosed()
}
