package messaging

import (
	"fmt"
	"sync"
	"time"

	"cafe-orders/internal/config"
	"cafe-orders/internal/logger"

	"github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeOrderEvents   = "order_events"
	QueueOrderEventsAudit = "order_events_audit"
)

// Connection wraps RabbitMQ connection with reconnection logic.
// mu guards conn and channel; publishes from concurrent requests go
// through withChannel.
type Connection struct {
	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
	logger  *logger.Logger
	url     string
}

// New creates a new RabbitMQ connection
func New(cfg *config.Config, log *logger.Logger) (*Connection, error) {
	conn := &Connection{
		logger: log,
		url:    cfg.RabbitMQURL(),
	}

	err := conn.connect()
	if err != nil {
		return nil, fmt.Errorf("failed to establish initial connection: %w", err)
	}

	return conn, nil
}

// connect establishes connection to RabbitMQ with retry logic
func (c *Connection) connect() error {
	maxRetries := 5
	var err error

	for i := 0; i < maxRetries; i++ {
		c.conn, err = amqp091.Dial(c.url)
		if err == nil {
			c.channel, err = c.conn.Channel()
			if err == nil {
				// Set up exchanges and queues
				if setupErr := c.setupTopology(); setupErr != nil {
					c.logger.Error("rabbitmq_setup_failed", "Failed to set up topology", "startup", setupErr, nil)
					c.close()
					err = setupErr
				} else {
					return nil
				}
			} else {
				c.conn.Close()
			}
		}

		if i < maxRetries-1 {
			waitTime := time.Duration(i+1) * 2 * time.Second
			c.logger.Error("rabbitmq_connection_failed",
				fmt.Sprintf("Failed to connect to RabbitMQ, retrying in %v", waitTime),
				"startup", err, nil)
			time.Sleep(waitTime)
		}
	}

	return fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", maxRetries, err)
}

// setupTopology declares the order_events exchange and the audit queue
func (c *Connection) setupTopology() error {
	err := c.channel.ExchangeDeclare(
		ExchangeOrderEvents, // name
		"topic",             // type
		true,                // durable
		false,               // auto-deleted
		false,               // internal
		false,               // no-wait
		nil,                 // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare %s exchange: %w", ExchangeOrderEvents, err)
	}

	_, err = c.channel.QueueDeclare(
		QueueOrderEventsAudit, // name
		true,                  // durable
		false,                 // delete when unused
		false,                 // exclusive
		false,                 // no-wait
		nil,                   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", QueueOrderEventsAudit, err)
	}

	err = c.channel.QueueBind(
		QueueOrderEventsAudit, // queue name
		"order.#",             // routing key
		ExchangeOrderEvents,   // exchange
		false,                 // no-wait
		nil,                   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", QueueOrderEventsAudit, err)
	}

	return nil
}

// Close closes the connection
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.close()
}

// close internal close method
func (c *Connection) close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsClosed checks if the connection is closed
func (c *Connection) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn == nil || c.conn.IsClosed()
}

// Reconnect attempts to reconnect to RabbitMQ
func (c *Connection) Reconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reconnect()
}

func (c *Connection) reconnect() error {
	c.close()
	return c.connect()
}

// withChannel runs fn on a live channel, reconnecting first if needed
func (c *Connection) withChannel(fn func(ch *amqp091.Channel) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || c.conn.IsClosed() || c.channel == nil || c.channel.IsClosed() {
		if err := c.reconnect(); err != nil {
			return fmt.Errorf("failed to reconnect: %w", err)
		}
	}
	return fn(c.channel)
}
