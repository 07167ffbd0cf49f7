package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultConsumerQueueName is the durable queue the application process reads.
const DefaultConsumerQueueName = "logmyjob.app"

// RabbitMQConsumerConfig configures the RabbitMQ consumer.
type RabbitMQConsumerConfig struct {
	URL       string
	QueueName string
	Logger    *slog.Logger
}

// RabbitMQConsumer consumes envelopes from a durable queue bound to the
// message exchange. Messages are acked only after every handler succeeded.
type RabbitMQConsumer struct {
	conn      *amqp.Connection
	channel   *amqp.Channel
	queue     string
	registry  *Registry
	logger    *slog.Logger
	mu        sync.Mutex
	running   bool
	closeChan chan struct{}
	closeOnce sync.Once
}

// NewRabbitMQConsumer dials the broker and declares the consumer queue.
func NewRabbitMQConsumer(cfg RabbitMQConsumerConfig) (*RabbitMQConsumer, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.QueueName == "" {
		cfg.QueueName = DefaultConsumerQueueName
	}

	conn, ch, err := dialExchange(cfg.URL, ExchangeName)
	if err != nil {
		return nil, err
	}

	if _, err := ch.QueueDeclare(cfg.QueueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	cfg.Logger.Info("RabbitMQ consumer connected", "queue", cfg.QueueName, "exchange", ExchangeName)

	return &RabbitMQConsumer{
		conn:      conn,
		channel:   ch,
		queue:     cfg.QueueName,
		registry:  NewRegistry(cfg.Logger),
		logger:    cfg.Logger,
		closeChan: make(chan struct{}),
	}, nil
}

// RegisterHandler registers h and binds the queue to each of its types.
func (c *RabbitMQConsumer) RegisterHandler(h Handler) {
	c.registry.Register(h)

	for _, t := range h.MessageTypes() {
		key := t
		if key == Wildcard {
			key = "#"
		}
		c.mu.Lock()
		err := c.channel.QueueBind(c.queue, key, ExchangeName, false, nil)
		c.mu.Unlock()
		if err != nil {
			c.logger.Error("failed to bind queue", "routing_key", key, "error", err)
		}
	}
}

// Start consumes one message at a time until ctx is done or Close is called.
func (c *RabbitMQConsumer) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("consumer already running")
	}
	c.running = true
	c.mu.Unlock()

	if err := c.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := c.channel.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info("started consuming messages", "queue", c.queue)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.closeChan:
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed unexpectedly")
			}
			if err := c.process(ctx, msg); err != nil {
				// requeue so a relayed mutation is never lost
				if nackErr := msg.Nack(false, true); nackErr != nil {
					c.logger.Error("failed to nack message", "error", nackErr)
				}
				continue
			}
			if ackErr := msg.Ack(false); ackErr != nil {
				c.logger.Error("failed to ack message", "error", ackErr)
			}
		}
	}
}

func (c *RabbitMQConsumer) process(ctx context.Context, msg amqp.Delivery) error {
	env := &Envelope{}
	if err := json.Unmarshal(msg.Body, env); err != nil {
		// undecodable: ack and drop, redelivery cannot fix it
		c.logger.Error("failed to unmarshal envelope", "routing_key", msg.RoutingKey, "error", err)
		return nil
	}
	if env.Type == "" {
		env.Type = msg.RoutingKey
	}
	return c.registry.Dispatch(ctx, env)
}

// Close stops Start and closes the connection.
func (c *RabbitMQConsumer) Close() error {
	c.closeOnce.Do(func() { close(c.closeChan) })

	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false

	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			c.logger.Warn("error closing channel", "error", err)
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			return err
		}
	}

	c.logger.Info("RabbitMQ consumer closed")
	return nil
}
