// Package queue consumes external events from a redis list and feeds them
// into the event matching path.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Deliver hands one decoded external event to the matching path.
type Deliver func(ctx context.Context, name string, payload map[string]any) error

// message is the wire format pushed onto the redis list by producers.
type message struct {
	Name    string         `json:"name"`
	Payload map[string]any `json:"payload"`
}

// Consumer pops external events off a redis list with BLPOP and delivers
// them. Malformed entries are logged and dropped; the consumer keeps going.
type Consumer struct {
	Queue      string
	Connection map[string]string

	client  redis.UniversalClient
	deliver Deliver
	logger  *slog.Logger
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

func NewConsumer(config map[string]any, logger *slog.Logger) (*Consumer, error) {
	queue, _ := config["queue"].(string)
	if queue == "" {
		return nil, errors.New("queue consumer queue name is required")
	}

	connectionConfig, _ := config["connection"].(map[string]any)

	connection := make(map[string]string)
	for k, v := range connectionConfig {
		if str, ok := v.(string); ok {
			connection[k] = str
		}
	}

	return &Consumer{
		Queue:      queue,
		Connection: connection,
		stopCh:     make(chan struct{}),
		logger: logger.With(
			"module", "queue_consumer",
			"queue", queue,
		),
	}, nil
}

// Start connects to redis and begins the consume loop.
func (c *Consumer) Start(ctx context.Context, deliver Deliver) error {
	c.logger.InfoContext(ctx, "Starting queue consumer")
	c.deliver = deliver

	if err := c.initializeClient(ctx); err != nil {
		return fmt.Errorf("failed to initialize queue client: %w", err)
	}

	c.wg.Add(1)

	go c.consume(ctx)

	return nil
}

func (c *Consumer) initializeClient(ctx context.Context) error {
	addr := c.Connection["addr"]
	if addr == "" {
		addr = "localhost:6379"
	}

	db := 0

	if dbStr := c.Connection["db"]; dbStr != "" {
		var err error
		if db, err = strconv.Atoi(dbStr); err != nil {
			return fmt.Errorf("invalid db value: %w", err)
		}
	}

	c.client = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: c.Connection["password"],
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	c.logger.InfoContext(ctx, "Connected to Redis", "addr", addr, "db", db)

	return nil
}

func (c *Consumer) consume(ctx context.Context) {
	defer c.wg.Done()

	for {
		select {
		case <-c.stopCh:
			c.logger.InfoContext(ctx, "Queue consumer stopped")

			return
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "Context cancelled, stopping queue consumer")

			return
		default:
			if err := c.processMessage(ctx); err != nil {
				c.logger.ErrorContext(ctx, "Error processing message", "error", err)
				time.Sleep(1 * time.Second)
			}
		}
	}
}

func (c *Consumer) processMessage(ctx context.Context) error {
	result, err := c.client.BLPop(ctx, 1*time.Second, c.Queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}

		return fmt.Errorf("failed to pop message from queue: %w", err)
	}

	if len(result) < 2 {
		return nil
	}

	var msg message
	if err := json.Unmarshal([]byte(result[1]), &msg); err != nil || msg.Name == "" {
		c.logger.WarnContext(ctx, "Dropping malformed queue message", "message", result[1])

		return nil
	}

	if msg.Payload == nil {
		msg.Payload = map[string]any{}
	}

	if msg.Payload["received_at"] == nil {
		msg.Payload["received_at"] = time.Now().UTC().Format(time.RFC3339)
	}

	if err := c.deliver(ctx, msg.Name, msg.Payload); err != nil {
		c.logger.ErrorContext(ctx, "Error delivering queue event", "event_name", msg.Name, "error", err)
	}

	return nil
}

// Stop halts the consume loop and closes the redis connection.
func (c *Consumer) Stop(ctx context.Context) error {
	c.logger.InfoContext(ctx, "Stopping queue consumer")

	close(c.stopCh)
	c.wg.Wait()

	if c.client != nil {
		if err := c.client.Close(); err != nil {
			c.logger.ErrorContext(ctx, "Error closing Redis client", "error", err)
		}
	}

	return nil
}
