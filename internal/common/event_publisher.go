package common

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// EventPublisher delivers named sync events to outside subscribers
type EventPublisher interface {
	Publish(ctx context.Context, name string, payload any) error
}

// Event is the envelope written to every backend
type Event struct {
	Name       string    `json:"name"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

// LogEventPublisher writes events to the log only
type LogEventPublisher struct {
	logger *zap.SugaredLogger
}

func NewLogEventPublisher(logger *zap.SugaredLogger) *LogEventPublisher {
	return &LogEventPublisher{logger: logger.Named("Events")}
}

func (p *LogEventPublisher) Publish(_ context.Context, name string, payload any) error {
	p.logger.Debugw("event published", "event", name, "payload", payload)
	return nil
}

// RedisEventPublisher appends events to a Redis stream
type RedisEventPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewRedisEventPublisher(client *redis.Client, stream string) *RedisEventPublisher {
	return &RedisEventPublisher{client: client, stream: stream, maxLen: 10000}
}

// Publish adds the event with XADD stream MAXLEN ~ n * data <json>
func (p *RedisEventPublisher) Publish(ctx context.Context, name string, payload any) error {
	data, err := json.Marshal(Event{Name: name, OccurredAt: time.Now().UTC(), Payload: payload})
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", name, err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"event": name,
			"data":  string(data),
		},
	}
	if _, err := p.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to add to stream: %w", err)
	}
	return nil
}
