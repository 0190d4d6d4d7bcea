// Package consumer turns survey change events from a Redis Stream into month
// recomputes.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	rediscommon "eldercare-survey/internal/common/redis"
	"eldercare-survey/internal/events"
)

// Recomputer rebuilds derived rollups. A month is always recomputed in full.
type Recomputer interface {
	RecomputeMonth(ctx context.Context, month string) error
	RecomputeLatest(ctx context.Context) error
}

// EventConsumer reads survey events through a consumer group. A message is
// acknowledged only after its recompute succeeded.
type EventConsumer struct {
	redisClient  *redis.Client
	recomputer   Recomputer
	logger       *zap.Logger
	stream       string
	groupName    string
	consumerName string
	batchSize    int64
	block        time.Duration
}

func NewEventConsumer(
	redisClient *redis.Client,
	recomputer Recomputer,
	logger *zap.Logger,
	stream string,
	groupName string,
	consumerName string,
	batchSize int64,
) *EventConsumer {
	return &EventConsumer{
		redisClient:  redisClient,
		recomputer:   recomputer,
		logger:       logger,
		stream:       stream,
		groupName:    groupName,
		consumerName: consumerName,
		batchSize:    batchSize,
		block:        2 * time.Second,
	}
}

// SetBlock sets how long one read waits for new messages.
func (c *EventConsumer) SetBlock(d time.Duration) {
	c.block = d
}

// Start consumes until ctx is done, backing off exponentially on read errors.
func (c *EventConsumer) Start(ctx context.Context) error {
	if err := rediscommon.CreateConsumerGroup(ctx, c.redisClient, c.stream, c.groupName); err != nil {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	c.logger.Info("Event consumer started",
		zap.String("stream", c.stream),
		zap.String("consumer_group", c.groupName),
		zap.String("consumer_name", c.consumerName),
	)

	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := c.consumeEvents(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("Failed to consume events",
				zap.Error(err),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
			}
			continue
		}
		backoff = time.Second
	}
}

// consumeEvents handles one batch. Failed messages stay pending.
func (c *EventConsumer) consumeEvents(ctx context.Context) error {
	messages, err := rediscommon.ReadFromStream(ctx, c.redisClient, c.stream, c.groupName, c.consumerName, c.batchSize, c.block)
	if err != nil {
		return fmt.Errorf("failed to read from stream: %w", err)
	}

	for _, msg := range messages {
		if err := c.processEvent(ctx, msg); err != nil {
			c.logger.Error("Failed to process event",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
			continue
		}
		if err := rediscommon.Ack(ctx, c.redisClient, c.stream, c.groupName, msg.ID); err != nil {
			c.logger.Warn("Failed to ack message",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (c *EventConsumer) processEvent(ctx context.Context, msg rediscommon.StreamMessage) error {
	event, err := ParseEvent(msg)
	if err != nil {
		return fmt.Errorf("failed to parse event: %w", err)
	}

	c.logger.Info("Processing survey event",
		zap.String("event_type", event.EventType),
		zap.String("month", event.Month),
		zap.String("institution_code", event.InstitutionCode),
	)

	switch event.EventType {
	case events.SubmissionCreated, events.SubmissionCorrected:
		if event.Month == "" {
			return fmt.Errorf("event %s without month", event.EventType)
		}
		return c.recomputer.RecomputeMonth(ctx, event.Month)

	case events.DirectoryChanged:
		if event.Month != "" {
			return c.recomputer.RecomputeMonth(ctx, event.Month)
		}
		return c.recomputer.RecomputeLatest(ctx)

	default:
		c.logger.Warn("Unknown event type", zap.String("event_type", event.EventType))
		return nil
	}
}

// ParseEvent reads the JSON "data" field, falling back to flat stream fields.
func ParseEvent(msg rediscommon.StreamMessage) (*events.SurveyEvent, error) {
	if dataStr, ok := msg.Values["data"].(string); ok {
		var event events.SurveyEvent
		if err := json.Unmarshal([]byte(dataStr), &event); err == nil && event.EventType != "" {
			return &event, nil
		}
	}

	event := &events.SurveyEvent{}
	if v, ok := msg.Values["event_type"].(string); ok {
		event.EventType = v
	}
	if v, ok := msg.Values["month"].(string); ok {
		event.Month = v
	}
	if v, ok := msg.Values["institution_code"].(string); ok {
		event.InstitutionCode = v
	}
	if v, ok := msg.Values["submission_id"].(string); ok {
		event.SubmissionID = v
	}
	if event.EventType == "" {
		return nil, fmt.Errorf("invalid event: missing event_type")
	}
	return event, nil
}
