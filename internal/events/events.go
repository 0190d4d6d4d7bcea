// Package events carries survey change notifications over Redis Streams.
package events

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	rediscommon "eldercare-survey/internal/common/redis"
)

// Event types that trigger a month recompute.
const (
	SubmissionCreated   = "submission.created"
	SubmissionCorrected = "submission.corrected"
	DirectoryChanged    = "directory.changed"
)

// SurveyEvent a change that invalidates a month's rollup. Month may be empty
// for directory changes, which affect every month.
type SurveyEvent struct {
	EventType       string `json:"event_type"`
	Month           string `json:"month,omitempty"`
	InstitutionCode string `json:"institution_code,omitempty"`
	SubmissionID    string `json:"submission_id,omitempty"`
	Timestamp       int64  `json:"timestamp"`
}

// Publisher emits survey events.
type Publisher interface {
	Publish(ctx context.Context, ev SurveyEvent) error
}

// NopPublisher used when no Redis is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, SurveyEvent) error { return nil }

// StreamPublisher appends events to a Redis Stream as {"data": <json>}.
type StreamPublisher struct {
	client *redis.Client
	stream string
}

func NewStreamPublisher(client *redis.Client, stream string) *StreamPublisher {
	return &StreamPublisher{client: client, stream: stream}
}

func (p *StreamPublisher) Publish(ctx context.Context, ev SurveyEvent) error {
	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().Unix()
	}
	_, err := rediscommon.PublishJSONToStream(ctx, p.client, p.stream, ev)
	return err
}
