package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/dialogue-engine/pkg/playback"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypePlaybackStarted    EventType = "playback.started"
	EventTypePlaybackStep       EventType = "playback.step"
	EventTypePlaybackVisibility EventType = "playback.visibility"
	EventTypePlaybackFinished   EventType = "playback.finished"
	EventTypePlaybackCancelled  EventType = "playback.cancelled"
)

// Event represents a generic event structure
type Event struct {
	Type      EventType              `json:"type"`
	SessionID string                 `json:"session_id"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Channel is the pub/sub channel carrying a session's events.
func Channel(sessionID uuid.UUID) string {
	return fmt.Sprintf("playback-events:%s", sessionID.String())
}

// Broadcaster publishes events to Redis Pub/Sub for SSE distribution
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// Client returns the Redis client used for publishing.
func (b *Broadcaster) Client() *redis.Client {
	return b.redisClient
}

// PublishStarted publishes a playback.started event
func (b *Broadcaster) PublishStarted(ctx context.Context, sessionID uuid.UUID, script string, start, end int) error {
	return b.publish(ctx, sessionID, EventTypePlaybackStarted, map[string]interface{}{
		"script": script,
		"start":  start,
		"end":    end,
	})
}

// PublishStep publishes a playback.step event
func (b *Broadcaster) PublishStep(ctx context.Context, sessionID uuid.UUID, index int, content string) error {
	return b.publish(ctx, sessionID, EventTypePlaybackStep, map[string]interface{}{
		"index":   index,
		"content": content,
	})
}

// PublishVisibility publishes a playback.visibility event
func (b *Broadcaster) PublishVisibility(ctx context.Context, sessionID uuid.UUID, visible bool) error {
	return b.publish(ctx, sessionID, EventTypePlaybackVisibility, map[string]interface{}{
		"visible": visible,
	})
}

// PublishFinished publishes a playback.finished event
func (b *Broadcaster) PublishFinished(ctx context.Context, sessionID uuid.UUID) error {
	return b.publish(ctx, sessionID, EventTypePlaybackFinished, nil)
}

// PublishCancelled publishes a playback.cancelled event
func (b *Broadcaster) PublishCancelled(ctx context.Context, sessionID uuid.UUID, index int) error {
	return b.publish(ctx, sessionID, EventTypePlaybackCancelled, map[string]interface{}{
		"index": index,
	})
}

// Callbacks adapts a session's signals into published events. Index and
// content arrive separately and are published together as one step; the
// idle reset at the end of a session is not a step.
func (b *Broadcaster) Callbacks(ctx context.Context, sessionID uuid.UUID) playback.Callbacks {
	var index atomic.Int64
	index.Store(-1)

	return playback.Callbacks{
		OnVisibilityChange: func(visible bool) {
			_ = b.PublishVisibility(ctx, sessionID, visible)
		},
		OnIndexChange: func(i int) {
			index.Store(int64(i))
		},
		OnContentChange: func(content string) {
			i := int(index.Load())
			if i < 0 {
				return
			}
			_ = b.PublishStep(ctx, sessionID, i, content)
		},
	}
}

// publish publishes an event to the session-specific channel
func (b *Broadcaster) publish(ctx context.Context, sessionID uuid.UUID, eventType EventType, data map[string]interface{}) error {
	channel := Channel(sessionID)
	event := Event{
		Type:      eventType,
		SessionID: sessionID.String(),
		Data:      data,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event", event)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, payload).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published",
		"channel", channel,
		"event_type", eventType,
	)

	return nil
}
