package services

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// Event channels published after successful writes.
const (
	EventUserCreated         = "user.created"
	EventRecipeCreated       = "recipe.created"
	EventRecipeUpdated       = "recipe.updated"
	EventRecipeDeleted       = "recipe.deleted"
	EventRecipeImageAttached = "recipe.image_attached"
)

// Publisher sends a payload to a named channel. *mq.MQ satisfies it.
type Publisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// Event is the JSON envelope of every published domain event.
type Event struct {
	Type       string    `json:"type"`
	UserID     int       `json:"user_id"`
	RecipeID   int       `json:"recipe_id,omitempty"`
	ImageKey   string    `json:"image_key,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Events publishes domain events on a best effort basis. A nil *Events or a
// nil publisher drops every event.
type Events struct {
	publisher Publisher
	logger    *zap.Logger
}

func NewEvents(publisher Publisher, logger *zap.Logger) *Events {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Events{publisher: publisher, logger: logger}
}

// Emit publishes event on the channel named by its type. Failures are
// logged and swallowed.
func (e *Events) Emit(ctx context.Context, event Event) {
	if e == nil || e.publisher == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		e.logger.Warn("encode event failed", zap.String("type", event.Type), zap.Error(err))
		return
	}

	id, err := e.publisher.Publish(ctx, event.Type, data, map[string]string{"type": event.Type})
	if err != nil {
		e.logger.Warn("publish event failed", zap.String("type", event.Type), zap.Error(err))
		return
	}
	e.logger.Debug("event published", zap.String("type", event.Type), zap.String("message_id", id))
}
