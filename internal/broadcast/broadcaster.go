// Package broadcast fans presence changes out to subscribed viewers over
// redis pub/sub, and mirrors activity events onto a redis stream for
// downstream consumers. Everything here is best-effort delivery.
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"vendora/presence/internal/models"
)

const (
	presenceChannelPrefix = "presence:status:"
	activityStream        = "presence:activity"
)

type statusPayload struct {
	UserID     string    `json:"user_id"`
	IsOnline   bool      `json:"is_online"`
	LastSeen   time.Time `json:"last_seen"`
	Preference string    `json:"preference"`
}

type Broadcaster struct {
	redis *redis.Client
	log   zerolog.Logger
}

func New(client *redis.Client, log zerolog.Logger) *Broadcaster {
	return &Broadcaster{redis: client, log: log}
}

// PublishPresence pushes the user's current presence to everyone subscribed
// to their channel.
func (b *Broadcaster) PublishPresence(ctx context.Context, p models.UserPresence) error {
	payload := statusPayload{
		UserID:     p.UserID,
		IsOnline:   p.IsOnline,
		LastSeen:   p.LastSeen,
		Preference: string(p.Preference),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal presence: %w", err)
	}

	if err := b.redis.Publish(ctx, presenceChannelPrefix+p.UserID, data).Err(); err != nil {
		return fmt.Errorf("publish presence: %w", err)
	}
	return nil
}

// PublishActivity appends the event to the activity stream.
func (b *Broadcaster) PublishActivity(ctx context.Context, event models.ActivityEvent) error {
	values := map[string]any{
		"user_id":       event.UserID,
		"activity_type": string(event.ActivityType),
		"occurred_at":   event.Timestamp.UTC().Format(time.RFC3339),
	}
	if event.Metadata.Page != "" {
		values["page"] = event.Metadata.Page
	}
	if event.Metadata.ProductID != "" {
		values["product_id"] = event.Metadata.ProductID
	}
	if event.Metadata.ChatID != "" {
		values["chat_id"] = event.Metadata.ChatID
	}
	if event.Metadata.Device != "" {
		values["device"] = string(event.Metadata.Device)
	}

	if err := b.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: activityStream,
		Values: values,
	}).Err(); err != nil {
		return fmt.Errorf("xadd activity: %w", err)
	}
	return nil
}

// Subscribe watches one user's presence channel and invokes onChange for
// every update until the returned unsubscribe function is called or the
// context is cancelled.
func (b *Broadcaster) Subscribe(ctx context.Context, userID string, onChange func(models.UserPresence)) func() {
	sub := b.redis.Subscribe(ctx, presenceChannelPrefix+userID)

	go func() {
		for msg := range sub.Channel() {
			var payload statusPayload
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				b.log.Warn().Err(err).Str("user_id", userID).Msg("bad presence payload")
				continue
			}
			onChange(models.UserPresence{
				UserID:     payload.UserID,
				IsOnline:   payload.IsOnline,
				LastSeen:   payload.LastSeen,
				Preference: models.Preference(payload.Preference),
			})
		}
	}()

	return func() {
		if err := sub.Close(); err != nil {
			b.log.Debug().Err(err).Str("user_id", userID).Msg("unsubscribe failed")
		}
	}
}
