package notify

import (
	"context"
	"encoding/json"
	"time"

	"tripchat/logger"
	"tripchat/service/bus"
)

// FeedEvent is the durable notification record other services produce
// to Kafka. The feed consumer republishes it onto the per-user bus
// topic, where connected gateways pick it up.
type FeedEvent struct {
	UserID string         `json:"user_id"`
	Event  string         `json:"event"`
	Data   map[string]any `json:"data,omitempty"`
}

// NewFeedHandler adapts the Kafka feed to the bus. Records with no
// user or no event name are malformed and skipped.
func NewFeedHandler(b bus.Bus) func(topic string, key, value []byte) error {
	return func(topic string, _, value []byte) error {
		var ev FeedEvent
		if err := json.Unmarshal(value, &ev); err != nil {
			logger.Warnf("[notify] bad feed record topic=%s: %v", topic, err)
			return nil
		}
		if ev.UserID == "" || ev.Event == "" {
			logger.Warnf("[notify] feed record missing user_id or event, topic=%s", topic)
			return nil
		}
		raw, err := json.Marshal(Notification{Event: ev.Event, Data: ev.Data})
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return b.Publish(ctx, bus.UserNotificationsTopic(ev.UserID), raw)
	}
}
