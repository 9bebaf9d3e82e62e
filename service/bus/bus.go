// Package bus is the cross-instance fan-out channel. Each gateway
// instance publishes room and user events under well-known topics and
// subscribes to the topics of the rooms/users it currently hosts, so
// chat stays correct when sockets for one room are spread over several
// processes. Delivery is best-effort: no total order across
// publishers, each instance's local broadcasts keep their own order.
package bus

import "context"

// Handler receives one published payload. Handlers run on the bus's
// reader goroutine; per-topic invocation order matches arrival order.
type Handler func(topic string, payload []byte)

// Bus is a topic-keyed publish/subscribe channel.
type Bus interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	// Subscribe registers a handler and returns its cancel func.
	// Multiple handlers per topic are allowed.
	Subscribe(topic string, h Handler) (cancel func(), err error)
	Close() error
}

// Topic layout shared by every instance.
func RoomMessagesTopic(roomID string) string { return "room:" + roomID + ":messages" }
func RoomPresenceTopic(roomID string) string { return "room:" + roomID + ":presence" }
func RoomTypingTopic(roomID string) string   { return "room:" + roomID + ":typing" }

func UserNotificationsTopic(uid string) string { return "user:" + uid + ":notifications" }
