package bus

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"

	"tripchat/logger"
)

// RedisBus implements Bus over Redis Pub/Sub. One PubSub connection
// serves all topics; channels are added and removed as rooms gain and
// lose local members.
type RedisBus struct {
	rdb *redis.Client

	mu       sync.Mutex
	ps       *redis.PubSub
	handlers map[string]map[int64]Handler // topic -> sub id -> handler
	nextID   int64
	closed   bool
}

func NewRedisBus(rdb *redis.Client) *RedisBus {
	return &RedisBus{
		rdb:      rdb,
		handlers: make(map[string]map[int64]Handler),
	}
}

func (b *RedisBus) Publish(ctx context.Context, topic string, payload []byte) error {
	return b.rdb.Publish(ctx, topic, payload).Err()
}

func (b *RedisBus) Subscribe(topic string, h Handler) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, redis.ErrClosed
	}

	if b.ps == nil {
		// Lazy: the PubSub connection starts with the first topic and
		// grows from there.
		b.ps = b.rdb.Subscribe(context.Background())
		go b.readLoop(b.ps)
	}
	if b.handlers[topic] == nil {
		b.handlers[topic] = make(map[int64]Handler)
		if err := b.ps.Subscribe(context.Background(), topic); err != nil {
			delete(b.handlers, topic)
			return nil, err
		}
	}
	b.nextID++
	id := b.nextID
	b.handlers[topic][id] = h

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		m := b.handlers[topic]
		if m == nil {
			return
		}
		delete(m, id)
		if len(m) == 0 {
			delete(b.handlers, topic)
			if b.ps != nil && !b.closed {
				if err := b.ps.Unsubscribe(context.Background(), topic); err != nil {
					logger.Warnf("[bus] unsubscribe %s: %v", topic, err)
				}
			}
		}
	}
	return cancel, nil
}

func (b *RedisBus) readLoop(ps *redis.PubSub) {
	for msg := range ps.Channel() {
		b.mu.Lock()
		m := b.handlers[msg.Channel]
		hs := make([]Handler, 0, len(m))
		for _, h := range m {
			hs = append(hs, h)
		}
		b.mu.Unlock()

		for _, h := range hs {
			h(msg.Channel, []byte(msg.Payload))
		}
	}
}

func (b *RedisBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	b.handlers = make(map[string]map[int64]Handler)
	if b.ps != nil {
		return b.ps.Close()
	}
	return nil
}
