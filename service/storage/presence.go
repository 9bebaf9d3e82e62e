package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// PresenceStore tracks short-lived liveness and typing state per
// (room, user) in Redis. TTL expiry is the cleanup mechanism: a client
// that vanishes without a leave/stop-typing self-heals once its key
// lapses, no sweeper required.
type PresenceStore struct {
	rdb         *redis.Client
	presenceTTL time.Duration
	typingTTL   time.Duration
}

func NewPresenceStore(rdb *redis.Client, presenceTTL, typingTTL time.Duration) *PresenceStore {
	if presenceTTL <= 0 {
		presenceTTL = 5 * time.Minute
	}
	if typingTTL <= 0 {
		typingTTL = 5 * time.Second
	}
	return &PresenceStore{rdb: rdb, presenceTTL: presenceTTL, typingTTL: typingTTL}
}

// presence key: presence:<room>:<user>
// value is a liveness flag, TTL controls the online validity window
func presenceKey(room, user string) string { return "presence:" + room + ":" + user }

// typing key: typing:<room>:<user>
// key present means "currently typing"
func typingKey(room, user string) string { return "typing:" + room + ":" + user }

// SetOnline marks the user online in the room and renews the TTL.
func (s *PresenceStore) SetOnline(ctx context.Context, room, user string) error {
	return s.rdb.Set(ctx, presenceKey(room, user), "online", s.presenceTTL).Err()
}

// SetOffline deletes the presence key (explicit leave).
func (s *PresenceStore) SetOffline(ctx context.Context, room, user string) error {
	return s.rdb.Del(ctx, presenceKey(room, user)).Err()
}

// IsOnline reports whether the user has a live presence entry.
func (s *PresenceStore) IsOnline(ctx context.Context, room, user string) (bool, error) {
	err := s.rdb.Get(ctx, presenceKey(room, user)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SetTyping writes or clears the typing indicator. The short TTL
// clears it on its own if the client never sends typing:stop.
func (s *PresenceStore) SetTyping(ctx context.Context, room, user string, typing bool) error {
	if typing {
		return s.rdb.Set(ctx, typingKey(room, user), "1", s.typingTTL).Err()
	}
	return s.rdb.Del(ctx, typingKey(room, user)).Err()
}

// IsTyping reports whether the typing indicator is currently present.
func (s *PresenceStore) IsTyping(ctx context.Context, room, user string) (bool, error) {
	err := s.rdb.Get(ctx, typingKey(room, user)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
