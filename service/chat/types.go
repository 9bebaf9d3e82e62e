package chat

import (
	"context"

	"tripchat/service/store"
)

// Identity is the resolved user attached to a connection at handshake
// time. It is never re-verified per message; re-verification happens
// only on reconnect.
type Identity struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

// CredentialVerifier validates an opaque token into a user identity.
// Any error is terminal for the connection attempt: the gateway fails
// closed and never admits an unauthenticated connection.
type CredentialVerifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// MessageStore persists chat messages.
type MessageStore interface {
	Create(ctx context.Context, msg *store.Message) (*store.Message, error)
	GetByID(ctx context.Context, id string) (*store.Message, error)
	Delete(ctx context.Context, id string) error
}

// RoomStore answers room existence and membership questions.
type RoomStore interface {
	Exists(ctx context.Context, roomID string) (bool, error)
	IsMember(ctx context.Context, roomID, userID string) (bool, error)
}

// PresenceStore keeps TTL-backed presence and typing state per
// (room, user).
type PresenceStore interface {
	SetOnline(ctx context.Context, room, user string) error
	SetOffline(ctx context.Context, room, user string) error
	SetTyping(ctx context.Context, room, user string, typing bool) error
}

// UserTracker is told when a user's first connection arrives and when
// their last one goes away. Notification dispatch hangs off this.
type UserTracker interface {
	UserOnline(userID string)
	UserOffline(userID string)
}
