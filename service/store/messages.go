package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tripchat/tools/errs"
)

const messagesColl = "messages"

// Message content types.
const (
	MsgTypeText   = "TEXT"
	MsgTypeImage  = "IMAGE"
	MsgTypeSystem = "SYSTEM"
)

// MessageSender is a snapshot of the sender's display metadata at send
// time, embedded so hydrated messages need no second lookup.
type MessageSender struct {
	ID          string `bson:"id" json:"id"`
	Username    string `bson:"username" json:"username"`
	DisplayName string `bson:"display_name" json:"displayName"`
	AvatarURL   string `bson:"avatar_url,omitempty" json:"avatarUrl,omitempty"`
}

// Message is the persisted chat message. Immutable after creation
// except for hard deletion by its sender.
type Message struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RoomID        string             `bson:"room_id" json:"roomId"`
	SenderID      string             `bson:"sender_id" json:"senderId"`
	Content       string             `bson:"content" json:"content"`
	Type          string             `bson:"type" json:"type"`
	AttachmentURL string             `bson:"attachment_url,omitempty" json:"attachmentUrl,omitempty"`
	Sender        MessageSender      `bson:"sender" json:"sender"`
	CreatedAt     time.Time          `bson:"created_at" json:"createdAt"`
}

type Messages struct {
	coll *mongo.Collection
}

func NewMessages(db *mongo.Database) *Messages {
	return &Messages{coll: db.Collection(messagesColl)}
}

// EnsureIndexes creates the (room_id, created_at) index backing the
// newest-first history query. Call once at startup.
func (m *Messages) EnsureIndexes(ctx context.Context) error {
	_, err := m.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "room_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	return errors.WithStack(err)
}

// Create persists the message, assigning id and creation timestamp
// server-side.
func (m *Messages) Create(ctx context.Context, msg *Message) (*Message, error) {
	if msg.Type == "" {
		msg.Type = MsgTypeText
	}
	msg.ID = primitive.NewObjectID()
	msg.CreatedAt = time.Now().UTC()

	if _, err := m.coll.InsertOne(ctx, msg); err != nil {
		return nil, errs.ErrStoreUnavailable.WrapMsg(err.Error())
	}
	return msg, nil
}

// GetByID fetches one message; errs.ErrNotFound for unknown or
// malformed ids.
func (m *Messages) GetByID(ctx context.Context, id string) (*Message, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, errs.ErrNotFound.WithDetail("message " + id)
	}

	var out Message
	err = m.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.ErrNotFound.WithDetail("message " + id)
	}
	if err != nil {
		return nil, errs.ErrStoreUnavailable.WrapMsg(err.Error())
	}
	return &out, nil
}

// ListByRoom returns up to limit messages for the room, newest first.
func (m *Messages) ListByRoom(ctx context.Context, roomID string, limit int64) ([]*Message, error) {
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cur, err := m.coll.Find(ctx, bson.M{"room_id": roomID}, opts)
	if err != nil {
		return nil, errs.ErrStoreUnavailable.WrapMsg(err.Error())
	}
	defer cur.Close(ctx)

	var out []*Message
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.ErrStoreUnavailable.WrapMsg(err.Error())
	}
	return out, nil
}

// Delete hard-deletes a message. Sender authorization is the router's
// responsibility; the store only reports NotFound.
func (m *Messages) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return errs.ErrNotFound.WithDetail("message " + id)
	}
	res, err := m.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return errs.ErrStoreUnavailable.WrapMsg(err.Error())
	}
	if res.DeletedCount == 0 {
		return errs.ErrNotFound.WithDetail("message " + id)
	}
	return nil
}
