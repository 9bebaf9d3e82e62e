package chat

import (
	"context"
	"encoding/json"
	"sync"

	"tripchat/logger"
	"tripchat/service/bus"
	"tripchat/service/store"
	"tripchat/tools/errs"
)

// Router owns room channel membership and the five room operations.
// Local broadcasts preserve the order this instance processed events
// in; cross-instance fan-out rides the bus and is best-effort ordered.
type Router struct {
	gwID     string
	rooms    *roomTable
	roomDB   RoomStore
	messages MessageStore
	presence PresenceStore
	bus      bus.Bus

	subMu sync.Mutex
	subs  map[string][]func() // room -> bus subscription cancels
}

func NewRouter(gwID string, roomDB RoomStore, messages MessageStore, presence PresenceStore, b bus.Bus) *Router {
	return &Router{
		gwID:     gwID,
		rooms:    newRoomTable(),
		roomDB:   roomDB,
		messages: messages,
		presence: presence,
		bus:      b,
		subs:     make(map[string][]func()),
	}
}

// envelope is the bus wire format. Origin lets an instance ignore its
// own publications: local members were already served directly.
type envelope struct {
	Origin string          `json:"origin"`
	Room   string          `json:"room"`
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data"`
}

// rawFrame mirrors Frame but keeps the payload pre-encoded.
type rawFrame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Join subscribes the connection to the room channel. Requires trip
// membership; idempotent beyond refreshing presence.
func (rt *Router) Join(ctx context.Context, c *Conn, roomID string) error {
	if roomID == "" {
		return errs.ErrArgs.WithDetail("roomId required")
	}
	user := c.User()

	ok, err := rt.roomDB.Exists(ctx, roomID)
	if err != nil {
		return err
	}
	if !ok {
		return errs.ErrNotFound.WithDetail("room " + roomID)
	}
	member, err := rt.roomDB.IsMember(ctx, roomID, user.ID)
	if err != nil {
		return err
	}
	if !member {
		return errs.ErrForbidden.WithDetail("not a member of room " + roomID)
	}

	// Presence first: if the store is down the join fails whole, no
	// half-announced member.
	if err := rt.presence.SetOnline(ctx, roomID, user.ID); err != nil {
		return errs.ErrStoreUnavailable.WrapMsg(err.Error())
	}

	first, already := rt.rooms.join(roomID, c)
	if already {
		// Rejoining is a no-op beyond the presence refresh above.
		return nil
	}
	if first {
		rt.subscribeRoom(roomID)
	}

	// Everyone currently in the channel sees the arrival, including
	// the joining user's other sockets.
	data := buildPresenceEvent(EvtUserOnline, roomID, user.ID)
	rt.broadcastLocal(roomID, data, "")
	rt.publish(ctx, bus.RoomPresenceTopic(roomID), roomID, EvtUserOnline,
		PresenceEvent{RoomID: roomID, UserID: user.ID})
	return nil
}

// Leave unsubscribes the connection from the room channel. Safe to
// call for rooms the connection never joined.
func (rt *Router) Leave(ctx context.Context, c *Conn, roomID string) error {
	if roomID == "" {
		return errs.ErrArgs.WithDetail("roomId required")
	}
	last, wasMember := rt.rooms.leave(roomID, c)
	if !wasMember {
		return nil
	}
	if last {
		rt.unsubscribeRoom(roomID)
	}
	return rt.announceLeave(ctx, roomID, c.User().ID)
}

// announceLeave clears presence and tells the room, but only once the
// user has no remaining sockets in the channel: closing one of two
// tabs must not flap the user offline.
func (rt *Router) announceLeave(ctx context.Context, roomID, userID string) error {
	if rt.rooms.userConns(roomID, userID) > 0 {
		return nil
	}
	if err := rt.presence.SetOffline(ctx, roomID, userID); err != nil {
		// TTL expiry self-heals the stale entry; the departure is
		// still announced.
		logger.Warnf("[router] presence delete room=%s user=%s: %v", roomID, userID, err)
	}
	data := buildPresenceEvent(EvtUserOffline, roomID, userID)
	rt.broadcastLocal(roomID, data, "")
	rt.publish(ctx, bus.RoomPresenceTopic(roomID), roomID, EvtUserOffline,
		PresenceEvent{RoomID: roomID, UserID: userID})
	return nil
}

// SendMessage persists and fans out a chat message. The connection
// must hold channel membership; broadcast happens only after the store
// accepted the message (persisted implies delivered, not persisted
// implies not delivered).
func (rt *Router) SendMessage(ctx context.Context, c *Conn, p SendMessagePayload) (*store.Message, error) {
	if p.RoomID == "" || p.Content == "" {
		return nil, errs.ErrArgs.WithDetail("roomId and content required")
	}
	user := c.User()
	if !rt.rooms.isJoined(p.RoomID, c.ID) {
		return nil, errs.ErrForbidden.WithDetail("join the room before sending")
	}

	msg := &store.Message{
		RoomID:        p.RoomID,
		SenderID:      user.ID,
		Content:       p.Content,
		Type:          p.Type,
		AttachmentURL: p.AttachmentURL,
		Sender: store.MessageSender{
			ID:          user.ID,
			Username:    user.Username,
			DisplayName: user.DisplayName,
			AvatarURL:   user.AvatarURL,
		},
	}
	created, err := rt.messages.Create(ctx, msg)
	if err != nil {
		return nil, err
	}

	// Activity keeps the sender's presence fresh.
	if err := rt.presence.SetOnline(ctx, p.RoomID, user.ID); err != nil {
		logger.Debugf("[router] presence refresh room=%s user=%s: %v", p.RoomID, user.ID, err)
	}

	// Membership is re-read here rather than reusing the pre-persist
	// snapshot: the channel may have changed while we awaited the
	// store.
	data, err := MarshalFrame(EvtMessageReceive, created)
	if err != nil {
		return nil, errs.Wrap(err)
	}
	rt.broadcastLocal(p.RoomID, data, "")
	rt.publish(ctx, bus.RoomMessagesTopic(p.RoomID), p.RoomID, EvtMessageReceive, created)
	return created, nil
}

// DeleteMessage hard-deletes a message; only the original sender may.
func (rt *Router) DeleteMessage(ctx context.Context, c *Conn, messageID string) error {
	if messageID == "" {
		return errs.ErrArgs.WithDetail("messageId required")
	}
	msg, err := rt.messages.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != c.User().ID {
		return errs.ErrForbidden.WithDetail("only the sender may delete a message")
	}
	if err := rt.messages.Delete(ctx, messageID); err != nil {
		return err
	}

	ev := MessageDeleteEvent{RoomID: msg.RoomID, MessageID: messageID}
	data, _ := MarshalFrame(EvtMessageDelete, ev)
	rt.broadcastLocal(msg.RoomID, data, "")
	rt.publish(ctx, bus.RoomMessagesTopic(msg.RoomID), msg.RoomID, EvtMessageDelete, ev)
	return nil
}

// SetTyping writes or clears the typing indicator and tells the other
// members; the initiating connection is excluded from the broadcast.
func (rt *Router) SetTyping(ctx context.Context, c *Conn, roomID string, typing bool) error {
	if roomID == "" {
		return errs.ErrArgs.WithDetail("roomId required")
	}
	user := c.User()
	if !rt.rooms.isJoined(roomID, c.ID) {
		return errs.ErrForbidden.WithDetail("join the room before typing")
	}
	if err := rt.presence.SetTyping(ctx, roomID, user.ID, typing); err != nil {
		return errs.ErrStoreUnavailable.WrapMsg(err.Error())
	}

	event := EvtTypingStart
	if !typing {
		event = EvtTypingStop
	}
	ev := TypingEvent{RoomID: roomID, UserID: user.ID}
	data, _ := MarshalFrame(event, ev)
	rt.broadcastLocal(roomID, data, c.ID)
	rt.publish(ctx, bus.RoomTypingTopic(roomID), roomID, event, ev)
	return nil
}

// Disconnect tears down every channel membership the connection held.
func (rt *Router) Disconnect(ctx context.Context, c *Conn) {
	left := rt.rooms.leaveAll(c)
	for roomID, last := range left {
		if last {
			rt.unsubscribeRoom(roomID)
		}
		if err := rt.announceLeave(ctx, roomID, c.User().ID); err != nil {
			logger.Warnf("[router] leave on disconnect room=%s: %v", roomID, err)
		}
	}
}

// ---- local fan-out ----

func (rt *Router) broadcastLocal(roomID string, data []byte, exclude string) {
	for _, m := range rt.rooms.members(roomID) {
		if m.ID == exclude {
			continue
		}
		if err := m.Send(data); err != nil {
			logger.Debugf("[router] drop frame room=%s conn=%s: %v", roomID, m.ID, err)
		}
	}
}

// ---- cross-instance fan-out ----

func (rt *Router) publish(ctx context.Context, topic, roomID, event string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		logger.Errorf("[router] marshal bus payload event=%s: %v", event, err)
		return
	}
	env, _ := json.Marshal(envelope{Origin: rt.gwID, Room: roomID, Event: event, Data: raw})
	if err := rt.bus.Publish(ctx, topic, env); err != nil {
		// Local members already got the event; remote delivery is
		// best-effort per the bus contract.
		logger.Warnf("[router] bus publish topic=%s: %v", topic, err)
	}
}

func (rt *Router) onBusEvent(topic string, payload []byte) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		logger.Warnf("[router] bad envelope topic=%s: %v", topic, err)
		return
	}
	if env.Origin == rt.gwID {
		return
	}
	data, err := json.Marshal(rawFrame{Event: env.Event, Payload: env.Data})
	if err != nil {
		return
	}
	rt.broadcastLocal(env.Room, data, "")
}

func (rt *Router) subscribeRoom(roomID string) {
	topics := []string{
		bus.RoomMessagesTopic(roomID),
		bus.RoomPresenceTopic(roomID),
		bus.RoomTypingTopic(roomID),
	}
	cancels := make([]func(), 0, len(topics))
	for _, tp := range topics {
		cancel, err := rt.bus.Subscribe(tp, rt.onBusEvent)
		if err != nil {
			logger.Warnf("[router] subscribe %s: %v", tp, err)
			continue
		}
		cancels = append(cancels, cancel)
	}
	rt.subMu.Lock()
	rt.subs[roomID] = cancels
	rt.subMu.Unlock()
}

func (rt *Router) unsubscribeRoom(roomID string) {
	rt.subMu.Lock()
	cancels := rt.subs[roomID]
	delete(rt.subs, roomID)
	rt.subMu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
}
