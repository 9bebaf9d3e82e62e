package chat

import (
	"sync"
)

// roomTable tracks which connections are subscribed to which room
// channels on this instance. Membership is not persisted beyond the
// connection's lifetime; rejoining after reconnect is the client's job.
type roomTable struct {
	mu     sync.RWMutex
	byRoom map[string]map[string]*Conn       // room -> conn_id -> conn
	byConn map[string]map[string]struct{}    // conn_id -> joined room set
}

func newRoomTable() *roomTable {
	return &roomTable{
		byRoom: make(map[string]map[string]*Conn),
		byConn: make(map[string]map[string]struct{}),
	}
}

// join adds the connection to the room channel. Idempotent.
// first reports whether the room gained its first local member,
// already whether the connection was in the channel before.
func (t *roomTable) join(roomID string, c *Conn) (first, already bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	m := t.byRoom[roomID]
	if m == nil {
		m = make(map[string]*Conn)
		t.byRoom[roomID] = m
		first = true
	}
	if _, already = m[c.ID]; already {
		return false, true
	}
	m[c.ID] = c

	rs := t.byConn[c.ID]
	if rs == nil {
		rs = make(map[string]struct{})
		t.byConn[c.ID] = rs
	}
	rs[roomID] = struct{}{}
	return first, false
}

// leave removes the connection from the room channel. Safe for rooms
// the connection never joined. last reports whether the room lost its
// final local member, wasMember whether there was anything to remove.
func (t *roomTable) leave(roomID string, c *Conn) (last, wasMember bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.leaveLocked(roomID, c.ID)
}

func (t *roomTable) leaveLocked(roomID, connID string) (last, wasMember bool) {
	m := t.byRoom[roomID]
	if m == nil {
		return false, false
	}
	if _, wasMember = m[connID]; !wasMember {
		return false, false
	}
	delete(m, connID)
	if len(m) == 0 {
		delete(t.byRoom, roomID)
		last = true
	}
	if rs := t.byConn[connID]; rs != nil {
		delete(rs, roomID)
		if len(rs) == 0 {
			delete(t.byConn, connID)
		}
	}
	return last, true
}

// leaveAll removes the connection from every channel it joined and
// returns, per room, whether it was the room's last local member.
func (t *roomTable) leaveAll(c *Conn) map[string]bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	rooms := make([]string, 0, len(t.byConn[c.ID]))
	for roomID := range t.byConn[c.ID] {
		rooms = append(rooms, roomID)
	}
	out := make(map[string]bool, len(rooms))
	for _, roomID := range rooms {
		last, _ := t.leaveLocked(roomID, c.ID)
		out[roomID] = last
	}
	return out
}

// isJoined reports whether the connection is in the room's channel.
func (t *roomTable) isJoined(roomID, connID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.byRoom[roomID][connID]
	return ok
}

// members snapshots the room's current local connections.
func (t *roomTable) members(roomID string) []*Conn {
	t.mu.RLock()
	defer t.mu.RUnlock()
	m := t.byRoom[roomID]
	if len(m) == 0 {
		return nil
	}
	out := make([]*Conn, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	return out
}

// userConns counts the user's connections inside one room; used to
// decide whether a leave makes the user absent from the room.
func (t *roomTable) userConns(roomID, userID string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, c := range t.byRoom[roomID] {
		if c.user.ID == userID {
			n++
		}
	}
	return n
}
