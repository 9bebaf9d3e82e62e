package chat

import (
	"sync"
)

// Registry maps authenticated users to their live connections. A user
// may hold arbitrarily many simultaneous connections (tabs, devices).
// Mutated only by the gateway's connect/disconnect paths.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]map[string]*Conn // user -> conn_id -> conn
	byConn map[string]*Conn            // conn_id -> conn
}

func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[string]map[string]*Conn),
		byConn: make(map[string]*Conn),
	}
}

// Register records the connection under its user. Returns true when
// this is the user's first live connection.
func (r *Registry) Register(c *Conn) (first bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user := c.user.ID
	m := r.byUser[user]
	if m == nil {
		m = make(map[string]*Conn)
		r.byUser[user] = m
		first = true
	}
	m[c.ID] = c
	r.byConn[c.ID] = c
	return first
}

// Unregister drops the connection. The user entry is removed, not left
// as an empty set, once the last connection closes; returns true in
// that case (the user is now fully offline).
func (r *Registry) Unregister(c *Conn) (last bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user := c.user.ID
	if m := r.byUser[user]; m != nil {
		delete(m, c.ID)
		if len(m) == 0 {
			delete(r.byUser, user)
			last = true
		}
	}
	delete(r.byConn, c.ID)
	return last
}

// IsOnline reports whether the user has at least one live connection.
func (r *Registry) IsOnline(user string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[user]) > 0
}

// ConnsFor lists the user's live connections.
func (r *Registry) ConnsFor(user string) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m := r.byUser[user]
	if len(m) == 0 {
		return nil
	}
	out := make([]*Conn, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	return out
}

// Get resolves a connection by id.
func (r *Registry) Get(connID string) (*Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byConn[connID]
	return c, ok
}
