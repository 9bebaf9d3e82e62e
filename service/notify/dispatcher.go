package notify

import (
	"context"
	"encoding/json"
	"sync"

	"tripchat/logger"
	"tripchat/service/bus"
	"tripchat/service/chat"
)

// Notification is a user-scoped event payload, delivered to every live
// connection of one user regardless of room membership.
type Notification struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data,omitempty"`
}

// Dispatcher is the outbound notification channel. It doubles as the
// gateway's user tracker: while a user has at least one local
// connection, this instance subscribes to their notification topic on
// the bus, so a notification published anywhere reaches whichever
// instance holds the sockets. Users with zero live connections are an
// at-most-once silent drop, no queuing.
type Dispatcher struct {
	reg *chat.Registry
	bus bus.Bus

	mu   sync.Mutex
	subs map[string]func() // user -> bus subscription cancel
}

func NewDispatcher(reg *chat.Registry, b bus.Bus) *Dispatcher {
	return &Dispatcher{
		reg:  reg,
		bus:  b,
		subs: make(map[string]func()),
	}
}

// Publish puts a notification on the bus. Delivery happens through the
// per-user subscriptions held by whichever instances have the user
// connected; nobody subscribed means nobody connected, and the event
// evaporates.
func (d *Dispatcher) Publish(ctx context.Context, userID string, n Notification) error {
	raw, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return d.bus.Publish(ctx, bus.UserNotificationsTopic(userID), raw)
}

// deliverLocal fans a notification out to the user's local sockets.
func (d *Dispatcher) deliverLocal(userID string, n Notification) {
	conns := d.reg.ConnsFor(userID)
	if len(conns) == 0 {
		return
	}
	data, err := chat.MarshalFrame(chat.EvtNotification, n)
	if err != nil {
		logger.Errorf("[notify] marshal notification for %s: %v", userID, err)
		return
	}
	for _, c := range conns {
		if err := c.Send(data); err != nil {
			logger.Debugf("[notify] drop notification user=%s conn=%s: %v", userID, c.ID, err)
		}
	}
}

// UserOnline implements chat.UserTracker: first connection of the user
// on this instance opens their notification subscription.
func (d *Dispatcher) UserOnline(userID string) {
	cancel, err := d.bus.Subscribe(bus.UserNotificationsTopic(userID), func(_ string, payload []byte) {
		var n Notification
		if err := json.Unmarshal(payload, &n); err != nil {
			logger.Warnf("[notify] bad notification payload user=%s: %v", userID, err)
			return
		}
		d.deliverLocal(userID, n)
	})
	if err != nil {
		logger.Warnf("[notify] subscribe user=%s: %v", userID, err)
		return
	}
	d.mu.Lock()
	d.subs[userID] = cancel
	d.mu.Unlock()
}

// UserOffline closes the subscription once the last connection is gone.
func (d *Dispatcher) UserOffline(userID string) {
	d.mu.Lock()
	cancel := d.subs[userID]
	delete(d.subs, userID)
	d.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
