package bus

import (
	"context"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"

	"tripchat/logger"
)

// NatsConfig for the NATS-backed bus.
type NatsConfig struct {
	Servers       []string
	Name          string
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// NatsBus implements Bus over core NATS. No persistence: room events
// are transient fan-out traffic, the message store is the durable copy.
type NatsBus struct {
	nc *nats.Conn
}

func NewNatsBus(cfg NatsConfig) (*NatsBus, error) {
	if len(cfg.Servers) == 0 {
		return nil, errors.New("nats servers missing")
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 500 * time.Millisecond
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 3 * time.Second
	}
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(cfg.Timeout),
	}
	nc, err := nats.Connect(strings.Join(cfg.Servers, ","), opts...)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &NatsBus{nc: nc}, nil
}

func (b *NatsBus) Publish(_ context.Context, topic string, payload []byte) error {
	return b.nc.Publish(topic, payload)
}

func (b *NatsBus) Subscribe(topic string, h Handler) (func(), error) {
	sub, err := b.nc.Subscribe(topic, func(m *nats.Msg) {
		h(m.Subject, m.Data)
	})
	if err != nil {
		return nil, err
	}
	cancel := func() {
		if err := sub.Unsubscribe(); err != nil {
			logger.Warnf("[bus] nats unsubscribe %s: %v", topic, err)
		}
	}
	return cancel, nil
}

func (b *NatsBus) Close() error {
	if b.nc != nil {
		return b.nc.Drain()
	}
	return nil
}
