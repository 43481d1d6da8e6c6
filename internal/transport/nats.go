package transport

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

type NATSConfig struct {
	URL           string
	Name          string
	PlayerID      string // scopes the personal queue subject
	Timeout       time.Duration
	ReconnectWait time.Duration
	MaxReconnects int
}

// NATS maps topics onto broker subjects. Reconnects are handled by the
// client library; drops and recoveries surface as lifecycle events.
type NATS struct {
	state
	cfg NATSConfig

	connMu sync.Mutex
	nc     *nats.Conn
	subs   map[*nats.Subscription]struct{}
}

func NewNATS(cfg NATSConfig, log *zap.Logger) *NATS {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 2 * time.Second
	}
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = 5
	}
	t := &NATS{cfg: cfg, subs: make(map[*nats.Subscription]struct{})}
	t.log = orNop(log).With(zap.String("transport", "nats"), zap.String("url", cfg.URL))
	return t
}

// Subject converts a slash separated topic into a NATS subject. The personal
// queue is scoped to playerID because the broker has no user destinations.
func Subject(topic, playerID string) string {
	if topic == PersonalQueue && playerID != "" {
		return "user." + playerID + ".queue.game"
	}
	parts := strings.FieldsFunc(topic, func(r rune) bool { return r == '/' })
	return strings.Join(parts, ".")
}

func (t *NATS) Connect(ctx context.Context) error {
	if err := t.beginConnect(); err != nil {
		return err
	}

	opts := []nats.Option{
		nats.Name(t.cfg.Name),
		nats.Timeout(t.cfg.Timeout),
		nats.ReconnectWait(t.cfg.ReconnectWait),
		nats.MaxReconnects(t.cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err == nil {
				return
			}
			t.setStatus(Connecting)
			t.log.Warn("connection lost, reconnecting", zap.Error(err))
			t.observers.Emit(Event{Kind: EventDisconnected, Err: fmt.Errorf("%w: %v", ErrTransport, err)})
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			t.setStatus(Connected)
			t.log.Info("reconnected")
			t.observers.Emit(Event{Kind: EventReconnected})
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			if err := nc.LastError(); err != nil {
				t.lost(err)
			}
		}),
	}

	type result struct {
		nc  *nats.Conn
		err error
	}
	done := make(chan result, 1)
	go func() {
		nc, err := nats.Connect(t.cfg.URL, opts...)
		done <- result{nc, err}
	}()

	select {
	case <-ctx.Done():
		go func() {
			if r := <-done; r.nc != nil {
				r.nc.Close()
			}
		}()
		return t.connectFailed(ctx.Err())
	case r := <-done:
		if r.err != nil {
			return t.connectFailed(r.err)
		}
		t.connMu.Lock()
		t.nc = r.nc
		t.connMu.Unlock()
	}

	t.connected()
	return nil
}

func (t *NATS) Subscribe(topic string, h Handler) (Unsubscribe, error) {
	if h == nil {
		panic("transport: nil handler")
	}
	t.connMu.Lock()
	nc := t.nc
	t.connMu.Unlock()
	if nc == nil {
		return nil, fmt.Errorf("subscribe %s: %w", topic, ErrNotConnected)
	}

	subject := Subject(topic, t.cfg.PlayerID)
	sub, err := nc.Subscribe(subject, func(m *nats.Msg) {
		h(topic, m.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: subscribe %s: %v", ErrTransport, subject, err)
	}
	t.connMu.Lock()
	t.subs[sub] = struct{}{}
	t.connMu.Unlock()
	t.log.Debug("subscribed", zap.String("topic", topic), zap.String("subject", subject))

	return func() {
		t.connMu.Lock()
		_, live := t.subs[sub]
		delete(t.subs, sub)
		t.connMu.Unlock()
		if live {
			_ = sub.Unsubscribe()
		}
	}, nil
}

func (t *NATS) Publish(destination string, payload any) bool {
	t.connMu.Lock()
	nc := t.nc
	t.connMu.Unlock()
	if nc == nil || t.Status() != Connected {
		return t.notConnected(destination)
	}

	body, err := encode(payload)
	if err != nil {
		return t.sendFailed(destination, err)
	}
	msg := nats.NewMsg(Subject(destination, t.cfg.PlayerID))
	msg.Data = body
	if t.cfg.PlayerID != "" {
		msg.Header.Set("Player-Id", t.cfg.PlayerID)
	}
	if err := nc.PublishMsg(msg); err != nil {
		return t.sendFailed(destination, err)
	}
	return true
}

func (t *NATS) Disconnect() {
	t.connMu.Lock()
	nc := t.nc
	subs := make([]*nats.Subscription, 0, len(t.subs))
	for s := range t.subs {
		subs = append(subs, s)
	}
	clear(t.subs)
	t.nc = nil
	t.connMu.Unlock()

	for _, s := range subs {
		_ = s.Unsubscribe()
	}
	if nc != nil {
		nc.Close()
	}
	t.closed()
}
