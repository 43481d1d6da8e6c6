package transport

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-stomp/stomp/v3"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

type STOMPConfig struct {
	URL       string        // websocket endpoint, e.g. ws://localhost:8080/ws
	Host      string        // STOMP virtual host header
	Login     string        // sent as the STOMP login, the server maps it to the user queue
	HeartBeat time.Duration // 0 disables heart-beating
}

// STOMP speaks STOMP 1.2 frames over a websocket.
type STOMP struct {
	state
	cfg STOMPConfig

	connMu sync.Mutex
	conn   *stomp.Conn
	ws     *websocket.Conn
	subs   map[*stomp.Subscription]struct{}
}

func NewSTOMP(cfg STOMPConfig, log *zap.Logger) *STOMP {
	if cfg.Host == "" {
		cfg.Host = "/"
	}
	t := &STOMP{cfg: cfg, subs: make(map[*stomp.Subscription]struct{})}
	t.log = orNop(log).With(zap.String("transport", "stomp"), zap.String("url", cfg.URL))
	return t
}

func (t *STOMP) Connect(ctx context.Context) error {
	if err := t.beginConnect(); err != nil {
		return err
	}

	ws, _, err := websocket.Dial(ctx, t.cfg.URL, &websocket.DialOptions{
		Subprotocols: []string{"v12.stomp"},
		HTTPHeader:   http.Header{"User-Agent": []string{"ludo-sync"}},
	})
	if err != nil {
		return t.connectFailed(fmt.Errorf("dial: %w", err))
	}
	ws.SetReadLimit(1 << 20)

	// the net.Conn outlives ctx, which only bounds the handshake
	netConn := websocket.NetConn(context.Background(), ws, websocket.MessageText)

	type result struct {
		conn *stomp.Conn
		err  error
	}
	done := make(chan result, 1)
	go func() {
		c, err := stomp.Connect(netConn,
			stomp.ConnOpt.Host(t.cfg.Host),
			stomp.ConnOpt.Login(t.cfg.Login, ""),
			stomp.ConnOpt.HeartBeat(t.cfg.HeartBeat, t.cfg.HeartBeat),
		)
		done <- result{c, err}
	}()

	select {
	case <-ctx.Done():
		_ = ws.Close(websocket.StatusNormalClosure, "connect canceled")
		return t.connectFailed(ctx.Err())
	case r := <-done:
		if r.err != nil {
			_ = ws.Close(websocket.StatusProtocolError, "stomp handshake failed")
			return t.connectFailed(fmt.Errorf("stomp connect: %w", r.err))
		}
		t.connMu.Lock()
		t.conn = r.conn
		t.ws = ws
		t.connMu.Unlock()
	}

	t.connected()
	return nil
}

func (t *STOMP) Subscribe(topic string, h Handler) (Unsubscribe, error) {
	if h == nil {
		panic("transport: nil handler")
	}
	t.connMu.Lock()
	conn := t.conn
	t.connMu.Unlock()
	if conn == nil || t.Status() != Connected {
		return nil, fmt.Errorf("subscribe %s: %w", topic, ErrNotConnected)
	}

	sub, err := conn.Subscribe(topic, stomp.AckAuto)
	if err != nil {
		return nil, fmt.Errorf("%w: subscribe %s: %v", ErrTransport, topic, err)
	}
	t.connMu.Lock()
	t.subs[sub] = struct{}{}
	t.connMu.Unlock()
	t.log.Debug("subscribed", zap.String("topic", topic))

	go func() {
		for msg := range sub.C {
			if msg.Err != nil {
				// a detached subscription ends quietly after Disconnect
				if t.live(sub) {
					t.drop(msg.Err)
				}
				return
			}
			h(topic, msg.Body)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.connMu.Lock()
			_, live := t.subs[sub]
			delete(t.subs, sub)
			t.connMu.Unlock()
			if live {
				_ = sub.Unsubscribe()
			}
		})
	}, nil
}

func (t *STOMP) Publish(destination string, payload any) bool {
	t.connMu.Lock()
	conn := t.conn
	t.connMu.Unlock()
	if conn == nil || t.Status() != Connected {
		return t.notConnected(destination)
	}

	body, err := encode(payload)
	if err != nil {
		return t.sendFailed(destination, err)
	}
	if err := conn.Send(destination, "application/json", body); err != nil {
		return t.sendFailed(destination, err)
	}
	t.log.Debug("published", zap.String("destination", destination), zap.Int("len", len(body)))
	return true
}

func (t *STOMP) Disconnect() {
	conn, ws, subs := t.detach()
	for _, sub := range subs {
		_ = sub.Unsubscribe()
	}
	if conn != nil {
		if err := conn.Disconnect(); err != nil {
			t.log.Debug("stomp disconnect", zap.Error(err))
		}
	}
	if ws != nil {
		_ = ws.Close(websocket.StatusNormalClosure, "bye")
	}
	t.closed()
}

func (t *STOMP) live(sub *stomp.Subscription) bool {
	t.connMu.Lock()
	defer t.connMu.Unlock()
	_, ok := t.subs[sub]
	return ok
}

// drop tears down after the server or network closed the channel.
func (t *STOMP) drop(err error) {
	_, ws, _ := t.detach()
	if ws != nil {
		_ = ws.Close(websocket.StatusGoingAway, "connection lost")
	}
	t.lost(err)
}

func (t *STOMP) detach() (*stomp.Conn, *websocket.Conn, []*stomp.Subscription) {
	t.connMu.Lock()
	defer t.connMu.Unlock()
	subs := make([]*stomp.Subscription, 0, len(t.subs))
	for s := range t.subs {
		subs = append(subs, s)
	}
	clear(t.subs)
	conn, ws := t.conn, t.ws
	t.conn, t.ws = nil, nil
	return conn, ws, subs
}
