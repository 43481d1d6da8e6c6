// Package transport is the duplex, topic-based channel to the game server.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/DoyleJ11/ludo-sync/internal/notify"
)

var (
	ErrTransport    = errors.New("transport failure")
	ErrNotConnected = errors.New("not connected")
)

type Status int

const (
	Disconnected Status = iota
	Connecting
	Connected
)

func (s Status) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

type EventKind string

const (
	EventConnected    EventKind = "connected"
	EventDisconnected EventKind = "disconnected" // Err nil on an explicit Disconnect
	EventReconnected  EventKind = "reconnected"
	EventError        EventKind = "error"
)

type Event struct {
	Kind EventKind
	Err  error
}

// Handler receives the raw body of every message delivered on topic.
// It runs on a transport goroutine.
type Handler func(topic string, body []byte)

type Unsubscribe func()

type Subscriber interface {
	Subscribe(topic string, h Handler) (Unsubscribe, error)
}

type Transport interface {
	Subscriber
	// Connect completes the handshake or fails with an error wrapping ErrTransport.
	Connect(ctx context.Context) error
	// Publish serializes payload as JSON and sends it. When the channel is
	// down it emits an EventError and returns false instead of failing loudly.
	Publish(destination string, payload any) bool
	// Disconnect unsubscribes everything and closes the channel.
	Disconnect()
	Status() Status
	// Notify registers an observer for lifecycle events.
	Notify(fn func(Event)) (cancel func())
}

// Topics and destinations shared by the server protocol.
const (
	PersonalQueue = "/user/queue/game"
	gameTopicFmt  = "/topic/game/%s"
	actionFmt     = "/app/game/%s"
)

func GameTopic(gameID string) string { return fmt.Sprintf(gameTopicFmt, gameID) }

func ActionDestination(action string) string { return fmt.Sprintf(actionFmt, action) }

// state carries the status machine and observers common to every implementation.
type state struct {
	mu        sync.Mutex
	status    Status
	observers notify.Observers[Event]
	log       *zap.Logger
}

func (s *state) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *state) Notify(fn func(Event)) func() { return s.observers.Add(fn) }

// beginConnect moves Disconnected -> Connecting. It fails if a connection is
// already up or in progress.
func (s *state) beginConnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != Disconnected {
		return fmt.Errorf("%w: already %s", ErrTransport, s.status)
	}
	s.status = Connecting
	return nil
}

func (s *state) connectFailed(err error) error {
	s.setStatus(Disconnected)
	err = fmt.Errorf("%w: %v", ErrTransport, err)
	s.log.Warn("connect failed", zap.Error(err))
	s.observers.Emit(Event{Kind: EventError, Err: err})
	return err
}

func (s *state) connected() {
	s.setStatus(Connected)
	s.log.Info("connected")
	s.observers.Emit(Event{Kind: EventConnected})
}

// lost reports an unexpected drop. Returns false if already disconnected.
func (s *state) lost(err error) bool {
	if s.swapStatus(Disconnected) == Disconnected {
		return false
	}
	s.log.Warn("connection lost", zap.Error(err))
	s.observers.Emit(Event{Kind: EventDisconnected, Err: fmt.Errorf("%w: %v", ErrTransport, err)})
	return true
}

func (s *state) closed() {
	if s.swapStatus(Disconnected) == Disconnected {
		return
	}
	s.log.Info("disconnected")
	s.observers.Emit(Event{Kind: EventDisconnected})
}

func (s *state) notConnected(destination string) bool {
	err := fmt.Errorf("publish %s: %w", destination, ErrNotConnected)
	s.log.Debug("publish while disconnected", zap.String("destination", destination))
	s.observers.Emit(Event{Kind: EventError, Err: err})
	return false
}

func (s *state) sendFailed(destination string, err error) bool {
	err = fmt.Errorf("%w: publish %s: %v", ErrTransport, destination, err)
	s.log.Warn("publish failed", zap.Error(err))
	s.observers.Emit(Event{Kind: EventError, Err: err})
	return false
}

func (s *state) setStatus(st Status) { s.swapStatus(st) }

func (s *state) swapStatus(st Status) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.status
	s.status = st
	return prev
}

func encode(payload any) ([]byte, error) {
	if b, ok := payload.([]byte); ok {
		return b, nil
	}
	return json.Marshal(payload)
}

func orNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
