// Package session is the client's single event loop. It owns the canonical
// game state and serializes transport frames, user actions and timer fires
// so each handler runs to completion without locking.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/DoyleJ11/ludo-sync/internal/anim"
	"github.com/DoyleJ11/ludo-sync/internal/board"
	"github.com/DoyleJ11/ludo-sync/internal/events"
	"github.com/DoyleJ11/ludo-sync/internal/identity"
	"github.com/DoyleJ11/ludo-sync/internal/protocol"
	"github.com/DoyleJ11/ludo-sync/internal/recovery"
	"github.com/DoyleJ11/ludo-sync/internal/store"
	"github.com/DoyleJ11/ludo-sync/internal/timers"
	"github.com/DoyleJ11/ludo-sync/internal/transport"
	"github.com/DoyleJ11/ludo-sync/pkg/types"
)

var (
	ErrClosed       = errors.New("session closed")
	ErrNotConnected = errors.New("not connected")
	ErrNoActiveGame = errors.New("no active game")
	ErrRateLimited  = errors.New("too many actions")
	ErrSendFailed   = errors.New("send failed")
)

// Pacing timer names. Durations come from Config.
const (
	timerTurnAnnounce = "turn-announce"      // TurnAnnounceDelay after a turn change
	timerMoveReveal   = "move-reveal"        // MoveRevealDelay before options reach the gate
	timerReconnect    = "reconnect"          // ReconnectDelay between reconnect attempts
	timerWatchdog     = "animation-watchdog" // AnimationWatchdog after a movement batch
)

type Config struct {
	ActionTimeout     time.Duration
	ResyncDelay       time.Duration
	AdvisoryDelay     time.Duration
	TurnAnnounceDelay time.Duration
	MoveRevealDelay   time.Duration
	ReconnectDelay    time.Duration // 0 disables automatic reconnects
	AnimationWatchdog time.Duration // 0 disables the watchdog
	ActionRate        rate.Limit    // 0 means unlimited
	ActionBurst       int
}

type Option func(*Session)

func WithLogger(l *zap.Logger) Option { return func(s *Session) { s.log = l } }

// WithScheduler replaces the runtime timers, mainly for tests.
func WithScheduler(sc timers.Scheduler) Option { return func(s *Session) { s.base = sc } }

func WithPaths(p board.PathProvider) Option { return func(s *Session) { s.paths = p } }

// Msg is anything the loop accepts on its inbox.
type Msg interface{ isSessionMsg() }

type frameIn struct {
	Topic string
	Body  []byte
}

type transportEvent struct{ Ev transport.Event }

type timerFired struct{ fn func() }

type connectDone struct {
	Err   error
	Reply chan error // nil for background reconnects
}

type actionReq struct {
	Action protocol.Action
	GameID string
	Choice int
	Reply  chan error
}

type animationSignal struct{ Start bool }

type join struct {
	ID     string
	Outbox chan events.Event
}

type leave struct{ ID string }

type getView struct{ Reply chan View }

type shutdown struct{ Reply chan struct{} }

func (frameIn) isSessionMsg()         {}
func (transportEvent) isSessionMsg()  {}
func (timerFired) isSessionMsg()      {}
func (connectDone) isSessionMsg()     {}
func (actionReq) isSessionMsg()       {}
func (animationSignal) isSessionMsg() {}
func (join) isSessionMsg()            {}
func (leave) isSessionMsg()           {}
func (getView) isSessionMsg()         {}
func (shutdown) isSessionMsg()        {}

// View is a read-only picture of the session for status surfaces.
type View struct {
	Status        transport.Status
	PlayerID      string
	GameID        string
	Offline       bool
	Reconnecting  bool
	Animating     bool
	PendingMoves  bool
	PendingAction string
	Version       int
	Snapshot      *types.Snapshot
	LastFrame     time.Time
	Subscribers   int
}

type Session struct {
	inbox  chan Msg
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	cfg      Config
	log      *zap.Logger
	tr       transport.Transport
	identity identity.Provider
	paths    board.PathProvider
	limiter  *rate.Limiter
	base     timers.Scheduler
	timers   *timers.Named

	store    *store.Store
	gate     *anim.Gate
	recovery *recovery.Manager
	router   *protocol.Router

	lifecycle     *lifecycleQueue
	clients       map[string]chan events.Event
	personalUnsub transport.Unsubscribe
	stopNotify    func()
	gameID        string
	lastFrame     time.Time
	reconnecting  bool
}

func New(parent context.Context, cfg Config, tr transport.Transport, id identity.Provider, opts ...Option) *Session {
	if tr == nil || id == nil {
		panic("session: nil transport or identity")
	}
	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		inbox:    make(chan Msg, 64),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		cfg:      cfg,
		tr:       tr,
		identity: id,
		base:     timers.Real{},
		clients:  make(map[string]chan events.Event),
	}
	s.lifecycle = newLifecycleQueue()
	for _, o := range opts {
		o(s)
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}

	limit := cfg.ActionRate
	if limit <= 0 {
		limit = rate.Inf
	}
	burst := cfg.ActionBurst
	if burst <= 0 {
		burst = 1
	}
	s.limiter = rate.NewLimiter(limit, burst)

	// every timer fire is handed back to the loop
	sched := timers.SchedulerFunc(func(d time.Duration, f func()) timers.Timer {
		return s.base.AfterFunc(d, func() { s.post(timerFired{fn: f}) })
	})
	s.timers = timers.NewNamed(sched)
	s.store = store.New(s.emitCore)
	s.gate = anim.NewGate(s.emitCore)
	s.recovery = recovery.New(recovery.Config{
		ResyncDelay:   cfg.ResyncDelay,
		AdvisoryDelay: cfg.AdvisoryDelay,
	}, sched, s.emitCore, s.requestState)
	s.router = protocol.NewRouter(tr, s.onFrame, s.handleInbound, s.log.Named("router"))
	s.stopNotify = tr.Notify(s.onTransportEvent)

	go s.lifecycle.run(s.ctx, func(ev transport.Event) bool {
		return s.post(transportEvent{Ev: ev})
	})
	go s.loop()
	return s
}

func (s *Session) loop() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			s.teardown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case frameIn:
				s.router.Handle(msg.Topic, msg.Body)

			case transportEvent:
				s.handleTransportEvent(msg.Ev)

			case timerFired:
				msg.fn()

			case connectDone:
				err := s.handleConnectDone(msg.Err)
				if msg.Reply != nil {
					msg.Reply <- err
				}

			case actionReq:
				msg.Reply <- s.act(msg)

			case animationSignal:
				if msg.Start {
					s.animationStarted()
				} else {
					s.gate.Complete()
				}

			case join:
				s.clients[msg.ID] = msg.Outbox

			case leave:
				if ch, ok := s.clients[msg.ID]; ok {
					close(ch)
					delete(s.clients, msg.ID)
				}

			case getView:
				msg.Reply <- s.view()

			case shutdown:
				s.teardown()
				close(msg.Reply)
				s.cancel()
				return
			}
		}
	}
}

// post queues m for the loop. It reports false once the session is closed.
func (s *Session) post(m Msg) bool {
	if s.ctx.Err() != nil {
		return false
	}
	select {
	case s.inbox <- m:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// onFrame runs on transport goroutines.
func (s *Session) onFrame(topic string, body []byte) {
	s.post(frameIn{Topic: topic, Body: body})
}

// onTransportEvent may run on the loop itself (e.g. Publish failing), so it
// only queues the event.
func (s *Session) onTransportEvent(ev transport.Event) {
	s.lifecycle.push(ev)
}

// lifecycleQueue hands transport events to the loop in emission order
// without ever blocking the emitter.
type lifecycleQueue struct {
	mu     sync.Mutex
	events []transport.Event
	ready  chan struct{}
}

func newLifecycleQueue() *lifecycleQueue {
	return &lifecycleQueue{ready: make(chan struct{}, 1)}
}

func (q *lifecycleQueue) push(ev transport.Event) {
	q.mu.Lock()
	q.events = append(q.events, ev)
	q.mu.Unlock()
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *lifecycleQueue) take() []transport.Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.events
	q.events = nil
	return out
}

// run forwards queued events one at a time until ctx ends or post fails.
func (q *lifecycleQueue) run(ctx context.Context, post func(transport.Event) bool) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.ready:
		}
		for _, ev := range q.take() {
			if !post(ev) {
				return
			}
		}
	}
}

func (s *Session) broadcast(ev events.Event) {
	for id, ch := range s.clients {
		select {
		case ch <- ev:
		default:
			// Subscriber is slow/full - drop them.
			s.log.Warn("dropping slow subscriber", zap.String("subscriber", id), zap.String("event", ev.Name()))
			close(ch)
			delete(s.clients, id)
		}
	}
}

func (s *Session) view() View {
	v := View{
		Status:       s.tr.Status(),
		PlayerID:     s.identity.PlayerID(),
		GameID:       s.gameID,
		Offline:      s.recovery.Offline(),
		Reconnecting: s.reconnecting || s.timers.Active(timerReconnect),
		Animating:    s.gate.Animating(),
		PendingMoves: s.gate.Pending(),
		Version:      s.store.Version(),
		LastFrame:    s.lastFrame,
		Subscribers:  len(s.clients),
	}
	if action, ok := s.recovery.Pending(); ok {
		v.PendingAction = action
	}
	if snap, ok := s.store.Current(); ok {
		v.Snapshot = snap
	}
	return v
}

func (s *Session) teardown() {
	if s.stopNotify != nil {
		s.stopNotify()
		s.stopNotify = nil
	}
	s.timers.CancelAll()
	s.recovery.Stop()
	s.router.Reset()
	if s.personalUnsub != nil {
		s.personalUnsub()
		s.personalUnsub = nil
	}
	s.tr.Disconnect()
	s.store.Reset()
	s.gate.Reset()
	s.gameID = ""
	for id, ch := range s.clients {
		close(ch)
		delete(s.clients, id)
	}
	s.log.Info("session closed")
}

// Subscribe registers an outbox for presentation events. A subscriber that
// lets its buffer fill up is dropped and its channel closed.
func (s *Session) Subscribe(buffer int) (<-chan events.Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	id := uuid.NewString()
	ch := make(chan events.Event, buffer)
	if !s.post(join{ID: id, Outbox: ch}) {
		close(ch)
		return ch, func() {}
	}
	return ch, func() { s.post(leave{ID: id}) }
}

// View returns the current state of the session.
func (s *Session) View() (View, error) {
	reply := make(chan View, 1)
	if !s.post(getView{Reply: reply}) {
		return View{}, ErrClosed
	}
	select {
	case v := <-reply:
		return v, nil
	case <-s.ctx.Done():
		return View{}, ErrClosed
	}
}

// Close disconnects, discards the game state and stops the loop.
func (s *Session) Close() error {
	reply := make(chan struct{})
	if !s.post(shutdown{Reply: reply}) {
		<-s.done
		return nil
	}
	select {
	case <-reply:
	case <-s.done:
	}
	<-s.done
	return nil
}
