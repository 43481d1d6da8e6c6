// Package recovery watches outstanding actions and the connection, and drives
// state reconciliation when either goes wrong.
package recovery

import (
	"errors"
	"fmt"
	"time"

	"github.com/hako/durafmt"

	"github.com/DoyleJ11/ludo-sync/internal/events"
	"github.com/DoyleJ11/ludo-sync/internal/timers"
)

var ErrActionTimeout = errors.New("no response from server")

const (
	timerAction   = "recovery:action"
	timerResync   = "recovery:resync"
	timerAdvisory = "recovery:advisory"
)

// AdvisoryText is the standing notice shown while the connection stays down.
const AdvisoryText = "Connection issues: still trying to reach the game server"

type Config struct {
	// ResyncDelay is the pause between a timeout and the state re-request.
	ResyncDelay time.Duration
	// AdvisoryDelay is the pause between the re-request and the advisory check.
	AdvisoryDelay time.Duration
}

// Manager tracks a single outstanding action deadline and the offline flag.
// It is not safe for concurrent use; timer fires must arrive on the owner's goroutine.
type Manager struct {
	cfg     Config
	timers  *timers.Named
	emit    events.Sink
	request func()

	offline bool
	action  string
}

// New builds a manager. request re-requests canonical state from the server.
func New(cfg Config, sched timers.Scheduler, emit events.Sink, request func()) *Manager {
	if emit == nil || request == nil {
		panic("recovery: nil sink or request func")
	}
	return &Manager{
		cfg:     cfg,
		timers:  timers.NewNamed(sched),
		emit:    emit,
		request: request,
	}
}

// Start arms the action deadline, replacing any earlier one.
func (m *Manager) Start(action string, timeout time.Duration) {
	if timeout <= 0 {
		panic(fmt.Sprintf("recovery: non-positive timeout %v", timeout))
	}
	m.action = action
	m.timers.Schedule(timerAction, timeout, func() { m.expire(action, timeout) })
}

// Clear cancels the pending deadline. Safe to call at any time.
func (m *Manager) Clear() {
	m.timers.Cancel(timerAction)
	m.action = ""
}

// Pending reports the action whose deadline is armed, if any.
func (m *Manager) Pending() (string, bool) {
	if !m.timers.Active(timerAction) {
		return "", false
	}
	return m.action, true
}

func (m *Manager) Offline() bool { return m.offline }

// ConnectionLost marks the client offline and arms the advisory stage.
func (m *Manager) ConnectionLost(err error) {
	first := !m.offline
	m.offline = true
	if first {
		m.emit(events.ConnectionLost{Err: err})
		m.emit(events.UIMessage{Level: events.LevelWarn, Text: "Connecting..."})
	}
	if !m.timers.Active(timerAdvisory) {
		m.timers.Schedule(timerAdvisory, m.cfg.ResyncDelay+m.cfg.AdvisoryDelay, m.advise)
	}
}

// ConnectionRestored clears the offline flag and re-requests state. It does
// nothing unless the client was offline.
func (m *Manager) ConnectionRestored() {
	if !m.offline {
		return
	}
	m.offline = false
	m.timers.Cancel(timerAdvisory)
	m.emit(events.ConnectionRestored{})
	m.emit(events.UIMessage{Level: events.LevelInfo, Text: "Connection restored"})
	m.request()
}

// Stop cancels every timer without emitting anything.
func (m *Manager) Stop() {
	m.timers.CancelAll()
	m.action = ""
	m.offline = false
}

func (m *Manager) expire(action string, after time.Duration) {
	m.action = ""
	m.emit(events.ActionTimedOut{Action: action, After: after, Err: ErrActionTimeout})
	m.emit(events.UIMessage{
		Level: events.LevelWarn,
		Text:  fmt.Sprintf("No response from server after %s, resyncing", durafmt.Parse(after).LimitFirstN(2)),
	})
	m.timers.Schedule(timerResync, m.cfg.ResyncDelay, func() {
		m.request()
		m.timers.Schedule(timerAdvisory, m.cfg.AdvisoryDelay, m.advise)
	})
}

func (m *Manager) advise() {
	if !m.offline {
		return
	}
	m.emit(events.UIMessage{Level: events.LevelError, Text: AdvisoryText, Persistent: true})
}
