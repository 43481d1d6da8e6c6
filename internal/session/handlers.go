package session

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/ludo-sync/internal/events"
	"github.com/DoyleJ11/ludo-sync/internal/protocol"
	"github.com/DoyleJ11/ludo-sync/internal/transport"
)

// handleInbound receives classified frames from the router.
func (s *Session) handleInbound(in protocol.Inbound) {
	s.lastFrame = time.Now()
	if protocol.Settles(in.Kind) {
		s.recovery.Clear()
	}

	switch in.Kind {
	case protocol.KindCreated, protocol.KindJoined:
		if in.GameID == "" {
			s.broadcast(events.UIMessage{Level: events.LevelWarn, Text: in.Message})
			return
		}
		if in.GameID != s.gameID {
			if s.gameID != "" {
				// the router already moved to the new topic
				s.clearGame()
			}
			s.gameID = in.GameID
			s.log.Info("game joined", zap.String("game_id", in.GameID), zap.Stringer("kind", in.Kind))
		}
		s.broadcast(events.GameJoined{GameID: in.GameID, Created: in.Kind == protocol.KindCreated})
		if in.Message != "" {
			s.broadcast(events.UIMessage{Level: events.LevelInfo, Text: in.Message})
		}

	case protocol.KindStateUpdate:
		s.store.Update(*in.Snapshot)

	case protocol.KindMoveOptions:
		opts := in.Options
		if len(opts) == 0 {
			// nothing selectable; keep any pending batch intact
			s.broadcast(events.InputRequired{Prompt: in.Message})
			return
		}
		s.pace(timerMoveReveal, s.cfg.MoveRevealDelay, func() { s.gate.Offer(opts) })

	case protocol.KindInputRequired:
		s.broadcast(events.InputRequired{Prompt: in.Message})

	case protocol.KindInvalidChoice:
		s.broadcast(events.UIMessage{Level: events.LevelWarn, Text: in.Message})

	case protocol.KindTurnNotice:
		s.broadcast(events.YourTurn{Message: in.Message})

	case protocol.KindDiceRolled:
		s.broadcast(events.DiceRolled{Message: in.Message, Dice: in.Dice})

	case protocol.KindServerError:
		s.broadcast(events.UIMessage{Level: events.LevelError, Text: in.Message})

	case protocol.KindStarted, protocol.KindMessage:
		if in.Message != "" {
			s.broadcast(events.UIMessage{Level: events.LevelInfo, Text: in.Message})
		}

	case protocol.KindAck:
		s.log.Debug("ack", zap.String("message", in.Message))

	default:
		s.broadcast(events.ServerMessage{Type: in.Type, Message: in.Message, Data: in.Raw, Err: in.Err})
	}
}

// emitCore is the sink for store, gate and recovery events.
func (s *Session) emitCore(ev events.Event) {
	switch e := ev.(type) {
	case events.PiecesMoved:
		for i := range e.Moves {
			m := &e.Moves[i]
			if s.paths != nil {
				m.Path = s.paths.Path(m.Color, m.From, m.To)
			}
		}
		s.broadcast(e)

	case events.AnimationChanged:
		if !e.Animating {
			s.timers.Cancel(timerWatchdog)
		}
		s.broadcast(e)

	case events.TurnChanged:
		s.broadcast(e)
		text := e.PlayerName + "'s turn"
		if e.PlayerID == s.identity.PlayerID() {
			text = "Your turn"
		}
		s.pace(timerTurnAnnounce, s.cfg.TurnAnnounceDelay, func() {
			s.broadcast(events.UIMessage{Level: events.LevelInfo, Text: text})
		})

	case events.GameEnded:
		s.recovery.Clear()
		s.timers.Cancel(timerTurnAnnounce)
		s.broadcast(e)
		s.broadcast(events.UIMessage{Level: events.LevelInfo, Text: fmt.Sprintf("Game over, %s wins", e.Winner), Persistent: true})

	default:
		s.broadcast(ev)
	}
}

// animationStarted handles the presentation start signal. The watchdog is
// re-armed on every start and canceled once the gate goes idle.
func (s *Session) animationStarted() {
	s.gate.Start()
	if s.cfg.AnimationWatchdog <= 0 {
		return
	}
	s.timers.Schedule(timerWatchdog, s.cfg.AnimationWatchdog, func() {
		if s.gate.Animating() {
			s.log.Warn("animation never completed, releasing gate")
			s.gate.ForceIdle()
		}
	})
}

// pace runs f after d, replacing an earlier f of the same name. A zero
// delay runs it right away.
func (s *Session) pace(name string, d time.Duration, f func()) {
	if d <= 0 {
		s.timers.Cancel(name)
		f()
		return
	}
	s.timers.Schedule(name, d, f)
}

func (s *Session) handleTransportEvent(ev transport.Event) {
	switch ev.Kind {
	case transport.EventDisconnected:
		if ev.Err == nil {
			return
		}
		// The snapshot is kept across an unexpected drop so the resync after
		// reconnecting diffs against the last known board. Close and
		// LeaveGame discard it.
		s.log.Warn("connection lost", zap.Error(ev.Err))
		s.personalUnsub = nil
		s.recovery.ConnectionLost(ev.Err)
		s.scheduleReconnect()

	case transport.EventReconnected:
		// the broker restored the channel along with its subscriptions
		s.recovery.ConnectionRestored()

	case transport.EventError:
		s.log.Debug("transport error", zap.Error(ev.Err))

	case transport.EventConnected:
		s.log.Debug("transport connected")
	}
}

// handleConnectDone finishes a connect attempt on the loop.
func (s *Session) handleConnectDone(err error) error {
	if err != nil {
		if s.reconnecting {
			s.reconnecting = false
			s.scheduleReconnect()
		}
		return err
	}
	s.reconnecting = false
	s.timers.Cancel(timerReconnect)

	if s.personalUnsub == nil {
		unsub, err := s.tr.Subscribe(transport.PersonalQueue, s.onFrame)
		if err != nil {
			return fmt.Errorf("subscribe personal queue: %w", err)
		}
		s.personalUnsub = unsub
	}
	s.router.Resubscribe()
	s.recovery.ConnectionRestored()
	return nil
}

func (s *Session) scheduleReconnect() {
	if s.cfg.ReconnectDelay <= 0 || s.reconnecting {
		return
	}
	s.timers.Schedule(timerReconnect, s.cfg.ReconnectDelay, s.reconnect)
}

// reconnect runs on the loop when the reconnect timer fires. The dial itself
// happens off the loop.
func (s *Session) reconnect() {
	if s.tr.Status() != transport.Disconnected {
		// still connecting, or the transport recovered by itself
		return
	}
	s.reconnecting = true
	timeout := s.cfg.ActionTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	go func() {
		ctx, cancel := context.WithTimeout(s.ctx, timeout)
		defer cancel()
		err := s.tr.Connect(ctx)
		s.post(connectDone{Err: err})
	}()
}
