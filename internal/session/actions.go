package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/DoyleJ11/ludo-sync/internal/events"
	"github.com/DoyleJ11/ludo-sync/internal/protocol"
	"github.com/DoyleJ11/ludo-sync/internal/transport"
)

// Connect opens the transport and subscribes to the personal queue.
func (s *Session) Connect(ctx context.Context) error {
	err := s.tr.Connect(ctx)
	reply := make(chan error, 1)
	if !s.post(connectDone{Err: err, Reply: reply}) {
		return ErrClosed
	}
	select {
	case err := <-reply:
		return err
	case <-s.ctx.Done():
		return ErrClosed
	}
}

func (s *Session) CreateGame() error {
	return s.do(actionReq{Action: protocol.ActionCreate})
}

func (s *Session) JoinGame(gameID string) error {
	return s.do(actionReq{Action: protocol.ActionJoin, GameID: gameID})
}

func (s *Session) RollDice() error {
	return s.do(actionReq{Action: protocol.ActionRoll})
}

// Choose answers the latest move options with a 1-based option number.
func (s *Session) Choose(n int) error {
	return s.do(actionReq{Action: protocol.ActionChoose, Choice: n})
}

func (s *Session) RequestState() error {
	return s.do(actionReq{Action: protocol.ActionState})
}

// LeaveGame tells the server and discards the local game state.
func (s *Session) LeaveGame() error {
	return s.do(actionReq{Action: protocol.ActionLeave})
}

// AnimationStarted is reported by the presentation layer.
func (s *Session) AnimationStarted() error {
	if !s.post(animationSignal{Start: true}) {
		return ErrClosed
	}
	return nil
}

// AnimationCompleted is reported by the presentation layer once a movement
// animation finished playing.
func (s *Session) AnimationCompleted() error {
	if !s.post(animationSignal{Start: false}) {
		return ErrClosed
	}
	return nil
}

func (s *Session) do(req actionReq) error {
	req.Reply = make(chan error, 1)
	if !s.post(req) {
		return ErrClosed
	}
	select {
	case err := <-req.Reply:
		return err
	case <-s.ctx.Done():
		return ErrClosed
	}
}

// act runs on the loop.
func (s *Session) act(req actionReq) error {
	if s.tr.Status() != transport.Connected {
		return s.reject(req.Action, ErrNotConnected)
	}

	var out protocol.Outbound
	switch req.Action {
	case protocol.ActionCreate:
		out = protocol.CreateGame(s.identity.PlayerID())
	case protocol.ActionJoin:
		if req.GameID == "" {
			return s.reject(req.Action, ErrNoActiveGame)
		}
		out = protocol.JoinGame(req.GameID, s.identity.PlayerID())
	default:
		if s.gameID == "" {
			return s.reject(req.Action, ErrNoActiveGame)
		}
		switch req.Action {
		case protocol.ActionRoll:
			out = protocol.RollDice()
		case protocol.ActionChoose:
			out = protocol.Choose(req.Choice)
		case protocol.ActionState:
			out = protocol.RequestState()
		case protocol.ActionLeave:
			out = protocol.LeaveGame()
		default:
			return s.reject(req.Action, fmt.Errorf("unknown action %q", req.Action))
		}
	}

	if !s.limiter.Allow() {
		return s.reject(req.Action, ErrRateLimited)
	}
	if !s.tr.Publish(out.Action.Destination(), out.Payload) {
		return s.reject(req.Action, fmt.Errorf("%w: %s", ErrSendFailed, out.Action.Destination()))
	}
	s.log.Debug("action sent", zap.String("action", string(req.Action)))

	switch req.Action {
	case protocol.ActionCreate, protocol.ActionJoin, protocol.ActionRoll, protocol.ActionChoose:
		if s.cfg.ActionTimeout > 0 {
			s.recovery.Start(string(req.Action), s.cfg.ActionTimeout)
		}
	case protocol.ActionLeave:
		s.endGame()
		s.broadcast(events.UIMessage{Level: events.LevelInfo, Text: "Left the game"})
	}
	return nil
}

func (s *Session) reject(action protocol.Action, err error) error {
	s.log.Info("action rejected", zap.String("action", string(action)), zap.Error(err))
	s.broadcast(events.ActionFailed{Action: string(action), Err: err})
	return err
}

// requestState is the recovery re-request. It skips the limiter and the
// action timeout and stays silent when there is nothing to ask for.
func (s *Session) requestState() {
	if s.gameID == "" || s.tr.Status() != transport.Connected {
		return
	}
	out := protocol.RequestState()
	s.tr.Publish(out.Action.Destination(), out.Payload)
}

// endGame drops the game subscription and discards its state.
func (s *Session) endGame() {
	s.router.Reset()
	s.clearGame()
}

// clearGame discards the local state of the current game.
func (s *Session) clearGame() {
	s.store.Reset()
	s.gate.Reset()
	s.recovery.Clear()
	s.timers.Cancel(timerTurnAnnounce)
	s.timers.Cancel(timerMoveReveal)
	s.timers.Cancel(timerWatchdog)
	s.gameID = ""
}
