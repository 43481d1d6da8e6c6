// Package ws streams core events to presentation clients and accepts their
// control messages over a websocket.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/DoyleJ11/ludo-sync/internal/events"
	"github.com/DoyleJ11/ludo-sync/pkg/types"
)

var ErrUnknownControl = errors.New("unknown control message")

// Session is the part of the client core a presentation client drives.
type Session interface {
	Subscribe(buffer int) (<-chan events.Event, func())
	CreateGame() error
	JoinGame(gameID string) error
	RollDice() error
	Choose(n int) error
	RequestState() error
	LeaveGame() error
	AnimationStarted() error
	AnimationCompleted() error
}

const (
	outboxSize   = 64
	writeTimeout = 3 * time.Second
	idleTimeout  = 5 * time.Minute
)

func Handler(s Session, log *zap.Logger) http.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: []string{"localhost:*", "127.0.0.1:*"},
		})
		if err != nil {
			log.Debug("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out, unsubscribe := s.Subscribe(outboxSize)
		defer unsubscribe()

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for ev := range out {
				payload, err := json.Marshal(Frame(ev))
				if err != nil {
					log.Warn("event not encodable", zap.String("event", ev.Name()), zap.Error(err))
					continue
				}
				ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
				err = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
				if err != nil {
					return
				}
			}
			// dropped as a slow subscriber, or the session closed
			conn.Close(websocket.StatusTryAgainLater, "event stream ended")
		}()

		// Reader loop
		for {
			ctx, cancel := context.WithTimeout(r.Context(), idleTimeout)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					log.Debug("presentation client gone", zap.Error(err))
				}
				return
			}

			var cm types.ControlMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				writeError(r.Context(), conn, "bad json")
				continue
			}
			if err := Dispatch(s, cm); err != nil {
				writeError(r.Context(), conn, err.Error())
			}
		}
	}
}

// Dispatch applies one control message to the session.
func Dispatch(s Session, cm types.ControlMessage) error {
	switch cm.Type {
	case types.ControlCreate:
		return s.CreateGame()
	case types.ControlJoin:
		return s.JoinGame(cm.GameID)
	case types.ControlRoll:
		return s.RollDice()
	case types.ControlChoose:
		return s.Choose(cm.Choice)
	case types.ControlState:
		return s.RequestState()
	case types.ControlLeave:
		return s.LeaveGame()
	case types.ControlAnimationStarted:
		return s.AnimationStarted()
	case types.ControlAnimationCompleted:
		return s.AnimationCompleted()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownControl, cm.Type)
	}
}

// Frame wraps an event for the wire, carrying its error text separately.
func Frame(ev events.Event) types.EventFrame {
	f := types.EventFrame{Event: ev.Name(), Data: ev}
	var err error
	switch e := ev.(type) {
	case events.ConnectionLost:
		err = e.Err
	case events.ServerMessage:
		err = e.Err
	case events.ActionFailed:
		err = e.Err
	case events.ActionTimedOut:
		err = e.Err
	}
	if err != nil {
		f.Error = err.Error()
	}
	return f
}

func writeError(ctx context.Context, conn *websocket.Conn, msg string) {
	b, _ := json.Marshal(types.EventFrame{Event: "error", Error: msg})
	_ = conn.Write(ctx, websocket.MessageText, b)
}
