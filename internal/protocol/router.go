// Package protocol classifies server frames and keeps the game topic subscription.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/DoyleJ11/ludo-sync/internal/moves"
	"github.com/DoyleJ11/ludo-sync/internal/transport"
	"github.com/DoyleJ11/ludo-sync/pkg/types"
)

var ErrMalformedFrame = errors.New("malformed frame")

type Kind int

const (
	KindUnknown Kind = iota
	KindCreated
	KindJoined
	KindTurnNotice
	KindMoveOptions
	KindInputRequired
	KindInvalidChoice
	KindAck
	KindServerError
	KindStarted
	KindStateUpdate
	KindMessage
	KindDiceRolled
)

var kindNames = map[Kind]string{
	KindUnknown:       "unknown",
	KindCreated:       "created",
	KindJoined:        "joined",
	KindTurnNotice:    "turn-notice",
	KindMoveOptions:   "move-options",
	KindInputRequired: "input-required",
	KindInvalidChoice: "invalid-choice",
	KindAck:           "ack",
	KindServerError:   "server-error",
	KindStarted:       "started",
	KindStateUpdate:   "state-update",
	KindMessage:       "message",
	KindDiceRolled:    "dice-rolled",
}

func (k Kind) String() string { return kindNames[k] }

// Inbound is a classified, normalized frame.
type Inbound struct {
	Kind     Kind
	Topic    string
	Type     string // raw type tag as received
	Success  bool
	Message  string
	Data     json.RawMessage
	GameID   string             // created/joined
	Snapshot *types.Snapshot    // state-update
	Options  []types.MoveOption // move-options
	Dice     *types.Dice        // dice-rolled, when the frame carries values
	Raw      []byte             // unknown
	Err      error              // unknown: why the frame could not be routed
}

var gameIDRe = regexp.MustCompile(`Game\s+([A-Za-z0-9_-]+)\s+(?:created|joined)`)

// ExtractGameID finds the game id in an ack, preferring structured data.
func ExtractGameID(message string, data json.RawMessage) (string, bool) {
	if len(data) > 0 {
		var d struct {
			GameID string `json:"gameId"`
		}
		if json.Unmarshal(data, &d) == nil && d.GameID != "" {
			return d.GameID, true
		}
	}
	m := gameIDRe.FindStringSubmatch(message)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Router classifies frames from the personal queue and the game topic. It is
// not safe for concurrent use; the session loop feeds it one frame at a time.
type Router struct {
	sub     transport.Subscriber
	handler transport.Handler
	out     func(Inbound)
	log     *zap.Logger

	gameID      string
	unsubscribe transport.Unsubscribe
}

// NewRouter builds a router. handler is attached to the game topic once a
// game id is known; it should hand frames back to Handle on the owner's goroutine.
func NewRouter(sub transport.Subscriber, handler transport.Handler, out func(Inbound), log *zap.Logger) *Router {
	if sub == nil || handler == nil || out == nil {
		panic("protocol: nil subscriber, handler or sink")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{sub: sub, handler: handler, out: out, log: log}
}

func (r *Router) GameID() string { return r.gameID }

// Subscribed reports whether the game topic subscription is live.
func (r *Router) Subscribed() bool { return r.unsubscribe != nil }

// Handle classifies one frame and forwards it.
func (r *Router) Handle(topic string, body []byte) {
	var msg types.ServerMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		r.forwardUnknown(topic, "", body, fmt.Errorf("%w: %v", ErrMalformedFrame, err))
		return
	}

	in := Inbound{
		Topic:   topic,
		Type:    string(msg.Type),
		Success: msg.Success,
		Message: msg.Message,
		Data:    msg.Data,
	}

	switch msg.Type {
	case types.MsgCreated, types.MsgJoined:
		in.Kind = KindCreated
		if msg.Type == types.MsgJoined {
			in.Kind = KindJoined
		}
		if id, ok := ExtractGameID(msg.Message, msg.Data); ok {
			in.GameID = id
			r.follow(id)
		} else {
			r.log.Warn("ack without game id", zap.String("type", in.Type), zap.String("message", msg.Message))
		}

	case types.MsgYourTurn:
		in.Kind = KindTurnNotice

	case types.MsgMoveOptions, types.MsgCaptureOptions:
		in.Kind = KindMoveOptions
		in.Options = options(msg)

	case types.MsgInputRequired:
		if moves.IsMoveOptions(msg.Message) {
			in.Kind = KindMoveOptions
			in.Options = moves.Parse(msg.Message)
		} else {
			in.Kind = KindInputRequired
		}

	case types.MsgInvalidChoice:
		in.Kind = KindInvalidChoice

	case types.MsgAck:
		in.Kind = KindAck

	case types.MsgError:
		in.Kind = KindServerError

	case types.MsgStarted:
		in.Kind = KindStarted

	case types.MsgStateUpdate:
		var snap types.Snapshot
		if err := json.Unmarshal(msg.Data, &snap); err != nil || len(msg.Data) == 0 {
			if err == nil {
				err = errors.New("empty data")
			}
			r.forwardUnknown(topic, in.Type, body, fmt.Errorf("%w: state update: %v", ErrMalformedFrame, err))
			return
		}
		in.Kind = KindStateUpdate
		in.Snapshot = &snap

	case types.MsgMessage:
		in.Kind = KindMessage

	case types.MsgDiceRolled:
		in.Kind = KindDiceRolled
		var d types.Dice
		if len(msg.Data) > 0 && json.Unmarshal(msg.Data, &d) == nil && d != (types.Dice{}) {
			in.Dice = &d
		}

	default:
		// forwarded verbatim so newer server types still reach the UI
		in.Kind = KindUnknown
		in.Raw = append([]byte(nil), body...)
		r.out(in)
		return
	}

	r.log.Debug("frame", zap.String("topic", topic), zap.String("type", in.Type), zap.Stringer("kind", in.Kind))
	r.out(in)
}

// follow subscribes to the game topic once per game id.
func (r *Router) follow(id string) {
	if id == r.gameID && r.unsubscribe != nil {
		return
	}
	if id != r.gameID && r.unsubscribe != nil {
		r.log.Info("switching game", zap.String("from", r.gameID), zap.String("to", id))
		r.unsubscribe()
		r.unsubscribe = nil
	}
	r.gameID = id
	r.subscribe()
}

func (r *Router) subscribe() {
	topic := transport.GameTopic(r.gameID)
	unsub, err := r.sub.Subscribe(topic, r.handler)
	if err != nil {
		r.log.Warn("game topic subscribe failed", zap.String("game_id", r.gameID), zap.Error(err))
		return
	}
	r.unsubscribe = unsub
	r.log.Info("following game", zap.String("game_id", r.gameID), zap.String("topic", topic))
}

// Resubscribe re-establishes the game topic after the transport reconnected.
// Earlier handles are assumed dead.
func (r *Router) Resubscribe() {
	r.unsubscribe = nil
	if r.gameID == "" {
		return
	}
	r.subscribe()
}

// Reset drops the game topic and forgets the game id.
func (r *Router) Reset() {
	if r.unsubscribe != nil {
		r.unsubscribe()
		r.unsubscribe = nil
	}
	r.gameID = ""
}

func (r *Router) forwardUnknown(topic, typ string, body []byte, err error) {
	r.log.Debug("unrouted frame", zap.String("topic", topic), zap.String("type", typ), zap.Error(err))
	r.out(Inbound{
		Kind:  KindUnknown,
		Topic: topic,
		Type:  typ,
		Raw:   append([]byte(nil), body...),
		Err:   err,
	})
}

// options prefers structured options and falls back to parsing the text.
func options(msg types.ServerMessage) []types.MoveOption {
	if len(msg.Data) > 0 {
		var d struct {
			Options []types.MoveOption `json:"options"`
		}
		if json.Unmarshal(msg.Data, &d) == nil && len(d.Options) > 0 {
			return d.Options
		}
	}
	return moves.Parse(msg.Message)
}
