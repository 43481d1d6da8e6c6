// Package events defines the notifications the client core hands to the
// presentation layer. Every event is an immutable value; snapshots inside
// events are copies, never the canonical instance.
package events

import (
	"time"

	"github.com/DoyleJ11/ludo-sync/pkg/types"
)

// Event names as seen by the presentation layer.
const (
	NameDiceUpdated        = "dice:updated"
	NamePiecesMoved        = "pieces:moved"
	NameTurnChanged        = "turn:changed"
	NameMovesAvailable     = "moves:available"
	NameStateUpdated       = "state:updated"
	NameGameEnded          = "game:ended"
	NameConnectionLost     = "connection:lost"
	NameConnectionRestored = "connection:restored"
	NameUIMessage          = "ui:message"
	NameAnimationChanged   = "animation:changed"
	NameInputRequired      = "input:required"
	NameGameJoined         = "game:joined"
	NameYourTurn           = "turn:yours"
	NameDiceRolled         = "dice:rolled"
	NameServerMessage      = "server:message"
	NameActionFailed       = "action:failed"
	NameActionTimedOut     = "action:timeout"
)

type Event interface {
	Name() string
}

type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

type DiceUpdated struct {
	Dice     types.Dice  `json:"dice"`
	Previous *types.Dice `json:"previous,omitempty"` // nil on the first snapshot
}

// PieceMove records one piece whose grid position changed between snapshots.
type PieceMove struct {
	PieceID   string           `json:"pieceId"`
	Color     string           `json:"color"`
	From      types.Position   `json:"from"`
	To        types.Position   `json:"to"`
	FromState types.PieceState `json:"fromState"`
	ToState   types.PieceState `json:"toState"`
	Path      []types.Position `json:"path,omitempty"` // filled by the session from the board provider
}

type PiecesMoved struct {
	Moves []PieceMove `json:"moves,omitempty"`
}

type TurnChanged struct {
	PlayerID         string `json:"playerId"`
	PlayerName       string `json:"playerName"`
	PreviousPlayerID string `json:"previousPlayerId"`
}

type MovesAvailable struct {
	Options []types.MoveOption `json:"options,omitempty"`
}

type StateUpdated struct {
	Old *types.Snapshot `json:"old,omitempty"` // nil on the first snapshot
	New *types.Snapshot `json:"new,omitempty"`
}

type GameEnded struct {
	Winner string `json:"winner"`
}

type ConnectionLost struct {
	Err error `json:"-"`
}

type ConnectionRestored struct{}

// UIMessage is a user-facing notice. Persistent notices stay up until replaced.
type UIMessage struct {
	Level      Level  `json:"level"`
	Text       string `json:"text"`
	Persistent bool   `json:"persistent"`
}

type AnimationChanged struct {
	Animating bool `json:"animating"`
}

type InputRequired struct {
	Prompt string `json:"prompt"`
}

type GameJoined struct {
	GameID  string `json:"gameId"`
	Created bool   `json:"created"`
}

type YourTurn struct {
	Message string `json:"message"`
}

type DiceRolled struct {
	Message string      `json:"message"`
	Dice    *types.Dice `json:"dice,omitempty"`
}

// ServerMessage forwards frames the router could not classify or decode.
type ServerMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Data    []byte `json:"data,omitempty"`
	Err     error  `json:"-"`
}

type ActionFailed struct {
	Action string `json:"action"`
	Err    error  `json:"-"`
}

type ActionTimedOut struct {
	Action string        `json:"action"`
	After  time.Duration `json:"after"`
	Err    error         `json:"-"`
}

func (DiceUpdated) Name() string        { return NameDiceUpdated }
func (PiecesMoved) Name() string        { return NamePiecesMoved }
func (TurnChanged) Name() string        { return NameTurnChanged }
func (MovesAvailable) Name() string     { return NameMovesAvailable }
func (StateUpdated) Name() string       { return NameStateUpdated }
func (GameEnded) Name() string          { return NameGameEnded }
func (ConnectionLost) Name() string     { return NameConnectionLost }
func (ConnectionRestored) Name() string { return NameConnectionRestored }
func (UIMessage) Name() string          { return NameUIMessage }
func (AnimationChanged) Name() string   { return NameAnimationChanged }
func (InputRequired) Name() string      { return NameInputRequired }
func (GameJoined) Name() string         { return NameGameJoined }
func (YourTurn) Name() string           { return NameYourTurn }
func (DiceRolled) Name() string         { return NameDiceRolled }
func (ServerMessage) Name() string      { return NameServerMessage }
func (ActionFailed) Name() string       { return NameActionFailed }
func (ActionTimedOut) Name() string     { return NameActionTimedOut }

// Sink receives events synchronously from the component that produced them.
type Sink func(Event)

// Recorder collects events in order. Handy as a Sink in tests and tools.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Sink() Sink {
	return func(e Event) { r.Events = append(r.Events, e) }
}

func (r *Recorder) Names() []string {
	names := make([]string, 0, len(r.Events))
	for _, e := range r.Events {
		names = append(names, e.Name())
	}
	return names
}

func (r *Recorder) Reset() { r.Events = nil }
