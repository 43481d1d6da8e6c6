package protocol

import (
	"github.com/DoyleJ11/ludo-sync/internal/transport"
	"github.com/DoyleJ11/ludo-sync/pkg/types"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionJoin   Action = "join"
	ActionRoll   Action = "roll"
	ActionChoose Action = "choose"
	ActionState  Action = "state"
	ActionLeave  Action = "leave"
)

// Destination is where the server listens for an action.
func (a Action) Destination() string { return transport.ActionDestination(string(a)) }

// Outbound pairs an action with its payload.
type Outbound struct {
	Action  Action
	Payload any
}

func CreateGame(playerID string) Outbound {
	return Outbound{ActionCreate, types.CreateGame{PlayerID: playerID}}
}

func JoinGame(gameID, playerID string) Outbound {
	return Outbound{ActionJoin, types.JoinGame{GameID: gameID, PlayerID: playerID}}
}

func RollDice() Outbound { return Outbound{ActionRoll, types.RollDice{}} }

func Choose(choice int) Outbound { return Outbound{ActionChoose, types.Choose{Choice: choice}} }

func RequestState() Outbound { return Outbound{ActionState, types.RequestState{}} }

func LeaveGame() Outbound { return Outbound{ActionLeave, types.LeaveGame{}} }

// Settles reports whether an inbound frame answers an outstanding action,
// clearing its timeout.
func Settles(k Kind) bool {
	switch k {
	case KindCreated, KindJoined, KindAck, KindStateUpdate, KindDiceRolled,
		KindMoveOptions, KindInputRequired, KindInvalidChoice, KindTurnNotice, KindServerError:
		return true
	}
	return false
}
