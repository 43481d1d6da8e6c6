package types

// Presentation client <-> local client (websocket at /ws)

// ControlMessage is sent by a presentation client.
//
//	{ type: create|join|roll|choose|state|leave|animationStarted|animationCompleted,
//	  gameId?: string, choice?: number }
type ControlMessage struct {
	Type   string `json:"type"`
	GameID string `json:"gameId,omitempty"`
	Choice int    `json:"choice,omitempty"`
}

const (
	ControlCreate             = "create"
	ControlJoin               = "join"
	ControlRoll               = "roll"
	ControlChoose             = "choose"
	ControlState              = "state"
	ControlLeave              = "leave"
	ControlAnimationStarted   = "animationStarted"
	ControlAnimationCompleted = "animationCompleted"
)

// EventFrame carries one core event to a presentation client.
type EventFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}
