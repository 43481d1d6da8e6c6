package types

import "encoding/json"

// Server -> Client
//
// Personal queue (/user/queue/game):
//   { type: CREATED|JOINED|YOUR_TURN|MOVE_OPTIONS|CAPTURE_OPTIONS|INPUT_REQUIRED|INVALID_CHOICE|ACK|ERROR,
//     success: boolean, message: string, data: object }
//
// Game topic (/topic/game/{gameId}):
//   { type: STARTED|STATE_UPDATE|MESSAGE|DICE_ROLLED, message: string, data: object }

type MessageType string

const (
	MsgCreated        MessageType = "CREATED"
	MsgJoined         MessageType = "JOINED"
	MsgYourTurn       MessageType = "YOUR_TURN"
	MsgMoveOptions    MessageType = "MOVE_OPTIONS"
	MsgCaptureOptions MessageType = "CAPTURE_OPTIONS"
	MsgInputRequired  MessageType = "INPUT_REQUIRED"
	MsgInvalidChoice  MessageType = "INVALID_CHOICE"
	MsgAck            MessageType = "ACK"
	MsgError          MessageType = "ERROR"
	MsgStarted        MessageType = "STARTED"
	MsgStateUpdate    MessageType = "STATE_UPDATE"
	MsgMessage        MessageType = "MESSAGE"
	MsgDiceRolled     MessageType = "DICE_ROLLED"
)

type ServerMessage struct {
	Type    MessageType     `json:"type"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Client -> Server (fire and forget)

type CreateGame struct {
	PlayerID string `json:"playerId"`
}

type JoinGame struct {
	GameID   string `json:"gameId"`
	PlayerID string `json:"playerId"`
}

type RollDice struct{}

type Choose struct {
	Choice int `json:"choice"`
}

type RequestState struct{}

type LeaveGame struct{}
