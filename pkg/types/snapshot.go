package types

// Snapshot is one complete server-reported game state.
//
// STATE_UPDATE data:
//   dice: { die1: number, die2: number }
//   currentPlayerId: string
//   currentPlayerName: string
//   players: [{ id, name, color }]
//   pieces: [{ id, color, position: { row, col }, atHome, inSafeZone, finished }]
//   gameStatus: "WAITING" | "IN_PROGRESS" | "FINISHED"
//   gameOver: boolean
//   winner: string
type Snapshot struct {
	Dice              Dice     `json:"dice"`
	CurrentPlayerID   string   `json:"currentPlayerId"`
	CurrentPlayerName string   `json:"currentPlayerName"`
	Players           []Player `json:"players"`
	Pieces            []Piece  `json:"pieces"`
	GameStatus        string   `json:"gameStatus"`
	GameOver          bool     `json:"gameOver"`
	Winner            string   `json:"winner,omitempty"`
}

type Dice struct {
	Die1 int `json:"die1"`
	Die2 int `json:"die2"`
}

type Player struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

type Piece struct {
	ID         string   `json:"id"`
	Color      string   `json:"color"`
	Position   Position `json:"position"`
	AtHome     bool     `json:"atHome"`
	InSafeZone bool     `json:"inSafeZone"`
	Finished   bool     `json:"finished"`
}

// PieceState labels where a piece is, independent of its grid cell.
type PieceState string

const (
	PieceHome     PieceState = "home"
	PieceTrack    PieceState = "track"
	PieceSafe     PieceState = "safe"
	PieceFinished PieceState = "finished"
)

func (p Piece) State() PieceState {
	switch {
	case p.Finished:
		return PieceFinished
	case p.AtHome:
		return PieceHome
	case p.InSafeZone:
		return PieceSafe
	default:
		return PieceTrack
	}
}

// Clone returns a deep copy so callers never share slices with the canonical snapshot.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	c := *s
	if s.Players != nil {
		c.Players = append([]Player(nil), s.Players...)
	}
	if s.Pieces != nil {
		c.Pieces = append([]Piece(nil), s.Pieces...)
	}
	return &c
}

// PlayerName looks up a player's display name, falling back to the id.
func (s *Snapshot) PlayerName(id string) string {
	for _, p := range s.Players {
		if p.ID == id && p.Name != "" {
			return p.Name
		}
	}
	return id
}

// MoveOption is one selectable action, keyed by Number.
type MoveOption struct {
	Number      int    `json:"number"`
	Description string `json:"description"`
	Source      string `json:"source,omitempty"`
}
