package store

import (
	"github.com/DoyleJ11/ludo-sync/internal/events"
	"github.com/DoyleJ11/ludo-sync/pkg/types"
)

/*
	Diff order is fixed for one update:
	DiceUpdated -> PiecesMoved -> TurnChanged -> GameEnded
	StateUpdated is appended by the Store, not by Diff.
*/

// Diff computes the granular change events between two consecutive snapshots.
// old may be nil (first snapshot). Neither input is modified.
func Diff(old, next *types.Snapshot) []events.Event {
	if next == nil {
		return nil
	}
	var out []events.Event
	if ev, ok := diffDice(old, next); ok {
		out = append(out, ev)
	}
	if ev, ok := diffPieces(old, next); ok {
		out = append(out, ev)
	}
	if ev, ok := diffTurn(old, next); ok {
		out = append(out, ev)
	}
	if ev, ok := diffGameOver(old, next); ok {
		out = append(out, ev)
	}
	return out
}

func diffDice(old, next *types.Snapshot) (events.Event, bool) {
	if old == nil {
		return events.DiceUpdated{Dice: next.Dice}, true
	}
	if old.Dice == next.Dice {
		return nil, false
	}
	prev := old.Dice
	return events.DiceUpdated{Dice: next.Dice, Previous: &prev}, true
}

func diffPieces(old, next *types.Snapshot) (events.Event, bool) {
	if old == nil {
		return nil, false
	}
	before := make(map[string]types.Piece, len(old.Pieces))
	for _, p := range old.Pieces {
		before[p.ID] = p
	}

	var moves []events.PieceMove
	for _, p := range next.Pieces {
		prev, ok := before[p.ID]
		if !ok {
			// no baseline for this piece (e.g. rejoin mid-game)
			continue
		}
		if prev.Position == p.Position {
			continue
		}
		moves = append(moves, events.PieceMove{
			PieceID:   p.ID,
			Color:     p.Color,
			From:      prev.Position,
			To:        p.Position,
			FromState: prev.State(),
			ToState:   p.State(),
		})
	}
	if len(moves) == 0 {
		return nil, false
	}
	return events.PiecesMoved{Moves: moves}, true
}

func diffTurn(old, next *types.Snapshot) (events.Event, bool) {
	if old != nil && old.CurrentPlayerID == next.CurrentPlayerID {
		return nil, false
	}
	ev := events.TurnChanged{
		PlayerID:   next.CurrentPlayerID,
		PlayerName: next.CurrentPlayerName,
	}
	if ev.PlayerName == "" {
		ev.PlayerName = next.PlayerName(next.CurrentPlayerID)
	}
	if old != nil {
		ev.PreviousPlayerID = old.CurrentPlayerID
	}
	return ev, true
}

func diffGameOver(old, next *types.Snapshot) (events.Event, bool) {
	if !next.GameOver {
		return nil, false
	}
	if old != nil && old.GameOver {
		return nil, false
	}
	return events.GameEnded{Winner: next.Winner}, true
}
