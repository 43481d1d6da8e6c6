// Package board answers which cells a piece crosses between two positions.
package board

import "github.com/DoyleJ11/ludo-sync/pkg/types"

// PathProvider returns the ordered cells a piece of color visits moving from
// one cell to another, excluding from and including to.
type PathProvider interface {
	Path(color string, from, to types.Position) []types.Position
}

// PathFunc adapts a function to a PathProvider.
type PathFunc func(color string, from, to types.Position) []types.Position

func (f PathFunc) Path(color string, from, to types.Position) []types.Position {
	return f(color, from, to)
}

// Grid walks along the row first, then along the column. It ignores color;
// it is a fallback for boards that do not describe their track.
type Grid struct{}

func (Grid) Path(_ string, from, to types.Position) []types.Position {
	if from == to {
		return nil
	}
	path := make([]types.Position, 0, abs(to.Col-from.Col)+abs(to.Row-from.Row))
	cur := from
	for cur.Col != to.Col {
		cur.Col += sign(to.Col - cur.Col)
		path = append(path, cur)
	}
	for cur.Row != to.Row {
		cur.Row += sign(to.Row - cur.Row)
		path = append(path, cur)
	}
	return path
}

// Track follows a fixed loop of cells per color, such as a Ludo main track
// plus home column. Moves between cells that are not on the color's track
// fall back to Grid.
type Track struct {
	Routes map[string][]types.Position
}

func (t Track) Path(color string, from, to types.Position) []types.Position {
	route := t.Routes[color]
	fi, ti := index(route, from), index(route, to)
	if fi < 0 || ti < 0 || ti <= fi {
		return Grid{}.Path(color, from, to)
	}
	return append([]types.Position(nil), route[fi+1:ti+1]...)
}

func index(route []types.Position, p types.Position) int {
	for i, c := range route {
		if c == p {
			return i
		}
	}
	return -1
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	}
	return 0
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
