package moves

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/ludo-sync/pkg/types"
)

func TestParse_Range(t *testing.T) {
	opts := Parse("(Options: 1-3)")

	require.Len(t, opts, 3)
	for i, o := range opts {
		assert.Equal(t, i+1, o.Number)
	}
	assert.Equal(t, "Game option 1", opts[0].Description)
	assert.Equal(t, "Game option 2", opts[1].Description)
	assert.Equal(t, "Game option 3", opts[2].Description)
}

func TestParse_Enumerated(t *testing.T) {
	opts := Parse("1. Move piece A\n2. Move piece B")

	assert.Equal(t, []types.MoveOption{
		{Number: 1, Description: "Move piece A", Source: "1. Move piece A"},
		{Number: 2, Description: "Move piece B", Source: "2. Move piece B"},
	}, opts)
}

func TestParse_Cases(t *testing.T) {
	cases := []struct {
		name    string
		text    string
		numbers []int
	}{
		{name: "range embedded in sentence", text: "Roll done. Pick one (Options: 2-4)", numbers: []int{2, 3, 4}},
		{name: "inverted range", text: "(Options: 5-2)", numbers: nil},
		{name: "range capped", text: "(Options: 1-500)", numbers: seq(1, MaxRangeOptions)},
		{name: "multi-line ignores range marker", text: "Choose a move (Options: 1-9)\n3. Move RED_2 to 14", numbers: []int{3}},
		{name: "skips noise lines", text: "Available moves:\n\n1. Move RED_1\nnot an option\n 2.   Capture BLUE_3  \nx. bogus", numbers: []int{1, 2}},
		{name: "windows line endings", text: "1. Move A\r\n2. Move B\r\n", numbers: []int{1, 2}},
		{name: "no options", text: "Waiting for other players", numbers: nil},
		{name: "empty", text: "", numbers: nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got []int
			for _, o := range Parse(tc.text) {
				got = append(got, o.Number)
			}
			assert.Equal(t, tc.numbers, got)
		})
	}
}

func TestParse_TrimsDescription(t *testing.T) {
	opts := Parse(" 2.   Capture BLUE_3  ")
	require.Len(t, opts, 1)
	assert.Equal(t, "Capture BLUE_3", opts[0].Description)
	assert.Equal(t, " 2.   Capture BLUE_3  ", opts[0].Source)
}

func TestIsMoveOptions(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"Choose a move:\n1. RED_1", true},
		{"Available moves are listed below", true},
		{"(Options: 1-3)", true},
		{"1. Move piece A\n2. Move piece B", true},
		{"Please enter\n1. Move", true},
		{"1. Pass", false},
		{"Move your piece", false},
		{"Enter your name", false},
		{"2. Move piece A", false},
	}

	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			assert.Equal(t, tc.want, IsMoveOptions(tc.text))
		})
	}
}

func seq(lo, hi int) []int {
	out := make([]int, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		out = append(out, i)
	}
	return out
}
