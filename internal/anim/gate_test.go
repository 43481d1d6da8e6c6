package anim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/ludo-sync/internal/events"
	"github.com/DoyleJ11/ludo-sync/pkg/types"
)

func batch(n ...int) []types.MoveOption {
	out := make([]types.MoveOption, 0, len(n))
	for _, x := range n {
		out = append(out, types.MoveOption{Number: x})
	}
	return out
}

func delivered(rec *events.Recorder) [][]types.MoveOption {
	var out [][]types.MoveOption
	for _, e := range rec.Events {
		if ma, ok := e.(events.MovesAvailable); ok {
			out = append(out, ma.Options)
		}
	}
	return out
}

func TestGate_LatestWinsWhileAnimating(t *testing.T) {
	rec := &events.Recorder{}
	g := NewGate(rec.Sink())

	g.Start()
	g.Offer(batch(1))
	g.Offer(batch(2, 3))
	assert.Empty(t, delivered(rec))
	assert.True(t, g.Pending())

	g.Complete()

	got := delivered(rec)
	require.Len(t, got, 1)
	assert.Equal(t, batch(2, 3), got[0])
	assert.False(t, g.Pending())
	assert.Equal(t, []string{
		events.NameAnimationChanged,
		events.NameAnimationChanged,
		events.NameMovesAvailable,
	}, rec.Names())
}

func TestGate_IdleDeliversImmediately(t *testing.T) {
	rec := &events.Recorder{}
	g := NewGate(rec.Sink())

	g.Offer(batch(1))

	assert.Equal(t, [][]types.MoveOption{batch(1)}, delivered(rec))
	assert.Equal(t, []string{events.NameMovesAvailable}, rec.Names())
}

func TestGate_NestedAnimations(t *testing.T) {
	rec := &events.Recorder{}
	g := NewGate(rec.Sink())

	g.Start()
	g.Start()
	g.Offer(batch(7))
	g.Complete()
	assert.True(t, g.Animating())
	assert.Empty(t, delivered(rec))

	g.Complete()
	assert.False(t, g.Animating())
	assert.Equal(t, [][]types.MoveOption{batch(7)}, delivered(rec))

	// only 0->1 and 1->0 are broadcast
	assert.Equal(t, []string{
		events.NameAnimationChanged,
		events.NameAnimationChanged,
		events.NameMovesAvailable,
	}, rec.Names())
	assert.Equal(t, events.AnimationChanged{Animating: true}, rec.Events[0])
	assert.Equal(t, events.AnimationChanged{Animating: false}, rec.Events[1])
}

func TestGate_CompleteWithoutStartIsIgnored(t *testing.T) {
	rec := &events.Recorder{}
	g := NewGate(rec.Sink())

	g.Complete()
	assert.Empty(t, rec.Events)
	assert.False(t, g.Animating())

	g.Start()
	assert.True(t, g.Animating())
}

func TestGate_NoPendingOnComplete(t *testing.T) {
	rec := &events.Recorder{}
	g := NewGate(rec.Sink())

	g.Start()
	g.Complete()
	assert.Empty(t, delivered(rec))
}

func TestGate_ForceIdleReleases(t *testing.T) {
	rec := &events.Recorder{}
	g := NewGate(rec.Sink())

	g.Start()
	g.Start()
	g.Offer(batch(4))
	g.ForceIdle()

	assert.False(t, g.Animating())
	assert.Equal(t, [][]types.MoveOption{batch(4)}, delivered(rec))
}

func TestGate_ResetDropsPending(t *testing.T) {
	rec := &events.Recorder{}
	g := NewGate(rec.Sink())

	g.Start()
	g.Offer(batch(1))
	g.Reset()
	g.Complete()

	assert.Empty(t, delivered(rec))
	assert.False(t, g.Pending())
}

func TestGate_OfferCopiesBatch(t *testing.T) {
	rec := &events.Recorder{}
	g := NewGate(rec.Sink())

	b := batch(1, 2)
	g.Start()
	g.Offer(b)
	b[0].Number = 99
	g.Complete()

	assert.Equal(t, batch(1, 2), delivered(rec)[0])
}
