// Package anim holds back move options while piece animations run.
package anim

import (
	"github.com/DoyleJ11/ludo-sync/internal/events"
	"github.com/DoyleJ11/ludo-sync/pkg/types"
)

// Gate delivers move-option batches immediately when idle and keeps only the
// most recent batch while any animation is active. It is not safe for
// concurrent use.
type Gate struct {
	active  int
	pending []types.MoveOption
	hasPend bool
	emit    events.Sink
}

func NewGate(emit events.Sink) *Gate {
	if emit == nil {
		panic("anim: nil sink")
	}
	return &Gate{emit: emit}
}

func (g *Gate) Animating() bool { return g.active > 0 }

// Pending reports whether a suppressed batch is waiting for the animation to end.
func (g *Gate) Pending() bool { return g.hasPend }

// Start registers one running animation.
func (g *Gate) Start() {
	g.active++
	if g.active == 1 {
		g.emit(events.AnimationChanged{Animating: true})
	}
}

// Complete marks one animation finished. The last one out releases the
// pending batch, if any. Extra completions are ignored.
func (g *Gate) Complete() {
	if g.active == 0 {
		return
	}
	g.active--
	if g.active == 0 {
		g.release()
	}
}

// ForceIdle ends every running animation at once.
func (g *Gate) ForceIdle() {
	if g.active == 0 {
		return
	}
	g.active = 0
	g.release()
}

// Offer hands a new batch to the gate.
func (g *Gate) Offer(opts []types.MoveOption) {
	if g.active > 0 {
		g.pending = append([]types.MoveOption(nil), opts...)
		g.hasPend = true
		return
	}
	g.deliver(opts)
}

// Reset drops the pending batch and the animation count without emitting.
func (g *Gate) Reset() {
	g.active = 0
	g.pending = nil
	g.hasPend = false
}

func (g *Gate) release() {
	g.emit(events.AnimationChanged{Animating: false})
	if !g.hasPend {
		return
	}
	opts := g.pending
	g.pending = nil
	g.hasPend = false
	g.deliver(opts)
}

func (g *Gate) deliver(opts []types.MoveOption) {
	g.emit(events.MovesAvailable{Options: append([]types.MoveOption(nil), opts...)})
}
