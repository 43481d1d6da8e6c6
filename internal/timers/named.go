package timers

import "time"

// Named keeps at most one pending callback per name. Scheduling a name again
// replaces the previous callback. A generation counter drops fires that were
// already in flight when their timer was replaced or canceled.
//
// Named is not safe for concurrent use; fires must be delivered on the same
// goroutine that schedules and cancels.
type Named struct {
	sched Scheduler
	gen   uint64
	slots map[string]slot
}

type slot struct {
	gen   uint64
	timer Timer
}

func NewNamed(s Scheduler) *Named {
	return &Named{sched: s, slots: make(map[string]slot)}
}

// Schedule arms name to run f after d, canceling any earlier callback for name.
func (n *Named) Schedule(name string, d time.Duration, f func()) {
	n.Cancel(name)
	n.gen++
	gen := n.gen
	t := n.sched.AfterFunc(d, func() {
		cur, ok := n.slots[name]
		if !ok || cur.gen != gen {
			return
		}
		delete(n.slots, name)
		f()
	})
	n.slots[name] = slot{gen: gen, timer: t}
}

// Cancel stops name. Canceling an unknown or already-fired name is a no-op.
func (n *Named) Cancel(name string) bool {
	s, ok := n.slots[name]
	if !ok {
		return false
	}
	delete(n.slots, name)
	s.timer.Stop()
	return true
}

func (n *Named) Active(name string) bool {
	_, ok := n.slots[name]
	return ok
}

func (n *Named) CancelAll() {
	for name := range n.slots {
		n.Cancel(name)
	}
}
