// Package sched provides the clocks and cancellable tasks the front panel
// logic runs on. Nothing here is safe for concurrent use: callbacks are
// expected to run on the single goroutine that owns the panel state.
package sched

import "time"

type Timer interface {
	Stop() bool
}

type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// NewReal returns a wall clock. When post is set, fired callbacks are handed
// to it instead of being run on the timer goroutine.
func NewReal(post func(func())) *Real {
	return &Real{post: post}
}

type Real struct {
	post func(func())
}

func (r *Real) Now() time.Time {
	return time.Now()
}

func (r *Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, func() {
		if r.post != nil {
			r.post(f)
			return
		}
		f()
	})
}

// Group is a set of scheduled tasks cancelled together. Every Cancel bumps
// the generation, so a callback already queued by a stopped timer finds a
// stale generation and does nothing.
type Group struct {
	clock  Clock
	gen    uint64
	seq    uint64
	timers map[uint64]Timer
}

func NewGroup(clock Clock) *Group {
	return &Group{clock: clock, timers: make(map[uint64]Timer)}
}

func (g *Group) Generation() uint64 {
	return g.gen
}

// Pending reports the number of scheduled, not yet fired tasks.
func (g *Group) Pending() int {
	return len(g.timers)
}

func (g *Group) After(d time.Duration, fn func()) {
	gen := g.gen
	g.seq++
	id := g.seq
	g.timers[id] = g.clock.AfterFunc(d, func() {
		if g.gen != gen {
			return
		}
		delete(g.timers, id)
		fn()
	})
}

// Every runs fn each interval until the group is cancelled.
func (g *Group) Every(interval time.Duration, fn func()) {
	var tick func()
	tick = func() {
		gen := g.gen
		fn()
		if g.gen == gen {
			g.After(interval, tick)
		}
	}
	g.After(interval, tick)
}

func (g *Group) Cancel() {
	g.gen++
	for id, t := range g.timers {
		t.Stop()
		delete(g.timers, id)
	}
}
