package sched

import (
	"sort"
	"time"
)

// Fake is a manually advanced clock. Callbacks run synchronously inside
// Advance, in deadline order, with Now set to their deadline.
type Fake struct {
	now    time.Time
	seq    int
	timers []*fakeTimer
}

func NewFake() *Fake {
	return &Fake{now: time.Unix(1700000000, 0)}
}

type fakeTimer struct {
	clock   *Fake
	at      time.Time
	seq     int
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	if t.stopped {
		return false
	}
	t.stopped = true
	return t.clock.remove(t)
}

func (f *Fake) Now() time.Time {
	return f.now
}

func (f *Fake) AfterFunc(d time.Duration, fn func()) Timer {
	f.seq++
	t := &fakeTimer{clock: f, at: f.now.Add(d), seq: f.seq, fn: fn}
	f.timers = append(f.timers, t)
	return t
}

// Advance moves the clock forward by d, firing every timer that falls due.
func (f *Fake) Advance(d time.Duration) {
	end := f.now.Add(d)
	for {
		t := f.next(end)
		if t == nil {
			break
		}
		f.remove(t)
		t.stopped = true
		f.now = t.at
		t.fn()
	}
	f.now = end
}

// Pending is the number of armed timers.
func (f *Fake) Pending() int {
	return len(f.timers)
}

func (f *Fake) next(end time.Time) *fakeTimer {
	if len(f.timers) == 0 {
		return nil
	}
	sort.SliceStable(f.timers, func(i, j int) bool {
		a, b := f.timers[i], f.timers[j]
		if a.at.Equal(b.at) {
			return a.seq < b.seq
		}
		return a.at.Before(b.at)
	})
	if t := f.timers[0]; !t.at.After(end) {
		return t
	}
	return nil
}

func (f *Fake) remove(t *fakeTimer) bool {
	for i, o := range f.timers {
		if o == t {
			f.timers = append(f.timers[:i], f.timers[i+1:]...)
			return true
		}
	}
	return false
}
