package sched

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeOrder(t *testing.T) {
	c := NewFake()
	start := c.Now()

	var got []string
	c.AfterFunc(30*time.Millisecond, func() { got = append(got, "c") })
	c.AfterFunc(10*time.Millisecond, func() { got = append(got, "a") })
	c.AfterFunc(10*time.Millisecond, func() {
		got = append(got, "b")
		assert.Equal(t, start.Add(10*time.Millisecond), c.Now())
		c.AfterFunc(5*time.Millisecond, func() { got = append(got, "b2") })
	})

	c.Advance(20 * time.Millisecond)
	assert.Equal(t, []string{"a", "b", "b2"}, got)
	assert.Equal(t, start.Add(20*time.Millisecond), c.Now())

	c.Advance(10 * time.Millisecond)
	assert.Equal(t, []string{"a", "b", "b2", "c"}, got)
	assert.Zero(t, c.Pending())
}

func TestFakeStop(t *testing.T) {
	c := NewFake()
	fired := false
	tm := c.AfterFunc(time.Second, func() { fired = true })
	assert.True(t, tm.Stop())
	assert.False(t, tm.Stop())
	c.Advance(2 * time.Second)
	assert.False(t, fired)
}

func TestGroupCancel(t *testing.T) {
	c := NewFake()
	g := NewGroup(c)

	n := 0
	g.After(100*time.Millisecond, func() { n++ })
	g.After(200*time.Millisecond, func() { n++ })
	assert.Equal(t, 2, g.Pending())

	c.Advance(150 * time.Millisecond)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, g.Pending())

	g.Cancel()
	c.Advance(time.Second)
	assert.Equal(t, 1, n)
	assert.Zero(t, g.Pending())
	assert.Equal(t, uint64(1), g.Generation())
}

// A timer that already fired on the real clock but whose callback was still
// queued must become a no-op once the group is cancelled.
func TestGroupStaleCallback(t *testing.T) {
	var queued []func()
	c := &queueClock{Fake: NewFake(), queue: &queued}
	g := NewGroup(c)

	ran := false
	g.After(time.Millisecond, func() { ran = true })
	c.Advance(time.Millisecond)
	require.Len(t, queued, 1)

	g.Cancel()
	queued[0]()
	assert.False(t, ran)
}

func TestGroupEvery(t *testing.T) {
	c := NewFake()
	g := NewGroup(c)

	n := 0
	g.Every(50*time.Millisecond, func() {
		n++
		if n == 3 {
			g.Cancel()
		}
	})

	c.Advance(time.Second)
	assert.Equal(t, 3, n)
	assert.Zero(t, c.Pending())
}

func TestRealPost(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(1)

	posted := make(chan func(), 1)
	c := NewReal(func(f func()) { posted <- f })
	c.AfterFunc(time.Millisecond, wg.Done)

	select {
	case f := <-posted:
		f()
	case <-time.After(time.Second):
		t.Fatal("callback was not posted")
	}
	wg.Wait()
}

type queueClock struct {
	*Fake
	queue *[]func()
}

func (q *queueClock) AfterFunc(d time.Duration, f func()) Timer {
	return q.Fake.AfterFunc(d, func() { *q.queue = append(*q.queue, f) })
}
