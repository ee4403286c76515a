package blips

import (
	"sort"
	"sync"
	"time"
)

// Clock abstracts time for playback so simulations run under a wall clock in
// the app and under a manual clock in tests. Repeating work is timer-driven,
// never a blocking sleep.
type Clock interface {
	Now() time.Time
	// ScheduleRepeating invokes fn every interval until the returned stop
	// function is called.
	ScheduleRepeating(interval time.Duration, fn func()) (stop func())
}

// WallClock is the real-time Clock.
type WallClock struct{}

// Now implements Clock.
func (WallClock) Now() time.Time { return time.Now() }

// ScheduleRepeating implements Clock with a time.Ticker.
func (WallClock) ScheduleRepeating(interval time.Duration, fn func()) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				fn()
			case <-done:
				return
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}

type manualTask struct {
	next     time.Time
	interval time.Duration
	fn       func()
	stopped  bool
}

// ManualClock is a deterministic Clock for tests: time only moves when
// Advance is called, firing due tasks in order.
type ManualClock struct {
	now   time.Time
	tasks []*manualTask
}

// NewManualClock starts a manual clock at the given instant.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now implements Clock.
func (c *ManualClock) Now() time.Time { return c.now }

// ScheduleRepeating implements Clock.
func (c *ManualClock) ScheduleRepeating(interval time.Duration, fn func()) func() {
	task := &manualTask{next: c.now.Add(interval), interval: interval, fn: fn}
	c.tasks = append(c.tasks, task)
	return func() { task.stopped = true }
}

// Advance moves the clock forward, invoking every due task in time order.
func (c *ManualClock) Advance(d time.Duration) {
	target := c.now.Add(d)
	for {
		var due *manualTask
		for _, t := range c.tasks {
			if t.stopped || t.next.After(target) {
				continue
			}
			if due == nil || t.next.Before(due.next) {
				due = t
			}
		}
		if due == nil {
			break
		}
		c.now = due.next
		due.next = due.next.Add(due.interval)
		due.fn()
	}
	c.now = target
	c.prune()
}

func (c *ManualClock) prune() {
	live := c.tasks[:0]
	for _, t := range c.tasks {
		if !t.stopped {
			live = append(live, t)
		}
	}
	sort.SliceStable(live, func(i, j int) bool { return live[i].next.Before(live[j].next) })
	c.tasks = live
}
