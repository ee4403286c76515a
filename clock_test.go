package blips

import (
	"testing"
	"time"
)

func TestManualClockFiresDueTasks(t *testing.T) {
	start := time.Date(2026, 4, 18, 12, 0, 0, 0, time.UTC)
	clock := NewManualClock(start)
	var fired int
	clock.ScheduleRepeating(time.Minute, func() { fired++ })

	clock.Advance(30 * time.Second)
	if fired != 0 {
		t.Fatalf("no task is due before the first interval, fired %d", fired)
	}
	clock.Advance(5 * time.Minute)
	if fired != 5 {
		t.Fatalf("5.5 min should fire 5 times, fired %d", fired)
	}
	if got := clock.Now(); !got.Equal(start.Add(5*time.Minute + 30*time.Second)) {
		t.Fatalf("clock should land exactly on the advance target, got %s", got)
	}
}

func TestManualClockOrdersInterleavedTasks(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	var order []string
	clock.ScheduleRepeating(5*time.Second, func() { order = append(order, "slow") })
	clock.ScheduleRepeating(2*time.Second, func() { order = append(order, "fast") })

	clock.Advance(7 * time.Second)
	want := []string{"fast", "fast", "slow", "fast"}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("firing order %v, want %v", order, want)
		}
	}
}

func TestManualClockStop(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	var fired int
	stop := clock.ScheduleRepeating(time.Second, func() { fired++ })
	clock.Advance(3 * time.Second)
	stop()
	clock.Advance(10 * time.Second)
	if fired != 3 {
		t.Fatalf("a stopped task must not fire again, fired %d", fired)
	}
}

func TestManualClockTaskSeesFiringTime(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	var seen []time.Time
	clock.ScheduleRepeating(time.Second, func() { seen = append(seen, clock.Now()) })
	clock.Advance(2 * time.Second)
	if len(seen) != 2 {
		t.Fatalf("expected 2 firings, got %d", len(seen))
	}
	// During a callback the clock reads the task's due instant, not the
	// advance target.
	if !seen[0].Equal(time.Unix(1, 0)) || !seen[1].Equal(time.Unix(2, 0)) {
		t.Fatalf("callbacks saw %v", seen)
	}
}

func TestWallClockStopIsIdempotent(t *testing.T) {
	var clock WallClock
	stop := clock.ScheduleRepeating(time.Hour, func() {})
	stop()
	stop() // second call must not panic
}
