package timeutil

import (
	"testing"
	"time"
)

func TestRealClock_Now(t *testing.T) {
	clock := RealClock{}
	before := time.Now()
	now := clock.Now()
	after := time.Now()

	if now.Before(before) || now.After(after) {
		t.Errorf("Now() = %v, expected between %v and %v", now, before, after)
	}
}

func TestRealClock_Since(t *testing.T) {
	clock := RealClock{}
	past := time.Now().Add(-time.Second)
	d := clock.Since(past)

	if d < time.Second {
		t.Errorf("Since() returned %v, expected >= 1s", d)
	}
}

func TestRealClock_Sleep(t *testing.T) {
	clock := RealClock{}
	start := time.Now()
	clock.Sleep(5 * time.Millisecond)

	if time.Since(start) < 5*time.Millisecond {
		t.Error("Sleep returned early")
	}
}

func TestMockClock_SleepAdvancesTime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)

	clock.Sleep(5 * time.Second)
	clock.Sleep(10 * time.Millisecond)

	if got := clock.Since(start); got != 5*time.Second+10*time.Millisecond {
		t.Errorf("Since() = %v after sleeps", got)
	}
	sleeps := clock.Sleeps()
	if len(sleeps) != 2 || sleeps[0] != 5*time.Second || sleeps[1] != 10*time.Millisecond {
		t.Errorf("Sleeps() = %v", sleeps)
	}
	if !clock.SleptAtLeast(5 * time.Second) {
		t.Error("SleptAtLeast(5s) = false")
	}
	if clock.SleptAtLeast(6 * time.Second) {
		t.Error("SleptAtLeast(6s) = true")
	}
}

func TestMockClock_SetAndAdvance(t *testing.T) {
	clock := NewMockClock(time.Time{})
	target := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	clock.Set(target)
	clock.Advance(time.Minute)

	if !clock.Now().Equal(target.Add(time.Minute)) {
		t.Errorf("Now() = %v", clock.Now())
	}
	if len(clock.Sleeps()) != 0 {
		t.Error("Advance must not record sleeps")
	}
}
