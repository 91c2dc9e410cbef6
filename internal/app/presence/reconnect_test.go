package presence

import (
	"testing"
	"time"
)

func TestNoReconnect(t *testing.T) {
	if _, ok := (NoReconnect{}).NextDelay(1); ok {
		t.Fatalf("NoReconnect must never retry")
	}
}

func TestExponentialBackoff_GrowsAndCaps(t *testing.T) {
	b := ExponentialBackoff{Base: 100 * time.Millisecond, Max: time.Second, Multiplier: 2}

	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		time.Second,
		time.Second,
	}
	for i, w := range want {
		got, ok := b.NextDelay(i + 1)
		if !ok || got != w {
			t.Fatalf("attempt %d: got %v,%v want %v", i+1, got, ok, w)
		}
	}
}

func TestExponentialBackoff_MaxAttempts(t *testing.T) {
	b := ExponentialBackoff{Base: time.Millisecond, MaxAttempts: 3}

	for attempt := 1; attempt <= 3; attempt++ {
		if _, ok := b.NextDelay(attempt); !ok {
			t.Fatalf("attempt %d should be allowed", attempt)
		}
	}
	if _, ok := b.NextDelay(4); ok {
		t.Fatalf("attempt 4 should be refused")
	}
}

func TestExponentialBackoff_JitterBounds(t *testing.T) {
	low := ExponentialBackoff{Base: time.Second, Max: time.Minute, Multiplier: 2, Jitter: 0.5, Rand: func() float64 { return 0 }}
	high := low
	high.Rand = func() float64 { return 0.999999 }

	if d, _ := low.NextDelay(1); d != 500*time.Millisecond {
		t.Fatalf("expected lower jitter bound 500ms, got %v", d)
	}
	if d, _ := high.NextDelay(1); d < 1499*time.Millisecond || d > 1500*time.Millisecond {
		t.Fatalf("expected upper jitter bound ~1.5s, got %v", d)
	}

	capped := high
	capped.Max = time.Second
	if d, _ := capped.NextDelay(1); d != time.Second {
		t.Fatalf("jitter must not exceed Max, got %v", d)
	}
}

func TestDefaultBackoff(t *testing.T) {
	b := DefaultBackoff(0)
	b.Rand = func() float64 { return 0.5 }

	if d, ok := b.NextDelay(1); !ok || d != 500*time.Millisecond {
		t.Fatalf("unexpected first delay %v,%v", d, ok)
	}
	if d, ok := b.NextDelay(100); !ok || d != 30*time.Second {
		t.Fatalf("expected cap at 30s with unlimited attempts, got %v,%v", d, ok)
	}
}

func TestStateString(t *testing.T) {
	if StateConnected.String() != "connected" || State(9).String() != "state(9)" {
		t.Fatalf("unexpected State strings")
	}
}
