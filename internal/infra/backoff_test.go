package infra

import (
	"testing"
	"time"
)

func TestBackoff_Sequence(t *testing.T) {
	b := NewBackoff(1*time.Second, 10*time.Second)

	want := []time.Duration{
		1 * time.Second,
		1500 * time.Millisecond,
		2250 * time.Millisecond,
	}
	for i, w := range want {
		if got := b.Next(); got != w {
			t.Errorf("Next() #%d = %s, want %s", i, got, w)
		}
	}
}

func TestBackoff_NonDecreasingAndCapped(t *testing.T) {
	b := NewBackoff(1*time.Second, 10*time.Second)

	prev := time.Duration(0)
	for i := 0; i < 20; i++ {
		d := b.Next()
		if d < prev {
			t.Fatalf("delay decreased at attempt %d: %s < %s", i, d, prev)
		}
		if d > 10*time.Second {
			t.Fatalf("delay exceeded cap at attempt %d: %s", i, d)
		}
		prev = d
	}
	if prev != 10*time.Second {
		t.Errorf("final delay = %s, want cap 10s", prev)
	}
}

func TestBackoff_Reset(t *testing.T) {
	b := NewBackoff(1*time.Second, 10*time.Second)
	b.Next()
	b.Next()
	b.Reset()
	if got := b.Next(); got != 1*time.Second {
		t.Errorf("Next() after Reset = %s, want 1s", got)
	}
}

func TestBackoff_DegenerateConfig(t *testing.T) {
	b := NewBackoff(0, 0)
	if got := b.Next(); got != time.Second {
		t.Errorf("Next() with zero config = %s, want 1s default", got)
	}
}
