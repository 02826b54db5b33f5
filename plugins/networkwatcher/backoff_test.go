package networkwatcher

import (
	"context"
	"testing"
	"time"
)

func TestBackoff_Doubles(t *testing.T) {
	b := newBackoff(time.Millisecond, 4*time.Millisecond)
	ctx := context.Background()

	want := []time.Duration{2 * time.Millisecond, 4 * time.Millisecond, 4 * time.Millisecond}
	for i, w := range want {
		if err := b.Wait(ctx); err != nil {
			t.Fatalf("Wait() #%d: %v", i, err)
		}
		if b.Current() != w {
			t.Errorf("Current() after wait #%d = %v, want %v", i, b.Current(), w)
		}
	}

	b.Reset()
	if b.Current() != time.Millisecond {
		t.Errorf("Current() after Reset = %v, want 1ms", b.Current())
	}
}

func TestBackoff_CanceledContext(t *testing.T) {
	b := newBackoff(time.Hour, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := b.Wait(ctx); err != context.Canceled {
		t.Errorf("Wait() = %v, want context.Canceled", err)
	}
}
