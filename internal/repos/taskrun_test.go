package repos

import (
	"testing"
	"time"
)

func TestNextRunAfter_FixedBackoff(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	got := NextRunAfter(now, 5*time.Second)
	if !got.Equal(now.Add(5 * time.Second)) {
		t.Fatalf("got %v", got)
	}
}

func TestNextRunAfter_NegativeDelayClamped(t *testing.T) {
	now := time.Now().UTC()
	got := NextRunAfter(now, -time.Minute)
	if !got.Equal(now) {
		t.Fatalf("negative delay must clamp to immediate, got %v", got)
	}
}
