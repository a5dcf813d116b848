package infra

import (
	"testing"
	"time"
)

func TestBucketStore_LowBurstRejectsSecondImmediateAllow(t *testing.T) {
	s := NewBucketStore(0.02, 1)

	if !s.Allow("caller") {
		t.Fatalf("expected first Allow to be true")
	}
	if s.Allow("caller") {
		t.Fatalf("expected second immediate Allow to be false (burst=1)")
	}
	if d := s.Reserve("caller"); d <= 0 {
		t.Fatalf("expected positive delay until next token, got %s", d)
	}
	if !s.Allow("other") {
		t.Fatalf("expected independent bucket per key")
	}
}

func TestBucketStore_CleanupRemovesIdleEntries(t *testing.T) {
	s := NewBucketStore(10, 1, WithBucketIdleTTL(2*time.Millisecond), WithBucketCleanupEvery(0))

	_ = s.Allow("k")
	time.Sleep(4 * time.Millisecond)

	s.Cleanup()

	if s.Len() != 0 {
		t.Fatalf("expected idle bucket to be removed, got %d entries", s.Len())
	}
}
