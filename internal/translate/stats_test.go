package translate

import (
	"testing"
	"time"
)

func TestStats_CountersAccumulate(t *testing.T) {
	s := NewStats(time.Hour)
	s.Record(10, 100, true)
	s.Record(20, 200, false)
	s.Record(30, 300, true)

	snap := s.Snapshot()
	if snap.Calls != 3 {
		t.Errorf("expected 3 calls, got %d", snap.Calls)
	}
	if snap.Failures != 1 {
		t.Errorf("expected 1 failure, got %d", snap.Failures)
	}
	if snap.RunesIn != 600 {
		t.Errorf("expected 600 runes in, got %d", snap.RunesIn)
	}
}

func TestStats_LatencyAggregates(t *testing.T) {
	s := NewStats(time.Hour)
	for _, ms := range []int64{10, 20, 30, 40, 50} {
		s.Record(ms, 1, true)
	}

	snap := s.Snapshot()
	if snap.WindowCount != 5 {
		t.Fatalf("expected 5 samples, got %d", snap.WindowCount)
	}
	if snap.MinMs != 10 || snap.MaxMs != 50 {
		t.Errorf("expected min 10 max 50, got %d/%d", snap.MinMs, snap.MaxMs)
	}
	if snap.AvgMs != 30 {
		t.Errorf("expected avg 30, got %f", snap.AvgMs)
	}
	if snap.P50Ms != 30 {
		t.Errorf("expected p50 30, got %f", snap.P50Ms)
	}
}

func TestStats_EmptySnapshot(t *testing.T) {
	s := NewStats(time.Hour)
	snap := s.Snapshot()
	if snap.Calls != 0 || snap.WindowCount != 0 {
		t.Errorf("expected zero snapshot, got %+v", snap)
	}
}

func TestStats_NegativeDurationClamped(t *testing.T) {
	s := NewStats(time.Hour)
	s.Record(-5, 1, true)
	if snap := s.Snapshot(); snap.MinMs != 0 {
		t.Errorf("expected negative duration clamped to 0, got %d", snap.MinMs)
	}
}
