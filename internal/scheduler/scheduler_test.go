package scheduler

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNextRunLaterToday(t *testing.T) {
	s := New(Options{RunHour: 8}, zerolog.Nop())
	now := time.Date(2025, 6, 10, 6, 30, 0, 0, time.UTC)

	next := s.NextRun(now)
	want := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("next run = %v, want %v", next, want)
	}
}

func TestNextRunRollsToTomorrow(t *testing.T) {
	s := New(Options{RunHour: 8}, zerolog.Nop())
	now := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)

	next := s.NextRun(now)
	want := time.Date(2025, 6, 11, 8, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("next run = %v, want %v", next, want)
	}
}

func TestNewRejectsInvalidHour(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for out-of-range hour")
		}
	}()
	New(Options{RunHour: 24}, zerolog.Nop())
}
