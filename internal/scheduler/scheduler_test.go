package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNextCycleAligned(t *testing.T) {
	s := New(Options{Interval: time.Hour, AlignToCycle: true}, zerolog.Nop())

	now := time.Date(2025, 6, 1, 10, 23, 45, 0, time.UTC)
	next := s.nextCycle(now)
	want := time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("nextCycle(%s) = %s, want %s", now, next, want)
	}

	// exact boundary advances to the following cycle
	next = s.nextCycle(want)
	if !next.Equal(want.Add(time.Hour)) {
		t.Fatalf("boundary should advance a full interval, got %s", next)
	}
}

func TestNextCycleUnaligned(t *testing.T) {
	s := New(Options{Interval: time.Hour}, zerolog.Nop())

	now := time.Date(2025, 6, 1, 10, 23, 45, 0, time.UTC)
	if next := s.nextCycle(now); !next.Equal(now.Add(time.Hour)) {
		t.Fatalf("unaligned nextCycle should add the interval, got %s", next)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	s := New(Options{Interval: time.Hour, StartupDelay: time.Minute}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Run(ctx, func(ctx context.Context, cycle time.Time) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
