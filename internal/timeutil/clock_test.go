package timeutil

import (
	"testing"
	"time"
)

func TestMockClockAdvance(t *testing.T) {
	start := time.Date(2025, 3, 18, 14, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)

	if got := clock.Since(start); got != 0 {
		t.Fatalf("expected zero elapsed, got %v", got)
	}

	clock.Advance(90 * time.Second)
	if got := clock.Since(start); got != 90*time.Second {
		t.Fatalf("expected 90s elapsed, got %v", got)
	}
}

func TestFormatElapsed(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{0, "0h 0m 0.00s"},
		{1500 * time.Millisecond, "0h 0m 1.50s"},
		{62 * time.Second, "0h 1m 2.00s"},
		{3723*time.Second + 450*time.Millisecond, "1h 2m 3.45s"},
		{2 * time.Hour, "2h 0m 0.00s"},
	}
	for _, tc := range cases {
		if got := FormatElapsed(tc.d); got != tc.want {
			t.Errorf("FormatElapsed(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}
