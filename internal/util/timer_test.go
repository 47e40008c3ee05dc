package util

import (
	"testing"
	"time"
)

func TestTimer(t *testing.T) {
	var zero Timer
	if zero.Elapsed() != 0 || zero.ElapsedMs() != 0 {
		t.Fatalf("zero timer should report no elapsed time")
	}

	timer := StartTimer()
	time.Sleep(2 * time.Millisecond)
	if timer.Elapsed() < 2*time.Millisecond {
		t.Fatalf("elapsed = %s, want at least 2ms", timer.Elapsed())
	}
}
