// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package runctl

import (
	"testing"
	"time"
)

func TestCounterAccumulates(t *testing.T) {
	var c Counter
	c.Reset()

	c.Add(RunInfo{EventSize: 1 << 20})
	c.Add(RunInfo{EventSize: 2 << 20})

	if got, want := c.Events(), uint64(2); got != want {
		t.Fatalf("invalid event count: got=%d, want=%d", got, want)
	}

	time.Sleep(10 * time.Millisecond)
	if c.Elapsed() <= 0 {
		t.Fatalf("expected positive elapsed time, got %v", c.Elapsed())
	}
	if c.RateMBs() <= 0 {
		t.Fatalf("expected positive sliding-window rate, got %v", c.RateMBs())
	}
	if c.AverageRateMBs() <= 0 {
		t.Fatalf("expected positive average rate, got %v", c.AverageRateMBs())
	}
}

func TestCounterRateEvictsStaleSamples(t *testing.T) {
	var c Counter
	c.Reset()

	c.samples = append(c.samples, sample{at: time.Now().Add(-2 * window), size: 5 << 20})
	c.bytesInWindow = 5 << 20

	c.Add(RunInfo{EventSize: 1 << 20})

	if got, want := len(c.samples), 1; got != want {
		t.Fatalf("stale sample not evicted: len(samples)=%d, want %d", got, want)
	}
	if got, want := c.RateMBs(), 1.0; got != want {
		t.Fatalf("invalid windowed rate after eviction: got=%v, want=%v", got, want)
	}
}

func TestCounterResetClearsState(t *testing.T) {
	var c Counter
	c.Reset()
	c.Add(RunInfo{EventSize: 1024})

	c.Reset()
	if got, want := c.Events(), uint64(0); got != want {
		t.Fatalf("invalid event count after reset: got=%d, want=%d", got, want)
	}
	if got, want := c.RateMBs(), 0.0; got != want {
		t.Fatalf("invalid rate after reset: got=%v, want=%v", got, want)
	}
}
