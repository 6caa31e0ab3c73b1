// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package runctl

import "time"

// RunInfo is one stats-queue sample, sent by the processing worker once
// per aligned group. Generalizes original_source/src/tui.rs's RunInfo
// (hardcoded board0_event_size/board1_event_size) to N boards.
type RunInfo struct {
	EventSize  int // summed EVENT_SIZE across the aligned group, bytes
	QueueDepth int // event-queue backlog observed at receipt time
}

// window is the sliding-window duration Counter.RateMBs averages over,
// matching original_source/src/utils.rs's Counter::window default.
const window = 1 * time.Second

// sample is one windowed entry: the instant an event was counted and its
// byte size, mirroring utils.rs's `events: VecDeque<(Instant, usize)>`.
type sample struct {
	at   time.Time
	size uint64
}

// Counter accumulates RunInfo samples into the numbers the dashboard's
// run-stats panel displays: all-time totals (t_begin/n_events/total_size)
// plus a 1 s sliding-window throughput rate, mirroring
// original_source/src/utils.rs's Counter in full (not just its all-time
// average_rate).
type Counter struct {
	tBegin  time.Time
	nEvents uint64
	nBytes  uint64

	samples       []sample
	bytesInWindow uint64
}

// Reset restarts the counter at the current instant, for the start of a
// new run.
func (c *Counter) Reset() {
	c.tBegin = time.Now()
	c.nEvents = 0
	c.nBytes = 0
	c.samples = c.samples[:0]
	c.bytesInWindow = 0
}

// Add records one RunInfo sample, updating both the all-time totals and
// the sliding window, evicting window entries older than window.
func (c *Counter) Add(info RunInfo) {
	now := time.Now()
	size := uint64(info.EventSize)

	c.nEvents++
	c.nBytes += size

	c.samples = append(c.samples, sample{at: now, size: size})
	c.bytesInWindow += size

	for len(c.samples) > 0 && now.Sub(c.samples[0].at) > window {
		c.bytesInWindow -= c.samples[0].size
		c.samples = c.samples[1:]
	}
}

// Elapsed returns time since the last Reset.
func (c *Counter) Elapsed() time.Duration {
	return time.Since(c.tBegin)
}

// Events returns the number of aligned groups counted so far.
func (c *Counter) Events() uint64 {
	return c.nEvents
}

// AverageRateMBs returns the long-term mean data rate in MB/s since the
// last Reset (utils.rs's average_rate).
func (c *Counter) AverageRateMBs() float64 {
	elapsed := c.Elapsed().Seconds()
	if elapsed <= 0 {
		return 0
	}
	const mb = 1 << 20
	return float64(c.nBytes) / mb / elapsed
}

// RateMBs returns the sliding 1 s window throughput in MB/s (utils.rs's
// rate), the figure the dashboard displays as the run's live rate.
func (c *Counter) RateMBs() float64 {
	const mb = 1 << 20
	return float64(c.bytesInWindow) / mb / window.Seconds()
}
