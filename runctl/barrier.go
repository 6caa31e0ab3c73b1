// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package runctl glues the acquisition, alignment, and storage packages
// into a supervised, multi-run lifecycle with a terminal dashboard. It
// generalizes original_source/src/tui.rs's Status::run/begin_run (N=2
// hardcoded) to an arbitrary board count N.
package runctl // import "github.com/go-lpc/wavedaq/runctl"

import (
	"context"
	"sync"

	"github.com/go-lpc/wavedaq/acq"
)

// StartBarrier implements acq.Barrier using two independent signaling
// primitives, per spec.md §9 "Shared lifecycle signals": a readiness
// counter (sync.WaitGroup, one Done per worker) and a start flag (a
// channel closed exactly once). Keeping them independent avoids the
// lock-order coupling a single combined mutex/condvar would introduce;
// it replaces original_source/src/tui.rs's
// Arc<(Mutex<u32>, Condvar)>/Arc<(Mutex<bool>, Condvar)> pair.
type StartBarrier struct {
	wg    sync.WaitGroup
	start chan struct{}
}

var _ acq.Barrier = (*StartBarrier)(nil)

// NewStartBarrier returns a barrier expecting n workers to arrive.
func NewStartBarrier(n int) *StartBarrier {
	b := &StartBarrier{start: make(chan struct{})}
	b.wg.Add(n)
	return b
}

// Arrived is called once by each acquisition worker once its endpoint is
// configured and armed.
func (b *StartBarrier) Arrived() {
	b.wg.Done()
}

// WaitReady blocks the supervisor until every worker has called Arrived.
func (b *StartBarrier) WaitReady() {
	b.wg.Wait()
}

// Start signals every worker's WaitStart to proceed. Safe to call once;
// a second call panics, matching close()'s semantics, since a run only
// starts once.
func (b *StartBarrier) Start() {
	close(b.start)
}

// WaitStart blocks an acquisition worker until Start is called or ctx is
// done, whichever comes first.
func (b *StartBarrier) WaitStart(ctx context.Context) error {
	select {
	case <-b.start:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
