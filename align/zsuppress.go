// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package align

import (
	"context"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/go-lpc/wavedaq/daqcfg"
	"github.com/go-lpc/wavedaq/felib"
)

// ZSConfig is the zero-suppression configuration, read from
// daqcfg.RunConfig's zs_* fields.
type ZSConfig struct {
	Level           float64
	Threshold       float64
	Edge            daqcfg.Edge
	BaselineSamples int
}

// Suppressor zero-suppresses event buffers relative to a per-channel
// baseline. The random source is injectable so tests can assert against a
// deterministic sequence (spec.md §9, "Determinism vs. zero-suppression
// randomness").
type Suppressor struct {
	cfg ZSConfig
	rnd *rand.Rand
}

// NewSuppressor returns a Suppressor applying cfg, drawing its per-event
// coin flip from rnd.
func NewSuppressor(cfg ZSConfig, rnd *rand.Rand) *Suppressor {
	return &Suppressor{cfg: cfg, rnd: rnd}
}

// Suppress draws one uniform random value for buf; if it exceeds the
// configured level, every channel of buf is zero-suppressed in parallel
// against a data-parallel pool bounded by hardware concurrency (spec.md
// §5), mirroring the channel fan-out eda/device.go:846 drives with an
// errgroup.
func (s *Suppressor) Suppress(ctx context.Context, buf *felib.EventBuffer) error {
	if s.rnd.Float64() <= s.cfg.Level {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for ch := 0; ch < buf.NumChannels(); ch++ {
		ch := ch
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			s.suppressChannel(buf, ch)
			return nil
		})
	}
	return g.Wait()
}

func (s *Suppressor) suppressChannel(buf *felib.EventBuffer, ch int) {
	samples := buf.Waveform(ch)
	n := len(samples)
	if n == 0 {
		return
	}
	k := s.cfg.BaselineSamples
	if k <= 0 {
		return
	}
	if k > n {
		k = n
	}

	baseline := stat.Mean(toFloat64(samples[:k]), nil)
	for i, x := range samples {
		delta := float64(x) - baseline
		switch s.cfg.Edge {
		case daqcfg.EdgeRise:
			if delta < s.cfg.Threshold {
				samples[i] = 0
			}
		case daqcfg.EdgeFall:
			if delta > s.cfg.Threshold {
				samples[i] = 0
			}
		}
	}
}

func toFloat64(samples []uint16) []float64 {
	out := make([]float64, len(samples))
	for i, x := range samples {
		out[i] = float64(x)
	}
	return out
}
