// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package align

import (
	"context"
	"math/rand"
	"testing"

	"github.com/go-lpc/wavedaq/daqcfg"
	"github.com/go-lpc/wavedaq/felib"
)

// alwaysSuppressSource makes Float64 report the largest float64 below 1,
// which is > any level in [0,1), so Suppress always applies. (An Int63 of
// 1<<63-1 would round to exactly 1, which Float64 rejects and resamples
// forever.)
type alwaysSuppressSource struct{}

func (alwaysSuppressSource) Int63() int64  { return 1<<63 - 1<<10 }
func (alwaysSuppressSource) Seed(int64) {}

func bufWithChannel(samples []uint16) *felib.EventBuffer {
	dev, fake := felib.NewFakeDevice()
	defer dev.Close()
	fake.QueueEvents(felib.FakeEvent{TriggerID: 0, Waveform: [][]uint16{samples}})
	ep, _ := dev.OpenEndpoint("/endpoint/scope", "scope", felib.Schema(1))
	buf := felib.NewEventBuffer(1)
	ep.ReadData(buf)
	return buf
}

func TestSuppressRiseEdge(t *testing.T) {
	// spec.md S5: baseline-samples=4, threshold=50, edge=Rise;
	// [100,100,100,100,120,180,200,100] (baseline=100) -> [0,0,0,0,0,180,200,0].
	buf := bufWithChannel([]uint16{100, 100, 100, 100, 120, 180, 200, 100})

	s := NewSuppressor(ZSConfig{
		Level:           0, // any r > 0 triggers suppression
		Threshold:       50,
		Edge:            daqcfg.EdgeRise,
		BaselineSamples: 4,
	}, rand.New(alwaysSuppressSource{}))

	if err := s.Suppress(context.Background(), buf); err != nil {
		t.Fatalf("Suppress: %+v", err)
	}

	want := []uint16{0, 0, 0, 0, 0, 180, 200, 0}
	got := buf.Waveform(0)
	if len(got) != len(want) {
		t.Fatalf("Waveform(0) length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Waveform(0)[%d] = %d, want %d (full: %v)", i, got[i], want[i], got)
		}
	}
}

// neverSuppressSource always reports 0, which is <= any level >= 0, so
// Suppress never applies.
type neverSuppressSource struct{}

func (neverSuppressSource) Int63() int64 { return 0 }
func (neverSuppressSource) Seed(int64)   {}

func TestSuppressBelowLevelIsNoOp(t *testing.T) {
	buf := bufWithChannel([]uint16{100, 100, 100, 100, 120, 180, 200, 100})
	orig := append([]uint16(nil), buf.Waveform(0)...)

	s := NewSuppressor(ZSConfig{
		Level:           0.9,
		Threshold:       50,
		Edge:            daqcfg.EdgeRise,
		BaselineSamples: 4,
	}, rand.New(neverSuppressSource{}))

	if err := s.Suppress(context.Background(), buf); err != nil {
		t.Fatalf("Suppress: %+v", err)
	}
	got := buf.Waveform(0)
	for i := range orig {
		if got[i] != orig[i] {
			t.Fatalf("Suppress modified samples when r <= level: %v vs %v", got, orig)
		}
	}
}

func TestSuppressIdempotent(t *testing.T) {
	// P7: suppression applied twice to already-suppressed zero samples is
	// a no-op the second time.
	buf := bufWithChannel([]uint16{0, 0, 0, 0, 0, 180, 200, 0})

	s := NewSuppressor(ZSConfig{
		Level:           0,
		Threshold:       50,
		Edge:            daqcfg.EdgeRise,
		BaselineSamples: 4,
	}, rand.New(alwaysSuppressSource{}))

	if err := s.Suppress(context.Background(), buf); err != nil {
		t.Fatalf("Suppress: %+v", err)
	}
	want := []uint16{0, 0, 0, 0, 0, 180, 200, 0}
	got := buf.Waveform(0)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Waveform(0)[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}
