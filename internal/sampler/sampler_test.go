/*
 * MIT License
 *
 * Copyright (c) 2026 The Hardware Analyzer Pro Authors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package sampler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Tyler1201623/Hardware-Analyzer-Pro/internal/broker"
	"github.com/Tyler1201623/Hardware-Analyzer-Pro/internal/config"
	"github.com/Tyler1201623/Hardware-Analyzer-Pro/internal/store"
	"github.com/Tyler1201623/Hardware-Analyzer-Pro/pkg/metrics"
)

// stubAdapter is a scriptable adapter for driving the sampler in tests.
type stubAdapter struct {
	domain metrics.Domain
	poll   func(ctx context.Context) (metrics.Fields, error)
}

func (a *stubAdapter) Domain() metrics.Domain { return a.domain }

func (a *stubAdapter) Poll(ctx context.Context) (metrics.Fields, error) {
	return a.poll(ctx)
}

// countingAdapter returns an ok sample with an incrementing poll counter.
func countingAdapter(d metrics.Domain) (*stubAdapter, *atomic.Int64) {
	var count atomic.Int64
	return &stubAdapter{
		domain: d,
		poll: func(_ context.Context) (metrics.Fields, error) {
			return metrics.Fields{"polls": metrics.Num(float64(count.Add(1)))}, nil
		},
	}, &count
}

func samplerConfig() *config.Config {
	return &config.Config{
		PollInterval:   25 * time.Millisecond,
		RoundTimeout:   20 * time.Millisecond,
		AdapterTimeout: 15 * time.Millisecond,
		HistorySize:    10,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSampler(t *testing.T, cfg *config.Config, regs []Registration) (*Sampler, *store.Store, *broker.Publisher) {
	t.Helper()

	logger := discardLogger()
	st := store.New(cfg.HistorySize)
	pub := broker.NewPublisher(logger)
	t.Cleanup(pub.Close)

	s, err := New(cfg, regs, st, pub, logger)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s, st, pub
}

func waitSnapshot(t *testing.T, sub *broker.Subscription) *metrics.Snapshot {
	t.Helper()
	select {
	case snap, ok := <-sub.C:
		if !ok {
			t.Fatal("subscription closed while waiting for snapshot")
		}
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func TestNew_Errors(t *testing.T) {
	cfg := samplerConfig()
	logger := discardLogger()
	cpu, _ := countingAdapter(metrics.DomainCPU)

	t.Run("Duplicate Domain", func(t *testing.T) {
		other, _ := countingAdapter(metrics.DomainCPU)
		_, err := New(cfg, []Registration{{Adapter: cpu}, {Adapter: other}}, nil, nil, logger)
		if err == nil || !strings.Contains(err.Error(), "registered twice") {
			t.Errorf("New() error = %v, want duplicate domain error", err)
		}
	})

	t.Run("Nil Adapter", func(t *testing.T) {
		_, err := New(cfg, []Registration{{Adapter: nil}}, nil, nil, logger)
		if err == nil {
			t.Error("New() accepted a nil adapter")
		}
	})
}

func TestPollOnce(t *testing.T) {
	cpu, _ := countingAdapter(metrics.DomainCPU)
	gpu := &stubAdapter{
		domain: metrics.DomainGPU,
		poll: func(_ context.Context) (metrics.Fields, error) {
			return nil, errors.New("nvidia-smi not found")
		},
	}

	s, _, _ := newTestSampler(t, samplerConfig(), []Registration{
		{Adapter: cpu},
		{Adapter: gpu},
	})

	snap, err := s.PollOnce(context.Background())
	if err != nil {
		t.Fatalf("PollOnce() error = %v", err)
	}

	if len(snap.Domains) != 2 || snap.Domains[0] != metrics.DomainCPU || snap.Domains[1] != metrics.DomainGPU {
		t.Errorf("Domains = %v, want [cpu gpu] in registration order", snap.Domains)
	}

	cpuSample := snap.Samples[metrics.DomainCPU]
	if cpuSample.Status != metrics.StatusOk || cpuSample.Err != "" {
		t.Errorf("cpu sample = %+v, want ok", cpuSample)
	}
	if v, ok := cpuSample.Fields["polls"]; !ok || v.Float() != 1 {
		t.Errorf("cpu polls = %v, want 1", v.Float())
	}

	gpuSample := snap.Samples[metrics.DomainGPU]
	if gpuSample.Status != metrics.StatusFailure {
		t.Errorf("gpu status = %v, want failure", gpuSample.Status)
	}
	if gpuSample.Err == "" || len(gpuSample.Fields) != 0 {
		t.Errorf("gpu sample = %+v, want empty fields with error", gpuSample)
	}
}

func TestPollOnce_PartialFailure(t *testing.T) {
	storage := &stubAdapter{
		domain: metrics.DomainStorage,
		poll: func(_ context.Context) (metrics.Fields, error) {
			return metrics.Fields{"sda.used_percent": metrics.Num(40)},
				errors.New("failed to stat sdb: permission denied")
		},
	}

	s, _, _ := newTestSampler(t, samplerConfig(), []Registration{{Adapter: storage}})

	snap, err := s.PollOnce(context.Background())
	if err != nil {
		t.Fatalf("PollOnce() error = %v", err)
	}

	sample := snap.Samples[metrics.DomainStorage]
	if sample.Status != metrics.StatusPartialFailure {
		t.Errorf("status = %v, want partial", sample.Status)
	}
	if sample.Err == "" {
		t.Error("partial failure sample has empty error")
	}
	if v, ok := sample.Fields["sda.used_percent"]; !ok || v.Float() != 40 {
		t.Error("partial failure sample lost its collected fields")
	}
}

func TestPollOnce_PanicRecovered(t *testing.T) {
	cpu := &stubAdapter{
		domain: metrics.DomainCPU,
		poll: func(_ context.Context) (metrics.Fields, error) {
			panic("index out of range")
		},
	}

	s, _, _ := newTestSampler(t, samplerConfig(), []Registration{{Adapter: cpu}})

	snap, err := s.PollOnce(context.Background())
	if err != nil {
		t.Fatalf("PollOnce() error = %v", err)
	}

	sample := snap.Samples[metrics.DomainCPU]
	if sample.Status != metrics.StatusFailure {
		t.Errorf("status = %v, want failure", sample.Status)
	}
	if !strings.Contains(sample.Err, "adapter panic") {
		t.Errorf("error = %q, want adapter panic", sample.Err)
	}
}

func TestPollOnce_CancelledContext(t *testing.T) {
	cpu, _ := countingAdapter(metrics.DomainCPU)
	s, _, _ := newTestSampler(t, samplerConfig(), []Registration{{Adapter: cpu}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.PollOnce(ctx); err == nil {
		t.Error("PollOnce() with cancelled context returned no error")
	}
}

// A hung adapter must cost its own domain exactly, never the round: other
// domains keep polling on schedule, the first overrun is reported as a
// timeout, and later rounds report the worker as still busy instead of
// stacking goroutines on the stuck adapter.
func TestRun_HungAdapterIsolated(t *testing.T) {
	cfg := samplerConfig()
	cpu, cpuPolls := countingAdapter(metrics.DomainCPU)

	release := make(chan struct{})
	gpu := &stubAdapter{
		domain: metrics.DomainGPU,
		poll: func(_ context.Context) (metrics.Fields, error) {
			<-release
			return metrics.Fields{"late": metrics.Num(1)}, nil
		},
	}

	s, _, pub := newTestSampler(t, cfg, []Registration{
		{Adapter: cpu},
		{Adapter: gpu},
	})

	sub := pub.Subscribe(8)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Run(ctx)
	}()

	first := waitSnapshot(t, sub)
	second := waitSnapshot(t, sub)

	cancel()
	close(release)
	<-done

	// The healthy domain polled in both rounds
	if got := cpuPolls.Load(); got < 2 {
		t.Errorf("cpu polls = %d, want at least 2", got)
	}
	if first.Samples[metrics.DomainCPU].Status != metrics.StatusOk {
		t.Error("first round cpu sample is not ok")
	}
	if second.Samples[metrics.DomainCPU].Status != metrics.StatusOk {
		t.Error("second round cpu sample is not ok")
	}

	// The hung domain timed out in round one
	gpuFirst := first.Samples[metrics.DomainGPU]
	if gpuFirst.Status != metrics.StatusFailure || gpuFirst.Err != "poll timed out" {
		t.Errorf("first round gpu sample = %+v, want timeout failure", gpuFirst)
	}

	// In round two its worker was still stuck on round one's poll
	gpuSecond := second.Samples[metrics.DomainGPU]
	if gpuSecond.Status != metrics.StatusFailure {
		t.Errorf("second round gpu status = %v, want failure", gpuSecond.Status)
	}
	if !strings.Contains(gpuSecond.Err, "previous poll still in progress") {
		t.Errorf("second round gpu error = %q, want busy worker report", gpuSecond.Err)
	}
}

func TestRun_TimestampsStrictlyIncreasing(t *testing.T) {
	cfg := samplerConfig()
	cfg.PollInterval = 10 * time.Millisecond
	cpu, _ := countingAdapter(metrics.DomainCPU)

	s, st, pub := newTestSampler(t, cfg, []Registration{{Adapter: cpu}})
	sub := pub.Subscribe(16)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Run(ctx)
	}()

	snaps := make([]*metrics.Snapshot, 0, 5)
	for i := 0; i < 5; i++ {
		snaps = append(snaps, waitSnapshot(t, sub))
	}
	cancel()
	<-done

	for i := 1; i < len(snaps); i++ {
		if !snaps[i].Timestamp.After(snaps[i-1].Timestamp) {
			t.Fatalf("snapshot %d timestamp %v not after %v", i, snaps[i].Timestamp, snaps[i-1].Timestamp)
		}
	}

	if st.Latest() == nil {
		t.Error("store has no latest snapshot after Run")
	}
}

// Zero registrations is not an error: the loop still emits empty
// snapshots on schedule so downstream consumers see a heartbeat.
func TestRun_NoAdapters(t *testing.T) {
	cfg := samplerConfig()
	s, _, pub := newTestSampler(t, cfg, nil)
	sub := pub.Subscribe(8)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Run(ctx)
	}()

	first := waitSnapshot(t, sub)
	second := waitSnapshot(t, sub)
	cancel()
	<-done

	if len(first.Domains) != 0 || len(first.Samples) != 0 {
		t.Errorf("empty-registration snapshot = %+v, want no domains", first)
	}
	if !second.Timestamp.After(first.Timestamp) {
		t.Error("empty snapshots do not keep the schedule")
	}
}

// A domain with a longer interval carries its previous sample forward,
// timestamp included, and history stores it only once.
func TestRun_PerDomainIntervalCarryForward(t *testing.T) {
	cfg := samplerConfig()
	cpu, _ := countingAdapter(metrics.DomainCPU)
	ram, ramPolls := countingAdapter(metrics.DomainRAM)

	s, st, pub := newTestSampler(t, cfg, []Registration{
		{Adapter: cpu, Interval: cfg.PollInterval},
		{Adapter: ram, Interval: 10 * cfg.PollInterval},
	})
	sub := pub.Subscribe(8)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Run(ctx)
	}()

	first := waitSnapshot(t, sub)
	second := waitSnapshot(t, sub)
	third := waitSnapshot(t, sub)
	cancel()
	<-done

	if got := ramPolls.Load(); got != 1 {
		t.Errorf("ram polls = %d, want 1 within three fast rounds", got)
	}

	ramFirst := first.Samples[metrics.DomainRAM]
	for i, snap := range []*metrics.Snapshot{second, third} {
		carried := snap.Samples[metrics.DomainRAM]
		if !carried.Timestamp.Equal(ramFirst.Timestamp) {
			t.Errorf("round %d ram timestamp = %v, want carried %v", i+2, carried.Timestamp, ramFirst.Timestamp)
		}
	}

	// Every snapshot still contains the slow domain
	for i, snap := range []*metrics.Snapshot{first, second, third} {
		if _, ok := snap.Samples[metrics.DomainRAM]; !ok {
			t.Errorf("round %d snapshot is missing the ram domain", i+1)
		}
	}

	// Fresh cpu samples each round, single stored ram sample
	if got := len(st.History(metrics.DomainCPU)); got != 3 {
		t.Errorf("cpu history length = %d, want 3", got)
	}
	if got := len(st.History(metrics.DomainRAM)); got != 1 {
		t.Errorf("ram history length = %d, want 1", got)
	}
}

// PollOnce covers every registered domain even when its interval would
// not make it due, so one-shot reports always carry fresh data.
func TestPollOnce_IgnoresDomainIntervals(t *testing.T) {
	cpu, cpuPolls := countingAdapter(metrics.DomainCPU)
	s, _, _ := newTestSampler(t, samplerConfig(), []Registration{
		{Adapter: cpu, Interval: time.Hour},
	})

	for i := 0; i < 2; i++ {
		if _, err := s.PollOnce(context.Background()); err != nil {
			t.Fatalf("PollOnce() error = %v", err)
		}
	}
	if got := cpuPolls.Load(); got != 2 {
		t.Errorf("cpu polls = %d, want 2", got)
	}
}
