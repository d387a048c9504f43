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

// Package sampler drives the polling rounds that turn adapter readings
// into published snapshots.
package sampler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Tyler1201623/Hardware-Analyzer-Pro/internal/adapter"
	"github.com/Tyler1201623/Hardware-Analyzer-Pro/internal/broker"
	"github.com/Tyler1201623/Hardware-Analyzer-Pro/internal/config"
	"github.com/Tyler1201623/Hardware-Analyzer-Pro/internal/store"
	"github.com/Tyler1201623/Hardware-Analyzer-Pro/pkg/metrics"
)

// Registration binds one adapter to the sampler, optionally with its own
// polling interval. A zero interval means the global one.
type Registration struct {
	Adapter  adapter.Adapter
	Interval time.Duration
}

// DefaultRegistrations builds one registration per hardware domain,
// honoring the config's per-domain interval overrides and device filters.
func DefaultRegistrations(cfg *config.Config) []Registration {
	return []Registration{
		{Adapter: adapter.NewCPUAdapter(), Interval: cfg.DomainInterval(metrics.DomainCPU)},
		{Adapter: adapter.NewRAMAdapter(), Interval: cfg.DomainInterval(metrics.DomainRAM)},
		{Adapter: adapter.NewStorageAdapter(cfg.IncludeDisks, cfg.ExcludeDisks), Interval: cfg.DomainInterval(metrics.DomainStorage)},
		{Adapter: adapter.NewGPUAdapter(), Interval: cfg.DomainInterval(metrics.DomainGPU)},
		{Adapter: adapter.NewNetworkAdapter(cfg.IncludeNetworks, cfg.ExcludeNetworks), Interval: cfg.DomainInterval(metrics.DomainNetwork)},
	}
}

// pollRequest asks a worker for one reading, delivered to results.
type pollRequest struct {
	ctx     context.Context
	results chan<- metrics.Sample
}

// worker owns one adapter. Polls are serialized through the requests
// channel, so an adapter never sees concurrent Poll calls and a hung
// poll occupies exactly one goroutine no matter how many rounds pass.
//
// The scheduling fields (nextDue, lastSample) are touched only by the
// sampler loop goroutine.
type worker struct {
	adapter  adapter.Adapter
	domain   metrics.Domain
	interval time.Duration
	requests chan pollRequest

	nextDue    time.Time
	lastSample metrics.Sample
	hasSample  bool
}

// poll runs the adapter and classifies the outcome into a sample.
// Adapter panics are contained here and reported as failures.
func (w *worker) poll(ctx context.Context) metrics.Sample {
	fields, err := w.safePoll(ctx)

	sample := metrics.Sample{
		Domain:    w.domain,
		Timestamp: time.Now(),
		Fields:    fields,
	}
	switch {
	case err == nil:
		sample.Status = metrics.StatusOk
		if sample.Fields == nil {
			sample.Fields = metrics.Fields{}
		}
	case len(fields) > 0:
		sample.Status = metrics.StatusPartialFailure
		sample.Err = err.Error()
	default:
		sample.Status = metrics.StatusFailure
		sample.Fields = metrics.Fields{}
		sample.Err = err.Error()
	}
	return sample
}

func (w *worker) safePoll(ctx context.Context) (fields metrics.Fields, err error) {
	defer func() {
		if r := recover(); r != nil {
			fields = nil
			err = fmt.Errorf("adapter panic: %v", r)
		}
	}()
	return w.adapter.Poll(ctx)
}

// Sampler polls every registered adapter on a fixed cadence and hands
// each completed round to the store and the publisher as one snapshot.
//
// At most one round is ever in flight: a round that overruns the
// interval delays the next tick instead of stacking rounds behind it.
type Sampler struct {
	cfg     *config.Config
	store   *store.Store
	pub     *broker.Publisher
	logger  *slog.Logger
	workers []*worker

	lastStamp time.Time
}

// New creates a sampler for the given registrations. Registering the
// same domain twice is a configuration error.
func New(cfg *config.Config, regs []Registration, st *store.Store, pub *broker.Publisher, logger *slog.Logger) (*Sampler, error) {
	s := &Sampler{
		cfg:    cfg,
		store:  st,
		pub:    pub,
		logger: logger,
	}

	seen := make(map[metrics.Domain]bool)
	for _, reg := range regs {
		if reg.Adapter == nil {
			return nil, fmt.Errorf("nil adapter in registration")
		}
		d := reg.Adapter.Domain()
		if seen[d] {
			return nil, fmt.Errorf("domain %s registered twice", d)
		}
		seen[d] = true

		s.workers = append(s.workers, &worker{
			adapter:  reg.Adapter,
			domain:   d,
			interval: reg.Interval,
			requests: make(chan pollRequest),
		})
	}

	return s, nil
}

// Run executes polling rounds until ctx is cancelled. The first round
// starts immediately.
func (s *Sampler) Run(ctx context.Context) error {
	s.logger.Info("Starting sampler",
		"interval", s.cfg.PollInterval,
		"round_timeout", s.cfg.RoundTimeout,
		"adapters", len(s.workers),
	)

	for _, w := range s.workers {
		go s.runWorker(ctx, w)
	}

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Sampler stopping...")
			return nil

		case <-timer.C:
			start := time.Now()
			snap := s.runRound(ctx)
			if ctx.Err() != nil {
				s.logger.Info("Sampler stopping...")
				return nil
			}
			s.deliver(snap)

			// Next tick is one interval after this round started. A
			// round that overran re-arms immediately; missed ticks are
			// coalesced, never queued.
			delay := time.Until(start.Add(s.cfg.PollInterval))
			if delay < 0 {
				delay = 0
			}
			timer.Reset(delay)
		}
	}
}

// runWorker serves poll requests for one adapter until ctx ends.
func (s *Sampler) runWorker(ctx context.Context, w *worker) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-w.requests:
			// The results channel is buffered for every dispatched
			// worker, so this send cannot block even when the round
			// has already moved on; the stale sample is simply never
			// read.
			req.results <- w.poll(req.ctx)
		}
	}
}

// runRound polls every due adapter concurrently and assembles one
// snapshot containing an entry for every registered domain. Domains not
// due this round carry their previous sample forward unchanged.
func (s *Sampler) runRound(ctx context.Context) *metrics.Snapshot {
	now := time.Now()

	roundCtx, cancelRound := context.WithTimeout(ctx, s.cfg.RoundTimeout)
	defer cancelRound()

	var cancels []context.CancelFunc
	defer func() {
		for _, cancel := range cancels {
			cancel()
		}
	}()

	results := make(chan metrics.Sample, len(s.workers))
	samples := make(map[metrics.Domain]metrics.Sample, len(s.workers))
	dispatched := make(map[metrics.Domain]bool, len(s.workers))

	for _, w := range s.workers {
		if !s.isDue(w, now) {
			continue
		}
		w.nextDue = now.Add(s.effectiveInterval(w))

		pollCtx := roundCtx
		if s.cfg.AdapterTimeout > 0 && s.cfg.AdapterTimeout < s.cfg.RoundTimeout {
			var cancel context.CancelFunc
			pollCtx, cancel = context.WithTimeout(roundCtx, s.cfg.AdapterTimeout)
			cancels = append(cancels, cancel)
		}

		select {
		case w.requests <- pollRequest{ctx: pollCtx, results: results}:
			dispatched[w.domain] = true
		default:
			// The worker is still stuck on an earlier round's poll.
			samples[w.domain] = s.timeoutSample(w.domain, "poll timed out: previous poll still in progress")
		}
	}

	received := 0
	for received < len(dispatched) {
		select {
		case sample := <-results:
			samples[sample.Domain] = sample
			received++
		case <-roundCtx.Done():
			received = len(dispatched)
		}
	}

	// Anything dispatched but not received by the deadline timed out.
	// Its eventual result lands in this round's buffered channel and is
	// discarded with it.
	ts := time.Now()
	if !ts.After(s.lastStamp) {
		ts = s.lastStamp.Add(time.Nanosecond)
	}
	s.lastStamp = ts

	snap := &metrics.Snapshot{
		Timestamp: ts,
		Domains:   make([]metrics.Domain, 0, len(s.workers)),
		Samples:   make(map[metrics.Domain]metrics.Sample, len(s.workers)),
	}

	for _, w := range s.workers {
		snap.Domains = append(snap.Domains, w.domain)

		sample, ok := samples[w.domain]
		if !ok {
			if dispatched[w.domain] {
				sample = s.timeoutSample(w.domain, "poll timed out")
			} else {
				sample = w.lastSample
			}
		}

		w.lastSample = sample
		w.hasSample = true
		snap.Samples[w.domain] = sample
	}

	return snap
}

// isDue reports whether a worker should poll this round. A worker that
// has never produced a sample is always due.
func (s *Sampler) isDue(w *worker, now time.Time) bool {
	if !w.hasSample {
		return true
	}
	return !now.Before(w.nextDue)
}

func (s *Sampler) effectiveInterval(w *worker) time.Duration {
	if w.interval > 0 {
		return w.interval
	}
	return s.cfg.PollInterval
}

func (s *Sampler) timeoutSample(d metrics.Domain, msg string) metrics.Sample {
	return metrics.Sample{
		Domain:    d,
		Timestamp: time.Now(),
		Status:    metrics.StatusFailure,
		Fields:    metrics.Fields{},
		Err:       msg,
	}
}

// deliver hands a completed snapshot to the store and the publisher.
func (s *Sampler) deliver(snap *metrics.Snapshot) {
	if s.store != nil {
		s.store.Put(snap)
	}
	if s.pub != nil {
		s.pub.Publish(snap)
	}

	failures := 0
	for _, sample := range snap.Samples {
		if sample.Status == metrics.StatusFailure {
			failures++
		}
	}
	s.logger.Debug("Snapshot published",
		"timestamp", snap.Timestamp,
		"domains", len(snap.Domains),
		"failures", failures,
	)
}

// PollOnce runs a single synchronous round covering every registered
// adapter, regardless of per-domain intervals, and returns the snapshot
// without publishing it. It must not be mixed with a running Run.
func (s *Sampler) PollOnce(ctx context.Context) (*metrics.Snapshot, error) {
	roundCtx, cancel := context.WithTimeout(ctx, s.cfg.RoundTimeout)
	defer cancel()

	results := make(chan metrics.Sample, len(s.workers))
	for _, w := range s.workers {
		go func(w *worker) {
			results <- w.poll(roundCtx)
		}(w)
	}

	samples := make(map[metrics.Domain]metrics.Sample, len(s.workers))
	for len(samples) < len(s.workers) {
		select {
		case sample := <-results:
			samples[sample.Domain] = sample
		case <-roundCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			for _, w := range s.workers {
				if _, ok := samples[w.domain]; !ok {
					samples[w.domain] = s.timeoutSample(w.domain, "poll timed out")
				}
			}
		}
	}

	snap := &metrics.Snapshot{
		Timestamp: time.Now(),
		Domains:   make([]metrics.Domain, 0, len(s.workers)),
		Samples:   samples,
	}
	for _, w := range s.workers {
		snap.Domains = append(snap.Domains, w.domain)
	}
	return snap, nil
}
