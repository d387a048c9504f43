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

// Package store keeps the latest snapshot and bounded per-domain history
// in memory for concurrent readers.
package store

import (
	"sync"
	"sync/atomic"

	"github.com/Tyler1201623/Hardware-Analyzer-Pro/pkg/metrics"
)

// DefaultHistorySize is the per-domain sample history capacity.
const DefaultHistorySize = 100

// Store holds the most recent snapshot and a bounded FIFO history of
// samples per domain. One writer (the sampler) calls Put; any number of
// readers may call the query methods concurrently. Reads never block
// the writer and never observe a half-written snapshot.
type Store struct {
	latest atomic.Pointer[metrics.Snapshot]

	mu      sync.RWMutex
	history map[metrics.Domain]*sampleRing
	size    int
}

// New creates a store with the given per-domain history capacity.
func New(historySize int) *Store {
	if historySize < 1 {
		historySize = DefaultHistorySize
	}
	return &Store{
		history: make(map[metrics.Domain]*sampleRing),
		size:    historySize,
	}
}

// Put publishes a completed snapshot. Only the sampler calls this.
//
// A domain that was not due this round carries its previous sample
// forward inside the snapshot; such samples keep their original
// timestamp and are not appended to history again, so history holds
// one entry per actual poll.
func (s *Store) Put(snap *metrics.Snapshot) {
	if snap == nil {
		return
	}

	s.mu.Lock()
	for _, d := range snap.Domains {
		sample, ok := snap.Samples[d]
		if !ok {
			continue
		}
		ring := s.history[d]
		if ring == nil {
			ring = newSampleRing(s.size)
			s.history[d] = ring
		}
		ring.append(sample)
	}
	s.mu.Unlock()

	s.latest.Store(snap)
}

// Latest returns the most recent snapshot, or nil when no polling round
// has completed yet.
func (s *Store) Latest() *metrics.Snapshot {
	return s.latest.Load()
}

// History returns the stored samples for a domain, oldest first. The
// returned slice is a copy and safe to retain.
func (s *Store) History(d metrics.Domain) []metrics.Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ring := s.history[d]
	if ring == nil {
		return nil
	}
	return ring.items()
}

// Domains returns the domain list of the latest snapshot, in
// registration order. It is nil before the first round.
func (s *Store) Domains() []metrics.Domain {
	snap := s.latest.Load()
	if snap == nil {
		return nil
	}
	domains := make([]metrics.Domain, len(snap.Domains))
	copy(domains, snap.Domains)
	return domains
}

// sampleRing is a fixed-capacity FIFO of samples. Appending to a full
// ring evicts the oldest entry.
type sampleRing struct {
	buf   []metrics.Sample
	start int
	count int
}

func newSampleRing(capacity int) *sampleRing {
	return &sampleRing{
		buf: make([]metrics.Sample, capacity),
	}
}

// append stores a sample, skipping it when the timestamp matches the
// newest entry (the carried-forward case).
func (r *sampleRing) append(sample metrics.Sample) {
	if r.count > 0 {
		newest := r.buf[(r.start+r.count-1)%len(r.buf)]
		if newest.Timestamp.Equal(sample.Timestamp) {
			return
		}
	}

	if r.count < len(r.buf) {
		r.buf[(r.start+r.count)%len(r.buf)] = sample
		r.count++
		return
	}

	// Full: overwrite the oldest slot
	r.buf[r.start] = sample
	r.start = (r.start + 1) % len(r.buf)
}

// items returns the ring contents oldest first.
func (r *sampleRing) items() []metrics.Sample {
	out := make([]metrics.Sample, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}
