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

// Package broker fans completed snapshots out to subscribers.
package broker

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/Tyler1201623/Hardware-Analyzer-Pro/pkg/metrics"
)

// DefaultSubscriberBuffer is the per-subscriber queue depth used when a
// caller does not pick one.
const DefaultSubscriberBuffer = 16

// Subscription is one consumer's handle on the snapshot stream.
//
// Snapshots arrive on C in publication order. A subscriber that falls
// behind loses its oldest queued snapshots first, never the newest, so
// after a stall the next receive is close to the live value. C is closed
// by Unsubscribe or when the publisher shuts down.
type Subscription struct {
	ID uuid.UUID
	C  <-chan *metrics.Snapshot

	ch      chan *metrics.Snapshot
	dropped atomic.Uint64
}

// Dropped reports how many snapshots this subscriber has lost to
// backpressure.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Publisher delivers each published snapshot to every current subscriber
// without ever blocking the publishing goroutine.
//
// Publish is called from the sampling loop only; the subscription
// methods are safe to call from any goroutine.
type Publisher struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID]*Subscription
	closed bool
	logger *slog.Logger
}

// NewPublisher creates a publisher with no subscribers.
func NewPublisher(logger *slog.Logger) *Publisher {
	return &Publisher{
		subs:   make(map[uuid.UUID]*Subscription),
		logger: logger,
	}
}

// Subscribe registers a new subscriber with the given queue depth.
// A depth below 1 selects DefaultSubscriberBuffer.
func (p *Publisher) Subscribe(buffer int) *Subscription {
	if buffer < 1 {
		buffer = DefaultSubscriberBuffer
	}

	sub := &Subscription{
		ID: uuid.New(),
		ch: make(chan *metrics.Snapshot, buffer),
	}
	sub.C = sub.ch

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		close(sub.ch)
		return sub
	}
	p.subs[sub.ID] = sub

	p.logger.Debug("Subscriber registered", "id", sub.ID, "buffer", buffer)
	return sub
}

// Unsubscribe removes a subscriber and closes its channel. Unknown IDs
// are ignored, so double unsubscription is harmless.
func (p *Publisher) Unsubscribe(id uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	sub, ok := p.subs[id]
	if !ok {
		return
	}
	delete(p.subs, id)
	close(sub.ch)

	p.logger.Debug("Subscriber removed", "id", id, "dropped", sub.Dropped())
}

// Publish hands a snapshot to every subscriber. A subscriber whose queue
// is full loses its oldest queued snapshot to make room for this one.
func (p *Publisher) Publish(snap *metrics.Snapshot) {
	if snap == nil {
		return
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}

	for _, sub := range p.subs {
		select {
		case sub.ch <- snap:
			continue
		default:
		}

		// Queue full: evict the oldest entry, then queue the newest.
		select {
		case <-sub.ch:
			sub.dropped.Add(1)
		default:
		}
		select {
		case sub.ch <- snap:
		default:
		}

		p.logger.Warn("Subscriber lagging, dropped oldest snapshot",
			"id", sub.ID,
			"dropped_total", sub.Dropped(),
		)
	}
}

// Count returns the number of active subscribers.
func (p *Publisher) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subs)
}

// Close shuts the publisher down and closes every subscriber channel.
// Publish and Subscribe become no-ops afterwards.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true

	for id, sub := range p.subs {
		close(sub.ch)
		delete(p.subs, id)
	}
}
