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

// Package adapter reads hardware metrics, one adapter per subsystem.
//
// Adapters report problems through their return values and never panic.
// A nil error with empty fields means the hardware is simply not present
// on this machine, which is a normal condition, not a failure. A non-nil
// error alongside collected fields means some values were lost; a non-nil
// error with no fields means the poll produced nothing usable.
package adapter

import (
	"context"

	"github.com/Tyler1201623/Hardware-Analyzer-Pro/pkg/metrics"
)

// Adapter reads one hardware domain.
//
// Poll is never called concurrently for the same adapter: the sampler
// serializes polls per domain. Poll must honor ctx cancellation so a slow
// reading can be abandoned.
type Adapter interface {
	Domain() metrics.Domain
	Poll(ctx context.Context) (metrics.Fields, error)
}
