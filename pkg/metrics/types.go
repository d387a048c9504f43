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

package metrics

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Domain identifies one monitored hardware subsystem.
type Domain string

const (
	DomainCPU     Domain = "cpu"
	DomainRAM     Domain = "ram"
	DomainStorage Domain = "storage"
	DomainGPU     Domain = "gpu"
	DomainNetwork Domain = "network"
)

// AllDomains lists every known domain in canonical display order.
var AllDomains = []Domain{DomainCPU, DomainRAM, DomainStorage, DomainGPU, DomainNetwork}

// ParseDomain converts a case-insensitive name into a Domain.
func ParseDomain(name string) (Domain, error) {
	d := Domain(strings.ToLower(strings.TrimSpace(name)))
	switch d {
	case DomainCPU, DomainRAM, DomainStorage, DomainGPU, DomainNetwork:
		return d, nil
	}
	return "", fmt.Errorf("unknown domain %q", name)
}

// Status classifies the outcome of a single adapter poll.
type Status string

const (
	StatusOk             Status = "ok"      // All fields collected
	StatusPartialFailure Status = "partial" // Some fields collected, some lost
	StatusFailure        Status = "failure" // No usable fields
)

// Fields maps metric field names to their values for one domain.
// Compound names use dots to namespace per-device fields,
// e.g. "sda1.used_percent" or "eth0.recv_bytes_per_sec".
type Fields map[string]Value

// Keys returns the field names in sorted order for deterministic rendering.
func (f Fields) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Sample is one domain's reading from one polling round.
type Sample struct {
	Domain    Domain    `json:"domain"`
	Timestamp time.Time `json:"timestamp"`
	Status    Status    `json:"status"`
	Fields    Fields    `json:"fields"`
	Err       string    `json:"error,omitempty"` // Non-empty iff Status != StatusOk
}

// OK reports whether the sample was collected without error.
func (s Sample) OK() bool {
	return s.Status == StatusOk
}

// Snapshot represents a complete system metrics snapshot at a specific time.
// It holds exactly one sample per registered domain. A snapshot is immutable
// once published: consumers must not modify Samples or Fields.
type Snapshot struct {
	Timestamp time.Time         `json:"timestamp"`
	Domains   []Domain          `json:"domains"` // Registration order
	Samples   map[Domain]Sample `json:"samples"`
}

// Sample returns the sample for the given domain, if present.
func (s *Snapshot) Sample(d Domain) (Sample, bool) {
	sm, ok := s.Samples[d]
	return sm, ok
}

// Field returns one named field of one domain, if present.
func (s *Snapshot) Field(d Domain, name string) (Value, bool) {
	sm, ok := s.Samples[d]
	if !ok {
		return Value{}, false
	}
	v, ok := sm.Fields[name]
	return v, ok
}
