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

package adapter

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/mem"

	"github.com/Tyler1201623/Hardware-Analyzer-Pro/pkg/metrics"
)

// Injection points for tests.
var (
	virtualMemory = mem.VirtualMemoryWithContext
	swapMemory    = mem.SwapMemoryWithContext
)

// RAMAdapter reads physical and swap memory usage.
type RAMAdapter struct{}

// NewRAMAdapter creates a new RAM adapter instance.
func NewRAMAdapter() *RAMAdapter {
	return &RAMAdapter{}
}

// Domain identifies the subsystem this adapter reads.
func (r *RAMAdapter) Domain() metrics.Domain {
	return metrics.DomainRAM
}

// Poll gathers current memory metrics. Swap counters are reported when
// available; a machine without swap still polls cleanly.
func (r *RAMAdapter) Poll(ctx context.Context) (metrics.Fields, error) {
	vmStat, err := virtualMemory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get memory stats: %w", err)
	}
	if vmStat.Total == 0 {
		return nil, fmt.Errorf("total memory is zero")
	}

	fields := metrics.Fields{
		"percent":         metrics.Num(vmStat.UsedPercent),
		"total_bytes":     metrics.Num(float64(vmStat.Total)),
		"used_bytes":      metrics.Num(float64(vmStat.Used)),
		"available_bytes": metrics.Num(float64(vmStat.Available)),
		"cached_bytes":    metrics.Num(float64(vmStat.Cached)),
		"buffers_bytes":   metrics.Num(float64(vmStat.Buffers)),
	}

	swapStat, err := swapMemory(ctx)
	if err != nil {
		return fields, fmt.Errorf("failed to get swap stats: %w", err)
	}

	fields["swap_total_bytes"] = metrics.Num(float64(swapStat.Total))
	fields["swap_used_bytes"] = metrics.Num(float64(swapStat.Used))
	fields["swap_percent"] = metrics.Num(swapStat.UsedPercent)

	return fields, nil
}
