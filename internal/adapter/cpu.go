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
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"

	"github.com/Tyler1201623/Hardware-Analyzer-Pro/pkg/metrics"
)

// Injection points for tests.
var (
	cpuTimes           = cpu.TimesWithContext
	cpuInfo            = cpu.InfoWithContext
	cpuCounts          = cpu.CountsWithContext
	sensorTemperatures = host.SensorsTemperaturesWithContext
)

// CPUAdapter reads CPU utilization, iowait, temperature and static
// processor information.
type CPUAdapter struct {
	prevStats  metrics.CPUTimeStats
	firstRun   bool
	staticInfo metrics.Fields // Memoized on first successful read
}

// NewCPUAdapter creates a new CPU adapter instance.
func NewCPUAdapter() *CPUAdapter {
	return &CPUAdapter{
		firstRun: true,
	}
}

// Domain identifies the subsystem this adapter reads.
func (c *CPUAdapter) Domain() metrics.Domain {
	return metrics.DomainCPU
}

// Poll gathers current CPU metrics and calculates utilization deltas.
// The first poll only records a baseline, so utilization appears from
// the second round onwards.
func (c *CPUAdapter) Poll(ctx context.Context) (metrics.Fields, error) {
	currentStats, err := c.getCPUTimeStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get CPU stats: %w", err)
	}

	fields := make(metrics.Fields)
	var partialErr error

	if info, infoErr := c.getStaticInfo(ctx); infoErr != nil {
		partialErr = infoErr
	} else {
		for k, v := range info {
			fields[k] = v
		}
	}

	// First run - just store baseline
	if c.firstRun {
		c.prevStats = currentStats
		c.firstRun = false
		return fields, partialErr
	}

	utilization := metrics.CalculateCPUUtilization(&c.prevStats, &currentStats)
	iowait := metrics.CalculateCPUIOWait(&c.prevStats, &currentStats)
	c.prevStats = currentStats

	fields["utilization_percent"] = metrics.Num(utilization)
	if iowait >= 0 {
		fields["iowait_percent"] = metrics.Num(iowait)
	}

	// Temperature is best effort: many platforms expose no sensors at all.
	if temp, ok := c.getTemperature(ctx); ok {
		fields["temperature_c"] = metrics.Num(temp)
	}

	return fields, partialErr
}

// getCPUTimeStats retrieves cumulative CPU time counters from the system.
func (c *CPUAdapter) getCPUTimeStats(ctx context.Context) (metrics.CPUTimeStats, error) {
	stats := metrics.CPUTimeStats{
		Timestamp: time.Now(),
	}

	// Get CPU times (aggregated across all CPUs)
	times, err := cpuTimes(ctx, false)
	if err != nil {
		return stats, err
	}

	if len(times) == 0 {
		return stats, fmt.Errorf("no CPU time stats available")
	}

	t := times[0]

	stats.User = t.User
	stats.System = t.System
	stats.Idle = t.Idle
	stats.Irq = t.Irq
	stats.SoftIrq = t.Softirq
	stats.Steal = t.Steal
	stats.Guest = t.Guest
	stats.GuestNice = t.GuestNice

	// IOWait handling per platform
	stats.IOWait = c.getIOWait(&t)

	return stats, nil
}

// getIOWait extracts iowait value with platform-specific handling.
func (c *CPUAdapter) getIOWait(t *cpu.TimesStat) float64 {
	switch runtime.GOOS {
	case "windows":
		// Windows doesn't have iowait concept
		return -1.0
	case "darwin":
		// macOS has limited iowait support
		if t.Iowait == 0 {
			return -1.0
		}
		return t.Iowait
	case "linux":
		return t.Iowait
	default:
		return -1.0
	}
}

// getStaticInfo reads processor model and core counts once and caches them.
func (c *CPUAdapter) getStaticInfo(ctx context.Context) (metrics.Fields, error) {
	if c.staticInfo != nil {
		return c.staticInfo, nil
	}

	info := make(metrics.Fields)

	infos, err := cpuInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get CPU info: %w", err)
	}
	if len(infos) > 0 {
		info["model"] = metrics.Str(infos[0].ModelName)
		info["mhz"] = metrics.Num(infos[0].Mhz)
	}

	if physical, err := cpuCounts(ctx, false); err == nil {
		info["cores_physical"] = metrics.Num(float64(physical))
	}
	if logical, err := cpuCounts(ctx, true); err == nil {
		info["cores_logical"] = metrics.Num(float64(logical))
	}

	c.staticInfo = info
	return info, nil
}

// getTemperature looks for a CPU package temperature sensor.
func (c *CPUAdapter) getTemperature(ctx context.Context) (float64, bool) {
	sensors, err := sensorTemperatures(ctx)
	if err != nil {
		return 0, false
	}

	for _, s := range sensors {
		key := strings.ToLower(s.SensorKey)
		if strings.Contains(key, "coretemp") || strings.Contains(key, "k10temp") ||
			strings.Contains(key, "cpu") {
			if s.Temperature > 0 {
				return s.Temperature, true
			}
		}
	}
	return 0, false
}
