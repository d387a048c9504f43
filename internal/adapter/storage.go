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
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/Tyler1201623/Hardware-Analyzer-Pro/pkg/metrics"
)

// Injection points for tests.
var (
	diskPartitions = disk.PartitionsWithContext
	diskUsage      = disk.UsageWithContext
	diskIOCounters = disk.IOCountersWithContext
)

// StorageAdapter reads per-device capacity usage and I/O activity.
type StorageAdapter struct {
	prevIO         map[string]metrics.DiskIOStats
	includeDevices []string // Devices to monitor (empty = all)
	excludeDevices []string // Devices to exclude
	firstRun       bool
}

// normalizeDeviceName strips the /dev/ prefix from device names for
// consistent comparison. This allows users to specify devices as shown in
// list-devices (/dev/sdd) while internally matching against the short
// counter names (sdd).
func normalizeDeviceName(name string) string {
	return strings.TrimPrefix(name, "/dev/")
}

// normalizeDeviceList normalizes all device names in a list.
func normalizeDeviceList(devices []string) []string {
	normalized := make([]string, len(devices))
	for i, device := range devices {
		normalized[i] = normalizeDeviceName(device)
	}
	return normalized
}

// NewStorageAdapter creates a new storage adapter instance.
// includeDevices: list of device names to monitor (empty = all available)
// excludeDevices: list of device names to exclude
// Device names can be specified with or without /dev/ prefix (e.g., "sdd" or "/dev/sdd")
func NewStorageAdapter(includeDevices, excludeDevices []string) *StorageAdapter {
	return &StorageAdapter{
		prevIO:         make(map[string]metrics.DiskIOStats),
		includeDevices: normalizeDeviceList(includeDevices),
		excludeDevices: normalizeDeviceList(excludeDevices),
		firstRun:       true,
	}
}

// Domain identifies the subsystem this adapter reads.
func (s *StorageAdapter) Domain() metrics.Domain {
	return metrics.DomainStorage
}

// Poll gathers capacity usage for every mounted partition and I/O rates
// for every physical device. A partition that cannot be statted (for
// example, permission denied on a restricted mount) costs only its own
// fields: the remaining devices are still reported alongside the error.
func (s *StorageAdapter) Poll(ctx context.Context) (metrics.Fields, error) {
	partitions, err := diskPartitions(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get disk partitions: %w", err)
	}

	fields := make(metrics.Fields)
	var errs []error
	count := 0

	for _, part := range partitions {
		device := normalizeDeviceName(part.Device)
		if !s.shouldMonitor(device) {
			continue
		}

		usage, usageErr := diskUsage(ctx, part.Mountpoint)
		if usageErr != nil {
			errs = append(errs, fmt.Errorf("failed to stat %s: %w", part.Mountpoint, usageErr))
			continue
		}

		count++
		fields[device+".mountpoint"] = metrics.Str(part.Mountpoint)
		fields[device+".fstype"] = metrics.Str(part.Fstype)
		fields[device+".total_bytes"] = metrics.Num(float64(usage.Total))
		fields[device+".used_bytes"] = metrics.Num(float64(usage.Used))
		fields[device+".free_bytes"] = metrics.Num(float64(usage.Free))
		fields[device+".used_percent"] = metrics.Num(usage.UsedPercent)
	}
	fields["count"] = metrics.Num(float64(count))

	if ioErr := s.collectIORates(ctx, fields); ioErr != nil {
		errs = append(errs, ioErr)
	}

	if len(errs) > 0 {
		return fields, errors.Join(errs...)
	}
	return fields, nil
}

// collectIORates adds iops, busy and await fields from device I/O counter
// deltas. The first poll only records a baseline.
func (s *StorageAdapter) collectIORates(ctx context.Context, fields metrics.Fields) error {
	ioCounters, err := diskIOCounters(ctx)
	if err != nil {
		return fmt.Errorf("failed to get disk I/O counters: %w", err)
	}

	now := time.Now()
	first := s.firstRun
	s.firstRun = false

	for deviceName := range ioCounters {
		counter := ioCounters[deviceName]
		device := normalizeDeviceName(deviceName)
		if !s.shouldMonitor(device) {
			continue
		}

		currentStats := metrics.DiskIOStats{
			ReadCount:  counter.ReadCount,
			WriteCount: counter.WriteCount,
			ReadTime:   counter.ReadTime,
			WriteTime:  counter.WriteTime,
			IOTime:     s.getIOTime(&counter),
			Timestamp:  now,
		}

		prevStats, exists := s.prevIO[device]
		s.prevIO[device] = currentStats
		if first || !exists {
			continue
		}

		fields[device+".iops"] = metrics.Num(metrics.CalculateDiskIOPS(prevStats, currentStats))
		fields[device+".busy_percent"] = metrics.Num(metrics.CalculateDiskBusy(prevStats, currentStats))
		fields[device+".await_ms"] = metrics.Num(metrics.CalculateDiskAwait(prevStats, currentStats))
	}

	return nil
}

// getIOTime extracts IOTime with platform-specific handling.
func (s *StorageAdapter) getIOTime(counter *disk.IOCountersStat) uint64 {
	if runtime.GOOS == "windows" {
		// Windows: IoTime might not be available, use ReadTime + WriteTime as approximation
		if counter.IoTime == 0 {
			return counter.ReadTime + counter.WriteTime
		}
	}
	return counter.IoTime
}

// shouldMonitor checks if a device should be monitored based on include/exclude filters.
func (s *StorageAdapter) shouldMonitor(deviceName string) bool {
	// Check exclude list first
	for _, excluded := range s.excludeDevices {
		if excluded == deviceName {
			return false
		}
	}

	// If include list is empty, monitor all (except excluded)
	if len(s.includeDevices) == 0 {
		return true
	}

	for _, included := range s.includeDevices {
		if included == deviceName {
			return true
		}
	}

	return false
}
