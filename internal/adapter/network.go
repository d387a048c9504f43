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
	"time"

	"github.com/shirou/gopsutil/v3/net"

	"github.com/Tyler1201623/Hardware-Analyzer-Pro/pkg/metrics"
)

// Injection points for tests.
var (
	netIOCounters = net.IOCountersWithContext
	netInterfaces = net.InterfacesWithContext
)

// NetworkAdapter reads per-interface transfer rates and link state.
type NetworkAdapter struct {
	prevStats         map[string]metrics.NetworkIOStats
	prevTotal         metrics.NetworkIOStats
	includeInterfaces []string // Interfaces to monitor (empty = all)
	excludeInterfaces []string // Interfaces to exclude
	firstRun          bool
}

// NewNetworkAdapter creates a new network adapter instance.
// includeInterfaces: list of interface names to monitor (empty = all available)
// excludeInterfaces: list of interface names to exclude
func NewNetworkAdapter(includeInterfaces, excludeInterfaces []string) *NetworkAdapter {
	return &NetworkAdapter{
		prevStats:         make(map[string]metrics.NetworkIOStats),
		includeInterfaces: includeInterfaces,
		excludeInterfaces: excludeInterfaces,
		firstRun:          true,
	}
}

// Domain identifies the subsystem this adapter reads.
func (n *NetworkAdapter) Domain() metrics.Domain {
	return metrics.DomainNetwork
}

// Poll gathers current network metrics. Transfer rates come from counter
// deltas, so the first poll reports only link state; rates appear from
// the second round onwards. A host with no non-loopback interfaces
// reports empty fields, which is not an error.
func (n *NetworkAdapter) Poll(ctx context.Context) (metrics.Fields, error) {
	ioCounters, err := netIOCounters(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to get network I/O counters: %w", err)
	}

	fields := make(metrics.Fields)
	now := time.Now()
	total := metrics.NetworkIOStats{Timestamp: now}
	monitored := 0

	for _, counter := range ioCounters {
		interfaceName := counter.Name

		// Skip loopback interfaces
		if n.isLoopback(interfaceName) {
			continue
		}
		if !n.shouldMonitor(interfaceName) {
			continue
		}

		monitored++
		total.BytesSent += counter.BytesSent
		total.BytesRecv += counter.BytesRecv

		currentStats := metrics.NetworkIOStats{
			BytesSent: counter.BytesSent,
			BytesRecv: counter.BytesRecv,
			Timestamp: now,
		}

		prevStats, exists := n.prevStats[interfaceName]
		n.prevStats[interfaceName] = currentStats
		if n.firstRun || !exists {
			continue
		}

		sent, recv := metrics.CalculateNetworkRates(prevStats, currentStats)
		fields[interfaceName+".sent_bytes_per_sec"] = metrics.Num(sent)
		fields[interfaceName+".recv_bytes_per_sec"] = metrics.Num(recv)
	}

	if monitored > 0 && !n.firstRun {
		totalSent, totalRecv := metrics.CalculateNetworkRates(n.prevTotal, total)
		fields["total.sent_bytes_per_sec"] = metrics.Num(totalSent)
		fields["total.recv_bytes_per_sec"] = metrics.Num(totalRecv)
		fields["total.bandwidth_bits_per_sec"] = metrics.Num(metrics.CalculateNetworkBandwidth(n.prevTotal, total))
	}
	if monitored > 0 {
		n.prevTotal = total
	}
	n.firstRun = false

	if err := n.collectLinkState(ctx, fields); err != nil {
		return fields, err
	}
	return fields, nil
}

// collectLinkState adds up/down and MTU fields for monitored interfaces.
func (n *NetworkAdapter) collectLinkState(ctx context.Context, fields metrics.Fields) error {
	interfaces, err := netInterfaces(ctx)
	if err != nil {
		return fmt.Errorf("failed to list network interfaces: %w", err)
	}

	for _, iface := range interfaces {
		if n.isLoopback(iface.Name) || !n.shouldMonitor(iface.Name) {
			continue
		}

		state := "down"
		for _, flag := range iface.Flags {
			if flag == "up" {
				state = "up"
				break
			}
		}
		fields[iface.Name+".state"] = metrics.Str(state)
		fields[iface.Name+".mtu"] = metrics.Num(float64(iface.MTU))
	}
	return nil
}

// isLoopback checks if an interface is a loopback interface.
func (n *NetworkAdapter) isLoopback(interfaceName string) bool {
	// Common loopback interface names
	loopbacks := []string{"lo", "lo0", "Loopback"}
	for _, lo := range loopbacks {
		if interfaceName == lo {
			return true
		}
	}
	return false
}

// shouldMonitor checks if an interface should be monitored based on include/exclude filters.
func (n *NetworkAdapter) shouldMonitor(interfaceName string) bool {
	// Check exclude list first
	for _, excluded := range n.excludeInterfaces {
		if excluded == interfaceName {
			return false
		}
	}

	// If include list is empty, monitor all (except excluded)
	if len(n.includeInterfaces) == 0 {
		return true
	}

	for _, included := range n.includeInterfaces {
		if included == interfaceName {
			return true
		}
	}

	return false
}
