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

// Package devices enumerates the monitorable hardware on the host:
// mounted disks, network interfaces, and NVIDIA GPUs. The listings feed
// the list-devices command and the /api/devices endpoint, and their Name
// values are the strings that include/exclude filters match.
package devices

import (
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/net"
)

// Injection points for tests.
var (
	diskPartitions = disk.PartitionsWithContext
	diskUsage      = disk.UsageWithContext
	netInterfaces  = net.InterfacesWithContext
	gpuLookPath    = exec.LookPath
	gpuQuery       = func(ctx context.Context, path string, args ...string) ([]byte, error) {
		return exec.CommandContext(ctx, path, args...).Output()
	}
)

// DiskInfo describes one mounted block device. Name is the short form
// without the /dev/ prefix; it is what filters match and what snapshot
// field names are prefixed with.
type DiskInfo struct {
	Name       string `json:"name"`
	Device     string `json:"device"`
	Mountpoint string `json:"mountpoint"`
	Filesystem string `json:"filesystem"`
	Total      uint64 `json:"total_bytes"`
}

// NetworkInfo describes one network interface.
type NetworkInfo struct {
	Name       string   `json:"name"`
	MacAddress string   `json:"mac_address"`
	Addresses  []string `json:"addresses"`
}

// GPUInfo describes one NVIDIA GPU as reported by nvidia-smi.
type GPUInfo struct {
	Index         int    `json:"index"`
	Name          string `json:"name"`
	MemoryTotalMB uint64 `json:"memory_total_mb"`
	DriverVersion string `json:"driver_version"`
}

// ListDisks enumerates mounted physical partitions, one entry per
// device. Capacity comes from statting each mountpoint and stays zero
// when the stat fails; the listing itself only fails when the partition
// table cannot be read at all.
func ListDisks(ctx context.Context) ([]DiskInfo, error) {
	partitions, err := diskPartitions(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get disk partitions: %w", err)
	}

	disks := make([]DiskInfo, 0, len(partitions))
	seen := make(map[string]bool, len(partitions))

	for _, part := range partitions {
		// One entry per device even when it is mounted in several places.
		if seen[part.Device] {
			continue
		}
		seen[part.Device] = true

		var total uint64
		if usage, err := diskUsage(ctx, part.Mountpoint); err == nil {
			total = usage.Total
		}

		disks = append(disks, DiskInfo{
			Name:       strings.TrimPrefix(part.Device, "/dev/"),
			Device:     part.Device,
			Mountpoint: part.Mountpoint,
			Filesystem: part.Fstype,
			Total:      total,
		})
	}

	sort.Slice(disks, func(i, j int) bool { return disks[i].Name < disks[j].Name })

	return disks, nil
}

// ListNetworkInterfaces enumerates interfaces that carry at least one
// address.
func ListNetworkInterfaces(ctx context.Context) ([]NetworkInfo, error) {
	ifaces, err := netInterfaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get network interfaces: %w", err)
	}

	networks := make([]NetworkInfo, 0, len(ifaces))

	for _, iface := range ifaces {
		if len(iface.Addrs) == 0 {
			continue
		}

		addrs := make([]string, 0, len(iface.Addrs))
		for _, addr := range iface.Addrs {
			addrs = append(addrs, addr.Addr)
		}

		networks = append(networks, NetworkInfo{
			Name:       iface.Name,
			MacAddress: iface.HardwareAddr,
			Addresses:  addrs,
		})
	}

	sort.Slice(networks, func(i, j int) bool { return networks[i].Name < networks[j].Name })

	return networks, nil
}

// ListGPUs returns the NVIDIA GPUs visible to nvidia-smi. A missing
// nvidia-smi binary means no GPUs, not an error.
func ListGPUs(ctx context.Context) ([]GPUInfo, error) {
	path, err := gpuLookPath("nvidia-smi")
	if err != nil {
		return []GPUInfo{}, nil
	}

	out, err := gpuQuery(ctx, path,
		"--query-gpu=name,memory.total,driver_version",
		"--format=csv,noheader,nounits")
	if err != nil {
		return nil, fmt.Errorf("failed to query nvidia-smi: %w", err)
	}

	gpus := make([]GPUInfo, 0)
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.Split(line, ",")
		if len(parts) != 3 {
			continue
		}

		info := GPUInfo{
			Index:         len(gpus),
			Name:          strings.TrimSpace(parts[0]),
			DriverVersion: strings.TrimSpace(parts[2]),
		}
		if mem, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 64); err == nil {
			info.MemoryTotalMB = mem
		}

		gpus = append(gpus, info)
	}

	return gpus, nil
}

const tableWidth = 80

func tableTitle(sb *strings.Builder, title string) {
	sb.WriteString("\n" + title + "\n")
	tableRule(sb, "=")
}

func tableRule(sb *strings.Builder, ch string) {
	sb.WriteString(strings.Repeat(ch, tableWidth))
	sb.WriteString("\n")
}

// FormatDisksTable renders the disk listing for terminal output.
func FormatDisksTable(disks []DiskInfo) string {
	var sb strings.Builder

	tableTitle(&sb, "Available Disk Devices:")
	fmt.Fprintf(&sb, "%-12s %-16s %-24s %-10s %s\n", "NAME", "DEVICE", "MOUNTPOINT", "FSTYPE", "SIZE")
	tableRule(&sb, "-")

	for _, d := range disks {
		fmt.Fprintf(&sb, "%-12s %-16s %-24s %-10s %s\n",
			truncate(d.Name, 12),
			truncate(d.Device, 16),
			truncate(d.Mountpoint, 24),
			truncate(d.Filesystem, 10),
			formatBytes(d.Total),
		)
	}

	tableRule(&sb, "=")

	return sb.String()
}

// FormatNetworksTable renders the interface listing for terminal output.
// An interface with several addresses gets one continuation line per
// extra address.
func FormatNetworksTable(networks []NetworkInfo) string {
	var sb strings.Builder

	tableTitle(&sb, "Available Network Interfaces:")
	fmt.Fprintf(&sb, "%-24s %-20s %s\n", "INTERFACE", "MAC ADDRESS", "ADDRESSES")
	tableRule(&sb, "-")

	for _, n := range networks {
		mac := n.MacAddress
		if mac == "" {
			mac = "N/A"
		}

		first := "N/A"
		if len(n.Addresses) > 0 {
			first = n.Addresses[0]
		}

		fmt.Fprintf(&sb, "%-24s %-20s %s\n", truncate(n.Name, 24), mac, first)
		for i := 1; i < len(n.Addresses); i++ {
			fmt.Fprintf(&sb, "%-24s %-20s %s\n", "", "", n.Addresses[i])
		}
	}

	tableRule(&sb, "=")

	return sb.String()
}

// FormatGPUsTable renders the GPU listing for terminal output.
func FormatGPUsTable(gpus []GPUInfo) string {
	var sb strings.Builder

	tableTitle(&sb, "Available GPUs:")

	if len(gpus) == 0 {
		sb.WriteString("No NVIDIA GPUs detected (nvidia-smi not available or no devices).\n")
		tableRule(&sb, "=")
		return sb.String()
	}

	fmt.Fprintf(&sb, "%-6s %-40s %-12s %s\n", "INDEX", "NAME", "MEMORY", "DRIVER")
	tableRule(&sb, "-")

	for _, g := range gpus {
		fmt.Fprintf(&sb, "%-6d %-40s %-12s %s\n",
			g.Index,
			truncate(g.Name, 40),
			formatBytes(g.MemoryTotalMB*1024*1024),
			g.DriverVersion,
		)
	}

	tableRule(&sb, "=")

	return sb.String()
}

// formatBytes converts a byte count to a human-readable string.
func formatBytes(n uint64) string {
	const unit = 1024.0

	v := float64(n)
	for _, suffix := range []string{"B", "KB", "MB", "GB", "TB", "PB"} {
		if v < unit {
			if suffix == "B" {
				return fmt.Sprintf("%d %s", n, suffix)
			}
			return fmt.Sprintf("%.1f %s", v, suffix)
		}
		v /= unit
	}

	return fmt.Sprintf("%.1f EB", v)
}

// truncate shortens s to at most maxLen characters, marking the cut
// with an ellipsis.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
