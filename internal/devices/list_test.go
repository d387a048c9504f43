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

package devices

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/net"
)

func TestListDisks(t *testing.T) {
	origPartitions := diskPartitions
	origUsage := diskUsage
	defer func() {
		diskPartitions = origPartitions
		diskUsage = origUsage
	}()

	tests := []struct {
		name           string
		mockPartitions func(context.Context, bool) ([]disk.PartitionStat, error)
		mockUsage      func(context.Context, string) (*disk.UsageStat, error)
		wantCount      int
		wantErr        bool
	}{
		{
			name: "Success",
			mockPartitions: func(context.Context, bool) ([]disk.PartitionStat, error) {
				return []disk.PartitionStat{
					{Device: "/dev/sda1", Mountpoint: "/", Fstype: "ext4"},
					{Device: "/dev/sdb1", Mountpoint: "/data", Fstype: "xfs"},
				}, nil
			},
			mockUsage: func(context.Context, string) (*disk.UsageStat, error) {
				return &disk.UsageStat{Total: 1000}, nil
			},
			wantCount: 2,
		},
		{
			name: "Partitions Error",
			mockPartitions: func(context.Context, bool) ([]disk.PartitionStat, error) {
				return nil, errors.New("partition table unreadable")
			},
			wantErr: true,
		},
		{
			name: "Usage Error Keeps Entry With Zero Total",
			mockPartitions: func(context.Context, bool) ([]disk.PartitionStat, error) {
				return []disk.PartitionStat{
					{Device: "/dev/sda1", Mountpoint: "/", Fstype: "ext4"},
				}, nil
			},
			mockUsage: func(context.Context, string) (*disk.UsageStat, error) {
				return nil, errors.New("permission denied")
			},
			wantCount: 1,
		},
		{
			name: "Multiple Mounts Collapse To One Device",
			mockPartitions: func(context.Context, bool) ([]disk.PartitionStat, error) {
				return []disk.PartitionStat{
					{Device: "/dev/sda1", Mountpoint: "/", Fstype: "ext4"},
					{Device: "/dev/sda1", Mountpoint: "/mnt", Fstype: "ext4"},
				}, nil
			},
			mockUsage: func(context.Context, string) (*disk.UsageStat, error) {
				return &disk.UsageStat{Total: 1000}, nil
			},
			wantCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diskPartitions = tt.mockPartitions
			diskUsage = tt.mockUsage

			got, err := ListDisks(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("ListDisks() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if len(got) != tt.wantCount {
				t.Errorf("ListDisks() count = %d, want %d", len(got), tt.wantCount)
			}
			if tt.name == "Usage Error Keeps Entry With Zero Total" && len(got) > 0 && got[0].Total != 0 {
				t.Errorf("Total = %d, want 0 when usage stat fails", got[0].Total)
			}
		})
	}
}

// The short Name is what filters and field prefixes use; the raw device
// path is preserved alongside it.
func TestListDisksNameNormalization(t *testing.T) {
	origPartitions := diskPartitions
	origUsage := diskUsage
	defer func() {
		diskPartitions = origPartitions
		diskUsage = origUsage
	}()

	diskPartitions = func(context.Context, bool) ([]disk.PartitionStat, error) {
		return []disk.PartitionStat{
			{Device: "/dev/sdb1", Mountpoint: "/data", Fstype: "xfs"},
			{Device: "/dev/sda1", Mountpoint: "/", Fstype: "ext4"},
		}, nil
	}
	diskUsage = func(context.Context, string) (*disk.UsageStat, error) {
		return &disk.UsageStat{Total: 4096}, nil
	}

	got, err := ListDisks(context.Background())
	if err != nil {
		t.Fatalf("ListDisks() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListDisks() count = %d, want 2", len(got))
	}

	// Sorted by short name.
	if got[0].Name != "sda1" || got[1].Name != "sdb1" {
		t.Errorf("names = %q, %q, want sda1, sdb1", got[0].Name, got[1].Name)
	}
	if got[0].Device != "/dev/sda1" {
		t.Errorf("Device = %q, want /dev/sda1", got[0].Device)
	}
}

func TestListNetworkInterfaces(t *testing.T) {
	origInterfaces := netInterfaces
	defer func() { netInterfaces = origInterfaces }()

	tests := []struct {
		name           string
		mockInterfaces func(context.Context) (net.InterfaceStatList, error)
		wantCount      int
		wantErr        bool
	}{
		{
			name: "Success",
			mockInterfaces: func(context.Context) (net.InterfaceStatList, error) {
				return net.InterfaceStatList{
					{Name: "eth0", Addrs: []net.InterfaceAddr{{Addr: "192.168.1.1"}}},
					{Name: "eth1", Addrs: []net.InterfaceAddr{{Addr: "10.0.0.1"}}},
				}, nil
			},
			wantCount: 2,
		},
		{
			name: "Error",
			mockInterfaces: func(context.Context) (net.InterfaceStatList, error) {
				return nil, errors.New("netlink failed")
			},
			wantErr: true,
		},
		{
			name: "Addressless Interfaces Skipped",
			mockInterfaces: func(context.Context) (net.InterfaceStatList, error) {
				return net.InterfaceStatList{
					{Name: "eth0", Addrs: nil},
					{Name: "eth1", Addrs: []net.InterfaceAddr{{Addr: "10.0.0.1"}}},
				}, nil
			},
			wantCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			netInterfaces = tt.mockInterfaces

			got, err := ListNetworkInterfaces(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("ListNetworkInterfaces() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if len(got) != tt.wantCount {
				t.Errorf("ListNetworkInterfaces() count = %d, want %d", len(got), tt.wantCount)
			}
		})
	}
}

func TestListGPUs(t *testing.T) {
	origLookPath := gpuLookPath
	origQuery := gpuQuery
	defer func() {
		gpuLookPath = origLookPath
		gpuQuery = origQuery
	}()

	t.Run("Tool Missing", func(t *testing.T) {
		gpuLookPath = func(string) (string, error) {
			return "", errors.New("executable file not found in $PATH")
		}

		got, err := ListGPUs(context.Background())
		if err != nil {
			t.Errorf("ListGPUs() error = %v, want nil when tool is absent", err)
		}
		if len(got) != 0 {
			t.Errorf("ListGPUs() count = %d, want 0", len(got))
		}
	})

	t.Run("Success", func(t *testing.T) {
		gpuLookPath = func(string) (string, error) { return "/usr/bin/nvidia-smi", nil }
		gpuQuery = func(context.Context, string, ...string) ([]byte, error) {
			return []byte("NVIDIA GeForce RTX 4090, 24564, 550.54.14\nNVIDIA RTX A6000, 49140, 550.54.14\n"), nil
		}

		got, err := ListGPUs(context.Background())
		if err != nil {
			t.Fatalf("ListGPUs() error = %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("ListGPUs() count = %d, want 2", len(got))
		}
		if got[0].Name != "NVIDIA GeForce RTX 4090" {
			t.Errorf("GPU 0 name = %q", got[0].Name)
		}
		if got[0].MemoryTotalMB != 24564 {
			t.Errorf("GPU 0 memory = %d, want 24564", got[0].MemoryTotalMB)
		}
		if got[1].Index != 1 {
			t.Errorf("GPU 1 index = %d, want 1", got[1].Index)
		}
		if got[1].DriverVersion != "550.54.14" {
			t.Errorf("GPU 1 driver = %q", got[1].DriverVersion)
		}
	})

	t.Run("Query Error", func(t *testing.T) {
		gpuLookPath = func(string) (string, error) { return "/usr/bin/nvidia-smi", nil }
		gpuQuery = func(context.Context, string, ...string) ([]byte, error) {
			return nil, errors.New("exit status 9")
		}

		if _, err := ListGPUs(context.Background()); err == nil {
			t.Error("ListGPUs() expected error, got nil")
		}
	})

	t.Run("Malformed Lines Skipped", func(t *testing.T) {
		gpuLookPath = func(string) (string, error) { return "/usr/bin/nvidia-smi", nil }
		gpuQuery = func(context.Context, string, ...string) ([]byte, error) {
			return []byte("garbage line\nNVIDIA T4, 15360, 535.104.05\n"), nil
		}

		got, err := ListGPUs(context.Background())
		if err != nil {
			t.Fatalf("ListGPUs() error = %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("ListGPUs() count = %d, want 1", len(got))
		}
		if got[0].Name != "NVIDIA T4" {
			t.Errorf("GPU 0 name = %q, want NVIDIA T4", got[0].Name)
		}
	})
}

func TestFormatDisksTable(t *testing.T) {
	disks := []DiskInfo{
		{
			Name:       "sda1",
			Device:     "/dev/sda1",
			Mountpoint: "/mnt/data",
			Filesystem: "ext4",
			Total:      1024 * 1024 * 1024 * 100, // 100 GB
		},
		{
			Name:       "sdb1",
			Device:     "/dev/sdb1",
			Mountpoint: "/very/long/path/name/that/exceeds/the/column",
			Filesystem: "ntfs",
			Total:      0,
		},
	}

	out := FormatDisksTable(disks)
	if !strings.Contains(out, "sda1") {
		t.Error("Missing short device name")
	}
	if !strings.Contains(out, "/dev/sda1") {
		t.Error("Missing raw device path")
	}
	if !strings.Contains(out, "100.0 GB") {
		t.Error("Missing size formatting")
	}
	if !strings.Contains(out, "...") {
		t.Error("Missing truncation of the long mountpoint")
	}
}

func TestFormatNetworksTable(t *testing.T) {
	networks := []NetworkInfo{
		{
			Name:       "eth0",
			MacAddress: "AA:BB:CC:DD:EE:FF",
			Addresses:  []string{"192.168.1.1", "fe80::1"},
		},
		{
			Name:       "lo",
			MacAddress: "",
			Addresses:  []string{},
		},
	}

	out := FormatNetworksTable(networks)
	if !strings.Contains(out, "eth0") {
		t.Error("Missing eth0")
	}
	if !strings.Contains(out, "AA:BB:CC:DD:EE:FF") {
		t.Error("Missing MAC")
	}
	if !strings.Contains(out, "192.168.1.1") {
		t.Error("Missing first address")
	}
	if !strings.Contains(out, "fe80::1") {
		t.Error("Missing continuation address")
	}
	if !strings.Contains(out, "N/A") {
		t.Error("Missing N/A for empty MAC")
	}
}

func TestFormatGPUsTable(t *testing.T) {
	out := FormatGPUsTable([]GPUInfo{
		{Index: 0, Name: "NVIDIA GeForce RTX 4090", MemoryTotalMB: 24564, DriverVersion: "550.54.14"},
	})
	if !strings.Contains(out, "RTX 4090") {
		t.Error("Missing GPU name")
	}
	if !strings.Contains(out, "550.54.14") {
		t.Error("Missing driver version")
	}

	empty := FormatGPUsTable(nil)
	if !strings.Contains(empty, "No NVIDIA GPUs") {
		t.Error("Missing empty-list message")
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		input uint64
		want  string
	}{
		{0, "0 B"},
		{100, "100 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1024 * 1024, "1.0 MB"},
		{1024 * 1024 * 1024 * 5, "5.0 GB"},
	}

	for _, tt := range tests {
		if got := formatBytes(tt.input); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input  string
		maxLen int
		want   string
	}{
		{"Short", 10, "Short"},
		{"ExactLength", 11, "ExactLength"},
		{"TooLongString", 10, "TooLong..."},
	}

	for _, tt := range tests {
		if got := truncate(tt.input, tt.maxLen); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
		}
	}
}
