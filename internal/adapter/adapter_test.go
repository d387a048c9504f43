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
	"strings"
	"testing"
	"time"

	"github.com/Tyler1201623/Hardware-Analyzer-Pro/pkg/metrics"
)

func TestCPUAdapter(t *testing.T) {
	a := NewCPUAdapter()
	ctx := context.Background()

	if a.Domain() != metrics.DomainCPU {
		t.Errorf("Domain() = %v, want %v", a.Domain(), metrics.DomainCPU)
	}

	// First poll (baseline): no utilization yet
	fields, err := a.Poll(ctx)
	if err != nil {
		t.Logf("first Poll() partial error = %v", err)
	}
	if _, ok := fields["utilization_percent"]; ok {
		t.Error("first Poll() reported utilization before a baseline existed")
	}

	// Sleep to allow some CPU time change
	time.Sleep(100 * time.Millisecond)

	fields, err = a.Poll(ctx)
	if err != nil {
		t.Logf("second Poll() partial error = %v", err)
	}

	util, ok := fields["utilization_percent"]
	if !ok {
		t.Fatal("second Poll() missing utilization_percent")
	}
	if util.Float() < 0 || util.Float() > 100 {
		t.Errorf("CPU utilization = %v, want [0, 100]", util.Float())
	}

	// IOWait is only present when the platform supports it
	if iowait, ok := fields["iowait_percent"]; ok {
		if iowait.Float() < 0 || iowait.Float() > 100 {
			t.Errorf("CPU iowait = %v, want [0, 100]", iowait.Float())
		}
	}
}

func TestRAMAdapter(t *testing.T) {
	a := NewRAMAdapter()

	if a.Domain() != metrics.DomainRAM {
		t.Errorf("Domain() = %v, want %v", a.Domain(), metrics.DomainRAM)
	}

	fields, err := a.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll() error = %v", err)
	}

	percent := fields["percent"].Float()
	if percent < 0 || percent > 100 {
		t.Errorf("Memory percent = %v, want [0, 100]", percent)
	}
	if fields["total_bytes"].Float() <= 0 {
		t.Errorf("total_bytes = %v, want > 0", fields["total_bytes"].Float())
	}
}

func TestStorageAdapter(t *testing.T) {
	a := NewStorageAdapter(nil, nil)

	if a.Domain() != metrics.DomainStorage {
		t.Errorf("Domain() = %v, want %v", a.Domain(), metrics.DomainStorage)
	}

	ctx := context.Background()

	// First poll records the I/O baseline; usage fields are already present
	fields, err := a.Poll(ctx)
	if err != nil {
		t.Logf("first Poll() partial error = %v", err)
	}
	if _, ok := fields["count"]; !ok {
		t.Fatal("Poll() missing count field")
	}

	time.Sleep(100 * time.Millisecond)

	fields, err = a.Poll(ctx)
	if err != nil {
		t.Logf("second Poll() partial error = %v", err)
	}

	for _, name := range fields.Keys() {
		if strings.HasSuffix(name, ".used_percent") {
			if v := fields[name].Float(); v < 0 || v > 100 {
				t.Errorf("%s = %v, want [0, 100]", name, v)
			}
		}
		if strings.HasSuffix(name, ".iops") {
			if v := fields[name].Float(); v < 0 {
				t.Errorf("%s = %v, want >= 0", name, v)
			}
		}
	}
}

func TestNetworkAdapter(t *testing.T) {
	a := NewNetworkAdapter(nil, nil)

	if a.Domain() != metrics.DomainNetwork {
		t.Errorf("Domain() = %v, want %v", a.Domain(), metrics.DomainNetwork)
	}

	ctx := context.Background()

	// First poll records the baseline: link state only, no rates
	fields, err := a.Poll(ctx)
	if err != nil {
		t.Fatalf("first Poll() error = %v", err)
	}
	for _, name := range fields.Keys() {
		if strings.HasSuffix(name, "_per_sec") {
			t.Errorf("first Poll() reported rate field %s before a baseline existed", name)
		}
	}

	time.Sleep(100 * time.Millisecond)

	fields, err = a.Poll(ctx)
	if err != nil {
		t.Fatalf("second Poll() error = %v", err)
	}

	// Rates might be absent if the host has no non-loopback interfaces,
	// but any reported rate must be non-negative.
	for _, name := range fields.Keys() {
		if strings.HasSuffix(name, "_per_sec") {
			if v := fields[name].Float(); v < 0 {
				t.Errorf("%s = %v, want >= 0", name, v)
			}
		}
	}
}

func TestStorageAdapter_ShouldMonitor(t *testing.T) {
	tests := []struct {
		name    string
		include []string
		exclude []string
		device  string
		want    bool
	}{
		{
			name:    "Default (Monitor All)",
			include: nil,
			exclude: nil,
			device:  "sda",
			want:    true,
		},
		{
			name:    "Exclude Specific",
			include: nil,
			exclude: []string{"sda"},
			device:  "sda",
			want:    false,
		},
		{
			name:    "Exclude With /dev/ Prefix",
			include: nil,
			exclude: []string{"/dev/sda"},
			device:  "sda",
			want:    false,
		},
		{
			name:    "Include Specific (Match)",
			include: []string{"sda"},
			exclude: nil,
			device:  "sda",
			want:    true,
		},
		{
			name:    "Include Specific (No Match)",
			include: []string{"sda"},
			exclude: nil,
			device:  "sdb",
			want:    false,
		},
		{
			name:    "Exclude Overrides Include",
			include: []string{"sda"},
			exclude: []string{"sda"},
			device:  "sda",
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewStorageAdapter(tt.include, tt.exclude)
			if got := a.shouldMonitor(tt.device); got != tt.want {
				t.Errorf("shouldMonitor(%q) = %v, want %v", tt.device, got, tt.want)
			}
		})
	}
}

func TestNetworkAdapter_ShouldMonitor(t *testing.T) {
	tests := []struct {
		name    string
		include []string
		exclude []string
		iface   string
		want    bool
	}{
		{"Default", nil, nil, "eth0", true},
		{"Exclude", nil, []string{"eth0"}, "eth0", false},
		{"Include Match", []string{"eth0"}, nil, "eth0", true},
		{"Include No Match", []string{"eth0"}, nil, "eth1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewNetworkAdapter(tt.include, tt.exclude)
			if got := a.shouldMonitor(tt.iface); got != tt.want {
				t.Errorf("shouldMonitor(%q) = %v, want %v", tt.iface, got, tt.want)
			}
		})
	}
}

func TestGPUAdapter_ToolMissing(t *testing.T) {
	origLook := gpuLookPath
	defer func() { gpuLookPath = origLook }()

	gpuLookPath = func(string) (string, error) {
		return "", errors.New("executable file not found in $PATH")
	}

	a := NewGPUAdapter()
	fields, err := a.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll() error = %v, want nil for missing tool", err)
	}
	if len(fields) != 0 {
		t.Errorf("Poll() fields = %v, want empty for missing tool", fields)
	}
}

func TestGPUAdapter_Query(t *testing.T) {
	origLook, origRun := gpuLookPath, gpuRun
	defer func() { gpuLookPath, gpuRun = origLook, origRun }()

	gpuLookPath = func(string) (string, error) { return "/usr/bin/nvidia-smi", nil }
	gpuRun = func(ctx context.Context, path string, args ...string) ([]byte, error) {
		out := "NVIDIA GeForce RTX 3080, 535.54.03, 32, 10240, 3517, 58\n" +
			"NVIDIA GeForce GTX 1660, 535.54.03, 5, 6144, 402, [N/A]\n"
		return []byte(out), nil
	}

	a := NewGPUAdapter()
	fields, err := a.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll() error = %v", err)
	}

	if got := fields["count"].Float(); got != 2 {
		t.Errorf("count = %v, want 2", got)
	}
	if got := fields["driver_version"].Text(); got != "535.54.03" {
		t.Errorf("driver_version = %q, want %q", got, "535.54.03")
	}
	if got := fields["0.name"].Text(); got != "NVIDIA GeForce RTX 3080" {
		t.Errorf("0.name = %q, want %q", got, "NVIDIA GeForce RTX 3080")
	}
	if got := fields["0.utilization_percent"].Float(); got != 32 {
		t.Errorf("0.utilization_percent = %v, want 32", got)
	}
	if got := fields["1.memory_used_mb"].Float(); got != 402 {
		t.Errorf("1.memory_used_mb = %v, want 402", got)
	}
	// The second GPU does not expose a temperature sensor
	if _, ok := fields["1.temperature_c"]; ok {
		t.Error("1.temperature_c present, want omitted for [N/A]")
	}
}

func TestGPUAdapter_QueryFailure(t *testing.T) {
	origLook, origRun := gpuLookPath, gpuRun
	defer func() { gpuLookPath, gpuRun = origLook, origRun }()

	gpuLookPath = func(string) (string, error) { return "/usr/bin/nvidia-smi", nil }
	gpuRun = func(ctx context.Context, path string, args ...string) ([]byte, error) {
		return nil, errors.New("exit status 9")
	}

	a := NewGPUAdapter()
	fields, err := a.Poll(context.Background())
	if err == nil {
		t.Fatal("Poll() error = nil, want failure")
	}
	if fields != nil {
		t.Errorf("Poll() fields = %v, want nil on failure", fields)
	}
}

func TestGPUAdapter_MalformedOutput(t *testing.T) {
	origLook, origRun := gpuLookPath, gpuRun
	defer func() { gpuLookPath, gpuRun = origLook, origRun }()

	gpuLookPath = func(string) (string, error) { return "/usr/bin/nvidia-smi", nil }
	gpuRun = func(ctx context.Context, path string, args ...string) ([]byte, error) {
		out := "NVIDIA GeForce RTX 3080, 535.54.03, 32, 10240, 3517, 58\n" +
			"garbage line without columns\n"
		return []byte(out), nil
	}

	a := NewGPUAdapter()
	fields, err := a.Poll(context.Background())
	if err == nil {
		t.Fatal("Poll() error = nil, want partial failure")
	}
	if got := fields["count"].Float(); got != 1 {
		t.Errorf("count = %v, want 1 parsed GPU alongside the error", got)
	}
}

func TestNormalizeDeviceName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"/dev/sda", "sda"},
		{"sda", "sda"},
		{"/dev/nvme0n1p2", "nvme0n1p2"},
		{"C:", "C:"},
	}

	for _, tt := range tests {
		if got := normalizeDeviceName(tt.input); got != tt.want {
			t.Errorf("normalizeDeviceName(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
