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
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/Tyler1201623/Hardware-Analyzer-Pro/pkg/metrics"
)

// Injection points for tests.
var (
	gpuLookPath = exec.LookPath
	gpuRun      = func(ctx context.Context, path string, args ...string) ([]byte, error) {
		return exec.CommandContext(ctx, path, args...).Output()
	}
)

// gpuQueryColumns lists the columns requested from nvidia-smi, in output order.
const gpuQueryColumns = "name,driver_version,utilization.gpu,memory.total,memory.used,temperature.gpu"

// GPUAdapter reads NVIDIA GPU metrics through the nvidia-smi tool.
//
// The tool's presence is probed once and remembered. A machine without
// NVIDIA tooling reports empty fields, the normal "no GPU here" shape,
// rather than an error on every round.
type GPUAdapter struct {
	probe    sync.Once
	smiPath  string
	probeErr error
}

// NewGPUAdapter creates a new GPU adapter instance.
func NewGPUAdapter() *GPUAdapter {
	return &GPUAdapter{}
}

// Domain identifies the subsystem this adapter reads.
func (g *GPUAdapter) Domain() metrics.Domain {
	return metrics.DomainGPU
}

// Poll queries nvidia-smi for utilization, memory and temperature of
// every installed GPU.
func (g *GPUAdapter) Poll(ctx context.Context) (metrics.Fields, error) {
	g.probe.Do(func() {
		g.smiPath, g.probeErr = gpuLookPath("nvidia-smi")
	})
	if g.probeErr != nil {
		return metrics.Fields{}, nil
	}

	out, err := gpuRun(ctx, g.smiPath,
		"--query-gpu="+gpuQueryColumns,
		"--format=csv,noheader,nounits")
	if err != nil {
		return nil, fmt.Errorf("nvidia-smi query failed: %w", err)
	}

	return g.parseQueryOutput(string(out))
}

// parseQueryOutput converts nvidia-smi CSV lines into metric fields,
// one block of fields per GPU index.
func (g *GPUAdapter) parseQueryOutput(out string) (metrics.Fields, error) {
	fields := make(metrics.Fields)
	var errs []error
	index := 0

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		cols := strings.Split(line, ",")
		if len(cols) != 6 {
			errs = append(errs, fmt.Errorf("malformed nvidia-smi line %q", line))
			continue
		}
		for i := range cols {
			cols[i] = strings.TrimSpace(cols[i])
		}

		prefix := strconv.Itoa(index) + "."
		fields[prefix+"name"] = metrics.Str(cols[0])
		if index == 0 {
			fields["driver_version"] = metrics.Str(cols[1])
		}
		setGPUNumber(fields, prefix+"utilization_percent", cols[2])
		setGPUNumber(fields, prefix+"memory_total_mb", cols[3])
		setGPUNumber(fields, prefix+"memory_used_mb", cols[4])
		setGPUNumber(fields, prefix+"temperature_c", cols[5])
		index++
	}

	fields["count"] = metrics.Num(float64(index))

	if len(errs) > 0 {
		if index == 0 {
			return nil, errors.Join(errs...)
		}
		return fields, errors.Join(errs...)
	}
	return fields, nil
}

// setGPUNumber parses one numeric column. nvidia-smi reports "[N/A]" for
// values a given model does not expose; those fields are simply omitted.
func setGPUNumber(fields metrics.Fields, name, raw string) {
	if strings.Contains(raw, "N/A") {
		return
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		fields[name] = metrics.Num(v)
	}
}
