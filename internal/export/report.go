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

package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/host"

	"github.com/Tyler1201623/Hardware-Analyzer-Pro/pkg/metrics"
	"github.com/Tyler1201623/Hardware-Analyzer-Pro/pkg/version"
)

// Function variable for dependency injection in tests.
var hostInfo = host.InfoWithContext

// Report is the JSON document produced by the report command and the
// report API endpoint: one snapshot plus host details and the alerts it
// raised. History is filled only by callers that hold a snapshot store.
type Report struct {
	GeneratedAt     time.Time                           `json:"generated_at"`
	AppVersion      string                              `json:"app_version"`
	Hostname        string                              `json:"hostname"`
	OS              string                              `json:"os,omitempty"`
	Platform        string                              `json:"platform,omitempty"`
	PlatformVersion string                              `json:"platform_version,omitempty"`
	KernelVersion   string                              `json:"kernel_version,omitempty"`
	UptimeSeconds   uint64                              `json:"uptime_seconds,omitempty"`
	Snapshot        *metrics.Snapshot                   `json:"snapshot"`
	History         map[metrics.Domain][]metrics.Sample `json:"history,omitempty"`
	Alerts          []metrics.Alert                     `json:"alerts"`
}

// NewReport assembles a report around the given snapshot. Host details
// are best-effort: a failed host lookup leaves them empty.
func NewReport(ctx context.Context, snap *metrics.Snapshot) *Report {
	r := &Report{
		GeneratedAt: time.Now(),
		AppVersion:  version.Version,
		Snapshot:    snap,
		Alerts:      metrics.EvaluateAlerts(snap),
	}

	if info, err := hostInfo(ctx); err == nil {
		r.Hostname = info.Hostname
		r.OS = info.OS
		r.Platform = info.Platform
		r.PlatformVersion = info.PlatformVersion
		r.KernelVersion = info.KernelVersion
		r.UptimeSeconds = info.Uptime
	} else if name, herr := os.Hostname(); herr == nil {
		r.Hostname = name
	}

	return r
}

// WriteReport writes the report as indented JSON into dir, creating the
// directory if needed, and returns the path of the written file.
func WriteReport(dir string, report *Report) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create results directory: %w", err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	// Timestamp alone is not unique under rapid successive reports.
	filename := fmt.Sprintf("report_%s_%s.json",
		report.GeneratedAt.Format("20060102150405"), uuid.NewString()[:8])
	path := filepath.Join(dir, filename)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	return path, nil
}
