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
	"strings"
)

// Severity grades how urgent an alert is.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert flags one metric field that crossed a threshold.
type Alert struct {
	Domain   Domain   `json:"domain"`
	Field    string   `json:"field"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Resource usage thresholds, in percent.
const (
	cpuWarning     = 80.0
	cpuCritical    = 90.0
	cpuTempWarning = 80.0 // Degrees Celsius
	ramWarning     = 80.0
	ramCritical    = 90.0
	swapWarning    = 50.0
	diskWarning    = 80.0
	diskCritical   = 90.0
)

// EvaluateAlerts inspects a snapshot and returns threshold alerts for it.
// Failed samples and missing fields produce no alerts; only values that
// were actually collected are judged.
func EvaluateAlerts(snap *Snapshot) []Alert {
	if snap == nil {
		return nil
	}

	var alerts []Alert

	if v, ok := snap.Field(DomainCPU, "utilization_percent"); ok {
		alerts = appendUsageAlert(alerts, DomainCPU, "utilization_percent", v.Float(), cpuWarning, cpuCritical, "CPU usage")
	}
	if v, ok := snap.Field(DomainCPU, "temperature_c"); ok && v.Float() >= cpuTempWarning {
		alerts = append(alerts, Alert{
			Domain:   DomainCPU,
			Field:    "temperature_c",
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("CPU temperature at %.1f°C", v.Float()),
		})
	}

	if v, ok := snap.Field(DomainRAM, "percent"); ok {
		alerts = appendUsageAlert(alerts, DomainRAM, "percent", v.Float(), ramWarning, ramCritical, "Memory usage")
	}
	if v, ok := snap.Field(DomainRAM, "swap_percent"); ok && v.Float() >= swapWarning {
		alerts = append(alerts, Alert{
			Domain:   DomainRAM,
			Field:    "swap_percent",
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("Swap usage at %.1f%%", v.Float()),
		})
	}

	if sm, ok := snap.Sample(DomainStorage); ok {
		for _, name := range sm.Fields.Keys() {
			if !strings.HasSuffix(name, ".used_percent") {
				continue
			}
			device := strings.TrimSuffix(name, ".used_percent")
			label := fmt.Sprintf("Disk %s usage", device)
			alerts = appendUsageAlert(alerts, DomainStorage, name, sm.Fields[name].Float(), diskWarning, diskCritical, label)
		}
	}

	return alerts
}

func appendUsageAlert(alerts []Alert, d Domain, field string, value, warning, critical float64, label string) []Alert {
	switch {
	case value >= critical:
		return append(alerts, Alert{
			Domain:   d,
			Field:    field,
			Severity: SeverityCritical,
			Message:  fmt.Sprintf("%s at %.1f%%", label, value),
		})
	case value >= warning:
		return append(alerts, Alert{
			Domain:   d,
			Field:    field,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("%s at %.1f%%", label, value),
		})
	}
	return alerts
}
