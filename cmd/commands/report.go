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

package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tyler1201623/Hardware-Analyzer-Pro/internal/broker"
	"github.com/Tyler1201623/Hardware-Analyzer-Pro/internal/export"
	"github.com/Tyler1201623/Hardware-Analyzer-Pro/internal/sampler"
	"github.com/Tyler1201623/Hardware-Analyzer-Pro/internal/store"
)

var (
	// Report command specific flags
	reportResultsDir string
	reportDelay      time.Duration
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a one-shot JSON system report",
	Long: `Poll every hardware domain twice, a short delay apart, and write the
measurements to a timestamped JSON report. The delay gives rate metrics
(CPU utilization, disk and network throughput) a measurement window.

Examples:
  # Write a report into ./results
  hwpro report

  # Longer measurement window and custom directory
  hwpro report --delay 5s --results-dir /var/log/hwpro`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVarP(&reportResultsDir, "results-dir", "d", "", "Directory to store the report (default: results)")
	reportCmd.Flags().DurationVar(&reportDelay, "delay", time.Second, "Measurement window between the two polls")
}

func runReport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("results-dir") {
		cfg.ResultsDir = reportResultsDir
	}
	if reportDelay < 0 {
		return fmt.Errorf("delay must not be negative")
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := InitLogger(cfg.LogLevel, cfg.LogFile)

	st := store.New(cfg.HistorySize)
	pub := broker.NewPublisher(logger)
	defer pub.Close()

	smp, err := sampler.New(cfg, sampler.DefaultRegistrations(cfg), st, pub, logger)
	if err != nil {
		return fmt.Errorf("failed to create sampler: %w", err)
	}

	ctx := context.Background()

	// First poll primes the counters; the second one carries the rates.
	if _, err := smp.PollOnce(ctx); err != nil {
		logger.Warn("Warmup round failed", "error", err)
	}
	time.Sleep(reportDelay)

	snap, err := smp.PollOnce(ctx)
	if err != nil {
		return fmt.Errorf("failed to collect metrics: %w", err)
	}

	report := export.NewReport(ctx, snap)
	path, err := export.WriteReport(cfg.ResultsDir, report)
	if err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	fmt.Println("\n========================================")
	fmt.Println("   Hardware Analyzer Pro - Report")
	fmt.Println("========================================")
	fmt.Printf("\nHost:    %s (%s %s)\n", report.Hostname, report.OS, report.PlatformVersion)
	for _, d := range snap.Domains {
		sample, ok := snap.Sample(d)
		if !ok {
			continue
		}
		line := fmt.Sprintf("%-8s %s", d, sample.Status)
		if sample.Err != "" {
			line += " (" + sample.Err + ")"
		}
		fmt.Println(line)
	}

	if len(report.Alerts) > 0 {
		fmt.Println("\nAlerts:")
		for _, alert := range report.Alerts {
			fmt.Printf("  [%s] %s\n", alert.Severity, alert.Message)
		}
	}

	fmt.Printf("\nReport written: %s\n\n", path)
	return nil
}
