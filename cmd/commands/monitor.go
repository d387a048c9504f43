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
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tyler1201623/Hardware-Analyzer-Pro/internal/broker"
	"github.com/Tyler1201623/Hardware-Analyzer-Pro/internal/config"
	"github.com/Tyler1201623/Hardware-Analyzer-Pro/internal/export"
	"github.com/Tyler1201623/Hardware-Analyzer-Pro/internal/sampler"
	"github.com/Tyler1201623/Hardware-Analyzer-Pro/internal/store"
	"github.com/Tyler1201623/Hardware-Analyzer-Pro/pkg/metrics"
	"github.com/Tyler1201623/Hardware-Analyzer-Pro/pkg/version"
)

var (
	// Monitor command specific flags
	pollInterval    time.Duration
	roundTimeout    time.Duration
	adapterTimeout  time.Duration
	historySize     int
	outputPath      string
	bufferSize      int
	flushInterval   time.Duration
	includeDisks    string
	excludeDisks    string
	includeNetworks string
	excludeNetworks string
	finalReport     bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Start continuous hardware monitoring with CSV export",
	Long: `Start polling hardware metrics (CPU, RAM, Storage, GPU, Network) on a
fixed cadence and append every snapshot to a CSV time series.

Examples:
  # Run in foreground with default settings
  hwpro monitor

  # Custom cadence and filters
  hwpro monitor --interval 2s --include-disks "sda,sdb"`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)

	// Define flags specifically for monitor command
	monitorCmd.Flags().DurationVar(&pollInterval, "interval", config.DefaultPollInterval,
		"Polling interval (e.g., 1s, 30s, 1m)")
	monitorCmd.Flags().DurationVar(&roundTimeout, "round-timeout", config.DefaultRoundTimeout,
		"Deadline for one complete polling round")
	monitorCmd.Flags().DurationVar(&adapterTimeout, "adapter-timeout", config.DefaultAdapterTimeout,
		"Deadline for a single hardware probe")
	monitorCmd.Flags().IntVar(&historySize, "history-size", config.DefaultHistorySize,
		"Samples retained in memory per domain")
	monitorCmd.Flags().StringVarP(&outputPath, "output", "o", "",
		"Output CSV file path (default: <hostname>_<timestamp>.csv)")
	monitorCmd.Flags().IntVar(&bufferSize, "buffer-size", config.DefaultBufferSize,
		"Buffer size for CSV writer")
	monitorCmd.Flags().DurationVar(&flushInterval, "flush-interval", config.DefaultFlushInterval,
		"Flush interval for CSV writer")

	// Filter flags
	monitorCmd.Flags().StringVar(&includeDisks, "include-disks", "",
		"Comma-separated list of disk devices to monitor (empty = all)")
	monitorCmd.Flags().StringVar(&excludeDisks, "exclude-disks", "",
		"Comma-separated list of disk devices to exclude")
	monitorCmd.Flags().StringVar(&includeNetworks, "include-networks", "",
		"Comma-separated list of network interfaces to monitor (empty = all)")
	monitorCmd.Flags().StringVar(&excludeNetworks, "exclude-networks", "",
		"Comma-separated list of network interfaces to exclude")

	monitorCmd.Flags().BoolVar(&finalReport, "final-report", false,
		"Write a JSON report of the last snapshot and history on exit")
}

// buildMonitorConfig layers the monitor flags on top of the loaded
// configuration and validates the result.
func buildMonitorConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("interval") {
		cfg.PollInterval = pollInterval
	}
	if flags.Changed("round-timeout") {
		cfg.RoundTimeout = roundTimeout
	}
	if flags.Changed("adapter-timeout") {
		cfg.AdapterTimeout = adapterTimeout
	}
	if flags.Changed("history-size") {
		cfg.HistorySize = historySize
	}
	if flags.Changed("output") {
		cfg.OutputPath = outputPath
	}
	if flags.Changed("buffer-size") {
		cfg.BufferSize = bufferSize
	}
	if flags.Changed("flush-interval") {
		cfg.FlushInterval = flushInterval
	}
	if flags.Changed("include-disks") {
		cfg.IncludeDisks = config.ParseCommaSeparated(includeDisks)
	}
	if flags.Changed("exclude-disks") {
		cfg.ExcludeDisks = config.ParseCommaSeparated(excludeDisks)
	}
	if flags.Changed("include-networks") {
		cfg.IncludeNetworks = config.ParseCommaSeparated(includeNetworks)
	}
	if flags.Changed("exclude-networks") {
		cfg.ExcludeNetworks = config.ParseCommaSeparated(excludeNetworks)
	}

	// Monitoring always exports CSV
	if cfg.OutputPath == "" {
		cfg.OutputPath = config.GetDefaultOutputPath()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// runMonitor is the main monitoring entry point.
func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := buildMonitorConfig(cmd)
	if err != nil {
		return err
	}

	logger := InitLogger(cfg.LogLevel, cfg.LogFile)

	logger.Info("Starting Hardware Analyzer Pro",
		"version", version.Info(),
		"os", runtime.GOOS,
		"arch", runtime.GOARCH,
	)
	logger.Info("Configuration loaded", "config", cfg.String())

	// Check platform capabilities
	checkPlatformCapabilities(logger)

	st := store.New(cfg.HistorySize)
	pub := broker.NewPublisher(logger)

	smp, err := sampler.New(cfg, sampler.DefaultRegistrations(cfg), st, pub, logger)
	if err != nil {
		logger.Error("Failed to create sampler", "error", err)
		return err
	}

	// The CSV exporter consumes its own subscription so a slow disk
	// never stalls the polling loop.
	sub := pub.Subscribe(cfg.BufferSize)
	csvExporter, err := export.NewCSVExporter(cfg, sub.C, logger)
	if err != nil {
		logger.Error("Failed to create CSV exporter", "error", err)
		return err
	}
	defer func() {
		if err := csvExporter.Close(); err != nil {
			logger.Error("Failed to close exporter", "error", err)
		}
	}()

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("Received signal, initiating shutdown", "signal", sig)
		cancel()
	}()

	// Delta metrics (utilization, IO and network rates) need a previous
	// reading. One discarded warmup round primes the counters so the
	// CSV column set is complete from the first exported row.
	if _, err := smp.PollOnce(ctx); err != nil {
		logger.Warn("Warmup round failed", "error", err)
	}
	select {
	case <-time.After(time.Second):
	case <-ctx.Done():
		return nil
	}

	logger.Info("Hardware Analyzer Pro is running", "output", cfg.OutputPath)

	// Use WaitGroup to track exporter goroutine
	var wg sync.WaitGroup

	// Start exporter goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := csvExporter.Start(ctx); err != nil {
			logger.Error("Exporter stopped with error", "error", err)
		}
	}()

	// Start sampler (blocking until context is cancelled)
	if err := smp.Run(ctx); err != nil {
		logger.Error("Sampler stopped with error", "error", err)
	}

	logger.Info("Shutting down...")

	// Closing the publisher ends the exporter's subscription once the
	// queued snapshots are drained.
	pub.Close()
	wg.Wait()

	if finalReport {
		writeFinalReport(cfg, st, logger)
	}

	logger.Info("Shutdown complete")

	return nil
}

// writeFinalReport writes a JSON report of the last snapshot plus the
// retained history. The run context is already cancelled at this point,
// so host details are looked up on a fresh one.
func writeFinalReport(cfg *config.Config, st *store.Store, logger *slog.Logger) {
	snap := st.Latest()
	if snap == nil {
		logger.Warn("No snapshot collected, skipping final report")
		return
	}

	report := export.NewReport(context.Background(), snap)
	report.History = make(map[metrics.Domain][]metrics.Sample, len(snap.Domains))
	for _, d := range snap.Domains {
		if samples := st.History(d); len(samples) > 0 {
			report.History[d] = samples
		}
	}

	path, err := export.WriteReport(cfg.ResultsDir, report)
	if err != nil {
		logger.Error("Failed to write final report", "error", err)
		return
	}
	logger.Info("Final report written", "path", path)
}

// checkPlatformCapabilities logs platform-specific capability warnings.
func checkPlatformCapabilities(logger *slog.Logger) {
	switch runtime.GOOS {
	case osWindows:
		logger.Warn("Running on Windows: CPU iowait metric is not available")
		logger.Info("Running on Windows: GPU metrics require nvidia-smi on PATH")
	case osDarwin:
		logger.Info("Running on macOS: CPU iowait may have limited accuracy")
		logger.Info("Running on macOS: Disk metrics may require Full Disk Access or sudo")
		logger.Warn("Running on macOS: NVIDIA GPU metrics are not available")
	case osLinux:
		logger.Info("Running on Linux: All metrics available (GPU requires nvidia-smi)")
	default:
		logger.Warn("Running on unsupported platform, some metrics may not work", "os", runtime.GOOS)
	}
}
