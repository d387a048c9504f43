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

// Package export writes snapshot streams to durable formats: a buffered
// CSV time series and one-shot JSON reports.
package export

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Tyler1201623/Hardware-Analyzer-Pro/internal/config"
	"github.com/Tyler1201623/Hardware-Analyzer-Pro/pkg/metrics"
)

const naString = "N/A"

// csvColumn identifies one data column: a field of one domain.
type csvColumn struct {
	domain metrics.Domain
	field  string
}

// CSVExporter exports snapshots to a CSV file with buffering.
//
// The column set is fixed by the first snapshot received: one column per
// domain field, in domain order then sorted field order. Fields that
// appear later are not added; fields missing from a later snapshot are
// written as N/A.
type CSVExporter struct {
	config        *config.Config
	file          *os.File
	csvWriter     *csv.Writer
	bufWriter     *bufio.Writer
	snapshots     <-chan *metrics.Snapshot
	flushTicker   *time.Ticker
	recordCount   int
	logger        *slog.Logger
	headerWritten bool
	columns       []csvColumn
	location      *time.Location // Timezone location for timestamps
	currentSize   int64          // Current file size in bytes
	basePath      string         // Base output path
	fileIndex     int            // Index for file rotation
}

// NewCSVExporter creates a new CSV exporter draining the given snapshot
// channel, typically a publisher subscription.
func NewCSVExporter(cfg *config.Config, snapshots <-chan *metrics.Snapshot, logger *slog.Logger) (*CSVExporter, error) {
	// Parse timezone; an unset timezone means local time.
	tz := cfg.Timezone
	if tz == "" {
		tz = "Local"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone '%s': %w", cfg.Timezone, err)
	}

	// Open output file
	file, err := os.OpenFile(cfg.OutputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open output file: %w", err)
	}

	// Create buffered writer
	bufWriter := bufio.NewWriterSize(file, 8192) // 8KB buffer

	// Create CSV writer on top of buffered writer
	csvWriter := csv.NewWriter(bufWriter)

	// Get initial file size (if appending)
	stat, err := file.Stat()
	if err != nil {
		file.Close() // Close if stat fails
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	exporter := &CSVExporter{
		config:      cfg,
		file:        file,
		csvWriter:   csvWriter,
		bufWriter:   bufWriter,
		snapshots:   snapshots,
		logger:      logger,
		location:    loc,
		currentSize: stat.Size(),
		basePath:    cfg.OutputPath,
		fileIndex:   0,
	}

	return exporter, nil
}

// Start begins listening to the snapshot channel and writing to CSV.
func (e *CSVExporter) Start(ctx context.Context) error {
	e.logger.Info("Starting CSV exporter", "output", e.config.OutputPath, "timezone", e.config.Timezone)

	// Start flush ticker
	e.flushTicker = time.NewTicker(e.config.FlushInterval)
	defer e.flushTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("CSV exporter stopping...")
			return e.flush()

		case snapshot, ok := <-e.snapshots:
			if !ok {
				// Channel closed, flush and exit
				e.logger.Info("Snapshot channel closed, flushing remaining data...")
				return e.flush()
			}

			if err := e.writeSnapshot(snapshot); err != nil {
				e.logger.Error("Failed to write snapshot", "error", err)
			}

			e.recordCount++

			// Flush if buffer size reached
			if e.recordCount >= e.config.BufferSize {
				if err := e.flush(); err != nil {
					e.logger.Error("Failed to flush", "error", err)
				}
				e.recordCount = 0
			}

		case <-e.flushTicker.C:
			// Time-based flush
			if e.recordCount > 0 {
				if err := e.flush(); err != nil {
					e.logger.Error("Failed to flush", "error", err)
				}
				e.recordCount = 0
			}
		}
	}
}

// writeSnapshot writes a single snapshot to the CSV file.
func (e *CSVExporter) writeSnapshot(snapshot *metrics.Snapshot) error {
	// Write header if this is the first record
	if !e.headerWritten {
		if err := e.writeHeader(snapshot); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		e.headerWritten = true
	}

	// Build row
	row := e.buildRow(snapshot)

	// Check for rotation before writing to avoid going too far over the
	// size limit.
	if e.currentSize >= config.DefaultMaxOutputFileSize {
		if err := e.rotateFile(snapshot); err != nil {
			e.logger.Error("Failed to rotate file", "error", err)
			// Keep writing to the old file rather than losing data.
		}
	}

	// Write row
	rowBytes := 0
	for _, cell := range row {
		rowBytes += len(cell) + 1 // +1 for comma
	}
	rowBytes += 1 // +1 for newline approximation

	if err := e.csvWriter.Write(row); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}

	e.currentSize += int64(rowBytes) // Approximate size tracking
	return nil
}

// writeHeader writes the CSV header row and fixes the column set.
func (e *CSVExporter) writeHeader(snapshot *metrics.Snapshot) error {
	header := []string{"Timestamp"}

	e.columns = e.columns[:0]
	for _, domain := range snapshot.Domains {
		sample, ok := snapshot.Samples[domain]
		if !ok {
			continue
		}
		for _, key := range sample.Fields.Keys() {
			e.columns = append(e.columns, csvColumn{domain: domain, field: key})
			header = append(header, fmt.Sprintf("%s.%s", domain, key))
		}
	}

	return e.csvWriter.Write(header)
}

// buildRow builds a CSV row from a snapshot.
func (e *CSVExporter) buildRow(snapshot *metrics.Snapshot) []string {
	// Convert timestamp to configured timezone
	ts := snapshot.Timestamp.In(e.location)

	row := make([]string, 0, len(e.columns)+1)
	row = append(row, ts.Format("2006-01-02 15:04:05"))

	for _, col := range e.columns {
		sample, ok := snapshot.Samples[col.domain]
		if !ok {
			row = append(row, naString)
			continue
		}
		value, ok := sample.Fields[col.field]
		if !ok {
			row = append(row, naString)
			continue
		}
		row = append(row, value.String())
	}

	return row
}

// flush flushes the buffered data to disk.
func (e *CSVExporter) flush() error {
	e.csvWriter.Flush()
	if err := e.csvWriter.Error(); err != nil {
		return fmt.Errorf("CSV writer error: %w", err)
	}

	if err := e.bufWriter.Flush(); err != nil {
		return fmt.Errorf("buffer writer error: %w", err)
	}

	e.logger.Debug("Flushed to disk", "records", e.recordCount)
	return nil
}

// Close closes the CSV exporter and flushes remaining data.
func (e *CSVExporter) Close() error {
	e.logger.Info("Closing CSV exporter")

	if e.flushTicker != nil {
		e.flushTicker.Stop()
	}

	// Final flush
	if err := e.flush(); err != nil {
		e.logger.Error("Final flush failed", "error", err)
	}

	// Close file
	if err := e.file.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}

	e.logger.Info("CSV exporter closed")
	return nil
}

// rotateFile rotates the output file.
func (e *CSVExporter) rotateFile(snapshot *metrics.Snapshot) error {
	e.logger.Info("Rotating output file", "current_size", e.currentSize)

	// Flush and close current file
	if err := e.flush(); err != nil {
		return fmt.Errorf("flush before rotate failed: %w", err)
	}
	if err := e.file.Close(); err != nil {
		return fmt.Errorf("close before rotate failed: %w", err)
	}

	// Generate new filename with collision existence check
	ext := filepath.Ext(e.basePath)
	base := strings.TrimSuffix(e.basePath, ext)
	var newPath string

	for {
		e.fileIndex++
		newPath = fmt.Sprintf("%s_%d%s", base, e.fileIndex, ext)
		// Check if file exists to avoid overwriting previous run data or manual files
		if _, err := os.Stat(newPath); os.IsNotExist(err) {
			break
		}
		// If exists, loop will continue and increment index
	}

	// Open new file
	file, err := os.OpenFile(newPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open new rotated file: %w", err)
	}

	// Update exporter state
	e.file = file
	e.bufWriter = bufio.NewWriterSize(file, 8192)
	e.csvWriter = csv.NewWriter(e.bufWriter)
	e.currentSize = 0
	e.headerWritten = false

	// Write header to new file immediately
	if err := e.writeHeader(snapshot); err != nil {
		return fmt.Errorf("failed to write header to rotated file: %w", err)
	}
	e.headerWritten = true

	e.logger.Info("File rotated successfully", "new_path", newPath)
	return nil
}
