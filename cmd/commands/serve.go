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
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tyler1201623/Hardware-Analyzer-Pro/internal/broker"
	"github.com/Tyler1201623/Hardware-Analyzer-Pro/internal/config"
	"github.com/Tyler1201623/Hardware-Analyzer-Pro/internal/sampler"
	"github.com/Tyler1201623/Hardware-Analyzer-Pro/internal/server"
	"github.com/Tyler1201623/Hardware-Analyzer-Pro/internal/store"
	"github.com/Tyler1201623/Hardware-Analyzer-Pro/pkg/version"
)

var (
	// Serve command specific flags
	serveHost        string
	servePort        int
	serveResultsDir  string
	serveOpenBrowser bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the live monitoring dashboard",
	Long: `Start the polling engine together with the web dashboard. Snapshots are
streamed to the browser over WebSocket and served through a JSON API.

Features:
  • Live per-domain metric cards with status
  • Threshold alerts for CPU, memory, and disk usage
  • One-click JSON system reports
  • Fully embedded in the binary

Examples:
  # Start server on default port 8080
  hwpro serve

  # Expose on all interfaces
  hwpro serve --host 0.0.0.0 --port 3000`,

	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveHost, "host", config.DefaultHost, "HTTP server listen address")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", config.DefaultPort, "HTTP server port")
	serveCmd.Flags().StringVarP(&serveResultsDir, "results-dir", "d", "", "Directory to store generated reports (default: results)")
	serveCmd.Flags().BoolVar(&serveOpenBrowser, "open-browser", false, "Open browser automatically after server starts")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host = serveHost
	}
	if flags.Changed("port") {
		cfg.Port = servePort
	}
	if flags.Changed("results-dir") {
		cfg.ResultsDir = serveResultsDir
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := InitLogger(cfg.LogLevel, cfg.LogFile)

	logger.Info("Starting Hardware Analyzer Pro Dashboard",
		"version", version.Info(),
		"listen", cfg.ListenAddr(),
	)

	st := store.New(cfg.HistorySize)
	pub := broker.NewPublisher(logger)

	smp, err := sampler.New(cfg, sampler.DefaultRegistrations(cfg), st, pub, logger)
	if err != nil {
		return fmt.Errorf("failed to create sampler: %w", err)
	}

	srv, err := server.NewServer(cfg, st, pub, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer srv.Close()

	httpServer := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("Received signal, initiating shutdown", "signal", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	}()

	// Run the polling engine alongside the HTTP server.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := smp.Run(ctx); err != nil {
			logger.Error("Sampler stopped with error", "error", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", cfg.Port)
	if cfg.Host != "0.0.0.0" {
		serverURL = fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port)
	}

	fmt.Printf("\nHardware Analyzer Pro Dashboard is running!\n")
	fmt.Printf("URL: %s\n", serverURL)
	fmt.Printf("Reports: %s\n\n", srv.ResultsDir())

	if serveOpenBrowser {
		go openBrowserURL(serverURL)
	}

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		cancel()
		wg.Wait()
		pub.Close()
		return fmt.Errorf("server error: %w", err)
	}

	<-ctx.Done()
	wg.Wait()
	pub.Close()
	logger.Info("Server stopped")
	return nil
}

func openBrowserURL(url string) {
	time.Sleep(500 * time.Millisecond)
	var cmd *exec.Cmd
	switch {
	case fileExists("C:\\Windows\\System32\\rundll32.exe"):
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case fileExists("/usr/bin/xdg-open"):
		cmd = exec.Command("xdg-open", url)
	case fileExists("/usr/bin/open"):
		cmd = exec.Command("open", url)
	default:
		return
	}
	if err := cmd.Start(); err != nil {
		// Ignore errors, browser opening is optional.
		// Just print to stderr for debugging if needed.
		fmt.Fprintf(os.Stderr, "Failed to open browser: %v\n", err)
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
