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

// Package server exposes the live metrics API and the embedded dashboard.
package server

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/Tyler1201623/Hardware-Analyzer-Pro/internal/broker"
	"github.com/Tyler1201623/Hardware-Analyzer-Pro/internal/config"
	"github.com/Tyler1201623/Hardware-Analyzer-Pro/internal/devices"
	"github.com/Tyler1201623/Hardware-Analyzer-Pro/internal/export"
	"github.com/Tyler1201623/Hardware-Analyzer-Pro/internal/store"
	"github.com/Tyler1201623/Hardware-Analyzer-Pro/pkg/metrics"
	"github.com/Tyler1201623/Hardware-Analyzer-Pro/pkg/version"
	"github.com/Tyler1201623/Hardware-Analyzer-Pro/web"
)

// Device listing functions are swappable for tests.
var (
	listDisks    = devices.ListDisks
	listNetworks = devices.ListNetworkInterfaces
	listGPUs     = devices.ListGPUs
)

// Server serves live snapshots, history, and reports over HTTP, and
// streams published snapshots to WebSocket clients. The embedded
// lifecycle (http.Server, listen address, shutdown) belongs to the
// caller; Server is just an http.Handler.
type Server struct {
	store      *store.Store
	pub        *broker.Publisher
	logger     *slog.Logger
	router     *mux.Router
	limiter    *RateLimiter
	upgrader   websocket.Upgrader
	resultsDir string
}

// NewServer creates a web server on top of a snapshot store and
// publisher. The report output directory is created if missing.
func NewServer(cfg *config.Config, st *store.Store, pub *broker.Publisher, logger *slog.Logger) (*Server, error) {
	resultsDir, err := filepath.Abs(cfg.ResultsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve results directory: %w", err)
	}
	if err := os.MkdirAll(resultsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create results directory: %w", err)
	}

	s := &Server{
		store:      st,
		pub:        pub,
		logger:     logger,
		router:     mux.NewRouter(),
		limiter:    NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
		resultsDir: resultsDir,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	s.setupRoutes()

	return s, nil
}

func (s *Server) setupRoutes() {
	// Add CORS middleware
	s.router.Use(corsMiddleware)
	// Add logging middleware
	s.router.Use(s.loggingMiddleware)

	s.router.HandleFunc("/", s.handleIndex).Methods("GET")
	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/results/{name}", s.handleGetReportFile).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(s.limiter.Middleware)
	api.HandleFunc("/version", s.handleGetVersion).Methods("GET")
	api.HandleFunc("/snapshot", s.handleGetSnapshot).Methods("GET")
	api.HandleFunc("/snapshot/{domain}", s.handleGetDomainSample).Methods("GET")
	api.HandleFunc("/history/{domain}", s.handleGetHistory).Methods("GET")
	api.HandleFunc("/monitoring", s.handleGetMonitoring).Methods("GET")
	api.HandleFunc("/alerts", s.handleGetAlerts).Methods("GET")
	api.HandleFunc("/devices", s.handleGetDevices).Methods("GET")
	api.HandleFunc("/report", s.handleCreateReport).Methods("POST")

	// Static files from embedded FS
	staticFS, err := fs.Sub(web.Assets, "static")
	if err != nil {
		s.logger.Error("Failed to get static assets", "error", err)
	}
	s.router.PathPrefix("/static/").Handler(http.StripPrefix("/static/", s.staticFileHandler(staticFS)))
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

// staticFileHandler serves static files with caching disabled
func (s *Server) staticFileHandler(root fs.FS) http.Handler {
	fileServer := http.FileServer(http.FS(root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")
		fileServer.ServeHTTP(w, r)
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close releases background resources held by the server.
func (s *Server) Close() {
	s.limiter.Stop()
}

// ResultsDir returns the absolute path of the report output directory.
func (s *Server) ResultsDir() string {
	return s.resultsDir
}

// handleIndex serves the main dashboard HTML file.
func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")

	indexFile, err := web.Assets.Open("index.html")
	if err != nil {
		s.logger.Error("Failed to open index.html", "error", err)
		http.Error(w, "Internal Server Error: index.html not found", http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := indexFile.Close(); err != nil {
			s.logger.Warn("Failed to close index.html", "error", err)
		}
	}()

	if _, err := io.Copy(w, indexFile); err != nil {
		s.logger.Error("Failed to serve index.html", "error", err)
	}
}

// handleGetVersion returns version information from the version package.
func (s *Server) handleGetVersion(w http.ResponseWriter, _ *http.Request) {
	versionInfo := map[string]string{
		"version": version.Version,
		"commit":  version.Commit,
		"date":    version.Date,
	}
	s.writeJSON(w, versionInfo)
}

// handleGetSnapshot returns the latest complete snapshot.
// Before the first polling round completes there is nothing to serve
// and the endpoint answers 503 rather than an empty document.
func (s *Server) handleGetSnapshot(w http.ResponseWriter, _ *http.Request) {
	snap := s.store.Latest()
	if snap == nil {
		s.writeError(w, "no snapshot available yet", http.StatusServiceUnavailable)
		return
	}
	s.writeJSON(w, snap)
}

// handleGetDomainSample returns the latest sample for one domain.
func (s *Server) handleGetDomainSample(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	domain, err := metrics.ParseDomain(vars["domain"])
	if err != nil {
		s.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	snap := s.store.Latest()
	if snap == nil {
		s.writeError(w, "no snapshot available yet", http.StatusServiceUnavailable)
		return
	}

	sample, ok := snap.Sample(domain)
	if !ok {
		s.writeError(w, fmt.Sprintf("domain %s is not monitored", domain), http.StatusNotFound)
		return
	}
	s.writeJSON(w, sample)
}

// handleGetHistory returns stored samples for one domain, oldest first.
// An optional ?limit=N query keeps only the N most recent samples.
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	domain, err := metrics.ParseDomain(vars["domain"])
	if err != nil {
		s.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			s.writeError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
	}

	samples := s.store.History(domain)
	if limit > 0 && limit < len(samples) {
		samples = samples[len(samples)-limit:]
	}
	if samples == nil {
		samples = []metrics.Sample{}
	}

	s.writeJSON(w, map[string]interface{}{
		"domain":  domain,
		"samples": samples,
	})
}

type domainHealth struct {
	Status    metrics.Status `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Error     string         `json:"error,omitempty"`
}

// handleGetMonitoring returns a compact usage summary plus per-domain
// health. Unlike the snapshot endpoints it never fails: before the first
// round it reports running=false so dashboards can render a waiting
// state.
func (s *Server) handleGetMonitoring(w http.ResponseWriter, _ *http.Request) {
	snap := s.store.Latest()
	if snap == nil {
		s.writeJSON(w, map[string]interface{}{
			"running":     false,
			"subscribers": s.pub.Count(),
		})
		return
	}

	domains := make(map[string]domainHealth, len(snap.Domains))
	for _, d := range snap.Domains {
		sample, ok := snap.Sample(d)
		if !ok {
			continue
		}
		domains[string(d)] = domainHealth{
			Status:    sample.Status,
			Timestamp: sample.Timestamp,
			Error:     sample.Err,
		}
	}

	resp := map[string]interface{}{
		"running":     true,
		"timestamp":   snap.Timestamp,
		"subscribers": s.pub.Count(),
		"domains":     domains,
	}
	if v, ok := snap.Field(metrics.DomainCPU, "utilization_percent"); ok {
		resp["cpu_usage"] = v.Float()
	}
	if v, ok := snap.Field(metrics.DomainRAM, "percent"); ok {
		resp["ram_usage"] = v.Float()
	}
	if v, ok := snap.Field(metrics.DomainGPU, "0.utilization_percent"); ok {
		resp["gpu_usage"] = v.Float()
	}

	s.writeJSON(w, resp)
}

// handleGetAlerts evaluates threshold alerts against the latest snapshot.
func (s *Server) handleGetAlerts(w http.ResponseWriter, _ *http.Request) {
	snap := s.store.Latest()
	if snap == nil {
		s.writeError(w, "no snapshot available yet", http.StatusServiceUnavailable)
		return
	}

	alerts := metrics.EvaluateAlerts(snap)
	if alerts == nil {
		alerts = []metrics.Alert{}
	}

	s.writeJSON(w, map[string]interface{}{
		"timestamp": snap.Timestamp,
		"alerts":    alerts,
	})
}

// handleGetDevices enumerates disks, network interfaces, and GPUs.
// Listing is best effort: a failing probe yields an empty section, not
// a failed request.
func (s *Server) handleGetDevices(w http.ResponseWriter, r *http.Request) {
	disks, err := listDisks(r.Context())
	if err != nil {
		s.logger.Warn("Failed to list disks", "error", err)
		disks = []devices.DiskInfo{}
	}

	networks, err := listNetworks(r.Context())
	if err != nil {
		s.logger.Warn("Failed to list network interfaces", "error", err)
		networks = []devices.NetworkInfo{}
	}

	gpus, err := listGPUs(r.Context())
	if err != nil {
		s.logger.Warn("Failed to list GPUs", "error", err)
		gpus = []devices.GPUInfo{}
	}

	s.writeJSON(w, map[string]interface{}{
		"disks":    disks,
		"networks": networks,
		"gpus":     gpus,
	})
}

// handleCreateReport writes a JSON report built from the latest snapshot
// and the stored history into the results directory and returns it along
// with its file name.
func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Latest()
	if snap == nil {
		s.writeError(w, "no snapshot available yet", http.StatusServiceUnavailable)
		return
	}

	report := export.NewReport(r.Context(), snap)
	report.History = make(map[metrics.Domain][]metrics.Sample, len(snap.Domains))
	for _, d := range snap.Domains {
		if samples := s.store.History(d); len(samples) > 0 {
			report.History[d] = samples
		}
	}

	path, err := export.WriteReport(s.resultsDir, report)
	if err != nil {
		s.logger.Error("Failed to write report", "error", err)
		s.writeError(w, "Failed to write report", http.StatusInternalServerError)
		return
	}

	s.logger.Info("Report written", "path", path)
	s.writeJSON(w, map[string]interface{}{
		"file":   filepath.Base(path),
		"report": report,
	})
}

// handleGetReportFile serves a previously written report by file name.
// Only report_*.json names are accepted; anything else is rejected
// before touching the filesystem.
func (s *Server) handleGetReportFile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := filepath.Base(vars["name"])

	if !strings.HasPrefix(name, "report_") || filepath.Ext(name) != ".json" {
		s.writeError(w, "not a report file", http.StatusBadRequest)
		return
	}

	data, err := os.ReadFile(filepath.Join(s.resultsDir, name))
	if err != nil {
		if os.IsNotExist(err) {
			s.writeError(w, "report not found", http.StatusNotFound)
			return
		}
		s.logger.Error("Failed to read report", "name", name, "error", err)
		s.writeError(w, "Failed to read report", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	if _, err := w.Write(data); err != nil {
		s.logger.Error("Failed to write report response", "error", err)
	}
}

// handleWebSocket upgrades the connection and streams every published
// snapshot to the client as a JSON message. The latest snapshot, when
// one exists, is sent immediately on connect so clients do not wait a
// full polling tick for their first paint.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}
	defer func() {
		if err := conn.Close(); err != nil {
			s.logger.Debug("WebSocket close", "error", err)
		}
	}()

	sub := s.pub.Subscribe(0)
	defer s.pub.Unsubscribe(sub.ID)

	s.logger.Debug("WebSocket client connected", "id", sub.ID, "remote", r.RemoteAddr)

	if snap := s.store.Latest(); snap != nil {
		if err := conn.WriteJSON(snap); err != nil {
			return
		}
	}

	// Reader goroutine detects the client closing; inbound payloads are
	// discarded.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case snap, ok := <-sub.C:
			if !ok {
				return
			}
			if err := conn.WriteJSON(snap); err != nil {
				s.logger.Debug("WebSocket write failed", "id", sub.ID, "error", err)
				return
			}
		case <-done:
			return
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to write JSON response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	}); err != nil {
		s.logger.Error("Failed to write error response", "error", err)
	}
}
