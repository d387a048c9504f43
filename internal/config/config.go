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

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Tyler1201623/Hardware-Analyzer-Pro/pkg/metrics"
)

// Config represents application configuration.
type Config struct {
	// Sampling
	PollInterval    time.Duration            `mapstructure:"poll_interval"`    // Interval between polling rounds
	RoundTimeout    time.Duration            `mapstructure:"round_timeout"`    // Deadline for one complete round
	AdapterTimeout  time.Duration            `mapstructure:"adapter_timeout"`  // Deadline for a single adapter poll
	HistorySize     int                      `mapstructure:"history_size"`     // Samples retained per domain
	DomainIntervals map[string]time.Duration `mapstructure:"domain_intervals"` // Per-domain interval overrides

	// Filters
	IncludeDisks    []string `mapstructure:"include_disks"`    // Disk devices to monitor (empty = all)
	ExcludeDisks    []string `mapstructure:"exclude_disks"`    // Disk devices to exclude
	IncludeNetworks []string `mapstructure:"include_networks"` // Network interfaces to monitor (empty = all)
	ExcludeNetworks []string `mapstructure:"exclude_networks"` // Network interfaces to exclude

	// Export
	OutputPath    string        `mapstructure:"output"`         // Path to CSV output file
	BufferSize    int           `mapstructure:"buffer_size"`    // Number of records to buffer before flush
	FlushInterval time.Duration `mapstructure:"flush_interval"` // Maximum time before forcing a flush
	ResultsDir    string        `mapstructure:"results_dir"`    // Directory for JSON reports

	// Server
	Host           string  `mapstructure:"host"`             // HTTP listen address
	Port           int     `mapstructure:"port"`             // HTTP listen port
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`   // API requests per second per client
	RateLimitBurst int     `mapstructure:"rate_limit_burst"` // API request burst per client

	// Logging
	LogLevel string `mapstructure:"log_level"` // Log level: debug, info, warn, error
	LogFile  string `mapstructure:"log_file"`  // Log file path (empty = stdout)

	// Timezone
	Timezone string `mapstructure:"timezone"` // Timezone location (e.g., "Asia/Ho_Chi_Minh", "Local")
}

// Default configuration values.
const (
	DefaultPollInterval      = 5 * time.Second
	DefaultRoundTimeout      = 4 * time.Second
	DefaultAdapterTimeout    = 3 * time.Second
	DefaultHistorySize       = 100
	DefaultBufferSize        = 100
	DefaultFlushInterval     = 5 * time.Second
	DefaultResultsDir        = "results"
	DefaultHost              = "127.0.0.1"
	DefaultPort              = 8080
	DefaultRateLimitRPS      = 10.0
	DefaultRateLimitBurst    = 20
	DefaultLogLevel          = "info"
	DefaultMaxOutputFileSize = 150 * 1024 * 1024 // 150MB
)

// envPrefix namespaces environment overrides, e.g. HWPRO_POLL_INTERVAL.
const envPrefix = "HWPRO"

// Load reads configuration from defaults, an optional config file, and
// HWPRO_* environment variables, in increasing order of precedence.
//
// When configFile is empty, a file named hwpro.yaml is searched for in
// the working directory and ./configs; a missing file is not an error.
// An explicit configFile that cannot be read is.
//
// Load does not validate: callers apply their flag overrides first and
// then call Validate.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("poll_interval", DefaultPollInterval)
	v.SetDefault("round_timeout", DefaultRoundTimeout)
	v.SetDefault("adapter_timeout", DefaultAdapterTimeout)
	v.SetDefault("history_size", DefaultHistorySize)
	v.SetDefault("domain_intervals", map[string]time.Duration{})

	v.SetDefault("include_disks", []string{})
	v.SetDefault("exclude_disks", []string{})
	v.SetDefault("include_networks", []string{})
	v.SetDefault("exclude_networks", []string{})

	v.SetDefault("output", "")
	v.SetDefault("buffer_size", DefaultBufferSize)
	v.SetDefault("flush_interval", DefaultFlushInterval)
	v.SetDefault("results_dir", DefaultResultsDir)

	v.SetDefault("host", DefaultHost)
	v.SetDefault("port", DefaultPort)
	v.SetDefault("rate_limit_rps", DefaultRateLimitRPS)
	v.SetDefault("rate_limit_burst", DefaultRateLimitBurst)

	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("log_file", "")
	v.SetDefault("timezone", "")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("hwpro")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	return cfg, nil
}

// DomainInterval returns the polling interval for a domain: its override
// when one is configured, the global poll interval otherwise.
func (c *Config) DomainInterval(d metrics.Domain) time.Duration {
	if iv, ok := c.DomainIntervals[string(d)]; ok && iv > 0 {
		return iv
	}
	return c.PollInterval
}

// ListenAddr returns the host:port the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetDefaultOutputPath generates default output path: <hostname>_<timestamp>.csv
func GetDefaultOutputPath() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	// Clean hostname (remove invalid filename characters)
	hostname = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' || r == '"' || r == '<' || r == '>' || r == '|' {
			return '_'
		}
		return r
	}, hostname)

	timestamp := time.Now().Format("20060102150405")
	filename := fmt.Sprintf("%s_%s.csv", hostname, timestamp)

	// Get executable directory
	exePath, err := os.Executable()
	if err != nil {
		// Fallback to current directory
		return filename
	}

	exeDir := filepath.Dir(exePath)
	return filepath.Join(exeDir, filename)
}

// parseCommaSeparated parses a comma-separated string into a slice of trimmed strings.
func parseCommaSeparated(s string) []string {
	if s == "" {
		return nil
	}

	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))

	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// ParseCommaSeparated is the exported version of parseCommaSeparated.
func ParseCommaSeparated(s string) []string {
	return parseCommaSeparated(s)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.PollInterval < 1*time.Second {
		return errors.New("poll interval must be at least 1 second")
	}

	if c.PollInterval > 1*time.Hour {
		return errors.New("poll interval must not exceed 1 hour")
	}

	if c.RoundTimeout <= 0 {
		return errors.New("round timeout must be positive")
	}

	if c.RoundTimeout > c.PollInterval {
		return errors.New("round timeout must not exceed the poll interval")
	}

	if c.AdapterTimeout <= 0 {
		return errors.New("adapter timeout must be positive")
	}

	if c.AdapterTimeout > c.RoundTimeout {
		return errors.New("adapter timeout must not exceed the round timeout")
	}

	if c.HistorySize < 1 {
		return errors.New("history size must be at least 1")
	}

	for name, interval := range c.DomainIntervals {
		d, err := metrics.ParseDomain(name)
		if err != nil {
			return fmt.Errorf("invalid domain interval: %w", err)
		}
		if interval < c.PollInterval {
			return fmt.Errorf("interval for domain %s must not be shorter than the poll interval", d)
		}
	}

	if c.BufferSize < 1 {
		return errors.New("buffer size must be at least 1")
	}

	if c.FlushInterval < 1*time.Second {
		return errors.New("flush interval must be at least 1 second")
	}

	if c.ResultsDir == "" {
		return errors.New("results directory cannot be empty")
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.Port)
	}

	if c.RateLimitRPS <= 0 {
		return errors.New("rate limit rps must be positive")
	}

	if c.RateLimitBurst < 1 {
		return errors.New("rate limit burst must be at least 1")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	// Validate Timezone
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("invalid timezone: %s (%w)", c.Timezone, err)
		}
	}

	// The output path is only written when CSV export is on; an empty
	// path is filled in by the export command.
	if c.OutputPath != "" {
		if err := c.ensureOutputDir(); err != nil {
			return fmt.Errorf("output directory check failed: %w", err)
		}
	}

	return nil
}

// ensureOutputDir checks if the output directory exists and is writable.
func (c *Config) ensureOutputDir() error {
	dir := c.OutputPath

	// Get directory path
	for i := len(dir) - 1; i >= 0; i-- {
		if dir[i] == '/' || dir[i] == '\\' {
			dir = dir[:i]
			break
		}
	}

	// If no directory separator found, use current directory
	if dir == c.OutputPath {
		dir = "."
	}

	// Check if directory exists
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("output directory does not exist: %s", dir)
		}
		return err
	}

	if !info.IsDir() {
		return fmt.Errorf("output path parent is not a directory: %s", dir)
	}

	return nil
}

// String returns a human-readable representation of the configuration.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Poll=%v, RoundTimeout=%v, AdapterTimeout=%v, History=%d, Listen=%s, Output=%s}, Timezone=%s",
		c.PollInterval, c.RoundTimeout, c.AdapterTimeout, c.HistorySize, c.ListenAddr(), c.OutputPath, c.Timezone)
}
