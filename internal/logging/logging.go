// Package logging builds the diagnostics logger (log/slog, stderr) and the
// per-request line logger (stdout).
package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
)

// Level represents a log level.
type Level = slog.Level

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Format represents the log output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

type Config struct {
	Level  Level
	Format Format
	// Output defaults to os.Stderr.
	Output io.Writer
}

func New(cfg Config) *slog.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: cfg.Level}

	var handler slog.Handler
	switch cfg.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(cfg.Output, opts)
	default:
		handler = slog.NewTextHandler(cfg.Output, opts)
	}
	return slog.New(handler)
}

// Nop returns a logger that discards all output.
func Nop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel returns LevelInfo for anything it does not recognise.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), "json") {
		return FormatJSON
	}
	return FormatText
}

// RequestLog writes one timestamped line per request:
//
//	2026/10/17 12:00:00 [200] worker 3 - http://nginx:8000/
type RequestLog struct {
	l *log.Logger
}

func NewRequestLog(w io.Writer) *RequestLog {
	if w == nil {
		w = os.Stdout
	}
	return &RequestLog{l: log.New(w, "", log.LstdFlags)}
}

func (r *RequestLog) Response(status, worker int, url string) {
	r.l.Printf("[%d] worker %d - %s", status, worker, url)
}

func (r *RequestLog) Failure(worker int, url string, err error) {
	r.l.Printf("[ERR] worker %d - %s: %v", worker, url, err)
}
