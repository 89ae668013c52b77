package observability

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/IshaanNene/TrendGoat/internal/config"
)

// LogBuffer keeps the most recent log lines in memory. It is an io.Writer
// so it can sit behind any slog handler.
type LogBuffer struct {
	mu      sync.Mutex
	lines   []string
	next    int
	full    bool
	partial bytes.Buffer
}

// NewLogBuffer returns a buffer that holds up to size lines.
func NewLogBuffer(size int) *LogBuffer {
	if size <= 0 {
		size = 500
	}
	return &LogBuffer{lines: make([]string, size)}
}

// Write appends complete lines; a trailing partial line waits for its newline.
func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.partial.Write(p)
	for {
		line, err := b.partial.ReadString('\n')
		if err != nil {
			// put the incomplete tail back
			b.partial.Reset()
			b.partial.WriteString(line)
			break
		}
		b.push(strings.TrimRight(line, "\r\n"))
	}
	return len(p), nil
}

func (b *LogBuffer) push(line string) {
	b.lines[b.next] = line
	b.next = (b.next + 1) % len(b.lines)
	if b.next == 0 {
		b.full = true
	}
}

// Lines returns up to n of the most recent lines, oldest first. n <= 0
// returns everything held.
func (b *LogBuffer) Lines(n int) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	var all []string
	if b.full {
		all = append(all, b.lines[b.next:]...)
	}
	all = append(all, b.lines[:b.next]...)
	if n > 0 && n < len(all) {
		all = all[len(all)-n:]
	}
	return all
}

// NewLogger builds the process logger from cfg. Output goes to stderr and,
// when buf is not nil, to buf as well.
func NewLogger(cfg config.LoggingConfig, verbose bool, buf *LogBuffer) *slog.Logger {
	level := ParseLevel(cfg.Level)
	if verbose {
		level = slog.LevelDebug
	}

	var w io.Writer = os.Stderr
	if buf != nil {
		w = io.MultiWriter(os.Stderr, buf)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
