package mailbox

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// MinCapacity, DefaultCapacity and MaxCapacity bound the per-consumer
	// queue size, counted in lines.
	MinCapacity     = 8
	DefaultCapacity = 512
	MaxCapacity     = 1024

	// MaxConsumers is the size of the consumer registry.
	MaxConsumers = 8

	// DefaultMaxLineLength is the line assembly limit in bytes. Longer lines
	// are truncated.
	DefaultMaxLineLength = 256

	// FormatBufferSize bounds the rendered output of Printf in bytes.
	FormatBufferSize = 256

	DefaultPollInterval = 10 * time.Millisecond
	DefaultRetryWait    = 5 * time.Millisecond
	DefaultLineEnding   = "\r\n"
)

// ClampCapacity maps a requested queue capacity to the effective one.
// Zero or negative selects DefaultCapacity; other values are clamped to
// [MinCapacity, MaxCapacity].
func ClampCapacity(n int) int {
	switch {
	case n <= 0:
		return DefaultCapacity
	case n < MinCapacity:
		return MinCapacity
	case n > MaxCapacity:
		return MaxCapacity
	default:
		return n
	}
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithMetrics registers the hub's collectors with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(h *Hub) {
		h.registerer = reg
	}
}

// WithPollInterval sets how long the reader sleeps between polls.
func WithPollInterval(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.pollInterval = d
		}
	}
}

// WithRetryWait sets how long a broadcast waits for space in a full queue
// after evicting its oldest line.
func WithRetryWait(d time.Duration) Option {
	return func(h *Hub) {
		if d >= 0 {
			h.retryWait = d
		}
	}
}

// WithLineEnding sets the terminator appended by Println and Printf.
func WithLineEnding(eol string) Option {
	return func(h *Hub) {
		h.lineEnding = eol
	}
}

// WithMaxLineLength sets the line assembly limit.
func WithMaxLineLength(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.maxLineLength = n
		}
	}
}
