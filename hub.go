package mailbox

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Port is the serial stream the hub reads lines from and writes output to.
// Available reports how many bytes can be read without blocking.
type Port interface {
	io.Reader
	io.Writer
	Available() (int, error)
}

// Hub fans lines read from a Port out to registered consumers and
// serializes writes to it. A Hub does nothing until Init is called.
type Hub struct {
	port          Port
	logger        *slog.Logger
	registerer    prometheus.Registerer
	metrics       *hubMetrics
	pollInterval  time.Duration
	retryWait     time.Duration
	lineEnding    string
	maxLineLength int
	newQueue      func(capacity int) (lineQueue, error)

	initOnce    sync.Once
	initialized atomic.Bool
	capacity    int // written once before initialized is set
	cancel      context.CancelFunc
	done        chan struct{}

	outMu sync.Mutex

	// mu guards the registry; the broadcast loop holds it while delivering.
	mu           sync.Mutex
	entries      []*entry
	warnedReject bool

	linesRead      atomic.Uint64
	linesBroadcast atomic.Uint64
	linesDiscarded atomic.Uint64
	linesTruncated atomic.Uint64
	rejected       atomic.Uint64
}

// New creates a hub over p. The reader is not started until Init.
func New(p Port, opts ...Option) (*Hub, error) {
	h := &Hub{
		port:          p,
		logger:        slog.Default(),
		metrics:       newHubMetrics(),
		pollInterval:  DefaultPollInterval,
		retryWait:     DefaultRetryWait,
		lineEnding:    DefaultLineEnding,
		maxLineLength: DefaultMaxLineLength,
		newQueue:      newRing,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	h.logger = h.logger.With("component", "mailbox")

	if h.registerer != nil {
		if err := h.metrics.register(h.registerer); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// Init starts the hub with DefaultCapacity per consumer.
func (h *Hub) Init(ctx context.Context) {
	h.InitWithCapacity(ctx, DefaultCapacity)
}

// InitWithCapacity sets the per-consumer queue capacity (see ClampCapacity)
// and starts the reader goroutine, which runs until ctx is cancelled or
// Close is called. Only the first call has any effect.
func (h *Hub) InitWithCapacity(ctx context.Context, capacity int) {
	h.initOnce.Do(func() {
		effective := ClampCapacity(capacity)
		if capacity > 0 && effective != capacity {
			h.logger.Info("queue capacity clamped", "requested", capacity, "capacity", effective)
		}
		h.capacity = effective

		ctx, cancel := context.WithCancel(ctx)
		h.cancel = cancel
		h.done = make(chan struct{})
		h.initialized.Store(true)

		h.logger.Info("mailbox initialized",
			"capacity", effective,
			"max_consumers", MaxConsumers,
			"poll_interval", h.pollInterval)

		go h.run(ctx)
	})
}

// Close stops the reader goroutine and waits for it to exit. Queued lines
// remain readable.
func (h *Hub) Close() error {
	if !h.initialized.Load() {
		return nil
	}
	h.cancel()
	<-h.done
	return nil
}

// Initialized reports whether Init has been called.
func (h *Hub) Initialized() bool {
	return h.initialized.Load()
}

// Capacity returns the effective per-consumer capacity, or 0 before Init.
func (h *Hub) Capacity() int {
	if !h.initialized.Load() {
		return 0
	}
	return h.capacity
}

// ConsumerStats describes one consumer's queue.
type ConsumerStats struct {
	Token     Token  `json:"token"`
	Capacity  int    `json:"capacity"`
	Pending   int    `json:"pending"`
	Delivered uint64 `json:"delivered"`
	Read      uint64 `json:"read"`
	Evicted   uint64 `json:"evicted"`
	Dropped   uint64 `json:"dropped"`
}

// Stats is a snapshot of the hub counters.
type Stats struct {
	LinesRead             uint64          `json:"lines_read"`
	LinesBroadcast        uint64          `json:"lines_broadcast"`
	LinesDiscarded        uint64          `json:"lines_discarded"`
	LinesTruncated        uint64          `json:"lines_truncated"`
	RegistrationsRejected uint64          `json:"registrations_rejected"`
	Consumers             []ConsumerStats `json:"consumers"`
}

// Stats returns the current counters, consumers in registration order.
func (h *Hub) Stats() Stats {
	s := Stats{
		LinesRead:             h.linesRead.Load(),
		LinesBroadcast:        h.linesBroadcast.Load(),
		LinesDiscarded:        h.linesDiscarded.Load(),
		LinesTruncated:        h.linesTruncated.Load(),
		RegistrationsRejected: h.rejected.Load(),
	}

	h.mu.Lock()
	entries := append([]*entry(nil), h.entries...)
	h.mu.Unlock()

	for _, e := range entries {
		qs := e.ring.Stats()
		s.Consumers = append(s.Consumers, ConsumerStats{
			Token:     e.token,
			Capacity:  qs.Capacity,
			Pending:   qs.Pending,
			Delivered: qs.Pushed,
			Read:      qs.Popped,
			Evicted:   qs.Evicted,
			Dropped:   e.dropped.Load(),
		})
	}
	return s
}
