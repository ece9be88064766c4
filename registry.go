package mailbox

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/luhtfiimanal/go-serial-mailbox/queue"
)

// lineQueue is a consumer's bounded queue. *queue.Ring[string] implements it.
type lineQueue interface {
	TryPush(line string) bool
	DropOldest() (string, bool)
	PushWithin(line string, wait time.Duration) bool
	Pop() (string, bool)
	Cap() int
	Stats() queue.Stats
}

func newRing(capacity int) (lineQueue, error) {
	r, err := queue.New[string](capacity)
	if err != nil {
		return nil, err
	}
	return r, nil
}

type entry struct {
	token Token
	ring  lineQueue

	dropped atomic.Uint64

	// mu guards remainder, the unread tail of a line handed out by ReadBytes.
	mu        sync.Mutex
	remainder []byte
}

// Register creates the consumer entry for tok if it does not exist yet.
// Reads register lazily, so calling Register is only needed to start
// receiving lines before the first Read.
func (h *Hub) Register(tok Token) error {
	_, err := h.lookupOrRegister(tok)
	return err
}

// Consumers returns the number of registered consumers.
func (h *Hub) Consumers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

func (h *Hub) lookupOrRegister(tok Token) (*entry, error) {
	if tok == "" {
		return nil, ErrInvalidToken
	}
	if !h.initialized.Load() {
		return nil, ErrNotInitialized
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, e := range h.entries {
		if e.token == tok {
			return e, nil
		}
	}

	if len(h.entries) >= MaxConsumers {
		return nil, h.rejectLocked(tok, ErrRegistryFull)
	}

	ring, err := h.newQueue(h.capacity)
	if err != nil {
		return nil, h.rejectLocked(tok, fmt.Errorf("%w: allocate queue: %w", ErrResourceExhausted, err))
	}

	e := &entry{token: tok, ring: ring}
	h.entries = append(h.entries, e)
	h.metrics.consumers.Set(float64(len(h.entries)))
	h.logger.Debug("consumer registered", "token", tok, "capacity", ring.Cap(), "consumers", len(h.entries))
	return e, nil
}

// rejectLocked records a failed registration. The first rejection is a
// warning, later ones are debug so a polling consumer cannot flood the log.
func (h *Hub) rejectLocked(tok Token, err error) error {
	h.rejected.Add(1)
	h.metrics.rejected.Inc()
	if !h.warnedReject {
		h.warnedReject = true
		h.logger.Warn("consumer registration failed", "token", tok, "error", err)
	} else {
		h.logger.Debug("consumer registration failed", "token", tok, "error", err)
	}
	return err
}
