package mailbox

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

const readChunkSize = 1024

// run is the reader goroutine: the only caller of port.Read.
func (h *Hub) run(ctx context.Context) {
	defer close(h.done)

	buf := make([]byte, readChunkSize)
	asm := newLineAssembler(h.maxLineLength)
	failing := false

	for {
		if ctx.Err() != nil {
			h.logger.Info("line reader stopped")
			return
		}

		err := h.poll(buf, asm)
		switch {
		case err == nil:
			if failing {
				h.logger.Info("serial input recovered")
				failing = false
			}
		case errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed):
			h.logger.Info("serial input closed, line reader stopped", "error", err)
			return
		case !failing:
			failing = true
			h.logger.Warn("serial read failed", "error", err)
		default:
			h.logger.Debug("serial read failed", "error", err)
		}

		if !sleep(ctx, h.pollInterval) {
			h.logger.Info("line reader stopped")
			return
		}
	}
}

// poll reads whatever input is pending and broadcasts the completed lines.
func (h *Hub) poll(buf []byte, asm *lineAssembler) error {
	n, err := h.port.Available()
	if err != nil || n == 0 {
		return err
	}
	if n > len(buf) {
		n = len(buf)
	}
	n, err = h.port.Read(buf[:n])
	if n > 0 {
		asm.feed(buf[:n], h.handleLine)
	}
	return err
}

func (h *Hub) handleLine(raw string, truncated bool) {
	h.linesRead.Add(1)
	h.metrics.linesRead.Inc()
	if truncated {
		h.linesTruncated.Add(1)
		h.metrics.linesTruncated.Inc()
	}

	line := strings.TrimRightFunc(raw, unicode.IsSpace)
	if line == "" {
		h.linesDiscarded.Add(1)
		h.metrics.linesDiscarded.Inc()
		return
	}
	h.broadcast(line)
}

// broadcast delivers line to every registered queue. A full queue loses its
// oldest line; if the retry still fails the line is dropped for that
// consumer only.
func (h *Hub) broadcast(line string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, e := range h.entries {
		if e.ring.TryPush(line) {
			continue
		}

		if _, ok := e.ring.DropOldest(); ok {
			h.metrics.evictions.WithLabelValues(e.token.String()).Inc()
		} else if e.ring.TryPush(line) {
			// drained by the consumer since the first attempt
			continue
		}

		if e.ring.PushWithin(line, h.retryWait) {
			continue
		}

		e.dropped.Add(1)
		h.metrics.drops.WithLabelValues(e.token.String()).Inc()
		h.logger.Debug("line dropped", "token", e.token)
	}
	h.linesBroadcast.Add(1)
}

// sleep waits for d or until ctx is done. It reports whether the full
// interval elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// lineAssembler splits a byte stream on '\n'. Bytes past limit are dropped
// until the next delimiter.
type lineAssembler struct {
	buf       []byte
	limit     int
	truncated bool
}

func newLineAssembler(limit int) *lineAssembler {
	return &lineAssembler{
		buf:   make([]byte, 0, limit),
		limit: limit,
	}
}

func (a *lineAssembler) feed(p []byte, emit func(line string, truncated bool)) {
	for len(p) > 0 {
		i := bytes.IndexByte(p, '\n')
		chunk := p
		if i >= 0 {
			chunk = p[:i]
		}
		a.append(chunk)
		if i < 0 {
			return
		}

		line := a.buf
		if a.truncated {
			line = trimPartialRune(line)
		}
		emit(string(line), a.truncated)
		a.buf = a.buf[:0]
		a.truncated = false
		p = p[i+1:]
	}
}

func (a *lineAssembler) append(chunk []byte) {
	room := a.limit - len(a.buf)
	if len(chunk) > room {
		chunk = chunk[:room]
		a.truncated = true
	}
	a.buf = append(a.buf, chunk...)
}

// trimPartialRune drops an incomplete UTF-8 sequence left at the end of b
// by truncation.
func trimPartialRune(b []byte) []byte {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if utf8.FullRune(b[i:]) {
				return b
			}
			return b[:i]
		}
	}
	return b
}
