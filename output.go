package mailbox

import (
	"fmt"
	"unicode/utf8"
)

// Write writes p to the port under the output lock, so concurrent writes
// never interleave. Before Init it discards p and reports success.
func (h *Hub) Write(p []byte) (int, error) {
	if !h.initialized.Load() {
		return len(p), nil
	}

	h.outMu.Lock()
	n, err := h.port.Write(p)
	h.outMu.Unlock()

	if n > 0 {
		h.metrics.bytesWritten.Add(float64(n))
	}
	if err != nil {
		h.logger.Debug("serial write failed", "error", err)
		return n, fmt.Errorf("write: %w", err)
	}
	return n, nil
}

// Print writes text as is.
func (h *Hub) Print(text string) error {
	_, err := h.Write([]byte(text))
	return err
}

// Println writes text followed by the line ending in one locked write.
func (h *Hub) Println(text string) error {
	return h.Print(text + h.lineEnding)
}

// Printf formats outside the lock and writes the result as a line. Output
// longer than FormatBufferSize bytes is silently truncated.
func (h *Hub) Printf(format string, args ...any) error {
	if !h.initialized.Load() {
		return nil
	}
	return h.Println(truncate(fmt.Sprintf(format, args...), FormatBufferSize))
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
