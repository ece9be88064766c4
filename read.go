package mailbox

// Read returns the oldest pending line for tok, registering tok on first
// use. It never blocks: it returns "" when nothing is pending, before Init,
// or when tok cannot be registered.
func (h *Hub) Read(tok Token) string {
	e, err := h.lookupOrRegister(tok)
	if err != nil {
		return ""
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if rest := e.remainder; len(rest) > 0 {
		e.remainder = nil
		if rest[len(rest)-1] == '\n' {
			rest = rest[:len(rest)-1]
		}
		if len(rest) > 0 {
			return string(rest)
		}
	}

	line, _ := e.ring.Pop()
	return line
}

// ReadBytes copies pending input for tok into buf as a byte stream in which
// every line is terminated by '\n', and returns the number of bytes copied.
// A line that does not fit is continued by the next call. Like Read, it never
// blocks and returns 0 when nothing is pending.
func (h *Hub) ReadBytes(tok Token, buf []byte) int {
	if len(buf) == 0 {
		return 0
	}
	e, err := h.lookupOrRegister(tok)
	if err != nil {
		return 0
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	n := 0
	for n < len(buf) {
		if len(e.remainder) == 0 {
			line, ok := e.ring.Pop()
			if !ok {
				break
			}
			e.remainder = append(append(make([]byte, 0, len(line)+1), line...), '\n')
		}
		c := copy(buf[n:], e.remainder)
		n += c
		e.remainder = e.remainder[c:]
	}
	if len(e.remainder) == 0 {
		e.remainder = nil
	}
	return n
}
