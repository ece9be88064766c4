package mailbox

import "github.com/google/uuid"

// Token identifies a consumer. Each goroutine that reads from the hub keeps
// its own token; two goroutines sharing a token share one queue.
type Token string

// NewToken returns a random token.
func NewToken() Token {
	return Token(uuid.NewString())
}

// String returns the token as a plain string, used as the metrics label.
func (t Token) String() string {
	return string(t)
}
