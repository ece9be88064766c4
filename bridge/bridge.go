// Package bridge connects a mailbox hub to NATS: a Forwarder publishes every
// line the hub broadcasts, and an Inbound handler writes messages received on
// a subject to the serial output.
package bridge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	mailbox "github.com/luhtfiimanal/go-serial-mailbox"
)

// Source is the consumer side of a hub.
type Source interface {
	Register(tok mailbox.Token) error
	Read(tok mailbox.Token) string
}

// Sink is the output side of a hub.
type Sink interface {
	Println(text string) error
}

// Publisher sends one message. *nats.Conn satisfies it.
type Publisher interface {
	Publish(subject string, data []byte) error
}

var _ Publisher = (*nats.Conn)(nil)

// Forwarder drains its own hub queue and publishes each line.
type Forwarder struct {
	src      Source
	pub      Publisher
	subject  string
	token    mailbox.Token
	interval time.Duration
	logger   *slog.Logger

	published uint64
	failed    uint64
}

// ForwarderOption configures a Forwarder.
type ForwarderOption func(*Forwarder)

// WithToken sets the consumer token the forwarder registers under.
func WithToken(tok mailbox.Token) ForwarderOption {
	return func(f *Forwarder) { f.token = tok }
}

// WithInterval sets how long the forwarder sleeps when its queue is empty.
func WithInterval(d time.Duration) ForwarderOption {
	return func(f *Forwarder) {
		if d > 0 {
			f.interval = d
		}
	}
}

// WithLogger sets the forwarder's logger.
func WithLogger(logger *slog.Logger) ForwarderOption {
	return func(f *Forwarder) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewForwarder returns a forwarder publishing to subject.
func NewForwarder(src Source, pub Publisher, subject string, opts ...ForwarderOption) *Forwarder {
	f := &Forwarder{
		src:      src,
		pub:      pub,
		subject:  subject,
		token:    "nats-forwarder",
		interval: 10 * time.Millisecond,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.With("component", "bridge", "subject", subject)
	return f
}

// Run forwards lines until ctx is done. It fails only if the forwarder
// cannot register with the hub; publish errors are logged and the line is lost.
func (f *Forwarder) Run(ctx context.Context) error {
	if err := f.src.Register(f.token); err != nil {
		return fmt.Errorf("register forwarder: %w", err)
	}
	f.logger.Info("forwarder started", "token", f.token)

	timer := time.NewTimer(f.interval)
	defer timer.Stop()
	for {
		for line := f.src.Read(f.token); line != ""; line = f.src.Read(f.token) {
			if err := f.pub.Publish(f.subject, []byte(line)); err != nil {
				f.failed++
				f.logger.Warn("publish failed", "error", err)
				continue
			}
			f.published++
		}

		timer.Reset(f.interval)
		select {
		case <-ctx.Done():
			f.logger.Info("forwarder stopped", "published", f.published, "failed", f.failed)
			return nil
		case <-timer.C:
		}
	}
}

// Inbound writes received payloads to the serial output, one line per
// newline-separated segment.
type Inbound struct {
	sink   Sink
	logger *slog.Logger
}

// NewInbound returns an Inbound writing to sink.
func NewInbound(sink Sink, logger *slog.Logger) *Inbound {
	if logger == nil {
		logger = slog.Default()
	}
	return &Inbound{sink: sink, logger: logger.With("component", "bridge")}
}

// Handle writes data as one or more lines. Empty segments are skipped.
func (in *Inbound) Handle(data []byte) error {
	var errs []error
	for _, seg := range bytes.Split(data, []byte("\n")) {
		seg = bytes.TrimRight(seg, "\r")
		if len(seg) == 0 {
			continue
		}
		if err := in.sink.Println(string(seg)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SubscribeInbound routes messages on subject to in.
func SubscribeInbound(nc *nats.Conn, subject string, in *Inbound) (*nats.Subscription, error) {
	sub, err := nc.Subscribe(subject, func(m *nats.Msg) {
		if err := in.Handle(m.Data); err != nil {
			in.logger.Warn("inbound write failed", "subject", m.Subject, "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	return sub, nil
}
