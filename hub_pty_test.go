package mailbox

import (
	"context"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/require"

	"github.com/luhtfiimanal/go-serial-mailbox/port"
)

func TestHub_OverPTY(t *testing.T) {
	master, slave, err := pty.Open()
	require.NoError(t, err)
	t.Cleanup(func() { master.Close(); slave.Close() })

	p, err := port.Open(port.Config{Device: slave.Name(), BaudRate: 115200})
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })

	h, err := New(p, WithPollInterval(2*time.Millisecond))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h.Init(ctx)
	t.Cleanup(func() { h.Close() })

	a, b := NewToken(), NewToken()
	require.NoError(t, h.Register(a))
	require.NoError(t, h.Register(b))

	// Device writes, both consumers receive
	_, err = master.Write([]byte("ping\r\nsecond\n"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return h.Stats().LinesBroadcast == 2
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, []string{"ping", "second"}, drain(h, a))
	require.Equal(t, []string{"ping", "second"}, drain(h, b))

	// Hub writes, device receives
	require.NoError(t, h.Println("pong"))
	buf := make([]byte, 6)
	n, err := master.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "pong\r\n", string(buf[:n]))

	// Closing the port ends the reader
	require.NoError(t, p.Close())
	select {
	case <-h.done:
	case <-time.After(time.Second):
		t.Fatal("reader did not stop after port close")
	}
}
