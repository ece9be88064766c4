package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/require"
)

func TestRun_StaysUpWithoutOptionalComponents(t *testing.T) {
	master, slave, err := pty.Open()
	require.NoError(t, err)
	t.Cleanup(func() { master.Close(); slave.Close() })

	cfgPath := filepath.Join(t.TempDir(), "serialmailbox.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("metrics:\n  port: 0\nlog:\n  level: error\n"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		errc <- run(ctx, []string{"-config", cfgPath, "-device", slave.Name()})
	}()

	select {
	case err := <-errc:
		t.Fatalf("daemon exited before shutdown was requested: %v", err)
	case <-time.After(300 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not stop after cancel")
	}
}

func TestRun_Version(t *testing.T) {
	require.NoError(t, run(context.Background(), []string{"-version"}))
}
