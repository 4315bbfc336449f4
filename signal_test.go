package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestInterruptibleContext_SignalCancelsAndIsRecorded(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctx, intr := interruptibleContext(parent, quietLogger(), "t-1")

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGINT))

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("wait context not canceled after SIGINT")
	}

	assert.Equal(t, syscall.SIGINT, intr.Signal())
}

func TestInterruptibleContext_ParentCancel(t *testing.T) {
	t.Parallel()

	parent, cancel := context.WithCancel(context.Background())
	ctx, intr := interruptibleContext(parent, quietLogger(), "t-2")

	cancel()

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("wait context not canceled with its parent")
	}

	assert.Nil(t, intr.Signal())
}
