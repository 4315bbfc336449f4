package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// waitInterrupt remembers the signal that stopped a wait, if any.
type waitInterrupt struct {
	mu  sync.Mutex
	sig os.Signal
}

func (w *waitInterrupt) set(sig os.Signal) {
	w.mu.Lock()
	w.sig = sig
	w.mu.Unlock()
}

// Signal returns the interrupting signal, or nil.
func (w *waitInterrupt) Signal() os.Signal {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.sig
}

// interruptibleContext derives a context for waiting on ref. The first
// SIGINT or SIGTERM cancels it so the wait can still be journaled as
// canceled; a second one exits immediately. The watcher goroutine ends when
// parent is done, so callers cancel parent once the wait returns.
func interruptibleContext(parent context.Context, logger *slog.Logger, ref string) (context.Context, *waitInterrupt) {
	ctx, cancel := context.WithCancel(parent)
	intr := &waitInterrupt{}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
			intr.set(sig)
			logger.Info("interrupted, abandoning wait",
				slog.String("ref", ref),
				slog.String("signal", sig.String()),
			)
			cancel()
		case <-parent.Done():
			cancel()
			return
		}

		select {
		case sig := <-sigCh:
			logger.Warn("interrupted again, exiting",
				slog.String("ref", ref),
				slog.String("signal", sig.String()),
			)
			os.Exit(1)
		case <-parent.Done():
		}
	}()

	return ctx, intr
}
