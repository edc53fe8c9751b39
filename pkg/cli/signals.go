package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// SetupSignalHandler returns a context that is cancelled on the first
// SIGINT or SIGTERM. A second signal exits the process immediately with
// ExitFailure. Call stop to release the signal registration.
func SetupSignalHandler(parent context.Context) (ctx context.Context, stop func()) {
	return setupSignalHandler(parent, os.Exit, os.Interrupt, syscall.SIGTERM)
}

func setupSignalHandler(parent context.Context, exit func(int), signals ...os.Signal) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, signals...)

	done := make(chan struct{})
	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received shutdown signal", "signal", sig.String())
			cancel()
		case <-done:
			return
		}

		select {
		case sig := <-sigChan:
			slog.Warn("received second signal, exiting immediately", "signal", sig.String())
			exit(ExitFailure)
		case <-done:
		}
	}()

	var once sync.Once
	return ctx, func() {
		once.Do(func() {
			signal.Stop(sigChan)
			close(done)
			cancel()
		})
	}
}
