package system

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
)

// ShutdownHandler runs once when an interrupt arrives.
type ShutdownHandler func()

// CancelOnInterrupt returns a context that is cancelled on SIGINT or SIGTERM
// so that running scans stop and return their partial results. A second
// signal exits immediately. The returned stop function releases the signal
// handler.
func CancelOnInterrupt(parent context.Context, handler ShutdownHandler) (context.Context, context.CancelFunc) {
	return cancelOn(parent, handler, os.Interrupt, syscall.SIGTERM)
}

func cancelOn(parent context.Context, handler ShutdownHandler, signals ...os.Signal) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChannel := make(chan os.Signal, 2)
	signal.Notify(sigChannel, signals...)

	done := make(chan struct{})
	go func() {
		select {
		case <-sigChannel:
			log.Info().Msg("Received interrupt signal, stopping scan and reporting partial results...")
			if handler != nil {
				handler()
			}
			cancel()
		case <-done:
			return
		}

		select {
		case <-sigChannel:
			log.Warn().Msg("Received second interrupt signal, exiting")
			os.Exit(130)
		case <-done:
		}
	}()

	stop := func() {
		signal.Stop(sigChannel)
		select {
		case <-done:
		default:
			close(done)
		}
		cancel()
	}
	return ctx, stop
}
