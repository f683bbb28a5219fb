package utils

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// ContextForProcessInterruptOrKill returns a context that is cancelled when the
// process receives an interrupt (Ctrl+C) or termination signal (SIGTERM).
// Calling stop releases the signal handlers.
func ContextForProcessInterruptOrKill(parent context.Context) (ctx context.Context, stop context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
