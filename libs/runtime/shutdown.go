package runtime

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"
)

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// Stopper is one named step of graceful shutdown.
type Stopper struct {
	Name string
	Stop func(ctx context.Context) error
}

// GracefulStop runs stoppers in order under a shared deadline. Failures are
// logged and do not prevent later steps.
func GracefulStop(logger *slog.Logger, timeout time.Duration, stoppers ...Stopper) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	for _, s := range stoppers {
		if err := s.Stop(ctx); err != nil {
			logger.Error("shutdown step failed", "step", s.Name, "err", err)
			continue
		}
		logger.Info("stopped", "step", s.Name)
	}
}
