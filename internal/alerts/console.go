package alerts

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/demml/scouter-server/internal/models"
)

// ConsoleDispatcher logs alerts instead of calling an external service. It
// is the fallback dispatcher (original_source/src/alerts/spc/drift.rs:
// "will default to console if env vars are not found for 3rd party
// service") and never fails.
type ConsoleDispatcher struct {
	log *slog.Logger
}

var _ Dispatcher = (*ConsoleDispatcher)(nil)

// NewConsoleDispatcher builds a ConsoleDispatcher bound to log.
func NewConsoleDispatcher(log *slog.Logger) *ConsoleDispatcher {
	return &ConsoleDispatcher{log: log}
}

// NewConsoleDispatcherFromEnv builds a ConsoleDispatcher with a standalone
// logger, for use from Resolve where no logger is threaded through.
func NewConsoleDispatcherFromEnv() *ConsoleDispatcher {
	return &ConsoleDispatcher{log: slog.Default()}
}

// Dispatch logs the alert and always succeeds.
func (d *ConsoleDispatcher) Dispatch(_ context.Context, id models.Identity, feature string, attrs map[string]string) error {
	d.log.Info(fmt.Sprintf("drift alert: %s/%s/%s feature=%s", id.Repository, id.Name, id.Version, feature), "attrs", attrs)
	return nil
}
