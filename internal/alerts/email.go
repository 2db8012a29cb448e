package alerts

import (
	"context"
	"fmt"

	"github.com/demml/scouter-server/internal/models"
)

// EmailDispatcher is a recognized but unimplemented dispatch type
// (spec.md §4.5a). It exists so alert_dispatch_type: "email" profiles fail
// loudly and specifically at dispatch time instead of being rejected at
// profile-upsert time, in case email support lands later.
type EmailDispatcher struct{}

var _ Dispatcher = (*EmailDispatcher)(nil)

func (d *EmailDispatcher) Dispatch(_ context.Context, _ models.Identity, _ string, _ map[string]string) error {
	return fmt.Errorf("alerts: email: %w", ErrUnsupportedDispatcher)
}
