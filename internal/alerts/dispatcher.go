// Package alerts implements the pluggable alert dispatchers the executor
// invokes once a profile's drift rule fires (spec.md §4.5), grounded on the
// WebhookDelivery interface + concrete implementation pattern.
package alerts

import (
	"context"
	"fmt"

	"github.com/demml/scouter-server/internal/models"
)

// Dispatcher sends one feature alert to an external notification channel.
// Implementations must not panic; a delivery failure is returned as an
// error and logged by the caller, never fatal to the tick (spec.md §8
// invariant 3).
type Dispatcher interface {
	Dispatch(ctx context.Context, id models.Identity, feature string, attrs map[string]string) error
}

// ErrUnknownDispatchType is returned by Resolve for a dispatch type string
// that isn't one of the recognized kinds (spec.md §4.5a: unknown types are
// a typed error, never a silent default).
type ErrUnknownDispatchType struct {
	Type string
}

func (e *ErrUnknownDispatchType) Error() string {
	return fmt.Sprintf("alerts: unknown alert_dispatch_type %q", e.Type)
}

// ErrUnsupportedDispatcher is returned by dispatchers that are recognized
// but not implemented (spec.md §4.5a email dispatcher stub).
var ErrUnsupportedDispatcher = fmt.Errorf("alerts: dispatcher not implemented")

// Resolve builds the Dispatcher named by dispatchType, reading its
// credentials from the environment. An empty string resolves to the
// console dispatcher, matching the "no env vars found" fallback in
// original_source/src/alerts/spc/drift.rs's AlertDispatcher::new comment.
func Resolve(dispatchType string) (Dispatcher, error) {
	switch dispatchType {
	case "", "console":
		return NewConsoleDispatcherFromEnv(), nil
	case "opsgenie":
		return NewOpsGenieDispatcherFromEnv(), nil
	case "slack":
		return NewSlackDispatcherFromEnv(), nil
	case "email":
		return &EmailDispatcher{}, nil
	default:
		return nil, &ErrUnknownDispatchType{Type: dispatchType}
	}
}
