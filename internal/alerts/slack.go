package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/demml/scouter-server/internal/models"
)

// SlackDispatcher posts a plain incoming-webhook message, the simplest of
// the pack's webhook-shaped dispatch styles (Outblock-flowindex's
// DirectDelivery.deliverToURL detects this same Slack/Discord/Telegram
// webhook-URL pattern).
type SlackDispatcher struct {
	webhookURL string
	client     *http.Client
}

var _ Dispatcher = (*SlackDispatcher)(nil)

// NewSlackDispatcherFromEnv reads SLACK_WEBHOOK_URL. An empty URL is valid
// at construction time; Dispatch then fails per-call rather than at startup,
// matching the executor's best-effort dispatch contract.
func NewSlackDispatcherFromEnv() *SlackDispatcher {
	return &SlackDispatcher{
		webhookURL: os.Getenv("SLACK_WEBHOOK_URL"),
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (d *SlackDispatcher) Dispatch(ctx context.Context, id models.Identity, feature string, attrs map[string]string) error {
	if d.webhookURL == "" {
		return fmt.Errorf("alerts: slack: SLACK_WEBHOOK_URL is not set")
	}

	text := fmt.Sprintf("Model drift detected for %s/%s/%s — feature %q, zone %s (%s)",
		id.Repository, id.Name, id.Version, feature, attrs["zone"], attrs["kind"])
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("alerts: slack: encode body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("alerts: slack: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("alerts: slack: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("alerts: slack: unexpected status %d", resp.StatusCode)
	}
	return nil
}
