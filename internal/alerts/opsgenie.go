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

// OpsGenieDispatcher POSTs alerts to OpsGenie's alerts API. Its payload
// shape and placeholder-credential fallback are taken directly from
// original_source/src/alerts/dispatch.rs's OpsGenieAlertDispatcher: when
// OPSGENIE_API_URL/OPSGENIE_API_KEY aren't set, it still constructs a
// dispatcher (pointed at placeholder values) rather than refusing to start,
// so a tick can always attempt dispatch and fall through to persisting the
// alert regardless of delivery outcome.
type OpsGenieDispatcher struct {
	apiURL string
	apiKey string
	client *http.Client
}

var _ Dispatcher = (*OpsGenieDispatcher)(nil)

// NewOpsGenieDispatcherFromEnv reads OPSGENIE_API_URL and OPSGENIE_API_KEY,
// defaulting to the original implementation's literal placeholders.
func NewOpsGenieDispatcherFromEnv() *OpsGenieDispatcher {
	apiURL := os.Getenv("OPSGENIE_API_URL")
	if apiURL == "" {
		apiURL = "api_url"
	}
	apiKey := os.Getenv("OPSGENIE_API_KEY")
	if apiKey == "" {
		apiKey = "api_key"
	}
	return &OpsGenieDispatcher{apiURL: apiURL, apiKey: apiKey, client: &http.Client{Timeout: 10 * time.Second}}
}

type opsGenieResponder struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type opsGenieAlert struct {
	Message     string              `json:"message"`
	Alias       string              `json:"alias"`
	Description string              `json:"description"`
	Responders  []opsGenieResponder `json:"responders"`
	VisibleTo   []opsGenieResponder `json:"visibleTo"`
	Tags        []string            `json:"tags"`
	Priority    string              `json:"priority"`
}

// Dispatch builds the alert body exactly as original_source/src/alerts/dispatch.rs's
// process_alerts does and POSTs it to {api_url}/alerts.
func (d *OpsGenieDispatcher) Dispatch(ctx context.Context, id models.Identity, feature string, attrs map[string]string) error {
	description := fmt.Sprintf("Feature %q drifted to zone %s (%s) for %s/%s/%s",
		feature, attrs["zone"], attrs["kind"], id.Repository, id.Name, id.Version)

	body := opsGenieAlert{
		Message:     fmt.Sprintf("Model drift detected: %s/%s/%s", id.Repository, id.Name, id.Version),
		Alias:       "123abc",
		Description: description,
		Responders:  []opsGenieResponder{{Name: "ds-team", Type: "team"}},
		VisibleTo:   []opsGenieResponder{{Name: "ds-team", Type: "team"}},
		Tags:        []string{"Model Drift"},
		Priority:    "P1",
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("alerts: opsgenie: encode body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.apiURL+"/alerts", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("alerts: opsgenie: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "GenieKey "+d.apiKey)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("alerts: opsgenie: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("alerts: opsgenie: unexpected status %d", resp.StatusCode)
	}
	return nil
}
