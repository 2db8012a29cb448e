package alerts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/demml/scouter-server/internal/models"
)

func TestResolveUnknownType(t *testing.T) {
	_, err := Resolve("pagerduty")
	var unknown *ErrUnknownDispatchType
	require.ErrorAs(t, err, &unknown)
}

func TestResolveEmptyFallsBackToConsole(t *testing.T) {
	d, err := Resolve("")
	require.NoError(t, err)
	_, ok := d.(*ConsoleDispatcher)
	assert.True(t, ok)
}

func TestResolveEmailIsUnsupported(t *testing.T) {
	d, err := Resolve("email")
	require.NoError(t, err)
	err = d.Dispatch(context.Background(), models.Identity{}, "f", nil)
	assert.ErrorIs(t, err, ErrUnsupportedDispatcher)
}

func TestOpsGenieDispatcherUsesPlaceholdersWithoutEnv(t *testing.T) {
	os.Unsetenv("OPSGENIE_API_URL")
	os.Unsetenv("OPSGENIE_API_KEY")
	d := NewOpsGenieDispatcherFromEnv()
	assert.Equal(t, "api_url", d.apiURL)
	assert.Equal(t, "api_key", d.apiKey)
}

func TestOpsGenieDispatcherSendsExpectedShape(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody opsGenieAlert
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	d := &OpsGenieDispatcher{apiURL: srv.URL, apiKey: "secret", client: srv.Client()}
	err := d.Dispatch(context.Background(), models.Identity{Name: "m", Repository: "r", Version: "v"},
		"amount", map[string]string{"zone": "3", "kind": "upper"})
	require.NoError(t, err)

	assert.Equal(t, "GenieKey secret", gotAuth)
	assert.Equal(t, "/alerts", gotPath)
	assert.Equal(t, "123abc", gotBody.Alias)
	assert.Equal(t, "P1", gotBody.Priority)
	assert.Contains(t, gotBody.Tags, "Model Drift")
}

func TestSlackDispatcherRequiresWebhookURL(t *testing.T) {
	d := &SlackDispatcher{client: http.DefaultClient}
	err := d.Dispatch(context.Background(), models.Identity{}, "f", nil)
	assert.Error(t, err)
}

func TestConsoleDispatcherNeverFails(t *testing.T) {
	d := NewConsoleDispatcherFromEnv()
	err := d.Dispatch(context.Background(), models.Identity{Name: "m"}, "f", map[string]string{"zone": "1"})
	assert.NoError(t, err)
}

