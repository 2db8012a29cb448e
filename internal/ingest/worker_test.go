package ingest

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/demml/scouter-server/internal/models"
)

type fakeStore struct {
	driftErr error
	obsErr   error
	drift    []models.DriftRecord
	obs      []models.ObservabilityRecord
}

func (f *fakeStore) InsertDriftRecord(_ context.Context, rec models.DriftRecord) error {
	if f.driftErr != nil {
		return f.driftErr
	}
	f.drift = append(f.drift, rec)
	return nil
}

func (f *fakeStore) InsertObservabilityRecord(_ context.Context, rec models.ObservabilityRecord) error {
	if f.obsErr != nil {
		return f.obsErr
	}
	f.obs = append(f.obs, rec)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func TestHandleMessageAcksValidBatch(t *testing.T) {
	store := &fakeStore{}
	payload := []byte(`{"record_type":"SPC","records":[
		{"name":"m","repository":"r","version":"v","feature":"amount","value":1.2}
	]}`)

	outcome := HandleMessage(context.Background(), store, testLogger(), payload)
	assert.Equal(t, Ack, outcome)
	assert.Len(t, store.drift, 1)
}

func TestHandleMessageAcksPoisonEnvelope(t *testing.T) {
	store := &fakeStore{}
	outcome := HandleMessage(context.Background(), store, testLogger(), []byte(`not json`))
	assert.Equal(t, Ack, outcome)
	assert.Empty(t, store.drift)
}

func TestHandleMessageAcksUnknownTag(t *testing.T) {
	store := &fakeStore{}
	payload := []byte(`{"record_type":"BOGUS","records":[]}`)
	outcome := HandleMessage(context.Background(), store, testLogger(), payload)
	assert.Equal(t, Ack, outcome)
}

func TestHandleMessageRedeliversOnStorageFailure(t *testing.T) {
	store := &fakeStore{driftErr: errors.New("connection refused")}
	payload := []byte(`{"record_type":"SPC","records":[
		{"name":"m","repository":"r","version":"v","feature":"amount","value":1.2}
	]}`)

	outcome := HandleMessage(context.Background(), store, testLogger(), payload)
	assert.Equal(t, Redeliver, outcome)
}
