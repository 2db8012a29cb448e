package codec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSPCBatch(t *testing.T) {
	payload := []byte(`{
		"record_type": "SPC",
		"records": [
			{"repository":"test","name":"test_app","version":"1.0.0","feature":"f","value":1.0},
			{"repository":"test","name":"test_app","version":"1.0.0","feature":"f2","value":2.0}
		]
	}`)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	records, err := Decode(payload, now)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, RecordTypeSPC, records[0].Kind)
	assert.Equal(t, "f", records[0].DriftRecord.Feature)
	assert.Equal(t, now, records[0].DriftRecord.CreatedAt)
}

func TestDecodePreservesExplicitCreatedAt(t *testing.T) {
	explicit := time.Date(2020, 5, 5, 0, 0, 0, 0, time.UTC)
	payload := []byte(`{"record_type":"SPC","records":[{"repository":"r","name":"n","version":"v","feature":"f","value":1,"created_at":"` + explicit.Format(time.RFC3339) + `"}]}`)
	records, err := Decode(payload, time.Now())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, explicit.Equal(records[0].DriftRecord.CreatedAt))
}

func TestDecodeUnknownTagFailsBatch(t *testing.T) {
	payload := []byte(`{"record_type":"BOGUS","records":[]}`)
	_, err := Decode(payload, time.Now())
	require.Error(t, err)
	var unknown *ErrUnknownRecordKind
	assert.ErrorAs(t, err, &unknown)
}

func TestDecodeDropsMismatchedRecordButContinues(t *testing.T) {
	payload := []byte(`{
		"record_type": "SPC",
		"records": [
			{"repository":"r","name":"","version":"v","feature":"f","value":1},
			{"repository":"r","name":"n","version":"v","feature":"f","value":1}
		]
	}`)
	records, err := Decode(payload, time.Now())
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestDecodeObservabilityBatch(t *testing.T) {
	payload := []byte(`{
		"record_type": "OBSERVABILITY",
		"records": [{"repository":"r","name":"n","version":"v","request_count":10,"error_count":1}]
	}`)
	records, err := Decode(payload, time.Now())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(10), records[0].Observability.RequestCount)
}

func TestDecodeMalformedEnvelopeErrors(t *testing.T) {
	_, err := Decode([]byte(`not json`), time.Now())
	assert.Error(t, err)
}
