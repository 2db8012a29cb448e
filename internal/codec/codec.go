// Package codec normalizes ingested wire payloads into typed internal
// records (spec.md §4.2). It never persists anything itself; the ingest
// workers decode through this package and then hand records to the
// storage engine.
package codec

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/demml/scouter-server/internal/models"
)

// RecordType is the outer tag on a ServerRecords batch.
type RecordType string

const (
	RecordTypeSPC           RecordType = "SPC"
	RecordTypeObservability RecordType = "OBSERVABILITY"
	RecordTypePSI           RecordType = "PSI"
)

// ErrUnknownRecordKind is returned when the outer record_type tag doesn't
// match any known kind; per spec.md §4.2 this fails the whole batch.
type ErrUnknownRecordKind struct {
	Tag string
}

func (e *ErrUnknownRecordKind) Error() string {
	return fmt.Sprintf("codec: unknown record_type %q", e.Tag)
}

// ServerRecords is the wire envelope: a tagged batch of records.
type ServerRecords struct {
	RecordType RecordType        `json:"record_type"`
	Records    []json.RawMessage `json:"records"`
}

// ServerRecord is a single decoded record from a batch, still tagged by
// kind so the caller can route it to the right insert_* operation.
type ServerRecord struct {
	Kind          RecordType
	DriftRecord   *models.DriftRecord
	Observability *models.ObservabilityRecord
}

// Decode parses a raw ServerRecords batch payload. now fills CreatedAt on
// any record that omits it. A record whose inner JSON doesn't match the
// outer tag's shape is logged and dropped; decoding continues with the
// rest of the batch. An unrecognized outer tag fails the entire batch.
func Decode(payload []byte, now time.Time) ([]ServerRecord, error) {
	var batch ServerRecords
	if err := json.Unmarshal(payload, &batch); err != nil {
		return nil, fmt.Errorf("codec: malformed batch envelope: %w", err)
	}

	switch batch.RecordType {
	case RecordTypeSPC, RecordTypeObservability, RecordTypePSI:
	default:
		return nil, &ErrUnknownRecordKind{Tag: string(batch.RecordType)}
	}

	out := make([]ServerRecord, 0, len(batch.Records))
	for i, raw := range batch.Records {
		rec, err := decodeOne(batch.RecordType, raw, now)
		if err != nil {
			slog.Warn("dropping malformed record in batch", "index", i, "record_type", batch.RecordType, "error", err)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func decodeOne(kind RecordType, raw json.RawMessage, now time.Time) (ServerRecord, error) {
	switch kind {
	case RecordTypeSPC:
		var r models.DriftRecord
		if err := json.Unmarshal(raw, &r); err != nil {
			return ServerRecord{}, err
		}
		if r.Name == "" || r.Repository == "" || r.Version == "" || r.Feature == "" {
			return ServerRecord{}, fmt.Errorf("drift record missing required field")
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		return ServerRecord{Kind: kind, DriftRecord: &r}, nil
	case RecordTypeObservability:
		var r models.ObservabilityRecord
		if err := json.Unmarshal(raw, &r); err != nil {
			return ServerRecord{}, err
		}
		if r.Name == "" || r.Repository == "" || r.Version == "" {
			return ServerRecord{}, fmt.Errorf("observability record missing required field")
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		return ServerRecord{Kind: kind, Observability: &r}, nil
	case RecordTypePSI:
		// PSI records are accepted at the codec boundary (the tag is
		// recognized) but have no storage target yet; see spec.md Non-goals.
		return ServerRecord{}, fmt.Errorf("PSI records are not yet persisted")
	default:
		return ServerRecord{}, &ErrUnknownRecordKind{Tag: string(kind)}
	}
}
