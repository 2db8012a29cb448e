// Package ingest implements the Ingest Pipeline (spec.md §4.2/§4.3): bus
// consumers that decode incoming batches through package codec and persist
// them, at-least-once, to the storage engine.
package ingest

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/demml/scouter-server/internal/codec"
	"github.com/demml/scouter-server/internal/models"
)

// Store is the subset of the storage engine the ingest workers need.
type Store interface {
	InsertDriftRecord(ctx context.Context, rec models.DriftRecord) error
	InsertObservabilityRecord(ctx context.Context, rec models.ObservabilityRecord) error
}

// Outcome tells the bus-specific consumer what to do with the message it
// just handed to HandleMessage.
type Outcome int

const (
	// Ack commits/acknowledges the message: either it was fully stored, or
	// it is poison (malformed envelope, unknown record_type) and retrying
	// would never succeed.
	Ack Outcome = iota
	// Redeliver leaves the message unacknowledged so the bus redelivers it,
	// because a storage write failed and the failure may be transient.
	Redeliver
)

// HandleMessage decodes one wire payload and persists every record it
// contains, in order. Decode failures (malformed envelope, unknown outer
// tag) are poison: spec.md §4.2 says these are logged and the batch is
// dropped, so HandleMessage reports Ack. A per-record shape mismatch is
// already handled inside codec.Decode (the record is dropped, decoding
// continues) and never reaches here. A storage failure for any record
// reports Redeliver without processing further records in the batch — the
// whole batch will be retried, so any already-inserted records before the
// failure may be written twice; the storage schema is append-only and
// duplicate detection is out of scope (spec.md Non-goals).
func HandleMessage(ctx context.Context, store Store, log *slog.Logger, payload []byte) Outcome {
	records, err := codec.Decode(payload, time.Now().UTC())
	if err != nil {
		log.Error("dropping poison message", "error", err)
		return Ack
	}

	for _, rec := range records {
		if err := persist(ctx, store, rec); err != nil {
			log.Error("storage write failed, message will be redelivered", "error", err)
			return Redeliver
		}
	}
	return Ack
}

func persist(ctx context.Context, store Store, rec codec.ServerRecord) error {
	switch {
	case rec.DriftRecord != nil:
		return store.InsertDriftRecord(ctx, *rec.DriftRecord)
	case rec.Observability != nil:
		return store.InsertObservabilityRecord(ctx, *rec.Observability)
	default:
		return errNothingToPersist
	}
}

var errNothingToPersist = errors.New("ingest: decoded record carries no payload")
