// Package ledger is the system of record for batches and their events.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"herbtrace/models"
)

var (
	ErrNotFound     = errors.New("batch not found")
	ErrExists       = errors.New("batch already exists")
	ErrInvalidEvent = errors.New("invalid event")
)

// CollectionPayload opens a new batch with its COLLECTION event.
type CollectionPayload struct {
	BatchID     string
	EventID     string
	HerbSpecies string
	Timestamp   time.Time
	Data        map[string]any
}

// StageEvent appends a later pipeline stage to an existing batch.
type StageEvent struct {
	EventID   string
	EventType models.EventType
	Timestamp time.Time
	Data      map[string]any
}

// Ledger records batches and their stage events.
type Ledger interface {
	Initialize(ctx context.Context) error
	GenerateBatchID() string
	GenerateEventID(prefix string) string
	CreateBatch(ctx context.Context, actor models.Actor, p CollectionPayload) (*models.Batch, error)
	AppendEvent(ctx context.Context, batchID string, actor models.Actor, ev StageEvent) (*models.Batch, error)
	// GetBatchInfo accepts either a batch id or the id of one of its events.
	GetBatchInfo(ctx context.Context, idOrEventID string) (*models.Batch, error)
	ListBatches(ctx context.Context) ([]models.Batch, error)
}

// newBatch validates p and builds the batch record CreateBatch stores.
func newBatch(actor models.Actor, p CollectionPayload, now time.Time) (models.Batch, error) {
	if strings.TrimSpace(p.BatchID) == "" || strings.TrimSpace(p.EventID) == "" {
		return models.Batch{}, fmt.Errorf("%w: batch and event ids are required", ErrInvalidEvent)
	}
	if strings.TrimSpace(p.HerbSpecies) == "" {
		return models.Batch{}, fmt.Errorf("%w: herb species is required", ErrInvalidEvent)
	}
	ts := p.Timestamp
	if ts.IsZero() {
		ts = now
	}
	b := models.Batch{
		BatchID:     p.BatchID,
		HerbSpecies: p.HerbSpecies,
		Creator:     actor.Name,
	}
	b.Append(models.Event{
		EventID:      p.EventID,
		EventType:    models.EventCollection,
		Participant:  actor.Name,
		Organization: actor.Organization,
		Timestamp:    ts.UTC(),
		Data:         p.Data,
	})
	return b, nil
}

// newStageEvent validates ev and builds the event AppendEvent stores.
func newStageEvent(actor models.Actor, ev StageEvent, now time.Time) (models.Event, error) {
	if !ev.EventType.Valid() || ev.EventType == models.EventCollection {
		return models.Event{}, fmt.Errorf("%w: cannot append %q", ErrInvalidEvent, ev.EventType)
	}
	if strings.TrimSpace(ev.EventID) == "" {
		return models.Event{}, fmt.Errorf("%w: event id is required", ErrInvalidEvent)
	}
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = now
	}
	return models.Event{
		EventID:      ev.EventID,
		EventType:    ev.EventType,
		Participant:  actor.Name,
		Organization: actor.Organization,
		Timestamp:    ts.UTC(),
		Data:         ev.Data,
	}, nil
}

// checkStage rejects events that are not the next stage of b.
func checkStage(b *models.Batch, typ models.EventType) error {
	next, ok := models.NextEvent(b.CurrentStatus)
	if !ok {
		return fmt.Errorf("%w: batch %s is %s and takes no further events", ErrInvalidEvent, b.BatchID, b.CurrentStatus)
	}
	if typ != next {
		return fmt.Errorf("%w: batch %s is %s and expects %s, got %s", ErrInvalidEvent, b.BatchID, b.CurrentStatus, next, typ)
	}
	return nil
}
