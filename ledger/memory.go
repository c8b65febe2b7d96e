package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"herbtrace/models"
)

// Memory keeps the ledger in process. Used for development and tests.
type Memory struct {
	mu      sync.RWMutex
	batches map[string]*models.Batch
	events  map[string]string // eventId -> batchId
	ids     idGenerator
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		batches: make(map[string]*models.Batch),
		events:  make(map[string]string),
		now:     time.Now,
	}
}

func (m *Memory) Initialize(ctx context.Context) error { return nil }

func (m *Memory) GenerateBatchID() string { return m.ids.batchID() }

func (m *Memory) GenerateEventID(prefix string) string { return m.ids.eventID(prefix) }

func (m *Memory) CreateBatch(ctx context.Context, actor models.Actor, p CollectionPayload) (*models.Batch, error) {
	b, err := newBatch(actor, p, m.now())
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.batches[b.BatchID]; ok {
		return nil, fmt.Errorf("%w: %s", ErrExists, b.BatchID)
	}
	m.batches[b.BatchID] = &b
	m.events[p.EventID] = b.BatchID

	out := b.Clone()
	return &out, nil
}

func (m *Memory) AppendEvent(ctx context.Context, batchID string, actor models.Actor, ev StageEvent) (*models.Batch, error) {
	e, err := newStageEvent(actor, ev, m.now())
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[batchID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, batchID)
	}
	if _, dup := m.events[e.EventID]; dup {
		return nil, fmt.Errorf("%w: duplicate event id %s", ErrInvalidEvent, e.EventID)
	}
	if err := checkStage(b, e.EventType); err != nil {
		return nil, err
	}
	b.Append(e)
	m.events[e.EventID] = batchID

	out := b.Clone()
	return &out, nil
}

func (m *Memory) GetBatchInfo(ctx context.Context, idOrEventID string) (*models.Batch, error) {
	id := strings.TrimSpace(idOrEventID)

	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.batches[id]
	if !ok {
		if batchID, isEvent := m.events[id]; isEvent {
			b, ok = m.batches[batchID]
		}
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	out := b.Clone()
	return &out, nil
}

// ListBatches returns every batch, most recently updated first.
func (m *Memory) ListBatches(ctx context.Context) ([]models.Batch, error) {
	m.mu.RLock()
	out := make([]models.Batch, 0, len(m.batches))
	for _, b := range m.batches {
		out = append(out, b.Clone())
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].LastUpdated.After(out[j].LastUpdated) })
	return out, nil
}
