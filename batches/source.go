package batches

import (
	"context"
	"time"

	"herbtrace/models"
)

// Source supplies the full current set of batches on every poll.
type Source interface {
	Fetch(ctx context.Context) ([]models.Batch, error)
}

type lister interface {
	ListBatches(ctx context.Context) ([]models.Batch, error)
}

// LedgerSource polls the ledger itself.
type LedgerSource struct {
	Ledger lister
}

func (s LedgerSource) Fetch(ctx context.Context) ([]models.Batch, error) {
	return s.Ledger.ListBatches(ctx)
}

// FixtureSource serves a fixed set of demo batches stamped with the fetch time.
type FixtureSource struct {
	Now func() time.Time
}

func (s FixtureSource) Fetch(ctx context.Context) ([]models.Batch, error) {
	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now()
	}

	collection := func(id, species, who, org, zone string) models.Event {
		return models.Event{
			EventID: id, EventType: models.EventCollection, Participant: who, Organization: org, Timestamp: now,
			Data: map[string]any{"herbSpecies": species, "collector": who, "zone": zone},
		}
	}
	build := func(id, species string, events ...models.Event) models.Batch {
		b := models.Batch{BatchID: id, HerbSpecies: species, Creator: events[0].Participant}
		for _, e := range events {
			b.Append(e)
		}
		return b
	}

	return []models.Batch{
		build("HERB-FX-001", "Ashwagandha",
			collection("COL-FX-1", "Ashwagandha", "Ramesh Kumar", "Satpura Growers", "Satpura Range"),
		),
		build("HERB-FX-002", "Tulsi",
			collection("COL-FX-2", "Tulsi", "Lakshmi Iyer", "Nilgiri Collectors", "Nilgiri Hills"),
			models.Event{
				EventID: "QT-FX-2", EventType: models.EventQualityTest, Participant: "Dr. Meera Rao",
				Organization: "Ayur Labs", Timestamp: now,
				Data: map[string]any{"labName": "Ayur Labs", "purity": 97.2, "pesticideLevel": 0.04},
			},
		),
		build("HERB-FX-003", "Brahmi",
			collection("COL-FX-3", "Brahmi", "Arjun Singh", "Kumaon Cooperative", "Kumaon Himalaya"),
			models.Event{
				EventID: "QT-FX-3", EventType: models.EventQualityTest, Participant: "Dr. Meera Rao",
				Organization: "Ayur Labs", Timestamp: now,
				Data: map[string]any{"labName": "Ayur Labs", "purity": 96.1, "pesticideLevel": 0.08},
			},
			models.Event{
				EventID: "PROC-FX-3", EventType: models.EventProcessing, Participant: "Vikram Patel",
				Organization: "Himalaya Processing", Timestamp: now,
				Data: map[string]any{"method": "Shade drying", "temperature": 38, "duration": "72h"},
			},
		),
	}, nil
}
