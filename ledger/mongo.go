package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"herbtrace/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo stores one document per batch with its events embedded in order.
type Mongo struct {
	batches *mongo.Collection
	ids     idGenerator
	now     func() time.Time
}

// NewMongo uses the "batches" collection of db.
func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{batches: db.Collection("batches"), now: time.Now}
}

// Initialize creates the indexes lookups rely on.
func (m *Mongo) Initialize(ctx context.Context) error {
	_, err := m.batches.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "events.eventId", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{Keys: bson.D{{Key: "lastUpdated", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("create batch indexes: %w", err)
	}
	return nil
}

func (m *Mongo) GenerateBatchID() string { return m.ids.batchID() }

func (m *Mongo) GenerateEventID(prefix string) string { return m.ids.eventID(prefix) }

func (m *Mongo) CreateBatch(ctx context.Context, actor models.Actor, p CollectionPayload) (*models.Batch, error) {
	b, err := newBatch(actor, p, m.now())
	if err != nil {
		return nil, err
	}
	if _, err := m.batches.InsertOne(ctx, &b); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: %s", ErrExists, b.BatchID)
		}
		return nil, fmt.Errorf("insert batch: %w", err)
	}
	return &b, nil
}

func (m *Mongo) AppendEvent(ctx context.Context, batchID string, actor models.Actor, ev StageEvent) (*models.Batch, error) {
	e, err := newStageEvent(actor, ev, m.now())
	if err != nil {
		return nil, err
	}
	// the status filter makes the stage check and the push one atomic step
	prior, _ := e.EventType.PriorStatus()
	res := m.batches.FindOneAndUpdate(
		ctx,
		bson.M{"_id": batchID, "currentStatus": prior},
		bson.M{
			"$push": bson.M{"events": e},
			"$inc":  bson.M{"eventCount": 1},
			"$set": bson.M{
				"currentStatus": e.EventType.Status(),
				"lastUpdated":   e.Timestamp,
			},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var out models.Batch
	if err := res.Decode(&out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, m.appendRejected(ctx, batchID, e.EventType)
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: duplicate event id %s", ErrInvalidEvent, e.EventID)
		}
		return nil, fmt.Errorf("append event: %w", err)
	}
	return &out, nil
}

// appendRejected explains why the guarded update matched no document.
func (m *Mongo) appendRejected(ctx context.Context, batchID string, typ models.EventType) error {
	var b models.Batch
	if err := m.batches.FindOne(ctx, bson.M{"_id": batchID}).Decode(&b); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("%w: %s", ErrNotFound, batchID)
		}
		return fmt.Errorf("find batch: %w", err)
	}
	if err := checkStage(&b, typ); err != nil {
		return err
	}
	return fmt.Errorf("%w: batch %s changed while appending", ErrInvalidEvent, batchID)
}

func (m *Mongo) GetBatchInfo(ctx context.Context, idOrEventID string) (*models.Batch, error) {
	id := strings.TrimSpace(idOrEventID)
	filter := bson.M{"$or": bson.A{
		bson.M{"_id": id},
		bson.M{"events.eventId": id},
	}}

	var out models.Batch
	if err := m.batches.FindOne(ctx, filter).Decode(&out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("find batch: %w", err)
	}
	return &out, nil
}

func (m *Mongo) ListBatches(ctx context.Context) ([]models.Batch, error) {
	cur, err := m.batches.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "lastUpdated", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer cur.Close(ctx)

	var out []models.Batch
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode batches: %w", err)
	}
	return out, nil
}
