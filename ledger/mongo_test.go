package ledger

import (
	"context"
	"testing"

	"herbtrace/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func batchDoc(status models.BatchStatus, eventIDs ...string) bson.D {
	events := bson.A{}
	for _, id := range eventIDs {
		events = append(events, bson.D{{Key: "eventId", Value: id}})
	}
	return bson.D{
		{Key: "_id", Value: "HERB-1"},
		{Key: "herbSpecies", Value: "Tulsi"},
		{Key: "currentStatus", Value: string(status)},
		{Key: "eventCount", Value: len(eventIDs)},
		{Key: "events", Value: events},
	}
}

func TestMongo_AppendEvent(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	tester := models.Actor{Name: "Dr. Rao", Role: models.RoleQualityTest}
	qt := StageEvent{EventID: "QT-1", EventType: models.EventQualityTest}

	mt.Run("next stage", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "value", Value: batchDoc(models.StatusQualityTested, "COL-1", "QT-1")}))
		b, err := NewMongo(mt.DB).AppendEvent(context.Background(), "HERB-1", tester, qt)
		require.NoError(mt, err)
		assert.Equal(mt, models.StatusQualityTested, b.CurrentStatus)
		assert.Equal(mt, 2, b.EventCount)

		// the update only matches a batch still in the prior stage
		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		query := started.Command.Lookup("query").Document()
		assert.Equal(mt, "COLLECTED", query.Lookup("currentStatus").StringValue())
	})

	mt.Run("skipped stage", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateCursorResponse(0, "herbtrace.batches", mtest.FirstBatch, batchDoc(models.StatusCollected, "COL-1")),
		)
		_, err := NewMongo(mt.DB).AppendEvent(context.Background(), "HERB-1", tester,
			StageEvent{EventID: "MFG-1", EventType: models.EventManufacturing})
		assert.ErrorIs(mt, err, ErrInvalidEvent)
		assert.ErrorContains(mt, err, "expects QUALITY_TEST")
	})

	mt.Run("finished batch", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateCursorResponse(0, "herbtrace.batches", mtest.FirstBatch,
				batchDoc(models.StatusManufactured, "COL-1", "QT-1", "PROC-1", "MFG-1")),
		)
		_, err := NewMongo(mt.DB).AppendEvent(context.Background(), "HERB-1", tester, qt)
		assert.ErrorIs(mt, err, ErrInvalidEvent)
		assert.ErrorContains(mt, err, "takes no further events")
	})

	mt.Run("missing batch", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateCursorResponse(0, "herbtrace.batches", mtest.FirstBatch),
		)
		_, err := NewMongo(mt.DB).AppendEvent(context.Background(), "HERB-9", tester, qt)
		assert.ErrorIs(mt, err, ErrNotFound)
	})
}

func TestMongo_GetBatchInfo(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("by event id", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "herbtrace.batches", mtest.FirstBatch,
			batchDoc(models.StatusCollected, "COL-1")))
		b, err := NewMongo(mt.DB).GetBatchInfo(context.Background(), " COL-1 ")
		require.NoError(mt, err)
		assert.Equal(mt, "HERB-1", b.BatchID)
	})

	mt.Run("not found", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "herbtrace.batches", mtest.FirstBatch))
		_, err := NewMongo(mt.DB).GetBatchInfo(context.Background(), "HERB-404")
		assert.ErrorIs(mt, err, ErrNotFound)
	})
}
