// Package chaincode is the Fabric smart contract holding the herb batch ledger
// on-chain. It mirrors ledger.Ledger: batches open with a COLLECTION event,
// later stages are appended, and lookups accept batch or event ids.
package chaincode

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"herbtrace/models"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

const (
	batchPrefix = "BATCH_"
	eventPrefix = "EVENT_"
)

// HerbContract provides the batch traceability transactions.
type HerbContract struct {
	contractapi.Contract
}

// CreateBatch opens a batch with its collection event. data is the event
// payload as a JSON object.
func (c *HerbContract) CreateBatch(ctx contractapi.TransactionContextInterface, batchID, eventID, herbSpecies, participant, organization, data string) error {
	if strings.TrimSpace(batchID) == "" || strings.TrimSpace(eventID) == "" {
		return fmt.Errorf("batch and event ids are required")
	}
	if strings.TrimSpace(herbSpecies) == "" {
		return fmt.Errorf("herb species is required")
	}
	existing, err := ctx.GetStub().GetState(batchPrefix + batchID)
	if err != nil {
		return fmt.Errorf("failed to read batch %s: %v", batchID, err)
	}
	if existing != nil {
		return fmt.Errorf("batch %s already exists", batchID)
	}

	ev, err := newEvent(ctx, eventID, models.EventCollection, participant, organization, data)
	if err != nil {
		return err
	}
	b := models.Batch{BatchID: batchID, HerbSpecies: herbSpecies, Creator: participant}
	b.Append(ev)
	return putBatch(ctx, b, eventID)
}

// AppendEvent records the next pipeline stage on an existing batch. Stages
// cannot be skipped or repeated.
func (c *HerbContract) AppendEvent(ctx contractapi.TransactionContextInterface, batchID, eventID, eventType, participant, organization, data string) error {
	typ := models.EventType(eventType)
	if !typ.Valid() || typ == models.EventCollection {
		return fmt.Errorf("cannot append event type %q", eventType)
	}
	if strings.TrimSpace(eventID) == "" {
		return fmt.Errorf("event id is required")
	}
	b, err := readBatch(ctx, batchID)
	if err != nil {
		return err
	}
	if idx, _ := ctx.GetStub().GetState(eventPrefix + eventID); idx != nil {
		return fmt.Errorf("event %s already recorded", eventID)
	}
	next, ok := models.NextEvent(b.CurrentStatus)
	if !ok {
		return fmt.Errorf("batch %s is %s and takes no further events", batchID, b.CurrentStatus)
	}
	if typ != next {
		return fmt.Errorf("batch %s is %s and expects %s, got %s", batchID, b.CurrentStatus, next, typ)
	}

	ev, err := newEvent(ctx, eventID, typ, participant, organization, data)
	if err != nil {
		return err
	}
	b.Append(ev)
	return putBatch(ctx, *b, eventID)
}

// GetBatchInfo returns the batch as JSON, looked up by batch id or by the id
// of any of its events.
func (c *HerbContract) GetBatchInfo(ctx contractapi.TransactionContextInterface, id string) (string, error) {
	id = strings.TrimSpace(id)
	raw, err := ctx.GetStub().GetState(batchPrefix + id)
	if err != nil {
		return "", fmt.Errorf("failed to read batch %s: %v", id, err)
	}
	if raw == nil {
		batchID, err := ctx.GetStub().GetState(eventPrefix + id)
		if err != nil {
			return "", fmt.Errorf("failed to read event index %s: %v", id, err)
		}
		if batchID == nil {
			return "", fmt.Errorf("batch %s does not exist", id)
		}
		if raw, err = ctx.GetStub().GetState(batchPrefix + string(batchID)); err != nil || raw == nil {
			return "", fmt.Errorf("batch %s does not exist", batchID)
		}
	}
	return string(raw), nil
}

// ListBatches returns every batch as a JSON array, most recently updated first.
func (c *HerbContract) ListBatches(ctx contractapi.TransactionContextInterface) (string, error) {
	iter, err := ctx.GetStub().GetStateByRange(batchPrefix, batchPrefix+"~")
	if err != nil {
		return "", fmt.Errorf("failed to list batches: %v", err)
	}
	defer iter.Close()

	list := []models.Batch{}
	for iter.HasNext() {
		kv, err := iter.Next()
		if err != nil {
			return "", fmt.Errorf("failed to iterate batches: %v", err)
		}
		var b models.Batch
		if err := json.Unmarshal(kv.Value, &b); err != nil {
			return "", fmt.Errorf("failed to unmarshal batch %s: %v", kv.Key, err)
		}
		list = append(list, b)
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].LastUpdated.After(list[j].LastUpdated) })

	out, err := json.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("failed to marshal batches: %v", err)
	}
	return string(out), nil
}

func newEvent(ctx contractapi.TransactionContextInterface, eventID string, typ models.EventType, participant, organization, data string) (models.Event, error) {
	var payload map[string]any
	if strings.TrimSpace(data) != "" {
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			return models.Event{}, fmt.Errorf("event data must be a JSON object: %v", err)
		}
	}
	// the transaction timestamp keeps every endorsing peer deterministic
	ts, err := ctx.GetStub().GetTxTimestamp()
	if err != nil {
		return models.Event{}, fmt.Errorf("failed to read tx timestamp: %v", err)
	}
	return models.Event{
		EventID:      eventID,
		EventType:    typ,
		Participant:  participant,
		Organization: organization,
		Timestamp:    ts.AsTime().UTC(),
		Data:         payload,
	}, nil
}

func readBatch(ctx contractapi.TransactionContextInterface, batchID string) (*models.Batch, error) {
	raw, err := ctx.GetStub().GetState(batchPrefix + batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch %s: %v", batchID, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("batch %s does not exist", batchID)
	}
	var b models.Batch
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("failed to unmarshal batch %s: %v", batchID, err)
	}
	return &b, nil
}

func putBatch(ctx contractapi.TransactionContextInterface, b models.Batch, eventID string) error {
	raw, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to marshal batch: %v", err)
	}
	if err := ctx.GetStub().PutState(batchPrefix+b.BatchID, raw); err != nil {
		return err
	}
	return ctx.GetStub().PutState(eventPrefix+eventID, []byte(b.BatchID))
}
