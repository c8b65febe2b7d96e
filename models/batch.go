package models

import (
	"strings"
	"time"
)

// BatchStatus is the pipeline stage a batch last reached.
type BatchStatus string

const (
	StatusCollected     BatchStatus = "COLLECTED"
	StatusQualityTested BatchStatus = "QUALITY_TESTED"
	StatusProcessed     BatchStatus = "PROCESSED"
	StatusManufactured  BatchStatus = "MANUFACTURED"
	StatusInProgress    BatchStatus = "IN_PROGRESS"
)

// Label renders the status the way badges show it ("QUALITY TESTED").
func (s BatchStatus) Label() string {
	return strings.ReplaceAll(string(s), "_", " ")
}

var nextSteps = map[BatchStatus]string{
	StatusCollected:     "Ready for Quality Testing",
	StatusQualityTested: "Ready for Processing",
	StatusProcessed:     "Ready for Manufacturing",
	StatusManufactured:  "Supply Chain Complete",
}

// NextStep is the human hint for what happens after the given status.
func NextStep(s BatchStatus) string {
	if step, ok := nextSteps[s]; ok {
		return step
	}
	return "In Progress"
}

// nextEvents is the only stage that may follow each status.
var nextEvents = map[BatchStatus]EventType{
	StatusCollected:     EventQualityTest,
	StatusQualityTested: EventProcessing,
	StatusProcessed:     EventManufacturing,
}

// NextEvent is the event type a batch in status s accepts next. Manufactured
// batches accept nothing.
func NextEvent(s BatchStatus) (EventType, bool) {
	t, ok := nextEvents[s]
	return t, ok
}

// Batch is a traceable unit of herb product and its recorded events.
type Batch struct {
	BatchID       string      `bson:"_id"           json:"batchId"`
	HerbSpecies   string      `bson:"herbSpecies"   json:"herbSpecies"`
	CurrentStatus BatchStatus `bson:"currentStatus" json:"currentStatus"`
	Creator       string      `bson:"creator"       json:"creator"`
	EventCount    int         `bson:"eventCount"    json:"eventCount"`
	LastUpdated   time.Time   `bson:"lastUpdated"   json:"lastUpdated"`
	Events        []Event     `bson:"events"        json:"events"`
}

// LatestEvent returns the last recorded event, or false when there is none.
func (b *Batch) LatestEvent() (Event, bool) {
	if b == nil || len(b.Events) == 0 {
		return Event{}, false
	}
	return b.Events[len(b.Events)-1], true
}

// HasEvent reports whether eventID belongs to the batch.
func (b *Batch) HasEvent(eventID string) bool {
	for _, e := range b.Events {
		if e.EventID == eventID {
			return true
		}
	}
	return false
}

// Append records ev as the newest event and moves the status along with it.
func (b *Batch) Append(ev Event) {
	b.Events = append(b.Events, ev)
	b.EventCount = len(b.Events)
	b.LastUpdated = ev.Timestamp
	b.CurrentStatus = ev.EventType.Status()
}

// Clone returns a copy whose event slice can be appended to independently.
func (b Batch) Clone() Batch {
	out := b
	out.Events = make([]Event, len(b.Events))
	for i, e := range b.Events {
		out.Events[i] = e.Clone()
	}
	return out
}
