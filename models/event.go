package models

import (
	"maps"
	"strings"
	"time"
)

// EventType tags the stage a recorded event belongs to.
type EventType string

const (
	EventCollection    EventType = "COLLECTION"
	EventQualityTest   EventType = "QUALITY_TEST"
	EventProcessing    EventType = "PROCESSING"
	EventManufacturing EventType = "MANUFACTURING"
)

// Valid reports whether t is one of the four pipeline stages.
func (t EventType) Valid() bool {
	switch t {
	case EventCollection, EventQualityTest, EventProcessing, EventManufacturing:
		return true
	}
	return false
}

// Status is the batch status an event of this type leaves behind.
func (t EventType) Status() BatchStatus {
	switch t {
	case EventCollection:
		return StatusCollected
	case EventQualityTest:
		return StatusQualityTested
	case EventProcessing:
		return StatusProcessed
	case EventManufacturing:
		return StatusManufactured
	}
	return StatusInProgress
}

// PriorStatus is the status a batch must be in to accept an event of type t.
func (t EventType) PriorStatus() (BatchStatus, bool) {
	for s, next := range nextEvents {
		if next == t {
			return s, true
		}
	}
	return "", false
}

// Title is the heading used for timeline entries ("QUALITY TEST").
func (t EventType) Title() string {
	return strings.ReplaceAll(string(t), "_", " ")
}

// IDPrefix is the prefix used when generating event ids of this type.
func (t EventType) IDPrefix() string {
	switch t {
	case EventCollection:
		return "COL"
	case EventQualityTest:
		return "QT"
	case EventProcessing:
		return "PROC"
	case EventManufacturing:
		return "MFG"
	}
	return "EVT"
}

// Event is one recorded stage transition. Data stays loosely typed on the wire
// and in storage; use Details to get the typed view.
type Event struct {
	EventID      string         `bson:"eventId"      json:"eventId"`
	EventType    EventType      `bson:"eventType"    json:"eventType"`
	Participant  string         `bson:"participant"  json:"participant"`
	Organization string         `bson:"organization" json:"organization"`
	Timestamp    time.Time      `bson:"timestamp"    json:"timestamp"`
	Data         map[string]any `bson:"data"         json:"data"`
}

// Clone copies the event, including a shallow copy of its data map.
func (e Event) Clone() Event {
	out := e
	if e.Data != nil {
		out.Data = maps.Clone(e.Data)
	}
	return out
}
