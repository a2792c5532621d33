package capflow

// Append-only event log for entity lifecycle changes. Same shape as the
// teacher's event_store.go (JournalEvent + JSON payload + replay), retargeted
// from ledger events (account/transaction create/post) to entity events
// (create/update/delete), which is what this domain's audit trail needs.

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

const (
	EventEntityCreated = "ENTITY_CREATED"
	EventEntityUpdated = "ENTITY_UPDATED"
	EventEntityDeleted = "ENTITY_DELETED"
	EventScenarioRun    = "SCENARIO_RUN"
)

// JournalEvent is the atomic, append-only log record used to reconstruct
// state (same shape as the teacher's version in accounting.go, kept here
// since accounting.go no longer exists).
type JournalEvent struct {
	ID              string    `json:"id"`
	EventType       string    `json:"event_type"`
	Payload         []byte    `json:"payload"`
	ValidTime       time.Time `json:"valid_time"`
	TransactionTime time.Time `json:"transaction_time"`
	UserID          string    `json:"user_id,omitempty"`
}

type EntityCreatedEvent struct {
	ID     string     `json:"id"`
	Kind   EntityKind `json:"kind"`
	Name   string     `json:"name"`
}

type EntityUpdatedEvent struct {
	ID     string     `json:"id"`
	Kind   EntityKind `json:"kind"`
}

type EntityDeletedEvent struct {
	ID string `json:"id"`
}

type ScenarioRunEvent struct {
	ScenarioName string    `json:"scenario_name"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
}

// EventStore manages the append-only event log, backed by the same bbolt
// database as the entity Store.
type EventStore struct {
	db *bbolt.DB
}

// NewEventStore attaches an event log to the same bbolt database an entity
// Store already opened.
func NewEventStore(store *Store) *EventStore { return &EventStore{db: store.db} }

// CreateEvent marshals payload and appends a new journal event.
func (es *EventStore) CreateEvent(eventType string, payload any, validTime time.Time, userID string) (*JournalEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errInternal("marshaling event payload: %v", err)
	}
	event := &JournalEvent{
		ID:              uuid.New().String(),
		EventType:       eventType,
		Payload:         data,
		ValidTime:       validTime,
		TransactionTime: time.Now(),
		UserID:          userID,
	}
	if err := es.append(event); err != nil {
		return nil, err
	}
	return event, nil
}

func (es *EventStore) append(event *JournalEvent) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return errInternal("marshaling event %q: %v", event.ID, err)
	}
	return es.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(BucketEvents).Put([]byte(event.ID), raw)
	})
}

// GetEvents retrieves every event with ValidTime within [from, to].
func (es *EventStore) GetEvents(from, to time.Time) ([]*JournalEvent, error) {
	var events []*JournalEvent
	err := es.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(BucketEvents)
		return b.ForEach(func(k, v []byte) error {
			var event JournalEvent
			if err := json.Unmarshal(v, &event); err != nil {
				return err
			}
			if !event.ValidTime.Before(from) && !event.ValidTime.After(to) {
				events = append(events, &event)
			}
			return nil
		})
	})
	if err != nil {
		return nil, errInternal("scanning events: %v", err)
	}
	return events, nil
}

// ReplayEvents replays every event in [from, to], in storage order, through
// handler — used to rebuild projections or audit a scenario run.
func (es *EventStore) ReplayEvents(from, to time.Time, handler func(*JournalEvent) error) error {
	events, err := es.GetEvents(from, to)
	if err != nil {
		return err
	}
	for _, event := range events {
		if err := handler(event); err != nil {
			return errInternal("handling event %s: %v", event.ID, err)
		}
	}
	return nil
}
