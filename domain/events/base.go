package events

import (
	"time"
)

// Source identifies this service on event buses
const Source = "portfolio.content"

// Event types
const (
	TypeContentCreated     = "content.created"
	TypeContentUpdated     = "content.updated"
	TypeContentDeleted     = "content.deleted"
	TypeAttachmentUploaded = "attachment.uploaded"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

// ContentChanged is raised after a mutation of the content document has
// been persisted. ItemID is empty for singleton kinds.
type ContentChanged struct {
	BaseEvent
	Kind   string `json:"kind"`
	ItemID string `json:"item_id,omitempty"`
}

// NewContentChanged creates a ContentChanged event of the given type
func NewContentChanged(eventType, kind, itemID string, timestamp time.Time) ContentChanged {
	aggregate := kind
	if itemID != "" {
		aggregate = kind + "/" + itemID
	}
	return ContentChanged{
		BaseEvent: BaseEvent{
			AggregateID: aggregate,
			EventType:   eventType,
			Timestamp:   timestamp,
			Version:     1,
		},
		Kind:   kind,
		ItemID: itemID,
	}
}

// AttachmentUploaded is raised after an uploaded file has been stored
type AttachmentUploaded struct {
	BaseEvent
	Name string `json:"name"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// NewAttachmentUploaded creates an AttachmentUploaded event
func NewAttachmentUploaded(name, url string, size int64, timestamp time.Time) AttachmentUploaded {
	return AttachmentUploaded{
		BaseEvent: BaseEvent{
			AggregateID: name,
			EventType:   TypeAttachmentUploaded,
			Timestamp:   timestamp,
			Version:     1,
		},
		Name: name,
		URL:  url,
		Size: size,
	}
}
