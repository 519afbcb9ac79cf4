package ports

import (
	"context"
	"errors"
	"io"

	"portfolio/domain/content"
	"portfolio/domain/events"
)

// ErrRevisionConflict is returned by stores that detect a concurrent write
// between Load and Save.
var ErrRevisionConflict = errors.New("document was modified concurrently")

// DocumentStore persists the whole content document.
// Implementations never cache: every Load reads the backing medium.
type DocumentStore interface {
	// Load reads the full document.
	Load(ctx context.Context) (*content.Document, error)

	// Save replaces the full document. A failed Save leaves the previous
	// document intact.
	Save(ctx context.Context, doc *content.Document) error

	// Ensure creates the document with empty defaults if it does not exist.
	Ensure(ctx context.Context) (created bool, err error)
}

// EventPublisher broadcasts content change events
type EventPublisher interface {
	Publish(ctx context.Context, event events.DomainEvent) error
}

// AttachmentStore keeps uploaded files
type AttachmentStore interface {
	// Put stores the stream under name and returns the retrievable URL.
	Put(ctx context.Context, name string, r io.Reader) (string, error)
}
