// Package instrumented reports document store latency and failures.
package instrumented

import (
	"context"
	"time"

	"portfolio/application/ports"
	"portfolio/domain/content"
)

// Recorder receives one observation per store call
type Recorder interface {
	RecordStoreOperation(operation string, err error, duration time.Duration)
}

// DocumentStore decorates another store with a Recorder
type DocumentStore struct {
	next     ports.DocumentStore
	recorder Recorder
}

// NewDocumentStore wraps next
func NewDocumentStore(next ports.DocumentStore, recorder Recorder) *DocumentStore {
	return &DocumentStore{next: next, recorder: recorder}
}

// Load delegates and records
func (s *DocumentStore) Load(ctx context.Context) (*content.Document, error) {
	start := time.Now()
	doc, err := s.next.Load(ctx)
	s.recorder.RecordStoreOperation("load", err, time.Since(start))
	return doc, err
}

// Save delegates and records
func (s *DocumentStore) Save(ctx context.Context, doc *content.Document) error {
	start := time.Now()
	err := s.next.Save(ctx, doc)
	s.recorder.RecordStoreOperation("save", err, time.Since(start))
	return err
}

// Ensure delegates and records
func (s *DocumentStore) Ensure(ctx context.Context) (bool, error) {
	start := time.Now()
	created, err := s.next.Ensure(ctx)
	s.recorder.RecordStoreOperation("ensure", err, time.Since(start))
	return created, err
}
