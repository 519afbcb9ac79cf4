package memory

import (
	"context"
	"sync"

	"portfolio/domain/content"
)

// DocumentStore keeps the encoded document in memory. It stores bytes
// rather than the struct so Load always hands out an independent copy,
// the same way the file store does.
type DocumentStore struct {
	mu     sync.RWMutex
	data   []byte
	saves  int
	failOn error
}

// NewDocumentStore creates an empty in-memory store. Call Ensure or Save
// before Load.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{}
}

// NewDocumentStoreWith creates a store already holding doc.
func NewDocumentStoreWith(doc *content.Document) (*DocumentStore, error) {
	data, err := content.Encode(doc)
	if err != nil {
		return nil, err
	}
	return &DocumentStore{data: data}, nil
}

// Load decodes the stored document
func (s *DocumentStore) Load(ctx context.Context) (*content.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.failOn != nil {
		return nil, s.failOn
	}
	if s.data == nil {
		return content.NewDocument(), nil
	}
	return content.Decode(s.data)
}

// Save replaces the stored document
func (s *DocumentStore) Save(ctx context.Context, doc *content.Document) error {
	data, err := content.Encode(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failOn != nil {
		return s.failOn
	}
	s.data = data
	s.saves++
	return nil
}

// Ensure stores the empty document if nothing is held yet
func (s *DocumentStore) Ensure(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data != nil {
		return false, nil
	}
	data, err := content.Encode(content.NewDocument())
	if err != nil {
		return false, err
	}
	s.data = data
	return true, nil
}

// Bytes returns a copy of the encoded document.
func (s *DocumentStore) Bytes() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]byte(nil), s.data...)
}

// Saves reports how many successful writes the store has seen.
func (s *DocumentStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

// FailWith makes every following Load and Save return err. Pass nil to
// recover.
func (s *DocumentStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOn = err
}
