// Package jsonfile stores the content document as one pretty-printed JSON
// file on local disk.
package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"portfolio/domain/content"

	"go.uber.org/zap"
)

const (
	filePerm = 0o644
	dirPerm  = 0o755
)

// DocumentStore reads the file on every Load and replaces it atomically on
// every Save, so a failed write never leaves a truncated document behind.
type DocumentStore struct {
	path   string
	writes *WriteLog
	logger *zap.Logger
}

// StoreOption configures a DocumentStore
type StoreOption func(*DocumentStore)

// WithWriteLog records every saved payload in l.
func WithWriteLog(l *WriteLog) StoreOption {
	return func(s *DocumentStore) { s.writes = l }
}

// NewDocumentStore creates a store for the file at path
func NewDocumentStore(path string, logger *zap.Logger, opts ...StoreOption) *DocumentStore {
	s := &DocumentStore{
		path:   filepath.Clean(path),
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the backing file path
func (s *DocumentStore) Path() string {
	return s.path
}

// Load reads and decodes the file
func (s *DocumentStore) Load(ctx context.Context) (*content.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read content file: %w", err)
	}
	return content.Decode(data)
}

// Save encodes doc into a temporary file next to the target and renames it
// over the target.
func (s *DocumentStore) Save(ctx context.Context, doc *content.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := content.Encode(doc)
	if err != nil {
		return err
	}
	s.writes.record(data)
	return s.writeAtomic(data)
}

// Ensure creates the parent directory and, when the file is absent, writes
// the empty default document.
func (s *DocumentStore) Ensure(ctx context.Context) (bool, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), dirPerm); err != nil {
		return false, fmt.Errorf("failed to create content directory: %w", err)
	}

	_, err := os.Stat(s.path)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("failed to stat content file: %w", err)
	}

	s.logger.Info("Creating new content file", zap.String("path", s.path))
	if err := s.Save(ctx, content.NewDocument()); err != nil {
		return false, err
	}
	return true, nil
}

func (s *DocumentStore) writeAtomic(data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write content file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync content file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close content file: %w", err)
	}
	if err = os.Chmod(tmpName, filePerm); err != nil {
		return fmt.Errorf("failed to set content file mode: %w", err)
	}
	if err = os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace content file: %w", err)
	}

	s.logger.Debug("Content file written",
		zap.String("path", s.path),
		zap.Int("bytes", len(data)),
	)
	return nil
}
