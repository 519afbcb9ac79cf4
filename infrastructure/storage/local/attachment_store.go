// Package local stores uploaded attachments in a directory served by the
// HTTP surface.
package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// AttachmentStore writes uploads under dir and addresses them below
// urlPrefix.
type AttachmentStore struct {
	dir       string
	urlPrefix string
	logger    *zap.Logger
}

// NewAttachmentStore creates a new local attachment store
func NewAttachmentStore(dir, urlPrefix string, logger *zap.Logger) *AttachmentStore {
	return &AttachmentStore{
		dir:       filepath.Clean(dir),
		urlPrefix: strings.TrimRight(urlPrefix, "/"),
		logger:    logger,
	}
}

// Dir returns the upload directory
func (s *AttachmentStore) Dir() string {
	return s.dir
}

// Init creates the upload directory
func (s *AttachmentStore) Init() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}
	return nil
}

// Put copies r into dir/name. The name must be a bare file name; the file
// must not already exist.
func (s *AttachmentStore) Put(ctx context.Context, name string, r io.Reader) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid attachment name %q", name)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := s.Init(); err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create attachment: %w", err)
	}

	n, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write attachment: %w", err)
	}

	s.logger.Debug("Attachment written", zap.String("path", path), zap.Int64("bytes", n))
	return s.urlPrefix + "/" + name, nil
}
