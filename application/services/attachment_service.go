package services

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"time"

	"portfolio/application/ports"
	"portfolio/domain/events"
	pkgerrors "portfolio/pkg/errors"
	"portfolio/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Upload validation messages shown to the admin UI
const (
	MsgNoFile             = "No file uploaded"
	MsgDisallowedFileType = "Only PDF, DOC, and DOCX files are allowed"
)

// AllowedAttachmentExtensions lists the accepted upload extensions, lower case.
var AllowedAttachmentExtensions = []string{".pdf", ".doc", ".docx"}

// UploadRecorder receives one observation per upload attempt.
type UploadRecorder interface {
	RecordUpload(outcome string, bytes int64)
}

// Attachment describes a stored upload.
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// AttachmentService validates uploads and hands them to the attachment store
// under a generated name. It never touches the content document.
type AttachmentService struct {
	store     ports.AttachmentStore
	publisher ports.EventPublisher
	recorder  UploadRecorder
	now       func() time.Time
	suffix    func() string
	logger    *zap.Logger
}

// NewAttachmentService creates a new attachment service. publisher and
// recorder may be nil.
func NewAttachmentService(store ports.AttachmentStore, publisher ports.EventPublisher, recorder UploadRecorder, logger *zap.Logger) *AttachmentService {
	return &AttachmentService{
		store:     store,
		publisher: publisher,
		recorder:  recorder,
		now:       time.Now,
		suffix:    randomSuffix,
		logger:    logger,
	}
}

// Store saves body, originally named filename, and returns where it can be
// fetched. field is the form field the file arrived in and prefixes the
// generated name.
func (s *AttachmentService) Store(ctx context.Context, field, filename string, body io.Reader) (att *Attachment, err error) {
	defer func() {
		if s.recorder == nil {
			return
		}
		var size int64
		if att != nil {
			size = att.Size
		}
		s.recorder.RecordUpload(Outcome(err), size)
	}()

	if body == nil || strings.TrimSpace(filename) == "" {
		return nil, pkgerrors.NewValidationError(MsgNoFile)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !isAllowedExtension(ext) {
		return nil, pkgerrors.NewValidationError(MsgDisallowedFileType).
			WithDetails(map[string]interface{}{"extension": ext})
	}

	name := s.generateName(field, ext)
	counter := &countingReader{r: body}
	url, err := s.store.Put(ctx, name, counter)
	if err != nil {
		if pkgerrors.IsAppError(err) {
			return nil, err
		}
		return nil, pkgerrors.NewStoreIOError("store attachment", err)
	}

	att = &Attachment{Name: name, URL: url, Size: counter.n}
	s.logger.Info("Attachment stored",
		zap.String("name", name),
		zap.String("original", filename),
		zap.Int64("bytes", att.Size),
	)

	if s.publisher != nil {
		event := events.NewAttachmentUploaded(att.Name, att.URL, att.Size, s.now())
		if perr := s.publisher.Publish(ctx, event); perr != nil {
			s.logger.Warn("Failed to publish attachment event", zap.String("name", name), zap.Error(perr))
		}
	}
	return att, nil
}

func (s *AttachmentService) generateName(field, ext string) string {
	if field == "" {
		field = "file"
	}
	return field + "-" + utils.UnixMilli(s.now()) + "-" + s.suffix() + ext
}

func isAllowedExtension(ext string) bool {
	for _, allowed := range AllowedAttachmentExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
