package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"portfolio/application/ports"
	"portfolio/domain/content"
	"portfolio/domain/events"
	pkgerrors "portfolio/pkg/errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Operation names used for spans, metrics and logs
const (
	OpListAll    = "list_all"
	OpListByKind = "list_by_kind"
	OpCreate     = "create"
	OpUpdate     = "update"
	OpDelete     = "delete"
)

// MutationRecorder receives one observation per content mutation.
type MutationRecorder interface {
	RecordMutation(kind, operation, outcome string)
}

// ContentService is the content repository: every operation loads the full
// document from the store, and every mutation writes it back whole.
//
// Mutations are serialised by an in-process mutex so concurrent requests to
// one server cannot lose each other's updates. Reads are not locked.
type ContentService struct {
	store     ports.DocumentStore
	publisher ports.EventPublisher
	recorder  MutationRecorder
	tracer    trace.Tracer
	ids       *IDGenerator
	now       func() time.Time
	logger    *zap.Logger

	mu sync.Mutex
}

// ContentServiceOption configures optional collaborators
type ContentServiceOption func(*ContentService)

// WithEventPublisher publishes a change event after each persisted mutation.
func WithEventPublisher(p ports.EventPublisher) ContentServiceOption {
	return func(s *ContentService) { s.publisher = p }
}

// WithMutationRecorder reports mutation outcomes, typically to metrics.
func WithMutationRecorder(r MutationRecorder) ContentServiceOption {
	return func(s *ContentService) { s.recorder = r }
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) ContentServiceOption {
	return func(s *ContentService) { s.tracer = t }
}

// WithClock replaces the wall clock used for ids and event timestamps.
func WithClock(now func() time.Time) ContentServiceOption {
	return func(s *ContentService) {
		s.now = now
		s.ids = NewIDGenerator(now)
	}
}

// NewContentService creates a new content service
func NewContentService(store ports.DocumentStore, logger *zap.Logger, opts ...ContentServiceOption) *ContentService {
	s := &ContentService{
		store:  store,
		tracer: otel.Tracer("portfolio/application/services"),
		ids:    NewIDGenerator(time.Now),
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize creates the document with empty defaults when it is absent.
func (s *ContentService) Initialize(ctx context.Context) error {
	created, err := s.store.Ensure(ctx)
	if err != nil {
		return pkgerrors.NewStoreIOError("initialize", err)
	}
	if created {
		s.logger.Info("Created new content document")
	} else {
		s.logger.Info("Content document exists")
	}
	return nil
}

// Ready reports whether the document can currently be read.
func (s *ContentService) Ready(ctx context.Context) error {
	_, err := s.load(ctx)
	return err
}

// ListAll returns every collection item tagged with its kind.
func (s *ContentService) ListAll(ctx context.Context) (_ []content.TaggedItem, err error) {
	ctx, span := s.tracer.Start(ctx, "ContentService.ListAll")
	defer func() { endSpan(span, err) }()

	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Tagged(), nil
}

// ListByKind returns the raw value of one kind: []content.Item for
// collections, content.Fields for contact and a string for about.
func (s *ContentService) ListByKind(ctx context.Context, kindName string) (_ interface{}, err error) {
	ctx, span := s.tracer.Start(ctx, "ContentService.ListByKind",
		trace.WithAttributes(attribute.String("content.kind", kindName)))
	defer func() { endSpan(span, err) }()

	kind, err := content.ParseKind(kindName)
	if err != nil {
		return nil, err
	}

	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Value(kind), nil
}

// Create appends a new item to a collection kind and returns its id, or
// replaces a singleton wholesale and returns an empty id.
func (s *ContentService) Create(ctx context.Context, kindName string, data json.RawMessage) (id string, err error) {
	ctx, span := s.tracer.Start(ctx, "ContentService.Create",
		trace.WithAttributes(attribute.String("content.kind", kindName)))
	defer func() {
		endSpan(span, err)
		s.record(kindName, OpCreate, err)
	}()

	kind, err := content.ParseKind(kindName)
	if err != nil {
		return "", err
	}

	if kind.IsSingleton() {
		apply, err := singletonSetter(kind, data)
		if err != nil {
			return "", err
		}
		err = s.mutate(ctx, func(doc *content.Document) error {
			apply(doc)
			return nil
		})
		if err != nil {
			return "", err
		}
		s.publish(ctx, events.TypeContentCreated, kind, "")
		return "", nil
	}

	fields, err := content.ItemFields(kind, data)
	if err != nil {
		return "", err
	}

	err = s.mutate(ctx, func(doc *content.Document) error {
		id = s.ids.Next(func(candidate string) bool { return doc.HasID(kind, candidate) })
		doc.SetItems(kind, append(doc.Items(kind), content.NewItem(id, fields)))
		return nil
	})
	if err != nil {
		return "", err
	}

	span.SetAttributes(attribute.String("content.id", id))
	s.logger.Info("Content created", zap.String("kind", kind.String()), zap.String("id", id))
	s.publish(ctx, events.TypeContentCreated, kind, id)
	return id, nil
}

// Update replaces the item with id in place, keeping its position. For
// singleton kinds the id is ignored and the value is replaced wholesale.
func (s *ContentService) Update(ctx context.Context, kindName, id string, data json.RawMessage) (err error) {
	ctx, span := s.tracer.Start(ctx, "ContentService.Update",
		trace.WithAttributes(attribute.String("content.kind", kindName), attribute.String("content.id", id)))
	defer func() {
		endSpan(span, err)
		s.record(kindName, OpUpdate, err)
	}()

	kind, err := content.ParseKind(kindName)
	if err != nil {
		return err
	}

	if kind.IsSingleton() {
		apply, err := singletonSetter(kind, data)
		if err != nil {
			return err
		}
		if err := s.mutate(ctx, func(doc *content.Document) error {
			apply(doc)
			return nil
		}); err != nil {
			return err
		}
		s.publish(ctx, events.TypeContentUpdated, kind, "")
		return nil
	}

	fields, err := content.ItemFields(kind, data)
	if err != nil {
		return err
	}

	err = s.mutate(ctx, func(doc *content.Document) error {
		idx := doc.IndexOf(kind, id)
		if idx < 0 {
			return notFound(id)
		}
		doc.Items(kind)[idx] = content.NewItem(id, fields)
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Content updated", zap.String("kind", kind.String()), zap.String("id", id))
	s.publish(ctx, events.TypeContentUpdated, kind, id)
	return nil
}

// Delete removes the item with id from a collection kind, or resets a
// singleton kind to its empty value.
func (s *ContentService) Delete(ctx context.Context, kindName, id string) (err error) {
	ctx, span := s.tracer.Start(ctx, "ContentService.Delete",
		trace.WithAttributes(attribute.String("content.kind", kindName), attribute.String("content.id", id)))
	defer func() {
		endSpan(span, err)
		s.record(kindName, OpDelete, err)
	}()

	kind, err := content.ParseKind(kindName)
	if err != nil {
		return err
	}

	err = s.mutate(ctx, func(doc *content.Document) error {
		if kind.IsSingleton() {
			doc.ResetSingleton(kind)
			return nil
		}
		items := doc.Items(kind)
		idx := doc.IndexOf(kind, id)
		if idx < 0 {
			return notFound(id)
		}
		remaining := make([]content.Item, 0, len(items)-1)
		remaining = append(remaining, items[:idx]...)
		remaining = append(remaining, items[idx+1:]...)
		doc.SetItems(kind, remaining)
		return nil
	})
	if err != nil {
		return err
	}

	if kind.IsSingleton() {
		id = ""
	}
	s.logger.Info("Content deleted", zap.String("kind", kind.String()), zap.String("id", id))
	s.publish(ctx, events.TypeContentDeleted, kind, id)
	return nil
}

// mutate runs one locked read-modify-write cycle. When change fails the
// document is not written.
func (s *ContentService) mutate(ctx context.Context, change func(doc *content.Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	if err := change(doc); err != nil {
		return err
	}
	if err := s.store.Save(ctx, doc); err != nil {
		if errors.Is(err, ports.ErrRevisionConflict) {
			return pkgerrors.NewConflictError("Content was modified concurrently, retry the request", err)
		}
		return pkgerrors.NewStoreIOError("write", err)
	}
	return nil
}

func (s *ContentService) load(ctx context.Context) (*content.Document, error) {
	doc, err := s.store.Load(ctx)
	if err != nil {
		return nil, pkgerrors.NewStoreIOError("read", err)
	}
	return doc, nil
}

func (s *ContentService) publish(ctx context.Context, eventType string, kind content.Kind, id string) {
	if s.publisher == nil {
		return
	}
	event := events.NewContentChanged(eventType, kind.String(), id, s.now())
	if err := s.publisher.Publish(ctx, event); err != nil {
		// The document is already persisted; a lost notification is not fatal
		s.logger.Warn("Failed to publish content event",
			zap.String("eventType", eventType),
			zap.String("kind", kind.String()),
			zap.Error(err),
		)
	}
}

func (s *ContentService) record(kindName, operation string, err error) {
	if s.recorder == nil {
		return
	}
	s.recorder.RecordMutation(KindLabel(kindName), operation, Outcome(err))
}

// KindLabel maps a requested kind onto a bounded set of metric label values:
// the canonical kind name, or "unknown" for anything unrecognised.
func KindLabel(kindName string) string {
	kind, err := content.ParseKind(kindName)
	if err != nil {
		return "unknown"
	}
	return kind.String()
}

// Outcome classifies an operation result for metrics labels.
func Outcome(err error) string {
	if err == nil {
		return "success"
	}
	return string(pkgerrors.TypeOf(err))
}

// singletonSetter validates data for a singleton kind and returns the
// assignment to apply inside the write cycle.
func singletonSetter(kind content.Kind, data json.RawMessage) (func(*content.Document), error) {
	switch kind {
	case content.KindContact:
		fields, err := content.ContactFields(data)
		if err != nil {
			return nil, err
		}
		return func(doc *content.Document) { doc.Contact = fields }, nil
	case content.KindAbout:
		text, err := content.AboutText(data)
		if err != nil {
			return nil, err
		}
		return func(doc *content.Document) { doc.About = text }, nil
	}
	return nil, pkgerrors.NewUnknownKindError(kind.String())
}

func notFound(id string) error {
	return pkgerrors.NewNotFoundError(fmt.Sprintf("Content with id %s", id))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
