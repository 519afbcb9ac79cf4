package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"portfolio/application/ports"
	"portfolio/domain/content"
	"portfolio/domain/events"
	"portfolio/infrastructure/persistence/jsonfile"
	"portfolio/infrastructure/persistence/memory"
	pkgerrors "portfolio/pkg/errors"
	"portfolio/pkg/observability"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockEventPublisher is a mock implementation of ports.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type recordedMutation struct {
	kind, operation, outcome string
}

type fakeRecorder struct {
	mu   sync.Mutex
	seen []recordedMutation
}

func (r *fakeRecorder) RecordMutation(kind, operation, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, recordedMutation{kind, operation, outcome})
}

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func newMemoryService(t *testing.T, opts ...ContentServiceOption) (*ContentService, *memory.DocumentStore) {
	t.Helper()
	store := memory.NewDocumentStore()
	_, err := store.Ensure(context.Background())
	require.NoError(t, err)
	return NewContentService(store, zap.NewNop(), opts...), store
}

func raw(s string) json.RawMessage { return json.RawMessage(s) }

func itemsOf(t *testing.T, v interface{}) []content.Item {
	t.Helper()
	items, ok := v.([]content.Item)
	require.True(t, ok, "expected []content.Item, got %T", v)
	return items
}

func TestCreate_CollectionAppendsWithUniqueID(t *testing.T) {
	ctx := context.Background()

	kinds := []struct {
		kind string
		data string
	}{
		{"project", `{"name":"Demo","description":"D","technologies":"Go","links":[]}`},
		{"skill", `{"category":"Backend","name":"Go","level":5}`},
		{"social", `{"platform":"GitHub","url":"https://github.com/x"}`},
		{"quote", `{"text":"Simplicity is prerequisite for reliability.","author":"Dijkstra"}`},
	}

	for _, tc := range kinds {
		t.Run(tc.kind, func(t *testing.T) {
			// Every create lands in the same millisecond
			svc, _ := newMemoryService(t, WithClock(fixedClock(1700000000000)))

			seen := map[string]bool{}
			for i := 0; i < 3; i++ {
				id, err := svc.Create(ctx, tc.kind, raw(tc.data))
				require.NoError(t, err)
				assert.False(t, seen[id], "id %s reused", id)
				seen[id] = true
			}

			v, err := svc.ListByKind(ctx, tc.kind)
			require.NoError(t, err)
			items := itemsOf(t, v)
			require.Len(t, items, 3)

			want, err := content.ParseFields(raw(tc.data))
			require.NoError(t, err)
			for _, it := range items {
				assert.Equal(t, want, it.Fields)
				assert.True(t, seen[it.ID])
			}
		})
	}
}

func TestCreate_ProjectScenario(t *testing.T) {
	ctx := context.Background()
	svc, _ := newMemoryService(t)

	_, err := svc.Create(ctx, "project", raw(`{"name":"First","description":"one"}`))
	require.NoError(t, err)

	before, err := svc.ListByKind(ctx, "project")
	require.NoError(t, err)
	n := len(itemsOf(t, before))

	input := `{"name":"Demo","description":"D","technologies":"Go","links":[]}`
	id, err := svc.Create(ctx, "project", raw(input))
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Regexp(t, `^[0-9]+$`, id)

	after, err := svc.ListByKind(ctx, "project")
	require.NoError(t, err)
	items := itemsOf(t, after)
	require.Len(t, items, n+1)

	last := items[len(items)-1]
	assert.Equal(t, id, last.ID)
	encoded, err := last.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"`+id+`","name":"Demo","description":"D","technologies":"Go","links":[]}`, string(encoded))
}

func TestCreate_IgnoresCallerID(t *testing.T) {
	svc, _ := newMemoryService(t, WithClock(fixedClock(42)))

	id, err := svc.Create(context.Background(), "quote", raw(`{"id":"mine","text":"x"}`))
	require.NoError(t, err)
	assert.Equal(t, "42", id)
}

func TestCreate_SkipsExistingIDs(t *testing.T) {
	ctx := context.Background()
	doc := content.NewDocument()
	doc.Skills = []content.Item{
		content.NewItem("1000", content.Fields{}),
		content.NewItem("1001", content.Fields{}),
	}
	store, err := memory.NewDocumentStoreWith(doc)
	require.NoError(t, err)
	svc := NewContentService(store, zap.NewNop(), WithClock(fixedClock(1000)))

	id, err := svc.Create(ctx, "skill", raw(`{"name":"Go"}`))
	require.NoError(t, err)
	assert.Equal(t, "1002", id)
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name string
		kind string
		data string
	}{
		{"project without name", "project", `{"description":"D"}`},
		{"project with blank description", "project", `{"name":"N","description":"  "}`},
		{"collection data not an object", "quote", `["a"]`},
		{"skill level too high", "skill", `{"name":"Go","level":6}`},
		{"skill level not a number", "skill", `{"name":"Go","level":"expert"}`},
		{"contact not an object", "contact", `"mail me"`},
		{"about is a number", "about", `7`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newMemoryService(t)
			before := store.Bytes()

			_, err := svc.Create(context.Background(), tt.kind, raw(tt.data))
			require.Error(t, err)
			assert.True(t, pkgerrors.IsValidation(err), "got %v", err)
			assert.Equal(t, before, store.Bytes())
			assert.Zero(t, store.Saves())
		})
	}
}

func TestCreate_SkillLevelAsString(t *testing.T) {
	svc, _ := newMemoryService(t)

	_, err := svc.Create(context.Background(), "skill", raw(`{"name":"Go","level":"4"}`))
	assert.NoError(t, err)
}

func TestUpdate_KeepsPositionAndNeighbours(t *testing.T) {
	ctx := context.Background()
	svc, _ := newMemoryService(t)

	var ids []string
	for _, name := range []string{"a", "b", "c"} {
		id, err := svc.Create(ctx, "skill", raw(`{"name":"`+name+`","level":3}`))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	require.NoError(t, svc.Update(ctx, "skill", ids[1], raw(`{"name":"B","level":4,"category":"new"}`)))

	v, err := svc.ListByKind(ctx, "skill")
	require.NoError(t, err)
	items := itemsOf(t, v)
	require.Len(t, items, 3)

	assert.Equal(t, ids, []string{items[0].ID, items[1].ID, items[2].ID})
	name, _ := items[0].Fields.String("name")
	assert.Equal(t, "a", name)
	name, _ = items[1].Fields.String("name")
	assert.Equal(t, "B", name)
	category, _ := items[1].Fields.String("category")
	assert.Equal(t, "new", category)
	name, _ = items[2].Fields.String("name")
	assert.Equal(t, "c", name)
}

func TestUpdate_ReplacesRatherThanMerges(t *testing.T) {
	ctx := context.Background()
	svc, _ := newMemoryService(t)

	id, err := svc.Create(ctx, "social", raw(`{"platform":"GitHub","url":"u","extra":true}`))
	require.NoError(t, err)
	require.NoError(t, svc.Update(ctx, "social", id, raw(`{"platform":"GitLab"}`)))

	v, err := svc.ListByKind(ctx, "social")
	require.NoError(t, err)
	items := itemsOf(t, v)
	require.Len(t, items, 1)
	_, hasExtra := items[0].Fields.Get("extra")
	assert.False(t, hasExtra)
}

func TestUpdate_MissingIDLeavesFileByteIdentical(t *testing.T) {
	ctx := context.Background()
	store := jsonfile.NewDocumentStore(filepath.Join(t.TempDir(), "content.json"), zap.NewNop())
	svc := NewContentService(store, zap.NewNop())
	require.NoError(t, svc.Initialize(ctx))

	_, err := svc.Create(ctx, "skill", raw(`{"category":"Lang","name":"Go","level":5}`))
	require.NoError(t, err)

	before, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	info, err := os.Stat(store.Path())
	require.NoError(t, err)

	err = svc.Update(ctx, "skill", "missing-id", raw(`{"name":"Rust","level":2}`))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
	assert.Equal(t, "Content with id missing-id not found", pkgerrors.GetAppError(err).Message)

	after, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Equal(t, before, after)
	infoAfter, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.True(t, os.SameFile(info, infoAfter), "file must not have been replaced")
}

func TestDelete_RemovesExactlyOne(t *testing.T) {
	ctx := context.Background()
	svc, _ := newMemoryService(t)

	var ids []string
	for _, text := range []string{"one", "two", "three"} {
		id, err := svc.Create(ctx, "quote", raw(`{"text":"`+text+`"}`))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	require.NoError(t, svc.Delete(ctx, "quote", ids[1]))

	v, err := svc.ListByKind(ctx, "quote")
	require.NoError(t, err)
	items := itemsOf(t, v)
	require.Len(t, items, 2)
	assert.Equal(t, ids[0], items[0].ID)
	assert.Equal(t, ids[2], items[1].ID)
}

func TestDelete_MissingIDLeavesCollectionUnchanged(t *testing.T) {
	ctx := context.Background()
	svc, store := newMemoryService(t)

	_, err := svc.Create(ctx, "quote", raw(`{"text":"kept"}`))
	require.NoError(t, err)
	before := store.Bytes()
	saves := store.Saves()

	err = svc.Delete(ctx, "quote", "nope")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
	assert.Equal(t, before, store.Bytes())
	assert.Equal(t, saves, store.Saves())
}

func TestSingletons(t *testing.T) {
	ctx := context.Background()

	t.Run("about create replaces", func(t *testing.T) {
		svc, _ := newMemoryService(t)

		id, err := svc.Create(ctx, "about", raw(`{"text":"X"}`))
		require.NoError(t, err)
		assert.Empty(t, id)

		v, err := svc.ListByKind(ctx, "about")
		require.NoError(t, err)
		assert.Equal(t, "X", v)

		require.NoError(t, svc.Update(ctx, "about", "ignored", raw(`"Y"`)))
		v, err = svc.ListByKind(ctx, "about")
		require.NoError(t, err)
		assert.Equal(t, "Y", v)
	})

	t.Run("about delete resets", func(t *testing.T) {
		svc, _ := newMemoryService(t)
		_, err := svc.Create(ctx, "about", raw(`"text"`))
		require.NoError(t, err)

		require.NoError(t, svc.Delete(ctx, "about", ""))
		v, err := svc.ListByKind(ctx, "about")
		require.NoError(t, err)
		assert.Equal(t, "", v)
	})

	t.Run("contact replaces wholesale", func(t *testing.T) {
		svc, _ := newMemoryService(t)
		_, err := svc.Create(ctx, "contact", raw(`{"email":"a@b.c","phone":"1"}`))
		require.NoError(t, err)
		require.NoError(t, svc.Update(ctx, "contact", "", raw(`{"email":"x@y.z"}`)))

		v, err := svc.ListByKind(ctx, "contact")
		require.NoError(t, err)
		fields, ok := v.(content.Fields)
		require.True(t, ok)
		encoded, err := fields.MarshalJSON()
		require.NoError(t, err)
		assert.JSONEq(t, `{"email":"x@y.z"}`, string(encoded))
	})

	t.Run("contact delete resets", func(t *testing.T) {
		svc, _ := newMemoryService(t)
		_, err := svc.Create(ctx, "contact", raw(`{"email":"a@b.c"}`))
		require.NoError(t, err)
		require.NoError(t, svc.Delete(ctx, "contact", ""))

		v, err := svc.ListByKind(ctx, "contact")
		require.NoError(t, err)
		assert.Equal(t, content.Fields{}, v)
	})
}

func TestListAll_TagsCollectionsOnly(t *testing.T) {
	ctx := context.Background()
	svc, _ := newMemoryService(t)

	_, err := svc.Create(ctx, "quote", raw(`{"text":"q"}`))
	require.NoError(t, err)
	_, err = svc.Create(ctx, "project", raw(`{"name":"p","description":"d"}`))
	require.NoError(t, err)
	_, err = svc.Create(ctx, "about", raw(`"me"`))
	require.NoError(t, err)

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, content.KindProject, all[0].Kind)
	assert.Equal(t, content.KindQuote, all[1].Kind)
}

func TestUnknownKind(t *testing.T) {
	ctx := context.Background()
	svc, store := newMemoryService(t)
	before := store.Bytes()

	_, err := svc.ListByKind(ctx, "bogus")
	assert.True(t, pkgerrors.IsUnknownKind(err))

	_, err = svc.Create(ctx, "bogus", raw(`{}`))
	assert.True(t, pkgerrors.IsUnknownKind(err))

	err = svc.Update(ctx, "bogus", "1", raw(`{}`))
	assert.True(t, pkgerrors.IsUnknownKind(err))

	err = svc.Delete(ctx, "bogus", "1")
	assert.True(t, pkgerrors.IsUnknownKind(err))

	assert.Equal(t, before, store.Bytes())
	assert.Zero(t, store.Saves())
}

func TestLegacyPluralKinds(t *testing.T) {
	ctx := context.Background()
	svc, _ := newMemoryService(t)

	_, err := svc.Create(ctx, "projects", raw(`{"name":"p","description":"d"}`))
	require.NoError(t, err)

	v, err := svc.ListByKind(ctx, "project")
	require.NoError(t, err)
	assert.Len(t, itemsOf(t, v), 1)
}

func TestStoreFailures(t *testing.T) {
	ctx := context.Background()
	svc, store := newMemoryService(t)
	store.FailWith(errors.New("disk on fire"))

	_, err := svc.ListAll(ctx)
	assert.True(t, pkgerrors.IsStoreIO(err))

	_, err = svc.Create(ctx, "quote", raw(`{"text":"q"}`))
	assert.True(t, pkgerrors.IsStoreIO(err))

	assert.Error(t, svc.Ready(ctx))

	store.FailWith(nil)
	assert.NoError(t, svc.Ready(ctx))
}

func TestConcurrentCreatesAreNotLost(t *testing.T) {
	ctx := context.Background()
	svc, _ := newMemoryService(t)

	const writers = 20
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(ctx, "quote", raw(`{"text":"q"}`))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	v, err := svc.ListByKind(ctx, "quote")
	require.NoError(t, err)
	items := itemsOf(t, v)
	assert.Len(t, items, writers)

	ids := map[string]bool{}
	for _, it := range items {
		ids[it.ID] = true
	}
	assert.Len(t, ids, writers)
}

func TestEventsArePublishedAfterMutations(t *testing.T) {
	ctx := context.Background()
	publisher := new(MockEventPublisher)
	publisher.On("Publish", mock.Anything, mock.MatchedBy(func(e events.DomainEvent) bool {
		return e.GetEventType() == events.TypeContentCreated && e.GetAggregateID() == "quote/7"
	})).Return(nil).Once()
	publisher.On("Publish", mock.Anything, mock.MatchedBy(func(e events.DomainEvent) bool {
		return e.GetEventType() == events.TypeContentDeleted
	})).Return(errors.New("bus unavailable")).Once()

	svc, _ := newMemoryService(t, WithEventPublisher(publisher), WithClock(fixedClock(7)))

	id, err := svc.Create(ctx, "quote", raw(`{"text":"q"}`))
	require.NoError(t, err)

	// A failed publish must not fail the mutation
	require.NoError(t, svc.Delete(ctx, "quote", id))

	_, err = svc.Create(ctx, "quote", raw(`[]`))
	require.Error(t, err)

	publisher.AssertExpectations(t)
}

func TestMutationsAreRecorded(t *testing.T) {
	ctx := context.Background()
	recorder := &fakeRecorder{}
	svc, _ := newMemoryService(t, WithMutationRecorder(recorder))

	id, err := svc.Create(ctx, "quote", raw(`{"text":"q"}`))
	require.NoError(t, err)
	_ = svc.Update(ctx, "quote", "missing", raw(`{"text":"q"}`))
	require.NoError(t, svc.Delete(ctx, "quote", id))
	_ = svc.Delete(ctx, "bogus", id)

	assert.Equal(t, []recordedMutation{
		{"quote", OpCreate, "success"},
		{"quote", OpUpdate, string(pkgerrors.ErrorTypeNotFound)},
		{"quote", OpDelete, "success"},
		{"unknown", OpDelete, string(pkgerrors.ErrorTypeUnknownKind)},
	}, recorder.seen)
}

func TestMutationKindLabelsAreBounded(t *testing.T) {
	ctx := context.Background()
	recorder := &fakeRecorder{}
	svc, _ := newMemoryService(t, WithMutationRecorder(recorder))

	for i := 0; i < 50; i++ {
		_, _ = svc.Create(ctx, fmt.Sprintf("bogus-%d", i), raw(`{}`))
	}
	_, err := svc.Create(ctx, "projects", raw(`{"name":"p","description":"d"}`))
	require.NoError(t, err)

	labels := map[string]bool{}
	for _, m := range recorder.seen {
		labels[m.kind] = true
	}
	assert.Equal(t, map[string]bool{"unknown": true, "project": true}, labels)
}

func TestMutationSeriesStayBoundedOnCollector(t *testing.T) {
	ctx := context.Background()
	collector := observability.NewCollector("portfolio")
	svc, _ := newMemoryService(t, WithMutationRecorder(collector))

	for i := 0; i < 50; i++ {
		_, _ = svc.Create(ctx, fmt.Sprintf("bogus-%d", i), raw(`{}`))
	}

	assert.Equal(t, 1, testutil.CollectAndCount(collector.ContentMutations))
	assert.Equal(t, float64(50), testutil.ToFloat64(
		collector.ContentMutations.WithLabelValues("unknown", OpCreate, string(pkgerrors.ErrorTypeUnknownKind))))
}

// conflictingStore loses every write to a concurrent writer
type conflictingStore struct {
	*memory.DocumentStore
}

func (s conflictingStore) Save(context.Context, *content.Document) error {
	return fmt.Errorf("put content item: %w", ports.ErrRevisionConflict)
}

func TestRevisionConflictIsReportedAsConflict(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocumentStore()
	_, err := store.Ensure(ctx)
	require.NoError(t, err)
	svc := NewContentService(conflictingStore{store}, zap.NewNop())

	_, err = svc.Create(ctx, "quote", raw(`{"text":"q"}`))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConflict(err))
	assert.False(t, pkgerrors.IsStoreIO(err))
	assert.ErrorIs(t, err, ports.ErrRevisionConflict)
	assert.Equal(t, http.StatusConflict, pkgerrors.GetAppError(err).HTTPStatus)
}

func TestIDGenerator_Monotonic(t *testing.T) {
	now := int64(100)
	gen := NewIDGenerator(func() time.Time { return time.UnixMilli(now) })

	assert.Equal(t, "100", gen.Next(nil))
	assert.Equal(t, "101", gen.Next(nil))
	now = 50
	assert.Equal(t, "102", gen.Next(nil), "clock going backwards must not repeat ids")
	now = 500
	assert.Equal(t, "500", gen.Next(nil))
	assert.Equal(t, "503", gen.Next(func(id string) bool { return id == "501" || id == "502" }))
}
