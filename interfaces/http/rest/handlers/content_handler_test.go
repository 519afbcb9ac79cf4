package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"portfolio/domain/content"
	pkgerrors "portfolio/pkg/errors"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockContentService is a mock implementation of ContentService
type MockContentService struct {
	mock.Mock
}

func (m *MockContentService) ListAll(ctx context.Context) ([]content.TaggedItem, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]content.TaggedItem), args.Error(1)
}

func (m *MockContentService) ListByKind(ctx context.Context, kind string) (interface{}, error) {
	args := m.Called(ctx, kind)
	return args.Get(0), args.Error(1)
}

func (m *MockContentService) Create(ctx context.Context, kind string, data json.RawMessage) (string, error) {
	args := m.Called(ctx, kind, string(data))
	return args.String(0), args.Error(1)
}

func (m *MockContentService) Update(ctx context.Context, kind, id string, data json.RawMessage) error {
	return m.Called(ctx, kind, id, string(data)).Error(0)
}

func (m *MockContentService) Delete(ctx context.Context, kind, id string) error {
	return m.Called(ctx, kind, id).Error(0)
}

func newContentRouter(svc ContentService) *chi.Mux {
	h := NewContentHandler(svc, pkgerrors.NewErrorHandler(zap.NewNop(), false), zap.NewNop())
	r := chi.NewRouter()
	r.Get("/api/content", h.ListAll)
	r.Get("/api/content/{key}", h.ListByKind)
	r.Post("/api/content", h.Create)
	r.Put("/api/content/{key}", h.Update)
	r.Delete("/api/content/{key}", h.Delete)
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &decoded)
	return rec, decoded
}

func TestContentHandler_Create(t *testing.T) {
	svc := new(MockContentService)
	svc.On("Create", mock.Anything, "project", `{"name":"Demo","description":"D"}`).Return("1700000000000", nil)

	rec, body := do(t, newContentRouter(svc), http.MethodPost, "/api/content",
		`{"type":"project","data":{"name":"Demo","description":"D"}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "1700000000000", body["id"])
	svc.AssertExpectations(t)
}

func TestContentHandler_CreateSingletonOmitsID(t *testing.T) {
	svc := new(MockContentService)
	svc.On("Create", mock.Anything, "about", `"Hello"`).Return("", nil)

	rec, _ := do(t, newContentRouter(svc), http.MethodPost, "/api/content", `{"type":"about","data":"Hello"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
}

func TestContentHandler_MissingFields(t *testing.T) {
	bodies := []string{
		``,
		`{}`,
		`{"type":"project"}`,
		`{"data":{"name":"x"}}`,
		`{"type":"about","data":""}`,
		`{"type":"project","data":null}`,
	}

	for _, b := range bodies {
		t.Run(b, func(t *testing.T) {
			svc := new(MockContentService)
			rec, body := do(t, newContentRouter(svc), http.MethodPost, "/api/content", b)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, MsgMissingTypeAndData, body["error"])
			svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestContentHandler_MalformedBody(t *testing.T) {
	rec, body := do(t, newContentRouter(new(MockContentService)), http.MethodPut, "/api/content/1", `{"type":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.True(t, strings.HasPrefix(body["error"].(string), "Invalid request body"))
}

func TestContentHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(*MockContentService)
		method     string
		target     string
		body       string
		wantStatus int
		wantError  string
		wantType   string
	}{
		{
			name: "unknown kind on read is not found",
			setup: func(m *MockContentService) {
				m.On("ListByKind", mock.Anything, "bogus").Return(nil, pkgerrors.NewUnknownKindError("bogus"))
			},
			method: http.MethodGet, target: "/api/content/bogus",
			wantStatus: http.StatusNotFound, wantError: "Content type 'bogus' not found", wantType: "NOT_FOUND",
		},
		{
			name: "unknown kind on create is a bad request",
			setup: func(m *MockContentService) {
				m.On("Create", mock.Anything, "bogus", `{}`).Return("", pkgerrors.NewUnknownKindError("bogus"))
			},
			method: http.MethodPost, target: "/api/content", body: `{"type":"bogus","data":{}}`,
			wantStatus: http.StatusBadRequest, wantError: "Invalid content type: bogus", wantType: "UNKNOWN_KIND",
		},
		{
			name: "missing id on update",
			setup: func(m *MockContentService) {
				m.On("Update", mock.Anything, "skill", "42", `{"name":"Go"}`).
					Return(pkgerrors.NewNotFoundError("Content with id 42"))
			},
			method: http.MethodPut, target: "/api/content/42", body: `{"type":"skill","data":{"name":"Go"}}`,
			wantStatus: http.StatusNotFound, wantError: "Content with id 42 not found", wantType: "NOT_FOUND",
		},
		{
			name: "concurrent write is a conflict",
			setup: func(m *MockContentService) {
				m.On("Create", mock.Anything, "quote", `{"text":"q"}`).
					Return("", pkgerrors.NewConflictError("Content was modified concurrently, retry the request", errors.New("condition failed")))
			},
			method: http.MethodPost, target: "/api/content", body: `{"type":"quote","data":{"text":"q"}}`,
			wantStatus: http.StatusConflict, wantError: "Content was modified concurrently, retry the request", wantType: "CONFLICT",
		},
		{
			name: "store failure is generic",
			setup: func(m *MockContentService) {
				m.On("ListAll", mock.Anything).Return(nil, pkgerrors.NewStoreIOError("read", errors.New("/data/content.json: permission denied")))
			},
			method: http.MethodGet, target: "/api/content",
			wantStatus: http.StatusInternalServerError, wantError: "Internal server error", wantType: "STORE_IO",
		},
		{
			name:   "delete without type",
			setup:  func(*MockContentService) {},
			method: http.MethodDelete, target: "/api/content/42",
			wantStatus: http.StatusBadRequest, wantError: "Missing required query parameter: type", wantType: "VALIDATION",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockContentService)
			tt.setup(svc)

			rec, body := do(t, newContentRouter(svc), tt.method, tt.target, tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantError, body["error"])
			assert.Equal(t, tt.wantType, body["type"])
			assert.NotContains(t, rec.Body.String(), "permission denied")
			svc.AssertExpectations(t)
		})
	}
}

func TestContentHandler_DeleteAcceptsKindParameter(t *testing.T) {
	svc := new(MockContentService)
	svc.On("Delete", mock.Anything, "quote", "7").Return(nil).Twice()
	router := newContentRouter(svc)

	rec, _ := do(t, router, http.MethodDelete, "/api/content/7?type=quote", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = do(t, router, http.MethodDelete, "/api/content/7?kind=quote", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestContentHandler_ListByKindKeepsHTML(t *testing.T) {
	fields, err := content.ParseFields([]byte(`{"text":"<b>bold</b> & co"}`))
	require.NoError(t, err)
	svc := new(MockContentService)
	svc.On("ListByKind", mock.Anything, "quote").Return([]content.Item{content.NewItem("1", fields)}, nil)

	rec, _ := do(t, newContentRouter(svc), http.MethodGet, "/api/content/quote", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `[{"id":"1","text":"<b>bold</b> & co"}]`+"\n", rec.Body.String())
}
