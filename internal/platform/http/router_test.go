package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jbaylocal/marketplace-api/internal/business/catalog"
	"github.com/jbaylocal/marketplace-api/internal/business/session"
	"github.com/jbaylocal/marketplace-api/pkg/model"
)

type mockSource struct {
	listings []model.RawListing
	err      error
}

func (m *mockSource) List(ctx context.Context, q catalog.ListQuery) ([]model.RawListing, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.listings, nil
}

func (m *mockSource) Get(ctx context.Context, id string) (model.RawListing, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, raw := range m.listings {
		if raw["_id"] == id {
			return raw, nil
		}
	}
	return nil, catalog.ErrNotFound
}

func (m *mockSource) ListByAuthor(ctx context.Context, authorID string) ([]model.RawListing, error) {
	return nil, m.err
}

type noopViews struct{}

func (noopViews) IncrementViews(ctx context.Context, id string) error { return nil }

type brokenStore struct {
	*session.MemoryStore
}

func (brokenStore) SaveSavedListings(ctx context.Context, sessionID string, ids []string) error {
	return errors.New("write failed")
}

func testListings() []model.RawListing {
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	return []model.RawListing{
		{
			"_id": "near", "title": "Near surf", "category": "surfing", "priceRange": "budget",
			"location":   map[string]any{"lat": -34.0500, "lng": 24.9100},
			"_createdAt": base,
		},
		{
			"_id": "far", "title": "Far stay", "category": "accommodation", "priceRange": "luxury",
			"location":   map[string]any{"lat": -33.9, "lng": 24.8},
			"_createdAt": base.Add(time.Hour),
		},
	}
}

func newTestRouter(src catalog.Source, store session.StateStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := catalog.NewService(src, noopViews{}, nil, nil)
	reg := session.NewRegistry(store, session.ReportedFix{Code: 2}, session.ProviderOptions{}, nil)
	return NewRouter(svc, reg, Options{PublicBaseURL: "https://jbay.example", RateLimitRPS: 1000, RateLimitBurst: 1000})
}

func do(t *testing.T, router *gin.Engine, method, path, sid, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if sid != "" {
		req.Header.Set(sessionHeader, sid)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode %s %s: %v (%s)", method, path, err, w.Body.String())
		}
	}
	return w, out
}

func itemIDs(t *testing.T, body map[string]any) []string {
	t.Helper()
	items, ok := body["items"].([]any)
	if !ok {
		t.Fatalf("items missing: %v", body)
	}
	var ids []string
	for _, it := range items {
		ids = append(ids, it.(map[string]any)["id"].(string))
	}
	return ids
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(&mockSource{}, session.NewMemoryStore())
	w, body := do(t, router, http.MethodGet, "/healthz", "", "")
	if w.Code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("status = %d body = %v", w.Code, body)
	}
}

func TestNearMeFlow(t *testing.T) {
	router := newTestRouter(&mockSource{listings: testListings()}, session.NewMemoryStore())

	w, body := do(t, router, http.MethodPut, "/api/session/location", "", `{"lat": -34.0489, "lng": "24.9087"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("set location status = %d body = %v", w.Code, body)
	}
	if body["withinServiceArea"] != true {
		t.Errorf("withinServiceArea = %v", body["withinServiceArea"])
	}
	sid := w.Header().Get(sessionHeader)
	if sid == "" {
		t.Fatal("session id not issued")
	}

	w, body = do(t, router, http.MethodGet, "/api/listings?preset=near-me", sid, "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	if ids := itemIDs(t, body); len(ids) != 1 || ids[0] != "near" {
		t.Fatalf("ids = %v, want [near]", ids)
	}
	item := body["items"].([]any)[0].(map[string]any)
	if item["distanceLabel"] == "" || item["distance"] == nil {
		t.Errorf("distance not rendered: %v", item)
	}
	if body["sortBy"] != "distance" {
		t.Errorf("sortBy = %v", body["sortBy"])
	}
}

func TestListWithoutLocationSortsNewest(t *testing.T) {
	router := newTestRouter(&mockSource{listings: testListings()}, session.NewMemoryStore())

	w, body := do(t, router, http.MethodGet, "/api/listings?sortBy=distance", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if body["sortBy"] != "newest" {
		t.Errorf("sortBy = %v, want newest", body["sortBy"])
	}
	if ids := itemIDs(t, body); len(ids) != 2 || ids[0] != "far" {
		t.Fatalf("ids = %v", ids)
	}
}

func TestListRejectsUnknownEnum(t *testing.T) {
	router := newTestRouter(&mockSource{listings: testListings()}, session.NewMemoryStore())

	for _, q := range []string{"categories=plumbing", "priceRanges=cheap", "sortBy=rating", "maxDistance=-1", "availability=funday"} {
		w, _ := do(t, router, http.MethodGet, "/api/listings?"+q, "", "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, w.Code)
		}
	}
}

func TestListDataFetchFailure(t *testing.T) {
	router := newTestRouter(&mockSource{err: errors.New("timeout")}, session.NewMemoryStore())

	w, body := do(t, router, http.MethodGet, "/api/listings", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if body["error"] == nil {
		t.Error("expected error notice")
	}
	if ids := itemIDs(t, body); len(ids) != 0 {
		t.Fatalf("ids = %v, want none", ids)
	}

	w, _ = do(t, router, http.MethodGet, "/api/listings/near", "", "")
	if w.Code != http.StatusBadGateway {
		t.Fatalf("detail status = %d, want 502", w.Code)
	}
}

func TestGetListing(t *testing.T) {
	router := newTestRouter(&mockSource{listings: testListings()}, session.NewMemoryStore())

	w, body := do(t, router, http.MethodGet, "/api/listings/far", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	share := body["share"].(map[string]any)
	if share["url"] != "https://jbay.example/service/far" {
		t.Errorf("share url = %v", share["url"])
	}
	if !strings.Contains(body["directionsUrl"].(string), "destination=") {
		t.Errorf("directionsUrl = %v", body["directionsUrl"])
	}

	w, _ = do(t, router, http.MethodGet, "/api/listings/missing", "", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing status = %d, want 404", w.Code)
	}
}

func TestManualLocationValidation(t *testing.T) {
	router := newTestRouter(&mockSource{}, session.NewMemoryStore())

	w, body := do(t, router, http.MethodPut, "/api/session/location", "", `{"lat": 200, "lng": 0}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if body["field"] != "lat" {
		t.Errorf("field = %v", body["field"])
	}
}

func TestDeviceLocation(t *testing.T) {
	router := newTestRouter(&mockSource{}, session.NewMemoryStore())

	tests := []struct {
		name   string
		body   string
		status int
		kind   string
	}{
		{name: "reported fix", body: `{"lat": -34.04, "lng": 24.91}`, status: http.StatusOK},
		{name: "permission denied", body: `{"code": 1}`, status: http.StatusForbidden, kind: "permission_denied"},
		{name: "timeout", body: `{"code": 3}`, status: http.StatusGatewayTimeout, kind: "timeout"},
		{name: "server locator unavailable", status: http.StatusServiceUnavailable, kind: "position_unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := do(t, router, http.MethodPost, "/api/session/location/device", "", tt.body)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d (%v)", w.Code, tt.status, body)
			}
			if tt.kind != "" {
				if body["kind"] != tt.kind || body["message"] == "" {
					t.Fatalf("body = %v", body)
				}
			}
		})
	}
}

func TestSavedListings(t *testing.T) {
	router := newTestRouter(&mockSource{listings: testListings()}, session.NewMemoryStore())

	w, body := do(t, router, http.MethodPut, "/api/session/saved/far", "", "")
	if w.Code != http.StatusOK || body["changed"] != true {
		t.Fatalf("save status = %d body = %v", w.Code, body)
	}
	sid := w.Header().Get(sessionHeader)

	_, body = do(t, router, http.MethodPut, "/api/session/saved/far", sid, "")
	if body["changed"] != false {
		t.Fatalf("second save changed = %v", body["changed"])
	}

	_, body = do(t, router, http.MethodGet, "/api/session/saved", sid, "")
	if items := body["items"].([]any); len(items) != 1 || items[0] != "far" {
		t.Fatalf("saved = %v", items)
	}

	_, body = do(t, router, http.MethodGet, "/api/session/saved/listings", sid, "")
	if ids := itemIDs(t, body); len(ids) != 1 || ids[0] != "far" {
		t.Fatalf("saved listings = %v", ids)
	}
	item := body["items"].([]any)[0].(map[string]any)
	if item["saved"] != true {
		t.Errorf("saved flag = %v", item["saved"])
	}

	w, body = do(t, router, http.MethodDelete, "/api/session/saved/far", sid, "")
	if w.Code != http.StatusOK || body["changed"] != true {
		t.Fatalf("unsave status = %d body = %v", w.Code, body)
	}
}

func TestSavePersistenceFailureWarns(t *testing.T) {
	router := newTestRouter(&mockSource{}, brokenStore{session.NewMemoryStore()})

	w, body := do(t, router, http.MethodPut, "/api/session/saved/x", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if body["warning"] == nil {
		t.Fatal("expected persistence warning")
	}
	sid := w.Header().Get(sessionHeader)
	_, body = do(t, router, http.MethodGet, "/api/session/saved", sid, "")
	if items := body["items"].([]any); len(items) != 1 {
		t.Fatalf("in-memory save lost: %v", items)
	}
}

func TestShareListing(t *testing.T) {
	router := newTestRouter(&mockSource{listings: testListings()}, session.NewMemoryStore())

	tests := []struct {
		body   string
		method string
	}{
		{body: "", method: "clipboard"},
		{body: `{"outcome":"shared"}`, method: "share"},
		{body: `{"outcome":"cancelled"}`, method: "cancelled"},
		{body: `{"outcome":"failed"}`, method: "clipboard"},
	}
	for _, tt := range tests {
		w, body := do(t, router, http.MethodPost, "/api/listings/near/share", "", tt.body)
		if w.Code != http.StatusOK {
			t.Fatalf("%q: status = %d", tt.body, w.Code)
		}
		if body["method"] != tt.method {
			t.Errorf("%q: method = %v, want %s", tt.body, body["method"], tt.method)
		}
	}
}

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := catalog.NewService(&mockSource{}, nil, nil, nil)
	reg := session.NewRegistry(session.NewMemoryStore(), nil, session.ProviderOptions{}, nil)
	router := NewRouter(svc, reg, Options{RateLimitRPS: 0.001, RateLimitBurst: 1})

	w, _ := do(t, router, http.MethodGet, "/api/session/saved", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("first status = %d", w.Code)
	}
	w, _ = do(t, router, http.MethodGet, "/api/session/saved", "", "")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", w.Code)
	}
}

func TestReadOnlyRequestsHoldNoSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := catalog.NewService(&mockSource{listings: testListings()}, noopViews{}, nil, nil)
	reg := session.NewRegistry(session.NewMemoryStore(), nil, session.ProviderOptions{}, nil)
	router := NewRouter(svc, reg, Options{RateLimitRPS: 1000, RateLimitBurst: 1000})

	for i := 0; i < 50; i++ {
		if w, _ := do(t, router, http.MethodGet, "/api/listings", "", ""); w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
	}
	if reg.Len() != 0 {
		t.Fatalf("sessions held after read-only requests = %d", reg.Len())
	}

	w, _ := do(t, router, http.MethodPut, "/api/session/saved/near", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("save status = %d", w.Code)
	}
	sid := w.Header().Get(sessionHeader)
	if reg.Len() != 1 {
		t.Fatalf("len after save = %d, want 1", reg.Len())
	}

	_, body := do(t, router, http.MethodGet, "/api/session/saved", sid, "")
	if items, _ := body["items"].([]any); len(items) != 1 || items[0] != "near" {
		t.Fatalf("saved = %v", body["items"])
	}
}
