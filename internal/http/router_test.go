package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"farebox/internal/clock"
	"farebox/internal/http/middleware"
	"farebox/internal/metrics"
	"farebox/internal/modules/admin"
	"farebox/internal/modules/journey"
	"farebox/internal/modules/ledger"
	"farebox/internal/modules/location"
	"farebox/internal/modules/pricing"
	"farebox/internal/types"
)

const adminTag = "27010276260"

type scriptedFixes struct{ points []types.Point }

func (s *scriptedFixes) AcquireFix(context.Context) (types.Point, error) {
	if len(s.points) == 0 {
		return types.Point{}, location.ErrNoFix
	}
	p := s.points[0]
	s.points = s.points[1:]
	return p, nil
}

type stubHistory struct{ journeys []journey.Journey }

func (h *stubHistory) Unsettled(_ context.Context, limit int) ([]journey.Journey, error) {
	if limit < len(h.journeys) {
		return h.journeys[:limit], nil
	}
	return h.journeys, nil
}

type testEnv struct {
	handler http.Handler
	fixes   *scriptedFixes
	ledger  *ledger.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	clk := &clock.Fixed{T: time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)}
	store := ledger.NewMemoryStore()
	seed := []ledger.Rider{
		{ID: "X", Name: "Asha", Balance: 100},
		{ID: "Y", Name: "Ravi", Balance: 3},
	}
	for _, r := range seed {
		if err := store.Create(context.Background(), r); err != nil {
			t.Fatal(err)
		}
	}
	led := ledger.NewService(store, clk)
	fixes := &scriptedFixes{}
	m := metrics.NewCollector()
	js := journey.NewService(journey.Deps{
		Ledger:  led,
		Fixes:   fixes,
		Fares:   pricing.NewService(nil),
		Metrics: m,
		Clock:   clk,
	}, journey.Config{MinCharge: journey.DefaultMinCharge})
	adm := admin.NewService(admin.NewAllowList([]string{adminTag}), led, m)

	srv := NewServer(ServerDeps{
		Journey: js,
		Ledger:  led,
		Admin:   adm,
		History: &stubHistory{journeys: []journey.Journey{{ID: "j1", RiderID: "X", State: journey.StateAborted, Fare: 40, AbortReason: journey.ReasonInsufficientFunds}}},
		Metrics: m,
	})
	return &testEnv{handler: srv.Routes(), fixes: fixes, ledger: led}
}

func (e *testEnv) do(method, path string, body any, tag string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tag != "" {
		req.Header.Set(middleware.AdminTagHeader, tag)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func TestTapFlow(t *testing.T) {
	e := newTestEnv(t)
	e.fixes.points = []types.Point{{Lat: 12.9716, Lng: 77.5946}, {Lat: 12.9352, Lng: 77.6245}}

	w := e.do(http.MethodPost, "/api/taps", map[string]string{"rider_id": "X"}, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("start tap: expected 201, got %d: %s", w.Code, w.Body)
	}
	if got := decode(t, w)["state"]; got != "in_progress" {
		t.Errorf("state = %v", got)
	}

	w = e.do(http.MethodGet, "/api/riders/X/journey", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("current journey: expected 200, got %d", w.Code)
	}

	w = e.do(http.MethodPost, "/api/taps", map[string]string{"rider_id": "X"}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("end tap: expected 200, got %d: %s", w.Code, w.Body)
	}
	body := decode(t, w)
	if body["state"] != "settled" || body["fare"] != float64(30) || body["balance"] != float64(70) {
		t.Errorf("settled body = %v", body)
	}

	w = e.do(http.MethodGet, "/api/riders/X/balance", nil, "")
	if got := decode(t, w)["balance"]; got != float64(70) {
		t.Errorf("balance = %v, want 70", got)
	}
	w = e.do(http.MethodGet, "/api/riders/X/journey", nil, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("journey after settle: expected 404, got %d", w.Code)
	}
}

func TestTap_Errors(t *testing.T) {
	e := newTestEnv(t)

	if w := e.do(http.MethodPost, "/api/taps", map[string]string{"rider_id": "Y"}, ""); w.Code != http.StatusPaymentRequired {
		t.Errorf("low balance: expected 402, got %d", w.Code)
	}
	if w := e.do(http.MethodPost, "/api/taps", map[string]string{"rider_id": "nobody"}, ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown rider: expected 404, got %d", w.Code)
	}
	if w := e.do(http.MethodPost, "/api/taps", map[string]string{"rider_id": "a b"}, ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad id: expected 400, got %d", w.Code)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/taps", strings.NewReader("{"))
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad json: expected 400, got %d", w.Code)
	}

	// No fix queued: the start is aborted and reported with the journey.
	w = e.do(http.MethodPost, "/api/taps", map[string]string{"rider_id": "X"}, "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("no fix: expected 503, got %d", w.Code)
	}
	j, _ := decode(t, w)["journey"].(map[string]any)
	if j["state"] != "aborted" || j["abort_reason"] != journey.ReasonNoFix {
		t.Errorf("aborted journey = %v", j)
	}
	if b, _ := e.ledger.GetBalance(context.Background(), "X"); b != 100 {
		t.Errorf("balance = %d, want 100", b)
	}
}

func TestAdminRoutes(t *testing.T) {
	e := newTestEnv(t)

	if w := e.do(http.MethodPost, "/api/admin/riders/X/recharge", map[string]any{"amount": 50}, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("no tag: expected 401, got %d", w.Code)
	}
	if w := e.do(http.MethodPost, "/api/admin/riders/X/recharge", map[string]any{"amount": 50}, "X"); w.Code != http.StatusForbidden {
		t.Errorf("rider tag: expected 403, got %d", w.Code)
	}

	w := e.do(http.MethodPost, "/api/admin/riders/X/recharge", map[string]any{"amount": 50}, adminTag)
	if w.Code != http.StatusOK {
		t.Fatalf("recharge: expected 200, got %d: %s", w.Code, w.Body)
	}
	if got := decode(t, w)["balance"]; got != float64(150) {
		t.Errorf("balance = %v, want 150", got)
	}
	for _, amount := range []any{0, -5, "2.5", "ten"} {
		if w := e.do(http.MethodPost, "/api/admin/riders/X/recharge", map[string]any{"amount": amount}, adminTag); w.Code != http.StatusBadRequest {
			t.Errorf("recharge %v: expected 400, got %d", amount, w.Code)
		}
	}

	w = e.do(http.MethodPost, "/api/admin/riders", map[string]string{"rider_id": "Z", "name": "Zed", "phone": "9000000003"}, adminTag)
	if w.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", w.Code, w.Body)
	}
	if got := decode(t, w)["balance"]; got != float64(0) {
		t.Errorf("registered balance = %v, want 0", got)
	}
	if w := e.do(http.MethodPost, "/api/admin/riders", map[string]string{"rider_id": "Z", "name": "Zed"}, adminTag); w.Code != http.StatusConflict {
		t.Errorf("duplicate register: expected 409, got %d", w.Code)
	}

	w = e.do(http.MethodPut, "/api/admin/riders/Z", map[string]string{"name": "Zed K", "phone": "9000000004"}, adminTag)
	if w.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", w.Code, w.Body)
	}
	r, _ := e.ledger.Get(context.Background(), "Z")
	if r.Name != "Zed K" || r.Phone != "9000000004" {
		t.Errorf("rider = %+v", r)
	}

	w = e.do(http.MethodGet, "/api/admin/journeys/unsettled?limit=10", nil, adminTag)
	if w.Code != http.StatusOK {
		t.Fatalf("unsettled: expected 200, got %d", w.Code)
	}
	js, _ := decode(t, w)["journeys"].([]any)
	if len(js) != 1 {
		t.Errorf("unsettled = %v", js)
	}
	if w := e.do(http.MethodGet, "/api/admin/journeys/unsettled?limit=abc", nil, adminTag); w.Code != http.StatusBadRequest {
		t.Errorf("bad limit: expected 400, got %d", w.Code)
	}
}

func TestAbortRoute(t *testing.T) {
	e := newTestEnv(t)
	e.fixes.points = []types.Point{{Lat: 12.9716, Lng: 77.5946}}

	if w := e.do(http.MethodPost, "/api/taps", map[string]string{"rider_id": "X"}, ""); w.Code != http.StatusCreated {
		t.Fatalf("start tap: expected 201, got %d", w.Code)
	}
	if w := e.do(http.MethodDelete, "/api/riders/X/journey", nil, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("abort without tag: expected 401, got %d", w.Code)
	}
	w := e.do(http.MethodDelete, "/api/riders/X/journey", nil, adminTag)
	if w.Code != http.StatusOK {
		t.Fatalf("abort: expected 200, got %d", w.Code)
	}
	if got := decode(t, w)["abort_reason"]; got != journey.ReasonOperator {
		t.Errorf("abort_reason = %v", got)
	}
	if w := e.do(http.MethodDelete, "/api/riders/X/journey", nil, adminTag); w.Code != http.StatusNotFound {
		t.Errorf("second abort: expected 404, got %d", w.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	e := newTestEnv(t)
	if w := e.do(http.MethodGet, "/health", nil, ""); w.Code != http.StatusOK || w.Body.String() != "OK" {
		t.Errorf("health = %d %q", w.Code, w.Body.String())
	}
	e.do(http.MethodGet, "/health", nil, "")
	w := e.do(http.MethodGet, "/metrics", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `farebox_http_requests_total{method="GET",route="/health",status="200"} 2`) {
		t.Errorf("metrics output missing health requests:\n%s", w.Body.String())
	}
}
