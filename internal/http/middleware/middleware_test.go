// README: Tests for admin tag, logging and recovery middleware.
package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"farebox/internal/http/middleware"
	"farebox/internal/types"
)

type stubAdmins map[types.ID]bool

func (s stubAdmins) IsAdmin(id types.ID) bool { return s[id] }

type recordingObserver struct {
	routes   []string
	statuses []int
}

func (r *recordingObserver) HTTPObserve(_, route string, status int) {
	r.routes = append(r.routes, route)
	r.statuses = append(r.statuses, status)
}

func newTestRouter(admins middleware.AdminChecker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.AdminTag(admins))
	r.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"tag": middleware.CallerTag(c)})
	})
	return r
}

func TestAdminTag(t *testing.T) {
	r := newTestRouter(stubAdmins{"27010276260": true})
	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing header", header: "", want: http.StatusUnauthorized},
		{name: "blank header", header: "   ", want: http.StatusUnauthorized},
		{name: "not an admin", header: "584190", want: http.StatusForbidden},
		{name: "admin", header: " 27010276260 ", want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set(middleware.AdminTagHeader, tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestAdminTag_SetsCaller(t *testing.T) {
	r := newTestRouter(stubAdmins{"42": true})
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(middleware.AdminTagHeader, "42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Body.String() != `{"tag":"42"}` {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestLoggingAndRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	obs := &recordingObserver{}
	r := gin.New()
	r.Use(middleware.Logging(obs), middleware.Recovery())
	r.GET("/boom/:id", func(c *gin.Context) { panic("reader unplugged") })
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for _, path := range []string{"/boom/7", "/ok", "/nope"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	wantRoutes := []string{"/boom/:id", "/ok", "unmatched"}
	wantStatus := []int{http.StatusInternalServerError, http.StatusNoContent, http.StatusNotFound}
	if len(obs.routes) != len(wantRoutes) {
		t.Fatalf("observed %v", obs.routes)
	}
	for i := range wantRoutes {
		if obs.routes[i] != wantRoutes[i] || obs.statuses[i] != wantStatus[i] {
			t.Errorf("request %d = %s %d, want %s %d", i, obs.routes[i], obs.statuses[i], wantRoutes[i], wantStatus[i])
		}
	}
}
