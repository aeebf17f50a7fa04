package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/steemit/hnspool/internal/cache"
	"github.com/steemit/hnspool/internal/indexer"
)

type fakeDispatcher struct {
	limits []int
	err    error
}

func (d *fakeDispatcher) Submit(limit int) (string, error) {
	if d.err != nil {
		return "", d.err
	}
	d.limits = append(d.limits, limit)
	return "run-1", nil
}

type fakeHealth struct {
	err error
}

func (h fakeHealth) Health(ctx context.Context) error {
	return h.err
}

func newTestEngine(d Dispatcher, db, redis HealthChecker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	NewRouter(d, 10, db, redis).SetupRoutes(engine)
	return engine
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return body
}

func TestFetchStories(t *testing.T) {
	tests := []struct {
		name        string
		target      string
		body        string
		expectCode  int
		expectLimit int
		expectField string
	}{
		{"no limit uses default", "/api/v1/stories/fetch", "", http.StatusOK, 10, ""},
		{"query limit", "/api/v1/stories/fetch?limit=5", "", http.StatusOK, 5, ""},
		{"json limit", "/api/v1/stories/fetch", `{"limit": 100}`, http.StatusOK, 100, ""},
		{"empty json", "/api/v1/stories/fetch", `{}`, http.StatusOK, 10, ""},
		{"zero", "/api/v1/stories/fetch?limit=0", "", http.StatusUnprocessableEntity, 0, "The limit must be at least 1."},
		{"too large", "/api/v1/stories/fetch", `{"limit": 101}`, http.StatusUnprocessableEntity, 0, "The limit may not be greater than 100."},
		{"not a number", "/api/v1/stories/fetch?limit=ten", "", http.StatusUnprocessableEntity, 0, "The limit must be an integer."},
		{"json string", "/api/v1/stories/fetch", `{"limit": "ten"}`, http.StatusUnprocessableEntity, 0, "The limit must be an integer."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDispatcher{}
			engine := newTestEngine(d, fakeHealth{}, nil)

			req := httptest.NewRequest(http.MethodPost, tt.target, strings.NewReader(tt.body))
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)

			if w.Code != tt.expectCode {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.expectCode, w.Body.String())
			}
			body := decode(t, w)

			if tt.expectCode == http.StatusOK {
				if body["status"] != true || body["message"] != "Fetching stories job dispatched." {
					t.Errorf("body = %v", body)
				}
				data, _ := body["data"].(map[string]interface{})
				if data["run_id"] != "run-1" || data["limit"] != float64(tt.expectLimit) {
					t.Errorf("data = %v", data)
				}
				if len(d.limits) != 1 || d.limits[0] != tt.expectLimit {
					t.Errorf("dispatched limits = %v", d.limits)
				}
				return
			}

			if body["status"] != false {
				t.Errorf("status = %v, want false", body["status"])
			}
			fields, _ := body["errors"].(map[string]interface{})
			if fields["limit"] != tt.expectField {
				t.Errorf("errors.limit = %v, want %q", fields["limit"], tt.expectField)
			}
			if len(d.limits) != 0 {
				t.Errorf("invalid request dispatched %v", d.limits)
			}
		})
	}
}

func TestFetchStories_DispatchError(t *testing.T) {
	d := &fakeDispatcher{err: &indexer.DispatchError{Limit: 10, Err: indexer.ErrQueueFull}}
	engine := newTestEngine(d, fakeHealth{}, nil)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/stories/fetch", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	body := decode(t, w)
	if body["status"] != false || body["message"] == "" {
		t.Errorf("body = %v", body)
	}
	if msg, _ := body["error"].(string); !strings.Contains(msg, "queue is full") {
		t.Errorf("error = %q", msg)
	}
}

func TestHealth(t *testing.T) {
	var disabled *cache.Cache

	tests := []struct {
		name        string
		db          HealthChecker
		redis       HealthChecker
		expectCode  int
		expectRedis string
	}{
		{"healthy without redis", fakeHealth{}, disabled, http.StatusOK, "disabled"},
		{"healthy with redis", fakeHealth{}, fakeHealth{}, http.StatusOK, "ok"},
		{"redis down stays up", fakeHealth{}, fakeHealth{err: errors.New("dial tcp: refused")}, http.StatusOK, "dial tcp: refused"},
		{"database down", fakeHealth{err: errors.New("db closed")}, nil, http.StatusServiceUnavailable, "disabled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(&fakeDispatcher{}, tt.db, tt.redis)

			for _, path := range []string{"/health", "/.well-known/healthcheck.json"} {
				w := httptest.NewRecorder()
				engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
				if w.Code != tt.expectCode {
					t.Errorf("%s status = %d, want %d", path, w.Code, tt.expectCode)
				}
				if body := decode(t, w); body["redis"] != tt.expectRedis {
					t.Errorf("%s redis = %v, want %s", path, body["redis"], tt.expectRedis)
				}
			}
		})
	}
}

func TestMetrics(t *testing.T) {
	engine := newTestEngine(&fakeDispatcher{}, fakeHealth{}, nil)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}
