package httpapi

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weathercrow/internal/flashfs"
	"github.com/i474232898/weathercrow/internal/store"
	"github.com/i474232898/weathercrow/internal/weather"
)

func newTestApp(t *testing.T) (*fiber.App, *store.RecordStore) {
	t.Helper()

	st := store.New(flashfs.NewMemory())
	if err := st.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	svc := weather.NewService(st, nil, weather.Location{Name: "Tokyo"}, true)

	app := NewApp()
	RegisterHealth(app, svc, nil)
	RegisterRoutes(app, svc)
	return app, st
}

func do(t *testing.T, app *fiber.App, method, target, body string) (int, map[string]any) {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var out map[string]any
	if len(data) > 0 && data[0] == '{' {
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatalf("decode body %q: %v", data, err)
		}
	}
	return resp.StatusCode, out
}

func TestWeatherEndpointsWithoutData(t *testing.T) {
	app, _ := newTestApp(t)

	for _, target := range []string{"/api/v1/weather/latest", "/api/v1/weather/current"} {
		if code, _ := do(t, app, http.MethodGet, target, ""); code != http.StatusNotFound {
			t.Fatalf("%s: expected status %d, got %d", target, http.StatusNotFound, code)
		}
	}

	code, body := do(t, app, http.MethodGet, "/api/v1/connection/last", "")
	if code != http.StatusOK || body["timestamp"] != float64(0) {
		t.Fatalf("expected timestamp 0, got %d %v", code, body)
	}

	code, body = do(t, app, http.MethodGet, "/api/v1/weather/history", "")
	if code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, code)
	}
	if snaps, ok := body["snapshots"].([]any); !ok || len(snaps) != 0 {
		t.Fatalf("expected empty snapshot list, got %v", body["snapshots"])
	}
}

func TestWeatherEndpoints(t *testing.T) {
	app, st := newTestApp(t)
	st.SaveWeatherSnapshot([]byte(`{"dt":1000,"timezone_offset":32400,"current":{"temp":18,"weather":[{"main":"Rain"}]}}`))

	code, body := do(t, app, http.MethodGet, "/api/v1/weather/latest", "")
	if code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, code)
	}
	if body["dt"] != float64(1000) {
		t.Fatalf("unexpected snapshot %v", body)
	}
	if _, ok := body["saved_timestamp"]; !ok {
		t.Fatalf("expected saved_timestamp in %v", body)
	}

	code, body = do(t, app, http.MethodGet, "/api/v1/weather/current", "")
	if code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, code)
	}
	current, _ := body["current"].(map[string]any)
	if current["condition"] != string(weather.ConditionRain) || current["temperature"] != float64(18) {
		t.Fatalf("unexpected summary %v", body)
	}

	code, body = do(t, app, http.MethodGet, "/api/v1/connection/last", "")
	if code != http.StatusOK || body["timestamp"] != float64(33400) {
		t.Fatalf("expected timestamp 33400, got %d %v", code, body)
	}
}

func TestConnectionLogLimitValidation(t *testing.T) {
	app, st := newTestApp(t)
	for i := 0; i < 4; i++ {
		st.LogConnectionAttempt(i%2 == 0, "timeout")
	}

	for _, target := range []string{
		"/api/v1/connection/log?limit=0",
		"/api/v1/connection/log?limit=11",
	} {
		if code, _ := do(t, app, http.MethodGet, target, ""); code != http.StatusBadRequest {
			t.Fatalf("%s: expected status %d, got %d", target, http.StatusBadRequest, code)
		}
	}

	code, body := do(t, app, http.MethodGet, "/api/v1/connection/log?limit=2", "")
	if code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, code)
	}
	if entries, _ := body["entries"].([]any); len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %v", body["entries"])
	}

	_, body = do(t, app, http.MethodGet, "/api/v1/connection/log", "")
	if entries, _ := body["entries"].([]any); len(entries) != 4 {
		t.Fatalf("expected all 4 entries, got %v", body["entries"])
	}
}

func TestFailureCountEndpoints(t *testing.T) {
	app, _ := newTestApp(t)

	code, body := do(t, app, http.MethodGet, "/api/v1/failures", "")
	if code != http.StatusOK || body["count"] != float64(0) {
		t.Fatalf("expected count 0, got %d %v", code, body)
	}

	code, body = do(t, app, http.MethodPut, "/api/v1/failures", `{"count":5}`)
	if code != http.StatusOK || body["count"] != float64(5) {
		t.Fatalf("expected count 5, got %d %v", code, body)
	}

	for _, bad := range []string{`{"count":-1}`, `{}`, `not json`} {
		if code, _ := do(t, app, http.MethodPut, "/api/v1/failures", bad); code != http.StatusBadRequest {
			t.Fatalf("%s: expected status %d, got %d", bad, http.StatusBadRequest, code)
		}
	}

	_, body = do(t, app, http.MethodGet, "/api/v1/failures", "")
	if body["count"] != float64(5) {
		t.Fatalf("rejected updates must not change the count, got %v", body)
	}

	code, body = do(t, app, http.MethodPut, "/api/v1/failures", `{"count":0}`)
	if code != http.StatusOK || body["count"] != float64(0) {
		t.Fatalf("expected count reset to 0, got %d %v", code, body)
	}
}

func TestHealth(t *testing.T) {
	app, _ := newTestApp(t)

	code, body := do(t, app, http.MethodGet, "/api/v1/unknown", "")
	if code != http.StatusNotFound || body["error"] != true {
		t.Fatalf("expected JSON 404, got %d %v", code, body)
	}

	code, body = do(t, app, http.MethodGet, "/health", "")
	if code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("unexpected health response %d %v", code, body)
	}
	if _, ok := body["storage"]; ok {
		t.Fatalf("storage usage must be omitted without a reporter")
	}
}
