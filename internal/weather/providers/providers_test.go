package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/i474232898/weathercrow/internal/weather"
)

func testLocation() weather.Location {
	lat, lon := 43.6532, -79.3832
	return weather.Location{Name: "Toronto", Lat: &lat, Lon: &lon}
}

func fastBackoff(client *http.Client) HTTPClientConfig {
	return HTTPClientConfig{
		Client: client,
		Backoff: BackoffConfig{
			MaxRetries:      2,
			InitialInterval: time.Millisecond,
			MaxInterval:     5 * time.Millisecond,
		},
	}
}

func newTestOpenWeather(t *testing.T, h http.HandlerFunc) *OpenWeatherFetcher {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	p := NewOpenWeatherFetcher(srv.Client(), "secret", "metric")
	p.baseURL = srv.URL
	p.httpCfg = fastBackoff(srv.Client())
	return p
}

func TestOpenWeatherFetch(t *testing.T) {
	p := newTestOpenWeather(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("appid") != "secret" || q.Get("units") != "metric" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if q.Get("lat") != "43.6532" || q.Get("lon") != "-79.3832" {
			t.Errorf("unexpected coordinates %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"lat":43.65,"lon":-79.38,"timezone_offset":32400,"current":{"dt":1000,"temp":3.5,"weather":[{"main":"Snow"}]}}`))
	})

	raw, err := p.Fetch(context.Background(), testLocation())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	snap, err := weather.ParseSnapshot(raw)
	if err != nil {
		t.Fatalf("record does not parse: %v", err)
	}
	if ts, ok := snap.LocalObservedAt(); !ok || ts != 33400 {
		t.Fatalf("expected dt lifted from current, got %d (%v)", ts, ok)
	}
	sum, ok := weather.Summarize(snap)
	if !ok || sum.Condition != weather.ConditionSnow {
		t.Fatalf("unexpected summary %+v", sum)
	}
}

func TestOpenWeatherKeepsTopLevelDt(t *testing.T) {
	body := `{"dt":5,"timezone_offset":0,"current":{"dt":1000}}`
	p := newTestOpenWeather(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	})

	raw, err := p.Fetch(context.Background(), testLocation())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(raw) != body {
		t.Fatalf("expected body unchanged, got %s", raw)
	}
}

func TestOpenWeatherRequiresKeyAndCoordinates(t *testing.T) {
	var calls int32
	p := newTestOpenWeather(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})

	if _, err := p.Fetch(context.Background(), weather.Location{Name: "Nowhere"}); !errors.Is(err, errMissingCoordinates) {
		t.Fatalf("expected errMissingCoordinates, got %v", err)
	}

	p.apiKey = ""
	if _, err := p.Fetch(context.Background(), testLocation()); !errors.Is(err, errMissingAPIKey) {
		t.Fatalf("expected errMissingAPIKey, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatalf("expected no requests, got %d", calls)
	}
}

func TestRetriesServerErrors(t *testing.T) {
	var calls int32
	p := newTestOpenWeather(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"dt":1,"timezone_offset":2}`))
	})

	if _, err := p.Fetch(context.Background(), testLocation()); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var calls int32
	p := newTestOpenWeather(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := p.Fetch(context.Background(), testLocation())
	if !errors.Is(err, errUnexpected) {
		t.Fatalf("expected errUnexpected, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected a single attempt, got %d", got)
	}
}

func TestRejectsNonObjectBody(t *testing.T) {
	p := newTestOpenWeather(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[1,2,3]`))
	})

	if _, err := p.Fetch(context.Background(), testLocation()); err == nil {
		t.Fatalf("expected error for array body")
	}
}

func TestOpenMeteoNormalizesRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("timeformat") != "unixtime" {
			t.Errorf("expected unixtime, got %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{
			"latitude": 43.65, "longitude": -79.38, "timezone": "America/Toronto",
			"utc_offset_seconds": -14400,
			"current": {"time": 1700000000, "temperature_2m": 12.5, "apparent_temperature": 11,
				"relative_humidity_2m": 80, "surface_pressure": 1012, "wind_speed_10m": 4.2, "weather_code": 61}
		}`))
	}))
	defer srv.Close()

	p := NewOpenMeteoFetcher(srv.Client(), "metric")
	p.baseURL = srv.URL
	p.httpCfg = fastBackoff(srv.Client())

	raw, err := p.Fetch(context.Background(), testLocation())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	snap, err := weather.ParseSnapshot(raw)
	if err != nil {
		t.Fatalf("record does not parse: %v", err)
	}
	if ts, ok := snap.LocalObservedAt(); !ok || ts != 1700000000-14400 {
		t.Fatalf("unexpected local time %d (%v)", ts, ok)
	}

	sum, ok := weather.Summarize(snap)
	if !ok {
		t.Fatalf("expected summary")
	}
	if sum.Condition != weather.ConditionRain || sum.Temperature != 12.5 || sum.Humidity != 80 {
		t.Fatalf("unexpected summary %+v", sum)
	}
}

func TestOpenMeteoGroup(t *testing.T) {
	cases := map[int]weather.Condition{
		0:  weather.ConditionClear,
		2:  weather.ConditionCloudy,
		45: weather.ConditionMist,
		53: weather.ConditionRain,
		81: weather.ConditionRain,
		73: weather.ConditionSnow,
		96: weather.ConditionStorm,
		30: weather.ConditionUnknown,
	}
	for code, want := range cases {
		group, _ := openMeteoGroup(code)
		if got := weather.ConditionFromGroup(group); got != want {
			t.Errorf("code %d: got %s, want %s", code, got, want)
		}
	}
}

type stubFetcher struct {
	name  string
	raw   []byte
	err   error
	calls int
}

func (s *stubFetcher) Name() string { return s.name }

func (s *stubFetcher) Fetch(ctx context.Context, loc weather.Location) ([]byte, error) {
	s.calls++
	return s.raw, s.err
}

func TestFailover(t *testing.T) {
	primary := &stubFetcher{name: "primary", err: errors.New("timeout")}
	fallback := &stubFetcher{name: "fallback", raw: []byte(`{"dt":1}`)}
	unused := &stubFetcher{name: "unused", raw: []byte(`{"dt":2}`)}

	f := NewFailover(primary, nil, fallback, unused)
	if f.Name() != "primary,fallback,unused" {
		t.Fatalf("unexpected name %q", f.Name())
	}

	raw, err := f.Fetch(context.Background(), testLocation())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(raw) != `{"dt":1}` {
		t.Fatalf("unexpected record %s", raw)
	}
	if unused.calls != 0 {
		t.Fatalf("fetchers after a success must not be called")
	}
}

func TestFailoverAllFail(t *testing.T) {
	f := NewFailover(
		&stubFetcher{name: "a", err: errors.New("dns failure")},
		&stubFetcher{name: "b", err: errors.New("HTTP 503")},
	)

	_, err := f.Fetch(context.Background(), testLocation())
	if err == nil {
		t.Fatalf("expected error")
	}
	for _, want := range []string{"a: dns failure", "b: HTTP 503"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q missing %q", err, want)
		}
	}

	if _, err := NewFailover().Fetch(context.Background(), testLocation()); !errors.Is(err, errNoFetchers) {
		t.Fatalf("expected errNoFetchers, got %v", err)
	}
}

func TestResolveLocation(t *testing.T) {
	loc := testLocation()
	got, err := ResolveLocation(loc, "")
	if err != nil {
		t.Fatalf("location with coordinates must resolve without geocoding: %v", err)
	}
	if *got.Lat != *loc.Lat || *got.Lon != *loc.Lon {
		t.Fatalf("coordinates changed: %+v", got)
	}

	if _, err := ResolveLocation(weather.Location{Name: "Toronto"}, ""); !errors.Is(err, errGeocoderUnavailable) {
		t.Fatalf("expected errGeocoderUnavailable, got %v", err)
	}
}
