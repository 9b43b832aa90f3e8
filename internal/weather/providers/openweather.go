package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker"

	"github.com/i474232898/weathercrow/internal/weather"
)

var (
	errMissingAPIKey      = errors.New("openweather api key is not configured")
	errMissingCoordinates = errors.New("location has no coordinates")
)

// OpenWeatherFetcher fetches the One Call document from OpenWeatherMap.
// The response body is returned unchanged; it carries dt (inside current)
// and timezone_offset at the top level.
type OpenWeatherFetcher struct {
	name    string
	apiKey  string
	units   string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenWeatherFetcher(client *http.Client, apiKey, units string) *OpenWeatherFetcher {
	return &OpenWeatherFetcher{
		name:    "openweathermap",
		apiKey:  apiKey,
		units:   units,
		baseURL: "https://api.openweathermap.org/data/3.0/onecall",
		httpCfg: defaultHTTPConfig(client),
		circuit: newCircuitBreaker("openweather"),
	}
}

func (p *OpenWeatherFetcher) Name() string {
	return p.name
}

func (p *OpenWeatherFetcher) Fetch(ctx context.Context, loc weather.Location) ([]byte, error) {
	if p.apiKey == "" {
		return nil, errMissingAPIKey
	}
	if !loc.HasCoordinates() {
		return nil, fmt.Errorf("%s: %w", p.name, errMissingCoordinates)
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("appid", p.apiKey)
		values.Set("lat", strconv.FormatFloat(*loc.Lat, 'f', -1, 64))
		values.Set("lon", strconv.FormatFloat(*loc.Lon, 'f', -1, 64))
		values.Set("exclude", "minutely,alerts")
		if p.units != "" {
			values.Set("units", p.units)
		}

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	body, err := readObject(resp)
	if err != nil {
		return nil, err
	}
	return liftObservedAt(body)
}

// liftObservedAt copies current.dt to the top level when the document has no
// dt of its own, so the stored record carries dt next to timezone_offset.
func liftObservedAt(body []byte) ([]byte, error) {
	snap, err := weather.ParseSnapshot(body)
	if err != nil {
		return nil, err
	}
	if _, ok := snap[weather.FieldObservedAt]; ok {
		return body, nil
	}

	raw, ok := snap["current"]
	if !ok {
		return body, nil
	}
	var cur struct {
		Dt *int64 `json:"dt"`
	}
	if err := json.Unmarshal(raw, &cur); err != nil || cur.Dt == nil {
		return body, nil
	}

	snap.SetInt64(weather.FieldObservedAt, *cur.Dt)
	return json.Marshal(snap)
}
