package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker"

	"github.com/i474232898/weathercrow/internal/weather"
)

// OpenMeteoFetcher fetches current conditions from Open-Meteo, which needs no
// API key. The response is normalized into the same shape as an
// OpenWeatherMap record so stored snapshots look alike whichever source
// produced them.
type OpenMeteoFetcher struct {
	name    string
	units   string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoFetcher(client *http.Client, units string) *OpenMeteoFetcher {
	return &OpenMeteoFetcher{
		name:    "openmeteo",
		units:   units,
		baseURL: "https://api.open-meteo.com/v1/forecast",
		httpCfg: defaultHTTPConfig(client),
		circuit: newCircuitBreaker("openmeteo"),
	}
}

func (p *OpenMeteoFetcher) Name() string {
	return p.name
}

type openMeteoResponse struct {
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	Timezone         string  `json:"timezone"`
	UTCOffsetSeconds int64   `json:"utc_offset_seconds"`
	Current          struct {
		Time                int64   `json:"time"`
		Temperature         float64 `json:"temperature_2m"`
		ApparentTemperature float64 `json:"apparent_temperature"`
		RelativeHumidity    float64 `json:"relative_humidity_2m"`
		SurfacePressure     float64 `json:"surface_pressure"`
		WindSpeed           float64 `json:"wind_speed_10m"`
		WeatherCode         int     `json:"weather_code"`
	} `json:"current"`
}

type normalizedCondition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
}

type normalizedCurrent struct {
	Dt        int64                 `json:"dt"`
	Temp      float64               `json:"temp"`
	FeelsLike float64               `json:"feels_like"`
	Humidity  float64               `json:"humidity"`
	Pressure  float64               `json:"pressure"`
	WindSpeed float64               `json:"wind_speed"`
	Weather   []normalizedCondition `json:"weather"`
}

type normalizedRecord struct {
	Source         string            `json:"source"`
	Lat            float64           `json:"lat"`
	Lon            float64           `json:"lon"`
	Timezone       string            `json:"timezone,omitempty"`
	TimezoneOffset int64             `json:"timezone_offset"`
	Dt             int64             `json:"dt"`
	Current        normalizedCurrent `json:"current"`
}

func (p *OpenMeteoFetcher) Fetch(ctx context.Context, loc weather.Location) ([]byte, error) {
	if !loc.HasCoordinates() {
		return nil, fmt.Errorf("%s: %w", p.name, errMissingCoordinates)
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", strconv.FormatFloat(*loc.Lat, 'f', -1, 64))
		values.Set("longitude", strconv.FormatFloat(*loc.Lon, 'f', -1, 64))
		values.Set("current", "temperature_2m,apparent_temperature,relative_humidity_2m,surface_pressure,wind_speed_10m,weather_code")
		values.Set("timezone", "auto")
		values.Set("timeformat", "unixtime")
		switch p.units {
		case "imperial":
			values.Set("temperature_unit", "fahrenheit")
			values.Set("wind_speed_unit", "mph")
		default:
			values.Set("wind_speed_unit", "ms")
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

	var payload openMeteoResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	temp := payload.Current.Temperature
	feels := payload.Current.ApparentTemperature
	if p.units == "standard" {
		temp += 273.15
		feels += 273.15
	}

	group, desc := openMeteoGroup(payload.Current.WeatherCode)
	return json.Marshal(normalizedRecord{
		Source:         p.name,
		Lat:            payload.Latitude,
		Lon:            payload.Longitude,
		Timezone:       payload.Timezone,
		TimezoneOffset: payload.UTCOffsetSeconds,
		Dt:             payload.Current.Time,
		Current: normalizedCurrent{
			Dt:        payload.Current.Time,
			Temp:      temp,
			FeelsLike: feels,
			Humidity:  payload.Current.RelativeHumidity,
			Pressure:  payload.Current.SurfacePressure,
			WindSpeed: payload.Current.WindSpeed,
			Weather:   []normalizedCondition{{Main: group, Description: desc}},
		},
	})
}

// openMeteoGroup maps a WMO weather code to an OpenWeatherMap condition group.
func openMeteoGroup(code int) (string, string) {
	switch {
	case code == 0:
		return "Clear", "clear sky"
	case code >= 1 && code <= 3:
		return "Clouds", "partly cloudy"
	case code == 45 || code == 48:
		return "Fog", "fog"
	case code >= 51 && code <= 57:
		return "Drizzle", "drizzle"
	case (code >= 61 && code <= 67) || (code >= 80 && code <= 82):
		return "Rain", "rain"
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return "Snow", "snow"
	case code >= 95:
		return "Thunderstorm", "thunderstorm"
	default:
		return "Unknown", ""
	}
}
