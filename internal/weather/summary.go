package weather

import (
	"time"

	"github.com/goccy/go-json"
)

// Summary is the display-oriented view of a snapshot.
type Summary struct {
	// ObservedAt is the observation time shifted into the location's offset.
	ObservedAt     time.Time `json:"observedAt"`
	TimezoneOffset int64     `json:"timezoneOffset"`
	Temperature    float64   `json:"temperature"`
	FeelsLike      float64   `json:"feelsLike"`
	Humidity       float64   `json:"humidityPercent"`
	Pressure       float64   `json:"pressureHpa"`
	WindSpeed      float64   `json:"windSpeed"`
	Condition      Condition `json:"condition"`
	Description    string    `json:"description,omitempty"`
	Icon           string    `json:"icon,omitempty"`

	// SavedUptimeMs is the device uptime at which the snapshot was stored.
	SavedUptimeMs int64 `json:"savedUptimeMs"`
}

type currentBlock struct {
	Dt        int64   `json:"dt"`
	Temp      float64 `json:"temp"`
	FeelsLike float64 `json:"feels_like"`
	Humidity  float64 `json:"humidity"`
	Pressure  float64 `json:"pressure"`
	WindSpeed float64 `json:"wind_speed"`
	Weather   []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
}

// Summarize decodes the current-conditions block of a snapshot. ok is false
// when the snapshot has no usable "current" object.
func Summarize(s Snapshot) (Summary, bool) {
	raw, found := s["current"]
	if !found {
		return Summary{}, false
	}

	var cur currentBlock
	if err := json.Unmarshal(raw, &cur); err != nil {
		return Summary{}, false
	}

	dt, ok := s.Int64(FieldObservedAt)
	if !ok {
		dt = cur.Dt
	}
	offset, _ := s.Int64(FieldTimezoneOffset)
	saved, _ := s.SavedTimestamp()

	sum := Summary{
		ObservedAt:     time.Unix(dt, 0).In(time.FixedZone("", int(offset))),
		TimezoneOffset: offset,
		Temperature:    cur.Temp,
		FeelsLike:      cur.FeelsLike,
		Humidity:       cur.Humidity,
		Pressure:       cur.Pressure,
		WindSpeed:      cur.WindSpeed,
		Condition:      ConditionUnknown,
		SavedUptimeMs:  saved,
	}
	if len(cur.Weather) > 0 {
		sum.Condition = ConditionFromGroup(cur.Weather[0].Main)
		sum.Description = cur.Weather[0].Description
		sum.Icon = cur.Weather[0].Icon
	}
	return sum, true
}
