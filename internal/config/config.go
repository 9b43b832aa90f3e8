package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/i474232898/weathercrow/internal/weather"
)

var validate = validator.New()

type AppConfig struct {
	OpenWeatherAPIKey string
	GeocoderAPIKey    string

	// Units is passed to the weather API: metric, imperial or standard.
	Units string `validate:"oneof=metric imperial standard"`

	Location  weather.Location `validate:"-"`
	Latitude  *float64         `validate:"omitempty,latitude"`
	Longitude *float64         `validate:"omitempty,longitude"`

	// RefreshInterval controls how often the fetch cycle runs.
	RefreshInterval time.Duration `validate:"min=1m"`

	// DataDir is the directory backing the record store.
	DataDir string `validate:"required"`

	HTTPTimeout time.Duration `validate:"gt=0"`
	Port        string        `validate:"required,numeric"`
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")
	cfg.Units = getenvDefault("WEATHER_UNITS", "metric")

	var err error
	if cfg.Latitude, err = getenvFloat("WEATHER_LATITUDE"); err != nil {
		return nil, err
	}
	if cfg.Longitude, err = getenvFloat("WEATHER_LONGITUDE"); err != nil {
		return nil, err
	}
	if (cfg.Latitude == nil) != (cfg.Longitude == nil) {
		return nil, fmt.Errorf("WEATHER_LATITUDE and WEATHER_LONGITUDE must be set together")
	}
	cfg.Location = weather.Location{
		Name: os.Getenv("WEATHER_LOCATION_NAME"),
		Lat:  cfg.Latitude,
		Lon:  cfg.Longitude,
	}

	// Refresh interval: default 60 minutes.
	if cfg.RefreshInterval, err = getenvDuration("REFRESH_INTERVAL", "60m"); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}

	cfg.DataDir = getenvDefault("DATA_DIR", "./data")
	cfg.Port = getenvDefault("PORT", "8080")

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getenvFloat(key string) (*float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	return &f, nil
}
