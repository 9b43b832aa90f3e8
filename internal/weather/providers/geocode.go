package providers

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/weathercrow/internal/weather"
)

var errGeocoderUnavailable = errors.New("geocoding needs a location name and a geocoder api key")

// geocoder keeps its key in a package variable.
var geocoderMu sync.Mutex

// ResolveLocation fills in missing coordinates by geocoding the location
// name. Locations that already have coordinates are returned unchanged.
func ResolveLocation(loc weather.Location, apiKey string) (weather.Location, error) {
	if loc.HasCoordinates() {
		return loc, nil
	}
	if loc.Name == "" || apiKey == "" {
		return loc, errGeocoderUnavailable
	}

	geocoderMu.Lock()
	geocoder.ApiKey = apiKey
	res, err := geocoder.Geocoding(geocoder.Address{City: loc.Name})
	geocoderMu.Unlock()
	if err != nil {
		return loc, fmt.Errorf("geocode %q: %w", loc.Name, err)
	}

	lat, lon := res.Latitude, res.Longitude
	loc.Lat = &lat
	loc.Lon = &lon
	log.Printf("INFO: geocoded %q to %.4f,%.4f", loc.Name, lat, lon)
	return loc, nil
}
