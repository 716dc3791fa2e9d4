package geocode

import (
	"fmt"

	"github.com/kelvins/geocoder"

	"github.com/ParminderSinghGithub/WeatherScope-CloudCommanders/internal/climate"
)

// Resolver turns city/country pairs into coordinates via the Google geocoding
// API. Disabled when no API key is configured; lat/lon queries bypass it
// entirely.
type Resolver struct {
	enabled bool
}

// NewResolver configures the geocoder package-level API key once.
func NewResolver(apiKey string) *Resolver {
	if apiKey == "" {
		return &Resolver{}
	}
	geocoder.ApiKey = apiKey
	return &Resolver{enabled: true}
}

func (r *Resolver) Enabled() bool {
	return r.enabled
}

// Resolve looks up the location for a city/country pair.
func (r *Resolver) Resolve(city, country string) (climate.Location, error) {
	if !r.enabled {
		return climate.Location{}, fmt.Errorf("geocoder is not configured")
	}

	address := geocoder.Address{
		City:    city,
		Country: country,
	}
	loc, err := geocoder.Geocoding(address)
	if err != nil {
		return climate.Location{}, fmt.Errorf("geocode %s, %s: %w", city, country, err)
	}
	return climate.Location{Lat: loc.Latitude, Lon: loc.Longitude}, nil
}
