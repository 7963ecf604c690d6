package domain

import "context"

// GeocodingResult contains location data returned by a geocoding provider.
type GeocodingResult struct {
	Country    string
	PlaceName  string
	Confidence float64 // 0.0–1.0 provider confidence score
}

// Geocoder resolves coordinates to the country that contains them.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (GeocodingResult, error)
}
