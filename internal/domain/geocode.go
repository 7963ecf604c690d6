package domain

import (
	"context"
	"log/slog"
)

// EnrichWithCountry fills Country for records that have coordinates but no
// country, using the geocoder. The input slice is not modified. If geocoder is
// nil or a lookup fails, the record keeps an absent country (graceful
// degradation).
func EnrichWithCountry(ctx context.Context, events []Event, geocoder Geocoder, logger *slog.Logger) []Event {
	if geocoder == nil || len(events) == 0 {
		return events
	}

	out := make([]Event, len(events))
	copy(out, events)

	for i := range out {
		e := &out[i]
		if e.Country != nil || e.Latitude == nil || e.Longitude == nil {
			continue
		}
		result, err := geocoder.ReverseGeocode(ctx, *e.Latitude, *e.Longitude)
		if err != nil {
			logger.Warn("reverse geocoding failed",
				"source", e.Source,
				"lat", *e.Latitude,
				"lon", *e.Longitude,
				"error", err,
			)
			continue
		}
		e.Country = String(result.Country)
	}
	return out
}
