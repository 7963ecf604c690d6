// Package domain models disaster-event records gathered from public feeds.
//
// # Data Sources
//
// Three upstream feeds are normalized into one canonical [Event]:
//
//	usgs       USGS earthquake summary feed (GeoJSON FeatureCollection).
//	           https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/all_day.geojson
//	gdacs      Global Disaster Alert and Coordination System (RSS 2.0 with
//	           gdacs:* and geo:* namespace extensions).
//	           https://www.gdacs.org/xml/rss.xml
//	reliefweb  ReliefWeb disasters API (paginated JSON list, POST query body).
//	           https://api.reliefweb.int/v1/disasters
//
// # Canonical Record Conventions
//
// Optional fields are pointers; nil means the upstream did not report a value.
// Adapters pass every record through [Normalize] before returning it, so
// consumers can rely on:
//
//	- Source is one of the known adapter identifiers.
//	- String fields are trimmed; empty strings are nil.
//	- Latitude and Longitude are both set or both nil, and within
//	  [-90,90] / [-180,180].
//
// Start times stay strings in the record. Adapters emit ISO-8601 where they
// can; a gdacs pubDate that fails to parse is kept verbatim. [ParseStartTime]
// is the one place that interprets them.
//
// The RawJSON field keeps the full upstream item for audit and later
// reprocessing. Nothing downstream of the adapters decodes it.
//
// # Identity
//
// Records carry no identity of their own. The event store assigns an opaque
// ID and a CreatedAt timestamp on insert, see [StoredEvent]. Insert is
// append-only: re-ingesting the same upstream item produces a new row.
package domain
