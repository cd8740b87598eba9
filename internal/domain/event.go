package domain

import "time"

// SeismicEvent is one seismic occurrence as reported by a catalog source.
// Depth and Magnitude are pointers because several sources legitimately
// omit them; zero would be a valid measurement for neither.
type SeismicEvent struct {
	EventID   string    `json:"event_id"`
	Agency    string    `json:"agency"`
	Catalog   string    `json:"catalog"`
	EventTime time.Time `json:"event_time"`
	Longitude float64   `json:"longitude"`
	Latitude  float64   `json:"latitude"`
	Depth     *float64  `json:"depth,omitempty"`
	Magnitude *float64  `json:"magnitude,omitempty"`
	MagType   string    `json:"mag_type,omitempty"`
}

// BBox is a latitude/longitude bounding rectangle used to constrain
// catalog queries.
type BBox struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Contains reports whether the coordinate falls inside the box, bounds
// inclusive. The zero BBox contains nothing except the origin, so callers
// filtering optionally should check IsZero first.
func (b BBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// IsZero reports whether no bounds were set.
func (b BBox) IsZero() bool {
	return b == BBox{}
}

// CatalogQuery carries the parameters a source extractor needs to fetch one
// unit of catalog data. Bbox-constrained sources (USGS, ISC) use the full
// date range; IGP is region-fixed and reads only Year.
type CatalogQuery struct {
	Year      int
	StartDate string // YYYY-MM-DD, inclusive
	EndDate   string // YYYY-MM-DD, inclusive
	BBox      BBox
}

// StationInfo describes a fixed strong-motion sensor site.
type StationInfo struct {
	Code      string
	Name      string
	Latitude  float64
	Longitude float64
	Network   string
}

// AccelerationRecord is the per-station metadata for one waveform capture
// tied to one event.
type AccelerationRecord struct {
	EventID            string
	StationID          int64
	StartTime          time.Time
	NumSamples         int
	SamplingFrequency  float64 // Hz
	PGAVertical        float64
	PGANorth           float64
	PGAEast            float64
	BaselineCorrection bool
	FilePath           string
}

// Sample is one time-indexed acceleration triple in cm/s².
type Sample struct {
	Vertical float64
	North    float64
	East     float64
}

// Float64Ptr returns a pointer to v. Convenience for optional numeric
// fields on SeismicEvent.
func Float64Ptr(v float64) *float64 {
	return &v
}
