package domain

// Institution is a campus known to the coordinate resolver and the institution tagger.
type Institution struct {
	Name    string   `yaml:"name" json:"name"`
	Aliases []string `yaml:"aliases" json:"aliases,omitempty"`
	Lat     float64  `yaml:"lat" json:"lat"`
	Lng     float64  `yaml:"lng" json:"lng"`
	Zoom    int      `yaml:"zoom" json:"zoom"`
	Bounds  *Bounds  `yaml:"bounds,omitempty" json:"bounds,omitempty"`
}

// Bounds is a fixed lat/lng window around a campus.
type Bounds struct {
	MinLat float64 `yaml:"minLat" json:"minLat"`
	MaxLat float64 `yaml:"maxLat" json:"maxLat"`
	MinLng float64 `yaml:"minLng" json:"minLng"`
	MaxLng float64 `yaml:"maxLng" json:"maxLng"`
}

// Contains reports whether c lies inside the window, edges included.
func (b Bounds) Contains(c Coordinate) bool {
	return c.Lat >= b.MinLat && c.Lat <= b.MaxLat && c.Lng >= b.MinLng && c.Lng <= b.MaxLng
}

// Viewport is the map center and zoom for an institution.
type Viewport struct {
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	Zoom int     `json:"zoom"`
}

// Center returns the viewport center as a coordinate.
func (v Viewport) Center() Coordinate {
	return Coordinate{Lat: v.Lat, Lng: v.Lng}
}
