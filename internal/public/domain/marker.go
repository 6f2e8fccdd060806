package domain

// Marker is one map pin for a reconciled cafe.
type Marker struct {
	ID      string
	CafeID  string
	PlaceID string
	Name    string
	Lat     float64
	Lng     float64
	Rating  float64
	Source  Source
}
