package domain

import "time"

// Source tags where a cafe entry in a discovery list came from.
type Source string

const (
	SourcePersisted Source = "persisted"
	SourceExternal  Source = "external"
)

// UnknownInstitution is the tag given to external places outside every known campus window.
const UnknownInstitution = "unknown"

// Coordinate is a WGS84 point.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Cafe represents one entry of a reconciled cafe list.
// AverageRating, ReviewCount and HasUserReview are derived and never stored.
type Cafe struct {
	ID            string
	PlaceID       string
	Name          string
	Address       string
	Institution   string
	Location      Coordinate
	Categories    []string
	Cuisine       string
	PriceLevel    string
	Phone         string
	Website       string
	AverageRating float64
	ReviewCount   int
	HasUserReview bool
	Source        Source
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CafeWithReviews is a persisted cafe row joined with its nested reviews.
type CafeWithReviews struct {
	Cafe    Cafe
	Reviews []Review
}

// PlaceRecord is the provider-neutral shape every place-search adapter returns.
type PlaceRecord struct {
	ID         string
	Provider   string
	Name       string
	Address    string
	Location   Coordinate
	Categories []string
	Cuisine    string
	Phone      string
	Website    string
}
