package application

import (
	"strconv"
	"sync"

	"github.com/beanscene/api/internal/public/domain"
)

// MarkerBoard owns the marker set drawn for one map view. Every new cafe list
// replaces the whole set.
type MarkerBoard struct {
	mu       sync.Mutex
	markers  []domain.Marker
	cafes    map[string]domain.Cafe
	released bool
}

// NewMarkerBoard creates an empty board.
func NewMarkerBoard() *MarkerBoard {
	return &MarkerBoard{cafes: map[string]domain.Cafe{}}
}

// Replace drops every marker and draws one per cafe. It returns the new set,
// or nil once the board has been released.
func (b *MarkerBoard) Replace(cafes []domain.Cafe) []domain.Marker {
	markers := make([]domain.Marker, 0, len(cafes))
	byID := make(map[string]domain.Cafe, len(cafes))
	for i, cafe := range cafes {
		marker := domain.Marker{
			ID:      MarkerID(cafe, i),
			CafeID:  cafe.ID,
			PlaceID: cafe.PlaceID,
			Name:    cafe.Name,
			Lat:     cafe.Location.Lat,
			Lng:     cafe.Location.Lng,
			Rating:  cafe.AverageRating,
			Source:  cafe.Source,
		}
		markers = append(markers, marker)
		byID[marker.ID] = cafe
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return nil
	}
	b.markers = markers
	b.cafes = byID
	return append([]domain.Marker(nil), markers...)
}

// Markers returns the current set.
func (b *MarkerBoard) Markers() []domain.Marker {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.Marker(nil), b.markers...)
}

// Select resolves an activated marker to its cafe.
func (b *MarkerBoard) Select(markerID string) (domain.Cafe, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cafe, ok := b.cafes[markerID]
	return cafe, ok
}

// Release drops all markers. The board stays empty afterwards.
func (b *MarkerBoard) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.released = true
	b.markers = nil
	b.cafes = map[string]domain.Cafe{}
}

// MarkerID is stable across refreshes for persisted cafes and external places.
func MarkerID(cafe domain.Cafe, index int) string {
	switch {
	case cafe.ID != "":
		return "c-" + cafe.ID
	case cafe.PlaceID != "":
		return "p-" + cafe.PlaceID
	default:
		return "i-" + strconv.Itoa(index)
	}
}
