package public

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/beanscene/api/internal/interfaces/http/common"
	publicapp "github.com/beanscene/api/internal/public/application"
	"github.com/beanscene/api/internal/public/domain"
)

type pointGeometry struct {
	Type string `json:"type"`
	// Coordinates are [lng, lat] as GeoJSON requires.
	Coordinates [2]float64 `json:"coordinates"`
}

type markerProperties struct {
	CafeID  string  `json:"cafeId,omitempty"`
	PlaceID string  `json:"placeId,omitempty"`
	Name    string  `json:"name"`
	Rating  float64 `json:"rating"`
	Source  string  `json:"source"`
}

type markerFeature struct {
	Type       string           `json:"type"`
	ID         string           `json:"id"`
	Geometry   pointGeometry    `json:"geometry"`
	Properties markerProperties `json:"properties"`
}

type markerCollectionResponse struct {
	Type        string               `json:"type"`
	Features    []markerFeature      `json:"features"`
	Institution string               `json:"institution"`
	Viewport    domain.Viewport      `json:"viewport"`
	PlacesError *placesErrorResponse `json:"placesError,omitempty"`
}

type markerSelectionResponse struct {
	MarkerID string       `json:"markerId"`
	Cafe     cafeResponse `json:"cafe"`
}

func buildMarkerCollection(discovery *publicapp.Discovery, markers []domain.Marker) markerCollectionResponse {
	features := make([]markerFeature, 0, len(markers))
	for _, marker := range markers {
		features = append(features, markerFeature{
			Type:     "Feature",
			ID:       marker.ID,
			Geometry: pointGeometry{Type: "Point", Coordinates: [2]float64{marker.Lng, marker.Lat}},
			Properties: markerProperties{
				CafeID:  marker.CafeID,
				PlaceID: marker.PlaceID,
				Name:    marker.Name,
				Rating:  marker.Rating,
				Source:  string(marker.Source),
			},
		})
	}
	return markerCollectionResponse{
		Type:        "FeatureCollection",
		Features:    features,
		Institution: discovery.Institution,
		Viewport:    discovery.Viewport,
		PlacesError: buildPlacesError(discovery.PlacesError),
	}
}

func (h *Handler) markerListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), common.DiscoveryTimeout)
		defer cancel()

		session, _ := common.SessionFromContext(r.Context())
		discovery, err := h.discovery.Discover(ctx, session, discoverQueryFrom(r))
		if err != nil {
			common.WriteError(h.logger, w, r, err)
			return
		}

		board := publicapp.NewMarkerBoard()
		defer board.Release()
		common.WriteJSON(h.logger, w, http.StatusOK, buildMarkerCollection(discovery, board.Replace(discovery.Cafes)))
	}
}

// markerSelectHandler rebuilds the board for the same query and resolves the
// marker id against it. Ids of persisted cafes and external places are stable
// across refreshes.
func (h *Handler) markerSelectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		markerID := strings.TrimSpace(chi.URLParam(r, "id"))

		ctx, cancel := context.WithTimeout(r.Context(), common.DiscoveryTimeout)
		defer cancel()

		session, _ := common.SessionFromContext(r.Context())
		discovery, err := h.discovery.Discover(ctx, session, discoverQueryFrom(r))
		if err != nil {
			common.WriteError(h.logger, w, r, err)
			return
		}

		board := publicapp.NewMarkerBoard()
		defer board.Release()
		board.Replace(discovery.Cafes)
		cafe, ok := board.Select(markerID)
		if !ok {
			common.WriteError(h.logger, w, r, publicapp.ErrNotFound)
			return
		}
		common.WriteJSON(h.logger, w, http.StatusOK, markerSelectionResponse{MarkerID: markerID, Cafe: buildCafeResponse(cafe)})
	}
}
