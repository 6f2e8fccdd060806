package application

import (
	"math"
	"strings"

	"github.com/beanscene/api/internal/public/domain"
)

// DuplicateEpsilon is the per-axis coordinate tolerance, in degrees, under
// which two same-named places are the same cafe (roughly 100m).
const DuplicateEpsilon = 0.001

// InstitutionTagger assigns a campus tag to a coordinate.
type InstitutionTagger interface {
	TagFor(c domain.Coordinate) string
}

// BuildCafeViews derives rating stats for persisted rows as seen by userID.
func BuildCafeViews(rows []domain.CafeWithReviews, userID string) []domain.Cafe {
	cafes := make([]domain.Cafe, 0, len(rows))
	for _, row := range rows {
		cafe := row.Cafe
		cafe.Source = domain.SourcePersisted
		cafe.ReviewCount = len(row.Reviews)
		cafe.AverageRating = averageRating(row.Reviews)
		cafe.HasUserReview = false
		if userID != "" {
			for _, review := range row.Reviews {
				if review.UserID == userID {
					cafe.HasUserReview = true
					break
				}
			}
		}
		cafes = append(cafes, cafe)
	}
	return cafes
}

// Merge returns persisted followed by every external record that does not
// duplicate a persisted cafe, in the external list's order. Persisted entries
// are never modified by external data.
func Merge(persisted []domain.Cafe, external []domain.PlaceRecord, tagger InstitutionTagger) []domain.Cafe {
	merged := make([]domain.Cafe, 0, len(persisted)+len(external))
	merged = append(merged, persisted...)

	for _, place := range external {
		if isDuplicate(place, persisted) {
			continue
		}
		merged = append(merged, cafeFromPlace(place, tagger))
	}
	return merged
}

func isDuplicate(place domain.PlaceRecord, persisted []domain.Cafe) bool {
	for _, cafe := range persisted {
		if !strings.EqualFold(strings.TrimSpace(cafe.Name), strings.TrimSpace(place.Name)) {
			continue
		}
		if math.Abs(cafe.Location.Lat-place.Location.Lat) < DuplicateEpsilon &&
			math.Abs(cafe.Location.Lng-place.Location.Lng) < DuplicateEpsilon {
			return true
		}
	}
	return false
}

func cafeFromPlace(place domain.PlaceRecord, tagger InstitutionTagger) domain.Cafe {
	institution := domain.UnknownInstitution
	if tagger != nil {
		institution = tagger.TagFor(place.Location)
	}
	return domain.Cafe{
		PlaceID:     place.ID,
		Name:        place.Name,
		Address:     place.Address,
		Institution: institution,
		Location:    place.Location,
		Categories:  append([]string{}, place.Categories...),
		Cuisine:     place.Cuisine,
		Phone:       place.Phone,
		Website:     place.Website,
		Source:      domain.SourceExternal,
	}
}

func averageRating(reviews []domain.Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	sum := 0.0
	for _, review := range reviews {
		sum += review.Rating
	}
	return roundOneDecimal(sum / float64(len(reviews)))
}

// roundOneDecimal rounds half away from zero.
func roundOneDecimal(v float64) float64 {
	return math.Round(v*10) / 10
}
