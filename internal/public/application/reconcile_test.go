package application

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beanscene/api/internal/public/domain"
)

func TestMergeDropsBlueBottleDuplicate(t *testing.T) {
	rows := []domain.CafeWithReviews{{
		Cafe: domain.Cafe{ID: "c1", Name: "Blue Bottle", Location: domain.Coordinate{Lat: 34.0700, Lng: -118.4450}},
		Reviews: []domain.Review{
			{UserID: "u1", CafeID: "c1", Rating: 7},
			{UserID: "u2", CafeID: "c1", Rating: 8},
		},
	}}
	external := []domain.PlaceRecord{{
		ID:       "g-1",
		Name:     "blue bottle",
		Location: domain.Coordinate{Lat: 34.0701, Lng: -118.4451},
	}}

	merged := Merge(BuildCafeViews(rows, ""), external, testResolver())

	require.Len(t, merged, 1)
	assert.Equal(t, "c1", merged[0].ID)
	assert.Equal(t, 7.5, merged[0].AverageRating)
	assert.Equal(t, 2, merged[0].ReviewCount)
	assert.Equal(t, domain.SourcePersisted, merged[0].Source)
}

func TestMergeKeepsPersistedThenExternalOrder(t *testing.T) {
	persisted := []domain.Cafe{
		{ID: "p1", Name: "Alpha", Location: domain.Coordinate{Lat: 1, Lng: 1}},
		{ID: "p2", Name: "Beta", Location: domain.Coordinate{Lat: 2, Lng: 2}},
	}
	external := []domain.PlaceRecord{
		{ID: "e1", Name: "Gamma", Location: domain.Coordinate{Lat: 3, Lng: 3}},
		{ID: "e2", Name: " ALPHA ", Location: domain.Coordinate{Lat: 1.0005, Lng: 0.9995}},
		{ID: "e3", Name: "Beta", Location: domain.Coordinate{Lat: 2.01, Lng: 2}},
		{ID: "e4", Name: "Delta", Location: domain.Coordinate{Lat: 4, Lng: 4}},
	}

	first := Merge(persisted, external, nil)
	second := Merge(persisted, external, nil)

	ids := func(cafes []domain.Cafe) []string {
		out := make([]string, 0, len(cafes))
		for _, c := range cafes {
			if c.ID != "" {
				out = append(out, c.ID)
			} else {
				out = append(out, c.PlaceID)
			}
		}
		return out
	}
	if diff := cmp.Diff([]string{"p1", "p2", "e1", "e3", "e4"}, ids(first)); diff != "" {
		t.Fatalf("merge order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("merge is not deterministic (-first +second):\n%s", diff)
	}
	for _, cafe := range first[2:] {
		assert.Equal(t, domain.SourceExternal, cafe.Source)
		assert.Equal(t, domain.UnknownInstitution, cafe.Institution)
		assert.Zero(t, cafe.ReviewCount)
	}
}

func TestMergeDoesNotTouchPersisted(t *testing.T) {
	persisted := []domain.Cafe{{ID: "p1", Name: "Alpha", Address: "1 Main", Location: domain.Coordinate{Lat: 1, Lng: 1}}}
	external := []domain.PlaceRecord{{ID: "e1", Name: "Alpha", Address: "2 Side", Phone: "555", Location: domain.Coordinate{Lat: 1, Lng: 1}}}

	merged := Merge(persisted, external, nil)

	require.Len(t, merged, 1)
	if diff := cmp.Diff(persisted[0], merged[0]); diff != "" {
		t.Fatalf("persisted cafe changed (-want +got):\n%s", diff)
	}
}

func TestMergeTagsExternalByInstitutionWindow(t *testing.T) {
	external := []domain.PlaceRecord{{ID: "e1", Name: "Kerckhoff Coffee", Location: domain.Coordinate{Lat: 34.0705, Lng: -118.4440}}}

	merged := Merge(nil, external, testResolver())

	require.Len(t, merged, 1)
	assert.Equal(t, "University of California, Los Angeles", merged[0].Institution)
	assert.Equal(t, "e1", merged[0].PlaceID)
}

func TestBuildCafeViews(t *testing.T) {
	rows := []domain.CafeWithReviews{
		{Cafe: domain.Cafe{ID: "a"}},
		{Cafe: domain.Cafe{ID: "b"}, Reviews: []domain.Review{
			{UserID: "u1", Rating: 7},
			{UserID: "u2", Rating: 8},
			{UserID: "u3", Rating: 8},
		}},
		{Cafe: domain.Cafe{ID: "c"}, Reviews: []domain.Review{{UserID: "u1", Rating: 7.25}, {UserID: "u9", Rating: 7.25}}},
	}

	views := BuildCafeViews(rows, "u1")

	require.Len(t, views, 3)
	assert.Equal(t, 0.0, views[0].AverageRating)
	assert.False(t, views[0].HasUserReview)
	assert.Equal(t, 7.7, views[1].AverageRating)
	assert.Equal(t, 3, views[1].ReviewCount)
	assert.True(t, views[1].HasUserReview)
	assert.Equal(t, 7.3, views[2].AverageRating)

	anonymous := BuildCafeViews(rows, "")
	assert.False(t, anonymous[1].HasUserReview)
}

func TestRoundOneDecimal(t *testing.T) {
	assert.Equal(t, 7.5, roundOneDecimal(7.5))
	assert.Equal(t, 7.3, roundOneDecimal(7.25))
	assert.Equal(t, 6.7, roundOneDecimal(20.0/3))
}
