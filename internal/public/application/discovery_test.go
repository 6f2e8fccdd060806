package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beanscene/api/internal/public/domain"
)

const ucla = "University of California, Los Angeles"

func discoveryFixture() (*memoryCafes, *stubPlaces) {
	reviews := &memoryReviews{rows: []domain.Review{
		{ID: "r1", UserID: "alice", CafeID: "c1", Rating: 7},
		{ID: "r2", UserID: "bob", CafeID: "c1", Rating: 8},
	}}
	cafes := newMemoryCafes(reviews)
	cafes.cafes = []domain.Cafe{
		{ID: "c1", Name: "Blue Bottle", Institution: ucla, Location: domain.Coordinate{Lat: 34.0700, Lng: -118.4450}},
		{ID: "c2", Name: "Ground Zero", Institution: "University of Southern California"},
	}
	places := &stubPlaces{result: PlaceResult{Places: []domain.PlaceRecord{
		{ID: "g-1", Name: "blue bottle", Location: domain.Coordinate{Lat: 34.0701, Lng: -118.4451}},
		{ID: "g-2", Name: "Espresso Profeta", Location: domain.Coordinate{Lat: 34.0600, Lng: -118.4450}},
	}}}
	return cafes, places
}

func TestDiscoverMergesAndResolvesAlias(t *testing.T) {
	cafes, places := discoveryFixture()
	svc := NewDiscoveryService(testResolver(), cafes, places, nil)

	got, err := svc.Discover(context.Background(), alice, DiscoverQuery{Institution: "ucla"})

	require.NoError(t, err)
	assert.Equal(t, ucla, got.Institution)
	assert.Equal(t, domain.Viewport{Lat: 34.0689, Lng: -118.4452, Zoom: 15}, got.Viewport)
	assert.Nil(t, got.PlacesError)
	require.Len(t, got.Cafes, 2)
	assert.Equal(t, "c1", got.Cafes[0].ID)
	assert.True(t, got.Cafes[0].HasUserReview)
	assert.Equal(t, 7.5, got.Cafes[0].AverageRating)
	assert.Equal(t, "g-2", got.Cafes[1].PlaceID)
	assert.Equal(t, ucla, got.Cafes[1].Institution)
	assert.Equal(t, []domain.Coordinate{{Lat: 34.0689, Lng: -118.4452}}, places.centers)
}

func TestDiscoverUsesSessionInstitution(t *testing.T) {
	cafes, places := discoveryFixture()
	svc := NewDiscoveryService(testResolver(), cafes, places, nil)

	session := domain.SessionContext{UserID: "bob", Institution: "USC"}
	got, err := svc.Discover(context.Background(), session, DiscoverQuery{})

	require.NoError(t, err)
	assert.Equal(t, "University of Southern California", got.Institution)
	assert.Equal(t, "c2", got.Cafes[0].ID)
}

func TestDiscoverDegradesWhenPlacesFail(t *testing.T) {
	cafes, places := discoveryFixture()
	places.result = PlaceResult{Err: errBoom, Retryable: true}
	svc := NewDiscoveryService(testResolver(), cafes, places, nil)

	got, err := svc.Discover(context.Background(), alice, DiscoverQuery{Institution: "UCLA"})

	require.NoError(t, err)
	require.NotNil(t, got.PlacesError)
	assert.True(t, got.PlacesError.Retryable)
	require.Len(t, got.Cafes, 1)
	assert.Equal(t, domain.SourcePersisted, got.Cafes[0].Source)
}

func TestDiscoverFailsWhenStoreFails(t *testing.T) {
	cafes, places := discoveryFixture()
	cafes.fetchErr = errBoom
	svc := NewDiscoveryService(testResolver(), cafes, places, nil)

	_, err := svc.Discover(context.Background(), alice, DiscoverQuery{Institution: "UCLA"})

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, "store", upstream.Source)
	assert.True(t, IsRetryable(err))
}

func TestDiscoverUnknownInstitutionSkipsPlaces(t *testing.T) {
	cafes, places := discoveryFixture()
	svc := NewDiscoveryService(testResolver(), cafes, places, nil)

	got, err := svc.Discover(context.Background(), alice, DiscoverQuery{Institution: "Unknown University Of Nowhere"})

	require.NoError(t, err)
	assert.Equal(t, FallbackViewport, got.Viewport)
	assert.Empty(t, places.centers)
	assert.Empty(t, got.Cafes)
}

func TestDetail(t *testing.T) {
	cafes, _ := discoveryFixture()
	svc := NewDiscoveryService(testResolver(), cafes, nil, nil)

	cafe, err := svc.Detail(context.Background(), domain.SessionContext{UserID: "bob"}, "c1")
	require.NoError(t, err)
	assert.Equal(t, 2, cafe.ReviewCount)
	assert.True(t, cafe.HasUserReview)

	_, err = svc.Detail(context.Background(), alice, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
