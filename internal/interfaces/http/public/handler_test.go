package public

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/beanscene/api/internal/interfaces/http/common"
	publicapp "github.com/beanscene/api/internal/public/application"
	"github.com/beanscene/api/internal/public/domain"
)

type fakeDiscovery struct {
	mu     sync.Mutex
	result publicapp.Discovery
	err    error
	calls  atomic.Int64
	last   publicapp.DiscoverQuery
}

func (f *fakeDiscovery) Discover(_ context.Context, _ domain.SessionContext, query publicapp.DiscoverQuery) (*publicapp.Discovery, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = query
	if f.err != nil {
		return nil, f.err
	}
	result := f.result
	return &result, nil
}

func (f *fakeDiscovery) Detail(_ context.Context, _ domain.SessionContext, id string) (*domain.Cafe, error) {
	for _, cafe := range f.result.Cafes {
		if cafe.ID == id {
			return &cafe, nil
		}
	}
	return nil, publicapp.ErrNotFound
}

type fakeReviews struct {
	outcome *publicapp.SubmitOutcome
	err     error
	got     publicapp.SubmitReviewCommand
}

func (f *fakeReviews) Submit(_ context.Context, _ domain.SessionContext, cmd publicapp.SubmitReviewCommand) (*publicapp.SubmitOutcome, error) {
	f.got = cmd
	return f.outcome, f.err
}

type fakePhotos struct {
	got []byte
}

func (f *fakePhotos) Upload(_ context.Context, _ domain.SessionContext, _ string, data []byte) (*domain.ReviewPhoto, error) {
	f.got = data
	return &domain.ReviewPhoto{PublicID: "beanscene/reviews/u1/p1", PublicURL: "https://img.example/p1.png", ContentType: "image/png", Bytes: int64(len(data))}, nil
}

type fakeLeaderboard struct {
	got publicapp.LeaderboardRequest
}

func (f *fakeLeaderboard) Leaderboard(_ context.Context, _ domain.SessionContext, req publicapp.LeaderboardRequest) ([]domain.LeaderboardEntry, error) {
	f.got = req
	return []domain.LeaderboardEntry{{UserID: "u2", Handle: "bea", ReviewCount: 3, UniqueCafeCount: 2, Rank: 1}}, nil
}

type fakeFollows struct{}

func (fakeFollows) Toggle(_ context.Context, session domain.SessionContext, followeeID string) (bool, error) {
	if followeeID == session.UserID {
		return false, publicapp.ErrSelfFollow
	}
	return true, nil
}

func (fakeFollows) Profile(_ context.Context, userID string) (*domain.Profile, error) {
	if userID != "u2" {
		return nil, publicapp.ErrNotFound
	}
	return &domain.Profile{User: domain.User{ID: "u2", Handle: "bea", FirstName: "Bea"}, FollowerCount: 4, FollowingCount: 1}, nil
}

type testEnv struct {
	discovery   *fakeDiscovery
	reviews     *fakeReviews
	photos      *fakePhotos
	leaderboard *fakeLeaderboard
	bus         *publicapp.InvalidationBus
	router      chi.Router
}

var signedIn = domain.SessionContext{UserID: "u1", Handle: "ana", Institution: "UCLA"}

func withSession(session domain.SessionContext) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				if session.Authenticated() {
					common.WriteJSON(nil, w, http.StatusUnauthorized, common.ErrorResponse{Error: "missing token"})
					return
				}
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(common.ContextWithSession(r.Context(), signedIn)))
		})
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	table, err := publicapp.DefaultInstitutions()
	require.NoError(t, err)

	env := &testEnv{
		discovery: &fakeDiscovery{result: publicapp.Discovery{
			Institution: "University of California, Los Angeles",
			Viewport:    domain.Viewport{Lat: 34.0689, Lng: -118.4452, Zoom: 15},
			Cafes: []domain.Cafe{
				{ID: "c1", Name: "Kerckhoff Coffee", Institution: "University of California, Los Angeles", Location: domain.Coordinate{Lat: 34.0703, Lng: -118.4441}, AverageRating: 7.5, ReviewCount: 2, Source: domain.SourcePersisted},
				{PlaceID: "node/9", Name: "Espresso Profeta", Institution: "University of California, Los Angeles", Location: domain.Coordinate{Lat: 34.0631, Lng: -118.4478}, Source: domain.SourceExternal},
			},
		}},
		reviews:     &fakeReviews{},
		photos:      &fakePhotos{},
		leaderboard: &fakeLeaderboard{},
		bus:         publicapp.NewInvalidationBus(),
	}
	t.Cleanup(env.bus.Close)

	h := NewHandler(Config{
		Logger:       zap.NewNop(),
		Resolver:     publicapp.NewCoordinateResolver(table),
		Discovery:    env.discovery,
		Reviews:      env.reviews,
		Photos:       env.photos,
		Leaderboard:  env.leaderboard,
		Follows:      fakeFollows{},
		Bus:          env.bus,
		LiveDebounce: 10 * time.Millisecond,
	})
	router := chi.NewRouter()
	h.Register(router, withSession(signedIn), withSession(domain.SessionContext{}))
	env.router = router
	return env
}

func (e *testEnv) do(t *testing.T, method, target string, body []byte, auth bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		req.Header.Set("Authorization", "Bearer test")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestCafeListIncludesPlacesBanner(t *testing.T) {
	env := newTestEnv(t)
	env.discovery.result.PlacesError = &publicapp.PlacesFailure{Message: "nearby places are temporarily unavailable", Retryable: true}

	rec := env.do(t, http.MethodGet, "/cafes?institution=UCLA&q=latte", nil, false)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[cafeListResponse](t, rec)
	assert.Len(t, resp.Items, 2)
	require.NotNil(t, resp.PlacesError)
	assert.True(t, resp.PlacesError.Retryable)
	assert.Equal(t, publicapp.DiscoverQuery{Institution: "UCLA", Query: "latte"}, env.discovery.last)
}

func TestCafeListStoreFailureIsRetryable(t *testing.T) {
	env := newTestEnv(t)
	env.discovery.err = &publicapp.UpstreamError{Source: "store", Retryable: true, Err: assert.AnError}

	rec := env.do(t, http.MethodGet, "/cafes", nil, false)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	resp := decode[common.ErrorResponse](t, rec)
	assert.True(t, resp.Retryable)
	assert.Equal(t, common.CodeUnavailable, resp.Code)
}

func TestCafeDetailNotFound(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/cafes/c1", nil, false).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/cafes/missing", nil, false).Code)
}

func TestCafeSearchShortTermSkipsDiscovery(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/cafes/search?term=k", nil, false)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[cafeSearchResponse](t, rec)
	assert.Empty(t, resp.Items)
	assert.Nil(t, resp.CreateOption)
	assert.Zero(t, env.discovery.calls.Load())
}

func TestCafeSearchOffersCreateOption(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/cafes/search?term=kerck&institution=UCLA", nil, false)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[cafeSearchResponse](t, rec)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "Kerckhoff Coffee", resp.Items[0].Name)
	require.NotNil(t, resp.CreateOption)
	assert.Equal(t, "kerck", resp.CreateOption.Name)
}

func TestMarkersAreGeoJSON(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/map/markers?institution=UCLA", nil, false)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[markerCollectionResponse](t, rec)
	assert.Equal(t, "FeatureCollection", resp.Type)
	require.Len(t, resp.Features, 2)
	assert.Equal(t, "c-c1", resp.Features[0].ID)
	assert.Equal(t, [2]float64{-118.4441, 34.0703}, resp.Features[0].Geometry.Coordinates)
	assert.Equal(t, "p-node/9", resp.Features[1].ID)
}

func TestMarkerSelection(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/map/markers/c-c1?institution=UCLA", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Kerckhoff Coffee", decode[markerSelectionResponse](t, rec).Cafe.Name)

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/map/markers/c-nope", nil, false).Code)
}

func TestInstitutionResolve(t *testing.T) {
	env := newTestEnv(t)

	resp := decode[institutionResponse](t, env.do(t, http.MethodGet, "/institutions/resolve?name=ucla", nil, false))
	assert.True(t, resp.Resolved)
	assert.Equal(t, "University of California, Los Angeles", resp.Name)

	resp = decode[institutionResponse](t, env.do(t, http.MethodGet, "/institutions/resolve?name=Hogwarts", nil, false))
	assert.False(t, resp.Resolved)
	assert.Equal(t, publicapp.FallbackViewport, resp.Viewport)
}

func TestReviewCreateRequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/reviews", []byte(`{}`), false)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestReviewCreateMapsErrors(t *testing.T) {
	body := []byte(`{"cafeName":"Kerckhoff Coffee","rating":11,"blurb":"great flat white"}`)
	cases := []struct {
		name   string
		err    error
		status int
		code   string
		field  string
	}{
		{"validation", &publicapp.ValidationError{Field: "rating", Message: "must be between 1 and 10"}, http.StatusBadRequest, common.CodeValidation, "rating"},
		{"rate limited", publicapp.ErrRateLimited, http.StatusTooManyRequests, common.CodeRateLimited, ""},
		{"unknown cafe", publicapp.ErrNotFound, http.StatusNotFound, common.CodeNotFound, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.reviews.outcome = &publicapp.SubmitOutcome{State: publicapp.StateFailed}
			env.reviews.err = tc.err

			rec := env.do(t, http.MethodPost, "/reviews", body, true)

			require.Equal(t, tc.status, rec.Code)
			resp := decode[common.ErrorResponse](t, rec)
			assert.Equal(t, tc.code, resp.Code)
			assert.Equal(t, tc.field, resp.Field)
		})
	}
}

func TestReviewCreateSuccess(t *testing.T) {
	env := newTestEnv(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	env.reviews.outcome = &publicapp.SubmitOutcome{
		State:       publicapp.StateSucceeded,
		Transitions: []publicapp.SubmitState{publicapp.StateCollecting, publicapp.StateValidating, publicapp.StateSubmitting, publicapp.StateSucceeded},
		Review:      &domain.Review{ID: "r1", UserID: "u1", CafeID: "c1", Rating: 8.5, Blurb: "great flat white", CreatedAt: now, UpdatedAt: now},
		Cafe:        &domain.Cafe{ID: "c1", Name: "Kerckhoff Coffee", Source: domain.SourcePersisted},
	}

	body := []byte(`{"cafeId":"c1","rating":8.5,"blurb":"great flat white","location":{"lat":34.07,"lng":-118.44},"photo":{"publicId":"p","publicUrl":"https://img.example/p.png","bytes":10},"taggedFriends":["u2"]}`)
	rec := env.do(t, http.MethodPost, "/reviews", body, true)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[submitReviewResponse](t, rec)
	assert.Equal(t, "succeeded", resp.State)
	assert.Equal(t, []string{"collecting", "validating", "submitting", "succeeded"}, resp.Transitions)
	assert.Equal(t, "r1", resp.Review.ID)
	assert.Equal(t, "c1", env.reviews.got.CafeID)
	require.NotNil(t, env.reviews.got.Location)
	assert.Equal(t, 34.07, env.reviews.got.Location.Lat)
	require.NotNil(t, env.reviews.got.Photo)
	assert.Equal(t, []string{"u2"}, env.reviews.got.TaggedFriends)

	env.reviews.outcome.Replaced = true
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/reviews", body, true).Code)
}

func TestReviewCreateRejectsTwoPhotos(t *testing.T) {
	env := newTestEnv(t)
	body := []byte(`{"cafeId":"c1","rating":5,"blurb":"great flat white","photos":[{"publicUrl":"a"},{"publicUrl":"b"}]}`)

	rec := env.do(t, http.MethodPost, "/reviews", body, true)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "photo", decode[common.ErrorResponse](t, rec).Field)
}

func TestPhotoUpload(t *testing.T) {
	env := newTestEnv(t)
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("photo", "latte.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\nrest"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/photos", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer test")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "https://img.example/p1.png", decode[photoResponse](t, rec).PublicURL)
	assert.Len(t, env.photos.got, 12)
}

func TestLeaderboardDefaults(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/leaderboard", nil, false)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[leaderboardResponse](t, rec)
	assert.Equal(t, "global", resp.Scope)
	assert.Equal(t, "all-time", resp.Range)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, publicapp.LeaderboardRequest{Scope: domain.ScopeGlobal, Range: domain.RangeAllTime, Limit: publicapp.DefaultLeaderboardLimit}, env.leaderboard.got)

	env.do(t, http.MethodGet, "/leaderboard?scope=FRIENDS&range=month&limit=5", nil, true)
	assert.Equal(t, publicapp.LeaderboardRequest{Scope: domain.ScopeFriends, Range: domain.RangeMonth, Limit: 5}, env.leaderboard.got)
}

func TestFollowToggleAndProfile(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/users/u2/follow", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode[map[string]any](t, rec)["following"])

	rec = env.do(t, http.MethodPost, "/users/u1/follow", nil, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, common.CodeSelfFollow, decode[common.ErrorResponse](t, rec).Code)

	rec = env.do(t, http.MethodGet, "/users/u2", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	profile := decode[profileResponse](t, rec)
	assert.Equal(t, "Bea", profile.DisplayName)
	assert.Equal(t, 4, profile.FollowerCount)

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/users/ghost", nil, false).Code)
}

func TestAuthVerifyEchoesSession(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/auth/verify", nil, true)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"handle":"ana"`)
}

type sseEvent struct {
	name string
	data string
}

func readEvent(t *testing.T, reader *bufio.Reader) sseEvent {
	t.Helper()
	var event sseEvent
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if event.name != "" {
				return event
			}
		case strings.HasPrefix(line, "event: "):
			event.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			event.data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestLiveFeedRefetchesOnInvalidation(t *testing.T) {
	env := newTestEnv(t)
	server := httptest.NewServer(env.router)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/cafes/live?institution=UCLA", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	assert.Equal(t, "ready", readEvent(t, reader).name)

	first := readEvent(t, reader)
	require.Equal(t, "cafes", first.name)
	var payload liveCafesEvent
	require.NoError(t, json.Unmarshal([]byte(first.data), &payload))
	assert.Equal(t, uint64(1), payload.Sequence)
	assert.Len(t, payload.Items, 2)
	assert.Len(t, payload.Markers.Features, 2)

	require.Eventually(t, func() bool { return env.bus.Subscribers() == 1 }, time.Second, 5*time.Millisecond)
	for i := 0; i < 5; i++ {
		env.bus.Publish(publicapp.Invalidation{Collection: "reviews", DocumentID: "r1"})
	}

	second := readEvent(t, reader)
	require.Equal(t, "cafes", second.name)
	require.NoError(t, json.Unmarshal([]byte(second.data), &payload))
	assert.Equal(t, uint64(2), payload.Sequence)

	cancel()
	require.Eventually(t, func() bool { return env.bus.Subscribers() == 0 }, time.Second, 5*time.Millisecond)
}
