package application

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/beanscene/api/internal/public/domain"
)

type memoryCafes struct {
	mu       sync.Mutex
	cafes    []domain.Cafe
	reviews  *memoryReviews
	fetchErr error
	nextID   int
}

func newMemoryCafes(reviews *memoryReviews) *memoryCafes {
	return &memoryCafes{reviews: reviews}
}

func (m *memoryCafes) FetchCafes(_ context.Context, institution string) ([]domain.CafeWithReviews, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var rows []domain.CafeWithReviews
	for _, cafe := range m.cafes {
		if institution != "" && cafe.Institution != institution {
			continue
		}
		rows = append(rows, domain.CafeWithReviews{Cafe: cafe, Reviews: m.reviewsFor(cafe.ID)})
	}
	return rows, nil
}

func (m *memoryCafes) reviewsFor(cafeID string) []domain.Review {
	if m.reviews == nil {
		return nil
	}
	var out []domain.Review
	for _, review := range m.reviews.all() {
		if review.CafeID == cafeID {
			out = append(out, review)
		}
	}
	return out
}

func (m *memoryCafes) FindByID(_ context.Context, id string) (*domain.CafeWithReviews, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cafe := range m.cafes {
		if cafe.ID == id {
			return &domain.CafeWithReviews{Cafe: cafe, Reviews: m.reviewsFor(id)}, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memoryCafes) FindByPlaceID(_ context.Context, placeID string) (*domain.Cafe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cafe := range m.cafes {
		if cafe.PlaceID == placeID {
			c := cafe
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memoryCafes) UpsertByPlaceID(_ context.Context, cafe *domain.Cafe) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.cafes {
		if existing.PlaceID == cafe.PlaceID {
			cafe.ID = existing.ID
			return nil
		}
	}
	m.insertLocked(cafe)
	return nil
}

func (m *memoryCafes) Create(_ context.Context, cafe *domain.Cafe) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertLocked(cafe)
	return nil
}

func (m *memoryCafes) insertLocked(cafe *domain.Cafe) {
	m.nextID++
	cafe.ID = "cafe-" + strconv.Itoa(m.nextID)
	m.cafes = append(m.cafes, *cafe)
}

type memoryReviews struct {
	mu       sync.Mutex
	rows     []domain.Review
	countErr error
	countFix *int64
	nextID   int
}

func (m *memoryReviews) all() []domain.Review {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Review(nil), m.rows...)
}

func (m *memoryReviews) Upsert(_ context.Context, review *domain.Review) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.rows {
		if existing.UserID == review.UserID && existing.CafeID == review.CafeID {
			review.ID = existing.ID
			review.CreatedAt = existing.CreatedAt
			m.rows[i] = *review
			return false, nil
		}
	}
	m.nextID++
	review.ID = "review-" + strconv.Itoa(m.nextID)
	m.rows = append(m.rows, *review)
	return true, nil
}

func (m *memoryReviews) CountSince(_ context.Context, userID string, since time.Time) (int64, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	if m.countFix != nil {
		return *m.countFix, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, row := range m.rows {
		if row.UserID == userID && !row.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *memoryReviews) List(_ context.Context, filter ReviewFilter) ([]domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	allowed := map[string]bool{}
	for _, id := range filter.UserIDs {
		allowed[id] = true
	}
	var out []domain.Review
	for _, row := range m.rows {
		if len(allowed) > 0 && !allowed[row.UserID] {
			continue
		}
		if !filter.Since.IsZero() && row.CreatedAt.Before(filter.Since) {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

type memoryUsers struct {
	mu         sync.Mutex
	users      map[string]domain.User
	statsErr   error
	increments int
}

func newMemoryUsers(users ...domain.User) *memoryUsers {
	m := &memoryUsers{users: map[string]domain.User{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memoryUsers) FindByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (m *memoryUsers) FindByIDs(_ context.Context, ids []string) (map[string]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]domain.User{}
	for _, id := range ids {
		if user, ok := m.users[id]; ok {
			out[id] = user
		}
	}
	return out, nil
}

func (m *memoryUsers) IncrementReviewStats(_ context.Context, userID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.increments++
	if m.statsErr != nil {
		return m.statsErr
	}
	user := m.users[userID]
	user.ID = userID
	user.Stats.ReviewCount++
	user.Stats.LastReviewedAt = &at
	m.users[userID] = user
	return nil
}

type memoryFollows struct {
	mu    sync.Mutex
	edges map[[2]string]bool
}

func newMemoryFollows() *memoryFollows {
	return &memoryFollows{edges: map[[2]string]bool{}}
}

func (m *memoryFollows) Toggle(_ context.Context, followerID, followeeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]string{followerID, followeeID}
	if m.edges[key] {
		delete(m.edges, key)
		return false, nil
	}
	m.edges[key] = true
	return true, nil
}

func (m *memoryFollows) Followees(_ context.Context, followerID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for key := range m.edges {
		if key[0] == followerID {
			out = append(out, key[1])
		}
	}
	return out, nil
}

func (m *memoryFollows) Counts(_ context.Context, userID string) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var followers, following int
	for key := range m.edges {
		if key[1] == userID {
			followers++
		}
		if key[0] == userID {
			following++
		}
	}
	return followers, following, nil
}

type stubPlaces struct {
	result  PlaceResult
	centers []domain.Coordinate
	mu      sync.Mutex
}

func (s *stubPlaces) Search(_ context.Context, center domain.Coordinate, _ string) PlaceResult {
	s.mu.Lock()
	s.centers = append(s.centers, center)
	s.mu.Unlock()
	return s.result
}

type stubStorage struct {
	uploads []PhotoUpload
	err     error
}

func (s *stubStorage) Upload(_ context.Context, upload PhotoUpload) (*domain.ReviewPhoto, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.uploads = append(s.uploads, upload)
	return &domain.ReviewPhoto{
		PublicID:    "reviews/" + upload.OwnerID,
		PublicURL:   "https://images.example.test/" + upload.OwnerID,
		ContentType: upload.ContentType,
		Bytes:       int64(len(upload.Data)),
	}, nil
}

var errBoom = errors.New("boom")

func blurbOf(n int) string {
	return strings.Repeat("a", n)
}

func testResolver() *CoordinateResolver {
	table, err := DefaultInstitutions()
	if err != nil {
		panic(err)
	}
	return NewCoordinateResolver(table)
}
