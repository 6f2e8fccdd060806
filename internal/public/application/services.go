package application

import (
	"context"
	"time"

	"github.com/beanscene/api/internal/public/domain"
)

// CafeRepository abstracts the persisted cafe store.
type CafeRepository interface {
	// FetchCafes returns cafes joined with their reviews, restricted to an
	// institution when one is given.
	FetchCafes(ctx context.Context, institution string) ([]domain.CafeWithReviews, error)
	FindByID(ctx context.Context, id string) (*domain.CafeWithReviews, error)
	FindByPlaceID(ctx context.Context, placeID string) (*domain.Cafe, error)
	// UpsertByPlaceID inserts the cafe unless one with the same place id exists,
	// and fills cafe.ID with the stored id either way.
	UpsertByPlaceID(ctx context.Context, cafe *domain.Cafe) error
	Create(ctx context.Context, cafe *domain.Cafe) error
}

// ReviewRepository handles review reads and writes.
type ReviewRepository interface {
	// Upsert writes the review keyed on (UserID, CafeID). created is false when
	// an existing row was replaced.
	Upsert(ctx context.Context, review *domain.Review) (created bool, err error)
	CountSince(ctx context.Context, userID string, since time.Time) (int64, error)
	List(ctx context.Context, filter ReviewFilter) ([]domain.Review, error)
}

// ReviewFilter narrows a review listing. Zero values mean no restriction.
type ReviewFilter struct {
	UserIDs []string
	Since   time.Time
}

// UserRepository reads profiles and maintains review stats.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]domain.User, error)
	IncrementReviewStats(ctx context.Context, userID string, at time.Time) error
}

// FollowRepository stores the follow graph.
type FollowRepository interface {
	// Toggle creates the edge when absent and removes it when present, returning
	// whether the follower follows the followee afterwards.
	Toggle(ctx context.Context, followerID, followeeID string) (bool, error)
	Followees(ctx context.Context, followerID string) ([]string, error)
	Counts(ctx context.Context, userID string) (followers, following int, err error)
}

// PlaceSource is the degraded-mode friendly view of a place-search adapter.
// Search never fails; callers must inspect PlaceResult.Err.
type PlaceSource interface {
	Search(ctx context.Context, center domain.Coordinate, query string) PlaceResult
}

// PlaceResult is the outcome of a place search.
type PlaceResult struct {
	Places    []domain.PlaceRecord
	Err       error
	Retryable bool
}

// PhotoStorage uploads review photos and returns their public location.
type PhotoStorage interface {
	Upload(ctx context.Context, upload PhotoUpload) (*domain.ReviewPhoto, error)
}

// DiscoveryService describes cafe discovery use-cases.
type DiscoveryService interface {
	Discover(ctx context.Context, session domain.SessionContext, query DiscoverQuery) (*Discovery, error)
	Detail(ctx context.Context, session domain.SessionContext, id string) (*domain.Cafe, error)
}

// ReviewCommandService handles review submission.
type ReviewCommandService interface {
	Submit(ctx context.Context, session domain.SessionContext, cmd SubmitReviewCommand) (*SubmitOutcome, error)
}

// LeaderboardService ranks reviewers.
type LeaderboardService interface {
	Leaderboard(ctx context.Context, session domain.SessionContext, query LeaderboardRequest) ([]domain.LeaderboardEntry, error)
}

// FollowService manages the social graph.
type FollowService interface {
	Toggle(ctx context.Context, session domain.SessionContext, followeeID string) (bool, error)
	Profile(ctx context.Context, userID string) (*domain.Profile, error)
}
