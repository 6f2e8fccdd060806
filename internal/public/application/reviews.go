package application

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/beanscene/api/internal/public/domain"
)

const (
	MinRating      = 1.0
	MaxRating      = 10.0
	MinBlurbLength = 10
	MaxBlurbLength = 500
)

// SubmitState is a step of the review submission state machine.
type SubmitState string

const (
	StateCollecting SubmitState = "collecting"
	StateValidating SubmitState = "validating"
	StateSubmitting SubmitState = "submitting"
	StateSucceeded  SubmitState = "succeeded"
	StateFailed     SubmitState = "failed"
)

// SubmitReviewCommand is the collected review form. Either CafeID or CafeName
// must identify the cafe.
type SubmitReviewCommand struct {
	CafeID        string
	CafeName      string
	PlaceID       string
	Address       string
	Institution   string
	Location      *domain.Coordinate
	Rating        float64
	Blurb         string
	Photo         *domain.ReviewPhoto
	TaggedFriends []string
}

// SubmitOutcome records how far a submission got.
type SubmitOutcome struct {
	State       SubmitState
	Transitions []SubmitState
	Review      *domain.Review
	Cafe        *domain.Cafe
	// Replaced is true when the write overwrote the user's earlier review of the cafe.
	Replaced bool
}

func (o *SubmitOutcome) moveTo(state SubmitState) {
	o.State = state
	o.Transitions = append(o.Transitions, state)
}

// ReviewPolicy bounds how often a user may submit.
type ReviewPolicy struct {
	RateLimit  int
	RateWindow time.Duration
}

// DefaultReviewPolicy allows 10 submissions per trailing hour.
var DefaultReviewPolicy = ReviewPolicy{RateLimit: 10, RateWindow: 60 * time.Minute}

// ReviewServiceDeps groups the collaborators of the review flow.
type ReviewServiceDeps struct {
	Cafes    CafeRepository
	Reviews  ReviewRepository
	Users    UserRepository
	Resolver *CoordinateResolver
	Bus      *InvalidationBus
	Policy   ReviewPolicy
	Logger   *zap.Logger
}

type reviewCommandService struct {
	cafes    CafeRepository
	reviews  ReviewRepository
	users    UserRepository
	resolver *CoordinateResolver
	bus      *InvalidationBus
	policy   ReviewPolicy
	logger   *zap.Logger
	now      func() time.Time
}

// NewReviewCommandService creates the review submission flow.
func NewReviewCommandService(deps ReviewServiceDeps) ReviewCommandService {
	policy := deps.Policy
	if policy.RateLimit <= 0 {
		policy.RateLimit = DefaultReviewPolicy.RateLimit
	}
	if policy.RateWindow <= 0 {
		policy.RateWindow = DefaultReviewPolicy.RateWindow
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &reviewCommandService{
		cafes:    deps.Cafes,
		reviews:  deps.Reviews,
		users:    deps.Users,
		resolver: deps.Resolver,
		bus:      deps.Bus,
		policy:   policy,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ValidateReview checks a command without touching any collaborator.
func ValidateReview(session domain.SessionContext, cmd SubmitReviewCommand) error {
	if math.IsNaN(cmd.Rating) || cmd.Rating < MinRating || cmd.Rating > MaxRating {
		return invalid("rating", "must be between %.0f and %.0f", MinRating, MaxRating)
	}
	blurbLen := utf8.RuneCountInString(strings.TrimSpace(cmd.Blurb))
	if blurbLen < MinBlurbLength || blurbLen > MaxBlurbLength {
		return invalid("blurb", "must be between %d and %d characters", MinBlurbLength, MaxBlurbLength)
	}
	if strings.TrimSpace(cmd.CafeID) == "" && strings.TrimSpace(cmd.CafeName) == "" {
		return invalid("cafe", "select a cafe or enter a name")
	}
	for _, friend := range cmd.TaggedFriends {
		if friend == session.UserID {
			return invalid("taggedFriends", "cannot tag yourself")
		}
	}
	if cmd.Photo != nil && cmd.Photo.Bytes > MaxPhotoBytes {
		return invalid("photo", "must be at most %d bytes", MaxPhotoBytes)
	}
	return nil
}

func (s *reviewCommandService) Submit(ctx context.Context, session domain.SessionContext, cmd SubmitReviewCommand) (*SubmitOutcome, error) {
	outcome := &SubmitOutcome{}
	outcome.moveTo(StateCollecting)
	if !session.Authenticated() {
		outcome.moveTo(StateFailed)
		return outcome, ErrAuthRequired
	}

	outcome.moveTo(StateValidating)
	if err := ValidateReview(session, cmd); err != nil {
		outcome.moveTo(StateFailed)
		return outcome, err
	}

	outcome.moveTo(StateSubmitting)
	now := s.now()
	// The count and the write are not atomic, so concurrent submissions can
	// overshoot the limit. A failing count query does not block the write.
	count, err := s.reviews.CountSince(ctx, session.UserID, now.Add(-s.policy.RateWindow))
	if err != nil {
		s.logger.Warn("rate limit check failed", zap.String("userId", session.UserID), zap.Error(err))
	} else if count >= int64(s.policy.RateLimit) {
		outcome.moveTo(StateFailed)
		return outcome, ErrRateLimited
	}

	cafe, err := s.resolveCafe(ctx, cmd, now)
	if err != nil {
		outcome.moveTo(StateFailed)
		return outcome, err
	}
	outcome.Cafe = cafe

	review := &domain.Review{
		UserID:        session.UserID,
		CafeID:        cafe.ID,
		Rating:        cmd.Rating,
		Blurb:         strings.TrimSpace(cmd.Blurb),
		Photo:         cmd.Photo,
		TaggedFriends: dedupe(cmd.TaggedFriends),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	created, err := s.reviews.Upsert(ctx, review)
	if err != nil {
		outcome.moveTo(StateFailed)
		return outcome, &UpstreamError{Source: "store", Retryable: true, Err: fmt.Errorf("write review: %w", err)}
	}
	outcome.Review = review
	outcome.Replaced = !created

	if err := s.users.IncrementReviewStats(ctx, session.UserID, now); err != nil {
		s.logger.Warn("review stats increment failed", zap.String("userId", session.UserID), zap.Error(err))
	}
	if s.bus != nil {
		s.bus.Publish(Invalidation{Collection: "reviews", DocumentID: review.ID, At: now})
	}

	s.logger.Info("review submitted",
		zap.String("userId", session.UserID),
		zap.String("cafeId", cafe.ID),
		zap.Bool("replaced", outcome.Replaced))
	outcome.moveTo(StateSucceeded)
	return outcome, nil
}

// resolveCafe finds the cafe the review is for, creating it on first review.
func (s *reviewCommandService) resolveCafe(ctx context.Context, cmd SubmitReviewCommand, now time.Time) (*domain.Cafe, error) {
	if id := strings.TrimSpace(cmd.CafeID); id != "" {
		row, err := s.cafes.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, invalid("cafe", "selected cafe does not exist")
			}
			return nil, &UpstreamError{Source: "store", Retryable: true, Err: err}
		}
		return &row.Cafe, nil
	}

	cafe := &domain.Cafe{
		PlaceID:     strings.TrimSpace(cmd.PlaceID),
		Name:        strings.TrimSpace(cmd.CafeName),
		Address:     strings.TrimSpace(cmd.Address),
		Institution: strings.TrimSpace(cmd.Institution),
		Source:      domain.SourcePersisted,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if cmd.Location != nil {
		cafe.Location = *cmd.Location
	}
	if cafe.Institution == "" && cmd.Location != nil && s.resolver != nil {
		cafe.Institution = s.resolver.TagFor(cafe.Location)
	} else if inst, ok := s.resolverLookup(cafe.Institution); ok {
		cafe.Institution = inst.Name
	}

	if cafe.PlaceID == "" {
		if err := s.cafes.Create(ctx, cafe); err != nil {
			return nil, &UpstreamError{Source: "store", Retryable: true, Err: fmt.Errorf("create cafe: %w", err)}
		}
		return cafe, nil
	}

	existing, err := s.cafes.FindByPlaceID(ctx, cafe.PlaceID)
	switch {
	case err == nil:
		return existing, nil
	case !errors.Is(err, ErrNotFound):
		return nil, &UpstreamError{Source: "store", Retryable: true, Err: err}
	}
	if err := s.cafes.UpsertByPlaceID(ctx, cafe); err != nil {
		return nil, &UpstreamError{Source: "store", Retryable: true, Err: fmt.Errorf("upsert cafe: %w", err)}
	}
	if s.bus != nil {
		s.bus.Publish(Invalidation{Collection: "cafes", DocumentID: cafe.ID, At: now})
	}
	return cafe, nil
}

func (s *reviewCommandService) resolverLookup(name string) (domain.Institution, bool) {
	if s.resolver == nil || name == "" {
		return domain.Institution{}, false
	}
	return s.resolver.Lookup(name)
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
