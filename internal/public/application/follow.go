package application

import (
	"context"
	"errors"
	"strings"

	"github.com/beanscene/api/internal/public/domain"
)

type followService struct {
	follows FollowRepository
	users   UserRepository
}

// NewFollowService creates a FollowService.
func NewFollowService(follows FollowRepository, users UserRepository) FollowService {
	return &followService{follows: follows, users: users}
}

func (s *followService) Toggle(ctx context.Context, session domain.SessionContext, followeeID string) (bool, error) {
	if !session.Authenticated() {
		return false, ErrAuthRequired
	}
	followeeID = strings.TrimSpace(followeeID)
	if followeeID == "" {
		return false, invalid("userId", "is required")
	}
	if followeeID == session.UserID {
		return false, ErrSelfFollow
	}
	if _, err := s.users.FindByID(ctx, followeeID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, err
		}
		return false, &UpstreamError{Source: "store", Retryable: true, Err: err}
	}
	following, err := s.follows.Toggle(ctx, session.UserID, followeeID)
	if err != nil {
		return false, &UpstreamError{Source: "store", Retryable: true, Err: err}
	}
	return following, nil
}

func (s *followService) Profile(ctx context.Context, userID string) (*domain.Profile, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, &UpstreamError{Source: "store", Retryable: true, Err: err}
	}
	followers, following, err := s.follows.Counts(ctx, userID)
	if err != nil {
		return nil, &UpstreamError{Source: "store", Retryable: true, Err: err}
	}
	return &domain.Profile{User: *user, FollowerCount: followers, FollowingCount: following}, nil
}
