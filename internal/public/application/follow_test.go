package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beanscene/api/internal/public/domain"
)

func TestFollowToggleAndProfile(t *testing.T) {
	ctx := context.Background()
	users := newMemoryUsers(domain.User{ID: "alice"}, domain.User{ID: "bob", Handle: "bob"})
	svc := NewFollowService(newMemoryFollows(), users)

	following, err := svc.Toggle(ctx, alice, "bob")
	require.NoError(t, err)
	assert.True(t, following)

	profile, err := svc.Profile(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, profile.FollowerCount)
	assert.Equal(t, 0, profile.FollowingCount)

	following, err = svc.Toggle(ctx, alice, "bob")
	require.NoError(t, err)
	assert.False(t, following)
}

func TestFollowRejectsSelfAndAnonymous(t *testing.T) {
	svc := NewFollowService(newMemoryFollows(), newMemoryUsers(domain.User{ID: "alice"}))

	_, err := svc.Toggle(context.Background(), alice, "alice")
	assert.ErrorIs(t, err, ErrSelfFollow)

	_, err = svc.Toggle(context.Background(), domain.SessionContext{}, "alice")
	assert.ErrorIs(t, err, ErrAuthRequired)

	_, err = svc.Toggle(context.Background(), alice, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}
