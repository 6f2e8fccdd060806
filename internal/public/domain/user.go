package domain

import "time"

// User is a profile owned by the identity provider. Only the stats are written here.
type User struct {
	ID          string
	Handle      string
	FirstName   string
	LastName    string
	Institution string
	Bio         string
	AvatarURL   string
	Stats       UserStats
	CreatedAt   time.Time
}

// DisplayName joins the name parts, falling back to the handle.
func (u User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Handle
	}
}

// UserStats aggregates a user's review activity.
type UserStats struct {
	ReviewCount    int
	LastReviewedAt *time.Time
}

// Follow is a directed edge from FollowerID to FolloweeID.
type Follow struct {
	FollowerID string
	FolloweeID string
	CreatedAt  time.Time
}

// Profile is a user with follow-graph counts.
type Profile struct {
	User           User
	FollowerCount  int
	FollowingCount int
}
