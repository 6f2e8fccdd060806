package domain

// LeaderboardScope selects whose reviews are ranked.
type LeaderboardScope string

const (
	ScopeGlobal  LeaderboardScope = "global"
	ScopeFriends LeaderboardScope = "friends"
)

// TimeRange selects which reviews are counted.
type TimeRange string

const (
	RangeAllTime TimeRange = "all-time"
	RangeMonth   TimeRange = "month"
)

// LeaderboardEntry is derived on every request and never persisted.
type LeaderboardEntry struct {
	UserID          string
	Handle          string
	DisplayName     string
	AvatarURL       string
	ReviewCount     int
	UniqueCafeCount int
	Rank            int
}
