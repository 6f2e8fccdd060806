package application

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/beanscene/api/internal/public/domain"
)

// MonthWindow is the trailing window counted by the month range.
const MonthWindow = 30 * 24 * time.Hour

// Leaderboard page sizes.
const (
	DefaultLeaderboardLimit = 50
	MaxLeaderboardLimit     = 200
)

// LeaderboardQuery parameterises ComputeLeaderboard.
type LeaderboardQuery struct {
	Scope domain.LeaderboardScope
	Range domain.TimeRange
	// Followees restricts rows to these authors when Scope is friends.
	Followees []string
	Now       time.Time
}

// ComputeLeaderboard ranks authors by distinct cafes reviewed, then by review
// count. Remaining ties keep input order and ranks are positional.
func ComputeLeaderboard(rows []domain.Review, query LeaderboardQuery) []domain.LeaderboardEntry {
	var since time.Time
	if query.Range == domain.RangeMonth {
		now := query.Now
		if now.IsZero() {
			now = time.Now().UTC()
		}
		since = now.Add(-MonthWindow)
	}
	var allowed map[string]struct{}
	if query.Scope == domain.ScopeFriends {
		allowed = make(map[string]struct{}, len(query.Followees))
		for _, id := range query.Followees {
			allowed[id] = struct{}{}
		}
	}

	type group struct {
		entry domain.LeaderboardEntry
		cafes map[string]struct{}
	}
	var order []*group
	byUser := map[string]*group{}
	for _, row := range rows {
		if !since.IsZero() && row.CreatedAt.Before(since) {
			continue
		}
		if allowed != nil {
			if _, ok := allowed[row.UserID]; !ok {
				continue
			}
		}
		g, ok := byUser[row.UserID]
		if !ok {
			g = &group{entry: domain.LeaderboardEntry{UserID: row.UserID}, cafes: map[string]struct{}{}}
			byUser[row.UserID] = g
			order = append(order, g)
		}
		g.entry.ReviewCount++
		g.cafes[row.CafeID] = struct{}{}
	}

	entries := make([]domain.LeaderboardEntry, 0, len(order))
	for _, g := range order {
		g.entry.UniqueCafeCount = len(g.cafes)
		entries = append(entries, g.entry)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].UniqueCafeCount == entries[j].UniqueCafeCount {
			return entries[i].ReviewCount > entries[j].ReviewCount
		}
		return entries[i].UniqueCafeCount > entries[j].UniqueCafeCount
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// LeaderboardRequest is what a caller asks the leaderboard service for.
type LeaderboardRequest struct {
	Scope domain.LeaderboardScope
	Range domain.TimeRange
	Limit int
}

type leaderboardService struct {
	reviews ReviewRepository
	users   UserRepository
	follows FollowRepository
	logger  *zap.Logger
	now     func() time.Time
}

// NewLeaderboardService creates a LeaderboardService.
func NewLeaderboardService(reviews ReviewRepository, users UserRepository, follows FollowRepository, logger *zap.Logger) LeaderboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &leaderboardService{
		reviews: reviews,
		users:   users,
		follows: follows,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *leaderboardService) Leaderboard(ctx context.Context, session domain.SessionContext, req LeaderboardRequest) ([]domain.LeaderboardEntry, error) {
	scope := req.Scope
	if scope == "" {
		scope = domain.ScopeGlobal
	}
	if scope != domain.ScopeGlobal && scope != domain.ScopeFriends {
		return nil, invalid("scope", "must be %q or %q", domain.ScopeGlobal, domain.ScopeFriends)
	}
	timeRange := req.Range
	if timeRange == "" {
		timeRange = domain.RangeAllTime
	}
	if timeRange != domain.RangeAllTime && timeRange != domain.RangeMonth {
		return nil, invalid("range", "must be %q or %q", domain.RangeAllTime, domain.RangeMonth)
	}
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		limit = MaxLeaderboardLimit
	}

	now := s.now()
	query := LeaderboardQuery{Scope: scope, Range: timeRange, Now: now}
	filter := ReviewFilter{}
	if timeRange == domain.RangeMonth {
		filter.Since = now.Add(-MonthWindow)
	}
	if scope == domain.ScopeFriends {
		if !session.Authenticated() {
			return nil, ErrAuthRequired
		}
		followees, err := s.follows.Followees(ctx, session.UserID)
		if err != nil {
			return nil, &UpstreamError{Source: "store", Retryable: true, Err: err}
		}
		if len(followees) == 0 {
			return []domain.LeaderboardEntry{}, nil
		}
		query.Followees = followees
		filter.UserIDs = followees
	}

	rows, err := s.reviews.List(ctx, filter)
	if err != nil {
		return nil, &UpstreamError{Source: "store", Retryable: true, Err: err}
	}
	entries := ComputeLeaderboard(rows, query)
	if len(entries) > limit {
		entries = entries[:limit]
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.UserID)
	}
	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		// Entries without profile data still rank correctly.
		s.logger.Warn("leaderboard user lookup failed", zap.Error(err))
		return entries, nil
	}
	for i := range entries {
		user, ok := users[entries[i].UserID]
		if !ok {
			continue
		}
		entries[i].Handle = user.Handle
		entries[i].DisplayName = user.DisplayName()
		entries[i].AvatarURL = user.AvatarURL
	}
	return entries, nil
}
