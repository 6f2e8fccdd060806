package public

import (
	"context"
	"net/http"
	"strings"

	"github.com/beanscene/api/internal/interfaces/http/common"
	publicapp "github.com/beanscene/api/internal/public/application"
	"github.com/beanscene/api/internal/public/domain"
)

func (h *Handler) leaderboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		scope := domain.LeaderboardScope(strings.ToLower(strings.TrimSpace(query.Get("scope"))))
		if scope == "" {
			scope = domain.ScopeGlobal
		}
		timeRange := domain.TimeRange(strings.ToLower(strings.TrimSpace(query.Get("range"))))
		if timeRange == "" {
			timeRange = domain.RangeAllTime
		}
		limit, _ := common.ParsePositiveInt(query.Get("limit"), publicapp.DefaultLeaderboardLimit)

		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		session, _ := common.SessionFromContext(r.Context())
		entries, err := h.leaderboard.Leaderboard(ctx, session, publicapp.LeaderboardRequest{
			Scope: scope,
			Range: timeRange,
			Limit: limit,
		})
		if err != nil {
			common.WriteError(h.logger, w, r, err)
			return
		}

		common.WriteJSON(h.logger, w, http.StatusOK, buildLeaderboardResponse(scope, timeRange, entries))
	}
}
