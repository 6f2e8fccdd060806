package public

import (
	"net/http"

	"github.com/beanscene/api/internal/interfaces/http/common"
)

func (h *Handler) authVerifyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := common.SessionFromContext(r.Context())
		if !ok || !session.Authenticated() {
			common.WriteMessage(h.logger, w, http.StatusInternalServerError, "session is missing from the request")
			return
		}

		common.WriteJSON(h.logger, w, http.StatusOK, map[string]any{
			"status": "ok",
			"user":   buildSessionResponse(session),
		})
	}
}
