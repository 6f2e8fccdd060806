package public

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/beanscene/api/internal/interfaces/http/common"
	publicapp "github.com/beanscene/api/internal/public/application"
)

func (h *Handler) institutionResolveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimSpace(r.URL.Query().Get("name"))
		inst, ok := h.resolver.Lookup(name)
		resp := institutionResponse{
			Query:    name,
			Resolved: ok,
			Viewport: h.resolver.Resolve(name),
		}
		if ok {
			resp.Name = inst.Name
		}
		common.WriteJSON(h.logger, w, http.StatusOK, resp)
	}
}

func (h *Handler) cafeListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), common.DiscoveryTimeout)
		defer cancel()

		session, _ := common.SessionFromContext(r.Context())
		discovery, err := h.discovery.Discover(ctx, session, discoverQueryFrom(r))
		if err != nil {
			common.WriteError(h.logger, w, r, err)
			return
		}

		common.WriteJSON(h.logger, w, http.StatusOK, buildCafeListResponse(discovery))
	}
}

// cafeSearchHandler runs the typeahead match over the discovered corpus of
// the institution. Debouncing is the caller's job.
func (h *Handler) cafeSearchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		term := strings.TrimSpace(query.Get("term"))
		result := publicapp.SearchCafes(term, nil, "")
		if result.CreateOption == nil {
			common.WriteJSON(h.logger, w, http.StatusOK, cafeSearchResponse{Term: result.Term, Items: []cafeResponse{}})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), common.DiscoveryTimeout)
		defer cancel()

		session, _ := common.SessionFromContext(r.Context())
		discovery, err := h.discovery.Discover(ctx, session, discoverQueryFrom(r))
		if err != nil {
			common.WriteError(h.logger, w, r, err)
			return
		}

		filter := ""
		if strings.TrimSpace(query.Get("institution")) != "" {
			filter = discovery.Institution
		}
		result = publicapp.SearchCafes(term, discovery.Cafes, filter)
		common.WriteJSON(h.logger, w, http.StatusOK, cafeSearchResponse{
			Term:         result.Term,
			Items:        buildCafeResponses(result.Cafes),
			CreateOption: &createOptionResponse{Name: result.CreateOption.Name},
			PlacesError:  buildPlacesError(discovery.PlacesError),
		})
	}
}

func (h *Handler) cafeDetailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		session, _ := common.SessionFromContext(r.Context())
		cafe, err := h.discovery.Detail(ctx, session, strings.TrimSpace(chi.URLParam(r, "id")))
		if err != nil {
			common.WriteError(h.logger, w, r, err)
			return
		}

		common.WriteJSON(h.logger, w, http.StatusOK, buildCafeResponse(*cafe))
	}
}

func discoverQueryFrom(r *http.Request) publicapp.DiscoverQuery {
	query := r.URL.Query()
	return publicapp.DiscoverQuery{
		Institution: strings.TrimSpace(query.Get("institution")),
		Query:       strings.TrimSpace(query.Get("q")),
	}
}
