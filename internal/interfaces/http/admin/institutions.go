package admin

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	adminapp "github.com/beanscene/api/internal/admin/application"
	"github.com/beanscene/api/internal/interfaces/http/common"
	publicdomain "github.com/beanscene/api/internal/public/domain"
)

type boundsPayload struct {
	MinLat float64 `json:"minLat"`
	MaxLat float64 `json:"maxLat"`
	MinLng float64 `json:"minLng"`
	MaxLng float64 `json:"maxLng"`
}

type upsertInstitutionRequest struct {
	Aliases []string       `json:"aliases"`
	Lat     float64        `json:"lat"`
	Lng     float64        `json:"lng"`
	Zoom    int            `json:"zoom"`
	Bounds  *boundsPayload `json:"bounds"`
}

type institutionResponse struct {
	Name    string         `json:"name"`
	Aliases []string       `json:"aliases"`
	Lat     float64        `json:"lat"`
	Lng     float64        `json:"lng"`
	Zoom    int            `json:"zoom"`
	Bounds  *boundsPayload `json:"bounds,omitempty"`
}

func buildInstitutionResponse(inst publicdomain.Institution) institutionResponse {
	aliases := inst.Aliases
	if aliases == nil {
		aliases = []string{}
	}
	resp := institutionResponse{
		Name:    inst.Name,
		Aliases: aliases,
		Lat:     inst.Lat,
		Lng:     inst.Lng,
		Zoom:    inst.Zoom,
	}
	if inst.Bounds != nil {
		resp.Bounds = &boundsPayload{
			MinLat: inst.Bounds.MinLat,
			MaxLat: inst.Bounds.MaxLat,
			MinLng: inst.Bounds.MinLng,
			MaxLng: inst.Bounds.MaxLng,
		}
	}
	return resp
}

func (h *Handler) institutionListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		table, err := h.institutions.List(ctx)
		if err != nil {
			h.logger.Error("admin institution list failed", zap.Error(err))
			common.WriteMessage(h.logger, w, http.StatusInternalServerError, "failed to load institutions")
			return
		}

		items := make([]institutionResponse, 0, len(table))
		for _, inst := range table {
			items = append(items, buildInstitutionResponse(inst))
		}
		common.WriteJSON(h.logger, w, http.StatusOK, map[string]any{"items": items})
	}
}

func (h *Handler) institutionUpsertHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, err := url.PathUnescape(chi.URLParam(r, "name"))
		if err != nil {
			common.WriteMessage(h.logger, w, http.StatusBadRequest, "institution name is malformed")
			return
		}

		var req upsertInstitutionRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, common.MaxJSONRequestBody)).Decode(&req); err != nil {
			common.WriteMessage(h.logger, w, http.StatusBadRequest, "request body is not valid JSON")
			return
		}

		cmd := adminapp.UpsertInstitutionCommand{
			Name:    name,
			Aliases: req.Aliases,
			Lat:     req.Lat,
			Lng:     req.Lng,
			Zoom:    req.Zoom,
		}
		if req.Bounds != nil {
			cmd.Bounds = &adminapp.BoundsInput{
				MinLat: req.Bounds.MinLat,
				MaxLat: req.Bounds.MaxLat,
				MinLng: req.Bounds.MinLng,
				MaxLng: req.Bounds.MaxLng,
			}
		}

		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		inst, err := h.institutions.Upsert(ctx, cmd)
		if err != nil {
			if adminapp.IsInvalidInstitution(err) {
				common.WriteMessage(h.logger, w, http.StatusBadRequest, err.Error())
				return
			}
			h.logger.Error("admin institution upsert failed", zap.String("name", name), zap.Error(err))
			common.WriteMessage(h.logger, w, http.StatusInternalServerError, "failed to save institution")
			return
		}

		common.WriteJSON(h.logger, w, http.StatusOK, buildInstitutionResponse(inst.Public()))
	}
}
