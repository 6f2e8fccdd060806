package admin

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	adminapp "github.com/beanscene/api/internal/admin/application"
)

// Handler wires admin HTTP endpoints to application services.
type Handler struct {
	logger       *zap.Logger
	institutions adminapp.InstitutionService
}

// Config provides dependencies for Handler.
type Config struct {
	Logger       *zap.Logger
	Institutions adminapp.InstitutionService
}

// NewHandler constructs an admin HTTP handler set.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		logger:       logger,
		institutions: cfg.Institutions,
	}
}

// Register mounts admin routes onto router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/institutions", h.institutionListHandler())
	r.Put("/institutions/{name}", h.institutionUpsertHandler())
}
