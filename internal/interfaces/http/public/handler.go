package public

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	publicapp "github.com/beanscene/api/internal/public/application"
)

// Handler wires public HTTP endpoints to application services.
type Handler struct {
	logger       *zap.Logger
	resolver     *publicapp.CoordinateResolver
	discovery    publicapp.DiscoveryService
	reviews      publicapp.ReviewCommandService
	photos       publicapp.PhotoService
	leaderboard  publicapp.LeaderboardService
	follows      publicapp.FollowService
	bus          *publicapp.InvalidationBus
	liveDebounce time.Duration
	heartbeat    time.Duration
}

// Config defines dependencies required by Handler.
type Config struct {
	Logger      *zap.Logger
	Resolver    *publicapp.CoordinateResolver
	Discovery   publicapp.DiscoveryService
	Reviews     publicapp.ReviewCommandService
	Photos      publicapp.PhotoService
	Leaderboard publicapp.LeaderboardService
	Follows     publicapp.FollowService
	Bus         *publicapp.InvalidationBus
	// LiveDebounce is the quiet period before a live feed refetches.
	LiveDebounce time.Duration
	// Heartbeat is how often an idle live feed sends a keep-alive comment.
	Heartbeat time.Duration
}

// NewHandler constructs a public HTTP handler set.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	debounce := cfg.LiveDebounce
	if debounce <= 0 {
		debounce = publicapp.SearchDebounce
	}
	heartbeat := cfg.Heartbeat
	if heartbeat <= 0 {
		heartbeat = 25 * time.Second
	}
	return &Handler{
		logger:       logger,
		resolver:     cfg.Resolver,
		discovery:    cfg.Discovery,
		reviews:      cfg.Reviews,
		photos:       cfg.Photos,
		leaderboard:  cfg.Leaderboard,
		follows:      cfg.Follows,
		bus:          cfg.Bus,
		liveDebounce: debounce,
		heartbeat:    heartbeat,
	}
}

// Register mounts all public routes onto the router. requireAuth rejects
// anonymous requests; optionalAuth attaches a session when a token is sent.
func (h *Handler) Register(r chi.Router, requireAuth, optionalAuth func(http.Handler) http.Handler) {
	r.Get("/institutions/resolve", h.institutionResolveHandler())
	r.Get("/users/{id}", h.userProfileHandler())

	r.Group(func(r chi.Router) {
		r.Use(optionalAuth)
		r.Get("/cafes", h.cafeListHandler())
		r.Get("/cafes/search", h.cafeSearchHandler())
		r.Get("/cafes/live", h.cafeLiveHandler())
		r.Get("/cafes/{id}", h.cafeDetailHandler())
		r.Get("/map/markers", h.markerListHandler())
		r.Get("/map/markers/{id}", h.markerSelectHandler())
		r.Get("/leaderboard", h.leaderboardHandler())
	})

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/reviews", h.reviewCreateHandler())
		r.Post("/photos", h.photoUploadHandler())
		r.Post("/users/{id}/follow", h.followToggleHandler())
		r.Get("/auth/verify", h.authVerifyHandler())
	})
}
